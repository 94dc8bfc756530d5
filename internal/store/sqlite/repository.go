// Package sqlite implements the store ports on an embedded SQLite
// database. The extra sync bookkeeping columns back the Google Sheets
// mirror worker.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"smartreceipt/internal/core"
	"smartreceipt/internal/store"

	_ "modernc.org/sqlite"
)

// Sync status values for the expenses.sync_status column.
const (
	SyncPending int64 = 0
	SyncDone    int64 = 1
	SyncError   int64 = 2
)

type Repository struct {
	db *sql.DB
}

func New(dbPath string) (*Repository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := runMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &Repository{db: db}, nil
}

func (r *Repository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

const expenseColumns = "id, expense_date, merchant, category, amount_cents, ai_generated"

func scanExpense(row interface{ Scan(...any) error }) (core.Expense, error) {
	var (
		e       core.Expense
		dateStr string
		cents   int64
	)
	if err := row.Scan(&e.ID, &dateStr, &e.Merchant, &e.Category, &cents, &e.AiGenerated); err != nil {
		return core.Expense{}, err
	}
	d, err := core.ParseDate(dateStr)
	if err != nil {
		return core.Expense{}, fmt.Errorf("parse stored date %q: %w", dateStr, err)
	}
	e.Date = d
	e.Amount = core.Money{Cents: cents}
	return e, nil
}

// ListExpenses returns all expenses in insertion order.
func (r *Repository) ListExpenses(ctx context.Context) ([]core.Expense, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+expenseColumns+" FROM expenses ORDER BY rowid")
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	defer rows.Close()

	var expenses []core.Expense
	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			return nil, fmt.Errorf("scan expense: %w", err)
		}
		expenses = append(expenses, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate expenses: %w", err)
	}
	return expenses, nil
}

func (r *Repository) SaveExpense(ctx context.Context, e core.Expense) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO expenses (id, expense_date, merchant, category, amount_cents, ai_generated, sync_status)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.Date.ISO(), e.Merchant, e.Category, e.Amount.Cents, e.AiGenerated, SyncPending)
	if err != nil {
		return fmt.Errorf("insert expense: %w", err)
	}
	return nil
}

// UpdateExpense replaces a stored expense and resets its sync status so
// the mirror worker picks the change up again. Unknown IDs are ignored.
func (r *Repository) UpdateExpense(ctx context.Context, e core.Expense) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE expenses
		 SET expense_date = ?, merchant = ?, category = ?, amount_cents = ?, ai_generated = ?,
		     sync_status = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ?`,
		e.Date.ISO(), e.Merchant, e.Category, e.Amount.Cents, e.AiGenerated, SyncPending, e.ID)
	if err != nil {
		return fmt.Errorf("update expense: %w", err)
	}
	return nil
}

func (r *Repository) DeleteExpense(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, "DELETE FROM expenses WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete expense: %w", err)
	}
	return nil
}

// GetExpense retrieves a single expense by ID.
func (r *Repository) GetExpense(ctx context.Context, id string) (core.Expense, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT "+expenseColumns+" FROM expenses WHERE id = ?", id)
	e, err := scanExpense(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Expense{}, store.ErrNotFound
	}
	if err != nil {
		return core.Expense{}, fmt.Errorf("get expense: %w", err)
	}
	return e, nil
}

// GetPendingSync returns up to limit expenses still waiting to be
// mirrored, oldest first. Rows whose last append attempt failed are
// included so the periodic pass retries them.
func (r *Repository) GetPendingSync(ctx context.Context, limit int) ([]core.Expense, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+expenseColumns+" FROM expenses WHERE sync_status IN (?, ?) ORDER BY created_at, rowid LIMIT ?",
		SyncPending, SyncError, limit)
	if err != nil {
		return nil, fmt.Errorf("get pending sync expenses: %w", err)
	}
	defer rows.Close()

	var expenses []core.Expense
	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			return nil, fmt.Errorf("scan pending expense: %w", err)
		}
		expenses = append(expenses, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate pending expenses: %w", err)
	}
	return expenses, nil
}

func (r *Repository) MarkSynced(ctx context.Context, id string) error {
	return r.setSyncStatus(ctx, id, SyncDone)
}

func (r *Repository) MarkSyncError(ctx context.Context, id string) error {
	return r.setSyncStatus(ctx, id, SyncError)
}

func (r *Repository) setSyncStatus(ctx context.Context, id string, status int64) error {
	_, err := r.db.ExecContext(ctx,
		"UPDATE expenses SET sync_status = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?",
		status, id)
	if err != nil {
		return fmt.Errorf("set sync status %d: %w", status, err)
	}
	return nil
}

// LoadSettings returns the singleton settings row, falling back to the
// defaults if it is somehow missing.
func (r *Repository) LoadSettings(ctx context.Context) (core.Settings, error) {
	var cents int64
	err := r.db.QueryRowContext(ctx,
		"SELECT daily_limit_cents FROM settings WHERE id = 1").Scan(&cents)
	if errors.Is(err, sql.ErrNoRows) {
		return core.DefaultSettings(), nil
	}
	if err != nil {
		return core.Settings{}, fmt.Errorf("load settings: %w", err)
	}
	return core.Settings{DailyLimit: core.Money{Cents: cents}}, nil
}

func (r *Repository) SaveSettings(ctx context.Context, s core.Settings) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO settings (id, daily_limit_cents, updated_at) VALUES (1, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET daily_limit_cents = excluded.daily_limit_cents, updated_at = excluded.updated_at`,
		s.DailyLimit.Cents, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("save settings: %w", err)
	}
	return nil
}
