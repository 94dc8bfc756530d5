// Package jsonfile implements the store ports on plain JSON documents,
// one file per collection. It is the zero-setup default backend.
package jsonfile

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"smartreceipt/internal/core"
)

const (
	expensesFile = "expenses.json"
	settingsFile = "settings.json"
)

type Store struct {
	dir string
	mu  sync.Mutex
}

func New(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create store directory: %w", err)
	}
	return &Store{dir: dir}, nil
}

type expenseDoc struct {
	ID          string `json:"id"`
	AmountCents int64  `json:"amount_cents"`
	Merchant    string `json:"merchant"`
	Category    string `json:"category"`
	Date        string `json:"date"`
	AiGenerated bool   `json:"ai_generated,omitempty"`
}

type settingsDoc struct {
	DailyLimitCents int64 `json:"daily_limit_cents"`
}

func (s *Store) ListExpenses(ctx context.Context) ([]core.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.readExpenses()
}

func (s *Store) SaveExpense(ctx context.Context, e core.Expense) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	expenses, err := s.readExpenses()
	if err != nil {
		return err
	}
	expenses = append(expenses, e)
	return s.writeExpenses(expenses)
}

func (s *Store) UpdateExpense(ctx context.Context, e core.Expense) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	expenses, err := s.readExpenses()
	if err != nil {
		return err
	}
	for i := range expenses {
		if expenses[i].ID == e.ID {
			expenses[i] = e
			return s.writeExpenses(expenses)
		}
	}
	// Unknown ID: nothing to do
	return nil
}

func (s *Store) DeleteExpense(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	expenses, err := s.readExpenses()
	if err != nil {
		return err
	}
	kept := expenses[:0]
	for _, e := range expenses {
		if e.ID != id {
			kept = append(kept, e)
		}
	}
	if len(kept) == len(expenses) {
		return nil
	}
	return s.writeExpenses(kept)
}

func (s *Store) LoadSettings(ctx context.Context) (core.Settings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(filepath.Join(s.dir, settingsFile))
	if os.IsNotExist(err) {
		return core.DefaultSettings(), nil
	}
	if err != nil {
		return core.Settings{}, fmt.Errorf("read settings file: %w", err)
	}

	var doc settingsDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		// A corrupt file should not lock the user out
		return core.DefaultSettings(), nil
	}
	return core.Settings{DailyLimit: core.Money{Cents: doc.DailyLimitCents}}, nil
}

func (s *Store) SaveSettings(ctx context.Context, settings core.Settings) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc := settingsDoc{DailyLimitCents: settings.DailyLimit.Cents}
	return s.writeFile(settingsFile, doc)
}

func (s *Store) readExpenses() ([]core.Expense, error) {
	data, err := os.ReadFile(filepath.Join(s.dir, expensesFile))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read expenses file: %w", err)
	}

	var docs []expenseDoc
	if err := json.Unmarshal(data, &docs); err != nil {
		return nil, nil
	}

	expenses := make([]core.Expense, 0, len(docs))
	for _, d := range docs {
		date, err := core.ParseDate(d.Date)
		if err != nil {
			continue
		}
		expenses = append(expenses, core.Expense{
			ID:          d.ID,
			Amount:      core.Money{Cents: d.AmountCents},
			Merchant:    d.Merchant,
			Category:    d.Category,
			Date:        date,
			AiGenerated: d.AiGenerated,
		})
	}
	return expenses, nil
}

func (s *Store) writeExpenses(expenses []core.Expense) error {
	docs := make([]expenseDoc, len(expenses))
	for i, e := range expenses {
		docs[i] = expenseDoc{
			ID:          e.ID,
			AmountCents: e.Amount.Cents,
			Merchant:    e.Merchant,
			Category:    e.Category,
			Date:        e.Date.ISO(),
			AiGenerated: e.AiGenerated,
		}
	}
	return s.writeFile(expensesFile, docs)
}

// writeFile marshals v and replaces the named file atomically via a
// temp file and rename.
func (s *Store) writeFile(name string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", name, err)
	}

	path := filepath.Join(s.dir, name)
	tmp, err := os.CreateTemp(s.dir, name+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("replace %s: %w", name, err)
	}
	return nil
}
