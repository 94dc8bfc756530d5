// Package app coordinates the stores, the aggregation engine and the
// optional receipt scanner behind a single controller. Handlers talk to
// the controller only.
package app

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"smartreceipt/internal/cache"
	"smartreceipt/internal/core"
	"smartreceipt/internal/log"
	"smartreceipt/internal/scan"
	"smartreceipt/internal/store"
)

// Expense event actions published to the mirror pipeline.
const (
	ActionCreated = "created"
	ActionUpdated = "updated"
	ActionDeleted = "deleted"
)

// EventPublisher forwards expense mutations to the sheet mirror. A nil
// publisher disables mirroring; publish failures never fail the write.
type EventPublisher interface {
	PublishExpenseEvent(ctx context.Context, expenseID, action string) error
}

// ExpenseInput is the raw form input for creating or updating an expense.
type ExpenseInput struct {
	Amount      string
	Merchant    string
	Category    string
	Date        string
	AiGenerated bool
}

// DashboardView is everything the dashboard page renders.
type DashboardView struct {
	Today            core.Date
	DailyLimit       core.Money
	TodayTotal       core.Money
	WeekTotal        core.Money
	MonthTotal       core.Money
	OverLimit        bool
	OverLimitPercent float64
	PercentKnown     bool
	Week             []core.DayPoint
	Recent           []core.Expense
}

// recentCount is how many latest expenses the dashboard lists.
const recentCount = 5

type Controller struct {
	expenses  store.ExpenseStore
	settings  store.SettingsStore
	scanner   scan.Scanner
	publisher EventPublisher
	logger    *log.Logger

	scanCache *cache.LRUCache[scan.Guess]

	mu       sync.RWMutex
	snapshot []core.Expense
	limit    core.Money
}

func NewController(expenses store.ExpenseStore, settings store.SettingsStore, logger *log.Logger, opts ...Option) *Controller {
	c := &Controller{
		expenses:  expenses,
		settings:  settings,
		logger:    logger.WithComponent(log.ComponentController),
		limit:     core.DefaultSettings().DailyLimit,
		scanCache: cache.NewLRUCache[scan.Guess](64, time.Hour),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type Option func(*Controller)

// WithScanner enables receipt scanning.
func WithScanner(s scan.Scanner) Option {
	return func(c *Controller) { c.scanner = s }
}

// WithPublisher enables the sheet mirror event stream.
func WithPublisher(p EventPublisher) Option {
	return func(c *Controller) { c.publisher = p }
}

// Reload replaces the in-memory snapshot from the stores. Called at
// startup and after every write so reads stay consistent.
func (c *Controller) Reload(ctx context.Context) error {
	expenses, err := c.expenses.ListExpenses(ctx)
	if err != nil {
		return fmt.Errorf("load expenses: %w", err)
	}
	settings, err := c.settings.LoadSettings(ctx)
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}

	c.mu.Lock()
	c.snapshot = expenses
	c.limit = settings.DailyLimit
	c.mu.Unlock()

	c.logger.DebugContext(ctx, "Snapshot reloaded", "expense_count", len(expenses))
	return nil
}

// Dashboard assembles the spending summary for today.
func (c *Controller) Dashboard(_ context.Context) DashboardView {
	return c.dashboardFor(core.Today())
}

func (c *Controller) dashboardFor(today core.Date) DashboardView {
	c.mu.RLock()
	expenses := c.snapshot
	limit := c.limit
	c.mu.RUnlock()

	todayTotal := core.DailyTotal(expenses, today)
	percent, known := core.OverLimitPercent(todayTotal, limit)

	view := DashboardView{
		Today:            today,
		DailyLimit:       limit,
		TodayTotal:       todayTotal,
		WeekTotal:        core.WeekTotal(expenses, today),
		MonthTotal:       core.MonthTotal(expenses, today),
		OverLimit:        core.IsOverLimit(todayTotal, limit),
		OverLimitPercent: percent,
		PercentKnown:     known,
		Week:             core.LastSevenDays(expenses, today),
	}

	history := core.ApplyFilter(expenses, core.Filter{})
	if len(history.Items) > recentCount {
		history.Items = history.Items[:recentCount]
	}
	view.Recent = history.Items
	return view
}

// Range sums spending over the inclusive [start, end] interval.
func (c *Controller) Range(_ context.Context, start, end core.Date) core.RangeSummary {
	c.mu.RLock()
	expenses := c.snapshot
	c.mu.RUnlock()
	return core.SummarizeRange(expenses, start, end)
}

// History returns the filtered expense log.
func (c *Controller) History(_ context.Context, f core.Filter) core.HistoryView {
	c.mu.RLock()
	expenses := c.snapshot
	c.mu.RUnlock()
	return core.ApplyFilter(expenses, f)
}

// Settings returns the current settings.
func (c *Controller) Settings(_ context.Context) core.Settings {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return core.Settings{DailyLimit: c.limit}
}

// AddExpense validates the input, persists a new expense and reloads
// the snapshot.
func (c *Controller) AddExpense(ctx context.Context, input ExpenseInput) (core.Expense, error) {
	e, err := expenseFromInput(uuid.NewString(), input)
	if err != nil {
		return core.Expense{}, err
	}

	if err := c.expenses.SaveExpense(ctx, e); err != nil {
		return core.Expense{}, fmt.Errorf("save expense: %w", err)
	}
	if err := c.Reload(ctx); err != nil {
		return core.Expense{}, err
	}

	c.logger.InfoContext(ctx, "Expense added",
		log.FieldExpenseID, e.ID,
		log.FieldMerchant, e.Merchant,
		log.FieldAmountCents, e.Amount.Cents,
		log.FieldAiGenerated, e.AiGenerated)
	c.publish(ctx, e.ID, ActionCreated)
	return e, nil
}

// UpdateExpense validates the input and replaces the stored expense.
// An unknown ID is a silent no-op.
func (c *Controller) UpdateExpense(ctx context.Context, id string, input ExpenseInput) (core.Expense, error) {
	e, err := expenseFromInput(id, input)
	if err != nil {
		return core.Expense{}, err
	}

	if err := c.expenses.UpdateExpense(ctx, e); err != nil {
		return core.Expense{}, fmt.Errorf("update expense: %w", err)
	}
	if err := c.Reload(ctx); err != nil {
		return core.Expense{}, err
	}

	c.logger.InfoContext(ctx, "Expense updated", log.FieldExpenseID, e.ID)
	c.publish(ctx, e.ID, ActionUpdated)
	return e, nil
}

// DeleteExpense removes an expense. An unknown ID is a silent no-op.
func (c *Controller) DeleteExpense(ctx context.Context, id string) error {
	if strings.TrimSpace(id) == "" {
		return core.ErrEmptyID
	}
	if err := c.expenses.DeleteExpense(ctx, id); err != nil {
		return fmt.Errorf("delete expense: %w", err)
	}
	if err := c.Reload(ctx); err != nil {
		return err
	}

	c.logger.InfoContext(ctx, "Expense deleted", log.FieldExpenseID, id)
	c.publish(ctx, id, ActionDeleted)
	return nil
}

// UpdateDailyLimit parses and persists a new daily budget.
func (c *Controller) UpdateDailyLimit(ctx context.Context, raw string) (core.Settings, error) {
	limit, err := core.ParseMoney(raw)
	if err != nil {
		return core.Settings{}, err
	}
	settings := core.Settings{DailyLimit: limit}

	if err := c.settings.SaveSettings(ctx, settings); err != nil {
		return core.Settings{}, fmt.Errorf("save settings: %w", err)
	}
	if err := c.Reload(ctx); err != nil {
		return core.Settings{}, err
	}

	c.logger.InfoContext(ctx, "Daily limit updated", log.FieldAmountCents, limit.Cents)
	return settings, nil
}

// ErrScanDisabled is returned when no scanner is configured.
var ErrScanDisabled = fmt.Errorf("receipt scanning is not configured")

// ScanReceipt interprets a receipt image. Results are memoized by image
// hash so re-submitting the same photo does not hit the API again.
func (c *Controller) ScanReceipt(ctx context.Context, image []byte, mimeType string) (scan.Guess, error) {
	if c.scanner == nil {
		return scan.Guess{}, ErrScanDisabled
	}

	sum := sha256.Sum256(image)
	key := hex.EncodeToString(sum[:])
	if guess, ok := c.scanCache.Get(key); ok {
		c.logger.DebugContext(ctx, "Scan cache hit")
		return guess, nil
	}

	guess, err := c.scanner.ScanReceipt(ctx, image, mimeType)
	if err != nil {
		return scan.Guess{}, err
	}
	c.scanCache.Set(key, guess)
	return guess, nil
}

// ScanEnabled reports whether a scanner is wired in.
func (c *Controller) ScanEnabled() bool {
	return c.scanner != nil
}

func (c *Controller) publish(ctx context.Context, id, action string) {
	if c.publisher == nil {
		return
	}
	if err := c.publisher.PublishExpenseEvent(ctx, id, action); err != nil {
		// Mirroring is best-effort; the periodic backstop catches up.
		c.logger.WarnContext(ctx, "Failed to publish expense event",
			log.FieldExpenseID, id,
			log.FieldOperation, action,
			log.FieldError, err)
	}
}

func expenseFromInput(id string, input ExpenseInput) (core.Expense, error) {
	amount, err := core.ParseMoney(input.Amount)
	if err != nil {
		return core.Expense{}, err
	}
	date, err := core.ParseDate(strings.TrimSpace(input.Date))
	if err != nil {
		return core.Expense{}, core.ErrInvalidDate
	}

	e := core.Expense{
		ID:          id,
		Amount:      amount,
		Merchant:    strings.TrimSpace(input.Merchant),
		Category:    strings.TrimSpace(input.Category),
		Date:        date,
		AiGenerated: input.AiGenerated,
	}
	if err := e.Validate(); err != nil {
		return core.Expense{}, err
	}
	return e, nil
}
