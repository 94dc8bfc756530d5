// Package store defines the persistence ports for expense records and
// user settings. Adapters live in the sqlite and jsonfile subpackages.
package store

import (
	"context"
	"errors"

	"smartreceipt/internal/core"
)

// ErrNotFound is returned by lookups for an unknown expense ID.
var ErrNotFound = errors.New("expense not found")

// ExpenseStore persists expense records.
type ExpenseStore interface {
	// ListExpenses returns all stored expenses in insertion order.
	ListExpenses(ctx context.Context) ([]core.Expense, error)
	// SaveExpense appends a new expense.
	SaveExpense(ctx context.Context, e core.Expense) error
	// UpdateExpense replaces the expense with a matching ID. Updating an
	// unknown ID is a no-op.
	UpdateExpense(ctx context.Context, e core.Expense) error
	// DeleteExpense removes the expense with the given ID. Deleting an
	// unknown ID is a no-op.
	DeleteExpense(ctx context.Context, id string) error
}

// SettingsStore persists the user's settings.
type SettingsStore interface {
	// LoadSettings returns the stored settings, or defaults when none
	// have ever been saved.
	LoadSettings(ctx context.Context) (core.Settings, error)
	SaveSettings(ctx context.Context, s core.Settings) error
}
