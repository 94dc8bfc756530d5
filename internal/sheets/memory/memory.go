// Package memory is an in-memory RowAppender for tests and local runs
// without Google credentials.
package memory

import (
	"context"
	"fmt"
	"sync"

	"smartreceipt/internal/core"
	"smartreceipt/internal/sheets"
)

type Appender struct {
	mu   sync.Mutex
	rows []core.Expense

	// FailWith, when set, makes every append return this error.
	FailWith error
}

var _ sheets.RowAppender = (*Appender)(nil)

func New() *Appender {
	return &Appender{}
}

func (a *Appender) AppendExpenseRow(_ context.Context, e core.Expense) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.FailWith != nil {
		return "", a.FailWith
	}
	a.rows = append(a.rows, e)
	return fmt.Sprintf("Expenses!A%d:E%d", len(a.rows)+1, len(a.rows)+1), nil
}

// Rows returns a copy of everything appended so far.
func (a *Appender) Rows() []core.Expense {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]core.Expense, len(a.rows))
	copy(out, a.rows)
	return out
}
