// Package sheets defines the outbound port for the spreadsheet mirror.
package sheets

import (
	"context"

	"smartreceipt/internal/core"
)

// RowAppender appends one expense as a spreadsheet row and returns a
// reference to the written range.
type RowAppender interface {
	AppendExpenseRow(ctx context.Context, e core.Expense) (rowRef string, err error)
}
