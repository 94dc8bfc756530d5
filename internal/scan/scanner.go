// Package scan extracts expense details from receipt images.
package scan

import (
	"context"
	"errors"
)

// ErrScanFailed wraps any upstream failure while interpreting a receipt.
var ErrScanFailed = errors.New("receipt scan failed")

// Guess is the scanner's best reading of a receipt. Any field may be a
// guess rather than an exact extraction; the caller keeps the user in
// the loop before saving.
type Guess struct {
	Amount   float64 `json:"amount"`
	Merchant string  `json:"merchant"`
	Category string  `json:"category"`
	Date     string  `json:"date"`
}

// Scanner interprets a receipt image into a structured guess.
type Scanner interface {
	ScanReceipt(ctx context.Context, image []byte, mimeType string) (Guess, error)
}
