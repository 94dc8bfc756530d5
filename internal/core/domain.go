package core

import (
	"errors"
	"strings"
	"time"
)

// Known categories, used for icon/label lookup only. Category is an open
// string everywhere else: a receipt scan may return values outside this
// set and the record is still accepted.
const (
	CategoryFood          = "Food & Dining"
	CategoryShopping      = "Shopping"
	CategoryTransport     = "Transportation"
	CategoryEntertainment = "Entertainment"
	CategoryUtilities     = "Utilities"
	CategoryHealth        = "Health"
	CategoryOther         = "Other"
)

// DefaultDailyLimitCents is the settings fallback when nothing is persisted.
const DefaultDailyLimitCents = 5000

type (
	// Date is a calendar day with no time-of-day semantics. The embedded
	// time.Time is always UTC midnight so same-day comparisons never hit
	// timezone boundaries.
	Date struct {
		time.Time
	}

	Money struct {
		Cents int64
	}

	// Expense is a single recorded transaction.
	Expense struct {
		ID          string
		Amount      Money
		Merchant    string
		Category    string
		Date        Date
		AiGenerated bool
	}

	// Settings is the singleton preference record.
	Settings struct {
		DailyLimit Money
	}
)

var (
	ErrInvalidAmount  = errors.New("invalid amount")
	ErrEmptyMerchant  = errors.New("empty merchant")
	ErrEmptyCategory  = errors.New("empty category")
	ErrEmptyID        = errors.New("empty expense id")
	ErrInvalidDate    = errors.New("invalid date")
	ErrNegativeAmount = errors.New("amount must not be negative")
)

// KnownCategories returns the fixed category set in display order.
func KnownCategories() []string {
	return []string{
		CategoryFood,
		CategoryShopping,
		CategoryTransport,
		CategoryEntertainment,
		CategoryUtilities,
		CategoryHealth,
		CategoryOther,
	}
}

// IsKnownCategory reports whether c is one of the fixed categories.
func IsKnownCategory(c string) bool {
	for _, k := range KnownCategories() {
		if c == k {
			return true
		}
	}
	return false
}

// NewDate creates a Date from year, month, day.
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates t to its calendar day.
func DateOf(t time.Time) Date {
	return NewDate(t.Year(), int(t.Month()), t.Day())
}

// Today returns the current calendar day.
func Today() Date {
	return DateOf(time.Now())
}

// ParseDate parses an ISO YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.ParseInLocation("2006-01-02", strings.TrimSpace(s), time.UTC)
	if err != nil {
		return Date{}, ErrInvalidDate
	}
	return Date{Time: t}, nil
}

// ISO returns the YYYY-MM-DD serialization.
func (d Date) ISO() string {
	return d.Format("2006-01-02")
}

// SameDay reports whether two dates fall on the same calendar day.
func (d Date) SameDay(other Date) bool {
	return d.Time.Equal(other.Time)
}

// AddDays returns the date n days later (negative n goes back).
func (d Date) AddDays(n int) Date {
	return Date{Time: d.Time.AddDate(0, 0, n)}
}

func (d Date) Validate() error {
	if d.IsZero() {
		return ErrInvalidDate
	}
	return nil
}

func (m Money) Validate() error {
	if m.Cents < 0 {
		return ErrNegativeAmount
	}
	return nil
}

// Add returns the sum of two amounts.
func (m Money) Add(other Money) Money {
	return Money{Cents: m.Cents + other.Cents}
}

// GreaterThan reports strict inequality.
func (m Money) GreaterThan(other Money) bool {
	return m.Cents > other.Cents
}

func (e Expense) Validate() error {
	if strings.TrimSpace(e.ID) == "" {
		return ErrEmptyID
	}
	if err := e.Date.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(e.Merchant) == "" {
		return ErrEmptyMerchant
	}
	if len(e.Merchant) > 200 {
		return errors.New("merchant too long (max 200 characters)")
	}
	if strings.TrimSpace(e.Category) == "" {
		return ErrEmptyCategory
	}
	if err := e.Amount.Validate(); err != nil {
		return err
	}
	return nil
}

func (s Settings) Validate() error {
	return s.DailyLimit.Validate()
}

// DefaultSettings is what settings loads fall back to when nothing is persisted.
func DefaultSettings() Settings {
	return Settings{DailyLimit: Money{Cents: DefaultDailyLimitCents}}
}
