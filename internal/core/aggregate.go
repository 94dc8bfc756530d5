package core

// Aggregation over a snapshot of the expense collection. Every function
// treats its input slice as read-only and does not depend on its order:
// the data volume for a single user never justifies indexes or
// incremental maintenance, so everything is a plain filter+reduce.
//
// Week convention: weeks start on Monday. WeekTotal and MonthTotal are
// windows that end on the reference day inclusive.

// RangeSummary is the result of summing an inclusive date interval.
type RangeSummary struct {
	Total Money
	Count int
}

// DayPoint is one bar of the seven-day spending series.
type DayPoint struct {
	Label  string // e.g. "Jan 02"
	Date   Date
	Amount Money
}

// DailyTotal sums the amounts of all expenses dated on the same calendar
// day as today. Empty input yields zero.
func DailyTotal(expenses []Expense, today Date) Money {
	var total Money
	for _, e := range expenses {
		if e.Date.SameDay(today) {
			total = total.Add(e.Amount)
		}
	}
	return total
}

// WeekTotal sums expenses dated within [start of the week containing
// today, today], weeks starting on Monday.
func WeekTotal(expenses []Expense, today Date) Money {
	return sumWindow(expenses, StartOfWeek(today), today)
}

// MonthTotal sums expenses dated within [first day of today's month, today].
func MonthTotal(expenses []Expense, today Date) Money {
	return sumWindow(expenses, StartOfMonth(today), today)
}

// SummarizeRange sums expenses whose date lies in the inclusive interval
// [start, end]. Callers with an absent or unparseable bound do not call
// this at all (the range card is simply not shown).
func SummarizeRange(expenses []Expense, start, end Date) RangeSummary {
	var s RangeSummary
	for _, e := range expenses {
		if inWindow(e.Date, start, end) {
			s.Total = s.Total.Add(e.Amount)
			s.Count++
		}
	}
	return s
}

// LastSevenDays returns exactly seven points, one per calendar day from
// today-6 through today in chronological order. Days without expenses
// contribute a zero amount.
func LastSevenDays(expenses []Expense, today Date) []DayPoint {
	points := make([]DayPoint, 0, 7)
	for i := 6; i >= 0; i-- {
		day := today.AddDays(-i)
		points = append(points, DayPoint{
			Label:  day.Format("Jan 02"),
			Date:   day,
			Amount: DailyTotal(expenses, day),
		})
	}
	return points
}

// IsOverLimit reports whether total strictly exceeds limit. Spending
// exactly the limit is still on budget.
func IsOverLimit(total, limit Money) bool {
	return total.GreaterThan(limit)
}

// OverLimitPercent returns how far total exceeds limit, in percent.
// The second return is false when limit is not positive: with a zero
// limit any spend is over but the percentage is undefined, so callers
// render "over" without a number.
func OverLimitPercent(total, limit Money) (float64, bool) {
	if limit.Cents <= 0 {
		return 0, false
	}
	return (float64(total.Cents)/float64(limit.Cents) - 1) * 100, true
}

// StartOfWeek returns the Monday on or before d.
func StartOfWeek(d Date) Date {
	offset := (int(d.Weekday()) + 6) % 7 // Monday=0 .. Sunday=6
	return d.AddDays(-offset)
}

// StartOfMonth returns the first day of d's month.
func StartOfMonth(d Date) Date {
	return NewDate(d.Year(), int(d.Month()), 1)
}

func sumWindow(expenses []Expense, start, end Date) Money {
	var total Money
	for _, e := range expenses {
		if inWindow(e.Date, start, end) {
			total = total.Add(e.Amount)
		}
	}
	return total
}

func inWindow(d, start, end Date) bool {
	return !d.Before(start.Time) && !d.After(end.Time)
}
