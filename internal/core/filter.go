package core

import (
	"sort"
	"strings"
)

// Filter is the raw user input for the history view. Date bounds are
// active only when both Start and End are set; a zero Date means the
// bound is absent and all dates pass.
type Filter struct {
	Search string
	Start  Date
	End    Date
}

// HistoryView is the filtered, sorted subset plus its display totals.
type HistoryView struct {
	Items []Expense
	Count int
	Total Money
}

// DateActive reports whether the date interval condition applies.
func (f Filter) DateActive() bool {
	return !f.Start.IsZero() && !f.End.IsZero()
}

// Matches reports whether e satisfies both the text and the date
// condition. The text match is a case-insensitive substring test against
// merchant or category; an empty search matches everything.
func (f Filter) Matches(e Expense) bool {
	if term := strings.ToLower(f.Search); term != "" {
		if !strings.Contains(strings.ToLower(e.Merchant), term) &&
			!strings.Contains(strings.ToLower(e.Category), term) {
			return false
		}
	}
	if f.DateActive() && !inWindow(e.Date, f.Start, f.End) {
		return false
	}
	return true
}

// ApplyFilter produces the history view for a snapshot: the matching
// expenses sorted by date descending. The sort is stable so expenses on
// the same day keep their insertion order, and the input slice is never
// reordered.
func ApplyFilter(expenses []Expense, f Filter) HistoryView {
	view := HistoryView{Items: make([]Expense, 0, len(expenses))}
	for _, e := range expenses {
		if f.Matches(e) {
			view.Items = append(view.Items, e)
			view.Total = view.Total.Add(e.Amount)
		}
	}
	sort.SliceStable(view.Items, func(i, j int) bool {
		return view.Items[j].Date.Before(view.Items[i].Date.Time)
	})
	view.Count = len(view.Items)
	return view
}
