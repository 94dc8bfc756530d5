package http

import (
	"net/http"

	"smartreceipt/internal/app"
	"smartreceipt/internal/core"
	"smartreceipt/internal/log"
)

// expenseRow is the template shape for one expense line.
type expenseRow struct {
	ID          string
	Date        string
	Merchant    string
	Category    string
	Amount      string
	AiGenerated bool
}

func toExpenseRows(expenses []core.Expense) []expenseRow {
	rows := make([]expenseRow, len(expenses))
	for i, e := range expenses {
		rows[i] = expenseRow{
			ID:          e.ID,
			Date:        e.Date.ISO(),
			Merchant:    e.Merchant,
			Category:    e.Category,
			Amount:      formatDollars(e.Amount.Cents),
			AiGenerated: e.AiGenerated,
		}
	}
	return rows
}

type dayBar struct {
	Label  string
	Amount string
	Width  int
	IsMax  bool
}

// rangeCard is the optional custom-interval summary shown when the
// dashboard is requested with start/end query parameters.
type rangeCard struct {
	Start string
	End   string
	Total string
	Count int
}

type dashboardData struct {
	Today       string
	TodayTotal  string
	DailyLimit  string
	WeekTotal   string
	MonthTotal  string
	OverLimit   bool
	OverPercent string
	HasPercent  bool
	Week        []dayBar
	Recent      []expenseRow
	Categories  []string
	ScanEnabled bool
	Range       *rangeCard
}

func (s *Server) dashboardData(view app.DashboardView) dashboardData {
	data := dashboardData{
		Today:       view.Today.ISO(),
		TodayTotal:  formatDollars(view.TodayTotal.Cents),
		DailyLimit:  formatDollars(view.DailyLimit.Cents),
		WeekTotal:   formatDollars(view.WeekTotal.Cents),
		MonthTotal:  formatDollars(view.MonthTotal.Cents),
		OverLimit:   view.OverLimit,
		HasPercent:  view.PercentKnown && view.OverLimit,
		Recent:      toExpenseRows(view.Recent),
		Categories:  core.KnownCategories(),
		ScanEnabled: s.controller.ScanEnabled(),
	}
	if data.HasPercent {
		data.OverPercent = formatPercent(view.OverLimitPercent)
	}

	var maxCents int64
	for _, p := range view.Week {
		if p.Amount.Cents > maxCents {
			maxCents = p.Amount.Cents
		}
	}
	for _, p := range view.Week {
		width := 0
		if maxCents > 0 && p.Amount.Cents > 0 {
			width = int((p.Amount.Cents*100 + maxCents/2) / maxCents)
			if width < 2 {
				width = 2
			}
			if width > 100 {
				width = 100
			}
		}
		data.Week = append(data.Week, dayBar{
			Label:  p.Label,
			Amount: formatDollars(p.Amount.Cents),
			Width:  width,
			IsMax:  maxCents > 0 && p.Amount.Cents == maxCents,
		})
	}
	return data
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	if s.templates == nil {
		s.logger.ErrorContext(r.Context(), "Templates not loaded", log.FieldPath, r.URL.Path)
		http.Error(w, "templates not loaded", http.StatusInternalServerError)
		return
	}

	data := s.dashboardData(s.controller.Dashboard(r.Context()))
	if err := s.templates.ExecuteTemplate(w, "index.html", data); err != nil {
		s.logger.ErrorContext(r.Context(), "Index template execution failed", log.FieldError, err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// rangeCardFromQuery builds the custom-range summary. Both bounds must
// parse; otherwise no card is shown.
func (s *Server) rangeCardFromQuery(r *http.Request) *rangeCard {
	start, err := core.ParseDate(r.URL.Query().Get("start"))
	if err != nil {
		return nil
	}
	end, err := core.ParseDate(r.URL.Query().Get("end"))
	if err != nil {
		return nil
	}
	summary := s.controller.Range(r.Context(), start, end)
	return &rangeCard{
		Start: start.ISO(),
		End:   end.ISO(),
		Total: formatDollars(summary.Total.Cents),
		Count: summary.Count,
	}
}

// handleDashboard renders the dashboard partial.
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	data := s.dashboardData(s.controller.Dashboard(r.Context()))
	data.Range = s.rangeCardFromQuery(r)

	if s.templates == nil {
		_, _ = w.Write([]byte(`<section id="dashboard"><div class="placeholder">Today: ` + data.TodayTotal + `</div></section>`))
		return
	}
	if err := s.templates.ExecuteTemplate(w, "dashboard.html", data); err != nil {
		s.logger.ErrorContext(r.Context(), "Dashboard template execution failed", log.FieldError, err)
		_, _ = w.Write([]byte(`<section id="dashboard"><div class="error">Failed to render dashboard</div></section>`))
	}
}
