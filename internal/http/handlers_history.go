package http

import (
	"net/http"
	"strings"

	"smartreceipt/internal/core"
	"smartreceipt/internal/log"
)

type historyData struct {
	Items  []expenseRow
	Count  int
	Total  string
	Search string
	Start  string
	End    string
}

// filterFromQuery builds the history filter. The date window applies
// only when both bounds parse; a half-open range is ignored, matching
// the UI which submits both fields together.
func filterFromQuery(r *http.Request) core.Filter {
	f := core.Filter{
		Search: strings.TrimSpace(r.URL.Query().Get("q")),
	}
	start, errStart := core.ParseDate(strings.TrimSpace(r.URL.Query().Get("start")))
	end, errEnd := core.ParseDate(strings.TrimSpace(r.URL.Query().Get("end")))
	if errStart == nil && errEnd == nil {
		f.Start = start
		f.End = end
	}
	return f
}

// handleHistory renders the filtered expense log partial.
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")

	f := filterFromQuery(r)
	view := s.controller.History(r.Context(), f)

	data := historyData{
		Items:  toExpenseRows(view.Items),
		Count:  view.Count,
		Total:  formatDollars(view.Total.Cents),
		Search: f.Search,
		Start:  strings.TrimSpace(r.URL.Query().Get("start")),
		End:    strings.TrimSpace(r.URL.Query().Get("end")),
	}

	if s.templates == nil {
		_, _ = w.Write([]byte(`<section id="history"><div class="placeholder">` + data.Total + `</div></section>`))
		return
	}
	if err := s.templates.ExecuteTemplate(w, "history.html", data); err != nil {
		s.logger.ErrorContext(r.Context(), "History template execution failed", log.FieldError, err)
		_, _ = w.Write([]byte(`<section id="history"><div class="error">Failed to render history</div></section>`))
	}
}
