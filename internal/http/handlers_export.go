package http

import (
	"net/http"
	"time"

	"smartreceipt/internal/export"
	"smartreceipt/internal/log"
)

// handleExportXLSX streams the full (filtered) history as a workbook.
func (s *Server) handleExportXLSX(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", "GET")
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	view := s.controller.History(r.Context(), filterFromQuery(r))

	filename := "expenses-" + time.Now().UTC().Format("2006-01-02") + ".xlsx"
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)

	if err := export.WriteXLSX(w, view.Items); err != nil {
		s.logger.ErrorContext(r.Context(), "XLSX export failed", log.FieldError, err)
		// Headers may already be out; nothing more to do
	}
}
