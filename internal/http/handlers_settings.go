package http

import (
	"html/template"
	"net/http"
	"strings"

	"smartreceipt/internal/log"
)

type settingsData struct {
	DailyLimit string
}

// handleSettingsPartial renders the settings form partial.
func (s *Server) handleSettingsPartial(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")

	settings := s.controller.Settings(r.Context())
	data := settingsData{DailyLimit: settings.DailyLimit.String()}

	if s.templates == nil {
		_, _ = w.Write([]byte(`<section id="settings"><div class="placeholder">Limit: ` + data.DailyLimit + `</div></section>`))
		return
	}
	if err := s.templates.ExecuteTemplate(w, "settings.html", data); err != nil {
		s.logger.ErrorContext(r.Context(), "Settings template execution failed", log.FieldError, err)
		_, _ = w.Write([]byte(`<section id="settings"><div class="error">Failed to render settings</div></section>`))
	}
}

func (s *Server) handleSaveSettings(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", "POST")
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if err := r.ParseForm(); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`<div class="error">Invalid request format</div>`))
		return
	}

	raw := strings.TrimSpace(r.Form.Get("daily_limit"))
	settings, err := s.controller.UpdateDailyLimit(r.Context(), raw)
	if err != nil {
		if msg, ok := validationMessage(err); ok {
			s.writeValidationError(w, msg)
			return
		}
		s.logger.ErrorContext(r.Context(), "Settings save error", log.FieldError, err)
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`<div class="error">Failed to save settings</div>`))
		return
	}

	w.Header().Set("HX-Trigger", `{"settings:updated": {}}`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`<div class="success">Daily budget set to ` +
		template.HTMLEscapeString(formatDollars(settings.DailyLimit.Cents)) + `</div>`))
}
