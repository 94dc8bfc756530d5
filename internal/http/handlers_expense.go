package http

import (
	"errors"
	"html/template"
	"net/http"
	"strings"

	"smartreceipt/internal/app"
	"smartreceipt/internal/core"
	"smartreceipt/internal/log"
)

func expenseInputFromForm(r *http.Request) app.ExpenseInput {
	return app.ExpenseInput{
		Amount:      strings.TrimSpace(r.Form.Get("amount")),
		Merchant:    sanitizeInput(r.Form.Get("merchant")),
		Category:    sanitizeInput(r.Form.Get("category")),
		Date:        strings.TrimSpace(r.Form.Get("date")),
		AiGenerated: r.Form.Get("ai_generated") == "true",
	}
}

// validationMessage maps domain validation errors to user-facing text.
func validationMessage(err error) (string, bool) {
	switch {
	case errors.Is(err, core.ErrInvalidAmount):
		return "Enter a valid amount (0 or more)", true
	case errors.Is(err, core.ErrEmptyMerchant):
		return "Merchant is required", true
	case errors.Is(err, core.ErrEmptyCategory):
		return "Category is required", true
	case errors.Is(err, core.ErrInvalidDate):
		return "Enter a valid date (YYYY-MM-DD)", true
	case errors.Is(err, core.ErrEmptyID):
		return "Missing expense ID", true
	}
	return "", false
}

func (s *Server) writeValidationError(w http.ResponseWriter, msg string) {
	w.WriteHeader(http.StatusUnprocessableEntity)
	_, _ = w.Write([]byte(`<div class="error">` + template.HTMLEscapeString(msg) + `</div>`))
}

func (s *Server) handleCreateExpense(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", "POST")
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if err := r.ParseForm(); err != nil {
		s.logger.ErrorContext(r.Context(), "Parse form error", log.FieldError, err)
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`<div class="error">Invalid request format</div>`))
		return
	}

	e, err := s.controller.AddExpense(r.Context(), expenseInputFromForm(r))
	if err != nil {
		if msg, ok := validationMessage(err); ok {
			s.writeValidationError(w, msg)
			return
		}
		s.logger.ErrorContext(r.Context(), "Expense create error", log.FieldError, err)
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`<div class="error">Failed to save expense</div>`))
		return
	}

	// Client swaps back to the refreshed dashboard
	w.Header().Set("HX-Trigger", `{"expense:created": {"id": "`+e.ID+`"}}`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`<div class="success">Saved ` +
		template.HTMLEscapeString(e.Merchant) + ` — ` +
		template.HTMLEscapeString(formatDollars(e.Amount.Cents)) + `</div>`))
}

func (s *Server) handleUpdateExpense(w http.ResponseWriter, r *http.Request) {
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

	id := strings.TrimSpace(r.Form.Get("id"))
	if id == "" {
		s.writeValidationError(w, "Missing expense ID")
		return
	}

	e, err := s.controller.UpdateExpense(r.Context(), id, expenseInputFromForm(r))
	if err != nil {
		if msg, ok := validationMessage(err); ok {
			s.writeValidationError(w, msg)
			return
		}
		s.logger.ErrorContext(r.Context(), "Expense update error",
			log.FieldExpenseID, id,
			log.FieldError, err)
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`<div class="error">Failed to update expense</div>`))
		return
	}

	w.Header().Set("HX-Trigger", `{"expense:updated": {"id": "`+e.ID+`"}}`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`<div class="success">Updated ` +
		template.HTMLEscapeString(e.Merchant) + `</div>`))
}

func (s *Server) handleDeleteExpense(w http.ResponseWriter, r *http.Request) {
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

	id := strings.TrimSpace(r.Form.Get("id"))
	if err := s.controller.DeleteExpense(r.Context(), id); err != nil {
		if msg, ok := validationMessage(err); ok {
			s.writeValidationError(w, msg)
			return
		}
		s.logger.ErrorContext(r.Context(), "Expense delete error",
			log.FieldExpenseID, id,
			log.FieldError, err)
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`<div class="error">Failed to delete expense</div>`))
		return
	}

	w.Header().Set("HX-Trigger", `{"expense:deleted": {"id": "`+id+`"}}`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`<div class="success">Expense removed</div>`))
}
