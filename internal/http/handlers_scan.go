package http

import (
	"errors"
	"io"
	"net/http"

	"smartreceipt/internal/app"
	"smartreceipt/internal/core"
	"smartreceipt/internal/log"
)

// Receipt uploads are capped at 8 MB.
const maxReceiptBytes = 8 << 20

type scanResultData struct {
	Amount      string
	Merchant    string
	Category    string
	Date        string
	Categories  []string
	KnownChoice bool
}

// handleScanReceipt accepts a multipart receipt image and renders the
// add-expense form prefilled with the scanner's guess.
func (s *Server) handleScanReceipt(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", "POST")
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if !s.controller.ScanEnabled() {
		w.WriteHeader(http.StatusNotImplemented)
		_, _ = w.Write([]byte(`<div class="error">Receipt scanning is not configured</div>`))
		return
	}

	if err := r.ParseMultipartForm(maxReceiptBytes); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`<div class="error">Invalid upload</div>`))
		return
	}
	file, header, err := r.FormFile("receipt")
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`<div class="error">Attach a receipt image</div>`))
		return
	}
	defer file.Close()

	image, err := io.ReadAll(io.LimitReader(file, maxReceiptBytes))
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`<div class="error">Failed to read upload</div>`))
		return
	}
	mimeType := header.Header.Get("Content-Type")

	guess, err := s.controller.ScanReceipt(r.Context(), image, mimeType)
	if err != nil {
		if errors.Is(err, app.ErrScanDisabled) {
			w.WriteHeader(http.StatusNotImplemented)
			_, _ = w.Write([]byte(`<div class="error">Receipt scanning is not configured</div>`))
			return
		}
		s.logger.ErrorContext(r.Context(), "Receipt scan error", log.FieldError, err)
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte(`<div class="error">Could not read the receipt. Try again or enter the expense manually.</div>`))
		return
	}

	// The model occasionally returns a negative amount; prefill zero
	// instead of a value the form would reject.
	amount := guess.Amount
	if amount < 0 {
		amount = 0
	}

	data := scanResultData{
		Amount:      core.Money{Cents: int64(amount*100 + 0.5)}.String(),
		Merchant:    guess.Merchant,
		Category:    guess.Category,
		Date:        guess.Date,
		Categories:  core.KnownCategories(),
		KnownChoice: core.IsKnownCategory(guess.Category),
	}
	// Fall back to today when the model returns an unusable date
	if _, err := core.ParseDate(data.Date); err != nil {
		data.Date = core.Today().ISO()
	}

	if s.templates == nil {
		_, _ = w.Write([]byte(`<div class="placeholder">` + data.Merchant + ` ` + data.Amount + `</div>`))
		return
	}
	if err := s.templates.ExecuteTemplate(w, "scan_result.html", data); err != nil {
		s.logger.ErrorContext(r.Context(), "Scan result template execution failed", log.FieldError, err)
		_, _ = w.Write([]byte(`<div class="error">Failed to render scan result</div>`))
	}
}
