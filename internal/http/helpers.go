package http

import (
	"fmt"
	"net/http"
	"strings"

	"smartreceipt/internal/core"
)

// extractClientIP resolves the client address, honoring proxy headers.
func extractClientIP(r *http.Request) string {
	if ip := r.Header.Get("X-Forwarded-For"); ip != "" {
		// First hop in the chain
		if i := strings.IndexByte(ip, ','); i >= 0 {
			ip = ip[:i]
		}
		return strings.TrimSpace(ip)
	}
	if ip := r.Header.Get("X-Real-IP"); ip != "" {
		return ip
	}
	return r.RemoteAddr
}

// sanitizeInput removes control characters and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}

// formatPercent renders an over-limit percentage as "20%".
func formatPercent(p float64) string {
	return fmt.Sprintf("%.0f%%", p)
}

// formatDollars renders cents as "$12.34" for templates.
func formatDollars(cents int64) string {
	m := core.Money{Cents: cents}
	if cents < 0 {
		return "-$" + core.Money{Cents: -cents}.String()
	}
	return "$" + m.String()
}
