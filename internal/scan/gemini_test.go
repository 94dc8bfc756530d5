package scan

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"smartreceipt/internal/log"
)

func testLogger() *log.Logger {
	return log.New(log.Config{
		Handler: slog.NewTextHandler(io.Discard, nil),
	})
}

func geminiReply(text string) string {
	resp := map[string]any{
		"candidates": []map[string]any{{
			"content": map[string]any{
				"parts": []map[string]any{{"text": text}},
			},
		}},
	}
	b, _ := json.Marshal(resp)
	return string(b)
}

func TestScanReceipt(t *testing.T) {
	image := []byte("fake-jpeg-bytes")

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		if want := "/v1beta/models/gemini-1.5-flash-latest:generateContent"; r.URL.Path != want {
			t.Errorf("path = %s, want %s", r.URL.Path, want)
		}
		if got := r.URL.Query().Get("key"); got != "test-key" {
			t.Errorf("key = %s, want test-key", got)
		}

		var req geminiRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if len(req.Contents) != 1 || len(req.Contents[0].Parts) != 2 {
			t.Fatalf("unexpected request shape: %+v", req)
		}
		inline := req.Contents[0].Parts[0].InlineData
		if inline == nil || inline.MimeType != "image/png" {
			t.Errorf("inline data = %+v, want image/png", inline)
		}
		if decoded, _ := base64.StdEncoding.DecodeString(inline.Data); string(decoded) != string(image) {
			t.Error("image bytes not carried through")
		}
		if !strings.Contains(req.Contents[0].Parts[1].Text, "receipt") {
			t.Error("prompt missing from request")
		}
		if req.GenerationConfig == nil || req.GenerationConfig.ResponseMIMEType != "application/json" {
			t.Errorf("generation config = %+v", req.GenerationConfig)
		}

		w.Write([]byte(geminiReply(`{"amount": 23.45, "merchant": "Corner Cafe", "category": "Food & Dining", "date": "2024-05-20"}`)))
	}))
	defer srv.Close()

	scanner := NewGeminiScanner("test-key", "gemini-1.5-flash-latest", srv.URL, testLogger())
	guess, err := scanner.ScanReceipt(context.Background(), image, "image/png")
	if err != nil {
		t.Fatalf("ScanReceipt() error: %v", err)
	}
	if guess.Amount != 23.45 || guess.Merchant != "Corner Cafe" {
		t.Errorf("guess = %+v", guess)
	}
	if guess.Category != "Food & Dining" || guess.Date != "2024-05-20" {
		t.Errorf("guess = %+v", guess)
	}
}

func TestScanReceiptUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error": {"message": "quota exceeded"}}`, http.StatusTooManyRequests)
	}))
	defer srv.Close()

	scanner := NewGeminiScanner("k", "m", srv.URL, testLogger())
	_, err := scanner.ScanReceipt(context.Background(), []byte("img"), "image/jpeg")
	if !errors.Is(err, ErrScanFailed) {
		t.Errorf("error = %v, want ErrScanFailed", err)
	}
}

func TestScanReceiptMalformedModelOutput(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(geminiReply("sorry, I can't read this")))
	}))
	defer srv.Close()

	scanner := NewGeminiScanner("k", "m", srv.URL, testLogger())
	_, err := scanner.ScanReceipt(context.Background(), []byte("img"), "image/jpeg")
	if !errors.Is(err, ErrScanFailed) {
		t.Errorf("error = %v, want ErrScanFailed", err)
	}
}

func TestScanReceiptEmptyCandidates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"candidates": []}`))
	}))
	defer srv.Close()

	scanner := NewGeminiScanner("k", "m", srv.URL, testLogger())
	_, err := scanner.ScanReceipt(context.Background(), []byte("img"), "image/jpeg")
	if !errors.Is(err, ErrScanFailed) {
		t.Errorf("error = %v, want ErrScanFailed", err)
	}
}

func TestScanReceiptEmptyImage(t *testing.T) {
	scanner := NewGeminiScanner("k", "m", "http://unused", testLogger())
	_, err := scanner.ScanReceipt(context.Background(), nil, "image/jpeg")
	if !errors.Is(err, ErrScanFailed) {
		t.Errorf("error = %v, want ErrScanFailed", err)
	}
}
