package scan

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"smartreceipt/internal/log"
)

const receiptPrompt = `Extract information from this receipt. Focus on amount, merchant name, category, and date. If data is missing, make a best guess or use today's date.
Respond ONLY with a JSON object of the form:
{"amount": 12.34, "merchant": "Store Name", "category": "Food & Dining", "date": "2024-05-20"}
The date must be an ISO YYYY-MM-DD string and the amount a plain number.`

type geminiPart struct {
	Text       string            `json:"text,omitempty"`
	InlineData *geminiInlineData `json:"inline_data,omitempty"`
}

type geminiInlineData struct {
	MimeType string `json:"mime_type"`
	Data     string `json:"data"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiGenerationConfig struct {
	ResponseMIMEType string `json:"responseMimeType,omitempty"`
}

type geminiRequest struct {
	Contents         []geminiContent         `json:"contents"`
	GenerationConfig *geminiGenerationConfig `json:"generationConfig,omitempty"`
}

type geminiResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

// GeminiScanner calls the Google Generative Language API over plain
// HTTP. baseURL is overridable for tests.
type GeminiScanner struct {
	apiKey  string
	model   string
	baseURL string
	client  *http.Client
	logger  *log.Logger
}

func NewGeminiScanner(apiKey, model, baseURL string, logger *log.Logger) *GeminiScanner {
	return &GeminiScanner{
		apiKey:  apiKey,
		model:   model,
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: 30 * time.Second},
		logger:  logger.WithComponent(log.ComponentScan),
	}
}

func (g *GeminiScanner) ScanReceipt(ctx context.Context, image []byte, mimeType string) (Guess, error) {
	if len(image) == 0 {
		return Guess{}, fmt.Errorf("%w: empty image", ErrScanFailed)
	}
	if mimeType == "" {
		mimeType = "image/jpeg"
	}

	payload := geminiRequest{
		Contents: []geminiContent{{
			Parts: []geminiPart{
				{InlineData: &geminiInlineData{
					MimeType: mimeType,
					Data:     base64.StdEncoding.EncodeToString(image),
				}},
				{Text: receiptPrompt},
			},
		}},
		GenerationConfig: &geminiGenerationConfig{
			ResponseMIMEType: "application/json",
		},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return Guess{}, fmt.Errorf("marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/v1beta/models/%s:generateContent?key=%s", g.baseURL, g.model, g.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return Guess{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return Guess{}, fmt.Errorf("%w: %v", ErrScanFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		g.logger.WarnContext(ctx, "Gemini API returned non-OK status",
			log.FieldStatusCode, resp.StatusCode)
		return Guess{}, fmt.Errorf("%w: status %s: %s", ErrScanFailed, resp.Status, string(respBody))
	}

	var apiResp geminiResponse
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return Guess{}, fmt.Errorf("%w: decode response: %v", ErrScanFailed, err)
	}
	if len(apiResp.Candidates) == 0 || len(apiResp.Candidates[0].Content.Parts) == 0 {
		return Guess{}, fmt.Errorf("%w: empty response", ErrScanFailed)
	}

	text := apiResp.Candidates[0].Content.Parts[0].Text
	var guess Guess
	if err := json.Unmarshal([]byte(text), &guess); err != nil {
		g.logger.WarnContext(ctx, "Gemini response was not valid JSON", log.FieldError, err)
		return Guess{}, fmt.Errorf("%w: unparseable model output", ErrScanFailed)
	}

	g.logger.InfoContext(ctx, "Receipt scanned",
		log.FieldMerchant, guess.Merchant,
		log.FieldCategory, guess.Category)
	return guess, nil
}
