package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

// GeminiClient calls the Gemini generateContent endpoint
type GeminiClient struct {
	baseURL    string
	model      string
	httpClient *http.Client
}

// GeminiConfig holds configuration for the Gemini client
type GeminiConfig struct {
	BaseURL    string // default: https://generativelanguage.googleapis.com
	Model      string // default: gemini-2.5-flash
	HTTPClient *http.Client
}

// NewGeminiClient creates a new Gemini client
func NewGeminiClient(cfg GeminiConfig) *GeminiClient {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://generativelanguage.googleapis.com"
	}
	if cfg.Model == "" {
		cfg.Model = "gemini-2.5-flash"
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = newHTTPClient()
	}

	return &GeminiClient{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		model:      cfg.Model,
		httpClient: cfg.HTTPClient,
	}
}

func (c *GeminiClient) Name() string {
	return "gemini"
}

func (c *GeminiClient) Model() string {
	return c.model
}

type geminiRequest struct {
	Contents []Content `json:"contents"`
}

// Content is one turn of a generateContent exchange
type Content struct {
	Role  string `json:"role,omitempty"`
	Parts []Part `json:"parts"`
}

// Part is a single piece of content. Only text parts are used.
type Part struct {
	Text string `json:"text,omitempty"`
}

// Candidate is one generated answer
type Candidate struct {
	Content      Content `json:"content"`
	FinishReason string  `json:"finishReason,omitempty"`
}

// APIError is the error object the provider returns in place of candidates
type APIError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Status  string `json:"status"`
}

func (e *APIError) Error() string {
	if e.Status != "" {
		return fmt.Sprintf("gemini error %d (%s): %s", e.Code, e.Status, e.Message)
	}
	return fmt.Sprintf("gemini error %d: %s", e.Code, e.Message)
}

// GenerateContentResponse is the decoded provider payload
type GenerateContentResponse struct {
	Candidates []Candidate `json:"candidates"`
	Error      *APIError   `json:"error,omitempty"`
}

// UnmarshalJSON treats any non-empty error value as a provider error. Payloads
// that do not fit APIError keep their raw text as the message.
func (r *GenerateContentResponse) UnmarshalJSON(data []byte) error {
	var raw struct {
		Candidates []Candidate     `json:"candidates"`
		Error      json.RawMessage `json:"error"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	r.Candidates = raw.Candidates
	r.Error = parseAPIError(raw.Error)
	return nil
}

func parseAPIError(raw json.RawMessage) *APIError {
	switch strings.TrimSpace(string(raw)) {
	case "", "null", "false", "0", `""`:
		return nil
	}

	var apiErr APIError
	if err := json.Unmarshal(raw, &apiErr); err == nil {
		return &apiErr
	}
	var msg string
	if err := json.Unmarshal(raw, &msg); err == nil {
		return &APIError{Message: msg}
	}
	return &APIError{Message: string(raw)}
}

// FirstText returns the first candidate's first text part.
// ok is false when there is no candidate, no part, or the text is empty.
func (r *GenerateContentResponse) FirstText() (string, bool) {
	if r == nil || len(r.Candidates) == 0 {
		return "", false
	}
	parts := r.Candidates[0].Content.Parts
	if len(parts) == 0 || parts[0].Text == "" {
		return "", false
	}
	return parts[0].Text, true
}

// GenerateContent sends prompt as the sole content part, authenticated with apiKey.
// The body is decoded whatever the HTTP status, so a provider error payload is
// returned in the response rather than as an error. Transport and decode
// failures are returned as errors.
func (c *GeminiClient) GenerateContent(ctx context.Context, apiKey, prompt string) (*GenerateContentResponse, error) {
	body, err := json.Marshal(geminiRequest{
		Contents: []Content{{Parts: []Part{{Text: prompt}}}},
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/v1beta/models/%s:generateContent?key=%s",
		c.baseURL, url.PathEscape(c.model), url.QueryEscape(apiKey))

	httpReq, err := http.NewRequestWithContext(ctx, "POST", endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		// url.Error embeds the request URL, and with it the key
		var urlErr *url.Error
		if errors.As(err, &urlErr) {
			err = urlErr.Err
		}
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	var out GenerateContentResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode response (status %d): %w", resp.StatusCode, err)
	}

	// Non-2xx without an error object still counts as a provider error
	if out.Error == nil && resp.StatusCode >= 400 {
		out.Error = &APIError{Code: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
	}

	return &out, nil
}
