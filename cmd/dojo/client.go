package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"
)

// client talks to the dojo daemon
type client struct {
	baseURL    string
	httpClient *http.Client
}

func newClient() *client {
	addr := os.Getenv("DOJO_ADDR")
	if addr == "" {
		addr = defaultDaemonAddr
	}
	return &client{
		baseURL:    strings.TrimRight(addr, "/"),
		httpClient: &http.Client{Timeout: 2 * time.Minute},
	}
}

// apiError is a non-2xx daemon response
type apiError struct {
	Status  int
	Message string
	Details string
}

func (e *apiError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s (%d): %s", e.Message, e.Status, e.Details)
	}
	return fmt.Sprintf("%s (%d)", e.Message, e.Status)
}

func (c *client) get(path string, query url.Values, out any) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequest(http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	return c.do(req, out)
}

func (c *client) post(path string, body, out any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}
	req, err := http.NewRequest(http.MethodPost, c.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

func (c *client) do(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		var urlErr *url.Error
		if errors.As(err, &urlErr) && !urlErr.Timeout() {
			return fmt.Errorf("daemon not reachable at %s (is dojod running?): %w", c.baseURL, err)
		}
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var e struct {
			Error   string `json:"error"`
			Details string `json:"details"`
		}
		apiErr := &apiError{Status: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
		if json.Unmarshal(body, &e) == nil && e.Error != "" {
			apiErr.Message = e.Error
			apiErr.Details = e.Details
		}
		return apiErr
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("parse response: %w", err)
	}
	return nil
}
