package runner

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"
)

// PistonExecutor runs code on a Piston code-execution service
type PistonExecutor struct {
	baseURL    string
	httpClient *http.Client
	runTimeout time.Duration
}

// PistonConfig holds configuration for the Piston executor
type PistonConfig struct {
	BaseURL string // default: https://emkc.org
	Timeout time.Duration
	// RunTimeout is sent as run_timeout when set. The public instance caps it at 3s.
	RunTimeout time.Duration
	HTTPClient *http.Client
}

// NewPistonExecutor creates a new Piston executor
func NewPistonExecutor(cfg PistonConfig) *PistonExecutor {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://emkc.org"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{
			// Compile and run time on the remote side plus transfer
			Timeout: cfg.Timeout + 15*time.Second,
			Transport: &http.Transport{
				DialContext: (&net.Dialer{
					Timeout:   10 * time.Second,
					KeepAlive: 30 * time.Second,
				}).DialContext,
				TLSHandshakeTimeout: 10 * time.Second,
				IdleConnTimeout:     90 * time.Second,
				MaxIdleConnsPerHost: 5,
			},
		}
	}

	return &PistonExecutor{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: cfg.HTTPClient,
		runTimeout: cfg.RunTimeout,
	}
}

func (e *PistonExecutor) Name() string {
	return "piston"
}

type pistonFile struct {
	Name    string `json:"name,omitempty"`
	Content string `json:"content"`
}

type pistonRequest struct {
	Language   string       `json:"language"`
	Version    string       `json:"version"`
	Files      []pistonFile `json:"files"`
	Stdin      string       `json:"stdin,omitempty"`
	RunTimeout int64        `json:"run_timeout,omitempty"`
}

type pistonStage struct {
	Stdout string  `json:"stdout"`
	Stderr string  `json:"stderr"`
	Output string  `json:"output"`
	Code   *int    `json:"code"`
	Signal *string `json:"signal"`
}

type pistonResponse struct {
	Language string       `json:"language"`
	Version  string       `json:"version"`
	Run      *pistonStage `json:"run"`
	Compile  *pistonStage `json:"compile"`
	Message  string       `json:"message"`
}

// Execute posts the job to /api/v2/piston/execute
func (e *PistonExecutor) Execute(ctx context.Context, job Job) (*Result, error) {
	fileName := ""
	if cfg, ok := job.Language.Config(); ok {
		fileName = cfg.FileName
	}

	body, err := json.Marshal(pistonRequest{
		Language:   job.Language.String(),
		Version:    job.Version,
		Files:      []pistonFile{{Name: fileName, Content: job.Code}},
		Stdin:      job.Stdin,
		RunTimeout: e.runTimeout.Milliseconds(),
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", e.baseURL+"/api/v2/piston/execute", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := e.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	duration := time.Since(start)

	var pr pistonResponse
	if err := json.Unmarshal(data, &pr); err != nil {
		return nil, fmt.Errorf("decode response (status %d): %w", resp.StatusCode, err)
	}

	if resp.StatusCode != http.StatusOK {
		msg := pr.Message
		if msg == "" {
			msg = strings.TrimSpace(string(data))
		}
		return nil, fmt.Errorf("piston error (status %d): %s", resp.StatusCode, msg)
	}

	stage := pr.Run
	// A failed compile stage comes back without a run stage
	if stage == nil && pr.Compile != nil && pr.Compile.Code != nil && *pr.Compile.Code != 0 {
		stage = pr.Compile
	}
	if stage == nil {
		if pr.Message != "" {
			return nil, fmt.Errorf("%w: %s", ErrNoRunResult, pr.Message)
		}
		return nil, ErrNoRunResult
	}

	result := &Result{
		Language: pr.Language,
		Version:  pr.Version,
		Output:   stage.Output,
		Stdout:   stage.Stdout,
		Stderr:   stage.Stderr,
		Code:     -1,
		Duration: duration,
	}
	if result.Language == "" {
		result.Language = job.Language.String()
	}
	if result.Version == "" {
		result.Version = job.Version
	}
	if stage.Code != nil {
		result.Code = *stage.Code
	}
	if stage.Signal != nil {
		result.Signal = *stage.Signal
	}

	return result, nil
}
