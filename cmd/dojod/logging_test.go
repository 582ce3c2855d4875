package main

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"DEBUG", slog.LevelDebug},
		{"warn", slog.LevelWarn},
		{"error", slog.LevelError},
		{"info", slog.LevelInfo},
		{"", slog.LevelInfo},
		{"verbose", slog.LevelInfo},
	}

	for _, tt := range tests {
		if got := parseLogLevel(tt.in); got != tt.want {
			t.Errorf("parseLogLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestMultiHandler_RespectsEachLevel(t *testing.T) {
	var debugBuf, warnBuf bytes.Buffer
	h := &multiHandler{handlers: []slog.Handler{
		slog.NewJSONHandler(&debugBuf, &slog.HandlerOptions{Level: slog.LevelDebug}),
		slog.NewTextHandler(&warnBuf, &slog.HandlerOptions{Level: slog.LevelWarn}),
	}}
	logger := slog.New(h).With("component", "test")

	logger.Debug("details")
	logger.Warn("careful")

	if !strings.Contains(debugBuf.String(), "details") || !strings.Contains(debugBuf.String(), "careful") {
		t.Errorf("debug handler output = %q", debugBuf.String())
	}
	if strings.Contains(warnBuf.String(), "details") {
		t.Errorf("warn handler should drop debug records: %q", warnBuf.String())
	}
	if !strings.Contains(warnBuf.String(), "component=test") {
		t.Errorf("WithAttrs not applied: %q", warnBuf.String())
	}
	if h.Enabled(context.Background(), slog.LevelDebug-1) {
		t.Error("Enabled() should be false below every handler's level")
	}
}

func TestSetupLogging_File(t *testing.T) {
	prev := slog.Default()
	defer slog.SetDefault(prev)

	path := filepath.Join(t.TempDir(), "dojod.log")
	f, err := setupLogging("text", path, slog.LevelInfo)
	if err != nil {
		t.Fatalf("setupLogging() error = %v", err)
	}
	slog.Info("hello file")
	f.Close()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	if !strings.Contains(string(data), `"msg":"hello file"`) {
		t.Errorf("log file = %q, want a JSON record", data)
	}
}

func TestSetupLogging_BadPath(t *testing.T) {
	prev := slog.Default()
	defer slog.SetDefault(prev)

	if _, err := setupLogging("json", filepath.Join(t.TempDir(), "missing", "x.log"), slog.LevelInfo); err == nil {
		t.Error("setupLogging() should fail for an unwritable path")
	}
}
