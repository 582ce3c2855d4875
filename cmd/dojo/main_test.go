package main

import (
	"encoding/json"
	"errors"
	"flag"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/felixgeelhaar/codedojo/internal/tutor"
)

func testClient(t *testing.T, h http.HandlerFunc) *client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return &client{baseURL: srv.URL, httpClient: srv.Client()}
}

func TestNewClient_Addr(t *testing.T) {
	t.Setenv("DOJO_ADDR", "")
	if c := newClient(); c.baseURL != defaultDaemonAddr {
		t.Errorf("baseURL = %q, want %q", c.baseURL, defaultDaemonAddr)
	}

	t.Setenv("DOJO_ADDR", "http://dojo.local:9000/")
	if c := newClient(); c.baseURL != "http://dojo.local:9000" {
		t.Errorf("baseURL = %q, want trailing slash trimmed", c.baseURL)
	}
}

func TestClient_Get(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/topics" || r.URL.Query().Get("include") != "questions" {
			t.Errorf("request = %s", r.URL)
		}
		w.Write([]byte(`{"topics":[{"id":1,"title":"Loops"}]}`))
	})

	var resp struct {
		Topics []struct {
			Title string `json:"title"`
		} `json:"topics"`
	}
	if err := c.get("/v1/topics", map[string][]string{"include": {"questions"}}, &resp); err != nil {
		t.Fatalf("get() error = %v", err)
	}
	if len(resp.Topics) != 1 || resp.Topics[0].Title != "Loops" {
		t.Errorf("topics = %+v", resp.Topics)
	}
}

func TestClient_ErrorResponses(t *testing.T) {
	tests := []struct {
		name        string
		status      int
		body        string
		wantMessage string
		wantDetails string
	}{
		{"daemon error body", http.StatusNotFound, `{"error":"question not found","status":404}`, "question not found", ""},
		{"with details", http.StatusBadRequest, `{"error":"invalid execution request","details":"empty code"}`, "invalid execution request", "empty code"},
		{"tutor error body", http.StatusInternalServerError, `{"error":"missing context"}`, "missing context", ""},
		{"not json", http.StatusBadGateway, `<html></html>`, "Bad Gateway", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			})

			err := c.get("/x", nil, nil)
			var apiErr *apiError
			if !errors.As(err, &apiErr) {
				t.Fatalf("error = %v, want *apiError", err)
			}
			if apiErr.Status != tt.status || apiErr.Message != tt.wantMessage || apiErr.Details != tt.wantDetails {
				t.Errorf("apiError = %+v", apiErr)
			}
		})
	}
}

func TestClient_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	addr := srv.URL
	srv.Close()

	c := &client{baseURL: addr, httpClient: http.DefaultClient}
	err := c.get("/v1/health", nil, nil)
	if err == nil || !strings.Contains(err.Error(), "is dojod running?") {
		t.Errorf("error = %v, want daemon hint", err)
	}
}

func TestParseArgs_Interleaved(t *testing.T) {
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	lang := fs.String("language", "", "")
	reveal := fs.Bool("reveal", false, "")

	positional, err := parseArgs(fs, []string{"3", "--language", "go", "extra", "--reveal"})
	if err != nil {
		t.Fatalf("parseArgs() error = %v", err)
	}
	if len(positional) != 2 || positional[0] != "3" || positional[1] != "extra" {
		t.Errorf("positional = %v", positional)
	}
	if *lang != "go" || !*reveal {
		t.Errorf("language = %q, reveal = %v", *lang, *reveal)
	}

	if _, err := parseArgs(flag.NewFlagSet("test", flag.ContinueOnError), []string{"--nope"}); err == nil {
		t.Error("parseArgs() should reject unknown flags")
	}
}

func TestLanguageFromPath(t *testing.T) {
	tests := map[string]string{
		"solve.py":      "python",
		"dir/Main.java": "java",
		"a.CPP":         "cpp",
		"main.rs":       "rust",
		"index.mjs":     "javascript",
		"notes.txt":     "",
		"Makefile":      "",
	}
	for path, want := range tests {
		if got := languageFromPath(path); got != want {
			t.Errorf("languageFromPath(%q) = %q, want %q", path, got, want)
		}
	}
}

func TestRunSummary(t *testing.T) {
	var ok runResult
	ok.Language, ok.Version, ok.Backend = "python", "3.10.0", "piston"
	ok.Run.DurationMS = 42
	if got := runSummary(ok); !strings.HasSuffix(got, "Exit: ✓") || !strings.Contains(got, "via piston in 42ms") {
		t.Errorf("runSummary() = %q", got)
	}

	failed := ok
	failed.Run.Code = 137
	failed.Run.Signal = "SIGKILL"
	if got := runSummary(failed); !strings.HasSuffix(got, "Exit: ✗ (code 137) signal SIGKILL") {
		t.Errorf("runSummary() = %q", got)
	}
}

func TestCmdAsk_BuildsRequest(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "solve.py")
	if err := os.WriteFile(file, []byte("print(1)\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	var got tutor.Request
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v1/questions/1":
			w.Write([]byte(`{"id":1,"title":"Sum of Digits","problem_statement":"Add the digits."}`))
		case "/v1/tutor":
			if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
				t.Errorf("decode: %v", err)
			}
			w.Write([]byte(`{"answer":"Try modulo 10."}`))
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
			http.NotFound(w, r)
		}
	})

	if err := cmdAsk(c, []string{"--question", "1", "--file", file, "why", "wrong?"}); err != nil {
		t.Fatalf("cmdAsk() error = %v", err)
	}

	if got.Query != "why wrong?" {
		t.Errorf("query = %q", got.Query)
	}
	if got.Context == nil {
		t.Fatal("context should be set")
	}
	want := tutor.Context{Title: "Sum of Digits", Problem: "Add the digits.", UserCode: "print(1)\n", Language: "python"}
	if *got.Context != want {
		t.Errorf("context = %+v, want %+v", *got.Context, want)
	}
}

func TestCmdAsk_RequiresQuery(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected")
	})
	if err := cmdAsk(c, nil); err == nil {
		t.Error("cmdAsk() should require a question")
	}
}

func TestCmdRun(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "main.go")
	if err := os.WriteFile(file, []byte("package main"), 0o644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name    string
		code    int
		wantErr bool
	}{
		{"success", 0, false},
		{"non-zero exit", 1, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
				var req struct {
					Language string `json:"language"`
					Code     string `json:"code"`
				}
				json.NewDecoder(r.Body).Decode(&req)
				if req.Language != "go" || req.Code != "package main" {
					t.Errorf("request = %+v", req)
				}
				json.NewEncoder(w).Encode(map[string]any{
					"language": "go",
					"run":      map[string]any{"output": "hi\n", "code": tt.code},
				})
			})

			err := cmdRun(c, []string{file})
			if (err != nil) != tt.wantErr {
				t.Errorf("cmdRun() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestCmdRun_UnknownExtension(t *testing.T) {
	file := filepath.Join(t.TempDir(), "notes.txt")
	if err := os.WriteFile(file, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected")
	})
	if err := cmdRun(c, []string{file}); err == nil || !strings.Contains(err.Error(), "--language") {
		t.Errorf("cmdRun() error = %v", err)
	}
}
