package daemon

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/felixgeelhaar/fortify/ratelimit"
	"github.com/google/uuid"
)

func TestGetCorrelationID(t *testing.T) {
	tests := []struct {
		name string
		ctx  context.Context
		want string
	}{
		{"set", context.WithValue(context.Background(), CorrelationIDKey, "abc-123"), "abc-123"},
		{"empty context", context.Background(), ""},
		{"wrong type", context.WithValue(context.Background(), CorrelationIDKey, 12345), ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := GetCorrelationID(tt.ctx); got != tt.want {
				t.Errorf("GetCorrelationID() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestCorrelationIDMiddleware_GeneratesID(t *testing.T) {
	var capturedID string
	handler := correlationIDMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		capturedID = GetCorrelationID(r.Context())
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/health", nil))

	if _, err := uuid.Parse(capturedID); err != nil {
		t.Errorf("generated ID %q is not a valid UUID: %v", capturedID, err)
	}
	if got := rec.Header().Get(CorrelationIDHeader); got != capturedID {
		t.Errorf("response header ID %q != captured ID %q", got, capturedID)
	}
}

func TestCorrelationIDMiddleware_PropagatesExistingID(t *testing.T) {
	var capturedID string
	handler := correlationIDMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		capturedID = GetCorrelationID(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/v1/health", nil)
	req.Header.Set(CorrelationIDHeader, "existing-id")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if capturedID != "existing-id" {
		t.Errorf("captured ID = %q, want existing-id", capturedID)
	}
	if got := rec.Header().Get(CorrelationIDHeader); got != "existing-id" {
		t.Errorf("response header ID = %q, want existing-id", got)
	}
}

func TestCORSMiddleware(t *testing.T) {
	var called bool
	handler := corsMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		w.WriteHeader(http.StatusTeapot)
	}))

	t.Run("preflight", func(t *testing.T) {
		called = false
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodOptions, "/v1/topics", nil))

		if rec.Code != http.StatusOK {
			t.Errorf("status = %d, want 200", rec.Code)
		}
		if rec.Body.Len() != 0 {
			t.Errorf("body = %q, want empty", rec.Body.String())
		}
		if called {
			t.Error("preflight should not reach the handler")
		}
		if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "*" {
			t.Errorf("Access-Control-Allow-Origin = %q", got)
		}
		if got := rec.Header().Get("Access-Control-Allow-Headers"); got != corsAllowHeaders {
			t.Errorf("Access-Control-Allow-Headers = %q", got)
		}
	})

	t.Run("request", func(t *testing.T) {
		called = false
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/topics", nil))

		if !called || rec.Code != http.StatusTeapot {
			t.Errorf("called = %v, status = %d", called, rec.Code)
		}
		if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "*" {
			t.Errorf("Access-Control-Allow-Origin = %q", got)
		}
	})
}

func TestCORSMiddleware_SelfCORSPath(t *testing.T) {
	var gotMethod string
	handler := corsMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		w.Header().Set("Access-Control-Allow-Headers", "content-type")
		w.WriteHeader(http.StatusNoContent)
	}), "/v1/tutor")

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodOptions, "/v1/tutor", nil))

	if gotMethod != http.MethodOptions {
		t.Fatalf("preflight on a self-CORS path should reach the handler, got method %q", gotMethod)
	}
	if rec.Code != http.StatusNoContent {
		t.Errorf("status = %d, want the handler's 204", rec.Code)
	}
	if got := rec.Header().Get("Access-Control-Allow-Headers"); got != "content-type" {
		t.Errorf("Access-Control-Allow-Headers = %q, want the handler's value", got)
	}
	if got := rec.Header().Get("Access-Control-Allow-Methods"); got != "" {
		t.Errorf("Access-Control-Allow-Methods = %q, want unset", got)
	}

	rec = httptest.NewRecorder()
	gotMethod = ""
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodOptions, "/v1/topics", nil))
	if gotMethod != "" || rec.Code != http.StatusOK {
		t.Errorf("other paths keep the middleware preflight: method %q status %d", gotMethod, rec.Code)
	}
}

func TestRateLimitMiddleware(t *testing.T) {
	limiter := ratelimit.New(&ratelimit.Config{Rate: 2, Burst: 2, Interval: time.Hour})
	defer limiter.Close()

	handler := rateLimitMiddleware(limiter, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	request := func(ip, method string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(method, "/v1/execute", nil)
		req.Header.Set("X-Forwarded-For", ip)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec
	}

	for i := 0; i < 2; i++ {
		if rec := request("10.0.0.1", http.MethodPost); rec.Code != http.StatusOK {
			t.Fatalf("request %d status = %d, want 200", i+1, rec.Code)
		}
	}

	rec := request("10.0.0.1", http.MethodPost)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", rec.Code)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Error("Retry-After should be set")
	}
	var body map[string]any
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["status"] != float64(http.StatusTooManyRequests) {
		t.Errorf("body = %v", body)
	}

	if rec := request("10.0.0.1", http.MethodOptions); rec.Code != http.StatusOK {
		t.Errorf("preflight status = %d, want 200", rec.Code)
	}
	if rec := request("10.0.0.2", http.MethodPost); rec.Code != http.StatusOK {
		t.Errorf("other client status = %d, want 200", rec.Code)
	}
}

func TestRateLimitMiddleware_NilLimiter(t *testing.T) {
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})
	handler := rateLimitMiddleware(nil, inner)

	for i := 0; i < 100; i++ {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", rec.Code)
		}
	}
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		name   string
		xff    string
		realIP string
		remote string
		want   string
	}{
		{"forwarded chain", "203.0.113.7, 10.0.0.1", "", "10.0.0.2:1234", "203.0.113.7"},
		{"real ip", "", "198.51.100.4", "10.0.0.2:1234", "198.51.100.4"},
		{"remote addr", "", "", "192.0.2.1:5555", "192.0.2.1"},
		{"remote addr without port", "", "", "192.0.2.1", "192.0.2.1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remote
			if tt.xff != "" {
				req.Header.Set("X-Forwarded-For", tt.xff)
			}
			if tt.realIP != "" {
				req.Header.Set("X-Real-IP", tt.realIP)
			}
			if got := clientIP(req); got != tt.want {
				t.Errorf("clientIP() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestLoggingMiddleware_CapturesStatusCode(t *testing.T) {
	tests := []struct {
		name        string
		statusCode  int
		writeHeader bool
	}{
		{"ok status", http.StatusOK, true},
		{"bad request", http.StatusBadRequest, true},
		{"internal error", http.StatusInternalServerError, true},
		{"default status (no explicit write)", http.StatusOK, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := loggingMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if tt.writeHeader {
					w.WriteHeader(tt.statusCode)
				}
				w.Write([]byte("body"))
			}))

			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/test", nil))

			if rec.Code != tt.statusCode {
				t.Errorf("status = %d, want %d", rec.Code, tt.statusCode)
			}
			if rec.Body.String() != "body" {
				t.Errorf("body = %q", rec.Body.String())
			}
		})
	}
}

func TestRecoveryMiddleware_CatchesPanic(t *testing.T) {
	handler := recoveryMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("test panic")
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/test", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusInternalServerError)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q, want application/json", ct)
	}
}

func TestMiddlewareChain_WithPanic(t *testing.T) {
	var capturedID string
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		capturedID = GetCorrelationID(r.Context())
		panic("simulated panic")
	})

	handler := recoveryMiddleware(loggingMiddleware(correlationIDMiddleware(corsMiddleware(inner))))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/test", nil))

	if capturedID == "" {
		t.Error("correlation ID should have been generated before the panic")
	}
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusInternalServerError)
	}
	if got := rec.Header().Get(CorrelationIDHeader); got != capturedID {
		t.Errorf("response header ID %q != captured ID %q", got, capturedID)
	}
}
