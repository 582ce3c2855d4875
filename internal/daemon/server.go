package daemon

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/felixgeelhaar/fortify/ratelimit"
	"github.com/google/uuid"

	"github.com/felixgeelhaar/codedojo/internal/catalog"
	"github.com/felixgeelhaar/codedojo/internal/runner"
	"github.com/felixgeelhaar/codedojo/internal/tutor"
)

// Version is reported by the status endpoint
var Version = "0.1.0"

// Executions is the part of runner.Service the daemon serves
type Executions interface {
	Execute(ctx context.Context, req runner.ExecuteRequest) (*runner.Execution, error)
	Cancel(runID uuid.UUID) error
	Running() int
	Backend() string
}

// Server represents the dojo daemon HTTP server
type Server struct {
	server  *http.Server
	router  *http.ServeMux
	limiter ratelimit.RateLimiter

	tutor      tutor.Asker
	catalog    catalog.Store
	executions Executions
	status     StatusInfo
}

// StatusInfo is static wiring information reported by /v1/status
type StatusInfo struct {
	Credentials   int
	CatalogDriver string
	EventsEnabled bool
	// BreakerState reports the executor circuit breaker, when there is one
	BreakerState func() string
}

// ServerConfig holds configuration for creating a new server
type ServerConfig struct {
	Bind string
	Port int

	Tutor      tutor.Asker
	Catalog    catalog.Store // nil disables the catalog routes
	Executions Executions    // nil disables code execution
	Status     StatusInfo

	// RateLimitPerMinute per client address; zero disables rate limiting
	RateLimitPerMinute int
}

// tutorPaths serve the tutor handler, which answers its own preflights
var tutorPaths = []string{"/v1/tutor", "/functions/v1/ai-tutor"}

// NewServer creates a new daemon server
func NewServer(cfg ServerConfig) *Server {
	s := &Server{
		router:     http.NewServeMux(),
		tutor:      cfg.Tutor,
		catalog:    cfg.Catalog,
		executions: cfg.Executions,
		status:     cfg.Status,
	}

	if cfg.RateLimitPerMinute > 0 {
		s.limiter = ratelimit.New(&ratelimit.Config{
			Rate:     cfg.RateLimitPerMinute,
			Burst:    cfg.RateLimitPerMinute,
			Interval: time.Minute,
		})
	}

	s.setupRoutes()

	handler := recoveryMiddleware(
		loggingMiddleware(
			rateLimitMiddleware(s.limiter,
				correlationIDMiddleware(
					corsMiddleware(s.router, tutorPaths...)))))

	s.server = &http.Server{
		Addr:        fmt.Sprintf("%s:%d", cfg.Bind, cfg.Port),
		Handler:     handler,
		ReadTimeout: 15 * time.Second,
		// Long enough for a slow hint or a compile-and-run round trip
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	return s
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() {
	// Health & status
	s.router.HandleFunc("GET /v1/health", s.handleHealth)
	s.router.HandleFunc("GET /v1/status", s.handleStatus)

	// Tutor, under its own path and the path browsers already call
	if s.tutor != nil {
		tutorHandler := tutor.NewHandler(s.tutor)
		for _, path := range tutorPaths {
			s.router.Handle(path, tutorHandler)
		}
	}

	// Catalog
	s.router.HandleFunc("GET /v1/topics", s.handleListTopics)
	s.router.HandleFunc("GET /v1/topics/{title}", s.handleGetTopic)
	s.router.HandleFunc("GET /v1/questions/{id}", s.handleGetQuestion)
	s.router.HandleFunc("GET /v1/questions/{id}/starter", s.handleStarterCode)

	// Code execution
	s.router.HandleFunc("POST /v1/execute", s.handleExecute)
	s.router.HandleFunc("DELETE /v1/executions/{id}", s.handleCancelExecution)
}

// Handler returns the full middleware chain
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

// Addr returns the listen address
func (s *Server) Addr() string {
	return s.server.Addr
}

// Start starts the HTTP server
func (s *Server) Start() error {
	slog.Info("starting dojo daemon",
		"addr", s.server.Addr,
		"credentials", s.status.Credentials,
		"catalog", s.status.CatalogDriver,
	)
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	slog.Info("shutting down daemon...")

	if s.limiter != nil {
		if err := s.limiter.Close(); err != nil {
			slog.Warn("failed to close rate limiter", "error", err)
		}
	}

	return s.server.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.jsonResponse(w, http.StatusOK, map[string]any{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	resp := map[string]any{
		"status":      "running",
		"version":     Version,
		"credentials": s.status.Credentials,
		"catalog":     s.catalogStatus(r.Context()),
		"events":      s.status.EventsEnabled,
	}

	if s.executions != nil {
		runnerStatus := map[string]any{
			"backend": s.executions.Backend(),
			"running": s.executions.Running(),
		}
		if s.status.BreakerState != nil {
			runnerStatus["breaker"] = s.status.BreakerState()
		}
		resp["runner"] = runnerStatus
	}

	s.jsonResponse(w, http.StatusOK, resp)
}

func (s *Server) catalogStatus(ctx context.Context) map[string]any {
	if s.catalog == nil {
		return map[string]any{"driver": "none", "ok": false}
	}

	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	status := map[string]any{"driver": s.status.CatalogDriver, "ok": true}
	if err := s.catalog.Ping(ctx); err != nil {
		status["ok"] = false
		status["error"] = err.Error()
	}
	return status
}

// Helper methods

func (s *Server) jsonResponse(w http.ResponseWriter, status int, data any) {
	jsonResponse(w, status, data)
}

func (s *Server) jsonError(w http.ResponseWriter, status int, message string, err error) {
	jsonError(w, status, message, err)
}

func jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func jsonError(w http.ResponseWriter, status int, message string, err error) {
	response := map[string]any{
		"error":  message,
		"status": status,
	}
	if err != nil {
		response["details"] = err.Error()
	}
	jsonResponse(w, status, response)
}
