package runner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

var (
	ErrRunNotFound   = errors.New("run not found")
	ErrRunInProgress = errors.New("run already in progress")
	ErrInvalidRunID  = errors.New("invalid run id")
)

// Config holds runner configuration
type Config struct {
	Timeout time.Duration
}

// DefaultConfig returns default runner configuration
func DefaultConfig() Config {
	return Config{
		Timeout: 15 * time.Second,
	}
}

// ExecuteRequest is the caller-facing execution request
type ExecuteRequest struct {
	// ID is optional; callers that want to cancel a run pick it themselves
	ID       string `json:"id,omitempty"`
	Language string `json:"language"`
	Version  string `json:"version,omitempty"`
	Code     string `json:"code"`
	Stdin    string `json:"stdin,omitempty"`
}

// Execution is a finished run
type Execution struct {
	ID        uuid.UUID
	Job       Job
	Result    *Result
	Backend   string
	CreatedAt time.Time
}

// Recorder receives every finished execution
type Recorder interface {
	RecordExecution(ctx context.Context, exec *Execution) error
}

// Service validates requests, runs them and tracks runs in flight
type Service struct {
	config   Config
	executor Executor
	recorder Recorder

	mu      sync.Mutex
	running map[uuid.UUID]*runState
}

type runState struct {
	cancel context.CancelFunc
	doneCh chan struct{}
}

// NewService creates a new runner service. recorder may be nil.
func NewService(cfg Config, executor Executor, recorder Recorder) *Service {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultConfig().Timeout
	}
	return &Service{
		config:   cfg,
		executor: executor,
		recorder: recorder,
		running:  make(map[uuid.UUID]*runState),
	}
}

// Prepare validates req and fills in the language and version defaults
func Prepare(req ExecuteRequest) (Job, error) {
	lang, err := ParseLanguage(req.Language)
	if err != nil {
		return Job{}, err
	}
	if strings.TrimSpace(req.Code) == "" {
		return Job{}, ErrEmptyCode
	}

	version := strings.TrimSpace(req.Version)
	if version == "" {
		cfg, _ := lang.Config()
		version = cfg.Version
	}

	return Job{
		Language: lang,
		Version:  version,
		Code:     req.Code,
		Stdin:    req.Stdin,
	}, nil
}

// Execute runs code and returns the finished execution
func (s *Service) Execute(ctx context.Context, req ExecuteRequest) (*Execution, error) {
	job, err := Prepare(req)
	if err != nil {
		return nil, err
	}

	id := uuid.New()
	if req.ID != "" {
		if id, err = uuid.Parse(req.ID); err != nil {
			return nil, fmt.Errorf("%w: %s", ErrInvalidRunID, req.ID)
		}
	}

	// Extra slack so the backend reports its own timeout first
	ctx, cancel := context.WithTimeout(ctx, s.config.Timeout+15*time.Second)
	defer cancel()

	state := &runState{cancel: cancel, doneCh: make(chan struct{})}

	s.mu.Lock()
	if _, exists := s.running[id]; exists {
		s.mu.Unlock()
		return nil, fmt.Errorf("%w: %s", ErrRunInProgress, id)
	}
	s.running[id] = state
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		delete(s.running, id)
		s.mu.Unlock()
		close(state.doneCh)
	}()

	createdAt := time.Now().UTC()

	result, err := s.executor.Execute(ctx, job)
	if err != nil {
		return nil, fmt.Errorf("execute %s: %w", job.Language, err)
	}

	exec := &Execution{
		ID:        id,
		Job:       job,
		Result:    result,
		Backend:   s.executor.Name(),
		CreatedAt: createdAt,
	}

	s.record(ctx, exec)

	return exec, nil
}

// record hands exec to the recorder; failures are logged only
func (s *Service) record(ctx context.Context, exec *Execution) {
	if s.recorder == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()

	if err := s.recorder.RecordExecution(ctx, exec); err != nil {
		slog.Warn("failed to record execution", "id", exec.ID, "error", err)
	}
}

// Cancel cancels a running execution
func (s *Service) Cancel(runID uuid.UUID) error {
	s.mu.Lock()
	state, ok := s.running[runID]
	s.mu.Unlock()

	if !ok {
		return fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}

	state.cancel()
	return nil
}

// IsRunning checks if a run is currently executing
func (s *Service) IsRunning(runID uuid.UUID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.running[runID]
	return ok
}

// Running returns the number of runs in flight
func (s *Service) Running() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.running)
}

// Wait waits for a run to complete
func (s *Service) Wait(ctx context.Context, runID uuid.UUID) error {
	s.mu.Lock()
	state, ok := s.running[runID]
	s.mu.Unlock()

	if !ok {
		return nil
	}

	select {
	case <-state.doneCh:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Backend names the executor in use
func (s *Service) Backend() string {
	return s.executor.Name()
}
