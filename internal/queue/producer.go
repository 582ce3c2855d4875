package queue

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/felixgeelhaar/codedojo/internal/runner"
)

// ExecutionEvent is the message published for every finished code run.
// Source code is not included; only its size.
type ExecutionEvent struct {
	ID         uuid.UUID `json:"id"`
	Language   string    `json:"language"`
	Version    string    `json:"version"`
	Backend    string    `json:"backend,omitempty"`
	ExitCode   int       `json:"exit_code"`
	DurationMS int64     `json:"duration_ms"`
	CodeBytes  int       `json:"code_bytes"`
	CreatedAt  time.Time `json:"created_at"`
}

// NewExecutionEvent summarises an execution for publishing
func NewExecutionEvent(exec *runner.Execution) ExecutionEvent {
	ev := ExecutionEvent{
		ID:        exec.ID,
		Language:  exec.Job.Language.String(),
		Version:   exec.Job.Version,
		Backend:   exec.Backend,
		CodeBytes: len(exec.Job.Code),
		CreatedAt: exec.CreatedAt,
	}
	if ev.ID == uuid.Nil {
		ev.ID = uuid.New()
	}
	if ev.CreatedAt.IsZero() {
		ev.CreatedAt = time.Now()
	}
	if r := exec.Result; r != nil {
		ev.ExitCode = r.Code
		ev.DurationMS = r.Duration.Milliseconds()
		if r.Version != "" {
			ev.Version = r.Version
		}
	}
	return ev
}

// publisher is the part of Connection the producer needs
type publisher interface {
	PublishJSON(ctx context.Context, queue string, data any) error
}

// Producer publishes execution events
type Producer struct {
	conn publisher
}

// Ensure Producer implements runner.Recorder
var _ runner.Recorder = (*Producer)(nil)

// NewProducer creates a new queue producer
func NewProducer(conn *Connection) *Producer {
	return &Producer{conn: conn}
}

// RecordExecution publishes an event for a finished execution
func (p *Producer) RecordExecution(ctx context.Context, exec *runner.Execution) error {
	ev := NewExecutionEvent(exec)

	if err := p.conn.PublishJSON(ctx, ExecutionQueueName, ev); err != nil {
		return fmt.Errorf("publish execution event: %w", err)
	}

	slog.Debug("published execution event",
		"execution_id", ev.ID,
		"language", ev.Language,
		"exit_code", ev.ExitCode,
	)

	return nil
}
