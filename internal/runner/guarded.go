package runner

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/felixgeelhaar/fortify/bulkhead"
	"github.com/felixgeelhaar/fortify/circuitbreaker"
)

// GuardedExecutor wraps an executor with a circuit breaker and a bulkhead.
// Jobs are never retried: running user code twice is visible to the user.
type GuardedExecutor struct {
	executor       Executor
	circuitBreaker circuitbreaker.CircuitBreaker[*Result]
	bulkhead       bulkhead.Bulkhead[*Result]
	state          atomic.Value // string
}

// GuardConfig holds configuration for GuardedExecutor
type GuardConfig struct {
	// MaxConcurrent jobs in flight (default: 4)
	MaxConcurrent int

	// QueueTimeout is how long a job waits for a slot (default: 30s)
	QueueTimeout time.Duration

	// FailureThreshold is the number of consecutive backend failures that opens the breaker (default: 5)
	FailureThreshold int

	// OpenTimeout is how long the breaker stays open (default: 30s)
	OpenTimeout time.Duration
}

// DefaultGuardConfig returns sensible defaults
func DefaultGuardConfig() GuardConfig {
	return GuardConfig{
		MaxConcurrent:    4,
		QueueTimeout:     30 * time.Second,
		FailureThreshold: 5,
		OpenTimeout:      30 * time.Second,
	}
}

// NewGuardedExecutor wraps executor using fortify
func NewGuardedExecutor(executor Executor, cfg GuardConfig) *GuardedExecutor {
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = 4
	}
	if cfg.QueueTimeout <= 0 {
		cfg.QueueTimeout = 30 * time.Second
	}
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = 5
	}
	if cfg.OpenTimeout <= 0 {
		cfg.OpenTimeout = 30 * time.Second
	}

	name := executor.Name()
	threshold := cfg.FailureThreshold

	g := &GuardedExecutor{executor: executor}
	g.state.Store("closed")

	g.circuitBreaker = circuitbreaker.New[*Result](circuitbreaker.Config{
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(counts circuitbreaker.Counts) bool {
			return int(counts.ConsecutiveFailures) >= threshold
		},
		OnStateChange: func(from, to circuitbreaker.State) {
			slog.Warn("runner circuit breaker state change",
				"executor", name,
				"from", from.String(),
				"to", to.String())
			g.state.Store(to.String())
		},
	})
	g.bulkhead = bulkhead.New[*Result](bulkhead.Config{
		MaxConcurrent: cfg.MaxConcurrent,
		MaxQueue:      cfg.MaxConcurrent * 4,
		QueueTimeout:  cfg.QueueTimeout,
	})

	return g
}

func (g *GuardedExecutor) Name() string {
	return g.executor.Name()
}

// Execute runs the job through the bulkhead inside the circuit breaker
func (g *GuardedExecutor) Execute(ctx context.Context, job Job) (*Result, error) {
	return g.circuitBreaker.Execute(ctx, func(ctx context.Context) (*Result, error) {
		return g.bulkhead.Execute(ctx, func(ctx context.Context) (*Result, error) {
			return g.executor.Execute(ctx, job)
		})
	})
}

// State reports the last circuit breaker state
func (g *GuardedExecutor) State() string {
	return g.state.Load().(string)
}
