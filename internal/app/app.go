package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/felixgeelhaar/codedojo/internal/catalog"
	"github.com/felixgeelhaar/codedojo/internal/config"
	"github.com/felixgeelhaar/codedojo/internal/llm"
	"github.com/felixgeelhaar/codedojo/internal/queue"
	"github.com/felixgeelhaar/codedojo/internal/runner"
	"github.com/felixgeelhaar/codedojo/internal/tutor"
)

// App holds all application dependencies
type App struct {
	Config  *config.Config
	Keys    *tutor.Pool
	Gemini  *llm.GeminiClient
	Tutor   *tutor.Service
	Catalog catalog.Store // nil when the catalog driver is "none"
	Runner  *runner.Service
	Guard   *runner.GuardedExecutor
	Events  *queue.Connection // nil when RABBITMQ_URL is unset

	closers []func() error
}

// New creates a new application instance with all dependencies wired
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	a := &App{Config: cfg}

	a.Keys = tutor.NewPool(cfg.Tutor.Keys, nil)
	if a.Keys.Size() == 0 {
		slog.Warn("no tutor credentials configured", "key_vars", cfg.Tutor.KeyVars)
	}
	a.Gemini = llm.NewGeminiClient(llm.GeminiConfig{
		BaseURL: cfg.Tutor.BaseURL,
		Model:   cfg.Tutor.Model,
	})
	a.Tutor = tutor.NewService(a.Keys, a.Gemini)

	store, err := openCatalog(ctx, cfg.Catalog)
	if err != nil {
		return nil, err
	}
	if store != nil {
		a.Catalog = store
		a.closers = append(a.closers, store.Close)
	}

	executor := a.newExecutor(cfg.Runner)
	a.Guard = runner.NewGuardedExecutor(executor, runner.GuardConfig{
		MaxConcurrent: cfg.Runner.MaxConcurrent,
	})

	var recorder runner.Recorder
	if cfg.Events.RabbitMQURL != "" {
		conn, err := queue.NewConnection(cfg.Events.RabbitMQURL)
		if err != nil {
			slog.Warn("execution events disabled", "error", err)
		} else {
			a.Events = conn
			a.closers = append(a.closers, conn.Close)
			recorder = queue.NewProducer(conn)
		}
	}

	a.Runner = runner.NewService(runner.Config{
		Timeout: time.Duration(cfg.Runner.TimeoutSeconds) * time.Second,
	}, a.Guard, recorder)

	slog.Info("application initialized",
		"credentials", a.Keys.Size(),
		"model", a.Gemini.Model(),
		"catalog", cfg.Catalog.Driver,
		"runner", a.Runner.Backend(),
		"events", a.Events != nil,
	)

	return a, nil
}

func openCatalog(ctx context.Context, cfg config.CatalogConfig) (catalog.Store, error) {
	switch cfg.Driver {
	case "postgres":
		store, err := catalog.OpenPostgres(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("open postgres catalog: %w", err)
		}
		return store, nil
	case "sqlite":
		store, err := catalog.OpenSQLite(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("open sqlite catalog: %w", err)
		}
		return store, nil
	case "none", "":
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown catalog driver: %q", cfg.Driver)
	}
}

// newExecutor picks the configured backend, falling back to Piston when Docker is unavailable
func (a *App) newExecutor(cfg config.RunnerConfig) runner.Executor {
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second

	if cfg.Backend == "docker" {
		dockerCfg := runner.DefaultDockerConfig()
		if timeout > 0 {
			dockerCfg.Timeout = timeout
		}
		if cfg.MemoryMB > 0 {
			dockerCfg.MemoryMB = cfg.MemoryMB
		}
		if cfg.CPULimit > 0 {
			dockerCfg.CPULimit = cfg.CPULimit
		}

		executor, err := runner.NewDockerExecutor(dockerCfg)
		if err == nil {
			a.closers = append(a.closers, executor.Close)
			return executor
		}
		slog.Warn("Docker executor not available, using piston", "error", err)
	}

	return runner.NewPistonExecutor(runner.PistonConfig{
		BaseURL: cfg.PistonURL,
		Timeout: timeout,
	})
}

// Close releases the catalog, the docker client and the broker connection
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
