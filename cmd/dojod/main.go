package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/felixgeelhaar/codedojo/internal/app"
	"github.com/felixgeelhaar/codedojo/internal/config"
	"github.com/felixgeelhaar/codedojo/internal/daemon"
)

func main() {
	if err := run(); err != nil {
		slog.Error("daemon error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	level := parseLogLevel(cfg.Server.LogLevel)
	if cfg.Server.Debug {
		level = slog.LevelDebug
	}
	logFile, err := setupLogging(cfg.Server.LogFormat, cfg.Server.LogFile, level)
	if err != nil {
		return fmt.Errorf("setup logging: %w", err)
	}
	if logFile != nil {
		defer logFile.Close()
	}

	ctx := context.Background()
	a, err := app.New(ctx, cfg)
	if err != nil {
		return fmt.Errorf("init app: %w", err)
	}
	defer func() {
		if err := a.Close(); err != nil {
			slog.Warn("failed to release resources", "error", err)
		}
	}()

	server := daemon.NewServer(daemon.ServerConfig{
		Bind:       cfg.Server.Bind,
		Port:       cfg.Server.Port,
		Tutor:      a.Tutor,
		Catalog:    a.Catalog,
		Executions: a.Runner,
		Status: daemon.StatusInfo{
			Credentials:   a.Keys.Size(),
			CatalogDriver: cfg.Catalog.Driver,
			EventsEnabled: a.Events != nil,
			BreakerState:  a.Guard.State,
		},
		RateLimitPerMinute: cfg.Server.RateLimitPerMinute,
	})

	// Graceful shutdown
	done := make(chan struct{})
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigCh

		slog.Info("received signal, shutting down", "signal", sig.String())

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			slog.Error("shutdown error", "error", err)
		}
		close(done)
	}()

	if err := server.Start(); !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server error: %w", err)
	}

	<-done
	slog.Info("daemon stopped")
	return nil
}
