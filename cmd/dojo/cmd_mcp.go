package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/felixgeelhaar/codedojo/internal/app"
	"github.com/felixgeelhaar/codedojo/internal/config"
	"github.com/felixgeelhaar/codedojo/internal/mcp"
)

func cmdMCP(args []string) error {
	fs := flag.NewFlagSet("mcp", flag.ContinueOnError)
	httpAddr := fs.String("http", "", "serve over HTTP on this address instead of stdio")
	if _, err := parseArgs(fs, args); err != nil {
		return err
	}

	// stdout carries the protocol; logs go to stderr
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn})))

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	a, err := app.New(ctx, cfg)
	if err != nil {
		return fmt.Errorf("initialize: %w", err)
	}
	defer a.Close()

	mcpSrv := mcp.NewServer(mcp.Config{
		Tutor:   a.Tutor,
		Catalog: a.Catalog,
		Runner:  a.Runner,
		Version: Version,
	})

	if *httpAddr != "" {
		fmt.Fprintf(os.Stderr, "MCP server listening on %s\n", *httpAddr)
		return mcpSrv.ServeHTTP(ctx, *httpAddr)
	}
	return mcpSrv.ServeStdio(ctx)
}
