package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/felixgeelhaar/codedojo/internal/config"
	"github.com/felixgeelhaar/codedojo/internal/queue"
)

func cmdEvents(args []string) error {
	fs := flag.NewFlagSet("events", flag.ContinueOnError)
	asJSON := fs.Bool("json", false, "print events as JSON lines")
	if _, err := parseArgs(fs, args); err != nil {
		return err
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if cfg.Events.RabbitMQURL == "" {
		return fmt.Errorf("RABBITMQ_URL is not set")
	}

	conn, err := queue.NewConnection(cfg.Events.RabbitMQURL)
	if err != nil {
		return err
	}
	defer conn.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	fmt.Fprintf(os.Stderr, "Listening on %s (Ctrl+C to stop)\n", queue.ExecutionQueueName)

	enc := json.NewEncoder(os.Stdout)
	consumer := queue.NewConsumer(conn, queue.DefaultConsumerConfig())
	return consumer.Consume(ctx, func(ctx context.Context, ev queue.ExecutionEvent) error {
		if *asJSON {
			return enc.Encode(ev)
		}
		fmt.Printf("%s  %s  %-10s %-8s exit=%d  %dms  %dB\n",
			ev.CreatedAt.Format("15:04:05"), ev.ID, ev.Language, ev.Backend,
			ev.ExitCode, ev.DurationMS, ev.CodeBytes)
		return nil
	})
}
