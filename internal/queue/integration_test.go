//go:build integration

package queue_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/rabbitmq"

	"github.com/felixgeelhaar/codedojo/internal/queue"
	"github.com/felixgeelhaar/codedojo/internal/runner"
)

func setupRabbitMQ(t *testing.T) string {
	t.Helper()
	ctx := context.Background()

	container, err := rabbitmq.Run(ctx, "rabbitmq:3.12-management")
	if err != nil {
		t.Fatalf("failed to start RabbitMQ container: %v", err)
	}
	t.Cleanup(func() {
		if err := testcontainers.TerminateContainer(container); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	amqpURL, err := container.AmqpURL(ctx)
	if err != nil {
		t.Fatalf("failed to get AMQP URL: %v", err)
	}
	return amqpURL
}

func TestIntegration_Connection_ConnectAndClose(t *testing.T) {
	conn, err := queue.NewConnection(setupRabbitMQ(t))
	if err != nil {
		t.Fatalf("failed to create connection: %v", err)
	}

	if !conn.IsConnected() {
		t.Error("expected connection to be active")
	}
	if err := conn.Close(); err != nil {
		t.Errorf("failed to close connection: %v", err)
	}
	if conn.IsConnected() {
		t.Error("expected connection to be closed")
	}
}

func TestIntegration_Connection_InvalidURL(t *testing.T) {
	if _, err := queue.NewConnection("amqp://invalid:5672"); err == nil {
		t.Error("expected error for invalid URL")
	}
}

func TestIntegration_Producer_RecordExecution(t *testing.T) {
	conn, err := queue.NewConnection(setupRabbitMQ(t))
	if err != nil {
		t.Fatalf("failed to create connection: %v", err)
	}
	defer conn.Close()

	producer := queue.NewProducer(conn)
	exec := &runner.Execution{
		ID:        uuid.New(),
		Job:       runner.Job{Language: runner.LanguagePython, Version: "3.10.0", Code: "print(1)"},
		Result:    &runner.Result{Code: 0, Duration: 40 * time.Millisecond},
		CreatedAt: time.Now(),
	}
	if err := producer.RecordExecution(context.Background(), exec); err != nil {
		t.Fatalf("RecordExecution() error = %v", err)
	}

	q, err := conn.Channel().QueueInspect(queue.ExecutionQueueName)
	if err != nil {
		t.Fatalf("failed to inspect queue: %v", err)
	}
	if q.Messages != 1 {
		t.Errorf("expected 1 message in queue, got %d", q.Messages)
	}
}

func TestIntegration_Consumer_ReceivesEvents(t *testing.T) {
	conn, err := queue.NewConnection(setupRabbitMQ(t))
	if err != nil {
		t.Fatalf("failed to create connection: %v", err)
	}
	defer conn.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	producer := queue.NewProducer(conn)
	sent := make(map[uuid.UUID]bool)
	for i := 0; i < 3; i++ {
		id := uuid.New()
		sent[id] = true
		exec := &runner.Execution{
			ID:  id,
			Job: runner.Job{Language: runner.LanguageGo, Version: "1.16.2", Code: "package main"},
		}
		if err := producer.RecordExecution(ctx, exec); err != nil {
			t.Fatalf("RecordExecution(%d) error = %v", i, err)
		}
	}

	received := make(chan queue.ExecutionEvent, len(sent))
	consumeCtx, stop := context.WithCancel(ctx)
	done := make(chan error, 1)
	go func() {
		done <- queue.NewConsumer(conn, queue.DefaultConsumerConfig()).Consume(consumeCtx,
			func(ctx context.Context, ev queue.ExecutionEvent) error {
				received <- ev
				return nil
			})
	}()

	for i := 0; i < len(sent); i++ {
		select {
		case ev := <-received:
			if !sent[ev.ID] {
				t.Errorf("unexpected event %v", ev.ID)
			}
			if ev.Language != "go" {
				t.Errorf("Language = %q; want go", ev.Language)
			}
		case <-ctx.Done():
			t.Fatalf("timeout waiting for event %d", i)
		}
	}

	stop()
	if err := <-done; err != nil {
		t.Errorf("Consume() error = %v; want nil after cancel", err)
	}
}
