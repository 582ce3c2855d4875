package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	amqp "github.com/rabbitmq/amqp091-go"
)

// EventHandler receives one decoded execution event
type EventHandler func(ctx context.Context, ev ExecutionEvent) error

// ErrConsumerClosed is returned when the broker closes the delivery stream
var ErrConsumerClosed = errors.New("delivery channel closed")

// Consumer tails execution events
type Consumer struct {
	conn     *Connection
	prefetch int
}

// ConsumerConfig holds consumer configuration
type ConsumerConfig struct {
	Prefetch int
}

// DefaultConsumerConfig returns sensible defaults
func DefaultConsumerConfig() ConsumerConfig {
	return ConsumerConfig{Prefetch: 10}
}

// NewConsumer creates a new queue consumer
func NewConsumer(conn *Connection, cfg ConsumerConfig) *Consumer {
	if cfg.Prefetch <= 0 {
		cfg.Prefetch = DefaultConsumerConfig().Prefetch
	}
	return &Consumer{conn: conn, prefetch: cfg.Prefetch}
}

// Consume delivers events to handler until ctx is done.
// It returns nil on cancellation and ErrConsumerClosed if the broker ends the stream.
func (c *Consumer) Consume(ctx context.Context, handler EventHandler) error {
	ch := c.conn.Channel()

	if err := ch.Qos(c.prefetch, 0, false); err != nil {
		return fmt.Errorf("set qos: %w", err)
	}

	msgs, err := ch.ConsumeWithContext(
		ctx,
		ExecutionQueueName,
		"",    // consumer tag (auto-generated)
		false, // auto-ack
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,
	)
	if err != nil {
		return fmt.Errorf("start consuming: %w", err)
	}

	slog.Info("consuming execution events", "queue", ExecutionQueueName, "prefetch", c.prefetch)

	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-msgs:
			if !ok {
				if ctx.Err() != nil {
					return nil
				}
				return ErrConsumerClosed
			}
			handleDelivery(ctx, msg, handler)
		}
	}
}

// handleDelivery acks handled events and drops malformed or failed ones
func handleDelivery(ctx context.Context, msg amqp.Delivery, handler EventHandler) {
	var ev ExecutionEvent
	if err := json.Unmarshal(msg.Body, &ev); err != nil {
		slog.Error("failed to unmarshal execution event", "error", err)
		_ = msg.Reject(false)
		return
	}

	if err := handler(ctx, ev); err != nil {
		slog.Error("execution event handler failed",
			"execution_id", ev.ID,
			"error", err,
		)
		_ = msg.Nack(false, false)
		return
	}

	if err := msg.Ack(false); err != nil {
		slog.Error("failed to ack message", "execution_id", ev.ID, "error", err)
	}
}
