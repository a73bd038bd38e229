package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// OutcomeHandler folds one graded outcome into learning state.
type OutcomeHandler func(ctx context.Context, outcome *Outcome) error

// OutcomeConsumer consumes graded outcomes from the queue
type OutcomeConsumer struct {
	conn       *Connection
	handler    OutcomeHandler
	workers    int
	prefetch   int
	timeout    time.Duration
	cancelFunc context.CancelFunc
	wg         sync.WaitGroup
}

// ConsumerConfig holds consumer configuration
type ConsumerConfig struct {
	Workers  int           // Number of concurrent workers
	Prefetch int           // Prefetch count per worker
	Timeout  time.Duration // Per-message processing timeout
}

// DefaultConsumerConfig returns sensible defaults
func DefaultConsumerConfig() ConsumerConfig {
	return ConsumerConfig{
		Workers:  3,
		Prefetch: 1, // Process one at a time per worker for fairness
		Timeout:  30 * time.Second,
	}
}

// NewOutcomeConsumer creates a new outcome consumer
func NewOutcomeConsumer(conn *Connection, handler OutcomeHandler, cfg ConsumerConfig) *OutcomeConsumer {
	if cfg.Workers <= 0 {
		cfg.Workers = 3
	}
	if cfg.Prefetch <= 0 {
		cfg.Prefetch = 1
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}

	return &OutcomeConsumer{
		conn:     conn,
		handler:  handler,
		workers:  cfg.Workers,
		prefetch: cfg.Prefetch,
		timeout:  cfg.Timeout,
	}
}

// Start begins consuming messages
func (c *OutcomeConsumer) Start(ctx context.Context) error {
	ctx, c.cancelFunc = context.WithCancel(ctx)

	ch := c.conn.Channel()

	// Set QoS (prefetch)
	if err := ch.Qos(c.prefetch, 0, false); err != nil {
		return fmt.Errorf("failed to set QoS: %w", err)
	}

	msgs, err := ch.Consume(
		OutcomeQueueName,
		"",    // consumer tag (auto-generated)
		false, // auto-ack (manual ack for reliability)
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,   // args
	)
	if err != nil {
		return fmt.Errorf("failed to start consuming: %w", err)
	}

	slog.Info("starting outcome consumer", "workers", c.workers, "prefetch", c.prefetch)

	for i := 0; i < c.workers; i++ {
		c.wg.Add(1)
		go c.worker(ctx, i, msgs)
	}

	return nil
}

// worker processes messages from the queue
func (c *OutcomeConsumer) worker(ctx context.Context, id int, msgs <-chan amqp.Delivery) {
	defer c.wg.Done()

	slog.Info("worker started", "worker_id", id)

	for {
		select {
		case <-ctx.Done():
			slog.Info("worker stopping", "worker_id", id)
			return

		case msg, ok := <-msgs:
			if !ok {
				slog.Info("message channel closed", "worker_id", id)
				return
			}

			c.processMessage(ctx, id, msg)
		}
	}
}

// processMessage handles a single message
func (c *OutcomeConsumer) processMessage(ctx context.Context, workerID int, msg amqp.Delivery) {
	start := time.Now()

	var outcome Outcome
	if err := json.Unmarshal(msg.Body, &outcome); err != nil {
		slog.Error("failed to unmarshal outcome",
			"worker_id", workerID,
			"error", err,
		)
		// Reject without requeue for malformed messages
		_ = msg.Reject(false)
		return
	}

	slog.Info("processing outcome",
		"worker_id", workerID,
		"job_id", outcome.JobID,
		"user_id", outcome.UserID,
		"problem_id", outcome.ProblemID,
		"status", outcome.Status,
	)

	msgCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	if err := c.handler(msgCtx, &outcome); err != nil {
		slog.Error("outcome processing failed",
			"worker_id", workerID,
			"job_id", outcome.JobID,
			"error", err,
			"duration", time.Since(start),
		)

		// Requeue once; a message that failed twice goes to the broker's
		// dead-letter handling rather than looping forever.
		_ = msg.Nack(false, !msg.Redelivered)
		return
	}

	slog.Info("outcome recorded",
		"worker_id", workerID,
		"job_id", outcome.JobID,
		"duration", time.Since(start),
	)

	if err := msg.Ack(false); err != nil {
		slog.Error("failed to ack message",
			"worker_id", workerID,
			"job_id", outcome.JobID,
			"error", err,
		)
	}
}

// Stop gracefully stops the consumer
func (c *OutcomeConsumer) Stop() {
	if c.cancelFunc != nil {
		c.cancelFunc()
	}
	c.wg.Wait()
	slog.Info("consumer stopped")
}
