// Package queue carries evaluation traffic between the orchestrator and the
// external evaluation service over RabbitMQ: eval jobs out, graded outcomes
// back in.
package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/thinkinginmath/scimigo-co/internal/domain"
)

// Queue names
const (
	EvalQueueName    = "co.eval.jobs"
	OutcomeQueueName = "co.eval.outcomes"
)

// EvalJob is a grading request sent to the evaluation service.
type EvalJob struct {
	ID        uuid.UUID         `json:"id"`
	SessionID uuid.UUID         `json:"session_id"`
	UserID    uuid.UUID         `json:"user_id"`
	ProblemID string            `json:"problem_id"`
	Subject   domain.Subject    `json:"subject"`
	Language  string            `json:"language"`
	Code      map[string]string `json:"code"`
	Tests     string            `json:"tests"`   // "visible" or "all"
	Timeout   int               `json:"timeout"` // seconds
	CreatedAt time.Time         `json:"created_at"`
}

// Outcome is a graded result reported back by the evaluation service.
type Outcome struct {
	JobID         uuid.UUID               `json:"job_id"`
	SessionID     uuid.UUID               `json:"session_id"`
	UserID        uuid.UUID               `json:"user_id"`
	ProblemID     string                  `json:"problem_id"`
	Status        domain.SubmissionStatus `json:"status"`
	VisiblePassed int                     `json:"visible_passed"`
	VisibleTotal  int                     `json:"visible_total"`
	HiddenPassed  int                     `json:"hidden_passed"`
	HiddenTotal   int                     `json:"hidden_total"`
	Categories    []string                `json:"categories,omitempty"`
	Topics        []string                `json:"topics,omitempty"`
	ExecMS        int                     `json:"exec_ms"`
	Error         string                  `json:"error,omitempty"`
	CompletedAt   time.Time               `json:"completed_at"`
}

// Connection manages the RabbitMQ connection with automatic reconnection
type Connection struct {
	url        string
	conn       *amqp.Connection
	channel    *amqp.Channel
	mu         sync.RWMutex
	closed     bool
	reconnects int
}

// NewConnection creates a new RabbitMQ connection
func NewConnection(url string) (*Connection, error) {
	c := &Connection{
		url: url,
	}

	if err := c.connect(); err != nil {
		return nil, err
	}

	return c, nil
}

// connect establishes connection and channel
func (c *Connection) connect() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var err error
	c.conn, err = amqp.Dial(c.url)
	if err != nil {
		return fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	c.channel, err = c.conn.Channel()
	if err != nil {
		c.conn.Close()
		return fmt.Errorf("failed to open channel: %w", err)
	}

	if err := c.declareQueues(); err != nil {
		c.channel.Close()
		c.conn.Close()
		return err
	}

	go c.handleReconnect()

	slog.Info("connected to RabbitMQ", "url", sanitizeURL(c.url))
	return nil
}

// declareQueues creates the necessary queues
func (c *Connection) declareQueues() error {
	// Eval jobs queue - durable, short TTL since stale jobs are useless
	_, err := c.channel.QueueDeclare(
		EvalQueueName,
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		amqp.Table{
			"x-message-ttl": int32(300000), // 5 minute TTL
		},
	)
	if err != nil {
		return fmt.Errorf("failed to declare eval queue: %w", err)
	}

	// Outcome queue - durable, no TTL: a graded outcome must not expire
	// before it reaches the learning state.
	_, err = c.channel.QueueDeclare(
		OutcomeQueueName,
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		nil,
	)
	if err != nil {
		return fmt.Errorf("failed to declare outcome queue: %w", err)
	}

	return nil
}

// handleReconnect listens for connection close and attempts to reconnect
func (c *Connection) handleReconnect() {
	notifyClose := c.conn.NotifyClose(make(chan *amqp.Error, 1))

	err := <-notifyClose
	if err == nil {
		return // Normal close
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.mu.Unlock()

	slog.Warn("RabbitMQ connection closed, attempting to reconnect",
		"error", err,
		"reconnects", c.reconnects,
	)

	// Exponential backoff
	for i := 0; i < 10; i++ {
		c.reconnects++
		backoff := time.Duration(1<<i) * time.Second
		if backoff > 30*time.Second {
			backoff = 30 * time.Second
		}
		time.Sleep(backoff)

		if err := c.connect(); err != nil {
			slog.Error("reconnection failed", "error", err, "attempt", i+1)
			continue
		}

		slog.Info("reconnected to RabbitMQ", "attempts", i+1)
		return
	}

	slog.Error("failed to reconnect to RabbitMQ after 10 attempts")
}

// Channel returns the current channel (thread-safe)
func (c *Connection) Channel() *amqp.Channel {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.channel
}

// Close closes the connection
func (c *Connection) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.closed = true

	if c.channel != nil {
		c.channel.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

// IsConnected checks if the connection is active
func (c *Connection) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.conn != nil && !c.conn.IsClosed()
}

// PublishJSON publishes a JSON message to a queue
func (c *Connection) PublishJSON(ctx context.Context, queue string, data any) error {
	body, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	c.mu.RLock()
	ch := c.channel
	c.mu.RUnlock()

	return ch.PublishWithContext(
		ctx,
		"",    // exchange
		queue, // routing key
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Body:         body,
		},
	)
}

// sanitizeURL removes password from URL for logging
func sanitizeURL(url string) string {
	// Simple sanitization - just show host
	if len(url) > 20 {
		return url[:20] + "..."
	}
	return url
}
