//go:build integration

package queue_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/rabbitmq"

	"github.com/thinkinginmath/scimigo-co/internal/domain"
	"github.com/thinkinginmath/scimigo-co/internal/queue"
)

// setupRabbitMQ creates a RabbitMQ container for testing
func setupRabbitMQ(t *testing.T) (string, func()) {
	ctx := context.Background()

	container, err := rabbitmq.Run(ctx, "rabbitmq:3.12-management")
	if err != nil {
		t.Fatalf("failed to start RabbitMQ container: %v", err)
	}

	amqpURL, err := container.AmqpURL(ctx)
	if err != nil {
		container.Terminate(ctx)
		t.Fatalf("failed to get AMQP URL: %v", err)
	}

	cleanup := func() {
		if err := testcontainers.TerminateContainer(container); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	}

	return amqpURL, cleanup
}

func TestIntegration_Connection_ConnectAndClose(t *testing.T) {
	amqpURL, cleanup := setupRabbitMQ(t)
	defer cleanup()

	conn, err := queue.NewConnection(amqpURL)
	if err != nil {
		t.Fatalf("failed to create connection: %v", err)
	}

	if !conn.IsConnected() {
		t.Error("expected connection to be active")
	}

	if err := conn.Close(); err != nil {
		t.Errorf("failed to close connection: %v", err)
	}
}

func TestIntegration_Connection_InvalidURL(t *testing.T) {
	_, err := queue.NewConnection("amqp://invalid:5672")
	if err == nil {
		t.Error("expected error for invalid URL")
	}
}

func TestIntegration_Producer_PublishEvalJob(t *testing.T) {
	amqpURL, cleanup := setupRabbitMQ(t)
	defer cleanup()

	conn, err := queue.NewConnection(amqpURL)
	if err != nil {
		t.Fatalf("failed to create connection: %v", err)
	}
	defer conn.Close()

	producer := queue.NewProducer(conn)

	job := &queue.EvalJob{
		ID:        uuid.New(),
		SessionID: uuid.New(),
		UserID:    uuid.New(),
		ProblemID: "two-sum",
		Subject:   domain.SubjectCoding,
		Language:  "go",
		Code: map[string]string{
			"solution.go": "package solution\n",
		},
		Tests:     "all",
		Timeout:   30,
		CreatedAt: time.Now(),
	}

	ctx := context.Background()

	if err := producer.PublishEvalJob(ctx, job); err != nil {
		t.Fatalf("failed to publish eval job: %v", err)
	}

	ch := conn.Channel()
	q, err := ch.QueueInspect(queue.EvalQueueName)
	if err != nil {
		t.Fatalf("failed to inspect queue: %v", err)
	}

	if q.Messages != 1 {
		t.Errorf("expected 1 message in queue, got %d", q.Messages)
	}
}

func TestIntegration_OutcomeConsumer_ProcessesOutcomes(t *testing.T) {
	amqpURL, cleanup := setupRabbitMQ(t)
	defer cleanup()

	conn, err := queue.NewConnection(amqpURL)
	if err != nil {
		t.Fatalf("failed to create connection: %v", err)
	}
	defer conn.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	var received []*queue.Outcome
	var mu sync.Mutex
	receivedCh := make(chan struct{}, 5)

	handler := func(ctx context.Context, outcome *queue.Outcome) error {
		mu.Lock()
		received = append(received, outcome)
		mu.Unlock()

		receivedCh <- struct{}{}
		return nil
	}

	consumer := queue.NewOutcomeConsumer(conn, handler, queue.ConsumerConfig{
		Workers:  2,
		Prefetch: 1,
	})

	if err := consumer.Start(ctx); err != nil {
		t.Fatalf("failed to start consumer: %v", err)
	}
	defer consumer.Stop()

	producer := queue.NewProducer(conn)
	outcomeCount := 3

	for i := 0; i < outcomeCount; i++ {
		outcome := &queue.Outcome{
			JobID:        uuid.New(),
			SessionID:    uuid.New(),
			UserID:       uuid.New(),
			ProblemID:    "two-sum",
			Status:       domain.StatusPassed,
			VisibleTotal: 5,
			CompletedAt:  time.Now(),
		}

		if err := producer.PublishOutcome(ctx, outcome); err != nil {
			t.Fatalf("failed to publish outcome %d: %v", i, err)
		}
	}

	for i := 0; i < outcomeCount; i++ {
		select {
		case <-receivedCh:
		case <-ctx.Done():
			t.Fatalf("timeout waiting for outcome %d", i)
		}
	}

	mu.Lock()
	if len(received) != outcomeCount {
		t.Errorf("expected %d outcomes, got %d", outcomeCount, len(received))
	}
	mu.Unlock()
}

func TestIntegration_Connection_PublishJSON(t *testing.T) {
	amqpURL, cleanup := setupRabbitMQ(t)
	defer cleanup()

	conn, err := queue.NewConnection(amqpURL)
	if err != nil {
		t.Fatalf("failed to create connection: %v", err)
	}
	defer conn.Close()

	ctx := context.Background()

	outcome := queue.Outcome{
		JobID:       uuid.New(),
		UserID:      uuid.New(),
		ProblemID:   "two-sum",
		Status:      domain.StatusFailed,
		CompletedAt: time.Now(),
	}

	if err := conn.PublishJSON(ctx, queue.OutcomeQueueName, outcome); err != nil {
		t.Fatalf("failed to publish: %v", err)
	}

	ch := conn.Channel()
	q, err := ch.QueueInspect(queue.OutcomeQueueName)
	if err != nil {
		t.Fatalf("failed to inspect queue: %v", err)
	}

	if q.Messages != 1 {
		t.Errorf("expected 1 message, got %d", q.Messages)
	}
}
