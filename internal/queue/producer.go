package queue

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// Producer publishes evaluation jobs to the queue
type Producer struct {
	conn *Connection
}

// NewProducer creates a new queue producer
func NewProducer(conn *Connection) *Producer {
	return &Producer{conn: conn}
}

// PublishEvalJob publishes a grading request for the evaluation service.
func (p *Producer) PublishEvalJob(ctx context.Context, job *EvalJob) error {
	if job.ID == uuid.Nil {
		job.ID = uuid.New()
	}
	if job.CreatedAt.IsZero() {
		job.CreatedAt = time.Now()
	}

	if err := p.conn.PublishJSON(ctx, EvalQueueName, job); err != nil {
		return fmt.Errorf("failed to publish eval job: %w", err)
	}

	slog.Info("published eval job",
		"job_id", job.ID,
		"session_id", job.SessionID,
		"user_id", job.UserID,
		"problem_id", job.ProblemID,
	)

	return nil
}

// PublishOutcome publishes a graded outcome. The orchestrator only consumes
// outcomes in production; publishing is used by tests and backfill tooling.
func (p *Producer) PublishOutcome(ctx context.Context, outcome *Outcome) error {
	if outcome.CompletedAt.IsZero() {
		outcome.CompletedAt = time.Now()
	}

	if err := p.conn.PublishJSON(ctx, OutcomeQueueName, outcome); err != nil {
		return fmt.Errorf("failed to publish outcome: %w", err)
	}

	slog.Info("published outcome",
		"job_id", outcome.JobID,
		"problem_id", outcome.ProblemID,
		"status", outcome.Status,
	)

	return nil
}
