package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/thinkinginmath/scimigo-co/internal/domain"
)

// ReviewRepository implements domain.ReviewRepository using PostgreSQL.
type ReviewRepository struct {
	q querier
}

// Get retrieves the review entry for a user-problem pair.
func (r *ReviewRepository) Get(ctx context.Context, userID uuid.UUID, problemID string) (*domain.ReviewEntry, error) {
	query := `
		SELECT id, user_id, problem_id, reason, bucket, next_due_at, created_at
		FROM review_queue WHERE user_id = $1 AND problem_id = $2
	`
	e := &domain.ReviewEntry{}
	err := r.q.QueryRow(ctx, query, userID, problemID).Scan(
		&e.ID, &e.UserID, &e.ProblemID, &e.Reason, &e.Bucket, &e.NextDueAt, &e.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrReviewEntryNotFound
	}
	if err != nil {
		return nil, err
	}
	return e, nil
}

// Upsert inserts or updates the entry for its user-problem pair.
func (r *ReviewRepository) Upsert(ctx context.Context, e *domain.ReviewEntry) error {
	query := `
		INSERT INTO review_queue (id, user_id, problem_id, reason, bucket, next_due_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (user_id, problem_id) DO UPDATE SET
			reason = excluded.reason,
			bucket = excluded.bucket,
			next_due_at = excluded.next_due_at
	`
	_, err := r.q.Exec(ctx, query, e.ID, e.UserID, e.ProblemID, e.Reason, e.Bucket, e.NextDueAt, e.CreatedAt)
	return err
}

// Delete removes the entry for a user-problem pair. Deleting a missing
// entry is not an error; graduation and explicit removal converge here.
func (r *ReviewRepository) Delete(ctx context.Context, userID uuid.UUID, problemID string) error {
	_, err := r.q.Exec(ctx, "DELETE FROM review_queue WHERE user_id = $1 AND problem_id = $2", userID, problemID)
	return err
}

// ListDue returns due entries ordered earliest-due first, ties broken by
// creation order.
func (r *ReviewRepository) ListDue(ctx context.Context, userID uuid.UUID, asOf time.Time, limit int) ([]*domain.ReviewEntry, error) {
	query := `
		SELECT id, user_id, problem_id, reason, bucket, next_due_at, created_at
		FROM review_queue
		WHERE user_id = $1 AND next_due_at <= $2
		ORDER BY next_due_at ASC, created_at ASC
		LIMIT $3
	`
	rows, err := r.q.Query(ctx, query, userID, asOf, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []*domain.ReviewEntry
	for rows.Next() {
		e := &domain.ReviewEntry{}
		if err := rows.Scan(&e.ID, &e.UserID, &e.ProblemID, &e.Reason, &e.Bucket, &e.NextDueAt, &e.CreatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Ensure ReviewRepository implements domain.ReviewRepository
var _ domain.ReviewRepository = (*ReviewRepository)(nil)
