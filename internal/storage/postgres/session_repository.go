package postgres

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/thinkinginmath/scimigo-co/internal/domain"
)

// SessionRepository implements domain.SessionRepository using PostgreSQL.
type SessionRepository struct {
	q querier
}

// Create inserts a new session.
func (r *SessionRepository) Create(ctx context.Context, s *domain.Session) error {
	query := `
		INSERT INTO sessions (id, user_id, subject, mode, track_id, problem_id,
			status, last_hint_level, started_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err := r.q.Exec(ctx, query,
		s.ID, s.UserID, s.Subject, s.Mode, s.TrackID, nullableString(s.ProblemID),
		s.Status, s.LastHintLevel, s.StartedAt, s.UpdatedAt,
	)
	return err
}

// Get retrieves a session by ID.
func (r *SessionRepository) Get(ctx context.Context, id uuid.UUID) (*domain.Session, error) {
	query := `
		SELECT id, user_id, subject, mode, track_id, problem_id,
			status, last_hint_level, started_at, updated_at
		FROM sessions WHERE id = $1
	`
	s := &domain.Session{}
	var problemID *string
	err := r.q.QueryRow(ctx, query, id).Scan(
		&s.ID, &s.UserID, &s.Subject, &s.Mode, &s.TrackID, &problemID,
		&s.Status, &s.LastHintLevel, &s.StartedAt, &s.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrSessionNotFound
	}
	if err != nil {
		return nil, err
	}
	if problemID != nil {
		s.ProblemID = *problemID
	}
	return s, nil
}

// Update persists session state changes.
func (r *SessionRepository) Update(ctx context.Context, s *domain.Session) error {
	query := `
		UPDATE sessions
		SET problem_id = $2, status = $3, last_hint_level = $4, updated_at = $5
		WHERE id = $1
	`
	tag, err := r.q.Exec(ctx, query, s.ID, nullableString(s.ProblemID), s.Status, s.LastHintLevel, s.UpdatedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrSessionNotFound
	}
	return nil
}

func nullableString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// Ensure SessionRepository implements domain.SessionRepository
var _ domain.SessionRepository = (*SessionRepository)(nil)
