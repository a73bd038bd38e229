package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/sqlc-dev/pqtype"

	"github.com/thinkinginmath/scimigo-co/internal/domain"
)

// SubmissionRepository implements domain.SubmissionRepository using PostgreSQL.
type SubmissionRepository struct {
	q querier
}

const submissionColumns = `
	id, session_id, user_id, problem_id, subject, language, status,
	visible_passed, visible_total, hidden_passed, hidden_total,
	categories, exec_ms, created_at
`

// Create persists a graded submission.
func (r *SubmissionRepository) Create(ctx context.Context, s *domain.Submission) error {
	categories, err := marshalCategories(s.Categories)
	if err != nil {
		return fmt.Errorf("marshal categories: %w", err)
	}

	query := `
		INSERT INTO submissions (` + submissionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`
	_, err = r.q.Exec(ctx, query,
		s.ID, s.SessionID, s.UserID, s.ProblemID, s.Subject, s.Language, s.Status,
		s.VisiblePassed, s.VisibleTotal, s.HiddenPassed, s.HiddenTotal,
		categories, s.ExecMS, s.CreatedAt,
	)
	return err
}

// Latest returns the most recent submission for a user-problem pair.
func (r *SubmissionRepository) Latest(ctx context.Context, userID uuid.UUID, problemID string) (*domain.Submission, error) {
	query := `
		SELECT ` + submissionColumns + `
		FROM submissions
		WHERE user_id = $1 AND problem_id = $2
		ORDER BY created_at DESC
		LIMIT 1
	`
	s, err := scanSubmission(r.q.QueryRow(ctx, query, userID, problemID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrSubmissionNotFound
	}
	return s, err
}

// Recent returns the user's most recent submissions across all problems,
// newest first.
func (r *SubmissionRepository) Recent(ctx context.Context, userID uuid.UUID, limit int) ([]*domain.Submission, error) {
	query := `
		SELECT ` + submissionColumns + `
		FROM submissions
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`
	rows, err := r.q.Query(ctx, query, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var submissions []*domain.Submission
	for rows.Next() {
		s, err := scanSubmission(rows)
		if err != nil {
			return nil, err
		}
		submissions = append(submissions, s)
	}
	return submissions, rows.Err()
}

func scanSubmission(row pgx.Row) (*domain.Submission, error) {
	s := &domain.Submission{}
	var categories pqtype.NullRawMessage

	err := row.Scan(
		&s.ID, &s.SessionID, &s.UserID, &s.ProblemID, &s.Subject, &s.Language, &s.Status,
		&s.VisiblePassed, &s.VisibleTotal, &s.HiddenPassed, &s.HiddenTotal,
		&categories, &s.ExecMS, &s.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if categories.Valid {
		if err := json.Unmarshal(categories.RawMessage, &s.Categories); err != nil {
			return nil, fmt.Errorf("unmarshal categories: %w", err)
		}
	}
	return s, nil
}

func marshalCategories(categories []string) (pqtype.NullRawMessage, error) {
	if len(categories) == 0 {
		return pqtype.NullRawMessage{}, nil
	}
	data, err := json.Marshal(categories)
	if err != nil {
		return pqtype.NullRawMessage{}, err
	}
	return pqtype.NullRawMessage{RawMessage: data, Valid: true}, nil
}

// Ensure SubmissionRepository implements domain.SubmissionRepository
var _ domain.SubmissionRepository = (*SubmissionRepository)(nil)
