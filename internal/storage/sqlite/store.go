package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/thinkinginmath/scimigo-co/internal/domain"
)

// dbtx is the subset of database/sql operations shared by connections
// and transactions.
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Store implements domain.Store on SQLite for local and development use.
// Semantics match the Postgres backend; only placeholders and types differ.
type Store struct {
	db *DB
	q  dbtx
}

// NewStore creates a Store over an open SQLite database.
func NewStore(db *DB) *Store {
	return &Store{db: db, q: db.DB}
}

// Masteries returns the mastery repository.
func (s *Store) Masteries() domain.MasteryRepository { return &masteryRepo{q: s.q} }

// Reviews returns the review queue repository.
func (s *Store) Reviews() domain.ReviewRepository { return &reviewRepo{q: s.q} }

// Submissions returns the submission repository.
func (s *Store) Submissions() domain.SubmissionRepository { return &submissionRepo{q: s.q} }

// Sessions returns the session repository.
func (s *Store) Sessions() domain.SessionRepository { return &sessionRepo{q: s.q} }

// Tracks returns the track repository.
func (s *Store) Tracks() domain.TrackRepository { return &trackRepo{q: s.q} }

// WithTx runs fn against repositories bound to a single transaction.
func (s *Store) WithTx(ctx context.Context, fn func(domain.Store) error) error {
	if s.db == nil {
		return fn(s)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := fn(&Store{q: tx}); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// -----------------------------------------------------------------------------
// Mastery
// -----------------------------------------------------------------------------

type masteryRepo struct {
	q dbtx
}

func (r *masteryRepo) Get(ctx context.Context, userID uuid.UUID, keyType domain.KeyType, keyID string) (*domain.Mastery, error) {
	row := r.q.QueryRowContext(ctx, `
		SELECT user_id, key_type, key_id, score, ema, updated_at
		FROM mastery WHERE user_id = ? AND key_type = ? AND key_id = ?`,
		userID, string(keyType), keyID)

	m := &domain.Mastery{}
	err := row.Scan(&m.UserID, &m.KeyType, &m.KeyID, &m.Score, &m.EMA, &m.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrMasteryNotFound
	}
	if err != nil {
		return nil, err
	}
	return m, nil
}

func (r *masteryRepo) ListByKeys(ctx context.Context, userID uuid.UUID, keyType domain.KeyType, keyIDs []string) ([]*domain.Mastery, error) {
	if len(keyIDs) == 0 {
		return nil, nil
	}

	placeholders := strings.Repeat("?,", len(keyIDs))
	placeholders = placeholders[:len(placeholders)-1]

	args := make([]any, 0, len(keyIDs)+2)
	args = append(args, userID, string(keyType))
	for _, id := range keyIDs {
		args = append(args, id)
	}

	rows, err := r.q.QueryContext(ctx, `
		SELECT user_id, key_type, key_id, score, ema, updated_at
		FROM mastery WHERE user_id = ? AND key_type = ? AND key_id IN (`+placeholders+`)`,
		args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []*domain.Mastery
	for rows.Next() {
		m := &domain.Mastery{}
		if err := rows.Scan(&m.UserID, &m.KeyType, &m.KeyID, &m.Score, &m.EMA, &m.UpdatedAt); err != nil {
			return nil, err
		}
		records = append(records, m)
	}
	return records, rows.Err()
}

func (r *masteryRepo) Upsert(ctx context.Context, m *domain.Mastery) error {
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO mastery (user_id, key_type, key_id, score, ema, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id, key_type, key_id) DO UPDATE SET
			score = excluded.score,
			ema = excluded.ema,
			updated_at = excluded.updated_at`,
		m.UserID, string(m.KeyType), m.KeyID, m.Score, m.EMA, m.UpdatedAt)
	return err
}

// -----------------------------------------------------------------------------
// Review queue
// -----------------------------------------------------------------------------

type reviewRepo struct {
	q dbtx
}

func (r *reviewRepo) Get(ctx context.Context, userID uuid.UUID, problemID string) (*domain.ReviewEntry, error) {
	row := r.q.QueryRowContext(ctx, `
		SELECT id, user_id, problem_id, reason, bucket, next_due_at, created_at
		FROM review_queue WHERE user_id = ? AND problem_id = ?`,
		userID, problemID)

	e := &domain.ReviewEntry{}
	err := row.Scan(&e.ID, &e.UserID, &e.ProblemID, &e.Reason, &e.Bucket, &e.NextDueAt, &e.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrReviewEntryNotFound
	}
	if err != nil {
		return nil, err
	}
	return e, nil
}

func (r *reviewRepo) Upsert(ctx context.Context, e *domain.ReviewEntry) error {
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO review_queue (id, user_id, problem_id, reason, bucket, next_due_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id, problem_id) DO UPDATE SET
			reason = excluded.reason,
			bucket = excluded.bucket,
			next_due_at = excluded.next_due_at`,
		e.ID, e.UserID, e.ProblemID, e.Reason, e.Bucket, e.NextDueAt, e.CreatedAt)
	return err
}

func (r *reviewRepo) Delete(ctx context.Context, userID uuid.UUID, problemID string) error {
	_, err := r.q.ExecContext(ctx,
		"DELETE FROM review_queue WHERE user_id = ? AND problem_id = ?",
		userID, problemID)
	return err
}

func (r *reviewRepo) ListDue(ctx context.Context, userID uuid.UUID, asOf time.Time, limit int) ([]*domain.ReviewEntry, error) {
	rows, err := r.q.QueryContext(ctx, `
		SELECT id, user_id, problem_id, reason, bucket, next_due_at, created_at
		FROM review_queue
		WHERE user_id = ? AND next_due_at <= ?
		ORDER BY next_due_at ASC, created_at ASC
		LIMIT ?`,
		userID, asOf, limit)
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

// -----------------------------------------------------------------------------
// Submissions
// -----------------------------------------------------------------------------

type submissionRepo struct {
	q dbtx
}

const submissionColumns = `
	id, session_id, user_id, problem_id, subject, language, status,
	visible_passed, visible_total, hidden_passed, hidden_total,
	categories, exec_ms, created_at
`

func (r *submissionRepo) Create(ctx context.Context, s *domain.Submission) error {
	var categories any
	if len(s.Categories) > 0 {
		data, err := json.Marshal(s.Categories)
		if err != nil {
			return fmt.Errorf("marshal categories: %w", err)
		}
		categories = string(data)
	}

	_, err := r.q.ExecContext(ctx, `
		INSERT INTO submissions (`+submissionColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		s.ID, s.SessionID, s.UserID, s.ProblemID, string(s.Subject), s.Language, string(s.Status),
		s.VisiblePassed, s.VisibleTotal, s.HiddenPassed, s.HiddenTotal,
		categories, s.ExecMS, s.CreatedAt)
	return err
}

func (r *submissionRepo) Latest(ctx context.Context, userID uuid.UUID, problemID string) (*domain.Submission, error) {
	row := r.q.QueryRowContext(ctx, `
		SELECT `+submissionColumns+`
		FROM submissions
		WHERE user_id = ? AND problem_id = ?
		ORDER BY created_at DESC
		LIMIT 1`,
		userID, problemID)

	s, err := scanSubmission(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrSubmissionNotFound
	}
	return s, err
}

func (r *submissionRepo) Recent(ctx context.Context, userID uuid.UUID, limit int) ([]*domain.Submission, error) {
	rows, err := r.q.QueryContext(ctx, `
		SELECT `+submissionColumns+`
		FROM submissions
		WHERE user_id = ?
		ORDER BY created_at DESC
		LIMIT ?`,
		userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var submissions []*domain.Submission
	for rows.Next() {
		s, err := scanSubmission(rows.Scan)
		if err != nil {
			return nil, err
		}
		submissions = append(submissions, s)
	}
	return submissions, rows.Err()
}

func scanSubmission(scan func(...any) error) (*domain.Submission, error) {
	s := &domain.Submission{}
	var language, categories sql.NullString

	err := scan(
		&s.ID, &s.SessionID, &s.UserID, &s.ProblemID, &s.Subject, &language, &s.Status,
		&s.VisiblePassed, &s.VisibleTotal, &s.HiddenPassed, &s.HiddenTotal,
		&categories, &s.ExecMS, &s.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	s.Language = language.String
	if categories.Valid && categories.String != "" {
		if err := json.Unmarshal([]byte(categories.String), &s.Categories); err != nil {
			return nil, fmt.Errorf("unmarshal categories: %w", err)
		}
	}
	return s, nil
}

// -----------------------------------------------------------------------------
// Sessions
// -----------------------------------------------------------------------------

type sessionRepo struct {
	q dbtx
}

func (r *sessionRepo) Create(ctx context.Context, s *domain.Session) error {
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO sessions (id, user_id, subject, mode, track_id, problem_id,
			status, last_hint_level, started_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		s.ID, s.UserID, string(s.Subject), string(s.Mode), trackIDValue(s.TrackID),
		nullIfEmpty(s.ProblemID), string(s.Status), s.LastHintLevel, s.StartedAt, s.UpdatedAt)
	return err
}

func (r *sessionRepo) Get(ctx context.Context, id uuid.UUID) (*domain.Session, error) {
	row := r.q.QueryRowContext(ctx, `
		SELECT id, user_id, subject, mode, track_id, problem_id,
			status, last_hint_level, started_at, updated_at
		FROM sessions WHERE id = ?`, id)

	s := &domain.Session{}
	var trackID, problemID sql.NullString
	err := row.Scan(
		&s.ID, &s.UserID, &s.Subject, &s.Mode, &trackID, &problemID,
		&s.Status, &s.LastHintLevel, &s.StartedAt, &s.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrSessionNotFound
	}
	if err != nil {
		return nil, err
	}

	if trackID.Valid {
		id, err := uuid.Parse(trackID.String)
		if err != nil {
			return nil, fmt.Errorf("parse track id: %w", err)
		}
		s.TrackID = &id
	}
	s.ProblemID = problemID.String
	return s, nil
}

func (r *sessionRepo) Update(ctx context.Context, s *domain.Session) error {
	result, err := r.q.ExecContext(ctx, `
		UPDATE sessions
		SET problem_id = ?, status = ?, last_hint_level = ?, updated_at = ?
		WHERE id = ?`,
		nullIfEmpty(s.ProblemID), string(s.Status), s.LastHintLevel, s.UpdatedAt, s.ID)
	if err != nil {
		return err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrSessionNotFound
	}
	return nil
}

// -----------------------------------------------------------------------------
// Tracks
// -----------------------------------------------------------------------------

type trackRepo struct {
	q dbtx
}

func (r *trackRepo) GetBySlug(ctx context.Context, slug string) (*domain.Track, error) {
	row := r.q.QueryRowContext(ctx, `
		SELECT id, slug, subject, title, labels, modules, version, created_at
		FROM tracks WHERE slug = ?`, slug)

	t := &domain.Track{}
	var labels, modules sql.NullString
	err := row.Scan(&t.ID, &t.Slug, &t.Subject, &t.Title, &labels, &modules, &t.Version, &t.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrTrackNotFound
	}
	if err != nil {
		return nil, err
	}

	if labels.Valid {
		t.Labels = []byte(labels.String)
	}
	if modules.Valid {
		t.Modules = []byte(modules.String)
	}
	return t, nil
}

func (r *trackRepo) Upsert(ctx context.Context, t *domain.Track) error {
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO tracks (id, slug, subject, title, labels, modules, version, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(slug) DO UPDATE SET
			subject = excluded.subject,
			title = excluded.title,
			labels = excluded.labels,
			modules = excluded.modules,
			version = excluded.version`,
		t.ID, t.Slug, string(t.Subject), t.Title,
		rawToNull(t.Labels), rawToNull(t.Modules),
		t.Version, t.CreatedAt)
	return err
}

func rawToNull(raw []byte) any {
	if len(raw) == 0 {
		return nil
	}
	return string(raw)
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func trackIDValue(id *uuid.UUID) any {
	if id == nil {
		return nil
	}
	return *id
}

// Ensure Store implements domain.Store
var _ domain.Store = (*Store)(nil)
