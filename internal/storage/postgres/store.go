package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/thinkinginmath/scimigo-co/internal/domain"
)

// querier is the subset of pgx operations shared by pools and
// transactions; repositories run against either.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store implements domain.Store on top of a pgx pool. A Store created by
// WithTx is bound to one transaction and cannot begin another.
type Store struct {
	pool *pgxpool.Pool
	q    querier

	masteries   *MasteryRepository
	reviews     *ReviewRepository
	submissions *SubmissionRepository
	sessions    *SessionRepository
	tracks      *TrackRepository
}

// NewStore creates a Store over a connection pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool, q: pool}
}

// Masteries returns the mastery repository.
func (s *Store) Masteries() domain.MasteryRepository {
	if s.masteries == nil {
		s.masteries = &MasteryRepository{q: s.q}
	}
	return s.masteries
}

// Reviews returns the review queue repository.
func (s *Store) Reviews() domain.ReviewRepository {
	if s.reviews == nil {
		s.reviews = &ReviewRepository{q: s.q}
	}
	return s.reviews
}

// Submissions returns the submission repository.
func (s *Store) Submissions() domain.SubmissionRepository {
	if s.submissions == nil {
		s.submissions = &SubmissionRepository{q: s.q}
	}
	return s.submissions
}

// Sessions returns the session repository.
func (s *Store) Sessions() domain.SessionRepository {
	if s.sessions == nil {
		s.sessions = &SessionRepository{q: s.q}
	}
	return s.sessions
}

// Tracks returns the track repository.
func (s *Store) Tracks() domain.TrackRepository {
	if s.tracks == nil {
		s.tracks = &TrackRepository{q: s.q}
	}
	return s.tracks
}

// WithTx runs fn against repositories bound to a single transaction.
// The transaction commits when fn returns nil, rolls back otherwise.
func (s *Store) WithTx(ctx context.Context, fn func(domain.Store) error) error {
	if s.pool == nil {
		// Already inside a transaction; nested calls join it.
		return fn(s)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(&Store{q: tx}); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// Ensure Store implements domain.Store
var _ domain.Store = (*Store)(nil)
