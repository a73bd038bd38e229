package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// MasteryRepository persists mastery records. Upsert must be atomic at
// the storage boundary so concurrent first-touch updates for the same
// key cannot race a read-then-insert.
type MasteryRepository interface {
	Get(ctx context.Context, userID uuid.UUID, keyType KeyType, keyID string) (*Mastery, error)
	ListByKeys(ctx context.Context, userID uuid.UUID, keyType KeyType, keyIDs []string) ([]*Mastery, error)
	Upsert(ctx context.Context, m *Mastery) error
}

// ReviewRepository persists review queue entries.
type ReviewRepository interface {
	Get(ctx context.Context, userID uuid.UUID, problemID string) (*ReviewEntry, error)
	Upsert(ctx context.Context, e *ReviewEntry) error
	Delete(ctx context.Context, userID uuid.UUID, problemID string) error
	// ListDue returns entries with next_due_at <= asOf, earliest first,
	// ties broken by creation order.
	ListDue(ctx context.Context, userID uuid.UUID, asOf time.Time, limit int) ([]*ReviewEntry, error)
}

// SubmissionRepository persists graded submissions and serves the read
// paths the scorer needs.
type SubmissionRepository interface {
	Create(ctx context.Context, s *Submission) error
	// Latest returns the most recent submission for a user-problem pair.
	Latest(ctx context.Context, userID uuid.UUID, problemID string) (*Submission, error)
	// Recent returns the user's most recent submissions across all
	// problems, newest first.
	Recent(ctx context.Context, userID uuid.UUID, limit int) ([]*Submission, error)
}

// SessionRepository persists learning sessions.
type SessionRepository interface {
	Create(ctx context.Context, s *Session) error
	Get(ctx context.Context, id uuid.UUID) (*Session, error)
	Update(ctx context.Context, s *Session) error
}

// TrackRepository caches track definitions fetched from the Problem Bank.
type TrackRepository interface {
	GetBySlug(ctx context.Context, slug string) (*Track, error)
	Upsert(ctx context.Context, t *Track) error
}

// Store groups the repositories behind one storage backend. WithTx runs
// fn against repositories bound to a single transaction; the transaction
// commits when fn returns nil and rolls back otherwise. Mastery updates
// and the review transition of one graded submission go through WithTx
// so they land together or not at all.
type Store interface {
	Masteries() MasteryRepository
	Reviews() ReviewRepository
	Submissions() SubmissionRepository
	Sessions() SessionRepository
	Tracks() TrackRepository
	WithTx(ctx context.Context, fn func(Store) error) error
}
