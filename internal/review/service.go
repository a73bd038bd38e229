// Package review schedules failed problems for spaced repetition along a
// fixed interval ladder.
package review

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/thinkinginmath/scimigo-co/internal/domain"
)

const defaultDueLimit = 50

// Service manages review queue entries.
type Service struct {
	store  domain.Store
	ladder domain.ReviewLadder
	logger *slog.Logger
}

// NewService creates a review service. The ladder must be valid.
func NewService(store domain.Store, ladder domain.ReviewLadder, logger *slog.Logger) (*Service, error) {
	if err := ladder.Validate(); err != nil {
		return nil, fmt.Errorf("review ladder: %w", err)
	}
	return &Service{store: store, ladder: ladder, logger: logger}, nil
}

// WithStore returns a copy of the service bound to a different store,
// typically a transaction obtained from Store.WithTx.
func (s *Service) WithStore(store domain.Store) *Service {
	return &Service{store: store, ladder: s.ladder, logger: s.logger}
}

// MarkResult transitions a problem's review schedule after an attempt.
//
// A failure creates an entry at the first rung, or resets an existing entry
// to it. A success advances an existing entry one rung, deleting it once it
// clears the last rung; success with no entry changes nothing.
func (s *Service) MarkResult(ctx context.Context, userID uuid.UUID, problemID string, success bool, now time.Time) error {
	entry, err := s.store.Reviews().Get(ctx, userID, problemID)
	if err != nil && !errors.Is(err, domain.ErrReviewEntryNotFound) {
		return fmt.Errorf("get review entry %s: %w", problemID, err)
	}
	missing := errors.Is(err, domain.ErrReviewEntryNotFound)

	if !success {
		if missing {
			entry = domain.NewReviewEntry(userID, problemID, domain.ReasonFail, now, s.ladder)
		} else {
			entry.Reset(now, s.ladder)
		}
		if err := s.store.Reviews().Upsert(ctx, entry); err != nil {
			return fmt.Errorf("upsert review entry %s: %w", problemID, err)
		}
		s.logger.Debug("review scheduled",
			"user_id", userID,
			"problem_id", problemID,
			"bucket", entry.Bucket,
			"next_due_at", entry.NextDueAt)
		return nil
	}

	// Success on a problem that was never failed needs no schedule.
	if missing {
		return nil
	}

	graduated, err := entry.Advance(now, s.ladder)
	if err != nil {
		return fmt.Errorf("advance review entry %s: %w", problemID, err)
	}

	if graduated {
		if err := s.store.Reviews().Delete(ctx, userID, problemID); err != nil {
			return fmt.Errorf("delete review entry %s: %w", problemID, err)
		}
		s.logger.Debug("review graduated", "user_id", userID, "problem_id", problemID)
		return nil
	}

	if err := s.store.Reviews().Upsert(ctx, entry); err != nil {
		return fmt.Errorf("upsert review entry %s: %w", problemID, err)
	}
	s.logger.Debug("review advanced",
		"user_id", userID,
		"problem_id", problemID,
		"bucket", entry.Bucket,
		"next_due_at", entry.NextDueAt)
	return nil
}

// Due lists review entries due at or before asOf, soonest first.
func (s *Service) Due(ctx context.Context, userID uuid.UUID, asOf time.Time, limit int) ([]*domain.ReviewEntry, error) {
	if limit <= 0 {
		limit = defaultDueLimit
	}
	entries, err := s.store.Reviews().ListDue(ctx, userID, asOf, limit)
	if err != nil {
		return nil, fmt.Errorf("list due reviews: %w", err)
	}
	return entries, nil
}

// PeekDue returns the most overdue entry, or nil when nothing is due.
func (s *Service) PeekDue(ctx context.Context, userID uuid.UUID, asOf time.Time) (*domain.ReviewEntry, error) {
	entries, err := s.store.Reviews().ListDue(ctx, userID, asOf, 1)
	if err != nil {
		return nil, fmt.Errorf("peek due reviews: %w", err)
	}
	if len(entries) == 0 {
		return nil, nil
	}
	return entries[0], nil
}
