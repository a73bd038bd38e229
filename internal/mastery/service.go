// Package mastery maintains per-user skill estimates as exponential moving
// averages over practice outcomes.
package mastery

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/thinkinginmath/scimigo-co/internal/domain"
)

// Service updates and reads mastery records.
type Service struct {
	store  domain.Store
	logger *slog.Logger
}

// NewService creates a mastery service.
func NewService(store domain.Store, logger *slog.Logger) *Service {
	return &Service{store: store, logger: logger}
}

// WithStore returns a copy of the service bound to a different store,
// typically a transaction obtained from Store.WithTx.
func (s *Service) WithStore(store domain.Store) *Service {
	return &Service{store: store, logger: s.logger}
}

// Update folds one outcome into the mastery record for a key, creating the
// record at the neutral prior if the user has no history for it.
func (s *Service) Update(ctx context.Context, userID uuid.UUID, keyType domain.KeyType, keyID string, success bool, now time.Time) (*domain.Mastery, error) {
	m, err := s.store.Masteries().Get(ctx, userID, keyType, keyID)
	if errors.Is(err, domain.ErrMasteryNotFound) {
		m = domain.NewMastery(userID, keyType, keyID)
	} else if err != nil {
		return nil, fmt.Errorf("get mastery %s/%s: %w", keyType, keyID, err)
	}

	m.ApplyOutcome(success, now)

	if err := s.store.Masteries().Upsert(ctx, m); err != nil {
		return nil, fmt.Errorf("upsert mastery %s/%s: %w", keyType, keyID, err)
	}

	s.logger.Debug("mastery updated",
		"user_id", userID,
		"key_type", keyType,
		"key_id", keyID,
		"success", success,
		"score", m.Score)

	return m, nil
}

// Get returns the mastery record for a key, or ErrMasteryNotFound.
func (s *Service) Get(ctx context.Context, userID uuid.UUID, keyType domain.KeyType, keyID string) (*domain.Mastery, error) {
	return s.store.Masteries().Get(ctx, userID, keyType, keyID)
}

// Snapshot returns mastery records for the given keys. Keys with no record
// are absent from the result; what absence means is the caller's call (the
// scorer counts an absent topic as full weakness, the API omits it).
func (s *Service) Snapshot(ctx context.Context, userID uuid.UUID, keyType domain.KeyType, keyIDs []string) (map[string]*domain.Mastery, error) {
	records, err := s.store.Masteries().ListByKeys(ctx, userID, keyType, keyIDs)
	if err != nil {
		return nil, fmt.Errorf("list masteries: %w", err)
	}

	byKey := make(map[string]*domain.Mastery, len(records))
	for _, m := range records {
		byKey[m.KeyID] = m
	}
	return byKey, nil
}
