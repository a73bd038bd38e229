package postgres

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/thinkinginmath/scimigo-co/internal/domain"
)

// MasteryRepository implements domain.MasteryRepository using PostgreSQL.
type MasteryRepository struct {
	q querier
}

// Get retrieves a mastery record by its composite key.
func (r *MasteryRepository) Get(ctx context.Context, userID uuid.UUID, keyType domain.KeyType, keyID string) (*domain.Mastery, error) {
	query := `
		SELECT user_id, key_type, key_id, score, ema, updated_at
		FROM mastery WHERE user_id = $1 AND key_type = $2 AND key_id = $3
	`
	m := &domain.Mastery{}
	err := r.q.QueryRow(ctx, query, userID, keyType, keyID).Scan(
		&m.UserID, &m.KeyType, &m.KeyID, &m.Score, &m.EMA, &m.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrMasteryNotFound
	}
	if err != nil {
		return nil, err
	}
	return m, nil
}

// ListByKeys retrieves all mastery records for the given key ids. Keys
// with no record are simply absent from the result.
func (r *MasteryRepository) ListByKeys(ctx context.Context, userID uuid.UUID, keyType domain.KeyType, keyIDs []string) ([]*domain.Mastery, error) {
	if len(keyIDs) == 0 {
		return nil, nil
	}

	query := `
		SELECT user_id, key_type, key_id, score, ema, updated_at
		FROM mastery WHERE user_id = $1 AND key_type = $2 AND key_id = ANY($3)
	`
	rows, err := r.q.Query(ctx, query, userID, keyType, keyIDs)
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

// Upsert inserts or updates a mastery record atomically.
func (r *MasteryRepository) Upsert(ctx context.Context, m *domain.Mastery) error {
	query := `
		INSERT INTO mastery (user_id, key_type, key_id, score, ema, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (user_id, key_type, key_id) DO UPDATE SET
			score = excluded.score,
			ema = excluded.ema,
			updated_at = excluded.updated_at
	`
	_, err := r.q.Exec(ctx, query, m.UserID, m.KeyType, m.KeyID, m.Score, m.EMA, m.UpdatedAt)
	return err
}

// Ensure MasteryRepository implements domain.MasteryRepository
var _ domain.MasteryRepository = (*MasteryRepository)(nil)
