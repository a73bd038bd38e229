package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/sqlc-dev/pqtype"

	"github.com/thinkinginmath/scimigo-co/internal/domain"
)

// TrackRepository implements domain.TrackRepository using PostgreSQL.
type TrackRepository struct {
	q querier
}

// GetBySlug retrieves a cached track definition.
func (r *TrackRepository) GetBySlug(ctx context.Context, slug string) (*domain.Track, error) {
	query := `
		SELECT id, slug, subject, title, labels, modules, version, created_at
		FROM tracks WHERE slug = $1
	`
	t := &domain.Track{}
	var labels, modules pqtype.NullRawMessage
	err := r.q.QueryRow(ctx, query, slug).Scan(
		&t.ID, &t.Slug, &t.Subject, &t.Title, &labels, &modules, &t.Version, &t.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrTrackNotFound
	}
	if err != nil {
		return nil, err
	}
	if labels.Valid {
		t.Labels = labels.RawMessage
	}
	if modules.Valid {
		t.Modules = modules.RawMessage
	}
	return t, nil
}

// Upsert caches a track definition, keyed by slug.
func (r *TrackRepository) Upsert(ctx context.Context, t *domain.Track) error {
	query := `
		INSERT INTO tracks (id, slug, subject, title, labels, modules, version, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (slug) DO UPDATE SET
			subject = excluded.subject,
			title = excluded.title,
			labels = excluded.labels,
			modules = excluded.modules,
			version = excluded.version
	`
	_, err := r.q.Exec(ctx, query,
		t.ID, t.Slug, t.Subject, t.Title,
		rawToNull(t.Labels), rawToNull(t.Modules),
		t.Version, t.CreatedAt,
	)
	return err
}

func rawToNull(raw []byte) pqtype.NullRawMessage {
	if len(raw) == 0 {
		return pqtype.NullRawMessage{}
	}
	return pqtype.NullRawMessage{RawMessage: raw, Valid: true}
}

// Ensure TrackRepository implements domain.TrackRepository
var _ domain.TrackRepository = (*TrackRepository)(nil)
