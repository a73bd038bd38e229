package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/thinkinginmath/scimigo-co/internal/catalog"
	"github.com/thinkinginmath/scimigo-co/internal/domain"
)

// TrackHandler serves track definitions, cache-first with catalog fallback
type TrackHandler struct {
	store   domain.Store
	catalog catalog.Client
}

// NewTrackHandler creates a new track handler
func NewTrackHandler(store domain.Store, cat catalog.Client) *TrackHandler {
	return &TrackHandler{store: store, catalog: cat}
}

// TrackResponse represents a track in API responses
type TrackResponse struct {
	ID        string          `json:"id"`
	Slug      string          `json:"slug"`
	Subject   string          `json:"subject"`
	Title     string          `json:"title"`
	Labels    json.RawMessage `json:"labels,omitempty"`
	Modules   json.RawMessage `json:"modules,omitempty"`
	Version   string          `json:"version"`
	CreatedAt string          `json:"created_at"`
}

// Get returns a track definition by slug
func (h *TrackHandler) Get(w http.ResponseWriter, r *http.Request) {
	slug := r.PathValue("slug")

	track, err := h.store.Tracks().GetBySlug(r.Context(), slug)
	if errors.Is(err, domain.ErrTrackNotFound) {
		track, err = h.catalog.GetTrack(r.Context(), slug)
		if errors.Is(err, domain.ErrNotFound) {
			err = domain.ErrTrackNotFound
		}
	}
	if err != nil {
		domainError(w, err)
		return
	}

	jsonResponse(w, http.StatusOK, TrackResponse{
		ID:        track.ID.String(),
		Slug:      track.Slug,
		Subject:   string(track.Subject),
		Title:     track.Title,
		Labels:    track.Labels,
		Modules:   track.Modules,
		Version:   track.Version,
		CreatedAt: track.CreatedAt.Format(time.RFC3339),
	})
}
