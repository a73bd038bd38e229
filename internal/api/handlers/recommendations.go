package handlers

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/thinkinginmath/scimigo-co/internal/domain"
	"github.com/thinkinginmath/scimigo-co/internal/personalization"
)

// RecommendationHandler handles next-problem endpoints
type RecommendationHandler struct {
	recs *personalization.Service
}

// NewRecommendationHandler creates a new recommendation handler
func NewRecommendationHandler(recs *personalization.Service) *RecommendationHandler {
	return &RecommendationHandler{recs: recs}
}

// Next returns the next recommended problem for a user.
//
// Query parameters: subject (required), track_id (optional UUID), exclude
// (optional comma-separated problem ids).
func (h *RecommendationHandler) Next(w http.ResponseWriter, r *http.Request) {
	userID, ok := pathUUID(w, r, "user_id")
	if !ok {
		return
	}

	subject := domain.Subject(r.URL.Query().Get("subject"))
	if !subject.Valid() {
		jsonError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid or missing subject")
		return
	}

	var trackID *uuid.UUID
	if raw := r.URL.Query().Get("track_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			jsonError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid track_id")
			return
		}
		trackID = &id
	}

	var exclude []string
	if raw := r.URL.Query().Get("exclude"); raw != "" {
		for _, id := range strings.Split(raw, ",") {
			if id = strings.TrimSpace(id); id != "" {
				exclude = append(exclude, id)
			}
		}
	}

	rec, err := h.recs.Recommend(r.Context(), userID, subject, trackID, exclude)
	if err != nil {
		domainError(w, err)
		return
	}
	jsonResponse(w, http.StatusOK, rec)
}

// OutcomeRequest is the request body for recording an outcome directly,
// bypassing session submission intake (used by backfill and internal tools).
type OutcomeRequest struct {
	ProblemID string   `json:"problem_id"`
	Topics    []string `json:"topics,omitempty"`
	Success   bool     `json:"success"`
}

// RecordOutcome folds an outcome into mastery and review state
func (h *RecommendationHandler) RecordOutcome(w http.ResponseWriter, r *http.Request) {
	userID, ok := pathUUID(w, r, "user_id")
	if !ok {
		return
	}

	var req OutcomeRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.ProblemID == "" {
		jsonError(w, http.StatusBadRequest, "BAD_REQUEST", "problem_id is required")
		return
	}

	if err := h.recs.RecordOutcome(r.Context(), userID, req.ProblemID, req.Topics, req.Success); err != nil {
		domainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
