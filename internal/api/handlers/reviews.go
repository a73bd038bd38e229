package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/thinkinginmath/scimigo-co/internal/domain"
	"github.com/thinkinginmath/scimigo-co/internal/personalization"
)

// ReviewHandler handles review queue endpoints
type ReviewHandler struct {
	recs *personalization.Service
}

// NewReviewHandler creates a new review handler
func NewReviewHandler(recs *personalization.Service) *ReviewHandler {
	return &ReviewHandler{recs: recs}
}

// ReviewEntryResponse represents a review entry in API responses
type ReviewEntryResponse struct {
	ProblemID string `json:"problem_id"`
	Reason    string `json:"reason"`
	Bucket    int    `json:"bucket"`
	NextDueAt string `json:"next_due_at"`
	CreatedAt string `json:"created_at"`
}

func toReviewEntryResponse(e *domain.ReviewEntry) ReviewEntryResponse {
	return ReviewEntryResponse{
		ProblemID: e.ProblemID,
		Reason:    e.Reason,
		Bucket:    e.Bucket,
		NextDueAt: e.NextDueAt.Format(time.RFC3339),
		CreatedAt: e.CreatedAt.Format(time.RFC3339),
	}
}

// Due lists a user's due review entries, most overdue first
func (h *ReviewHandler) Due(w http.ResponseWriter, r *http.Request) {
	userID, ok := pathUUID(w, r, "user_id")
	if !ok {
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	entries, err := h.recs.DueReviews(r.Context(), userID, limit)
	if err != nil {
		domainError(w, err)
		return
	}

	items := make([]ReviewEntryResponse, 0, len(entries))
	for _, e := range entries {
		items = append(items, toReviewEntryResponse(e))
	}
	jsonResponse(w, http.StatusOK, map[string]any{"items": items})
}
