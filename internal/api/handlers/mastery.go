package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/thinkinginmath/scimigo-co/internal/domain"
	"github.com/thinkinginmath/scimigo-co/internal/mastery"
)

// MasteryHandler handles mastery read endpoints
type MasteryHandler struct {
	mastery *mastery.Service
}

// NewMasteryHandler creates a new mastery handler
func NewMasteryHandler(m *mastery.Service) *MasteryHandler {
	return &MasteryHandler{mastery: m}
}

// MasteryResponse represents one mastery record in API responses
type MasteryResponse struct {
	KeyType   string  `json:"key_type"`
	KeyID     string  `json:"key_id"`
	Score     int     `json:"score"`
	EMA       float64 `json:"ema"`
	UpdatedAt string  `json:"updated_at"`
}

// List returns a user's mastery records for the requested topics.
//
// Query parameter: topics (comma-separated, required). Topics with no
// history are omitted from the response.
func (h *MasteryHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := pathUUID(w, r, "user_id")
	if !ok {
		return
	}

	raw := r.URL.Query().Get("topics")
	if raw == "" {
		jsonError(w, http.StatusBadRequest, "BAD_REQUEST", "topics query parameter is required")
		return
	}
	var topics []string
	for _, topic := range strings.Split(raw, ",") {
		if topic = strings.TrimSpace(topic); topic != "" {
			topics = append(topics, topic)
		}
	}

	records, err := h.mastery.Snapshot(r.Context(), userID, domain.KeyTypeTopic, topics)
	if err != nil {
		domainError(w, err)
		return
	}

	items := make([]MasteryResponse, 0, len(records))
	for _, topic := range topics {
		m, found := records[topic]
		if !found {
			continue
		}
		items = append(items, MasteryResponse{
			KeyType:   string(m.KeyType),
			KeyID:     m.KeyID,
			Score:     m.Score,
			EMA:       m.EMA,
			UpdatedAt: m.UpdatedAt.Format(time.RFC3339),
		})
	}
	jsonResponse(w, http.StatusOK, map[string]any{"items": items})
}
