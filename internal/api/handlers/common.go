// Package handlers implements the HTTP endpoints of the orchestrator API.
package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/thinkinginmath/scimigo-co/internal/domain"
)

// errorBody is the JSON structure for error responses
type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to encode JSON response", "error", err)
	}
}

func jsonError(w http.ResponseWriter, status int, code, message string) {
	jsonResponse(w, status, errorBody{Error: errorDetail{Code: code, Message: message}})
}

// domainError maps service errors onto HTTP responses.
func domainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrSessionNotFound):
		jsonError(w, http.StatusNotFound, "NOT_FOUND", "session not found")
	case errors.Is(err, domain.ErrTrackNotFound):
		jsonError(w, http.StatusNotFound, "NOT_FOUND", "track not found")
	case errors.Is(err, domain.ErrMasteryNotFound),
		errors.Is(err, domain.ErrReviewEntryNotFound),
		errors.Is(err, domain.ErrSubmissionNotFound),
		errors.Is(err, domain.ErrNotFound):
		jsonError(w, http.StatusNotFound, "NOT_FOUND", "resource not found")
	case errors.Is(err, domain.ErrSessionClosed):
		jsonError(w, http.StatusConflict, "SESSION_CLOSED", "session no longer accepts submissions")
	case errors.Is(err, domain.ErrConflict):
		jsonError(w, http.StatusConflict, "CONFLICT", err.Error())
	case errors.Is(err, domain.ErrInvalidInput):
		jsonError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error())
	case errors.Is(err, domain.ErrNoRecommendation):
		jsonError(w, http.StatusNotFound, "NO_RECOMMENDATION", "no recommendation available")
	case errors.Is(err, domain.ErrCatalogUnavailable):
		jsonError(w, http.StatusServiceUnavailable, "CATALOG_UNAVAILABLE", "problem catalog is temporarily unavailable")
	default:
		slog.Error("internal error", "error", err)
		jsonError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "an unexpected error occurred")
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		jsonError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid JSON body")
		return false
	}
	return true
}
