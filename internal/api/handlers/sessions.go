package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/thinkinginmath/scimigo-co/internal/domain"
	"github.com/thinkinginmath/scimigo-co/internal/queue"
	"github.com/thinkinginmath/scimigo-co/internal/session"
)

// SessionHandler handles session lifecycle endpoints
type SessionHandler struct {
	sessions *session.Service
	producer *queue.Producer
}

// NewSessionHandler creates a new session handler
func NewSessionHandler(sessions *session.Service, producer *queue.Producer) *SessionHandler {
	return &SessionHandler{sessions: sessions, producer: producer}
}

// SessionResponse represents a session in API responses
type SessionResponse struct {
	ID        string  `json:"id"`
	UserID    string  `json:"user_id"`
	Subject   string  `json:"subject"`
	Mode      string  `json:"mode"`
	TrackID   *string `json:"track_id,omitempty"`
	ProblemID string  `json:"problem_id,omitempty"`
	Status    string  `json:"status"`
	StartedAt string  `json:"started_at"`
	UpdatedAt string  `json:"updated_at"`
}

func toSessionResponse(s *domain.Session) SessionResponse {
	resp := SessionResponse{
		ID:        s.ID.String(),
		UserID:    s.UserID.String(),
		Subject:   string(s.Subject),
		Mode:      string(s.Mode),
		ProblemID: s.ProblemID,
		Status:    string(s.Status),
		StartedAt: s.StartedAt.Format(time.RFC3339),
		UpdatedAt: s.UpdatedAt.Format(time.RFC3339),
	}
	if s.TrackID != nil {
		id := s.TrackID.String()
		resp.TrackID = &id
	}
	return resp
}

// StartSessionRequest is the request body for starting a session
type StartSessionRequest struct {
	UserID    string `json:"user_id"`
	Subject   string `json:"subject"`
	Mode      string `json:"mode"`
	TrackSlug string `json:"track_slug,omitempty"`
}

// Start opens a new learning session
func (h *SessionHandler) Start(w http.ResponseWriter, r *http.Request) {
	var req StartSessionRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	userID, err := uuid.Parse(req.UserID)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid user_id")
		return
	}

	sess, err := h.sessions.Start(r.Context(), session.StartInput{
		UserID:    userID,
		Subject:   domain.Subject(req.Subject),
		Mode:      domain.SessionMode(req.Mode),
		TrackSlug: req.TrackSlug,
	})
	if err != nil {
		domainError(w, err)
		return
	}

	jsonResponse(w, http.StatusCreated, toSessionResponse(sess))
}

// Get returns a session by id
func (h *SessionHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}

	sess, err := h.sessions.Get(r.Context(), id)
	if err != nil {
		domainError(w, err)
		return
	}
	jsonResponse(w, http.StatusOK, toSessionResponse(sess))
}

// Complete marks a session finished
func (h *SessionHandler) Complete(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.sessions.Complete)
}

// Abandon marks a session abandoned
func (h *SessionHandler) Abandon(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.sessions.Abandon)
}

func (h *SessionHandler) transition(w http.ResponseWriter, r *http.Request, apply func(ctx context.Context, id uuid.UUID) (*domain.Session, error)) {
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}

	sess, err := apply(r.Context(), id)
	if err != nil {
		domainError(w, err)
		return
	}
	jsonResponse(w, http.StatusOK, toSessionResponse(sess))
}

// SubmitRequest is the request body for reporting a graded attempt
type SubmitRequest struct {
	ProblemID     string   `json:"problem_id"`
	Language      string   `json:"language,omitempty"`
	Status        string   `json:"status"`
	VisiblePassed int      `json:"visible_passed"`
	VisibleTotal  int      `json:"visible_total"`
	HiddenPassed  int      `json:"hidden_passed"`
	HiddenTotal   int      `json:"hidden_total"`
	Categories    []string `json:"categories,omitempty"`
	Topics        []string `json:"topics,omitempty"`
	ExecMS        int      `json:"exec_ms"`
}

// Submit records a graded submission against a session
func (h *SessionHandler) Submit(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}

	var req SubmitRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	switch domain.SubmissionStatus(req.Status) {
	case domain.StatusPassed, domain.StatusFailed, domain.StatusTimeout, domain.StatusError:
	default:
		jsonError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid status")
		return
	}

	sub, err := h.sessions.RecordSubmission(r.Context(), session.SubmissionInput{
		SessionID:     id,
		ProblemID:     req.ProblemID,
		Language:      req.Language,
		Status:        domain.SubmissionStatus(req.Status),
		VisiblePassed: req.VisiblePassed,
		VisibleTotal:  req.VisibleTotal,
		HiddenPassed:  req.HiddenPassed,
		HiddenTotal:   req.HiddenTotal,
		Categories:    req.Categories,
		Topics:        req.Topics,
		ExecMS:        req.ExecMS,
	})
	if err != nil {
		domainError(w, err)
		return
	}

	jsonResponse(w, http.StatusCreated, map[string]any{
		"submission_id": sub.ID.String(),
		"status":        string(sub.Status),
		"created_at":    sub.CreatedAt.Format(time.RFC3339),
	})
}

// EvalRequest is the request body for dispatching code to evaluation
type EvalRequest struct {
	ProblemID string            `json:"problem_id"`
	Language  string            `json:"language"`
	Code      map[string]string `json:"code"`
	Tests     string            `json:"tests,omitempty"`
	Timeout   int               `json:"timeout,omitempty"`
}

// Eval dispatches a grading job to the evaluation service via the queue.
// The graded outcome arrives asynchronously on the outcome queue.
func (h *SessionHandler) Eval(w http.ResponseWriter, r *http.Request) {
	if h.producer == nil {
		jsonError(w, http.StatusServiceUnavailable, "EVAL_UNAVAILABLE", "evaluation dispatch is not configured")
		return
	}

	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}

	var req EvalRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.ProblemID == "" || len(req.Code) == 0 {
		jsonError(w, http.StatusBadRequest, "BAD_REQUEST", "problem_id and code are required")
		return
	}

	sess, err := h.sessions.Get(r.Context(), id)
	if err != nil {
		domainError(w, err)
		return
	}
	if !sess.Active() {
		domainError(w, domain.ErrSessionClosed)
		return
	}

	tests := req.Tests
	if tests == "" {
		tests = "all"
	}

	job := &queue.EvalJob{
		ID:        uuid.New(),
		SessionID: sess.ID,
		UserID:    sess.UserID,
		ProblemID: req.ProblemID,
		Subject:   sess.Subject,
		Language:  req.Language,
		Code:      req.Code,
		Tests:     tests,
		Timeout:   req.Timeout,
	}
	if err := h.producer.PublishEvalJob(r.Context(), job); err != nil {
		jsonError(w, http.StatusServiceUnavailable, "EVAL_UNAVAILABLE", "failed to dispatch eval job")
		return
	}

	jsonResponse(w, http.StatusAccepted, map[string]string{
		"job_id": job.ID.String(),
	})
}

// pathUUID parses a UUID path value, writing a 400 on failure.
func pathUUID(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue(name))
	if err != nil {
		jsonError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid "+name)
		return uuid.Nil, false
	}
	return id, true
}
