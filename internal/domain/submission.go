package domain

import (
	"time"

	"github.com/google/uuid"
)

// SubmissionStatus is the terminal grade assigned by the evaluation service.
type SubmissionStatus string

const (
	StatusPassed  SubmissionStatus = "passed"
	StatusFailed  SubmissionStatus = "failed"
	StatusTimeout SubmissionStatus = "timeout"
	StatusError   SubmissionStatus = "error"
)

// Passed reports whether the submission counts as a success signal for
// mastery and review updates.
func (s SubmissionStatus) Passed() bool {
	return s == StatusPassed
}

// Submission is one graded attempt at a problem. The orchestrator owns
// persistence; grading itself happens in the external evaluation service.
type Submission struct {
	ID            uuid.UUID
	SessionID     uuid.UUID
	UserID        uuid.UUID
	ProblemID     string
	Subject       Subject
	Language      string
	Status        SubmissionStatus
	VisiblePassed int
	VisibleTotal  int
	HiddenPassed  int
	HiddenTotal   int
	Categories    []string
	ExecMS        int
	CreatedAt     time.Time
}

// SessionMode is how a learning session was started.
type SessionMode string

const (
	ModePractice SessionMode = "practice"
	ModeMock     SessionMode = "mock"
	ModeTrack    SessionMode = "track"
)

// SessionStatus is the lifecycle state of a learning session.
type SessionStatus string

const (
	SessionActive    SessionStatus = "active"
	SessionCompleted SessionStatus = "completed"
	SessionAbandoned SessionStatus = "abandoned"
)

// Session is a learning session. It is the unit callers use to drive
// submissions and recommendations; it owns no personalization state.
type Session struct {
	ID            uuid.UUID
	UserID        uuid.UUID
	Subject       Subject
	Mode          SessionMode
	TrackID       *uuid.UUID
	ProblemID     string
	Status        SessionStatus
	LastHintLevel int
	StartedAt     time.Time
	UpdatedAt     time.Time
}

// NewSession creates an active session for a user.
func NewSession(userID uuid.UUID, subject Subject, mode SessionMode, trackID *uuid.UUID) *Session {
	now := time.Now()
	return &Session{
		ID:        uuid.New(),
		UserID:    userID,
		Subject:   subject,
		Mode:      mode,
		TrackID:   trackID,
		Status:    SessionActive,
		StartedAt: now,
		UpdatedAt: now,
	}
}

// Active reports whether the session still accepts submissions.
func (s *Session) Active() bool {
	return s.Status == SessionActive
}

// Complete marks the session finished.
func (s *Session) Complete(now time.Time) {
	s.Status = SessionCompleted
	s.UpdatedAt = now
}

// Abandon marks the session abandoned.
func (s *Session) Abandon(now time.Time) {
	s.Status = SessionAbandoned
	s.UpdatedAt = now
}

// SetProblem records the problem currently being worked in the session.
func (s *Session) SetProblem(problemID string, now time.Time) {
	s.ProblemID = problemID
	s.UpdatedAt = now
}
