// Package session manages learning sessions: the caller-facing unit that
// drives submissions and feeds graded outcomes into personalization.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/thinkinginmath/scimigo-co/internal/catalog"
	"github.com/thinkinginmath/scimigo-co/internal/domain"
)

// OutcomeRecorder folds a graded submission into mastery and review state.
type OutcomeRecorder interface {
	RecordOutcome(ctx context.Context, userID uuid.UUID, problemID string, topics []string, success bool) error
}

// Service manages session lifecycle and submission intake.
type Service struct {
	store    domain.Store
	catalog  catalog.Client
	outcomes OutcomeRecorder
	logger   *slog.Logger
}

// NewService creates a session service.
func NewService(store domain.Store, cat catalog.Client, outcomes OutcomeRecorder, logger *slog.Logger) *Service {
	return &Service{store: store, catalog: cat, outcomes: outcomes, logger: logger}
}

// StartInput describes a session start request.
type StartInput struct {
	UserID    uuid.UUID
	Subject   domain.Subject
	Mode      domain.SessionMode
	TrackSlug string
}

// Start opens a new session. A track slug, when given, is resolved through
// the local cache first and the catalog second.
func (s *Service) Start(ctx context.Context, in StartInput) (*domain.Session, error) {
	if !in.Subject.Valid() {
		return nil, fmt.Errorf("%w: unknown subject %q", domain.ErrInvalidInput, in.Subject)
	}
	switch in.Mode {
	case domain.ModePractice, domain.ModeMock, domain.ModeTrack:
	default:
		return nil, fmt.Errorf("%w: unknown mode %q", domain.ErrInvalidInput, in.Mode)
	}

	var trackID *uuid.UUID
	if in.TrackSlug != "" {
		track, err := s.resolveTrack(ctx, in.TrackSlug)
		if err != nil {
			return nil, err
		}
		trackID = &track.ID
	}

	sess := domain.NewSession(in.UserID, in.Subject, in.Mode, trackID)
	if err := s.store.Sessions().Create(ctx, sess); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}

	s.logger.Info("session started",
		"session_id", sess.ID,
		"user_id", in.UserID,
		"subject", in.Subject,
		"mode", in.Mode)
	return sess, nil
}

// resolveTrack returns the cached track for a slug, fetching and caching it
// from the catalog on a miss.
func (s *Service) resolveTrack(ctx context.Context, slug string) (*domain.Track, error) {
	track, err := s.store.Tracks().GetBySlug(ctx, slug)
	if err == nil {
		return track, nil
	}
	if !errors.Is(err, domain.ErrTrackNotFound) {
		return nil, fmt.Errorf("lookup track %s: %w", slug, err)
	}

	track, err = s.catalog.GetTrack(ctx, slug)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, domain.ErrTrackNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("fetch track %s: %w", slug, err)
	}
	if track.ID == uuid.Nil {
		track.ID = uuid.New()
	}
	if track.CreatedAt.IsZero() {
		track.CreatedAt = time.Now().UTC()
	}

	if err := s.store.Tracks().Upsert(ctx, track); err != nil {
		return nil, fmt.Errorf("cache track %s: %w", slug, err)
	}
	return track, nil
}

// Get returns a session by id.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*domain.Session, error) {
	return s.store.Sessions().Get(ctx, id)
}

// SubmissionInput is one graded attempt reported by the evaluation service.
type SubmissionInput struct {
	SessionID     uuid.UUID
	ProblemID     string
	Language      string
	Status        domain.SubmissionStatus
	VisiblePassed int
	VisibleTotal  int
	HiddenPassed  int
	HiddenTotal   int
	Categories    []string
	Topics        []string
	ExecMS        int
}

// RecordSubmission persists a graded attempt and folds its outcome into
// mastery and review state. The session must be active.
func (s *Service) RecordSubmission(ctx context.Context, in SubmissionInput) (*domain.Submission, error) {
	sess, err := s.store.Sessions().Get(ctx, in.SessionID)
	if err != nil {
		return nil, err
	}
	if !sess.Active() {
		return nil, domain.ErrSessionClosed
	}
	if in.ProblemID == "" {
		return nil, fmt.Errorf("%w: problem id required", domain.ErrInvalidInput)
	}

	now := time.Now().UTC()
	sub := &domain.Submission{
		ID:            uuid.New(),
		SessionID:     sess.ID,
		UserID:        sess.UserID,
		ProblemID:     in.ProblemID,
		Subject:       sess.Subject,
		Language:      in.Language,
		Status:        in.Status,
		VisiblePassed: in.VisiblePassed,
		VisibleTotal:  in.VisibleTotal,
		HiddenPassed:  in.HiddenPassed,
		HiddenTotal:   in.HiddenTotal,
		Categories:    in.Categories,
		ExecMS:        in.ExecMS,
		CreatedAt:     now,
	}
	if err := s.store.Submissions().Create(ctx, sub); err != nil {
		return nil, fmt.Errorf("persist submission: %w", err)
	}

	sess.SetProblem(in.ProblemID, now)
	if err := s.store.Sessions().Update(ctx, sess); err != nil {
		return nil, fmt.Errorf("update session: %w", err)
	}

	// Learning-state updates must not be lost silently; a failure here
	// surfaces to the caller even though the submission row is committed.
	if err := s.outcomes.RecordOutcome(ctx, sess.UserID, in.ProblemID, in.Topics, in.Status.Passed()); err != nil {
		return nil, err
	}

	s.logger.Info("submission recorded",
		"session_id", sess.ID,
		"problem_id", in.ProblemID,
		"status", in.Status)
	return sub, nil
}

// Complete marks a session finished.
func (s *Service) Complete(ctx context.Context, id uuid.UUID) (*domain.Session, error) {
	return s.transition(ctx, id, func(sess *domain.Session, now time.Time) {
		sess.Complete(now)
	})
}

// Abandon marks a session abandoned.
func (s *Service) Abandon(ctx context.Context, id uuid.UUID) (*domain.Session, error) {
	return s.transition(ctx, id, func(sess *domain.Session, now time.Time) {
		sess.Abandon(now)
	})
}

func (s *Service) transition(ctx context.Context, id uuid.UUID, apply func(*domain.Session, time.Time)) (*domain.Session, error) {
	sess, err := s.store.Sessions().Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !sess.Active() {
		return nil, domain.ErrSessionClosed
	}

	apply(sess, time.Now().UTC())
	if err := s.store.Sessions().Update(ctx, sess); err != nil {
		return nil, fmt.Errorf("update session: %w", err)
	}
	return sess, nil
}
