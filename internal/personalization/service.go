package personalization

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/thinkinginmath/scimigo-co/internal/catalog"
	"github.com/thinkinginmath/scimigo-co/internal/domain"
	"github.com/thinkinginmath/scimigo-co/internal/mastery"
	"github.com/thinkinginmath/scimigo-co/internal/review"
)

// Recommendation sources, in precedence order.
const (
	SourceReview   = "review"
	SourceScored   = "scored"
	SourceFallback = "fallback"
)

const recentWindow = 5

// Recommendation is the outcome of a next-problem request.
type Recommendation struct {
	ProblemID string  `json:"problem_id"`
	Source    string  `json:"source"`
	Score     float64 `json:"score,omitempty"`
}

// Service answers "what should this user work on next" and folds graded
// outcomes back into mastery and review state.
type Service struct {
	store   domain.Store
	catalog catalog.Client
	scorer  *Scorer
	mastery *mastery.Service
	reviews *review.Service
	logger  *slog.Logger
}

// NewService creates the recommendation service.
func NewService(
	store domain.Store,
	cat catalog.Client,
	scorer *Scorer,
	masterySvc *mastery.Service,
	reviewSvc *review.Service,
	logger *slog.Logger,
) *Service {
	return &Service{
		store:   store,
		catalog: cat,
		scorer:  scorer,
		mastery: masterySvc,
		reviews: reviewSvc,
		logger:  logger,
	}
}

// Recommend picks the next problem for a user.
//
// A due review item not in the exclusion set always wins over fresh
// candidates. Otherwise candidates from the catalog are filtered, scored
// and the best is returned; if filtering removes everything, the first
// unfiltered candidate serves as fallback. ErrNoRecommendation means
// there is genuinely nothing to suggest, including when the catalog is
// unreachable.
func (s *Service) Recommend(ctx context.Context, userID uuid.UUID, subject domain.Subject, trackID *uuid.UUID, exclude []string) (*Recommendation, error) {
	now := time.Now().UTC()
	excluded := make(map[string]bool, len(exclude))
	for _, id := range exclude {
		excluded[id] = true
	}

	due, err := s.reviews.PeekDue(ctx, userID, now)
	if err != nil {
		return nil, fmt.Errorf("peek due reviews: %w", err)
	}
	if due != nil && !excluded[due.ProblemID] {
		s.logger.Debug("recommending due review",
			"user_id", userID,
			"problem_id", due.ProblemID,
			"bucket", due.Bucket)
		return &Recommendation{ProblemID: due.ProblemID, Source: SourceReview}, nil
	}

	candidates, err := s.catalog.GetCandidates(ctx, subject, trackID)
	if err != nil {
		// Recommendation is best-effort; a catalog outage degrades to
		// "nothing to suggest" rather than an error response.
		s.logger.Warn("candidate fetch failed",
			"user_id", userID,
			"subject", subject,
			"error", err)
		return nil, domain.ErrNoRecommendation
	}
	if len(candidates) == 0 {
		return nil, domain.ErrNoRecommendation
	}

	pool := make([]domain.Problem, 0, len(candidates))
	for _, c := range candidates {
		if !excluded[c.ID] {
			pool = append(pool, c)
		}
	}
	if len(pool) == 0 {
		// Everything was excluded; repeating a problem beats suggesting
		// nothing.
		return &Recommendation{ProblemID: candidates[0].ID, Source: SourceFallback}, nil
	}

	best, bestScore, err := s.rank(ctx, userID, pool, now)
	if err != nil {
		return nil, err
	}

	s.logger.Debug("recommending scored candidate",
		"user_id", userID,
		"problem_id", best.ID,
		"score", bestScore,
		"pool_size", len(pool))
	return &Recommendation{ProblemID: best.ID, Source: SourceScored, Score: bestScore}, nil
}

// rank scores every candidate and returns the best, first-wins on ties.
func (s *Service) rank(ctx context.Context, userID uuid.UUID, pool []domain.Problem, now time.Time) (*domain.Problem, float64, error) {
	topicSet := make(map[string]bool)
	for _, c := range pool {
		for _, topic := range c.Topics {
			topicSet[topic] = true
		}
	}
	topics := make([]string, 0, len(topicSet))
	for topic := range topicSet {
		topics = append(topics, topic)
	}

	masteryByTopic, err := s.mastery.Snapshot(ctx, userID, domain.KeyTypeTopic, topics)
	if err != nil {
		return nil, 0, fmt.Errorf("mastery snapshot: %w", err)
	}

	recent, err := s.store.Submissions().Recent(ctx, userID, recentWindow)
	if err != nil {
		return nil, 0, fmt.Errorf("recent submissions: %w", err)
	}

	var best *domain.Problem
	var bestScore float64
	for i := range pool {
		c := &pool[i]

		var lastAttempt *time.Time
		last, err := s.store.Submissions().Latest(ctx, userID, c.ID)
		if err != nil && !errors.Is(err, domain.ErrSubmissionNotFound) {
			return nil, 0, fmt.Errorf("latest submission for %s: %w", c.ID, err)
		}
		if last != nil {
			lastAttempt = &last.CreatedAt
		}

		score := s.scorer.Score(c, Signals{
			Mastery:     masteryByTopic,
			LastAttempt: lastAttempt,
			Recent:      recent,
		}, now)

		if best == nil || score > bestScore {
			best = c
			bestScore = score
		}
	}
	return best, bestScore, nil
}

// RecordOutcome folds one graded submission into learning state: one EMA
// update per topic plus the review-queue transition, all in a single
// transaction so mastery and review never diverge.
//
// When topics is empty the problem's topic tags are fetched from the
// catalog before the transaction opens.
func (s *Service) RecordOutcome(ctx context.Context, userID uuid.UUID, problemID string, topics []string, success bool) error {
	if len(topics) == 0 {
		p, err := s.catalog.GetProblem(ctx, problemID)
		if err != nil {
			return fmt.Errorf("resolve topics for %s: %w", problemID, err)
		}
		topics = p.Topics
	}

	now := time.Now().UTC()
	err := s.store.WithTx(ctx, func(tx domain.Store) error {
		masteries := s.mastery.WithStore(tx)
		for _, topic := range topics {
			if _, err := masteries.Update(ctx, userID, domain.KeyTypeTopic, topic, success, now); err != nil {
				return err
			}
		}
		return s.reviews.WithStore(tx).MarkResult(ctx, userID, problemID, success, now)
	})
	if err != nil {
		return fmt.Errorf("record outcome for %s: %w", problemID, err)
	}

	s.logger.Info("outcome recorded",
		"user_id", userID,
		"problem_id", problemID,
		"topics", topics,
		"success", success)
	return nil
}

// DueReviews lists the user's due review entries, most overdue first.
func (s *Service) DueReviews(ctx context.Context, userID uuid.UUID, limit int) ([]*domain.ReviewEntry, error) {
	return s.reviews.Due(ctx, userID, time.Now().UTC(), limit)
}
