// Package personalization recommends the next problem for a user by
// combining spaced-repetition scheduling with multi-signal candidate scoring.
package personalization

import (
	"fmt"
	"time"

	"github.com/thinkinginmath/scimigo-co/internal/config"
	"github.com/thinkinginmath/scimigo-co/internal/domain"
)

// Signals is the per-user data one candidate is scored against.
type Signals struct {
	// Mastery maps topic id to the user's mastery record. Topics absent
	// from the map have no history.
	Mastery map[string]*domain.Mastery

	// LastAttempt is when the user last submitted this exact problem,
	// nil if never.
	LastAttempt *time.Time

	// Recent holds the user's last few submissions across all problems,
	// most recent first.
	Recent []*domain.Submission
}

// Scorer ranks candidate problems. Scoring is a pure function of the
// provided signals; it performs no I/O.
type Scorer struct {
	weights config.ScoringWeights
}

// NewScorer creates a scorer with validated weights.
func NewScorer(weights config.ScoringWeights) (*Scorer, error) {
	if err := weights.Validate(); err != nil {
		return nil, fmt.Errorf("scoring weights: %w", err)
	}
	return &Scorer{weights: weights}, nil
}

// Score returns the weighted desirability of a candidate, in [0,1].
func (s *Scorer) Score(p *domain.Problem, sig Signals, now time.Time) float64 {
	score := s.weights.Weakness * weaknessScore(p.Topics, sig.Mastery)
	score += s.weights.Novelty * noveltyScore(sig.LastAttempt, now)
	score += s.weights.Difficulty * difficultyScore(p.Difficulty, sig.Recent)
	score += s.weights.Recency * s.weights.RecencyConstant
	return score
}

// weaknessScore is the average inverse mastery over the candidate's topics.
// A topic with no record counts as full weakness: unseen material is
// maximal opportunity, not neutral.
func weaknessScore(topics []string, mastery map[string]*domain.Mastery) float64 {
	if len(topics) == 0 {
		return 0.5
	}

	total := 0.0
	for _, topic := range topics {
		if m, ok := mastery[topic]; ok {
			total += 1.0 - float64(m.Score)/100.0
		} else {
			total += 1.0
		}
	}
	return total / float64(len(topics))
}

// noveltyScore decays with how recently the user attempted this problem.
func noveltyScore(lastAttempt *time.Time, now time.Time) float64 {
	if lastAttempt == nil {
		return 1.0
	}

	days := int(now.Sub(*lastAttempt).Hours() / 24)
	switch {
	case days > 30:
		return 1.0
	case days > 7:
		return 0.7
	case days > 1:
		return 0.3
	default:
		return 0.0
	}
}

// difficultyScore implements adaptive pacing from the pass rate of the
// user's recent submissions: push harder when succeeding, ease off when
// struggling, otherwise hold the middle.
func difficultyScore(difficulty int, recent []*domain.Submission) float64 {
	if len(recent) == 0 {
		if difficulty >= 40 && difficulty <= 60 {
			return 1.0
		}
		return 0.5
	}

	passed := 0
	for _, sub := range recent {
		if sub.Status.Passed() {
			passed++
		}
	}
	passRate := float64(passed) / float64(len(recent))

	switch {
	case passRate > 0.8:
		if difficulty > 60 {
			return 1.0
		}
		return 0.5
	case passRate < 0.4:
		if difficulty < 40 {
			return 1.0
		}
		return 0.3
	default:
		if difficulty >= 40 && difficulty <= 60 {
			return 1.0
		}
		return 0.6
	}
}
