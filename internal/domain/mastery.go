package domain

import (
	"math"
	"time"

	"github.com/google/uuid"
)

// KeyType discriminates what a mastery record tracks.
type KeyType string

const (
	KeyTypeTopic   KeyType = "topic"
	KeyTypeOutcome KeyType = "outcome"
)

// EMAAlpha is the smoothing constant for mastery updates. Each outcome
// contributes a fifth of the new estimate, so roughly five attempts are
// needed to substantially shift a topic's mastery.
const EMAAlpha = 0.2

// neutralEMA is the prior assigned to a topic before any outcome is seen.
const neutralEMA = 0.5

// Mastery is a per-user, per-key proficiency record. EMA is the
// authoritative state; Score is a denormalized 0-100 view for querying.
type Mastery struct {
	UserID    uuid.UUID
	KeyType   KeyType
	KeyID     string
	Score     int
	EMA       float64
	UpdatedAt time.Time
}

// NewMastery creates a mastery record with the neutral prior.
func NewMastery(userID uuid.UUID, keyType KeyType, keyID string) *Mastery {
	return &Mastery{
		UserID:    userID,
		KeyType:   keyType,
		KeyID:     keyID,
		EMA:       neutralEMA,
		Score:     scoreFromEMA(neutralEMA),
		UpdatedAt: time.Now(),
	}
}

// ApplyOutcome folds one pass/fail outcome into the EMA and recomputes
// the derived score. EMA stays within [0,1] by construction.
func (m *Mastery) ApplyOutcome(success bool, now time.Time) {
	outcome := 0.0
	if success {
		outcome = 1.0
	}
	m.EMA = EMAAlpha*outcome + (1-EMAAlpha)*m.EMA
	m.Score = scoreFromEMA(m.EMA)
	m.UpdatedAt = now
}

func scoreFromEMA(ema float64) int {
	return int(math.Round(ema * 100))
}
