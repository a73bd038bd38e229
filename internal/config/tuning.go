package config

import (
	"fmt"
	"math"
	"os"

	"gopkg.in/yaml.v3"
)

// Tuning holds the personalization knobs: scoring weights and the spaced
// repetition ladder. It is data, not code; ops can adjust it without a
// redeploy of the engine.
type Tuning struct {
	Weights      ScoringWeights `yaml:"weights"`
	ReviewLadder []int          `yaml:"review_ladder"`
}

// ScoringWeights are the per-signal weights of the problem scorer. They
// must sum to 1.0.
type ScoringWeights struct {
	Weakness   float64 `yaml:"weakness"`
	Novelty    float64 `yaml:"novelty"`
	Difficulty float64 `yaml:"difficulty"`
	// Recency also carries the placeholder constant returned by the
	// recency/diversity signal until its real computation is specified.
	Recency         float64 `yaml:"recency"`
	RecencyConstant float64 `yaml:"recency_constant"`
}

// DefaultTuning returns the production defaults.
func DefaultTuning() *Tuning {
	return &Tuning{
		Weights: ScoringWeights{
			Weakness:        0.4,
			Novelty:         0.2,
			Difficulty:      0.25,
			Recency:         0.15,
			RecencyConstant: 0.5,
		},
		ReviewLadder: []int{1, 3, 7, 21},
	}
}

// LoadTuning reads a tuning file, layering it over the defaults. An
// empty path returns the defaults. The result is validated.
func LoadTuning(path string) (*Tuning, error) {
	t := DefaultTuning()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read tuning file: %w", err)
		}
		if err := yaml.Unmarshal(data, t); err != nil {
			return nil, fmt.Errorf("parse tuning file: %w", err)
		}
	}

	if err := t.Validate(); err != nil {
		return nil, err
	}
	return t, nil
}

// Validate checks the weight invariants the scorer relies on.
func (w ScoringWeights) Validate() error {
	for name, v := range map[string]float64{
		"weakness":   w.Weakness,
		"novelty":    w.Novelty,
		"difficulty": w.Difficulty,
		"recency":    w.Recency,
	} {
		if v < 0 || v > 1 {
			return fmt.Errorf("weight %s = %v; must be within [0,1]", name, v)
		}
	}

	sum := w.Weakness + w.Novelty + w.Difficulty + w.Recency
	if math.Abs(sum-1.0) > 1e-9 {
		return fmt.Errorf("scoring weights must sum to 1.0, got %v", sum)
	}

	if w.RecencyConstant < 0 || w.RecencyConstant > 1 {
		return fmt.Errorf("recency_constant = %v; must be within [0,1]", w.RecencyConstant)
	}
	return nil
}

// Validate checks the invariants the scorer and review queue rely on.
func (t *Tuning) Validate() error {
	if err := t.Weights.Validate(); err != nil {
		return err
	}

	if len(t.ReviewLadder) == 0 {
		return fmt.Errorf("review_ladder must not be empty")
	}
	prev := 0
	for _, days := range t.ReviewLadder {
		if days <= prev {
			return fmt.Errorf("review_ladder must be strictly ascending, got %v", t.ReviewLadder)
		}
		prev = days
	}

	return nil
}
