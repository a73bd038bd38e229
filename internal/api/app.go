package api

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/thinkinginmath/scimigo-co/internal/catalog"
	"github.com/thinkinginmath/scimigo-co/internal/config"
	"github.com/thinkinginmath/scimigo-co/internal/domain"
	"github.com/thinkinginmath/scimigo-co/internal/mastery"
	"github.com/thinkinginmath/scimigo-co/internal/personalization"
	"github.com/thinkinginmath/scimigo-co/internal/queue"
	"github.com/thinkinginmath/scimigo-co/internal/review"
	"github.com/thinkinginmath/scimigo-co/internal/session"
)

// App holds all application dependencies
type App struct {
	Config          *config.Config
	Tuning          *config.Tuning
	Store           domain.Store
	Catalog         catalog.Client
	Mastery         *mastery.Service
	Reviews         *review.Service
	Personalization *personalization.Service
	Sessions        *session.Service
	Producer        *queue.Producer
	Logger          *slog.Logger

	// Ping reports storage health for the readiness probe.
	Ping func(context.Context) error
}

// AppConfig holds configuration for application initialization
type AppConfig struct {
	Config  *config.Config
	Tuning  *config.Tuning
	Store   domain.Store
	Catalog catalog.Client // built from Config when nil
	// Producer is optional; without it submissions are accepted but no
	// eval jobs are dispatched.
	Producer *queue.Producer
	Ping     func(context.Context) error
	Logger   *slog.Logger
}

// NewApp creates a new application instance with all services wired
func NewApp(cfg AppConfig) (*App, error) {
	if cfg.Store == nil {
		return nil, fmt.Errorf("store is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Tuning == nil {
		cfg.Tuning = config.DefaultTuning()
	}

	cat := cfg.Catalog
	if cat == nil {
		timeout := time.Duration(cfg.Config.CatalogTimeout) * time.Second
		httpClient := catalog.NewHTTPClient(cfg.Config.ProblemBankBase, timeout)
		cat = catalog.NewResilientClient(httpClient, cfg.Logger)
	}

	scorer, err := personalization.NewScorer(cfg.Tuning.Weights)
	if err != nil {
		return nil, fmt.Errorf("init scorer: %w", err)
	}

	masterySvc := mastery.NewService(cfg.Store, cfg.Logger)

	reviewSvc, err := review.NewService(cfg.Store, cfg.Tuning.ReviewLadder, cfg.Logger)
	if err != nil {
		return nil, fmt.Errorf("init review service: %w", err)
	}

	personalizationSvc := personalization.NewService(cfg.Store, cat, scorer, masterySvc, reviewSvc, cfg.Logger)
	sessionSvc := session.NewService(cfg.Store, cat, personalizationSvc, cfg.Logger)

	return &App{
		Config:          cfg.Config,
		Tuning:          cfg.Tuning,
		Store:           cfg.Store,
		Catalog:         cat,
		Mastery:         masterySvc,
		Reviews:         reviewSvc,
		Personalization: personalizationSvc,
		Sessions:        sessionSvc,
		Producer:        cfg.Producer,
		Logger:          cfg.Logger,
		Ping:            cfg.Ping,
	}, nil
}

// OutcomeHandler returns the queue handler that folds graded outcomes from
// the evaluation service into submission and learning state.
func (a *App) OutcomeHandler() queue.OutcomeHandler {
	return func(ctx context.Context, outcome *queue.Outcome) error {
		_, err := a.Sessions.RecordSubmission(ctx, session.SubmissionInput{
			SessionID:     outcome.SessionID,
			ProblemID:     outcome.ProblemID,
			Status:        outcome.Status,
			VisiblePassed: outcome.VisiblePassed,
			VisibleTotal:  outcome.VisibleTotal,
			HiddenPassed:  outcome.HiddenPassed,
			HiddenTotal:   outcome.HiddenTotal,
			Categories:    outcome.Categories,
			Topics:        outcome.Topics,
			ExecMS:        outcome.ExecMS,
		})
		return err
	}
}
