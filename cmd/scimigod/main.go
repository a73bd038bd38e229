package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/thinkinginmath/scimigo-co/internal/api"
	"github.com/thinkinginmath/scimigo-co/internal/config"
	"github.com/thinkinginmath/scimigo-co/internal/domain"
	"github.com/thinkinginmath/scimigo-co/internal/queue"
	"github.com/thinkinginmath/scimigo-co/internal/storage/postgres"
	"github.com/thinkinginmath/scimigo-co/internal/storage/sqlite"
)

const shutdownTimeout = 30 * time.Second

func main() {
	if err := run(); err != nil {
		slog.Error("daemon error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	setupLogging(cfg.Debug)

	tuning, err := config.LoadTuning(cfg.TuningPath)
	if err != nil {
		return fmt.Errorf("load tuning: %w", err)
	}

	ctx := context.Background()

	store, ping, cleanup, err := openStore(ctx, cfg)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer cleanup()

	appCfg := api.AppConfig{
		Config: cfg,
		Tuning: tuning,
		Store:  store,
		Ping:   ping,
		Logger: slog.Default(),
	}

	// RabbitMQ is optional: without it submissions are still accepted
	// over HTTP, but no eval jobs are dispatched and no graded outcomes
	// are consumed.
	var conn *queue.Connection
	if cfg.RabbitMQURL != "" {
		conn, err = queue.NewConnection(cfg.RabbitMQURL)
		if err != nil {
			slog.Warn("rabbitmq unavailable, eval dispatch disabled", "error", err)
		} else {
			defer conn.Close()
			appCfg.Producer = queue.NewProducer(conn)
		}
	}

	app, err := api.NewApp(appCfg)
	if err != nil {
		return fmt.Errorf("init app: %w", err)
	}

	consumerCtx, stopConsumer := context.WithCancel(ctx)
	defer stopConsumer()
	var consumer *queue.OutcomeConsumer
	if conn != nil {
		consumer = queue.NewOutcomeConsumer(conn, app.OutcomeHandler(), queue.DefaultConsumerConfig())
		if err := consumer.Start(consumerCtx); err != nil {
			return fmt.Errorf("start outcome consumer: %w", err)
		}
	}

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      api.NewRouter(app),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	done := make(chan struct{})
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigCh

		slog.Info("received signal, shutting down", "signal", sig.String())

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("shutdown error", "error", err)
		}
		if consumer != nil {
			consumer.Stop()
		}
		close(done)
	}()

	slog.Info("starting curriculum orchestrator",
		"port", cfg.Port,
		"db_driver", cfg.DatabaseDriver,
		"eval_dispatch", conn != nil,
	)

	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		return fmt.Errorf("server error: %w", err)
	}

	<-done
	slog.Info("daemon stopped")
	return nil
}

// openStore opens and migrates the configured database. It returns the
// store, a readiness probe, and a cleanup function.
func openStore(ctx context.Context, cfg *config.Config) (domain.Store, func(context.Context) error, func(), error) {
	switch cfg.DatabaseDriver {
	case "postgres":
		pool, err := postgres.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, nil, err
		}
		if err := postgres.Migrate(ctx, pool); err != nil {
			pool.Close()
			return nil, nil, nil, fmt.Errorf("migrate: %w", err)
		}
		return postgres.NewStore(pool), pool.Ping, pool.Close, nil
	case "sqlite":
		db, err := sqlite.Open(cfg.SQLitePath)
		if err != nil {
			return nil, nil, nil, err
		}
		if err := db.Migrate(); err != nil {
			db.Close()
			return nil, nil, nil, fmt.Errorf("migrate: %w", err)
		}
		ping := func(ctx context.Context) error { return db.PingContext(ctx) }
		cleanup := func() { db.Close() }
		return sqlite.NewStore(db), ping, cleanup, nil
	default:
		return nil, nil, nil, fmt.Errorf("unsupported database driver %q", cfg.DatabaseDriver)
	}
}

func setupLogging(debug bool) {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	handler := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	slog.SetDefault(slog.New(handler))
}
