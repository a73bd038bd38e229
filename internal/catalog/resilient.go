package catalog

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/felixgeelhaar/fortify/circuitbreaker"
	"github.com/felixgeelhaar/fortify/ferrors"
	"github.com/felixgeelhaar/fortify/retry"
	"github.com/google/uuid"

	"github.com/thinkinginmath/scimigo-co/internal/domain"
)

// ResilientClient wraps a Client with circuit breaking and retry so transient
// Problem Bank failures do not cascade into recommendation failures.
type ResilientClient struct {
	inner    Client
	problems circuitbreaker.CircuitBreaker[*domain.Problem]
	lists    circuitbreaker.CircuitBreaker[[]domain.Problem]
	tracks   circuitbreaker.CircuitBreaker[*domain.Track]

	retryProblem retry.Retry[*domain.Problem]
	retryList    retry.Retry[[]domain.Problem]
	retryTrack   retry.Retry[*domain.Track]

	logger *slog.Logger
}

// NewResilientClient wraps a Problem Bank client with resilience patterns.
func NewResilientClient(inner Client, logger *slog.Logger) *ResilientClient {
	rc := &ResilientClient{
		inner:  inner,
		logger: logger,
	}

	rc.problems = newBreaker[*domain.Problem](logger, "problems")
	rc.lists = newBreaker[[]domain.Problem](logger, "candidates")
	rc.tracks = newBreaker[*domain.Track](logger, "tracks")

	rc.retryProblem = newRetrier[*domain.Problem]()
	rc.retryList = newRetrier[[]domain.Problem]()
	rc.retryTrack = newRetrier[*domain.Track]()

	return rc
}

func newBreaker[T any](logger *slog.Logger, name string) circuitbreaker.CircuitBreaker[T] {
	return circuitbreaker.New[T](circuitbreaker.Config{
		MaxRequests: 2,
		Interval:    10 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts circuitbreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
		OnStateChange: func(from, to circuitbreaker.State) {
			if logger != nil {
				logger.Warn("problem bank circuit state change",
					"endpoint", name,
					"from", from.String(),
					"to", to.String())
			}
		},
	})
}

func newRetrier[T any]() retry.Retry[T] {
	return retry.New[T](retry.Config{
		MaxAttempts:   3,
		InitialDelay:  200 * time.Millisecond,
		MaxDelay:      2 * time.Second,
		Multiplier:    2.0,
		BackoffPolicy: retry.BackoffExponential,
		Jitter:        true,
		IsRetryable:   isRetryable,
	})
}

// GetProblem retrieves a problem through the resilience stack.
func (c *ResilientClient) GetProblem(ctx context.Context, problemID string) (*domain.Problem, error) {
	p, err := c.problems.Execute(ctx, func(ctx context.Context) (*domain.Problem, error) {
		return c.retryProblem.Do(ctx, func(ctx context.Context) (*domain.Problem, error) {
			return c.inner.GetProblem(ctx, problemID)
		})
	})
	return p, mapBreakerError(err)
}

// GetCandidates lists candidate problems through the resilience stack.
func (c *ResilientClient) GetCandidates(ctx context.Context, subject domain.Subject, trackID *uuid.UUID) ([]domain.Problem, error) {
	list, err := c.lists.Execute(ctx, func(ctx context.Context) ([]domain.Problem, error) {
		return c.retryList.Do(ctx, func(ctx context.Context) ([]domain.Problem, error) {
			return c.inner.GetCandidates(ctx, subject, trackID)
		})
	})
	return list, mapBreakerError(err)
}

// GetTrack fetches a track definition through the resilience stack.
func (c *ResilientClient) GetTrack(ctx context.Context, slug string) (*domain.Track, error) {
	t, err := c.tracks.Execute(ctx, func(ctx context.Context) (*domain.Track, error) {
		return c.retryTrack.Do(ctx, func(ctx context.Context) (*domain.Track, error) {
			return c.inner.GetTrack(ctx, slug)
		})
	})
	return t, mapBreakerError(err)
}

// mapBreakerError translates an open circuit into the domain's catalog
// outage sentinel so callers need not know the breaker exists.
func mapBreakerError(err error) error {
	if errors.Is(err, ferrors.ErrCircuitOpen) {
		return domain.ErrCatalogUnavailable
	}
	return err
}

// isRetryable reports whether an error is worth retrying. Not-found is a
// definitive answer; 5xx and transport errors are transient.
func isRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, domain.ErrNotFound) {
		return false
	}

	msg := err.Error()
	for _, pattern := range []string{"status 500", "status 502", "status 503", "status 504", "status 429"} {
		if strings.Contains(msg, pattern) {
			return true
		}
	}
	// Transport-level failures (connection refused, timeouts) surface as
	// wrapped request errors without a status code.
	return strings.Contains(msg, "problem bank request")
}

// Ensure ResilientClient implements Client
var _ Client = (*ResilientClient)(nil)
