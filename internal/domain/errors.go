package domain

import "errors"

// -----------------------------------------------------------------------------
// Domain Errors
// These errors represent domain-level failures and are used by repositories
// and services to communicate domain-specific error conditions.
// -----------------------------------------------------------------------------

// Mastery errors
var (
	ErrMasteryNotFound = errors.New("mastery record not found")
)

// Review queue errors
var (
	ErrReviewEntryNotFound = errors.New("review entry not found")
	// ErrInvalidBucket signals a bucket index outside the configured ladder.
	// The transition rules make this unreachable; seeing it means a bug.
	ErrInvalidBucket = errors.New("review bucket outside ladder bounds")
)

// Session errors
var (
	ErrSessionNotFound = errors.New("session not found")
	ErrSessionClosed   = errors.New("session is not active")
)

// Submission errors
var (
	ErrSubmissionNotFound = errors.New("submission not found")
)

// Track errors
var (
	ErrTrackNotFound = errors.New("track not found")
)

// Recommendation errors
var (
	ErrNoRecommendation = errors.New("no recommendation available")
)

// Catalog errors
var (
	ErrCatalogUnavailable = errors.New("problem catalog unavailable")
)

// General errors
var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrInvalidInput = errors.New("invalid input")
)
