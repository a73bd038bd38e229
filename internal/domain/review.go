package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ReasonFail is the recorded cause for entries created by a failed attempt.
const ReasonFail = "fail"

// ReviewLadder is the ordered list of day intervals that drives spaced
// repetition. The bucket index of an entry selects its current interval.
type ReviewLadder []int

// DefaultReviewLadder matches the production escalation schedule.
func DefaultReviewLadder() ReviewLadder {
	return ReviewLadder{1, 3, 7, 21}
}

// Validate checks that the ladder is non-empty and strictly ascending.
func (l ReviewLadder) Validate() error {
	if len(l) == 0 {
		return fmt.Errorf("%w: review ladder must not be empty", ErrInvalidInput)
	}
	prev := 0
	for _, days := range l {
		if days <= prev {
			return fmt.Errorf("%w: review ladder must be strictly ascending, got %v", ErrInvalidInput, l)
		}
		prev = days
	}
	return nil
}

// ReviewEntry is one user-problem pair scheduled for spaced re-practice.
type ReviewEntry struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	ProblemID string
	Reason    string
	Bucket    int
	NextDueAt time.Time
	CreatedAt time.Time
}

// NewReviewEntry creates an entry at the bottom of the ladder.
func NewReviewEntry(userID uuid.UUID, problemID, reason string, now time.Time, ladder ReviewLadder) *ReviewEntry {
	return &ReviewEntry{
		ID:        uuid.New(),
		UserID:    userID,
		ProblemID: problemID,
		Reason:    reason,
		Bucket:    0,
		NextDueAt: dueAfter(now, ladder[0]),
		CreatedAt: now,
	}
}

// Reset sends the entry back to bucket 0 after a failed attempt,
// regardless of how far it had climbed.
func (e *ReviewEntry) Reset(now time.Time, ladder ReviewLadder) {
	e.Bucket = 0
	e.NextDueAt = dueAfter(now, ladder[0])
}

// Advance moves the entry up one rung after a successful attempt. It
// returns true when the entry climbs past the last rung and should be
// removed (graduated). A bucket already outside the ladder is a
// programming error and is reported as ErrInvalidBucket.
func (e *ReviewEntry) Advance(now time.Time, ladder ReviewLadder) (graduated bool, err error) {
	if e.Bucket < 0 || e.Bucket >= len(ladder) {
		return false, fmt.Errorf("%w: bucket %d, ladder length %d", ErrInvalidBucket, e.Bucket, len(ladder))
	}
	if e.Bucket+1 >= len(ladder) {
		return true, nil
	}
	e.Bucket++
	e.NextDueAt = dueAfter(now, ladder[e.Bucket])
	return false, nil
}

// Due reports whether the entry is due at the given instant.
func (e *ReviewEntry) Due(now time.Time) bool {
	return !e.NextDueAt.After(now)
}

func dueAfter(now time.Time, days int) time.Time {
	return now.Add(time.Duration(days) * 24 * time.Hour)
}
