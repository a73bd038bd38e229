package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestReviewLadder_Validate(t *testing.T) {
	tests := []struct {
		name    string
		ladder  ReviewLadder
		wantErr bool
	}{
		{"default ladder", DefaultReviewLadder(), false},
		{"single rung", ReviewLadder{2}, false},
		{"empty", ReviewLadder{}, true},
		{"not ascending", ReviewLadder{1, 3, 3, 7}, true},
		{"descending", ReviewLadder{7, 3, 1}, true},
		{"zero interval", ReviewLadder{0, 3}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.ladder.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v; wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestNewReviewEntry_StartsAtBucketZero(t *testing.T) {
	now := time.Now()
	ladder := DefaultReviewLadder()

	e := NewReviewEntry(uuid.New(), "two-sum", ReasonFail, now, ladder)

	if e.Bucket != 0 {
		t.Errorf("Bucket = %d; want 0", e.Bucket)
	}
	want := now.Add(24 * time.Hour)
	if !e.NextDueAt.Equal(want) {
		t.Errorf("NextDueAt = %v; want %v", e.NextDueAt, want)
	}
}

func TestReviewEntry_Reset_FromAnyBucket(t *testing.T) {
	now := time.Now()
	ladder := DefaultReviewLadder()

	for bucket := 0; bucket < len(ladder); bucket++ {
		e := NewReviewEntry(uuid.New(), "p1", ReasonFail, now, ladder)
		e.Bucket = bucket

		e.Reset(now, ladder)

		if e.Bucket != 0 {
			t.Errorf("bucket %d: Reset() left Bucket = %d; want 0", bucket, e.Bucket)
		}
		want := now.Add(24 * time.Hour)
		if !e.NextDueAt.Equal(want) {
			t.Errorf("bucket %d: NextDueAt = %v; want %v", bucket, e.NextDueAt, want)
		}
	}
}

func TestReviewEntry_Advance(t *testing.T) {
	now := time.Now()
	ladder := DefaultReviewLadder() // [1, 3, 7, 21]

	e := NewReviewEntry(uuid.New(), "p1", ReasonFail, now, ladder)

	// bucket 0 -> 1, due in 3 days
	graduated, err := e.Advance(now, ladder)
	if err != nil {
		t.Fatalf("Advance() error = %v", err)
	}
	if graduated {
		t.Fatal("Advance() from bucket 0 should not graduate")
	}
	if e.Bucket != 1 {
		t.Errorf("Bucket = %d; want 1", e.Bucket)
	}
	if want := now.Add(3 * 24 * time.Hour); !e.NextDueAt.Equal(want) {
		t.Errorf("NextDueAt = %v; want %v", e.NextDueAt, want)
	}
}

func TestReviewEntry_Advance_GraduatesFromLastRung(t *testing.T) {
	now := time.Now()
	ladder := DefaultReviewLadder()

	e := NewReviewEntry(uuid.New(), "p1", ReasonFail, now, ladder)
	e.Bucket = len(ladder) - 1

	graduated, err := e.Advance(now, ladder)
	if err != nil {
		t.Fatalf("Advance() error = %v", err)
	}
	if !graduated {
		t.Error("Advance() from last rung should graduate")
	}
}

func TestReviewEntry_Advance_InvalidBucket(t *testing.T) {
	now := time.Now()
	ladder := DefaultReviewLadder()

	e := NewReviewEntry(uuid.New(), "p1", ReasonFail, now, ladder)
	e.Bucket = len(ladder) // one past the end, should never be stored

	_, err := e.Advance(now, ladder)
	if !errors.Is(err, ErrInvalidBucket) {
		t.Errorf("Advance() error = %v; want ErrInvalidBucket", err)
	}
}

func TestReviewEntry_Due(t *testing.T) {
	now := time.Now()
	e := NewReviewEntry(uuid.New(), "p1", ReasonFail, now, DefaultReviewLadder())

	if e.Due(now) {
		t.Error("entry due one day out should not be due now")
	}
	if !e.Due(now.Add(25 * time.Hour)) {
		t.Error("entry should be due after its interval passes")
	}
	if !e.Due(e.NextDueAt) {
		t.Error("entry should be due exactly at NextDueAt")
	}
}

func TestReviewEntry_FailSuccessCycle(t *testing.T) {
	// Three failures keep resetting to bucket 0; a success then climbs
	// to bucket 1 with a 3 day interval.
	now := time.Now()
	ladder := DefaultReviewLadder()

	e := NewReviewEntry(uuid.New(), "p1", ReasonFail, now, ladder)
	for i := 0; i < 3; i++ {
		e.Reset(now, ladder)
		if e.Bucket != 0 {
			t.Fatalf("failure %d: Bucket = %d; want 0", i+1, e.Bucket)
		}
		if want := now.Add(24 * time.Hour); !e.NextDueAt.Equal(want) {
			t.Fatalf("failure %d: NextDueAt = %v; want %v", i+1, e.NextDueAt, want)
		}
	}

	graduated, err := e.Advance(now, ladder)
	if err != nil || graduated {
		t.Fatalf("Advance() = %v, %v; want false, nil", graduated, err)
	}
	if e.Bucket != 1 {
		t.Errorf("Bucket = %d; want 1", e.Bucket)
	}
	if want := now.Add(3 * 24 * time.Hour); !e.NextDueAt.Equal(want) {
		t.Errorf("NextDueAt = %v; want %v", e.NextDueAt, want)
	}
}
