package review

import (
	"errors"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/thinkinginmath/scimigo-co/internal/domain"
	"github.com/thinkinginmath/scimigo-co/internal/storage/sqlite"
)

func newTestService(t *testing.T) (*Service, domain.Store) {
	t.Helper()

	db, err := sqlite.Open(filepath.Join(t.TempDir(), "co.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := db.Migrate(); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	store := sqlite.NewStore(db)
	svc, err := NewService(store, domain.DefaultReviewLadder(), slog.New(slog.DiscardHandler))
	if err != nil {
		t.Fatalf("NewService() error = %v", err)
	}
	return svc, store
}

func TestNewService_RejectsInvalidLadder(t *testing.T) {
	if _, err := NewService(nil, domain.ReviewLadder{3, 1}, slog.New(slog.DiscardHandler)); err == nil {
		t.Error("NewService() with descending ladder should fail")
	}
}

func TestMarkResult_FailureCreatesEntry(t *testing.T) {
	svc, store := newTestService(t)
	userID := uuid.New()
	now := time.Now().UTC().Truncate(time.Second)

	if err := svc.MarkResult(t.Context(), userID, "two-sum", false, now); err != nil {
		t.Fatalf("MarkResult() error = %v", err)
	}

	entry, err := store.Reviews().Get(t.Context(), userID, "two-sum")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if entry.Bucket != 0 {
		t.Errorf("Bucket = %d; want 0", entry.Bucket)
	}
	if want := now.AddDate(0, 0, 1); !entry.NextDueAt.Equal(want) {
		t.Errorf("NextDueAt = %v; want %v", entry.NextDueAt, want)
	}
}

func TestMarkResult_FailureResetsExistingEntry(t *testing.T) {
	svc, store := newTestService(t)
	userID := uuid.New()
	now := time.Now().UTC().Truncate(time.Second)

	// Fail, then succeed twice to reach bucket 2.
	if err := svc.MarkResult(t.Context(), userID, "two-sum", false, now); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 2; i++ {
		if err := svc.MarkResult(t.Context(), userID, "two-sum", true, now); err != nil {
			t.Fatal(err)
		}
	}
	entry, _ := store.Reviews().Get(t.Context(), userID, "two-sum")
	if entry.Bucket != 2 {
		t.Fatalf("Bucket = %d; want 2", entry.Bucket)
	}

	// A failure at any rung drops back to the first.
	if err := svc.MarkResult(t.Context(), userID, "two-sum", false, now); err != nil {
		t.Fatalf("MarkResult() error = %v", err)
	}
	entry, _ = store.Reviews().Get(t.Context(), userID, "two-sum")
	if entry.Bucket != 0 {
		t.Errorf("Bucket after reset = %d; want 0", entry.Bucket)
	}
	if want := now.AddDate(0, 0, 1); !entry.NextDueAt.Equal(want) {
		t.Errorf("NextDueAt after reset = %v; want %v", entry.NextDueAt, want)
	}
}

func TestMarkResult_SuccessAdvancesBucket(t *testing.T) {
	svc, store := newTestService(t)
	userID := uuid.New()
	now := time.Now().UTC().Truncate(time.Second)

	if err := svc.MarkResult(t.Context(), userID, "two-sum", false, now); err != nil {
		t.Fatal(err)
	}
	if err := svc.MarkResult(t.Context(), userID, "two-sum", true, now); err != nil {
		t.Fatalf("MarkResult() error = %v", err)
	}

	entry, err := store.Reviews().Get(t.Context(), userID, "two-sum")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if entry.Bucket != 1 {
		t.Errorf("Bucket = %d; want 1", entry.Bucket)
	}
	if want := now.AddDate(0, 0, 3); !entry.NextDueAt.Equal(want) {
		t.Errorf("NextDueAt = %v; want %v", entry.NextDueAt, want)
	}
}

func TestMarkResult_SuccessWithoutEntryIsNoOp(t *testing.T) {
	svc, store := newTestService(t)
	userID := uuid.New()

	if err := svc.MarkResult(t.Context(), userID, "two-sum", true, time.Now()); err != nil {
		t.Fatalf("MarkResult() error = %v", err)
	}
	if _, err := store.Reviews().Get(t.Context(), userID, "two-sum"); !errors.Is(err, domain.ErrReviewEntryNotFound) {
		t.Errorf("Get() error = %v; want ErrReviewEntryNotFound (no entry should be created)", err)
	}
}

func TestMarkResult_GraduatesPastLastRung(t *testing.T) {
	svc, store := newTestService(t)
	userID := uuid.New()
	now := time.Now().UTC().Truncate(time.Second)

	if err := svc.MarkResult(t.Context(), userID, "two-sum", false, now); err != nil {
		t.Fatal(err)
	}
	// Four successes walk buckets 0->1->2->3, then graduate.
	for i := 0; i < 4; i++ {
		if err := svc.MarkResult(t.Context(), userID, "two-sum", true, now); err != nil {
			t.Fatalf("MarkResult() success #%d error = %v", i+1, err)
		}
	}

	if _, err := store.Reviews().Get(t.Context(), userID, "two-sum"); !errors.Is(err, domain.ErrReviewEntryNotFound) {
		t.Errorf("Get() after graduation error = %v; want ErrReviewEntryNotFound", err)
	}
}

func TestDue_OrdersAscendingAndHonorsLimit(t *testing.T) {
	svc, store := newTestService(t)
	userID := uuid.New()
	now := time.Now().UTC().Truncate(time.Second)

	for i, problemID := range []string{"a", "b", "c"} {
		e := domain.NewReviewEntry(userID, problemID, domain.ReasonFail, now, domain.DefaultReviewLadder())
		e.NextDueAt = now.Add(-time.Duration(i+1) * time.Hour)
		if err := store.Reviews().Upsert(t.Context(), e); err != nil {
			t.Fatal(err)
		}
	}

	due, err := svc.Due(t.Context(), userID, now, 2)
	if err != nil {
		t.Fatalf("Due() error = %v", err)
	}
	if len(due) != 2 {
		t.Fatalf("Due() returned %d entries; want 2", len(due))
	}
	if due[0].ProblemID != "c" || due[1].ProblemID != "b" {
		t.Errorf("Due() order = [%s %s]; want [c b]", due[0].ProblemID, due[1].ProblemID)
	}
}

func TestPeekDue(t *testing.T) {
	svc, store := newTestService(t)
	userID := uuid.New()
	now := time.Now().UTC().Truncate(time.Second)

	entry, err := svc.PeekDue(t.Context(), userID, now)
	if err != nil {
		t.Fatalf("PeekDue() error = %v", err)
	}
	if entry != nil {
		t.Errorf("PeekDue() = %+v; want nil with empty queue", entry)
	}

	e := domain.NewReviewEntry(userID, "two-sum", domain.ReasonFail, now, domain.DefaultReviewLadder())
	e.NextDueAt = now.Add(-time.Hour)
	if err := store.Reviews().Upsert(t.Context(), e); err != nil {
		t.Fatal(err)
	}

	entry, err = svc.PeekDue(t.Context(), userID, now)
	if err != nil {
		t.Fatalf("PeekDue() error = %v", err)
	}
	if entry == nil || entry.ProblemID != "two-sum" {
		t.Errorf("PeekDue() = %+v; want two-sum entry", entry)
	}
}
