package personalization

import (
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/thinkinginmath/scimigo-co/internal/config"
	"github.com/thinkinginmath/scimigo-co/internal/domain"
	"github.com/thinkinginmath/scimigo-co/internal/mastery"
	"github.com/thinkinginmath/scimigo-co/internal/review"
	"github.com/thinkinginmath/scimigo-co/internal/storage/sqlite"
)

// fakeCatalog serves a fixed candidate pool without a network.
type fakeCatalog struct {
	candidates []domain.Problem
	problems   map[string]*domain.Problem
	err        error
}

func (f *fakeCatalog) GetProblem(ctx context.Context, problemID string) (*domain.Problem, error) {
	if f.err != nil {
		return nil, f.err
	}
	p, ok := f.problems[problemID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return p, nil
}

func (f *fakeCatalog) GetCandidates(ctx context.Context, subject domain.Subject, trackID *uuid.UUID) ([]domain.Problem, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.candidates, nil
}

func (f *fakeCatalog) GetTrack(ctx context.Context, slug string) (*domain.Track, error) {
	return nil, domain.ErrNotFound
}

func newTestService(t *testing.T, cat *fakeCatalog) (*Service, domain.Store) {
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

	logger := slog.New(slog.DiscardHandler)
	scorer, err := NewScorer(config.DefaultTuning().Weights)
	if err != nil {
		t.Fatalf("NewScorer() error = %v", err)
	}
	reviewSvc, err := review.NewService(store, domain.DefaultReviewLadder(), logger)
	if err != nil {
		t.Fatalf("review.NewService() error = %v", err)
	}
	masterySvc := mastery.NewService(store, logger)

	return NewService(store, cat, scorer, masterySvc, reviewSvc, logger), store
}

func scheduleOverdueReview(t *testing.T, store domain.Store, userID uuid.UUID, problemID string) {
	t.Helper()
	e := domain.NewReviewEntry(userID, problemID, domain.ReasonFail, time.Now().UTC(), domain.DefaultReviewLadder())
	e.NextDueAt = time.Now().UTC().Add(-time.Hour)
	if err := store.Reviews().Upsert(context.Background(), e); err != nil {
		t.Fatalf("schedule review: %v", err)
	}
}

func TestRecommend_DueReviewTakesPrecedence(t *testing.T) {
	cat := &fakeCatalog{candidates: []domain.Problem{
		{ID: "shiny-new", Topics: []string{"graphs"}, Difficulty: 50},
	}}
	svc, store := newTestService(t, cat)
	userID := uuid.New()
	scheduleOverdueReview(t, store, userID, "old-fail")

	rec, err := svc.Recommend(t.Context(), userID, domain.SubjectCoding, nil, nil)
	if err != nil {
		t.Fatalf("Recommend() error = %v", err)
	}
	if rec.ProblemID != "old-fail" || rec.Source != SourceReview {
		t.Errorf("Recommend() = %s/%s; want old-fail/review", rec.ProblemID, rec.Source)
	}
}

func TestRecommend_ExcludedReviewFallsThroughToCandidates(t *testing.T) {
	cat := &fakeCatalog{candidates: []domain.Problem{
		{ID: "shiny-new", Topics: []string{"graphs"}, Difficulty: 50},
	}}
	svc, store := newTestService(t, cat)
	userID := uuid.New()
	scheduleOverdueReview(t, store, userID, "old-fail")

	rec, err := svc.Recommend(t.Context(), userID, domain.SubjectCoding, nil, []string{"old-fail"})
	if err != nil {
		t.Fatalf("Recommend() error = %v", err)
	}
	if rec.ProblemID != "shiny-new" || rec.Source != SourceScored {
		t.Errorf("Recommend() = %s/%s; want shiny-new/scored", rec.ProblemID, rec.Source)
	}
}

func TestRecommend_PrefersWeakTopics(t *testing.T) {
	cat := &fakeCatalog{candidates: []domain.Problem{
		{ID: "easy-win", Topics: []string{"arrays"}, Difficulty: 50},
		{ID: "needs-work", Topics: []string{"dp"}, Difficulty: 50},
	}}
	svc, store := newTestService(t, cat)
	userID := uuid.New()

	strong := domain.NewMastery(userID, domain.KeyTypeTopic, "arrays")
	strong.EMA, strong.Score = 0.9, 90
	weak := domain.NewMastery(userID, domain.KeyTypeTopic, "dp")
	weak.EMA, weak.Score = 0.2, 20
	for _, m := range []*domain.Mastery{strong, weak} {
		if err := store.Masteries().Upsert(t.Context(), m); err != nil {
			t.Fatal(err)
		}
	}

	rec, err := svc.Recommend(t.Context(), userID, domain.SubjectCoding, nil, nil)
	if err != nil {
		t.Fatalf("Recommend() error = %v", err)
	}
	if rec.ProblemID != "needs-work" {
		t.Errorf("Recommend() = %s; want needs-work (weaker topic)", rec.ProblemID)
	}
}

func TestRecommend_TieGoesToFirstCandidate(t *testing.T) {
	cat := &fakeCatalog{candidates: []domain.Problem{
		{ID: "first", Topics: []string{"graphs"}, Difficulty: 50},
		{ID: "second", Topics: []string{"trees"}, Difficulty: 50},
	}}
	svc, _ := newTestService(t, cat)

	rec, err := svc.Recommend(t.Context(), uuid.New(), domain.SubjectCoding, nil, nil)
	if err != nil {
		t.Fatalf("Recommend() error = %v", err)
	}
	if rec.ProblemID != "first" {
		t.Errorf("Recommend() = %s; want first on tie", rec.ProblemID)
	}
}

func TestRecommend_FallbackWhenAllExcluded(t *testing.T) {
	cat := &fakeCatalog{candidates: []domain.Problem{
		{ID: "only-one", Topics: []string{"graphs"}, Difficulty: 50},
	}}
	svc, _ := newTestService(t, cat)

	rec, err := svc.Recommend(t.Context(), uuid.New(), domain.SubjectCoding, nil, []string{"only-one"})
	if err != nil {
		t.Fatalf("Recommend() error = %v", err)
	}
	if rec.ProblemID != "only-one" || rec.Source != SourceFallback {
		t.Errorf("Recommend() = %s/%s; want only-one/fallback", rec.ProblemID, rec.Source)
	}
}

func TestRecommend_EmptyCatalog(t *testing.T) {
	svc, _ := newTestService(t, &fakeCatalog{})

	_, err := svc.Recommend(t.Context(), uuid.New(), domain.SubjectCoding, nil, nil)
	if !errors.Is(err, domain.ErrNoRecommendation) {
		t.Errorf("Recommend() error = %v; want ErrNoRecommendation", err)
	}
}

func TestRecommend_CatalogOutageDegradesGracefully(t *testing.T) {
	svc, _ := newTestService(t, &fakeCatalog{err: errors.New("connection refused")})

	_, err := svc.Recommend(t.Context(), uuid.New(), domain.SubjectCoding, nil, nil)
	if !errors.Is(err, domain.ErrNoRecommendation) {
		t.Errorf("Recommend() error = %v; want ErrNoRecommendation", err)
	}
}

func TestRecordOutcome_FailureUpdatesMasteryAndSchedulesReview(t *testing.T) {
	svc, store := newTestService(t, &fakeCatalog{})
	userID := uuid.New()

	err := svc.RecordOutcome(t.Context(), userID, "two-sum", []string{"arrays", "hashing"}, false)
	if err != nil {
		t.Fatalf("RecordOutcome() error = %v", err)
	}

	for _, topic := range []string{"arrays", "hashing"} {
		m, err := store.Masteries().Get(t.Context(), userID, domain.KeyTypeTopic, topic)
		if err != nil {
			t.Fatalf("Get(%s) error = %v", topic, err)
		}
		if m.Score != 40 {
			t.Errorf("%s Score = %d; want 40", topic, m.Score)
		}
	}

	entry, err := store.Reviews().Get(t.Context(), userID, "two-sum")
	if err != nil {
		t.Fatalf("review Get() error = %v", err)
	}
	if entry.Bucket != 0 {
		t.Errorf("Bucket = %d; want 0", entry.Bucket)
	}
}

func TestRecordOutcome_SuccessLeavesNoReviewEntry(t *testing.T) {
	svc, store := newTestService(t, &fakeCatalog{})
	userID := uuid.New()

	if err := svc.RecordOutcome(t.Context(), userID, "two-sum", []string{"arrays"}, true); err != nil {
		t.Fatalf("RecordOutcome() error = %v", err)
	}

	m, err := store.Masteries().Get(t.Context(), userID, domain.KeyTypeTopic, "arrays")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if m.Score != 60 {
		t.Errorf("Score = %d; want 60", m.Score)
	}

	if _, err := store.Reviews().Get(t.Context(), userID, "two-sum"); !errors.Is(err, domain.ErrReviewEntryNotFound) {
		t.Errorf("review Get() error = %v; want ErrReviewEntryNotFound", err)
	}
}

func TestRecordOutcome_ResolvesTopicsFromCatalog(t *testing.T) {
	cat := &fakeCatalog{problems: map[string]*domain.Problem{
		"two-sum": {ID: "two-sum", Topics: []string{"arrays"}},
	}}
	svc, store := newTestService(t, cat)
	userID := uuid.New()

	if err := svc.RecordOutcome(t.Context(), userID, "two-sum", nil, true); err != nil {
		t.Fatalf("RecordOutcome() error = %v", err)
	}

	if _, err := store.Masteries().Get(t.Context(), userID, domain.KeyTypeTopic, "arrays"); err != nil {
		t.Errorf("mastery for catalog-resolved topic missing: %v", err)
	}
}

func TestRecordOutcome_UnresolvableTopicsFails(t *testing.T) {
	svc, _ := newTestService(t, &fakeCatalog{})

	err := svc.RecordOutcome(t.Context(), uuid.New(), "ghost", nil, true)
	if err == nil {
		t.Error("RecordOutcome() with unresolvable problem should fail")
	}
}

func TestDueReviews(t *testing.T) {
	svc, store := newTestService(t, &fakeCatalog{})
	userID := uuid.New()
	scheduleOverdueReview(t, store, userID, "two-sum")

	entries, err := svc.DueReviews(t.Context(), userID, 10)
	if err != nil {
		t.Fatalf("DueReviews() error = %v", err)
	}
	if len(entries) != 1 || entries[0].ProblemID != "two-sum" {
		t.Errorf("DueReviews() = %v; want single two-sum entry", entries)
	}
}
