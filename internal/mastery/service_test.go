package mastery

import (
	"log/slog"
	"math"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/thinkinginmath/scimigo-co/internal/domain"
	"github.com/thinkinginmath/scimigo-co/internal/storage/sqlite"
)

func newTestService(t *testing.T) *Service {
	t.Helper()

	db, err := sqlite.Open(filepath.Join(t.TempDir(), "co.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := db.Migrate(); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	return NewService(sqlite.NewStore(db), slog.New(slog.DiscardHandler))
}

func TestService_Update_CreatesAtNeutralPrior(t *testing.T) {
	svc := newTestService(t)
	userID := uuid.New()

	// First outcome on an unseen topic starts from 0.5.
	m, err := svc.Update(t.Context(), userID, domain.KeyTypeTopic, "arrays", false, time.Now())
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if math.Abs(m.EMA-0.4) > 1e-9 {
		t.Errorf("EMA = %v; want 0.4", m.EMA)
	}
	if m.Score != 40 {
		t.Errorf("Score = %d; want 40", m.Score)
	}
}

func TestService_Update_FoldsRepeatedOutcomes(t *testing.T) {
	svc := newTestService(t)
	userID := uuid.New()
	now := time.Now()

	var m *domain.Mastery
	var err error
	for i := 0; i < 3; i++ {
		m, err = svc.Update(t.Context(), userID, domain.KeyTypeTopic, "graphs", true, now)
		if err != nil {
			t.Fatalf("Update() #%d error = %v", i, err)
		}
	}

	// 0.5 -> 0.6 -> 0.68 -> 0.744
	if math.Abs(m.EMA-0.744) > 1e-9 {
		t.Errorf("EMA after 3 successes = %v; want 0.744", m.EMA)
	}
	if m.Score != 74 {
		t.Errorf("Score = %d; want 74", m.Score)
	}

	got, err := svc.Get(t.Context(), userID, domain.KeyTypeTopic, "graphs")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.Score != m.Score {
		t.Errorf("persisted Score = %d; want %d", got.Score, m.Score)
	}
}

func TestService_Update_IndependentKeys(t *testing.T) {
	svc := newTestService(t)
	userID := uuid.New()
	now := time.Now()

	if _, err := svc.Update(t.Context(), userID, domain.KeyTypeTopic, "arrays", true, now); err != nil {
		t.Fatalf("Update(arrays) error = %v", err)
	}
	if _, err := svc.Update(t.Context(), userID, domain.KeyTypeTopic, "dp", false, now); err != nil {
		t.Fatalf("Update(dp) error = %v", err)
	}

	arrays, _ := svc.Get(t.Context(), userID, domain.KeyTypeTopic, "arrays")
	dp, _ := svc.Get(t.Context(), userID, domain.KeyTypeTopic, "dp")
	if arrays.Score != 60 || dp.Score != 40 {
		t.Errorf("scores = %d/%d; want 60/40", arrays.Score, dp.Score)
	}
}

func TestService_Snapshot_OmitsUnseenKeys(t *testing.T) {
	svc := newTestService(t)
	userID := uuid.New()

	if _, err := svc.Update(t.Context(), userID, domain.KeyTypeTopic, "arrays", true, time.Now()); err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	snap, err := svc.Snapshot(t.Context(), userID, domain.KeyTypeTopic, []string{"arrays", "graphs"})
	if err != nil {
		t.Fatalf("Snapshot() error = %v", err)
	}
	if _, ok := snap["arrays"]; !ok {
		t.Error("Snapshot() missing arrays record")
	}
	if _, ok := snap["graphs"]; ok {
		t.Error("Snapshot() should omit keys with no history")
	}
}
