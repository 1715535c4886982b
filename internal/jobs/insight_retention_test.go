package jobs

import (
	"context"
	"testing"
	"time"

	"rilie/internal/curiosity"
	"rilie/internal/database"
	"rilie/internal/services"
)

func newRetentionStore(t *testing.T) *services.InsightStore {
	t.Helper()

	db, err := database.New(":memory:")
	if err != nil {
		t.Fatalf("failed to open in-memory database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := db.Initialize(); err != nil {
		t.Fatalf("failed to initialize schema: %v", err)
	}
	return services.NewInsightStore(db, nil)
}

// TestRetentionDisabled verifies a zero retention window deletes nothing.
func TestRetentionDisabled(t *testing.T) {
	store := newRetentionStore(t)
	if _, err := store.Store(context.Background(), curiosity.Insight{
		Tangent: "old unkept", QualityScore: 0.1, Origin: curiosity.Origin,
	}); err != nil {
		t.Fatalf("Store failed: %v", err)
	}

	job := NewInsightRetentionJob(store, 0)
	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	stats, _ := store.Stats(context.Background())
	if stats.Total != 1 {
		t.Errorf("total = %d after disabled cleanup, want 1", stats.Total)
	}
}

// TestRetentionKeepsRecentRows verifies fresh rows survive the window.
func TestRetentionKeepsRecentRows(t *testing.T) {
	store := newRetentionStore(t)
	if _, err := store.Store(context.Background(), curiosity.Insight{
		Tangent: "fresh unkept", QualityScore: 0.1, Origin: curiosity.Origin,
	}); err != nil {
		t.Fatalf("Store failed: %v", err)
	}

	job := NewInsightRetentionJob(store, 30)
	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	stats, _ := store.Stats(context.Background())
	if stats.Total != 1 {
		t.Errorf("total = %d, fresh row should survive a 30-day window", stats.Total)
	}
}

// TestGetNextRunTime verifies the daily 3 AM UTC schedule.
func TestGetNextRunTime(t *testing.T) {
	job := NewInsightRetentionJob(nil, 30)

	next := job.GetNextRunTime()
	now := time.Now().UTC()

	if !next.After(now) {
		t.Errorf("next run %v is not in the future", next)
	}
	if next.Hour() != 3 || next.Minute() != 0 {
		t.Errorf("next run = %v, want 03:00 UTC", next)
	}
	if next.Sub(now) > 24*time.Hour {
		t.Errorf("next run %v is more than a day away", next)
	}
}
