package jobs

import (
	"context"
	"log"
	"time"

	"rilie/internal/services"
)

// InsightRetentionJob deletes insights that never passed taste once they
// are older than the retention window. Kept insights are never touched.
type InsightRetentionJob struct {
	store         *services.InsightStore
	retentionDays int
}

// NewInsightRetentionJob creates the job. A retention of 0 days disables
// deletion entirely.
func NewInsightRetentionJob(store *services.InsightStore, retentionDays int) *InsightRetentionJob {
	return &InsightRetentionJob{
		store:         store,
		retentionDays: retentionDays,
	}
}

// Run deletes unkept insights older than the retention window.
func (j *InsightRetentionJob) Run(ctx context.Context) error {
	if j.retentionDays <= 0 {
		log.Println("[RETENTION] Insight retention cleanup disabled")
		return nil
	}

	cutoff := time.Now().AddDate(0, 0, -j.retentionDays)
	log.Printf("[RETENTION] Deleting unkept insights older than %s...", cutoff.Format(time.RFC3339))

	deleted, err := j.store.DeleteUnkeptBefore(ctx, cutoff)
	if err != nil {
		log.Printf("[RETENTION] Cleanup failed: %v", err)
		return err
	}

	log.Printf("[RETENTION] Cleanup complete: deleted %d unkept insights", deleted)
	return nil
}

// GetNextRunTime returns the next 3 AM UTC
func (j *InsightRetentionJob) GetNextRunTime() time.Time {
	now := time.Now().UTC()
	next := time.Date(now.Year(), now.Month(), now.Day(), 3, 0, 0, 0, time.UTC)
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}
