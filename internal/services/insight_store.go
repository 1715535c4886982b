package services

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"rilie/internal/curiosity"
	"rilie/internal/database"
)

// TasteThreshold is the minimum quality score for an insight to be kept.
// The engine never sees this value; it is told only whether the insight
// cleared it.
const TasteThreshold = 0.6

// insightTimeLayout is fixed-width so MAX(created_at) and ORDER BY sort
// correctly as text.
const insightTimeLayout = "2006-01-02 15:04:05.000"

// InsightStore persists curiosity insights in SQLite with full-text search
// over tangent, insight, and seed query. It implements
// curiosity.PersistencePort.
type InsightStore struct {
	db        *database.DB
	publisher *EventPublisher
}

// NewInsightStore creates the store. The publisher is optional; when
// present, kept insights are announced on its channel.
func NewInsightStore(db *database.DB, publisher *EventPublisher) *InsightStore {
	return &InsightStore{db: db, publisher: publisher}
}

// Store inserts the insight and reports whether it passed taste. Every
// insight is recorded; only those at or above TasteThreshold are marked
// kept and eligible for resurfacing.
func (s *InsightStore) Store(ctx context.Context, insight curiosity.Insight) (bool, error) {
	kept := insight.QualityScore >= TasteThreshold

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO curiosity_insights
			(origin, seed_query, tangent, research, insight, quality_score, kept, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		insight.Origin, insight.SeedQuery, insight.Tangent, insight.Research,
		insight.InsightText, insight.QualityScore, boolToInt(kept),
		time.Now().UTC().Format(insightTimeLayout),
	)
	if err != nil {
		return false, fmt.Errorf("failed to store insight: %w", err)
	}

	log.Printf("💾 [INSIGHTS] Stored [kept=%v, score=%.2f]: %.80s", kept, insight.QualityScore, insight.Tangent)

	if kept && s.publisher != nil {
		s.publisher.PublishInsightKept(ctx, insight.Tangent, insight.QualityScore)
	}

	return kept, nil
}

// SearchInsights returns kept insights matching the query text, ordered by
// quality then recency.
func (s *InsightStore) SearchInsights(ctx context.Context, query string, limit int, minQuality float64) ([]curiosity.InsightRecord, error) {
	match := ftsMatchExpr(query)
	if match == "" {
		return nil, nil
	}
	if limit <= 0 {
		limit = 5
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT i.tangent, i.seed_query, i.insight, i.quality_score, i.created_at
		FROM curiosity_insights_fts f
		JOIN curiosity_insights i ON i.id = f.rowid
		WHERE curiosity_insights_fts MATCH ?
		  AND i.kept = 1
		  AND i.quality_score >= ?
		ORDER BY i.quality_score DESC, i.created_at DESC
		LIMIT ?`,
		match, minQuality, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to search insights: %w", err)
	}
	defer rows.Close()

	var records []curiosity.InsightRecord
	for rows.Next() {
		var rec curiosity.InsightRecord
		var createdAt string
		if err := rows.Scan(&rec.Tangent, &rec.SeedQuery, &rec.Insight, &rec.QualityScore, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan insight row: %w", err)
		}
		rec.CreatedAt = parseInsightTime(createdAt)
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read insight rows: %w", err)
	}

	return records, nil
}

// Stats returns aggregate counters over the whole store.
func (s *InsightStore) Stats(ctx context.Context) (curiosity.InsightStats, error) {
	var stats curiosity.InsightStats
	var last string

	err := s.db.QueryRowContext(ctx, `
		SELECT
			COUNT(*),
			COALESCE(SUM(kept), 0),
			COALESCE(AVG(quality_score), 0),
			COALESCE(MAX(created_at), '')
		FROM curiosity_insights`,
	).Scan(&stats.Total, &stats.Kept, &stats.AvgQuality, &last)
	if err != nil {
		return curiosity.InsightStats{}, fmt.Errorf("failed to read insight stats: %w", err)
	}

	stats.LastCuriosity = parseInsightTime(last)
	return stats, nil
}

// DeleteUnkeptBefore removes insights that never passed taste and are
// older than the cutoff. Returns the number of rows deleted.
func (s *InsightStore) DeleteUnkeptBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := s.db.ExecContext(ctx, `
		DELETE FROM curiosity_insights
		WHERE kept = 0 AND created_at < ?`,
		cutoff.UTC().Format(insightTimeLayout),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to delete unkept insights: %w", err)
	}
	return result.RowsAffected()
}

// ftsMatchExpr turns free text into a safe FTS5 match expression: each
// term quoted, terms implicitly ANDed. Returns "" for empty input.
func ftsMatchExpr(query string) string {
	terms := strings.Fields(query)
	if len(terms) == 0 {
		return ""
	}
	quoted := make([]string, 0, len(terms))
	for _, term := range terms {
		term = strings.ReplaceAll(term, `"`, `""`)
		quoted = append(quoted, `"`+term+`"`)
	}
	return strings.Join(quoted, " ")
}

func parseInsightTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.ParseInLocation(insightTimeLayout, s, time.UTC)
	if err != nil {
		return time.Time{}
	}
	return t
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
