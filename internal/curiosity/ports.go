package curiosity

import (
	"context"
	"time"
)

// SearchResult is a single research hit returned by a ResearchPort.
type SearchResult struct {
	Title   string `json:"title"`
	Snippet string `json:"snippet"`
}

// ResearchPort gathers raw material for a tangent. Implementations may
// fail; the engine treats any error as zero results.
type ResearchPort interface {
	Search(ctx context.Context, query string, limit int) ([]SearchResult, error)
}

// Synthesis is the output of a SynthesisPort pass over a tangent and its
// research.
type Synthesis struct {
	Insight      string  `json:"insight"`
	QualityScore float64 `json:"quality_score"`
}

// SynthesisPort turns a tangent plus research text into an insight with a
// quality score. On failure the engine stores the raw research instead.
type SynthesisPort interface {
	Synthesize(ctx context.Context, tangentText, researchText string) (Synthesis, error)
}

// Insight is a processed tangent handed to the PersistencePort. Whether it
// is durably kept is the store's decision, not the engine's.
type Insight struct {
	SeedQuery    string
	Tangent      string
	Research     string
	InsightText  string
	QualityScore float64
	Origin       string
}

// InsightRecord is a previously stored insight as returned by
// SearchInsights.
type InsightRecord struct {
	Tangent      string    `json:"tangent"`
	SeedQuery    string    `json:"seed_query"`
	Insight      string    `json:"insight"`
	QualityScore float64   `json:"quality_score"`
	CreatedAt    time.Time `json:"timestamp"`
}

// InsightStats are aggregate counters over the insight store.
type InsightStats struct {
	Total         int       `json:"total"`
	Kept          int       `json:"kept"`
	AvgQuality    float64   `json:"avg_quality"`
	LastCuriosity time.Time `json:"last_curiosity"`
}

// PersistencePort owns durable insight storage. Store reports whether the
// insight cleared the store's own quality threshold; the engine never
// learns the threshold itself.
type PersistencePort interface {
	Store(ctx context.Context, insight Insight) (kept bool, err error)
	SearchInsights(ctx context.Context, query string, limit int, minQuality float64) ([]InsightRecord, error)
	Stats(ctx context.Context) (InsightStats, error)
}
