package curiosity

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"
)

// Origin tag attached to every insight this engine produces.
const Origin = "curiosity"

const (
	// DefaultMaxPerCycle bounds how many tangents a single drain processes.
	DefaultMaxPerCycle = 3
	// DefaultCycleInterval is the spacing between background drains.
	DefaultCycleInterval = 60 * time.Second
	// researchResultLimit is the number of search hits requested per tangent.
	researchResultLimit = 5
	// stopTimeout bounds how long StopBackground waits for the worker.
	stopTimeout = 5 * time.Second
)

// Config holds engine tuning. Zero values fall back to defaults.
type Config struct {
	MaxPerCycle   int
	CycleInterval time.Duration
	QueueCapacity int
}

// Engine is the background curiosity processor. It takes tangents from the
// queue, researches them, synthesizes them into insights, and hands worthy
// results to the persistence port.
//
// Research and synthesis are optional: without research every tangent is a
// dead end, and without synthesis the raw research is stored with the
// tangent's interest as its quality score.
type Engine struct {
	queue     *TangentQueue
	search    ResearchPort
	synthesis SynthesisPort
	store     PersistencePort

	maxPerCycle   int
	cycleInterval time.Duration

	mu      sync.Mutex
	running bool
	done    chan struct{}
	stopped chan struct{}
}

// DrainResult reports what a single drain pass accomplished.
type DrainResult struct {
	Processed int `json:"processed"`
	Kept      int `json:"kept"`
}

// QueuedPreview is a truncated view of one queued tangent, used in status
// reporting.
type QueuedPreview struct {
	Tangent  string  `json:"tangent"`
	Interest float64 `json:"interest"`
}

// EngineStatus is a read-only snapshot of the engine: the live queue plus
// aggregate counters from the store.
type EngineStatus struct {
	QueueSize         int             `json:"queue_size"`
	QueueItems        []QueuedPreview `json:"queue_items"`
	BackgroundRunning bool            `json:"background_running"`
	DBTotal           int             `json:"db_total"`
	DBKept            int             `json:"db_kept"`
	DBAvgQuality      float64         `json:"db_avg_quality"`
	DBLastCuriosity   string          `json:"db_last_curiosity"`
}

// Resurfaced is a past insight brought back because it relates to the
// current conversation.
type Resurfaced struct {
	Tangent         string    `json:"tangent"`
	OriginalContext string    `json:"original_context"`
	Insight         string    `json:"insight"`
	Timestamp       time.Time `json:"timestamp"`
	QualityScore    float64   `json:"quality_score"`
}

// NewEngine creates a curiosity engine. The store is required; search and
// synthesis may be nil, in which case the engine degrades as documented.
func NewEngine(store PersistencePort, search ResearchPort, synthesis SynthesisPort, cfg Config) *Engine {
	if cfg.MaxPerCycle <= 0 {
		cfg.MaxPerCycle = DefaultMaxPerCycle
	}
	if cfg.CycleInterval <= 0 {
		cfg.CycleInterval = DefaultCycleInterval
	}

	return &Engine{
		queue:         NewTangentQueue(cfg.QueueCapacity),
		search:        search,
		synthesis:     synthesis,
		store:         store,
		maxPerCycle:   cfg.MaxPerCycle,
		cycleInterval: cfg.CycleInterval,
	}
}

// QueueTangent is the sole ingestion point: it submits a tangent to the
// admission filter and returns whether it was queued.
func (e *Engine) QueueTangent(text, seedQuery string, relevance, interest float64) bool {
	return e.queue.Push(text, seedQuery, relevance, interest)
}

// QueueSize returns the number of tangents currently waiting.
func (e *Engine) QueueSize() int {
	return e.queue.Size()
}

// ProcessOne runs a single tangent through research, synthesis, and
// persistence. Returns true if the resulting insight was durably kept.
// Port failures degrade: a failed search means no research, a failed
// synthesis falls back to storing the raw research with the tangent's
// interest as its score. A tangent with no research is a dead end and is
// discarded without touching the store.
func (e *Engine) ProcessOne(ctx context.Context, item Tangent) bool {
	log.Printf("🧠 [CURIOSITY] Exploring: %s", truncate(item.Text, 80))

	research := ""
	if e.search != nil {
		results, err := e.search.Search(ctx, item.Text, researchResultLimit)
		if err != nil {
			log.Printf("⚠️ [CURIOSITY] Search failed: %v", err)
		} else {
			research = formatResearch(results)
		}
	}

	var insight string
	var qualityScore float64
	switch {
	case e.synthesis != nil && research != "":
		processed, err := e.synthesis.Synthesize(ctx, item.Text, research)
		if err != nil {
			log.Printf("⚠️ [CURIOSITY] Synthesis failed, storing raw research: %v", err)
			insight = research
			qualityScore = item.Interest
		} else {
			insight = processed.Insight
			qualityScore = processed.QualityScore
		}
	case research != "":
		// No synthesis wired: raw research with interest as score.
		insight = research
		qualityScore = item.Interest
	default:
		log.Printf("🧠 [CURIOSITY] Dead end: %s", truncate(item.Text, 80))
		return false
	}

	kept, err := e.store.Store(ctx, Insight{
		SeedQuery:    item.SeedQuery,
		Tangent:      item.Text,
		Research:     research,
		InsightText:  insight,
		QualityScore: qualityScore,
		Origin:       Origin,
	})
	if err != nil {
		log.Printf("❌ [CURIOSITY] Store failed: %v", err)
		return false
	}

	if kept {
		log.Printf("✅ [CURIOSITY] Kept [%.2f]: %s", qualityScore, truncate(item.Text, 60))
	} else {
		log.Printf("🧠 [CURIOSITY] Discarded [%.2f]: %s", qualityScore, truncate(item.Text, 60))
	}
	return kept
}

// Drain synchronously processes up to MaxPerCycle tangents from the queue.
// Safe to call concurrently with the background loop: both pop from the
// same locked queue, so no tangent is processed twice.
func (e *Engine) Drain(ctx context.Context) DrainResult {
	var result DrainResult
	for result.Processed < e.maxPerCycle {
		item, ok := e.queue.Pop()
		if !ok {
			break
		}
		result.Processed++
		if e.ProcessOne(ctx, item) {
			result.Kept++
		}
	}

	if result.Processed > 0 {
		log.Printf("🧠 [CURIOSITY] Drain: processed=%d kept=%d", result.Processed, result.Kept)
	}
	return result
}

// ResurfaceCuriosities brings back past insights relevant to the current
// stimulus. Best effort: any store failure yields an empty slice, never an
// error.
func (e *Engine) ResurfaceCuriosities(ctx context.Context, currentStimulus string, limit int) []Resurfaced {
	if limit <= 0 {
		limit = 3
	}

	records, err := e.store.SearchInsights(ctx, currentStimulus, limit, 0.6)
	if err != nil {
		log.Printf("⚠️ [CURIOSITY] Resurfacing failed: %v", err)
		return nil
	}

	resurfaced := make([]Resurfaced, 0, len(records))
	for _, r := range records {
		resurfaced = append(resurfaced, Resurfaced{
			Tangent:         r.Tangent,
			OriginalContext: r.SeedQuery,
			Insight:         r.Insight,
			Timestamp:       r.CreatedAt,
			QualityScore:    r.QualityScore,
		})
	}

	if len(resurfaced) > 0 {
		log.Printf("🧠 [CURIOSITY] Resurfaced %d past curiosities for: %s",
			len(resurfaced), truncate(currentStimulus, 60))
	}
	return resurfaced
}

// StartBackground starts the background worker that drains the queue every
// cycle interval. Starting an already running engine is a no-op. Only one
// worker runs per engine instance.
func (e *Engine) StartBackground() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.running {
		return
	}
	e.running = true
	e.done = make(chan struct{})
	e.stopped = make(chan struct{})

	go e.backgroundLoop(e.done, e.stopped)
	log.Printf("🧠 [CURIOSITY] Background worker started (interval=%s)", e.cycleInterval)
}

// StopBackground signals the worker to stop and waits for it to exit,
// bounded by a timeout so the caller is never deadlocked. No new drains
// start after stop is requested. Idempotent.
func (e *Engine) StopBackground() {
	e.mu.Lock()
	if !e.running {
		e.mu.Unlock()
		return
	}
	e.running = false
	done := e.done
	stopped := e.stopped
	e.done = nil
	e.stopped = nil
	e.mu.Unlock()

	close(done)
	select {
	case <-stopped:
		log.Println("🧠 [CURIOSITY] Background worker stopped")
	case <-time.After(stopTimeout):
		log.Println("⚠️ [CURIOSITY] Background worker did not stop within timeout")
	}
}

// Running reports whether the background worker is active.
func (e *Engine) Running() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.running
}

func (e *Engine) backgroundLoop(done <-chan struct{}, stopped chan<- struct{}) {
	defer close(stopped)

	ticker := time.NewTicker(e.cycleInterval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			e.runCycle()
		}
	}
}

// runCycle executes one background drain, recovering from anything so a
// single bad iteration never kills the worker.
func (e *Engine) runCycle() {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("❌ [CURIOSITY] Background cycle panic: %v", r)
		}
	}()

	if e.queue.Size() == 0 {
		return
	}
	e.Drain(context.Background())
}

// Status returns a read-only snapshot of the engine. Store failures
// degrade to zeroed counters.
func (e *Engine) Status(ctx context.Context) EngineStatus {
	items := e.queue.PeekAll()
	preview := make([]QueuedPreview, 0, len(items))
	for _, item := range items {
		preview = append(preview, QueuedPreview{
			Tangent:  truncate(item.Text, 80),
			Interest: item.Interest,
		})
	}

	stats, err := e.store.Stats(ctx)
	if err != nil {
		log.Printf("⚠️ [CURIOSITY] Stats unavailable: %v", err)
		stats = InsightStats{}
	}

	lastCuriosity := ""
	if !stats.LastCuriosity.IsZero() {
		lastCuriosity = stats.LastCuriosity.Format(time.RFC3339)
	}

	return EngineStatus{
		QueueSize:         len(items),
		QueueItems:        preview,
		BackgroundRunning: e.Running(),
		DBTotal:           stats.Total,
		DBKept:            stats.Kept,
		DBAvgQuality:      roundQuality(stats.AvgQuality),
		DBLastCuriosity:   lastCuriosity,
	}
}

func formatResearch(results []SearchResult) string {
	if len(results) == 0 {
		return ""
	}
	lines := make([]string, 0, len(results))
	for _, r := range results {
		lines = append(lines, fmt.Sprintf("- %s: %s", r.Title, r.Snippet))
	}
	return strings.Join(lines, "\n")
}

func roundQuality(q float64) float64 {
	return float64(int(q*1000+0.5)) / 1000
}
