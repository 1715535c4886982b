package curiosity

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"
)

// fakeResearch returns canned results, or an error on every call.
type fakeResearch struct {
	results []SearchResult
	err     error
	calls   int
}

func (f *fakeResearch) Search(ctx context.Context, query string, limit int) ([]SearchResult, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.results, nil
}

// fakeSynthesis returns a fixed synthesis, or an error on every call.
type fakeSynthesis struct {
	synthesis Synthesis
	err       error
	calls     int
}

func (f *fakeSynthesis) Synthesize(ctx context.Context, tangentText, researchText string) (Synthesis, error) {
	f.calls++
	if f.err != nil {
		return Synthesis{}, f.err
	}
	return f.synthesis, nil
}

// fakeStore records stored insights and keeps those at or above 0.6,
// mirroring the real store's taste threshold.
type fakeStore struct {
	stored    []Insight
	storeErr  error
	records   []InsightRecord
	searchErr error
	stats     InsightStats
	statsErr  error
}

func (f *fakeStore) Store(ctx context.Context, insight Insight) (bool, error) {
	if f.storeErr != nil {
		return false, f.storeErr
	}
	f.stored = append(f.stored, insight)
	return insight.QualityScore >= 0.6, nil
}

func (f *fakeStore) SearchInsights(ctx context.Context, query string, limit int, minQuality float64) ([]InsightRecord, error) {
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	if len(f.records) > limit {
		return f.records[:limit], nil
	}
	return f.records, nil
}

func (f *fakeStore) Stats(ctx context.Context) (InsightStats, error) {
	if f.statsErr != nil {
		return InsightStats{}, f.statsErr
	}
	return f.stats, nil
}

func testTangent(text string, interest float64) Tangent {
	return Tangent{
		Text:      text,
		SeedQuery: "seed",
		Relevance: 0.2,
		Interest:  interest,
		QueuedAt:  time.Now(),
	}
}

// TestProcessOneDeadEnd verifies that with no research port configured the
// tangent is a dead end and the store is never touched.
func TestProcessOneDeadEnd(t *testing.T) {
	store := &fakeStore{}
	engine := NewEngine(store, nil, nil, Config{})

	if engine.ProcessOne(context.Background(), testTangent("quantum knitting", 0.9)) {
		t.Error("dead end should report not kept")
	}
	if len(store.stored) != 0 {
		t.Errorf("store called %d times for a dead end, want 0", len(store.stored))
	}
}

// TestProcessOneEmptyResearchDeadEnd verifies a search that yields nothing
// is also a dead end.
func TestProcessOneEmptyResearchDeadEnd(t *testing.T) {
	store := &fakeStore{}
	search := &fakeResearch{results: nil}
	engine := NewEngine(store, search, nil, Config{})

	if engine.ProcessOne(context.Background(), testTangent("x", 0.9)) {
		t.Error("empty research should be a dead end")
	}
	if len(store.stored) != 0 {
		t.Error("store should not be called for a dead end")
	}
}

// TestProcessOneFallbackSynthesis verifies that without a synthesis port
// the raw research is stored with the tangent's interest as its score.
func TestProcessOneFallbackSynthesis(t *testing.T) {
	store := &fakeStore{}
	search := &fakeResearch{results: []SearchResult{
		{Title: "Jazz voicings", Snippet: "rootless chords"},
		{Title: "Modal interchange", Snippet: "borrowed chords"},
	}}
	engine := NewEngine(store, search, nil, Config{})

	kept := engine.ProcessOne(context.Background(), testTangent("jazz harmony", 0.85))
	if !kept {
		t.Error("interest 0.85 clears the fake store's threshold, want kept")
	}

	if len(store.stored) != 1 {
		t.Fatalf("store called %d times, want 1", len(store.stored))
	}
	got := store.stored[0]
	wantResearch := "- Jazz voicings: rootless chords\n- Modal interchange: borrowed chords"
	if got.Research != wantResearch {
		t.Errorf("research = %q, want %q", got.Research, wantResearch)
	}
	if got.InsightText != got.Research {
		t.Errorf("fallback insight = %q, want raw research", got.InsightText)
	}
	if got.QualityScore != 0.85 {
		t.Errorf("fallback quality = %.2f, want tangent interest 0.85", got.QualityScore)
	}
	if got.Origin != Origin {
		t.Errorf("origin = %q, want %q", got.Origin, Origin)
	}
}

// TestProcessOneSynthesisFailureFallsBack verifies a failing synthesis port
// degrades to the raw-research fallback instead of propagating.
func TestProcessOneSynthesisFailureFallsBack(t *testing.T) {
	store := &fakeStore{}
	search := &fakeResearch{results: []SearchResult{{Title: "t", Snippet: "s"}}}
	synthesis := &fakeSynthesis{err: errors.New("model unavailable")}
	engine := NewEngine(store, search, synthesis, Config{})

	engine.ProcessOne(context.Background(), testTangent("x", 0.75))

	if len(store.stored) != 1 {
		t.Fatalf("store called %d times, want 1", len(store.stored))
	}
	if store.stored[0].InsightText != "- t: s" {
		t.Errorf("insight = %q, want raw research fallback", store.stored[0].InsightText)
	}
	if store.stored[0].QualityScore != 0.75 {
		t.Errorf("quality = %.2f, want interest 0.75", store.stored[0].QualityScore)
	}
}

// TestProcessOneSynthesisUsed verifies the happy path through all three
// ports.
func TestProcessOneSynthesisUsed(t *testing.T) {
	store := &fakeStore{}
	search := &fakeResearch{results: []SearchResult{{Title: "t", Snippet: "s"}}}
	synthesis := &fakeSynthesis{synthesis: Synthesis{Insight: "distilled", QualityScore: 0.9}}
	engine := NewEngine(store, search, synthesis, Config{})

	if !engine.ProcessOne(context.Background(), testTangent("x", 0.7)) {
		t.Error("quality 0.9 should be kept")
	}
	if store.stored[0].InsightText != "distilled" {
		t.Errorf("insight = %q, want synthesized text", store.stored[0].InsightText)
	}
	if store.stored[0].QualityScore != 0.9 {
		t.Errorf("quality = %.2f, want 0.9", store.stored[0].QualityScore)
	}
}

// TestDrainCap verifies a drain processes at most MaxPerCycle tangents.
func TestDrainCap(t *testing.T) {
	store := &fakeStore{}
	search := &fakeResearch{results: []SearchResult{{Title: "t", Snippet: "s"}}}
	synthesis := &fakeSynthesis{synthesis: Synthesis{Insight: "i", QualityScore: 0.9}}
	engine := NewEngine(store, search, synthesis, Config{MaxPerCycle: 3})

	for i := 0; i < 5; i++ {
		if !engine.QueueTangent(fmt.Sprintf("tangent %d", i), "seed", 0.2, 0.9) {
			t.Fatalf("tangent %d should be admitted", i)
		}
	}

	result := engine.Drain(context.Background())
	if result.Processed != 3 {
		t.Errorf("processed = %d, want 3", result.Processed)
	}
	if result.Kept != 3 {
		t.Errorf("kept = %d, want 3", result.Kept)
	}
	if engine.QueueSize() != 2 {
		t.Errorf("queue size after drain = %d, want 2", engine.QueueSize())
	}
}

// TestDrainSearchFailureNonFatal verifies that a search port failing on
// every call still yields a well-formed drain result.
func TestDrainSearchFailureNonFatal(t *testing.T) {
	store := &fakeStore{}
	search := &fakeResearch{err: errors.New("network down")}
	engine := NewEngine(store, search, nil, Config{})

	engine.QueueTangent("a", "seed", 0.2, 0.9)
	engine.QueueTangent("b", "seed", 0.2, 0.9)

	result := engine.Drain(context.Background())
	if result.Processed != 2 {
		t.Errorf("processed = %d, want 2", result.Processed)
	}
	if result.Kept != 0 {
		t.Errorf("kept = %d, want 0", result.Kept)
	}
	if len(store.stored) != 0 {
		t.Error("failed research should never reach the store")
	}
}

// TestDrainEmptyQueue verifies draining an empty queue is a no-op.
func TestDrainEmptyQueue(t *testing.T) {
	engine := NewEngine(&fakeStore{}, nil, nil, Config{})
	result := engine.Drain(context.Background())
	if result.Processed != 0 || result.Kept != 0 {
		t.Errorf("drain of empty queue = %+v, want zeros", result)
	}
}

// TestResurfaceCuriosities verifies resurfacing maps store records and
// degrades to an empty slice on store failure.
func TestResurfaceCuriosities(t *testing.T) {
	created := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	store := &fakeStore{records: []InsightRecord{
		{Tangent: "jazz harmony", SeedQuery: "tell me about bebop", Insight: "modal play", QualityScore: 0.8, CreatedAt: created},
	}}
	engine := NewEngine(store, nil, nil, Config{})

	got := engine.ResurfaceCuriosities(context.Background(), "what scales fit jazz?", 3)
	if len(got) != 1 {
		t.Fatalf("resurfaced %d records, want 1", len(got))
	}
	if got[0].Tangent != "jazz harmony" || got[0].OriginalContext != "tell me about bebop" {
		t.Errorf("unexpected record: %+v", got[0])
	}
	if !got[0].Timestamp.Equal(created) {
		t.Errorf("timestamp = %v, want %v", got[0].Timestamp, created)
	}

	store.searchErr = errors.New("fts corrupt")
	if got := engine.ResurfaceCuriosities(context.Background(), "anything", 3); len(got) != 0 {
		t.Errorf("resurfacing after store failure = %d records, want 0", len(got))
	}
}

// TestResurfaceDefaultLimit verifies a non-positive limit falls back to 3.
func TestResurfaceDefaultLimit(t *testing.T) {
	store := &fakeStore{}
	for i := 0; i < 5; i++ {
		store.records = append(store.records, InsightRecord{Tangent: fmt.Sprintf("t%d", i)})
	}
	engine := NewEngine(store, nil, nil, Config{})

	if got := engine.ResurfaceCuriosities(context.Background(), "x", 0); len(got) != 3 {
		t.Errorf("resurfaced %d records with limit 0, want 3", len(got))
	}
}

// TestBackgroundStartStop verifies idempotent start, prompt stop, and the
// running flag in status.
func TestBackgroundStartStop(t *testing.T) {
	store := &fakeStore{}
	engine := NewEngine(store, nil, nil, Config{CycleInterval: time.Hour})

	engine.StartBackground()
	engine.StartBackground() // no-op
	if !engine.Running() {
		t.Fatal("engine should report running after start")
	}

	start := time.Now()
	engine.StopBackground()
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Errorf("stop took %v, want well under the cycle interval", elapsed)
	}

	if engine.Running() {
		t.Error("engine should not report running after stop")
	}
	if engine.Status(context.Background()).BackgroundRunning {
		t.Error("status should report background not running")
	}

	engine.StopBackground() // idempotent
}

// TestBackgroundDrains verifies the background loop actually processes the
// queue on its cycle.
func TestBackgroundDrains(t *testing.T) {
	store := &fakeStore{}
	search := &fakeResearch{results: []SearchResult{{Title: "t", Snippet: "s"}}}
	engine := NewEngine(store, search, nil, Config{CycleInterval: 20 * time.Millisecond})

	engine.QueueTangent("background tangent", "seed", 0.2, 0.9)
	engine.StartBackground()
	defer engine.StopBackground()

	deadline := time.Now().Add(2 * time.Second)
	for engine.QueueSize() > 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}

	if engine.QueueSize() != 0 {
		t.Error("background loop never drained the queue")
	}
}

// TestStatus verifies the snapshot combines queue state and store stats,
// and zeroes the stats when the store fails.
func TestStatus(t *testing.T) {
	last := time.Date(2026, 2, 14, 8, 0, 0, 0, time.UTC)
	store := &fakeStore{stats: InsightStats{Total: 12, Kept: 7, AvgQuality: 0.6543, LastCuriosity: last}}
	engine := NewEngine(store, nil, nil, Config{})

	engine.QueueTangent("a tangent about tides", "seed", 0.2, 0.9)

	status := engine.Status(context.Background())
	if status.QueueSize != 1 {
		t.Errorf("queue size = %d, want 1", status.QueueSize)
	}
	if len(status.QueueItems) != 1 || status.QueueItems[0].Interest != 0.9 {
		t.Errorf("unexpected queue preview: %+v", status.QueueItems)
	}
	if status.DBTotal != 12 || status.DBKept != 7 {
		t.Errorf("stats = total %d kept %d, want 12/7", status.DBTotal, status.DBKept)
	}
	if status.DBAvgQuality != 0.654 {
		t.Errorf("avg quality = %v, want rounded 0.654", status.DBAvgQuality)
	}
	if status.DBLastCuriosity != "2026-02-14T08:00:00Z" {
		t.Errorf("last curiosity = %q", status.DBLastCuriosity)
	}

	store.statsErr = errors.New("db locked")
	status = engine.Status(context.Background())
	if status.DBTotal != 0 || status.DBKept != 0 || status.DBAvgQuality != 0 || status.DBLastCuriosity != "" {
		t.Errorf("stats after store failure should be zeroed, got %+v", status)
	}
}

// TestStatusPreviewTruncation verifies long tangent text is truncated in
// the preview but untouched in the queue.
func TestStatusPreviewTruncation(t *testing.T) {
	long := ""
	for i := 0; i < 20; i++ {
		long += "abcdefghij"
	}
	engine := NewEngine(&fakeStore{}, nil, nil, Config{})
	engine.QueueTangent(long, "seed", 0.2, 0.9)

	status := engine.Status(context.Background())
	if len(status.QueueItems[0].Tangent) != 80 {
		t.Errorf("preview length = %d, want 80", len(status.QueueItems[0].Tangent))
	}

	item, _ := engine.queue.Pop()
	if len(item.Text) != 200 {
		t.Errorf("queued text length = %d, want original 200", len(item.Text))
	}
}
