package curiosity

import (
	"log"
	"strings"
	"sync"
	"time"
)

// DefaultQueueCapacity is the bounded size of the tangent queue.
// When full, the oldest tangent is evicted to make room.
const DefaultQueueCapacity = 50

// Tangent is a candidate thought waiting to be explored. It is immutable
// after admission.
type Tangent struct {
	Text      string    `json:"tangent"`
	SeedQuery string    `json:"seed_query"`
	Relevance float64   `json:"relevance"`
	Interest  float64   `json:"interest"`
	QueuedAt  time.Time `json:"queued_at"`
}

// TangentQueue is a bounded, thread-safe FIFO of tangents the engine wants
// to explore. Admission is filtered: only tangents with low relevance to
// the live conversation but high standalone interest get in.
type TangentQueue struct {
	mu       sync.Mutex
	items    []Tangent
	capacity int
}

// NewTangentQueue creates a queue bounded at capacity. A capacity <= 0
// falls back to DefaultQueueCapacity.
func NewTangentQueue(capacity int) *TangentQueue {
	if capacity <= 0 {
		capacity = DefaultQueueCapacity
	}
	return &TangentQueue{
		items:    make([]Tangent, 0, capacity),
		capacity: capacity,
	}
}

// Push adds a tangent to the queue. Only admits if relevance < 0.5 AND
// interest >= 0.7: not useful to the user right now, but interesting on
// its own. Duplicate tangent text (case and whitespace insensitive) is
// rejected. When the queue is at capacity the oldest entry is evicted
// silently. Returns true if the tangent was admitted. Never blocks.
func (q *TangentQueue) Push(text, seedQuery string, relevance, interest float64) bool {
	if relevance >= 0.5 || interest < 0.7 {
		return false
	}

	key := normalizeTangent(text)

	q.mu.Lock()
	defer q.mu.Unlock()

	for _, existing := range q.items {
		if normalizeTangent(existing.Text) == key {
			return false
		}
	}

	if len(q.items) >= q.capacity {
		q.items = q.items[1:]
	}

	q.items = append(q.items, Tangent{
		Text:      text,
		SeedQuery: seedQuery,
		Relevance: relevance,
		Interest:  interest,
		QueuedAt:  time.Now(),
	})

	log.Printf("🧠 [CURIOSITY] Queued [interest=%.2f]: %s", interest, truncate(text, 80))
	return true
}

// Pop removes and returns the oldest queued tangent. The second return
// value is false when the queue is empty. Never blocks.
func (q *TangentQueue) Pop() (Tangent, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.items) == 0 {
		return Tangent{}, false
	}

	item := q.items[0]
	q.items = q.items[1:]
	return item, true
}

// PeekAll returns a snapshot copy of the queue in FIFO order.
func (q *TangentQueue) PeekAll() []Tangent {
	q.mu.Lock()
	defer q.mu.Unlock()

	snapshot := make([]Tangent, len(q.items))
	copy(snapshot, q.items)
	return snapshot
}

// Size returns the current number of queued tangents.
func (q *TangentQueue) Size() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

func normalizeTangent(text string) string {
	return strings.ToLower(strings.TrimSpace(text))
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}
