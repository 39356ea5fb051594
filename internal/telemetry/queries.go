// Package telemetry records what the gateway is asked and how the cluster
// responds: Prometheus collectors for scraping, and an in-memory query
// insight collector that the MCP server exposes as a resource.
//
// Query text never leaves the process.
package telemetry

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// =============================================================================
// Latency Buckets
// =============================================================================

// LatencyBucket is a coarse search latency class.
type LatencyBucket string

const (
	BucketFast   LatencyBucket = "lt_50ms"
	BucketNormal LatencyBucket = "lt_200ms"
	BucketSlow   LatencyBucket = "lt_1s"
	BucketSlower LatencyBucket = "lt_5s"
	BucketStall  LatencyBucket = "gte_5s"
)

// LatencyToBucket converts a duration to its bucket.
func LatencyToBucket(d time.Duration) LatencyBucket {
	switch {
	case d < 50*time.Millisecond:
		return BucketFast
	case d < 200*time.Millisecond:
		return BucketNormal
	case d < time.Second:
		return BucketSlow
	case d < 5*time.Second:
		return BucketSlower
	default:
		return BucketStall
	}
}

// =============================================================================
// Query Event
// =============================================================================

// QueryEvent is one completed search or count.
type QueryEvent struct {
	Query     string
	Mode      string
	Index     string
	TotalHits int
	Latency   time.Duration
}

// =============================================================================
// Circular Buffer
// =============================================================================

// CircularBuffer is a fixed-capacity FIFO buffer.
type CircularBuffer[T any] struct {
	items    []T
	head     int
	size     int
	capacity int
	mu       sync.RWMutex
}

// NewCircularBuffer creates a buffer. Non-positive capacity defaults to 100.
func NewCircularBuffer[T any](capacity int) *CircularBuffer[T] {
	if capacity <= 0 {
		capacity = 100
	}
	return &CircularBuffer[T]{
		items:    make([]T, capacity),
		capacity: capacity,
	}
}

// Add appends an item, evicting the oldest when full.
func (b *CircularBuffer[T]) Add(item T) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.items[b.head] = item
	b.head = (b.head + 1) % b.capacity

	if b.size < b.capacity {
		b.size++
	}
}

// Items returns the buffered items oldest first.
func (b *CircularBuffer[T]) Items() []T {
	b.mu.RLock()
	defer b.mu.RUnlock()

	result := make([]T, b.size)
	if b.size < b.capacity {
		copy(result, b.items[:b.size])
	} else {
		copy(result, b.items[b.head:])
		copy(result[b.capacity-b.head:], b.items[:b.head])
	}
	return result
}

// Size returns the current number of items.
func (b *CircularBuffer[T]) Size() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.size
}

// =============================================================================
// Term Extraction
// =============================================================================

// ExtractTerms lowercases a query and keeps words of at least three bytes.
func ExtractTerms(query string) []string {
	words := strings.Fields(strings.ToLower(query))
	var terms []string
	for _, w := range words {
		if len(w) >= 3 {
			terms = append(terms, w)
		}
	}
	return terms
}

// TermCount is a term and its frequency.
type TermCount struct {
	Term  string `json:"term"`
	Count int64  `json:"count"`
}

// =============================================================================
// Snapshot
// =============================================================================

// QuerySnapshot is a point-in-time copy of the collected insights.
type QuerySnapshot struct {
	TotalQueries        int64                   `json:"total_queries"`
	ModeCounts          map[string]int64        `json:"mode_counts"`
	IndexCounts         map[string]int64        `json:"index_counts"`
	TopTerms            []TermCount             `json:"top_terms"`
	ZeroResultQueries   []string                `json:"zero_result_queries"`
	ZeroResultCount     int64                   `json:"zero_result_count"`
	LatencyDistribution map[LatencyBucket]int64 `json:"latency_distribution"`
	ExactRepeatCount    int64                   `json:"exact_repeat_count"`
	ExactRepeatRate     float64                 `json:"exact_repeat_rate"`
	Since               time.Time               `json:"since"`
}

// ZeroResultPercentage returns the share of queries that matched nothing.
func (s *QuerySnapshot) ZeroResultPercentage() float64 {
	if s.TotalQueries == 0 {
		return 0
	}
	return float64(s.ZeroResultCount) / float64(s.TotalQueries) * 100
}

// =============================================================================
// Query Insights
// =============================================================================

// QueryInsightsConfig sizes the bounded structures of QueryInsights.
type QueryInsightsConfig struct {
	TopTermsCapacity      int // default 100
	ZeroResultsCapacity   int // default 50
	RecentQueriesCapacity int // default 500
}

// DefaultQueryInsightsConfig returns the default sizes.
func DefaultQueryInsightsConfig() QueryInsightsConfig {
	return QueryInsightsConfig{
		TopTermsCapacity:      100,
		ZeroResultsCapacity:   50,
		RecentQueriesCapacity: 500,
	}
}

// QueryInsights aggregates query patterns in memory. Safe for concurrent use.
type QueryInsights struct {
	mu sync.Mutex

	modes            map[string]int64
	indices          map[string]int64
	topTerms         *lru.Cache[string, int64]
	zeroResults      *CircularBuffer[string]
	latencies        map[LatencyBucket]int64
	recentQueries    *lru.Cache[string, struct{}]
	totalQueries     int64
	zeroResultCount  int64
	exactRepeatCount int64
	startTime        time.Time
}

// NewQueryInsights creates a collector with default sizes.
func NewQueryInsights() *QueryInsights {
	return NewQueryInsightsWithConfig(DefaultQueryInsightsConfig())
}

// NewQueryInsightsWithConfig creates a collector. Non-positive sizes take defaults.
func NewQueryInsightsWithConfig(cfg QueryInsightsConfig) *QueryInsights {
	def := DefaultQueryInsightsConfig()
	if cfg.TopTermsCapacity <= 0 {
		cfg.TopTermsCapacity = def.TopTermsCapacity
	}
	if cfg.ZeroResultsCapacity <= 0 {
		cfg.ZeroResultsCapacity = def.ZeroResultsCapacity
	}
	if cfg.RecentQueriesCapacity <= 0 {
		cfg.RecentQueriesCapacity = def.RecentQueriesCapacity
	}

	// lru.New only fails on non-positive sizes.
	topTerms, _ := lru.New[string, int64](cfg.TopTermsCapacity)
	recent, _ := lru.New[string, struct{}](cfg.RecentQueriesCapacity)

	return &QueryInsights{
		modes:         make(map[string]int64),
		indices:       make(map[string]int64),
		topTerms:      topTerms,
		zeroResults:   NewCircularBuffer[string](cfg.ZeroResultsCapacity),
		latencies:     make(map[LatencyBucket]int64),
		recentQueries: recent,
		startTime:     time.Now(),
	}
}

// Record adds one completed query. A nil receiver is a no-op.
func (q *QueryInsights) Record(event QueryEvent) {
	if q == nil {
		return
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	q.totalQueries++
	q.modes[event.Mode]++
	if event.Index != "" {
		q.indices[event.Index]++
	}
	q.latencies[LatencyToBucket(event.Latency)]++

	for _, term := range ExtractTerms(event.Query) {
		count, _ := q.topTerms.Get(term)
		q.topTerms.Add(term, count+1)
	}

	if event.TotalHits == 0 && strings.TrimSpace(event.Query) != "" {
		q.zeroResults.Add(event.Query)
		q.zeroResultCount++
	}

	key := hashQuery(event.Mode, event.Query)
	if _, seen := q.recentQueries.Get(key); seen {
		q.exactRepeatCount++
	}
	q.recentQueries.Add(key, struct{}{})
}

func hashQuery(mode, query string) string {
	normalized := mode + "\x00" + strings.ToLower(strings.TrimSpace(query))
	sum := sha256.Sum256([]byte(normalized))
	return hex.EncodeToString(sum[:16])
}

// Snapshot copies the current aggregates.
func (q *QueryInsights) Snapshot() *QuerySnapshot {
	q.mu.Lock()
	defer q.mu.Unlock()

	snap := &QuerySnapshot{
		TotalQueries:        q.totalQueries,
		ModeCounts:          make(map[string]int64, len(q.modes)),
		IndexCounts:         make(map[string]int64, len(q.indices)),
		TopTerms:            make([]TermCount, 0, q.topTerms.Len()),
		ZeroResultQueries:   q.zeroResults.Items(),
		ZeroResultCount:     q.zeroResultCount,
		LatencyDistribution: make(map[LatencyBucket]int64, len(q.latencies)),
		ExactRepeatCount:    q.exactRepeatCount,
		Since:               q.startTime,
	}
	for k, v := range q.modes {
		snap.ModeCounts[k] = v
	}
	for k, v := range q.indices {
		snap.IndexCounts[k] = v
	}
	for k, v := range q.latencies {
		snap.LatencyDistribution[k] = v
	}

	for _, term := range q.topTerms.Keys() {
		if count, ok := q.topTerms.Peek(term); ok {
			snap.TopTerms = append(snap.TopTerms, TermCount{Term: term, Count: count})
		}
	}
	sort.SliceStable(snap.TopTerms, func(i, j int) bool {
		if snap.TopTerms[i].Count != snap.TopTerms[j].Count {
			return snap.TopTerms[i].Count > snap.TopTerms[j].Count
		}
		return snap.TopTerms[i].Term < snap.TopTerms[j].Term
	})

	if q.totalQueries > 0 {
		snap.ExactRepeatRate = float64(q.exactRepeatCount) / float64(q.totalQueries)
	}
	return snap
}
