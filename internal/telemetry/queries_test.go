package telemetry

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// CircularBuffer Tests
// =============================================================================

func TestCircularBuffer_MaintainsCapacity(t *testing.T) {
	buf := NewCircularBuffer[string](3)

	buf.Add("query1")
	buf.Add("query2")
	buf.Add("query3")
	buf.Add("query4") // evicts query1
	buf.Add("query5") // evicts query2

	assert.Equal(t, 3, buf.Size())
	assert.Equal(t, []string{"query3", "query4", "query5"}, buf.Items())
}

func TestCircularBuffer_EmptyItems(t *testing.T) {
	buf := NewCircularBuffer[string](0)

	items := buf.Items()
	assert.NotNil(t, items)
	assert.Empty(t, items)
}

// =============================================================================
// Latency Buckets
// =============================================================================

func TestLatencyToBucket(t *testing.T) {
	tests := []struct {
		latency  time.Duration
		expected LatencyBucket
	}{
		{5 * time.Millisecond, BucketFast},
		{49 * time.Millisecond, BucketFast},
		{50 * time.Millisecond, BucketNormal},
		{199 * time.Millisecond, BucketNormal},
		{200 * time.Millisecond, BucketSlow},
		{999 * time.Millisecond, BucketSlow},
		{time.Second, BucketSlower},
		{5 * time.Second, BucketStall},
		{30 * time.Second, BucketStall},
	}

	for _, tt := range tests {
		t.Run(tt.latency.String(), func(t *testing.T) {
			assert.Equal(t, tt.expected, LatencyToBucket(tt.latency))
		})
	}
}

func TestExtractTerms(t *testing.T) {
	assert.Equal(t, []string{"robot", "arm"}, ExtractTerms("  Robot ARM of it "))
	assert.Nil(t, ExtractTerms("a an"))
	assert.Nil(t, ExtractTerms(""))
}

// =============================================================================
// QueryInsights
// =============================================================================

func TestQueryInsights_Record(t *testing.T) {
	// Given: a fresh collector
	q := NewQueryInsights()

	// When: recording a mix of queries
	q.Record(QueryEvent{Query: "robot arm", Mode: "keyword", Index: "docs", TotalHits: 3, Latency: 10 * time.Millisecond})
	q.Record(QueryEvent{Query: "Robot  arm", Mode: "keyword", Index: "docs", TotalHits: 3, Latency: 300 * time.Millisecond})
	q.Record(QueryEvent{Query: "robot", Mode: "semantic", Index: "docs", TotalHits: 0, Latency: 20 * time.Millisecond})
	q.Record(QueryEvent{Query: "", Mode: "count", Index: "logs", TotalHits: 0})

	// Then: the snapshot reflects them
	snap := q.Snapshot()
	assert.Equal(t, int64(4), snap.TotalQueries)
	assert.Equal(t, int64(2), snap.ModeCounts["keyword"])
	assert.Equal(t, int64(1), snap.ModeCounts["semantic"])
	assert.Equal(t, int64(3), snap.IndexCounts["docs"])
	assert.Equal(t, int64(1), snap.IndexCounts["logs"])

	require.NotEmpty(t, snap.TopTerms)
	assert.Equal(t, TermCount{Term: "robot", Count: 3}, snap.TopTerms[0])
	assert.Equal(t, TermCount{Term: "arm", Count: 2}, snap.TopTerms[1])

	// empty count queries are not zero-result searches
	assert.Equal(t, []string{"robot"}, snap.ZeroResultQueries)
	assert.Equal(t, int64(1), snap.ZeroResultCount)
	assert.InDelta(t, 25.0, snap.ZeroResultPercentage(), 1e-9)

	assert.Equal(t, int64(3), snap.LatencyDistribution[BucketFast])
	assert.Equal(t, int64(1), snap.LatencyDistribution[BucketSlow])
}

func TestQueryInsights_RepeatsAreModeScoped(t *testing.T) {
	q := NewQueryInsights()

	q.Record(QueryEvent{Query: "invoice", Mode: "keyword"})
	q.Record(QueryEvent{Query: "INVOICE ", Mode: "keyword"})
	q.Record(QueryEvent{Query: "invoice", Mode: "hybrid"})

	snap := q.Snapshot()
	assert.Equal(t, int64(1), snap.ExactRepeatCount)
	assert.InDelta(t, 1.0/3.0, snap.ExactRepeatRate, 1e-9)
}

func TestQueryInsights_TopTermsBounded(t *testing.T) {
	q := NewQueryInsightsWithConfig(QueryInsightsConfig{TopTermsCapacity: 2})

	q.Record(QueryEvent{Query: "alpha beta gamma", Mode: "keyword"})

	assert.Len(t, q.Snapshot().TopTerms, 2)
}

func TestQueryInsights_NilReceiver(t *testing.T) {
	var q *QueryInsights

	assert.NotPanics(t, func() {
		q.Record(QueryEvent{Query: "x"})
	})
}

func TestQueryInsights_ConcurrentRecord(t *testing.T) {
	q := NewQueryInsights()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				q.Record(QueryEvent{Query: "concurrent query", Mode: "keyword", TotalHits: 1})
			}
		}()
	}
	wg.Wait()

	snap := q.Snapshot()
	assert.Equal(t, int64(1000), snap.TotalQueries)
	assert.Equal(t, int64(999), snap.ExactRepeatCount)
}
