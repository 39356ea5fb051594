package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/elasticmcp/internal/elastic"
	gwerrors "github.com/Aman-CERP/elasticmcp/internal/errors"
)

// =============================================================================
// CountDocuments
// =============================================================================

func TestCountDocuments_All(t *testing.T) {
	engine := &mockEngine{
		CountFn: func(context.Context, string, map[string]any) (map[string]any, error) {
			return map[string]any{"count": float64(120)}, nil
		},
	}
	svc := newTestService(engine)

	out, err := svc.CountDocuments(context.Background(), "", "")

	require.NoError(t, err)
	assert.Equal(t, "documents", out.Index)
	assert.Equal(t, 120, out.Count)
	assert.Nil(t, out.Query)
	assert.Empty(t, engine.countCalls[0].Body)

	data, err := json.Marshal(out)
	require.NoError(t, err)
	assert.JSONEq(t, `{"index": "documents", "count": 120, "query": null}`, string(data))
}

func TestCountDocuments_WithQuery(t *testing.T) {
	engine := &mockEngine{
		CountFn: func(context.Context, string, map[string]any) (map[string]any, error) {
			return map[string]any{"count": float64(3)}, nil
		},
	}
	svc := newTestService(engine)
	obs := &recordingObserver{}

	out, err := svc.CountDocuments(WithObserver(context.Background(), obs), "logs", "invoice")

	require.NoError(t, err)
	require.NotNil(t, out.Query)
	assert.Equal(t, "invoice", *out.Query)
	assert.Contains(t, engine.countCalls[0].Body, "query")
	assert.Equal(t, []string{
		"Counting documents in index 'logs'",
		"Found 3 documents in index 'logs'",
	}, obs.infos)
}

func TestCountDocuments_MissingCount(t *testing.T) {
	svc := newTestService(&mockEngine{
		CountFn: func(context.Context, string, map[string]any) (map[string]any, error) {
			return map[string]any{}, nil
		},
	})

	_, err := svc.CountDocuments(context.Background(), "", "")

	assert.Equal(t, gwerrors.ErrCodeMalformedResponse, gwerrors.GetCode(err))
	assert.Contains(t, err.Error(), "Count failed:")
}

// =============================================================================
// ListIndices
// =============================================================================

func TestListIndices_CoercesCounts(t *testing.T) {
	svc := newTestService(&mockEngine{
		CatIndicesFn: func(context.Context) ([]elastic.CatIndex, error) {
			return []elastic.CatIndex{
				{Index: "documents", DocsCount: "1234", StoreSize: "5.2mb"},
				{Index: "empty", DocsCount: "0", StoreSize: "225b"},
				{Index: "closed", DocsCount: nil, StoreSize: nil},
				{Index: "weird", DocsCount: "n/a", StoreSize: "1kb"},
			}, nil
		},
	})

	out, err := svc.ListIndices(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 4, out.TotalIndices)
	assert.Equal(t, IndexSummary{Index: "documents", DocumentCount: 1234, Size: "5.2mb"}, out.Indices[0])
	assert.Equal(t, 0, out.Indices[1].DocumentCount)
	assert.Equal(t, IndexSummary{Index: "closed"}, out.Indices[2])
	assert.Equal(t, 0, out.Indices[3].DocumentCount)
}

func TestListIndices_Empty(t *testing.T) {
	svc := newTestService(&mockEngine{
		CatIndicesFn: func(context.Context) ([]elastic.CatIndex, error) { return nil, nil },
	})

	out, err := svc.ListIndices(context.Background())

	require.NoError(t, err)
	assert.NotNil(t, out.Indices)
	assert.Zero(t, out.TotalIndices)
}

// =============================================================================
// HealthCheck
// =============================================================================

func TestHealthCheck_CombinesReads(t *testing.T) {
	svc := newTestService(&mockEngine{
		ClusterHealthFn: func(context.Context) (*elastic.ClusterHealth, error) {
			return &elastic.ClusterHealth{
				ClusterName: "docker-cluster", Status: "yellow",
				NumberOfNodes: 1, ActivePrimaryShards: 7, ActiveShards: 7,
			}, nil
		},
		InfoFn: func(context.Context) (*elastic.Info, error) {
			info := &elastic.Info{}
			info.Version.Number = "8.15.1"
			return info, nil
		},
	})

	out, err := svc.HealthCheck(context.Background())

	require.NoError(t, err)
	assert.Equal(t, &Health{
		Status:               "yellow",
		ClusterName:          "docker-cluster",
		NumberOfNodes:        1,
		ActivePrimaryShards:  7,
		ActiveShards:         7,
		ElasticsearchVersion: "8.15.1",
		ConnectionURL:        "https://elasticsearch:9200",
	}, out)
}

func TestHealthCheck_FailsAsWhole(t *testing.T) {
	svc := newTestService(&mockEngine{
		ClusterHealthFn: func(ctx context.Context) (*elastic.ClusterHealth, error) {
			return &elastic.ClusterHealth{Status: "green"}, nil
		},
		InfoFn: func(context.Context) (*elastic.Info, error) {
			return nil, gwerrors.NetworkError("failed to reach Elasticsearch", errors.New("connection refused"))
		},
	})

	out, err := svc.HealthCheck(context.Background())

	assert.Nil(t, out)
	assert.Equal(t, gwerrors.ErrCodeNetworkUnavailable, gwerrors.GetCode(err))
	assert.Contains(t, err.Error(), "Health check failed: failed to reach Elasticsearch")
}

// =============================================================================
// GetDocument
// =============================================================================

func TestGetDocument_Found(t *testing.T) {
	var gotIndex, gotID string
	version := int64(4)
	svc := newTestService(&mockEngine{
		GetDocumentFn: func(_ context.Context, index, id string) (*elastic.Document, error) {
			gotIndex, gotID = index, id
			return &elastic.Document{Index: index, ID: id, Found: true, Version: &version,
				Source: map[string]any{"content": "hello"}}, nil
		},
	})

	out, err := svc.GetDocument(context.Background(), "abc 123", "")

	require.NoError(t, err)
	assert.Equal(t, "documents", gotIndex)
	assert.Equal(t, "abc 123", gotID)
	assert.Equal(t, &DocumentResult{
		DocumentID: "abc 123", Index: "documents", Found: true,
		Source: map[string]any{"content": "hello"}, Version: 4,
	}, out)
}

func TestGetDocument_NotFoundHint(t *testing.T) {
	// Given: a 404 from the engine
	svc := newTestService(&mockEngine{
		GetDocumentFn: func(context.Context, string, string) (*elastic.Document, error) {
			return nil, &elastic.StatusError{StatusCode: 404, Status: "404 Not Found"}
		},
	})
	obs := &recordingObserver{}

	// When: fetching a document by a made-up id
	_, err := svc.GetDocument(WithObserver(context.Background(), obs), "file.pdf", "docs")

	// Then: the caller is pointed at search result ids
	require.Error(t, err)
	assert.Equal(t, gwerrors.ErrCodeDocumentNotFound, gwerrors.GetCode(err))
	ge, ok := gwerrors.As(err)
	require.True(t, ok)
	assert.Equal(t,
		"Document 'file.pdf' not found in index 'docs'. Make sure to use the 'document_id' field from search results.",
		ge.Message)
	assert.Len(t, obs.errors, 1)
}

func TestGetDocument_OtherFailure(t *testing.T) {
	svc := newTestService(&mockEngine{
		GetDocumentFn: func(context.Context, string, string) (*elastic.Document, error) {
			return nil, &elastic.StatusError{StatusCode: 500, Status: "500 Internal Server Error"}
		},
	})

	_, err := svc.GetDocument(context.Background(), "x", "")

	assert.Equal(t, gwerrors.ErrCodeEngineError, gwerrors.GetCode(err))
	assert.Contains(t, err.Error(), "Get document failed:")
}

func TestGetDocument_EmptyID(t *testing.T) {
	svc := newTestService(&mockEngine{})

	_, err := svc.GetDocument(context.Background(), "", "")

	assert.Equal(t, gwerrors.ErrCodeInvalidInput, gwerrors.GetCode(err))
}

// =============================================================================
// SearchStats / IndexInfo / ServerHealth
// =============================================================================

func TestSearchStats(t *testing.T) {
	svc := newTestService(&mockEngine{
		SearchStatsFn: func(context.Context) (map[string]any, error) {
			return map[string]any{
				"_all": map[string]any{"total": map[string]any{"search": map[string]any{
					"query_total":          float64(3),
					"query_time_in_millis": float64(10),
					"query_current":        float64(1),
				}}},
				"indices": map[string]any{"zeta": map[string]any{}, "alpha": map[string]any{}},
			}, nil
		},
	})

	out, err := svc.SearchStats(context.Background())

	require.NoError(t, err)
	assert.Equal(t, int64(3), out.TotalSearches)
	assert.Equal(t, int64(10), out.SearchTimeMS)
	assert.Equal(t, 3.33, out.AvgSearchTimeMS)
	assert.Equal(t, int64(1), out.CurrentSearches)
	assert.Equal(t, []string{"alpha", "zeta"}, out.Indices)
}

func TestSearchStats_NoSearchesYet(t *testing.T) {
	svc := newTestService(&mockEngine{
		SearchStatsFn: func(context.Context) (map[string]any, error) {
			return map[string]any{
				"_all": map[string]any{"total": map[string]any{"search": map[string]any{
					"query_total": float64(0), "query_time_in_millis": float64(0), "query_current": float64(0),
				}}},
			}, nil
		},
	})

	out, err := svc.SearchStats(context.Background())

	require.NoError(t, err)
	assert.Zero(t, out.AvgSearchTimeMS)
	assert.NotNil(t, out.Indices)
}

func TestSearchStats_Malformed(t *testing.T) {
	svc := newTestService(&mockEngine{
		SearchStatsFn: func(context.Context) (map[string]any, error) {
			return map[string]any{"indices": map[string]any{}}, nil
		},
	})

	_, err := svc.SearchStats(context.Background())

	assert.Equal(t, gwerrors.ErrCodeMalformedResponse, gwerrors.GetCode(err))
	assert.Contains(t, err.Error(), "Get search stats failed:")
}

func TestSearchStats_MissingCounterFails(t *testing.T) {
	// Given: a stats response without query_time_in_millis
	svc := newTestService(&mockEngine{
		SearchStatsFn: func(context.Context) (map[string]any, error) {
			return map[string]any{
				"_all": map[string]any{"total": map[string]any{"search": map[string]any{
					"query_total": float64(3), "query_current": float64(0),
				}}},
			}, nil
		},
	})

	// When: reading search stats
	out, err := svc.SearchStats(context.Background())

	// Then: the read fails instead of reporting zero
	assert.Nil(t, out)
	assert.Equal(t, gwerrors.ErrCodeMalformedResponse, gwerrors.GetCode(err))
	assert.Contains(t, err.Error(), "query_time_in_millis")
}

func indexInfoEngine(statsKey string) *mockEngine {
	return &mockEngine{
		IndexSettingsFn: func(_ context.Context, index string) (map[string]any, error) {
			return map[string]any{statsKey: map[string]any{"settings": map[string]any{"index": map[string]any{"number_of_shards": "1"}}}}, nil
		},
		IndexMappingFn: func(_ context.Context, index string) (map[string]any, error) {
			return map[string]any{statsKey: map[string]any{"mappings": map[string]any{"properties": map[string]any{}}}}, nil
		},
		IndexStatsFn: func(_ context.Context, index string) (map[string]any, error) {
			return map[string]any{"indices": map[string]any{statsKey: map[string]any{"total": map[string]any{
				"docs":   map[string]any{"count": float64(42)},
				"store":  map[string]any{"size_in_bytes": float64(2048)},
				"search": map[string]any{"query_total": float64(9)},
			}}}}, nil
		},
	}
}

func TestIndexInfo(t *testing.T) {
	svc := newTestService(indexInfoEngine("documents"))

	out, err := svc.IndexInfo(context.Background(), "documents")

	require.NoError(t, err)
	assert.Equal(t, "documents", out.IndexName)
	assert.Contains(t, out.Settings, "index")
	assert.Contains(t, out.Mappings, "properties")
	assert.Equal(t, IndexStats{DocumentCount: 42, StoreSize: 2048, SearchTotal: 9}, out.Stats)
}

func TestIndexInfo_AliasResolvesToSingleIndex(t *testing.T) {
	svc := newTestService(indexInfoEngine("documents-000001"))

	out, err := svc.IndexInfo(context.Background(), "documents")

	require.NoError(t, err)
	assert.Equal(t, int64(42), out.Stats.DocumentCount)
}

func TestIndexInfo_MissingStatsLeafFails(t *testing.T) {
	// Given: index stats without docs.count
	engine := indexInfoEngine("documents")
	engine.IndexStatsFn = func(context.Context, string) (map[string]any, error) {
		return map[string]any{"indices": map[string]any{"documents": map[string]any{"total": map[string]any{
			"store":  map[string]any{"size_in_bytes": float64(2048)},
			"search": map[string]any{"query_total": float64(9)},
		}}}}, nil
	}
	svc := newTestService(engine)

	// When: reading index info
	out, err := svc.IndexInfo(context.Background(), "documents")

	// Then: the read fails instead of reporting zero documents
	assert.Nil(t, out)
	assert.Equal(t, gwerrors.ErrCodeMalformedResponse, gwerrors.GetCode(err))
	assert.Contains(t, err.Error(), "docs.count")
}

func TestIndexInfo_OneReadFails(t *testing.T) {
	engine := indexInfoEngine("documents")
	engine.IndexMappingFn = func(context.Context, string) (map[string]any, error) {
		return nil, &elastic.StatusError{StatusCode: 404, Status: "404 Not Found"}
	}
	svc := newTestService(engine)

	_, err := svc.IndexInfo(context.Background(), "documents")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "Get index info failed:")
}

func TestServerHealth(t *testing.T) {
	svc := newTestService(&mockEngine{})
	before := float64(time.Now().Unix())

	out := svc.ServerHealth()

	assert.Equal(t, "healthy", out.Status)
	assert.Equal(t, ServiceName, out.Service)
	assert.GreaterOrEqual(t, out.Timestamp, before)
}
