package gateway

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Aman-CERP/elasticmcp/internal/elastic"
	gwerrors "github.com/Aman-CERP/elasticmcp/internal/errors"
	"github.com/Aman-CERP/elasticmcp/internal/query"
	"github.com/Aman-CERP/elasticmcp/internal/result"
	"github.com/Aman-CERP/elasticmcp/internal/telemetry"
)

// ServiceName identifies the server in ServerHealth.
const ServiceName = "elasticsearch-mcp-server"

// CountResult is the output of CountDocuments. Query is null when absent.
type CountResult struct {
	Index string  `json:"index"`
	Count int     `json:"count"`
	Query *string `json:"query"`
}

// IndexSummary is one row of ListIndices.
type IndexSummary struct {
	Index         string `json:"index"`
	DocumentCount int    `json:"document_count"`
	Size          string `json:"size"`
}

// IndexList is the output of ListIndices.
type IndexList struct {
	Indices      []IndexSummary `json:"indices"`
	TotalIndices int            `json:"total_indices"`
}

// Health is the output of HealthCheck.
type Health struct {
	Status               string `json:"status"`
	ClusterName          string `json:"cluster_name"`
	NumberOfNodes        int    `json:"number_of_nodes"`
	ActivePrimaryShards  int    `json:"active_primary_shards"`
	ActiveShards         int    `json:"active_shards"`
	ElasticsearchVersion string `json:"elasticsearch_version"`
	ConnectionURL        string `json:"connection_url"`
}

// DocumentResult is the output of GetDocument.
type DocumentResult struct {
	DocumentID string         `json:"document_id"`
	Index      string         `json:"index"`
	Found      bool           `json:"found"`
	Source     map[string]any `json:"source"`
	Version    int64          `json:"version"`
}

// SearchStats summarises query activity across all indices.
type SearchStats struct {
	TotalSearches   int64    `json:"total_searches"`
	SearchTimeMS    int64    `json:"search_time_ms"`
	AvgSearchTimeMS float64  `json:"avg_search_time_ms"`
	CurrentSearches int64    `json:"current_searches"`
	Indices         []string `json:"indices"`
}

// IndexStats is the stats block of IndexInfo.
type IndexStats struct {
	DocumentCount int64 `json:"document_count"`
	StoreSize     int64 `json:"store_size"`
	SearchTotal   int64 `json:"search_total"`
}

// IndexInfo is the settings, mappings and headline stats of one index.
type IndexInfo struct {
	IndexName string         `json:"index_name"`
	Settings  map[string]any `json:"settings"`
	Mappings  map[string]any `json:"mappings"`
	Stats     IndexStats     `json:"stats"`
}

// ServerHealth is the liveness answer of the gateway itself.
type ServerHealth struct {
	Status    string  `json:"status"`
	Service   string  `json:"service"`
	Timestamp float64 `json:"timestamp"`
}

// CountDocuments counts documents in index, optionally restricted by a
// keyword query. An empty query counts everything.
func (s *Service) CountDocuments(ctx context.Context, index string, q string) (*CountResult, error) {
	const operation = "Count"
	index = s.index(index)
	obs := observerFrom(ctx)
	obs.Info(ctx, fmt.Sprintf("Counting documents in index '%s'", index))

	start := time.Now()
	raw, err := s.engine.Count(ctx, index, query.Count(q))
	if err != nil {
		return nil, s.fail(ctx, operation, err)
	}
	n, ok := asInt(raw["count"])
	if !ok {
		return nil, s.fail(ctx, operation, fmt.Errorf("%w: missing count", result.ErrMalformed))
	}

	s.insights.Record(telemetry.QueryEvent{
		Query:     q,
		Mode:      string(query.ModeCount),
		Index:     index,
		TotalHits: n,
		Latency:   time.Since(start),
	})
	obs.Info(ctx, fmt.Sprintf("Found %d documents in index '%s'", n, index))

	out := &CountResult{Index: index, Count: n}
	if q != "" {
		out.Query = &q
	}
	return out, nil
}

// ListIndices lists every index with its document count and store size.
func (s *Service) ListIndices(ctx context.Context) (*IndexList, error) {
	obs := observerFrom(ctx)
	obs.Info(ctx, "Listing all Elasticsearch indices")

	rows, err := s.engine.CatIndices(ctx)
	if err != nil {
		return nil, s.fail(ctx, "List indices", err)
	}

	indices := make([]IndexSummary, 0, len(rows))
	for _, row := range rows {
		count, _ := asInt(row.DocsCount)
		indices = append(indices, IndexSummary{
			Index:         row.Index,
			DocumentCount: count,
			Size:          asString(row.StoreSize),
		})
	}

	obs.Info(ctx, fmt.Sprintf("Found %d indices", len(indices)))
	return &IndexList{Indices: indices, TotalIndices: len(indices)}, nil
}

// HealthCheck reads cluster health and version concurrently.
func (s *Service) HealthCheck(ctx context.Context) (*Health, error) {
	obs := observerFrom(ctx)
	obs.Info(ctx, "Checking Elasticsearch cluster health")

	var (
		health *elastic.ClusterHealth
		info   *elastic.Info
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		health, err = s.engine.ClusterHealth(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		info, err = s.engine.Info(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, s.fail(ctx, "Health check", err)
	}

	out := &Health{
		Status:               health.Status,
		ClusterName:          health.ClusterName,
		NumberOfNodes:        health.NumberOfNodes,
		ActivePrimaryShards:  health.ActivePrimaryShards,
		ActiveShards:         health.ActiveShards,
		ElasticsearchVersion: info.Version.Number,
		ConnectionURL:        s.engine.URL(),
	}
	obs.Info(ctx, fmt.Sprintf("Cluster status: %s", out.Status))
	return out, nil
}

// GetDocument fetches one document by id. A missing document yields a
// not-found error whose message points the caller at search result ids.
func (s *Service) GetDocument(ctx context.Context, documentID, index string) (*DocumentResult, error) {
	const operation = "Get document"
	index = s.index(index)
	obs := observerFrom(ctx)

	if documentID == "" {
		return nil, s.fail(ctx, operation, invalid("document_id must not be empty"))
	}
	obs.Info(ctx, fmt.Sprintf("Getting document '%s' from index '%s'", documentID, index))

	doc, err := s.engine.GetDocument(ctx, index, documentID)
	if err != nil {
		if elastic.IsNotFound(err) {
			msg := fmt.Sprintf("Document '%s' not found in index '%s'. Make sure to use the 'document_id' field from search results.", documentID, index)
			obs.Error(ctx, operation+" failed: "+err.Error())
			return nil, gwerrors.NotFoundError(msg, err).
				WithDetail("document_id", documentID).
				WithDetail("index", index)
		}
		return nil, s.fail(ctx, operation, err)
	}

	obs.Info(ctx, fmt.Sprintf("Retrieved document '%s'", documentID))

	out := &DocumentResult{
		DocumentID: doc.ID,
		Index:      doc.Index,
		Found:      doc.Found,
		Source:     doc.Source,
	}
	if out.Source == nil {
		out.Source = map[string]any{}
	}
	if doc.Version != nil {
		out.Version = *doc.Version
	}
	return out, nil
}

// SearchStats summarises search activity across all indices.
func (s *Service) SearchStats(ctx context.Context) (*SearchStats, error) {
	const operation = "Get search stats"
	observerFrom(ctx).Info(ctx, "Getting Elasticsearch search statistics")

	raw, err := s.engine.SearchStats(ctx)
	if err != nil {
		return nil, s.fail(ctx, operation, err)
	}

	search, ok := dig(raw, "_all", "total", "search")
	if !ok {
		return nil, s.fail(ctx, operation, fmt.Errorf("%w: missing _all.total.search", result.ErrMalformed))
	}
	var total, timeMS, current int64
	for _, leaf := range []struct {
		key string
		dst *int64
	}{
		{"query_total", &total},
		{"query_time_in_millis", &timeMS},
		{"query_current", &current},
	} {
		n, ok := asInt64(search[leaf.key])
		if !ok {
			return nil, s.fail(ctx, operation, fmt.Errorf("%w: missing _all.total.search.%s", result.ErrMalformed, leaf.key))
		}
		*leaf.dst = n
	}

	indices := make([]string, 0)
	if m, ok := raw["indices"].(map[string]any); ok {
		for name := range m {
			indices = append(indices, name)
		}
	}
	sort.Strings(indices)

	return &SearchStats{
		TotalSearches:   total,
		SearchTimeMS:    timeMS,
		AvgSearchTimeMS: math.Round(float64(timeMS)/float64(max(total, 1))*100) / 100,
		CurrentSearches: current,
		Indices:         indices,
	}, nil
}

// IndexInfo reads settings, mappings and stats of one index concurrently.
func (s *Service) IndexInfo(ctx context.Context, index string) (*IndexInfo, error) {
	const operation = "Get index info"
	if index == "" {
		return nil, s.fail(ctx, operation, invalid("index name must not be empty"))
	}
	observerFrom(ctx).Info(ctx, fmt.Sprintf("Getting information for index '%s'", index))

	var settings, mappings, stats map[string]any
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		settings, err = s.engine.IndexSettings(gctx, index)
		return err
	})
	g.Go(func() (err error) {
		mappings, err = s.engine.IndexMapping(gctx, index)
		return err
	})
	g.Go(func() (err error) {
		stats, err = s.engine.IndexStats(gctx, index)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, s.fail(ctx, operation, err)
	}

	out := &IndexInfo{IndexName: index}

	var ok bool
	if out.Settings, ok = dig(indexEntry(settings, index), "settings"); !ok {
		return nil, s.fail(ctx, operation, fmt.Errorf("%w: missing settings for %s", result.ErrMalformed, index))
	}
	if out.Mappings, ok = dig(indexEntry(mappings, index), "mappings"); !ok {
		return nil, s.fail(ctx, operation, fmt.Errorf("%w: missing mappings for %s", result.ErrMalformed, index))
	}
	indicesStats, _ := stats["indices"].(map[string]any)
	totals, ok := dig(indexEntry(indicesStats, index), "total")
	if !ok {
		return nil, s.fail(ctx, operation, fmt.Errorf("%w: missing stats for %s", result.ErrMalformed, index))
	}
	for _, leaf := range []struct {
		path []string
		dst  *int64
	}{
		{[]string{"docs", "count"}, &out.Stats.DocumentCount},
		{[]string{"store", "size_in_bytes"}, &out.Stats.StoreSize},
		{[]string{"search", "query_total"}, &out.Stats.SearchTotal},
	} {
		n, ok := int64At(totals, leaf.path...)
		if !ok {
			return nil, s.fail(ctx, operation, fmt.Errorf("%w: missing stats %s for %s",
				result.ErrMalformed, strings.Join(leaf.path, "."), index))
		}
		*leaf.dst = n
	}

	s.logger.Debug("index info read", slog.String("index", index))
	return out, nil
}

// ServerHealth reports that the gateway process is alive. It does not touch
// the cluster.
func (s *Service) ServerHealth() *ServerHealth {
	now := time.Now()
	return &ServerHealth{
		Status:    "healthy",
		Service:   ServiceName,
		Timestamp: float64(now.UnixNano()) / float64(time.Second),
	}
}

// indexEntry returns m[index], or the single entry of m when the name given
// was an alias resolved to one concrete index.
func indexEntry(m map[string]any, index string) map[string]any {
	if entry, ok := m[index].(map[string]any); ok {
		return entry
	}
	if len(m) == 1 {
		for _, v := range m {
			entry, _ := v.(map[string]any)
			return entry
		}
	}
	return nil
}

func dig(m map[string]any, path ...string) (map[string]any, bool) {
	cur := m
	for _, key := range path {
		next, ok := cur[key].(map[string]any)
		if !ok {
			return nil, false
		}
		cur = next
	}
	return cur, cur != nil
}

func int64At(m map[string]any, path ...string) (int64, bool) {
	parent, ok := dig(m, path[:len(path)-1]...)
	if !ok {
		return 0, false
	}
	return asInt64(parent[path[len(path)-1]])
}

func asInt(v any) (int, bool) {
	n, ok := asInt64(v)
	return int(n), ok
}

// asInt64 accepts JSON numbers and the numeric strings _cat endpoints return.
func asInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case float64:
		return int64(n), true
	case int:
		return int64(n), true
	case int64:
		return n, true
	case string:
		i, err := strconv.ParseInt(strings.TrimSpace(n), 10, 64)
		if err != nil {
			return 0, false
		}
		return i, true
	default:
		return 0, false
	}
}

func asString(v any) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	default:
		return fmt.Sprint(s)
	}
}
