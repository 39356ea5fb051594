package mcp

import (
	"context"
	"encoding/json"
	"net/url"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/Aman-CERP/elasticmcp/internal/gateway"
)

// Resource URIs.
const (
	StatsURI         = "elasticsearch://stats"
	IndexURITemplate = "elasticsearch://index/{index_name}"
	QueryInsightsURI = "elasticmcp://query_insights"
	indexURIPrefix   = "elasticsearch://index/"
	jsonMIMEType     = "application/json"
	insightsPeriod   = "session"
)

// registerResources registers the cluster resources, and the query insights
// resource when insights are collected.
func (s *Server) registerResources() {
	s.mcp.AddResource(&mcp.Resource{
		Name:        "search_stats",
		URI:         StatsURI,
		Description: "Elasticsearch search statistics and performance metrics",
		MIMEType:    jsonMIMEType,
	}, s.readSearchStats)

	s.mcp.AddResourceTemplate(&mcp.ResourceTemplate{
		Name:        "index_info",
		URITemplate: IndexURITemplate,
		Description: "Settings, mappings and stats of one Elasticsearch index",
		MIMEType:    jsonMIMEType,
	}, s.readIndexInfo)

	if s.insights != nil {
		s.mcp.AddResource(&mcp.Resource{
			Name:        "query_insights",
			URI:         QueryInsightsURI,
			Description: "Query pattern telemetry of this server: modes, top terms, zero-result queries, latency",
			MIMEType:    jsonMIMEType,
		}, s.readQueryInsights)
	}
}

func (s *Server) readSearchStats(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	stats, err := s.service.SearchStats(gateway.WithObserver(ctx, sessionObserver(req.Session)))
	if err != nil {
		return nil, MapError(err)
	}
	return jsonResource(StatsURI, stats)
}

func (s *Server) readIndexInfo(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	uri := req.Params.URI
	name, err := indexNameFromURI(uri)
	if err != nil {
		return nil, mcp.ResourceNotFoundError(uri)
	}

	info, err := s.service.IndexInfo(gateway.WithObserver(ctx, sessionObserver(req.Session)), name)
	if err != nil {
		return nil, MapError(err)
	}
	return jsonResource(uri, info)
}

// QueryInsightsOutput is the JSON structure of the query insights resource.
type QueryInsightsOutput struct {
	Summary             QueryInsightsSummary `json:"summary"`
	ModeCounts          map[string]int64     `json:"mode_counts"`
	IndexCounts         map[string]int64     `json:"index_counts"`
	TopTerms            []QueryTermCount     `json:"top_terms"`
	ZeroResultQueries   []string             `json:"zero_result_queries"`
	LatencyDistribution map[string]int64     `json:"latency_distribution"`
}

// QueryInsightsSummary provides overview statistics.
type QueryInsightsSummary struct {
	TotalQueries    int64   `json:"total_queries"`
	TimePeriod      string  `json:"time_period"`
	ZeroResultPct   float64 `json:"zero_result_pct"`
	ExactRepeatRate float64 `json:"exact_repeat_rate"`
}

// QueryTermCount represents a term and its frequency.
type QueryTermCount struct {
	Term  string `json:"term"`
	Count int64  `json:"count"`
}

func (s *Server) readQueryInsights(_ context.Context, _ *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	snapshot := s.insights.Snapshot()

	output := QueryInsightsOutput{
		Summary: QueryInsightsSummary{
			TotalQueries:    snapshot.TotalQueries,
			TimePeriod:      insightsPeriod,
			ZeroResultPct:   snapshot.ZeroResultPercentage(),
			ExactRepeatRate: snapshot.ExactRepeatRate,
		},
		ModeCounts:          snapshot.ModeCounts,
		IndexCounts:         snapshot.IndexCounts,
		TopTerms:            make([]QueryTermCount, 0, len(snapshot.TopTerms)),
		ZeroResultQueries:   snapshot.ZeroResultQueries,
		LatencyDistribution: make(map[string]int64, len(snapshot.LatencyDistribution)),
	}
	for _, tc := range snapshot.TopTerms {
		output.TopTerms = append(output.TopTerms, QueryTermCount{Term: tc.Term, Count: tc.Count})
	}
	for bucket, count := range snapshot.LatencyDistribution {
		output.LatencyDistribution[string(bucket)] = count
	}

	return jsonResource(QueryInsightsURI, output)
}

// indexNameFromURI extracts the unescaped index name from an index resource URI.
func indexNameFromURI(uri string) (string, error) {
	raw, ok := strings.CutPrefix(uri, indexURIPrefix)
	if !ok || raw == "" || strings.Contains(raw, "/") {
		return "", NewInvalidParamsError("invalid index resource: " + uri)
	}
	name, err := url.PathUnescape(raw)
	if err != nil {
		return "", NewInvalidParamsError("invalid index resource: " + uri)
	}
	return name, nil
}

func jsonResource(uri string, v any) (*mcp.ReadResourceResult, error) {
	content, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, MapError(err)
	}
	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{
			{
				URI:      uri,
				MIMEType: jsonMIMEType,
				Text:     string(content),
			},
		},
	}, nil
}
