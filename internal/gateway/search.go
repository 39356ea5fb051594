package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	gwerrors "github.com/Aman-CERP/elasticmcp/internal/errors"
	"github.com/Aman-CERP/elasticmcp/internal/query"
	"github.com/Aman-CERP/elasticmcp/internal/result"
	"github.com/Aman-CERP/elasticmcp/internal/telemetry"
)

// SearchParams are the caller parameters of the search operations. Nil
// pointers take the service defaults, so an explicit zero is preserved.
type SearchParams struct {
	Query        string
	Index        string
	Size         *int
	Highlight    *bool
	FragmentSize *int
	NumFragments *int

	// Hybrid only.
	RankWindowSize *int
	RankConstant   *int
}

// SearchResponse is either a normalized result or, when the engine answered
// with something other than a search response, the raw body.
type SearchResponse struct {
	Result *result.Result
	Raw    map[string]any
}

// MarshalJSON encodes whichever form is set.
func (r *SearchResponse) MarshalJSON() ([]byte, error) {
	if r.Result != nil {
		return json.Marshal(r.Result)
	}
	return json.Marshal(r.Raw)
}

// Documents returns the number of normalized documents, or 0 for a raw body.
func (r *SearchResponse) Documents() int {
	if r.Result == nil {
		return 0
	}
	return len(r.Result.Documents)
}

// Search runs a keyword search.
func (s *Service) Search(ctx context.Context, p SearchParams) (*SearchResponse, error) {
	return s.search(ctx, query.ModeKeyword, p)
}

// SemanticSearch runs a semantic search on the semantic_text field.
func (s *Service) SemanticSearch(ctx context.Context, p SearchParams) (*SearchResponse, error) {
	return s.search(ctx, query.ModeSemantic, p)
}

// HybridSearch fuses keyword and semantic retrieval with reciprocal rank fusion.
func (s *Service) HybridSearch(ctx context.Context, p SearchParams) (*SearchResponse, error) {
	return s.search(ctx, query.ModeHybrid, p)
}

// SearchMode dispatches on a mode name. Count is not a search mode here.
func (s *Service) SearchMode(ctx context.Context, mode query.Mode, p SearchParams) (*SearchResponse, error) {
	switch mode {
	case query.ModeKeyword, query.ModeSemantic, query.ModeHybrid:
		return s.search(ctx, mode, p)
	default:
		return nil, gwerrors.New(gwerrors.ErrCodeUnsupportedMode,
			fmt.Sprintf("unsupported search mode %q", mode), nil)
	}
}

var searchOperation = map[query.Mode]string{
	query.ModeKeyword:  "Search",
	query.ModeSemantic: "Semantic search",
	query.ModeHybrid:   "Hybrid search",
}

func (s *Service) search(ctx context.Context, mode query.Mode, p SearchParams) (*SearchResponse, error) {
	operation := searchOperation[mode]
	index := s.index(p.Index)

	req, err := s.searchRequest(p)
	if err != nil {
		return nil, s.fail(ctx, operation, err)
	}
	body, err := query.Build(mode, req)
	if err != nil {
		return nil, s.fail(ctx, operation, gwerrors.New(gwerrors.ErrCodeUnsupportedMode, err.Error(), err))
	}

	observerFrom(ctx).Info(ctx, fmt.Sprintf("Performing %s search for: '%s' on index '%s'", mode, p.Query, index))

	start := time.Now()
	raw, err := s.engine.Search(ctx, index, body)
	if err != nil {
		return nil, s.fail(ctx, operation, err)
	}

	res, normalized, err := result.Normalize(raw)
	if err != nil {
		return nil, s.fail(ctx, operation, err)
	}
	if !normalized {
		s.logger.Warn("search response without hits, passing through",
			slog.String("mode", string(mode)),
			slog.String("index", index))
		return &SearchResponse{Raw: raw}, nil
	}

	elapsed := time.Since(start)
	s.metrics.ObserveResults(string(mode), len(res.Documents))
	s.insights.Record(telemetry.QueryEvent{
		Query:     p.Query,
		Mode:      string(mode),
		Index:     index,
		TotalHits: res.TotalHits,
		Latency:   elapsed,
	})
	s.logger.Debug("search completed",
		slog.String("mode", string(mode)),
		slog.String("index", index),
		slog.Int("total_hits", res.TotalHits),
		slog.Int("documents", len(res.Documents)),
		slog.Int64("duration_ms", elapsed.Milliseconds()))

	return &SearchResponse{Result: res}, nil
}

// searchRequest applies defaults and validates the parameters.
func (s *Service) searchRequest(p SearchParams) (query.Request, error) {
	d := s.defaults
	req := query.Request{
		Query:          p.Query,
		Size:           intOr(p.Size, d.Size),
		Highlight:      boolOr(p.Highlight, d.Highlight),
		FragmentSize:   intOr(p.FragmentSize, d.FragmentSize),
		NumFragments:   intOr(p.NumFragments, d.NumFragments),
		RankWindowSize: intOr(p.RankWindowSize, d.RankWindowSize),
		RankConstant:   intOr(p.RankConstant, d.RankConstant),
	}

	if strings.TrimSpace(req.Query) == "" {
		return req, gwerrors.New(gwerrors.ErrCodeQueryEmpty, "query must not be empty", nil)
	}
	if req.Size < 0 {
		return req, invalid(fmt.Sprintf("size must be >= 0, got %d", req.Size))
	}
	if req.Highlight {
		if req.FragmentSize < 0 {
			return req, invalid(fmt.Sprintf("fragment_size must be >= 0, got %d", req.FragmentSize))
		}
		if req.NumFragments < 0 {
			return req, invalid(fmt.Sprintf("num_fragments must be >= 0, got %d", req.NumFragments))
		}
	}
	return req, nil
}

func intOr(p *int, def int) int {
	if p == nil {
		return def
	}
	return *p
}

func boolOr(p *bool, def bool) bool {
	if p == nil {
		return def
	}
	return *p
}
