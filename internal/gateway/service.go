// Package gateway implements the operations the MCP tools and CLI expose:
// it validates caller parameters, builds the query, performs the round-trips
// and reshapes the responses.
package gateway

import (
	"context"
	"log/slog"

	"github.com/Aman-CERP/elasticmcp/internal/elastic"
	"github.com/Aman-CERP/elasticmcp/internal/telemetry"
)

// Engine is the subset of the Elasticsearch client the operations need.
// *elastic.Client implements it.
type Engine interface {
	URL() string
	Search(ctx context.Context, index string, body map[string]any) (map[string]any, error)
	Count(ctx context.Context, index string, body map[string]any) (map[string]any, error)
	GetDocument(ctx context.Context, index, id string) (*elastic.Document, error)
	CatIndices(ctx context.Context) ([]elastic.CatIndex, error)
	ClusterHealth(ctx context.Context) (*elastic.ClusterHealth, error)
	Info(ctx context.Context) (*elastic.Info, error)
	SearchStats(ctx context.Context) (map[string]any, error)
	IndexSettings(ctx context.Context, index string) (map[string]any, error)
	IndexMapping(ctx context.Context, index string) (map[string]any, error)
	IndexStats(ctx context.Context, index string) (map[string]any, error)
}

var _ Engine = (*elastic.Client)(nil)

// Defaults are applied to parameters the caller leaves unset.
type Defaults struct {
	Index          string
	Size           int
	Highlight      bool
	FragmentSize   int
	NumFragments   int
	RankWindowSize int
	RankConstant   int
}

// DefaultDefaults returns the stock tool defaults.
func DefaultDefaults() Defaults {
	return Defaults{
		Index:          "documents",
		Size:           5,
		Highlight:      true,
		FragmentSize:   600,
		NumFragments:   5,
		RankWindowSize: 50,
		RankConstant:   20,
	}
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the service logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithMetrics records result counts on m.
func WithMetrics(m *telemetry.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithInsights records every search and count on q.
func WithInsights(q *telemetry.QueryInsights) Option {
	return func(s *Service) { s.insights = q }
}

// Service runs gateway operations. It holds no per-request state and is safe
// for concurrent use.
type Service struct {
	engine   Engine
	defaults Defaults
	logger   *slog.Logger
	metrics  *telemetry.Metrics
	insights *telemetry.QueryInsights
}

// NewService creates a Service. Zero-valued defaults are not filled in; pass
// DefaultDefaults or values from configuration.
func NewService(engine Engine, defaults Defaults, opts ...Option) *Service {
	s := &Service{
		engine:   engine,
		defaults: defaults,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Defaults returns the defaults the service applies.
func (s *Service) Defaults() Defaults {
	return s.defaults
}

func (s *Service) index(index string) string {
	if index == "" {
		return s.defaults.Index
	}
	return index
}
