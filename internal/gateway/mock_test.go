package gateway

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"

	"github.com/Aman-CERP/elasticmcp/internal/elastic"
)

// =============================================================================
// Mock Implementations
// =============================================================================

type searchCall struct {
	Index string
	Body  map[string]any
}

// mockEngine implements Engine. Unset functions fail the call.
type mockEngine struct {
	mu          sync.Mutex
	searchCalls []searchCall
	countCalls  []searchCall

	SearchFn        func(ctx context.Context, index string, body map[string]any) (map[string]any, error)
	CountFn         func(ctx context.Context, index string, body map[string]any) (map[string]any, error)
	GetDocumentFn   func(ctx context.Context, index, id string) (*elastic.Document, error)
	CatIndicesFn    func(ctx context.Context) ([]elastic.CatIndex, error)
	ClusterHealthFn func(ctx context.Context) (*elastic.ClusterHealth, error)
	InfoFn          func(ctx context.Context) (*elastic.Info, error)
	SearchStatsFn   func(ctx context.Context) (map[string]any, error)
	IndexSettingsFn func(ctx context.Context, index string) (map[string]any, error)
	IndexMappingFn  func(ctx context.Context, index string) (map[string]any, error)
	IndexStatsFn    func(ctx context.Context, index string) (map[string]any, error)
}

var errNotConfigured = errors.New("mock: not configured")

func (m *mockEngine) URL() string { return "https://elasticsearch:9200" }

func (m *mockEngine) Search(ctx context.Context, index string, body map[string]any) (map[string]any, error) {
	m.mu.Lock()
	m.searchCalls = append(m.searchCalls, searchCall{index, body})
	m.mu.Unlock()
	if m.SearchFn != nil {
		return m.SearchFn(ctx, index, body)
	}
	return nil, errNotConfigured
}

func (m *mockEngine) Count(ctx context.Context, index string, body map[string]any) (map[string]any, error) {
	m.mu.Lock()
	m.countCalls = append(m.countCalls, searchCall{index, body})
	m.mu.Unlock()
	if m.CountFn != nil {
		return m.CountFn(ctx, index, body)
	}
	return nil, errNotConfigured
}

func (m *mockEngine) GetDocument(ctx context.Context, index, id string) (*elastic.Document, error) {
	if m.GetDocumentFn != nil {
		return m.GetDocumentFn(ctx, index, id)
	}
	return nil, errNotConfigured
}

func (m *mockEngine) CatIndices(ctx context.Context) ([]elastic.CatIndex, error) {
	if m.CatIndicesFn != nil {
		return m.CatIndicesFn(ctx)
	}
	return nil, errNotConfigured
}

func (m *mockEngine) ClusterHealth(ctx context.Context) (*elastic.ClusterHealth, error) {
	if m.ClusterHealthFn != nil {
		return m.ClusterHealthFn(ctx)
	}
	return nil, errNotConfigured
}

func (m *mockEngine) Info(ctx context.Context) (*elastic.Info, error) {
	if m.InfoFn != nil {
		return m.InfoFn(ctx)
	}
	return nil, errNotConfigured
}

func (m *mockEngine) SearchStats(ctx context.Context) (map[string]any, error) {
	if m.SearchStatsFn != nil {
		return m.SearchStatsFn(ctx)
	}
	return nil, errNotConfigured
}

func (m *mockEngine) IndexSettings(ctx context.Context, index string) (map[string]any, error) {
	if m.IndexSettingsFn != nil {
		return m.IndexSettingsFn(ctx, index)
	}
	return nil, errNotConfigured
}

func (m *mockEngine) IndexMapping(ctx context.Context, index string) (map[string]any, error) {
	if m.IndexMappingFn != nil {
		return m.IndexMappingFn(ctx, index)
	}
	return nil, errNotConfigured
}

func (m *mockEngine) IndexStats(ctx context.Context, index string) (map[string]any, error) {
	if m.IndexStatsFn != nil {
		return m.IndexStatsFn(ctx, index)
	}
	return nil, errNotConfigured
}

// recordingObserver captures notifications.
type recordingObserver struct {
	mu     sync.Mutex
	infos  []string
	errors []string
}

func (o *recordingObserver) Info(_ context.Context, msg string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.infos = append(o.infos, msg)
}

func (o *recordingObserver) Error(_ context.Context, msg string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.errors = append(o.errors, msg)
}

// =============================================================================
// Test Helpers
// =============================================================================

func newTestService(engine Engine, opts ...Option) *Service {
	opts = append([]Option{WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))}, opts...)
	return NewService(engine, DefaultDefaults(), opts...)
}

func intPtr(i int) *int    { return &i }
func boolPtr(b bool) *bool { return &b }
