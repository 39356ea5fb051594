package telemetry

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToolStarted_RecordsOutcome(t *testing.T) {
	m := New()

	done := m.ToolStarted("search")
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ToolCallsInFlight))
	done(nil)

	m.ToolStarted("search")(errors.New("boom"))

	assert.Equal(t, 0.0, testutil.ToFloat64(m.ToolCallsInFlight))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ToolCallsTotal.WithLabelValues("search", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ToolCallsTotal.WithLabelValues("search", "error")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.ToolCallDuration))
}

func TestObserveEngine(t *testing.T) {
	m := New()

	m.ObserveEngine("POST", "_search", 200, 10*time.Millisecond, nil)
	m.ObserveEngine("POST", "_search", 200, 20*time.Millisecond, nil)
	m.ObserveEngine("GET", "_doc", 0, time.Second, errors.New("refused"))

	assert.Equal(t, 2.0, testutil.ToFloat64(m.EngineRequestsTotal.WithLabelValues("POST", "_search", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.EngineRequestsTotal.WithLabelValues("GET", "_doc", "error")))
}

func TestNilMetrics_NoPanic(t *testing.T) {
	var m *Metrics

	assert.NotPanics(t, func() {
		m.ToolStarted("search")(nil)
		m.ObserveResults("keyword", 3)
		m.ObserveEngine("GET", "root", 200, time.Millisecond, nil)
	})
}

func TestMiddleware_UsesRoutePattern(t *testing.T) {
	// Given: a chi router with the middleware installed
	m := New()
	r := chi.NewRouter()
	r.Use(m.Middleware)
	r.Get("/items/{id}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	// When: serving two different ids
	for _, id := range []string{"1", "2"} {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/items/"+id, nil))
		assert.Equal(t, http.StatusTeapot, rec.Code)
	}

	// Then: both land on the same label set
	assert.Equal(t, 2.0, testutil.ToFloat64(m.HTTPRequestsTotal.WithLabelValues("GET", "/items/{id}", "418")))
}

func TestMiddleware_ForwardsFlush(t *testing.T) {
	m := New()
	var flushed bool
	h := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		f, ok := w.(http.Flusher)
		require.True(t, ok)
		_, _ = w.Write([]byte("event"))
		f.Flush()
		flushed = true
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/mcp", nil))

	assert.True(t, flushed)
	assert.True(t, rec.Flushed)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.HTTPRequestsTotal.WithLabelValues("GET", "unknown", "200")))
}

func TestHandler_ExposesCollectors(t *testing.T) {
	m := New()
	m.ObserveResults("hybrid", 5)

	srv := httptest.NewServer(m.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "elasticmcp_search_results_count")
	assert.Contains(t, string(body), "go_goroutines")
}
