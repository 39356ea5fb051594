package telemetry

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "elasticmcp"

// Metrics holds the Prometheus collectors of one server instance.
type Metrics struct {
	registry *prometheus.Registry

	ToolCallsTotal      *prometheus.CounterVec
	ToolCallDuration    *prometheus.HistogramVec
	ToolCallsInFlight   prometheus.Gauge
	SearchResultsCount  *prometheus.HistogramVec
	EngineRequestsTotal *prometheus.CounterVec
	EngineDuration      *prometheus.HistogramVec
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
}

// New creates the collectors on a private registry, together with the Go
// runtime and process collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		ToolCallsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "tool_calls_total",
				Help:      "MCP tool calls by tool and outcome.",
			},
			[]string{"tool", "outcome"},
		),
		ToolCallDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "tool_call_duration_seconds",
				Help:      "MCP tool call latency in seconds.",
				Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
			},
			[]string{"tool"},
		),
		ToolCallsInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "tool_calls_in_flight",
				Help:      "MCP tool calls currently executing.",
			},
		),
		SearchResultsCount: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "search_results_count",
				Help:      "Documents returned per search.",
				Buckets:   []float64{0, 1, 5, 10, 25, 50, 100},
			},
			[]string{"mode"},
		),
		EngineRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "elasticsearch_requests_total",
				Help:      "Round-trips to Elasticsearch by endpoint and status.",
			},
			[]string{"method", "endpoint", "status"},
		),
		EngineDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "elasticsearch_request_duration_seconds",
				Help:      "Elasticsearch round-trip latency in seconds.",
				Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
			},
			[]string{"method", "endpoint"},
		),
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "HTTP requests served by method, route and status.",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds.",
				Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
			},
			[]string{"method", "path"},
		),
	}

	m.registry.MustRegister(
		m.ToolCallsTotal,
		m.ToolCallDuration,
		m.ToolCallsInFlight,
		m.SearchResultsCount,
		m.EngineRequestsTotal,
		m.EngineDuration,
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Registry returns the registry backing Handler.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the collectors in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ToolStarted marks a tool call in flight and returns the function that
// records its completion. A nil receiver returns a no-op.
func (m *Metrics) ToolStarted(tool string) func(err error) {
	if m == nil {
		return func(error) {}
	}
	m.ToolCallsInFlight.Inc()
	start := time.Now()
	return func(err error) {
		m.ToolCallsInFlight.Dec()
		m.ToolCallDuration.WithLabelValues(tool).Observe(time.Since(start).Seconds())
		m.ToolCallsTotal.WithLabelValues(tool, outcome(err)).Inc()
	}
}

// ObserveResults records the number of documents a search returned.
func (m *Metrics) ObserveResults(mode string, n int) {
	if m == nil {
		return
	}
	m.SearchResultsCount.WithLabelValues(mode).Observe(float64(n))
}

// ObserveEngine records one Elasticsearch round-trip. Its signature matches
// elastic.Hook. Status 0 means no response was received.
func (m *Metrics) ObserveEngine(method, endpoint string, status int, elapsed time.Duration, _ error) {
	if m == nil {
		return
	}
	code := "error"
	if status > 0 {
		code = strconv.Itoa(status)
	}
	m.EngineRequestsTotal.WithLabelValues(method, endpoint, code).Inc()
	m.EngineDuration.WithLabelValues(method, endpoint).Observe(elapsed.Seconds())
}

// Middleware records HTTP request duration and count by chi route pattern.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		ww := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(ww, r)

		path := "unknown"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			path = rctx.RoutePattern()
		}

		m.HTTPRequestDuration.WithLabelValues(r.Method, path).Observe(time.Since(start).Seconds())
		m.HTTPRequestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(ww.status)).Inc()
	})
}

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

// statusWriter captures the response status code. It forwards Flush so
// streamed MCP responses keep working behind the middleware.
type statusWriter struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (w *statusWriter) WriteHeader(status int) {
	if !w.wroteHeader {
		w.status = status
		w.wroteHeader = true
	}
	w.ResponseWriter.WriteHeader(status)
}

func (w *statusWriter) Write(b []byte) (int, error) {
	if !w.wroteHeader {
		w.wroteHeader = true
	}
	return w.ResponseWriter.Write(b)
}

func (w *statusWriter) Flush() {
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Unwrap exposes the underlying writer to http.ResponseController.
func (w *statusWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}
