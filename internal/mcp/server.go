package mcp

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/Aman-CERP/elasticmcp/internal/gateway"
	"github.com/Aman-CERP/elasticmcp/internal/telemetry"
	"github.com/Aman-CERP/elasticmcp/pkg/version"
)

// ServerName is the implementation name announced to clients.
const ServerName = "elasticmcp"

// Transports accepted by Serve.
const (
	TransportStdio = "stdio"
	TransportHTTP  = "http"
)

// shutdownTimeout bounds the graceful stop of the HTTP transport.
const shutdownTimeout = 10 * time.Second

// Server is the MCP server. It bridges AI clients with the gateway
// operations over Elasticsearch.
type Server struct {
	mcp      *mcp.Server
	service  *gateway.Service
	metrics  *telemetry.Metrics
	insights *telemetry.QueryInsights
	logger   *slog.Logger
	pprof    bool
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the server logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithMetrics records tool calls on m and serves it on /metrics.
func WithMetrics(m *telemetry.Metrics) Option {
	return func(s *Server) { s.metrics = m }
}

// WithInsights exposes q as the query insights resource.
func WithInsights(q *telemetry.QueryInsights) Option {
	return func(s *Server) { s.insights = q }
}

// WithProfiling mounts the runtime profiler under /debug on the HTTP surface.
func WithProfiling(enabled bool) Option {
	return func(s *Server) { s.pprof = enabled }
}

// NewServer creates a new MCP server with all tools and resources registered.
func NewServer(service *gateway.Service, opts ...Option) (*Server, error) {
	if service == nil {
		return nil, errors.New("gateway service is required")
	}

	s := &Server{
		service: service,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.mcp = mcp.NewServer(
		&mcp.Implementation{
			Name:    ServerName,
			Version: version.Version,
		},
		nil, // capabilities are inferred from registered tools/resources
	)

	s.registerTools()
	s.registerResources()

	return s, nil
}

// MCPServer returns the underlying MCP server instance.
func (s *Server) MCPServer() *mcp.Server {
	return s.mcp
}

// Info returns the server name and version.
func (s *Server) Info() (name, ver string) {
	return ServerName, version.Version
}

// Serve starts the server with the specified transport. It returns when ctx
// is canceled or the transport fails.
func (s *Server) Serve(ctx context.Context, transport, addr string) error {
	s.logger.Info("Starting MCP server",
		slog.String("transport", transport),
		slog.String("addr", addr))

	switch transport {
	case TransportStdio:
		s.logger.Debug("Using stdio transport for JSON-RPC")
		err := s.mcp.Run(ctx, &mcp.StdioTransport{})
		if err != nil && !errors.Is(err, context.Canceled) {
			s.logger.Error("MCP server stopped with error",
				slog.String("error", err.Error()))
			return err
		}
		s.logger.Info("MCP server stopped gracefully")
		return nil
	case TransportHTTP:
		return s.serveHTTP(ctx, addr)
	default:
		return fmt.Errorf("unknown transport: %s (supported: stdio, http)", transport)
	}
}

// Handler returns the HTTP surface: the streamable MCP endpoint on /mcp,
// liveness on /healthz and, when enabled, /metrics and /debug/pprof.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(chiMiddleware.Recoverer)
	if s.metrics != nil {
		r.Use(s.metrics.Middleware)
	}

	streamable := mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server {
		return s.mcp
	}, nil)
	r.Handle("/mcp", streamable)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(s.service.ServerHealth())
	})

	if s.metrics != nil {
		r.Handle("/metrics", s.metrics.Handler())
	}
	if s.pprof {
		r.Mount("/debug", chiMiddleware.Profiler())
	}
	return r
}

func (s *Server) serveHTTP(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("HTTP transport listening", slog.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			s.logger.Error("HTTP transport failed", slog.String("error", err.Error()))
			return fmt.Errorf("http transport: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	s.logger.Info("MCP server stopped gracefully")
	return nil
}

// generateRequestID creates a short unique request ID for log correlation.
func generateRequestID() string {
	b := make([]byte, 4)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}
