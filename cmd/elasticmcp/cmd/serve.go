package cmd

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/elasticmcp/internal/config"
	"github.com/Aman-CERP/elasticmcp/internal/logging"
	"github.com/Aman-CERP/elasticmcp/internal/mcp"
)

// serveOptions holds CLI flags for serve. Empty values fall back to the
// server section of the configuration.
type serveOptions struct {
	transport string
	addr      string
}

func newServeCmd() *cobra.Command {
	var opts serveOptions

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the MCP server",
		Long: `Start the MCP server.

With the stdio transport (default) the server speaks JSON-RPC on
stdin/stdout and logs only to ~/.elasticmcp/logs/server.log.

With the http transport it serves the streamable MCP endpoint on /mcp,
liveness on /healthz and Prometheus metrics on /metrics.`,
		Example: `  # Serve over stdio (what MCP clients launch)
  elasticmcp serve

  # Serve over HTTP
  elasticmcp serve --transport http --addr :8080`,
		Annotations: map[string]string{serverAnnotation: "true"},
		Args:        cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), opts)
		},
	}

	cmd.Flags().StringVarP(&opts.transport, "transport", "t", "", "Transport: stdio or http (default from config)")
	cmd.Flags().StringVar(&opts.addr, "addr", "", "Listen address for the http transport (default from config)")

	return cmd
}

func runServe(ctx context.Context, opts serveOptions) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	transport := strings.ToLower(cfg.Server.Transport)
	if opts.transport != "" {
		transport = strings.ToLower(opts.transport)
	}
	addr := cfg.Server.Addr
	if opts.addr != "" {
		addr = opts.addr
	}

	cleanup, err := setupServerLogging(cfg, transport)
	if err != nil {
		return err
	}
	defer cleanup()

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(cfg, slog.Default())
	if err != nil {
		slog.Error("Failed to start", slog.String("error", err.Error()))
		return err
	}
	defer func() { _ = a.Close() }()

	srv, err := mcp.NewServer(a.service,
		mcp.WithLogger(slog.Default()),
		mcp.WithMetrics(a.metrics),
		mcp.WithInsights(a.insights),
		mcp.WithProfiling(debugMode))
	if err != nil {
		return err
	}

	slog.Info("elasticmcp configured",
		slog.String("elasticsearch", cfg.Elasticsearch.URL),
		slog.String("default_index", cfg.Elasticsearch.DefaultIndex),
		slog.Bool("metrics", a.metrics != nil),
		slog.Bool("query_insights", a.insights != nil))

	return srv.Serve(ctx, transport, addr)
}

// setupServerLogging logs to the file only on stdio, where stdout is the
// protocol stream. The http transport also logs to stderr.
func setupServerLogging(cfg *config.Config, transport string) (func(), error) {
	if transport == mcp.TransportStdio {
		return logging.SetupMCPMode(cfg.Server.LogLevel, debugMode)
	}

	logCfg := logging.DefaultConfig()
	logCfg.Level = cfg.Server.LogLevel
	if debugMode {
		logCfg.Level = "debug"
	}
	logger, cleanup, err := logging.Setup(logCfg)
	if err != nil {
		return nil, err
	}
	slog.SetDefault(logger)
	return cleanup, nil
}
