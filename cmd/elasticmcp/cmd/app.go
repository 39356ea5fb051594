package cmd

import (
	"fmt"
	"log/slog"

	"github.com/Aman-CERP/elasticmcp/internal/config"
	"github.com/Aman-CERP/elasticmcp/internal/elastic"
	"github.com/Aman-CERP/elasticmcp/internal/gateway"
	"github.com/Aman-CERP/elasticmcp/internal/telemetry"
)

// app is the process-wide state shared by the server and CLI commands: one
// HTTP client to the cluster and the service running operations over it.
type app struct {
	cfg      *config.Config
	client   *elastic.Client
	service  *gateway.Service
	metrics  *telemetry.Metrics
	insights *telemetry.QueryInsights
}

// loadConfig loads the effective configuration for the --dir project.
func loadConfig() (*config.Config, error) {
	return config.Load(projectDir)
}

// openApp loads configuration and builds an app from it.
func openApp(logger *slog.Logger) (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	return newApp(cfg, logger)
}

// newApp wires the Elasticsearch client, telemetry and gateway service.
// Close releases the client.
func newApp(cfg *config.Config, logger *slog.Logger) (*app, error) {
	a := &app{cfg: cfg}

	clientOpts := []elastic.Option{elastic.WithLogger(logger)}
	svcOpts := []gateway.Option{gateway.WithLogger(logger)}

	if cfg.Telemetry.Metrics {
		a.metrics = telemetry.New()
		clientOpts = append(clientOpts, elastic.WithHook(a.metrics.ObserveEngine))
		svcOpts = append(svcOpts, gateway.WithMetrics(a.metrics))
	}
	if cfg.Telemetry.QueryInsights {
		a.insights = telemetry.NewQueryInsightsWithConfig(telemetry.QueryInsightsConfig{
			TopTermsCapacity:      cfg.Telemetry.TopTerms,
			ZeroResultsCapacity:   cfg.Telemetry.ZeroResults,
			RecentQueriesCapacity: cfg.Telemetry.RecentQueries,
		})
		svcOpts = append(svcOpts, gateway.WithInsights(a.insights))
	}

	client, err := elastic.New(elastic.Config{
		URL:                cfg.Elasticsearch.URL,
		Username:           cfg.Elasticsearch.Username,
		Password:           cfg.Elasticsearch.Password,
		Timeout:            cfg.Elasticsearch.Timeout,
		InsecureSkipVerify: cfg.Elasticsearch.InsecureSkipVerify,
	}, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Elasticsearch client: %w", err)
	}
	a.client = client
	a.service = gateway.NewService(client, serviceDefaults(cfg), svcOpts...)

	return a, nil
}

// Close releases the client's idle connections.
func (a *app) Close() error {
	return a.client.Close()
}

func serviceDefaults(cfg *config.Config) gateway.Defaults {
	return gateway.Defaults{
		Index:          cfg.Elasticsearch.DefaultIndex,
		Size:           cfg.Search.Size,
		Highlight:      cfg.Search.Highlight,
		FragmentSize:   cfg.Search.FragmentSize,
		NumFragments:   cfg.Search.NumFragments,
		RankWindowSize: cfg.Search.RankWindowSize,
		RankConstant:   cfg.Search.RankConstant,
	}
}
