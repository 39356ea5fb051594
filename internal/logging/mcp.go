package logging

import (
	"log/slog"
)

// SetupMCPMode configures the default logger for the MCP server. Records go
// to the log file only: stdout carries JSON-RPC on the stdio transport and
// clients commonly treat stderr output as a startup failure.
//
// debug forces the debug level regardless of level.
func SetupMCPMode(level string, debug bool) (func(), error) {
	cfg := DefaultConfig()
	cfg.Level = level
	if debug {
		cfg.Level = "debug"
	}
	cfg.WriteToStderr = false

	return setupMCP(cfg)
}

func setupMCP(cfg Config) (func(), error) {
	logger, cleanup, err := Setup(cfg)
	if err != nil {
		return nil, err
	}

	slog.SetDefault(logger)
	slog.Info("MCP mode logging initialized",
		slog.String("log_file", cfg.FilePath),
		slog.String("level", cfg.Level))

	return cleanup, nil
}
