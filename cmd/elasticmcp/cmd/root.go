// Package cmd provides the CLI commands for elasticmcp.
package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	gwerrors "github.com/Aman-CERP/elasticmcp/internal/errors"
	"github.com/Aman-CERP/elasticmcp/internal/logging"
	"github.com/Aman-CERP/elasticmcp/pkg/version"
)

// serverAnnotation marks commands that run the MCP server. They configure
// logging themselves since stdout may carry JSON-RPC.
const serverAnnotation = "elasticmcp/server"

// Global flags.
var (
	debugMode      bool
	projectDir     string
	loggingCleanup func()
)

// NewRootCmd creates the root command for the elasticmcp CLI.
func NewRootCmd() *cobra.Command {
	var opts serveOptions

	cmd := &cobra.Command{
		Use:   "elasticmcp",
		Short: "MCP server for searching Elasticsearch",
		Long: `elasticmcp exposes an Elasticsearch cluster to AI assistants over the
Model Context Protocol: keyword, semantic and hybrid search, document
lookup, counts, cluster health and index metadata.

Run without a subcommand to serve MCP over stdio, which is what MCP
clients expect when they launch the binary.

Connection settings come from ~/.config/elasticmcp/config.yaml,
.elasticmcp.yaml in the project directory and the ES_HOST, ES_USER,
ES_PASS and ES_DEFAULT_INDEX environment variables.`,
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		Annotations:   map[string]string{serverAnnotation: "true"},
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), opts)
		},
	}

	cmd.SetVersionTemplate("elasticmcp version {{.Version}}\n")

	cmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "Enable debug logging to ~/.elasticmcp/logs/")
	cmd.PersistentFlags().StringVar(&projectDir, "dir", ".", "Directory holding the project .elasticmcp.yaml")

	cmd.PersistentPreRunE = startLogging
	cmd.PersistentPostRunE = stopLogging

	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newSearchCmd())
	cmd.AddCommand(newCountCmd())
	cmd.AddCommand(newGetCmd())
	cmd.AddCommand(newIndicesCmd())
	cmd.AddCommand(newHealthCmd())
	cmd.AddCommand(newStatsCmd())
	cmd.AddCommand(newIndexCmd())
	cmd.AddCommand(newConfigCmd())
	cmd.AddCommand(newLogsCmd())
	cmd.AddCommand(newVersionCmd())

	return cmd
}

// startLogging sets up CLI logging for every command except the server ones.
func startLogging(cmd *cobra.Command, _ []string) error {
	if cmd.Annotations[serverAnnotation] != "" {
		return nil
	}

	cleanup, err := logging.SetupCLI(debugMode)
	if err != nil {
		return fmt.Errorf("failed to setup logging: %w", err)
	}
	loggingCleanup = cleanup
	if debugMode {
		slog.Debug("Debug logging enabled",
			slog.String("command", cmd.CommandPath()),
			slog.String("log_file", logging.DefaultLogPath()))
	}
	return nil
}

func stopLogging(_ *cobra.Command, _ []string) error {
	if loggingCleanup != nil {
		loggingCleanup()
		loggingCleanup = nil
	}
	return nil
}

// Execute runs the root command and prints a failure to stderr.
func Execute() error {
	err := NewRootCmd().Execute()
	if err != nil {
		if debugMode {
			fmt.Fprintln(os.Stderr, gwerrors.FormatForUser(err, true))
		} else {
			fmt.Fprint(os.Stderr, gwerrors.FormatForCLI(err))
		}
	}
	return err
}
