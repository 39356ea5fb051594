// Package logging sets up structured slog output for elasticmcp.
//
// The stdio transport owns stdout for JSON-RPC, so the server logs to a
// rotating JSON file under ~/.elasticmcp/logs/ and never to the terminal.
// CLI commands log to stderr and, with --debug, to the same file.
package logging
