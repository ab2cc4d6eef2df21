// Package cli wires the casefile command tree.
package cli

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/casefiledev/casefile-mcp/internal/config"
	"github.com/casefiledev/casefile-mcp/internal/logging"
)

const rootLongDesc string = `Casefile is a persistent registry for completed investigations.

It stores analytical runs (security audits, performance reviews, code
quality passes) in SQLite and serves them to AI assistants over the
Model Context Protocol, including full-text search and similarity
ranking over type, codebase and tags.

Run it using:
  casefile serve           Serve the registry over MCP stdio
  casefile import FILE...  Bulk-load JSONL exports
  casefile stats           Print registry statistics
  casefile version         Print version and build information

Configuration comes from the environment (CASEFILE_DB_PATH,
CASEFILE_LOG_LEVEL, ...); a .env file next to the binary is honored.`

const rootShortDesc string = "Casefile - Investigation Registry"

// Version information, injected at build time via ldflags.
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "casefile",
		Short: rootShortDesc,
		Long:  rootLongDesc,
	}

	// Global flags
	cmd.PersistentFlags().BoolP("debug", "d", false, "Enable debug logging")

	// Add subcommands
	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newImportCmd())
	cmd.AddCommand(newStatsCmd())
	cmd.AddCommand(newVersionCmd())

	return cmd
}

// newLogger builds the process logger from configuration plus the --debug
// flag. Output always goes to stderr; stdout is reserved for MCP traffic
// and command output.
func newLogger(cfg *config.Config, debug bool) *slog.Logger {
	return logging.New(
		logging.WithLevel(logging.ParseLevel(cfg.LogLevel)),
		logging.WithDebug(debug),
		logging.WithPretty(!cfg.LogJSON),
		logging.WithJSON(cfg.LogJSON),
	)
}
