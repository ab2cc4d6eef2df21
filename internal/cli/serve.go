package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/casefiledev/casefile-mcp/internal/config"
	"github.com/casefiledev/casefile-mcp/internal/mcp"
)

type serveCommander struct {
	debug bool
}

const serveLongDesc string = `Serve the investigation registry over MCP stdio.

The server reads JSON-RPC requests on stdin and writes responses to
stdout, so all logging goes to stderr. The registry database comes from
CASEFILE_DB_PATH.

Examples:
  casefile serve
  CASEFILE_DB_PATH=/var/lib/casefile/registry.db casefile serve`

const serveShortDesc string = "Serve the registry over MCP stdio"

func newServeCmd() *cobra.Command {
	cmder := &serveCommander{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: serveShortDesc,
		Long:  serveLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			cmder.debug, err = cmd.Flags().GetBool("debug")
			if err != nil {
				return fmt.Errorf("could not get debug flag: %w", err)
			}
			return cmder.run()
		},
	}

	return cmd
}

func (c *serveCommander) run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}
	logger := newLogger(cfg, c.debug)

	server, err := mcp.NewServer(cfg, logger)
	if err != nil {
		return fmt.Errorf("creating MCP server: %w", err)
	}

	logger.Info("starting registry",
		"db", cfg.DBPath,
		"version", Version)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	errChan := make(chan error, 1)
	go func() {
		errChan <- server.Serve(ctx)
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		logger.Info("received signal, shutting down", "signal", sig.String())
		cancel()
		return nil
	case err := <-errChan:
		return err
	}
}
