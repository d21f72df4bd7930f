package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/khanglvm/tripsense/internal/logging"
	"github.com/khanglvm/tripsense/internal/mcp"
	"github.com/khanglvm/tripsense/internal/metrics"
)

// NewServeCmd creates the 'serve' command for running the MCP server.
func NewServeCmd(opts *Options) *cobra.Command {
	var metricsAddr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the MCP server (stdio transport)",
		Long: `Start the tripsense MCP server using stdio transport.

Tools exposed to AI clients:
  • search_destinations    - semantic destination search
  • analyze_review         - review sentiment and keywords
  • recommend_destinations - personalized recommendations
  • most_loved             - destinations ranked by likes
  • nearby                 - destinations near a coordinate
  • destinations_by_tag    - destinations filed under a tag

Logs go to stderr; stdout carries only protocol frames. With --metrics-addr,
Prometheus metrics are served over HTTP at /metrics.`,
		Example: `  # Run directly
  tripsense serve --data destinations.json --activity users.json

  # Add to Claude Code
  claude mcp add tripsense -- tripsense serve --data /path/to/destinations.json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), opts, metricsAddr)
		},
	}

	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address (e.g. :9464)")

	return cmd
}

// runServe starts the MCP server with stdio transport and signal handling.
// SIGINT/SIGTERM/SIGQUIT cancel the server context; the app is closed on
// every exit path so queued history is flushed.
func runServe(parent context.Context, opts *Options, metricsAddr string) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	a, err := opts.OpenApp(ctx)
	if err != nil {
		return err
	}
	logger := logging.Component("serve")

	if a.StorageEnabled() {
		go pruneHistory(ctx, a.Prune, logger)
	}
	if metricsAddr != "" {
		go func() {
			if err := metrics.Serve(ctx, metricsAddr, logger); err != nil {
				logger.Error().Err(err).Msg("metrics server failed")
			}
		}()
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM, syscall.SIGQUIT)
	defer signal.Stop(sigChan)

	server := mcp.NewServer(a, logging.Logger())

	errChan := make(chan error, 1)
	go func() {
		errChan <- server.Serve(ctx, os.Stdin, os.Stdout)
	}()

	select {
	case sig := <-sigChan:
		logger.Info().Str("signal", sig.String()).Msg("shutting down gracefully")
		cancel()
		<-errChan

		if err := a.Close(); err != nil {
			logger.Error().Err(err).Msg("error during shutdown")
			return err
		}
		logger.Info().Msg("shutdown complete")
		return nil

	case err := <-errChan:
		// stdin closed or protocol error
		cancel()
		if closeErr := a.Close(); closeErr != nil {
			logger.Error().Err(closeErr).Msg("error during cleanup")
		}
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	}
}

// pruneHistoryDelay is how long serve waits before pruning history.
const pruneHistoryDelay = 5 * time.Second

// pruneHistory drops expired search history once, shortly after startup.
func pruneHistory(ctx context.Context, prune func() error, logger zerolog.Logger) {
	select {
	case <-ctx.Done():
		return
	case <-time.After(pruneHistoryDelay):
	}

	if err := prune(); err != nil {
		logger.Warn().Err(err).Msg("history prune failed")
		return
	}
	logger.Debug().Msg("expired history pruned")
}
