package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/docdex/docdex/internal/config"
	"github.com/docdex/docdex/internal/indexer"
	"github.com/docdex/docdex/internal/logging"
	"github.com/docdex/docdex/internal/mcp"
	"github.com/docdex/docdex/internal/watcher"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the MCP server over stdio",
		Long: `Start the docdex MCP server. Docsets are restored from the snapshot
or indexed on startup, then served until the client disconnects.

The MCP protocol owns stdout, so all logs go to ~/.docdex/logs/.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context())
		},
	}
}

func runServe(ctx context.Context) error {
	// stdout carries JSON-RPC exclusively; logging must never touch it.
	cleanup, err := logging.SetupMCPMode()
	if err != nil {
		return fmt.Errorf("failed to set up logging: %w", err)
	}
	defer cleanup()

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	dir, err := resolveDir()
	if err != nil {
		return err
	}
	cfg, err := config.Load(dir)
	if err != nil {
		return err
	}

	manager, err := indexer.New(ctx, cfg)
	if err != nil {
		return err
	}
	defer manager.Close()

	if err := manager.EnsureReady(ctx); err != nil {
		return err
	}

	if cfg.Watcher.Enabled {
		debounce, err := time.ParseDuration(cfg.Watcher.Debounce)
		if err != nil {
			slog.Warn("watcher_debounce_invalid",
				slog.String("value", cfg.Watcher.Debounce))
			debounce = watcher.DefaultDebounce
		}
		w, err := watcher.New(manager.Docsets(), debounce, func(ctx context.Context, ids []string) error {
			_, err := manager.Reindex(ctx, ids)
			return err
		})
		if err != nil {
			return fmt.Errorf("failed to start watcher: %w", err)
		}
		defer w.Stop()
		w.Start(ctx)
	}

	server, err := mcp.NewServer(manager)
	if err != nil {
		return err
	}
	return server.Serve(ctx, cfg.Server.Transport)
}
