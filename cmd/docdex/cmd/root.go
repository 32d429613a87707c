// Package cmd provides the CLI commands for docdex.
package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/docdex/docdex/internal/logging"
	"github.com/docdex/docdex/pkg/version"
)

var (
	debugMode      bool
	projectDir     string
	loggingCleanup func()
)

// NewRootCmd creates the root command for the docdex CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "docdex",
		Short: "Local documentation search over MCP",
		Long: `docdex indexes local documentation sets (HTML, Markdown, plain text)
and serves hybrid keyword + semantic search to AI assistants over the
Model Context Protocol.

Register docsets in docsets.toml, then run 'docdex serve' from the same
directory. Use 'docdex search' to query from the command line.`,
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) > 0 {
				return cmd.Help()
			}
			// Bare invocation serves MCP, so `docdex` works as an MCP
			// server command without arguments.
			return runServe(cmd.Context())
		},
	}

	cmd.SetVersionTemplate("docdex version {{.Version}}\n")

	cmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "Enable debug logging to ~/.docdex/logs/")
	cmd.PersistentFlags().StringVarP(&projectDir, "dir", "C", ".", "Directory containing docdex.yaml and docsets.toml")
	cmd.PersistentPreRunE = setupLogging
	cmd.PersistentPostRun = teardownLogging

	cmd.AddCommand(newInitCmd())
	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newSearchCmd())
	cmd.AddCommand(newDoctorCmd())
	cmd.AddCommand(newOpenCmd())
	cmd.AddCommand(newAssetCmd())
	cmd.AddCommand(newReindexCmd())
	cmd.AddCommand(newDocsetsCmd())
	cmd.AddCommand(newLogsCmd())
	cmd.AddCommand(newVersionCmd())

	return cmd
}

func setupLogging(_ *cobra.Command, _ []string) error {
	if !debugMode {
		return nil
	}
	logger, cleanup, err := logging.Setup(logging.DebugConfig())
	if err != nil {
		return fmt.Errorf("failed to set up debug logging: %w", err)
	}
	loggingCleanup = cleanup
	slog.SetDefault(logger)
	slog.Info("debug_logging_enabled", slog.String("log_file", logging.DefaultLogPath()))
	return nil
}

func teardownLogging(_ *cobra.Command, _ []string) {
	if loggingCleanup != nil {
		loggingCleanup()
		loggingCleanup = nil
	}
}

// resolveDir expands the --dir flag into an absolute path.
func resolveDir() (string, error) {
	if projectDir == "" || projectDir == "." {
		return os.Getwd()
	}
	return projectDir, nil
}

// Execute runs the root command.
func Execute() error {
	return NewRootCmd().Execute()
}
