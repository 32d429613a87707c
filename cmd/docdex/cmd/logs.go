package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/docdex/docdex/internal/logging"
)

func newLogsCmd() *cobra.Command {
	var logFile string
	var lines int
	var pathOnly bool

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Show recent server logs",
		Long: `Print the tail of the server log. The MCP server logs to
~/.docdex/logs/server.log because stdout belongs to the protocol.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			path, err := logging.FindLogFile(logFile)
			if err != nil {
				return err
			}
			if pathOnly {
				_, err := fmt.Fprintln(cmd.OutOrStdout(), path)
				return err
			}

			data, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("failed to read log file: %w", err)
			}

			entries := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
			if lines > 0 && len(entries) > lines {
				entries = entries[len(entries)-lines:]
			}
			for _, entry := range entries {
				fmt.Fprintln(cmd.OutOrStdout(), entry)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&logFile, "file", "", "Log file path (default: ~/.docdex/logs/server.log)")
	cmd.Flags().IntVarP(&lines, "lines", "n", 100, "Number of trailing lines to show")
	cmd.Flags().BoolVar(&pathOnly, "path", false, "Print the log file path and exit")
	return cmd
}
