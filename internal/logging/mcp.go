package logging

import (
	"log/slog"
)

// SetupMCPMode initializes logging for MCP server mode.
// The MCP protocol uses stdout exclusively for JSON-RPC, so logs go only
// to the file: any stray writes to stdout or stderr corrupt the stream.
func SetupMCPMode() (func(), error) {
	cfg := Config{
		Level:         "debug",
		FilePath:      DefaultLogPath(),
		MaxSizeMB:     10,
		MaxFiles:      5,
		WriteToStderr: false,
	}

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
