package cmd

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/docdex/docdex/internal/config"
	"github.com/docdex/docdex/internal/lifecycle"
	"github.com/docdex/docdex/internal/output"
	"github.com/docdex/docdex/internal/preflight"
)

func newDoctorCmd() *cobra.Command {
	var (
		verbose    bool
		jsonOutput bool
		pull       bool
	)

	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check system requirements and diagnose issues",
		Long: `Run diagnostics to verify docdex can index and serve.

Checks:
  - Docset registry parses and every enabled root has indexable files
  - Data directory is writable
  - Free disk space (100MB minimum)
  - Embedding provider availability

Embedder problems are warnings unless the provider is pinned to
"ollama": with auto-detection the engine falls back to static
embeddings.`,
		Example: `  # Run diagnostics
  docdex doctor

  # Verbose output with remediation hints
  docdex doctor --verbose

  # Pull the configured embedding model if missing
  docdex doctor --pull

  # JSON output for scripting
  docdex doctor --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runDoctor(cmd, verbose, jsonOutput, pull)
		},
	}

	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Show detailed diagnostic info")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output results as JSON")
	cmd.Flags().BoolVar(&pull, "pull", false, "Pull the embedding model when missing")
	return cmd
}

func runDoctor(cmd *cobra.Command, verbose, jsonOutput, pull bool) error {
	dir, err := resolveDir()
	if err != nil {
		return err
	}
	cfg, err := config.Load(dir)
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	if pull {
		if err := pullEmbeddingModel(cmd, cfg); err != nil {
			return err
		}
	}

	checker := preflight.New(cfg,
		preflight.WithVerbose(verbose),
		preflight.WithOutput(cmd.OutOrStdout()),
	)
	results := checker.RunAll(ctx)

	if jsonOutput {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		if err := enc.Encode(map[string]any{
			"status": checker.SummaryStatus(results),
			"checks": results,
		}); err != nil {
			return err
		}
	} else {
		checker.PrintResults(results)
	}

	if checker.HasCriticalFailures(results) {
		return errors.New("system check failed")
	}
	return nil
}

func pullEmbeddingModel(cmd *cobra.Command, cfg *config.Config) error {
	model := cfg.Embeddings.Model
	if model == "" || cfg.Embeddings.Provider == "static" {
		return nil
	}

	ctx := cmd.Context()
	mgr := lifecycle.NewManager(cfg.Embeddings.OllamaHost)
	if !mgr.Running(ctx) {
		return fmt.Errorf("cannot pull %s: ollama not reachable at %s", model, mgr.Host())
	}
	has, err := mgr.HasModel(ctx, model)
	if err != nil {
		return err
	}
	if has {
		return nil
	}

	out := output.New(cmd.OutOrStdout())
	out.Statusf("", "Pulling %s...", model)
	lastStatus := ""
	err = mgr.PullModel(ctx, model, func(p lifecycle.PullProgress) {
		if p.Status != lastStatus {
			lastStatus = p.Status
			out.Dim(p.Status)
		}
	})
	if err != nil {
		return err
	}
	out.Successf("pulled %s", model)
	return nil
}
