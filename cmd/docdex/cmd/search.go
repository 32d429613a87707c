package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/docdex/docdex/internal/config"
	"github.com/docdex/docdex/internal/indexer"
	"github.com/docdex/docdex/internal/output"
)

type searchOptions struct {
	limit      int
	docsets    []string
	sourceHint string
	deps       []string
	format     string
}

func newSearchCmd() *cobra.Command {
	var opts searchOptions

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search the indexed docsets",
		Long: `Search docsets with hybrid keyword + semantic retrieval.

Without --docset the query is routed automatically using docset
keywords, tags, and dependencies.

Examples:
  docdex search "event loop scheduling"
  docdex search "connection pooling" --docset postgres --limit 5
  docdex search "json encoding" --format json`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSearch(cmd, strings.Join(args, " "), opts)
		},
	}

	cmd.Flags().IntVarP(&opts.limit, "limit", "n", 0, "Maximum number of results")
	cmd.Flags().StringSliceVarP(&opts.docsets, "docset", "d", nil, "Search only these docsets (repeatable)")
	cmd.Flags().StringVar(&opts.sourceHint, "source-hint", "", "Docset id to prefer during routing")
	cmd.Flags().StringSliceVar(&opts.deps, "dependency", nil, "Project dependency names used as routing signals")
	cmd.Flags().StringVarP(&opts.format, "format", "f", "text", "Output format: text, json")

	return cmd
}

func runSearch(cmd *cobra.Command, query string, opts searchOptions) error {
	manager, err := openManager(cmd.Context())
	if err != nil {
		return err
	}
	defer manager.Close()

	resp, err := manager.Search(cmd.Context(), indexer.SearchRequest{
		Query:        query,
		Docsets:      opts.docsets,
		SourceHint:   opts.sourceHint,
		Dependencies: opts.deps,
		TopK:         opts.limit,
	})
	if err != nil {
		return err
	}

	if opts.format == "json" {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(resp)
	}

	out := output.New(cmd.OutOrStdout())
	if len(resp.Results) == 0 {
		out.Status("", fmt.Sprintf("No results for %q", query))
		return nil
	}

	out.Statusf("", "Found %d results for %q (searched: %s)",
		len(resp.Results), query, strings.Join(resp.Routing.SelectedDocsets, ", "))
	out.Newline()

	for i, r := range resp.Results {
		heading := r.Title
		if len(r.HeadingPath) > 1 {
			heading = strings.Join(r.HeadingPath, " > ")
		}
		out.Statusf("", "%d. [%s] %s (score: %.2f)", i+1, r.DocsetID, heading, r.Score)
		out.Dim(r.FilePath + r.Anchor)
		if r.Snippet.Text != "" {
			out.Status("", "   "+r.Snippet.Text)
		}
		out.Dim("ref: " + r.DocRef)
		out.Newline()
	}
	return nil
}

// openManager loads config and brings the indexes up for a one-shot
// CLI command.
func openManager(ctx context.Context) (*indexer.Manager, error) {
	dir, err := resolveDir()
	if err != nil {
		return nil, err
	}
	cfg, err := config.Load(dir)
	if err != nil {
		return nil, err
	}
	manager, err := indexer.New(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if err := manager.EnsureReady(ctx); err != nil {
		manager.Close()
		return nil, err
	}
	return manager, nil
}
