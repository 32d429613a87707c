package cmd

import (
	"encoding/json"

	"github.com/spf13/cobra"

	"github.com/docdex/docdex/internal/output"
)

func newOpenCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "open <doc-ref>",
		Short: "Open a reference from a previous search",
		Long: `Resolve a doc ref printed by 'docdex search' and show the full
section it points into, including code blocks.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			manager, err := openManager(cmd.Context())
			if err != nil {
				return err
			}
			defer manager.Close()

			view, err := manager.Open(args[0])
			if err != nil {
				return err
			}

			if jsonOutput {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(view)
			}

			out := output.New(cmd.OutOrStdout())
			out.Status("", view.Title)
			out.Dim(view.URL)
			out.Newline()
			out.Status("", view.Text)
			for _, code := range view.CodeBlocks {
				out.Code(code)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output the section as JSON")
	return cmd
}
