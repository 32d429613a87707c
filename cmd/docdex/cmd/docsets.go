package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/docdex/docdex/internal/output"
)

func newDocsetsCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "docsets",
		Short: "List registered docsets and their index state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			manager, err := openManager(cmd.Context())
			if err != nil {
				return err
			}
			defer manager.Close()

			statuses := manager.ListDocsets()
			if jsonOutput {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(statuses)
			}

			out := output.New(cmd.OutOrStdout())
			for _, st := range statuses {
				label := st.ID
				if st.Version != "" {
					label = fmt.Sprintf("%s (%s)", st.ID, st.Version)
				}
				switch {
				case !st.Enabled:
					out.Dim(label + ": disabled")
				case st.Error != "":
					out.Errorf("%s: %s", label, st.Error)
				case st.Indexed:
					out.Successf("%s: %d documents, %d chunks, built %s",
						label, st.Documents, st.Chunks, st.BuiltAt.Format("2006-01-02 15:04:05"))
				default:
					out.Warningf("%s: not indexed", label)
				}
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output docset status as JSON")
	return cmd
}
