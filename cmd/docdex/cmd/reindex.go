package cmd

import (
	"github.com/spf13/cobra"

	"github.com/docdex/docdex/internal/output"
)

func newReindexCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reindex [docset-id...]",
		Short: "Rebuild docset indexes",
		Long: `Rebuild the indexes for the named docsets, or every enabled docset
when none are given. The snapshot is refreshed on success.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			manager, err := openManager(cmd.Context())
			if err != nil {
				return err
			}
			defer manager.Close()

			statuses, err := manager.Reindex(cmd.Context(), args)
			if err != nil {
				return err
			}

			out := output.New(cmd.OutOrStdout())
			for _, st := range statuses {
				if st.Error != "" {
					out.Errorf("%s: %s", st.ID, st.Error)
					continue
				}
				out.Successf("%s: %d documents, %d chunks", st.ID, st.Documents, st.Chunks)
			}
			return nil
		},
	}
}
