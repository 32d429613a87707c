package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func newAssetCmd() *cobra.Command {
	var outputPath string

	cmd := &cobra.Command{
		Use:   "asset <docset-id> <relative-path>",
		Short: "Fetch an asset referenced by a section",
		Long: `Read an asset (image or other file) from a docset by its relative
path, as listed in the assets of 'docdex open'. Paths escaping the
docset root are rejected.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			manager, err := openManager(cmd.Context())
			if err != nil {
				return err
			}
			defer manager.Close()

			data, err := manager.ReadAsset(args[0], args[1])
			if err != nil {
				return err
			}

			if outputPath != "" {
				if err := os.WriteFile(outputPath, data, 0o644); err != nil {
					return fmt.Errorf("failed to write %s: %w", outputPath, err)
				}
				return nil
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}

	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "Write the asset to a file instead of stdout")
	return cmd
}
