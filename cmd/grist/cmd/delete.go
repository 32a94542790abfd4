package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hearthside-dev/grist/internal/store"
)

func newDeleteCmd(root *rootOptions) *cobra.Command {
	var sourceID string

	cmd := &cobra.Command{
		Use:   "delete <source-type>",
		Short: "Delete stored embeddings",
		Long: `Delete stored embeddings by source type, optionally narrowed to a
single source id.

Examples:
  grist delete post --source-id post-42
  grist delete business_doc`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := store.ParseSourceType(args[0])
			if err != nil {
				return err
			}

			app, err := setup(cmd.Context(), root)
			if err != nil {
				return err
			}
			defer app.Close()

			deleted, err := app.pipeline.RemoveSource(cmd.Context(), st, sourceID)
			if err != nil {
				return err
			}

			target := string(st)
			if sourceID != "" {
				target = fmt.Sprintf("%s/%s", st, sourceID)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %d embeddings for %s\n", deleted, target)
			return nil
		},
	}

	cmd.Flags().StringVar(&sourceID, "source-id", "", "Restrict deletion to one source id")

	return cmd
}
