package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hearthside-dev/grist/internal/source"
	"github.com/hearthside-dev/grist/internal/ui"
)

func newSyncCmd(root *rootOptions) *cobra.Command {
	var docsDir string

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Ingest the document corpus",
		Long: `Ingest the document corpus.

Every Markdown and plaintext file under the docs directory is chunked,
embedded, and stored. Documents already in the store are replaced, so
sync is safe to run repeatedly.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := setup(cmd.Context(), root)
			if err != nil {
				return err
			}
			defer app.Close()

			src := app.source
			if docsDir != "" {
				src = source.NewDirSource(docsDir)
			}

			report, err := app.pipeline.SyncCorpus(cmd.Context(), src)
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), ui.RenderSyncReport(report, app.styles))
			if len(report.Errors) > 0 {
				return fmt.Errorf("%d documents failed to sync", len(report.Errors))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&docsDir, "docs-dir", "", "Override the configured docs directory")

	return cmd
}
