package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hearthside-dev/grist/internal/ui"
)

func newStatsCmd(root *rootOptions) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show store statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := setup(cmd.Context(), root)
			if err != nil {
				return err
			}
			defer app.Close()

			stats, err := app.store.Stats(cmd.Context())
			if err != nil {
				return err
			}

			if jsonOutput {
				byType := make(map[string]int, len(stats.ByType))
				for st, n := range stats.ByType {
					byType[string(st)] = n
				}
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(map[string]any{
					"total_embeddings": stats.Total,
					"by_type":          byType,
				})
			}

			fmt.Fprint(cmd.OutOrStdout(), ui.RenderStats(stats, app.styles))
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output stats as JSON")

	return cmd
}
