package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hearthside-dev/grist/internal/ui"
)

func newDoctorCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check store consistency",
		Long: `Check that the metadata table, the full-text index, and the vector
graph agree on which records exist. A store that fails this check needs
a fresh sync.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := setup(cmd.Context(), root)
			if err != nil {
				return err
			}
			defer app.Close()

			report, err := app.store.Verify(cmd.Context())
			if err != nil {
				return err
			}

			fmt.Fprint(cmd.OutOrStdout(), ui.RenderConsistency(report, app.styles))
			if !report.Consistent() {
				return fmt.Errorf("store is inconsistent, run 'grist sync' to rebuild")
			}
			return nil
		},
	}
}
