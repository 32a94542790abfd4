// Package cmd provides the CLI commands for grist.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/hearthside-dev/grist/internal/ui"
	"github.com/hearthside-dev/grist/pkg/version"
)

// rootOptions holds the persistent flags shared by every command.
type rootOptions struct {
	configPath string
	debug      bool
	noColor    bool
}

// NewRootCmd creates the root command for the grist CLI.
func NewRootCmd() *cobra.Command {
	var opts rootOptions

	cmd := &cobra.Command{
		Use:   "grist",
		Short: "Hybrid lexical + semantic retrieval store",
		Long: `Grist keeps an embedded knowledge store of documents, posts, and
replies, and answers queries by fusing full-text and vector search.

Run 'grist sync' to ingest a document directory, then 'grist search'
or 'grist serve' to query it.`,
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.SetVersionTemplate("grist version {{.Version}}\n")

	cmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "Path to config file (default: built-in defaults)")
	cmd.PersistentFlags().BoolVar(&opts.debug, "debug", false, "Enable debug logging")
	cmd.PersistentFlags().BoolVar(&opts.noColor, "no-color", false, "Disable colored output")

	cmd.AddCommand(newServeCmd(&opts))
	cmd.AddCommand(newSyncCmd(&opts))
	cmd.AddCommand(newSearchCmd(&opts))
	cmd.AddCommand(newStatsCmd(&opts))
	cmd.AddCommand(newDeleteCmd(&opts))
	cmd.AddCommand(newDoctorCmd(&opts))
	cmd.AddCommand(newConfigCmd())
	cmd.AddCommand(newVersionCmd())

	return cmd
}

// Execute runs the root command and prints any error to stderr.
func Execute() error {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, ui.RenderError(err, ui.DefaultStyles()))
		return err
	}
	return nil
}
