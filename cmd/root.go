package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// newRootCmd creates the root command and its subcommands.
func newRootCmd() *cobra.Command {
	var cfgFile string

	cmd := &cobra.Command{
		Use:   "story-preview-gateway",
		Short: "Serves social link previews for stories.",
		Long: `story-preview-gateway answers story links with Open Graph and Twitter Card
metadata when the caller is a link-preview crawler, and redirects browsers to
the canonical story page.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (YAML); env vars with the PREVIEW_ prefix override it")

	cmd.AddCommand(newServeCmd(&cfgFile))
	cmd.AddCommand(newResolveCmd(&cfgFile))
	cmd.AddCommand(newClassifyCmd(&cfgFile))

	return cmd
}

// Execute is the main entry point.
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
