package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/JakeFAU/story-preview-gateway/internal/config"
	"github.com/JakeFAU/story-preview-gateway/internal/server"
)

func newServeCmd(cfgFile *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Runs the HTTP gateway",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(*cfgFile)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			app, err := server.Build(cmd.Context(), &cfg)
			if err != nil {
				return fmt.Errorf("build app: %w", err)
			}
			if err := app.Run(cmd.Context()); err != nil && !errors.Is(err, context.Canceled) {
				return fmt.Errorf("run app: %w", err)
			}
			return nil
		},
	}
}
