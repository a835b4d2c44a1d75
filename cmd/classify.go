package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/JakeFAU/story-preview-gateway/internal/config"
	"github.com/JakeFAU/story-preview-gateway/internal/preview"
)

func newClassifyCmd(cfgFile *string) *cobra.Command {
	var extra []string

	cmd := &cobra.Command{
		Use:   "classify <user-agent>...",
		Short: "Reports whether each user agent would be served the crawler preview",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*cfgFile)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			signatures := append(append([]string{}, cfg.Classifier.ExtraSignatures...), extra...)
			classifier := preview.NewClassifier(signatures...)
			for _, ua := range args {
				audience := preview.AudienceOf(classifier.Classify(ua))
				if _, err := fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", audience, ua); err != nil {
					return fmt.Errorf("write result: %w", err)
				}
			}
			return nil
		},
	}
	cmd.Flags().StringSliceVar(&extra, "signature", nil, "additional crawler signature (repeatable)")
	return cmd
}
