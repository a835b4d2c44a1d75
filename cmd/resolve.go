package cmd

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"

	"github.com/spf13/cobra"

	"github.com/JakeFAU/story-preview-gateway/internal/config"
	"github.com/JakeFAU/story-preview-gateway/internal/server"
)

func newResolveCmd(cfgFile *string) *cobra.Command {
	var userAgent string

	cmd := &cobra.Command{
		Use:   "resolve <slug>",
		Short: "Answers one preview request against the configured store and prints the response",
		Long: `resolve builds the gateway from configuration, sends a single preview request
for slug through the full HTTP stack, and prints the status line, the Location
header for redirects, and the body. It counts a view like a real request.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*cfgFile)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			app, err := server.Build(cmd.Context(), &cfg)
			if err != nil {
				return fmt.Errorf("build app: %w", err)
			}
			defer func() { _ = app.Close(cmd.Context()) }()

			req := httptest.NewRequest(http.MethodGet, "/api/story?slug="+url.QueryEscape(args[0]), nil)
			req = req.WithContext(cmd.Context())
			req.Header.Set("User-Agent", userAgent)
			rec := httptest.NewRecorder()
			app.Handler().ServeHTTP(rec, req)

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%d %s\n", rec.Code, http.StatusText(rec.Code))
			if loc := rec.Header().Get("Location"); loc != "" {
				fmt.Fprintf(out, "Location: %s\n", loc)
				return nil
			}
			fmt.Fprintln(out, rec.Body.String())
			return nil
		},
	}
	cmd.Flags().StringVar(&userAgent, "user-agent", "facebookexternalhit/1.1", "user agent to send with the request")
	return cmd
}
