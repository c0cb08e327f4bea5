package main

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/ordview/ordview/common/clients"
	"github.com/ordview/ordview/common/validation"
)

// NewAnalyzeCmd creates the analyze command
func NewAnalyzeCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "analyze <url>",
		Short: "Classify the content at a URL",
		Long:  `Fetch a sample of the resource at url and print how it would be rendered.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rawURL := args[0]
			if _, err := validation.NewURLValidator().ValidateScheme(rawURL); err != nil {
				return err
			}

			ctx := cmd.Context()
			components, err := opts.setup(ctx)
			if err != nil {
				return err
			}
			defer components.Shutdown(ctx)

			cfg := components.Config
			httpClient := clients.NewHTTPClient(&http.Client{Timeout: cfg.Content.FetchTimeout}, components.Logger)
			analyzer, err := newAnalyzer(cfg, httpClient, components.Logger)
			if err != nil {
				return err
			}

			analysis := analyzer.AnalyzeURL(ctx, rawURL)
			out, err := json.MarshalIndent(analysis, "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(out))
			return nil
		},
	}
}
