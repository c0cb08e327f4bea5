package main

import (
	"context"
	"fmt"
	"net/http"
	"os"

	"github.com/spf13/cobra"

	"github.com/ordview/ordview/common/bootstrap"
	"github.com/ordview/ordview/common/clients"
	"github.com/ordview/ordview/common/config"
	"github.com/ordview/ordview/common/content"
	"github.com/ordview/ordview/common/loader"
	"github.com/ordview/ordview/common/logger"
)

type rootOptions struct {
	baseURL  string
	logLevel string
}

// NewRootCmd creates the root command
func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:           "ordctl",
		Short:         "Inspect and load inscription content",
		Long:          `ordctl classifies content at arbitrary URLs and loads inscriptions through the same cache, failure memo and source chain the ordview service uses.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&opts.baseURL, "base-url", "", "content explorer base URL (default $CONTENT_BASE_URL)")
	rootCmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "warn", "log level written to stderr")

	// Add subcommands
	rootCmd.AddCommand(NewAnalyzeCmd(opts))
	rootCmd.AddCommand(NewLoadCmd(opts))
	rootCmd.AddCommand(NewVersionCmd())

	return rootCmd
}

// setup loads configuration and bootstraps components with CLI overrides applied
func (o *rootOptions) setup(ctx context.Context) (*bootstrap.Components, error) {
	cfg, err := config.Load("ordctl")
	if err != nil {
		return nil, err
	}
	if o.baseURL != "" {
		cfg.Content.BaseURL = o.baseURL
	}

	return bootstrap.Setup(ctx, "ordctl",
		bootstrap.WithCustomConfig(cfg),
		bootstrap.WithCustomLogger(logger.NewWithWriter(os.Stderr, o.logLevel, "text")),
		bootstrap.WithoutTelemetry(),
	)
}

// newAnalyzer builds the analyzer with the configured JSON endpoint predicate
func newAnalyzer(cfg *config.Config, httpClient *clients.HTTPClient, log *logger.Logger) (*content.Analyzer, error) {
	predicate, err := content.NewCELPredicate(cfg.Content.JSONEndpointExpr)
	if err != nil {
		return nil, fmt.Errorf("invalid json endpoint expression: %w", err)
	}
	return content.NewAnalyzer(httpClient, log, content.WithEndpointPredicate(predicate)), nil
}

// newOrchestrator wires the source chain over bootstrapped components
func newOrchestrator(components *bootstrap.Components) (*loader.Orchestrator, error) {
	cfg := components.Config
	log := components.Logger

	httpClient := clients.NewHTTPClient(&http.Client{Timeout: cfg.Content.FetchTimeout}, log)
	analyzer, err := newAnalyzer(cfg, httpClient, log)
	if err != nil {
		return nil, err
	}

	var opts []loader.Option
	if cfg.Content.MirrorURL != "" {
		mirror := clients.NewContentClient(httpClient, cfg.Content.MirrorURL, log)
		opts = append(opts, loader.WithFetcher(loader.ContentClientFetcher(mirror)))
	}

	return loader.NewOrchestrator(
		components.Cache,
		components.Failures,
		clients.NewContentClient(httpClient, cfg.Content.BaseURL, log),
		analyzer,
		loader.NewHandleStore(),
		log,
		opts...,
	), nil
}
