package container

import (
	"context"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/ordview/ordview/cmd/ordview/service"
	"github.com/ordview/ordview/common/bootstrap"
	"github.com/ordview/ordview/common/clients"
	"github.com/ordview/ordview/common/content"
	"github.com/ordview/ordview/common/loader"
	"github.com/ordview/ordview/common/metrics"
	"github.com/ordview/ordview/common/validation"
)

// Container holds all initialized services (singleton pattern)
type Container struct {
	// Components
	Components *bootstrap.Components

	// Clients
	HTTP    *clients.HTTPClient
	Content *clients.ContentClient

	// Services
	Analyzer     *content.Analyzer
	Handles      *loader.HandleStore
	Orchestrator *loader.Orchestrator
	Metrics      *metrics.LoadMetrics
	URLValidator *validation.URLValidator

	// Sessions
	Views   *service.ViewRegistry
	OneShot *service.OneShotHandles
	Sweeper *service.Sweeper

	cancel context.CancelFunc
}

// NewContainer initializes all services once. Background work (the handle
// sweeper) runs until Close.
func NewContainer(ctx context.Context, components *bootstrap.Components, opts ...loader.Option) (*Container, error) {
	cfg := components.Config
	log := components.Logger

	urlValidator := validation.NewURLValidator(
		validation.AllowPrivateHosts(cfg.Content.AllowPrivateHosts),
	)
	if _, err := urlValidator.ValidateScheme(cfg.Content.BaseURL); err != nil {
		return nil, fmt.Errorf("invalid content base url: %w", err)
	}

	predicate, err := content.NewCELPredicate(cfg.Content.JSONEndpointExpr)
	if err != nil {
		return nil, fmt.Errorf("invalid json endpoint expression: %w", err)
	}

	// Initialize clients
	httpClient := clients.NewHTTPClient(&http.Client{Timeout: cfg.Content.FetchTimeout}, log)
	contentClient := clients.NewContentClient(httpClient, cfg.Content.BaseURL, log)

	// Initialize services (bottom-up: dependencies first)
	analyzer := content.NewAnalyzer(httpClient, log, content.WithEndpointPredicate(predicate))
	handles := loader.NewHandleStore()
	var registerer prometheus.Registerer
	if components.Registry != nil {
		registerer = components.Registry
	}
	loadMetrics := metrics.NewLoadMetrics(registerer)

	loaderOpts := []loader.Option{
		loader.WithMetrics(loadMetrics),
		loader.WithObserver(loader.ObserverFunc(func(contentID string, analysis content.Analysis) {
			log.Debug("content analyzed",
				"content_id", contentID,
				"detected_type", analysis.Info.DetectedType,
				"render_strategy", analysis.Info.RenderStrategy,
			)
		})),
	}
	if components.Telemetry != nil {
		loaderOpts = append(loaderOpts, loader.WithRecorder(components.Telemetry))
	}
	if cfg.Content.MirrorURL != "" {
		if _, err := urlValidator.ValidateScheme(cfg.Content.MirrorURL); err != nil {
			return nil, fmt.Errorf("invalid content mirror url: %w", err)
		}
		mirror := clients.NewContentClient(httpClient, cfg.Content.MirrorURL, log)
		loaderOpts = append(loaderOpts, loader.WithFetcher(loader.ContentClientFetcher(mirror)))
		log.Info("content mirror enabled", "mirror_url", cfg.Content.MirrorURL)
	}
	loaderOpts = append(loaderOpts, opts...)

	orchestrator := loader.NewOrchestrator(
		components.Cache,
		components.Failures,
		contentClient,
		analyzer,
		handles,
		log,
		loaderOpts...,
	)

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	oneShot := service.NewOneShotHandles()
	sweeper := service.NewSweeper(handles, oneShot, cfg.Service.HandleTTL, log)
	go sweeper.Run(runCtx)

	return &Container{
		Components:   components,
		HTTP:         httpClient,
		Content:      contentClient,
		Analyzer:     analyzer,
		Handles:      handles,
		Orchestrator: orchestrator,
		Metrics:      loadMetrics,
		URLValidator: urlValidator,
		Views:        service.NewViewRegistry(runCtx),
		OneShot:      oneShot,
		Sweeper:      sweeper,
		cancel:       cancel,
	}, nil
}

// Close stops background work and tears down every view
func (c *Container) Close() error {
	c.cancel()
	c.Views.CloseAll()
	c.Components.Logger.Info("container closed", "metrics", c.Metrics.String())
	return nil
}
