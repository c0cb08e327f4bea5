package routes

import (
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ordview/ordview/cmd/ordview/container"
	"github.com/ordview/ordview/cmd/ordview/handlers"
	"github.com/ordview/ordview/common/loader"
)

// RegisterContentRoutes registers content load routes
func RegisterContentRoutes(e *echo.Echo, c *container.Container) {
	h := handlers.NewContentHandler(c)

	content := e.Group("/api/v1/content")
	{
		content.GET("/:id", h.GetContent)           // GET /api/v1/content/{id}
		content.GET("/:id/analysis", h.GetAnalysis) // GET /api/v1/content/{id}/analysis
		content.POST("/:id/retry", h.RetryContent)  // POST /api/v1/content/{id}/retry
		content.DELETE("/:id", h.InvalidateContent) // DELETE /api/v1/content/{id}
	}
}

// RegisterViewRoutes registers view session routes
func RegisterViewRoutes(e *echo.Echo, c *container.Container) {
	h := handlers.NewViewHandler(c)

	views := e.Group("/api/v1/views")
	{
		views.POST("", h.CreateView)                    // POST /api/v1/views
		views.PUT("/:view/content/:id", h.LoadIntoView) // PUT /api/v1/views/{view}/content/{id}
		views.DELETE("/:view/content", h.ResetView)     // DELETE /api/v1/views/{view}/content
		views.DELETE("/:view", h.CloseView)             // DELETE /api/v1/views/{view}
	}
}

// RegisterBlobRoutes registers the handle byte route
func RegisterBlobRoutes(e *echo.Echo, c *container.Container) {
	h := handlers.NewBlobHandler(c)
	e.GET(loader.BlobPathPrefix+":handle", h.GetBlob) // GET /blob/{handle}
}

// RegisterAnalyzeRoutes registers ad-hoc analysis and stats routes
func RegisterAnalyzeRoutes(e *echo.Echo, c *container.Container) {
	analyze := handlers.NewAnalyzeHandler(c)
	stats := handlers.NewStatsHandler(c)

	e.GET("/api/v1/analyze", analyze.AnalyzeURL) // GET /api/v1/analyze?url=
	e.GET("/api/v1/stats", stats.GetStats)       // GET /api/v1/stats
}

// RegisterMetricsRoutes exposes the Prometheus registry
func RegisterMetricsRoutes(e *echo.Echo, c *container.Container) {
	if c.Components.Registry == nil {
		return
	}
	e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(c.Components.Registry, promhttp.HandlerOpts{}))) // GET /metrics
}

// RegisterAll registers every application route
func RegisterAll(e *echo.Echo, c *container.Container) {
	RegisterContentRoutes(e, c)
	RegisterViewRoutes(e, c)
	RegisterBlobRoutes(e, c)
	RegisterAnalyzeRoutes(e, c)
	RegisterMetricsRoutes(e, c)
}
