package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/ordview/ordview/cmd/ordview/container"
)

// StatsHandler exposes load counters and handle usage
type StatsHandler struct {
	container *container.Container
}

// NewStatsHandler creates a new stats handler
func NewStatsHandler(c *container.Container) *StatsHandler {
	return &StatsHandler{container: c}
}

// GetStats returns service counters
// GET /api/v1/stats
func (h *StatsHandler) GetStats(c echo.Context) error {
	stats := map[string]interface{}{
		"loads":   h.container.Metrics.Snapshot(),
		"handles": h.container.Handles.Stats(),
		"views":   h.container.Views.Len(),
	}
	if database := h.container.Components.DB; database != nil {
		stats["database"] = database.Stats()
	}
	return c.JSON(http.StatusOK, stats)
}
