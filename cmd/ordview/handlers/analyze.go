package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/ordview/ordview/cmd/ordview/container"
)

// AnalyzeHandler classifies arbitrary URLs
type AnalyzeHandler struct {
	container *container.Container
}

// NewAnalyzeHandler creates a new analyze handler
func NewAnalyzeHandler(c *container.Container) *AnalyzeHandler {
	return &AnalyzeHandler{container: c}
}

// AnalyzeURL samples and classifies the resource at ?url=
// GET /api/v1/analyze
func (h *AnalyzeHandler) AnalyzeURL(c echo.Context) error {
	rawURL := c.QueryParam("url")
	if rawURL == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "url query parameter is required")
	}

	ctx := c.Request().Context()
	if err := h.container.URLValidator.Validate(ctx, rawURL); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	analysis := h.container.Analyzer.AnalyzeURL(ctx, rawURL)
	return c.JSON(http.StatusOK, map[string]interface{}{
		"url":      rawURL,
		"analysis": analysis,
	})
}
