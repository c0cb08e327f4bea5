package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/ordview/ordview/cmd/ordview/container"
	"github.com/ordview/ordview/common/loader"
	"github.com/ordview/ordview/common/logger"
)

// ViewHandler manages view sessions. Each view holds at most one live handle.
type ViewHandler struct {
	container *container.Container
	log       *logger.Logger
}

// NewViewHandler creates a new view handler
func NewViewHandler(c *container.Container) *ViewHandler {
	return &ViewHandler{
		container: c,
		log:       c.Components.Logger,
	}
}

// CreateView opens a view session
// POST /api/v1/views
func (h *ViewHandler) CreateView(c echo.Context) error {
	viewID, _ := h.container.Views.Open()
	h.log.WithViewID(viewID).Info("view opened")

	return c.JSON(http.StatusCreated, map[string]string{
		"view_id": viewID,
	})
}

// LoadIntoView loads content into a view, superseding its previous handle.
// ?retry=true clears a temporary failure first.
// PUT /api/v1/views/:view/content/:id
func (h *ViewHandler) LoadIntoView(c echo.Context) error {
	viewID := c.Param("view")
	guard, ok := h.container.Views.Get(viewID)
	if !ok {
		return echo.NewHTTPError(http.StatusNotFound, "view not found")
	}

	contentID, err := validContentID(c)
	if err != nil {
		return err
	}

	var loaded *loader.LoadedContent
	if c.QueryParam("retry") == "true" {
		loaded, err = guard.Retry(c.Request().Context(), h.container.Orchestrator, contentID)
	} else {
		loaded, err = guard.Load(c.Request().Context(), h.container.Orchestrator, contentID)
	}
	if err != nil {
		h.log.WithViewID(viewID).Warn("view load failed", "content_id", contentID, "error", err)
		return loadErrorResponse(c, contentID, err)
	}

	resp := newContentResponse(loaded)
	resp.ViewID = viewID
	return c.JSON(http.StatusOK, resp)
}

// ResetView releases the view's handle
// DELETE /api/v1/views/:view/content
func (h *ViewHandler) ResetView(c echo.Context) error {
	guard, ok := h.container.Views.Get(c.Param("view"))
	if !ok {
		return echo.NewHTTPError(http.StatusNotFound, "view not found")
	}

	guard.Reset()
	return c.NoContent(http.StatusNoContent)
}

// CloseView tears the view down, cancelling its in-flight loads
// DELETE /api/v1/views/:view
func (h *ViewHandler) CloseView(c echo.Context) error {
	viewID := c.Param("view")
	if !h.container.Views.Close(viewID) {
		return echo.NewHTTPError(http.StatusNotFound, "view not found")
	}

	h.log.WithViewID(viewID).Info("view closed")
	return c.NoContent(http.StatusNoContent)
}
