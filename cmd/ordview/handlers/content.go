package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/ordview/ordview/cmd/ordview/container"
	"github.com/ordview/ordview/common/content"
	"github.com/ordview/ordview/common/loader"
	"github.com/ordview/ordview/common/logger"
)

// ContentResponse describes loaded content. The bytes themselves are served
// from HandleURL.
type ContentResponse struct {
	ContentID   string           `json:"content_id"`
	ViewID      string           `json:"view_id,omitempty"`
	Source      loader.Source    `json:"source"`
	ContentType string           `json:"content_type"`
	Size        int              `json:"size"`
	IsText      bool             `json:"is_text"`
	Analysis    content.Analysis `json:"analysis"`
	HandleURL   string           `json:"handle_url"`
}

func newContentResponse(loaded *loader.LoadedContent) ContentResponse {
	return ContentResponse{
		ContentID:   loaded.ContentID,
		Source:      loaded.Source,
		ContentType: loaded.ContentType,
		Size:        len(loaded.Data),
		IsText:      loaded.IsText(),
		Analysis:    loaded.Analysis,
		HandleURL:   loaded.Handle.URL(),
	}
}

// ContentHandler handles one-off content loads
type ContentHandler struct {
	container *container.Container
	log       *logger.Logger
}

// NewContentHandler creates a new content handler
func NewContentHandler(c *container.Container) *ContentHandler {
	return &ContentHandler{
		container: c,
		log:       c.Components.Logger,
	}
}

// GetContent loads content and returns a one-shot handle
// GET /api/v1/content/:id
func (h *ContentHandler) GetContent(c echo.Context) error {
	contentID, err := validContentID(c)
	if err != nil {
		return err
	}

	loaded, err := h.container.Orchestrator.Load(c.Request().Context(), contentID)
	if err != nil {
		return h.failed(c, contentID, err)
	}
	return h.respond(c, loaded)
}

// RetryContent clears a temporary failure and loads again
// POST /api/v1/content/:id/retry
func (h *ContentHandler) RetryContent(c echo.Context) error {
	contentID, err := validContentID(c)
	if err != nil {
		return err
	}

	loaded, err := h.container.Orchestrator.Retry(c.Request().Context(), contentID)
	if err != nil {
		return h.failed(c, contentID, err)
	}
	return h.respond(c, loaded)
}

// GetAnalysis classifies content without handing out a handle
// GET /api/v1/content/:id/analysis
func (h *ContentHandler) GetAnalysis(c echo.Context) error {
	contentID, err := validContentID(c)
	if err != nil {
		return err
	}

	analysis, source, err := h.container.Orchestrator.Analyze(c.Request().Context(), contentID)
	if err != nil {
		return h.failed(c, contentID, err)
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"content_id": contentID,
		"source":     source,
		"analysis":   analysis,
	})
}

// InvalidateContent drops cached content and remembered failures
// DELETE /api/v1/content/:id
func (h *ContentHandler) InvalidateContent(c echo.Context) error {
	contentID, err := validContentID(c)
	if err != nil {
		return err
	}

	h.container.Orchestrator.Invalidate(c.Request().Context(), contentID)
	h.log.WithContext(c.Request().Context()).Info("content invalidated", "content_id", contentID)
	return c.NoContent(http.StatusNoContent)
}

func (h *ContentHandler) respond(c echo.Context, loaded *loader.LoadedContent) error {
	h.container.OneShot.Track(loaded.Handle)

	h.log.WithContext(c.Request().Context()).Info("content loaded",
		"content_id", loaded.ContentID,
		"source", loaded.Source,
		"size", len(loaded.Data))

	return c.JSON(http.StatusOK, newContentResponse(loaded))
}

func (h *ContentHandler) failed(c echo.Context, contentID string, err error) error {
	h.log.WithContext(c.Request().Context()).Warn("content load failed", "content_id", contentID, "error", err)
	return loadErrorResponse(c, contentID, err)
}
