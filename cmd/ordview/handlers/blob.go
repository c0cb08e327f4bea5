package handlers

import (
	"encoding/hex"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/zeebo/blake3"

	"github.com/ordview/ordview/cmd/ordview/container"
)

// blobContentSecurityPolicy keeps inscription bytes from running script or
// reaching the network when a browser opens the blob URL directly
const blobContentSecurityPolicy = "sandbox; default-src 'none'; img-src data: blob:; style-src 'unsafe-inline'"

// BlobHandler serves handle bytes to the renderer
type BlobHandler struct {
	container *container.Container
}

// NewBlobHandler creates a new blob handler
func NewBlobHandler(c *container.Container) *BlobHandler {
	return &BlobHandler{container: c}
}

// GetBlob serves the bytes behind a live handle. One-shot handles are
// released once served.
// GET /blob/:handle
func (h *BlobHandler) GetBlob(c echo.Context) error {
	handleID := c.Param("handle")

	handle, ok := h.container.Handles.Lookup(handleID)
	if !ok {
		return echo.NewHTTPError(http.StatusNotFound, "handle not found or released")
	}
	data, ok := handle.Bytes()
	if !ok {
		return echo.NewHTTPError(http.StatusNotFound, "handle not found or released")
	}

	sum := blake3.Sum256(data)
	etag := `"` + hex.EncodeToString(sum[:]) + `"`

	header := c.Response().Header()
	header.Set("ETag", etag)
	header.Set("X-Content-Type-Options", "nosniff")
	header.Set("Cache-Control", "private, no-cache")
	header.Set("Content-Security-Policy", blobContentSecurityPolicy)
	header.Set("Cross-Origin-Resource-Policy", "same-origin")

	if c.Request().Header.Get("If-None-Match") == etag {
		return c.NoContent(http.StatusNotModified)
	}

	if err := c.Blob(http.StatusOK, handle.ContentType(), data); err != nil {
		return err
	}
	h.container.OneShot.Served(handleID)
	return nil
}
