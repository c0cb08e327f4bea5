package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/ordview/ordview/common/loader"
	"github.com/ordview/ordview/common/validation"
)

// validContentID rejects malformed inscription ids before any source is consulted
func validContentID(c echo.Context) (string, error) {
	contentID := c.Param("id")
	if err := validation.ValidateContentID(contentID); err != nil {
		return "", echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return contentID, nil
}

// loadErrorResponse maps load failures to HTTP statuses:
// permanent -> 404, temporary -> 502, both carrying "retryable"
func loadErrorResponse(c echo.Context, contentID string, err error) error {
	if loadErr, ok := loader.AsLoadError(err); ok {
		status := http.StatusBadGateway
		if loadErr.Permanent {
			status = http.StatusNotFound
		}
		return c.JSON(status, map[string]interface{}{
			"error":      loadErr.Message,
			"content_id": contentID,
			"retryable":  loadErr.Retryable(),
			"memoized":   loadErr.Memoized,
		})
	}

	switch {
	case errors.Is(err, loader.ErrSuperseded):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case errors.Is(err, loader.ErrTornDown):
		return echo.NewHTTPError(http.StatusGone, err.Error())
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return echo.NewHTTPError(http.StatusServiceUnavailable, "request cancelled")
	}
	return echo.NewHTTPError(http.StatusInternalServerError, "failed to load content")
}
