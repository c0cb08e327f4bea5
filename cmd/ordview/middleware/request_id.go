package middleware

import (
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/ordview/ordview/common/clients"
)

// RequestIDHeader carries the request id in both directions
const RequestIDHeader = "X-Request-ID"

// RequestID takes the caller's X-Request-ID (or generates one), echoes it on
// the response and stores it in the request context so outgoing content
// fetches and log lines carry it.
//
// Usage:
//
//	e := echo.New()
//	e.Use(middleware.RequestID())
func RequestID() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			requestID := c.Request().Header.Get(RequestIDHeader)
			if requestID == "" || len(requestID) > 128 {
				requestID = uuid.NewString()
			}

			c.Response().Header().Set(RequestIDHeader, requestID)
			req := c.Request()
			c.SetRequest(req.WithContext(clients.WithRequestID(req.Context(), requestID)))

			return next(c)
		}
	}
}

// GetRequestID retrieves the request id stored by RequestID
// Returns empty string if not set
func GetRequestID(c echo.Context) string {
	requestID, _ := clients.GetRequestID(c.Request().Context())
	return requestID
}
