package clients

import (
	"context"

	"github.com/ordview/ordview/common/logger"
)

// WithRequestID adds a request ID to the context.
// It is forwarded as X-Request-ID on outgoing requests and picked up by logger.WithContext.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return logger.ContextWithRequestID(ctx, requestID)
}

// GetRequestID retrieves the request ID from context
func GetRequestID(ctx context.Context) (string, bool) {
	return logger.RequestIDFromContext(ctx)
}
