// Package cache stores fetched content by content identifier. Text-like content is
// kept verbatim; everything else is kept as standard Base64 alongside the declared
// content type so the original bytes can be reconstructed faithfully.
package cache

import (
	"context"
	"errors"
)

var (
	// ErrCorrupt means a stored entry could not be decoded back into bytes
	ErrCorrupt = errors.New("cache entry corrupt")

	// ErrTooLarge means an entry exceeds the store's byte ceiling on its own
	ErrTooLarge = errors.New("cache entry exceeds size ceiling")
)

// Entry is one cached piece of content
type Entry struct {
	Content     string `json:"content"`
	ContentType string `json:"content_type"`
}

// Size approximates the memory held by the entry
func (e Entry) Size() int64 {
	return int64(len(e.Content) + len(e.ContentType))
}

// Store is a key-value backend for cache entries
type Store interface {
	Get(ctx context.Context, key string) (Entry, bool, error)
	Set(ctx context.Context, key string, entry Entry) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// Logger interface for cache logging
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
	Warn(msg string, keysAndValues ...interface{})
	Debug(msg string, keysAndValues ...interface{})
}
