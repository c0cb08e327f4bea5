package cache

import (
	"context"
	"errors"
)

// ContentCache is the process-wide content cache handed to the loader.
// None of its methods fail: backend errors are logged and treated as misses,
// and entries that cannot be decoded are evicted.
type ContentCache struct {
	store Store
	log   Logger
}

// NewContentCache wraps a store
func NewContentCache(store Store, log Logger) *ContentCache {
	return &ContentCache{
		store: store,
		log:   log,
	}
}

// Get returns the raw cached entry
func (c *ContentCache) Get(ctx context.Context, contentID string) (Entry, bool) {
	entry, ok, err := c.store.Get(ctx, contentID)
	if errors.Is(err, ErrCorrupt) {
		c.log.Warn("evicting corrupt cache entry", "content_id", contentID, "error", err)
		c.Delete(ctx, contentID)
		return Entry{}, false
	}
	if err != nil {
		c.log.Warn("cache read failed", "content_id", contentID, "error", err)
		return Entry{}, false
	}
	return entry, ok
}

// Set stores an already-encoded entry
func (c *ContentCache) Set(ctx context.Context, contentID, content, contentType string) {
	c.set(ctx, contentID, Entry{Content: content, ContentType: contentType})
}

// Put encodes raw bytes according to their content type and stores them
func (c *ContentCache) Put(ctx context.Context, contentID string, data []byte, contentType string) {
	c.set(ctx, contentID, Encode(data, contentType))
}

// Load returns the decoded bytes and declared content type of a cached entry.
// A corrupt entry is evicted and reported as a miss.
func (c *ContentCache) Load(ctx context.Context, contentID string) ([]byte, string, bool) {
	entry, ok := c.Get(ctx, contentID)
	if !ok {
		return nil, "", false
	}

	data, err := Decode(entry)
	if err != nil {
		c.log.Warn("evicting corrupt cache entry", "content_id", contentID, "error", err)
		c.Delete(ctx, contentID)
		return nil, "", false
	}

	return data, entry.ContentType, true
}

// Delete evicts an entry
func (c *ContentCache) Delete(ctx context.Context, contentID string) {
	if err := c.store.Delete(ctx, contentID); err != nil {
		c.log.Warn("cache delete failed", "content_id", contentID, "error", err)
	}
}

// Close releases the backing store
func (c *ContentCache) Close() error {
	return c.store.Close()
}

func (c *ContentCache) set(ctx context.Context, contentID string, entry Entry) {
	err := c.store.Set(ctx, contentID, entry)
	switch {
	case errors.Is(err, ErrTooLarge):
		c.log.Info("content too large to cache", "content_id", contentID, "size", entry.Size())
	case err != nil:
		c.log.Warn("cache write failed", "content_id", contentID, "error", err)
		c.Delete(ctx, contentID)
	default:
		c.log.Debug("cached content", "content_id", contentID, "content_type", entry.ContentType, "size", entry.Size())
	}
}
