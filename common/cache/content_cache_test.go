package cache

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testLogger struct {
	t *testing.T
}

func (l *testLogger) Info(msg string, kv ...interface{})  { l.t.Log(append([]interface{}{msg}, kv...)...) }
func (l *testLogger) Error(msg string, kv ...interface{}) { l.t.Log(append([]interface{}{msg}, kv...)...) }
func (l *testLogger) Warn(msg string, kv ...interface{})  { l.t.Log(append([]interface{}{msg}, kv...)...) }
func (l *testLogger) Debug(msg string, kv ...interface{}) { l.t.Log(append([]interface{}{msg}, kv...)...) }

// failingStore errors on every operation
type failingStore struct {
	deletes int
}

func (s *failingStore) Get(ctx context.Context, key string) (Entry, bool, error) {
	return Entry{}, false, errors.New("backend down")
}

func (s *failingStore) Set(ctx context.Context, key string, entry Entry) error {
	return errors.New("backend down")
}

func (s *failingStore) Delete(ctx context.Context, key string) error {
	s.deletes++
	return errors.New("backend down")
}

func (s *failingStore) Close() error { return nil }

// corruptStore reports every read as undecodable
type corruptStore struct {
	*MemoryStore
}

func (s corruptStore) Get(ctx context.Context, key string) (Entry, bool, error) {
	if _, ok, _ := s.MemoryStore.Get(ctx, key); ok {
		return Entry{}, false, ErrCorrupt
	}
	return Entry{}, false, nil
}

func newTestCache(t *testing.T) (*ContentCache, *MemoryStore) {
	store := NewMemoryStore(100, 1<<20)
	return NewContentCache(store, &testLogger{t: t}), store
}

func TestCachedHTMLIsReconstructedVerbatim(t *testing.T) {
	ctx := context.Background()
	c, _ := newTestCache(t)

	html := "<!DOCTYPE html><html><body>héllo</body></html>"
	c.Put(ctx, "abc", []byte(html), "text/html")

	entry, ok := c.Get(ctx, "abc")
	require.True(t, ok)
	assert.Equal(t, html, entry.Content, "text content must not be base64 encoded")
	assert.Equal(t, "text/html", entry.ContentType)

	data, contentType, ok := c.Load(ctx, "abc")
	require.True(t, ok)
	assert.Equal(t, html, string(data))
	assert.Equal(t, "text/html", contentType)
}

func TestCachedBinaryIsReconstructed(t *testing.T) {
	ctx := context.Background()
	c, _ := newTestCache(t)

	data := randomBytes(t, 120*1024, 3)
	c.Put(ctx, "img", data, "image/webp")

	got, contentType, ok := c.Load(ctx, "img")
	require.True(t, ok)
	assert.Equal(t, data, got)
	assert.Equal(t, "image/webp", contentType)
}

func TestLoadEvictsUndecodableEntry(t *testing.T) {
	ctx := context.Background()
	c, store := newTestCache(t)

	c.Set(ctx, "bad", "%%%not-base64%%%", "image/png")
	require.Equal(t, 1, store.Len())

	_, _, ok := c.Load(ctx, "bad")
	assert.False(t, ok)
	assert.Zero(t, store.Len(), "corrupt entry should be evicted")
}

func TestGetEvictsCorruptBackendEntry(t *testing.T) {
	ctx := context.Background()
	store := corruptStore{NewMemoryStore(10, 0)}
	c := NewContentCache(store, &testLogger{t: t})

	require.NoError(t, store.MemoryStore.Set(ctx, "x", Entry{Content: "a", ContentType: "b"}))

	_, ok := c.Get(ctx, "x")
	assert.False(t, ok)
	assert.Zero(t, store.Len())
}

func TestCacheNeverFailsOnBackendErrors(t *testing.T) {
	ctx := context.Background()
	store := &failingStore{}
	c := NewContentCache(store, &testLogger{t: t})

	assert.NotPanics(t, func() {
		c.Put(ctx, "id", []byte("hello"), "text/plain")
		c.Set(ctx, "id", "hello", "text/plain")
		c.Delete(ctx, "id")
	})

	_, ok := c.Get(ctx, "id")
	assert.False(t, ok)
	_, _, ok = c.Load(ctx, "id")
	assert.False(t, ok)

	// failed writes also attempt to clear any stale value
	assert.Equal(t, 3, store.deletes)
}

func TestOversizedContentIsSkipped(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(10, 16)
	c := NewContentCache(store, &testLogger{t: t})

	c.Put(ctx, "big", make([]byte, 1024), "text/plain")

	_, ok := c.Get(ctx, "big")
	assert.False(t, ok)
}

func TestDeleteRemovesEntry(t *testing.T) {
	ctx := context.Background()
	c, _ := newTestCache(t)

	c.Set(ctx, "a", "hello", "text/plain")
	c.Delete(ctx, "a")

	_, ok := c.Get(ctx, "a")
	assert.False(t, ok)
}
