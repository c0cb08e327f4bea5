package cache

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func textEntry(n int) Entry {
	return Entry{Content: strings.Repeat("x", n), ContentType: "t"}
}

func TestMemoryStoreEvictsLeastRecentlyUsedByCount(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(3, 0)

	for _, key := range []string{"a", "b", "c"} {
		require.NoError(t, store.Set(ctx, key, textEntry(1)))
	}

	// touch "a" so "b" becomes the oldest
	_, ok, _ := store.Get(ctx, "a")
	require.True(t, ok)

	require.NoError(t, store.Set(ctx, "d", textEntry(1)))

	_, ok, _ = store.Get(ctx, "b")
	assert.False(t, ok, "b should have been evicted")
	for _, key := range []string{"a", "c", "d"} {
		_, ok, _ = store.Get(ctx, key)
		assert.True(t, ok, key)
	}
	assert.Equal(t, 3, store.Len())
	assert.Equal(t, int64(1), store.Stats()["evictions"])
}

func TestMemoryStoreEvictsByBytes(t *testing.T) {
	ctx := context.Background()
	// each entry is 10 content bytes + 1 type byte
	store := NewMemoryStore(0, 25)

	require.NoError(t, store.Set(ctx, "a", textEntry(10)))
	require.NoError(t, store.Set(ctx, "b", textEntry(10)))
	assert.Equal(t, int64(22), store.SizeBytes())

	require.NoError(t, store.Set(ctx, "c", textEntry(10)))

	_, ok, _ := store.Get(ctx, "a")
	assert.False(t, ok)
	assert.Equal(t, 2, store.Len())
	assert.Equal(t, int64(22), store.SizeBytes())
}

func TestMemoryStoreRejectsOversizedEntry(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(10, 5)

	require.NoError(t, store.Set(ctx, "a", textEntry(2)))
	err := store.Set(ctx, "a", textEntry(50))
	assert.ErrorIs(t, err, ErrTooLarge)

	_, ok, _ := store.Get(ctx, "a")
	assert.False(t, ok, "stale value must not survive a rejected overwrite")
	assert.Zero(t, store.SizeBytes())
}

func TestMemoryStoreOverwriteTracksSize(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(10, 1000)

	require.NoError(t, store.Set(ctx, "a", textEntry(10)))
	require.NoError(t, store.Set(ctx, "a", textEntry(3)))

	entry, ok, err := store.Get(ctx, "a")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "xxx", entry.Content)
	assert.Equal(t, int64(4), store.SizeBytes())
	assert.Equal(t, 1, store.Len())
}

func TestMemoryStoreDeleteAndClose(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(10, 0)

	require.NoError(t, store.Set(ctx, "a", textEntry(1)))
	require.NoError(t, store.Delete(ctx, "a"))
	require.NoError(t, store.Delete(ctx, "missing"))
	assert.Zero(t, store.Len())

	require.NoError(t, store.Set(ctx, "b", textEntry(1)))
	require.NoError(t, store.Close())
	assert.Zero(t, store.Len())
	assert.Zero(t, store.SizeBytes())
}
