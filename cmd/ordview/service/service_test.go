package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ordview/ordview/common/loader"
	"github.com/ordview/ordview/common/logger"
)

func TestViewRegistryLifecycle(t *testing.T) {
	registry := NewViewRegistry(context.Background())
	store := loader.NewHandleStore()

	id, guard := registry.Open()
	require.NotEmpty(t, id)
	assert.Equal(t, 1, registry.Len())

	got, ok := registry.Get(id)
	require.True(t, ok)
	assert.Same(t, guard, got)

	h := store.Create([]byte("x"), "text/plain")
	require.NoError(t, guard.Adopt(h))

	assert.True(t, registry.Close(id))
	assert.False(t, registry.Close(id))
	assert.True(t, h.Released())
	assert.False(t, guard.Alive())
	assert.Error(t, guard.Context().Err())

	_, ok = registry.Get(id)
	assert.False(t, ok)
}

func TestViewRegistryCloseAll(t *testing.T) {
	registry := NewViewRegistry(context.Background())
	_, a := registry.Open()
	_, b := registry.Open()

	registry.CloseAll()
	assert.Zero(t, registry.Len())
	assert.False(t, a.Alive())
	assert.False(t, b.Alive())
}

func TestOneShotHandlesReleaseOnce(t *testing.T) {
	store := loader.NewHandleStore()
	oneShot := NewOneShotHandles()

	h := store.Create([]byte("x"), "text/plain")
	oneShot.Track(h)

	assert.True(t, oneShot.Served(h.ID()))
	assert.True(t, h.Released())
	assert.False(t, oneShot.Served(h.ID()))
	assert.Zero(t, oneShot.Len())
}

func TestOneShotIgnoresUntrackedHandles(t *testing.T) {
	store := loader.NewHandleStore()
	oneShot := NewOneShotHandles()

	h := store.Create([]byte("x"), "text/plain")
	assert.False(t, oneShot.Served(h.ID()))
	assert.False(t, h.Released())
}

func TestSweeperReleasesExpiredHandles(t *testing.T) {
	store := loader.NewHandleStore()
	oneShot := NewOneShotHandles()
	sweeper := NewSweeper(store, oneShot, time.Minute, logger.Discard())

	h := store.Create([]byte("x"), "text/plain")
	oneShot.Track(h)

	assert.Zero(t, sweeper.Sweep(time.Now()))
	assert.False(t, h.Released())

	assert.Equal(t, 1, sweeper.Sweep(time.Now().Add(2*time.Minute)))
	assert.True(t, h.Released())
	assert.Zero(t, oneShot.Len())
	assert.Zero(t, store.Len())
}

func TestSweeperLeavesViewHandles(t *testing.T) {
	store := loader.NewHandleStore()
	sweeper := NewSweeper(store, NewOneShotHandles(), time.Minute, logger.Discard())
	views := NewViewRegistry(context.Background())

	viewID, guard := views.Open()
	h := store.Create([]byte("x"), "text/plain")
	require.NoError(t, guard.Adopt(h))

	assert.Zero(t, sweeper.Sweep(time.Now().Add(2*time.Minute)))
	assert.False(t, h.Released())

	require.True(t, views.Close(viewID))
	assert.True(t, h.Released())
}
