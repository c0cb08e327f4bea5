package service

import (
	"context"
	"sync"
	"time"

	"github.com/ordview/ordview/common/loader"
)

// Logger interface for service logging
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Debug(msg string, keysAndValues ...interface{})
}

// OneShotHandles remembers handles that are released after their first
// successful fetch. Handles owned by views are never tracked here.
type OneShotHandles struct {
	mu      sync.Mutex
	handles map[string]*loader.Handle
}

// NewOneShotHandles creates an empty set
func NewOneShotHandles() *OneShotHandles {
	return &OneShotHandles{
		handles: make(map[string]*loader.Handle),
	}
}

// Track marks h as one-shot
func (s *OneShotHandles) Track(h *loader.Handle) {
	s.mu.Lock()
	s.handles[h.ID()] = h
	s.mu.Unlock()
}

// Served releases the handle if it was one-shot and reports whether it did
func (s *OneShotHandles) Served(id string) bool {
	s.mu.Lock()
	h, ok := s.handles[id]
	delete(s.handles, id)
	s.mu.Unlock()

	if !ok {
		return false
	}
	return h.Release()
}

// Prune forgets handles that were released elsewhere
func (s *OneShotHandles) Prune() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for id, h := range s.handles {
		if h.Released() {
			delete(s.handles, id)
			n++
		}
	}
	return n
}

// Len returns the number of tracked handles
func (s *OneShotHandles) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.handles)
}

// Sweeper releases handles that outlive their TTL, whoever owns them
type Sweeper struct {
	handles  *loader.HandleStore
	oneShot  *OneShotHandles
	ttl      time.Duration
	interval time.Duration
	log      Logger
}

// NewSweeper creates a sweeper that checks every ttl/2 (at least once a second)
func NewSweeper(handles *loader.HandleStore, oneShot *OneShotHandles, ttl time.Duration, log Logger) *Sweeper {
	interval := ttl / 2
	if interval < time.Second {
		interval = time.Second
	}
	return &Sweeper{
		handles:  handles,
		oneShot:  oneShot,
		ttl:      ttl,
		interval: interval,
		log:      log,
	}
}

// Run sweeps until ctx is done
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			s.Sweep(now)
		}
	}
}

// Sweep releases one-shot handles created before now-ttl and returns how many.
// Handles owned by a view are left to the view.
func (s *Sweeper) Sweep(now time.Time) int {
	released := s.handles.ReleaseOlderThan(now.Add(-s.ttl))
	pruned := s.oneShot.Prune()

	if released > 0 {
		s.log.Info("released expired handles", "released", released, "one_shot", pruned)
	}
	return released
}
