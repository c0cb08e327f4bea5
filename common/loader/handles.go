package loader

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// BlobPathPrefix is the URL path handles are served under
const BlobPathPrefix = "/blob/"

// Handle is a transient reference to loaded bytes, addressable by URL until
// released. Release is idempotent and reading after release reports false.
type Handle struct {
	id          string
	contentType string
	createdAt   time.Time
	data        atomic.Pointer[[]byte]
	owned       atomic.Bool // adopted by a Guard, which controls its lifetime
	store       *HandleStore
}

// ID returns the handle identifier
func (h *Handle) ID() string {
	return h.id
}

// URL returns the path the handle is served at
func (h *Handle) URL() string {
	return BlobPathPrefix + h.id
}

// ContentType returns the declared content type of the bytes
func (h *Handle) ContentType() string {
	return h.contentType
}

// CreatedAt returns when the handle was created
func (h *Handle) CreatedAt() time.Time {
	return h.createdAt
}

// Bytes returns the referenced bytes, or false once released
func (h *Handle) Bytes() ([]byte, bool) {
	p := h.data.Load()
	if p == nil {
		return nil, false
	}
	return *p, true
}

// Owned reports whether a Guard has adopted the handle
func (h *Handle) Owned() bool {
	return h.owned.Load()
}

// Released reports whether the handle has been released
func (h *Handle) Released() bool {
	return h.data.Load() == nil
}

// Release drops the reference. It reports true only for the call that released it.
func (h *Handle) Release() bool {
	if h == nil || h.data.Swap(nil) == nil {
		return false
	}
	if h.store != nil {
		h.store.forget(h)
	}
	return true
}

// HandleStore is the registry of live handles
type HandleStore struct {
	mu       sync.RWMutex
	handles  map[string]*Handle
	created  atomic.Int64
	released atomic.Int64
	now      func() time.Time
}

// NewHandleStore creates an empty registry
func NewHandleStore() *HandleStore {
	return &HandleStore{
		handles: make(map[string]*Handle),
		now:     time.Now,
	}
}

// Create registers a new handle over data. data must not be modified afterwards.
func (s *HandleStore) Create(data []byte, contentType string) *Handle {
	if data == nil {
		data = []byte{}
	}

	h := &Handle{
		id:          uuid.NewString(),
		contentType: contentType,
		createdAt:   s.now(),
		store:       s,
	}
	h.data.Store(&data)

	s.mu.Lock()
	s.handles[h.id] = h
	s.mu.Unlock()

	s.created.Add(1)
	return h
}

// Lookup returns a live handle by id
func (s *HandleStore) Lookup(id string) (*Handle, bool) {
	s.mu.RLock()
	h, ok := s.handles[id]
	s.mu.RUnlock()

	if !ok || h.Released() {
		return nil, false
	}
	return h, true
}

// ReleaseOlderThan releases every unowned handle created before cutoff and
// returns how many. Handles adopted by a Guard live until the guard lets go.
func (s *HandleStore) ReleaseOlderThan(cutoff time.Time) int {
	s.mu.RLock()
	var stale []*Handle
	for _, h := range s.handles {
		if h.createdAt.Before(cutoff) && !h.Owned() {
			stale = append(stale, h)
		}
	}
	s.mu.RUnlock()

	n := 0
	for _, h := range stale {
		if h.Release() {
			n++
		}
	}
	return n
}

// Len returns the number of live handles
func (s *HandleStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.handles)
}

// Stats returns registry statistics
func (s *HandleStore) Stats() map[string]interface{} {
	return map[string]interface{}{
		"live":     s.Len(),
		"created":  s.created.Load(),
		"released": s.released.Load(),
	}
}

func (s *HandleStore) forget(h *Handle) {
	s.mu.Lock()
	delete(s.handles, h.id)
	s.mu.Unlock()
	s.released.Add(1)
}
