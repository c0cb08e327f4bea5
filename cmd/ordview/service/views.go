package service

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/ordview/ordview/common/loader"
)

// ViewRegistry tracks the guards of open view sessions. A view owns at most
// one live handle; loading into it supersedes the previous one.
type ViewRegistry struct {
	mu     sync.Mutex
	parent context.Context
	views  map[string]*loader.Guard
}

// NewViewRegistry creates a registry whose guards derive from parent
func NewViewRegistry(parent context.Context) *ViewRegistry {
	return &ViewRegistry{
		parent: parent,
		views:  make(map[string]*loader.Guard),
	}
}

// Open starts a new view session
func (r *ViewRegistry) Open() (string, *loader.Guard) {
	id := uuid.NewString()
	guard := loader.NewGuard(r.parent)

	r.mu.Lock()
	r.views[id] = guard
	r.mu.Unlock()

	return id, guard
}

// Get returns the guard of an open view
func (r *ViewRegistry) Get(id string) (*loader.Guard, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	guard, ok := r.views[id]
	return guard, ok
}

// Close tears down a view and reports whether it was open
func (r *ViewRegistry) Close(id string) bool {
	r.mu.Lock()
	guard, ok := r.views[id]
	delete(r.views, id)
	r.mu.Unlock()

	if ok {
		guard.Teardown()
	}
	return ok
}

// CloseAll tears down every open view
func (r *ViewRegistry) CloseAll() {
	r.mu.Lock()
	views := r.views
	r.views = make(map[string]*loader.Guard)
	r.mu.Unlock()

	for _, guard := range views {
		guard.Teardown()
	}
}

// Len returns the number of open views
func (r *ViewRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.views)
}
