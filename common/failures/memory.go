package failures

import (
	"context"
	"sync"
	"time"
)

// MemoryMemo keeps failures in a bounded map. When full, expired entries are
// dropped first and then the oldest entries by timestamp.
type MemoryMemo struct {
	mu         sync.Mutex
	entries    map[string]Entry
	windows    Windows
	maxEntries int
	now        func() time.Time
}

// MemoryOption configures a MemoryMemo
type MemoryOption func(*MemoryMemo)

// WithClock replaces time.Now (tests)
func WithClock(now func() time.Time) MemoryOption {
	return func(m *MemoryMemo) {
		m.now = now
	}
}

// NewMemoryMemo creates an in-process memo; maxEntries <= 0 means unbounded
func NewMemoryMemo(windows Windows, maxEntries int, opts ...MemoryOption) *MemoryMemo {
	m := &MemoryMemo{
		entries:    make(map[string]Entry),
		windows:    windows,
		maxEntries: maxEntries,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Get returns the live entry for id, dropping it if expired
func (m *MemoryMemo) Get(ctx context.Context, id string) (Entry, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.entries[id]
	if !ok {
		return Entry{}, false
	}
	if m.windows.Expired(entry, m.now()) {
		delete(m.entries, id)
		return Entry{}, false
	}
	return entry, true
}

// RecordFailure remembers a failure for id
func (m *MemoryMemo) RecordFailure(ctx context.Context, id, message string, permanent bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	if _, exists := m.entries[id]; !exists && m.maxEntries > 0 && len(m.entries) >= m.maxEntries {
		m.makeRoomLocked(now)
	}

	m.entries[id] = Entry{
		Error:     message,
		Timestamp: now,
		Permanent: permanent,
	}
}

// Clear forgets id
func (m *MemoryMemo) Clear(ctx context.Context, id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, id)
}

// IsExpired reports whether entry is past its window
func (m *MemoryMemo) IsExpired(entry Entry) bool {
	return m.windows.Expired(entry, m.now())
}

// Len returns the number of stored entries, expired or not
func (m *MemoryMemo) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

func (m *MemoryMemo) makeRoomLocked(now time.Time) {
	for id, entry := range m.entries {
		if m.windows.Expired(entry, now) {
			delete(m.entries, id)
		}
	}

	for len(m.entries) >= m.maxEntries {
		var oldestID string
		var oldest time.Time
		for id, entry := range m.entries {
			if oldestID == "" || entry.Timestamp.Before(oldest) {
				oldestID, oldest = id, entry.Timestamp
			}
		}
		delete(m.entries, oldestID)
	}
}
