package cache

import (
	"container/list"
	"context"
	"sync"
)

// MemoryStore is an in-process LRU store bounded by entry count and total bytes.
// Inserting or reading an entry makes it most recently used; when either ceiling
// is exceeded the least recently used entries are evicted until both hold.
type MemoryStore struct {
	mu         sync.Mutex
	maxEntries int
	maxBytes   int64
	size       int64
	order      *list.List
	items      map[string]*list.Element
	evictions  int64
}

type memoryItem struct {
	key   string
	entry Entry
}

// NewMemoryStore creates a bounded LRU store. Non-positive limits disable that ceiling.
func NewMemoryStore(maxEntries int, maxBytes int64) *MemoryStore {
	return &MemoryStore{
		maxEntries: maxEntries,
		maxBytes:   maxBytes,
		order:      list.New(),
		items:      make(map[string]*list.Element),
	}
}

// Get retrieves an entry and marks it most recently used
func (s *MemoryStore) Get(ctx context.Context, key string) (Entry, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	elem, ok := s.items[key]
	if !ok {
		return Entry{}, false, nil
	}

	s.order.MoveToFront(elem)
	return elem.Value.(*memoryItem).entry, true, nil
}

// Set stores an entry, evicting least recently used entries as needed
func (s *MemoryStore) Set(ctx context.Context, key string, entry Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.maxBytes > 0 && entry.Size() > s.maxBytes {
		s.removeLocked(key)
		return ErrTooLarge
	}

	if elem, ok := s.items[key]; ok {
		item := elem.Value.(*memoryItem)
		s.size += entry.Size() - item.entry.Size()
		item.entry = entry
		s.order.MoveToFront(elem)
	} else {
		s.items[key] = s.order.PushFront(&memoryItem{key: key, entry: entry})
		s.size += entry.Size()
	}

	for s.overLimitLocked() {
		oldest := s.order.Back()
		if oldest == nil {
			break
		}
		s.removeElementLocked(oldest)
		s.evictions++
	}

	return nil
}

// Delete removes an entry; missing keys are a no-op
func (s *MemoryStore) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.removeLocked(key)
	return nil
}

// Close drops all entries
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.order.Init()
	s.items = make(map[string]*list.Element)
	s.size = 0
	return nil
}

// Len returns the number of entries held
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

// SizeBytes returns the bytes currently held
func (s *MemoryStore) SizeBytes() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.size
}

// Stats returns cache statistics
func (s *MemoryStore) Stats() map[string]interface{} {
	s.mu.Lock()
	defer s.mu.Unlock()

	return map[string]interface{}{
		"entries":     len(s.items),
		"size_bytes":  s.size,
		"max_entries": s.maxEntries,
		"max_bytes":   s.maxBytes,
		"evictions":   s.evictions,
		"type":        "memory",
	}
}

func (s *MemoryStore) overLimitLocked() bool {
	if s.maxEntries > 0 && len(s.items) > s.maxEntries {
		return true
	}
	return s.maxBytes > 0 && s.size > s.maxBytes
}

func (s *MemoryStore) removeLocked(key string) {
	if elem, ok := s.items[key]; ok {
		s.removeElementLocked(elem)
	}
}

func (s *MemoryStore) removeElementLocked(elem *list.Element) {
	item := elem.Value.(*memoryItem)
	s.order.Remove(elem)
	delete(s.items, item.key)
	s.size -= item.entry.Size()
}
