package cache

import "context"

// TieredStore puts a bounded in-memory store in front of a remote store.
// Reads that miss the front are filled from the back; writes and deletes go to both.
type TieredStore struct {
	front *MemoryStore
	back  Store
}

// NewTieredStore layers front over back
func NewTieredStore(front *MemoryStore, back Store) *TieredStore {
	return &TieredStore{front: front, back: back}
}

// Get reads through the front
func (s *TieredStore) Get(ctx context.Context, key string) (Entry, bool, error) {
	if entry, ok, _ := s.front.Get(ctx, key); ok {
		return entry, true, nil
	}

	entry, ok, err := s.back.Get(ctx, key)
	if err != nil || !ok {
		return Entry{}, false, err
	}

	// too-large entries stay back-only
	_ = s.front.Set(ctx, key, entry)
	return entry, true, nil
}

// Set writes to the back first, then the front
func (s *TieredStore) Set(ctx context.Context, key string, entry Entry) error {
	if err := s.back.Set(ctx, key, entry); err != nil {
		return err
	}
	_ = s.front.Set(ctx, key, entry)
	return nil
}

// Delete removes from both tiers
func (s *TieredStore) Delete(ctx context.Context, key string) error {
	_ = s.front.Delete(ctx, key)
	return s.back.Delete(ctx, key)
}

// Close closes both tiers
func (s *TieredStore) Close() error {
	_ = s.front.Close()
	return s.back.Close()
}
