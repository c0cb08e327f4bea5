package cache

import (
	"context"
	"errors"
	"time"

	rediscommon "github.com/ordview/ordview/common/redis"
)

const redisKeyPrefix = "content:"

// RedisStore keeps entries as Redis hashes (content, content_type).
// Size bounding is left to the server's maxmemory policy.
type RedisStore struct {
	redis *rediscommon.Client
	ttl   time.Duration
}

// NewRedisStore creates a Redis-backed store; ttl 0 means entries never expire
func NewRedisStore(client *rediscommon.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{
		redis: client,
		ttl:   ttl,
	}
}

// Get reads an entry
func (s *RedisStore) Get(ctx context.Context, key string) (Entry, bool, error) {
	fields, err := s.redis.GetAllHash(ctx, redisKeyPrefix+key)
	if errors.Is(err, rediscommon.ErrNotFound) {
		return Entry{}, false, nil
	}
	if err != nil {
		return Entry{}, false, err
	}

	contentType, ok := fields["content_type"]
	if !ok {
		return Entry{}, false, ErrCorrupt
	}

	return Entry{Content: fields["content"], ContentType: contentType}, true, nil
}

// Set writes an entry, replacing any previous value
func (s *RedisStore) Set(ctx context.Context, key string, entry Entry) error {
	return s.redis.SetHashFields(ctx, redisKeyPrefix+key, map[string]string{
		"content":      entry.Content,
		"content_type": entry.ContentType,
	}, s.ttl)
}

// Delete removes an entry
func (s *RedisStore) Delete(ctx context.Context, key string) error {
	return s.redis.Delete(ctx, redisKeyPrefix+key)
}

// Close is a no-op; the shared client is closed by bootstrap
func (s *RedisStore) Close() error {
	return nil
}
