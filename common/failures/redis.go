package failures

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	rediscommon "github.com/ordview/ordview/common/redis"
)

const redisKeyPrefix = "failure:"

// RedisMemo shares the memo between service instances. Each entry is stored as
// JSON with a Redis TTL equal to its window.
type RedisMemo struct {
	redis   *rediscommon.Client
	windows Windows
	log     Logger
	now     func() time.Time
}

// NewRedisMemo creates a Redis-backed memo
func NewRedisMemo(client *rediscommon.Client, windows Windows, log Logger) *RedisMemo {
	return &RedisMemo{
		redis:   client,
		windows: windows,
		log:     log,
		now:     time.Now,
	}
}

// Get returns the live entry for id
func (m *RedisMemo) Get(ctx context.Context, id string) (Entry, bool) {
	raw, err := m.redis.Get(ctx, redisKeyPrefix+id)
	if errors.Is(err, rediscommon.ErrNotFound) {
		return Entry{}, false
	}
	if err != nil {
		m.log.Warn("failure memo read failed", "content_id", id, "error", err)
		return Entry{}, false
	}

	var entry Entry
	if err := json.Unmarshal([]byte(raw), &entry); err != nil {
		m.log.Warn("dropping unreadable failure memo entry", "content_id", id, "error", err)
		m.Clear(ctx, id)
		return Entry{}, false
	}

	// TTL granularity and clock skew can leave an entry slightly past its window
	if m.IsExpired(entry) {
		return Entry{}, false
	}
	return entry, true
}

// RecordFailure stores a failure for id with a TTL of its window
func (m *RedisMemo) RecordFailure(ctx context.Context, id, message string, permanent bool) {
	entry := Entry{
		Error:     message,
		Timestamp: m.now(),
		Permanent: permanent,
	}

	data, err := json.Marshal(entry)
	if err != nil {
		m.log.Error("failed to encode failure memo entry", "content_id", id, "error", err)
		return
	}

	if err := m.redis.Set(ctx, redisKeyPrefix+id, string(data), m.windows.For(permanent)); err != nil {
		m.log.Warn("failure memo write failed", "content_id", id, "error", err)
	}
}

// Clear forgets id
func (m *RedisMemo) Clear(ctx context.Context, id string) {
	if err := m.redis.Delete(ctx, redisKeyPrefix+id); err != nil {
		m.log.Warn("failure memo delete failed", "content_id", id, "error", err)
	}
}

// IsExpired reports whether entry is past its window
func (m *RedisMemo) IsExpired(entry Entry) bool {
	return m.windows.Expired(entry, m.now())
}
