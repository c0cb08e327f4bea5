package failures

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ordview/ordview/common/logger"
	rediscommon "github.com/ordview/ordview/common/redis"
)

func TestRedisMemo(t *testing.T) {
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDR not set")
	}

	ctx := context.Background()
	client, err := rediscommon.Dial(ctx, addr, "", 0, logger.Discard())
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	memo := NewRedisMemo(client, DefaultWindows(), logger.Discard())
	id := "test-" + t.Name()
	t.Cleanup(func() { memo.Clear(ctx, id) })

	memo.RecordFailure(ctx, id, "HTTP 404", true)

	entry, ok := memo.Get(ctx, id)
	require.True(t, ok)
	assert.Equal(t, "HTTP 404", entry.Error)
	assert.True(t, entry.Permanent)

	ttl, err := client.GetUnderlying().TTL(ctx, redisKeyPrefix+id).Result()
	require.NoError(t, err)
	assert.InDelta(t, float64(24*time.Hour), float64(ttl), float64(time.Minute))

	// an entry whose window has passed reads as absent even if the key survives
	memo.now = func() time.Time { return time.Now().Add(25 * time.Hour) }
	_, ok = memo.Get(ctx, id)
	assert.False(t, ok)
	memo.now = time.Now

	memo.Clear(ctx, id)
	_, ok = memo.Get(ctx, id)
	assert.False(t, ok)
}
