//go:build integration

package redis

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func connect(t *testing.T) *Client {
	t.Helper()
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDR not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	c, err := NewClient(ctx, addr, "", 0)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestAllow_FixedWindow(t *testing.T) {
	c := connect(t)
	ctx := context.Background()
	key := "test:" + uuid.NewString()

	for i := 1; i <= 3; i++ {
		d, err := c.Allow(ctx, key, 3, time.Minute)
		require.NoError(t, err)
		assert.True(t, d.Allowed)
		assert.Equal(t, i, d.Count)
	}
	d, err := c.Allow(ctx, key, 3, time.Minute)
	require.NoError(t, err)
	assert.False(t, d.Allowed)
	assert.WithinDuration(t, time.Now().Add(time.Minute), d.WindowEnd, 2*time.Second)
}

func TestRevoke(t *testing.T) {
	c := connect(t)
	ctx := context.Background()
	id := uuid.NewString()

	revoked, err := c.IsRevoked(ctx, id)
	require.NoError(t, err)
	assert.False(t, revoked)

	require.NoError(t, c.Revoke(ctx, id, time.Minute))
	revoked, err = c.IsRevoked(ctx, id)
	require.NoError(t, err)
	assert.True(t, revoked)
}

func TestAllow_RestoresMissingExpiry(t *testing.T) {
	c := connect(t)
	ctx := context.Background()
	key := "test:" + uuid.NewString()

	// a counter left behind without a TTL
	require.NoError(t, c.rdb.Set(ctx, rateLimitPrefix+key, 5, 0).Err())

	d, err := c.Allow(ctx, key, 3, time.Minute)
	require.NoError(t, err)
	assert.False(t, d.Allowed)

	ttl, err := c.rdb.TTL(ctx, rateLimitPrefix+key).Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, time.Duration(0))
	assert.LessOrEqual(t, ttl, time.Minute)
}
