package accounts

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T) *BalanceCache {
	t.Helper()
	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewBalanceCache(client, time.Minute)
}

func TestBalanceCacheRoundTrip(t *testing.T) {
	cache := newTestCache(t)
	ctx := context.Background()

	_, ok := cache.Get(ctx, 7)
	assert.False(t, ok)

	require.NoError(t, cache.Set(ctx, 7, -2500))
	bal, ok := cache.Get(ctx, 7)
	require.True(t, ok)
	assert.Equal(t, int64(-2500), bal)

	require.NoError(t, cache.Invalidate(ctx, 7, 8))
	_, ok = cache.Get(ctx, 7)
	assert.False(t, ok)
}

func TestBalanceCacheNilSafe(t *testing.T) {
	var cache *BalanceCache
	ctx := context.Background()

	_, ok := cache.Get(ctx, 1)
	assert.False(t, ok)
	assert.NoError(t, cache.Set(ctx, 1, 100))
	assert.NoError(t, cache.Invalidate(ctx, 1))
}
