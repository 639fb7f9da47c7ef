package db

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	store := &RedisStore{Client: redis.NewClient(&redis.Options{Addr: mr.Addr()})}
	t.Cleanup(store.Close)
	return store, mr
}

func TestCountCacheRoundTrip(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	_, ok, err := store.GetCachedCount(ctx, "ds-1", "samples", "rows", "")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.CacheCount(ctx, "ds-1", "samples", "rows", "", 42, time.Minute))

	val, ok, err := store.GetCachedCount(ctx, "ds-1", "samples", "rows", "")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, int64(42), val)
}

func TestCountCacheExpiry(t *testing.T) {
	store, mr := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.CacheCount(ctx, "ds-1", "samples", "parent", "patients", 7, time.Second))
	mr.FastForward(2 * time.Second)

	_, ok, err := store.GetCachedCount(ctx, "ds-1", "samples", "parent", "patients")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestInvalidateDatasetCounts(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.CacheCount(ctx, "ds-1", "samples", "rows", "", 1, time.Minute))
	require.NoError(t, store.CacheCount(ctx, "ds-1", "samples", "parent", "patients", 2, time.Minute))
	require.NoError(t, store.CacheCount(ctx, "ds-2", "samples", "rows", "", 3, time.Minute))

	require.NoError(t, store.InvalidateDatasetCounts(ctx, "ds-1"))

	_, ok, err := store.GetCachedCount(ctx, "ds-1", "samples", "rows", "")
	require.NoError(t, err)
	assert.False(t, ok)

	val, ok, err := store.GetCachedCount(ctx, "ds-2", "samples", "rows", "")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, int64(3), val)
}
