package analytics

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/clinsight/clinserve/internal/db"
	"github.com/clinsight/clinserve/internal/observability"
	"github.com/clinsight/clinserve/internal/query"
)

func newTestCounts(t *testing.T) (*Counts, *db.RedisStore) {
	t.Helper()
	mr := miniredis.RunT(t)
	cache := &db.RedisStore{Client: redis.NewClient(&redis.Options{Addr: mr.Addr()})}
	t.Cleanup(cache.Close)
	return NewCounts(nil, cache, time.Minute, zap.NewNop(), observability.NewNoOpRegistry()), cache
}

func TestCountRecords_UnknownTable(t *testing.T) {
	svc, _ := newTestCounts(t)

	_, err := svc.CountRecords(context.Background(), "ds-1", "studies", nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnknownTable))
}

func TestCountRecords_UnknownParent(t *testing.T) {
	svc, _ := newTestCounts(t)

	cfg := &query.CountByConfig{Mode: query.CountModeParent, TargetTable: "studies"}
	_, err := svc.CountRecords(context.Background(), "ds-1", "samples", cfg)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnknownParent))
}

func TestCountRecords_PatientsHaveNoParent(t *testing.T) {
	svc, _ := newTestCounts(t)

	cfg := &query.CountByConfig{Mode: query.CountModeParent, TargetTable: "patients"}
	_, err := svc.CountRecords(context.Background(), "ds-1", "patients", cfg)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnknownParent))
}

func TestCountRecords_CacheHitSkipsWarehouse(t *testing.T) {
	// CH is nil, so any warehouse query would panic; a cache hit must
	// return before reaching it.
	svc, cache := newTestCounts(t)
	ctx := context.Background()

	require.NoError(t, cache.CacheCount(ctx, "ds-1", "samples", "rows", "", 123, time.Minute))

	count, err := svc.CountRecords(ctx, "ds-1", "samples", nil)
	require.NoError(t, err)
	assert.Equal(t, int64(123), count)
}

func TestCountRecords_ParentCacheKeyDistinct(t *testing.T) {
	svc, cache := newTestCounts(t)
	ctx := context.Background()

	require.NoError(t, cache.CacheCount(ctx, "ds-1", "samples", "parent", "patients", 45, time.Minute))

	cfg := &query.CountByConfig{Mode: query.CountModeParent, TargetTable: "patients"}
	count, err := svc.CountRecords(ctx, "ds-1", "samples", cfg)
	require.NoError(t, err)
	assert.Equal(t, int64(45), count)
}

func TestCountableTables(t *testing.T) {
	names := CountableTables()
	assert.ElementsMatch(t, []string{"patients", "samples"}, names)
}
