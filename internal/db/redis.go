package db

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/extra/redisotel/v9"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RedisStore wraps a redis client used to cache count results.
type RedisStore struct {
	Client *redis.Client
}

// InitRedis initializes a Redis client and returns a RedisStore.
func InitRedis(addr string) (*RedisStore, error) {
	rs := &RedisStore{
		Client: redis.NewClient(&redis.Options{Addr: addr}),
	}

	if err := redisotel.InstrumentTracing(rs.Client); err != nil {
		return nil, fmt.Errorf("failed to instrument redis tracing: %w", err)
	}

	if err := rs.Client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	zap.L().Info("Connected to Redis", zap.String("addr", addr))
	return rs, nil
}

// Close terminates the Redis connection.
func (r *RedisStore) Close() {
	if r != nil && r.Client != nil {
		_ = r.Client.Close()
	}
}

func countKey(datasetID, table, mode, target string) string {
	return fmt.Sprintf("count:%s:%s:%s:%s", datasetID, table, mode, target)
}

// GetCachedCount returns a cached count and whether the key was present.
func (r *RedisStore) GetCachedCount(ctx context.Context, datasetID, table, mode, target string) (int64, bool, error) {
	val, err := r.Client.Get(ctx, countKey(datasetID, table, mode, target)).Int64()
	if err == redis.Nil {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return val, true, nil
}

// CacheCount stores a count result with the given TTL.
func (r *RedisStore) CacheCount(ctx context.Context, datasetID, table, mode, target string, count int64, ttl time.Duration) error {
	return r.Client.Set(ctx, countKey(datasetID, table, mode, target), count, ttl).Err()
}

// InvalidateDatasetCounts drops all cached counts for a dataset. Called
// after an upload or delete changes the underlying rows.
func (r *RedisStore) InvalidateDatasetCounts(ctx context.Context, datasetID string) error {
	pattern := fmt.Sprintf("count:%s:*", datasetID)
	iter := r.Client.Scan(ctx, 0, pattern, 0).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("scan count keys: %w", err)
	}
	if len(keys) == 0 {
		return nil
	}
	return r.Client.Del(ctx, keys...).Err()
}
