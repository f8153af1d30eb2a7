package cache

import (
	"context"
	"errors"
	"log/slog"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/pscheid92/taskhub/internal/domain"
	"github.com/pscheid92/taskhub/internal/metrics"
)

// scanBatchSize bounds how many keys one SCAN iteration may return during
// pattern invalidation.
const scanBatchSize = 200

// Store is the Redis-backed cache. Expiry rides on Redis TTLs, so reads
// never observe a stale entry regardless of eviction timing. Every backend
// failure is absorbed: logged, counted, and reported to the caller as a miss
// or a no-op.
type Store struct {
	rdb goredis.Cmdable
}

var _ domain.Cache = (*Store)(nil)

// NewStore creates a Store on top of a connected Redis client.
func NewStore(rdb goredis.Cmdable) *Store {
	return &Store{rdb: rdb}
}

func (s *Store) Get(ctx context.Context, key string) ([]byte, bool) {
	data, err := s.rdb.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, goredis.Nil) {
			slog.Warn("Cache GET failed, treating as miss", "key", key, "error", err)
			metrics.CacheErrors.WithLabelValues("get").Inc()
		}
		metrics.CacheMisses.Inc()
		return nil, false
	}
	metrics.CacheHits.Inc()
	return data, true
}

func (s *Store) Set(ctx context.Context, key string, value []byte, ttl time.Duration) {
	if err := s.rdb.Set(ctx, key, value, ttl).Err(); err != nil {
		slog.Warn("Cache SET failed", "key", key, "error", err)
		metrics.CacheErrors.WithLabelValues("set").Inc()
	}
}

func (s *Store) Delete(ctx context.Context, keys ...string) {
	if len(keys) == 0 {
		return
	}
	deleted, err := s.rdb.Del(ctx, keys...).Result()
	if err != nil {
		slog.Warn("Cache DEL failed", "keys", keys, "error", err)
		metrics.CacheErrors.WithLabelValues("delete").Inc()
		return
	}
	metrics.CacheKeysInvalidated.Add(float64(deleted))
}

// DeleteMatching removes every key matching the glob pattern, e.g.
// "task:list:*". Implemented with SCAN rather than KEYS to stay incremental
// on large keyspaces.
func (s *Store) DeleteMatching(ctx context.Context, pattern string) {
	var cursor uint64
	for {
		keys, next, err := s.rdb.Scan(ctx, cursor, pattern, scanBatchSize).Result()
		if err != nil {
			slog.Warn("Cache SCAN failed during pattern invalidation", "pattern", pattern, "error", err)
			metrics.CacheErrors.WithLabelValues("delete_matching").Inc()
			return
		}

		if len(keys) > 0 {
			deleted, err := s.rdb.Del(ctx, keys...).Result()
			if err != nil {
				slog.Warn("Cache DEL failed during pattern invalidation", "pattern", pattern, "error", err)
				metrics.CacheErrors.WithLabelValues("delete_matching").Inc()
				return
			}
			metrics.CacheKeysInvalidated.Add(float64(deleted))
		}

		cursor = next
		if cursor == 0 {
			return
		}
	}
}
