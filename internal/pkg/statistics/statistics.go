// Package statistics caches the aggregate conversion statistics in Redis.
// Computing them scans the whole conversion cache table, so the result is
// reused for a short while instead of being recomputed per request.
package statistics

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"github.com/redis/go-redis/v9"

	"github.com/702ron/product-api-site-sub000/internal/pkg/fnsku"
)

const (
	CacheKeyConversionStats = "statistics:conversions"
	CacheExpiration         = 5 * time.Minute
)

// Source computes fresh statistics.
type Source interface {
	Stats(ctx context.Context) (*fnsku.Stats, error)
}

// CachedStats serves Source results from Redis. Without a reachable Redis
// every call goes to Source; concurrent misses are collapsed into one.
type CachedStats struct {
	source Source
	rdb    *redis.Client
	ttl    time.Duration

	mu sync.Mutex
}

func NewCachedStats(source Source, rdb *redis.Client, ttl time.Duration) *CachedStats {
	if ttl <= 0 {
		ttl = CacheExpiration
	}
	return &CachedStats{source: source, rdb: rdb, ttl: ttl}
}

// Stats returns the cached statistics, computing and storing them on a miss.
func (s *CachedStats) Stats(ctx context.Context) (*fnsku.Stats, error) {
	if stats, ok := s.load(ctx); ok {
		return stats, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// another caller may have filled the cache while we waited
	if stats, ok := s.load(ctx); ok {
		return stats, nil
	}

	stats, err := s.source.Stats(ctx)
	if err != nil {
		return nil, err
	}
	s.store(ctx, stats)
	return stats, nil
}

// Invalidate drops the cached statistics.
func (s *CachedStats) Invalidate(ctx context.Context) {
	if s.rdb == nil {
		return
	}
	if err := s.rdb.Del(ctx, CacheKeyConversionStats).Err(); err != nil {
		log.Warnf("[Statistics] Failed to invalidate cache: %v", err)
	}
}

func (s *CachedStats) load(ctx context.Context) (*fnsku.Stats, bool) {
	if s.rdb == nil {
		return nil, false
	}
	raw, err := s.rdb.Get(ctx, CacheKeyConversionStats).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			log.Warnf("[Statistics] Cache read failed: %v", err)
		}
		return nil, false
	}
	var stats fnsku.Stats
	if err := json.Unmarshal(raw, &stats); err != nil {
		log.Warnf("[Statistics] Dropping undecodable cache entry: %v", err)
		return nil, false
	}
	return &stats, true
}

func (s *CachedStats) store(ctx context.Context, stats *fnsku.Stats) {
	if s.rdb == nil {
		return
	}
	raw, err := json.Marshal(stats)
	if err != nil {
		return
	}
	if err := s.rdb.Set(ctx, CacheKeyConversionStats, raw, s.ttl).Err(); err != nil {
		log.Warnf("[Statistics] Cache write failed: %v", err)
	}
}
