package amazon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"github.com/redis/go-redis/v9"
)

// DefaultProductTTL is how long product data stays in Redis.
const DefaultProductTTL = time.Hour

// CachedClient serves GetProduct from Redis and falls through to the
// wrapped lookup on a miss. Redis failures are logged and ignored.
// FNSKU resolution is never cached here; conversion outcomes have their own
// persistent cache.
type CachedClient struct {
	next Lookup
	rdb  *redis.Client
	ttl  time.Duration
}

func NewCachedClient(next Lookup, rdb *redis.Client, ttl time.Duration) *CachedClient {
	if ttl <= 0 {
		ttl = DefaultProductTTL
	}
	return &CachedClient{next: next, rdb: rdb, ttl: ttl}
}

func productKey(asin, marketplace string) string {
	return fmt.Sprintf("product:%s:%s", marketplace, asin)
}

func (c *CachedClient) GetProduct(ctx context.Context, asin, marketplace string) (*Product, error) {
	key := productKey(asin, marketplace)

	if c.rdb != nil {
		raw, err := c.rdb.Get(ctx, key).Bytes()
		switch {
		case err == nil:
			var p Product
			if uerr := json.Unmarshal(raw, &p); uerr == nil {
				return &p, nil
			}
			log.Warnf("[ProductCache] Dropping undecodable entry %s", key)
			c.rdb.Del(ctx, key)
		case !errors.Is(err, redis.Nil):
			log.Warnf("[ProductCache] Redis read for %s failed: %v", key, err)
		}
	}

	p, err := c.next.GetProduct(ctx, asin, marketplace)
	if err != nil {
		return nil, err
	}

	if c.rdb != nil {
		if raw, merr := json.Marshal(p); merr == nil {
			if serr := c.rdb.Set(ctx, key, raw, c.ttl).Err(); serr != nil {
				log.Warnf("[ProductCache] Redis write for %s failed: %v", key, serr)
			}
		}
	}
	return p, nil
}

func (c *CachedClient) ResolveFNSKU(ctx context.Context, fnsku, marketplace string) (string, error) {
	return c.next.ResolveFNSKU(ctx, fnsku, marketplace)
}
