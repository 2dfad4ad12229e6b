package fnsku

import (
	"context"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/702ron/product-api-site-sub000/app/models"
	"github.com/702ron/product-api-site-sub000/app/repository"
)

const similarLookupLimit = 10

// HitRecorder counts cache hits per FNSKU.
type HitRecorder interface {
	RecordHit(ctx context.Context, fnsku string) error
}

type repositoryHits struct {
	repo repository.ConversionCacheRepository
}

func (h repositoryHits) RecordHit(ctx context.Context, fnsku string) error {
	return h.repo.IncrementHits(ctx, fnsku, 1)
}

// Cache stores conversion outcomes keyed by FNSKU. Store errors never reach
// the caller of Get or Put: a failed read is a miss, a failed write is a no-op.
type Cache struct {
	repo repository.ConversionCacheRepository
	hits HitRecorder
	ttl  time.Duration
	now  func() time.Time
}

type CacheOption func(*Cache)

// WithHitRecorder replaces the default per-hit database increment.
func WithHitRecorder(h HitRecorder) CacheOption {
	return func(c *Cache) {
		if h != nil {
			c.hits = h
		}
	}
}

// WithTTL overrides how long new entries stay servable.
func WithTTL(ttl time.Duration) CacheOption {
	return func(c *Cache) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

// WithClock sets the time source. Used by tests.
func WithClock(now func() time.Time) CacheOption {
	return func(c *Cache) {
		if now != nil {
			c.now = now
		}
	}
}

func NewCache(repo repository.ConversionCacheRepository, opts ...CacheOption) *Cache {
	c := &Cache{
		repo: repo,
		hits: repositoryHits{repo: repo},
		ttl:  models.ConversionCacheTTL,
		now:  time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get returns the cached result for fnsku if it exists, has not expired and
// is not stale.
func (c *Cache) Get(ctx context.Context, fnsku string) (*ConversionResult, bool) {
	entry, err := c.repo.GetByFNSKU(ctx, fnsku)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			log.Warnf("[ConversionCache] Read for %s failed, treating as miss: %v", fnsku, err)
		}
		return nil, false
	}

	now := c.now()
	if !entry.IsServable(now) {
		return nil, false
	}

	if err := c.hits.RecordHit(ctx, fnsku); err != nil {
		log.Warnf("[ConversionCache] Recording hit for %s failed: %v", fnsku, err)
	}
	return resultFromEntry(entry, now), true
}

// Put writes result for fnsku, replacing any previous entry and extending
// its expiry. Failed results are stored too.
func (c *Cache) Put(ctx context.Context, result *ConversionResult) {
	if result == nil || result.FNSKU == "" {
		return
	}
	now := c.now()
	entry := &models.ConversionCacheEntry{
		FNSKU:             result.FNSKU,
		ConfidenceScore:   scoreToPercent(result.ConfidenceScore),
		Method:            result.Method,
		ConversionDetails: datatypes.JSONMap(copyDetails(result.Details)),
		ErrorMessage:      result.Error,
		CreatedAt:         now,
		UpdatedAt:         now,
		ExpiresAt:         now.Add(c.ttl),
	}
	if result.Success && result.ASIN != nil {
		asin := *result.ASIN
		entry.ASIN = &asin
	}

	if err := c.repo.Upsert(ctx, entry); err != nil {
		log.Warnf("[ConversionCache] Write for %s failed, ignoring: %v", result.FNSKU, err)
	}
}

// CleanupExpired deletes entries whose expiry has passed and returns how
// many were removed.
func (c *Cache) CleanupExpired(ctx context.Context) (int64, error) {
	n, err := c.repo.DeleteExpired(ctx, c.now())
	if err != nil {
		log.Errorf("[ConversionCache] Cleanup failed: %v", err)
		return 0, err
	}
	if n > 0 {
		log.Infof("[ConversionCache] Removed %d expired entries", n)
	}
	return n, nil
}

// MarkStale stops fnsku from being served until it is converted again.
func (c *Cache) MarkStale(ctx context.Context, fnsku string) (bool, error) {
	return c.repo.MarkStale(ctx, fnsku)
}

// FindSimilar returns the best servable conversion of another FNSKU that
// shares the first prefixLen characters with fnsku.
func (c *Cache) FindSimilar(ctx context.Context, fnsku string, prefixLen int) (*models.ConversionCacheEntry, error) {
	if len(fnsku) < prefixLen {
		return nil, nil
	}
	entries, err := c.repo.FindByPrefix(ctx, fnsku[:prefixLen], c.now(), similarLookupLimit)
	if err != nil {
		return nil, err
	}
	for i := range entries {
		if entries[i].FNSKU != fnsku && entries[i].HasASIN() {
			return &entries[i], nil
		}
	}
	return nil, nil
}

func resultFromEntry(entry *models.ConversionCacheEntry, now time.Time) *ConversionResult {
	score := percentToScore(entry.ConfidenceScore)
	age := now.Sub(entry.CreatedAt).Hours()

	var result *ConversionResult
	if entry.HasASIN() {
		result = newSuccess(entry.FNSKU, *entry.ASIN, score, entry.Method, copyDetails(entry.ConversionDetails))
	} else {
		result = newFailure(entry.FNSKU, entry.ErrorMessage, copyDetails(entry.ConversionDetails))
		result.Method = entry.Method
	}
	result.Cached = true
	result.CacheAgeHours = &age
	result.ConversionTimeMs = 0
	return result
}

func copyDetails(in map[string]any) map[string]any {
	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
