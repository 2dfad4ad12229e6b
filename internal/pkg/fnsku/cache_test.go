package fnsku

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/702ron/product-api-site-sub000/app/models"
)

func TestCache_PutIsIdempotentUpsert(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	created := f.clock.Now()

	f.cache.Put(ctx, newSuccess("X001ABC123", "B001ABC123", 0.95, MethodDirectAPI, map[string]any{"sub_method": "provider_lookup"}))
	f.clock.Advance(2 * time.Hour)
	f.cache.Put(ctx, newSuccess("X001ABC123", "B001ABC124", 0.4, MethodPatternMatching, nil))

	count, err := f.repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	entry, err := f.repo.GetByFNSKU(ctx, "X001ABC123")
	require.NoError(t, err)
	assert.Equal(t, "B001ABC124", *entry.ASIN)
	assert.Equal(t, 40, entry.ConfidenceScore)
	assert.Equal(t, MethodPatternMatching, entry.Method)
	assert.WithinDuration(t, created, entry.CreatedAt, time.Second)
	assert.WithinDuration(t, f.clock.Now().Add(models.ConversionCacheTTL), entry.ExpiresAt, time.Second)
}

func TestCache_FreshInsertExpiresAfterTTL(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	f.cache.Put(ctx, newSuccess("X001ABC123", "B001ABC123", 0.95, MethodDirectAPI, nil))

	entry, err := f.repo.GetByFNSKU(ctx, "X001ABC123")
	require.NoError(t, err)
	assert.WithinDuration(t, entry.CreatedAt.Add(models.ConversionCacheTTL), entry.ExpiresAt, time.Second)
}

func TestCache_GetHit(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	f.cache.Put(ctx, newSuccess("X001ABC123", "B001ABC123", 0.95, MethodDirectAPI, map[string]any{"sub_method": "provider_lookup"}))
	f.clock.Advance(90 * time.Minute)

	result, ok := f.cache.Get(ctx, "X001ABC123")
	require.True(t, ok)
	assert.True(t, result.Cached)
	assert.True(t, result.Success)
	assert.Equal(t, "B001ABC123", result.ASINValue())
	assert.Equal(t, ConfidenceVeryHigh, result.Confidence)
	assert.Equal(t, 0.95, result.ConfidenceScore)
	assert.Zero(t, result.ConversionTimeMs)
	require.NotNil(t, result.CacheAgeHours)
	assert.InDelta(t, 1.5, *result.CacheAgeHours, 0.01)
	assert.Equal(t, "provider_lookup", result.Details["sub_method"])
}

func TestCache_CountsHits(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	f.cache.Put(ctx, newSuccess("X001ABC123", "B001ABC123", 0.95, MethodDirectAPI, nil))
	_, ok := f.cache.Get(ctx, "X001ABC123")
	require.True(t, ok)
	_, ok = f.cache.Get(ctx, "X001ABC123")
	require.True(t, ok)

	// a later write keeps the counter
	f.cache.Put(ctx, newSuccess("X001ABC123", "B001ABC123", 0.95, MethodDirectAPI, nil))

	entry, err := f.repo.GetByFNSKU(ctx, "X001ABC123")
	require.NoError(t, err)
	assert.Equal(t, int64(2), entry.HitCount)
}

func TestCache_MissWhenExpiredOrStale(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	f.cache.Put(ctx, newSuccess("X001ABC123", "B001ABC123", 0.95, MethodDirectAPI, nil))
	f.cache.Put(ctx, newSuccess("X001ABC456", "B001ABC456", 0.95, MethodDirectAPI, nil))

	found, err := f.cache.MarkStale(ctx, "X001ABC456")
	require.NoError(t, err)
	assert.True(t, found)
	_, ok := f.cache.Get(ctx, "X001ABC456")
	assert.False(t, ok)

	f.clock.Advance(models.ConversionCacheTTL + time.Minute)
	_, ok = f.cache.Get(ctx, "X001ABC123")
	assert.False(t, ok)

	_, ok = f.cache.Get(ctx, "X999999999")
	assert.False(t, ok)
}

func TestCache_StoresFailures(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	f.cache.Put(ctx, newFailure("X001ABC123", "all conversion methods failed", nil))

	result, ok := f.cache.Get(ctx, "X001ABC123")
	require.True(t, ok)
	assert.False(t, result.Success)
	assert.Nil(t, result.ASIN)
	assert.Equal(t, MethodFailed, result.Method)
	assert.Equal(t, "all conversion methods failed", result.Error)
}

func TestCache_CleanupExpired(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	f.cache.Put(ctx, newSuccess("X001ABC123", "B001ABC123", 0.95, MethodDirectAPI, nil))
	f.clock.Advance(48 * time.Hour)
	f.cache.Put(ctx, newSuccess("X001ABC456", "B001ABC456", 0.95, MethodDirectAPI, nil))
	f.clock.Advance(25 * time.Hour)

	removed, err := f.cache.CleanupExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)

	count, err := f.repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestCache_FindSimilarSkipsSelf(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	f.cache.Put(ctx, newSuccess("X001ABC123", "B001ABC123", 0.95, MethodDirectAPI, nil))
	f.cache.Put(ctx, newSuccess("X001ABZZZZ", "B001ABZZZZ", 0.5, MethodDirectAPI, nil))
	f.cache.Put(ctx, newFailure("X001ABYYYY", "failed", nil))

	match, err := f.cache.FindSimilar(ctx, "X001ABC123", 6)
	require.NoError(t, err)
	require.NotNil(t, match)
	assert.Equal(t, "X001ABZZZZ", match.FNSKU)

	match, err = f.cache.FindSimilar(ctx, "Y001ABC123", 6)
	require.NoError(t, err)
	assert.Nil(t, match)
}

func TestCache_StoreErrorsAreSwallowed(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	sqlDB, err := f.db.DB()
	require.NoError(t, err)
	require.NoError(t, sqlDB.Close())

	assert.NotPanics(t, func() {
		f.cache.Put(ctx, newSuccess("X001ABC123", "B001ABC123", 0.95, MethodDirectAPI, nil))
	})
	_, ok := f.cache.Get(ctx, "X001ABC123")
	assert.False(t, ok)
}

func TestCache_WithTTL(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	short := NewCache(f.repo, WithClock(f.clock.Now), WithTTL(time.Hour))

	short.Put(ctx, newSuccess("X001ABC123", "B001ABC123", 0.95, MethodDirectAPI, nil))
	_, ok := short.Get(ctx, "X001ABC123")
	assert.True(t, ok)

	f.clock.Advance(2 * time.Hour)
	_, ok = short.Get(ctx, "X001ABC123")
	assert.False(t, ok)
}
