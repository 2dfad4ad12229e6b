package counter

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/702ron/product-api-site-sub000/app/models"
	"github.com/702ron/product-api-site-sub000/internal/testutil"
)

func newTestRedis(t *testing.T) *redis.Client {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	return rdb
}

func TestBuffer_FlushAppliesHits(t *testing.T) {
	ctx := context.Background()
	db := testutil.SetupTestDB(t)
	rdb := newTestRedis(t)
	buf := NewBuffer(rdb, db)

	now := time.Now()
	for _, fnsku := range []string{"X000000001", "X000000002"} {
		require.NoError(t, db.Create(&models.ConversionCacheEntry{
			FNSKU:     fnsku,
			Method:    "direct_api",
			ExpiresAt: now.Add(time.Hour),
			HitCount:  1,
		}).Error)
	}

	for i := 0; i < 3; i++ {
		require.NoError(t, buf.RecordHit(ctx, "X000000001"))
	}
	require.NoError(t, buf.RecordHit(ctx, "X000000002"))
	require.NoError(t, buf.RecordHit(ctx, "X000000404"))

	pending, err := buf.Pending(ctx, "X000000001")
	require.NoError(t, err)
	assert.Equal(t, int64(3), pending)

	updated, err := buf.Flush(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, updated)

	var entries []models.ConversionCacheEntry
	require.NoError(t, db.Order("fnsku").Find(&entries).Error)
	require.Len(t, entries, 2)
	assert.Equal(t, int64(4), entries[0].HitCount)
	assert.Equal(t, int64(2), entries[1].HitCount)

	pending, err = buf.Pending(ctx, "X000000001")
	require.NoError(t, err)
	assert.Zero(t, pending)
}

func TestBuffer_FlushWithNothingBuffered(t *testing.T) {
	buf := NewBuffer(newTestRedis(t), testutil.SetupTestDB(t))

	updated, err := buf.Flush(context.Background())
	require.NoError(t, err)
	assert.Zero(t, updated)
}
