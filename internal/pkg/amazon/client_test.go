package amazon

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newProviderServer(t *testing.T, calls *atomic.Int32) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/products/B001ABC123", func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		assert.Equal(t, "secret", r.Header.Get("X-API-Key"))
		assert.Equal(t, "DE", r.URL.Query().Get("marketplace"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"asin":"B001ABC123","title":"Widget","price":12.5,"currency":"EUR"}`))
	})
	mux.HandleFunc("/products/B000000500", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream exploded", http.StatusInternalServerError)
	})
	mux.HandleFunc("/fnsku/X001ABC123", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"asin":"b001abc123"}`))
	})
	mux.HandleFunc("/fnsku/X000000000", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"asin":""}`))
	})
	mux.HandleFunc("/fnsku/X0000SLOW0", func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.Write([]byte(`{"asin":"B0000SLOW0"}`))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestClient_GetProduct(t *testing.T) {
	var calls atomic.Int32
	srv := newProviderServer(t, &calls)
	c := NewClient(srv.URL+"/", "secret", time.Second)

	p, err := c.GetProduct(context.Background(), "B001ABC123", "DE")
	require.NoError(t, err)
	assert.Equal(t, "Widget", p.Title)
	assert.Equal(t, "DE", p.Marketplace)
	require.NotNil(t, p.Price)
	assert.Equal(t, 12.5, *p.Price)
}

func TestClient_ErrorMapping(t *testing.T) {
	var calls atomic.Int32
	srv := newProviderServer(t, &calls)
	c := NewClient(srv.URL, "secret", time.Second)

	_, err := c.GetProduct(context.Background(), "B999999999", "US")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = c.GetProduct(context.Background(), "B000000500", "US")
	assert.ErrorIs(t, err, ErrProviderUnavailable)
	assert.False(t, errors.Is(err, ErrNotFound))

	dead := NewClient("http://127.0.0.1:1", "", time.Second)
	_, err = dead.GetProduct(context.Background(), "B001ABC123", "US")
	assert.ErrorIs(t, err, ErrProviderUnavailable)
}

func TestClient_ResolveFNSKU(t *testing.T) {
	var calls atomic.Int32
	srv := newProviderServer(t, &calls)
	c := NewClient(srv.URL, "", time.Second)

	asin, err := c.ResolveFNSKU(context.Background(), "X001ABC123", "US")
	require.NoError(t, err)
	assert.Equal(t, "B001ABC123", asin)

	_, err = c.ResolveFNSKU(context.Background(), "X000000000", "US")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = c.ResolveFNSKU(context.Background(), "X999999999", "US")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestClient_ContextDeadline(t *testing.T) {
	var calls atomic.Int32
	srv := newProviderServer(t, &calls)
	c := NewClient(srv.URL, "", time.Second)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := c.ResolveFNSKU(ctx, "X0000SLOW0", "US")
	assert.ErrorIs(t, err, ErrProviderUnavailable)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestCachedClient_ServesFromRedis(t *testing.T) {
	var calls atomic.Int32
	srv := newProviderServer(t, &calls)
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	c := NewCachedClient(NewClient(srv.URL, "secret", time.Second), rdb, 0)

	first, err := c.GetProduct(context.Background(), "B001ABC123", "DE")
	require.NoError(t, err)
	second, err := c.GetProduct(context.Background(), "B001ABC123", "DE")
	require.NoError(t, err)

	assert.Equal(t, int32(1), calls.Load())
	assert.Equal(t, first, second)
	assert.True(t, mr.Exists("product:DE:B001ABC123"))
	assert.Equal(t, DefaultProductTTL, mr.TTL("product:DE:B001ABC123"))

	mr.FastForward(DefaultProductTTL + time.Second)
	_, err = c.GetProduct(context.Background(), "B001ABC123", "DE")
	require.NoError(t, err)
	assert.Equal(t, int32(2), calls.Load())
}

func TestCachedClient_RedisDownFallsThrough(t *testing.T) {
	var calls atomic.Int32
	srv := newProviderServer(t, &calls)
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()
	mr.Close()

	c := NewCachedClient(NewClient(srv.URL, "secret", time.Second), rdb, time.Minute)
	p, err := c.GetProduct(context.Background(), "B001ABC123", "DE")
	require.NoError(t, err)
	assert.Equal(t, "Widget", p.Title)
	assert.Equal(t, int32(1), calls.Load())
}

func TestNormalizeMarketplace(t *testing.T) {
	code, err := NormalizeMarketplace(" uk ")
	require.NoError(t, err)
	assert.Equal(t, "UK", code)

	code, err = NormalizeMarketplace("")
	require.NoError(t, err)
	assert.Equal(t, DefaultMarketplace, code)

	_, err = NormalizeMarketplace("BR")
	assert.ErrorIs(t, err, ErrUnknownMarketplace)

	assert.Len(t, MarketplaceCodes(), 11)
	m, ok := LookupMarketplace("jp")
	require.True(t, ok)
	assert.Equal(t, "JPY", m.Currency)
}
