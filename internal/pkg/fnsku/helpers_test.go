package fnsku

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/702ron/product-api-site-sub000/app/repository"
	"github.com/702ron/product-api-site-sub000/internal/pkg/amazon"
	"github.com/702ron/product-api-site-sub000/internal/testutil"
)

type fakeProducts struct {
	mu           sync.Mutex
	asins        map[string]string
	known        map[string]bool
	resolveErr   error
	productErr   error
	resolveCalls int
	productCalls int
}

func newFakeProducts() *fakeProducts {
	return &fakeProducts{asins: map[string]string{}, known: map[string]bool{}}
}

func (f *fakeProducts) ResolveFNSKU(ctx context.Context, fnsku, marketplace string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resolveCalls++
	if f.resolveErr != nil {
		return "", f.resolveErr
	}
	asin, ok := f.asins[fnsku]
	if !ok {
		return "", amazon.ErrNotFound
	}
	return asin, nil
}

func (f *fakeProducts) GetProduct(ctx context.Context, asin, marketplace string) (*amazon.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.productCalls++
	if f.productErr != nil {
		return nil, f.productErr
	}
	if !f.known[asin] {
		return nil, amazon.ErrNotFound
	}
	return &amazon.Product{ASIN: asin, Marketplace: marketplace, Title: "Test product"}, nil
}

func (f *fakeProducts) calls() (int, int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.resolveCalls, f.productCalls
}

type stubStrategy struct {
	name      string
	candidate Candidate
	err       error
	block     bool
	calls     atomic.Int32
}

func (s *stubStrategy) Name() string { return s.name }

func (s *stubStrategy) Attempt(ctx context.Context, fnsku, marketplace string) (Candidate, error) {
	s.calls.Add(1)
	if s.block {
		<-ctx.Done()
		return Candidate{}, ctx.Err()
	}
	return s.candidate, s.err
}

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type fixture struct {
	db    *gorm.DB
	repo  repository.ConversionCacheRepository
	cache *Cache
	clock *testClock
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := testutil.SetupTestDB(t)
	repo := repository.NewConversionCacheRepository(db)
	clock := &testClock{now: time.Now().UTC().Truncate(time.Second)}
	return &fixture{
		db:    db,
		repo:  repo,
		cache: NewCache(repo, WithClock(clock.Now)),
		clock: clock,
	}
}
