package fnsku

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/702ron/product-api-site-sub000/internal/pkg/amazon"
)

func TestConvert_DirectLookupVerified(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	products := newFakeProducts()
	products.asins["X001ABC123"] = "B001ABC123"
	products.known["B001ABC123"] = true
	conv := NewConverter(f.cache, products)

	result, err := conv.Convert(ctx, "X001ABC123", DefaultConvertOptions())
	require.NoError(t, err)
	assert.Equal(t, "B001ABC123", result.ASINValue())
	assert.Equal(t, ConfidenceVeryHigh, result.Confidence)
	assert.Equal(t, MethodDirectAPI, result.Method)
	assert.True(t, result.Success)
	assert.False(t, result.Cached)
	assert.Equal(t, true, result.Details["verified"])
	assert.Equal(t, "provider_lookup", result.Details["sub_method"])

	entry, err := f.repo.GetByFNSKU(ctx, "X001ABC123")
	require.NoError(t, err)
	assert.Equal(t, 95, entry.ConfidenceScore)
}

func TestConvert_InvalidFormatBeforeAnyIO(t *testing.T) {
	f := newFixture(t)
	products := newFakeProducts()
	strategy := &stubStrategy{name: "stub"}
	conv := NewConverter(f.cache, products, WithStrategies(strategy))

	result, err := conv.Convert(context.Background(), "invalid", DefaultConvertOptions())
	assert.Nil(t, result)
	require.ErrorIs(t, err, ErrInvalidFormat)

	var formatErr *FormatError
	require.ErrorAs(t, err, &formatErr)
	assert.Equal(t, "INVALID", formatErr.Validation.Formatted)
	assert.Zero(t, strategy.calls.Load())

	count, cerr := f.repo.Count(context.Background())
	require.NoError(t, cerr)
	assert.Zero(t, count)
}

func TestConvert_CacheHitSkipsStrategies(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	strategy := &stubStrategy{name: MethodDirectAPI, candidate: Candidate{ASIN: "B001ABC123", Confidence: 0.95}}
	conv := NewConverter(f.cache, newFakeProducts(), WithStrategies(strategy))
	opts := ConvertOptions{Marketplace: "US", UseCache: true}

	first, err := conv.Convert(ctx, "X001ABC123", opts)
	require.NoError(t, err)
	assert.False(t, first.Cached)

	second, err := conv.Convert(ctx, "X001ABC123", opts)
	require.NoError(t, err)
	assert.True(t, second.Cached)
	assert.Zero(t, second.ConversionTimeMs)
	assert.Equal(t, "B001ABC123", second.ASINValue())
	assert.Equal(t, int32(1), strategy.calls.Load())
}

func TestConvert_UseCacheFalseRecomputes(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	strategy := &stubStrategy{name: MethodDirectAPI, candidate: Candidate{ASIN: "B001ABC123", Confidence: 0.95}}
	conv := NewConverter(f.cache, newFakeProducts(), WithStrategies(strategy))
	opts := ConvertOptions{UseCache: false}

	_, err := conv.Convert(ctx, "X001ABC123", opts)
	require.NoError(t, err)
	result, err := conv.Convert(ctx, "X001ABC123", opts)
	require.NoError(t, err)
	assert.False(t, result.Cached)
	assert.Equal(t, int32(2), strategy.calls.Load())
}

func TestConvert_VerificationNotFoundHalvesConfidence(t *testing.T) {
	f := newFixture(t)
	products := newFakeProducts()
	products.asins["X001ABC123"] = "B001ABC123"
	conv := NewConverter(f.cache, products)

	result, err := conv.Convert(context.Background(), "X001ABC123", DefaultConvertOptions())
	require.NoError(t, err)
	assert.InDelta(t, 0.475, result.ConfidenceScore, 1e-9)
	assert.Equal(t, ConfidenceMedium, result.Confidence)
	assert.Equal(t, false, result.Details["verified"])
}

func TestConvert_VerificationInconclusiveKeepsConfidence(t *testing.T) {
	f := newFixture(t)
	products := newFakeProducts()
	products.asins["X001ABC123"] = "B001ABC123"
	products.productErr = amazon.ErrProviderUnavailable
	conv := NewConverter(f.cache, products)

	result, err := conv.Convert(context.Background(), "X001ABC123", DefaultConvertOptions())
	require.NoError(t, err)
	assert.Equal(t, 0.95, result.ConfidenceScore)
	assert.Equal(t, "inconclusive", result.Details["verification"])
}

func TestConvert_FallsBackToPatternMatching(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.cache.Put(ctx, newSuccess("X001ABC999", "B001ABC999", 0.95, MethodDirectAPI, nil))
	products := newFakeProducts()
	products.resolveErr = amazon.ErrProviderUnavailable
	conv := NewConverter(f.cache, products)

	result, err := conv.Convert(ctx, "X001ABC123", ConvertOptions{UseCache: true})
	require.NoError(t, err)
	assert.Equal(t, "B001ABC123", result.ASINValue())
	assert.Equal(t, MethodPatternMatching, result.Method)
	assert.Equal(t, ConfidenceHigh, result.Confidence)
	assert.Equal(t, "similar_prefix", result.Details["sub_method"])
	assert.Equal(t, "X001ABC999", result.Details["matched_fnsku"])

	attempts, ok := result.Details["attempts"].([]map[string]any)
	require.True(t, ok)
	require.Len(t, attempts, 2)
	assert.Equal(t, "error", attempts[0]["outcome"])
	assert.Equal(t, "success", attempts[1]["outcome"])
}

func TestConvert_StrategyTimeoutMovesOn(t *testing.T) {
	f := newFixture(t)
	slow := &stubStrategy{name: "slow", block: true}
	fast := &stubStrategy{name: MethodPatternMatching, candidate: Candidate{ASIN: "B001ABC123", Confidence: 0.4}}
	conv := NewConverter(f.cache, newFakeProducts(), WithStrategies(slow, fast), WithStrategyTimeout(20*time.Millisecond))

	result, err := conv.Convert(context.Background(), "X001ABC123", ConvertOptions{UseCache: true})
	require.NoError(t, err)
	assert.Equal(t, MethodPatternMatching, result.Method)
	assert.Equal(t, ConfidenceMedium, result.Confidence)
	attempts := result.Details["attempts"].([]map[string]any)
	assert.Equal(t, "timeout", attempts[0]["outcome"])
}

func TestConvert_AllStrategiesFail(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	first := &stubStrategy{name: MethodDirectAPI}
	second := &stubStrategy{name: MethodPatternMatching, err: errors.New("boom")}
	conv := NewConverter(f.cache, newFakeProducts(), WithStrategies(first, second))

	result, err := conv.Convert(ctx, "X001ABC123", DefaultConvertOptions())
	require.ErrorIs(t, err, ErrConversionFailed)
	require.NotNil(t, result)
	assert.False(t, result.Success)
	assert.Nil(t, result.ASIN)
	assert.Equal(t, MethodFailed, result.Method)
	assert.NotEmpty(t, result.Error)

	// the failure is cached and served without retrying the strategies
	cached, err := conv.Convert(ctx, "X001ABC123", DefaultConvertOptions())
	require.ErrorIs(t, err, ErrConversionFailed)
	assert.True(t, cached.Cached)
	assert.Equal(t, int32(1), first.calls.Load())
	assert.Equal(t, int32(1), second.calls.Load())
}

func TestConvert_CancelledContextIsNotCached(t *testing.T) {
	f := newFixture(t)
	conv := NewConverter(f.cache, newFakeProducts(), WithStrategies(&stubStrategy{name: "slow", block: true}))
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := conv.Convert(ctx, "X001ABC123", DefaultConvertOptions())
	require.ErrorIs(t, err, context.DeadlineExceeded)

	count, cerr := f.repo.Count(context.Background())
	require.NoError(t, cerr)
	assert.Zero(t, count)
}

func TestConvert_PanickingStrategyIsAFailure(t *testing.T) {
	f := newFixture(t)
	conv := NewConverter(f.cache, newFakeProducts(), WithStrategies(panicStrategy{}, &stubStrategy{name: MethodPatternMatching, candidate: Candidate{ASIN: "B001ABC123", Confidence: 0.4}}))

	result, err := conv.Convert(context.Background(), "X001ABC123", ConvertOptions{})
	require.NoError(t, err)
	assert.Equal(t, MethodPatternMatching, result.Method)
}

type panicStrategy struct{}

func (panicStrategy) Name() string { return "panics" }

func (panicStrategy) Attempt(ctx context.Context, fnsku, marketplace string) (Candidate, error) {
	panic("unexpected")
}

func TestBulkConvert_ContinuesPastBadItems(t *testing.T) {
	f := newFixture(t)
	products := newFakeProducts()
	products.asins["X001ABC123"] = "B001ABC123"
	conv := NewConverter(f.cache, products)

	var seen []int
	results := conv.BulkConvertWithProgress(context.Background(), []string{"X001ABC123", "BADINPUT99"}, "US", func(done int, _ *ConversionResult) {
		seen = append(seen, done)
	})
	require.Len(t, results, 2)
	assert.True(t, results[0].Success)
	assert.Equal(t, "B001ABC123", results[0].ASINValue())
	assert.False(t, results[1].Success)
	assert.Equal(t, "BADINPUT99", results[1].FNSKU)
	assert.NotEmpty(t, results[1].Error)
	assert.Equal(t, []int{1, 2}, seen)

	// bulk conversion never verifies
	_, productCalls := products.calls()
	assert.Zero(t, productCalls)
}

func TestBulkConvert_PreservesOrder(t *testing.T) {
	f := newFixture(t)
	products := newFakeProducts()
	products.asins["X00000000A"] = "B00000000A"
	products.asins["X00000000C"] = "B00000000C"
	conv := NewConverter(f.cache, products)

	results := conv.BulkConvert(context.Background(), []string{"x00000000c", "short", "X00000000A"}, "de")
	require.Len(t, results, 3)
	assert.Equal(t, "B00000000C", results[0].ASINValue())
	assert.False(t, results[1].Success)
	assert.Equal(t, "B00000000A", results[2].ASINValue())
	assert.Equal(t, "DE", results[0].Details["marketplace"])
}

func TestStats(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	conv := NewConverter(f.cache, newFakeProducts())

	f.cache.Put(ctx, newSuccess("X000000001", "B000000001", 0.95, MethodDirectAPI, nil))
	f.cache.Put(ctx, newSuccess("X000000002", "B000000002", 0.85, MethodDirectAPI, nil))
	f.cache.Put(ctx, newSuccess("X000000003", "B000000003", 0.4, MethodPatternMatching, nil))
	f.cache.Put(ctx, newFailure("X000000004", "all conversion methods failed", nil))

	stats, err := conv.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(4), stats.Total)
	assert.Equal(t, int64(3), stats.Successful)
	assert.Equal(t, 75.0, stats.SuccessRate)
	assert.Equal(t, 0.733, stats.AvgConfidence)
	assert.Equal(t, map[string]int64{MethodDirectAPI: 2, MethodPatternMatching: 1, MethodFailed: 1}, stats.MethodDistribution)
}

func TestStats_Empty(t *testing.T) {
	conv := NewConverter(newFixture(t).cache, newFakeProducts())

	stats, err := conv.Stats(context.Background())
	require.NoError(t, err)
	assert.Zero(t, stats.Total)
	assert.Zero(t, stats.SuccessRate)
	assert.Empty(t, stats.MethodDistribution)
}
