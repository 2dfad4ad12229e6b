package fnsku

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2/log"

	"github.com/702ron/product-api-site-sub000/app/models"
	"github.com/702ron/product-api-site-sub000/internal/pkg/amazon"
)

const notFoundPenalty = 0.5

// ProductLookup is the product-data collaborator used for direct
// resolution and ASIN verification.
type ProductLookup interface {
	Resolver
	GetProduct(ctx context.Context, asin, marketplace string) (*amazon.Product, error)
}

// ConvertOptions controls a single conversion.
type ConvertOptions struct {
	Marketplace string
	UseCache    bool
	VerifyASIN  bool
}

// DefaultConvertOptions returns US marketplace with caching and verification on.
func DefaultConvertOptions() ConvertOptions {
	return ConvertOptions{Marketplace: amazon.DefaultMarketplace, UseCache: true, VerifyASIN: true}
}

// Converter runs the conversion pipeline: validate, check the cache, run
// strategies in order, verify, write the cache.
type Converter struct {
	cache           *Cache
	products        ProductLookup
	strategies      []Strategy
	strategyTimeout time.Duration
}

type Option func(*Converter)

// WithStrategies replaces the default chain. Order is priority order.
func WithStrategies(strategies ...Strategy) Option {
	return func(c *Converter) {
		c.strategies = strategies
	}
}

// WithStrategyTimeout bounds each strategy attempt and each verification call.
func WithStrategyTimeout(d time.Duration) Option {
	return func(c *Converter) {
		if d > 0 {
			c.strategyTimeout = d
		}
	}
}

// NewConverter creates a converter. The default chain is direct lookup
// through products followed by pattern matching against cache.
func NewConverter(cache *Cache, products ProductLookup, opts ...Option) *Converter {
	c := &Converter{
		cache:           cache,
		products:        products,
		strategyTimeout: DefaultStrategyTimeout,
	}
	c.strategies = []Strategy{
		NewDirectLookupStrategy(products),
		NewPatternStrategy(cache),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Convert converts one FNSKU. It returns a *FormatError (ErrInvalidFormat)
// before any I/O when the input is malformed, and ErrConversionFailed
// together with the failed result when no strategy finds an ASIN.
func (c *Converter) Convert(ctx context.Context, raw string, opts ConvertOptions) (*ConversionResult, error) {
	start := time.Now()

	validation := Validate(raw)
	if !validation.Valid {
		return nil, &FormatError{Validation: validation}
	}
	fnsku := validation.Formatted
	marketplace := strings.ToUpper(strings.TrimSpace(opts.Marketplace))
	if marketplace == "" {
		marketplace = amazon.DefaultMarketplace
	}

	if opts.UseCache {
		if cached, ok := c.cache.Get(ctx, fnsku); ok {
			if !cached.Success {
				return cached, fmt.Errorf("%w: %s (cached)", ErrConversionFailed, cached.Error)
			}
			return cached, nil
		}
	}

	candidate, method, attempts := c.runStrategies(ctx, fnsku, marketplace)
	if err := ctx.Err(); err != nil {
		// an abandoned request says nothing about the FNSKU; do not cache it
		return nil, err
	}

	if !candidate.Found() {
		result := newFailure(fnsku, "all conversion methods failed", map[string]any{
			"marketplace": marketplace,
			"attempts":    attempts,
		})
		result.ConversionTimeMs = elapsedMs(start)
		c.cache.Put(ctx, result)
		log.Infof("[Converter] No ASIN found for %s (%s)", fnsku, marketplace)
		return result, fmt.Errorf("%w: %s", ErrConversionFailed, fnsku)
	}

	details := copyDetails(candidate.Details)
	details["marketplace"] = marketplace
	details["attempts"] = attempts

	score := candidate.Confidence
	if opts.VerifyASIN {
		score = c.verify(ctx, candidate.ASIN, marketplace, score, details)
	}

	result := newSuccess(fnsku, candidate.ASIN, score, method, details)
	result.ConversionTimeMs = elapsedMs(start)
	c.cache.Put(ctx, result)
	return result, nil
}

func (c *Converter) runStrategies(ctx context.Context, fnsku, marketplace string) (Candidate, string, []map[string]any) {
	attempts := make([]map[string]any, 0, len(c.strategies))
	for _, s := range c.strategies {
		if ctx.Err() != nil {
			break
		}
		candidate, err := attemptWithTimeout(ctx, s, fnsku, marketplace, c.strategyTimeout)
		attempt := map[string]any{"strategy": s.Name()}
		switch {
		case errors.Is(err, context.DeadlineExceeded):
			attempt["outcome"] = "timeout"
			log.Warnf("[Converter] Strategy %s timed out for %s", s.Name(), fnsku)
		case err != nil:
			attempt["outcome"] = "error"
			attempt["error"] = err.Error()
			log.Warnf("[Converter] Strategy %s failed for %s: %v", s.Name(), fnsku, err)
		case !candidate.Found():
			attempt["outcome"] = "no_match"
		default:
			attempt["outcome"] = "success"
			attempts = append(attempts, attempt)
			return candidate, s.Name(), attempts
		}
		attempts = append(attempts, attempt)
	}
	return Candidate{}, MethodFailed, attempts
}

// verify checks that asin exists. Only a confirmed absence lowers the score;
// a provider failure leaves it unchanged.
func (c *Converter) verify(ctx context.Context, asin, marketplace string, score float64, details map[string]any) float64 {
	if c.products == nil {
		details["verification"] = "skipped"
		return score
	}
	vctx, cancel := context.WithTimeout(ctx, c.strategyTimeout)
	defer cancel()

	_, err := c.products.GetProduct(vctx, asin, marketplace)
	switch {
	case err == nil:
		details["verified"] = true
		details["verification"] = "confirmed"
		return score
	case errors.Is(err, amazon.ErrNotFound):
		details["verified"] = false
		details["verification"] = "not_found"
		return score * notFoundPenalty
	default:
		details["verification"] = "inconclusive"
		log.Warnf("[Converter] Verification of %s inconclusive: %v", asin, err)
		return score
	}
}

// BulkConvert converts each FNSKU in order with verification off. Failures
// become failed results; the batch never aborts.
func (c *Converter) BulkConvert(ctx context.Context, fnskus []string, marketplace string) []*ConversionResult {
	return c.BulkConvertWithProgress(ctx, fnskus, marketplace, nil)
}

// BulkConvertWithProgress is BulkConvert with a callback after each item.
func (c *Converter) BulkConvertWithProgress(ctx context.Context, fnskus []string, marketplace string, progress func(done int, result *ConversionResult)) []*ConversionResult {
	opts := ConvertOptions{Marketplace: marketplace, UseCache: true, VerifyASIN: false}
	results := make([]*ConversionResult, len(fnskus))

	for i, raw := range fnskus {
		result, err := c.Convert(ctx, raw, opts)
		if result == nil {
			result = failedItem(raw, err)
		}
		results[i] = result
		if progress != nil {
			progress(i+1, result)
		}
	}
	return results
}

func failedItem(raw string, err error) *ConversionResult {
	details := map[string]any{}
	var formatErr *FormatError
	if errors.As(err, &formatErr) {
		details["validation_errors"] = formatErr.Validation.Errors
		details["suggestions"] = formatErr.Validation.Suggestions
		return newFailure(formatErr.Validation.Formatted, err.Error(), details)
	}
	msg := "conversion failed"
	if err != nil {
		msg = err.Error()
	}
	return newFailure(strings.ToUpper(strings.TrimSpace(raw)), msg, details)
}

// Stats summarizes the cache store.
type Stats struct {
	Total              int64            `json:"total"`
	Successful         int64            `json:"successful"`
	SuccessRate        float64          `json:"success_rate"`
	AvgConfidence      float64          `json:"avg_confidence"`
	MethodDistribution map[string]int64 `json:"method_distribution"`
	Stale              int64            `json:"stale"`
	Expired            int64            `json:"expired"`
	TotalHits          int64            `json:"total_hits"`
}

// Stats scans every cache entry. SuccessRate is a percentage and
// AvgConfidence the mean score of successful entries in [0,1].
func (c *Converter) Stats(ctx context.Context) (*Stats, error) {
	stats := &Stats{MethodDistribution: map[string]int64{}}
	now := c.cache.now()
	var scoreSum int64

	err := c.cache.repo.Scan(ctx, 500, func(batch []models.ConversionCacheEntry) error {
		for i := range batch {
			e := &batch[i]
			stats.Total++
			stats.MethodDistribution[e.Method]++
			stats.TotalHits += e.HitCount
			if e.IsStale {
				stats.Stale++
			}
			if e.IsExpired(now) {
				stats.Expired++
			}
			if e.HasASIN() {
				stats.Successful++
				scoreSum += int64(e.ConfidenceScore)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if stats.Total > 0 {
		stats.SuccessRate = round(float64(stats.Successful)/float64(stats.Total)*100, 2)
	}
	if stats.Successful > 0 {
		stats.AvgConfidence = round(float64(scoreSum)/float64(stats.Successful)/100, 3)
	}
	return stats, nil
}

// Cache returns the converter's cache for maintenance callers.
func (c *Converter) Cache() *Cache {
	return c.cache
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
