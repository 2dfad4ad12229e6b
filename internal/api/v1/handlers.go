package apiv1

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/702ron/product-api-site-sub000/app/models"
	"github.com/702ron/product-api-site-sub000/app/repository"
	"github.com/702ron/product-api-site-sub000/internal/pkg/amazon"
	"github.com/702ron/product-api-site-sub000/internal/pkg/credits"
	"github.com/702ron/product-api-site-sub000/internal/pkg/fnsku"
	"github.com/702ron/product-api-site-sub000/internal/pkg/metering"
	"github.com/702ron/product-api-site-sub000/internal/pkg/usercontext"
)

// APIServer serves the v1 API. Every metered handler charges through the
// meter, so failed work is refunded before the error response is written.
type APIServer struct {
	ledger    *credits.Ledger
	meter     *metering.Meter
	converter *fnsku.Converter
	products  amazon.Lookup
	stats     StatsSource
	validate  *validator.Validate
}

// StatsSource provides the aggregate conversion statistics.
type StatsSource interface {
	Stats(ctx context.Context) (*fnsku.Stats, error)
}

type ServerOption func(*APIServer)

// WithStatsSource replaces the converter as the statistics source.
func WithStatsSource(src StatsSource) ServerOption {
	return func(s *APIServer) {
		if src != nil {
			s.stats = src
		}
	}
}

// NewAPIServer creates a new API server instance
func NewAPIServer(ledger *credits.Ledger, converter *fnsku.Converter, products amazon.Lookup, opts ...ServerOption) *APIServer {
	s := &APIServer{
		ledger:    ledger,
		meter:     metering.NewMeter(ledger),
		converter: converter,
		products:  products,
		stats:     converter,
		validate:  validator.New(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// invalidateStats drops cached statistics after an admin cache change.
func (s *APIServer) invalidateStats(ctx context.Context) {
	if inv, ok := s.stats.(interface{ Invalidate(context.Context) }); ok {
		inv.Invalidate(ctx)
	}
}

func (s *APIServer) bind(c *fiber.Ctx, out any) error {
	if err := c.BodyParser(out); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return s.validate.Struct(out)
}

// GetPing handles the ping endpoint
func (s *APIServer) GetPing(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(Pong{Ping: "pong"})
}

// PostValidate checks an FNSKU without charging.
func (s *APIServer) PostValidate(c *fiber.Ctx) error {
	var req ValidateRequest
	if err := s.bind(c, &req); err != nil {
		return badRequest(c, err.Error())
	}
	return c.JSON(fnsku.Validate(req.FNSKU))
}

// PostConvert converts one FNSKU for fnsku_to_asin credits.
func (s *APIServer) PostConvert(c *fiber.Ctx) error {
	var req ConvertRequest
	if err := s.bind(c, &req); err != nil {
		return badRequest(c, err.Error())
	}
	marketplace, err := amazon.NormalizeMarketplace(req.Marketplace)
	if err != nil {
		return writeError(c, err, nil)
	}
	// malformed input is rejected before anything is charged
	validation := fnsku.Validate(req.FNSKU)
	if !validation.Valid {
		return writeError(c, &fnsku.FormatError{Validation: validation}, nil)
	}

	cost, err := credits.CalculateCost(credits.OperationFNSKUToASIN, 1)
	if err != nil {
		return writeError(c, err, nil)
	}
	opts := fnsku.ConvertOptions{
		Marketplace: marketplace,
		UseCache:    boolOr(req.UseCache, true),
		VerifyASIN:  boolOr(req.VerifyASIN, true),
	}

	var result *fnsku.ConversionResult
	receipt, err := s.meter.Do(c.UserContext(), metering.Charge{
		UserID:      usercontext.GetUserID(c),
		Operation:   credits.OperationFNSKUToASIN,
		Cost:        cost,
		Description: "FNSKU to ASIN conversion: " + validation.Formatted,
		Metadata:    map[string]any{"fnsku": validation.Formatted, "marketplace": marketplace},
	}, func(ctx context.Context) (metering.Usage, error) {
		r, cerr := s.converter.Convert(ctx, validation.Formatted, opts)
		result = r
		if cerr != nil {
			return metering.Usage{}, metering.Fail(failureReason(cerr), cerr)
		}
		return metering.Usage{}, nil
	})
	if err != nil {
		return writeError(c, err, receiptFields(receipt, "result", result))
	}

	return c.JSON(ConvertResponse{
		Result:          result,
		CreditsCharged:  receipt.Net(),
		CreditsRefunded: receipt.Refunded,
	})
}

// PostBulkConvert converts up to 100 FNSKUs. Credits for failed items are
// refunded.
func (s *APIServer) PostBulkConvert(c *fiber.Ctx) error {
	var req BulkConvertRequest
	if err := s.bind(c, &req); err != nil {
		return badRequest(c, err.Error())
	}
	marketplace, err := amazon.NormalizeMarketplace(req.Marketplace)
	if err != nil {
		return writeError(c, err, nil)
	}

	rule, err := credits.Rule(credits.OperationFNSKUToASINBulk)
	if err != nil {
		return writeError(c, err, nil)
	}
	total := len(req.FNSKUs)
	cost := rule.Cost(total)
	batchID := uuid.NewString()

	var results []*fnsku.ConversionResult
	failed := 0
	receipt, err := s.meter.Do(c.UserContext(), metering.Charge{
		UserID:      usercontext.GetUserID(c),
		Operation:   credits.OperationFNSKUToASINBulk,
		Cost:        cost,
		Description: fmt.Sprintf("Bulk FNSKU to ASIN conversion of %d items", total),
		Metadata:    map[string]any{"batch_id": batchID, "count": total, "marketplace": marketplace},
	}, func(ctx context.Context) (metering.Usage, error) {
		results = s.converter.BulkConvert(ctx, req.FNSKUs, marketplace)
		for _, r := range results {
			if !r.Success {
				failed++
			}
		}
		if failed == 0 {
			return metering.Usage{}, nil
		}
		return metering.Usage{
			Unused: failed * rule.UnitCost(),
			Reason: fmt.Sprintf("%d of %d conversions failed", failed, total),
		}, nil
	})
	if err != nil {
		return writeError(c, err, receiptFields(receipt, "batch_id", batchID))
	}

	return c.JSON(BulkConvertResponse{
		BatchID:         batchID,
		Results:         results,
		Total:           total,
		Successful:      total - failed,
		Failed:          failed,
		CreditsCharged:  receipt.Net(),
		CreditsRefunded: receipt.Refunded,
	})
}

// GetConversionStats reports aggregate conversion cache statistics.
func (s *APIServer) GetConversionStats(c *fiber.Ctx) error {
	stats, err := s.stats.Stats(c.UserContext())
	if err != nil {
		return writeError(c, err, nil)
	}
	return c.JSON(stats)
}

// GetProduct looks up product data for product_lookup credits.
func (s *APIServer) GetProduct(c *fiber.Ctx) error {
	asin := strings.ToUpper(strings.TrimSpace(c.Params("asin")))
	if !fnsku.IsASIN(asin) {
		return badRequest(c, "asin must be 10 characters starting with 'B'")
	}
	marketplace, err := amazon.NormalizeMarketplace(c.Query("marketplace"))
	if err != nil {
		return writeError(c, err, nil)
	}
	cost, err := credits.CalculateCost(credits.OperationProductLookup, 1)
	if err != nil {
		return writeError(c, err, nil)
	}

	var product *amazon.Product
	receipt, err := s.meter.Do(c.UserContext(), metering.Charge{
		UserID:      usercontext.GetUserID(c),
		Operation:   credits.OperationProductLookup,
		Cost:        cost,
		Description: "Product lookup: " + asin,
		Metadata:    map[string]any{"asin": asin, "marketplace": marketplace},
	}, func(ctx context.Context) (metering.Usage, error) {
		p, perr := s.products.GetProduct(ctx, asin, marketplace)
		if perr != nil {
			return metering.Usage{}, metering.Fail(failureReason(perr), perr)
		}
		product = p
		return metering.Usage{}, nil
	})
	if err != nil {
		return writeError(c, err, receiptFields(receipt, "asin", asin))
	}

	return c.JSON(ProductResponse{
		Product:         product,
		CreditsCharged:  receipt.Net(),
		CreditsRefunded: receipt.Refunded,
	})
}

// GetBalance returns the caller's credit balance.
func (s *APIServer) GetBalance(c *fiber.Ctx) error {
	userID := usercontext.GetUserID(c)
	balance, err := s.ledger.GetBalance(c.UserContext(), userID)
	if err != nil {
		return writeError(c, err, nil)
	}
	return c.JSON(BalanceResponse{UserID: userID, Balance: balance})
}

// GetHistory pages through the caller's ledger, newest first.
func (s *APIServer) GetHistory(c *fiber.Ctx) error {
	filter := repository.TransactionFilter{
		Type:   c.Query("type"),
		Limit:  c.QueryInt("limit", 50),
		Offset: c.QueryInt("offset", 0),
	}
	if filter.Limit < 1 || filter.Offset < 0 {
		return badRequest(c, "limit must be positive and offset non-negative")
	}

	txs, total, err := s.ledger.GetHistory(c.UserContext(), usercontext.GetUserID(c), filter)
	if err != nil {
		return writeError(c, err, nil)
	}
	if txs == nil {
		txs = []models.CreditTransaction{}
	}
	return c.JSON(HistoryResponse{Transactions: txs, Total: total, Limit: filter.Limit, Offset: filter.Offset})
}

// GetUsage summarizes the caller's ledger over the last ?days (default 30).
func (s *APIServer) GetUsage(c *fiber.Ctx) error {
	days := c.QueryInt("days", 30)
	if days < 1 || days > 365 {
		return badRequest(c, "days must be between 1 and 365")
	}
	summary, err := s.ledger.GetUsageSummary(c.UserContext(), usercontext.GetUserID(c), days)
	if err != nil {
		return writeError(c, err, nil)
	}
	return c.JSON(summary)
}

// GetCosts publishes the per-operation price list.
func (s *APIServer) GetCosts(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"costs": credits.CostTable()})
}

// PostAdjustCredits grants credits to a user (admin only).
func (s *APIServer) PostAdjustCredits(c *fiber.Ctx) error {
	var req AdjustCreditsRequest
	if err := s.bind(c, &req); err != nil {
		return badRequest(c, err.Error())
	}
	if req.Type == "" {
		req.Type = models.TransactionTypeAdjustment
	}

	tx, err := s.ledger.Add(c.UserContext(), req.UserID, req.Amount, req.Type, credits.AddOptions{
		Operation:   "admin_adjustment",
		Description: req.Description,
		Metadata:    map[string]any{"granted_by": usercontext.GetUserID(c)},
	})
	if err != nil {
		return writeError(c, err, nil)
	}
	return c.Status(fiber.StatusCreated).JSON(tx)
}

// DeleteCachedConversion marks a cached conversion stale (admin only).
func (s *APIServer) DeleteCachedConversion(c *fiber.Ctx) error {
	validation := fnsku.Validate(c.Params("fnsku"))
	if !validation.Valid {
		return writeError(c, &fnsku.FormatError{Validation: validation}, nil)
	}
	found, err := s.converter.Cache().MarkStale(c.UserContext(), validation.Formatted)
	if err != nil {
		return writeError(c, err, nil)
	}
	if !found {
		return c.Status(fiber.StatusNotFound).JSON(ErrorResponse{Error: "not_found", Message: "no cached conversion for " + validation.Formatted})
	}
	s.invalidateStats(c.UserContext())
	return c.SendStatus(fiber.StatusNoContent)
}

// PostCacheCleanup runs the expired-entry sweep immediately (admin only).
func (s *APIServer) PostCacheCleanup(c *fiber.Ctx) error {
	removed, err := s.converter.Cache().CleanupExpired(c.UserContext())
	if err != nil {
		return writeError(c, err, nil)
	}
	s.invalidateStats(c.UserContext())
	return c.JSON(fiber.Map{"removed": removed})
}

func receiptFields(receipt *metering.Receipt, key string, value any) fiber.Map {
	fields := fiber.Map{key: value}
	if receipt != nil {
		fields["credits_charged"] = receipt.Net()
		fields["credits_refunded"] = receipt.Refunded
	}
	return fields
}

func boolOr(v *bool, def bool) bool {
	if v == nil {
		return def
	}
	return *v
}
