package apiv1

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"

	"github.com/702ron/product-api-site-sub000/internal/pkg/amazon"
	"github.com/702ron/product-api-site-sub000/internal/pkg/credits"
	"github.com/702ron/product-api-site-sub000/internal/pkg/fnsku"
	"github.com/702ron/product-api-site-sub000/internal/pkg/metering"
)

func badRequest(c *fiber.Ctx, message string) error {
	return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "bad_request", Message: message})
}

// writeError maps domain errors to status codes. extra is merged into the
// body for errors that carry a partial result.
func writeError(c *fiber.Ctx, err error, extra fiber.Map) error {
	status, code := fiber.StatusInternalServerError, "internal_server_error"
	body := fiber.Map{}

	var insufficient *credits.InsufficientCreditsError
	var formatErr *fnsku.FormatError

	switch {
	case errors.As(err, &insufficient):
		status, code = fiber.StatusPaymentRequired, "insufficient_credits"
		body["required"] = insufficient.Required
		body["available"] = insufficient.Available
	case errors.Is(err, credits.ErrInsufficientCredits):
		status, code = fiber.StatusPaymentRequired, "insufficient_credits"
	case errors.As(err, &formatErr):
		status, code = fiber.StatusBadRequest, "invalid_format"
		body["validation"] = formatErr.Validation
	case errors.Is(err, fnsku.ErrConversionFailed):
		status, code = fiber.StatusNotFound, "conversion_failed"
	case errors.Is(err, amazon.ErrNotFound):
		status, code = fiber.StatusNotFound, "not_found"
	case errors.Is(err, amazon.ErrUnknownMarketplace):
		status, code = fiber.StatusBadRequest, "unknown_marketplace"
	case errors.Is(err, credits.ErrInvalidTransactionType), errors.Is(err, credits.ErrInvalidAmount):
		status, code = fiber.StatusBadRequest, "bad_request"
	case errors.Is(err, credits.ErrUserNotFound):
		status, code = fiber.StatusNotFound, "user_not_found"
	case errors.Is(err, context.DeadlineExceeded):
		status, code = fiber.StatusGatewayTimeout, "timeout"
	case errors.Is(err, amazon.ErrProviderUnavailable):
		status, code = fiber.StatusBadGateway, "external_service_error"
	}

	message := err.Error()
	if status == fiber.StatusInternalServerError {
		log.Errorf("[API] %s %s failed: %v", c.Method(), c.Path(), err)
		message = "Internal server error"
	}
	if errors.Is(err, metering.ErrRefundFailed) {
		body["refund_pending"] = true
	}

	body["error"] = code
	body["message"] = message
	for k, v := range extra {
		body[k] = v
	}
	return c.Status(status).JSON(body)
}

// failureReason names the refund reason for a failed metered operation.
func failureReason(err error) string {
	var formatErr *fnsku.FormatError
	switch {
	case errors.As(err, &formatErr):
		return "invalid_format"
	case errors.Is(err, fnsku.ErrConversionFailed):
		return "conversion_failed"
	case errors.Is(err, amazon.ErrNotFound):
		return "not_found"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, amazon.ErrProviderUnavailable):
		return "external_service_error"
	default:
		return "unexpected_error"
	}
}
