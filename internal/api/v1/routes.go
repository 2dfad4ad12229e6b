package apiv1

import (
	"github.com/gofiber/fiber/v2"

	"github.com/702ron/product-api-site-sub000/internal/pkg/middleware"
)

// RegisterHandlers mounts the v1 routes. auth guards everything except ping.
func RegisterHandlers(router fiber.Router, s *APIServer, auth fiber.Handler) {
	router.Get("/ping", s.GetPing)

	conversions := router.Group("/fnsku", auth)
	conversions.Post("/validate", s.PostValidate)
	conversions.Post("/convert", s.PostConvert)
	conversions.Post("/bulk-convert", s.PostBulkConvert)
	conversions.Get("/stats", s.GetConversionStats)

	router.Get("/products/:asin", auth, s.GetProduct)

	account := router.Group("/credits", auth)
	account.Get("/balance", s.GetBalance)
	account.Get("/history", s.GetHistory)
	account.Get("/usage", s.GetUsage)
	account.Get("/costs", s.GetCosts)

	admin := router.Group("/admin", auth, middleware.RequireAdmin)
	admin.Post("/credits/adjust", s.PostAdjustCredits)
	admin.Delete("/fnsku/cache/:fnsku", s.DeleteCachedConversion)
	admin.Post("/fnsku/cache/cleanup", s.PostCacheCleanup)
}
