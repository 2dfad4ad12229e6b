package router

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"

	"github.com/702ron/product-api-site-sub000/app/models"
	"github.com/702ron/product-api-site-sub000/app/repository"
	apiv1 "github.com/702ron/product-api-site-sub000/internal/api/v1"
	"github.com/702ron/product-api-site-sub000/internal/pkg/middleware"
)

const defaultRateLimitMax = 120

type ApiRouter struct {
	server  *apiv1.APIServer
	users   repository.UserRepository
	storage fiber.Storage
	max     int
}

func (h ApiRouter) InstallRouter(app *fiber.App) {
	api := app.Group("/api", limiter.New(limiter.Config{
		Max:        h.max,
		Expiration: time.Minute,
		Storage:    h.storage,
		KeyGenerator: func(c *fiber.Ctx) string {
			// per API key; unauthenticated requests are limited per IP
			if key := middleware.ExtractAPIKey(c); key != "" {
				return "key:" + models.HashAPIKey(key)[:16]
			}
			return "ip:" + c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error":   "rate_limited",
				"message": "Too many requests",
			})
		},
	}))
	api.Get("/", func(ctx *fiber.Ctx) error {
		return ctx.Status(fiber.StatusOK).JSON(fiber.Map{
			"message": "Hello from api",
		})
	})

	// API v1 routes
	v1 := api.Group("/v1")
	apiv1.RegisterHandlers(v1, h.server, middleware.APIKeyAuthMiddleware(h.users))
}

// NewApiRouter builds the /api router. storage backs the rate limiter and
// may be nil for in-memory limiting.
func NewApiRouter(server *apiv1.APIServer, users repository.UserRepository, storage fiber.Storage, max int) *ApiRouter {
	if max <= 0 {
		max = defaultRateLimitMax
	}
	return &ApiRouter{server: server, users: users, storage: storage, max: max}
}
