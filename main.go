package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	apiv1 "github.com/702ron/product-api-site-sub000/internal/api/v1"
	"github.com/702ron/product-api-site-sub000/internal/pkg/cache"
	"github.com/702ron/product-api-site-sub000/internal/pkg/database"
	"github.com/702ron/product-api-site-sub000/internal/pkg/env"
	"github.com/702ron/product-api-site-sub000/internal/pkg/maintenance"
	"github.com/702ron/product-api-site-sub000/internal/pkg/router"
	"github.com/702ron/product-api-site-sub000/internal/pkg/services"
	"github.com/702ron/product-api-site-sub000/internal/pkg/statistics"
)

// limiter keys live in their own Redis database
const rateLimitStorageDB = 2

func main() {
	app, manager, svc := NewApplication()
	manager.Start()

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
		<-quit
		log.Info("[Server] Shutting down")
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			log.Errorf("[Server] Shutdown: %v", err)
		}
	}()

	err := app.Listen(fmt.Sprintf("%s:%s", env.GetEnv("APP_HOST", "localhost"), env.GetEnv("APP_PORT", "4000")))

	manager.Stop()
	if _, ferr := svc.Hits.Flush(context.Background()); ferr != nil {
		log.Warnf("[Server] Final counter flush: %v", ferr)
	}
	if cerr := svc.Redis.Close(); cerr != nil {
		log.Warnf("[Server] Closing Redis: %v", cerr)
	}
	if err != nil {
		log.Fatal(err)
	}
}

func NewApplication() (*fiber.App, *maintenance.Manager, *services.Services) {
	env.SetupEnvFile()
	db := database.SetupDatabase()
	rdb := cache.SetupCache()

	svc := services.New(db, rdb)
	server := apiv1.NewAPIServer(svc.Ledger, svc.Converter, svc.Products,
		apiv1.WithStatsSource(statistics.NewCachedStats(svc.Converter, rdb, env.GetEnvDuration("STATS_CACHE_TTL", statistics.CacheExpiration))),
	)

	app := fiber.New(fiber.Config{
		BodyLimit: 1 << 20,
	})

	// recovery and logging
	app.Use(recover.New(), logger.New())

	// SWAGGER / OPENAPI
	openAPICfg := swagger.Config{
		BasePath: "/docs/api/",
		FilePath: "./public/docs/v1/openapi.yml",
		Path:     "v1",
	}
	app.Use(swagger.New(openAPICfg))

	// ROUTER
	router.InstallRouter(app, router.NewApiRouter(
		server,
		svc.Repos.User,
		cache.NewFiberStorage(rateLimitStorageDB),
		env.GetEnvInt("API_RATE_LIMIT_MAX", 120),
	))

	manager := maintenance.NewManager(
		maintenance.CacheCleanupTask(svc.Cache, env.GetEnvDuration("CACHE_CLEANUP_INTERVAL", maintenance.DefaultCleanupInterval)),
		maintenance.CounterFlushTask(svc.Hits, env.GetEnvDuration("COUNTER_FLUSH_INTERVAL", maintenance.DefaultCounterFlushInterval)),
	)

	return app, manager, svc
}
