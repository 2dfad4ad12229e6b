// Package services wires the long-lived components shared by the API server
// and the command line tools.
package services

import (
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/702ron/product-api-site-sub000/app/models"
	"github.com/702ron/product-api-site-sub000/app/repository"
	"github.com/702ron/product-api-site-sub000/internal/pkg/amazon"
	"github.com/702ron/product-api-site-sub000/internal/pkg/credits"
	"github.com/702ron/product-api-site-sub000/internal/pkg/env"
	"github.com/702ron/product-api-site-sub000/internal/pkg/fnsku"
	"github.com/702ron/product-api-site-sub000/internal/pkg/metrics/counter"
)

type Services struct {
	DB        *gorm.DB
	Redis     *redis.Client
	Repos     *repository.Repositories
	Ledger    *credits.Ledger
	Hits      *counter.Buffer
	Cache     *fnsku.Cache
	Products  *amazon.CachedClient
	Converter *fnsku.Converter
}

// New builds the service graph on an open database and Redis client.
func New(db *gorm.DB, rdb *redis.Client) *Services {
	repos := repository.NewRepositories(db)
	hits := counter.NewBuffer(rdb, db)

	conversionCache := fnsku.NewCache(repos.ConversionCache,
		fnsku.WithHitRecorder(hits),
		fnsku.WithTTL(env.GetEnvDuration("CONVERSION_CACHE_TTL", models.ConversionCacheTTL)),
	)
	products := amazon.NewCachedClient(amazon.NewClientFromEnv(), rdb, env.GetEnvDuration("PRODUCT_CACHE_TTL", amazon.DefaultProductTTL))
	converter := fnsku.NewConverter(conversionCache, products,
		fnsku.WithStrategyTimeout(env.GetEnvDuration("CONVERSION_STRATEGY_TIMEOUT", fnsku.DefaultStrategyTimeout)),
	)

	return &Services{
		DB:        db,
		Redis:     rdb,
		Repos:     repos,
		Ledger:    credits.NewLedger(db, repos.CreditTransaction),
		Hits:      hits,
		Cache:     conversionCache,
		Products:  products,
		Converter: converter,
	}
}
