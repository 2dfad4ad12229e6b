package cache

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/702ron/product-api-site-sub000/internal/pkg/env"
	"github.com/gofiber/fiber/v2"
	redisstorage "github.com/gofiber/storage/redis"
	"github.com/redis/go-redis/v9"
)

// NewClientFromEnv builds a Redis client from CACHE_HOST, CACHE_PORT and
// CACHE_PASSWORD without connecting.
func NewClientFromEnv() *redis.Client {
	host := env.GetEnv("CACHE_HOST", "localhost")
	port := env.GetEnv("CACHE_PORT", "6379")

	return redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%s", host, port),
		Password: env.GetEnv("CACHE_PASSWORD", ""),
		DB:       env.GetEnvInt("CACHE_DB", 0),
	})
}

// SetupCache builds the Redis client and checks the connection.
// An unreachable Redis is logged, not fatal: every Redis-backed feature
// degrades to its uncached path.
func SetupCache() *redis.Client {
	client := NewClientFromEnv()

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	pong, err := client.Ping(ctx).Result()
	if err != nil {
		log.Printf("Warning: Could not connect to Redis cache: %v", err)
	} else {
		log.Printf("Successfully connected to Redis cache: %s", pong)
	}
	return client
}

// NewFiberStorage returns a fiber.Storage on the same Redis server, using
// a separate database so limiter keys never mix with cache keys.
func NewFiberStorage(database int) fiber.Storage {
	port, err := strconv.Atoi(env.GetEnv("CACHE_PORT", "6379"))
	if err != nil {
		port = 6379
	}
	return redisstorage.New(redisstorage.Config{
		Host:     env.GetEnv("CACHE_HOST", "localhost"),
		Port:     port,
		Password: env.GetEnv("CACHE_PASSWORD", ""),
		Database: database,
		Reset:    false,
	})
}
