package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/ManuelReschke/PayFox/internal/pkg/env"
	"github.com/gofiber/fiber/v2/log"
	"github.com/redis/go-redis/v9"
)

var (
	client *redis.Client
	ctx    = context.Background()
)

// SetupCache connects to the Redis-compatible cache server. The job queue
// lives here, so the process keeps running on a failed ping and retries
// lazily through GetClient.
func SetupCache() {
	host := env.GetEnv("CACHE_HOST", "localhost")
	port := env.GetEnv("CACHE_PORT", "6379")

	client = redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%s", host, port),
		Password: env.GetEnv("CACHE_PASSWORD", ""),
		DB:       0,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		log.Warnf("[Cache] Could not reach cache server at %s:%s: %v", host, port, err)
	} else {
		log.Infof("[Cache] Connected to cache server at %s:%s", host, port)
	}
}

// GetClient returns the shared Redis client, connecting on first use.
func GetClient() *redis.Client {
	if client == nil {
		SetupCache()
	}
	return client
}

// Healthy reports whether the cache answers a ping within the timeout.
func Healthy(timeout time.Duration) bool {
	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return GetClient().Ping(pingCtx).Err() == nil
}
