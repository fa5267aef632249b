// Package cache holds the Redis-backed team-form cache and change bus.
package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"matchpredict/ingestion/internal/metrics"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// ErrMiss is returned by Get when the key is absent
var ErrMiss = errors.New("cache miss")

// Config holds Redis connection settings
type Config struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// RedisCache is a thin string cache over a Redis client
type RedisCache struct {
	client *redis.Client
}

// NewRedisCache connects to Redis and verifies the connection
func NewRedisCache(cfg Config) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	log.Info().
		Str("host", cfg.Host).
		Int("port", cfg.Port).
		Int("db", cfg.DB).
		Msg("Successfully connected to Redis")

	return &RedisCache{client: client}, nil
}

// Client exposes the underlying client for pub/sub
func (c *RedisCache) Client() *redis.Client {
	return c.client
}

// Get returns the value for key or ErrMiss
func (c *RedisCache) Get(ctx context.Context, key string) (string, error) {
	start := time.Now()
	defer func() {
		metrics.RecordCacheOperation("get", time.Since(start).Seconds())
	}()

	val, err := c.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		metrics.RecordCacheMiss()
		return "", ErrMiss
	}
	if err != nil {
		return "", fmt.Errorf("failed to get %s: %w", key, err)
	}

	metrics.RecordCacheHit()
	return val, nil
}

// Set stores value under key for ttl
func (c *RedisCache) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	start := time.Now()
	defer func() {
		metrics.RecordCacheOperation("set", time.Since(start).Seconds())
	}()

	if err := c.client.Set(ctx, key, value, ttl).Err(); err != nil {
		return fmt.Errorf("failed to set %s: %w", key, err)
	}
	return nil
}

// Health pings Redis
func (c *RedisCache) Health(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	if err := c.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis health check failed: %w", err)
	}
	return nil
}

// Close closes the Redis connection
func (c *RedisCache) Close() error {
	return c.client.Close()
}
