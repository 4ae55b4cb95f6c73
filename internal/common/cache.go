package common

import (
	"context"
	"fmt"
	"time"

	"github.com/lgulliver/lodestone-backend/pkg/config"
	"github.com/redis/go-redis/v9"
)

// Cache wraps the Redis client shared by Redis-backed components
type Cache struct {
	client *redis.Client
}

// NewCache creates a new cache instance and verifies the connection
func NewCache(cfg *config.RedisConfig) (*Cache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &Cache{client: client}, nil
}

// Client returns the underlying Redis client
func (c *Cache) Client() *redis.Client {
	return c.client
}

// Close closes the Redis connection
func (c *Cache) Close() error {
	return c.client.Close()
}
