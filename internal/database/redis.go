package database

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/xwurfel/gallerykit/internal/config"

	"github.com/redis/go-redis/v9"
)

// NewRedisConnection opens the client backing the cloud session store. That
// store sees a handful of small reads and writes per auth handoff, so the
// pool stays deliberately small.
func NewRedisConnection(cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     net.JoinHostPort(cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,

		PoolSize:     4,
		MinIdleConns: 1,
		MaxRetries:   2,

		DialTimeout:  5 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
		PoolTimeout:  3 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return client, nil
}
