// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package credential

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisConfig holds Redis connection configuration.
type RedisConfig struct {
	Addr     string // Redis server address (host:port)
	Password string // Redis password (optional)
	DB       int    // Redis database number
	Prefix   string // optional key prefix, e.g. per device
}

// RedisStore keeps the credential in Redis without expiry.
type RedisStore struct {
	client *redis.Client
	key    string
}

// OpenRedisStore connects to Redis and verifies the connection.
func OpenRedisStore(ctx context.Context, cfg RedisConfig) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis connection failed: %w", err)
	}
	return newRedisStore(client, cfg.Prefix), nil
}

func newRedisStore(client *redis.Client, prefix string) *RedisStore {
	return &RedisStore{client: client, key: prefix + Key}
}

func (s *RedisStore) Get(ctx context.Context) (string, error) {
	v, err := s.client.Get(ctx, s.key).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("redis: get credential: %w", err)
	}
	return v, nil
}

func (s *RedisStore) Set(ctx context.Context, value string) error {
	if value == "" {
		return nil
	}
	if err := s.client.Set(ctx, s.key, value, 0).Err(); err != nil {
		return fmt.Errorf("redis: set credential: %w", err)
	}
	return nil
}

func (s *RedisStore) Close() error { return s.client.Close() }
