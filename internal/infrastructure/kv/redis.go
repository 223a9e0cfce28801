package kv

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/plateping/api/internal/config"
	"github.com/redis/go-redis/v9"
)

// Store is the ephemeral key-value store backing OTP codes, daily send
// counters and lockout counters. Failures are returned to the caller and must
// never be interpreted as "key absent" — the abuse controls fail closed.
type Store interface {
	// Get returns the value at key and whether it exists.
	Get(ctx context.Context, key string) (string, bool, error)
	// Set writes value at key with the given TTL, overwriting any prior value.
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	// Delete removes key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error
}

type redisStore struct {
	client *redis.Client
}

// NewRedisStore connects a counter store to the Redis instance named in cfg.
func NewRedisStore(cfg *config.Config) Store {
	return &redisStore{
		client: redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		}),
	}
}

// NewStoreFromClient wraps an existing Redis client (used by tests with
// miniredis).
func NewStoreFromClient(client *redis.Client) Store {
	return &redisStore{client: client}
}

func (s *redisStore) Get(ctx context.Context, key string) (string, bool, error) {
	val, err := s.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("kv get %s: %w", key, err)
	}
	return val, true, nil
}

func (s *redisStore) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	if err := s.client.Set(ctx, key, value, ttl).Err(); err != nil {
		return fmt.Errorf("kv set %s: %w", key, err)
	}
	return nil
}

func (s *redisStore) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("kv delete %s: %w", key, err)
	}
	return nil
}
