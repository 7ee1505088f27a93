package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const usedKeyPrefix = "auth:link:used:"

// RedisStore stores used link IDs in Redis with a TTL matching the link.
type RedisStore struct {
	client *redis.Client
	now    func() time.Time
}

// NewRedisStore creates a Redis token store.
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client, now: time.Now}
}

// Compile-time check that RedisStore implements UsedTokenStore.
var _ UsedTokenStore = (*RedisStore)(nil)

// MarkUsed sets the key only if it does not exist yet.
func (s *RedisStore) MarkUsed(ctx context.Context, jti string, expiresAt time.Time) (bool, error) {
	ttl := expiresAt.Sub(s.now())
	if ttl < time.Second {
		ttl = time.Second
	}
	ok, err := s.client.SetNX(ctx, usedKeyPrefix+jti, 1, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("mark link used: %w", err)
	}
	return ok, nil
}

// IsUsed reports whether jti was consumed.
func (s *RedisStore) IsUsed(ctx context.Context, jti string) (bool, error) {
	n, err := s.client.Exists(ctx, usedKeyPrefix+jti).Result()
	if err != nil {
		return false, fmt.Errorf("check link used: %w", err)
	}
	return n > 0, nil
}
