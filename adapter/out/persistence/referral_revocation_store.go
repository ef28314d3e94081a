package persistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"referral_server/core/port/out"

	"github.com/redis/go-redis/v9"
	"github.com/sony/gobreaker"
)

// RevokedTokenKey is the Redis key prefix for revoked token ids.
const RevokedTokenKey = "token:revoked:"

// RedisRevocationStore keeps revoked jti values in Redis with a TTL equal to
// the token's remaining lifetime. Every call goes through cb, so a Redis
// outage turns into fast errors instead of piled-up timeouts.
type RedisRevocationStore struct {
	client *redis.Client
	cb     *gobreaker.CircuitBreaker
}

var _ out.TokenRevocationStore = (*RedisRevocationStore)(nil)

func NewRedisRevocationStore(client *redis.Client, cb *gobreaker.CircuitBreaker) *RedisRevocationStore {
	return &RedisRevocationStore{client: client, cb: cb}
}

func (s *RedisRevocationStore) Revoke(ctx context.Context, tokenID string, ttl time.Duration) error {
	if tokenID == "" {
		return errors.New("token id cannot be empty")
	}
	if ttl <= 0 {
		return nil
	}

	_, err := s.cb.Execute(func() (interface{}, error) {
		return nil, s.client.Set(ctx, RevokedTokenKey+tokenID, "1", ttl).Err()
	})
	if err != nil {
		return fmt.Errorf("failed to revoke token: %w", err)
	}
	return nil
}

func (s *RedisRevocationStore) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	v, err := s.cb.Execute(func() (interface{}, error) {
		return s.client.Exists(ctx, RevokedTokenKey+tokenID).Result()
	})
	if err != nil {
		return false, fmt.Errorf("failed to check token revocation: %w", err)
	}
	return v.(int64) > 0, nil
}
