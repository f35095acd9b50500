package repository

import (
	"context"
	"time"

	"killua-service-provider/internal/domain/entity"
	"killua-service-provider/internal/domain/repository"

	"github.com/redis/go-redis/v9"
)

const expiryNoticeKeyPrefix = "expiry-notice:"

// RedisExpiryGuard implements ExpiryNoticeGuard with SETNX keys
type RedisExpiryGuard struct {
	client *redis.Client
}

// NewRedisExpiryGuard creates a guard backed by client
func NewRedisExpiryGuard(client *redis.Client) repository.ExpiryNoticeGuard {
	return &RedisExpiryGuard{
		client: client,
	}
}

// Acquire reports whether this call claimed the notice for serviceID
func (g *RedisExpiryGuard) Acquire(ctx context.Context, serviceID string, ttl time.Duration) (bool, error) {
	ok, err := g.client.SetNX(ctx, expiryNoticeKeyPrefix+serviceID, time.Now().Unix(), ttl).Result()
	if err != nil {
		return false, entity.NewStoreError("acquire expiry notice", err)
	}
	return ok, nil
}

// Release drops the claim so the notice can be sent again
func (g *RedisExpiryGuard) Release(ctx context.Context, serviceID string) error {
	err := g.client.Del(ctx, expiryNoticeKeyPrefix+serviceID).Err()
	return entity.NewStoreError("release expiry notice", err)
}
