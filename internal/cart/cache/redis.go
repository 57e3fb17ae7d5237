package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/fjod/go_storefront/internal/domain"
	"github.com/redis/go-redis/v9"
)

const maxJitterMinutes = 5

type RedisCache struct {
	client  redis.UniversalClient
	baseTTL time.Duration
}

func NewRedisCache(client redis.UniversalClient) *RedisCache {
	return &RedisCache{
		client:  client,
		baseTTL: 15 * time.Minute,
	}
}

func (r *RedisCache) Get(ctx context.Context, sessionID string) (*domain.Cart, error) {
	data, err := r.client.Get(ctx, cacheKey(sessionID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("redis get failed: %w", err)
	}

	var cart domain.Cart
	if err := json.Unmarshal(data, &cart); err != nil {
		return nil, fmt.Errorf("unmarshal cart failed: %w", err)
	}

	return &cart, nil
}

// Set stores the cart with a jittered TTL so entries written together do not expire together.
func (r *RedisCache) Set(ctx context.Context, sessionID string, cart *domain.Cart) error {
	payload, err := json.Marshal(cart)
	if err != nil {
		return fmt.Errorf("marshal cart failed: %w", err)
	}

	ttl := r.baseTTL + time.Duration(rand.IntN(maxJitterMinutes))*time.Minute
	if err := r.client.Set(ctx, cacheKey(sessionID), payload, ttl).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

func (r *RedisCache) Delete(ctx context.Context, sessionID string) error {
	if err := r.client.Del(ctx, cacheKey(sessionID)).Err(); err != nil {
		return fmt.Errorf("redis delete failed: %w", err)
	}
	return nil
}

func cacheKey(sessionID string) string {
	return fmt.Sprintf("cart:%s", sessionID)
}
