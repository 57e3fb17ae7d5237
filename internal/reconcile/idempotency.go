package reconcile

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const DefaultDeliveryTTL = 72 * time.Hour

// RedisDeduper remembers which (transaction, status) pairs were already applied.
type RedisDeduper struct {
	client redis.UniversalClient
	ttl    time.Duration
}

func NewRedisDeduper(client redis.UniversalClient, ttl time.Duration) *RedisDeduper {
	if ttl <= 0 {
		ttl = DefaultDeliveryTTL
	}
	return &RedisDeduper{client: client, ttl: ttl}
}

// FirstDelivery reports true exactly once per key until the key expires or is forgotten.
func (d *RedisDeduper) FirstDelivery(ctx context.Context, transactionID, status string) (bool, error) {
	ok, err := d.client.SetNX(ctx, deliveryKey(transactionID, status), time.Now().Unix(), d.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("redis setnx failed: %w", err)
	}
	return ok, nil
}

// Forget releases the key so a redelivery is processed again.
func (d *RedisDeduper) Forget(ctx context.Context, transactionID, status string) error {
	if err := d.client.Del(ctx, deliveryKey(transactionID, status)).Err(); err != nil {
		return fmt.Errorf("redis del failed: %w", err)
	}
	return nil
}

func deliveryKey(transactionID, status string) string {
	return fmt.Sprintf("webhook:%s:%s", transactionID, status)
}
