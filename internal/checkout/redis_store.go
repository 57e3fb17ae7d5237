package checkout

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisSessionStore keeps sessions under a TTL. Writes are optimistic: a session saved from a
// stale read is rejected.
type RedisSessionStore struct {
	client redis.UniversalClient
	ttl    time.Duration
}

func NewRedisSessionStore(client redis.UniversalClient, ttl time.Duration) *RedisSessionStore {
	return &RedisSessionStore{client: client, ttl: ttl}
}

func (s *RedisSessionStore) Get(ctx context.Context, id string) (*Session, error) {
	data, err := s.client.Get(ctx, sessionKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis get failed: %w", err)
	}

	var sess Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return nil, fmt.Errorf("unmarshal session failed: %w", err)
	}
	return &sess, nil
}

func (s *RedisSessionStore) Save(ctx context.Context, sess *Session) error {
	key := sessionKey(sess.ID)
	expected := sess.Version

	next := *sess
	next.Version = expected + 1
	next.UpdatedAt = time.Now().UTC()
	payload, err := json.Marshal(next)
	if err != nil {
		return fmt.Errorf("marshal session failed: %w", err)
	}

	err = s.client.Watch(ctx, func(tx *redis.Tx) error {
		current, err := storedVersion(ctx, tx, key)
		if err != nil {
			return err
		}
		if current != expected {
			return ErrStaleSession
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, payload, s.ttl)
			return nil
		})
		return err
	}, key)
	if errors.Is(err, redis.TxFailedErr) {
		return ErrStaleSession
	}
	if err != nil {
		return err
	}

	sess.Version = next.Version
	sess.UpdatedAt = next.UpdatedAt
	return nil
}

func (s *RedisSessionStore) Delete(ctx context.Context, id string) error {
	if err := s.client.Del(ctx, sessionKey(id)).Err(); err != nil {
		return fmt.Errorf("redis delete failed: %w", err)
	}
	return nil
}

// storedVersion is 0 when no session is stored.
func storedVersion(ctx context.Context, tx *redis.Tx, key string) (int64, error) {
	data, err := tx.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("redis get failed: %w", err)
	}

	var stored struct {
		Version int64 `json:"version"`
	}
	if err := json.Unmarshal(data, &stored); err != nil {
		return 0, fmt.Errorf("unmarshal session failed: %w", err)
	}
	return stored.Version, nil
}

func sessionKey(id string) string {
	return fmt.Sprintf("checkout:%s", id)
}
