package idempotency

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Store keeps short-lived markers in Redis: delivery dedupe for consumers and
// webhooks, and in-flight locks for request handlers.
type Store struct {
	rdb     redis.UniversalClient
	ttl     time.Duration
	lockTTL time.Duration
}

func NewStore(rdb redis.UniversalClient, ttl time.Duration) *Store {
	return &Store{rdb: rdb, ttl: ttl, lockTTL: 60 * time.Second}
}

func (s *Store) Key(topic string, partition int, offset int64) string {
	return fmt.Sprintf("idem:%s:%d:%d", topic, partition, offset)
}

func (s *Store) Scoped(scope, id string) string {
	return fmt.Sprintf("idem:%s:%s", scope, id)
}

// Seen marks key and reports whether it was already marked.
func (s *Store) Seen(ctx context.Context, key string) (bool, error) {
	ok, err := s.rdb.SetNX(ctx, key, "1", s.ttl).Result()
	if err != nil {
		return false, err
	}

	return !ok, nil
}

// Forget drops a marker so a failed delivery can be processed again.
func (s *Store) Forget(ctx context.Context, key string) error {
	return s.rdb.Del(ctx, key).Err()
}

// Acquire takes an in-flight lock. The lock expires on its own if the holder dies.
func (s *Store) Acquire(ctx context.Context, key string) (bool, error) {
	return s.rdb.SetNX(ctx, "lock:"+key, "1", s.lockTTL).Result()
}

func (s *Store) Release(ctx context.Context, key string) error {
	return s.rdb.Del(ctx, "lock:"+key).Err()
}

func (s *Store) Ping(ctx context.Context) error {
	return s.rdb.Ping(ctx).Err()
}
