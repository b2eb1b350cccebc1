package lock

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/meliznube/backend/internal/domain/order"
)

// RedisPackLockStore implements order.PackLockStore on a Redis hash per
// pack id. HSETNX on the "ts" field is the atomic create-if-absent:
// exactly one concurrent caller creates the record and wins. MarkDone
// annotates the record with completion metadata and never deletes it, so
// a pack id stays claimed until retention cleans the key up out of band.
type RedisPackLockStore struct {
	client    *redis.Client
	keyPrefix string
	now       func() time.Time
}

// NewRedisPackLockStore creates a RedisPackLockStore.
func NewRedisPackLockStore(client *redis.Client, keyPrefix string) *RedisPackLockStore {
	if keyPrefix == "" {
		keyPrefix = "pack_lock:"
	}
	return &RedisPackLockStore{
		client:    client,
		keyPrefix: keyPrefix,
		now:       time.Now,
	}
}

// TryAcquire atomically creates the lock record for a pack id.
func (s *RedisPackLockStore) TryAcquire(ctx context.Context, packID string) (order.PackLockHandle, bool, error) {
	key := s.keyPrefix + packID

	created, err := s.client.HSetNX(ctx, key, "ts", s.now().UTC().Format(time.RFC3339)).Result()
	if err != nil {
		return order.PackLockHandle{}, false, fmt.Errorf("acquire pack lock %s: %w", packID, err)
	}
	if !created {
		return order.PackLockHandle{}, false, nil
	}
	return order.PackLockHandle{Key: key}, true, nil
}

// MarkDone writes completion metadata to an acquired record.
func (s *RedisPackLockStore) MarkDone(ctx context.Context, handle order.PackLockHandle) error {
	if handle.Key == "" {
		return nil
	}
	err := s.client.HSet(ctx, handle.Key,
		"done", "1",
		"done_ts", s.now().UTC().Format(time.RFC3339),
	).Err()
	if err != nil {
		return fmt.Errorf("mark pack lock done %s: %w", handle.Key, err)
	}
	return nil
}

var _ order.PackLockStore = (*RedisPackLockStore)(nil)
