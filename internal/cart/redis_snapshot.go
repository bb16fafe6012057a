package cart

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/angelmondragon/storefront/pkg/redis"
)

// RedisSnapshotStore keeps cart snapshots in redis without a TTL; a cart lives
// until it is cleared or converted into an order.
type RedisSnapshotStore struct {
	client *redis.Client
}

func NewRedisSnapshotStore(client *redis.Client) (*RedisSnapshotStore, error) {
	if client == nil {
		return nil, errors.New("redis client required")
	}
	return &RedisSnapshotStore{client: client}, nil
}

func (r *RedisSnapshotStore) Load(ctx context.Context, sessionID string) ([]byte, error) {
	raw, err := r.client.Get(ctx, r.client.CartKey(sessionID))
	if redis.IsNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load cart snapshot: %w", err)
	}
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	return []byte(raw), nil
}

func (r *RedisSnapshotStore) Save(ctx context.Context, sessionID string, data []byte) error {
	if err := r.client.Set(ctx, r.client.CartKey(sessionID), data, 0); err != nil {
		return fmt.Errorf("save cart snapshot: %w", err)
	}
	return nil
}

func (r *RedisSnapshotStore) Delete(ctx context.Context, sessionID string) error {
	if err := r.client.Del(ctx, r.client.CartKey(sessionID)); err != nil {
		return fmt.Errorf("delete cart snapshot: %w", err)
	}
	return nil
}
