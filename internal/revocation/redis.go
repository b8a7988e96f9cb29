package revocation

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/classhub/trustgate/internal/core"
)

var _ core.RevocationStore = (*RedisStore)(nil)

const DefaultKeyPrefix = "trustgate:revoked:"

// RedisStore shares revocations between all participants through Redis.
// Redis expires the keys, so no garbage collection is needed.
type RedisStore struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
}

func NewRedisStore(client redis.UniversalClient, prefix string, ttl time.Duration) (*RedisStore, error) {
	if ttl <= 0 {
		return nil, fmt.Errorf("revocation ttl must be positive, got %s", ttl)
	}
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}
	return &RedisStore{
		client: client,
		prefix: prefix,
		ttl:    ttl,
	}, nil
}

func (r *RedisStore) Add(ctx context.Context, tokenID string) error {
	if err := r.client.Set(ctx, r.prefix+tokenID, "1", r.ttl).Err(); err != nil {
		return fmt.Errorf("%w: storing revocation: %w", core.ErrUpstreamUnavailable, err)
	}
	return nil
}

func (r *RedisStore) Contains(ctx context.Context, tokenID string) (bool, error) {
	n, err := r.client.Exists(ctx, r.prefix+tokenID).Result()
	if err != nil {
		return false, fmt.Errorf("%w: looking up revocation: %w", core.ErrUpstreamUnavailable, err)
	}
	return n > 0, nil
}
