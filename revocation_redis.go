package identity

import (
	"context"
	"time"

	"github.com/goliatone/go-errors"
	"github.com/redis/go-redis/v9"
)

const defaultRevocationPrefix = "identity:revoked:"

// RedisRevocationStore is the deny-list for multi-instance deployments:
// every instance sees a revocation as soon as the write lands. Redis
// expires the keys natively, no reaper needed.
type RedisRevocationStore struct {
	client *redis.Client
	prefix string
}

// NewRedisRevocationStore wraps an existing client. An empty prefix uses
// the package default.
func NewRedisRevocationStore(client *redis.Client, prefix string) *RedisRevocationStore {
	if prefix == "" {
		prefix = defaultRevocationPrefix
	}
	return &RedisRevocationStore{
		client: client,
		prefix: prefix,
	}
}

// Add marks the jti revoked until ttl elapses.
func (s *RedisRevocationStore) Add(ctx context.Context, jti string, ttl time.Duration) error {
	if jti == "" || ttl <= 0 {
		return nil
	}

	if err := s.client.Set(ctx, s.prefix+jti, "1", ttl).Err(); err != nil {
		return errors.Wrap(err, errors.CategoryInternal, "failed to record revocation")
	}

	return nil
}

// Contains reports whether the jti is currently revoked.
func (s *RedisRevocationStore) Contains(ctx context.Context, jti string) (bool, error) {
	n, err := s.client.Exists(ctx, s.prefix+jti).Result()
	if err != nil {
		return false, errors.Wrap(err, errors.CategoryInternal, "failed to check revocation")
	}

	return n > 0, nil
}
