package secrets

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisStore fetches secrets from a Redis string keyspace, letting multiple
// gateway instances share one underlying fetch. Repurposed from the
// teacher's internal/cache/redis vector search client: same go-redis/v9
// dependency, now used for plain key/value reads instead of FT.SEARCH.
type RedisStore struct {
	client *redis.Client
	prefix string
}

// NewRedisStore creates a secret store backed by client. Keys are read as
// prefix+name, e.g. prefix "often:secret:" and name "openai_api_key".
func NewRedisStore(client *redis.Client, prefix string) *RedisStore {
	return &RedisStore{client: client, prefix: prefix}
}

// Fetch reads the secret value for name from Redis.
func (s *RedisStore) Fetch(ctx context.Context, name string) (string, error) {
	value, err := s.client.Get(ctx, s.prefix+name).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", fmt.Errorf("%w: %s", ErrNotFound, name)
		}
		return "", fmt.Errorf("secrets: redis fetch %s: %w", name, err)
	}
	return value, nil
}
