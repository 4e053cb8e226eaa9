package dedupe

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore shares dedupe state across scheduler instances through Redis.
// SET NX with a TTL makes the check-and-record step atomic server-side.
type RedisStore struct {
	client *redis.Client
	prefix string
}

func NewRedis(client *redis.Client) *RedisStore {
	return &RedisStore{client: client, prefix: "aftersales:dedupe:"}
}

func (s *RedisStore) Seen(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	set, err := s.client.SetNX(ctx, s.prefix+key, 1, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("dedupe setnx: %w", err)
	}
	// SetNX returns false when the key already existed.
	return !set, nil
}
