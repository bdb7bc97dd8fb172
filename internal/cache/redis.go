package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps entries as redis keys `<name>:<key>` that expire on
// their own.
type RedisStore struct {
	client *redis.Client
	name   string
	ttl    time.Duration
}

func NewRedisStore(url, name string, ttl time.Duration) (*RedisStore, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("redis cache: %w", err)
	}
	return &RedisStore{client: redis.NewClient(opts), name: name, ttl: ttl}, nil
}

func (s *RedisStore) key(key string) string {
	return s.name + ":" + key
}

func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if s.ttl <= 0 {
		return nil, false, nil
	}
	data, err := s.client.Get(ctx, s.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis cache get: %w", err)
	}
	return data, true, nil
}

func (s *RedisStore) Set(ctx context.Context, key string, value []byte) error {
	if s.ttl <= 0 {
		return nil
	}
	err := s.client.Set(ctx, s.key(key), value, s.ttl).Err()
	if err != nil {
		return fmt.Errorf("redis cache set: %w", err)
	}
	return nil
}

// Prune is a no-op, redis expires keys itself.
func (s *RedisStore) Prune(ctx context.Context) error {
	return nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
