package state

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultRedisTimeout = 5 * time.Second

// RedisStore implements Store on redis so several machines can share
// gate state. Keys are prefixed with a namespace.
type RedisStore struct {
	client    redis.Cmdable
	namespace string
	timeout   time.Duration
}

// NewRedisStore wraps client. An empty namespace stores keys unprefixed.
func NewRedisStore(client redis.Cmdable, namespace string) *RedisStore {
	return &RedisStore{
		client:    client,
		namespace: namespace,
		timeout:   defaultRedisTimeout,
	}
}

// OpenRedis parses url, connects and verifies connectivity.
func OpenRedis(ctx context.Context, url, namespace string) (*RedisStore, *redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, nil, fmt.Errorf("parsing redis url: %w", err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("ping redis: %w", err)
	}

	return NewRedisStore(client, namespace), client, nil
}

func (s *RedisStore) key(k string) string {
	if s.namespace == "" {
		return k
	}
	return s.namespace + ":" + k
}

// Read returns the value for key.
func (s *RedisStore) Read(key string) (string, bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	val, err := s.client.Get(ctx, s.key(key)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("failed to read state: %w", err)
	}
	return val, true, nil
}

// Write stores value under key without expiry.
func (s *RedisStore) Write(key, value string) error {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	if err := s.client.Set(ctx, s.key(key), value, 0).Err(); err != nil {
		return fmt.Errorf("failed to write state: %w", err)
	}
	return nil
}

// Delete removes key.
func (s *RedisStore) Delete(key string) error {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	if err := s.client.Del(ctx, s.key(key)).Err(); err != nil {
		return fmt.Errorf("failed to delete state: %w", err)
	}
	return nil
}
