package store

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore implements Store against a real Redis (or Redis-compatible)
// server, using the same connection-pool tuning the teacher's queue
// package applies: sized for a worker fleet issuing blocking pops
// alongside schedulers and result-backend reads.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore parses redisURL, configures a pool sized for concurrent
// workers plus background schedulers, and verifies connectivity.
func NewRedisStore(redisURL string) (*RedisStore, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("store: parse redis url: %w", err)
	}

	// Pool sizing: N worker goroutines each hold a connection for the
	// duration of a blocking pop, plus headroom for the scheduler and
	// result-backend lookups running concurrently.
	opts.PoolSize = 50
	opts.MinIdleConns = 5
	opts.ConnMaxIdleTime = 10 * time.Minute
	opts.PoolTimeout = 5 * time.Second

	opts.MaxRetries = 3
	opts.MinRetryBackoff = 8 * time.Millisecond
	opts.MaxRetryBackoff = 512 * time.Millisecond
	opts.DialTimeout = 5 * time.Second
	opts.ReadTimeout = 10 * time.Second
	opts.WriteTimeout = 3 * time.Second
	opts.ContextTimeoutEnabled = true

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("store: connect to redis: %w", err)
	}

	return &RedisStore{client: client}, nil
}

// NewRedisStoreFromClient wraps an already-constructed client without
// the pool tuning or connectivity check NewRedisStore applies (the tests
// use it to wrap a miniredis-backed client).
func NewRedisStoreFromClient(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

// Client exposes the underlying client for collaborators that need
// Redis features the Store interface does not surface (RedisPort uses
// it for BRPOP and LLEN).
func (s *RedisStore) Client() *redis.Client {
	return s.client
}

func (s *RedisStore) Set(ctx context.Context, key, value string) error {
	return s.client.Set(ctx, key, value, 0).Err()
}

func (s *RedisStore) Get(ctx context.Context, key string) (string, error) {
	val, err := s.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return "", ErrMissing
	}
	if err != nil {
		return "", fmt.Errorf("store: get %s: %w", key, err)
	}
	return val, nil
}

func (s *RedisStore) Del(ctx context.Context, key string) error {
	return s.client.Del(ctx, key).Err()
}

func (s *RedisStore) Exists(ctx context.Context, key string) (bool, error) {
	n, err := s.client.Exists(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("store: exists %s: %w", key, err)
	}
	return n > 0, nil
}

func (s *RedisStore) LPush(ctx context.Context, list, value string) error {
	return s.client.LPush(ctx, list, value).Err()
}

func (s *RedisStore) RPop(ctx context.Context, list string) (string, error) {
	val, err := s.client.RPop(ctx, list).Result()
	if err == redis.Nil {
		return "", ErrMissing
	}
	if err != nil {
		return "", fmt.Errorf("store: rpop %s: %w", list, err)
	}
	return val, nil
}

func (s *RedisStore) LIndex(ctx context.Context, list string, index int64) (string, error) {
	val, err := s.client.LIndex(ctx, list, index).Result()
	if err == redis.Nil {
		return "", ErrMissing
	}
	if err != nil {
		return "", fmt.Errorf("store: lindex %s[%d]: %w", list, index, err)
	}
	return val, nil
}

func (s *RedisStore) LLen(ctx context.Context, list string) (int64, error) {
	n, err := s.client.LLen(ctx, list).Result()
	if err != nil {
		return 0, fmt.Errorf("store: llen %s: %w", list, err)
	}
	return n, nil
}

func (s *RedisStore) Incr(ctx context.Context, key string) (int64, error) {
	return s.client.Incr(ctx, key).Result()
}

func (s *RedisStore) Decr(ctx context.Context, key string) (int64, error) {
	return s.client.Decr(ctx, key).Result()
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
