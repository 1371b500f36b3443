package statssink

import (
	"context"
	"fmt"

	"github.com/forgeq/forgeq/internal/store"
)

// RedisSink keys counters under "forgeq:stat:<key>", delegating the
// increment/decrement concurrency semantics spec.md §4.3 requires to
// Redis's own atomic INCR/DECR.
type RedisSink struct {
	store *store.RedisStore
}

// NewRedisSink builds a Stats Sink backed by s.
func NewRedisSink(s *store.RedisStore) *RedisSink {
	return &RedisSink{store: s}
}

func (s *RedisSink) statKey(key string) string {
	return "forgeq:stat:" + key
}

func (s *RedisSink) Increment(ctx context.Context, key string) error {
	_, err := s.store.Incr(ctx, s.statKey(key))
	if err != nil {
		return fmt.Errorf("statssink: increment %s: %w", key, err)
	}
	return nil
}

func (s *RedisSink) Decrement(ctx context.Context, key string) error {
	_, err := s.store.Decr(ctx, s.statKey(key))
	if err != nil {
		return fmt.Errorf("statssink: decrement %s: %w", key, err)
	}
	return nil
}

func (s *RedisSink) Get(ctx context.Context, key string) (int64, error) {
	raw, err := s.store.Get(ctx, s.statKey(key))
	if err == store.ErrMissing {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("statssink: get %s: %w", key, err)
	}
	var n int64
	if _, scanErr := fmt.Sscanf(raw, "%d", &n); scanErr != nil {
		return 0, fmt.Errorf("statssink: parse %s: %w", key, scanErr)
	}
	return n, nil
}

func (s *RedisSink) Clear(ctx context.Context, key string) error {
	if err := s.store.Del(ctx, s.statKey(key)); err != nil {
		return fmt.Errorf("statssink: clear %s: %w", key, err)
	}
	return nil
}
