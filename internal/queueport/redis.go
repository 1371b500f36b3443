package queueport

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/forgeq/forgeq/internal/job"
	"github.com/forgeq/forgeq/internal/store"
	"github.com/redis/go-redis/v9"
)

// RedisPort is a Queue Port backed by a Redis list, keyed under the same
// prefix convention the teacher's queue package uses. Descriptors are
// stored on the wire in the format internal/job defines; Pop uses a
// bounded blocking pop via the store's client so the Worker never spins.
type RedisPort struct {
	store      *store.RedisStore
	name       string
	listKey    string
	popTimeout time.Duration
}

// NewRedisPort builds a Queue Port named name, storing descriptors under
// "forgeq:queue:<name>". popTimeout bounds how long a single Pop call may
// block before returning ErrEmpty; zero means a non-blocking attempt.
func NewRedisPort(s *store.RedisStore, name string, popTimeout time.Duration) *RedisPort {
	return &RedisPort{
		store:      s,
		name:       name,
		listKey:    "forgeq:queue:" + name,
		popTimeout: popTimeout,
	}
}

func (p *RedisPort) Name() string { return p.name }

func (p *RedisPort) Push(ctx context.Context, d *job.Descriptor) error {
	queueTime := float64(time.Now().Unix())
	data, err := job.Encode(d, queueTime)
	if err != nil {
		return fmt.Errorf("queueport: encode descriptor: %w", err)
	}
	if err := p.store.LPush(ctx, p.listKey, string(data)); err != nil {
		return fmt.Errorf("queueport: push to %s: %w", p.name, err)
	}
	return nil
}

// Pop removes the oldest descriptor from the list. When popTimeout is
// positive it issues a blocking right-pop against the underlying client
// so the Worker's reservation loop does not busy-poll; otherwise it
// performs a single non-blocking attempt.
func (p *RedisPort) Pop(ctx context.Context) (*job.Descriptor, error) {
	raw, err := p.pop(ctx)
	if errors.Is(err, store.ErrMissing) {
		return nil, ErrEmpty
	}
	if err != nil {
		return nil, fmt.Errorf("queueport: pop from %s: %w", p.name, err)
	}

	d, err := job.Decode([]byte(raw))
	if err != nil {
		return nil, fmt.Errorf("queueport: decode descriptor from %s: %w", p.name, err)
	}
	d.OriginQueue = p.name
	return d, nil
}

// Depth reports the number of descriptors currently waiting in the
// list, for periodic queue-depth metrics reporting.
func (p *RedisPort) Depth(ctx context.Context) (int64, error) {
	n, err := p.store.Client().LLen(ctx, p.listKey).Result()
	if err != nil {
		return 0, fmt.Errorf("queueport: depth of %s: %w", p.name, err)
	}
	return n, nil
}

func (p *RedisPort) pop(ctx context.Context) (string, error) {
	if p.popTimeout <= 0 {
		return p.store.RPop(ctx, p.listKey)
	}

	result, err := p.store.Client().BRPop(ctx, p.popTimeout, p.listKey).Result()
	if err == redis.Nil {
		return "", store.ErrMissing
	}
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", fmt.Errorf("brpop %s: %w", p.listKey, err)
	}
	// BRPop returns [key, value] on success.
	if len(result) != 2 {
		return "", store.ErrMissing
	}
	return result[1], nil
}
