// Package statssink defines the Stats Sink capability set (spec.md
// §4.3): a monotonic counter store keyed by string, with external
// concurrency semantics delegated to the backend.
package statssink

import "context"

// Sink is the Stats Sink capability set.
type Sink interface {
	Increment(ctx context.Context, key string) error
	Decrement(ctx context.Context, key string) error
	Get(ctx context.Context, key string) (int64, error)
	Clear(ctx context.Context, key string) error
}
