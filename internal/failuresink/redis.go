package failuresink

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/forgeq/forgeq/internal/job"
	"github.com/forgeq/forgeq/internal/store"
)

// RedisSink persists Failure Records to a Redis list, mirroring the
// teacher's dead-letter-queue convention, plus a separate counter key so
// Count is an O(1) read rather than an LLEN over an unbounded list.
type RedisSink struct {
	store      *store.RedisStore
	listKey    string
	counterKey string
}

// NewRedisSink builds a Failure Sink storing records under
// "forgeq:failures" and its count under "forgeq:failures:count".
func NewRedisSink(s *store.RedisStore) *RedisSink {
	return &RedisSink{
		store:      s,
		listKey:    "forgeq:failures",
		counterKey: "forgeq:failures:count",
	}
}

// kinder is implemented by errors that carry an explicit exception kind
// distinct from their Go type name (dirty-exit, invalid-job).
type kinder interface {
	Kind() string
}

func exceptionKind(err error) string {
	if k, ok := err.(kinder); ok {
		return k.Kind()
	}
	return fmt.Sprintf("%T", err)
}

func (s *RedisSink) Save(ctx context.Context, d *job.Descriptor, jobErr error, queue, workerID string) error {
	rec := Record{
		FailedAt:  time.Now().UTC(),
		Payload:   d,
		Exception: exceptionKind(jobErr),
		Error:     jobErr.Error(),
		Backtrace: backtraceOf(jobErr),
		Worker:    workerID,
		Queue:     queue,
	}

	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failuresink: marshal record: %w", err)
	}

	if err := s.store.LPush(ctx, s.listKey, string(data)); err != nil {
		return fmt.Errorf("failuresink: save record: %w", err)
	}
	if _, err := s.store.Incr(ctx, s.counterKey); err != nil {
		return fmt.Errorf("failuresink: increment count: %w", err)
	}
	return nil
}

func (s *RedisSink) Count(ctx context.Context) (int64, error) {
	raw, err := s.store.Get(ctx, s.counterKey)
	if err == store.ErrMissing {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failuresink: count: %w", err)
	}
	var n int64
	if _, scanErr := fmt.Sscanf(raw, "%d", &n); scanErr != nil {
		return 0, fmt.Errorf("failuresink: parse count: %w", scanErr)
	}
	return n, nil
}

func (s *RedisSink) Clear(ctx context.Context) error {
	if err := s.store.Del(ctx, s.listKey); err != nil {
		return fmt.Errorf("failuresink: clear records: %w", err)
	}
	if err := s.store.Del(ctx, s.counterKey); err != nil {
		return fmt.Errorf("failuresink: clear count: %w", err)
	}
	return nil
}

// backtraceOf extracts individual frames from errors that carry a
// multi-line stack trace (bugcheck.PanicError); other errors yield an
// empty backtrace, per spec.md §3's "possibly empty" allowance.
func backtraceOf(err error) []string {
	type framer interface {
		Frames() []string
	}
	if f, ok := err.(framer); ok {
		return f.Frames()
	}
	return nil
}
