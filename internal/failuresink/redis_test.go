package failuresink

import (
	"context"
	"errors"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/forgeq/forgeq/internal/job"
	"github.com/forgeq/forgeq/internal/store"
	"github.com/redis/go-redis/v9"
)

func newTestSink(t *testing.T) *RedisSink {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis.Run: %v", err)
	}
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return NewRedisSink(store.NewRedisStoreFromClient(client))
}

func TestRedisSinkSaveIncrementsCount(t *testing.T) {
	s := newTestSink(t)
	ctx := context.Background()

	d := job.New("EchoJob", nil, "abc")
	if err := s.Save(ctx, d, errors.New("boom"), "default", "host:1:default"); err != nil {
		t.Fatalf("Save: %v", err)
	}

	count, err := s.Count(ctx)
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if count != 1 {
		t.Errorf("Count = %d, want 1", count)
	}

	if err := s.Save(ctx, d, errors.New("boom again"), "default", "host:1:default"); err != nil {
		t.Fatalf("Save: %v", err)
	}
	count, err = s.Count(ctx)
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if count != 2 {
		t.Errorf("Count after second save = %d, want 2", count)
	}
}

func TestRedisSinkCountIsZeroWhenUnused(t *testing.T) {
	s := newTestSink(t)
	count, err := s.Count(context.Background())
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if count != 0 {
		t.Errorf("Count = %d, want 0", count)
	}
}

func TestRedisSinkClear(t *testing.T) {
	s := newTestSink(t)
	ctx := context.Background()

	d := job.New("EchoJob", nil, "abc")
	if err := s.Save(ctx, d, errors.New("boom"), "default", "host:1:default"); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := s.Clear(ctx); err != nil {
		t.Fatalf("Clear: %v", err)
	}

	count, err := s.Count(ctx)
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if count != 0 {
		t.Errorf("Count after Clear = %d, want 0", count)
	}
}
