package queueport

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/forgeq/forgeq/internal/job"
	"github.com/forgeq/forgeq/internal/store"
	"github.com/redis/go-redis/v9"
)

func newTestPort(t *testing.T, popTimeout time.Duration) *RedisPort {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis.Run: %v", err)
	}
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	s := store.NewRedisStoreFromClient(client)
	return NewRedisPort(s, "default", popTimeout)
}

func TestRedisPortPushPopRoundTrip(t *testing.T) {
	p := newTestPort(t, 0)
	ctx := context.Background()

	d := job.New("EchoJob", []byte(`{"msg":"hi"}`), "abc")
	if err := p.Push(ctx, d); err != nil {
		t.Fatalf("Push: %v", err)
	}

	got, err := p.Pop(ctx)
	if err != nil {
		t.Fatalf("Pop: %v", err)
	}
	if got.ID != d.ID || got.Class != d.Class {
		t.Errorf("Pop = %+v, want id/class matching %+v", got, d)
	}
	if got.OriginQueue != "default" {
		t.Errorf("OriginQueue = %q, want %q", got.OriginQueue, "default")
	}
}

func TestRedisPortPopEmptyNonBlocking(t *testing.T) {
	p := newTestPort(t, 0)
	if _, err := p.Pop(context.Background()); err != ErrEmpty {
		t.Errorf("Pop on empty = %v, want ErrEmpty", err)
	}
}

func TestRedisPortFIFOOrdering(t *testing.T) {
	p := newTestPort(t, 0)
	ctx := context.Background()

	first := job.New("EchoJob", nil, "first")
	second := job.New("EchoJob", nil, "second")
	if err := p.Push(ctx, first); err != nil {
		t.Fatalf("Push: %v", err)
	}
	if err := p.Push(ctx, second); err != nil {
		t.Fatalf("Push: %v", err)
	}

	got, err := p.Pop(ctx)
	if err != nil {
		t.Fatalf("Pop: %v", err)
	}
	if got.ID != "first" {
		t.Errorf("Pop order = %q, want %q", got.ID, "first")
	}
}
