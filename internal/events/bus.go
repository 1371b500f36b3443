package events

import (
	"sync"
	"time"
)

// errLogger is the minimal logging capability Dispatch needs. The
// full logger.Logger interface satisfies it; tests may supply a
// narrower fake.
type errLogger interface {
	Error(msg string, args ...interface{})
}

// Bus is the Event Bus: synchronous fan-out to subscribers registered
// per kind, in registration order. A subscriber's error is logged and
// swallowed, never aborting dispatch to the rest (spec.md §4.5).
type Bus struct {
	mu          sync.RWMutex
	subscribers map[Kind][]Subscriber
	log         errLogger
}

// NewBus builds an empty Bus. log may be nil, in which case subscriber
// errors are silently discarded instead of logged.
func NewBus(log errLogger) *Bus {
	return &Bus{
		subscribers: make(map[Kind][]Subscriber),
		log:         log,
	}
}

// Subscribe registers sub to run whenever an event of kind k is
// dispatched, after any subscribers already registered for k.
func (b *Bus) Subscribe(k Kind, sub Subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribers[k] = append(b.subscribers[k], sub)
}

// Dispatch delivers e synchronously to every subscriber registered for
// e.Kind, in registration order.
func (b *Bus) Dispatch(e Event) {
	if e.At.IsZero() {
		e.At = time.Now()
	}

	b.mu.RLock()
	subs := make([]Subscriber, len(b.subscribers[e.Kind]))
	copy(subs, b.subscribers[e.Kind])
	b.mu.RUnlock()

	for _, sub := range subs {
		b.dispatchOne(sub, e)
	}
}

func (b *Bus) dispatchOne(sub Subscriber, e Event) {
	defer func() {
		if r := recover(); r != nil && b.log != nil {
			b.log.Error("event subscriber panicked", "kind", e.Kind, "worker_id", e.WorkerID, "panic", r)
		}
	}()
	if err := sub(e); err != nil && b.log != nil {
		b.log.Error("event subscriber failed", "kind", e.Kind, "worker_id", e.WorkerID, "error", err)
	}
}
