package worker

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/forgeq/forgeq/internal/events"
	"github.com/forgeq/forgeq/internal/factory"
	"github.com/forgeq/forgeq/internal/failuresink"
	"github.com/forgeq/forgeq/internal/foreman"
	"github.com/forgeq/forgeq/internal/job"
	"github.com/forgeq/forgeq/internal/queueport"
	"github.com/forgeq/forgeq/internal/statssink"
	"github.com/forgeq/forgeq/internal/store"
)

func newTestStore(t *testing.T) *store.RedisStore {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis.Run: %v", err)
	}
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return store.NewRedisStoreFromClient(client)
}

// noopExecutable is the stub factory.Executable for the success path.
type noopExecutable struct{}

func (noopExecutable) Perform() error { return nil }

// failingExecutable returns err from Perform, unconditionally.
type failingExecutable struct{ err error }

func (f failingExecutable) Perform() error { return f.err }

// stubFactory dispatches every Create call to a single configurable
// function, letting each scenario swap in its own Executable or error.
type stubFactory struct {
	createFn func(d *job.Descriptor) (factory.Executable, error)
}

func (f *stubFactory) Create(d *job.Descriptor) (factory.Executable, error) {
	return f.createFn(d)
}

// eventRecorder records dispatched kinds in order (newRecordingBus
// subscribes it to a bus), for scenarios that assert on event ordering.
type eventRecorder struct {
	mu    sync.Mutex
	kinds []events.Kind
}

func (r *eventRecorder) record(k events.Kind) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.kinds = append(r.kinds, k)
}

func (r *eventRecorder) snapshot() []events.Kind {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]events.Kind, len(r.kinds))
	copy(out, r.kinds)
	return out
}

func newRecordingBus(t *testing.T) (*events.Bus, *eventRecorder) {
	t.Helper()
	rec := &eventRecorder{}
	bus := events.NewBus(nil)
	for _, k := range []events.Kind{
		events.WorkerStartup, events.WorkerBeforeFork, events.WorkerAfterFork,
		events.JobBeforePerform, events.JobAfterPerform, events.JobPerformed, events.JobFailed,
	} {
		kind := k
		bus.Subscribe(kind, func(e events.Event) error {
			rec.record(e.Kind)
			return nil
		})
	}
	return bus, rec
}

// fakeChild is a foreman.Child whose exit status and wait error are
// configured up front.
type fakeChild struct {
	pid     int
	status  int
	waitErr error
	killed  bool
}

func (c *fakeChild) PID() int { return c.pid }
func (c *fakeChild) Wait() (int, error) {
	return c.status, c.waitErr
}
func (c *fakeChild) Kill() error {
	c.killed = true
	return nil
}

// fakeForeman always forks the same preconfigured child.
type fakeForeman struct {
	child *fakeChild
	err   error
}

func (f *fakeForeman) Fork(_ context.Context, _ *job.Descriptor) (foreman.Child, error) {
	return f.child, f.err
}

func echoDescriptor(id string) *job.Descriptor {
	return job.New("EchoJob", []byte(`{"msg":"hi"}`), id)
}

// S1 — successful single job (no fork).
func TestWorkSuccessfulSingleJobNoFork(t *testing.T) {
	queue := queueport.NewMemoryPort("default")
	if err := queue.Push(context.Background(), echoDescriptor("abc")); err != nil {
		t.Fatalf("Push: %v", err)
	}

	st := newTestStore(t)
	stats := statssink.NewMemorySink()
	fs := failuresink.NewRedisSink(st)
	bus, rec := newRecordingBus(t)

	w := New(Config{
		Queues:      []queueport.Port{queue},
		Store:       st,
		FailureSink: fs,
		StatsSink:   stats,
		Factory:     &stubFactory{createFn: func(*job.Descriptor) (factory.Executable, error) { return noopExecutable{}, nil }},
		Bus:         bus,
		Interval:    0,
	})

	if err := w.Work(context.Background()); err != nil {
		t.Fatalf("Work: %v", err)
	}

	if n, _ := stats.Get(context.Background(), "processed"); n != 1 {
		t.Errorf("processed = %d, want 1", n)
	}
	if n, _ := fs.Count(context.Background()); n != 0 {
		t.Errorf("failure count = %d, want 0", n)
	}
	if _, err := st.Get(context.Background(), currentJobKey(w.Identity())); err != store.ErrMissing {
		t.Errorf("worker:<id> key present after completion, want absent")
	}

	got := rec.snapshot()
	want := []events.Kind{events.WorkerStartup, events.JobBeforePerform, events.JobAfterPerform, events.JobPerformed}
	if len(got) != len(want) {
		t.Fatalf("events = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("events[%d] = %s, want %s", i, got[i], want[i])
		}
	}
}

// S2 — failing job.
func TestWorkFailingJob(t *testing.T) {
	queue := queueport.NewMemoryPort("default")
	if err := queue.Push(context.Background(), echoDescriptor("abc")); err != nil {
		t.Fatalf("Push: %v", err)
	}

	st := newTestStore(t)
	stats := statssink.NewMemorySink()
	fs := failuresink.NewRedisSink(st)
	bus, _ := newRecordingBus(t)

	boom := errors.New("boom")
	w := New(Config{
		Queues:    []queueport.Port{queue},
		Store:     st,
		StatsSink: stats,
		Factory: &stubFactory{createFn: func(*job.Descriptor) (factory.Executable, error) {
			return failingExecutable{err: boom}, nil
		}},
		FailureSink: fs,
		Bus:         bus,
		Interval:    0,
	})

	if err := w.Work(context.Background()); err != nil {
		t.Fatalf("Work: %v", err)
	}

	if n, _ := stats.Get(context.Background(), "processed"); n != 0 {
		t.Errorf("processed = %d, want 0", n)
	}
	if n, _ := stats.Get(context.Background(), "failed"); n != 1 {
		t.Errorf("failed = %d, want 1", n)
	}
	if n, _ := fs.Count(context.Background()); n != 1 {
		t.Errorf("failure count = %d, want 1", n)
	}
}

// S3 — invalid job: the factory rejects the descriptor with ErrInvalidJob,
// as the Registry does for a constructor that yields no Executable.
func TestWorkInvalidJob(t *testing.T) {
	queue := queueport.NewMemoryPort("default")
	if err := queue.Push(context.Background(), echoDescriptor("abc")); err != nil {
		t.Fatalf("Push: %v", err)
	}

	st := newTestStore(t)
	stats := statssink.NewMemorySink()
	fs := failuresink.NewRedisSink(st)
	bus, _ := newRecordingBus(t)

	w := New(Config{
		Queues:    []queueport.Port{queue},
		Store:     st,
		StatsSink: stats,
		Factory: &stubFactory{createFn: func(d *job.Descriptor) (factory.Executable, error) {
			return nil, &factory.ErrInvalidJob{Class: d.Class, Reason: "no perform capability"}
		}},
		FailureSink: fs,
		Bus:         bus,
		Interval:    0,
	})

	if err := w.Work(context.Background()); err != nil {
		t.Fatalf("Work: %v", err)
	}

	if n, _ := fs.Count(context.Background()); n != 1 {
		t.Fatalf("failure count = %d, want 1", n)
	}
	if queue.Len() != 0 {
		t.Errorf("queue still has %d descriptors, want 0 (loop must continue)", queue.Len())
	}
}

// S4 — queue ordering: higher-priority queue drains first.
func TestWorkQueueOrdering(t *testing.T) {
	high := queueport.NewMemoryPort("high")
	low := queueport.NewMemoryPort("low")
	if err := low.Push(context.Background(), job.New("EchoJob", nil, "j1")); err != nil {
		t.Fatalf("Push low: %v", err)
	}
	if err := high.Push(context.Background(), job.New("EchoJob", nil, "j2")); err != nil {
		t.Fatalf("Push high: %v", err)
	}

	st := newTestStore(t)
	stats := statssink.NewMemorySink()
	bus, _ := newRecordingBus(t)

	var order []string
	var mu sync.Mutex
	w := New(Config{
		Queues:    []queueport.Port{high, low},
		Store:     st,
		StatsSink: stats,
		Factory: &stubFactory{createFn: func(d *job.Descriptor) (factory.Executable, error) {
			mu.Lock()
			order = append(order, d.ID)
			mu.Unlock()
			return noopExecutable{}, nil
		}},
		Bus:      bus,
		Interval: 0,
	})

	// interval 0 drains every queued descriptor in one Work call, stopping
	// only once every queue reports empty.
	if err := w.Work(context.Background()); err != nil {
		t.Fatalf("Work: %v", err)
	}

	if len(order) != 2 || order[0] != "j2" || order[1] != "j1" {
		t.Errorf("order = %v, want [j2 j1]", order)
	}
}

// S5 — pause/resume: a job queued before Work starts is only processed
// after resume, never before, and the title reads "Paused" during the
// pause.
func TestWorkPauseResume(t *testing.T) {
	queue := queueport.NewMemoryPort("default")
	if err := queue.Push(context.Background(), echoDescriptor("abc")); err != nil {
		t.Fatalf("Push: %v", err)
	}

	st := newTestStore(t)
	stats := statssink.NewMemorySink()
	bus, _ := newRecordingBus(t)

	w := New(Config{
		Queues:    []queueport.Port{queue},
		Store:     st,
		StatsSink: stats,
		Factory:   &stubFactory{createFn: func(*job.Descriptor) (factory.Executable, error) { return noopExecutable{}, nil }},
		Bus:       bus,
		Interval:  20 * time.Millisecond,
	})

	w.RequestPause()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Work(ctx) }()

	time.Sleep(60 * time.Millisecond)
	if w.Title() != "Paused" {
		t.Errorf("Title during pause = %q, want %q", w.Title(), "Paused")
	}
	if n, _ := stats.Get(context.Background(), "processed"); n != 0 {
		t.Fatalf("processed = %d during pause, want 0", n)
	}

	w.RequestResume()

	deadline := time.After(2 * time.Second)
	for {
		n, _ := stats.Get(context.Background(), "processed")
		if n == 1 {
			break
		}
		select {
		case <-deadline:
			t.Fatal("job was not processed after resume")
		case <-time.After(10 * time.Millisecond):
		}
	}

	w.RequestShutdown()
	cancel()
	<-done
}

// S6 — dirty exit (fork mode): child exits non-zero, parent reaps and
// records a dirty-exit failure, then the loop continues.
func TestWorkDirtyExitForkMode(t *testing.T) {
	queue := queueport.NewMemoryPort("default")
	if err := queue.Push(context.Background(), echoDescriptor("abc")); err != nil {
		t.Fatalf("Push: %v", err)
	}

	st := newTestStore(t)
	stats := statssink.NewMemorySink()
	fs := failuresink.NewRedisSink(st)
	bus, _ := newRecordingBus(t)

	fman := &fakeForeman{child: &fakeChild{pid: 4242, status: 2}}

	w := New(Config{
		Queues:      []queueport.Port{queue},
		Store:       st,
		FailureSink: fs,
		StatsSink:   stats,
		Factory:     &stubFactory{createFn: func(*job.Descriptor) (factory.Executable, error) { return noopExecutable{}, nil }},
		Bus:         bus,
		Foreman:     fman,
		Fork:        true,
		Interval:    0,
	})

	if err := w.Work(context.Background()); err != nil {
		t.Fatalf("Work: %v", err)
	}

	if n, _ := fs.Count(context.Background()); n != 1 {
		t.Fatalf("failure count = %d, want 1", n)
	}
	if n, _ := stats.Get(context.Background(), "failed"); n != 1 {
		t.Errorf("failed = %d, want 1", n)
	}

	raw, err := st.LIndex(context.Background(), "forgeq:failures", 0)
	if err != nil {
		t.Fatalf("LIndex: %v", err)
	}
	if !strings.Contains(raw, `"exception":"dirty-exit"`) || !strings.Contains(raw, "exit code 2") {
		t.Errorf("failure record = %s, want exception dirty-exit with exit code 2", raw)
	}
}

// blockingChild is a foreman.Child whose Wait does not return until Kill
// is called, for exercising the forced-shutdown kill path.
type blockingChild struct {
	pid      int
	killed   atomic.Bool
	killedCh chan struct{}
}

func newBlockingChild(pid int) *blockingChild {
	return &blockingChild{pid: pid, killedCh: make(chan struct{})}
}

func (c *blockingChild) PID() int { return c.pid }

func (c *blockingChild) Wait() (int, error) {
	<-c.killedCh
	return -1, nil
}

func (c *blockingChild) Kill() error {
	if c.killed.CompareAndSwap(false, true) {
		close(c.killedCh)
	}
	return nil
}

// S7 — forced shutdown (fork mode): SIGTERM/SIGINT's RequestForceShutdown
// kills the in-flight child and the resulting dirty exit is recorded as
// a failure before the loop honors shutdown (spec.md §4.9/§5).
func TestWorkForceShutdownKillsChildForkMode(t *testing.T) {
	queue := queueport.NewMemoryPort("default")
	if err := queue.Push(context.Background(), echoDescriptor("abc")); err != nil {
		t.Fatalf("Push: %v", err)
	}

	st := newTestStore(t)
	stats := statssink.NewMemorySink()
	fs := failuresink.NewRedisSink(st)
	bus, _ := newRecordingBus(t)

	child := newBlockingChild(4242)
	foremanStub := &blockingForeman{child: child}

	w := New(Config{
		Queues:      []queueport.Port{queue},
		Store:       st,
		FailureSink: fs,
		StatsSink:   stats,
		Factory:     &stubFactory{createFn: func(*job.Descriptor) (factory.Executable, error) { return noopExecutable{}, nil }},
		Bus:         bus,
		Foreman:     foremanStub,
		Fork:        true,
		Interval:    0,
	})

	done := make(chan error, 1)
	go func() { done <- w.Work(context.Background()) }()

	deadline := time.After(2 * time.Second)
	for {
		w.mu.Lock()
		pid := w.childPID
		w.mu.Unlock()
		if pid != 0 {
			break
		}
		select {
		case <-deadline:
			t.Fatal("child was never forked")
		case <-time.After(5 * time.Millisecond):
		}
	}

	w.RequestForceShutdown()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Work: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Work did not return after forced shutdown")
	}

	if !child.killed.Load() {
		t.Error("child.killed = false, want true")
	}
	if n, _ := fs.Count(context.Background()); n != 1 {
		t.Errorf("failure count = %d, want 1", n)
	}
}

// blockingForeman always forks the same preconfigured blockingChild.
type blockingForeman struct {
	child *blockingChild
}

func (f *blockingForeman) Fork(_ context.Context, _ *job.Descriptor) (foreman.Child, error) {
	return f.child, nil
}

// S8 — fork-mode event order: before-fork precedes before-perform, which
// precedes after-perform/performed (spec.md §5).
func TestWorkForkModeEventOrder(t *testing.T) {
	queue := queueport.NewMemoryPort("default")
	if err := queue.Push(context.Background(), echoDescriptor("abc")); err != nil {
		t.Fatalf("Push: %v", err)
	}

	st := newTestStore(t)
	stats := statssink.NewMemorySink()
	bus, rec := newRecordingBus(t)

	fman := &fakeForeman{child: &fakeChild{pid: 99, status: 0}}

	w := New(Config{
		Queues:    []queueport.Port{queue},
		Store:     st,
		StatsSink: stats,
		Factory:   &stubFactory{createFn: func(*job.Descriptor) (factory.Executable, error) { return noopExecutable{}, nil }},
		Bus:       bus,
		Foreman:   fman,
		Fork:      true,
		Interval:  0,
	})

	if err := w.Work(context.Background()); err != nil {
		t.Fatalf("Work: %v", err)
	}

	got := rec.snapshot()
	want := []events.Kind{
		events.WorkerStartup,
		events.WorkerBeforeFork,
		events.JobBeforePerform,
		events.JobAfterPerform,
		events.JobPerformed,
	}
	if len(got) != len(want) {
		t.Fatalf("events = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("events[%d] = %s, want %s", i, got[i], want[i])
		}
	}
}
