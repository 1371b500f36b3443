// Package worker implements the Worker (spec.md §4.7–§4.9): the
// reservation loop, fork/execute/reap orchestration, signal handling,
// and current-job bookkeeping that makes up the bulk of the core.
package worker

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/forgeq/forgeq/internal/bugcheck"
	"github.com/forgeq/forgeq/internal/events"
	"github.com/forgeq/forgeq/internal/factory"
	"github.com/forgeq/forgeq/internal/failuresink"
	"github.com/forgeq/forgeq/internal/foreman"
	"github.com/forgeq/forgeq/internal/job"
	"github.com/forgeq/forgeq/internal/logger"
	"github.com/forgeq/forgeq/internal/queueport"
	"github.com/forgeq/forgeq/internal/result"
	"github.com/forgeq/forgeq/internal/statssink"
	"github.com/forgeq/forgeq/internal/store"
)

// Config assembles a Worker's collaborators and tunables.
type Config struct {
	Queues      []queueport.Port
	Store       store.Store
	FailureSink failuresink.Sink
	StatsSink   statssink.Sink
	Factory     factory.Factory
	Bus         *events.Bus
	Foreman     foreman.Foreman // nil disables forking regardless of Fork
	Fork        bool
	Interval    time.Duration
	Logger      logger.Logger // nil uses a discarding logger
	// ResultBackend is an optional collaborator (nil-safe, matching the
	// teacher's SetResultBackend) the Worker writes a Result to after
	// each job, success or failure. Left nil, no result is recorded.
	ResultBackend result.Backend
}

// Worker runs the reservation loop described in spec.md §4.7.
type Worker struct {
	queues      []queueport.Port
	store       store.Store
	failureSink failuresink.Sink
	statsSink   statssink.Sink
	factory     factory.Factory
	bus         *events.Bus
	foreman     foreman.Foreman
	fork        bool
	interval    time.Duration
	logger      logger.Logger
	result      result.Backend

	identity *Identity

	shutdown           atomic.Bool
	forceShutdown      atomic.Bool
	paused             atomic.Bool
	killChildRequested atomic.Bool

	mu         sync.Mutex
	currentJob *job.Descriptor
	childPID   int

	title atomic.Value // string
}

// New builds a Worker from cfg. A nil FailureSink becomes a no-op sink,
// per spec.md §4.2.
func New(cfg Config) *Worker {
	names := make([]string, len(cfg.Queues))
	for i, q := range cfg.Queues {
		names[i] = q.Name()
	}

	fs := cfg.FailureSink
	if fs == nil {
		fs = failuresink.NoopSink{}
	}

	w := &Worker{
		queues:      cfg.Queues,
		store:       cfg.Store,
		failureSink: fs,
		statsSink:   cfg.StatsSink,
		factory:     cfg.Factory,
		bus:         cfg.Bus,
		foreman:     cfg.Foreman,
		fork:        cfg.Fork && cfg.Foreman != nil,
		interval:    cfg.Interval,
		logger:      cfg.Logger,
		result:      cfg.ResultBackend,
		identity:    NewIdentity(names),
	}
	w.title.Store("Starting")
	return w
}

// Title returns the worker's current process-title convention string
// (spec.md §6 "resque-<version>: <status>" best-effort; forgeq tracks
// the status half in-process since no process-title library is in the
// dependency set).
func (w *Worker) Title() string {
	return w.title.Load().(string)
}

func (w *Worker) setTitle(s string) {
	w.title.Store(s)
}

func (w *Worker) log() logger.Logger {
	if w.logger == nil {
		return logger.NoOp()
	}
	return w.logger
}

// Identity returns the worker's stable identity string.
func (w *Worker) Identity() string {
	return w.identity.String()
}

// RequestShutdown flips the shutdown flag. Safe to call from a signal
// handler — it only sets an atomic flag. The current job, if any, is
// allowed to finish (spec.md §4.9 "graceful" shutdown).
func (w *Worker) RequestShutdown() {
	w.shutdown.Store(true)
}

// RequestForceShutdown flips both the shutdown and forced-shutdown
// flags. Safe to call from a signal handler. Unlike RequestShutdown, a
// forked in-flight job is not allowed to finish: the parent-branch
// checkpoint in performForked observes forceShutdown, kills the child,
// and the dirty exit that produces is routed through handleFailure
// before the loop honors shutdown (spec.md §4.9/§5 "forced" shutdown).
func (w *Worker) RequestForceShutdown() {
	w.forceShutdown.Store(true)
	w.shutdown.Store(true)
}

// RequestPause flips the paused flag.
func (w *Worker) RequestPause() {
	w.paused.Store(true)
}

// RequestResume clears the paused flag.
func (w *Worker) RequestResume() {
	w.paused.Store(false)
}

// RequestKillChild flips the kill-child-requested flag, observed during
// the parent branch of step 6 in the reservation loop.
func (w *Worker) RequestKillChild() {
	w.killChildRequested.Store(true)
}

// Work runs the reservation loop until shutdown is requested, or — when
// interval is zero — until a single reservation attempt finds nothing
// (spec.md §4.7 step 4, supporting synchronous single-shot execution
// for tests).
func (w *Worker) Work(ctx context.Context) error {
	identity := w.identity.String()
	w.setTitle("Starting")
	w.bus.Dispatch(events.Event{Kind: events.WorkerStartup, WorkerID: identity})

	for {
		if w.shutdown.Load() {
			w.setTitle("Shutting down")
			return nil
		}

		if w.paused.Load() {
			w.setTitle("Paused")
			time.Sleep(w.interval)
			continue
		}

		d, queueName, found := w.reserve(ctx)
		if !found {
			if w.interval == 0 {
				return nil
			}
			w.setTitle(fmt.Sprintf("Waiting for %s", w.queueNames()))
			time.Sleep(w.interval)
			continue
		}

		if err := w.beginWork(ctx, d); err != nil {
			bugcheck.ProgrammerError(err.Error())
			return err
		}

		if jobErr := w.execute(ctx, d, queueName); jobErr != nil {
			w.handleFailure(ctx, d, jobErr)
		} else {
			w.incrementProcessed(ctx, identity)
		}

		if err := w.finishWork(ctx); err != nil {
			w.log().Error("failed to clear current job", "worker_id", identity, "error", err)
		}
	}
}

// reserve polls queues in order; the first non-empty Pop wins.
func (w *Worker) reserve(ctx context.Context) (*job.Descriptor, string, bool) {
	for _, q := range w.queues {
		d, err := q.Pop(ctx)
		if err == queueport.ErrEmpty {
			continue
		}
		if err != nil {
			w.log().Error("queue pop failed", "queue", q.Name(), "error", err)
			continue
		}
		return d, q.Name(), true
	}
	return nil, "", false
}

// beginWork sets current_job, publishes the Current-Job Record, and
// transitions the descriptor to running (spec.md §4.7 step 5).
// Attempting to set a non-null current job while one is already set is
// a programmer error (spec.md §3 Invariant 1).
func (w *Worker) beginWork(ctx context.Context, d *job.Descriptor) error {
	w.mu.Lock()
	if w.currentJob != nil {
		w.mu.Unlock()
		return fmt.Errorf("worker: current job already set (programmer error)")
	}
	w.currentJob = d
	w.mu.Unlock()

	if err := publishCurrentJob(ctx, w.store, w.identity.String(), d); err != nil {
		w.log().Error("failed to publish current job", "worker_id", w.identity.String(), "error", err)
	}
	_ = d.ApplyTransition(job.StateRunning)
	return nil
}

// incrementProcessed bumps the success counters (spec.md §4.7 step 7).
// Failures take the separate failed:* counters via handleFailure
// instead — a job never increments both.
func (w *Worker) incrementProcessed(ctx context.Context, identity string) {
	if err := w.statsSink.Increment(ctx, "processed"); err != nil {
		w.log().Error("stats sink increment failed", "worker_id", identity, "key", "processed", "error", err)
	}
	if err := w.statsSink.Increment(ctx, "processed:"+identity); err != nil {
		w.log().Error("stats sink increment failed", "worker_id", identity, "key", "processed:"+identity, "error", err)
	}
}

// finishWork clears current_job, which deletes the external
// worker:<id> key (spec.md §4.7 step 7, §3 Invariant 3). Runs
// regardless of whether the job succeeded or failed.
func (w *Worker) finishWork(ctx context.Context) error {
	identity := w.identity.String()

	w.mu.Lock()
	w.currentJob = nil
	w.mu.Unlock()

	return clearCurrentJob(ctx, w.store, identity)
}

func (w *Worker) queueNames() string {
	names := make([]string, len(w.queues))
	for i, q := range w.queues {
		names[i] = q.Name()
	}
	out := ""
	for i, n := range names {
		if i > 0 {
			out += ","
		}
		out += n
	}
	return out
}
