package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/forgeq/forgeq/internal/bugcheck"
	"github.com/forgeq/forgeq/internal/events"
	"github.com/forgeq/forgeq/internal/foreman"
	"github.com/forgeq/forgeq/internal/job"
	"github.com/forgeq/forgeq/internal/result"
)

// execute runs step 6 of the reservation loop: perform the job, either
// inline or in a forked child, and report the outcome. A non-nil return
// is routed to handleFailure by the caller — job-failed is dispatched
// there, not here.
func (w *Worker) execute(ctx context.Context, d *job.Descriptor, queueName string) error {
	identity := w.identity.String()

	start := time.Now()
	var err error
	if !w.fork {
		err = w.performInline(d)
	} else {
		err = w.performForked(ctx, d)
	}
	duration := time.Since(start)

	if err != nil {
		_ = d.ApplyTransition(job.StateFailed)
		w.storeResult(ctx, d, duration, err.Error())
		return err
	}

	w.bus.Dispatch(events.Event{Kind: events.JobAfterPerform, WorkerID: identity, Descriptor: d})
	w.bus.Dispatch(events.Event{Kind: events.JobPerformed, WorkerID: identity, Descriptor: d})
	_ = d.ApplyTransition(job.StateComplete)
	w.storeResult(ctx, d, duration, "")
	return nil
}

// storeResult writes an outcome to the optional result backend, if one
// is configured. Never returns an error — a backend failure is logged
// and swallowed, matching handleFailure's never-raise contract.
func (w *Worker) storeResult(ctx context.Context, d *job.Descriptor, duration time.Duration, jobErr string) {
	if w.result == nil {
		return
	}

	r := &result.Result{
		JobID:       d.ID,
		State:       d.State,
		Error:       jobErr,
		CompletedAt: time.Now(),
		Duration:    duration,
	}
	if err := w.result.StoreResult(ctx, r); err != nil {
		w.log().Error("result backend store failed", "worker_id", w.identity.String(), "job_id", d.ID, "error", err)
	}
}

// performInline builds and runs the job's Executable in-process, with
// panic recovery (spec.md §7 "job-perform-error").
func (w *Worker) performInline(d *job.Descriptor) error {
	w.bus.Dispatch(events.Event{Kind: events.JobBeforePerform, WorkerID: w.identity.String(), Descriptor: d})

	executable, err := w.factory.Create(d)
	if err != nil {
		return err
	}
	return performRecovered(executable)
}

// performForked hands the job to the Foreman and waits for the child to
// exit, synthesising a dirty-exit failure on a non-zero status.
//
// Event order follows spec.md §5: before-fork is dispatched first, and
// before-perform is held until after the Foreman has actually forked —
// the parent's only observable stand-in for the child's after-fork
// event, which runs in a separate process and its own Bus.
//
// The child is a freshly spawned process, not a POSIX fork of this one
// (internal/foreman), so it never inherits the parent's Redis
// connection in the first place — spec.md §3 Invariant 4's "disconnect
// before forking" is satisfied by construction rather than by an
// explicit teardown/reconnect step.
func (w *Worker) performForked(ctx context.Context, d *job.Descriptor) error {
	identity := w.identity.String()
	w.bus.Dispatch(events.Event{Kind: events.WorkerBeforeFork, WorkerID: identity, Descriptor: d})

	child, err := w.foreman.Fork(ctx, d)
	if errors.Is(err, foreman.ErrForkUnsupported) {
		w.fork = false
		w.log().Error("fork unsupported, degrading to inline execution for remainder of worker lifetime", "worker_id", identity)
		return w.performInline(d)
	}
	if err != nil {
		return fmt.Errorf("worker: fork job: %w", err)
	}

	w.bus.Dispatch(events.Event{Kind: events.JobBeforePerform, WorkerID: identity, Descriptor: d})

	w.mu.Lock()
	w.childPID = child.PID()
	w.mu.Unlock()
	w.setTitle(fmt.Sprintf("Forked %d at %s", child.PID(), time.Now().UTC().Format(time.RFC3339)))

	status, waitErr := w.waitForChild(child)

	w.mu.Lock()
	w.childPID = 0
	w.mu.Unlock()

	if waitErr != nil {
		return fmt.Errorf("worker: wait for child: %w", waitErr)
	}
	if status != 0 {
		return &dirtyExitError{status: status}
	}
	return nil
}

// waitForChild blocks on child.Wait while polling killChildRequested and
// forceShutdown, so a signal received mid-job still reaches the child
// promptly instead of waiting for it to exit on its own (spec.md §4.7
// edge cases; §4.9/§5 forced shutdown).
func (w *Worker) waitForChild(child foreman.Child) (int, error) {
	stop := make(chan struct{})
	go func() {
		ticker := time.NewTicker(50 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				if w.killChildRequested.Load() {
					_ = child.Kill()
					w.killChildRequested.Store(false)
					return
				}
				if w.forceShutdown.Load() {
					_ = child.Kill()
					return
				}
			}
		}
	}()
	status, err := child.Wait()
	close(stop)
	return status, err
}

// performRecovered runs executable.Perform(), converting any panic into
// a job-perform-error (spec.md §7) instead of crashing the worker.
func performRecovered(executable interface{ Perform() error }) (err error) {
	defer func() {
		if panicErr := bugcheck.RecoverJobPanic(); panicErr != nil {
			err = panicErr
		}
	}()
	return executable.Perform()
}
