package worker

import (
	"context"
	"fmt"

	"github.com/forgeq/forgeq/internal/events"
	"github.com/forgeq/forgeq/internal/job"
)

// dirtyExitError represents a child process that exited non-zero
// (spec.md §7 "dirty-exit").
type dirtyExitError struct {
	status int
}

func (e *dirtyExitError) Error() string {
	return fmt.Sprintf("dirty-exit: exit code %d", e.status)
}

func (e *dirtyExitError) Kind() string { return "dirty-exit" }

// handleFailure is the Worker failure handler (spec.md §4.8). It must
// never itself raise: every error from the failure sink or stats sink
// is logged and swallowed so the reservation loop keeps running.
func (w *Worker) handleFailure(ctx context.Context, d *job.Descriptor, jobErr error) {
	identity := w.identity.String()

	w.log().Error("job failed", "worker_id", identity, "job_id", d.ID, "class", d.Class, "queue", d.OriginQueue, "error", jobErr)

	if err := w.failureSink.Save(ctx, d, jobErr, d.OriginQueue, identity); err != nil {
		w.log().Error("failure sink save failed", "worker_id", identity, "job_id", d.ID, "error", err)
	}

	if err := w.statsSink.Increment(ctx, "failed"); err != nil {
		w.log().Error("stats sink increment failed", "worker_id", identity, "key", "failed", "error", err)
	}
	if err := w.statsSink.Increment(ctx, "failed:"+identity); err != nil {
		w.log().Error("stats sink increment failed", "worker_id", identity, "key", "failed:"+identity, "error", err)
	}

	w.bus.Dispatch(events.Event{
		Kind:       events.JobFailed,
		WorkerID:   identity,
		Descriptor: d,
		Err:        jobErr,
	})
}
