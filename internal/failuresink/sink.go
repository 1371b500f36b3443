// Package failuresink defines the Failure Sink capability set (spec.md
// §4.2): persistence for Failure Records, with count and clear.
package failuresink

import (
	"context"
	"time"

	"github.com/forgeq/forgeq/internal/job"
)

// Record is the Failure Record shape from spec.md §3.
type Record struct {
	FailedAt  time.Time       `json:"failed_at"`
	Payload   *job.Descriptor `json:"payload"`
	Exception string          `json:"exception"`
	Error     string          `json:"error"`
	Backtrace []string        `json:"backtrace"`
	Worker    string          `json:"worker"`
	Queue     string          `json:"queue"`
}

// Sink is polymorphic over {save, count, clear}. A no-op variant is
// acceptable — the Worker instantiates one when none is supplied.
type Sink interface {
	// Save persists a Failure Record for descriptor d, which failed with
	// err while popped from queue, processed by worker workerID.
	Save(ctx context.Context, d *job.Descriptor, err error, queue, workerID string) error

	// Count returns the total number of recorded failures.
	Count(ctx context.Context) (int64, error)

	// Clear removes all recorded failures.
	Clear(ctx context.Context) error
}
