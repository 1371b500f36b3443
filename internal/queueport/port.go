// Package queueport defines the Queue Port abstraction (spec.md §4.1): an
// ordered FIFO source of job descriptors the Worker polls each iteration.
package queueport

import (
	"context"
	"errors"

	"github.com/forgeq/forgeq/internal/job"
)

// ErrEmpty is returned by Pop when the queue currently holds nothing.
// It is not a failure — the Worker treats it identically to a bounded
// blocking pop that timed out.
var ErrEmpty = errors.New("queueport: empty")

// Port is the Queue Port capability set. Implementations may block for
// a bounded interval inside Pop or return immediately; the Worker does
// not distinguish between the two.
type Port interface {
	// Pop removes and returns the next descriptor, or ErrEmpty if none
	// is available.
	Pop(ctx context.Context) (*job.Descriptor, error)

	// Name is the stable identifier used in worker identity composition
	// and log context.
	Name() string

	// Push is the inverse of Pop, used by producers and by the Worker
	// only when re-queueing. Not exercised by the core reservation loop.
	Push(ctx context.Context, d *job.Descriptor) error
}
