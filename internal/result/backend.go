// Package result provides backend interfaces and implementations for
// storing and retrieving job results, keyed by job.Descriptor id — a
// supplemented feature alongside the core reservation loop, not part of
// its critical path.
package result

import (
	"context"
	"encoding/json"
	"time"

	"github.com/forgeq/forgeq/internal/job"
)

// Result records the outcome of a single job execution.
type Result struct {
	JobID       string
	State       job.State
	Payload     json.RawMessage
	Error       string
	CompletedAt time.Time
	Duration    time.Duration
}

// IsSuccess reports whether the job completed without error.
func (r *Result) IsSuccess() bool {
	return r.State == job.StateComplete
}

// IsFailed reports whether the job ended in the failed state.
func (r *Result) IsFailed() bool {
	return r.State == job.StateFailed
}

// Backend defines the interface for storing and retrieving job results.
type Backend interface {
	// StoreResult stores a job result in the backend.
	StoreResult(ctx context.Context, result *Result) error

	// GetResult retrieves a job result by job ID. Returns nil if the
	// result doesn't exist (job not yet complete or result expired).
	GetResult(ctx context.Context, jobID string) (*Result, error)

	// WaitForResult blocks until a result is available or the timeout is
	// reached. Returns nil and no error if the timeout is reached.
	WaitForResult(ctx context.Context, jobID string, timeout time.Duration) (*Result, error)

	// DeleteResult removes a result from the backend. Does not error if
	// the result doesn't exist.
	DeleteResult(ctx context.Context, jobID string) error

	// Close closes any connections used by the backend.
	Close() error
}
