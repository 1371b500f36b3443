// Package foreman implements the Foreman capability set (spec.md §4.6):
// splitting the worker process into parent and child so a job executes
// in isolation from the reservation loop.
//
// Go cannot safely call POSIX fork() in a process with live goroutines,
// so Foreman spawns a fresh copy of the running binary instead, handing
// it the job descriptor on stdin — the subprocess substitution spec.md
// §9 explicitly sanctions for languages without fork.
package foreman

import (
	"context"
	"errors"

	"github.com/forgeq/forgeq/internal/job"
)

// ErrForkUnsupported is returned by Fork when the platform cannot spawn
// a child process. The Worker degrades to inline execution for the
// remainder of its life when it sees this error.
var ErrForkUnsupported = errors.New("foreman: fork-unsupported")

// Child is a handle to a forked job's child process.
type Child interface {
	// PID returns the child's process id.
	PID() int

	// Wait blocks until the child exits and returns its exit status. A
	// non-zero status (without a Go-level error) is reported as status,
	// not err — the caller (Worker) is responsible for turning that into
	// a dirty-exit failure.
	Wait() (status int, err error)

	// Kill sends SIGKILL to the child, satisfying the kill-child-requested
	// transition (spec.md §4.7 edge cases).
	Kill() error
}

// Foreman is the process-forking primitive.
type Foreman interface {
	// Fork spawns a child to execute d and returns a handle to it.
	// Returns ErrForkUnsupported if the platform cannot spawn a child.
	Fork(ctx context.Context, d *job.Descriptor) (Child, error)
}
