// Package bugcheck recovers from panics raised inside job execution and
// distinguishes them from genuine programmer errors in the core itself
// (spec.md §7): the former become ordinary job failures, the latter are
// fatal.
package bugcheck

import (
	"fmt"
	"os"
	"runtime/debug"
	"strings"
)

// PanicError wraps a recovered panic value together with its stack
// trace, split into individual frames for use in a Failure Record's
// backtrace field.
type PanicError struct {
	Value      interface{}
	Stacktrace string
}

func (p *PanicError) Error() string {
	return fmt.Sprintf("panic recovered: %v", p.Value)
}

// Frames splits the captured stack trace into individual lines, for
// callers building a Failure Record's backtrace field.
func (p *PanicError) Frames() []string {
	return strings.Split(strings.TrimRight(p.Stacktrace, "\n"), "\n")
}

// RecoverJobPanic recovers a panic raised while executing a job and
// returns it as an error. Returns nil if no panic occurred. Intended for
// use around a job's perform() call — a panicking job is a failed job,
// not a fatal condition for the worker process.
func RecoverJobPanic() error {
	if r := recover(); r != nil {
		return &PanicError{
			Value:      r,
			Stacktrace: string(debug.Stack()),
		}
	}
	return nil
}

// FormatForLog returns a formatted string suitable for logging a
// recovered job panic.
func FormatForLog(p *PanicError) string {
	return fmt.Sprintf("PANIC: %v\n\nStack Trace:\n%s", p.Value, p.Stacktrace)
}

// ProgrammerError reports a violated core invariant (spec.md §3
// Invariant 1 — setting current_job while one is already set). Unlike a
// job panic, this is never a failed job; the process cannot safely
// continue and must exit.
func ProgrammerError(msg string) {
	fmt.Fprintf(os.Stderr, "forgeq: programmer error: %s\n%s\n", msg, debug.Stack())
	os.Exit(2)
}
