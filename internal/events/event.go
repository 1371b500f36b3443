// Package events implements the Event Bus capability set (spec.md
// §4.5): synchronous fan-out of lifecycle events to registered
// subscribers.
package events

import (
	"time"

	"github.com/forgeq/forgeq/internal/job"
)

// Kind enumerates the event kinds the core emits (spec.md §6).
type Kind string

const (
	WorkerStartup    Kind = "worker-startup"
	WorkerBeforeFork Kind = "worker-before-fork"
	WorkerAfterFork  Kind = "worker-after-fork"
	JobBeforePerform Kind = "job-before-perform"
	JobAfterPerform  Kind = "job-after-perform"
	JobPerformed     Kind = "job-performed"
	JobFailed        Kind = "job-failed"
)

// Event carries the context a subscriber needs for a given lifecycle
// point. Not every field is populated for every kind — worker-startup,
// for instance, has no descriptor.
type Event struct {
	Kind       Kind
	At         time.Time
	WorkerID   string
	Descriptor *job.Descriptor
	Err        error
}

// Subscriber handles one dispatched event. A returned error is logged
// and swallowed by the bus — it never aborts dispatch to later
// subscribers.
type Subscriber func(Event) error
