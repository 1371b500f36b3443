// Package factory defines the Job Factory capability set (spec.md §4.4):
// given a descriptor, materialise an object exposing a single Perform
// operation.
package factory

import (
	"encoding/json"
	"fmt"

	"github.com/forgeq/forgeq/internal/job"
)

// Executable is the capability a Job Factory must produce: a single
// zero-argument operation whose success is the absence of a returned
// error.
type Executable interface {
	Perform() error
}

// ErrInvalidJob is returned when a factory cannot resolve a descriptor's
// class tag, or when argument injection fails.
type ErrInvalidJob struct {
	Class  string
	Reason string
}

func (e *ErrInvalidJob) Error() string {
	return fmt.Sprintf("factory: invalid-job %q: %s", e.Class, e.Reason)
}

// Kind identifies this error's exception kind for failure records
// (spec.md §7 "invalid-job").
func (e *ErrInvalidJob) Kind() string { return "invalid-job" }

// Factory is the Job Factory capability set.
type Factory interface {
	Create(d *job.Descriptor) (Executable, error)
}

// Constructor builds an Executable from a descriptor's raw arguments.
// Implementations decide their own argument shape; the Registry hands
// the arguments over unchanged, and a constructor decodes them itself
// (for example with DecodeArguments, which detects JSON vs protobuf).
type Constructor func(arguments json.RawMessage) (Executable, error)
