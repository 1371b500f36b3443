package factory

import (
	"github.com/forgeq/forgeq/internal/job"
)

// Registry is a class-tag-keyed Job Factory, the generalisation of the
// teacher's handler registry: Register binds a class tag to a
// Constructor, Create resolves a descriptor's class and hands its raw
// arguments to the bound constructor.
type Registry struct {
	constructors map[string]Constructor
}

// NewRegistry builds an empty Registry.
func NewRegistry() *Registry {
	return &Registry{constructors: make(map[string]Constructor)}
}

// Register binds class to ctor. A later call with the same class
// overwrites the earlier binding.
func (r *Registry) Register(class string, ctor Constructor) {
	r.constructors[class] = ctor
}

// Count returns the number of registered classes.
func (r *Registry) Count() int {
	return len(r.constructors)
}

// Create resolves d.Class and materialises its Executable. Argument
// decoding (plain JSON vs base64-wrapped protobuf, via DecodeArguments)
// is the constructor's concern, per spec.md §4.4.
func (r *Registry) Create(d *job.Descriptor) (Executable, error) {
	ctor, ok := r.constructors[d.Class]
	if !ok {
		return nil, &ErrInvalidJob{Class: d.Class, Reason: "no constructor registered for this class"}
	}

	exec, err := ctor(d.Arguments)
	if err != nil {
		return nil, &ErrInvalidJob{Class: d.Class, Reason: err.Error()}
	}
	if exec == nil {
		return nil, &ErrInvalidJob{Class: d.Class, Reason: "constructor produced a nil executable"}
	}
	return exec, nil
}
