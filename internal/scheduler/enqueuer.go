package scheduler

import (
	"context"
	"fmt"

	"github.com/forgeq/forgeq/internal/job"
	"github.com/forgeq/forgeq/internal/queueport"
)

// PortEnqueuer implements Enqueuer over a fixed set of named Queue
// Ports, the shape cmd/scheduler wires at startup.
type PortEnqueuer struct {
	ports map[string]queueport.Port
}

// NewPortEnqueuer builds a PortEnqueuer from the given ports, keyed by
// each port's own Name().
func NewPortEnqueuer(ports ...queueport.Port) *PortEnqueuer {
	byName := make(map[string]queueport.Port, len(ports))
	for _, p := range ports {
		byName[p.Name()] = p
	}
	return &PortEnqueuer{ports: byName}
}

// Enqueue pushes d onto the named port, or fails if no port by that
// name was registered.
func (e *PortEnqueuer) Enqueue(ctx context.Context, queueName string, d *job.Descriptor) error {
	port, ok := e.ports[queueName]
	if !ok {
		return fmt.Errorf("scheduler: no queue port named %q", queueName)
	}
	return port.Push(ctx, d)
}
