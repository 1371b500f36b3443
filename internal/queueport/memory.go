package queueport

import (
	"context"
	"sync"

	"github.com/forgeq/forgeq/internal/job"
)

// MemoryPort is an in-process FIFO Queue Port, used by tests and by
// callers that want the core's semantics without a Redis dependency.
type MemoryPort struct {
	mu   sync.Mutex
	name string
	fifo []*job.Descriptor
}

// NewMemoryPort builds an empty in-memory Queue Port named name.
func NewMemoryPort(name string) *MemoryPort {
	return &MemoryPort{name: name}
}

func (p *MemoryPort) Name() string { return p.name }

func (p *MemoryPort) Push(_ context.Context, d *job.Descriptor) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.fifo = append(p.fifo, d)
	return nil
}

func (p *MemoryPort) Pop(_ context.Context) (*job.Descriptor, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.fifo) == 0 {
		return nil, ErrEmpty
	}
	d := p.fifo[0]
	p.fifo = p.fifo[1:]
	d.OriginQueue = p.name
	return d, nil
}

// Len reports the number of descriptors currently queued, for tests.
func (p *MemoryPort) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.fifo)
}
