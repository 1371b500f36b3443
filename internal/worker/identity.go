package worker

import (
	"fmt"
	"os"
	"strings"
	"sync"
)

// Identity is the Worker Identity (spec.md §3):
// "<hostname>:<process-id>:<comma-joined queue names>". It is derived
// lazily on first request and stable for the worker's lifetime.
type Identity struct {
	mu       sync.Mutex
	queues   []string
	resolved string
}

// NewIdentity builds an Identity for a worker polling queueNames, in
// order.
func NewIdentity(queueNames []string) *Identity {
	return &Identity{queues: queueNames}
}

// String returns the worker's identity, computing it on first call.
func (id *Identity) String() string {
	id.mu.Lock()
	defer id.mu.Unlock()

	if id.resolved != "" {
		return id.resolved
	}

	host, err := os.Hostname()
	if err != nil {
		host = "unknown-host"
	}
	id.resolved = fmt.Sprintf("%s:%d:%s", host, os.Getpid(), strings.Join(id.queues, ","))
	return id.resolved
}
