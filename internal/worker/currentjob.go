package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/forgeq/forgeq/internal/job"
	"github.com/forgeq/forgeq/internal/store"
)

// currentJobRecord is the Current-Job wire format (spec.md §6).
type currentJobRecord struct {
	Queue   string          `json:"queue"`
	RunAt   string          `json:"run_at"`
	Payload json.RawMessage `json:"payload"`
}

func currentJobKey(workerID string) string {
	return "worker:" + workerID
}

// publishCurrentJob writes the Current-Job Record for workerID. This is
// the only place the external `worker:<id>` key is created — its
// presence is exactly the condition that a worker has a non-null
// current job (spec.md §3 Invariant 3).
func publishCurrentJob(ctx context.Context, s store.Store, workerID string, d *job.Descriptor) error {
	payload, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("worker: marshal current job payload: %w", err)
	}
	rec := currentJobRecord{
		Queue:   d.OriginQueue,
		RunAt:   time.Now().UTC().Format(time.RFC3339),
		Payload: payload,
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("worker: marshal current job record: %w", err)
	}
	return s.Set(ctx, currentJobKey(workerID), string(data))
}

// clearCurrentJob deletes the Current-Job Record, the inverse of
// publishCurrentJob.
func clearCurrentJob(ctx context.Context, s store.Store, workerID string) error {
	return s.Del(ctx, currentJobKey(workerID))
}
