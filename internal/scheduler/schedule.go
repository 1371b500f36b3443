package scheduler

import (
	"encoding/json"
	"time"
)

// Schedule represents a periodic task schedule.
type Schedule struct {
	// ID is a unique identifier for the schedule.
	ID string

	// Cron expression (standard 5-field: minute hour day month weekday)
	// Examples:
	//   "0 * * * *"     - Every hour at minute 0
	//   "*/15 * * * *"  - Every 15 minutes
	//   "0 9 * * 1"     - Every Monday at 9:00 AM
	//   "0 0 1 * *"     - First day of every month at midnight
	Cron string

	// Job is the class name passed to the Job Factory on enqueue.
	Job string

	// Queue is the name of the Queue Port the enqueued descriptor is
	// pushed onto. Queue *choice*, not a per-job priority field, is how
	// this system expresses scheduling priority (a worker's queue list
	// order already does that — see internal/worker).
	Queue string

	// Arguments is the job payload, raw JSON matching the shape the
	// target class's constructor expects.
	Arguments json.RawMessage

	// Timezone for cron evaluation (default: UTC). Must be a valid IANA
	// timezone (e.g. "America/New_York", "UTC").
	Timezone string

	// Enabled flag (allows disabling without removing).
	Enabled bool

	// Description for logging/monitoring.
	Description string
}

// ScheduleState represents the runtime state of a schedule.
type ScheduleState struct {
	ID          string
	LastRun     time.Time
	NextRun     time.Time
	RunCount    int64
	LastError   string
	LastSuccess time.Time
}
