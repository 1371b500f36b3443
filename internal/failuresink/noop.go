package failuresink

import (
	"context"

	"github.com/forgeq/forgeq/internal/job"
)

// NoopSink discards every failure. The Worker uses this when no sink is
// configured (spec.md §4.2).
type NoopSink struct{}

func (NoopSink) Save(context.Context, *job.Descriptor, error, string, string) error { return nil }
func (NoopSink) Count(context.Context) (int64, error)                              { return 0, nil }
func (NoopSink) Clear(context.Context) error                                       { return nil }
