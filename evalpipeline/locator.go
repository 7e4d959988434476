package evalpipeline

import (
	"context"

	"golang.org/x/sync/singleflight"
)

// SchedulerLocation is where a process's Scheduler Unit lives, as resolved
// by the network's process locator.
type SchedulerLocation struct {
	URL string
}

// Locator resolves the Scheduler Unit responsible for a process.
type Locator interface {
	Locate(ctx context.Context, processID string) (SchedulerLocation, error)
}

// LocatorFunc adapts a function to a Locator.
type LocatorFunc func(ctx context.Context, processID string) (SchedulerLocation, error)

// Locate calls f.
func (f LocatorFunc) Locate(ctx context.Context, processID string) (SchedulerLocation, error) {
	return f(ctx, processID)
}

// BatchingLocator deduplicates concurrent Locate calls for the same
// processId: while one lookup for a process is in flight, later callers
// attach to it instead of issuing their own; the dedup entry is cleared as
// soon as that lookup completes, so the next call starts a fresh one. This
// is the "batch window cleared every tick" behavior the locator requires,
// since the upstream library already maintains its own longer-lived cache.
type BatchingLocator struct {
	Locator Locator

	group singleflight.Group
}

// Locate resolves processID's scheduler location, coalescing concurrent
// callers for the same process into a single underlying lookup.
func (l *BatchingLocator) Locate(ctx context.Context, processID string) (SchedulerLocation, error) {
	v, err, _ := l.group.Do(processID, func() (any, error) {
		return l.Locator.Locate(ctx, processID)
	})
	if err != nil {
		return SchedulerLocation{}, err
	}
	return v.(SchedulerLocation), nil
}
