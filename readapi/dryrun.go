package readapi

import (
	"context"

	"github.com/permaweb/cu/wasmeval"
)

// DryRun evaluates overlay against processID's memory as of messageID,
// replaying any messages between the closest known checkpoint and
// messageID first on the primary worker pool, then evaluating overlay on
// the dry-run worker pool. Only the overlay evaluation itself is
// discarded rather than persisted; the memory cache
// is never touched. If the pool's admission queue is full, it returns a
// cuerr.OverloadedError the caller translates into an HTTP-429-equivalent.
func (a *API) DryRun(ctx context.Context, processID, messageID string, overlay wasmeval.Message) (wasmeval.Result, error) {
	return a.Pipeline.DryRun(ctx, processID, messageID, overlay)
}
