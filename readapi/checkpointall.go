package readapi

import (
	"context"
	"sync"

	"github.com/dogmatiq/dodeca/logging"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	"github.com/permaweb/cu/domain"
)

// checkpointRun is the shared future behind one checkpointAll sweep.
type checkpointRun struct {
	done chan struct{}
	err  error
}

// CheckpointAll snapshots the memory cache and checkpoints every entry
// with bounded parallelism. Concurrent callers attach to the run already
// in progress instead of each starting their own sweep. It never fails
// for an individual checkpoint failure — those are logged, not returned.
func (a *API) CheckpointAll(ctx context.Context) error {
	a.m.Lock()
	if run := a.checkpointing; run != nil {
		a.m.Unlock()
		<-run.done
		return run.err
	}

	run := &checkpointRun{done: make(chan struct{})}
	a.checkpointing = run
	a.m.Unlock()

	err := a.runCheckpointAll(ctx)

	a.m.Lock()
	a.checkpointing = nil
	a.m.Unlock()

	run.err = err
	close(run.done)

	return err
}

func (a *API) runCheckpointAll(ctx context.Context) error {
	if a.Cache == nil {
		return nil
	}

	var mems []domain.ProcessMemory
	a.Cache.ForEach(func(_ string, mem domain.ProcessMemory) {
		mems = append(mems, mem)
	})

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(10)

	var (
		mu       sync.Mutex
		failures error
	)

	for _, mem := range mems {
		mem := mem
		g.Go(func() error {
			if err := a.Checkpoints.SaveCheckpoint(gctx, mem); err != nil {
				mu.Lock()
				failures = multierr.Append(failures, err)
				mu.Unlock()
			}
			return nil
		})
	}

	_ = g.Wait()

	if failures != nil {
		logging.Debug(a.Logger, "checkpointAll: %s", failures)
	}

	return nil
}
