package evalpipeline

import (
	"context"

	"github.com/permaweb/cu/cuerr"
	"github.com/permaweb/cu/internal/mlog"
	"github.com/permaweb/cu/wasmeval"
)

// DryRun locates the closest known memory at or before messageID, replays
// the process up to messageID's ordinate exactly as Run would (persisting
// each replayed evaluation, so repeat dry-runs against the same prefix
// are cheap via applyMessage's dedup), and evaluates overlay on top of the
// result using the dry-run pool. Only the overlay evaluation itself is
// never persisted and never reaches the memory cache. If the dry-run
// pool's admission queue is full, it returns a cuerr.OverloadedError.
func (p *Pipeline) DryRun(ctx context.Context, processID, messageID string, overlay wasmeval.Message) (wasmeval.Result, error) {
	proc, err := p.resolveProcess(ctx, processID)
	if err != nil {
		return wasmeval.Result{}, err
	}
	if err := p.Admission.AllowsProcess(proc); err != nil {
		return wasmeval.Result{}, err
	}

	mod, err := p.resolveModule(ctx, proc.ModuleID)
	if err != nil {
		return wasmeval.Result{}, err
	}
	if err := p.Admission.AllowsModule(mod); err != nil {
		return wasmeval.Result{}, err
	}

	meta, err := p.SU.LoadMessageMeta(ctx, messageID)
	if err != nil {
		return wasmeval.Result{}, err
	}

	mem, err := p.Checkpoints.FindLatestProcessMemoryBefore(ctx, processID, meta.Ordinate)
	if err != nil {
		return wasmeval.Result{}, err
	}

	binary, err := p.Modules.Load(ctx, mod.ID)
	if err != nil {
		return wasmeval.Result{}, err
	}

	mem, _, err = p.replayTo(ctx, proc, mod, binary, mem, meta.Ordinate)
	if err != nil {
		return wasmeval.Result{}, err
	}

	task := &evalTask{
		evaluator: p.Evaluator,
		source:    mem.Memory,
		moduleID:  mod.ID,
		binary:    binary.Binary,
		options:   mod.ModuleOptions,
		message:   overlay,
	}

	if err := p.Pools.DryRun.Submit(ctx, task); err != nil {
		if cuerr.IsOverloaded(err) {
			mlog.LogAdmissionRejected(p.Logger, "dry-run", processID, 0)
		}
		return wasmeval.Result{}, err
	}

	return task.result, nil
}
