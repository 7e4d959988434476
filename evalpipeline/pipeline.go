// Package evalpipeline orchestrates a single process's replay: resolving
// its identity and module, locating the closest known memory, streaming
// messages from the Scheduler Unit, dispatching each through the worker
// pool, and persisting the results.
package evalpipeline

import (
	"context"
	"errors"

	"github.com/dogmatiq/dodeca/logging"

	"github.com/permaweb/cu/blockcache"
	"github.com/permaweb/cu/checkpoint"
	"github.com/permaweb/cu/config"
	"github.com/permaweb/cu/cuerr"
	"github.com/permaweb/cu/domain"
	"github.com/permaweb/cu/internal/mlog"
	"github.com/permaweb/cu/memcache"
	"github.com/permaweb/cu/ordinate"
	"github.com/permaweb/cu/persistence"
	"github.com/permaweb/cu/suclient"
	"github.com/permaweb/cu/wasmeval"
	"github.com/permaweb/cu/wasmmodule"
	"github.com/permaweb/cu/workerpool"
)

// Pipeline wires together every collaborator named in the data flow for
// readState: persistence, the memory cache, the checkpoint store, the
// module loader, the SU client, the worker pools, the evaluator, and the
// scheduler locator.
type Pipeline struct {
	Store       persistence.Store
	Cache       *memcache.Cache
	Checkpoints *checkpoint.Pipeline
	Modules     *wasmmodule.Loader
	SU          *suclient.Client
	Locator     Locator
	Pools       *workerpool.Pools
	Evaluator   wasmeval.Evaluator
	Config      config.Config
	Admission   Admission
	Blocks      *blockcache.Cache
	Logger      logging.Logger
}

// Run replays processID's message log from the closest known memory up to
// (and including) to, persisting every evaluation along the way, and
// returns the terminal evaluation reached.
//
// If no message advances the process (the log is already caught up to
// to), Run returns an evaluation built from the starting memory's
// position: its ordinate, timestamp, cron flag and accumulated gas, with
// no message id or output. The store is not consulted for it, and a
// process that has never run yields ordinate zero.
func (p *Pipeline) Run(ctx context.Context, processID string, to ordinate.Ordinate) (domain.Evaluation, error) {
	proc, err := p.resolveProcess(ctx, processID)
	if err != nil {
		return domain.Evaluation{}, err
	}
	if err := p.Admission.AllowsProcess(proc); err != nil {
		return domain.Evaluation{}, err
	}

	mod, err := p.resolveModule(ctx, proc.ModuleID)
	if err != nil {
		return domain.Evaluation{}, err
	}
	if err := p.Admission.AllowsModule(mod); err != nil {
		return domain.Evaluation{}, err
	}

	if p.Locator != nil {
		if _, err := p.Locator.Locate(ctx, processID); err != nil {
			return domain.Evaluation{}, err
		}
	}

	mem, err := p.Checkpoints.FindLatestProcessMemoryBefore(ctx, processID, to)
	if err != nil {
		return domain.Evaluation{}, err
	}

	binary, err := p.Modules.Load(ctx, mod.ID)
	if err != nil {
		return domain.Evaluation{}, err
	}

	mem, terminal, err := p.replayTo(ctx, proc, mod, binary, mem, to)
	if err != nil {
		return domain.Evaluation{}, err
	}

	if p.Cache != nil {
		p.Cache.Set(ctx, processID, mem)
	}

	return terminal, nil
}

// replayTo streams proc's message log from mem's position up to (and
// including) to, persisting every evaluation along the way via
// applyMessage, and returns the process memory and terminal evaluation
// reached. Both Run and DryRun use it to reach a target ordinate before
// doing their own thing with the result. replayTo itself never writes to
// the memory cache: Run caches the memory it returns, DryRun does not.
func (p *Pipeline) replayTo(
	ctx context.Context,
	proc domain.Process,
	mod domain.Module,
	binary wasmmodule.Compiled,
	mem domain.ProcessMemory,
	to ordinate.Ordinate,
) (domain.ProcessMemory, domain.Evaluation, error) {
	cursor, err := p.SU.LoadMessages(ctx, proc.ID, mem.Evaluation.Ordinate, to)
	if err != nil {
		return mem, domain.Evaluation{}, err
	}
	defer cursor.Close()

	terminal := evaluationFromMemory(mem)
	var accumulatedGas uint64

	for {
		msg, err := cursor.Next(ctx)
		if err != nil {
			if errors.Is(err, suclient.ErrExhausted) {
				break
			}
			return mem, domain.Evaluation{}, err
		}

		eval, next, advanced, err := p.applyMessage(ctx, proc, mod, binary, mem, msg)
		if err != nil {
			return mem, domain.Evaluation{}, err
		}
		if !advanced {
			continue
		}

		terminal = eval
		mem = next
		accumulatedGas += eval.GasUsed

		if accumulatedGas >= p.Config.EagerCheckpointAccumulatedGasLimit {
			go p.Checkpoints.SaveCheckpoint(context.WithoutCancel(ctx), mem)
			accumulatedGas = 0
		}
	}

	return mem, terminal, nil
}

func (p *Pipeline) resolveProcess(ctx context.Context, processID string) (domain.Process, error) {
	proc, err := p.Store.FindProcess(ctx, processID)
	if err == nil {
		return proc, nil
	}
	if !cuerr.IsNotFound(err) {
		return domain.Process{}, err
	}

	proc, err = p.SU.LoadProcess(ctx, processID)
	if err != nil {
		return domain.Process{}, err
	}

	if err := p.Store.SaveProcess(ctx, proc); err != nil {
		return domain.Process{}, err
	}

	return proc, nil
}

func (p *Pipeline) resolveModule(ctx context.Context, moduleID string) (domain.Module, error) {
	mod, err := p.Store.FindModule(ctx, moduleID)
	if err == nil {
		return mod, nil
	}
	if !cuerr.IsNotFound(err) {
		return domain.Module{}, err
	}

	mod = domain.Module{ID: moduleID}
	if err := p.Store.SaveModule(ctx, mod); err != nil {
		return domain.Module{}, err
	}

	return mod, nil
}

// applyMessage evaluates a single message, short-circuiting if it has
// already been applied. advanced is false when the message was skipped
// as a duplicate, in which case mem is unchanged.
func (p *Pipeline) applyMessage(
	ctx context.Context,
	proc domain.Process,
	mod domain.Module,
	binary wasmmodule.Compiled,
	mem domain.ProcessMemory,
	msg suclient.Message,
) (eval domain.Evaluation, next domain.ProcessMemory, advanced bool, err error) {
	identity := messageIdentity(proc.ID, msg)

	if prior, err := p.Store.FindMessageBefore(ctx, identity); err == nil {
		return prior, mem, false, nil
	} else if !cuerr.IsNotFound(err) {
		return domain.Evaluation{}, mem, false, err
	}

	mlog.LogEvaluate(p.Logger, proc.ID, string(msg.Ordinate), msg.MessageID, 0)

	task := &evalTask{
		evaluator: p.Evaluator,
		source:    mem.Memory,
		moduleID:  mod.ID,
		binary:    binary.Binary,
		options:   mod.ModuleOptions,
		message: wasmeval.Message{
			Tags:  msg.Tags,
			Data:  msg.Data,
			Cron:  msg.Cron,
			Block: msg.Block,
		},
	}

	runErr := p.Pools.Primary.Submit(ctx, task)
	mlog.LogEvaluated(p.Logger, proc.ID, string(msg.Ordinate), task.result.GasUsed, &runErr)
	if runErr != nil {
		return domain.Evaluation{}, mem, false, runErr
	}

	if p.Blocks != nil {
		if _, err := p.Blocks.Ensure(ctx, msg.Block); err != nil {
			return domain.Evaluation{}, mem, false, err
		}
	}

	eval = domain.Evaluation{
		EvaluationIdentity: domain.EvaluationIdentity{
			ProcessID: proc.ID,
			Ordinate:  msg.Ordinate,
			Cron:      msg.Cron,
			Timestamp: msg.Timestamp,
		},
		MessageID: msg.MessageID,
		DeepHash:  identity.DeepHash,
		Output:    task.result.Output,
		GasUsed:   task.result.GasUsed,
	}

	evaluationCounter.WithLabelValues(
		streamType(msg.Cron),
		messageType(msg.IsAssignment),
		processErrorLabel(task.result.Output),
	).Inc()

	if err := p.Store.SaveEvaluation(ctx, eval); err != nil {
		return domain.Evaluation{}, mem, false, err
	}

	next = domain.ProcessMemory{
		Memory:   task.result.Memory,
		ModuleID: mod.ID,
		Evaluation: domain.EvaluationPosition{
			ProcessID: proc.ID,
			Ordinate:  msg.Ordinate,
			Timestamp: msg.Timestamp,
			Epoch:     msg.Epoch,
			Nonce:     msg.Nonce,
			Cron:      msg.Cron,
		},
		GasUsed: mem.GasUsed + task.result.GasUsed,
	}

	return eval, next, true, nil
}

func messageIdentity(processID string, msg suclient.Message) persistence.MessageLookup {
	return persistence.MessageLookup{
		ProcessID:         processID,
		MessageID:         msg.MessageID,
		DeepHash:          msg.DeepHash,
		IsAssignedMessage: msg.IsAssignment,
		Epoch:             msg.Epoch,
		Nonce:             msg.Nonce,
	}
}

func evaluationFromMemory(mem domain.ProcessMemory) domain.Evaluation {
	return domain.Evaluation{
		EvaluationIdentity: domain.EvaluationIdentity{
			ProcessID: mem.Evaluation.ProcessID,
			Ordinate:  mem.Evaluation.Ordinate,
			Cron:      mem.Evaluation.Cron,
			Timestamp: mem.Evaluation.Timestamp,
		},
		GasUsed: mem.GasUsed,
	}
}
