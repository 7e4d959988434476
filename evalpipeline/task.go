package evalpipeline

import (
	"context"

	"github.com/permaweb/cu/domain"
	"github.com/permaweb/cu/wasmeval"
)

// evalTask is the workerpool.Task submitted for a single message.
//
// Prep clones the memory buffer it was given and must not run until the
// pool has actually admitted the task, so the clone never sits around
// waiting for a worker. Run hands the clone to the evaluator and captures
// the result for the caller.
type evalTask struct {
	evaluator wasmeval.Evaluator

	source   domain.MemoryRef
	moduleID string
	binary   []byte
	options  domain.ModuleOptions
	message  wasmeval.Message

	prepared domain.MemoryRef
	result   wasmeval.Result
	err      error
}

func (t *evalTask) Prep(context.Context) error {
	t.prepared = cloneMemoryRef(t.source)
	return nil
}

func (t *evalTask) Run(ctx context.Context) error {
	t.result, t.err = t.evaluator.Evaluate(ctx, wasmeval.Args{
		Memory:        t.prepared,
		ModuleID:      t.moduleID,
		ModuleBinary:  t.binary,
		ModuleOptions: t.options,
		Message:       t.message,
	})
	return t.err
}

func cloneMemoryRef(m domain.MemoryRef) domain.MemoryRef {
	if m.Bytes == nil {
		return m
	}

	b := make([]byte, len(m.Bytes))
	copy(b, m.Bytes)
	return domain.MemoryRef{Bytes: b}
}
