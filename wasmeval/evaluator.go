// Package wasmeval defines the boundary between the evaluation pipeline
// and WASM execution. The module ABI — how a memory buffer and a message
// are marshaled across the module boundary, and how gas is metered inside
// it — is a concern of the module format itself and is not implemented
// here; Evaluator is the seam a concrete runtime plugs into.
package wasmeval

import (
	"context"

	"github.com/permaweb/cu/domain"
)

// Message is the content of a single message driving an evaluation,
// independent of how the pipeline fetched it.
type Message struct {
	Tags  []domain.Tag
	Data  []byte
	Cron  bool
	Block domain.Block
}

// Args is the input to a single evaluation. Memory is moved into the
// worker: callers must not read or write it again until Result.Memory (or
// an error) comes back.
type Args struct {
	Memory        domain.MemoryRef
	ModuleID      string
	ModuleBinary  []byte
	ModuleOptions domain.ModuleOptions
	Message       Message
}

// Result is the outcome of a single evaluation.
type Result struct {
	Memory  domain.MemoryRef
	Output  domain.Output
	GasUsed uint64
}

// Evaluator runs a single message against a process's memory buffer.
//
// An evaluation error (the module trapping, running out of gas, or
// reporting an application-level error) is not necessarily a Go error:
// per the data model, it is reported via Result.Output.Error, and
// Evaluate still returns a nil error so the caller persists the row. A
// non-nil error from Evaluate means the worker itself could not run the
// evaluation at all (e.g. a malformed module).
type Evaluator interface {
	Evaluate(ctx context.Context, args Args) (Result, error)
}
