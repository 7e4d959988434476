// Package domain defines the data model shared by every layer of the
// evaluation core: processes, modules, evaluations, in-memory process
// state, and checkpoints, as described in the system's data model.
package domain

import (
	"time"

	"github.com/permaweb/cu/ordinate"
)

// Tag is a name/value pair attached to a process, module, or checkpoint.
type Tag struct {
	Name  string
	Value string
}

// Block identifies the scheduler's notion of a block: a height paired with
// the wall-clock time at which it was produced.
type Block struct {
	Height    uint64
	Timestamp time.Time
}

// Process is immutable after its first persistence.
type Process struct {
	ID        string
	Owner     string
	Tags      []Tag
	Signature string
	Block     Block
	ModuleID  string
}

// ModuleOptions bounds the resources a module's evaluations may consume.
type ModuleOptions struct {
	MemoryLimit    uint64
	ComputeLimit   uint64
	Extensions     []string
	SupportedExtra map[string]string
}

// Module is immutable once persisted; many processes may reference one.
type Module struct {
	ID            string
	Owner         string
	Tags          []Tag
	ModuleFormat  string // e.g. "wasm32-unknown-emscripten", "wasm64-..."
	ModuleOptions ModuleOptions
}

// EvaluationIdentity locates an evaluation by its composite primary key.
//
// At most one Evaluation row exists for a given EvaluationIdentity.
type EvaluationIdentity struct {
	ProcessID string
	Ordinate  ordinate.Ordinate
	Cron      bool
	Timestamp time.Time
}

// Output is the result payload produced by evaluating one message.
type Output struct {
	Messages    []OutboundMessage
	Spawns      []Spawn
	Assignments []Assignment
	Data        []byte
	Error       string // non-empty iff the WASM execution reported an error
}

// OutboundMessage is a message produced by an evaluation, destined for
// cranking by the MU. Cranking itself is out of scope here.
type OutboundMessage struct {
	Target string
	Tags   []Tag
	Data   []byte
}

// Spawn is a new process creation request produced by an evaluation.
type Spawn struct {
	ModuleID string
	Tags     []Tag
	Data     []byte
}

// Assignment is an assignment of an existing message to another process,
// produced by an evaluation.
type Assignment struct {
	ProcessID string
	MessageID string
}

// Evaluation is an append-only record of a single message's effect on a
// process. Evaluation rows are never mutated once saved.
type Evaluation struct {
	EvaluationIdentity

	MessageID string // empty if Cron is true
	DeepHash  string // dedup key for cranked messages; empty if not applicable
	Output    Output
	GasUsed   uint64
}

// MemoryRef is either an in-memory buffer or a reference to a spill file on
// disk. Exactly one of Bytes or File is meaningful at a time.
type MemoryRef struct {
	Bytes []byte // nil if file-backed
	File  string // empty if held in memory
}

// Size returns the number of bytes MemoryRef occupies while resident, for
// the purposes of cache accounting. File-backed entries occupy 0 bytes in
// the in-memory tier.
func (m MemoryRef) Size() int {
	return len(m.Bytes)
}

// IsFileBacked returns true if the memory has been spilled to disk.
func (m MemoryRef) IsFileBacked() bool {
	return m.File != ""
}

// EvaluationPosition is the evaluation a ProcessMemory snapshot reflects.
type EvaluationPosition struct {
	ProcessID   string
	Ordinate    ordinate.Ordinate
	Timestamp   time.Time
	BlockHeight uint64
	Epoch       uint64
	Nonce       uint64
	Cron        bool
}

// ProcessMemory is the cached state of a process at a specific evaluation
// position, plus the gas accumulated since the last checkpoint.
type ProcessMemory struct {
	Memory     MemoryRef
	ModuleID   string
	Evaluation EvaluationPosition
	GasUsed    uint64
}

// Checkpoint is a signed, content-addressed snapshot of a ProcessMemory,
// as uploaded to (or read from) the checkpoint network.
type Checkpoint struct {
	ProcessID   string
	ModuleID    string
	Ordinate    ordinate.Ordinate
	Timestamp   time.Time
	BlockHeight uint64
	Epoch       uint64
	Nonce       uint64
	MemoryHash  string
	TxID        string // content-address / bundler transaction id
}

// CheckpointRecord is the local index entry pointing at a checkpoint,
// either on the local filesystem or as a remote transaction id.
type CheckpointRecord struct {
	ProcessID string
	Ordinate  ordinate.Ordinate
	Timestamp time.Time
	File      string // local spill/checkpoint file name, if any
	TxID      string // remote transaction id, if any
}
