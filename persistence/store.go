// Package persistence defines the local embedded store used to reconstruct
// a process's evaluation history: processes, modules, evaluations, block
// heights, and checkpoint-record indices.
package persistence

import (
	"context"

	"github.com/permaweb/cu/domain"
	"github.com/permaweb/cu/ordinate"
)

// Sort is the ordering applied to a ranged evaluation query.
type Sort int

const (
	// Ascending orders by ordinate, lowest first.
	Ascending Sort = iota
	// Descending orders by ordinate, highest first.
	Descending
)

// EvaluationQuery selects a range of a process's evaluations.
type EvaluationQuery struct {
	ProcessID string
	From, To  ordinate.Ordinate // zero value means unbounded
	OnlyCron  bool
	Limit     int
	Sort      Sort
}

// MessageLookup identifies a message for deduplication purposes.
//
// DeepHash takes priority over MessageID when both are present, matching
// the dedup identity used to short-circuit re-cranking.
type MessageLookup struct {
	ProcessID         string
	MessageID         string
	DeepHash          string
	IsAssignedMessage bool
	Epoch, Nonce      uint64
}

// CheckpointQuery selects the latest checkpoint record at or before a
// position.
type CheckpointQuery struct {
	ProcessID string
	Before    domain.EvaluationPosition
}

// Store is the persistence surface every other component is built on.
//
// Every "find" operation on a composite key returns the greatest row whose
// key is less than or equal to the target, under the total order defined
// by package ordinate, when the operation's doc comment says "before".
// Implementations must be safe for concurrent use.
type Store interface {
	FindProcess(ctx context.Context, id string) (domain.Process, error)
	SaveProcess(ctx context.Context, p domain.Process) error

	FindModule(ctx context.Context, id string) (domain.Module, error)
	SaveModule(ctx context.Context, m domain.Module) error

	FindEvaluation(ctx context.Context, processID string, ord ordinate.Ordinate, cron bool) (domain.Evaluation, error)
	SaveEvaluation(ctx context.Context, e domain.Evaluation) error
	FindEvaluations(ctx context.Context, q EvaluationQuery) ([]domain.Evaluation, error)

	// FindMessageBefore returns the evaluation that already applied the
	// message identified by lookup, if any, so that replay can skip it.
	FindMessageBefore(ctx context.Context, lookup MessageLookup) (domain.Evaluation, error)

	FindBlocks(ctx context.Context, min, max uint64) ([]domain.Block, error)
	SaveBlocks(ctx context.Context, blocks []domain.Block) error

	WriteCheckpointRecord(ctx context.Context, r domain.CheckpointRecord) error
	FindCheckpointRecordBefore(ctx context.Context, q CheckpointQuery) (domain.CheckpointRecord, error)

	Close() error
}
