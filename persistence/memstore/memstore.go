// Package memstore is an in-memory persistence.Store, used by tests and by
// the CLI's ephemeral mode.
package memstore

import (
	"context"
	"sort"
	"sync"

	"github.com/permaweb/cu/cuerr"
	"github.com/permaweb/cu/domain"
	"github.com/permaweb/cu/ordinate"
	"github.com/permaweb/cu/persistence"
)

type evaluationKey struct {
	processID string
	ordinate  ordinate.Ordinate
	cron      bool
}

// Store is an in-memory implementation of persistence.Store.
//
// All exported methods are safe for concurrent use.
type Store struct {
	m sync.RWMutex

	processes   map[string]domain.Process
	modules     map[string]domain.Module
	evaluations map[evaluationKey]domain.Evaluation
	blocks      map[uint64]domain.Block
	checkpoints map[string][]domain.CheckpointRecord // by processID, unsorted
}

// New returns an empty Store.
func New() *Store {
	return &Store{
		processes:   map[string]domain.Process{},
		modules:     map[string]domain.Module{},
		evaluations: map[evaluationKey]domain.Evaluation{},
		blocks:      map[uint64]domain.Block{},
		checkpoints: map[string][]domain.CheckpointRecord{},
	}
}

// FindProcess returns the process with the given id.
func (s *Store) FindProcess(_ context.Context, id string) (domain.Process, error) {
	s.m.RLock()
	defer s.m.RUnlock()

	p, ok := s.processes[id]
	if !ok {
		return domain.Process{}, cuerr.NotFound("process", id)
	}
	return p, nil
}

// SaveProcess upserts a process.
func (s *Store) SaveProcess(_ context.Context, p domain.Process) error {
	s.m.Lock()
	defer s.m.Unlock()

	s.processes[p.ID] = p
	return nil
}

// FindModule returns the module with the given id.
func (s *Store) FindModule(_ context.Context, id string) (domain.Module, error) {
	s.m.RLock()
	defer s.m.RUnlock()

	mod, ok := s.modules[id]
	if !ok {
		return domain.Module{}, cuerr.NotFound("module", id)
	}
	return mod, nil
}

// SaveModule upserts a module.
func (s *Store) SaveModule(_ context.Context, mod domain.Module) error {
	s.m.Lock()
	defer s.m.Unlock()

	s.modules[mod.ID] = mod
	return nil
}

// FindEvaluation returns a single evaluation by its composite key.
func (s *Store) FindEvaluation(_ context.Context, processID string, ord ordinate.Ordinate, cron bool) (domain.Evaluation, error) {
	s.m.RLock()
	defer s.m.RUnlock()

	e, ok := s.evaluations[evaluationKey{processID, ord, cron}]
	if !ok {
		return domain.Evaluation{}, cuerr.NotFound("evaluation", processID+"@"+ord.String())
	}
	return e, nil
}

// SaveEvaluation appends an evaluation row. Evaluation rows are never
// mutated once saved; saving the same key twice overwrites, tolerating
// replay of an identical row.
func (s *Store) SaveEvaluation(_ context.Context, e domain.Evaluation) error {
	s.m.Lock()
	defer s.m.Unlock()

	s.evaluations[evaluationKey{e.ProcessID, e.Ordinate, e.Cron}] = e
	return nil
}

// FindEvaluations returns the evaluations matching q, ordered by q.Sort.
// q.From and q.To are both inclusive bounds.
func (s *Store) FindEvaluations(_ context.Context, q persistence.EvaluationQuery) ([]domain.Evaluation, error) {
	s.m.RLock()
	defer s.m.RUnlock()

	var out []domain.Evaluation
	for _, e := range s.evaluations {
		if e.ProcessID != q.ProcessID {
			continue
		}
		if q.OnlyCron && !e.Cron {
			continue
		}
		if q.From != "" && e.Ordinate.Before(q.From) {
			continue
		}
		if q.To != "" && e.Ordinate.After(q.To) {
			continue
		}
		out = append(out, e)
	}

	sort.Slice(out, func(i, j int) bool {
		if q.Sort == persistence.Descending {
			return out[i].Ordinate.After(out[j].Ordinate)
		}
		return out[i].Ordinate.Before(out[j].Ordinate)
	})

	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}

	return out, nil
}

// FindMessageBefore returns the evaluation that already applied the
// message identified by lookup, if any.
func (s *Store) FindMessageBefore(_ context.Context, lookup persistence.MessageLookup) (domain.Evaluation, error) {
	s.m.RLock()
	defer s.m.RUnlock()

	for _, e := range s.evaluations {
		if e.ProcessID != lookup.ProcessID {
			continue
		}
		if lookup.DeepHash != "" {
			if e.DeepHash == lookup.DeepHash {
				return e, nil
			}
			continue
		}
		if lookup.MessageID != "" && e.MessageID == lookup.MessageID {
			return e, nil
		}
	}

	return domain.Evaluation{}, cuerr.NotFound("message", lookup.ProcessID)
}

// FindBlocks returns the cached blocks within [min, max].
func (s *Store) FindBlocks(_ context.Context, min, max uint64) ([]domain.Block, error) {
	s.m.RLock()
	defer s.m.RUnlock()

	var out []domain.Block
	for h, b := range s.blocks {
		if h >= min && h <= max {
			out = append(out, b)
		}
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Height < out[j].Height })

	return out, nil
}

// SaveBlocks merges blocks into the cache.
func (s *Store) SaveBlocks(_ context.Context, blocks []domain.Block) error {
	s.m.Lock()
	defer s.m.Unlock()

	for _, b := range blocks {
		s.blocks[b.Height] = b
	}
	return nil
}

// WriteCheckpointRecord appends a checkpoint record for a process.
func (s *Store) WriteCheckpointRecord(_ context.Context, r domain.CheckpointRecord) error {
	s.m.Lock()
	defer s.m.Unlock()

	s.checkpoints[r.ProcessID] = append(s.checkpoints[r.ProcessID], r)
	return nil
}

// FindCheckpointRecordBefore returns the checkpoint record for the process
// with the greatest ordinate less than or equal to q.Before.
func (s *Store) FindCheckpointRecordBefore(_ context.Context, q persistence.CheckpointQuery) (domain.CheckpointRecord, error) {
	s.m.RLock()
	defer s.m.RUnlock()

	var best domain.CheckpointRecord
	found := false

	for _, r := range s.checkpoints[q.ProcessID] {
		if r.Ordinate.After(q.Before.Ordinate) {
			continue
		}
		if !found || r.Ordinate.After(best.Ordinate) {
			best = r
			found = true
		}
	}

	if !found {
		return domain.CheckpointRecord{}, cuerr.NotFound("checkpoint-record", q.ProcessID)
	}

	return best, nil
}

// Close is a no-op; the store holds no external resources.
func (s *Store) Close() error {
	return nil
}

var _ persistence.Store = (*Store)(nil)
