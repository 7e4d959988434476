// Package workerpool runs WASM evaluations on a bounded set of worker
// threads, fed by an admission queue that defers expensive memory-buffer
// preparation until a worker slot is actually free.
package workerpool

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/permaweb/cu/cuerr"
	"github.com/permaweb/cu/semaphore"
)

// WorkerInit is the data every worker in a pool is initialized with: the
// caches and endpoints it needs to evaluate a message without touching
// anything owned by the orchestrator or by another worker.
type WorkerInit struct {
	ModuleCacheMaxSize   int
	InstanceCacheMaxSize int
	WASMBinaryDir        string
	NetworkURL           string
	StorePath            string
}

// Task is a unit of work submitted to a Pool.
//
// Prep performs whatever preparation the task needs — typically cloning
// or materializing a process memory buffer — and must not be called until
// the pool has actually admitted the task. Run performs the evaluation
// itself, using whatever Prep produced.
type Task interface {
	Prep(ctx context.Context) error
	Run(ctx context.Context) error
}

// Pool runs admitted tasks on Workers concurrent goroutines, gated by an
// admission queue. A zero MaxQueue means the queue is unbounded: Submit
// blocks until a worker is free rather than rejecting the caller.
type Pool struct {
	Name     string
	Workers  int
	MaxQueue int
	Init     WorkerInit

	initOnce sync.Once
	sem      semaphore.Semaphore
	queue    semaphore.Semaphore
	active   int32 // currently running a task
	queued   int32 // admitted but waiting for a worker
}

// Stats is a snapshot of a Pool's current occupancy, for the read API's
// stats() surface.
type Stats struct {
	Active       int
	Idle         int
	PendingTasks int
}

// Stats returns a snapshot of the pool's current occupancy.
func (p *Pool) Stats() Stats {
	p.init()

	workers := p.Workers
	if workers < 1 {
		workers = 1
	}

	active := int(atomic.LoadInt32(&p.active))

	return Stats{
		Active:       active,
		Idle:         workers - active,
		PendingTasks: int(atomic.LoadInt32(&p.queued)),
	}
}

func (p *Pool) init() {
	p.initOnce.Do(func() {
		workers := p.Workers
		if workers < 1 {
			workers = 1
		}

		p.sem = semaphore.New(workers)

		if p.MaxQueue > 0 {
			p.queue = semaphore.New(workers + p.MaxQueue)
		}
	})
}

func (p *Pool) name() string {
	if p.Name != "" {
		return p.Name
	}
	return "worker"
}

// Submit admits t into the pool, running t.Prep and then t.Run once a
// slot is actually free, and blocks until t.Run returns.
//
// If the pool enforces a MaxQueue and it is already full, Submit returns
// a cuerr.OverloadedError without calling Prep or Run at all.
func (p *Pool) Submit(ctx context.Context, t Task) error {
	p.init()

	if p.queue.Limit() > 0 {
		if !p.queue.TryAcquire() {
			return cuerr.Overloaded(p.name())
		}
		defer p.queue.Release()
	}

	atomic.AddInt32(&p.queued, 1)
	err := p.sem.Acquire(ctx)
	atomic.AddInt32(&p.queued, -1)
	if err != nil {
		return err
	}

	atomic.AddInt32(&p.active, 1)
	defer atomic.AddInt32(&p.active, -1)
	defer p.sem.Release()

	if err := t.Prep(ctx); err != nil {
		return err
	}

	return t.Run(ctx)
}
