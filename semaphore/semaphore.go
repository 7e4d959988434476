package semaphore

import (
	"context"

	"golang.org/x/sync/semaphore"
)

// Semaphore limits the number of admissions that may be outstanding
// concurrently.
//
// It is the concurrency primitive behind each worker pool's admission
// queue: a slot must be acquired before the expensive "prep work" for a
// submission (such as cloning a process memory buffer) is allowed to start,
// so that memory never piles up ahead of the pool's actual capacity.
type Semaphore struct {
	n   int
	sem *semaphore.Weighted
}

// New returns a semaphore that allows n admissions concurrently.
func New(n int) Semaphore {
	return Semaphore{
		n,
		semaphore.NewWeighted(int64(n)),
	}
}

// Limit returns the number of admissions that may be outstanding
// concurrently.
//
// It returns 0 if there is no limit.
func (s *Semaphore) Limit() int {
	if s.sem == nil {
		return 0
	}

	return s.n
}

// Acquire blocks until it is ok for the caller to proceed, or until ctx is
// canceled.
func (s *Semaphore) Acquire(ctx context.Context) error {
	if s.sem == nil {
		return nil
	}

	return s.sem.Acquire(ctx, 1)
}

// TryAcquire acquires a slot without blocking.
//
// It returns false if no slot is immediately available.
func (s *Semaphore) TryAcquire() bool {
	if s.sem == nil {
		return true
	}

	return s.sem.TryAcquire(1)
}

// Release signals that an admission has completed.
func (s *Semaphore) Release() {
	if s.sem != nil {
		s.sem.Release(1)
	}
}
