// Package memcache implements the size-bounded, TTL-aware process memory
// cache sitting in front of the checkpoint store: a hit here avoids both
// the checkpoint find pipeline and re-running a process from its message
// log.
package memcache

import (
	"container/list"
	"context"
	"sync"
	"time"

	"github.com/dogmatiq/dodeca/logging"
	"github.com/dogmatiq/linger"

	"github.com/permaweb/cu/domain"
)

// DefaultTTL is the minimum period an entry is kept in memory after it was
// last used, if Cache.TTL is non-positive.
const DefaultTTL = 1 * time.Hour

// Spiller writes a process memory snapshot to a local file, freeing its
// bytes from the in-memory budget.
//
// It is called with the cache's internal lock released.
type Spiller interface {
	Spill(ctx context.Context, mem domain.ProcessMemory) (file string, err error)
}

// Usage summarises the cache's current footprint, for metrics exposition.
type Usage struct {
	Entries    int
	TotalBytes int64
	FileBacked int
}

// entry is one record in the cache, tracked both in items (by processID)
// and in order (for LRU eviction), front = most recently used.
type entry struct {
	processID  string
	memory     domain.ProcessMemory
	lastUsed   time.Time
	idle       bool // marked by the TTL sweep; a second sweep evicts
	fileBacked bool
}

// Cache is a size-bounded LRU cache of process memory snapshots, keyed by
// process ID.
//
// All exported methods are safe for concurrent use.
type Cache struct {
	// MaxBytes bounds the total size, in bytes, of in-memory (non
	// file-backed) payloads. Zero means unbounded.
	MaxBytes int64

	// TTL is the minimum period an entry is kept after it was last used.
	// If non-positive, DefaultTTL is used.
	TTL time.Duration

	// Spill writes evicted payloads to disk. If nil, evicted entries are
	// dropped instead of spilled.
	Spill Spiller

	// Logger receives messages about cache evictions.
	Logger logging.Logger

	m       sync.Mutex
	items   map[string]*list.Element
	order   *list.List
	bytes   int64
	evicted int // file-backed count, across the cache's lifetime
}

func (c *Cache) init() {
	if c.items == nil {
		c.items = make(map[string]*list.Element)
		c.order = list.New()
	}
}

// Get returns the cached memory for processID, if present, and marks it as
// most-recently-used.
func (c *Cache) Get(processID string) (domain.ProcessMemory, bool) {
	c.m.Lock()
	defer c.m.Unlock()
	c.init()

	elem, ok := c.items[processID]
	if !ok {
		return domain.ProcessMemory{}, false
	}

	e := elem.Value.(*entry)
	if e.fileBacked {
		// Spilled once already: the entry is kept only so a second
		// eviction (rather than this lookup) is what drops it, and so
		// Spill is not called again for the same payload.
		return domain.ProcessMemory{}, false
	}

	e.lastUsed = time.Now()
	e.idle = false
	c.order.MoveToFront(elem)

	return e.memory, true
}

// Set inserts or replaces the cached memory for processID.
//
// If the resulting in-memory footprint exceeds MaxBytes, the least
// recently used entries are evicted (spilled to file, if Spill is set)
// until the cache is back under budget.
func (c *Cache) Set(ctx context.Context, processID string, mem domain.ProcessMemory) {
	c.m.Lock()
	c.init()

	if elem, ok := c.items[processID]; ok {
		old := elem.Value.(*entry)
		c.bytes -= int64(old.memory.Memory.Size())
		old.memory = mem
		old.lastUsed = time.Now()
		old.idle = false
		old.fileBacked = mem.Memory.IsFileBacked()
		c.order.MoveToFront(elem)
	} else {
		e := &entry{
			processID:  processID,
			memory:     mem,
			lastUsed:   time.Now(),
			fileBacked: mem.Memory.IsFileBacked(),
		}
		c.items[processID] = c.order.PushFront(e)
	}

	c.bytes += int64(mem.Memory.Size())

	var toSpill []spillJob
	for c.MaxBytes > 0 && c.bytes > c.MaxBytes {
		back := c.order.Back()
		if back == nil {
			break
		}

		e := back.Value.(*entry)
		if e.processID == processID {
			// Nothing left to evict but the entry we just inserted; stop
			// rather than spinning forever on a single oversized payload.
			break
		}

		c.bytes -= int64(e.memory.Memory.Size())

		if e.fileBacked || c.Spill == nil {
			// Already spilled once, or nothing can spill it: drop outright.
			c.order.Remove(back)
			delete(c.items, e.processID)
			continue
		}

		// First eviction: spill the payload but keep the entry as a
		// lightweight file-backed placeholder, so the checkpoint index
		// (not this cache) is what subsequent loads find it through. A
		// second eviction is what drops it outright.
		mem := e.memory
		e.memory = domain.ProcessMemory{Evaluation: mem.Evaluation, ModuleID: mem.ModuleID, GasUsed: mem.GasUsed}
		e.fileBacked = true
		toSpill = append(toSpill, spillJob{processID: e.processID, mem: mem})
	}

	c.m.Unlock()

	for _, job := range toSpill {
		c.spillOne(ctx, job)
	}
}

type spillJob struct {
	processID string
	mem       domain.ProcessMemory
}

func (c *Cache) spillOne(ctx context.Context, job spillJob) {
	file, err := c.Spill.Spill(ctx, job.mem)
	if err != nil {
		if logging.IsDebug(c.Logger) {
			logging.Debug(c.Logger, "failed to spill process memory for %s: %s", job.processID, err)
		}
		return
	}

	if logging.IsDebug(c.Logger) {
		logging.Debug(c.Logger, "evicted %s to %s", job.processID, file)
	}
}

// ForEach calls visitor once for each entry present in the cache at the
// moment forEach is called, without holding the cache's lock while
// visitor runs.
func (c *Cache) ForEach(visitor func(processID string, mem domain.ProcessMemory)) {
	c.m.Lock()
	snapshot := make([]entry, 0, len(c.items))
	for _, elem := range c.items {
		snapshot = append(snapshot, *elem.Value.(*entry))
	}
	c.m.Unlock()

	for _, e := range snapshot {
		visitor(e.processID, e.memory)
	}
}

// LoadProcessCacheUsage returns the cache's current footprint.
func (c *Cache) LoadProcessCacheUsage() Usage {
	c.m.Lock()
	defer c.m.Unlock()

	u := Usage{Entries: len(c.items), TotalBytes: c.bytes}
	for _, elem := range c.items {
		if elem.Value.(*entry).fileBacked {
			u.FileBacked++
		}
	}

	return u
}

// Run evicts idle entries until ctx is canceled. An entry is considered
// idle, and evicted, if it has not been accessed across two consecutive
// sweeps spaced TTL apart.
func (c *Cache) Run(ctx context.Context) error {
	for {
		if err := linger.Sleep(ctx, c.TTL, DefaultTTL); err != nil {
			return err
		}

		c.sweep(ctx)
	}
}

func (c *Cache) sweep(ctx context.Context) {
	c.m.Lock()
	var toSpill []spillJob
	for _, elem := range c.items {
		e := elem.Value.(*entry)

		if !e.idle {
			e.idle = true
			continue
		}

		c.order.Remove(elem)
		delete(c.items, e.processID)
		c.bytes -= int64(e.memory.Memory.Size())

		if !e.fileBacked && c.Spill != nil {
			toSpill = append(toSpill, spillJob{processID: e.processID, mem: e.memory})
		}
	}
	c.m.Unlock()

	for _, job := range toSpill {
		c.spillOne(ctx, job)
	}
}
