package readapi

import (
	"runtime"

	"github.com/permaweb/cu/workerpool"
)

// Stats is a snapshot of the service's current load, for operators and
// autoscalers. It mirrors stats()'s documented shape: pool occupancy,
// memory cache usage, and process memory usage.
type Stats struct {
	Primary      workerpool.Stats
	DryRun       workerpool.Stats
	CacheEntries int
	CacheBytes   int64
	FileBacked   int
	RSSBytes     uint64
}

// Stats reports pool occupancy, process memory cache usage, and the
// process's own RSS-equivalent memory usage.
func (a *API) Stats() Stats {
	var s Stats

	if a.Pools != nil {
		s.Primary = a.Pools.Primary.Stats()
		s.DryRun = a.Pools.DryRun.Stats()
	}

	if a.Cache != nil {
		usage := a.Cache.LoadProcessCacheUsage()
		s.CacheEntries = usage.Entries
		s.CacheBytes = usage.TotalBytes
		s.FileBacked = usage.FileBacked
	}

	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)
	s.RSSBytes = mem.Sys

	return s
}
