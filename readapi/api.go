// Package readapi is the single-flight coordinator and the set of
// read-oriented operations built on top of it: resolving the terminal
// evaluation for a process, querying already-persisted evaluations, and
// the cross-process maintenance operations (checkpointAll, healthcheck,
// stats, metrics).
package readapi

import (
	"sync"

	"github.com/dogmatiq/dodeca/logging"
	"golang.org/x/sync/singleflight"

	"github.com/permaweb/cu/checkpoint"
	"github.com/permaweb/cu/evalpipeline"
	"github.com/permaweb/cu/memcache"
	"github.com/permaweb/cu/ordinate"
	"github.com/permaweb/cu/persistence"
	"github.com/permaweb/cu/suclient"
	"github.com/permaweb/cu/workerpool"
)

// API is the read surface a transport layer (out of scope here) calls
// into.
type API struct {
	Store       persistence.Store
	Pipeline    *evalpipeline.Pipeline
	Checkpoints *checkpoint.Pipeline
	Cache       *memcache.Cache
	Pools       *workerpool.Pools
	SU          *suclient.Client
	Wallet      checkpoint.Wallet
	Logger      logging.Logger

	sf singleflight.Group

	m             sync.Mutex
	targets       map[string]ordinate.Ordinate
	checkpointing *checkpointRun
}
