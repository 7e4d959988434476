package workerpool

import "github.com/permaweb/cu/config"

// Pools holds the two worker pools the evaluation core dispatches onto:
// Primary for reads and crank evaluations that must eventually complete,
// and DryRun for speculative reads that fail fast under load rather than
// queue indefinitely.
type Pools struct {
	Primary *Pool
	DryRun  *Pool
}

// NewPools sizes Primary and DryRun per cfg's worker-pool settings and
// gives every worker in both pools the same init data.
func NewPools(cfg config.Config, init WorkerInit) *Pools {
	return &Pools{
		Primary: &Pool{
			Name:    "primary",
			Workers: cfg.PrimaryWorkerCount(),
			Init:    init,
		},
		DryRun: &Pool{
			Name:     "dry-run",
			Workers:  cfg.DryRunWorkerCount(),
			MaxQueue: cfg.DryRunMaxQueue,
			Init:     init,
		},
	}
}
