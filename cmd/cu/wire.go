package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/dogmatiq/dodeca/logging"

	"github.com/permaweb/cu/blockcache"
	"github.com/permaweb/cu/checkpoint"
	"github.com/permaweb/cu/config"
	"github.com/permaweb/cu/evalpipeline"
	"github.com/permaweb/cu/memcache"
	"github.com/permaweb/cu/persistence"
	"github.com/permaweb/cu/persistence/boltstore"
	"github.com/permaweb/cu/persistence/sqlstore"
	"github.com/permaweb/cu/readapi"
	"github.com/permaweb/cu/suclient"
	"github.com/permaweb/cu/wasmmodule"
	"github.com/permaweb/cu/workerpool"
)

// openStore opens the persistence store named by cfg.DBURL. A "sqlite:"
// prefix selects the sqlstore backend; anything else is treated as a
// bbolt file path, matching the service's original single-file-database
// deployment.
func openStore(ctx context.Context, cfg config.Config) (persistence.Store, error) {
	if path, ok := strings.CutPrefix(cfg.DBURL, "sqlite:"); ok {
		return sqlstore.Open(ctx, path)
	}
	return boltstore.Open(ctx, cfg.DBURL, 0o600)
}

// services holds every wired top-level dependency, closed together on
// shutdown.
type services struct {
	API   *readapi.API
	Store persistence.Store
}

func (s *services) Close() error {
	return s.Store.Close()
}

// build wires every collaborator named in the evaluation core's data flow
// from cfg, following the same construction order the read API and
// pipeline structs declare their fields in.
func build(ctx context.Context, cfg config.Config, log logging.Logger) (*services, error) {
	store, err := openStore(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("cu: opening persistence store: %w", err)
	}

	wallet, err := checkpoint.LoadWallet(cfg.Wallet)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("cu: loading wallet: %w", err)
	}

	files := checkpoint.LocalFiles{Dir: cfg.CheckpointFileDir}

	cache := &memcache.Cache{
		MaxBytes: cfg.ProcessMemoryCacheMaxSize,
		TTL:      cfg.ProcessMemoryCacheTTL,
		Spill: checkpoint.CacheSpiller{
			Files: checkpoint.LocalFiles{Dir: cfg.ProcessMemoryCacheFileDir},
			Store: store,
		},
		Logger: log,
	}

	checkpoints := &checkpoint.Pipeline{
		Cache:   cache,
		Store:   store,
		Files:   files,
		Gateway: checkpoint.Gateway{URL: cfg.CheckpointGraphQLURL},
		Wallet:  wallet,
		Upload:  checkpoint.Uploader{URL: cfg.UploaderURL},
		Filter: checkpoint.Filter{
			TrustedOwners:                   cfg.CheckpointTrustedOwners,
			IgnoreTxIDs:                     cfg.IgnoreArweaveCheckpoints,
			ProcessIgnoreArweaveCheckpoints: cfg.ProcessIgnoreArweaveCheckpoints,
		},
		Logger:   log,
		Disable:  cfg.DisableCheckpointCreation,
		Throttle: cfg.CheckpointCreationThrottle,
	}

	modules := &wasmmodule.Loader{
		Dir:     cfg.WASMBinaryDir,
		MaxSize: cfg.ModuleCacheMaxSize,
		Fetch:   wasmmodule.HTTPFetcher{BaseURL: cfg.ArweaveURL},
	}

	su := &suclient.Client{BaseURL: cfg.GraphQLURL}

	pools := workerpool.NewPools(cfg, workerpool.WorkerInit{})

	pipeline := &evalpipeline.Pipeline{
		Store:       store,
		Cache:       cache,
		Checkpoints: checkpoints,
		Modules:     modules,
		SU:          su,
		Pools:       pools,
		Evaluator:   unwiredEvaluator{},
		Config:      cfg,
		Admission:   evalpipeline.AdmissionFromConfig(cfg),
		Blocks:      &blockcache.Cache{Store: store},
		Logger:      log,
	}

	api := &readapi.API{
		Store:       store,
		Pipeline:    pipeline,
		Checkpoints: checkpoints,
		Cache:       cache,
		Pools:       pools,
		SU:          su,
		Wallet:      wallet,
		Logger:      log,
	}

	return &services{API: api, Store: store}, nil
}
