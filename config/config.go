// Package config loads the Compute Unit's runtime configuration from its
// environment, following the option names in the system's external
// interfaces.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config is the fully-resolved runtime configuration for a CU process.
type Config struct {
	// Worker pools.
	MaxWorkers              int
	PrimaryWorkersPct       int
	DryRunMaxQueue          int
	ModuleCacheMaxSize      int
	InstanceCacheMaxSize    int
	WASMBinaryDir           string

	// Memory cache.
	ProcessMemoryCacheMaxSize int64
	ProcessMemoryCacheTTL     time.Duration
	ProcessMemoryCacheFileDir string

	// Checkpoints.
	CheckpointFileDir                  string
	DisableCheckpointCreation          bool
	CheckpointCreationThrottle         time.Duration
	EagerCheckpointAccumulatedGasLimit uint64
	ProcessIgnoreArweaveCheckpoints    map[string]bool
	IgnoreArweaveCheckpoints           map[string]bool
	CheckpointTrustedOwners            []string

	// Access control.
	AllowOwners      map[string]bool
	RestrictProcesses bool
	AllowProcesses   map[string]bool

	// Module admissibility.
	WASMMemoryMaxLimit     uint64
	WASMComputeMaxLimit    uint64
	WASMSupportedFormats   []string
	WASMSupportedExtensions []string

	// Endpoints.
	GraphQLURL        string
	CheckpointGraphQLURL string
	ArweaveURL        string
	UploaderURL       string
	DBURL             string
	Wallet            string
}

// Load populates a Config from the process environment, applying the same
// defaults the service ships with when a variable is unset.
func Load() Config {
	c := Config{
		MaxWorkers:                         envInt("WASM_EVALUATION_MAX_WORKERS", 8),
		PrimaryWorkersPct:                   envInt("WASM_EVALUATION_PRIMARY_WORKERS_PERCENTAGE", 90),
		DryRunMaxQueue:                      envInt("WASM_EVALUATION_WORKERS_DRY_RUN_MAX_QUEUE", 100),
		ModuleCacheMaxSize:                  envInt("WASM_MODULE_CACHE_MAX_SIZE", 5),
		InstanceCacheMaxSize:                envInt("WASM_INSTANCE_CACHE_MAX_SIZE", 5),
		WASMBinaryDir:                       envString("WASM_BINARY_FILE_DIRECTORY", "./wasm-binaries"),
		ProcessMemoryCacheMaxSize:           envInt64("PROCESS_MEMORY_CACHE_MAX_SIZE", 1<<30),
		ProcessMemoryCacheTTL:               envDuration("PROCESS_MEMORY_CACHE_TTL", 24*time.Hour),
		ProcessMemoryCacheFileDir:           envString("PROCESS_MEMORY_CACHE_FILE_DIR", "./process-memory-cache"),
		CheckpointFileDir:                   envString("PROCESS_CHECKPOINT_FILE_DIRECTORY", "./checkpoints"),
		DisableCheckpointCreation:           envBool("DISABLE_PROCESS_CHECKPOINT_CREATION", false),
		CheckpointCreationThrottle:          envDuration("PROCESS_CHECKPOINT_CREATION_THROTTLE", 24*time.Hour),
		EagerCheckpointAccumulatedGasLimit:  envUint64("EAGER_CHECKPOINT_ACCUMULATED_GAS_THRESHOLD", 1_000_000_000_000),
		ProcessIgnoreArweaveCheckpoints:     envSet("PROCESS_IGNORE_ARWEAVE_CHECKPOINTS"),
		IgnoreArweaveCheckpoints:            envSet("IGNORE_ARWEAVE_CHECKPOINTS"),
		CheckpointTrustedOwners:             envList("PROCESS_CHECKPOINT_TRUSTED_OWNERS"),
		AllowOwners:                         envSet("ALLOW_OWNERS"),
		RestrictProcesses:                   envBool("RESTRICT_PROCESSES", false),
		AllowProcesses:                      envSet("ALLOW_PROCESSES"),
		WASMMemoryMaxLimit:                  envUint64("PROCESS_WASM_MEMORY_MAX_LIMIT", 1<<30),
		WASMComputeMaxLimit:                 envUint64("PROCESS_WASM_COMPUTE_MAX_LIMIT", 9_000_000_000_000),
		WASMSupportedFormats:                envList("PROCESS_WASM_SUPPORTED_FORMATS"),
		WASMSupportedExtensions:             envList("PROCESS_WASM_SUPPORTED_EXTENSIONS"),
		GraphQLURL:                          envString("GRAPHQL_URL", ""),
		CheckpointGraphQLURL:                envString("CHECKPOINT_GRAPHQL_URL", ""),
		ArweaveURL:                          envString("ARWEAVE_URL", ""),
		UploaderURL:                         envString("UPLOADER_URL", ""),
		DBURL:                               envString("DB_URL", "cu.boltdb"),
		Wallet:                              envString("WALLET", ""),
	}

	if len(c.WASMSupportedFormats) == 0 {
		c.WASMSupportedFormats = []string{"wasm32-unknown-emscripten", "wasm64-unknown-emscripten"}
	}

	return c
}

// PrimaryWorkerCount returns the number of workers dedicated to the
// primary pool: min(max(1, MaxWorkers-1), ceil(MaxWorkers * pct/100)).
func (c Config) PrimaryWorkerCount() int {
	max := c.MaxWorkers
	if max < 1 {
		max = 1
	}

	byPct := ceilInt(float64(max) * float64(c.PrimaryWorkersPct) / 100)

	byHeadroom := max - 1
	if byHeadroom < 1 {
		byHeadroom = 1
	}

	if byPct < byHeadroom {
		return byPct
	}
	return byHeadroom
}

// DryRunWorkerCount returns the number of workers dedicated to the
// dry-run pool: max(1, floor(MaxWorkers * (1 - pct/100))).
func (c Config) DryRunWorkerCount() int {
	max := c.MaxWorkers
	if max < 1 {
		max = 1
	}

	n := int(float64(max) * (1 - float64(c.PrimaryWorkersPct)/100))
	if n < 1 {
		n = 1
	}

	return n
}

func ceilInt(f float64) int {
	i := int(f)
	if float64(i) < f {
		i++
	}
	return i
}

func envString(name, def string) string {
	if v, ok := os.LookupEnv(name); ok {
		return v
	}
	return def
}

func envInt(name string, def int) int {
	if v, ok := os.LookupEnv(name); ok {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func envInt64(name string, def int64) int64 {
	if v, ok := os.LookupEnv(name); ok {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return def
}

func envUint64(name string, def uint64) uint64 {
	if v, ok := os.LookupEnv(name); ok {
		if n, err := strconv.ParseUint(v, 10, 64); err == nil {
			return n
		}
	}
	return def
}

func envBool(name string, def bool) bool {
	if v, ok := os.LookupEnv(name); ok {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}

func envDuration(name string, def time.Duration) time.Duration {
	if v, ok := os.LookupEnv(name); ok {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func envList(name string) []string {
	v, ok := os.LookupEnv(name)
	if !ok || v == "" {
		return nil
	}

	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func envSet(name string) map[string]bool {
	list := envList(name)
	if list == nil {
		return nil
	}

	set := make(map[string]bool, len(list))
	for _, v := range list {
		set[v] = true
	}
	return set
}
