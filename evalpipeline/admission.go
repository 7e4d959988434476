package evalpipeline

import (
	"github.com/permaweb/cu/config"
	"github.com/permaweb/cu/cuerr"
	"github.com/permaweb/cu/domain"
)

// Admission decides whether a process is allowed to run at all, and
// whether a module it loads fits within the resource and format limits
// this CU enforces. A zero-value Admission allows everything.
type Admission struct {
	// AllowOwners, if non-empty, is the only set of process owners the
	// pipeline will evaluate for.
	AllowOwners map[string]bool

	// RestrictProcesses requires a process to appear in AllowProcesses;
	// if false, AllowProcesses is not consulted. AllowOwners applies in
	// either case.
	RestrictProcesses bool
	AllowProcesses    map[string]bool

	// WASMMemoryMaxLimit and WASMComputeMaxLimit bound a module's
	// declared resource limits. Zero means unbounded.
	WASMMemoryMaxLimit  uint64
	WASMComputeMaxLimit uint64

	// WASMSupportedFormats and WASMSupportedExtensions restrict which
	// module formats and feature extensions may be loaded. An empty set
	// allows anything.
	WASMSupportedFormats    []string
	WASMSupportedExtensions []string
}

// AdmissionFromConfig builds an Admission from the process-wide runtime
// configuration.
func AdmissionFromConfig(cfg config.Config) Admission {
	return Admission{
		AllowOwners:             cfg.AllowOwners,
		RestrictProcesses:       cfg.RestrictProcesses,
		AllowProcesses:          cfg.AllowProcesses,
		WASMMemoryMaxLimit:      cfg.WASMMemoryMaxLimit,
		WASMComputeMaxLimit:     cfg.WASMComputeMaxLimit,
		WASMSupportedFormats:    cfg.WASMSupportedFormats,
		WASMSupportedExtensions: cfg.WASMSupportedExtensions,
	}
}

// AllowsProcess reports whether proc may be evaluated, per AllowOwners,
// RestrictProcesses, and AllowProcesses.
func (a Admission) AllowsProcess(proc domain.Process) error {
	if len(a.AllowOwners) > 0 && !a.AllowOwners[proc.Owner] {
		return cuerr.Invalid("process owner " + proc.Owner + " is not allowed")
	}

	if a.RestrictProcesses && !a.AllowProcesses[proc.ID] {
		return cuerr.Invalid("process " + proc.ID + " is not in the allow list")
	}

	return nil
}

// AllowsModule reports whether mod may be loaded and evaluated, per the
// module format, resource-limit, and extension admissibility rules.
func (a Admission) AllowsModule(mod domain.Module) error {
	if len(a.WASMSupportedFormats) > 0 && !contains(a.WASMSupportedFormats, mod.ModuleFormat) {
		return cuerr.Invalid("module format " + mod.ModuleFormat + " is not supported")
	}

	if a.WASMMemoryMaxLimit > 0 && mod.ModuleOptions.MemoryLimit > a.WASMMemoryMaxLimit {
		return cuerr.Invalid("module memory limit exceeds the maximum this CU allows")
	}

	if a.WASMComputeMaxLimit > 0 && mod.ModuleOptions.ComputeLimit > a.WASMComputeMaxLimit {
		return cuerr.Invalid("module compute limit exceeds the maximum this CU allows")
	}

	if len(a.WASMSupportedExtensions) > 0 {
		for _, ext := range mod.ModuleOptions.Extensions {
			if !contains(a.WASMSupportedExtensions, ext) {
				return cuerr.Invalid("module extension " + ext + " is not supported")
			}
		}
	}

	return nil
}

func contains(set []string, v string) bool {
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}
