package checkpoint

// Filter decides whether a remote checkpoint for a given process and owner
// should be trusted and used during the find pipeline.
type Filter struct {
	// TrustedOwners is the set of checkpoint-creator addresses the find
	// pipeline accepts. An empty set trusts no one, and the gateway step
	// of the find pipeline is skipped entirely.
	TrustedOwners []string

	// IgnoreTxIDs is the set of specific checkpoint transaction ids the
	// find pipeline rejects outright, regardless of owner, per
	// IGNORE_ARWEAVE_CHECKPOINTS.
	IgnoreTxIDs map[string]bool

	// ProcessIgnoreArweaveCheckpoints disables the gateway step entirely
	// for specific processes, per PROCESS_IGNORE_ARWEAVE_CHECKPOINTS.
	ProcessIgnoreArweaveCheckpoints map[string]bool
}

// AllowsGateway reports whether the gateway step of the find pipeline
// should run for processID.
func (f Filter) AllowsGateway(processID string) bool {
	if f.ProcessIgnoreArweaveCheckpoints[processID] {
		return false
	}
	return len(f.TrustedOwners) > 0
}

// IgnoresTxID reports whether txID has been explicitly blocklisted.
func (f Filter) IgnoresTxID(txID string) bool {
	return f.IgnoreTxIDs[txID]
}

// TrustsOwner reports whether owner is trusted to have produced a
// checkpoint the find pipeline may use.
func (f Filter) TrustsOwner(owner string) bool {
	for _, o := range f.TrustedOwners {
		if o == owner {
			return true
		}
	}
	return false
}
