package readapi

import "context"

// Health is the result of a healthcheck() call: the wallet address this
// CU signs checkpoints with, plus whether its sub-stores are reachable.
type Health struct {
	Address              string
	PersistenceReachable bool
	CheckpointsReachable bool
}

// Healthcheck reports the wallet address and the reachability of the
// persistence store. CheckpointsReachable only reports whether a
// checkpoint pipeline is wired; its local files are not probed.
func (a *API) Healthcheck(ctx context.Context) Health {
	h := Health{Address: a.Wallet.Owner()}

	if a.Store != nil {
		_, err := a.Store.FindBlocks(ctx, 0, 0)
		h.PersistenceReachable = err == nil
	}

	if a.Checkpoints != nil {
		h.CheckpointsReachable = true
	}

	return h
}
