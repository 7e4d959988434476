// Package checkpoint implements the checkpoint store: local spill/
// checkpoint files, the content-addressed network gateway, data-item
// signing and upload, and the save/find pipelines that tie them together.
package checkpoint

import (
	"context"
	"sync"
	"time"

	"github.com/dogmatiq/dodeca/logging"

	"github.com/permaweb/cu/cuerr"
	"github.com/permaweb/cu/domain"
	"github.com/permaweb/cu/internal/x/syncx"
	"github.com/permaweb/cu/memcache"
	"github.com/permaweb/cu/ordinate"
	"github.com/permaweb/cu/persistence"
)

// Pipeline is the checkpoint store's save and find pipelines, wiring
// together the memory cache, the local persistence store, local files,
// and the remote gateway.
type Pipeline struct {
	Cache   *memcache.Cache
	Store   persistence.Store
	Files   LocalFiles
	Gateway Gateway
	Wallet  Wallet
	Upload  Uploader
	Filter  Filter
	Logger  logging.Logger

	// Disable makes SaveCheckpoint a no-op that still records local file
	// references, matching DISABLE_PROCESS_CHECKPOINT_CREATION.
	Disable bool

	// Throttle is the minimum interval between two checkpoints for the
	// same process.
	Throttle time.Duration

	m    sync.Mutex
	last map[string]time.Time

	// saves serializes SaveCheckpoint per process, so an eager checkpoint
	// triggered by the pipeline and a checkpointAll sweep never upload two
	// checkpoints for the same process at once.
	saves syncx.MutexNamespace
}

func (p *Pipeline) throttled(processID string) bool {
	p.m.Lock()
	defer p.m.Unlock()

	if p.last == nil {
		p.last = map[string]time.Time{}
	}

	if p.Throttle <= 0 {
		return false
	}

	if t, ok := p.last[processID]; ok && time.Since(t) < p.Throttle {
		return true
	}

	p.last[processID] = time.Now()
	return false
}

// SaveCheckpoint runs the save pipeline for mem: hash, sign, upload, then
// record. Every step's failure is logged and swallowed; the caller always
// gets a nil error back, since a missed checkpoint is retried on the next
// eligible evaluation rather than propagated as a request failure.
func (p *Pipeline) SaveCheckpoint(ctx context.Context, mem domain.ProcessMemory) error {
	processID := mem.Evaluation.ProcessID

	if p.throttled(processID) {
		return nil
	}

	unlock, err := p.saves.Lock(ctx, processID)
	if err != nil {
		return nil
	}
	defer unlock()

	if p.Disable {
		file, err := p.Files.WriteProcessMemoryFile(mem.Evaluation, mem.Memory.Bytes)
		if err != nil {
			p.warn(processID, "disabled-checkpoint file write", err)
			return nil
		}

		if err := p.Store.WriteCheckpointRecord(ctx, domain.CheckpointRecord{
			ProcessID: processID,
			Ordinate:  mem.Evaluation.Ordinate,
			Timestamp: mem.Evaluation.Timestamp,
			File:      file,
		}); err != nil {
			p.warn(processID, "disabled-checkpoint record", err)
		}

		return nil
	}

	hash := HashMemory(mem.Memory.Bytes)

	tags := []domain.Tag{
		{Name: "Process-Id", Value: processID},
		{Name: "Module-Id", Value: mem.ModuleID},
		{Name: "Ordinate", Value: mem.Evaluation.Ordinate.String()},
		{Name: "Memory-Hash", Value: hash},
		{Name: "Data-Protocol", Value: "ao"},
	}

	item, err := BuildAndSignDataItem(p.Wallet, mem.Memory.Bytes, tags)
	if err != nil {
		p.warn(processID, "build and sign data item", err)
		return nil
	}

	txID, err := p.Upload.UploadDataItem(ctx, item)
	if err != nil {
		p.warn(processID, "upload data item", err)
		return nil
	}

	if err := p.Store.WriteCheckpointRecord(ctx, domain.CheckpointRecord{
		ProcessID: processID,
		Ordinate:  mem.Evaluation.Ordinate,
		Timestamp: mem.Evaluation.Timestamp,
		TxID:      txID,
	}); err != nil {
		p.warn(processID, "write checkpoint record", err)
	}

	return nil
}

func (p *Pipeline) warn(processID, step string, err error) {
	if logging.IsDebug(p.Logger) {
		logging.Debug(p.Logger, "checkpoint pipeline: %s failed for %s: %s", step, processID, err)
	}
}

// FindLatestProcessMemoryBefore returns the process memory for processID
// at the greatest position less than or equal to target, falling back
// through the memory cache, local persistence and files, and finally the
// remote gateway. If nothing is found, it returns cold-start memory at
// ordinate zero.
func (p *Pipeline) FindLatestProcessMemoryBefore(ctx context.Context, processID string, target ordinate.Ordinate) (domain.ProcessMemory, error) {
	if p.Cache != nil {
		if mem, ok := p.Cache.Get(processID); ok && !mem.Evaluation.Ordinate.After(target) {
			return mem, nil
		}
	}

	record, err := p.Store.FindCheckpointRecordBefore(ctx, persistence.CheckpointQuery{
		ProcessID: processID,
		Before:    domain.EvaluationPosition{Ordinate: target},
	})
	if err == nil {
		mem, err := p.loadFromRecord(record)
		if err == nil {
			return mem, nil
		}
		if !cuerr.IsNotFound(err) {
			return domain.ProcessMemory{}, err
		}
	} else if !cuerr.IsNotFound(err) {
		return domain.ProcessMemory{}, err
	}

	if p.Filter.AllowsGateway(processID) {
		mem, err := p.findFromGateway(ctx, processID, target)
		if err == nil {
			return mem, nil
		}
		if !cuerr.IsNotFound(err) {
			return domain.ProcessMemory{}, err
		}
	}

	return domain.ProcessMemory{
		Evaluation: domain.EvaluationPosition{ProcessID: processID, Ordinate: ordinate.Zero},
	}, nil
}

func (p *Pipeline) loadFromRecord(record domain.CheckpointRecord) (domain.ProcessMemory, error) {
	var payload []byte
	var err error

	if record.File != "" {
		payload, err = p.Files.ReadProcessMemoryFile(record.File)
	} else {
		name, fErr := p.Files.FindCheckpointFileBefore(record.ProcessID, record.Ordinate)
		if fErr != nil {
			return domain.ProcessMemory{}, fErr
		}
		payload, err = p.Files.ReadCheckpointFile(name)
	}
	if err != nil {
		return domain.ProcessMemory{}, err
	}

	return domain.ProcessMemory{
		Memory: domain.MemoryRef{Bytes: payload},
		Evaluation: domain.EvaluationPosition{
			ProcessID: record.ProcessID,
			Ordinate:  record.Ordinate,
			Timestamp: record.Timestamp,
		},
	}, nil
}

func (p *Pipeline) findFromGateway(ctx context.Context, processID string, target ordinate.Ordinate) (domain.ProcessMemory, error) {
	descriptors, err := p.Gateway.Query(ctx, processID, p.Filter.TrustedOwners)
	if err != nil {
		return domain.ProcessMemory{}, err
	}

	var best Descriptor
	found := false

	for _, d := range descriptors {
		if !p.Filter.TrustsOwner(d.Owner) {
			continue
		}
		if p.Filter.IgnoresTxID(d.TxID) {
			continue
		}
		if d.Ordinate.After(target) {
			continue
		}
		if !found || d.Ordinate.After(best.Ordinate) {
			best = d
			found = true
		}
	}

	if !found {
		return domain.ProcessMemory{}, cuerr.NotFound("gateway-checkpoint", processID)
	}

	payload, err := p.downloadAndVerify(ctx, best)
	if err != nil {
		return domain.ProcessMemory{}, err
	}

	return domain.ProcessMemory{
		Memory: domain.MemoryRef{Bytes: payload},
		Evaluation: domain.EvaluationPosition{
			ProcessID: processID,
			Ordinate:  best.Ordinate,
		},
	}, nil
}

// downloadAndVerify is implemented in gateway_download.go, kept separate
// since it is the one network round-trip that isn't covered by Gateway or
// Uploader's request/response shape.
