package checkpoint

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/permaweb/cu/cuerr"
	"github.com/permaweb/cu/domain"
	"github.com/permaweb/cu/ordinate"
	"github.com/permaweb/cu/persistence"
)

// LocalFiles reads and writes process memory spill files and checkpoint
// files beneath a single directory.
//
// File names are sortable by construction:
// "<processId>_<timestamp>_<ordinate>_<rand>.mem", so FindCheckpointFileBefore
// can answer "before" queries with a directory glob rather than an index.
type LocalFiles struct {
	Dir string
}

func fileName(processID string, ts time.Time, ord ordinate.Ordinate) string {
	return fmt.Sprintf(
		"%s_%020d_%s_%s.mem",
		processID,
		ts.UnixNano(),
		strings.ReplaceAll(ord.String(), ":", "-"),
		uuid.NewString()[:8],
	)
}

// WriteProcessMemoryFile writes payload to a new spill file for the given
// position and returns the file's name (not full path).
func (l LocalFiles) WriteProcessMemoryFile(pos domain.EvaluationPosition, payload []byte) (string, error) {
	if err := os.MkdirAll(l.Dir, 0o755); err != nil {
		return "", err
	}

	name := fileName(pos.ProcessID, pos.Timestamp, pos.Ordinate)

	if err := os.WriteFile(filepath.Join(l.Dir, name), payload, 0o644); err != nil {
		return "", err
	}

	return name, nil
}

// CacheSpiller implements memcache.Spiller by writing a spill file and
// registering it as a checkpoint record, so a process memory evicted by
// cache pressure alone (not by an explicit or eager checkpoint) can still
// be found by Pipeline.FindLatestProcessMemoryBefore's checkpoint-record
// lookup rather than only by a cold replay.
type CacheSpiller struct {
	Files LocalFiles
	Store persistence.Store
}

// Spill writes mem to a spill file and records it, implementing
// memcache.Spiller.
func (s CacheSpiller) Spill(ctx context.Context, mem domain.ProcessMemory) (string, error) {
	file, err := s.Files.WriteProcessMemoryFile(mem.Evaluation, mem.Memory.Bytes)
	if err != nil {
		return "", err
	}

	if err := s.Store.WriteCheckpointRecord(ctx, domain.CheckpointRecord{
		ProcessID: mem.Evaluation.ProcessID,
		Ordinate:  mem.Evaluation.Ordinate,
		Timestamp: mem.Evaluation.Timestamp,
		File:      file,
	}); err != nil {
		return "", err
	}

	return file, nil
}

// ReadProcessMemoryFile reads a previously-written spill file by name.
func (l LocalFiles) ReadProcessMemoryFile(name string) ([]byte, error) {
	data, err := os.ReadFile(filepath.Join(l.Dir, name))
	if os.IsNotExist(err) {
		return nil, cuerr.NotFound("process-memory-file", name)
	}
	return data, err
}

// ReadCheckpointFile reads a locally-stored checkpoint file by name. Local
// checkpoints and process-memory spill files share the same directory and
// naming scheme.
func (l LocalFiles) ReadCheckpointFile(name string) ([]byte, error) {
	return l.ReadProcessMemoryFile(name)
}

// FindCheckpointFileBefore scans Dir for the checkpoint file belonging to
// processID with the greatest ordinate less than or equal to before.
func (l LocalFiles) FindCheckpointFileBefore(processID string, before ordinate.Ordinate) (string, error) {
	matches, err := filepath.Glob(filepath.Join(l.Dir, processID+"_*.mem"))
	if err != nil {
		return "", err
	}

	var best string
	var bestOrd ordinate.Ordinate
	found := false

	for _, path := range matches {
		ord, ok := parseOrdinateFromFileName(filepath.Base(path), processID)
		if !ok || ord.After(before) {
			continue
		}

		if !found || ord.After(bestOrd) {
			best = filepath.Base(path)
			bestOrd = ord
			found = true
		}
	}

	if !found {
		return "", cuerr.NotFound("checkpoint-file", processID)
	}

	return best, nil
}

func parseOrdinateFromFileName(name, processID string) (ordinate.Ordinate, bool) {
	name = strings.TrimSuffix(name, ".mem")
	name = strings.TrimPrefix(name, processID+"_")

	parts := strings.Split(name, "_")
	if len(parts) != 3 {
		return "", false
	}

	return ordinate.Ordinate(strings.ReplaceAll(parts[1], "-", ":")), true
}

// listFileNames returns every local file name for processID, sorted by
// name: by timestamp first, then by the ordinate's text. Used by tests and
// diagnostics.
func (l LocalFiles) listFileNames(processID string) ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(l.Dir, processID+"_*.mem"))
	if err != nil {
		return nil, err
	}

	names := make([]string, len(matches))
	for i, m := range matches {
		names[i] = filepath.Base(m)
	}

	sort.Strings(names)
	return names, nil
}
