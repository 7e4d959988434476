package sqlstore

import (
	"context"
	"encoding/json"

	"github.com/permaweb/cu/cuerr"
	"github.com/permaweb/cu/domain"
	"github.com/permaweb/cu/persistence"
)

// WriteCheckpointRecord appends a checkpoint record for a process, keyed
// by its ordinate so later records for the same process don't overwrite
// earlier ones.
func (s *Store) WriteCheckpointRecord(ctx context.Context, r domain.CheckpointRecord) error {
	data, err := json.Marshal(r)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO cu_checkpoint_record (process_id, ordinate, data) VALUES (?, ?, ?)
		ON CONFLICT (process_id, ordinate) DO UPDATE SET data = excluded.data
	`, r.ProcessID, r.Ordinate.String(), data)
	return err
}

// FindCheckpointRecordBefore returns the checkpoint record for the process
// with the greatest ordinate less than or equal to q.Before.Ordinate.
//
// As with FindEvaluations, the comparison is applied in Go since the
// stored ordinate column's lexical order doesn't match ordinate's
// big-integer total order.
func (s *Store) FindCheckpointRecordBefore(ctx context.Context, q persistence.CheckpointQuery) (domain.CheckpointRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT data FROM cu_checkpoint_record WHERE process_id = ?
	`, q.ProcessID)
	if err != nil {
		return domain.CheckpointRecord{}, err
	}
	defer rows.Close()

	var best domain.CheckpointRecord
	found := false

	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return domain.CheckpointRecord{}, err
		}

		var r domain.CheckpointRecord
		if err := json.Unmarshal(data, &r); err != nil {
			return domain.CheckpointRecord{}, err
		}

		if r.Ordinate.After(q.Before.Ordinate) {
			continue
		}

		if !found || r.Ordinate.After(best.Ordinate) {
			best = r
			found = true
		}
	}
	if err := rows.Err(); err != nil {
		return domain.CheckpointRecord{}, err
	}

	if !found {
		return domain.CheckpointRecord{}, cuerr.NotFound("checkpoint-record", q.ProcessID)
	}

	return best, nil
}
