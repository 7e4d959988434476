package boltstore

import (
	"context"
	"encoding/json"

	"go.etcd.io/bbolt"

	"github.com/permaweb/cu/cuerr"
	"github.com/permaweb/cu/domain"
	"github.com/permaweb/cu/internal/x/bboltx"
	"github.com/permaweb/cu/persistence"
)

var checkpointBucketKey = []byte("checkpoint")

// WriteCheckpointRecord appends a checkpoint record for a process, keyed by
// its ordinate so later records for the same process don't overwrite
// earlier ones.
func (s *Store) WriteCheckpointRecord(_ context.Context, r domain.CheckpointRecord) (err error) {
	defer bboltx.Recover(&err)

	data, mErr := json.Marshal(r)
	bboltx.Must(mErr)

	bboltx.Update(s.db, func(tx *bbolt.Tx) {
		root := bboltx.CreateBucketIfNotExists(tx, rootBucketKey)
		bboltx.PutPath(root, data, checkpointBucketKey, []byte(r.ProcessID), []byte(r.Ordinate.String()))
	})

	return nil
}

// FindCheckpointRecordBefore returns the checkpoint record for the process
// with the greatest ordinate less than or equal to q.Before.Ordinate.
func (s *Store) FindCheckpointRecordBefore(_ context.Context, q persistence.CheckpointQuery) (best domain.CheckpointRecord, err error) {
	defer bboltx.Recover(&err)

	found := false

	bboltx.View(s.db, func(tx *bbolt.Tx) {
		root := bboltx.Bucket(tx, rootBucketKey)
		if root == nil {
			return
		}

		bucket, ok := bboltx.TryBucket(root, checkpointBucketKey, []byte(q.ProcessID))
		if !ok {
			return
		}

		bboltx.Must(bucket.ForEach(func(_, v []byte) error {
			var r domain.CheckpointRecord
			if err := json.Unmarshal(v, &r); err != nil {
				return err
			}

			if r.Ordinate.After(q.Before.Ordinate) {
				return nil
			}

			if !found || r.Ordinate.After(best.Ordinate) {
				best = r
				found = true
			}

			return nil
		}))
	})

	if !found {
		return domain.CheckpointRecord{}, cuerr.NotFound("checkpoint-record", q.ProcessID)
	}

	return best, nil
}
