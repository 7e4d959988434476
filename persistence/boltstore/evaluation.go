package boltstore

import (
	"context"
	"encoding/json"
	"sort"

	"go.etcd.io/bbolt"

	"github.com/permaweb/cu/cuerr"
	"github.com/permaweb/cu/domain"
	"github.com/permaweb/cu/internal/x/bboltx"
	"github.com/permaweb/cu/ordinate"
	"github.com/permaweb/cu/persistence"
)

var evaluationBucketKey = []byte("evaluation")

// evaluationKey encodes the cron flag into the stored key so a cron
// evaluation and a message-driven evaluation at the same ordinate don't
// collide.
func evaluationKey(ord ordinate.Ordinate, cron bool) []byte {
	suffix := byte('m')
	if cron {
		suffix = 'c'
	}
	return append([]byte(ord.String()+"|"), suffix)
}

// FindEvaluation returns a single evaluation by its composite key.
func (s *Store) FindEvaluation(_ context.Context, processID string, ord ordinate.Ordinate, cron bool) (e domain.Evaluation, err error) {
	defer bboltx.Recover(&err)

	found := false

	bboltx.View(s.db, func(tx *bbolt.Tx) {
		root := bboltx.Bucket(tx, rootBucketKey)
		if root == nil {
			return
		}

		data := bboltx.GetPath(root, evaluationBucketKey, []byte(processID), evaluationKey(ord, cron))
		if data == nil {
			return
		}

		bboltx.Must(json.Unmarshal(data, &e))
		found = true
	})

	if !found {
		return domain.Evaluation{}, cuerr.NotFound("evaluation", processID+"@"+ord.String())
	}

	return e, nil
}

// SaveEvaluation appends an evaluation row.
func (s *Store) SaveEvaluation(_ context.Context, e domain.Evaluation) (err error) {
	defer bboltx.Recover(&err)

	data, mErr := json.Marshal(e)
	bboltx.Must(mErr)

	bboltx.Update(s.db, func(tx *bbolt.Tx) {
		root := bboltx.CreateBucketIfNotExists(tx, rootBucketKey)
		bboltx.PutPath(root, data, evaluationBucketKey, []byte(e.ProcessID), evaluationKey(e.Ordinate, e.Cron))
	})

	return nil
}

// FindEvaluations returns the evaluations matching q, ordered by q.Sort.
// q.From and q.To are both inclusive bounds.
//
// The per-process bucket is scanned in full and filtered in Go, since its
// keys are ordered by byte value, not by the big-integer ordinate
// comparison package ordinate defines.
func (s *Store) FindEvaluations(_ context.Context, q persistence.EvaluationQuery) (out []domain.Evaluation, err error) {
	defer bboltx.Recover(&err)

	bboltx.View(s.db, func(tx *bbolt.Tx) {
		root := bboltx.Bucket(tx, rootBucketKey)
		if root == nil {
			return
		}

		bucket, ok := bboltx.TryBucket(root, evaluationBucketKey, []byte(q.ProcessID))
		if !ok {
			return
		}

		bboltx.Must(bucket.ForEach(func(_, v []byte) error {
			var e domain.Evaluation
			if err := json.Unmarshal(v, &e); err != nil {
				return err
			}

			if q.OnlyCron && !e.Cron {
				return nil
			}
			if q.From != "" && e.Ordinate.Before(q.From) {
				return nil
			}
			if q.To != "" && e.Ordinate.After(q.To) {
				return nil
			}

			out = append(out, e)
			return nil
		}))
	})

	sort.Slice(out, func(i, j int) bool {
		if q.Sort == persistence.Descending {
			return out[i].Ordinate.After(out[j].Ordinate)
		}
		return out[i].Ordinate.Before(out[j].Ordinate)
	})

	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}

	return out, nil
}

// FindMessageBefore returns the evaluation that already applied the
// message identified by lookup, if any.
func (s *Store) FindMessageBefore(_ context.Context, lookup persistence.MessageLookup) (e domain.Evaluation, err error) {
	defer bboltx.Recover(&err)

	found := false

	bboltx.View(s.db, func(tx *bbolt.Tx) {
		root := bboltx.Bucket(tx, rootBucketKey)
		if root == nil {
			return
		}

		bucket, ok := bboltx.TryBucket(root, evaluationBucketKey, []byte(lookup.ProcessID))
		if !ok {
			return
		}

		bboltx.Must(bucket.ForEach(func(_, v []byte) error {
			if found {
				return nil
			}

			var candidate domain.Evaluation
			if err := json.Unmarshal(v, &candidate); err != nil {
				return err
			}

			if lookup.DeepHash != "" {
				if candidate.DeepHash == lookup.DeepHash {
					e = candidate
					found = true
				}
				return nil
			}

			if lookup.MessageID != "" && candidate.MessageID == lookup.MessageID {
				e = candidate
				found = true
			}

			return nil
		}))
	})

	if !found {
		return domain.Evaluation{}, cuerr.NotFound("message", lookup.ProcessID)
	}

	return e, nil
}
