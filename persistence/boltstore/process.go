package boltstore

import (
	"context"
	"encoding/json"

	"go.etcd.io/bbolt"

	"github.com/permaweb/cu/cuerr"
	"github.com/permaweb/cu/domain"
	"github.com/permaweb/cu/internal/x/bboltx"
)

var processBucketKey = []byte("process")

// FindProcess returns the process with the given id.
func (s *Store) FindProcess(_ context.Context, id string) (p domain.Process, err error) {
	defer bboltx.Recover(&err)

	found := false

	bboltx.View(s.db, func(tx *bbolt.Tx) {
		root := bboltx.Bucket(tx, rootBucketKey)
		if root == nil {
			return
		}

		data := bboltx.GetPath(root, processBucketKey, []byte(id))
		if data == nil {
			return
		}

		bboltx.Must(json.Unmarshal(data, &p))
		found = true
	})

	if !found {
		return domain.Process{}, cuerr.NotFound("process", id)
	}

	return p, nil
}

// SaveProcess upserts a process.
func (s *Store) SaveProcess(_ context.Context, p domain.Process) (err error) {
	defer bboltx.Recover(&err)

	data, mErr := json.Marshal(p)
	bboltx.Must(mErr)

	bboltx.Update(s.db, func(tx *bbolt.Tx) {
		root := bboltx.CreateBucketIfNotExists(tx, rootBucketKey)
		bboltx.PutPath(root, data, processBucketKey, []byte(p.ID))
	})

	return nil
}
