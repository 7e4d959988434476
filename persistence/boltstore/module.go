package boltstore

import (
	"context"
	"encoding/json"

	"go.etcd.io/bbolt"

	"github.com/permaweb/cu/cuerr"
	"github.com/permaweb/cu/domain"
	"github.com/permaweb/cu/internal/x/bboltx"
)

var moduleBucketKey = []byte("module")

// FindModule returns the module with the given id.
func (s *Store) FindModule(_ context.Context, id string) (mod domain.Module, err error) {
	defer bboltx.Recover(&err)

	found := false

	bboltx.View(s.db, func(tx *bbolt.Tx) {
		root := bboltx.Bucket(tx, rootBucketKey)
		if root == nil {
			return
		}

		data := bboltx.GetPath(root, moduleBucketKey, []byte(id))
		if data == nil {
			return
		}

		bboltx.Must(json.Unmarshal(data, &mod))
		found = true
	})

	if !found {
		return domain.Module{}, cuerr.NotFound("module", id)
	}

	return mod, nil
}

// SaveModule upserts a module.
func (s *Store) SaveModule(_ context.Context, mod domain.Module) (err error) {
	defer bboltx.Recover(&err)

	data, mErr := json.Marshal(mod)
	bboltx.Must(mErr)

	bboltx.Update(s.db, func(tx *bbolt.Tx) {
		root := bboltx.CreateBucketIfNotExists(tx, rootBucketKey)
		bboltx.PutPath(root, data, moduleBucketKey, []byte(mod.ID))
	})

	return nil
}
