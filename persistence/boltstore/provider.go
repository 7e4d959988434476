// Package boltstore is a persistence.Store backed by a BoltDB file,
// following the same open/lock/close lifecycle the engine's BoltDB
// persistence provider used for its application data stores.
package boltstore

import (
	"context"
	"os"

	"go.etcd.io/bbolt"

	"github.com/permaweb/cu/internal/x/bboltx"
	"github.com/permaweb/cu/persistence"
)

// Open opens (creating if necessary) a BoltDB file at path and returns a
// Store backed by it.
//
// If the deadline from ctx is sooner than bbolt's own file-lock timeout,
// the context deadline is used instead.
func Open(ctx context.Context, path string, mode os.FileMode) (*Store, error) {
	db, err := bboltx.Open(ctx, path, mode, nil)
	if err != nil {
		return nil, err
	}

	bboltx.Update(db, func(tx *bbolt.Tx) {
		bboltx.CreateBucketIfNotExists(tx, rootBucketKey)
	})

	return &Store{db: db}, nil
}

// Store is a persistence.Store backed by a single BoltDB database. All
// buckets live beneath one root bucket so the whole store can be wiped by
// deleting one key.
type Store struct {
	db *bbolt.DB
}

var rootBucketKey = []byte("cu")

// Close closes the underlying database file.
func (s *Store) Close() error {
	return s.db.Close()
}

var _ persistence.Store = (*Store)(nil)
