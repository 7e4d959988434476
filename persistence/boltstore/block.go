package boltstore

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"sort"

	"go.etcd.io/bbolt"

	"github.com/permaweb/cu/domain"
	"github.com/permaweb/cu/internal/x/bboltx"
)

var blockBucketKey = []byte("block")

func blockKey(height uint64) []byte {
	k := make([]byte, 8)
	binary.BigEndian.PutUint64(k, height)
	return k
}

// FindBlocks returns the cached blocks with height in [min, max].
func (s *Store) FindBlocks(_ context.Context, min, max uint64) (out []domain.Block, err error) {
	defer bboltx.Recover(&err)

	bboltx.View(s.db, func(tx *bbolt.Tx) {
		root := bboltx.Bucket(tx, rootBucketKey)
		if root == nil {
			return
		}

		bucket, ok := bboltx.TryBucket(root, blockBucketKey)
		if !ok {
			return
		}

		c := bucket.Cursor()
		for k, v := c.Seek(blockKey(min)); k != nil; k, v = c.Next() {
			if binary.BigEndian.Uint64(k) > max {
				break
			}

			var b domain.Block
			bboltx.Must(json.Unmarshal(v, &b))
			out = append(out, b)
		}
	})

	sort.Slice(out, func(i, j int) bool { return out[i].Height < out[j].Height })

	return out, nil
}

// SaveBlocks merges blocks into the cache.
func (s *Store) SaveBlocks(_ context.Context, blocks []domain.Block) (err error) {
	defer bboltx.Recover(&err)

	bboltx.Update(s.db, func(tx *bbolt.Tx) {
		root := bboltx.CreateBucketIfNotExists(tx, rootBucketKey)
		bucket := bboltx.CreateBucketIfNotExists(root, blockBucketKey)

		for _, b := range blocks {
			data, mErr := json.Marshal(b)
			bboltx.Must(mErr)
			bboltx.Put(bucket, blockKey(b.Height), data)
		}
	})

	return nil
}
