package bboltx

import "go.etcd.io/bbolt"

// CreateBucketIfNotExists creates nested buckets with names given by the elements of path.
func CreateBucketIfNotExists(p BucketParent, path ...[]byte) *bbolt.Bucket {
	if len(path) == 0 {
		panic("at least one path element must be provided")
	}

	var (
		b   *bbolt.Bucket
		err error
	)

	for _, n := range path {
		b, err = p.CreateBucketIfNotExists(n)
		Must(err)

		p = b
	}

	return b
}

// Bucket gets nested buckets with names given by the elements of path.
//
// It returns nil if any of the nested buckets does not exist.
func Bucket(p BucketParent, path ...[]byte) (b *bbolt.Bucket) {
	if len(path) == 0 {
		panic("at least one path element must be provided")
	}

	for _, n := range path {
		b = p.Bucket(n)
		if b == nil {
			return nil
		}

		p = b
	}

	return b
}

// Put writes a value to a bucket.
func Put(b *bbolt.Bucket, k, v []byte) {
	err := b.Put(k, v)
	Must(err)
}

// TryBucket gets nested buckets with names given by the elements of path,
// reporting whether the full path exists.
func TryBucket(p BucketParent, path ...[]byte) (*bbolt.Bucket, bool) {
	b := Bucket(p, path...)
	return b, b != nil
}

// PutPath writes v to the bucket at the leaf of path, creating any buckets
// along the way that do not already exist. The final element of path is
// used as the key, the preceding elements as nested bucket names.
func PutPath(root *bbolt.Bucket, v []byte, path ...[]byte) {
	if len(path) < 1 {
		panic("at least one path element must be provided")
	}

	b := root
	if len(path) > 1 {
		b = CreateBucketIfNotExists(root, path[:len(path)-1]...)
	}

	Put(b, path[len(path)-1], v)
}

// GetPath reads the value at the leaf of path, returning nil if any bucket
// along the way, or the key itself, does not exist.
func GetPath(root *bbolt.Bucket, path ...[]byte) []byte {
	if len(path) < 1 {
		panic("at least one path element must be provided")
	}

	b := root
	if len(path) > 1 {
		var ok bool
		b, ok = TryBucket(root, path[:len(path)-1]...)
		if !ok {
			return nil
		}
	}

	return b.Get(path[len(path)-1])
}

// DeletePath deletes the key at the leaf of path. It is a no-op if any
// bucket along the way, or the key itself, does not exist.
func DeletePath(root *bbolt.Bucket, path ...[]byte) {
	if len(path) < 1 {
		panic("at least one path element must be provided")
	}

	b := root
	if len(path) > 1 {
		var ok bool
		b, ok = TryBucket(root, path[:len(path)-1]...)
		if !ok {
			return
		}
	}

	Must(b.Delete(path[len(path)-1]))
}
