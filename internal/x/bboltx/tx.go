package bboltx

import (
	"go.etcd.io/bbolt"
)

// BeginRead starts a read-only transaction.
func BeginRead(db *bbolt.DB) *bbolt.Tx {
	tx, err := db.Begin(false)
	Must(err)
	return tx
}

// BeginWrite starts a read-write transaction.
func BeginWrite(db *bbolt.DB) *bbolt.Tx {
	tx, err := db.Begin(true)
	Must(err)
	return tx
}

// Commit commits the given transaction.
func Commit(tx *bbolt.Tx) {
	Must(tx.Commit())
}

// View executes fn within a read-only transaction against db.
//
// Any call to Must() (directly or transitively) within fn aborts the
// transaction and the error is propagated out of View via a panic; callers
// typically pair View with a deferred Recover.
func View(db *bbolt.DB, fn func(tx *bbolt.Tx)) {
	Must(db.View(func(tx *bbolt.Tx) error {
		fn(tx)
		return nil
	}))
}

// Update executes fn within a read-write transaction against db, committing
// the transaction if fn does not panic.
func Update(db *bbolt.DB, fn func(tx *bbolt.Tx)) {
	Must(db.Update(func(tx *bbolt.Tx) error {
		fn(tx)
		return nil
	}))
}
