// Copyright (c) 2021-2024 The Decred developers
// Copyright (c) 2026 The stakechain developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package chaindb

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/syndtr/goleveldb/leveldb"
	ldberrors "github.com/syndtr/goleveldb/leveldb/errors"
	"github.com/syndtr/goleveldb/leveldb/filter"
	"github.com/syndtr/goleveldb/leveldb/opt"
	"github.com/syndtr/goleveldb/leveldb/storage"
)

// dbName is the name of the chain database directory inside the data
// directory.
const dbName = "chaindb"

// Reader is the read side of a database transaction.
type Reader interface {
	// Get returns the value for the given key.  It returns nil for both the
	// value and the error if the key does not exist.
	//
	// The returned slice is safe to modify.
	Get(key []byte) ([]byte, error)

	// Has returns true if the key exists.
	Has(key []byte) (bool, error)

	// NewIterator returns an iterator over the keys with the given prefix
	// as seen by the transaction.  The iterator must be released after use.
	NewIterator(prefix []byte) Iterator
}

// Writer is a Reader that can also modify the database.
type Writer interface {
	Reader

	// Put sets the value for the given key.  It overwrites any previous
	// value for that key.
	Put(key, value []byte) error

	// Delete removes the given key.  Deleting a missing key is not an
	// error.
	Delete(key []byte) error
}

// Tx represents a database transaction.
//
// Read-only transactions observe the database as it was committed when they
// began and are unaffected by concurrent writes.  At most one writable
// transaction is open at a time: Begin blocks until the previous writable
// transaction is committed or rolled back.
type Tx interface {
	Writer

	// Writable returns whether the transaction may modify the database.
	Writable() bool

	// Commit commits the transaction.  An error of kind ErrDbCommit means
	// nothing was written and the work may be retried in a new
	// transaction.  Committing a read-only transaction releases it.
	Commit() error

	// Rollback discards the transaction.  It is a noop on a transaction
	// that is already closed.
	Rollback() error
}

// Iterator iterates over key/value pairs in key order.
type Iterator interface {
	// First moves the iterator to the first pair.  It returns whether
	// such a pair exists.
	First() bool

	// Next moves the iterator to the next pair.  It returns false when
	// the iterator is exhausted.
	Next() bool

	// Key returns the key of the current pair.  The slice must not be
	// modified and is only valid until the next call to Next.
	Key() []byte

	// Value returns the value of the current pair.  The slice must not be
	// modified and is only valid until the next call to Next.
	Value() []byte

	// Error returns any accumulated error.
	Error() error

	// Release releases the iterator.
	Release()
}

// Store begins database transactions.  It is satisfied by *DB.
type Store interface {
	Begin(writable bool) (Tx, error)
}

// DB is the persistent chain database.  It is a thin transactional layer over
// a leveldb instance with ordered byte keys.
type DB struct {
	ldb *leveldb.DB
}

// Ensure DB implements the Store interface.
var _ Store = (*DB)(nil)

// convertLdbErr converts the passed leveldb error into a context error with an
// equivalent error kind and the passed description.  It also sets the passed
// error as the underlying error and adds its error string to the description.
func convertLdbErr(ldbErr error, desc string) ContextError {
	var kind = ErrDb

	switch {
	case ldberrors.IsCorrupted(ldbErr):
		kind = ErrDbCorruption

	case errors.Is(ldbErr, leveldb.ErrClosed):
		kind = ErrDbNotOpen

	case errors.Is(ldbErr, leveldb.ErrSnapshotReleased):
		kind = ErrDbTxClosed
	case errors.Is(ldbErr, leveldb.ErrIterReleased):
		kind = ErrDbTxClosed
	}

	desc = fmt.Sprintf("%s: %v", desc, ldbErr)
	err := contextError(kind, desc)
	err.RawErr = ldbErr
	return err
}

// fileExists reports whether the named file or directory exists.
func fileExists(name string) bool {
	if _, err := os.Stat(name); err != nil {
		if os.IsNotExist(err) {
			return false
		}
	}
	return true
}

// Open loads (or creates when needed) the chain database in the given data
// directory.
func Open(dataDir string) (*DB, error) {
	dbPath := filepath.Join(dataDir, dbName)
	dbExists := fileExists(dbPath)
	if !dbExists {
		// The error can be ignored here since the call to
		// leveldb.OpenFile will fail if the directory couldn't be
		// created.
		_ = os.MkdirAll(dataDir, 0700)
	}

	log.Infof("Loading chain database from '%s'", dbPath)
	opts := opt.Options{
		ErrorIfExist: !dbExists,
		Strict:       opt.DefaultStrict,
		Compression:  opt.NoCompression,
		Filter:       filter.NewBloomFilter(10),
	}
	ldb, err := leveldb.OpenFile(dbPath, &opts)
	if err != nil {
		return nil, convertLdbErr(err, "failed to open chain database")
	}
	log.Info("Chain database loaded")
	return &DB{ldb: ldb}, nil
}

// OpenMem returns a database backed by memory only.  It is primarily useful
// for tests.
func OpenMem() (*DB, error) {
	ldb, err := leveldb.Open(storage.NewMemStorage(), nil)
	if err != nil {
		return nil, convertLdbErr(err, "failed to open memory database")
	}
	return &DB{ldb: ldb}, nil
}

// Close closes the database.  Open transactions must be closed first.
func (db *DB) Close() error {
	if err := db.ldb.Close(); err != nil {
		return convertLdbErr(err, "failed to close chain database")
	}
	return nil
}

// Begin starts a transaction.  A writable transaction holds the database write
// lock until it is committed or rolled back.
func (db *DB) Begin(writable bool) (Tx, error) {
	if !writable {
		snap, err := db.ldb.GetSnapshot()
		if err != nil {
			return nil, convertLdbErr(err, "failed to begin read-only "+
				"transaction")
		}
		return &roTx{snap: snap}, nil
	}

	ltx, err := db.ldb.OpenTransaction()
	if err != nil {
		return nil, convertLdbErr(err, "failed to begin transaction")
	}
	return &rwTx{tx: ltx}, nil
}

// View invokes the passed function in the context of a read-only transaction.
func (db *DB) View(fn func(tx Tx) error) error {
	tx, err := db.Begin(false)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	return fn(tx)
}

// Update invokes the passed function in the context of a writable transaction.
// Any errors returned from the user-supplied function will cause the
// transaction to be rolled back and are returned from this function.
// Otherwise, the transaction is committed when the user-supplied function
// returns a nil error.
func (db *DB) Update(fn func(tx Tx) error) error {
	tx, err := db.Begin(true)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}
