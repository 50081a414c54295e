// Copyright (c) 2021-2024 The Decred developers
// Copyright (c) 2026 The stakechain developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package chaindb

import (
	"errors"
	"fmt"

	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/iterator"
	"github.com/syndtr/goleveldb/leveldb/util"
)

var (
	errTxClosed = contextError(ErrDbTxClosed, "transaction is closed")

	errTxNotWritable = contextError(ErrDbTxNotWritable, "transaction is "+
		"read-only")
)

// closedIterator is returned when iterating a closed transaction.
func closedIterator() Iterator {
	return iterator.NewEmptyIterator(errTxClosed)
}

// roTx is a read-only transaction backed by a leveldb snapshot.
type roTx struct {
	snap *leveldb.Snapshot
}

// Ensure roTx implements the Tx interface.
var _ Tx = (*roTx)(nil)

func (tx *roTx) Get(key []byte) ([]byte, error) {
	if tx.snap == nil {
		return nil, errTxClosed
	}
	v, err := tx.snap.Get(key, nil)
	if err != nil {
		if errors.Is(err, leveldb.ErrNotFound) {
			return nil, nil
		}
		return nil, convertLdbErr(err, fmt.Sprintf("failed to get key %x", key))
	}
	return v, nil
}

func (tx *roTx) Has(key []byte) (bool, error) {
	if tx.snap == nil {
		return false, errTxClosed
	}
	ok, err := tx.snap.Has(key, nil)
	if err != nil {
		return false, convertLdbErr(err, fmt.Sprintf("failed to check key %x",
			key))
	}
	return ok, nil
}

func (tx *roTx) NewIterator(prefix []byte) Iterator {
	if tx.snap == nil {
		return closedIterator()
	}
	return tx.snap.NewIterator(util.BytesPrefix(prefix), nil)
}

func (tx *roTx) Put(key, value []byte) error {
	return errTxNotWritable
}

func (tx *roTx) Delete(key []byte) error {
	return errTxNotWritable
}

func (tx *roTx) Writable() bool {
	return false
}

func (tx *roTx) Commit() error {
	return tx.Rollback()
}

func (tx *roTx) Rollback() error {
	if tx.snap != nil {
		tx.snap.Release()
		tx.snap = nil
	}
	return nil
}

// rwTx is a writable transaction backed by a leveldb transaction.  Reads
// observe the transaction's own uncommitted writes.
type rwTx struct {
	tx *leveldb.Transaction
}

// Ensure rwTx implements the Tx interface.
var _ Tx = (*rwTx)(nil)

func (tx *rwTx) Get(key []byte) ([]byte, error) {
	if tx.tx == nil {
		return nil, errTxClosed
	}
	v, err := tx.tx.Get(key, nil)
	if err != nil {
		if errors.Is(err, leveldb.ErrNotFound) {
			return nil, nil
		}
		return nil, convertLdbErr(err, fmt.Sprintf("failed to get key %x", key))
	}
	return v, nil
}

func (tx *rwTx) Has(key []byte) (bool, error) {
	if tx.tx == nil {
		return false, errTxClosed
	}
	ok, err := tx.tx.Has(key, nil)
	if err != nil {
		return false, convertLdbErr(err, fmt.Sprintf("failed to check key %x",
			key))
	}
	return ok, nil
}

func (tx *rwTx) NewIterator(prefix []byte) Iterator {
	if tx.tx == nil {
		return closedIterator()
	}
	return tx.tx.NewIterator(util.BytesPrefix(prefix), nil)
}

func (tx *rwTx) Put(key, value []byte) error {
	if tx.tx == nil {
		return errTxClosed
	}
	if err := tx.tx.Put(key, value, nil); err != nil {
		return convertLdbErr(err, fmt.Sprintf("failed to put key %x", key))
	}
	return nil
}

func (tx *rwTx) Delete(key []byte) error {
	if tx.tx == nil {
		return errTxClosed
	}
	if err := tx.tx.Delete(key, nil); err != nil {
		return convertLdbErr(err, fmt.Sprintf("failed to delete key %x", key))
	}
	return nil
}

func (tx *rwTx) Writable() bool {
	return true
}

func (tx *rwTx) Commit() error {
	if tx.tx == nil {
		return errTxClosed
	}
	ltx := tx.tx
	if err := ltx.Commit(); err != nil {
		ltx.Discard()
		tx.tx = nil
		cerr := convertLdbErr(err, "failed to commit transaction")
		if cerr.Err == ErrDb {
			cerr.Err = ErrDbCommit
		}
		return cerr
	}
	tx.tx = nil
	return nil
}

func (tx *rwTx) Rollback() error {
	if tx.tx != nil {
		tx.tx.Discard()
		tx.tx = nil
	}
	return nil
}
