// Copyright (c) 2026 The stakechain developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package utxo

import (
	"github.com/decred/dcrd/chaincfg/chainhash"
	"github.com/stakechain/chaind/internal/chaindb"
	"github.com/stakechain/chaind/wire"
)

// DBView is the UTXO set as stored in a database transaction.
type DBView struct {
	r chaindb.Reader
}

// Ensure DBView implements the View interface.
var _ View = (*DBView)(nil)

// NewDBView returns a view of the UTXO set stored in the given transaction.
func NewDBView(r chaindb.Reader) *DBView {
	return &DBView{r: r}
}

func utxoKey(op *wire.OutPoint) []byte {
	return chaindb.BucketUtxoSet.Key(op.Key())
}

// FetchEntry loads the entry for the outpoint from the database.  It is part
// of the View interface.
func (v *DBView) FetchEntry(op wire.OutPoint) (*Entry, error) {
	b, err := v.r.Get(utxoKey(&op))
	if err != nil || b == nil {
		return nil, err
	}
	return DeserializeEntry(b)
}

// BestBlock returns the block the stored UTXO set is consistent with.  It is
// part of the View interface.
func (v *DBView) BestBlock() (chainhash.Hash, error) {
	var hash chainhash.Hash
	b, err := v.r.Get(chaindb.UtxoBestBlockKey)
	if err != nil {
		return hash, err
	}
	if b == nil {
		return hash, nil
	}
	if len(b) != chainhash.HashSize {
		return hash, chaindb.DecodeError("malformed utxo best block")
	}
	copy(hash[:], b)
	return hash, nil
}

// ForEach invokes fn for every stored unspent output in key order.
func (v *DBView) ForEach(fn func(op wire.OutPoint, entry *Entry) error) error {
	iter := v.r.NewIterator(chaindb.BucketUtxoSet.Prefix())
	defer iter.Release()
	for iter.Next() {
		op, err := wire.OutPointFromKey(iter.Key()[1:])
		if err != nil {
			return chaindb.DecodeError(err.Error())
		}
		entry, err := DeserializeEntry(iter.Value())
		if err != nil {
			return err
		}
		if err := fn(op, entry); err != nil {
			return err
		}
	}
	return iter.Error()
}

// WriteConsumed writes the modifications of a consumed cache to the database.
func WriteConsumed(w chaindb.Writer, consumed *ConsumedCache) error {
	for op, entry := range consumed.Entries {
		key := utxoKey(&op)
		if entry.IsSpent() {
			if err := w.Delete(key); err != nil {
				return err
			}
			continue
		}
		b, err := entry.Serialize()
		if err != nil {
			return err
		}
		if err := w.Put(key, b); err != nil {
			return err
		}
	}
	if consumed.BestBlock != nil {
		return w.Put(chaindb.UtxoBestBlockKey, consumed.BestBlock[:])
	}
	return nil
}

func undoKey(blockHash *chainhash.Hash) []byte {
	return chaindb.BucketUtxoUndo.Key(blockHash[:])
}

// PutBlockUndo stores the UTXO undo data of a block.
func PutBlockUndo(w chaindb.Writer, blockHash *chainhash.Hash, undo *BlockUndo) error {
	b, err := undo.Serialize()
	if err != nil {
		return err
	}
	return w.Put(undoKey(blockHash), b)
}

// FetchBlockUndo loads the UTXO undo data of a block.  It returns nil for both
// the undo data and the error when none is stored.
func FetchBlockUndo(r chaindb.Reader, blockHash *chainhash.Hash) (*BlockUndo, error) {
	b, err := r.Get(undoKey(blockHash))
	if err != nil || b == nil {
		return nil, err
	}
	return DeserializeBlockUndo(b)
}

// DeleteBlockUndo removes the UTXO undo data of a block.
func DeleteBlockUndo(w chaindb.Writer, blockHash *chainhash.Hash) error {
	return w.Delete(undoKey(blockHash))
}
