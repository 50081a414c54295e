// Copyright (c) 2026 The stakechain developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package txverifier

import (
	"time"

	"github.com/decred/dcrd/chaincfg/chainhash"
	"github.com/stakechain/chaind/internal/chaindb"
	"github.com/stakechain/chaind/internal/posaccounting"
	"github.com/stakechain/chaind/internal/utxo"
)

// DBStorage is the database backed verifier storage.  Undo data only exists
// for chain sources.
type DBStorage struct {
	r          chaindb.Reader
	timestamps func(height int64) (time.Time, error)
}

// Ensure DBStorage implements the Storage interface.
var _ Storage = (*DBStorage)(nil)

// NewDBStorage returns storage reading from the given database transaction.
// Block timestamps are resolved through the passed function.
func NewDBStorage(r chaindb.Reader, timestamps func(height int64) (time.Time, error)) *DBStorage {
	return &DBStorage{r: r, timestamps: timestamps}
}

// UtxoView is part of the Storage interface.
func (s *DBStorage) UtxoView() utxo.View {
	return utxo.NewDBView(s.r)
}

// AccountingView is part of the Storage interface.
func (s *DBStorage) AccountingView() posaccounting.View {
	return posaccounting.NewTipView(s.r)
}

// TokenAuxData is part of the TokenView interface.
func (s *DBStorage) TokenAuxData(id chainhash.Hash) (*TokenAuxData, error) {
	b, err := s.r.Get(chaindb.BucketTokenAux.Key(id[:]))
	if err != nil || b == nil {
		return nil, err
	}
	return DeserializeTokenAuxData(b)
}

// TokenIDByTx is part of the TokenView interface.
func (s *DBStorage) TokenIDByTx(txHash chainhash.Hash) (*chainhash.Hash, error) {
	b, err := s.r.Get(chaindb.BucketTokenByTx.Key(txHash[:]))
	if err != nil || b == nil {
		return nil, err
	}
	id, err := chainhash.NewHash(b)
	if err != nil {
		return nil, chaindb.DecodeError("malformed token id for " +
			"transaction " + txHash.String())
	}
	return id, nil
}

// FetchTxIndex is part of the TxIndexView interface.
func (s *DBStorage) FetchTxIndex(txHash chainhash.Hash) (*TxMainChainIndex, error) {
	b, err := s.r.Get(chaindb.BucketTxIndex.Key(txHash[:]))
	if err != nil || b == nil {
		return nil, err
	}
	return DeserializeTxMainChainIndex(b)
}

// FetchUtxoUndo is part of the Storage interface.
func (s *DBStorage) FetchUtxoUndo(source TransactionSource) (*utxo.BlockUndo, error) {
	if !source.IsChain() {
		return nil, nil
	}
	return utxo.FetchBlockUndo(s.r, &source.BlockHash)
}

// FetchAccountingUndo is part of the Storage interface.
func (s *DBStorage) FetchAccountingUndo(source TransactionSource) (*posaccounting.BlockUndo, error) {
	if !source.IsChain() {
		return nil, nil
	}
	return posaccounting.FetchBlockUndo(s.r, &source.BlockHash)
}

// BlockTimestamp is part of the Storage interface.
func (s *DBStorage) BlockTimestamp(height int64) (time.Time, error) {
	return s.timestamps(height)
}

// FlushDelta writes the modifications of a verifier to the database.  Undo
// data of mempool sources is never persisted.
func FlushDelta(w chaindb.Writer, d *Delta) error {
	if d.Utxos != nil {
		if err := utxo.WriteConsumed(w, d.Utxos); err != nil {
			return err
		}
	}
	if d.Accounting != nil {
		if err := posaccounting.NewTipView(w).ApplyDelta(w, d.Accounting); err != nil {
			return err
		}
	}

	for id, aux := range d.Tokens {
		key := chaindb.BucketTokenAux.Key(id[:])
		if aux == nil {
			if err := w.Delete(key); err != nil {
				return err
			}
			continue
		}
		if err := w.Put(key, aux.Serialize()); err != nil {
			return err
		}
	}
	for txHash, id := range d.TokensByTx {
		key := chaindb.BucketTokenByTx.Key(txHash[:])
		if id == nil {
			if err := w.Delete(key); err != nil {
				return err
			}
			continue
		}
		if err := w.Put(key, id[:]); err != nil {
			return err
		}
	}
	for txHash, entry := range d.TxIndex {
		key := chaindb.BucketTxIndex.Key(txHash[:])
		if entry == nil {
			if err := w.Delete(key); err != nil {
				return err
			}
			continue
		}
		if err := w.Put(key, entry.Serialize()); err != nil {
			return err
		}
	}

	for source, undo := range d.UtxoUndo {
		if !source.IsChain() {
			continue
		}
		var err error
		if undo == nil {
			err = utxo.DeleteBlockUndo(w, &source.BlockHash)
		} else {
			err = utxo.PutBlockUndo(w, &source.BlockHash, undo)
		}
		if err != nil {
			return err
		}
	}
	for source, undo := range d.AccountingUndo {
		if !source.IsChain() {
			continue
		}
		var err error
		if undo == nil {
			err = posaccounting.DeleteBlockUndo(w, &source.BlockHash)
		} else {
			err = posaccounting.PutBlockUndo(w, &source.BlockHash, undo)
		}
		if err != nil {
			return err
		}
	}
	return nil
}
