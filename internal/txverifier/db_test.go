// Copyright (c) 2026 The stakechain developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package txverifier

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/davecgh/go-spew/spew"
	"github.com/decred/dcrd/chaincfg/chainhash"
	"github.com/stakechain/chaind/chaincfg"
	"github.com/stakechain/chaind/internal/chaindb"
	"github.com/stakechain/chaind/internal/utxo"
	"github.com/stakechain/chaind/wire"
)

// openTestDB returns a memory database holding the passed outputs, each
// created by a distinct main chain transaction at height one.
func openTestDB(t *testing.T, outs map[wire.OutPoint]*wire.TxOut) *chaindb.DB {
	t.Helper()
	db, err := chaindb.OpenMem()
	if err != nil {
		t.Fatalf("unable to open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	cache := utxo.NewCache(emptyUtxoView{})
	index := make(map[chainhash.Hash]*TxMainChainIndex)
	for op, out := range outs {
		if err := cache.AddEntry(op, utxo.NewEntry(out, 1, false), false); err != nil {
			t.Fatalf("unable to add %v: %v", op, err)
		}
		index[op.Hash] = NewTxMainChainIndex(chainhash.Hash{}, TxPosition{},
			op.Index+1)
	}
	err = db.Update(func(tx chaindb.Tx) error {
		return FlushDelta(tx, &Delta{Utxos: cache.Consume(), TxIndex: index})
	})
	if err != nil {
		t.Fatalf("unable to seed database: %v", err)
	}
	return db
}

// snapshot returns every key and value of the database.
func snapshot(t *testing.T, db *chaindb.DB) map[string][]byte {
	t.Helper()
	pairs := make(map[string][]byte)
	err := db.View(func(tx chaindb.Tx) error {
		iter := tx.NewIterator(nil)
		defer iter.Release()
		for iter.Next() {
			pairs[string(iter.Key())] = bytes.Clone(iter.Value())
		}
		return iter.Error()
	})
	if err != nil {
		t.Fatalf("unable to read database: %v", err)
	}
	return pairs
}

// update runs fn with a verifier over the database and flushes its delta.
func update(t *testing.T, db *chaindb.DB, txIndex bool, fn func(v *TransactionVerifier) error) error {
	t.Helper()
	return db.Update(func(tx chaindb.Tx) error {
		storage := NewDBStorage(tx, func(height int64) (time.Time, error) {
			return testTimestamp(height), nil
		})
		v := New(chaincfg.RegNetParams(), storage, txIndex)
		if err := fn(v); err != nil {
			return err
		}
		return FlushDelta(tx, v.Consume())
	})
}

// TestDBRoundTrip ensures connecting transactions to the database and
// disconnecting them again through the stored undo data restores the exact
// database contents.
func TestDBRoundTrip(t *testing.T) {
	op := fundingOutPoint(0)
	db := openTestDB(t, map[wire.OutPoint]*wire.TxOut{op: anyone(coins(10))})
	before := snapshot(t, db)

	source := ChainSource(chainhash.HashH([]byte("block")))
	txA := newTx([]wire.OutPoint{op}, anyone(coins(6)), anyone(coins(3)))
	txB := newTx([]wire.OutPoint{txOutPoint(txA, 0)}, anyone(coins(5)))
	err := update(t, db, true, func(v *TransactionVerifier) error {
		for i, tx := range []*wire.MsgTx{txA, txB} {
			pos := &TxPosition{Offset: uint32(100 * i), Len: 100}
			if _, err := v.ConnectTransaction(source, tx, pos, 2, testTimestamp(1)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("unable to connect: %v", err)
	}

	err = update(t, db, true, func(v *TransactionVerifier) error {
		entry, err := v.FetchTxIndex(txA.TxHash())
		if err != nil {
			return err
		}
		if entry == nil || !entry.IsSpent(0) || entry.IsSpent(1) ||
			entry.BlockHash != source.BlockHash {

			t.Errorf("unexpected index entry of A: %v", spew.Sdump(entry))
		}
		if ok, _ := v.CanDisconnectTransaction(source, txA); ok {
			t.Errorf("A is disconnectable while B spends it")
		}
		if ok, _ := v.CanDisconnectTransaction(source, txB); !ok {
			t.Errorf("B is not disconnectable")
		}
		undo, err := v.FetchUtxoUndo(source)
		if err != nil {
			return err
		}
		if undo == nil || len(undo.TxUndos) != 2 {
			t.Errorf("unexpected stored undo data: %v", spew.Sdump(undo))
		}
		return nil
	})
	if err != nil {
		t.Fatalf("unable to inspect: %v", err)
	}

	err = update(t, db, true, func(v *TransactionVerifier) error {
		if err := v.DisconnectTransaction(source, txB); err != nil {
			return err
		}
		return v.DisconnectTransaction(source, txA)
	})
	if err != nil {
		t.Fatalf("unable to disconnect: %v", err)
	}

	after := snapshot(t, db)
	if len(after) != len(before) {
		t.Fatalf("database has %d keys after the round trip, want %d",
			len(after), len(before))
	}
	for k, v := range before {
		if !bytes.Equal(after[k], v) {
			t.Fatalf("value of key %x changed: got %x, want %x", k,
				after[k], v)
		}
	}
}

// TestMempoolUndoNotPersisted ensures undo data recorded for mempool sources
// never reaches the database.
func TestMempoolUndoNotPersisted(t *testing.T) {
	op := fundingOutPoint(0)
	db := openTestDB(t, map[wire.OutPoint]*wire.TxOut{op: anyone(coins(10))})

	tx := newTx([]wire.OutPoint{op}, anyone(coins(10)))
	err := update(t, db, false, func(v *TransactionVerifier) error {
		_, err := v.ConnectTransaction(MempoolSource(), tx, nil, 2, testTimestamp(1))
		return err
	})
	if err != nil {
		t.Fatalf("unable to connect: %v", err)
	}
	for k := range snapshot(t, db) {
		if bytes.HasPrefix([]byte(k), chaindb.BucketUtxoUndo.Prefix()) {
			t.Fatalf("undo data of a mempool source was stored")
		}
	}

	err = update(t, db, false, func(v *TransactionVerifier) error {
		return v.DisconnectTransaction(MempoolSource(), tx)
	})
	if !errors.Is(err, ErrMissingBlockUndo) {
		t.Fatalf("unexpected error: %v", err)
	}
}

// TestTokenPersistence ensures registered tokens are stored and removed with
// their issuing transaction.
func TestTokenPersistence(t *testing.T) {
	op := fundingOutPoint(0)
	db := openTestDB(t, map[wire.OutPoint]*wire.TxOut{op: anyone(coins(150))})

	source := ChainSource(chainhash.HashH([]byte("block")))
	issue := newTx([]wire.OutPoint{op}, wire.NewBurn(wire.CoinValue(coins(100))),
		&wire.TxOut{
			Type: wire.OutputTransfer,
			Value: wire.IssuanceValue(&wire.TokenIssuance{
				Ticker:      "GOLD",
				Supply:      21000000,
				Decimals:    8,
				MetadataURI: "https://example.org/gold.json",
			}),
			Destination: wire.AnyoneCanSpend(),
		})
	id := TokenID(issue)
	err := update(t, db, true, func(v *TransactionVerifier) error {
		pos := &TxPosition{Len: 100}
		_, err := v.ConnectTransaction(source, issue, pos, 2, testTimestamp(1))
		return err
	})
	if err != nil {
		t.Fatalf("unable to issue: %v", err)
	}

	err = db.View(func(tx chaindb.Tx) error {
		storage := NewDBStorage(tx, nil)
		aux, err := storage.TokenAuxData(id)
		if err != nil {
			return err
		}
		if aux == nil || aux.BlockHash != source.BlockHash ||
			aux.Issuance.Ticker != "GOLD" {

			t.Errorf("unexpected stored aux data: %v", spew.Sdump(aux))
		}
		got, err := storage.TokenIDByTx(issue.TxHash())
		if err != nil {
			return err
		}
		if got == nil || *got != id {
			t.Errorf("unexpected token id by tx: %v", got)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("unable to read tokens: %v", err)
	}

	err = update(t, db, true, func(v *TransactionVerifier) error {
		return v.DisconnectTransaction(source, issue)
	})
	if err != nil {
		t.Fatalf("unable to disconnect: %v", err)
	}
	err = db.View(func(tx chaindb.Tx) error {
		storage := NewDBStorage(tx, nil)
		aux, err := storage.TokenAuxData(id)
		if err != nil || aux != nil {
			t.Errorf("token still stored: %v %v", aux, err)
		}
		got, err := storage.TokenIDByTx(issue.TxHash())
		if err != nil || got != nil {
			t.Errorf("token id still stored: %v %v", got, err)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("unable to read tokens: %v", err)
	}
}

// TestSerialization ensures index entries and token aux data decode to the
// values they were encoded from and that truncated encodings are rejected.
func TestSerialization(t *testing.T) {
	entry := NewTxMainChainIndex(chainhash.HashH([]byte("block")),
		TxPosition{Offset: 81, Len: 250}, 11)
	entry.Spent.Set(0)
	entry.Spent.Set(9)
	b := entry.Serialize()
	got, err := DeserializeTxMainChainIndex(b)
	if err != nil {
		t.Fatalf("unable to decode index entry: %v", err)
	}
	if got.BlockHash != entry.BlockHash || got.Position != entry.Position ||
		got.NumOutputs != entry.NumOutputs || !got.IsSpent(0) ||
		!got.IsSpent(9) || got.IsSpent(10) {

		t.Fatalf("mismatched index entry: got %v, want %v",
			spew.Sdump(got), spew.Sdump(entry))
	}
	if _, err := DeserializeTxMainChainIndex(b[:len(b)-1]); err == nil {
		t.Fatalf("truncated index entry decoded")
	}

	aux := &TokenAuxData{
		IssuanceTx: chainhash.HashH([]byte("tx")),
		BlockHash:  chainhash.HashH([]byte("block")),
		Issuance: wire.TokenIssuance{
			Ticker:      "XYZ",
			Supply:      1e9,
			Decimals:    3,
			MetadataURI: "ipfs://xyz",
		},
	}
	b = aux.Serialize()
	gotAux, err := DeserializeTokenAuxData(b)
	if err != nil {
		t.Fatalf("unable to decode aux data: %v", err)
	}
	if *gotAux != *aux {
		t.Fatalf("mismatched aux data: got %v, want %v", spew.Sdump(gotAux),
			spew.Sdump(aux))
	}
	if _, err := DeserializeTokenAuxData(b[:len(b)-1]); err == nil {
		t.Fatalf("truncated aux data decoded")
	}
}
