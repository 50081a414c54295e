// Copyright (c) 2026 The stakechain developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package utxo

import (
	"bytes"
	"errors"
	"testing"

	"github.com/davecgh/go-spew/spew"
	"github.com/decred/dcrd/chaincfg/chainhash"
	"github.com/stakechain/chaind/internal/amount"
	"github.com/stakechain/chaind/internal/chaindb"
	"github.com/stakechain/chaind/wire"
	"pgregory.net/rapid"
)

// fundingOutPoint returns a distinct outpoint that is not created by any test
// transaction.
func fundingOutPoint(i int) wire.OutPoint {
	return wire.OutPoint{
		Hash:   chainhash.HashH([]byte{byte(i), byte(i >> 8), 0xfe}),
		Source: wire.SourceTransaction,
	}
}

func transferEntry(value amount.Amount, height int64) *Entry {
	return NewEntry(wire.NewTransfer(value, wire.AnyoneCanSpend()), height, false)
}

// spendTx returns a transaction spending the given outpoints into one
// anyone-can-spend output per value.
func spendTx(ops []wire.OutPoint, values ...amount.Amount) *wire.MsgTx {
	tx := wire.NewMsgTx()
	for i := range ops {
		tx.AddTxIn(wire.NewTxIn(&ops[i], nil))
	}
	for _, v := range values {
		tx.AddTxOut(wire.NewTransfer(v, wire.AnyoneCanSpend()))
	}
	return tx
}

func openTestDB(t testing.TB) *chaindb.DB {
	t.Helper()
	db, err := chaindb.OpenMem()
	if err != nil {
		t.Fatalf("unable to open database: %v", err)
	}
	return db
}

// seedDB stores the given entries as the UTXO set.
func seedDB(t testing.TB, db *chaindb.DB, entries map[wire.OutPoint]*Entry) {
	t.Helper()
	err := db.Update(func(tx chaindb.Tx) error {
		cache := NewCache(NewDBView(tx))
		for op, entry := range entries {
			if err := cache.AddEntry(op, entry, false); err != nil {
				return err
			}
		}
		return WriteConsumed(tx, cache.Consume())
	})
	if err != nil {
		t.Fatalf("unable to seed database: %v", err)
	}
}

// utxoSnapshot returns the raw UTXO set stored in the database.
func utxoSnapshot(t testing.TB, db *chaindb.DB) map[string][]byte {
	t.Helper()
	snap := make(map[string][]byte)
	err := db.View(func(tx chaindb.Tx) error {
		iter := tx.NewIterator(chaindb.BucketUtxoSet.Prefix())
		defer iter.Release()
		for iter.Next() {
			snap[string(iter.Key())] = append([]byte(nil), iter.Value()...)
		}
		return iter.Error()
	})
	if err != nil {
		t.Fatalf("unable to read utxo set: %v", err)
	}
	return snap
}

func snapshotsEqual(a, b map[string][]byte) bool {
	if len(a) != len(b) {
		return false
	}
	for k, v := range a {
		if !bytes.Equal(v, b[k]) {
			return false
		}
	}
	return true
}

// TestConnectTransactionAtomic ensures a transaction with one bad input leaves
// the cache untouched.
func TestConnectTransactionAtomic(t *testing.T) {
	db := openTestDB(t)
	defer db.Close()
	funding := fundingOutPoint(0)
	seedDB(t, db, map[wire.OutPoint]*Entry{funding: transferEntry(100, 1)})

	tests := []struct {
		name string
		ops  []wire.OutPoint
		want error
	}{{
		name: "missing input",
		ops:  []wire.OutPoint{funding, fundingOutPoint(1)},
		want: ErrMissingOutputOrSpent,
	}, {
		name: "input spent twice",
		ops:  []wire.OutPoint{funding, funding},
		want: ErrMissingOutputOrSpent,
	}}

	for _, test := range tests {
		err := db.View(func(dbTx chaindb.Tx) error {
			cache := NewCache(NewDBView(dbTx))
			tx := spendTx(test.ops, 50)
			if _, err := cache.ConnectTransaction(tx, 2); !errors.Is(err, test.want) {
				t.Errorf("%s: unexpected error: got %v, want %v", test.name,
					err, test.want)
			}
			entry, err := cache.FetchEntry(funding)
			if err != nil {
				return err
			}
			if entry == nil {
				t.Errorf("%s: funding output was spent by a failed "+
					"connect", test.name)
			}
			if consumed := cache.Consume(); len(consumed.Entries) != 0 {
				t.Errorf("%s: failed connect left modifications: %v",
					test.name, spew.Sdump(consumed.Entries))
			}
			return nil
		})
		if err != nil {
			t.Fatalf("%s: unexpected database error: %v", test.name, err)
		}
	}
}

// TestDisconnectSpentOutputs ensures a transaction whose outputs are spent by
// a later transaction cannot be disconnected.
func TestDisconnectSpentOutputs(t *testing.T) {
	funding := fundingOutPoint(0)
	cache := NewCache(NewCache(emptyView{}))
	if err := cache.AddEntry(funding, transferEntry(100, 1), false); err != nil {
		t.Fatalf("AddEntry: unexpected error: %v", err)
	}

	tx1 := spendTx([]wire.OutPoint{funding}, 100)
	undo1, err := cache.ConnectTransaction(tx1, 2)
	if err != nil {
		t.Fatalf("ConnectTransaction: unexpected error: %v", err)
	}
	tx1Hash := tx1.TxHash()
	tx2 := spendTx([]wire.OutPoint{{Hash: tx1Hash}}, 90)
	undo2, err := cache.ConnectTransaction(tx2, 3)
	if err != nil {
		t.Fatalf("ConnectTransaction: unexpected error: %v", err)
	}

	ok, err := cache.CanDisconnectTransaction(tx1)
	if err != nil || ok {
		t.Fatalf("CanDisconnectTransaction: got %v, %v, want false", ok, err)
	}
	if err := cache.DisconnectTransaction(tx1, undo1); !errors.Is(err, ErrMissingOutputOrSpent) {
		t.Fatalf("DisconnectTransaction: unexpected error: %v", err)
	}
	if err := cache.DisconnectTransaction(tx2, &TxUndo{}); !errors.Is(err, ErrUndoMismatch) {
		t.Fatalf("DisconnectTransaction: unexpected error: %v", err)
	}

	// Disconnecting in reverse order restores the funding output.
	if err := cache.DisconnectTransaction(tx2, undo2); err != nil {
		t.Fatalf("DisconnectTransaction: unexpected error: %v", err)
	}
	if err := cache.DisconnectTransaction(tx1, undo1); err != nil {
		t.Fatalf("DisconnectTransaction: unexpected error: %v", err)
	}
	entry, err := cache.FetchEntry(funding)
	if err != nil || !entry.Equal(transferEntry(100, 1)) {
		t.Fatalf("restored entry mismatch: got %v, %v", spew.Sdump(entry), err)
	}
}

// emptyView is a view without any outputs.
type emptyView struct{}

func (emptyView) FetchEntry(wire.OutPoint) (*Entry, error) { return nil, nil }
func (emptyView) BestBlock() (chainhash.Hash, error)        { return chainhash.Hash{}, nil }

// TestBatchWrite ensures modifications of a child cache are merged into the
// parent cache and written to the database with the fresh and spent states
// collapsed correctly.
func TestBatchWrite(t *testing.T) {
	db := openTestDB(t)
	defer db.Close()
	a, b := fundingOutPoint(0), fundingOutPoint(1)
	seedDB(t, db, map[wire.OutPoint]*Entry{
		a: transferEntry(10, 1),
		b: transferEntry(20, 1),
	})
	c, d := fundingOutPoint(2), fundingOutPoint(3)

	err := db.Update(func(dbTx chaindb.Tx) error {
		parent := NewCache(NewDBView(dbTx))
		if _, err := parent.Spend(b); err != nil {
			t.Fatalf("Spend: unexpected error: %v", err)
		}

		child := NewCache(parent)
		if _, err := child.Spend(a); err != nil {
			t.Fatalf("Spend: unexpected error: %v", err)
		}
		// b is spent in the parent, so it is fresh to the child.
		if err := child.AddEntry(b, transferEntry(20, 1), false); err != nil {
			t.Fatalf("AddEntry: unexpected error: %v", err)
		}
		if err := child.AddEntry(c, transferEntry(30, 2), false); err != nil {
			t.Fatalf("AddEntry: unexpected error: %v", err)
		}
		if err := child.AddEntry(d, transferEntry(40, 2), false); err != nil {
			t.Fatalf("AddEntry: unexpected error: %v", err)
		}
		if _, err := child.Spend(d); err != nil {
			t.Fatalf("Spend: unexpected error: %v", err)
		}
		child.SetBestBlock(chainhash.HashH([]byte("best")))

		if err := parent.BatchWrite(child.Consume()); err != nil {
			t.Fatalf("BatchWrite: unexpected error: %v", err)
		}
		consumed := parent.Consume()
		if len(consumed.Entries) != 3 {
			t.Fatalf("unexpected consumed entries: %v",
				spew.Sdump(consumed.Entries))
		}
		if !consumed.Entries[a].IsSpent() || consumed.Entries[b].IsSpent() ||
			consumed.Entries[c].IsSpent() {

			t.Fatalf("unexpected spent states: %v",
				spew.Sdump(consumed.Entries))
		}
		return WriteConsumed(dbTx, consumed)
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	err = db.View(func(dbTx chaindb.Tx) error {
		view := NewDBView(dbTx)
		want := map[wire.OutPoint]bool{a: false, b: true, c: true, d: false}
		for op, unspent := range want {
			entry, err := view.FetchEntry(op)
			if err != nil {
				return err
			}
			if (entry != nil) != unspent {
				t.Errorf("output %v: got unspent %v, want %v", op,
					entry != nil, unspent)
			}
		}
		best, err := view.BestBlock()
		if err != nil {
			return err
		}
		if best != chainhash.HashH([]byte("best")) {
			t.Errorf("unexpected best block %v", best)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// TestNoDoubleSpend ensures an output can only be spent once without being
// restored in between, and that failed spends do not modify the cache.
func TestNoDoubleSpend(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		const numOutputs = 6
		cache := NewCache(emptyView{})
		unspent := make(map[wire.OutPoint]bool)
		for i := 0; i < numOutputs; i++ {
			op := fundingOutPoint(i)
			if err := cache.AddEntry(op, transferEntry(1, 1), false); err != nil {
				t.Fatalf("AddEntry: unexpected error: %v", err)
			}
			unspent[op] = true
		}

		numOps := rapid.IntRange(1, 50).Draw(t, "numOps")
		for i := 0; i < numOps; i++ {
			op := fundingOutPoint(rapid.IntRange(0, numOutputs).Draw(t, "output"))
			if rapid.Bool().Draw(t, "spend") {
				_, err := cache.Spend(op)
				if unspent[op] {
					if err != nil {
						t.Fatalf("Spend %v: unexpected error: %v", op, err)
					}
					unspent[op] = false
					continue
				}
				if !errors.Is(err, ErrMissingOutputOrSpent) {
					t.Fatalf("Spend %v: unexpected error: %v", op, err)
				}
				continue
			}

			err := cache.AddEntry(op, transferEntry(1, 1), false)
			if unspent[op] {
				if !errors.Is(err, ErrUtxoAlreadyExists) {
					t.Fatalf("AddEntry %v: unexpected error: %v", op, err)
				}
				continue
			}
			if err != nil {
				t.Fatalf("AddEntry %v: unexpected error: %v", op, err)
			}
			unspent[op] = true
		}

		for i := 0; i <= numOutputs; i++ {
			op := fundingOutPoint(i)
			ok, err := cache.HasEntry(op)
			if err != nil || ok != unspent[op] {
				t.Fatalf("output %v: got unspent %v (%v), want %v", op, ok,
					err, unspent[op])
			}
		}
	})
}

// TestConnectDisconnectRoundTrip ensures disconnecting a block of transactions
// in reverse order with its stored undo data restores the stored UTXO set
// exactly.
func TestConnectDisconnectRoundTrip(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		db := openTestDB(t)
		defer db.Close()

		numFunding := rapid.IntRange(1, 8).Draw(rt, "numFunding")
		funding := make(map[wire.OutPoint]*Entry, numFunding)
		var avail []wire.OutPoint
		for i := 0; i < numFunding; i++ {
			op := fundingOutPoint(i)
			value := amount.Amount(rapid.Uint64Range(1, 1e12).Draw(rt, "value"))
			funding[op] = transferEntry(value, int64(i))
			avail = append(avail, op)
		}
		seedDB(t, db, funding)
		before := utxoSnapshot(t, db)

		// Build a chain of transactions spending random available
		// outputs, including outputs created earlier in the block.
		var txns []*wire.MsgTx
		numTxns := rapid.IntRange(1, 10).Draw(rt, "numTxns")
		for i := 0; i < numTxns && len(avail) > 0; i++ {
			numIn := rapid.IntRange(1, min(3, len(avail))).Draw(rt, "numIn")
			var ins []wire.OutPoint
			for j := 0; j < numIn; j++ {
				k := rapid.IntRange(0, len(avail)-1).Draw(rt, "input")
				ins = append(ins, avail[k])
				avail = append(avail[:k], avail[k+1:]...)
			}
			numOut := rapid.IntRange(1, 3).Draw(rt, "numOut")
			values := make([]amount.Amount, numOut)
			for j := range values {
				values[j] = amount.Amount(j + 1)
			}
			tx := spendTx(ins, values...)
			txHash := tx.TxHash()
			for j := range values {
				avail = append(avail, wire.OutPoint{Hash: txHash, Index: uint32(j)})
			}
			txns = append(txns, tx)
		}

		blockHash := chainhash.HashH([]byte("block"))
		err := db.Update(func(dbTx chaindb.Tx) error {
			cache := NewCache(NewDBView(dbTx))
			blockUndo := NewBlockUndo()
			for _, tx := range txns {
				undo, err := cache.ConnectTransaction(tx, 100)
				if err != nil {
					return err
				}
				if err := blockUndo.InsertTxUndo(tx.TxHash(), undo); err != nil {
					return err
				}
			}
			if err := WriteConsumed(dbTx, cache.Consume()); err != nil {
				return err
			}
			return PutBlockUndo(dbTx, &blockHash, blockUndo)
		})
		if err != nil {
			rt.Fatalf("connect: unexpected error: %v", err)
		}
		if snapshotsEqual(before, utxoSnapshot(t, db)) {
			rt.Fatalf("connecting transactions did not change the utxo set")
		}

		err = db.Update(func(dbTx chaindb.Tx) error {
			cache := NewCache(NewDBView(dbTx))
			blockUndo, err := FetchBlockUndo(dbTx, &blockHash)
			if err != nil {
				return err
			}
			for i := len(txns) - 1; i >= 0; i-- {
				undo, err := blockUndo.TakeTxUndo(txns[i].TxHash())
				if err != nil {
					return err
				}
				if err := cache.DisconnectTransaction(txns[i], undo); err != nil {
					return err
				}
			}
			if !blockUndo.IsEmpty() {
				rt.Fatalf("block undo not fully consumed")
			}
			if err := WriteConsumed(dbTx, cache.Consume()); err != nil {
				return err
			}
			return DeleteBlockUndo(dbTx, &blockHash)
		})
		if err != nil {
			rt.Fatalf("disconnect: unexpected error: %v", err)
		}
		if after := utxoSnapshot(t, db); !snapshotsEqual(before, after) {
			rt.Fatalf("utxo set not restored:\nbefore %v\nafter %v",
				spew.Sdump(before), spew.Sdump(after))
		}
	})
}

// TestBlockReward ensures block reward outputs are added as reward entries
// and that the stake kernel is spent and restored.
func TestBlockReward(t *testing.T) {
	kernel := fundingOutPoint(0)
	cache := NewCache(emptyView{})
	if err := cache.AddEntry(kernel, transferEntry(5, 1), false); err != nil {
		t.Fatalf("AddEntry: unexpected error: %v", err)
	}

	blockHash := chainhash.HashH([]byte("reward block"))
	reward := &wire.BlockReward{Outputs: []*wire.TxOut{
		wire.NewTransfer(50, wire.AnyoneCanSpend()),
		wire.NewBurn(wire.CoinValue(1)),
	}}
	kernelIns := []*wire.TxIn{wire.NewTxIn(&kernel, nil)}
	undo, err := cache.ConnectBlockReward(&blockHash, reward, kernelIns, 7)
	if err != nil {
		t.Fatalf("ConnectBlockReward: unexpected error: %v", err)
	}

	rewardOp := wire.OutPoint{Hash: blockHash, Source: wire.SourceBlockReward}
	entry, err := cache.FetchEntry(rewardOp)
	if err != nil || entry == nil || !entry.IsBlockReward || entry.Height != 7 {
		t.Fatalf("unexpected reward entry: %v, %v", spew.Sdump(entry), err)
	}
	burnOp := wire.OutPoint{Hash: blockHash, Source: wire.SourceBlockReward, Index: 1}
	if ok, _ := cache.HasEntry(burnOp); ok {
		t.Fatal("burn output entered the utxo set")
	}
	if ok, _ := cache.HasEntry(kernel); ok {
		t.Fatal("stake kernel was not spent")
	}

	err = cache.DisconnectBlockReward(&blockHash, reward, kernelIns, nil)
	if !errors.Is(err, ErrMissingBlockRewardUndo) {
		t.Fatalf("DisconnectBlockReward: unexpected error: %v", err)
	}
	if err := cache.DisconnectBlockReward(&blockHash, reward, kernelIns, undo); err != nil {
		t.Fatalf("DisconnectBlockReward: unexpected error: %v", err)
	}
	if ok, _ := cache.HasEntry(kernel); !ok {
		t.Fatal("stake kernel was not restored")
	}
	if ok, _ := cache.HasEntry(rewardOp); ok {
		t.Fatal("reward output was not removed")
	}
}

// TestBlockUndoSerialize ensures block undo data survives serialization and
// that malformed data is rejected.
func TestBlockUndoSerialize(t *testing.T) {
	undo := NewBlockUndo()
	undo.RewardUndo = &BlockRewardUndo{Spent: []*Entry{transferEntry(3, 9)}}
	for i := 0; i < 3; i++ {
		txHash := chainhash.HashH([]byte{byte(i)})
		err := undo.InsertTxUndo(txHash, &TxUndo{Spent: []*Entry{
			transferEntry(amount.Amount(i), int64(i)),
			NewEntry(wire.NewTransfer(1, wire.AnyoneCanSpend()), 4, true),
		}})
		if err != nil {
			t.Fatalf("InsertTxUndo: unexpected error: %v", err)
		}
	}
	if err := undo.InsertTxUndo(chainhash.HashH([]byte{0}), &TxUndo{}); !errors.Is(err, ErrTxUndoAlreadyExists) {
		t.Fatalf("InsertTxUndo: unexpected error: %v", err)
	}

	b, err := undo.Serialize()
	if err != nil {
		t.Fatalf("Serialize: unexpected error: %v", err)
	}
	got, err := DeserializeBlockUndo(b)
	if err != nil {
		t.Fatalf("DeserializeBlockUndo: unexpected error: %v", err)
	}
	b2, err := got.Serialize()
	if err != nil || !bytes.Equal(b, b2) {
		t.Fatalf("reserialized undo mismatch: %x != %x (%v)", b2, b, err)
	}
	if len(got.TxUndos) != 3 || !got.RewardUndo.Spent[0].Equal(undo.RewardUndo.Spent[0]) {
		t.Fatalf("decoded undo mismatch: %v", spew.Sdump(got))
	}

	if _, err := DeserializeBlockUndo(b[:len(b)-1]); !errors.Is(err, chaindb.ErrDbDecode) {
		t.Fatalf("truncated undo: unexpected error: %v", err)
	}
}
