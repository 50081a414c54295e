// Copyright (c) 2026 The stakechain developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package posaccounting

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

func testOutPoint(i int) *wire.OutPoint {
	return &wire.OutPoint{Hash: chainhash.HashH([]byte{byte(i), 0xac})}
}

func testPoolData(pledge amount.Amount) *PoolData {
	return NewPoolData(pledge, &wire.StakePoolData{
		Staker:                 wire.AnyoneCanSpend(),
		VRFPublicKey:           []byte{0x02, 0x01},
		Decommission:           wire.AnyoneCanSpend(),
		MarginRatioPerThousand: 100,
		CostPerEpoch:           5,
	})
}

// TestPoolLifecycle exercises the pool and delegation operations and their
// error cases.
func TestPoolLifecycle(t *testing.T) {
	c := NewCache(EmptyView{})
	poolID := PoolID(testOutPoint(0))

	if _, err := c.IncreasePoolBalance(poolID, 1); !errors.Is(err, ErrPoolNotFound) {
		t.Fatalf("IncreasePoolBalance: unexpected error: %v", err)
	}
	if _, err := c.CreatePool(poolID, testPoolData(1000)); err != nil {
		t.Fatalf("CreatePool: unexpected error: %v", err)
	}
	if _, err := c.CreatePool(poolID, testPoolData(1)); !errors.Is(err, ErrPoolAlreadyExists) {
		t.Fatalf("CreatePool: unexpected error: %v", err)
	}

	delegationID, _, err := c.CreateDelegationID(poolID, wire.AnyoneCanSpend(),
		testOutPoint(1))
	if err != nil {
		t.Fatalf("CreateDelegationID: unexpected error: %v", err)
	}
	if delegationID != DelegationID(testOutPoint(1)) {
		t.Fatalf("unexpected delegation id %v", delegationID)
	}
	_, _, err = c.CreateDelegationID(poolID, wire.AnyoneCanSpend(), testOutPoint(1))
	if !errors.Is(err, ErrDelegationAlreadyExists) {
		t.Fatalf("CreateDelegationID: unexpected error: %v", err)
	}
	if _, err := c.DelegateStaking(delegationID, 300); err != nil {
		t.Fatalf("DelegateStaking: unexpected error: %v", err)
	}
	if _, err := c.DelegateStaking(chainhash.Hash{}, 1); !errors.Is(err, ErrDelegationNotFound) {
		t.Fatalf("DelegateStaking: unexpected error: %v", err)
	}

	balance, err := c.PoolBalance(poolID)
	if err != nil || balance != 1300 {
		t.Fatalf("PoolBalance: got %v, %v, want 1300", balance, err)
	}
	share, err := c.PoolDelegationShare(poolID, delegationID)
	if err != nil || share != 300 {
		t.Fatalf("PoolDelegationShare: got %v, %v, want 300", share, err)
	}

	undo, err := c.DecommissionPool(poolID)
	if err != nil {
		t.Fatalf("DecommissionPool: unexpected error: %v", err)
	}
	if undo.Amount != 1300 || !undo.PoolData.Equal(testPoolData(1000)) {
		t.Fatalf("unexpected decommission undo: %v", spew.Sdump(undo))
	}
	if _, err := c.DelegateStaking(delegationID, 1); !errors.Is(err, ErrPoolNotFound) {
		t.Fatalf("DelegateStaking: unexpected error: %v", err)
	}
	if balance, _ := c.PoolBalance(poolID); balance != 0 {
		t.Fatalf("decommissioned pool has balance %v", balance)
	}
}

// TestUndoRoundTrip ensures applying the undo data of any sequence of
// operations in reverse order leaves an empty delta.
func TestUndoRoundTrip(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		base := NewCache(EmptyView{})
		// Seed a pool and a delegation below the cache under test so
		// the operations also run against parent state.
		seedPool := PoolID(testOutPoint(100))
		if _, err := base.CreatePool(seedPool, testPoolData(50)); err != nil {
			t.Fatalf("CreatePool: unexpected error: %v", err)
		}
		if _, _, err := base.CreateDelegationID(seedPool, wire.AnyoneCanSpend(),
			testOutPoint(101)); err != nil {
			t.Fatalf("CreateDelegationID: unexpected error: %v", err)
		}

		c := NewCache(base)
		pools := []chainhash.Hash{seedPool}
		delegations := []chainhash.Hash{DelegationID(testOutPoint(101))}
		var undos []*Undo
		numOps := rapid.IntRange(1, 40).Draw(t, "numOps")
		for i := 0; i < numOps; i++ {
			value := amount.Amount(rapid.Uint64Range(1, 1e9).Draw(t, "value"))
			pool := pools[rapid.IntRange(0, len(pools)-1).Draw(t, "pool")]
			var undo *Undo
			var err error
			switch rapid.IntRange(0, 4).Draw(t, "op") {
			case 0:
				id := PoolID(testOutPoint(i))
				undo, err = c.CreatePool(id, testPoolData(value))
				pools = append(pools, id)
			case 1:
				undo, err = c.DecommissionPool(pool)
			case 2:
				undo, err = c.IncreasePoolBalance(pool, value)
			case 3:
				var id chainhash.Hash
				id, undo, err = c.CreateDelegationID(pool,
					wire.AnyoneCanSpend(), testOutPoint(i+1000))
				if err == nil {
					delegations = append(delegations, id)
				}
			case 4:
				d := delegations[rapid.IntRange(0, len(delegations)-1).Draw(t, "delegation")]
				undo, err = c.DelegateStaking(d, value)
			}
			if err != nil {
				if !errors.Is(err, ErrPoolNotFound) {
					t.Fatalf("unexpected error: %v", err)
				}
				continue
			}
			undos = append(undos, undo)
		}

		for i := len(undos) - 1; i >= 0; i-- {
			if err := c.ApplyUndo(undos[i]); err != nil {
				t.Fatalf("ApplyUndo %d: unexpected error: %v", i, err)
			}
		}
		if d := c.Consume(); !d.IsEmpty() {
			t.Fatalf("undo left changes: %v", spew.Sdump(d))
		}
	})
}

// TestDeltaMergeConflict ensures deltas only merge on top of the state they
// were produced from.
func TestDeltaMergeConflict(t *testing.T) {
	poolID := PoolID(testOutPoint(0))

	a := NewCache(EmptyView{})
	if _, err := a.CreatePool(poolID, testPoolData(10)); err != nil {
		t.Fatalf("CreatePool: unexpected error: %v", err)
	}
	b := NewCache(EmptyView{})
	if _, err := b.CreatePool(poolID, testPoolData(20)); err != nil {
		t.Fatalf("CreatePool: unexpected error: %v", err)
	}
	lower, upper := a.Consume(), b.Consume()

	if err := lower.Clone().Merge(upper); !errors.Is(err, ErrDeltaConflict) {
		t.Fatalf("Merge: unexpected error: %v", err)
	}
	c := NewCache(EmptyView{})
	if err := c.MergeDelta(lower); err != nil {
		t.Fatalf("MergeDelta: unexpected error: %v", err)
	}
	if err := c.MergeDelta(upper); !errors.Is(err, ErrDeltaConflict) {
		t.Fatalf("MergeDelta: unexpected error: %v", err)
	}

	// A delta merged with its inverse cancels out.
	inv, err := lower.Invert()
	if err != nil {
		t.Fatalf("Invert: unexpected error: %v", err)
	}
	merged := lower.Clone()
	if err := merged.Merge(inv); err != nil {
		t.Fatalf("Merge: unexpected error: %v", err)
	}
	if !merged.IsEmpty() {
		t.Fatalf("delta merged with its inverse is not empty: %v",
			spew.Sdump(merged))
	}
}

// TestSealedMatchesTip ensures that applying the per-block deltas one by one
// to the tip state and applying their merge to the sealed state yield the same
// stored state.
func TestSealedMatchesTip(t *testing.T) {
	db, err := chaindb.OpenMem()
	if err != nil {
		t.Fatalf("OpenMem: unexpected error: %v", err)
	}
	defer db.Close()

	poolID := PoolID(testOutPoint(0))
	blocks := []func(c *Cache) error{
		func(c *Cache) error {
			_, err := c.CreatePool(poolID, testPoolData(1000))
			return err
		},
		func(c *Cache) error {
			_, _, err := c.CreateDelegationID(poolID, wire.AnyoneCanSpend(),
				testOutPoint(1))
			return err
		},
		func(c *Cache) error {
			_, err := c.DelegateStaking(DelegationID(testOutPoint(1)), 250)
			if err != nil {
				return err
			}
			_, err = c.IncreasePoolBalance(poolID, 50)
			return err
		},
	}

	sealed := NewDelta()
	for i, connect := range blocks {
		blockHash := chainhash.HashH([]byte{byte(i)})
		err := db.Update(func(tx chaindb.Tx) error {
			tip := NewTipView(tx)
			c := NewCache(tip)
			if err := connect(c); err != nil {
				return err
			}
			d := c.Consume()
			if err := PutBlockDelta(tx, &blockHash, d); err != nil {
				return err
			}
			return tip.ApplyDelta(tx, d)
		})
		if err != nil {
			t.Fatalf("block %d: unexpected error: %v", i, err)
		}

		err = db.View(func(tx chaindb.Tx) error {
			d, err := FetchBlockDelta(tx, &blockHash)
			if err != nil {
				return err
			}
			return sealed.Merge(d)
		})
		if err != nil {
			t.Fatalf("block %d: merge: unexpected error: %v", i, err)
		}
	}

	err = db.Update(func(tx chaindb.Tx) error {
		return NewSealedView(tx).ApplyDelta(tx, sealed)
	})
	if err != nil {
		t.Fatalf("seal: unexpected error: %v", err)
	}

	dump := func(bucket chaindb.Bucket) map[string][]byte {
		m := make(map[string][]byte)
		err := db.View(func(tx chaindb.Tx) error {
			iter := tx.NewIterator(bucket.Prefix())
			defer iter.Release()
			for iter.Next() {
				m[string(iter.Key()[1:])] = append([]byte(nil), iter.Value()...)
			}
			return iter.Error()
		})
		if err != nil {
			t.Fatalf("dump: unexpected error: %v", err)
		}
		return m
	}
	tipState, sealedState := dump(chaindb.BucketAccountingTip), dump(chaindb.BucketAccountingSealed)
	if len(tipState) != 5 || len(tipState) != len(sealedState) {
		t.Fatalf("state size mismatch: tip %d, sealed %d", len(tipState),
			len(sealedState))
	}
	for k, v := range tipState {
		if !bytes.Equal(v, sealedState[k]) {
			t.Fatalf("state mismatch for key %x", k)
		}
	}

	err = db.View(func(tx chaindb.Tx) error {
		balance, err := NewSealedView(tx).PoolBalance(poolID)
		if err != nil {
			return err
		}
		if balance != 1300 {
			t.Fatalf("sealed pool balance %v, want 1300", balance)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// TestBlockUndoSerialize ensures accounting block undo data survives
// serialization.
func TestBlockUndoSerialize(t *testing.T) {
	undo := NewBlockUndo()
	undo.RewardUndo = &TxUndo{Undos: []*Undo{{
		Kind:   UndoIncreasePoolBalance,
		PoolID: PoolID(testOutPoint(0)),
		Amount: 50,
	}}}
	err := undo.InsertTxUndo(chainhash.HashH([]byte("tx")), &TxUndo{Undos: []*Undo{{
		Kind:     UndoDecommissionPool,
		PoolID:   PoolID(testOutPoint(0)),
		Amount:   1000,
		PoolData: testPoolData(1000),
	}, {
		Kind:           UndoCreateDelegationID,
		DelegationID:   DelegationID(testOutPoint(1)),
		DelegationData: &DelegationData{PoolID: PoolID(testOutPoint(0))},
	}}})
	if err != nil {
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
		t.Fatalf("reserialized undo mismatch (%v):\n%v", err, spew.Sdump(got))
	}
	if _, err := DeserializeBlockUndo(append(b, 0)); !errors.Is(err, chaindb.ErrDbDecode) {
		t.Fatalf("trailing data: unexpected error: %v", err)
	}
}
