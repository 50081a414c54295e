// Copyright (c) 2026 The stakechain developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockchain

import (
	"testing"
	"time"

	"github.com/decred/dcrd/chaincfg/chainhash"
	"github.com/stakechain/chaind/wire"
)

// orphanTestBlock returns a distinct block building on the given parent.
func orphanTestBlock(parent chainhash.Hash, nonce uint64) *wire.MsgBlock {
	return &wire.MsgBlock{
		Header: wire.BlockHeader{
			Version:   wire.BlockVersion,
			PrevBlock: parent,
			Timestamp: time.Unix(1538524800, 0),
			ConsensusData: wire.ConsensusData{
				Type:  wire.ConsensusPoW,
				Bits:  0x207fffff,
				Nonce: nonce,
			},
		},
		Transactions: []*wire.MsgTx{},
	}
}

// TestOrphanPoolEviction ensures the oldest orphan is evicted when the pool is
// full and that children are returned in arrival order.
func TestOrphanPoolEviction(t *testing.T) {
	pool := newOrphanPool(3)
	parentA := chainhash.Hash{0x0a}
	parentB := chainhash.Hash{0x0b}

	blocks := []*wire.MsgBlock{
		orphanTestBlock(parentA, 0),
		orphanTestBlock(parentB, 1),
		orphanTestBlock(parentA, 2),
		orphanTestBlock(parentA, 3),
	}
	hashes := make([]chainhash.Hash, len(blocks))
	for i, block := range blocks[:3] {
		hashes[i] = block.BlockHash()
		if !pool.add(block, hashes[i]) {
			t.Fatalf("block %d was not added", i)
		}
	}
	if pool.add(blocks[0], hashes[0]) {
		t.Fatal("duplicate block was added")
	}
	if n := pool.len(); n != 3 {
		t.Fatalf("unexpected pool size -- got %d, want 3", n)
	}

	// The pool is full, so the first block is evicted.
	hashes[3] = blocks[3].BlockHash()
	if !pool.add(blocks[3], hashes[3]) {
		t.Fatal("block 3 was not added")
	}
	if pool.has(&hashes[0]) {
		t.Fatal("oldest orphan was not evicted")
	}
	for _, i := range []int{1, 2, 3} {
		if !pool.has(&hashes[i]) {
			t.Fatalf("orphan %d was evicted", i)
		}
	}

	children := pool.takeChildren(&parentA)
	if len(children) != 2 {
		t.Fatalf("unexpected number of children -- got %d, want 2",
			len(children))
	}
	if children[0].BlockHash() != hashes[2] ||
		children[1].BlockHash() != hashes[3] {

		t.Fatal("children are not in arrival order")
	}
	if pool.has(&hashes[2]) || pool.has(&hashes[3]) {
		t.Fatal("taken children remain in the pool")
	}
	if children := pool.takeChildren(&parentA); len(children) != 0 {
		t.Fatalf("children taken twice: %d", len(children))
	}
	if n := pool.len(); n != 1 {
		t.Fatalf("unexpected pool size -- got %d, want 1", n)
	}
}

// TestOrphanPoolDisabled ensures a pool without room keeps nothing.
func TestOrphanPoolDisabled(t *testing.T) {
	pool := newOrphanPool(-1)
	block := orphanTestBlock(chainhash.Hash{0x01}, 0)
	hash := block.BlockHash()
	if pool.add(block, hash) {
		t.Fatal("block was added to a disabled pool")
	}
	if pool.has(&hash) || pool.len() != 0 {
		t.Fatal("disabled pool holds a block")
	}
}
