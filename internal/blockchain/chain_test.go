// Copyright (c) 2013-2016 The btcsuite developers
// Copyright (c) 2015-2024 The Decred developers
// Copyright (c) 2026 The stakechain developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockchain

import (
	"context"
	"errors"
	"math/bits"
	"testing"
	"time"

	"github.com/davecgh/go-spew/spew"
	"github.com/decred/dcrd/chaincfg/chainhash"
	"github.com/stakechain/chaind/chaincfg"
	"github.com/stakechain/chaind/internal/chaindb"
	"github.com/stakechain/chaind/wire"
)

// TestNewRequiredFields ensures New rejects configurations without a database
// or chain parameters.
func TestNewRequiredFields(t *testing.T) {
	params := chaincfg.RegNetParams()
	db := openTestDB(t)

	var assertErr AssertError
	_, err := New(context.Background(), &Config{ChainParams: params})
	if !errors.As(err, &assertErr) {
		t.Fatalf("unexpected error without database -- got %v, want an "+
			"AssertError", err)
	}
	_, err = New(context.Background(), &Config{DB: db})
	if !errors.As(err, &assertErr) {
		t.Fatalf("unexpected error without params -- got %v, want an "+
			"AssertError", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = New(ctx, &Config{DB: db, ChainParams: params})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("unexpected error with canceled context -- got %v, want %v",
			err, context.Canceled)
	}
}

// TestGenesisState ensures a new chain starts at the genesis block with the
// premine spendable.
func TestGenesisState(t *testing.T) {
	params := chaincfg.RegNetParams()
	g := newChaingenHarness(t, params)

	best := g.chain.BestSnapshot()
	if best.Hash != params.GenesisHash || best.Height != 0 {
		t.Fatalf("unexpected initial tip -- got %v (height %d), want %v",
			best.Hash, best.Height, params.GenesisHash)
	}
	header, err := g.chain.BestBlockHeader()
	if err != nil {
		t.Fatalf("BestBlockHeader: unexpected error: %v", err)
	}
	if header.BlockHash() != params.GenesisHash {
		t.Fatalf("unexpected best header %v", spew.Sdump(header))
	}
	if _, err := g.chain.BlockIndex(&params.GenesisHash); !errors.Is(err,
		ErrGenesisHeaderRequested) {

		t.Fatalf("unexpected error requesting the genesis index -- got %v, "+
			"want %v", err, ErrGenesisHeaderRequested)
	}
	genIdx, err := g.chain.GenBlockIndex(&params.GenesisHash)
	if err != nil {
		t.Fatalf("GenBlockIndex: unexpected error: %v", err)
	}
	if genIdx.Height() != 0 || genIdx.Hash() != params.GenesisHash {
		t.Fatalf("unexpected genesis index %v", spew.Sdump(genIdx))
	}

	entry, err := g.chain.UtxoEntry(g.GenesisOut().PrevOut)
	if err != nil {
		t.Fatalf("UtxoEntry: unexpected error: %v", err)
	}
	if entry == nil || entry.IsBlockReward || entry.Height != 0 {
		t.Fatalf("unexpected premine entry %v", spew.Sdump(entry))
	}
	if _, err := g.chain.BlockIDAtHeight(1); !errors.Is(err,
		ErrBlockAtHeightNotFound) {

		t.Fatalf("unexpected error for a missing height -- got %v, want %v",
			err, ErrBlockAtHeightNotFound)
	}
}

// TestReopen ensures an existing database is loaded with its tip and that it
// is only accepted with the configuration it was created with.
func TestReopen(t *testing.T) {
	params := chaincfg.RegNetParams()
	g := newChaingenHarness(t, params)
	g.generateBlocks("b", 3)

	chain, err := chainSetup(t, g.db, params, g.clock)
	if err != nil {
		t.Fatalf("unable to reopen the chain: %v", err)
	}
	if best := chain.BestSnapshot(); best.Hash != g.Tip().BlockHash() {
		t.Fatalf("unexpected tip after reopening -- got %v, want %v",
			best.Hash, g.Tip().BlockHash())
	}

	// The transaction index setting must match.
	_, err = chainSetup(t, g.db, params, g.clock, func(c *Config) {
		c.TxIndexEnabled = true
	})
	if !errors.Is(err, ErrTxIndexConfig) {
		t.Fatalf("unexpected error -- got %v, want %v", err, ErrTxIndexConfig)
	}

	// The genesis block must match.
	other := chaincfg.RegNetParams()
	genesis := *other.GenesisBlock
	genesis.Header.Timestamp = genesis.Header.Timestamp.Add(time.Second)
	other.GenesisBlock = &genesis
	other.GenesisHash = genesis.BlockHash()
	_, err = chainSetup(t, g.db, other, g.clock)
	if !errors.Is(err, ErrGenesisMismatch) {
		t.Fatalf("unexpected error -- got %v, want %v", err,
			ErrGenesisMismatch)
	}

	// A main chain without its first block is reported.
	err = g.db.Update(func(tx chaindb.Tx) error {
		return dbRemoveMainChainHash(tx, 1)
	})
	if err != nil {
		t.Fatalf("unable to remove the first block: %v", err)
	}
	_, err = chainSetup(t, g.db, params, g.clock)
	if !errors.Is(err, ErrBlock1Missing) {
		t.Fatalf("unexpected error -- got %v, want %v", err, ErrBlock1Missing)
	}
}

// TestLocateInventory ensures block locators and header requests follow the
// main chain.
func TestLocateInventory(t *testing.T) {
	const headerLimit = 3
	g := newChaingenHarness(t, chaincfg.RegNetParams(), func(c *Config) {
		c.HeaderLimit = headerLimit
	})

	locator, err := g.chain.GetLocator()
	if err != nil {
		t.Fatalf("GetLocator: unexpected error: %v", err)
	}
	if len(locator) != 1 || locator[0] != g.Params().GenesisHash {
		t.Fatalf("unexpected genesis locator %v", spew.Sdump(locator))
	}

	// Create a chain with a side chain.
	//
	//   genesis -> b0 -> b1 -> ... -> b9
	//                \-> s0
	g.generateBlocks("b", 10)
	g.SetTip("b0")
	g.NextBlock("s0", nil)
	g.AcceptedToSideChainWithExpectedTip("b9")

	// The locator holds the tip and the blocks exponentially further back.
	locator, err = g.chain.GetLocator()
	if err != nil {
		t.Fatalf("GetLocator: unexpected error: %v", err)
	}
	const tipHeight = 10
	if want := bits.Len64(tipHeight) + 1; len(locator) != want {
		t.Fatalf("unexpected locator length -- got %d, want %d",
			len(locator), want)
	}
	wantHeights := []int64{10, 9, 8, 6, 2}
	for i, height := range wantHeights {
		hash, err := g.chain.BlockIDAtHeight(height)
		if err != nil {
			t.Fatalf("BlockIDAtHeight(%d): unexpected error: %v", height, err)
		}
		if locator[i] != hash {
			t.Fatalf("locator entry %d -- got %v, want block at height %d",
				i, locator[i], height)
		}
	}

	tests := []struct {
		name    string
		locator BlockLocator
		want    []string
	}{{
		name:    "empty locator starts after genesis",
		locator: nil,
		want:    []string{"b0", "b1", "b2"},
	}, {
		name:    "main chain block",
		locator: BlockLocator{g.BlockByName("b4").BlockHash()},
		want:    []string{"b5", "b6", "b7"},
	}, {
		name: "unknown and side chain blocks are skipped",
		locator: BlockLocator{
			{0x01},
			g.BlockByName("s0").BlockHash(),
			g.BlockByName("b7").BlockHash(),
		},
		want: []string{"b8", "b9"},
	}, {
		name:    "tip",
		locator: BlockLocator{g.BlockByName("b9").BlockHash()},
		want:    nil,
	}}
	for _, test := range tests {
		headers, err := g.chain.GetHeaders(test.locator)
		if err != nil {
			t.Errorf("%q: unexpected error: %v", test.name, err)
			continue
		}
		if len(headers) != len(test.want) {
			t.Errorf("%q: unexpected number of headers -- got %d, want %d",
				test.name, len(headers), len(test.want))
			continue
		}
		for i, name := range test.want {
			if headers[i].BlockHash() != g.BlockByName(name).BlockHash() {
				t.Errorf("%q: header %d is not block %s", test.name, i,
					name)
			}
		}
	}
}

// TestFilterAlreadyExistingBlocks ensures known blocks are removed from the
// front of a header chain.
func TestFilterAlreadyExistingBlocks(t *testing.T) {
	g := newChaingenHarness(t, chaincfg.RegNetParams())
	g.generateBlocks("b", 2)
	g.NextBlock("b2", nil)
	g.NextBlock("b3", nil)

	header := func(name string) wire.BlockHeader {
		return g.BlockByName(name).Header
	}
	tests := []struct {
		name    string
		headers []wire.BlockHeader
		want    []string
		err     error
	}{{
		name:    "no headers",
		headers: nil,
	}, {
		name:    "known prefix",
		headers: []wire.BlockHeader{header("b0"), header("b1"), header("b2"), header("b3")},
		want:    []string{"b2", "b3"},
	}, {
		name:    "all known",
		headers: []wire.BlockHeader{header("b0"), header("b1")},
	}, {
		name:    "all unknown",
		headers: []wire.BlockHeader{header("b2"), header("b3")},
		want:    []string{"b2", "b3"},
	}, {
		name:    "not a chain",
		headers: []wire.BlockHeader{header("b0"), header("b2")},
		err:     ErrDetachedHeaders,
	}, {
		name:    "unknown parent",
		headers: []wire.BlockHeader{header("b3")},
		err:     ErrDetachedHeaders,
	}}
	for _, test := range tests {
		filtered, err := g.chain.FilterAlreadyExistingBlocks(test.headers)
		if !errors.Is(err, test.err) {
			t.Errorf("%q: unexpected error -- got %v, want %v", test.name,
				err, test.err)
			continue
		}
		if len(filtered) != len(test.want) {
			t.Errorf("%q: unexpected number of headers -- got %d, want %d",
				test.name, len(filtered), len(test.want))
			continue
		}
		for i, name := range test.want {
			if filtered[i].BlockHash() != g.BlockByName(name).BlockHash() {
				t.Errorf("%q: header %d is not block %s", test.name, i,
					name)
			}
		}
	}
}

// TestAncestors ensures ancestors and common ancestors are found across side
// chains.
func TestAncestors(t *testing.T) {
	g := newChaingenHarness(t, chaincfg.RegNetParams())

	//   genesis -> b0 -> ... -> b19
	//                       \-> s0 -> s1 -> s2
	g.generateBlocks("b", 20)
	g.SetTip("b11")
	for i := 0; i < 3; i++ {
		g.NextBlock(blockName("s", i), nil)
		g.AcceptedToSideChainWithExpectedTip("b19")
	}

	sideTip := g.BlockByName("s2").BlockHash()
	for height := int64(0); height <= 15; height++ {
		ancestor, err := g.chain.GetAncestor(&sideTip, height)
		if err != nil {
			t.Fatalf("GetAncestor(%d): unexpected error: %v", height, err)
		}
		var want chainhash.Hash
		switch {
		case height == 0:
			want = g.Params().GenesisHash
		case height <= 12:
			want = g.BlockByName(blockName("b", int(height)-1)).BlockHash()
		default:
			want = g.BlockByName(blockName("s", int(height)-13)).BlockHash()
		}
		if ancestor.Hash() != want {
			t.Fatalf("ancestor at height %d -- got %v, want %v", height,
				ancestor.Hash(), want)
		}
	}
	if _, err := g.chain.GetAncestor(&sideTip, 16); !errors.Is(err,
		ErrInvalidAncestorHeight) {

		t.Fatalf("unexpected error for an ancestor above the block -- got "+
			"%v, want %v", err, ErrInvalidAncestorHeight)
	}

	mainTip := g.BlockByName("b19").BlockHash()
	fork, err := g.chain.LastCommonAncestor(&sideTip, &mainTip)
	if err != nil {
		t.Fatalf("LastCommonAncestor: unexpected error: %v", err)
	}
	if want := g.BlockByName("b11").BlockHash(); fork.Hash() != want {
		t.Fatalf("unexpected common ancestor -- got %v, want %v",
			fork.Hash(), want)
	}

	height, err := g.chain.BlockHeightInMainChain(&mainTip)
	if err != nil || height != 20 {
		t.Fatalf("unexpected main chain height -- got %d (err %v), want 20",
			height, err)
	}
	if _, err := g.chain.BlockHeightInMainChain(&sideTip); !errors.Is(err,
		ErrBlockNotFound) {

		t.Fatalf("unexpected error for a side chain block -- got %v, want %v",
			err, ErrBlockNotFound)
	}
}

// TestInitialBlockDownload ensures the chain reports initial block download
// until its tip is recent and never again afterwards.
func TestInitialBlockDownload(t *testing.T) {
	const maxTipAge = 30 * time.Minute
	g := newChaingenHarness(t, chaincfg.RegNetParams(), func(c *Config) {
		c.MaxTipAge = maxTipAge
	})
	if !g.chain.IsInitialBlockDownload() {
		t.Fatal("chain at genesis is not in initial block download")
	}

	// The clock is an hour past genesis, so the tip is too old.
	g.generateBlocks("b", 1)
	if !g.chain.IsInitialBlockDownload() {
		t.Fatal("chain with an old tip is not in initial block download")
	}

	g.clock.SetTime(g.Tip().Header.Timestamp.Add(time.Minute))
	if g.chain.IsInitialBlockDownload() {
		t.Fatal("chain with a recent tip is in initial block download")
	}

	g.clock.SetTime(g.Tip().Header.Timestamp.Add(24 * time.Hour))
	if g.chain.IsInitialBlockDownload() {
		t.Fatal("chain returned to initial block download")
	}
}

// TestMainchainTxIndex ensures main chain transactions are indexed when the
// index is enabled and dropped when their block is disconnected.
func TestMainchainTxIndex(t *testing.T) {
	g := newChaingenHarness(t, chaincfg.RegNetParams(), func(c *Config) {
		c.TxIndexEnabled = true
	})

	genesisOut := g.GenesisOut()
	g.NextBlock("b1", &genesisOut)
	g.AcceptTipBlock()
	txHash := g.Tip().Transactions[0].TxHash()
	entry, err := g.chain.MainchainTxIndex(&txHash)
	if err != nil {
		t.Fatalf("MainchainTxIndex: unexpected error: %v", err)
	}
	if entry == nil {
		t.Fatal("transaction of the tip is not indexed")
	}

	// Replace b1 with a longer side chain.
	g.SetTip("genesis")
	g.NextBlock("b1a", nil)
	g.AcceptedToSideChainWithExpectedTip("b1")
	g.NextBlock("b2a", nil)
	g.AcceptTipBlock()
	entry, err = g.chain.MainchainTxIndex(&txHash)
	if err != nil {
		t.Fatalf("MainchainTxIndex: unexpected error: %v", err)
	}
	if entry != nil {
		t.Fatalf("disconnected transaction is still indexed: %v",
			spew.Sdump(entry))
	}

	// The index is unavailable when disabled.
	disabled := newChaingenHarness(t, chaincfg.RegNetParams())
	if _, err := disabled.chain.MainchainTxIndex(&txHash); !errors.Is(err,
		ErrTxIndexConfig) {

		t.Fatalf("unexpected error -- got %v, want %v", err, ErrTxIndexConfig)
	}
}

// TestPreliminaryChecks ensures headers and blocks can be checked against the
// chain before they are processed.
func TestPreliminaryChecks(t *testing.T) {
	g := newChaingenHarness(t, chaincfg.RegNetParams())
	g.generateBlocks("b", 2)

	g.NextBlock("b2", nil)
	if err := g.chain.PreliminaryBlockCheck(g.Tip()); err != nil {
		t.Fatalf("PreliminaryBlockCheck: unexpected error: %v", err)
	}
	g.NextBlock("b3", nil)
	if err := g.chain.PreliminaryHeaderCheck(&g.Tip().Header); !errors.Is(err,
		ErrOrphanBlock) {

		t.Fatalf("unexpected error for an unknown parent -- got %v, want %v",
			err, ErrOrphanBlock)
	}

	g.SetTip("b1")
	g.NextBlock("bbad", nil, func(b *wire.MsgBlock) {
		b.Header.MerkleRoot = chainhash.Hash{}
	})
	if err := g.chain.PreliminaryBlockCheck(g.Tip()); !errors.Is(err,
		ErrBadMerkleRoot) {

		t.Fatalf("unexpected error for a bad merkle root -- got %v, want %v",
			err, ErrBadMerkleRoot)
	}
}
