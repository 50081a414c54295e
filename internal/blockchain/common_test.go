// Copyright (c) 2013-2016 The btcsuite developers
// Copyright (c) 2015-2024 The Decred developers
// Copyright (c) 2026 The stakechain developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockchain

import (
	"context"
	"errors"
	"math/big"
	"strconv"
	"testing"
	"time"

	"github.com/lightningnetwork/lnd/clock"
	"github.com/stakechain/chaind/chaincfg"
	"github.com/stakechain/chaind/internal/blockchain/chaingen"
	"github.com/stakechain/chaind/internal/chaindb"
	"github.com/stakechain/chaind/wire"
)

// easyPowLimit is a proof-of-work limit about half of all hashes satisfy.
var easyPowLimit = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 255),
	big.NewInt(1))

// powParams returns regression network parameters that ignore consensus for
// the first blocks and require an easy proof of work from the given height on.
func powParams(powHeight int64) *chaincfg.Params {
	params := chaincfg.RegNetParams()
	params.NetUpgrades = []chaincfg.NetUpgrade{{
		Height: 0,
		Kind:   chaincfg.ConsensusIgnore,
	}, {
		Height:       powHeight,
		Kind:         chaincfg.ConsensusPoW,
		InitialBits:  0x207fffff,
		PowLimit:     easyPowLimit,
		PowLimitBits: 0x207fffff,
	}}
	return params
}

// testClock returns a clock set one hour past the genesis block of the passed
// parameters so generated blocks are neither too old nor too new.
func testClock(t *testing.T, params *chaincfg.Params) *clock.TestClock {
	t.Helper()
	return clock.NewTestClock(params.GenesisBlock.Header.Timestamp.Add(time.Hour))
}

// openTestDB returns an empty memory database that is closed when the test
// finishes.
func openTestDB(t testing.TB) *chaindb.DB {
	t.Helper()
	db, err := chaindb.OpenMem()
	if err != nil {
		t.Fatalf("unable to open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// chainSetup is used to create a new chain instance over the passed database
// with the given configuration adjustments applied.
func chainSetup(t testing.TB, db chaindb.Store, params *chaincfg.Params,
	clk clock.Clock, adjust ...func(*Config)) (*BlockChain, error) {

	t.Helper()
	config := &Config{
		DB:          db,
		ChainParams: params,
		Clock:       clk,
	}
	for _, f := range adjust {
		f(config)
	}
	return New(context.Background(), config)
}

// flakyStore wraps a database so that commits fail with a recoverable error
// while failures is positive.  Every commit attempt is counted.
type flakyStore struct {
	*chaindb.DB
	failures int
	commits  int
}

// Begin starts a transaction whose commit may fail.
func (s *flakyStore) Begin(writable bool) (chaindb.Tx, error) {
	tx, err := s.DB.Begin(writable)
	if err != nil {
		return nil, err
	}
	return &flakyTx{Tx: tx, store: s}, nil
}

// flakyTx is a transaction of a flakyStore.
type flakyTx struct {
	chaindb.Tx
	store *flakyStore
}

// Commit discards the transaction and reports a commit failure while the store
// has failures left.  Otherwise it commits the transaction.
func (tx *flakyTx) Commit() error {
	tx.store.commits++
	if tx.store.failures > 0 {
		tx.store.failures--
		tx.Tx.Rollback()
		return chaindb.ContextError{
			Err:         chaindb.ErrDbCommit,
			Description: "injected commit failure",
		}
	}
	return tx.Tx.Commit()
}

// chaingenHarness provides a test harness which encapsulates a test instance, a
// chaingen generator instance, and a block chain instance to provide all of the
// functionality of the aforementioned types as well as several convenience
// functions such as block acceptance and rejection, expected tip checking, and
// notification counting.
type chaingenHarness struct {
	*chaingen.Generator

	t     *testing.T
	db    *chaindb.DB
	clock *clock.TestClock
	chain *BlockChain

	notifications []*Notification
}

// newChaingenHarness creates and returns a new instance of a chaingen harness
// that encapsulates the provided test instance.
func newChaingenHarness(t *testing.T, params *chaincfg.Params, adjust ...func(*Config)) *chaingenHarness {
	t.Helper()

	g, err := chaingen.MakeGenerator(params)
	if err != nil {
		t.Fatalf("Failed to create generator: %v", err)
	}
	db := openTestDB(t)
	clk := testClock(t, params)
	chain, err := chainSetup(t, db, params, clk, adjust...)
	if err != nil {
		t.Fatalf("Failed to setup chain instance: %v", err)
	}
	harness := &chaingenHarness{
		Generator: &g,
		t:         t,
		db:        db,
		clock:     clk,
		chain:     chain,
	}
	chain.Subscribe(func(n *Notification) {
		harness.notifications = append(harness.notifications, n)
	})
	return harness
}

// AcceptBlock processes the block associated with the given name in the
// harness generator and expects it to be accepted to the main chain.
func (g *chaingenHarness) AcceptBlock(blockName string) {
	g.t.Helper()

	block := g.BlockByName(blockName)
	blockHash := block.BlockHash()
	g.t.Logf("Testing block %q (hash %s, height %d)", blockName, blockHash,
		g.BlockHeight(blockName))

	tip, err := g.chain.ProcessBlock(block, BlockSourceLocal)
	if err != nil {
		g.t.Fatalf("block %q (hash %s) should have been accepted: %v",
			blockName, blockHash, err)
	}
	if tip == nil {
		g.t.Fatalf("block %q (hash %s) was not accepted to the main chain",
			blockName, blockHash)
	}
	g.ExpectTip(blockName)
}

// AcceptTipBlock processes the current tip block associated with the harness
// generator and expects it to be accepted to the main chain.
func (g *chaingenHarness) AcceptTipBlock() {
	g.t.Helper()

	g.AcceptBlock(g.TipName())
}

// AcceptBlockWithExpectedTip processes the block associated with the given
// name and expects it to be accepted and the tip to be the named block
// afterwards.
func (g *chaingenHarness) AcceptBlockWithExpectedTip(blockName, tipName string) {
	g.t.Helper()

	block := g.BlockByName(blockName)
	if _, err := g.chain.ProcessBlock(block, BlockSourceLocal); err != nil {
		g.t.Fatalf("block %q should have been accepted: %v", blockName, err)
	}
	g.ExpectTip(tipName)
}

// RejectBlock expects the block associated with the given name in the harness
// generator to be rejected with the provided error kind.
func (g *chaingenHarness) RejectBlock(blockName string, kind ErrorKind) {
	g.t.Helper()

	g.rejectBlock(blockName, kind)
}

// rejectBlock expects the block associated with the given name to be rejected
// with an error matching target.
func (g *chaingenHarness) rejectBlock(blockName string, target error) {
	g.t.Helper()

	block := g.BlockByName(blockName)
	blockHash := block.BlockHash()
	g.t.Logf("Testing reject block %q (hash %s, reason %v)", blockName,
		blockHash, target)

	_, err := g.chain.ProcessBlock(block, BlockSourceLocal)
	if err == nil {
		g.t.Fatalf("block %q (hash %s) should not have been accepted",
			blockName, blockHash)
	}
	if !errors.Is(err, target) {
		g.t.Fatalf("block %q (hash %s) does not have expected reject code "+
			"-- got %v, want %v", blockName, blockHash, err, target)
	}
}

// RejectTipBlock expects the current tip block associated with the harness
// generator to be rejected with the provided error kind.
func (g *chaingenHarness) RejectTipBlock(kind ErrorKind) {
	g.t.Helper()

	g.RejectBlock(g.TipName(), kind)
}

// ExpectTip expects the provided block to be the current tip of the main chain
// associated with the harness generator.
func (g *chaingenHarness) ExpectTip(tipName string) {
	g.t.Helper()

	wantTip := g.BlockByName(tipName)
	wantHeight := g.BlockHeight(tipName)
	best := g.chain.BestSnapshot()
	if best.Hash != wantTip.BlockHash() || best.Height != wantHeight {
		g.t.Fatalf("block %q (hash %s, height %d) should be the current tip "+
			"-- got %q (hash %s, height %d)", tipName, wantTip.BlockHash(),
			wantHeight, g.BlockName(&best.Hash), best.Hash, best.Height)
	}
}

// AcceptedToSideChainWithExpectedTip expects the tip block associated with the
// generator to be accepted to a side chain, but the current best chain tip to
// be the provided value.
func (g *chaingenHarness) AcceptedToSideChainWithExpectedTip(tipName string) {
	g.t.Helper()

	block := g.Tip()
	g.t.Logf("Testing side chain block %q (hash %s)", g.TipName(),
		block.BlockHash())

	tip, err := g.chain.ProcessBlock(block, BlockSourceLocal)
	if err != nil {
		g.t.Fatalf("block %q (hash %s) should have been accepted: %v",
			g.TipName(), block.BlockHash(), err)
	}
	if tip != nil {
		g.t.Fatalf("block %q (hash %s) unexpectedly became the tip",
			g.TipName(), block.BlockHash())
	}
	g.ExpectTip(tipName)
}

// ExpectOrphan processes the block associated with the given name as a peer
// block and expects it to be kept as an orphan.
func (g *chaingenHarness) ExpectOrphan(blockName string) {
	g.t.Helper()

	block := g.BlockByName(blockName)
	_, err := g.chain.ProcessBlock(block, BlockSourcePeer)
	if !errors.Is(err, ErrOrphanBlock) {
		g.t.Fatalf("block %q should have been kept as an orphan -- got %v",
			blockName, err)
	}
	hash := block.BlockHash()
	if !g.chain.IsAlreadyAnOrphan(&hash) {
		g.t.Fatalf("block %q is not in the orphan pool", blockName)
	}
}

// ExpectUtxo expects the passed outpoint to be unspent or not depending on
// want.
func (g *chaingenHarness) ExpectUtxo(op wire.OutPoint, want bool) {
	g.t.Helper()

	entry, err := g.chain.UtxoEntry(op)
	if err != nil {
		g.t.Fatalf("unable to fetch utxo %v: %v", op, err)
	}
	if got := entry != nil; got != want {
		g.t.Fatalf("utxo %v unspent -- got %v, want %v", op, got, want)
	}
}

// countNotifications returns the number of recorded notifications of the given
// type.
func (g *chaingenHarness) countNotifications(typ NotificationType) int {
	var n int
	for _, ntfn := range g.notifications {
		if ntfn.Type == typ {
			n++
		}
	}
	return n
}

// resetNotifications clears the recorded notifications.
func (g *chaingenHarness) resetNotifications() {
	g.notifications = nil
}

// generateBlocks generates and accepts count blocks named prefix0, prefix1
// and so on on top of the current tip.
func (g *chaingenHarness) generateBlocks(prefix string, count int) {
	g.t.Helper()

	for i := 0; i < count; i++ {
		g.NextBlock(blockName(prefix, i), nil)
		g.AcceptTipBlock()
	}
}

// blockName returns the name of the i-th block generated with a prefix.
func blockName(prefix string, i int) string {
	return prefix + strconv.Itoa(i)
}
