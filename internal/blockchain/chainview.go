// Copyright (c) 2017-2022 The Decred developers
// Copyright (c) 2026 The stakechain developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockchain

import (
	"fmt"
	"time"

	"github.com/decred/dcrd/chaincfg/chainhash"
	"github.com/stakechain/chaind/internal/chaindb"
	"github.com/stakechain/chaind/internal/consensus"
	"github.com/stakechain/chaind/wire"
)

// chainView provides the block tree and the main chain as seen by a database
// transaction.
//
// Indexes stored through a writable view are kept aside until the transaction
// commits so a failed transaction never leaves them in the shared index cache.
type chainView struct {
	b       *BlockChain
	r       chaindb.Reader
	pending map[chainhash.Hash]*BlockIndex
}

// newChainView returns a view over the passed database transaction.
func (b *BlockChain) newChainView(tx chaindb.Tx) *chainView {
	view := &chainView{b: b, r: tx}
	if tx.Writable() {
		view.pending = make(map[chainhash.Hash]*BlockIndex)
	}
	return view
}

// lookupIndex returns the index of the block with the given id or nil when the
// block is not known.
func (v *chainView) lookupIndex(hash *chainhash.Hash) (GenBlockIndex, error) {
	if *hash == v.b.genesis.hash {
		return v.b.genesis, nil
	}
	if idx, ok := v.pending[*hash]; ok {
		return idx, nil
	}
	if idx, ok := v.b.index.Get(*hash); ok {
		return idx, nil
	}
	idx, err := dbFetchBlockIndex(v.r, hash)
	if err != nil || idx == nil {
		return nil, err
	}
	// Only writers populate the cache.  A reader may hold a snapshot that
	// predates a status change committed since.
	if v.pending != nil {
		v.b.index.Put(*hash, idx)
	}
	return idx, nil
}

// fetchIndex returns the index of the block with the given id or an
// ErrBlockNotFound error when the block is not known.
func (v *chainView) fetchIndex(hash *chainhash.Hash) (GenBlockIndex, error) {
	idx, err := v.lookupIndex(hash)
	if err != nil {
		return nil, err
	}
	if idx == nil {
		return nil, unknownBlockError(hash)
	}
	return idx, nil
}

// storeIndex writes a block index through the passed writer.
func (v *chainView) storeIndex(w chaindb.Writer, idx *BlockIndex) error {
	if v.pending == nil {
		return AssertError("block index stored through a read-only view")
	}
	if err := dbPutBlockIndex(w, idx); err != nil {
		return err
	}
	v.pending[idx.hash] = idx
	return nil
}

// commit moves the indexes stored through the view to the shared index cache.
// It must only be called once the underlying transaction committed.
func (v *chainView) commit() {
	for hash, idx := range v.pending {
		v.b.index.Put(hash, idx)
	}
	v.pending = make(map[chainhash.Hash]*BlockIndex)
}

// bestIndex returns the index of the tip of the main chain.
func (v *chainView) bestIndex() (GenBlockIndex, error) {
	hash, err := dbFetchBestBlock(v.r)
	if err != nil {
		return nil, err
	}
	idx, err := v.lookupIndex(hash)
	if err != nil {
		return nil, err
	}
	if idx == nil {
		return nil, AssertError(fmt.Sprintf("best block %v has no index",
			hash))
	}
	return idx, nil
}

// mainChainHash returns the id of the main chain block at the given height or
// nil when the main chain is shorter.
func (v *chainView) mainChainHash(height int64) (*chainhash.Hash, error) {
	return dbFetchMainChainHash(v.r, height)
}

// isOnMainChain returns whether the passed block is part of the main chain.
func (v *chainView) isOnMainChain(idx GenBlockIndex) (bool, error) {
	hash, err := v.mainChainHash(idx.Height())
	if err != nil || hash == nil {
		return false, err
	}
	return *hash == idx.Hash(), nil
}

// parent returns the index of the parent of the passed block.
func (v *chainView) parent(idx *BlockIndex) (GenBlockIndex, error) {
	prevHash := idx.PrevHash()
	parent, err := v.lookupIndex(&prevHash)
	if err != nil {
		return nil, err
	}
	if parent == nil {
		return nil, AssertError(fmt.Sprintf("parent %v of block %v has no "+
			"index", prevHash, idx.hash))
	}
	return parent, nil
}

// ancestor returns the ancestor of the passed block at the given height.  A
// block is its own ancestor at its height.
//
// The main chain is consulted directly for blocks on it.  Other blocks walk
// back through the skip list which needs a logarithmic number of lookups.
func (v *chainView) ancestor(idx GenBlockIndex, height int64) (GenBlockIndex, error) {
	if height < 0 || height > idx.Height() {
		str := fmt.Sprintf("ancestor at height %d requested for block %v "+
			"at height %d", height, idx.Hash(), idx.Height())
		return nil, ruleError(ErrInvalidAncestorHeight, str)
	}

	onMainChain, err := v.isOnMainChain(idx)
	if err != nil {
		return nil, err
	}
	if onMainChain {
		hash, err := v.mainChainHash(height)
		if err != nil {
			return nil, err
		}
		if hash == nil {
			return nil, AssertError(fmt.Sprintf("main chain has no block "+
				"at height %d below block %v", height, idx.Hash()))
		}
		return v.fetchIndex(hash)
	}

	cur := idx
	for cur.Height() != height {
		blockIdx, ok := cur.(*BlockIndex)
		if !ok {
			return nil, AssertError("walked past genesis looking for an " +
				"ancestor")
		}

		// Take the skip link when it does not overshoot the target.
		next := blockIdx.PrevHash()
		if calcSkipListHeight(blockIdx.height) >= height {
			next = blockIdx.skipHash
		}
		cur, err = v.lookupIndex(&next)
		if err != nil {
			return nil, err
		}
		if cur == nil {
			return nil, AssertError(fmt.Sprintf("ancestor %v of block %v "+
				"has no index", next, idx.Hash()))
		}
	}
	return cur, nil
}

// lastCommonAncestor returns the most recent block both passed blocks descend
// from.
func (v *chainView) lastCommonAncestor(a, b GenBlockIndex) (GenBlockIndex, error) {
	var err error
	if a.Height() > b.Height() {
		if a, err = v.ancestor(a, b.Height()); err != nil {
			return nil, err
		}
	} else if b.Height() > a.Height() {
		if b, err = v.ancestor(b, a.Height()); err != nil {
			return nil, err
		}
	}
	for a.Hash() != b.Hash() {
		aIdx, aOk := a.(*BlockIndex)
		bIdx, bOk := b.(*BlockIndex)
		if !aOk || !bOk {
			return nil, AssertError("blocks do not share the genesis block")
		}
		if a, err = v.parent(aIdx); err != nil {
			return nil, err
		}
		if b, err = v.parent(bIdx); err != nil {
			return nil, err
		}
	}
	return a, nil
}

// medianTimePast returns the median time of the passed block and up to
// medianTimeBlocks-1 of its ancestors.
func (v *chainView) medianTimePast(idx GenBlockIndex) (time.Time, error) {
	timestamps := make([]int64, 0, medianTimeBlocks)
	cur := idx
	for {
		timestamps = append(timestamps, cur.Timestamp().Unix())
		blockIdx, ok := cur.(*BlockIndex)
		if !ok || len(timestamps) == medianTimeBlocks {
			break
		}
		var err error
		if cur, err = v.parent(blockIdx); err != nil {
			return time.Time{}, err
		}
	}
	return medianTime(timestamps), nil
}

// mainChainTimestamp returns the timestamp of the main chain block at the given
// height.
func (v *chainView) mainChainTimestamp(height int64) (time.Time, error) {
	hash, err := v.mainChainHash(height)
	if err != nil {
		return time.Time{}, err
	}
	if hash == nil {
		str := fmt.Sprintf("no main chain block at height %d", height)
		return time.Time{}, ruleError(ErrBlockAtHeightNotFound, str)
	}
	idx, err := v.fetchIndex(hash)
	if err != nil {
		return time.Time{}, err
	}
	return idx.Timestamp(), nil
}

// headerChain provides the headers of the branch ending with tip to the
// difficulty calculations.
type headerChain struct {
	view *chainView
	tip  GenBlockIndex
}

// Ensure headerChain implements the consensus.HeaderChain interface.
var _ consensus.HeaderChain = headerChain{}

// HeaderAt is part of the consensus.HeaderChain interface.
func (c headerChain) HeaderAt(height int64) (*wire.BlockHeader, error) {
	idx, err := c.view.ancestor(c.tip, height)
	if err != nil {
		return nil, err
	}
	header := idx.Header()
	return &header, nil
}
