// Copyright (c) 2018-2021 The Decred developers
// Copyright (c) 2026 The stakechain developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockchain

import (
	"fmt"

	"github.com/decred/dcrd/chaincfg/chainhash"
	"github.com/stakechain/chaind/internal/amount"
	"github.com/stakechain/chaind/internal/posaccounting"
	"github.com/stakechain/chaind/internal/txverifier"
	"github.com/stakechain/chaind/internal/utxo"
	"github.com/stakechain/chaind/wire"
)

// GetAncestor returns the ancestor of the block with the given id at the given
// height.
//
// This function is safe for concurrent access.
func (b *BlockChain) GetAncestor(hash *chainhash.Hash, height int64) (GenBlockIndex, error) {
	var ancestor GenBlockIndex
	err := b.view(func(view *chainView) error {
		idx, err := view.fetchIndex(hash)
		if err != nil {
			return err
		}
		ancestor, err = view.ancestor(idx, height)
		return err
	})
	return ancestor, err
}

// LastCommonAncestor returns the most recent block both passed blocks descend
// from.
//
// This function is safe for concurrent access.
func (b *BlockChain) LastCommonAncestor(a, other *chainhash.Hash) (GenBlockIndex, error) {
	var fork GenBlockIndex
	err := b.view(func(view *chainView) error {
		aIdx, err := view.fetchIndex(a)
		if err != nil {
			return err
		}
		otherIdx, err := view.fetchIndex(other)
		if err != nil {
			return err
		}
		fork, err = view.lastCommonAncestor(aIdx, otherIdx)
		return err
	})
	return fork, err
}

// GetLocator returns a block locator for the current main chain.  See
// BlockLocator for details on the algorithm used to create a block locator.
//
// This function is safe for concurrent access.
func (b *BlockChain) GetLocator() (BlockLocator, error) {
	var locator BlockLocator
	err := b.view(func(view *chainView) error {
		tip, err := view.bestIndex()
		if err != nil {
			return err
		}
		locator = append(locator, tip.Hash())
		for step := int64(1); tip.Height()-step >= 0; step <<= 1 {
			hash, err := view.mainChainHash(tip.Height() - step)
			if err != nil {
				return err
			}
			if hash == nil {
				return AssertError(fmt.Sprintf("main chain has no block "+
					"at height %d", tip.Height()-step))
			}
			locator = append(locator, *hash)
		}
		return nil
	})
	return locator, err
}

// GetHeaders returns the headers of the main chain blocks following the first
// block of the locator that is on the main chain, up to the configured header
// limit.  The headers follow genesis when no block of the locator is on the
// main chain.
//
// This function is safe for concurrent access.
func (b *BlockChain) GetHeaders(locator BlockLocator) ([]wire.BlockHeader, error) {
	var headers []wire.BlockHeader
	err := b.view(func(view *chainView) error {
		var start int64
		for i := range locator {
			idx, err := view.lookupIndex(&locator[i])
			if err != nil {
				return err
			}
			if idx == nil {
				continue
			}
			onMainChain, err := view.isOnMainChain(idx)
			if err != nil {
				return err
			}
			if onMainChain {
				start = idx.Height()
				break
			}
		}

		for height := start + 1; len(headers) < b.headerLimit; height++ {
			hash, err := view.mainChainHash(height)
			if err != nil {
				return err
			}
			if hash == nil {
				break
			}
			idx, err := view.fetchIndex(hash)
			if err != nil {
				return err
			}
			headers = append(headers, idx.Header())
		}
		return nil
	})
	return headers, err
}

// FilterAlreadyExistingBlocks returns the headers starting with the first one
// whose block is not known.  The headers must form a chain whose first parent
// is known.
//
// This function is safe for concurrent access.
func (b *BlockChain) FilterAlreadyExistingBlocks(headers []wire.BlockHeader) ([]wire.BlockHeader, error) {
	if len(headers) == 0 {
		return nil, nil
	}
	for i := 1; i < len(headers); i++ {
		if headers[i].PrevBlock != headers[i-1].BlockHash() {
			str := fmt.Sprintf("header %d does not build on header %d",
				i, i-1)
			return nil, ruleError(ErrDetachedHeaders, str)
		}
	}

	var filtered []wire.BlockHeader
	err := b.view(func(view *chainView) error {
		parent, err := view.lookupIndex(&headers[0].PrevBlock)
		if err != nil {
			return err
		}
		if parent == nil {
			str := fmt.Sprintf("parent %v of the first header is unknown",
				headers[0].PrevBlock)
			return ruleError(ErrDetachedHeaders, str)
		}
		for i := range headers {
			hash := headers[i].BlockHash()
			idx, err := view.lookupIndex(&hash)
			if err != nil {
				return err
			}
			if idx == nil {
				filtered = headers[i:]
				return nil
			}
		}
		return nil
	})
	return filtered, err
}

// BlockHeightInMainChain returns the height of the block with the given id
// when it is part of the main chain.
//
// This function is safe for concurrent access.
func (b *BlockChain) BlockHeightInMainChain(hash *chainhash.Hash) (int64, error) {
	var height int64
	err := b.view(func(view *chainView) error {
		idx, err := view.lookupIndex(hash)
		if err != nil {
			return err
		}
		if idx != nil {
			onMainChain, err := view.isOnMainChain(idx)
			if err != nil {
				return err
			}
			if onMainChain {
				height = idx.Height()
				return nil
			}
		}
		str := fmt.Sprintf("block %v is not in the main chain", hash)
		return ruleError(ErrBlockNotFound, str)
	})
	return height, err
}

// IsBlockInMainChain returns whether the block with the given id is part of the
// main chain.
//
// This function is safe for concurrent access.
func (b *BlockChain) IsBlockInMainChain(hash *chainhash.Hash) (bool, error) {
	var onMainChain bool
	err := b.view(func(view *chainView) error {
		idx, err := view.lookupIndex(hash)
		if err != nil || idx == nil {
			return err
		}
		onMainChain, err = view.isOnMainChain(idx)
		return err
	})
	return onMainChain, err
}

// BlockIndex returns the index of the block with the given id.  The genesis
// block has no index.
//
// This function is safe for concurrent access.
func (b *BlockChain) BlockIndex(hash *chainhash.Hash) (*BlockIndex, error) {
	if *hash == b.genesis.hash {
		return nil, ruleError(ErrGenesisHeaderRequested, "the genesis block "+
			"has no block index")
	}
	var idx *BlockIndex
	err := b.view(func(view *chainView) error {
		genIdx, err := view.fetchIndex(hash)
		if err != nil {
			return err
		}
		idx = genIdx.(*BlockIndex)
		return nil
	})
	return idx, err
}

// GenBlockIndex returns the index of the block with the given id, which may be
// the genesis block.
//
// This function is safe for concurrent access.
func (b *BlockChain) GenBlockIndex(hash *chainhash.Hash) (GenBlockIndex, error) {
	var idx GenBlockIndex
	err := b.view(func(view *chainView) error {
		var err error
		idx, err = view.fetchIndex(hash)
		return err
	})
	return idx, err
}

// Block returns the block with the given id.
//
// This function is safe for concurrent access.
func (b *BlockChain) Block(hash *chainhash.Hash) (*wire.MsgBlock, error) {
	var block *wire.MsgBlock
	err := b.view(func(view *chainView) error {
		var err error
		block, err = dbFetchBlock(view.r, hash)
		if err != nil {
			return err
		}
		if block == nil {
			return unknownBlockError(hash)
		}
		return nil
	})
	return block, err
}

// BlockIDAtHeight returns the id of the main chain block at the given height.
//
// This function is safe for concurrent access.
func (b *BlockChain) BlockIDAtHeight(height int64) (chainhash.Hash, error) {
	var hash chainhash.Hash
	err := b.view(func(view *chainView) error {
		h, err := view.mainChainHash(height)
		if err != nil {
			return err
		}
		if h == nil {
			str := fmt.Sprintf("no main chain block at height %d", height)
			return ruleError(ErrBlockAtHeightNotFound, str)
		}
		hash = *h
		return nil
	})
	return hash, err
}

// BestBlockHeader returns the header of the main chain tip.
//
// This function is safe for concurrent access.
func (b *BlockChain) BestBlockHeader() (wire.BlockHeader, error) {
	var header wire.BlockHeader
	err := b.view(func(view *chainView) error {
		tip, err := view.bestIndex()
		if err != nil {
			return err
		}
		header = tip.Header()
		return nil
	})
	return header, err
}

// MainchainTxIndex returns the index entry of the main chain transaction with
// the given id or nil when there is none.  The transaction index must be
// enabled.
//
// This function is safe for concurrent access.
func (b *BlockChain) MainchainTxIndex(txHash *chainhash.Hash) (*txverifier.TxMainChainIndex, error) {
	if !b.txIndexEnabled {
		return nil, contextError(ErrTxIndexConfig, "the transaction index "+
			"is disabled")
	}
	var entry *txverifier.TxMainChainIndex
	err := b.view(func(view *chainView) error {
		var err error
		entry, err = txverifier.NewDBStorage(view.r, nil).FetchTxIndex(*txHash)
		return err
	})
	return entry, err
}

// TokenAuxData returns the data of the token with the given id or nil when no
// such token was issued on the main chain.
//
// This function is safe for concurrent access.
func (b *BlockChain) TokenAuxData(id *chainhash.Hash) (*txverifier.TokenAuxData, error) {
	var aux *txverifier.TokenAuxData
	err := b.view(func(view *chainView) error {
		var err error
		aux, err = txverifier.NewDBStorage(view.r, nil).TokenAuxData(*id)
		return err
	})
	return aux, err
}

// EpochData returns the data of the given epoch or nil when its last block is
// not connected.
//
// This function is safe for concurrent access.
func (b *BlockChain) EpochData(epoch uint64) (*EpochData, error) {
	var data *EpochData
	err := b.view(func(view *chainView) error {
		var err error
		data, err = dbFetchEpochData(view.r, epoch)
		return err
	})
	return data, err
}

// LastSealedEpoch returns the index of the last sealed epoch and whether any
// epoch is sealed.
//
// This function is safe for concurrent access.
func (b *BlockChain) LastSealedEpoch() (uint64, bool, error) {
	var epoch uint64
	var ok bool
	err := b.view(func(view *chainView) error {
		var err error
		epoch, ok, err = dbFetchLastSealedEpoch(view.r)
		return err
	})
	return epoch, ok, err
}

// PoolBalance returns the balance of the stake pool with the given id as of
// the main chain tip.
//
// This function is safe for concurrent access.
func (b *BlockChain) PoolBalance(poolID *chainhash.Hash) (amount.Amount, error) {
	var balance amount.Amount
	err := b.view(func(view *chainView) error {
		var err error
		balance, err = posaccounting.NewTipView(view.r).PoolBalance(*poolID)
		return err
	})
	return balance, err
}

// SealedPoolBalance returns the balance of the stake pool with the given id as
// of the last sealed epoch.
//
// This function is safe for concurrent access.
func (b *BlockChain) SealedPoolBalance(poolID *chainhash.Hash) (amount.Amount, error) {
	var balance amount.Amount
	err := b.view(func(view *chainView) error {
		var err error
		balance, err = posaccounting.NewSealedView(view.r).PoolBalance(*poolID)
		return err
	})
	return balance, err
}

// UtxoEntry returns the unspent output of the main chain at the given outpoint
// or nil when there is none.
//
// This function is safe for concurrent access.
func (b *BlockChain) UtxoEntry(op wire.OutPoint) (*utxo.Entry, error) {
	var entry *utxo.Entry
	err := b.view(func(view *chainView) error {
		var err error
		entry, err = utxo.NewDBView(view.r).FetchEntry(op)
		return err
	})
	return entry, err
}

// OrphansCount returns the number of blocks in the orphan pool.
//
// This function is safe for concurrent access.
func (b *BlockChain) OrphansCount() int {
	return b.orphans.len()
}

// IsAlreadyAnOrphan returns whether the block with the given id is in the
// orphan pool.
//
// This function is safe for concurrent access.
func (b *BlockChain) IsAlreadyAnOrphan(hash *chainhash.Hash) bool {
	return b.orphans.has(hash)
}

// IsInitialBlockDownload returns whether the chain is still catching up with
// the network.  That is the case while the tip is the genesis block or older
// than the configured maximum tip age.  Once the chain caught up it never
// reports being in initial block download again.
//
// This function is safe for concurrent access.
func (b *BlockChain) IsInitialBlockDownload() bool {
	if b.ibdDone.Load() {
		return false
	}
	tip := b.BestSnapshot()
	if tip.Height == 0 {
		return true
	}
	if !tip.Timestamp.Add(b.maxTipAge).After(b.clock.Now()) {
		return true
	}
	b.ibdDone.Store(true)
	log.Info("Initial block download complete")
	return false
}

// PreliminaryHeaderCheck performs the checks of a header that can be done
// before the block it belongs to is received.  The parent of the header must
// be known.
//
// This function is safe for concurrent access.
func (b *BlockChain) PreliminaryHeaderCheck(header *wire.BlockHeader) error {
	return b.view(func(view *chainView) error {
		parent, err := view.lookupIndex(&header.PrevBlock)
		if err != nil {
			return err
		}
		if parent == nil {
			str := fmt.Sprintf("previous block %v is unknown",
				header.PrevBlock)
			return ruleError(ErrOrphanBlock, str)
		}
		return b.checkHeaderContext(view, header, parent)
	})
}

// PreliminaryBlockCheck performs the checks of a block that do not depend on
// the chain state of its parent.
//
// This function is safe for concurrent access.
func (b *BlockChain) PreliminaryBlockCheck(block *wire.MsgBlock) error {
	if err := checkBlockSanity(block, b.params, b.clock.Now()); err != nil {
		return err
	}
	return b.PreliminaryHeaderCheck(&block.Header)
}
