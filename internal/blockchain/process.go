// Copyright (c) 2013-2016 The btcsuite developers
// Copyright (c) 2015-2024 The Decred developers
// Copyright (c) 2026 The stakechain developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockchain

import (
	"errors"
	"fmt"
	"time"

	"github.com/avast/retry-go"
	"github.com/decred/dcrd/chaincfg/chainhash"
	"github.com/decred/dcrd/crypto/rand"
	"github.com/stakechain/chaind/internal/chaindb"
	"github.com/stakechain/chaind/wire"
)

// blockNtfn identifies a block that was connected to or disconnected from the
// main chain.
type blockNtfn struct {
	block  *wire.MsgBlock
	height int64
}

// acceptResult describes the outcome of committing a block.
type acceptResult struct {
	// newTip is the index of the new main chain tip or nil when the block
	// was added to a side chain.
	newTip *BlockIndex

	// state is the best state once the block was committed.
	state *BestState

	// disconnected lists the detached blocks from the old tip down and
	// connected the attached blocks from the fork up.
	disconnected []blockNtfn
	connected    []blockNtfn
}

// ProcessBlock is the main workhorse for handling insertion of new blocks into
// the block chain.  It includes functionality such as rejecting duplicate
// blocks, ensuring blocks follow all rules, orphan handling, and insertion into
// the block chain along with best chain selection and reorganization.
//
// A block from a peer whose parent is unknown is kept in the orphan pool and
// an error of kind ErrOrphanBlock is returned.  Once a block is accepted, the
// orphans that build on it are processed in turn.
//
// It returns the index of the new main chain tip when the tip changed and nil
// otherwise.  A single NTNewTip notification is sent when the tip changed.
//
// This function is safe for concurrent access.
func (b *BlockChain) ProcessBlock(block *wire.MsgBlock, source BlockSource) (*BlockIndex, error) {
	b.processLock.Lock()
	defer b.processLock.Unlock()

	hash := block.BlockHash()
	tip, err := b.processBlock(block, hash, source)
	if err != nil {
		return nil, err
	}
	if orphanTip := b.processOrphans(&hash); orphanTip != nil {
		tip = orphanTip
	}
	b.metrics.orphans.Set(float64(b.orphans.len()))

	if tip != nil {
		b.sendNotification(NTNewTip, &NewTipNtfnsData{
			Hash:   tip.hash,
			Height: tip.height,
		})
	}
	return tip, nil
}

// processOrphans processes the orphans that build on the passed block and,
// recursively, on the orphans that get accepted.  It returns the last new tip
// or nil when the orphans did not change the tip.
//
// Rejected orphans are reported to the orphan error hook.
//
// This function MUST be called with the process lock held.
func (b *BlockChain) processOrphans(hash *chainhash.Hash) *BlockIndex {
	var tip *BlockIndex
	queue := []chainhash.Hash{*hash}
	for len(queue) > 0 {
		parent := queue[0]
		queue = queue[1:]
		for _, orphan := range b.orphans.takeChildren(&parent) {
			orphanHash := orphan.BlockHash()
			newTip, err := b.processBlock(orphan, orphanHash,
				BlockSourceLocal)
			if err != nil {
				if b.orphanErrorHook != nil {
					log.Warnf("Failed to process orphan block %v: %v",
						orphanHash, err)
					b.orphanErrorHook(err)
				} else {
					log.Errorf("Failed to process orphan block %v: %v",
						orphanHash, err)
				}
				continue
			}
			if newTip != nil {
				tip = newTip
			}
			queue = append(queue, orphanHash)
		}
	}
	return tip
}

// processBlock processes a single block and records the result in the
// metrics.
//
// This function MUST be called with the process lock held.
func (b *BlockChain) processBlock(block *wire.MsgBlock, hash chainhash.Hash,
	source BlockSource) (*BlockIndex, error) {

	result, err := b.maybeAcceptBlock(block, hash, source)
	switch {
	case errors.Is(err, ErrOrphanBlock):
		b.metrics.processed.WithLabelValues(resultOrphan).Inc()
		return nil, err

	case errors.Is(err, ErrDuplicateBlock):
		b.metrics.processed.WithLabelValues(resultDuplicate).Inc()
		return nil, err

	case err != nil && isValidationError(err):
		b.metrics.processed.WithLabelValues(resultInvalid).Inc()
		return nil, err

	case err != nil:
		b.metrics.processed.WithLabelValues(resultError).Inc()
		return nil, err

	case result.newTip == nil:
		b.metrics.processed.WithLabelValues(resultSideChain).Inc()
		return nil, nil
	}
	b.metrics.processed.WithLabelValues(resultAccepted).Inc()

	b.setBestSnapshot(result.state)
	if n := len(result.disconnected); n > 0 {
		b.metrics.reorgs.Inc()
		b.metrics.reorgDepth.Observe(float64(n))
	}
	for _, d := range result.disconnected {
		b.sendNotification(NTBlockDisconnected, &BlockDisconnectedNtfnsData{
			Block:  d.block,
			Height: d.height,
		})
	}
	for _, c := range result.connected {
		b.sendNotification(NTBlockConnected, &BlockConnectedNtfnsData{
			Block:  c.block,
			Height: c.height,
		})
	}
	return result.newTip, nil
}

// maybeAcceptBlock performs the context free checks of a block, sorts out
// duplicates and orphans and then commits the block.
func (b *BlockChain) maybeAcceptBlock(block *wire.MsgBlock, hash chainhash.Hash,
	source BlockSource) (*acceptResult, error) {

	if b.orphans.has(&hash) {
		// The parent of a pooled orphan is still unknown.
		if source == BlockSourceLocal {
			str := fmt.Sprintf("previous block %v of local block %v is "+
				"unknown", &block.Header.PrevBlock, hash)
			return nil, ruleError(ErrLocalOrphan, str)
		}
		str := fmt.Sprintf("already have block %v as an orphan", hash)
		return nil, ruleError(ErrOrphanBlock, str)
	}

	if err := checkBlockSanity(block, b.params, b.clock.Now()); err != nil {
		return nil, err
	}

	var parentKnown bool
	err := b.view(func(view *chainView) error {
		idx, err := view.lookupIndex(&hash)
		if err != nil {
			return err
		}
		if idx != nil {
			if blockIdx, ok := idx.(*BlockIndex); ok {
				switch {
				case blockIdx.status.KnownValidateFailed():
					str := fmt.Sprintf("block %v is known to be invalid",
						hash)
					return ruleError(ErrKnownInvalidBlock, str)

				case blockIdx.status.KnownInvalidAncestor():
					str := fmt.Sprintf("block %v is known to have an "+
						"invalid ancestor", hash)
					return ruleError(ErrInvalidAncestorBlock, str)
				}
			}
			str := fmt.Sprintf("already have block %v", hash)
			return ruleError(ErrDuplicateBlock, str)
		}

		parent, err := view.lookupIndex(&block.Header.PrevBlock)
		if err != nil || parent == nil {
			return err
		}
		parentKnown = true
		if p, ok := parent.(*BlockIndex); ok && p.status.KnownInvalid() {
			str := fmt.Sprintf("previous block %v is known to be invalid",
				p.hash)
			return ruleError(ErrInvalidAncestorBlock, str)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if !parentKnown {
		prevHash := &block.Header.PrevBlock
		if source == BlockSourceLocal {
			str := fmt.Sprintf("previous block %v of local block %v is "+
				"unknown", prevHash, hash)
			return nil, ruleError(ErrLocalOrphan, str)
		}
		if b.orphans.add(block, hash) {
			log.Infof("Adding orphan block %v with parent %v", hash,
				prevHash)
		}
		str := fmt.Sprintf("previous block %v of block %v is unknown",
			prevHash, hash)
		return nil, ruleError(ErrOrphanBlock, str)
	}

	var result *acceptResult
	var attempts int
	attemptLimit := uint(b.maxDBCommitAttempts)
	err = retry.Do(func() error {
		attempts++
		var err error
		result, err = b.acceptBlock(block, hash)
		return err
	},
		retry.Attempts(attemptLimit),
		retry.Delay(b.commitRetryDelay),
		retry.DelayType(retry.CombineDelay(retry.FixedDelay,
			b.commitRetryJitter)),
		retry.RetryIf(chaindb.IsRecoverable),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			// The hook also runs after the final failed attempt.
			if n+1 >= attemptLimit {
				return
			}
			b.metrics.commitRetries.Inc()
			log.Warnf("Retrying commit of block %v after attempt %d: %v",
				hash, n+1, err)
		}),
	)
	if err != nil {
		if chaindb.IsRecoverable(err) {
			str := fmt.Sprintf("unable to commit block %v after %d "+
				"attempts: %v", hash, attempts, err)
			return nil, contextError(ErrDatabaseCommit, str)
		}
		return nil, err
	}
	return result, nil
}

// commitRetryJitter returns a random extra wait of up to half the commit retry
// delay.  It is drawn for every attempt so that retries are spread out.
func (b *BlockChain) commitRetryJitter(_ uint, _ error, _ *retry.Config) time.Duration {
	maxJitter := b.commitRetryDelay / 2
	if maxJitter <= 0 {
		return 0
	}
	return rand.Duration(maxJitter)
}

// acceptBlock stores a block whose parent is known and makes it the new tip of
// the main chain when it has more trust than the current tip.  Everything is
// done in a single database transaction that is only committed when the block
// and every block it brings to the main chain are valid.
//
// A block failing validation while it is connected is marked as invalid along
// with every stored descendant on the way to the new block.
func (b *BlockChain) acceptBlock(block *wire.MsgBlock, hash chainhash.Hash) (*acceptResult, error) {
	tx, err := b.db.Begin(true)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()
	view := b.newChainView(tx)

	header := &block.Header
	parent, err := view.fetchIndex(&header.PrevBlock)
	if err != nil {
		return nil, err
	}
	if err := b.checkHeaderContext(view, header, parent); err != nil {
		return nil, err
	}

	height := parent.Height() + 1
	skip, err := view.ancestor(parent, calcSkipListHeight(height))
	if err != nil {
		return nil, err
	}
	idx := newBlockIndex(header, parent, skip.Hash())
	idx.status = statusDataStored
	if err := dbPutBlock(tx, &hash, block); err != nil {
		return nil, err
	}
	if err := view.storeIndex(tx, idx); err != nil {
		return nil, err
	}

	best, err := view.bestIndex()
	if err != nil {
		return nil, err
	}
	result := &acceptResult{}
	bestTrust, trust := best.ChainTrust(), idx.ChainTrust()
	if !trust.Gt(&bestTrust) {
		if err := tx.Commit(); err != nil {
			return nil, err
		}
		view.commit()
		log.Infof("Accepted block %v at height %d to a side chain", hash,
			height)
		return result, nil
	}

	failed, err := b.activateBestChain(view, tx, idx, block, best, result)
	if err != nil {
		tx.Rollback()
		if failed != nil && isValidationError(err) {
			if markErr := b.markInvalid(block, idx, failed); markErr != nil {
				return nil, markErr
			}
		}
		return nil, err
	}

	tip, err := view.fetchIndex(&hash)
	if err != nil {
		return nil, err
	}
	medianTime, err := view.medianTimePast(tip)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	view.commit()

	result.newTip = tip.(*BlockIndex)
	result.state = newBestState(tip, medianTime)
	return result, nil
}

// markInvalid records that the failed block violates the consensus rules and
// that every block from target down to it has an invalid ancestor.  It runs in
// a transaction of its own since the one that found the failure is discarded,
// including the target block.
func (b *BlockChain) markInvalid(block *wire.MsgBlock, target, failed *BlockIndex) error {
	tx, err := b.db.Begin(true)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	view := b.newChainView(tx)

	if err := dbPutBlock(tx, &target.hash, block); err != nil {
		return err
	}
	cur := target
	for cur.hash != failed.hash {
		err := view.storeIndex(tx, cur.withStatus(cur.status|statusInvalidAncestor))
		if err != nil {
			return err
		}
		parent, err := view.parent(cur)
		if err != nil {
			return err
		}
		next, ok := parent.(*BlockIndex)
		if !ok {
			return AssertError(fmt.Sprintf("failed block %v is not an "+
				"ancestor of block %v", failed.hash, target.hash))
		}
		cur = next
	}
	err = view.storeIndex(tx, cur.withStatus(cur.status|statusValidateFailed))
	if err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	view.commit()
	log.Infof("Marked block %v as invalid", failed.hash)
	return nil
}

// activateBestChain makes target the tip of the main chain.  The blocks of the
// current main chain down to the fork point are disconnected and the blocks of
// the branch of target are connected in order.
//
// The passed block is the block of target.  The index of the block that failed
// validation is returned along with the error when one did.
func (b *BlockChain) activateBestChain(view *chainView, tx chaindb.Tx, target *BlockIndex,
	targetBlock *wire.MsgBlock, best GenBlockIndex, result *acceptResult) (*BlockIndex, error) {

	fork, err := view.lastCommonAncestor(target, best)
	if err != nil {
		return nil, err
	}

	// Sealed epochs are final.
	if best.Height() > fork.Height() {
		lastSealed, ok, err := dbFetchLastSealedEpoch(tx)
		if err != nil {
			return nil, err
		}
		forkEpoch := b.params.EpochIndexFromHeight(fork.Height() + 1)
		if ok && forkEpoch <= lastSealed {
			str := fmt.Sprintf("reorganization to block %v would disconnect "+
				"blocks of sealed epoch %d", target.hash, forkEpoch)
			return nil, ruleError(ErrReorgBelowSealedEpoch, str)
		}
	}

	// Disconnect the blocks of the current main chain down to the fork
	// point.
	for cur := best; cur.Height() > fork.Height(); {
		idx := cur.(*BlockIndex)
		block, err := dbFetchBlock(tx, &idx.hash)
		if err != nil {
			return nil, err
		}
		if block == nil {
			return nil, AssertError(fmt.Sprintf("main chain block %v is "+
				"not stored", idx.hash))
		}
		if blockHash := block.BlockHash(); blockHash != idx.hash {
			panicf("stored block %v has hash %v", idx.hash, blockHash)
		}
		if err := b.disconnectBlock(view, tx, idx, block); err != nil {
			return nil, err
		}
		result.disconnected = append(result.disconnected,
			blockNtfn{block: block, height: idx.height})
		if cur, err = view.parent(idx); err != nil {
			return nil, err
		}
	}

	// Collect the branch of the target and connect it from the fork point
	// up.
	var attach []*BlockIndex
	for cur := GenBlockIndex(target); cur.Height() > fork.Height(); {
		idx := cur.(*BlockIndex)
		attach = append(attach, idx)
		if cur, err = view.parent(idx); err != nil {
			return nil, err
		}
	}
	for i := len(attach) - 1; i >= 0; i-- {
		idx := attach[i]
		if idx.status.KnownInvalid() {
			str := fmt.Sprintf("block %v is known to be invalid", idx.hash)
			return idx, ruleError(ErrKnownInvalidBlock, str)
		}
		block := targetBlock
		if idx != target {
			if block, err = dbFetchBlock(tx, &idx.hash); err != nil {
				return nil, err
			}
			if block == nil {
				return nil, AssertError(fmt.Sprintf("block %v is not "+
					"stored", idx.hash))
			}
		}
		if err := b.connectBlock(view, tx, idx, block); err != nil {
			return idx, err
		}
		result.connected = append(result.connected,
			blockNtfn{block: block, height: idx.height})
	}

	if n := len(result.disconnected); n > 0 {
		log.Infof("REORGANIZE: Chain forks at %v (height %d), %d blocks "+
			"disconnected, %d blocks connected", fork.Hash(), fork.Height(),
			n, len(attach))
		log.Infof("REORGANIZE: Old best chain tip was %v (height %d)",
			best.Hash(), best.Height())
		log.Infof("REORGANIZE: New best chain tip is %v (height %d)",
			target.hash, target.height)
	}
	return nil, nil
}
