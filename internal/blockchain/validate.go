// Copyright (c) 2013-2016 The btcsuite developers
// Copyright (c) 2015-2024 The Decred developers
// Copyright (c) 2026 The stakechain developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockchain

import (
	"fmt"
	"time"

	"github.com/decred/dcrd/chaincfg/chainhash"
	"github.com/stakechain/chaind/chaincfg"
	"github.com/stakechain/chaind/internal/consensus"
	"github.com/stakechain/chaind/wire"
)

// checkBlockSanity performs the checks of a block that do not depend on any
// other block.  The passed time is the current time used to reject blocks from
// too far in the future.
func checkBlockSanity(block *wire.MsgBlock, params *chaincfg.Params, now time.Time) error {
	blockHash := block.BlockHash()
	header := &block.Header

	// A block must not exceed the maximum allowed block payload when
	// serialized.
	serializedSize := block.SerializeSize()
	if serializedSize > params.MaxBlockSize {
		str := fmt.Sprintf("serialized block %v is too big - got %d, max %d",
			blockHash, serializedSize, params.MaxBlockSize)
		return ruleError(ErrBlockTooBig, str)
	}

	// Ensure the block time is not too far in the future.
	maxTimestamp := now.Add(params.MaxFutureBlockTime)
	if header.Timestamp.After(maxTimestamp) {
		str := fmt.Sprintf("block %v timestamp of %v is too far in the "+
			"future", blockHash, header.Timestamp)
		return ruleError(ErrTimeTooNew, str)
	}

	// Build the merkle tree and ensure the calculated merkle root matches
	// the entry in the block header.
	merkleRoot := block.CalcMerkleRoot()
	if header.MerkleRoot != merkleRoot {
		str := fmt.Sprintf("block %v merkle root is invalid - block header "+
			"indicates %v, but calculated value is %v", blockHash,
			header.MerkleRoot, merkleRoot)
		return ruleError(ErrBadMerkleRoot, str)
	}

	// Check for duplicate transactions.
	existingTxHashes := make(map[chainhash.Hash]struct{}, len(block.Transactions))
	for _, txHash := range block.TxHashes() {
		if _, exists := existingTxHashes[txHash]; exists {
			str := fmt.Sprintf("block %v contains duplicate transaction %v",
				blockHash, txHash)
			return ruleError(ErrDuplicateTx, str)
		}
		existingTxHashes[txHash] = struct{}{}
	}

	// No two inputs of the block may spend the same output.  The kernel
	// inputs of a proof-of-stake header count as inputs of the block.
	spent := make(map[wire.OutPoint]struct{})
	checkInput := func(in *wire.TxIn) error {
		if _, exists := spent[in.PreviousOutPoint]; exists {
			str := fmt.Sprintf("block %v spends output %v more than once",
				blockHash, in.PreviousOutPoint)
			return ruleError(ErrDuplicateInputInBlock, str)
		}
		spent[in.PreviousOutPoint] = struct{}{}
		return nil
	}
	for _, in := range header.ConsensusData.KernelInputs {
		if err := checkInput(in); err != nil {
			return err
		}
	}
	for _, tx := range block.Transactions {
		for _, in := range tx.TxIn {
			if err := checkInput(in); err != nil {
				return err
			}
		}
	}

	for i, out := range block.Reward.Outputs {
		if out.Value.Type == wire.ValueTokenIssuance {
			str := fmt.Sprintf("output %d of the reward of block %v "+
				"issues a token", i, blockHash)
			return ruleError(ErrInvalidBlockReward, str)
		}
	}

	return nil
}

// checkHeaderContext performs the checks of a header that depend on its
// position in the block tree: the consensus rules of its height, the median
// time of its ancestors and its proof.
//
// The proof of stake itself depends on the chain state at the parent and is
// only checked when the block is connected.
func (b *BlockChain) checkHeaderContext(view *chainView, header *wire.BlockHeader,
	parent GenBlockIndex) error {

	height := parent.Height() + 1
	if err := consensus.CheckConsensusType(b.params, header, height); err != nil {
		return err
	}

	// Ensure the timestamp for the block header is after the median time
	// of the last several blocks (medianTimeBlocks).
	medianTime, err := view.medianTimePast(parent)
	if err != nil {
		return err
	}
	if header.Timestamp.Before(medianTime) {
		str := fmt.Sprintf("block timestamp of %v is not after expected %v",
			header.Timestamp, medianTime)
		return ruleError(ErrTimeTooOld, str)
	}

	maxTimestamp := b.clock.Now().Add(b.params.MaxFutureBlockTime)
	if header.Timestamp.After(maxTimestamp) {
		str := fmt.Sprintf("block timestamp of %v is too far in the future",
			header.Timestamp)
		return ruleError(ErrTimeTooNew, str)
	}

	switch header.ConsensusData.Type {
	case wire.ConsensusPoW:
		chain := headerChain{view: view, tip: parent}
		return consensus.CheckPoWHeader(b.params, header, height, chain)

	case wire.ConsensusPoS:
		return consensus.CheckPoSTargetBits(b.params, header, height)
	}
	return nil
}
