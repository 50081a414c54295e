// Copyright (c) 2013-2016 The btcsuite developers
// Copyright (c) 2015-2024 The Decred developers
// Copyright (c) 2026 The stakechain developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockchain

import (
	"fmt"

	"github.com/decred/dcrd/chaincfg/chainhash"
	"github.com/stakechain/chaind/internal/chaindb"
	"github.com/stakechain/chaind/internal/consensus"
	"github.com/stakechain/chaind/internal/posaccounting"
	"github.com/stakechain/chaind/internal/txverifier"
	"github.com/stakechain/chaind/wire"
)

// newVerifier returns a transaction verifier over the state of the passed
// transaction.
func (b *BlockChain) newVerifier(view *chainView, tx chaindb.Tx) *txverifier.TransactionVerifier {
	storage := txverifier.NewDBStorage(tx, view.mainChainTimestamp)
	return txverifier.New(b.params, storage, b.txIndexEnabled)
}

// epochSeed returns the randomness stake kernels of the block at the given
// height are drawn with.  It is the randomness of the epoch selected by
// consensus.RandomnessEpoch, or the initial randomness of the network when
// that epoch has no data.
func (b *BlockChain) epochSeed(r chaindb.Reader, height int64) (chainhash.Hash, error) {
	epoch, ok := consensus.RandomnessEpoch(b.params, height)
	if !ok {
		return b.params.InitialRandomness, nil
	}
	data, err := dbFetchEpochData(r, epoch)
	if err != nil {
		return chainhash.Hash{}, err
	}
	if data == nil {
		return b.params.InitialRandomness, nil
	}
	return data.Randomness, nil
}

// connectBlock connects the block of the passed index to the tip of the main
// chain, which must be its parent.  Epochs that are due are sealed first.
//
// This function MUST be called with a writable transaction.
func (b *BlockChain) connectBlock(view *chainView, tx chaindb.Tx, idx *BlockIndex,
	block *wire.MsgBlock) error {

	parent, err := view.parent(idx)
	if err != nil {
		return err
	}
	medianTime, err := view.medianTimePast(parent)
	if err != nil {
		return err
	}
	if err := b.sealEpochs(tx, idx.height); err != nil {
		return err
	}

	verifier := b.newVerifier(view, tx)

	// The proof of stake is checked against the sealed accounting and the
	// state of the outputs before the block.
	header := &block.Header
	var vrfOutput *chainhash.Hash
	if header.ConsensusData.Type == wire.ConsensusPoS {
		kernelIn, err := consensus.KernelInput(header)
		if err != nil {
			return err
		}
		kernel, err := verifier.UtxoView().FetchEntry(kernelIn.PreviousOutPoint)
		if err != nil {
			return err
		}
		if kernel == nil {
			str := fmt.Sprintf("kernel %v of block %v does not exist",
				kernelIn.PreviousOutPoint, idx.hash)
			return ruleError(ErrMissingStakeKernel, str)
		}
		seed, err := b.epochSeed(tx, idx.height)
		if err != nil {
			return err
		}
		output, err := consensus.CheckProofOfStake(b.params, header,
			idx.height, kernel.Output, posaccounting.NewSealedView(tx), &seed)
		if err != nil {
			return err
		}
		vrfOutput = &output
	}

	fees, err := b.strategy.ConnectBlock(verifier, block, idx.height, medianTime)
	if err != nil {
		return err
	}
	verifier.SetBestBlock(idx.hash)
	delta := verifier.Consume()

	// The accounting changes of the block are kept until its epoch is
	// sealed.
	blockDelta := delta.Accounting
	if blockDelta == nil {
		blockDelta = posaccounting.NewDelta()
	}
	if err := posaccounting.PutBlockDelta(tx, &idx.hash, blockDelta); err != nil {
		return err
	}
	if err := txverifier.FlushDelta(tx, delta); err != nil {
		return err
	}

	if err := dbPutMainChainHash(tx, idx.height, &idx.hash); err != nil {
		return err
	}
	if err := dbPutBestBlock(tx, &idx.hash); err != nil {
		return err
	}

	if b.params.IsLastBlockInEpoch(idx.height) {
		epoch := b.params.EpochIndexFromHeight(idx.height)
		if err := b.putEpochData(tx, epoch, idx.hash, vrfOutput); err != nil {
			return err
		}
	}

	if err := view.storeIndex(tx, idx.withStatus(idx.status|statusValidated)); err != nil {
		return err
	}

	log.Debugf("Connected block %v (height %d, %d transactions, fees %v)",
		idx.hash, idx.height, len(block.Transactions), fees)
	return nil
}

// putEpochData records the randomness of an epoch once its last block is
// connected.  It chains the randomness of the previous epoch with the VRF
// output of the last block, or its id when the block carries no proof of
// stake.
func (b *BlockChain) putEpochData(tx chaindb.Tx, epoch uint64, blockHash chainhash.Hash,
	vrfOutput *chainhash.Hash) error {

	prev := b.params.InitialRandomness
	if epoch > 0 {
		data, err := dbFetchEpochData(tx, epoch-1)
		if err != nil {
			return err
		}
		if data != nil {
			prev = data.Randomness
		}
	}
	entropy := blockHash
	if vrfOutput != nil {
		entropy = *vrfOutput
	}
	var buf [2 * chainhash.HashSize]byte
	copy(buf[:chainhash.HashSize], prev[:])
	copy(buf[chainhash.HashSize:], entropy[:])
	data := &EpochData{Randomness: chainhash.HashH(buf[:])}
	return dbPutEpochData(tx, epoch, data)
}

// disconnectBlock disconnects the block of the passed index from the tip of the
// main chain, which it must be.
//
// This function MUST be called with a writable transaction.
func (b *BlockChain) disconnectBlock(view *chainView, tx chaindb.Tx, idx *BlockIndex,
	block *wire.MsgBlock) error {

	verifier := b.newVerifier(view, tx)
	if err := b.strategy.DisconnectBlock(verifier, block); err != nil {
		return err
	}
	prevHash := idx.PrevHash()
	verifier.SetBestBlock(prevHash)
	if err := txverifier.FlushDelta(tx, verifier.Consume()); err != nil {
		return err
	}

	if err := posaccounting.DeleteBlockDelta(tx, &idx.hash); err != nil {
		return err
	}
	if err := dbRemoveMainChainHash(tx, idx.height); err != nil {
		return err
	}
	if err := dbPutBestBlock(tx, &prevHash); err != nil {
		return err
	}
	if b.params.IsLastBlockInEpoch(idx.height) {
		epoch := b.params.EpochIndexFromHeight(idx.height)
		if err := dbRemoveEpochData(tx, epoch); err != nil {
			return err
		}
	}

	log.Debugf("Disconnected block %v (height %d)", idx.hash, idx.height)
	return nil
}

// sealEpochs seals the accounting of every epoch that is due once the main
// chain reaches the given height.  An epoch is due when it is more than
// SealedEpochDistanceFromTip epochs behind the epoch of the tip.
func (b *BlockChain) sealEpochs(tx chaindb.Tx, tipHeight int64) error {
	due := int64(b.params.EpochIndexFromHeight(tipHeight)) -
		b.params.SealedEpochDistanceFromTip - 1
	if due < 0 {
		return nil
	}
	lastSealed, ok, err := dbFetchLastSealedEpoch(tx)
	if err != nil {
		return err
	}
	next := int64(0)
	if ok {
		next = int64(lastSealed) + 1
	}
	for epoch := next; epoch <= due; epoch++ {
		if err := b.sealEpoch(tx, uint64(epoch)); err != nil {
			return err
		}
	}
	return nil
}

// sealEpoch merges the accounting deltas of the main chain blocks of an epoch
// into the sealed accounting state.  The merged block deltas are removed since
// blocks of a sealed epoch are never disconnected.
func (b *BlockChain) sealEpoch(tx chaindb.Tx, epoch uint64) error {
	start := b.params.EpochStartHeight(epoch)
	end := start + b.params.EpochLength

	merged := posaccounting.NewDelta()
	hashes := make([]chainhash.Hash, 0, b.params.EpochLength)
	for height := start; height < end; height++ {
		// The genesis block has no accounting delta.
		if height == 0 {
			continue
		}
		hash, err := dbFetchMainChainHash(tx, height)
		if err != nil {
			return err
		}
		if hash == nil {
			return AssertError(fmt.Sprintf("main chain has no block at "+
				"height %d of epoch %d being sealed", height, epoch))
		}
		delta, err := posaccounting.FetchBlockDelta(tx, hash)
		if err != nil {
			return err
		}
		if delta == nil {
			str := fmt.Sprintf("accounting delta of block %v at height %d "+
				"not found", hash, height)
			return contextError(ErrPoSAccountingDeltaNotFound, str)
		}
		if err := merged.Merge(delta); err != nil {
			str := fmt.Sprintf("unable to merge the accounting delta of "+
				"block %v into epoch %d: %v", hash, epoch, err)
			return contextError(ErrEpochSeal, str)
		}
		hashes = append(hashes, *hash)
	}

	if err := posaccounting.NewSealedView(tx).ApplyDelta(tx, merged); err != nil {
		str := fmt.Sprintf("unable to seal epoch %d: %v", epoch, err)
		return contextError(ErrEpochSeal, str)
	}
	for i := range hashes {
		if err := posaccounting.DeleteBlockDelta(tx, &hashes[i]); err != nil {
			return err
		}
	}
	if err := dbPutLastSealedEpoch(tx, epoch); err != nil {
		return err
	}

	log.Infof("Sealed accounting of epoch %d (heights %d-%d)", epoch, start,
		end-1)
	return nil
}
