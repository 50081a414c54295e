// Copyright (c) 2026 The stakechain developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package txverifier

import (
	"fmt"

	"github.com/decred/dcrd/chaincfg/chainhash"
	"github.com/stakechain/chaind/internal/amount"
	"github.com/stakechain/chaind/internal/consensus"
	"github.com/stakechain/chaind/internal/posaccounting"
	"github.com/stakechain/chaind/wire"
)

// kernelInputs returns the inputs the block reward of the header spends.
func kernelInputs(header *wire.BlockHeader) ([]*wire.TxIn, error) {
	if header.ConsensusData.Type != wire.ConsensusPoS {
		return nil, nil
	}
	in, err := consensus.KernelInput(header)
	if err != nil {
		return nil, err
	}
	return []*wire.TxIn{in}, nil
}

// checkRewardOutputs ensures the reward carries no tokens and only outputs a
// block reward may create.
func checkRewardOutputs(blockHash *chainhash.Hash, header *wire.BlockHeader,
	reward *wire.BlockReward) error {

	pos := header.ConsensusData.Type == wire.ConsensusPoS
	for i, out := range reward.Outputs {
		if out.Value.Type != wire.ValueCoin {
			str := fmt.Sprintf("output %d of the reward of block %v "+
				"carries tokens", i, blockHash)
			return ruleError(ErrTokensInBlockReward, str)
		}
		switch out.Type {
		case wire.OutputTransfer, wire.OutputLockThenTransfer, wire.OutputBurn:
			if !pos {
				continue
			}
		case wire.OutputProduceBlockFromStake:
			if pos {
				continue
			}
		}
		str := fmt.Sprintf("output %d of the reward of block %v is a %v "+
			"output", i, blockHash, out.Type)
		return ruleError(ErrInvalidOutputTypeInReward, str)
	}
	return nil
}

// checkStakeReward validates the kernel and the reward of a proof-of-stake
// block and returns the pool that produced it.  The reward must carry the
// pool forward to the staker with a single ProduceBlockFromStake output whose
// amount is zero or the pool balance.
func (v *TransactionVerifier) checkStakeReward(blockHash *chainhash.Hash, header *wire.BlockHeader,
	reward *wire.BlockReward, kernelIn *wire.TxIn) (chainhash.Hash, error) {

	op := &kernelIn.PreviousOutPoint
	entry, err := v.utxos.FetchEntry(*op)
	if err != nil {
		return chainhash.Hash{}, err
	}
	if entry == nil {
		str := fmt.Sprintf("kernel %v of block %v is missing or spent", op,
			blockHash)
		return chainhash.Hash{}, ruleError(ErrMissingOutputOrSpent, str)
	}
	kernel := entry.Output
	poolID, ok := stakePoolOf(op, kernel)
	if !ok {
		str := fmt.Sprintf("kernel %v of block %v spends a %v output", op,
			blockHash, kernel.Type)
		return chainhash.Hash{}, ruleError(ErrInvalidInputPurpose, str)
	}
	if poolID != header.ConsensusData.StakePoolID {
		str := fmt.Sprintf("kernel of block %v belongs to pool %v instead "+
			"of pool %v", blockHash, poolID, header.ConsensusData.StakePoolID)
		return chainhash.Hash{}, ruleError(ErrStakePoolDataMismatch, str)
	}
	staker := &kernel.Destination
	if kernel.Type == wire.OutputStakePool {
		staker = &kernel.Pool.Staker
	}

	switch len(reward.Outputs) {
	case 0:
		str := fmt.Sprintf("reward of block %v has no outputs", blockHash)
		return chainhash.Hash{}, ruleError(ErrNoBlockRewardOutputs, str)
	case 1:
	default:
		str := fmt.Sprintf("reward of block %v has %d outputs", blockHash,
			len(reward.Outputs))
		return chainhash.Hash{}, ruleError(ErrMultipleBlockRewardOutputs, str)
	}
	out := reward.Outputs[0]
	if out.PoolID != poolID || !out.Destination.Equal(staker) {
		str := fmt.Sprintf("reward of block %v does not carry pool %v "+
			"forward to its staker", blockHash, poolID)
		return chainhash.Hash{}, ruleError(ErrStakePoolDataMismatch, str)
	}

	data, err := v.accounting.PoolData(poolID)
	if err != nil {
		return chainhash.Hash{}, err
	}
	if data == nil {
		str := fmt.Sprintf("pool %v of block %v does not exist", poolID,
			blockHash)
		return chainhash.Hash{}, ruleError(ErrPoolDataNotFound, str)
	}

	// The pool value is tracked by the accounting state.  The output may
	// only restate it or carry nothing.
	balance, err := v.accounting.PoolBalance(poolID)
	if err != nil {
		return chainhash.Hash{}, err
	}
	if carried := out.Value.Amount; carried != 0 && carried != balance {
		str := fmt.Sprintf("reward of block %v carries %v instead of the "+
			"balance %v of pool %v", blockHash, carried, balance, poolID)
		return chainhash.Hash{}, ruleError(ErrInvalidStakeRewardAmount, str)
	}
	return poolID, nil
}

// ConnectBlockReward validates the reward of the block at the given height and
// applies it.  The total fees of the block transactions must be passed, so the
// transactions are connected first.
//
// Proof-of-stake rewards spend the stake kernel, carry the pool forward and
// credit the subsidy and fees to the pool balance.  Other rewards may pay out
// at most the subsidy and fees.
func (v *TransactionVerifier) ConnectBlockReward(blockHash chainhash.Hash, header *wire.BlockHeader,
	reward *wire.BlockReward, height int64, fees Fee) error {

	source := ChainSource(blockHash)
	if err := checkRewardOutputs(&blockHash, header, reward); err != nil {
		return err
	}
	kernels, err := kernelInputs(header)
	if err != nil {
		return err
	}
	subsidy := NewSubsidy(v.params.BlockSubsidyAtHeight(height))

	var poolID chainhash.Hash
	var credit amount.Amount
	if len(kernels) != 0 {
		poolID, err = v.checkStakeReward(&blockHash, header, reward, kernels[0])
		if err != nil {
			return err
		}
		if credit, err = rewardCeiling(0, subsidy, fees); err != nil {
			return err
		}
	} else {
		ceiling, err := rewardCeiling(0, subsidy, fees)
		if err != nil {
			return err
		}
		outputs, err := outputTotals(reward.Outputs)
		if err != nil {
			return err
		}
		if paid := outputs[assetID{}]; paid > ceiling {
			str := fmt.Sprintf("reward of block %v pays %v which exceeds "+
				"the subsidy %v plus fees %v", blockHash, paid, subsidy, fees)
			return ruleError(ErrAttemptToPrintMoney, str)
		}
	}

	if v.txIndex != nil {
		for _, in := range kernels {
			if in.PreviousOutPoint.Source != wire.SourceTransaction {
				continue
			}
			if err := v.txIndex.checkSpend(&in.PreviousOutPoint); err != nil {
				return err
			}
		}
	}
	utxoRecord, err := v.utxoUndo.getOrCreate(source)
	if err != nil {
		return err
	}
	if utxoRecord.RewardUndo != nil {
		v.utxoUndo.removeIfEmpty(source)
		return AssertError(fmt.Sprintf("reward of block %v is already "+
			"connected", blockHash))
	}
	var accRecord *posaccounting.BlockUndo
	if len(kernels) != 0 {
		if accRecord, err = v.accountingUndo.getOrCreate(source); err != nil {
			v.utxoUndo.removeIfEmpty(source)
			return err
		}
		if accRecord.RewardUndo != nil {
			v.utxoUndo.removeIfEmpty(source)
			v.accountingUndo.removeIfEmpty(source)
			return AssertError(fmt.Sprintf("reward accounting of block %v "+
				"is already connected", blockHash))
		}
	}

	rewardUndo, err := v.utxos.ConnectBlockReward(&blockHash, reward, kernels, height)
	if err != nil {
		v.utxoUndo.removeIfEmpty(source)
		v.accountingUndo.removeIfEmpty(source)
		return err
	}
	utxoRecord.RewardUndo = rewardUndo

	if v.txIndex != nil {
		for _, in := range kernels {
			if in.PreviousOutPoint.Source != wire.SourceTransaction {
				continue
			}
			if err := v.txIndex.spend(&in.PreviousOutPoint); err != nil {
				return err
			}
		}
	}

	if len(kernels) != 0 {
		undo, err := v.accounting.IncreasePoolBalance(poolID, credit)
		if err != nil {
			return err
		}
		accRecord.RewardUndo = &posaccounting.TxUndo{
			Undos: []*posaccounting.Undo{undo},
		}
		log.Debugf("Credited %v to pool %v for block %v", credit, poolID,
			blockHash)
	}
	return nil
}

// DisconnectBlockReward reverses ConnectBlockReward.
func (v *TransactionVerifier) DisconnectBlockReward(blockHash chainhash.Hash, header *wire.BlockHeader,
	reward *wire.BlockReward) error {

	source := ChainSource(blockHash)
	kernels, err := kernelInputs(header)
	if err != nil {
		return err
	}
	utxoRecord, err := v.utxoUndo.get(source)
	if err != nil {
		return err
	}
	if utxoRecord == nil || utxoRecord.RewardUndo == nil {
		str := fmt.Sprintf("no reward undo data for block %v", blockHash)
		return ruleError(ErrMissingBlockUndo, str)
	}
	var accRecord *posaccounting.BlockUndo
	if len(kernels) != 0 {
		accRecord, err = v.accountingUndo.get(source)
		if err != nil {
			return err
		}
		if accRecord == nil || accRecord.RewardUndo == nil {
			str := fmt.Sprintf("no reward accounting undo data for "+
				"block %v", blockHash)
			return ruleError(ErrMissingBlockUndo, str)
		}
	}

	err = v.utxos.DisconnectBlockReward(&blockHash, reward, kernels,
		utxoRecord.RewardUndo)
	if err != nil {
		return err
	}
	utxoRecord.TakeRewardUndo()
	v.utxoUndo.removeIfEmpty(source)

	if v.txIndex != nil {
		for _, in := range kernels {
			if in.PreviousOutPoint.Source != wire.SourceTransaction {
				continue
			}
			if err := v.txIndex.unspend(&in.PreviousOutPoint); err != nil {
				return err
			}
		}
	}

	if accRecord != nil {
		cache := posaccounting.NewCache(v.accounting)
		if err := accRecord.TakeRewardUndo().Apply(cache); err != nil {
			return err
		}
		if err := v.accounting.MergeDelta(cache.Consume()); err != nil {
			return err
		}
		v.accountingUndo.removeIfEmpty(source)
	}
	return nil
}
