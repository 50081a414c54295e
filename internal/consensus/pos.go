// Copyright (c) 2026 The stakechain developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package consensus

import (
	"fmt"
	"math/big"

	"github.com/decred/dcrd/blockchain/standalone/v2"
	"github.com/decred/dcrd/chaincfg/chainhash"
	"github.com/stakechain/chaind/chaincfg"
	"github.com/stakechain/chaind/internal/posaccounting"
	"github.com/stakechain/chaind/internal/signature"
	"github.com/stakechain/chaind/wire"
)

// KernelInput returns the single kernel input a proof-of-stake header must
// declare.
func KernelInput(header *wire.BlockHeader) (*wire.TxIn, error) {
	inputs := header.ConsensusData.KernelInputs
	switch len(inputs) {
	case 0:
		return nil, ruleError(ErrNoKernel, "proof-of-stake block has no "+
			"kernel input")
	case 1:
		return inputs[0], nil
	}
	str := fmt.Sprintf("proof-of-stake block has %d kernel inputs",
		len(inputs))
	return nil, ruleError(ErrMultipleKernels, str)
}

// RandomnessEpoch returns the epoch whose randomness seeds the stake kernels of
// the block at the given height.  It lies SealedEpochDistanceFromTip epochs
// behind the epoch of the last block of an epoch and one epoch further behind
// for the other blocks.  False is returned while no epoch is that far behind.
func RandomnessEpoch(params *chaincfg.Params, height int64) (uint64, bool) {
	epoch := int64(params.EpochIndexFromHeight(height))
	distance := params.SealedEpochDistanceFromTip
	if !params.IsLastBlockInEpoch(height) {
		distance++
	}
	if epoch < distance {
		return 0, false
	}
	return uint64(epoch - distance), true
}

// CheckPoSTargetBits ensures a proof-of-stake header declares the stake target
// of the net upgrade covering its height.
func CheckPoSTargetBits(params *chaincfg.Params, header *wire.BlockHeader, height int64) error {
	upgrade := params.ConsensusUpgradeAt(height)
	if upgrade == nil || upgrade.Kind != chaincfg.ConsensusPoS {
		str := fmt.Sprintf("height %d is not covered by a proof-of-stake "+
			"net upgrade", height)
		return ruleError(ErrConsensusTypeMismatch, str)
	}
	bits := header.ConsensusData.Bits
	if bits != upgrade.TargetBits {
		str := fmt.Sprintf("block stake target of %08x is not the "+
			"expected value of %08x", bits, upgrade.TargetBits)
		return ruleError(ErrUnexpectedDifficulty, str)
	}
	if standalone.CompactToBig(bits).Sign() <= 0 {
		str := fmt.Sprintf("stake target bits %08x describe a target "+
			"that is not positive", bits)
		return ruleError(ErrBitsToTarget, str)
	}
	return nil
}

// checkKernelOutput ensures the output spent by the kernel input is stakeable
// and belongs to the pool the header names.  Stake pool outputs identify their
// pool by their own outpoint.
func checkKernelOutput(kernelIn *wire.TxIn, kernel *wire.TxOut, poolID *chainhash.Hash) error {
	var kernelPool chainhash.Hash
	switch kernel.Type {
	case wire.OutputStakePool:
		kernelPool = posaccounting.PoolID(&kernelIn.PreviousOutPoint)
	case wire.OutputProduceBlockFromStake:
		kernelPool = kernel.PoolID
	default:
		str := fmt.Sprintf("kernel input spends a %v output", kernel.Type)
		return ruleError(ErrInvalidOutputPurposeInStakeKernel, str)
	}
	if kernelPool != *poolID {
		str := fmt.Sprintf("kernel output belongs to pool %v instead of "+
			"pool %v", kernelPool, poolID)
		return ruleError(ErrKernelPoolMismatch, str)
	}
	return nil
}

// CheckProofOfStake validates the stake kernel of a proof-of-stake header at
// the given height.  The kernel is the output spent by the header's kernel
// input, pools provides the sealed accounting state and seed is the
// randomness of the epoch.
//
// The VRF proof must verify against the pool's VRF key over the transcript of
// the epoch, seed and block timestamp, and its output interpreted as a number
// must not exceed the stake target scaled by the pool balance.  The VRF output
// is returned on success.
func CheckProofOfStake(params *chaincfg.Params, header *wire.BlockHeader, height int64,
	kernel *wire.TxOut, pools posaccounting.View, seed *chainhash.Hash) (chainhash.Hash, error) {

	var none chainhash.Hash
	if err := CheckPoSTargetBits(params, header, height); err != nil {
		return none, err
	}

	kernelIn, err := KernelInput(header)
	if err != nil {
		return none, err
	}
	cd := &header.ConsensusData
	if err := checkKernelOutput(kernelIn, kernel, &cd.StakePoolID); err != nil {
		return none, err
	}
	pool, err := pools.PoolData(cd.StakePoolID)
	if err != nil {
		return none, err
	}
	if pool == nil {
		str := fmt.Sprintf("stake pool %v is not sealed", cd.StakePoolID)
		return none, ruleError(ErrPoolBalanceNotFound, str)
	}
	balance, err := pools.PoolBalance(cd.StakePoolID)
	if err != nil {
		return none, err
	}
	if balance == 0 {
		str := fmt.Sprintf("stake pool %v has no sealed balance",
			cd.StakePoolID)
		return none, ruleError(ErrPoolBalanceNotFound, str)
	}

	epoch := params.EpochIndexFromHeight(height)
	transcript := signature.VRFTranscript(epoch, seed, uint64(header.Timestamp.Unix()))
	vrfOutput, err := signature.VRFVerify(pool.VRFPublicKey, &transcript, cd.VRFProof)
	if err != nil {
		str := fmt.Sprintf("vrf proof of pool %v is invalid: %v",
			cd.StakePoolID, err)
		return none, ruleError(ErrBadBlockProof, str)
	}

	target := standalone.CompactToBig(cd.Bits)
	weighted := new(big.Int).Mul(target, new(big.Int).SetUint64(uint64(balance)))
	hashPos := standalone.HashToBig(&vrfOutput)
	if hashPos.Cmp(weighted) > 0 {
		str := fmt.Sprintf("stake kernel hash %064x is higher than the "+
			"pool weighted target %064x", hashPos, weighted)
		return none, ruleError(ErrStakeKernelHashTooHigh, str)
	}
	return vrfOutput, nil
}
