// Copyright (c) 2013-2016 The btcsuite developers
// Copyright (c) 2015-2024 The Decred developers
// Copyright (c) 2026 The stakechain developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package consensus

import (
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/decred/dcrd/blockchain/standalone/v2"
	"github.com/decred/dcrd/math/uint256"
	"github.com/stakechain/chaind/chaincfg"
	"github.com/stakechain/chaind/wire"
)

// HeaderChain provides the headers of the branch a block is being connected
// to.
type HeaderChain interface {
	// HeaderAt returns the header at the given height on the branch that
	// ends with the parent of the block being checked.
	HeaderAt(height int64) (*wire.BlockHeader, error)
}

// standaloneToConsensusError converts the passed standalone.RuleError to a
// consensus RuleError with the equivalent error kind.  Other errors are
// passed through unmodified.
func standaloneToConsensusError(err error) error {
	switch {
	case errors.Is(err, standalone.ErrUnexpectedDifficulty):
		return ruleError(ErrUnexpectedDifficulty, err.Error())
	case errors.Is(err, standalone.ErrHighHash):
		return ruleError(ErrHighHash, err.Error())
	}
	return err
}

// requiredType returns the header consensus data kind a net upgrade demands.
func requiredType(kind chaincfg.ConsensusKind) wire.ConsensusType {
	switch kind {
	case chaincfg.ConsensusPoW:
		return wire.ConsensusPoW
	case chaincfg.ConsensusPoS:
		return wire.ConsensusPoS
	}
	return wire.ConsensusNone
}

// CheckConsensusType ensures the consensus data carried by a header at the
// given height is the kind the net upgrade schedule requires there.
func CheckConsensusType(params *chaincfg.Params, header *wire.BlockHeader, height int64) error {
	upgrade := params.ConsensusUpgradeAt(height)
	if upgrade == nil {
		str := fmt.Sprintf("no net upgrade covers height %d", height)
		return ruleError(ErrConsensusTypeMismatch, str)
	}
	want := requiredType(upgrade.Kind)
	if got := header.ConsensusData.Type; got != want {
		str := fmt.Sprintf("block at height %d carries %v consensus data "+
			"while %v is required", height, got, upgrade.Kind)
		return ruleError(ErrConsensusTypeMismatch, str)
	}
	return nil
}

// BlockProof returns the chain trust a block with the given header adds to
// its chain.  Blocks with difficulty bits contribute 2^256 / (target+1) and
// blocks without any proof contribute one.
func BlockProof(header *wire.BlockHeader) uint256.Uint256 {
	var proof uint256.Uint256
	cd := &header.ConsensusData
	if cd.Type == wire.ConsensusNone {
		proof.SetUint64(1)
		return proof
	}
	work := standalone.CalcWork(cd.Bits)
	if work.Sign() <= 0 {
		proof.SetUint64(1)
		return proof
	}
	proof.SetBig(work)
	return proof
}

// CheckProofOfWork ensures the difficulty bits of the header are in range per
// the provided limit and that its proof-of-work hash is no higher than the
// target the bits describe.
func CheckProofOfWork(header *wire.BlockHeader, powLimit *big.Int) error {
	powHash := header.PowHash()
	err := standalone.CheckProofOfWork(&powHash, header.ConsensusData.Bits, powLimit)
	return standaloneToConsensusError(err)
}

// CalcNextRequiredBits returns the difficulty bits a proof-of-work block at the
// given height must declare.
//
// The first block of a proof-of-work segment declares the initial difficulty
// of the segment.  Every PowRetargetInterval blocks after that, the target is
// scaled by the ratio of the time the previous interval took to the time it
// should have taken, limited to RetargetAdjustmentFactor in either direction
// and capped at the segment limit.  All other blocks repeat the bits of their
// parent.
func CalcNextRequiredBits(params *chaincfg.Params, height int64, chain HeaderChain) (uint32, error) {
	upgrade := params.ConsensusUpgradeAt(height)
	if upgrade == nil || upgrade.Kind != chaincfg.ConsensusPoW {
		str := fmt.Sprintf("height %d is not covered by a proof-of-work "+
			"net upgrade", height)
		return 0, ruleError(ErrConsensusTypeMismatch, str)
	}
	if params.PowNoRetargeting || height == upgrade.Height {
		return upgrade.InitialBits, nil
	}

	prev, err := chain.HeaderAt(height - 1)
	if err != nil {
		return 0, err
	}
	interval := params.PowRetargetInterval
	if interval < 2 || (height-upgrade.Height)%interval != 0 {
		return prev.ConsensusData.Bits, nil
	}

	first, err := chain.HeaderAt(height - interval)
	if err != nil {
		return 0, err
	}

	// Limit the amount of adjustment that can occur to the previous
	// difficulty.
	targetTimespan := int64(params.TargetTimePerBlock/time.Second) * interval
	adjustmentFactor := params.RetargetAdjustmentFactor
	minTimespan := targetTimespan / adjustmentFactor
	maxTimespan := targetTimespan * adjustmentFactor
	actualTimespan := prev.Timestamp.Unix() - first.Timestamp.Unix()
	switch {
	case actualTimespan < minTimespan:
		actualTimespan = minTimespan
	case actualTimespan > maxTimespan:
		actualTimespan = maxTimespan
	}

	// newTarget = oldTarget * actualTimespan / targetTimespan
	oldTarget := standalone.CompactToBig(prev.ConsensusData.Bits)
	newTarget := new(big.Int).Mul(oldTarget, big.NewInt(actualTimespan))
	newTarget.Div(newTarget, big.NewInt(targetTimespan))
	if newTarget.Cmp(upgrade.PowLimit) > 0 {
		newTarget.Set(upgrade.PowLimit)
	}
	newBits := standalone.BigToCompact(newTarget)

	log.Debugf("Difficulty retarget at block height %d", height)
	log.Debugf("Old target %08x (%064x)", prev.ConsensusData.Bits, oldTarget)
	log.Debugf("New target %08x (%064x)", newBits, standalone.CompactToBig(newBits))
	log.Debugf("Actual timespan %v, target timespan %v",
		time.Duration(actualTimespan)*time.Second,
		time.Duration(targetTimespan)*time.Second)

	return newBits, nil
}

// CheckPoWHeader ensures a proof-of-work header declares the difficulty the
// chain requires at its height and that its hash satisfies that difficulty.
func CheckPoWHeader(params *chaincfg.Params, header *wire.BlockHeader, height int64,
	chain HeaderChain) error {

	want, err := CalcNextRequiredBits(params, height, chain)
	if err != nil {
		return err
	}
	if got := header.ConsensusData.Bits; got != want {
		str := fmt.Sprintf("block difficulty of %08x is not the expected "+
			"value of %08x", got, want)
		return ruleError(ErrUnexpectedDifficulty, str)
	}
	upgrade := params.ConsensusUpgradeAt(height)
	return CheckProofOfWork(header, upgrade.PowLimit)
}
