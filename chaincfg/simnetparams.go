// Copyright (c) 2014-2016 The btcsuite developers
// Copyright (c) 2015-2024 The Decred developers
// Copyright (c) 2026 The stakechain developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package chaincfg

import (
	"math/big"
	"time"

	"github.com/decred/dcrd/chaincfg/chainhash"
	"github.com/stakechain/chaind/wire"
)

// SimNetParams returns the network parameters for the simulation test network.
// This network is similar to the normal test network except it is intended for
// private use within a group of individuals doing simulation testing and full
// integration tests.  Its proof of work is trivial and never retargets.
//
// Since this network is only intended for simulation testing, its values are
// subject to change even if it would cause a hard fork.
func SimNetParams() *Params {
	// simNetPowLimit is the highest proof of work value a block can have
	// for the simulation test network.  It is the value 2^255 - 1.
	simNetPowLimit := new(big.Int).Sub(new(big.Int).Lsh(bigOne, 255), bigOne)

	genesisBlock := newGenesisBlock(time.Unix(1401292357, 0), // 2014-05-28
		wire.NewTransfer(coins(100_000_000), wire.AnyoneCanSpend()))

	return &Params{
		Name:         "simnet",
		Net:          SimNet,
		GenesisBlock: genesisBlock,
		GenesisHash:  genesisBlock.BlockHash(),
		NetUpgrades: []NetUpgrade{{
			Height: 0,
			Kind:   ConsensusIgnore,
		}, {
			Height:       1,
			Kind:         ConsensusPoW,
			InitialBits:  0x207fffff,
			PowLimit:     simNetPowLimit,
			PowLimitBits: 0x207fffff,
		}},
		MaxBlockSize:               1024 * 1024,
		MaxFutureBlockTime:         2 * time.Hour,
		TargetTimePerBlock:         time.Second,
		PowRetargetInterval:        8,
		RetargetAdjustmentFactor:   4,
		PowNoRetargeting:           true,
		EpochLength:                20,
		SealedEpochDistanceFromTip: 2,
		InitialRandomness:          chainhash.HashH([]byte("simnet")),
		BlockRewardMaturity:        16,
		BaseSubsidy:                coins(50),
		SubsidyHalvingInterval:     210_000,
		TokenMinIssuanceFee:        coins(100),
		TokenMaxTickerLen:          5,
		TokenMaxDecimals:           18,
		TokenMaxURILen:             1024,
		AddressPrefix:              [2]byte{0x0e, 0x31},
	}
}
