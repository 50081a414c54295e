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

// MainNetParams returns the network parameters for the main network.
func MainNetParams() *Params {
	// mainPowLimit is the highest proof of work value a block can have for
	// the main network.  It is the value 2^224 - 1.
	mainPowLimit := new(big.Int).Sub(new(big.Int).Lsh(bigOne, 224), bigOne)

	genesisBlock := newGenesisBlock(time.Unix(1767225600, 0), // 2026-01-01
		wire.NewTransfer(coins(400_000_000), addressDestination(hexDecode(
			"5c3f0e8e2d9b1a4c7f6e0d3b2a19887766554433"))))

	return &Params{
		Name:         "mainnet",
		Net:          MainNet,
		GenesisBlock: genesisBlock,
		GenesisHash:  genesisBlock.BlockHash(),
		NetUpgrades: []NetUpgrade{{
			Height:       0,
			Kind:         ConsensusPoW,
			InitialBits:  0x1d00ffff,
			PowLimit:     mainPowLimit,
			PowLimitBits: 0x1d00ffff,
		}, {
			Height:     100_000,
			Kind:       ConsensusPoS,
			TargetBits: 0x1f00ffff,
		}},
		MaxBlockSize:               1024 * 1024,
		MaxFutureBlockTime:         2 * time.Hour,
		TargetTimePerBlock:         2 * time.Minute,
		PowRetargetInterval:        2016,
		RetargetAdjustmentFactor:   4,
		EpochLength:                5040,
		SealedEpochDistanceFromTip: 2,
		InitialRandomness: chainhash.HashH([]byte("stakechain mainnet " +
			"initial randomness")),
		BlockRewardMaturity:    2000,
		BaseSubsidy:            coins(202),
		SubsidyHalvingInterval: 1_051_200,
		TokenMinIssuanceFee:    coins(100),
		TokenMaxTickerLen:      5,
		TokenMaxDecimals:       18,
		TokenMaxURILen:         1024,
		AddressPrefix:          [2]byte{0x0e, 0x91},
	}
}
