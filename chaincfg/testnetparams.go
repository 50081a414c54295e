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

// TestNetParams returns the network parameters for the public test network.
func TestNetParams() *Params {
	// testNetPowLimit is the highest proof of work value a block can have
	// for the test network.  It is the value 2^232 - 1.
	testNetPowLimit := new(big.Int).Sub(new(big.Int).Lsh(bigOne, 232), bigOne)

	genesisBlock := newGenesisBlock(time.Unix(1767225600, 0), // 2026-01-01
		wire.NewTransfer(coins(400_000_000), addressDestination(hexDecode(
			"0b7c7e3a9d0e6f2c4b1a3d5e7f90812233445566"))))

	return &Params{
		Name:         "testnet",
		Net:          TestNet,
		GenesisBlock: genesisBlock,
		GenesisHash:  genesisBlock.BlockHash(),
		NetUpgrades: []NetUpgrade{{
			Height:       0,
			Kind:         ConsensusPoW,
			InitialBits:  0x1e00ffff,
			PowLimit:     testNetPowLimit,
			PowLimitBits: 0x1e00ffff,
		}, {
			Height:     1000,
			Kind:       ConsensusPoS,
			TargetBits: 0x2000ffff,
		}},
		MaxBlockSize:               1024 * 1024,
		MaxFutureBlockTime:         2 * time.Hour,
		TargetTimePerBlock:         2 * time.Minute,
		PowRetargetInterval:        144,
		RetargetAdjustmentFactor:   4,
		EpochLength:                100,
		SealedEpochDistanceFromTip: 2,
		InitialRandomness: chainhash.HashH([]byte("stakechain testnet " +
			"initial randomness")),
		BlockRewardMaturity:    500,
		BaseSubsidy:            coins(202),
		SubsidyHalvingInterval: 210_000,
		TokenMinIssuanceFee:    coins(100),
		TokenMaxTickerLen:      5,
		TokenMaxDecimals:       18,
		TokenMaxURILen:         1024,
		AddressPrefix:          [2]byte{0x0f, 0x21},
	}
}
