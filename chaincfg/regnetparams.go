// Copyright (c) 2018-2024 The Decred developers
// Copyright (c) 2026 The stakechain developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package chaincfg

import (
	"time"

	"github.com/decred/dcrd/chaincfg/chainhash"
	"github.com/stakechain/chaind/wire"
)

// RegNetParams returns the network parameters for the regression test network.
// This should not be confused with the public test network or the simulation
// test network.  The purpose of this network is primarily for unit tests: it
// ignores consensus entirely and pays the genesis premine to an output anyone
// can spend.
//
// Since this network is only intended for unit testing, its values are subject
// to change even if it would cause a hard fork.
func RegNetParams() *Params {
	genesisBlock := newGenesisBlock(time.Unix(1538524800, 0), // 2018-10-03
		wire.NewTransfer(coins(100_000_000), wire.AnyoneCanSpend()))

	return &Params{
		Name:                       "regnet",
		Net:                        RegNet,
		GenesisBlock:               genesisBlock,
		GenesisHash:                genesisBlock.BlockHash(),
		NetUpgrades:                []NetUpgrade{{Height: 0, Kind: ConsensusIgnore}},
		MaxBlockSize:               1024 * 1024,
		MaxFutureBlockTime:         2 * time.Hour,
		TargetTimePerBlock:         time.Second,
		PowRetargetInterval:        8,
		RetargetAdjustmentFactor:   4,
		PowNoRetargeting:           true,
		EpochLength:                10,
		SealedEpochDistanceFromTip: 2,
		InitialRandomness:          chainhash.HashH([]byte("regnet")),
		BlockRewardMaturity:        16,
		BaseSubsidy:                coins(50),
		SubsidyHalvingInterval:     150,
		TokenMinIssuanceFee:        coins(100),
		TokenMaxTickerLen:          5,
		TokenMaxDecimals:           18,
		TokenMaxURILen:             1024,
		AddressPrefix:              [2]byte{0x0e, 0x01},
	}
}
