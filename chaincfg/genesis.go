// Copyright (c) 2014-2016 The btcsuite developers
// Copyright (c) 2015-2024 The Decred developers
// Copyright (c) 2026 The stakechain developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package chaincfg

import (
	"encoding/hex"
	"time"

	"github.com/stakechain/chaind/internal/amount"
	"github.com/stakechain/chaind/wire"
)

// hexDecode decodes the passed hex string and returns the resulting bytes.  It
// panics if an error occurs.  This is only used in the tests as a helper since
// the only way it can fail is if there is an error in the test source code.
func hexDecode(hexStr string) []byte {
	b, err := hex.DecodeString(hexStr)
	if err != nil {
		panic("invalid hex in source file: " + hexStr)
	}
	return b
}

// newGenesisBlock returns a genesis block paying the given premine outputs.
// The genesis block carries no proof and has no parent.
func newGenesisBlock(timestamp time.Time, premine ...*wire.TxOut) *wire.MsgBlock {
	block := &wire.MsgBlock{
		Header: wire.BlockHeader{
			Version:       1,
			Timestamp:     timestamp,
			ConsensusData: wire.ConsensusData{Type: wire.ConsensusNone},
		},
		Reward:       wire.BlockReward{Outputs: premine},
		Transactions: []*wire.MsgTx{},
	}
	block.Header.MerkleRoot = block.CalcMerkleRoot()
	return block
}

// coins converts a whole number of coins to an amount.
func coins(n uint64) amount.Amount {
	return amount.Amount(n * amount.AtomsPerCoin)
}

// addressDestination returns a destination paying the given public key hash.
func addressDestination(pubKeyHash []byte) wire.Destination {
	return wire.Destination{Type: wire.DestAddress, Data: pubKeyHash}
}
