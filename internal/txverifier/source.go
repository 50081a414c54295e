// Copyright (c) 2026 The stakechain developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package txverifier

import (
	"github.com/decred/dcrd/chaincfg/chainhash"
)

// SourceKind identifies where connected transactions come from.
type SourceKind uint8

// These constants define the transaction source kinds.
const (
	// SourceChain marks transactions of a block being connected.
	SourceChain SourceKind = iota

	// SourceMempool marks transactions admitted to the mempool.
	SourceMempool
)

// TransactionSource keys the undo data of connected transactions: one block,
// or the mempool as a whole.
type TransactionSource struct {
	Kind      SourceKind
	BlockHash chainhash.Hash
}

// ChainSource returns the source of the transactions of the given block.
func ChainSource(blockHash chainhash.Hash) TransactionSource {
	return TransactionSource{Kind: SourceChain, BlockHash: blockHash}
}

// MempoolSource returns the source of mempool transactions.
func MempoolSource() TransactionSource {
	return TransactionSource{Kind: SourceMempool}
}

// IsChain returns whether the source is a block.
func (s TransactionSource) IsChain() bool {
	return s.Kind == SourceChain
}

// String returns the source in human-readable form.
func (s TransactionSource) String() string {
	if s.Kind == SourceMempool {
		return "mempool"
	}
	return "block " + s.BlockHash.String()
}
