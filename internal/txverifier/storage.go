// Copyright (c) 2026 The stakechain developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package txverifier

import (
	"time"

	"github.com/decred/dcrd/chaincfg/chainhash"
	"github.com/stakechain/chaind/internal/posaccounting"
	"github.com/stakechain/chaind/internal/utxo"
)

// Storage is the state a verifier reads from.  It is implemented by the
// database backed storage as well as by every verifier, which allows verifiers
// to be layered on top of each other.
type Storage interface {
	TokenView
	TxIndexView

	// UtxoView returns the UTXO set.
	UtxoView() utxo.View

	// AccountingView returns the proof-of-stake accounting state at the
	// tip.
	AccountingView() posaccounting.View

	// FetchUtxoUndo returns the UTXO undo data of the source or nil when
	// none exists.
	FetchUtxoUndo(source TransactionSource) (*utxo.BlockUndo, error)

	// FetchAccountingUndo returns the accounting undo data of the source
	// or nil when none exists.
	FetchAccountingUndo(source TransactionSource) (*posaccounting.BlockUndo, error)

	// BlockTimestamp returns the timestamp of the main chain block at the
	// given height.
	BlockTimestamp(height int64) (time.Time, error)
}

// Delta is the set of modifications a verifier accumulated, ready to be
// applied to the storage beneath it.  Nil map values mark removals.
type Delta struct {
	Utxos          *utxo.ConsumedCache
	Accounting     *posaccounting.Delta
	Tokens         map[chainhash.Hash]*TokenAuxData
	TokensByTx     map[chainhash.Hash]*chainhash.Hash
	TxIndex        map[chainhash.Hash]*TxMainChainIndex
	UtxoUndo       map[TransactionSource]*utxo.BlockUndo
	AccountingUndo map[TransactionSource]*posaccounting.BlockUndo
}
