// Copyright (c) 2026 The stakechain developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package utxo

import (
	"bytes"
	"fmt"
	"io"
	"sort"

	"github.com/decred/dcrd/chaincfg/chainhash"
	dcrwire "github.com/decred/dcrd/wire"
	"github.com/stakechain/chaind/internal/chaindb"
)

// maxUndoEntries bounds the number of entries decoded for one undo record.
const maxUndoEntries = 1 << 20

// maxEntrySize bounds the size of one serialized entry.
const maxEntrySize = 1 << 16

// TxUndo holds the entries spent by a transaction in input order.
type TxUndo struct {
	Spent []*Entry
}

// BlockRewardUndo holds the entries spent by the stake kernel of a block.
type BlockRewardUndo struct {
	Spent []*Entry
}

// BlockUndo is the UTXO undo data of a block: the undo of its reward and of
// each of its transactions keyed by transaction id.
type BlockUndo struct {
	RewardUndo *BlockRewardUndo
	TxUndos    map[chainhash.Hash]*TxUndo
}

// NewBlockUndo returns empty block undo data.
func NewBlockUndo() *BlockUndo {
	return &BlockUndo{TxUndos: make(map[chainhash.Hash]*TxUndo)}
}

// IsEmpty returns whether the block undo holds no data.
func (u *BlockUndo) IsEmpty() bool {
	return u.RewardUndo == nil && len(u.TxUndos) == 0
}

// InsertTxUndo records the undo data of a transaction.
func (u *BlockUndo) InsertTxUndo(txHash chainhash.Hash, undo *TxUndo) error {
	if _, ok := u.TxUndos[txHash]; ok {
		str := fmt.Sprintf("undo data for transaction %v already exists",
			txHash)
		return ruleError(ErrTxUndoAlreadyExists, str)
	}
	u.TxUndos[txHash] = undo
	return nil
}

// TakeTxUndo removes and returns the undo data of a transaction.
func (u *BlockUndo) TakeTxUndo(txHash chainhash.Hash) (*TxUndo, error) {
	undo, ok := u.TxUndos[txHash]
	if !ok {
		str := fmt.Sprintf("no undo data for transaction %v", txHash)
		return nil, ruleError(ErrMissingTxUndo, str)
	}
	delete(u.TxUndos, txHash)
	return undo, nil
}

// TakeRewardUndo removes and returns the undo data of the block reward.
func (u *BlockUndo) TakeRewardUndo() *BlockRewardUndo {
	undo := u.RewardUndo
	u.RewardUndo = nil
	return undo
}

// Merge moves the undo data of other into u.  Transaction undo data present in
// both fails with ErrTxUndoAlreadyExists.
func (u *BlockUndo) Merge(other *BlockUndo) error {
	if other.RewardUndo != nil {
		if u.RewardUndo != nil {
			return ruleError(ErrTxUndoAlreadyExists, "block reward undo "+
				"data already exists")
		}
		u.RewardUndo = other.RewardUndo
	}
	for txHash, undo := range other.TxUndos {
		if err := u.InsertTxUndo(txHash, undo); err != nil {
			return err
		}
	}
	return nil
}

// -----------------------------------------------------------------------------
// The serialized format of block undo data is:
//
//	<has reward><reward entries><num txs>[<tx id><tx entries>...]
//
//	Field          Type        Size
//	has reward     uint8       1 byte
//	reward entries entries     only present when has reward is 1
//	num txs        VLQ         variable
//	tx id          hash        32 bytes
//	tx entries     entries     variable
//
// Entries are a VLQ count followed by each serialized entry as var bytes.
// Transactions are written in ascending id order.
// -----------------------------------------------------------------------------

func writeEntries(w io.Writer, entries []*Entry) error {
	err := dcrwire.WriteVarInt(w, dcrwire.ProtocolVersion, uint64(len(entries)))
	if err != nil {
		return err
	}
	for _, entry := range entries {
		b, err := entry.Serialize()
		if err != nil {
			return err
		}
		if err := dcrwire.WriteVarBytes(w, dcrwire.ProtocolVersion, b); err != nil {
			return err
		}
	}
	return nil
}

func readEntries(r io.Reader) ([]*Entry, error) {
	count, err := dcrwire.ReadVarInt(r, dcrwire.ProtocolVersion)
	if err != nil {
		return nil, err
	}
	if count > maxUndoEntries {
		return nil, fmt.Errorf("too many undo entries %d", count)
	}
	entries := make([]*Entry, 0, count)
	for i := uint64(0); i < count; i++ {
		b, err := dcrwire.ReadVarBytes(r, dcrwire.ProtocolVersion,
			maxEntrySize, "undo entry")
		if err != nil {
			return nil, err
		}
		entry, err := DeserializeEntry(b)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// Serialize returns the serialized block undo data.
func (u *BlockUndo) Serialize() ([]byte, error) {
	var buf bytes.Buffer
	if u.RewardUndo != nil {
		buf.WriteByte(1)
		if err := writeEntries(&buf, u.RewardUndo.Spent); err != nil {
			return nil, err
		}
	} else {
		buf.WriteByte(0)
	}

	txHashes := make([]chainhash.Hash, 0, len(u.TxUndos))
	for txHash := range u.TxUndos {
		txHashes = append(txHashes, txHash)
	}
	sort.Slice(txHashes, func(i, j int) bool {
		return bytes.Compare(txHashes[i][:], txHashes[j][:]) < 0
	})
	err := dcrwire.WriteVarInt(&buf, dcrwire.ProtocolVersion, uint64(len(txHashes)))
	if err != nil {
		return nil, err
	}
	for i := range txHashes {
		buf.Write(txHashes[i][:])
		if err := writeEntries(&buf, u.TxUndos[txHashes[i]].Spent); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}

// DeserializeBlockUndo decodes block undo data produced by Serialize.
func DeserializeBlockUndo(b []byte) (*BlockUndo, error) {
	undo, err := deserializeBlockUndo(bytes.NewReader(b))
	if err != nil {
		return nil, chaindb.DecodeError(fmt.Sprintf("malformed utxo block "+
			"undo: %v", err))
	}
	return undo, nil
}

func deserializeBlockUndo(r *bytes.Reader) (*BlockUndo, error) {
	undo := NewBlockUndo()
	hasReward, err := r.ReadByte()
	if err != nil {
		return nil, err
	}
	if hasReward == 1 {
		spent, err := readEntries(r)
		if err != nil {
			return nil, err
		}
		undo.RewardUndo = &BlockRewardUndo{Spent: spent}
	}

	numTxs, err := dcrwire.ReadVarInt(r, dcrwire.ProtocolVersion)
	if err != nil {
		return nil, err
	}
	if numTxs > maxUndoEntries {
		return nil, fmt.Errorf("too many transaction undos %d", numTxs)
	}
	for i := uint64(0); i < numTxs; i++ {
		var txHash chainhash.Hash
		if _, err := io.ReadFull(r, txHash[:]); err != nil {
			return nil, err
		}
		spent, err := readEntries(r)
		if err != nil {
			return nil, err
		}
		undo.TxUndos[txHash] = &TxUndo{Spent: spent}
	}
	if r.Len() != 0 {
		return nil, fmt.Errorf("%d trailing bytes", r.Len())
	}
	return undo, nil
}
