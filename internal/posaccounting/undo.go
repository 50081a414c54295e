// Copyright (c) 2026 The stakechain developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package posaccounting

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"sort"

	"github.com/decred/dcrd/chaincfg/chainhash"
	dcrwire "github.com/decred/dcrd/wire"
	"github.com/stakechain/chaind/internal/amount"
	"github.com/stakechain/chaind/internal/chaindb"
)

// UndoKind identifies the accounting operation an Undo reverses.
type UndoKind uint8

// These constants define the undo kinds.
const (
	UndoCreatePool UndoKind = iota + 1
	UndoDecommissionPool
	UndoIncreasePoolBalance
	UndoCreateDelegationID
	UndoDelegateStaking
)

// Undo is the recorded inverse of one accounting operation.
type Undo struct {
	Kind           UndoKind
	PoolID         chainhash.Hash
	DelegationID   chainhash.Hash
	Amount         amount.Amount
	PoolData       *PoolData
	DelegationData *DelegationData
}

// TxUndo is the accounting undo data of one transaction or block reward in
// the order the operations were applied.
type TxUndo struct {
	Undos []*Undo
}

// Apply reverses every operation of the undo data, last first.
func (u *TxUndo) Apply(c *Cache) error {
	for i := len(u.Undos) - 1; i >= 0; i-- {
		if err := c.ApplyUndo(u.Undos[i]); err != nil {
			return err
		}
	}
	return nil
}

// BlockUndo is the accounting undo data of a block.
type BlockUndo struct {
	RewardUndo *TxUndo
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
		str := fmt.Sprintf("accounting undo data for transaction %v "+
			"already exists", txHash)
		return ruleError(ErrTxUndoAlreadyExists, str)
	}
	u.TxUndos[txHash] = undo
	return nil
}

// TakeTxUndo removes and returns the undo data of a transaction.
func (u *BlockUndo) TakeTxUndo(txHash chainhash.Hash) (*TxUndo, error) {
	undo, ok := u.TxUndos[txHash]
	if !ok {
		str := fmt.Sprintf("no accounting undo data for transaction %v",
			txHash)
		return nil, ruleError(ErrMissingTxUndo, str)
	}
	delete(u.TxUndos, txHash)
	return undo, nil
}

// TakeRewardUndo removes and returns the undo data of the block reward.
func (u *BlockUndo) TakeRewardUndo() *TxUndo {
	undo := u.RewardUndo
	u.RewardUndo = nil
	return undo
}

// Merge moves the undo data of other into u.
func (u *BlockUndo) Merge(other *BlockUndo) error {
	if other.RewardUndo != nil {
		if u.RewardUndo != nil {
			return ruleError(ErrTxUndoAlreadyExists, "block reward "+
				"accounting undo data already exists")
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

const maxUndos = 1 << 20

// writeOptional writes a presence byte followed by the serialized item when
// present.
func writeOptional(w *bytes.Buffer, present bool, serialize func() ([]byte, error)) error {
	if !present {
		return w.WriteByte(0)
	}
	b, err := serialize()
	if err != nil {
		return err
	}
	w.WriteByte(1)
	return dcrwire.WriteVarBytes(w, dcrwire.ProtocolVersion, b)
}

// readOptional reads an item written by writeOptional.  It returns nil when
// the item is absent.
func readOptional(r io.Reader) ([]byte, error) {
	var flag [1]byte
	if _, err := io.ReadFull(r, flag[:]); err != nil {
		return nil, err
	}
	if flag[0] == 0 {
		return nil, nil
	}
	return dcrwire.ReadVarBytes(r, dcrwire.ProtocolVersion, 1<<16, "item")
}

func writeUndo(w *bytes.Buffer, u *Undo) error {
	w.WriteByte(byte(u.Kind))
	w.Write(u.PoolID[:])
	w.Write(u.DelegationID[:])
	w.Write(chaindb.Uint64Key(uint64(u.Amount)))
	if err := writeOptional(w, u.PoolData != nil, func() ([]byte, error) {
		return u.PoolData.Serialize()
	}); err != nil {
		return err
	}
	return writeOptional(w, u.DelegationData != nil, func() ([]byte, error) {
		return u.DelegationData.Serialize()
	})
}

func readUndo(r io.Reader) (*Undo, error) {
	var fixed [1 + 2*chainhash.HashSize + 8]byte
	if _, err := io.ReadFull(r, fixed[:]); err != nil {
		return nil, err
	}
	u := &Undo{Kind: UndoKind(fixed[0])}
	if u.Kind < UndoCreatePool || u.Kind > UndoDelegateStaking {
		return nil, fmt.Errorf("unknown undo kind %d", u.Kind)
	}
	copy(u.PoolID[:], fixed[1:])
	copy(u.DelegationID[:], fixed[1+chainhash.HashSize:])
	u.Amount = amount.Amount(binary.BigEndian.Uint64(fixed[1+2*chainhash.HashSize:]))

	b, err := readOptional(r)
	if err != nil {
		return nil, err
	}
	if b != nil {
		if u.PoolData, err = DeserializePoolData(b); err != nil {
			return nil, err
		}
	}
	b, err = readOptional(r)
	if err != nil {
		return nil, err
	}
	if b != nil {
		if u.DelegationData, err = DeserializeDelegationData(b); err != nil {
			return nil, err
		}
	}
	return u, nil
}

func writeTxUndo(w *bytes.Buffer, u *TxUndo) error {
	err := dcrwire.WriteVarInt(w, dcrwire.ProtocolVersion, uint64(len(u.Undos)))
	if err != nil {
		return err
	}
	for _, undo := range u.Undos {
		if err := writeUndo(w, undo); err != nil {
			return err
		}
	}
	return nil
}

func readTxUndo(r io.Reader) (*TxUndo, error) {
	count, err := dcrwire.ReadVarInt(r, dcrwire.ProtocolVersion)
	if err != nil {
		return nil, err
	}
	if count > maxUndos {
		return nil, fmt.Errorf("too many undo operations %d", count)
	}
	u := &TxUndo{Undos: make([]*Undo, 0, count)}
	for i := uint64(0); i < count; i++ {
		undo, err := readUndo(r)
		if err != nil {
			return nil, err
		}
		u.Undos = append(u.Undos, undo)
	}
	return u, nil
}

// Serialize returns the serialized block undo data.  Transactions are written
// in ascending id order.
func (u *BlockUndo) Serialize() ([]byte, error) {
	var buf bytes.Buffer
	if err := writeOptional(&buf, u.RewardUndo != nil, func() ([]byte, error) {
		var b bytes.Buffer
		err := writeTxUndo(&b, u.RewardUndo)
		return b.Bytes(), err
	}); err != nil {
		return nil, err
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
		if err := writeTxUndo(&buf, u.TxUndos[txHashes[i]]); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}

// DeserializeBlockUndo decodes block undo data produced by Serialize.
func DeserializeBlockUndo(b []byte) (*BlockUndo, error) {
	r := bytes.NewReader(b)
	undo, err := deserializeBlockUndo(r)
	if err == nil && r.Len() != 0 {
		err = fmt.Errorf("%d trailing bytes", r.Len())
	}
	if err != nil {
		return nil, chaindb.DecodeError(fmt.Sprintf("malformed accounting "+
			"block undo: %v", err))
	}
	return undo, nil
}

func deserializeBlockUndo(r *bytes.Reader) (*BlockUndo, error) {
	undo := NewBlockUndo()
	rewardBytes, err := readOptional(r)
	if err != nil {
		return nil, err
	}
	if rewardBytes != nil {
		if undo.RewardUndo, err = readTxUndo(bytes.NewReader(rewardBytes)); err != nil {
			return nil, err
		}
	}
	numTxs, err := dcrwire.ReadVarInt(r, dcrwire.ProtocolVersion)
	if err != nil {
		return nil, err
	}
	if numTxs > maxUndos {
		return nil, fmt.Errorf("too many transaction undos %d", numTxs)
	}
	for i := uint64(0); i < numTxs; i++ {
		var txHash chainhash.Hash
		if _, err := io.ReadFull(r, txHash[:]); err != nil {
			return nil, err
		}
		txUndo, err := readTxUndo(r)
		if err != nil {
			return nil, err
		}
		undo.TxUndos[txHash] = txUndo
	}
	return undo, nil
}
