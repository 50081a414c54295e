// Copyright (c) 2013-2016 The btcsuite developers
// Copyright (c) 2015-2024 The Decred developers
// Copyright (c) 2026 The stakechain developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

import (
	"bytes"
	"io"

	"github.com/decred/dcrd/blockchain/standalone/v2"
	"github.com/decred/dcrd/chaincfg/chainhash"
)

const (
	// maxTxPerBlock is the maximum number of transactions that could
	// possibly fit into a block.
	maxTxPerBlock = (MaxBlockPayload / minTxPayload) + 1

	// minTxPayload is the minimum payload size for a transaction.
	minTxPayload = 2 + 4 + 1 + 1

	// maxRewardOutputs is the maximum number of outputs a block reward may
	// carry.
	maxRewardOutputs = 1024
)

// TxLoc holds locator data for the offset and length of where a transaction is
// located within a serialized block.
type TxLoc struct {
	TxStart int
	TxLen   int
}

// BlockReward is the payout of a block.  Proof-of-stake blocks spend the stake
// kernel as the reward inputs.
type BlockReward struct {
	Outputs []*TxOut
}

// Hash returns the hash committing to the reward outputs.
func (r *BlockReward) Hash() chainhash.Hash {
	var buf bytes.Buffer
	_ = r.serialize(&buf)
	return chainhash.HashH(buf.Bytes())
}

func (r *BlockReward) serialize(w io.Writer) error {
	if err := writeCount(w, len(r.Outputs)); err != nil {
		return err
	}
	for _, to := range r.Outputs {
		if err := to.Serialize(w); err != nil {
			return err
		}
	}
	return nil
}

func (r *BlockReward) serializeSize() int {
	n := varIntSize(uint64(len(r.Outputs)))
	for _, to := range r.Outputs {
		n += to.SerializeSize()
	}
	return n
}

// MsgBlock is a block: a header, the block reward and the transactions.
type MsgBlock struct {
	Header       BlockHeader
	Reward       BlockReward
	Transactions []*MsgTx
}

// AddTransaction adds a transaction to the message.
func (msg *MsgBlock) AddTransaction(tx *MsgTx) {
	msg.Transactions = append(msg.Transactions, tx)
}

// ClearTransactions removes all transactions from the message.
func (msg *MsgBlock) ClearTransactions() {
	msg.Transactions = make([]*MsgTx, 0, 1)
}

// BlockHash computes the block identifier hash for this block.
func (msg *MsgBlock) BlockHash() chainhash.Hash {
	return msg.Header.BlockHash()
}

// TxHashes returns a slice of hashes of all of the transactions in this
// block.
func (msg *MsgBlock) TxHashes() []chainhash.Hash {
	hashList := make([]chainhash.Hash, 0, len(msg.Transactions))
	for _, tx := range msg.Transactions {
		hashList = append(hashList, tx.TxHash())
	}
	return hashList
}

// CalcMerkleRoot returns the merkle root committing to the block reward and
// every transaction, in that order.
func (msg *MsgBlock) CalcMerkleRoot() chainhash.Hash {
	leaves := make([]chainhash.Hash, 0, len(msg.Transactions)+1)
	leaves = append(leaves, msg.Reward.Hash())
	leaves = append(leaves, msg.TxHashes()...)
	return standalone.CalcMerkleRootInPlace(leaves)
}

// Serialize encodes the block to w.
func (msg *MsgBlock) Serialize(w io.Writer) error {
	if err := msg.Header.Serialize(w); err != nil {
		return err
	}
	if err := msg.Reward.serialize(w); err != nil {
		return err
	}
	if err := writeCount(w, len(msg.Transactions)); err != nil {
		return err
	}
	for _, tx := range msg.Transactions {
		if err := tx.Serialize(w); err != nil {
			return err
		}
	}
	return nil
}

// Deserialize decodes a block from r into the receiver.
func (msg *MsgBlock) Deserialize(r io.Reader) error {
	const op = "MsgBlock.Deserialize"
	if err := msg.Header.Deserialize(r); err != nil {
		return err
	}
	count, err := readCount(r, maxRewardOutputs, ErrTooManyTxOuts, op)
	if err != nil {
		return err
	}
	msg.Reward.Outputs = make([]*TxOut, count)
	for i := range msg.Reward.Outputs {
		to := new(TxOut)
		if err := to.Deserialize(r); err != nil {
			return err
		}
		msg.Reward.Outputs[i] = to
	}
	count, err = readCount(r, maxTxPerBlock, ErrTooManyTxs, op)
	if err != nil {
		return err
	}
	msg.Transactions = make([]*MsgTx, 0, count)
	for i := uint64(0); i < count; i++ {
		tx := new(MsgTx)
		if err := tx.Deserialize(r); err != nil {
			return err
		}
		msg.Transactions = append(msg.Transactions, tx)
	}
	return nil
}

// FromBytes decodes a serialized block into the receiver.  Trailing bytes are
// ignored.
func (msg *MsgBlock) FromBytes(b []byte) error {
	return msg.Deserialize(bytes.NewReader(b))
}

// SerializeSize returns the number of bytes it would take to serialize the
// block.
func (msg *MsgBlock) SerializeSize() int {
	n := msg.Header.SerializeSize() + msg.Reward.serializeSize() +
		varIntSize(uint64(len(msg.Transactions)))
	for _, tx := range msg.Transactions {
		n += tx.SerializeSize()
	}
	return n
}

// Bytes returns the serialized block.
func (msg *MsgBlock) Bytes() ([]byte, error) {
	buf := bytes.NewBuffer(make([]byte, 0, msg.SerializeSize()))
	if err := msg.Serialize(buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// TxLoc returns the offsets and lengths of each transaction within the
// serialized block.
func (msg *MsgBlock) TxLoc() []TxLoc {
	offset := msg.Header.SerializeSize() + msg.Reward.serializeSize() +
		varIntSize(uint64(len(msg.Transactions)))
	locs := make([]TxLoc, len(msg.Transactions))
	for i, tx := range msg.Transactions {
		size := tx.SerializeSize()
		locs[i] = TxLoc{TxStart: offset, TxLen: size}
		offset += size
	}
	return locs
}

// NewMsgBlock returns a new block message that conforms to the Message
// interface.
func NewMsgBlock(blockHeader *BlockHeader) *MsgBlock {
	return &MsgBlock{
		Header:       *blockHeader,
		Transactions: make([]*MsgTx, 0, 4),
	}
}
