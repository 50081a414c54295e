// Copyright (c) 2013-2016 The btcsuite developers
// Copyright (c) 2015-2024 The Decred developers
// Copyright (c) 2026 The stakechain developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/decred/dcrd/chaincfg/chainhash"
)

const (
	// TxVersion is the current latest supported transaction version.
	TxVersion uint16 = 1

	// outPointSize is the size of a serialized outpoint.
	outPointSize = 1 + chainhash.HashSize + 4

	// minTxInPayload is the minimum payload size for a transaction input.
	minTxInPayload = outPointSize + 1

	// minTxOutPayload is the minimum payload size for a transaction output.
	minTxOutPayload = 1

	// maxTxInPerMessage is the maximum number of transaction inputs that
	// could possibly fit into a block.
	maxTxInPerMessage = MaxBlockPayload/minTxInPayload + 1

	// maxTxOutPerMessage is the maximum number of transaction outputs that
	// could possibly fit into a block.
	maxTxOutPerMessage = MaxBlockPayload/minTxOutPayload + 1
)

// OutPointSource identifies what produced an output: a transaction or the
// reward of a block.
type OutPointSource uint8

// These constants define the outpoint source kinds.
const (
	SourceTransaction OutPointSource = iota
	SourceBlockReward
)

// String returns the OutPointSource in human-readable form.
func (s OutPointSource) String() string {
	switch s {
	case SourceTransaction:
		return "tx"
	case SourceBlockReward:
		return "reward"
	}
	return fmt.Sprintf("Unknown OutPointSource (%d)", uint8(s))
}

// OutPoint defines a chain data type that is used to track previous outputs.
// Hash is a transaction id for transaction outputs and a block id for block
// reward outputs.
type OutPoint struct {
	Hash   chainhash.Hash
	Source OutPointSource
	Index  uint32
}

// NewOutPoint returns a new outpoint with the provided hash, source and
// index.
func NewOutPoint(hash *chainhash.Hash, source OutPointSource, index uint32) *OutPoint {
	return &OutPoint{
		Hash:   *hash,
		Source: source,
		Index:  index,
	}
}

// String returns the OutPoint in the human-readable form "hash:index", with
// reward outpoints prefixed by "reward/".
func (o OutPoint) String() string {
	s := o.Hash.String() + ":" + fmt.Sprint(o.Index)
	if o.Source == SourceBlockReward {
		return "reward/" + s
	}
	return s
}

// Key returns the fixed size serialization of the outpoint.  Keys sort by
// source, hash and then index.
func (o *OutPoint) Key() []byte {
	var key [outPointSize]byte
	key[0] = byte(o.Source)
	copy(key[1:], o.Hash[:])
	binary.BigEndian.PutUint32(key[1+chainhash.HashSize:], o.Index)
	return key[:]
}

// OutPointFromKey decodes an outpoint serialized with Key.
func OutPointFromKey(key []byte) (OutPoint, error) {
	var op OutPoint
	if len(key) != outPointSize {
		return op, messageError("OutPointFromKey", ErrUnknownOutPointSource,
			fmt.Sprintf("bad outpoint key length %d", len(key)))
	}
	op.Source = OutPointSource(key[0])
	if op.Source > SourceBlockReward {
		return op, messageError("OutPointFromKey", ErrUnknownOutPointSource,
			fmt.Sprintf("unknown outpoint source %d", key[0]))
	}
	copy(op.Hash[:], key[1:])
	op.Index = binary.BigEndian.Uint32(key[1+chainhash.HashSize:])
	return op, nil
}

func writeOutPoint(w io.Writer, op *OutPoint) error {
	_, err := w.Write(op.Key())
	return err
}

func readOutPoint(r io.Reader, op *OutPoint) error {
	var key [outPointSize]byte
	if _, err := io.ReadFull(r, key[:]); err != nil {
		return err
	}
	var err error
	*op, err = OutPointFromKey(key[:])
	return err
}

// TxIn defines a transaction input.  Witness holds the data that satisfies
// the destination of the spent output and is not committed to by the
// transaction hash.
type TxIn struct {
	PreviousOutPoint OutPoint
	Witness          []byte
}

// NewTxIn returns a new transaction input with the provided previous outpoint
// and witness.
func NewTxIn(prevOut *OutPoint, witness []byte) *TxIn {
	return &TxIn{
		PreviousOutPoint: *prevOut,
		Witness:          witness,
	}
}

// SerializeSize returns the number of bytes it would take to serialize the
// transaction input.
func (t *TxIn) SerializeSize() int {
	return outPointSize + varBytesSize(t.Witness)
}

// MsgTx is a transaction: an ordered list of inputs spending previous
// outputs and an ordered list of new outputs.
type MsgTx struct {
	Version uint16
	Flags   uint32
	TxIn    []*TxIn
	TxOut   []*TxOut
}

// NewMsgTx returns a new transaction that conforms to the Message interface.
// The return instance has a default version of TxVersion and there are no
// transaction inputs or outputs.
func NewMsgTx() *MsgTx {
	return &MsgTx{
		Version: TxVersion,
		TxIn:    make([]*TxIn, 0, 1),
		TxOut:   make([]*TxOut, 0, 1),
	}
}

// AddTxIn adds a transaction input to the message.
func (msg *MsgTx) AddTxIn(ti *TxIn) {
	msg.TxIn = append(msg.TxIn, ti)
}

// AddTxOut adds a transaction output to the message.
func (msg *MsgTx) AddTxOut(to *TxOut) {
	msg.TxOut = append(msg.TxOut, to)
}

func (msg *MsgTx) serialize(w io.Writer, witness bool) error {
	if err := writeUint16(w, msg.Version); err != nil {
		return err
	}
	if err := writeUint32(w, msg.Flags); err != nil {
		return err
	}
	if err := writeCount(w, len(msg.TxIn)); err != nil {
		return err
	}
	for _, ti := range msg.TxIn {
		if err := writeOutPoint(w, &ti.PreviousOutPoint); err != nil {
			return err
		}
	}
	if err := writeCount(w, len(msg.TxOut)); err != nil {
		return err
	}
	for _, to := range msg.TxOut {
		if err := to.Serialize(w); err != nil {
			return err
		}
	}
	if !witness {
		return nil
	}
	for _, ti := range msg.TxIn {
		if err := writeVarBytes(w, ti.Witness); err != nil {
			return err
		}
	}
	return nil
}

// Serialize encodes the transaction, including witnesses, to w.
func (msg *MsgTx) Serialize(w io.Writer) error {
	return msg.serialize(w, true)
}

// Deserialize decodes a transaction from r into the receiver.
func (msg *MsgTx) Deserialize(r io.Reader) error {
	const op = "MsgTx.Deserialize"
	var err error
	if msg.Version, err = readUint16(r); err != nil {
		return err
	}
	if msg.Flags, err = readUint32(r); err != nil {
		return err
	}
	count, err := readCount(r, maxTxInPerMessage, ErrTooManyTxIns, op)
	if err != nil {
		return err
	}
	txIns := make([]TxIn, count)
	msg.TxIn = make([]*TxIn, count)
	for i := range txIns {
		if err := readOutPoint(r, &txIns[i].PreviousOutPoint); err != nil {
			return err
		}
		msg.TxIn[i] = &txIns[i]
	}
	count, err = readCount(r, maxTxOutPerMessage, ErrTooManyTxOuts, op)
	if err != nil {
		return err
	}
	txOuts := make([]TxOut, count)
	msg.TxOut = make([]*TxOut, count)
	for i := range txOuts {
		if err := txOuts[i].Deserialize(r); err != nil {
			return err
		}
		msg.TxOut[i] = &txOuts[i]
	}
	for _, ti := range msg.TxIn {
		ti.Witness, err = readVarBytes(r, MaxWitnessSize, "witness")
		if err != nil {
			return err
		}
	}
	return nil
}

func (msg *MsgTx) serializeSize(witness bool) int {
	n := 2 + 4 + varIntSize(uint64(len(msg.TxIn))) +
		varIntSize(uint64(len(msg.TxOut)))
	for _, ti := range msg.TxIn {
		n += outPointSize
		if witness {
			n += varBytesSize(ti.Witness)
		}
	}
	for _, to := range msg.TxOut {
		n += to.SerializeSize()
	}
	return n
}

// SerializeSize returns the number of bytes it would take to serialize the
// transaction including witnesses.
func (msg *MsgTx) SerializeSize() int {
	return msg.serializeSize(true)
}

// Bytes returns the serialized transaction including witnesses.
func (msg *MsgTx) Bytes() ([]byte, error) {
	buf := bytes.NewBuffer(make([]byte, 0, msg.SerializeSize()))
	if err := msg.Serialize(buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// TxHash generates the hash identifying the transaction.  Witnesses are not
// committed to, so signing does not change the id.
func (msg *MsgTx) TxHash() chainhash.Hash {
	buf := bytes.NewBuffer(make([]byte, 0, msg.serializeSize(false)))
	_ = msg.serialize(buf, false)
	return chainhash.HashH(buf.Bytes())
}
