// Copyright (c) 2013-2016 The btcsuite developers
// Copyright (c) 2015-2024 The Decred developers
// Copyright (c) 2026 The stakechain developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

import (
	"bytes"
	"fmt"
	"io"
	"time"

	"github.com/decred/dcrd/chaincfg/chainhash"
	"lukechampine.com/blake3"
)

// maxKernelInputs is the maximum number of kernel inputs a proof-of-stake
// header may declare.
const maxKernelInputs = 16

// ConsensusType identifies the kind of consensus data carried by a header.
type ConsensusType uint8

// These constants define the consensus data kinds.
const (
	// ConsensusNone carries no proof and is only valid where the chain
	// ignores consensus.
	ConsensusNone ConsensusType = iota

	// ConsensusPoW carries a proof of work.
	ConsensusPoW

	// ConsensusPoS carries a proof of stake.
	ConsensusPoS
)

// String returns the ConsensusType in human-readable form.
func (t ConsensusType) String() string {
	switch t {
	case ConsensusNone:
		return "None"
	case ConsensusPoW:
		return "PoW"
	case ConsensusPoS:
		return "PoS"
	}
	return fmt.Sprintf("Unknown ConsensusType (%d)", uint8(t))
}

// ConsensusData is the proof carried by a block header.
//
// Proof-of-work headers use Bits and Nonce.  Proof-of-stake headers use
// KernelInputs, StakePoolID, VRFProof and Bits.
type ConsensusData struct {
	Type         ConsensusType
	Bits         uint32
	Nonce        uint64
	KernelInputs []*TxIn
	StakePoolID  chainhash.Hash
	VRFProof     []byte
}

// BlockHeader defines information about a block and is used in the block
// (MsgBlock) and headers (GetHeaders) messages.
type BlockHeader struct {
	// Version of the block.  This is not the same as the protocol version.
	Version uint32

	// Hash of the previous block in the block chain.
	PrevBlock chainhash.Hash

	// Merkle tree reference to the hash of the block reward and all
	// transactions for the block.
	MerkleRoot chainhash.Hash

	// Time the block was created.  This is, unfortunately, encoded as a
	// uint64 on the wire and therefore is limited to second precision.
	Timestamp time.Time

	// Proof of work or stake.
	ConsensusData ConsensusData
}

// BlockVersion is the current latest supported block version.
const BlockVersion = 1

func (h *BlockHeader) serialize(w io.Writer, withVRF bool) error {
	if err := writeUint32(w, h.Version); err != nil {
		return err
	}
	if _, err := w.Write(h.PrevBlock[:]); err != nil {
		return err
	}
	if _, err := w.Write(h.MerkleRoot[:]); err != nil {
		return err
	}
	if err := writeUint64(w, uint64(h.Timestamp.Unix())); err != nil {
		return err
	}
	cd := &h.ConsensusData
	if err := writeUint8(w, uint8(cd.Type)); err != nil {
		return err
	}
	switch cd.Type {
	case ConsensusNone:
		return nil

	case ConsensusPoW:
		if err := writeUint32(w, cd.Bits); err != nil {
			return err
		}
		return writeUint64(w, cd.Nonce)

	case ConsensusPoS:
		if err := writeCount(w, len(cd.KernelInputs)); err != nil {
			return err
		}
		for _, ti := range cd.KernelInputs {
			if err := writeOutPoint(w, &ti.PreviousOutPoint); err != nil {
				return err
			}
			if err := writeVarBytes(w, ti.Witness); err != nil {
				return err
			}
		}
		if _, err := w.Write(cd.StakePoolID[:]); err != nil {
			return err
		}
		if err := writeUint32(w, cd.Bits); err != nil {
			return err
		}
		if !withVRF {
			return nil
		}
		return writeVarBytes(w, cd.VRFProof)
	}
	str := fmt.Sprintf("unknown consensus type %d", cd.Type)
	return messageError("BlockHeader.Serialize", ErrUnknownConsensusType, str)
}

// Serialize encodes the header to w.
func (h *BlockHeader) Serialize(w io.Writer) error {
	return h.serialize(w, true)
}

// Deserialize decodes a header from r into the receiver.
func (h *BlockHeader) Deserialize(r io.Reader) error {
	const op = "BlockHeader.Deserialize"
	var err error
	if h.Version, err = readUint32(r); err != nil {
		return err
	}
	if err := readHash(r, &h.PrevBlock); err != nil {
		return err
	}
	if err := readHash(r, &h.MerkleRoot); err != nil {
		return err
	}
	ts, err := readUint64(r)
	if err != nil {
		return err
	}
	h.Timestamp = time.Unix(int64(ts), 0)

	t, err := readUint8(r)
	if err != nil {
		return err
	}
	cd := ConsensusData{Type: ConsensusType(t)}
	switch cd.Type {
	case ConsensusNone:

	case ConsensusPoW:
		if cd.Bits, err = readUint32(r); err != nil {
			return err
		}
		if cd.Nonce, err = readUint64(r); err != nil {
			return err
		}

	case ConsensusPoS:
		count, err := readCount(r, maxKernelInputs, ErrTooManyTxIns, op)
		if err != nil {
			return err
		}
		cd.KernelInputs = make([]*TxIn, count)
		for i := range cd.KernelInputs {
			ti := new(TxIn)
			if err := readOutPoint(r, &ti.PreviousOutPoint); err != nil {
				return err
			}
			ti.Witness, err = readVarBytes(r, MaxWitnessSize, "witness")
			if err != nil {
				return err
			}
			cd.KernelInputs[i] = ti
		}
		if err := readHash(r, &cd.StakePoolID); err != nil {
			return err
		}
		if cd.Bits, err = readUint32(r); err != nil {
			return err
		}
		cd.VRFProof, err = readVarBytes(r, MaxDataFieldSize, "vrf proof")
		if err != nil {
			return err
		}

	default:
		str := fmt.Sprintf("unknown consensus type %d", t)
		return messageError(op, ErrUnknownConsensusType, str)
	}
	h.ConsensusData = cd
	return nil
}

// SerializeSize returns the number of bytes it would take to serialize the
// header.
func (h *BlockHeader) SerializeSize() int {
	n := 4 + chainhash.HashSize*2 + 8 + 1
	cd := &h.ConsensusData
	switch cd.Type {
	case ConsensusPoW:
		n += 4 + 8
	case ConsensusPoS:
		n += varIntSize(uint64(len(cd.KernelInputs)))
		for _, ti := range cd.KernelInputs {
			n += ti.SerializeSize()
		}
		n += chainhash.HashSize + 4 + varBytesSize(cd.VRFProof)
	}
	return n
}

// Bytes returns the serialized header.
func (h *BlockHeader) Bytes() ([]byte, error) {
	buf := bytes.NewBuffer(make([]byte, 0, h.SerializeSize()))
	if err := h.Serialize(buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// BlockHash computes the block identifier hash for the given block header.
func (h *BlockHeader) BlockHash() chainhash.Hash {
	b, _ := h.Bytes()
	return chainhash.HashH(b)
}

// PowHash computes the hash compared against the target of a proof-of-work
// header.
func (h *BlockHeader) PowHash() chainhash.Hash {
	b, _ := h.Bytes()
	return chainhash.Hash(blake3.Sum256(b))
}

// VRFMessage returns the serialized header without its VRF proof.  It is the
// header commitment bound into the stake kernel.
func (h *BlockHeader) VRFMessage() []byte {
	var buf bytes.Buffer
	_ = h.serialize(&buf, false)
	return buf.Bytes()
}
