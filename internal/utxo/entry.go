// Copyright (c) 2021-2024 The Decred developers
// Copyright (c) 2026 The stakechain developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package utxo

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/stakechain/chaind/internal/chaindb"
	"github.com/stakechain/chaind/wire"
)

// entryState defines the in-memory state of a utxo entry.
//
// The bit representation is:
//
//	bit  0    - output has been spent
//	bit  1    - output has been modified since it was loaded
//	bit  2    - output is fresh
//	bits 3-7  - unused
type entryState uint8

const (
	// stateSpent indicates that an output is spent.
	stateSpent entryState = 1 << iota

	// stateModified indicates that an output has been modified since it
	// was loaded.
	stateModified

	// stateFresh indicates that an output is fresh, which means that it
	// exists in the cache but does not exist in the layer beneath it.
	stateFresh
)

// entryFlagBlockReward is the serialized flag marking block reward outputs.
const entryFlagBlockReward = 1

// Entry houses an unspent output along with the height of the block that
// created it and whether it was created by a block reward.
type Entry struct {
	Output        *wire.TxOut
	Height        int64
	IsBlockReward bool

	state entryState
}

// NewEntry returns an unmodified entry for the given output.
func NewEntry(output *wire.TxOut, height int64, isBlockReward bool) *Entry {
	return &Entry{Output: output, Height: height, IsBlockReward: isBlockReward}
}

// IsSpent returns whether or not the output has been spent.
func (e *Entry) IsSpent() bool {
	return e.state&stateSpent == stateSpent
}

func (e *Entry) isModified() bool {
	return e.state&stateModified == stateModified
}

func (e *Entry) isFresh() bool {
	return e.state&stateFresh == stateFresh
}

// Clone returns a copy of the entry.  The output is shared since outputs are
// never mutated once stored.
func (e *Entry) Clone() *Entry {
	if e == nil {
		return nil
	}
	clone := *e
	return &clone
}

// Equal returns whether both entries describe the same output regardless of
// their in-memory state.
func (e *Entry) Equal(other *Entry) bool {
	if e == nil || other == nil {
		return e == other
	}
	if e.Height != other.Height || e.IsBlockReward != other.IsBlockReward {
		return false
	}
	a, errA := e.Output.Bytes()
	b, errB := other.Output.Bytes()
	return errA == nil && errB == nil && bytes.Equal(a, b)
}

// -----------------------------------------------------------------------------
// The serialized format of an entry is:
//
//	<height><flags><output>
//
//	Field     Type     Size
//	height    uint64   8 bytes (big endian)
//	flags     uint8    1 byte
//	output    TxOut    variable
// -----------------------------------------------------------------------------

// Serialize returns the serialized entry.
func (e *Entry) Serialize() ([]byte, error) {
	var buf bytes.Buffer
	buf.Grow(9 + e.Output.SerializeSize())
	buf.Write(chaindb.Uint64Key(uint64(e.Height)))
	var flags byte
	if e.IsBlockReward {
		flags |= entryFlagBlockReward
	}
	buf.WriteByte(flags)
	if err := e.Output.Serialize(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// readEntry decodes a serialized entry from r.
func readEntry(r io.Reader) (*Entry, error) {
	var header [9]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return nil, chaindb.DecodeError(fmt.Sprintf("truncated utxo "+
			"entry: %v", err))
	}
	height := binary.BigEndian.Uint64(header[:8])
	out := new(wire.TxOut)
	if err := out.Deserialize(r); err != nil {
		return nil, chaindb.DecodeError(fmt.Sprintf("malformed utxo "+
			"output: %v", err))
	}
	return &Entry{
		Output:        out,
		Height:        int64(height),
		IsBlockReward: header[8]&entryFlagBlockReward != 0,
	}, nil
}

// DeserializeEntry decodes an entry produced by Serialize.
func DeserializeEntry(b []byte) (*Entry, error) {
	return readEntry(bytes.NewReader(b))
}
