// Copyright (c) 2013-2016 The btcsuite developers
// Copyright (c) 2015-2024 The Decred developers
// Copyright (c) 2026 The stakechain developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/decred/dcrd/chaincfg/chainhash"
	dcrwire "github.com/decred/dcrd/wire"
)

const (
	// MaxBlockPayload is the maximum number of bytes a serialized block may
	// occupy.  Chain parameters may impose a smaller limit.
	MaxBlockPayload = 4 * 1024 * 1024

	// MaxWitnessSize is the maximum number of bytes of witness data a single
	// input may carry.
	MaxWitnessSize = 16 * 1024

	// MaxDataFieldSize is the maximum size of arbitrary data fields such as
	// destinations, VRF keys and proofs.
	MaxDataFieldSize = 1024

	// pver is the protocol version passed to the variable length codecs.
	// The chain data encoding does not vary by protocol version.
	pver = dcrwire.ProtocolVersion
)

// littleEndian is a convenience variable since binary.LittleEndian is quite
// long.
var littleEndian = binary.LittleEndian

func readUint8(r io.Reader) (uint8, error) {
	var b [1]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, err
	}
	return b[0], nil
}

func readUint16(r io.Reader) (uint16, error) {
	var b [2]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, err
	}
	return littleEndian.Uint16(b[:]), nil
}

func readUint32(r io.Reader) (uint32, error) {
	var b [4]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, err
	}
	return littleEndian.Uint32(b[:]), nil
}

func readUint64(r io.Reader) (uint64, error) {
	var b [8]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, err
	}
	return littleEndian.Uint64(b[:]), nil
}

func readHash(r io.Reader, hash *chainhash.Hash) error {
	_, err := io.ReadFull(r, hash[:])
	return err
}

func writeUint8(w io.Writer, v uint8) error {
	_, err := w.Write([]byte{v})
	return err
}

func writeUint16(w io.Writer, v uint16) error {
	var b [2]byte
	littleEndian.PutUint16(b[:], v)
	_, err := w.Write(b[:])
	return err
}

func writeUint32(w io.Writer, v uint32) error {
	var b [4]byte
	littleEndian.PutUint32(b[:], v)
	_, err := w.Write(b[:])
	return err
}

func writeUint64(w io.Writer, v uint64) error {
	var b [8]byte
	littleEndian.PutUint64(b[:], v)
	_, err := w.Write(b[:])
	return err
}

// readCount reads a variable length element count and ensures it does not
// exceed max.
func readCount(r io.Reader, max uint64, kind ErrorKind, fn string) (uint64, error) {
	count, err := dcrwire.ReadVarInt(r, pver)
	if err != nil {
		return 0, err
	}
	if count > max {
		str := fmt.Sprintf("too many elements (%d, max %d)", count, max)
		return 0, messageError(fn, kind, str)
	}
	return count, nil
}

func writeCount(w io.Writer, count int) error {
	return dcrwire.WriteVarInt(w, pver, uint64(count))
}

// readVarBytes reads a variable length byte array bounded by maxAllowed.
func readVarBytes(r io.Reader, maxAllowed uint32, field string) ([]byte, error) {
	b, err := dcrwire.ReadVarBytes(r, pver, maxAllowed, field)
	if errors.Is(err, dcrwire.ErrVarBytesTooLong) {
		return nil, messageError("readVarBytes", ErrVarBytesTooLong,
			err.Error())
	}
	if err != nil {
		return nil, err
	}
	if len(b) == 0 {
		return nil, nil
	}
	return b, nil
}

func writeVarBytes(w io.Writer, b []byte) error {
	return dcrwire.WriteVarBytes(w, pver, b)
}

func readVarString(r io.Reader, maxAllowed uint32, field string) (string, error) {
	b, err := readVarBytes(r, maxAllowed, field)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// varIntSize returns the number of bytes a variable length integer encoding
// of val occupies.
func varIntSize(val uint64) int {
	return dcrwire.VarIntSerializeSize(val)
}

// varBytesSize returns the serialized size of a variable length byte array.
func varBytesSize(b []byte) int {
	return varIntSize(uint64(len(b))) + len(b)
}
