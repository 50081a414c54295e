// Copyright (c) 2013-2015 The btcsuite developers
// Copyright (c) 2015-2024 The Decred developers
// Copyright (c) 2026 The stakechain developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

// ErrorKind identifies a kind of error.  It has full support for errors.Is and
// errors.As, so the caller can directly check against an error kind when
// determining the reason for an error.
type ErrorKind string

// These constants are used to identify a specific Error.
const (
	// ErrVarBytesTooLong is returned when a variable-length byte slice
	// exceeds the maximum size allowed for the field.
	ErrVarBytesTooLong = ErrorKind("ErrVarBytesTooLong")

	// ErrTooManyTxs is returned when the number of transactions exceeds
	// the maximum allowed.
	ErrTooManyTxs = ErrorKind("ErrTooManyTxs")

	// ErrTooManyTxIns is returned when a transaction declares more inputs
	// than could possibly fit in a block.
	ErrTooManyTxIns = ErrorKind("ErrTooManyTxIns")

	// ErrTooManyTxOuts is returned when a transaction or block reward
	// declares more outputs than could possibly fit in a block.
	ErrTooManyTxOuts = ErrorKind("ErrTooManyTxOuts")

	// ErrUnknownOutPointSource is returned when an outpoint names a source
	// kind that is not defined.
	ErrUnknownOutPointSource = ErrorKind("ErrUnknownOutPointSource")

	// ErrUnknownOutputType is returned when an output names a type that is
	// not defined.
	ErrUnknownOutputType = ErrorKind("ErrUnknownOutputType")

	// ErrUnknownValueType is returned when an output value names a type
	// that is not defined.
	ErrUnknownValueType = ErrorKind("ErrUnknownValueType")

	// ErrUnknownDestination is returned when a destination names a type
	// that is not defined.
	ErrUnknownDestination = ErrorKind("ErrUnknownDestination")

	// ErrUnknownTimelock is returned when a timelock names a type that is
	// not defined.
	ErrUnknownTimelock = ErrorKind("ErrUnknownTimelock")

	// ErrUnknownConsensusType is returned when a block header carries
	// consensus data of an undefined type.
	ErrUnknownConsensusType = ErrorKind("ErrUnknownConsensusType")

	// ErrMissingPoolData is returned when a stake pool output does not carry
	// its pool data.
	ErrMissingPoolData = ErrorKind("ErrMissingPoolData")
)

// Error satisfies the error interface and prints human-readable errors.
func (e ErrorKind) Error() string {
	return string(e)
}

// MessageError identifies an error related to serialized chain data.  It has
// full support for errors.Is and errors.As, so the caller can ascertain the
// specific reason for the error by checking the underlying error.
type MessageError struct {
	Func        string
	Err         error
	Description string
}

// Error satisfies the error interface and prints human-readable errors.
func (e MessageError) Error() string {
	if e.Func != "" {
		return e.Func + ": " + e.Description
	}
	return e.Description
}

// Unwrap returns the underlying wrapped error.
func (e MessageError) Unwrap() error {
	return e.Err
}

// messageError creates a MessageError given a set of arguments.
func messageError(fn string, kind ErrorKind, desc string) MessageError {
	return MessageError{Func: fn, Err: kind, Description: desc}
}
