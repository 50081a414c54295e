// Copyright (c) 2026 The stakechain developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package utxo

// AssertError identifies an error that indicates an internal code consistency
// issue and should be treated as a critical and unrecoverable error.
type AssertError string

// Error returns the assertion error as a human-readable string and satisfies
// the error interface.
func (e AssertError) Error() string {
	return "assertion failed: " + string(e)
}

// ErrorKind identifies a kind of error.  It has full support for errors.Is and
// errors.As, so the caller can directly check against an error kind when
// determining the reason for an error.
type ErrorKind string

// These constants are used to identify a specific ErrorKind.
const (
	// ErrMissingOutputOrSpent indicates an outpoint does not reference an
	// unspent output.
	ErrMissingOutputOrSpent = ErrorKind("ErrMissingOutputOrSpent")

	// ErrUtxoAlreadyExists indicates an attempt to create an output that
	// is already unspent.
	ErrUtxoAlreadyExists = ErrorKind("ErrUtxoAlreadyExists")

	// ErrUndoMismatch indicates undo data does not match the transaction
	// it is applied to.
	ErrUndoMismatch = ErrorKind("ErrUndoMismatch")

	// ErrMissingBlockRewardUndo indicates a block reward is disconnected
	// without its undo data.
	ErrMissingBlockRewardUndo = ErrorKind("ErrMissingBlockRewardUndo")

	// ErrMissingTxUndo indicates a transaction is disconnected without its
	// undo data.
	ErrMissingTxUndo = ErrorKind("ErrMissingTxUndo")

	// ErrTxUndoAlreadyExists indicates undo data for a transaction was
	// recorded twice in the same block.
	ErrTxUndoAlreadyExists = ErrorKind("ErrTxUndoAlreadyExists")
)

// Error satisfies the error interface and prints human-readable errors.
func (e ErrorKind) Error() string {
	return string(e)
}

// RuleError identifies a rule violation.  It has full support for errors.Is
// and errors.As, so the caller can ascertain the specific reason for the error
// by checking the underlying error.
type RuleError struct {
	Err         error
	Description string
}

// Error satisfies the error interface and prints human-readable errors.
func (e RuleError) Error() string {
	return e.Description
}

// Unwrap returns the underlying wrapped error.
func (e RuleError) Unwrap() error {
	return e.Err
}

// ruleError creates a RuleError given a set of arguments.
func ruleError(kind ErrorKind, desc string) RuleError {
	return RuleError{Err: kind, Description: desc}
}
