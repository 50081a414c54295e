// Copyright (c) 2026 The stakechain developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package posaccounting

// ErrorKind identifies a kind of error.  It has full support for errors.Is and
// errors.As, so the caller can directly check against an error kind when
// determining the reason for an error.
type ErrorKind string

// These constants are used to identify a specific ErrorKind.
const (
	// ErrPoolAlreadyExists indicates an attempt to create a pool whose id
	// is already in use.
	ErrPoolAlreadyExists = ErrorKind("ErrPoolAlreadyExists")

	// ErrPoolNotFound indicates a referenced pool does not exist.
	ErrPoolNotFound = ErrorKind("ErrPoolNotFound")

	// ErrDelegationNotFound indicates a referenced delegation does not
	// exist.
	ErrDelegationNotFound = ErrorKind("ErrDelegationNotFound")

	// ErrDelegationAlreadyExists indicates an attempt to create a
	// delegation whose id is already in use.
	ErrDelegationAlreadyExists = ErrorKind("ErrDelegationAlreadyExists")

	// ErrDeltaConflict indicates a delta does not apply on top of the
	// state it is merged into.
	ErrDeltaConflict = ErrorKind("ErrDeltaConflict")

	// ErrBalanceUnderflow indicates a balance would become negative.
	ErrBalanceUnderflow = ErrorKind("ErrBalanceUnderflow")

	// ErrAccountingOverflow indicates a balance or delta overflowed.
	ErrAccountingOverflow = ErrorKind("ErrAccountingOverflow")

	// ErrUnknownUndo indicates undo data of an unknown kind.
	ErrUnknownUndo = ErrorKind("ErrUnknownUndo")

	// ErrMissingTxUndo indicates a transaction is disconnected without
	// its accounting undo data.
	ErrMissingTxUndo = ErrorKind("ErrMissingTxUndo")

	// ErrTxUndoAlreadyExists indicates accounting undo data for a
	// transaction was recorded twice in the same block.
	ErrTxUndoAlreadyExists = ErrorKind("ErrTxUndoAlreadyExists")
)

// Error satisfies the error interface and prints human-readable errors.
func (e ErrorKind) Error() string {
	return string(e)
}

// RuleError identifies an accounting rule violation.  It has full support for
// errors.Is and errors.As, so the caller can ascertain the specific reason for
// the error by checking the underlying error.
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
