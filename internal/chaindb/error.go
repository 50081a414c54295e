// Copyright (c) 2015-2024 The Decred developers
// Copyright (c) 2026 The stakechain developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package chaindb

import "errors"

// ErrorKind identifies a kind of error.  It has full support for errors.Is and
// errors.As, so the caller can directly check against an error kind when
// determining the reason for an error.
type ErrorKind string

// These constants are used to identify a specific ErrorKind.
const (
	// ErrDb indicates that a general error was encountered when accessing
	// the database.
	ErrDb = ErrorKind("ErrDb")

	// ErrDbNotOpen indicates that the database was accessed before it was
	// opened or after it was closed.
	ErrDbNotOpen = ErrorKind("ErrDbNotOpen")

	// ErrDbTxClosed indicates an attempt was made to use a database
	// transaction that has already been committed or rolled back.
	ErrDbTxClosed = ErrorKind("ErrDbTxClosed")

	// ErrDbTxNotWritable indicates an attempt was made to modify the
	// database through a read-only transaction.
	ErrDbTxNotWritable = ErrorKind("ErrDbTxNotWritable")

	// ErrDbCorruption indicates that underlying data being accessed in the
	// database is corrupted.
	ErrDbCorruption = ErrorKind("ErrDbCorruption")

	// ErrDbCommit indicates a transaction could not be committed.  The
	// transaction may be retried from scratch.
	ErrDbCommit = ErrorKind("ErrDbCommit")

	// ErrDbDecode indicates a stored value could not be decoded.
	ErrDbDecode = ErrorKind("ErrDbDecode")
)

// Error satisfies the error interface and prints human-readable errors.
func (e ErrorKind) Error() string {
	return string(e)
}

// ContextError wraps an error with additional context.  It has full support for
// errors.Is and errors.As, so the caller can ascertain the specific reason for
// the error by checking the underlying error.
//
// RawErr contains the original error in the case where an error has been
// converted.
type ContextError struct {
	Err         error
	Description string
	RawErr      error
}

// Error satisfies the error interface and prints human-readable errors.
func (e ContextError) Error() string {
	return e.Description
}

// Unwrap returns the underlying wrapped error.
func (e ContextError) Unwrap() error {
	return e.Err
}

// contextError creates a ContextError given a set of arguments.
func contextError(kind ErrorKind, desc string) ContextError {
	return ContextError{Err: kind, Description: desc}
}

// DecodeError returns an error of kind ErrDbDecode with the given description.
// It is used by the typed accessors layered over the store.
func DecodeError(desc string) error {
	return contextError(ErrDbDecode, desc)
}

// IsRecoverable returns whether the error is a storage error that may go away
// when the whole operation is retried.
func IsRecoverable(err error) bool {
	return errors.Is(err, ErrDbCommit)
}

// IsFatal returns whether the error is a storage error that indicates the
// database can no longer be trusted or used.
func IsFatal(err error) bool {
	return errors.Is(err, ErrDbCorruption) || errors.Is(err, ErrDbNotOpen) ||
		errors.Is(err, ErrDbDecode)
}
