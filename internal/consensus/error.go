// Copyright (c) 2014-2016 The btcsuite developers
// Copyright (c) 2015-2022 The Decred developers
// Copyright (c) 2026 The stakechain developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package consensus

// ErrorKind identifies a kind of error.  It has full support for errors.Is and
// errors.As, so the caller can directly check against an error kind when
// determining the reason for an error.
type ErrorKind string

// These constants are used to identify a specific RuleError.
const (
	// ErrConsensusTypeMismatch indicates the consensus data of a header
	// does not match the consensus required at its height by the net
	// upgrade schedule.
	ErrConsensusTypeMismatch = ErrorKind("ErrConsensusTypeMismatch")

	// ErrHighHash indicates the proof-of-work hash of a header is higher
	// than the target its bits declare.
	ErrHighHash = ErrorKind("ErrHighHash")

	// ErrUnexpectedDifficulty indicates the declared difficulty bits are
	// out of range or differ from what the chain requires.
	ErrUnexpectedDifficulty = ErrorKind("ErrUnexpectedDifficulty")

	// ErrBadBlockProof indicates the VRF proof of a proof-of-stake header
	// does not verify against the pool's VRF key.
	ErrBadBlockProof = ErrorKind("ErrBadBlockProof")

	// ErrNoKernel indicates a proof-of-stake header declares no kernel
	// input.
	ErrNoKernel = ErrorKind("ErrNoKernel")

	// ErrMultipleKernels indicates a proof-of-stake header declares more
	// than one kernel input.
	ErrMultipleKernels = ErrorKind("ErrMultipleKernels")

	// ErrInvalidOutputPurposeInStakeKernel indicates the kernel input
	// spends an output that is not stakeable.
	ErrInvalidOutputPurposeInStakeKernel = ErrorKind("ErrInvalidOutputPurposeInStakeKernel")

	// ErrKernelPoolMismatch indicates the kernel output belongs to a pool
	// other than the one the header names.
	ErrKernelPoolMismatch = ErrorKind("ErrKernelPoolMismatch")

	// ErrPoolBalanceNotFound indicates the pool named by a proof-of-stake
	// header has no sealed balance.
	ErrPoolBalanceNotFound = ErrorKind("ErrPoolBalanceNotFound")

	// ErrStakeKernelHashTooHigh indicates the VRF output of a
	// proof-of-stake header exceeds the stake weighted target.
	ErrStakeKernelHashTooHigh = ErrorKind("ErrStakeKernelHashTooHigh")

	// ErrBitsToTarget indicates compact difficulty bits do not describe a
	// usable target.
	ErrBitsToTarget = ErrorKind("ErrBitsToTarget")
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
