// Copyright (c) 2014-2016 The btcsuite developers
// Copyright (c) 2015-2022 The Decred developers
// Copyright (c) 2026 The stakechain developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockchain

import (
	"errors"

	"github.com/decred/dcrd/chaincfg/chainhash"
	"github.com/stakechain/chaind/internal/amount"
	"github.com/stakechain/chaind/internal/consensus"
	"github.com/stakechain/chaind/internal/posaccounting"
	"github.com/stakechain/chaind/internal/signature"
	"github.com/stakechain/chaind/internal/txverifier"
	"github.com/stakechain/chaind/internal/utxo"
)

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
	// ErrOrphanBlock indicates the parent of a block is not known yet.  The
	// block was added to the orphan pool.
	ErrOrphanBlock = ErrorKind("ErrOrphanBlock")

	// ErrLocalOrphan indicates a locally submitted block does not connect
	// to any known block.
	ErrLocalOrphan = ErrorKind("ErrLocalOrphan")

	// ErrDuplicateBlock indicates a block with the same hash already
	// exists.
	ErrDuplicateBlock = ErrorKind("ErrDuplicateBlock")

	// ErrKnownInvalidBlock indicates a block was previously found to
	// violate a consensus rule.
	ErrKnownInvalidBlock = ErrorKind("ErrKnownInvalidBlock")

	// ErrInvalidAncestorBlock indicates an ancestor of a block was
	// previously found to violate a consensus rule.
	ErrInvalidAncestorBlock = ErrorKind("ErrInvalidAncestorBlock")

	// ErrBadMerkleRoot indicates the calculated merkle root does not match
	// the expected value.
	ErrBadMerkleRoot = ErrorKind("ErrBadMerkleRoot")

	// ErrBlockTooBig indicates the serialized block size exceeds the
	// maximum allowed size.
	ErrBlockTooBig = ErrorKind("ErrBlockTooBig")

	// ErrDuplicateTx indicates a block contains an identical transaction
	// (or at least two transactions which hash to the same value).  A
	// valid block may only contain unique transactions.
	ErrDuplicateTx = ErrorKind("ErrDuplicateTx")

	// ErrDuplicateInputInBlock indicates two inputs of a block spend the
	// same output.
	ErrDuplicateInputInBlock = ErrorKind("ErrDuplicateInputInBlock")

	// ErrTimeTooOld indicates the time is either before the median time of
	// the last several blocks per the chain consensus rules.
	ErrTimeTooOld = ErrorKind("ErrTimeTooOld")

	// ErrTimeTooNew indicates the time is too far in the future as compared
	// the current time.
	ErrTimeTooNew = ErrorKind("ErrTimeTooNew")

	// ErrInvalidBlockReward indicates the reward of a block is malformed.
	ErrInvalidBlockReward = ErrorKind("ErrInvalidBlockReward")

	// ErrMissingStakeKernel indicates the output a proof-of-stake block
	// uses as its kernel does not exist before the block.
	ErrMissingStakeKernel = ErrorKind("ErrMissingStakeKernel")

	// ErrInvalidAncestorHeight indicates an ancestor was requested at a
	// height above the block it is requested for.
	ErrInvalidAncestorHeight = ErrorKind("ErrInvalidAncestorHeight")

	// ErrBlockNotFound indicates a requested block is not known.
	ErrBlockNotFound = ErrorKind("ErrBlockNotFound")

	// ErrBlockAtHeightNotFound indicates the main chain has no block at a
	// requested height.
	ErrBlockAtHeightNotFound = ErrorKind("ErrBlockAtHeightNotFound")

	// ErrGenesisMismatch indicates the database holds a chain that does
	// not start with the configured genesis block.
	ErrGenesisMismatch = ErrorKind("ErrGenesisMismatch")

	// ErrBlock1Missing indicates the database has a best block other than
	// genesis but no block at height one.
	ErrBlock1Missing = ErrorKind("ErrBlock1Missing")

	// ErrTxIndexConfig indicates the transaction index setting does not
	// match the database or a transaction index query was made while the
	// index is disabled.
	ErrTxIndexConfig = ErrorKind("ErrTxIndexConfig")

	// ErrStoreVersionMismatch indicates the database was written by an
	// unsupported version.
	ErrStoreVersionMismatch = ErrorKind("ErrStoreVersionMismatch")

	// ErrDatabaseCommit indicates a block could not be committed within
	// the configured number of attempts.
	ErrDatabaseCommit = ErrorKind("ErrDatabaseCommit")

	// ErrPoSAccountingDeltaNotFound indicates the accounting delta of a
	// block that is about to be sealed is missing.
	ErrPoSAccountingDeltaNotFound = ErrorKind("ErrPoSAccountingDeltaNotFound")

	// ErrReorgBelowSealedEpoch indicates a reorganization would disconnect
	// blocks of a sealed epoch.
	ErrReorgBelowSealedEpoch = ErrorKind("ErrReorgBelowSealedEpoch")

	// ErrEpochSeal indicates the accounting of an epoch could not be
	// sealed.
	ErrEpochSeal = ErrorKind("ErrEpochSeal")

	// ErrDetachedHeaders indicates a list of headers does not form a chain
	// attached to a known block.
	ErrDetachedHeaders = ErrorKind("ErrDetachedHeaders")

	// ErrGenesisHeaderRequested indicates block index data was requested
	// for the genesis block, which has none.
	ErrGenesisHeaderRequested = ErrorKind("ErrGenesisHeaderRequested")
)

// Error satisfies the error interface and prints human-readable errors.
func (e ErrorKind) Error() string {
	return string(e)
}

// ContextError wraps an error with additional context.  It has full support
// for errors.Is and errors.As, so the caller can ascertain the specific wrapped
// error.
//
// It is used to indicate operational and configuration failures as opposed to
// blocks violating the consensus rules.
type ContextError struct {
	Err         error
	Description string
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

// RuleError identifies a rule violation.  It has full support for errors.Is
// and errors.As, so the caller can ascertain the specific reason for the
// error by checking the underlying error.
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

// unknownBlockError returns a RuleError of kind ErrBlockNotFound for the
// given block hash.
func unknownBlockError(hash *chainhash.Hash) RuleError {
	return ruleError(ErrBlockNotFound, "block "+hash.String()+" is not known")
}

// isValidationError returns whether err reports a block or one of its
// transactions violating a consensus rule, as opposed to an operational
// failure.
func isValidationError(err error) bool {
	var (
		chainErr     RuleError
		verifierErr  txverifier.RuleError
		consensusErr consensus.RuleError
		utxoErr      utxo.RuleError
		acctErr      posaccounting.RuleError
		amountErr    amount.RuleError
		sigErr       signature.Error
	)
	return errors.As(err, &chainErr) || errors.As(err, &verifierErr) ||
		errors.As(err, &consensusErr) || errors.As(err, &utxoErr) ||
		errors.As(err, &acctErr) || errors.As(err, &amountErr) ||
		errors.As(err, &sigErr)
}
