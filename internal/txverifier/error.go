// Copyright (c) 2014-2016 The btcsuite developers
// Copyright (c) 2015-2022 The Decred developers
// Copyright (c) 2026 The stakechain developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package txverifier

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

// These constants are used to identify a specific RuleError.
const (
	// ErrMissingOutputOrSpent indicates a transaction references an output
	// that does not exist or was already spent.
	ErrMissingOutputOrSpent = ErrorKind("ErrMissingOutputOrSpent")

	// ErrAttemptToPrintMoney indicates a transaction or block reward pays
	// out more than it is funded with.
	ErrAttemptToPrintMoney = ErrorKind("ErrAttemptToPrintMoney")

	// ErrAttemptToSpendBurnedAmount indicates an input spends an output
	// that can never be spent.
	ErrAttemptToSpendBurnedAmount = ErrorKind("ErrAttemptToSpendBurnedAmount")

	// ErrImmatureBlockRewardSpend indicates a transaction spends a block
	// reward output before it reached maturity.
	ErrImmatureBlockRewardSpend = ErrorKind("ErrImmatureBlockRewardSpend")

	// ErrTimelockNotSatisfied indicates a transaction spends a locked
	// output before its lock expired.
	ErrTimelockNotSatisfied = ErrorKind("ErrTimelockNotSatisfied")

	// ErrInvalidInputPurpose indicates an input spends an output whose
	// purpose is not allowed in that position.
	ErrInvalidInputPurpose = ErrorKind("ErrInvalidInputPurpose")

	// ErrInvalidOutputPurpose indicates a transaction creates an output
	// whose purpose is not allowed given its inputs.
	ErrInvalidOutputPurpose = ErrorKind("ErrInvalidOutputPurpose")

	// ErrInvalidOutputTypeInReward indicates a block reward pays to an
	// output purpose rewards may not use.
	ErrInvalidOutputTypeInReward = ErrorKind("ErrInvalidOutputTypeInReward")

	// ErrPoolDataNotFound indicates a stake pool referenced by a
	// transaction or block reward does not exist.
	ErrPoolDataNotFound = ErrorKind("ErrPoolDataNotFound")

	// ErrStakePoolDataMismatch indicates the kernel and reward of a
	// proof-of-stake block reference different pools.
	ErrStakePoolDataMismatch = ErrorKind("ErrStakePoolDataMismatch")

	// ErrNoBlockRewardOutputs indicates a proof-of-stake block reward has
	// no outputs.
	ErrNoBlockRewardOutputs = ErrorKind("ErrNoBlockRewardOutputs")

	// ErrMultipleBlockRewardOutputs indicates a proof-of-stake block
	// reward has more than one output.
	ErrMultipleBlockRewardOutputs = ErrorKind("ErrMultipleBlockRewardOutputs")

	// ErrInvalidStakeRewardAmount indicates the output of a proof-of-stake
	// block reward carries an amount other than zero or the pool balance.
	ErrInvalidStakeRewardAmount = ErrorKind("ErrInvalidStakeRewardAmount")

	// ErrTokensInBlockReward indicates a block reward pays out tokens.
	ErrTokensInBlockReward = ErrorKind("ErrTokensInBlockReward")

	// ErrTokenIssuanceInvalid indicates a token issuance violates the
	// ticker, decimals, supply or metadata limits.
	ErrTokenIssuanceInvalid = ErrorKind("ErrTokenIssuanceInvalid")

	// ErrInsufficientTokenFees indicates a token issuing transaction burns
	// fewer coins than the issuance fee.
	ErrInsufficientTokenFees = ErrorKind("ErrInsufficientTokenFees")

	// ErrTokenAlreadyIssued indicates a token id is already registered.
	ErrTokenAlreadyIssued = ErrorKind("ErrTokenAlreadyIssued")

	// ErrMultipleTokenIssuance indicates a transaction issues more than
	// one token.
	ErrMultipleTokenIssuance = ErrorKind("ErrMultipleTokenIssuance")

	// ErrTxIndexAlreadySpent indicates the transaction index already marks
	// a spent output as spent.
	ErrTxIndexAlreadySpent = ErrorKind("ErrTxIndexAlreadySpent")

	// ErrTxIndexNotFound indicates the transaction index has no entry for
	// a transaction it is expected to contain.
	ErrTxIndexNotFound = ErrorKind("ErrTxIndexNotFound")

	// ErrTxIndexAlreadyExists indicates the transaction index already has
	// an entry for a transaction being connected.
	ErrTxIndexAlreadyExists = ErrorKind("ErrTxIndexAlreadyExists")

	// ErrMissingTxUndo indicates no undo data exists for a transaction
	// being disconnected.
	ErrMissingTxUndo = ErrorKind("ErrMissingTxUndo")

	// ErrMissingBlockUndo indicates no undo data exists for a block being
	// disconnected.
	ErrMissingBlockUndo = ErrorKind("ErrMissingBlockUndo")

	// ErrTxNumWrongInBlock indicates a transaction position does not exist
	// in its block.
	ErrTxNumWrongInBlock = ErrorKind("ErrTxNumWrongInBlock")

	// ErrFeeOverflow indicates the fees of a block overflow.
	ErrFeeOverflow = ErrorKind("ErrFeeOverflow")

	// ErrSignatureVerificationFailed indicates an input witness does not
	// satisfy the destination of the output it spends.
	ErrSignatureVerificationFailed = ErrorKind("ErrSignatureVerificationFailed")

	// ErrRewardAdditionError indicates the subsidy and fees of a block
	// overflow when added.
	ErrRewardAdditionError = ErrorKind("ErrRewardAdditionError")

	// ErrAmountOverflow indicates the inputs or outputs of a transaction
	// overflow when summed.
	ErrAmountOverflow = ErrorKind("ErrAmountOverflow")
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
