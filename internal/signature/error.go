// Copyright (c) 2026 The stakechain developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package signature

// ErrorKind identifies a kind of error.  It has full support for errors.Is and
// errors.As, so the caller can directly check against an error kind when
// determining the reason for an error.
type ErrorKind string

// These constants are used to identify a specific ErrorKind.
const (
	// ErrSignatureInvalid indicates a signature does not verify against
	// the committed message and public key.
	ErrSignatureInvalid = ErrorKind("ErrSignatureInvalid")

	// ErrPublicKeyMismatch indicates the public key supplied in a witness
	// does not hash to the address being spent.
	ErrPublicKeyMismatch = ErrorKind("ErrPublicKeyMismatch")

	// ErrUnsupportedDestination indicates the destination being spent
	// cannot be satisfied by any witness.
	ErrUnsupportedDestination = ErrorKind("ErrUnsupportedDestination")

	// ErrMalformedWitness indicates the witness could not be parsed for the
	// destination being spent.
	ErrMalformedWitness = ErrorKind("ErrMalformedWitness")

	// ErrVRFInvalid indicates a VRF proof does not verify.
	ErrVRFInvalid = ErrorKind("ErrVRFInvalid")
)

// Error satisfies the error interface and prints human-readable errors.
func (e ErrorKind) Error() string {
	return string(e)
}

// Error identifies a signature verification failure.  It has full support for
// errors.Is and errors.As, so the caller can ascertain the specific reason for
// the error by checking the underlying error.
type Error struct {
	Err         error
	Description string
}

// Error satisfies the error interface and prints human-readable errors.
func (e Error) Error() string {
	return e.Description
}

// Unwrap returns the underlying wrapped error.
func (e Error) Unwrap() error {
	return e.Err
}

// sigError creates an Error given a set of arguments.
func sigError(kind ErrorKind, desc string) Error {
	return Error{Err: kind, Description: desc}
}
