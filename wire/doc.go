// Copyright (c) 2026 The stakechain developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

/*
Package wire defines the chain data types: blocks, headers with their
consensus data, block rewards, transactions, outpoints and the typed outputs
(transfers, timelocked transfers, burns, stake pools, delegations and tokens).

All integers are encoded little endian.  Counts and variable length byte
arrays use the variable length integer encoding of the Decred wire protocol.

Block identifiers are the BLAKE-256 hash of the serialized header.
Transaction identifiers exclude input witnesses.  The proof-of-work hash of a
header is its BLAKE3 hash.
*/
package wire
