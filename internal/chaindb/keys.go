// Copyright (c) 2021-2024 The Decred developers
// Copyright (c) 2026 The stakechain developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package chaindb

import "encoding/binary"

// Bucket represents a top level key set in the database.  All keys start with
// the single byte identifying their bucket:
//
//	Bucket               Key after the bucket byte    Value
//	info                 name                         see the info keys
//	blocks               block id                     serialized block
//	blockindex           block id                     serialized block index
//	mainchain            height (uint64 BE)           block id
//	txindex              tx id                        tx main chain index
//	utxoundo             block id                     utxo block undo
//	accountingundo       block id                     accounting block undo
//	accountingdelta      block id                     accounting block delta
//	epochdata            epoch index (uint64 BE)      epoch data
//	tokenaux             token id                     token aux data
//	tokenbytx            tx id                        token id
//	utxoset              outpoint key                 utxo
//	accountingtip        accounting key               accounting value
//	accountingsealed     accounting key               accounting value
type Bucket byte

// These constants define the buckets.
const (
	BucketInfo Bucket = iota + 1
	BucketBlocks
	BucketBlockIndex
	BucketMainChain
	BucketTxIndex
	BucketUtxoUndo
	BucketAccountingUndo
	BucketAccountingDelta
	BucketEpochData
	BucketTokenAux
	BucketTokenByTx
	BucketUtxoSet
	BucketAccountingTip
	BucketAccountingSealed
)

// Prefix returns the key prefix shared by every key in the bucket.
func (b Bucket) Prefix() []byte {
	return []byte{byte(b)}
}

// Key returns the key made of the bucket byte followed by the given parts.
func (b Bucket) Key(parts ...[]byte) []byte {
	size := 1
	for _, part := range parts {
		size += len(part)
	}
	key := make([]byte, 1, size)
	key[0] = byte(b)
	for _, part := range parts {
		key = append(key, part...)
	}
	return key
}

// Uint64Key returns the big endian encoding of v.  Big endian keys iterate in
// numeric order.
func Uint64Key(v uint64) []byte {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], v)
	return b[:]
}

// These variables define the keys of the info bucket.
var (
	// VersionKey houses the storage version.
	VersionKey = BucketInfo.Key([]byte("version"))

	// BestBlockKey houses the id of the best block.
	BestBlockKey = BucketInfo.Key([]byte("bestblock"))

	// UtxoBestBlockKey houses the id of the block the UTXO set is
	// consistent with.
	UtxoBestBlockKey = BucketInfo.Key([]byte("utxobest"))

	// TxIndexEnabledKey houses whether the transaction index is
	// maintained.
	TxIndexEnabledKey = BucketInfo.Key([]byte("txindex"))

	// LastSealedEpochKey houses the index of the last sealed epoch.
	LastSealedEpochKey = BucketInfo.Key([]byte("sealedepoch"))
)
