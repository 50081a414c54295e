// Copyright (c) 2013-2017 The btcsuite developers
// Copyright (c) 2015-2024 The Decred developers
// Copyright (c) 2026 The stakechain developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockchain

import (
	"bytes"
	"encoding/binary"
	"sort"
	"time"

	"github.com/decred/dcrd/chaincfg/chainhash"
	"github.com/decred/dcrd/math/uint256"
	"github.com/stakechain/chaind/internal/chaindb"
	"github.com/stakechain/chaind/internal/consensus"
	"github.com/stakechain/chaind/wire"
)

// medianTimeBlocks is the number of previous blocks which should be
// used to calculate the median time used to validate block timestamps.
const medianTimeBlocks = 11

// blockStatus is a bit field representing the validation state of the block.
type blockStatus byte

// The following constants specify possible status bit flags for a block.
//
// NOTE: This section specifically does not use iota since the block status is
// serialized and must be stable for long-term storage.
const (
	// statusNone indicates that the block has no validation state flags set.
	statusNone blockStatus = 0

	// statusDataStored indicates that the block's payload is stored on disk.
	statusDataStored blockStatus = 1 << 0

	// statusValidated indicates that the block has been fully validated.  It
	// also means that all of its ancestors have also been validated.
	statusValidated blockStatus = 1 << 1

	// statusValidateFailed indicates that the block has failed validation.
	statusValidateFailed blockStatus = 1 << 2

	// statusInvalidAncestor indicates that one of the ancestors of the block
	// has failed validation, thus the block is also invalid.
	statusInvalidAncestor blockStatus = 1 << 3
)

// HaveData returns whether the full block data is stored in the database.
func (status blockStatus) HaveData() bool {
	return status&statusDataStored != 0
}

// HasValidated returns whether the block is known to have been successfully
// validated.
func (status blockStatus) HasValidated() bool {
	return status&statusValidated != 0
}

// KnownValidateFailed returns whether the block is known to have failed
// validation.
func (status blockStatus) KnownValidateFailed() bool {
	return status&statusValidateFailed != 0
}

// KnownInvalidAncestor returns whether the block is known to have an invalid
// ancestor.
func (status blockStatus) KnownInvalidAncestor() bool {
	return status&statusInvalidAncestor != 0
}

// KnownInvalid returns whether either the block itself is known to be invalid
// or to have an invalid ancestor.
func (status blockStatus) KnownInvalid() bool {
	return status&(statusValidateFailed|statusInvalidAncestor) != 0
}

// GenBlockIndex is either the genesis block or the index of any other known
// block.  The genesis block has no parent and therefore no block index of its
// own.
//
// GenBlockIndex is implemented by *BlockIndex and by the genesis index of a
// chain only.
type GenBlockIndex interface {
	// Hash returns the id of the block.
	Hash() chainhash.Hash

	// Height returns the height of the block.  Genesis is at height zero.
	Height() int64

	// ChainTrust returns the cumulative trust of the chain ending with the
	// block.
	ChainTrust() uint256.Uint256

	// Timestamp returns the timestamp of the block.
	Timestamp() time.Time

	// Header returns the header of the block.
	Header() wire.BlockHeader

	genBlockIndex()
}

// genesisIndex is the GenBlockIndex of the genesis block.
type genesisIndex struct {
	hash   chainhash.Hash
	header wire.BlockHeader
}

// Ensure genesisIndex implements the GenBlockIndex interface.
var _ GenBlockIndex = (*genesisIndex)(nil)

func newGenesisIndex(genesis *wire.MsgBlock) *genesisIndex {
	return &genesisIndex{hash: genesis.BlockHash(), header: genesis.Header}
}

func (g *genesisIndex) Hash() chainhash.Hash        { return g.hash }
func (g *genesisIndex) Height() int64               { return 0 }
func (g *genesisIndex) ChainTrust() uint256.Uint256 { return uint256.Uint256{} }
func (g *genesisIndex) Timestamp() time.Time        { return g.header.Timestamp }
func (g *genesisIndex) Header() wire.BlockHeader    { return g.header }
func (g *genesisIndex) genBlockIndex()              {}

// BlockIndex is the stored metadata of a block that is not the genesis block.
// It is created once the block passed its header checks, whether or not the
// block ever becomes part of the best chain.
//
// Block indexes are immutable.  A change of the validation status produces a
// new index.
type BlockIndex struct {
	hash       chainhash.Hash
	height     int64
	chainTrust uint256.Uint256

	// skipHash is the id of the ancestor at calcSkipListHeight(height).
	skipHash chainhash.Hash

	status blockStatus
	header wire.BlockHeader
}

// Ensure BlockIndex implements the GenBlockIndex interface.
var _ GenBlockIndex = (*BlockIndex)(nil)

// newBlockIndex returns the index of a block with the given header building on
// parent.  The skip hash must be the id of the ancestor of the block at
// calcSkipListHeight of its height.
func newBlockIndex(header *wire.BlockHeader, parent GenBlockIndex, skipHash chainhash.Hash) *BlockIndex {
	trust := parent.ChainTrust()
	proof := consensus.BlockProof(header)
	trust.Add(&proof)
	return &BlockIndex{
		hash:       header.BlockHash(),
		height:     parent.Height() + 1,
		chainTrust: trust,
		skipHash:   skipHash,
		header:     *header,
	}
}

// Hash returns the id of the block.
func (idx *BlockIndex) Hash() chainhash.Hash {
	return idx.hash
}

// PrevHash returns the id of the parent of the block.
func (idx *BlockIndex) PrevHash() chainhash.Hash {
	return idx.header.PrevBlock
}

// Height returns the height of the block.
func (idx *BlockIndex) Height() int64 {
	return idx.height
}

// ChainTrust returns the cumulative trust of the chain ending with the block.
func (idx *BlockIndex) ChainTrust() uint256.Uint256 {
	return idx.chainTrust
}

// Timestamp returns the timestamp of the block.
func (idx *BlockIndex) Timestamp() time.Time {
	return idx.header.Timestamp
}

// Header returns the header of the block.
func (idx *BlockIndex) Header() wire.BlockHeader {
	return idx.header
}

// SkipHash returns the id of the ancestor the skip list links the block to.
func (idx *BlockIndex) SkipHash() chainhash.Hash {
	return idx.skipHash
}

func (idx *BlockIndex) genBlockIndex() {}

// withStatus returns a copy of the index with the given status.
func (idx *BlockIndex) withStatus(status blockStatus) *BlockIndex {
	clone := *idx
	clone.status = status
	return &clone
}

// -----------------------------------------------------------------------------
// The serialized format of a block index is:
//
//   <height><chain trust><skip hash><status><header>
//
//   Field         Type               Size
//   height        uint64             8
//   chain trust   uint256 (BE)       32
//   skip hash     chainhash.Hash     32
//   status        blockStatus        1
//   header        wire.BlockHeader   variable
//
// The block id is the key of the record.
// -----------------------------------------------------------------------------

const blockIndexFixedSize = 8 + 32 + chainhash.HashSize + 1

// serialize returns the serialized index.
func (idx *BlockIndex) serialize() ([]byte, error) {
	var buf bytes.Buffer
	buf.Grow(blockIndexFixedSize + idx.header.SerializeSize())
	var height [8]byte
	binary.LittleEndian.PutUint64(height[:], uint64(idx.height))
	buf.Write(height[:])
	trust := idx.chainTrust.Bytes()
	buf.Write(trust[:])
	buf.Write(idx.skipHash[:])
	buf.WriteByte(byte(idx.status))
	if err := idx.header.Serialize(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// deserializeBlockIndex decodes the index of the block with the given id.
func deserializeBlockIndex(hash *chainhash.Hash, b []byte) (*BlockIndex, error) {
	if len(b) < blockIndexFixedSize {
		return nil, chaindb.DecodeError("truncated block index of " +
			hash.String())
	}
	idx := &BlockIndex{hash: *hash}
	idx.height = int64(binary.LittleEndian.Uint64(b[0:8]))
	var trust [32]byte
	copy(trust[:], b[8:40])
	idx.chainTrust.SetBytes(&trust)
	copy(idx.skipHash[:], b[40:72])
	idx.status = blockStatus(b[72])
	if err := idx.header.Deserialize(bytes.NewReader(b[73:])); err != nil {
		return nil, chaindb.DecodeError("malformed header in block index of " +
			hash.String() + ": " + err.Error())
	}
	return idx, nil
}

// clearLowestOneBit clears the lowest set bit in the passed value.
func clearLowestOneBit(n int64) int64 {
	return n & (n - 1)
}

// calcSkipListHeight calculates the height of an ancestor block to use when
// constructing the ancestor traversal skip list.
func calcSkipListHeight(height int64) int64 {
	if height < 2 {
		return 0
	}

	// Since the blockchain is append only, there is no need to handle
	// random insertions or deletions, so this takes advantage of that to
	// effectively create a deterministic skip list with a single level that
	// is reasonably close to O(log n).
	//
	// The calculated height is always less than the provided height, which
	// is the only real requirement for proper operation.
	return clearLowestOneBit(clearLowestOneBit(height))
}

// timeSorter implements sort.Interface to allow a slice of timestamps to
// be sorted.
type timeSorter []int64

// Len returns the number of timestamps in the slice.  It is part of the
// sort.Interface implementation.
func (s timeSorter) Len() int {
	return len(s)
}

// Swap swaps the timestamps at the passed indices.  It is part of the
// sort.Interface implementation.
func (s timeSorter) Swap(i, j int) {
	s[i], s[j] = s[j], s[i]
}

// Less returns whether the timestamp with index i should sort before the
// timestamp with index j.  It is part of the sort.Interface implementation.
func (s timeSorter) Less(i, j int) bool {
	return s[i] < s[j]
}

// medianTime returns the median of the given timestamps, which are sorted in
// place.
//
// NOTE: For an even number of timestamps this returns the upper of the two
// middle elements instead of averaging them.  This only happens near the
// beginning of the chain.
func medianTime(timestamps []int64) time.Time {
	sort.Sort(timeSorter(timestamps))
	return time.Unix(timestamps[len(timestamps)/2], 0)
}
