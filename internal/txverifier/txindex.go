// Copyright (c) 2026 The stakechain developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package txverifier

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/decred/dcrd/chaincfg/chainhash"
	dcrwire "github.com/decred/dcrd/wire"
	"github.com/jrick/bitset"
	"github.com/stakechain/chaind/internal/chaindb"
	"github.com/stakechain/chaind/wire"
)

// maxIndexedOutputs bounds the output count of a decoded index entry.
const maxIndexedOutputs = 1 << 20

// TxPosition locates a transaction within its serialized block.
type TxPosition struct {
	Offset uint32
	Len    uint32
}

// TxMainChainIndex locates a main chain transaction and tracks which of its
// outputs are spent by main chain transactions.
type TxMainChainIndex struct {
	BlockHash  chainhash.Hash
	Position   TxPosition
	NumOutputs uint32
	Spent      bitset.Bytes
}

// NewTxMainChainIndex returns an index entry with every output unspent.
func NewTxMainChainIndex(blockHash chainhash.Hash, pos TxPosition, numOutputs uint32) *TxMainChainIndex {
	return &TxMainChainIndex{
		BlockHash:  blockHash,
		Position:   pos,
		NumOutputs: numOutputs,
		Spent:      bitset.NewBytes(int(numOutputs)),
	}
}

// IsSpent returns whether the output at the given index is spent.
func (i *TxMainChainIndex) IsSpent(idx uint32) bool {
	return idx < i.NumOutputs && i.Spent.Get(int(idx))
}

// AnySpent returns whether any output is spent.
func (i *TxMainChainIndex) AnySpent() bool {
	for _, b := range i.Spent {
		if b != 0 {
			return true
		}
	}
	return false
}

// Clone returns a deep copy of the entry.
func (i *TxMainChainIndex) Clone() *TxMainChainIndex {
	c := *i
	c.Spent = append(bitset.Bytes(nil), i.Spent...)
	return &c
}

// Serialize returns the serialized entry.
func (i *TxMainChainIndex) Serialize() []byte {
	var buf bytes.Buffer
	buf.Write(i.BlockHash[:])
	var b [8]byte
	binary.LittleEndian.PutUint32(b[:4], i.Position.Offset)
	binary.LittleEndian.PutUint32(b[4:], i.Position.Len)
	buf.Write(b[:])
	_ = dcrwire.WriteVarInt(&buf, dcrwire.ProtocolVersion, uint64(i.NumOutputs))
	buf.Write(i.Spent)
	return buf.Bytes()
}

// DeserializeTxMainChainIndex decodes an entry produced by Serialize.
func DeserializeTxMainChainIndex(b []byte) (*TxMainChainIndex, error) {
	r := bytes.NewReader(b)
	var i TxMainChainIndex
	var fixed [chainhash.HashSize + 8]byte
	if _, err := io.ReadFull(r, fixed[:]); err != nil {
		return nil, chaindb.DecodeError(fmt.Sprintf("malformed tx index "+
			"entry: %v", err))
	}
	copy(i.BlockHash[:], fixed[:])
	i.Position.Offset = binary.LittleEndian.Uint32(fixed[chainhash.HashSize:])
	i.Position.Len = binary.LittleEndian.Uint32(fixed[chainhash.HashSize+4:])
	n, err := dcrwire.ReadVarInt(r, dcrwire.ProtocolVersion)
	if err != nil || n > maxIndexedOutputs {
		return nil, chaindb.DecodeError(fmt.Sprintf("malformed tx index "+
			"output count %d: %v", n, err))
	}
	i.NumOutputs = uint32(n)
	i.Spent = bitset.NewBytes(int(n))
	if r.Len() != len(i.Spent) {
		return nil, chaindb.DecodeError(fmt.Sprintf("tx index spent map "+
			"has %d bytes instead of %d", r.Len(), len(i.Spent)))
	}
	_, _ = r.Read(i.Spent)
	return &i, nil
}

// TxIndexView provides read access to the transaction index.
type TxIndexView interface {
	// FetchTxIndex returns the index entry of the transaction or nil when
	// it is not indexed.
	FetchTxIndex(txHash chainhash.Hash) (*TxMainChainIndex, error)
}

// txIndexCache is an in-memory layer of index modifications over a parent
// view.  A nil entry marks an erased index.
type txIndexCache struct {
	parent   TxIndexView
	entries  map[chainhash.Hash]*TxMainChainIndex
	modified map[chainhash.Hash]struct{}
}

func newTxIndexCache(parent TxIndexView) *txIndexCache {
	return &txIndexCache{
		parent:   parent,
		entries:  make(map[chainhash.Hash]*TxMainChainIndex),
		modified: make(map[chainhash.Hash]struct{}),
	}
}

// FetchTxIndex returns the index entry of the transaction.  It is part of the
// TxIndexView interface.
func (c *txIndexCache) FetchTxIndex(txHash chainhash.Hash) (*TxMainChainIndex, error) {
	if entry, ok := c.entries[txHash]; ok {
		return entry, nil
	}
	entry, err := c.parent.FetchTxIndex(txHash)
	if err != nil || entry == nil {
		return nil, err
	}
	entry = entry.Clone()
	c.entries[txHash] = entry
	return entry, nil
}

func (c *txIndexCache) set(txHash chainhash.Hash, entry *TxMainChainIndex) {
	c.entries[txHash] = entry
	c.modified[txHash] = struct{}{}
}

// checkAdd ensures the transaction is not indexed yet.
func (c *txIndexCache) checkAdd(txHash chainhash.Hash) error {
	entry, err := c.FetchTxIndex(txHash)
	if err != nil {
		return err
	}
	if entry != nil {
		str := fmt.Sprintf("transaction %v is already indexed in block %v",
			txHash, entry.BlockHash)
		return ruleError(ErrTxIndexAlreadyExists, str)
	}
	return nil
}

func (c *txIndexCache) add(txHash chainhash.Hash, entry *TxMainChainIndex) error {
	if err := c.checkAdd(txHash); err != nil {
		return err
	}
	c.set(txHash, entry)
	return nil
}

func (c *txIndexCache) remove(txHash chainhash.Hash) error {
	entry, err := c.FetchTxIndex(txHash)
	if err != nil {
		return err
	}
	if entry == nil {
		str := fmt.Sprintf("transaction %v is not indexed", txHash)
		return ruleError(ErrTxIndexNotFound, str)
	}
	c.set(txHash, nil)
	return nil
}

// spentEntry returns the index entry holding the output and whether the output
// is currently marked spent.
func (c *txIndexCache) spentEntry(op *wire.OutPoint) (*TxMainChainIndex, bool, error) {
	entry, err := c.FetchTxIndex(op.Hash)
	if err != nil {
		return nil, false, err
	}
	if entry == nil || op.Index >= entry.NumOutputs {
		str := fmt.Sprintf("output %v is not indexed", op)
		return nil, false, ruleError(ErrTxIndexNotFound, str)
	}
	return entry, entry.IsSpent(op.Index), nil
}

// checkSpend ensures the output is indexed and unspent.
func (c *txIndexCache) checkSpend(op *wire.OutPoint) error {
	_, spent, err := c.spentEntry(op)
	if err != nil {
		return err
	}
	if spent {
		str := fmt.Sprintf("output %v is already marked spent", op)
		return ruleError(ErrTxIndexAlreadySpent, str)
	}
	return nil
}

func (c *txIndexCache) spend(op *wire.OutPoint) error {
	if err := c.checkSpend(op); err != nil {
		return err
	}
	entry, _, _ := c.spentEntry(op)
	entry.Spent.Set(int(op.Index))
	c.modified[op.Hash] = struct{}{}
	return nil
}

func (c *txIndexCache) unspend(op *wire.OutPoint) error {
	entry, spent, err := c.spentEntry(op)
	if err != nil {
		return err
	}
	if !spent {
		str := fmt.Sprintf("output %v is not marked spent", op)
		return ruleError(ErrTxIndexNotFound, str)
	}
	entry.Spent.Unset(int(op.Index))
	c.modified[op.Hash] = struct{}{}
	return nil
}

// consume returns the modified entries, nil marking erased ones, and resets
// the cache.
func (c *txIndexCache) consume() map[chainhash.Hash]*TxMainChainIndex {
	consumed := make(map[chainhash.Hash]*TxMainChainIndex, len(c.modified))
	for txHash := range c.modified {
		consumed[txHash] = c.entries[txHash]
	}
	c.entries = make(map[chainhash.Hash]*TxMainChainIndex)
	c.modified = make(map[chainhash.Hash]struct{})
	return consumed
}

// merge applies entries consumed from a cache layered over this one.
func (c *txIndexCache) merge(consumed map[chainhash.Hash]*TxMainChainIndex) {
	for txHash, entry := range consumed {
		c.set(txHash, entry)
	}
}
