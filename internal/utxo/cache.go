// Copyright (c) 2015-2016 The btcsuite developers
// Copyright (c) 2015-2024 The Decred developers
// Copyright (c) 2026 The stakechain developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package utxo

import (
	"fmt"

	"github.com/decred/dcrd/chaincfg/chainhash"
	"github.com/stakechain/chaind/wire"
)

// View is the read side of a UTXO set.  It is implemented by the database
// backed view as well as by every Cache, which allows caches to be layered on
// top of each other.
type View interface {
	// FetchEntry returns the unspent entry for the given outpoint.  It
	// returns nil for both the entry and the error when the outpoint does
	// not reference an unspent output.  The returned entry must not be
	// modified.
	FetchEntry(op wire.OutPoint) (*Entry, error)

	// BestBlock returns the id of the block the view is consistent with.
	BestBlock() (chainhash.Hash, error)
}

// Cache is an in-memory delta over a parent view.  Reads fall through to the
// parent and are cached, while every modification is recorded only in the
// cache until it is consumed and written to the layer beneath it.
//
// A Cache is not safe for concurrent use.
type Cache struct {
	parent    View
	entries   map[wire.OutPoint]*Entry
	bestBlock *chainhash.Hash
}

// Ensure Cache implements the View interface.
var _ View = (*Cache)(nil)

// NewCache returns an empty cache layered over the given view.
func NewCache(parent View) *Cache {
	return &Cache{
		parent:  parent,
		entries: make(map[wire.OutPoint]*Entry),
	}
}

// lookup returns the cached entry for the outpoint, loading it from the
// parent when it is not cached yet.  Spent entries are returned as is.
func (c *Cache) lookup(op wire.OutPoint) (*Entry, error) {
	if entry, ok := c.entries[op]; ok {
		return entry, nil
	}
	entry, err := c.parent.FetchEntry(op)
	if err != nil || entry == nil {
		return nil, err
	}
	entry = entry.Clone()
	entry.state = 0
	c.entries[op] = entry
	return entry, nil
}

// FetchEntry returns the unspent entry for the given outpoint.  It is part of
// the View interface.
func (c *Cache) FetchEntry(op wire.OutPoint) (*Entry, error) {
	entry, err := c.lookup(op)
	if err != nil || entry == nil || entry.IsSpent() {
		return nil, err
	}
	return entry, nil
}

// HasEntry returns whether the outpoint references an unspent output.
func (c *Cache) HasEntry(op wire.OutPoint) (bool, error) {
	entry, err := c.FetchEntry(op)
	return entry != nil, err
}

// BestBlock returns the best block set on the cache, or the parent's when the
// cache has none.  It is part of the View interface.
func (c *Cache) BestBlock() (chainhash.Hash, error) {
	if c.bestBlock != nil {
		return *c.bestBlock, nil
	}
	return c.parent.BestBlock()
}

// SetBestBlock sets the id of the block the cache is consistent with.
func (c *Cache) SetBestBlock(hash chainhash.Hash) {
	c.bestBlock = &hash
}

// AddEntry inserts an unspent entry for the outpoint.  Adding over an unspent
// output fails with ErrUtxoAlreadyExists unless overwrite is set.
func (c *Cache) AddEntry(op wire.OutPoint, entry *Entry, overwrite bool) error {
	existing, err := c.lookup(op)
	if err != nil {
		return err
	}
	if existing != nil && !existing.IsSpent() && !overwrite {
		str := fmt.Sprintf("output %v already exists", op)
		return ruleError(ErrUtxoAlreadyExists, str)
	}

	// An entry the parent does not know about is fresh, meaning it can be
	// dropped entirely once spent instead of being written as a deletion.
	// Replacing an entry keeps its fresh flag.
	fresh := existing == nil || existing.isFresh()

	added := entry.Clone()
	added.state = stateModified
	if fresh {
		added.state |= stateFresh
	}
	c.entries[op] = added
	return nil
}

// Spend marks the output referenced by the outpoint as spent and returns the
// entry it held.  Spending a missing or spent output fails with
// ErrMissingOutputOrSpent.
func (c *Cache) Spend(op wire.OutPoint) (*Entry, error) {
	entry, err := c.lookup(op)
	if err != nil {
		return nil, err
	}
	if entry == nil || entry.IsSpent() {
		str := fmt.Sprintf("output %v does not exist or is already spent", op)
		return nil, ruleError(ErrMissingOutputOrSpent, str)
	}

	spent := entry.Clone()
	spent.state = 0
	if entry.isFresh() {
		delete(c.entries, op)
		return spent, nil
	}
	entry.state |= stateSpent | stateModified
	return spent, nil
}

// fetchInputs returns the entries spent by the given inputs without modifying
// the cache.  An input that is missing, spent, or referenced twice fails with
// ErrMissingOutputOrSpent.
func (c *Cache) fetchInputs(inputs []*wire.TxIn) ([]*Entry, error) {
	seen := make(map[wire.OutPoint]struct{}, len(inputs))
	entries := make([]*Entry, 0, len(inputs))
	for _, txIn := range inputs {
		op := txIn.PreviousOutPoint
		if _, ok := seen[op]; ok {
			str := fmt.Sprintf("output %v is spent twice", op)
			return nil, ruleError(ErrMissingOutputOrSpent, str)
		}
		seen[op] = struct{}{}

		entry, err := c.FetchEntry(op)
		if err != nil {
			return nil, err
		}
		if entry == nil {
			str := fmt.Sprintf("output %v does not exist or is already "+
				"spent", op)
			return nil, ruleError(ErrMissingOutputOrSpent, str)
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// checkNewOutputs ensures none of the spendable outputs created under the
// given hash and source already exist.
func (c *Cache) checkNewOutputs(hash *chainhash.Hash, source wire.OutPointSource,
	outputs []*wire.TxOut) error {

	for i, out := range outputs {
		if _, ok := out.SpendDestination(); !ok {
			continue
		}
		op := wire.OutPoint{Hash: *hash, Source: source, Index: uint32(i)}
		exists, err := c.HasEntry(op)
		if err != nil {
			return err
		}
		if exists {
			str := fmt.Sprintf("output %v already exists", op)
			return ruleError(ErrUtxoAlreadyExists, str)
		}
	}
	return nil
}

// addOutputs inserts the spendable outputs created under the given hash and
// source.  Burns, delegations and other unspendable outputs never enter the
// UTXO set.
func (c *Cache) addOutputs(hash *chainhash.Hash, source wire.OutPointSource,
	outputs []*wire.TxOut, height int64) error {

	isReward := source == wire.SourceBlockReward
	for i, out := range outputs {
		if _, ok := out.SpendDestination(); !ok {
			continue
		}
		op := wire.OutPoint{Hash: *hash, Source: source, Index: uint32(i)}
		if err := c.AddEntry(op, NewEntry(out, height, isReward), false); err != nil {
			return err
		}
	}
	return nil
}

// removeOutputs spends the spendable outputs created under the given hash and
// source.  Every one of them must still be unspent.
func (c *Cache) removeOutputs(hash *chainhash.Hash, source wire.OutPointSource,
	outputs []*wire.TxOut) error {

	for i, out := range outputs {
		if _, ok := out.SpendDestination(); !ok {
			continue
		}
		op := wire.OutPoint{Hash: *hash, Source: source, Index: uint32(i)}
		if _, err := c.Spend(op); err != nil {
			return err
		}
	}
	return nil
}

// spendInputs spends every input and returns the entries they held.  The
// inputs must have been validated with fetchInputs.
func (c *Cache) spendInputs(inputs []*wire.TxIn) ([]*Entry, error) {
	spent := make([]*Entry, 0, len(inputs))
	for _, txIn := range inputs {
		entry, err := c.Spend(txIn.PreviousOutPoint)
		if err != nil {
			return nil, err
		}
		spent = append(spent, entry)
	}
	return spent, nil
}

// CanConnectTransaction returns an error when the transaction cannot be
// connected to the cache: one of its inputs is missing or spent, or one of its
// outputs already exists.
func (c *Cache) CanConnectTransaction(tx *wire.MsgTx) error {
	if _, err := c.fetchInputs(tx.TxIn); err != nil {
		return err
	}
	txHash := tx.TxHash()
	return c.checkNewOutputs(&txHash, wire.SourceTransaction, tx.TxOut)
}

// ConnectTransaction spends the inputs of the transaction, adds its spendable
// outputs at the given height and returns the undo data needed to reverse the
// change.  The cache is not modified when an error is returned.
func (c *Cache) ConnectTransaction(tx *wire.MsgTx, height int64) (*TxUndo, error) {
	if err := c.CanConnectTransaction(tx); err != nil {
		return nil, err
	}
	spent, err := c.spendInputs(tx.TxIn)
	if err != nil {
		return nil, err
	}
	txHash := tx.TxHash()
	if err := c.addOutputs(&txHash, wire.SourceTransaction, tx.TxOut, height); err != nil {
		return nil, err
	}
	return &TxUndo{Spent: spent}, nil
}

// CanDisconnectTransaction returns whether every spendable output of the
// transaction is still unspent.  An output spent by a later transaction makes
// the transaction impossible to disconnect.
func (c *Cache) CanDisconnectTransaction(tx *wire.MsgTx) (bool, error) {
	txHash := tx.TxHash()
	for i, out := range tx.TxOut {
		if _, ok := out.SpendDestination(); !ok {
			continue
		}
		op := wire.OutPoint{Hash: txHash, Source: wire.SourceTransaction,
			Index: uint32(i)}
		exists, err := c.HasEntry(op)
		if err != nil || !exists {
			return false, err
		}
	}
	return true, nil
}

// DisconnectTransaction reverses ConnectTransaction: the outputs of the
// transaction are removed and the spent inputs are restored from the undo
// data.
func (c *Cache) DisconnectTransaction(tx *wire.MsgTx, undo *TxUndo) error {
	if undo == nil || len(undo.Spent) != len(tx.TxIn) {
		str := fmt.Sprintf("undo data for transaction %v does not match "+
			"its %d inputs", tx.TxHash(), len(tx.TxIn))
		return ruleError(ErrUndoMismatch, str)
	}
	ok, err := c.CanDisconnectTransaction(tx)
	if err != nil {
		return err
	}
	if !ok {
		str := fmt.Sprintf("outputs of transaction %v are spent or "+
			"missing", tx.TxHash())
		return ruleError(ErrMissingOutputOrSpent, str)
	}

	txHash := tx.TxHash()
	if err := c.removeOutputs(&txHash, wire.SourceTransaction, tx.TxOut); err != nil {
		return err
	}
	return c.restoreInputs(tx.TxIn, undo.Spent)
}

// restoreInputs adds the undo entries back for the given inputs in reverse
// order.
func (c *Cache) restoreInputs(inputs []*wire.TxIn, spent []*Entry) error {
	for i := len(inputs) - 1; i >= 0; i-- {
		op := inputs[i].PreviousOutPoint
		if err := c.AddEntry(op, spent[i], false); err != nil {
			return err
		}
	}
	return nil
}

// ConnectBlockReward spends the stake kernel inputs of the block and adds the
// reward outputs as block reward entries at the given height.
func (c *Cache) ConnectBlockReward(blockHash *chainhash.Hash, reward *wire.BlockReward,
	kernelInputs []*wire.TxIn, height int64) (*BlockRewardUndo, error) {

	if _, err := c.fetchInputs(kernelInputs); err != nil {
		return nil, err
	}
	if err := c.checkNewOutputs(blockHash, wire.SourceBlockReward, reward.Outputs); err != nil {
		return nil, err
	}
	spent, err := c.spendInputs(kernelInputs)
	if err != nil {
		return nil, err
	}
	err = c.addOutputs(blockHash, wire.SourceBlockReward, reward.Outputs, height)
	if err != nil {
		return nil, err
	}
	return &BlockRewardUndo{Spent: spent}, nil
}

// DisconnectBlockReward reverses ConnectBlockReward.
func (c *Cache) DisconnectBlockReward(blockHash *chainhash.Hash, reward *wire.BlockReward,
	kernelInputs []*wire.TxIn, undo *BlockRewardUndo) error {

	if undo == nil {
		str := fmt.Sprintf("no block reward undo data for block %v", blockHash)
		return ruleError(ErrMissingBlockRewardUndo, str)
	}
	if len(undo.Spent) != len(kernelInputs) {
		str := fmt.Sprintf("block reward undo data for block %v does not "+
			"match its %d kernel inputs", blockHash, len(kernelInputs))
		return ruleError(ErrUndoMismatch, str)
	}
	if err := c.removeOutputs(blockHash, wire.SourceBlockReward, reward.Outputs); err != nil {
		return err
	}
	return c.restoreInputs(kernelInputs, undo.Spent)
}

// ConsumedCache is the set of modifications of a cache, ready to be written
// to the layer beneath it.
type ConsumedCache struct {
	Entries   map[wire.OutPoint]*Entry
	BestBlock *chainhash.Hash
}

// Consume returns the modified entries of the cache and resets it.
func (c *Cache) Consume() *ConsumedCache {
	consumed := &ConsumedCache{
		Entries:   make(map[wire.OutPoint]*Entry),
		BestBlock: c.bestBlock,
	}
	for op, entry := range c.entries {
		if entry.isModified() {
			consumed.Entries[op] = entry
		}
	}
	c.entries = make(map[wire.OutPoint]*Entry)
	c.bestBlock = nil
	return consumed
}

// BatchWrite merges modifications consumed from a cache layered over this one.
func (c *Cache) BatchWrite(consumed *ConsumedCache) error {
	for op, child := range consumed.Entries {
		parent, ok := c.entries[op]
		if !ok {
			// A spent fresh entry never reaches here since it is
			// dropped when spent.
			merged := child.Clone()
			merged.state = child.state & (stateSpent | stateFresh)
			merged.state |= stateModified
			c.entries[op] = merged
			continue
		}

		if child.isFresh() && !parent.IsSpent() {
			return AssertError(fmt.Sprintf("fresh output %v already "+
				"exists in the parent cache", op))
		}

		if child.IsSpent() {
			if parent.isFresh() {
				delete(c.entries, op)
				continue
			}
			parent.state |= stateSpent | stateModified
			continue
		}

		merged := child.Clone()
		merged.state = stateModified | parent.state&stateFresh
		c.entries[op] = merged
	}
	if consumed.BestBlock != nil {
		c.SetBestBlock(*consumed.BestBlock)
	}
	return nil
}
