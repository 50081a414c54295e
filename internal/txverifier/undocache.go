// Copyright (c) 2026 The stakechain developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package txverifier

import (
	"github.com/stakechain/chaind/internal/posaccounting"
	"github.com/stakechain/chaind/internal/utxo"
)

// blockUndo is the behavior shared by the utxo and accounting block undo
// records.
type blockUndo interface {
	*utxo.BlockUndo | *posaccounting.BlockUndo
	IsEmpty() bool
}

// undoEntry is a cached block undo record.  A record that is not present is
// scheduled for removal.
type undoEntry[U blockUndo] struct {
	undo    U
	present bool
}

// undoCache holds the block undo records touched by a verifier, keyed by
// transaction source.  Records are loaded from the parent on first use.
type undoCache[U blockUndo] struct {
	entries map[TransactionSource]*undoEntry[U]
	fetch   func(TransactionSource) (U, error)
	create  func() U
}

func newUndoCache[U blockUndo](fetch func(TransactionSource) (U, error), create func() U) *undoCache[U] {
	return &undoCache[U]{
		entries: make(map[TransactionSource]*undoEntry[U]),
		fetch:   fetch,
		create:  create,
	}
}

// lookup returns the record of the source, loading it from the parent when
// it is not cached.  The entry is nil when neither holds a record.
func (c *undoCache[U]) lookup(source TransactionSource) (*undoEntry[U], error) {
	if entry, ok := c.entries[source]; ok {
		return entry, nil
	}
	undo, err := c.fetch(source)
	if err != nil {
		return nil, err
	}
	if undo == nil {
		return nil, nil
	}
	entry := &undoEntry[U]{undo: undo, present: true}
	c.entries[source] = entry
	return entry, nil
}

// get returns the record of the source or nil when none exists.
func (c *undoCache[U]) get(source TransactionSource) (U, error) {
	var none U
	entry, err := c.lookup(source)
	if err != nil || entry == nil || !entry.present {
		return none, err
	}
	return entry.undo, nil
}

// getOrCreate returns the record of the source, creating an empty one when
// none exists.
func (c *undoCache[U]) getOrCreate(source TransactionSource) (U, error) {
	entry, err := c.lookup(source)
	if err != nil {
		var none U
		return none, err
	}
	if entry == nil {
		entry = &undoEntry[U]{}
		c.entries[source] = entry
	}
	if !entry.present {
		entry.undo = c.create()
		entry.present = true
	}
	return entry.undo, nil
}

// removeIfEmpty schedules the record of the source for removal once all of
// its data was consumed.
func (c *undoCache[U]) removeIfEmpty(source TransactionSource) {
	entry, ok := c.entries[source]
	if ok && entry.present && entry.undo.IsEmpty() {
		var none U
		entry.undo = none
		entry.present = false
	}
}

// consume returns the touched records, nil marking removed ones, and resets
// the cache.
func (c *undoCache[U]) consume() map[TransactionSource]U {
	consumed := make(map[TransactionSource]U, len(c.entries))
	for source, entry := range c.entries {
		consumed[source] = entry.undo
	}
	c.entries = make(map[TransactionSource]*undoEntry[U])
	return consumed
}

// merge applies records consumed from a cache layered over this one.
func (c *undoCache[U]) merge(consumed map[TransactionSource]U) {
	for source, undo := range consumed {
		c.entries[source] = &undoEntry[U]{undo: undo, present: undo != nil}
	}
}

// cloneUtxoUndo returns a copy of the record that can be modified without
// affecting the original.
func cloneUtxoUndo(u *utxo.BlockUndo) *utxo.BlockUndo {
	if u == nil {
		return nil
	}
	c := utxo.NewBlockUndo()
	_ = c.Merge(u)
	return c
}

// cloneAccountingUndo returns a copy of the record that can be modified
// without affecting the original.
func cloneAccountingUndo(u *posaccounting.BlockUndo) *posaccounting.BlockUndo {
	if u == nil {
		return nil
	}
	c := posaccounting.NewBlockUndo()
	_ = c.Merge(u)
	return c
}
