// Copyright (c) 2013-2016 The btcsuite developers
// Copyright (c) 2015-2024 The Decred developers
// Copyright (c) 2026 The stakechain developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockchain

import (
	"sync"

	"github.com/decred/dcrd/chaincfg/chainhash"
	"github.com/stakechain/chaind/wire"
)

// orphanBlock is a block whose parent is not known yet.
type orphanBlock struct {
	block *wire.MsgBlock
	hash  chainhash.Hash
	seq   uint64
}

// orphanPool holds blocks received from peers before their parents.  When the
// pool is full the oldest orphan is evicted to make room for a new one.
//
// The pool is safe for concurrent access.
type orphanPool struct {
	mtx        sync.Mutex
	maxOrphans int
	orphans    map[chainhash.Hash]*orphanBlock
	byParent   map[chainhash.Hash][]*orphanBlock
	nextSeq    uint64
}

// newOrphanPool returns an empty pool holding at most maxOrphans blocks.
func newOrphanPool(maxOrphans int) *orphanPool {
	return &orphanPool{
		maxOrphans: maxOrphans,
		orphans:    make(map[chainhash.Hash]*orphanBlock),
		byParent:   make(map[chainhash.Hash][]*orphanBlock),
	}
}

// removeLocked removes the passed orphan from the pool.
//
// This function MUST be called with the pool lock held.
func (p *orphanPool) removeLocked(orphan *orphanBlock) {
	delete(p.orphans, orphan.hash)

	prevHash := &orphan.block.Header.PrevBlock
	siblings := p.byParent[*prevHash]
	for i := 0; i < len(siblings); i++ {
		if siblings[i].hash == orphan.hash {
			copy(siblings[i:], siblings[i+1:])
			siblings[len(siblings)-1] = nil
			siblings = siblings[:len(siblings)-1]
			i--
		}
	}
	if len(siblings) == 0 {
		delete(p.byParent, *prevHash)
		return
	}
	p.byParent[*prevHash] = siblings
}

// add inserts a block into the pool.  Adding a block that is already present
// does nothing.  It returns whether the block was added.
func (p *orphanPool) add(block *wire.MsgBlock, hash chainhash.Hash) bool {
	p.mtx.Lock()
	defer p.mtx.Unlock()

	if _, ok := p.orphans[hash]; ok || p.maxOrphans <= 0 {
		return false
	}

	if len(p.orphans) >= p.maxOrphans {
		var oldest *orphanBlock
		for _, orphan := range p.orphans {
			if oldest == nil || orphan.seq < oldest.seq {
				oldest = orphan
			}
		}
		log.Warnf("Orphan pool is full, evicting orphan block %v",
			oldest.hash)
		p.removeLocked(oldest)
	}

	orphan := &orphanBlock{block: block, hash: hash, seq: p.nextSeq}
	p.nextSeq++
	p.orphans[hash] = orphan
	prevHash := block.Header.PrevBlock
	p.byParent[prevHash] = append(p.byParent[prevHash], orphan)
	return true
}

// has returns whether the block with the given id is in the pool.
func (p *orphanPool) has(hash *chainhash.Hash) bool {
	p.mtx.Lock()
	_, ok := p.orphans[*hash]
	p.mtx.Unlock()
	return ok
}

// len returns the number of blocks in the pool.
func (p *orphanPool) len() int {
	p.mtx.Lock()
	n := len(p.orphans)
	p.mtx.Unlock()
	return n
}

// takeChildren removes the orphans building on the given block from the pool
// and returns them in the order they arrived.
func (p *orphanPool) takeChildren(parent *chainhash.Hash) []*wire.MsgBlock {
	p.mtx.Lock()
	defer p.mtx.Unlock()

	children := p.byParent[*parent]
	if len(children) == 0 {
		return nil
	}
	blocks := make([]*wire.MsgBlock, 0, len(children))
	for _, orphan := range children {
		delete(p.orphans, orphan.hash)
		blocks = append(blocks, orphan.block)
	}
	delete(p.byParent, *parent)
	return blocks
}
