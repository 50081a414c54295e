// Copyright (c) 2026 The stakechain developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package txverifier

import (
	"fmt"
	"runtime"
	"time"

	"github.com/stakechain/chaind/wire"
	"golang.org/x/sync/errgroup"
)

// Strategy connects and disconnects the transactions and reward of whole
// blocks through a verifier.
type Strategy interface {
	// ConnectBlock connects the transactions of the block at the given
	// height in order followed by its reward and returns the total fees.
	ConnectBlock(v *TransactionVerifier, block *wire.MsgBlock, height int64,
		medianTime time.Time) (Fee, error)

	// DisconnectBlock disconnects the reward of the block followed by its
	// transactions in reverse order.
	DisconnectBlock(v *TransactionVerifier, block *wire.MsgBlock) error
}

// SequentialStrategy verifies every input in order on the calling goroutine.
type SequentialStrategy struct{}

// Ensure SequentialStrategy implements the Strategy interface.
var _ Strategy = SequentialStrategy{}

// txPosition returns the position of a transaction located in a serialized
// block.
func txPosition(loc wire.TxLoc) *TxPosition {
	return &TxPosition{Offset: uint32(loc.TxStart), Len: uint32(loc.TxLen)}
}

// ConnectBlock is part of the Strategy interface.
func (SequentialStrategy) ConnectBlock(v *TransactionVerifier, block *wire.MsgBlock,
	height int64, medianTime time.Time) (Fee, error) {

	return connectBlock(v, block, height, medianTime)
}

// DisconnectBlock is part of the Strategy interface.
func (SequentialStrategy) DisconnectBlock(v *TransactionVerifier, block *wire.MsgBlock) error {
	return disconnectBlock(v, block)
}

func connectBlock(v *TransactionVerifier, block *wire.MsgBlock, height int64,
	medianTime time.Time) (Fee, error) {

	blockHash := block.BlockHash()
	source := ChainSource(blockHash)
	locs := block.TxLoc()
	var fees Fee
	for i, tx := range block.Transactions {
		fee, err := v.ConnectTransaction(source, tx, txPosition(locs[i]),
			height, medianTime)
		if err != nil {
			return Fee{}, err
		}
		if fees, err = fees.Add(fee); err != nil {
			return Fee{}, err
		}
	}
	err := v.ConnectBlockReward(blockHash, &block.Header, &block.Reward,
		height, fees)
	if err != nil {
		return Fee{}, err
	}
	return fees, nil
}

func disconnectBlock(v *TransactionVerifier, block *wire.MsgBlock) error {
	blockHash := block.BlockHash()
	source := ChainSource(blockHash)
	err := v.DisconnectBlockReward(blockHash, &block.Header, &block.Reward)
	if err != nil {
		return err
	}
	for i := len(block.Transactions) - 1; i >= 0; i-- {
		tx := block.Transactions[i]
		if err := v.DisconnectTransaction(source, tx); err != nil {
			return fmt.Errorf("transaction %d of block %v: %w", i,
				blockHash, err)
		}
	}
	return nil
}

// ParallelStrategy verifies the signatures of inputs spending outputs that
// exist before the block concurrently, then connects the block in order.
// Inputs spending outputs created within the block are verified during the
// sequential pass.
type ParallelStrategy struct {
	// Workers bounds the number of concurrent verifications.  Zero uses
	// the number of CPUs.
	Workers int
}

// Ensure ParallelStrategy implements the Strategy interface.
var _ Strategy = ParallelStrategy{}

// ConnectBlock is part of the Strategy interface.
func (s ParallelStrategy) ConnectBlock(v *TransactionVerifier, block *wire.MsgBlock,
	height int64, medianTime time.Time) (Fee, error) {

	type job struct {
		key   inputKey
		tx    *wire.MsgTx
		spent *wire.TxOut
	}

	// The UTXO cache is not safe for concurrent use, so every spent output
	// is fetched before fanning out.
	var jobs []job
	for _, tx := range block.Transactions {
		txHash := tx.TxHash()
		for i, in := range tx.TxIn {
			entry, err := v.utxos.FetchEntry(in.PreviousOutPoint)
			if err != nil {
				return Fee{}, err
			}
			if entry == nil {
				continue
			}
			jobs = append(jobs, job{
				key:   inputKey{txHash: txHash, index: i},
				tx:    tx,
				spent: entry.Output,
			})
		}
	}

	workers := s.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	var g errgroup.Group
	g.SetLimit(workers)
	for _, j := range jobs {
		j := j
		g.Go(func() error {
			return verifyInput(j.tx, j.key.index, j.spent)
		})
	}
	if err := g.Wait(); err != nil {
		return Fee{}, err
	}
	for _, j := range jobs {
		v.preverified[j.key] = struct{}{}
	}
	log.Tracef("Verified %d inputs of block %v ahead of connecting it",
		len(jobs), block.BlockHash())

	fees, err := connectBlock(v, block, height, medianTime)
	if err != nil {
		// Drop leftovers of inputs the failed connect never reached.
		for _, j := range jobs {
			delete(v.preverified, j.key)
		}
		return Fee{}, err
	}
	return fees, nil
}

// DisconnectBlock is part of the Strategy interface.
func (ParallelStrategy) DisconnectBlock(v *TransactionVerifier, block *wire.MsgBlock) error {
	return disconnectBlock(v, block)
}
