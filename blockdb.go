// Copyright (c) 2013-2016 The btcsuite developers
// Copyright (c) 2015-2021 The Decred developers
// Copyright (c) 2026 The stakechain developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"bufio"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/stakechain/chaind/chaincfg"
	"github.com/stakechain/chaind/internal/blockchain"
	"github.com/stakechain/chaind/internal/chaindb"
	"github.com/stakechain/chaind/internal/progresslog"
	"github.com/stakechain/chaind/wire"
)

// removeRegressionDB removes the existing regression test database when
// running in regression test mode and it already exists.
func removeRegressionDB(dataDir string) error {
	// Don't do anything if not in regression test mode.
	if !cfg.RegNet {
		return nil
	}

	// Remove the old regression test database if it already exists.
	if _, err := os.Stat(dataDir); err == nil {
		chndLog.Infof("Removing regression test database from '%s'", dataDir)
		return os.RemoveAll(dataDir)
	}

	return nil
}

// loadChainDB loads (or creates when needed) the chain database in the
// configured data directory and returns a handle to it.  The regression test
// database is removed first so every run starts clean.
func loadChainDB() (*chaindb.DB, error) {
	if err := removeRegressionDB(cfg.DataDir); err != nil {
		return nil, err
	}
	return chaindb.Open(cfg.DataDir)
}

// blockFileRecordHeaderSize is the size of the network magic and block length
// that precede each block in a flat block file.
const blockFileRecordHeaderSize = 8

// writeBlockRecord writes the passed serialized block as a record of a flat
// block file.  Every record consists of the network magic and the length of
// the block as little endian uint32s followed by the block itself.
func writeBlockRecord(w io.Writer, net chaincfg.CurrencyNet, block []byte) error {
	var hdr [blockFileRecordHeaderSize]byte
	binary.LittleEndian.PutUint32(hdr[0:4], uint32(net))
	binary.LittleEndian.PutUint32(hdr[4:8], uint32(len(block)))
	if _, err := w.Write(hdr[:]); err != nil {
		return err
	}
	_, err := w.Write(block)
	return err
}

// readBlockRecord reads the next block of a flat block file.  It returns
// io.EOF when there are no more records.
func readBlockRecord(r io.Reader, net chaincfg.CurrencyNet) (*wire.MsgBlock, error) {
	var hdr [blockFileRecordHeaderSize]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, fmt.Errorf("truncated block record: %w", err)
		}
		return nil, err
	}

	// The network magic must match the active network.
	magic := chaincfg.CurrencyNet(binary.LittleEndian.Uint32(hdr[0:4]))
	if magic != net {
		return nil, fmt.Errorf("block record for network %v does not "+
			"match the active network %v", magic, net)
	}

	size := binary.LittleEndian.Uint32(hdr[4:8])
	if size > wire.MaxBlockPayload {
		return nil, fmt.Errorf("block record of %d bytes exceeds the "+
			"maximum of %d bytes", size, wire.MaxBlockPayload)
	}
	serialized := make([]byte, size)
	if _, err := io.ReadFull(r, serialized); err != nil {
		return nil, fmt.Errorf("truncated block record: %w", err)
	}

	var block wire.MsgBlock
	if err := block.FromBytes(serialized); err != nil {
		return nil, err
	}
	return &block, nil
}

// importBlocks processes the blocks of the flat block file at the given path
// as local blocks.  Blocks that are already known are skipped.  It returns
// early without error when the context is canceled.
//
// Progress is reported by the connected block notifications of the chain.
func importBlocks(ctx context.Context, params *chaincfg.Params,
	chain *blockchain.BlockChain, path string) error {

	chndLog.Infof("Importing blocks from flat file %q.  This might take a "+
		"while...", path)

	file, err := os.Open(path)
	if err != nil {
		return err
	}
	defer file.Close()

	r := bufio.NewReader(file)
	var imported, skipped int
	for !shutdownRequested(ctx) {
		block, err := readBlockRecord(r, params.Net)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return fmt.Errorf("unable to read block %d: %w",
				imported+skipped+1, err)
		}

		_, err = chain.ProcessBlock(block, blockchain.BlockSourceLocal)
		switch {
		case errors.Is(err, blockchain.ErrDuplicateBlock):
			skipped++
			continue
		case err != nil:
			return fmt.Errorf("unable to process block %v: %w",
				block.BlockHash(), err)
		}
		imported++
	}

	chndLog.Infof("Imported %d blocks (%d already known) from %v", imported,
		skipped, path)
	return nil
}

// dumpBlockChain writes the main chain blocks, excluding the genesis block, to
// a flat file that importBlocks can process.
func dumpBlockChain(ctx context.Context, params *chaincfg.Params,
	chain *blockchain.BlockChain, path string) error {

	chndLog.Infof("Writing the blockchain to flat file %q.  This might take a "+
		"while...", path)

	progressLogger := progresslog.New("Wrote", chndLog)

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()
	w := bufio.NewWriter(file)

	// Write the blocks sequentially, excluding the genesis block.
	tipHeight := chain.BestSnapshot().Height
	for height := int64(1); height <= tipHeight; height++ {
		if shutdownRequested(ctx) {
			return errors.New("dump interrupted")
		}

		hash, err := chain.BlockIDAtHeight(height)
		if err != nil {
			return err
		}
		block, err := chain.Block(&hash)
		if err != nil {
			return err
		}
		serialized, err := block.Bytes()
		if err != nil {
			return err
		}
		if err := writeBlockRecord(w, params.Net, serialized); err != nil {
			return err
		}

		progressLogger.LogProgress(block, height, height == tipHeight)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	chndLog.Infof("Successfully dumped the blockchain (%d blocks) to %v.",
		tipHeight, path)
	return file.Sync()
}
