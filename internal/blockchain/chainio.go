// Copyright (c) 2015-2016 The btcsuite developers
// Copyright (c) 2016-2024 The Decred developers
// Copyright (c) 2026 The stakechain developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockchain

import (
	"encoding/binary"
	"fmt"

	"github.com/decred/dcrd/chaincfg/chainhash"
	"github.com/stakechain/chaind/chaincfg"
	"github.com/stakechain/chaind/internal/chaindb"
	"github.com/stakechain/chaind/internal/utxo"
	"github.com/stakechain/chaind/wire"
)

const (
	// currentDatabaseVersion indicates the current database version.
	currentDatabaseVersion = 1
)

// -----------------------------------------------------------------------------
// The database version is stored in the info bucket as a little-endian uint32.
// A database without a version has not been initialized.
// -----------------------------------------------------------------------------

// dbFetchDatabaseVersion returns the stored database version or zero when the
// database is not initialized.
func dbFetchDatabaseVersion(r chaindb.Reader) (uint32, error) {
	b, err := r.Get(chaindb.VersionKey)
	if err != nil || b == nil {
		return 0, err
	}
	if len(b) != 4 {
		return 0, chaindb.DecodeError("malformed database version")
	}
	return binary.LittleEndian.Uint32(b), nil
}

// dbPutDatabaseVersion stores the database version.
func dbPutDatabaseVersion(w chaindb.Writer, version uint32) error {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], version)
	return w.Put(chaindb.VersionKey, b[:])
}

// dbFetchHash returns the hash stored under key or nil when there is none.
func dbFetchHash(r chaindb.Reader, key []byte, what string) (*chainhash.Hash, error) {
	b, err := r.Get(key)
	if err != nil || b == nil {
		return nil, err
	}
	hash, err := chainhash.NewHash(b)
	if err != nil {
		return nil, chaindb.DecodeError("malformed " + what)
	}
	return hash, nil
}

// dbFetchBestBlock returns the id of the best block.
func dbFetchBestBlock(r chaindb.Reader) (*chainhash.Hash, error) {
	hash, err := dbFetchHash(r, chaindb.BestBlockKey, "best block")
	if err != nil {
		return nil, err
	}
	if hash == nil {
		return nil, AssertError("database has no best block")
	}
	return hash, nil
}

// dbPutBestBlock stores the id of the best block.
func dbPutBestBlock(w chaindb.Writer, hash *chainhash.Hash) error {
	return w.Put(chaindb.BestBlockKey, hash[:])
}

// dbFetchMainChainHash returns the id of the main chain block at the given
// height or nil when the main chain is shorter.
func dbFetchMainChainHash(r chaindb.Reader, height int64) (*chainhash.Hash, error) {
	if height < 0 {
		return nil, nil
	}
	key := chaindb.BucketMainChain.Key(chaindb.Uint64Key(uint64(height)))
	return dbFetchHash(r, key, fmt.Sprintf("main chain block at height %d",
		height))
}

// dbPutMainChainHash sets the main chain block at the given height.
func dbPutMainChainHash(w chaindb.Writer, height int64, hash *chainhash.Hash) error {
	key := chaindb.BucketMainChain.Key(chaindb.Uint64Key(uint64(height)))
	return w.Put(key, hash[:])
}

// dbRemoveMainChainHash removes the main chain block at the given height.
func dbRemoveMainChainHash(w chaindb.Writer, height int64) error {
	key := chaindb.BucketMainChain.Key(chaindb.Uint64Key(uint64(height)))
	return w.Delete(key)
}

// dbFetchBlock returns the block with the given id or nil when it is not
// stored.
func dbFetchBlock(r chaindb.Reader, hash *chainhash.Hash) (*wire.MsgBlock, error) {
	b, err := r.Get(chaindb.BucketBlocks.Key(hash[:]))
	if err != nil || b == nil {
		return nil, err
	}
	var block wire.MsgBlock
	if err := block.FromBytes(b); err != nil {
		return nil, chaindb.DecodeError(fmt.Sprintf("malformed block %v: %v",
			hash, err))
	}
	return &block, nil
}

// dbPutBlock stores a block under its id.
func dbPutBlock(w chaindb.Writer, hash *chainhash.Hash, block *wire.MsgBlock) error {
	b, err := block.Bytes()
	if err != nil {
		return err
	}
	return w.Put(chaindb.BucketBlocks.Key(hash[:]), b)
}

// dbFetchBlockIndex returns the stored index of the block with the given id or
// nil when there is none.
func dbFetchBlockIndex(r chaindb.Reader, hash *chainhash.Hash) (*BlockIndex, error) {
	b, err := r.Get(chaindb.BucketBlockIndex.Key(hash[:]))
	if err != nil || b == nil {
		return nil, err
	}
	return deserializeBlockIndex(hash, b)
}

// dbPutBlockIndex stores a block index.
func dbPutBlockIndex(w chaindb.Writer, idx *BlockIndex) error {
	b, err := idx.serialize()
	if err != nil {
		return err
	}
	return w.Put(chaindb.BucketBlockIndex.Key(idx.hash[:]), b)
}

// dbFetchTxIndexEnabled returns the stored transaction index setting and
// whether one is stored.
func dbFetchTxIndexEnabled(r chaindb.Reader) (enabled bool, ok bool, err error) {
	b, err := r.Get(chaindb.TxIndexEnabledKey)
	if err != nil || b == nil {
		return false, false, err
	}
	if len(b) != 1 {
		return false, false, chaindb.DecodeError("malformed transaction " +
			"index setting")
	}
	return b[0] != 0, true, nil
}

// dbPutTxIndexEnabled stores the transaction index setting.
func dbPutTxIndexEnabled(w chaindb.Writer, enabled bool) error {
	var b byte
	if enabled {
		b = 1
	}
	return w.Put(chaindb.TxIndexEnabledKey, []byte{b})
}

// dbFetchLastSealedEpoch returns the index of the last sealed epoch and
// whether any epoch was sealed.
func dbFetchLastSealedEpoch(r chaindb.Reader) (uint64, bool, error) {
	b, err := r.Get(chaindb.LastSealedEpochKey)
	if err != nil || b == nil {
		return 0, false, err
	}
	if len(b) != 8 {
		return 0, false, chaindb.DecodeError("malformed last sealed epoch")
	}
	return binary.BigEndian.Uint64(b), true, nil
}

// dbPutLastSealedEpoch stores the index of the last sealed epoch.
func dbPutLastSealedEpoch(w chaindb.Writer, epoch uint64) error {
	return w.Put(chaindb.LastSealedEpochKey, chaindb.Uint64Key(epoch))
}

// EpochData is the data recorded when the last block of an epoch is connected.
type EpochData struct {
	// Randomness seeds the stake kernels of the epochs that follow once
	// the epoch is sealed.
	Randomness chainhash.Hash
}

// dbFetchEpochData returns the data of the given epoch or nil when none is
// stored.
func dbFetchEpochData(r chaindb.Reader, epoch uint64) (*EpochData, error) {
	hash, err := dbFetchHash(r, chaindb.BucketEpochData.Key(chaindb.Uint64Key(epoch)),
		fmt.Sprintf("data of epoch %d", epoch))
	if err != nil || hash == nil {
		return nil, err
	}
	return &EpochData{Randomness: *hash}, nil
}

// dbPutEpochData stores the data of the given epoch.
func dbPutEpochData(w chaindb.Writer, epoch uint64, data *EpochData) error {
	key := chaindb.BucketEpochData.Key(chaindb.Uint64Key(epoch))
	return w.Put(key, data.Randomness[:])
}

// dbRemoveEpochData removes the data of the given epoch.
func dbRemoveEpochData(w chaindb.Writer, epoch uint64) error {
	return w.Delete(chaindb.BucketEpochData.Key(chaindb.Uint64Key(epoch)))
}

// initChainState writes the state of a chain made of the genesis block alone
// to an empty database.  The genesis reward outputs are the premine and may be
// spent right away, so they are not marked as block reward outputs.
func initChainState(tx chaindb.Tx, params *chaincfg.Params, txIndexEnabled bool) error {
	genesis := params.GenesisBlock
	genesisHash := params.GenesisHash

	if err := dbPutDatabaseVersion(tx, currentDatabaseVersion); err != nil {
		return err
	}
	if err := dbPutTxIndexEnabled(tx, txIndexEnabled); err != nil {
		return err
	}
	if err := dbPutBlock(tx, &genesisHash, genesis); err != nil {
		return err
	}
	if err := dbPutMainChainHash(tx, 0, &genesisHash); err != nil {
		return err
	}
	if err := dbPutBestBlock(tx, &genesisHash); err != nil {
		return err
	}

	cache := utxo.NewCache(utxo.NewDBView(tx))
	for i, out := range genesis.Reward.Outputs {
		op := wire.OutPoint{
			Hash:   genesisHash,
			Source: wire.SourceBlockReward,
			Index:  uint32(i),
		}
		if err := cache.AddEntry(op, utxo.NewEntry(out, 0, false), false); err != nil {
			return err
		}
	}
	cache.SetBestBlock(genesisHash)
	return utxo.WriteConsumed(tx, cache.Consume())
}

// checkChainState ensures an initialized database holds a chain this instance
// can work with: a supported version, the configured transaction index setting
// and the configured genesis block.
func checkChainState(r chaindb.Reader, params *chaincfg.Params, version uint32,
	txIndexEnabled bool) error {

	if version != currentDatabaseVersion {
		str := fmt.Sprintf("database version %d is not supported, want %d",
			version, currentDatabaseVersion)
		return contextError(ErrStoreVersionMismatch, str)
	}

	enabled, ok, err := dbFetchTxIndexEnabled(r)
	if err != nil {
		return err
	}
	if !ok || enabled != txIndexEnabled {
		str := fmt.Sprintf("the transaction index setting %v does not match "+
			"the database setting %v", txIndexEnabled, enabled)
		return contextError(ErrTxIndexConfig, str)
	}

	best, err := dbFetchBestBlock(r)
	if err != nil {
		return err
	}
	if *best == params.GenesisHash {
		return nil
	}
	block1, err := dbFetchMainChainHash(r, 1)
	if err != nil {
		return err
	}
	if block1 == nil {
		str := fmt.Sprintf("best block %v is not genesis but the main chain "+
			"has no block at height 1", best)
		return contextError(ErrBlock1Missing, str)
	}
	idx, err := dbFetchBlockIndex(r, block1)
	if err != nil {
		return err
	}
	if idx == nil {
		return AssertError(fmt.Sprintf("main chain block %v has no index",
			block1))
	}
	if idx.PrevHash() != params.GenesisHash {
		str := fmt.Sprintf("the database chain starts with genesis block "+
			"%v instead of %v", idx.PrevHash(), params.GenesisHash)
		return contextError(ErrGenesisMismatch, str)
	}
	return nil
}
