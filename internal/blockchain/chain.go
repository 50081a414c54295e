// Copyright (c) 2013-2016 The btcsuite developers
// Copyright (c) 2015-2022 The Decred developers
// Copyright (c) 2026 The stakechain developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package blockchain implements block handling and chain selection rules.
package blockchain

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/decred/dcrd/chaincfg/chainhash"
	"github.com/decred/dcrd/container/lru"
	"github.com/decred/dcrd/math/uint256"
	"github.com/lightningnetwork/lnd/clock"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stakechain/chaind/chaincfg"
	"github.com/stakechain/chaind/internal/chaindb"
	"github.com/stakechain/chaind/internal/txverifier"
)

const (
	// DefaultMaxOrphanBlocks is the default number of orphan blocks kept
	// while waiting for their parents.
	DefaultMaxOrphanBlocks = 512

	// DefaultMaxDBCommitAttempts is the default number of attempts made to
	// commit a block before giving up.
	DefaultMaxDBCommitAttempts = 10

	// DefaultMaxTipAge is the default age of the tip beyond which the chain
	// is considered to be in initial block download.
	DefaultMaxTipAge = 24 * time.Hour

	// DefaultHeaderLimit is the default number of headers GetHeaders returns
	// at most.
	DefaultHeaderLimit = 2000

	// defaultBlockIndexCacheSize is the default number of block indexes
	// kept in memory.
	defaultBlockIndexCacheSize = 100000
)

// BlockLocator is used to help locate a specific block.  It holds the hashes of
// main chain blocks from the tip backwards at exponentially increasing
// distances: the tip, then the blocks 1, 2, 4, 8 and so on below it for as long
// as such a height exists.
//
// For example, with a main chain of height 10 the locator is made of the
// blocks at heights:
//
//	[10 9 8 6 2]
type BlockLocator []chainhash.Hash

// BestState houses information about the current best block and other info
// related to the state of the main chain as it exists from the point of view of
// the current best block.
//
// The BestSnapshot method can be used to obtain access to this information
// in a concurrent safe manner and the data will not be changed out from under
// the caller when chain state changes occur as the function name implies.
type BestState struct {
	Hash       chainhash.Hash  // The hash of the block.
	PrevHash   chainhash.Hash  // The previous block hash.
	Height     int64           // The height of the block.
	ChainTrust uint256.Uint256 // The cumulative trust of the chain.
	Timestamp  time.Time       // The timestamp of the block.
	MedianTime time.Time       // Median time past of the block.
}

// newBestState returns a new best state for the given tip.
func newBestState(tip GenBlockIndex, medianTime time.Time) *BestState {
	var prevHash chainhash.Hash
	if idx, ok := tip.(*BlockIndex); ok {
		prevHash = idx.PrevHash()
	}
	return &BestState{
		Hash:       tip.Hash(),
		PrevHash:   prevHash,
		Height:     tip.Height(),
		ChainTrust: tip.ChainTrust(),
		Timestamp:  tip.Timestamp(),
		MedianTime: medianTime,
	}
}

// BlockSource identifies where a processed block comes from.
type BlockSource int

const (
	// BlockSourceLocal identifies blocks produced or submitted by this
	// node.  Local blocks whose parent is unknown are rejected instead of
	// being kept as orphans.
	BlockSourceLocal BlockSource = iota

	// BlockSourcePeer identifies blocks received from the network.
	BlockSourcePeer
)

// String returns the BlockSource in human-readable form.
func (s BlockSource) String() string {
	if s == BlockSourceLocal {
		return "local"
	}
	return "peer"
}

// Config is a descriptor which specifies the blockchain instance configuration.
type Config struct {
	// DB defines the database which houses the blocks, the block index and
	// all chain state.
	//
	// This field is required.
	DB chaindb.Store

	// ChainParams identifies which chain parameters the chain is associated
	// with.
	//
	// This field is required.
	ChainParams *chaincfg.Params

	// Clock provides the current time.  The default clock is used when it
	// is nil.
	Clock clock.Clock

	// TxIndexEnabled enables the index of main chain transactions.  It must
	// match the setting the database was created with.
	TxIndexEnabled bool

	// MaxOrphanBlocks is the number of orphan blocks kept while waiting for
	// their parents.  DefaultMaxOrphanBlocks is used when it is zero.
	MaxOrphanBlocks int

	// MaxDBCommitAttempts is the number of attempts made to commit a block
	// when the database reports a recoverable failure.
	// DefaultMaxDBCommitAttempts is used when it is zero.
	MaxDBCommitAttempts int

	// CommitRetryDelay is the time waited between commit attempts.
	CommitRetryDelay time.Duration

	// MaxTipAge is the age of the tip beyond which the chain is considered
	// to be in initial block download.  DefaultMaxTipAge is used when it is
	// zero.
	MaxTipAge time.Duration

	// HeaderLimit is the number of headers GetHeaders returns at most.
	// DefaultHeaderLimit is used when it is zero.
	HeaderLimit int

	// BlockIndexCacheSize is the number of block indexes kept in memory.
	BlockIndexCacheSize uint32

	// VerificationStrategy connects and disconnects the transactions of
	// blocks.  Transactions are verified sequentially when it is nil.
	VerificationStrategy txverifier.Strategy

	// Notifications defines a callback to which notifications will be sent
	// when various events take place.  See the documentation for
	// Notification and NotificationType for details on the types and
	// contents of notifications.
	//
	// This field can be nil if the caller is not interested in receiving
	// notifications.  More callbacks can be registered with Subscribe.
	Notifications NotificationCallback

	// OrphanErrorHook is invoked with the error of every orphan block that
	// was released from the orphan pool and then rejected.  Such errors
	// are only logged when it is nil.
	OrphanErrorHook func(error)

	// MetricsRegisterer is where the collectors of the chain are
	// registered.  No collectors are registered when it is nil.
	MetricsRegisterer prometheus.Registerer
}

// BlockChain provides functions for working with the block chain.  It includes
// functionality such as rejecting duplicate blocks, ensuring blocks follow all
// rules, orphan handling, and best chain selection with reorganization.
type BlockChain struct {
	// The following fields are set when the instance is created and can't
	// be changed afterwards, so there is no need to protect them with a
	// separate mutex.
	db                  chaindb.Store
	params              *chaincfg.Params
	clock               clock.Clock
	txIndexEnabled      bool
	maxDBCommitAttempts int
	commitRetryDelay    time.Duration
	maxTipAge           time.Duration
	headerLimit         int
	strategy            txverifier.Strategy
	orphanErrorHook     func(error)
	genesis             *genesisIndex
	metrics             *chainMetrics

	// index caches block indexes.  It is safe for concurrent access and
	// only ever holds indexes that were committed to the database.
	index *lru.Map[chainhash.Hash, *BlockIndex]

	// orphans holds peer blocks received before their parents.
	orphans *orphanPool

	// processLock serializes block processing.
	processLock sync.Mutex

	// These fields are related to handling of the best state snapshot.
	stateLock     sync.RWMutex
	stateSnapshot *BestState

	// ibdDone latches once the chain left initial block download.
	ibdDone atomic.Bool

	// The notifications field stores a slice of callbacks to be executed on
	// certain blockchain events.
	notificationsLock sync.RWMutex
	notifications     []NotificationCallback
}

// BestSnapshot returns information about the current best chain block and
// related state as of the current point in time.  The returned instance must be
// treated as immutable since it is shared by all callers.
//
// This function is safe for concurrent access.
func (b *BlockChain) BestSnapshot() *BestState {
	b.stateLock.RLock()
	snapshot := b.stateSnapshot
	b.stateLock.RUnlock()
	return snapshot
}

// setBestSnapshot replaces the best state snapshot.
func (b *BlockChain) setBestSnapshot(state *BestState) {
	b.stateLock.Lock()
	b.stateSnapshot = state
	b.stateLock.Unlock()
	b.metrics.bestHeight.Set(float64(state.Height))
}

// view runs fn with a view over a read-only database transaction.
func (b *BlockChain) view(fn func(view *chainView) error) error {
	tx, err := b.db.Begin(false)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	return fn(b.newChainView(tx))
}

// initChainState initializes an empty database with the genesis block or
// ensures an existing one matches the configuration.  It then loads the best
// state.
func (b *BlockChain) initChainState() error {
	tx, err := b.db.Begin(true)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	version, err := dbFetchDatabaseVersion(tx)
	if err != nil {
		return err
	}
	if version == 0 {
		log.Infof("Initializing chain state with genesis block %v",
			b.params.GenesisHash)
		err := initChainState(tx, b.params, b.txIndexEnabled)
		if err != nil {
			return err
		}
	} else {
		err := checkChainState(tx, b.params, version, b.txIndexEnabled)
		if err != nil {
			return err
		}
	}

	view := b.newChainView(tx)
	tip, err := view.bestIndex()
	if err != nil {
		return err
	}
	medianTime, err := view.medianTimePast(tip)
	if err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	view.commit()
	b.setBestSnapshot(newBestState(tip, medianTime))
	return nil
}

// New returns a BlockChain instance using the provided configuration details.
// An empty database is initialized with the genesis block of the configured
// network.  An existing database must have been created with the same genesis
// block and transaction index setting.
func New(ctx context.Context, config *Config) (*BlockChain, error) {
	// Enforce required config fields.
	if config.DB == nil {
		return nil, AssertError("blockchain.New database is nil")
	}
	if config.ChainParams == nil {
		return nil, AssertError("blockchain.New chain parameters nil")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	clk := config.Clock
	if clk == nil {
		clk = clock.NewDefaultClock()
	}
	maxOrphans := config.MaxOrphanBlocks
	if maxOrphans == 0 {
		maxOrphans = DefaultMaxOrphanBlocks
	}
	commitAttempts := config.MaxDBCommitAttempts
	if commitAttempts <= 0 {
		commitAttempts = DefaultMaxDBCommitAttempts
	}
	maxTipAge := config.MaxTipAge
	if maxTipAge == 0 {
		maxTipAge = DefaultMaxTipAge
	}
	headerLimit := config.HeaderLimit
	if headerLimit <= 0 {
		headerLimit = DefaultHeaderLimit
	}
	cacheSize := config.BlockIndexCacheSize
	if cacheSize == 0 {
		cacheSize = defaultBlockIndexCacheSize
	}
	strategy := config.VerificationStrategy
	if strategy == nil {
		strategy = txverifier.SequentialStrategy{}
	}
	metrics, err := newChainMetrics(config.MetricsRegisterer)
	if err != nil {
		return nil, err
	}

	params := config.ChainParams
	b := &BlockChain{
		db:                  config.DB,
		params:              params,
		clock:               clk,
		txIndexEnabled:      config.TxIndexEnabled,
		maxDBCommitAttempts: commitAttempts,
		commitRetryDelay:    config.CommitRetryDelay,
		maxTipAge:           maxTipAge,
		headerLimit:         headerLimit,
		strategy:            strategy,
		orphanErrorHook:     config.OrphanErrorHook,
		genesis:             newGenesisIndex(params.GenesisBlock),
		metrics:             metrics,
		index:               lru.NewMap[chainhash.Hash, *BlockIndex](cacheSize),
		orphans:             newOrphanPool(maxOrphans),
	}
	if config.Notifications != nil {
		b.notifications = append(b.notifications, config.Notifications)
	}

	if err := b.initChainState(); err != nil {
		return nil, err
	}

	tip := b.BestSnapshot()
	log.Infof("Chain state: height %d, hash %v, trust %v", tip.Height,
		tip.Hash, &tip.ChainTrust)

	return b, nil
}
