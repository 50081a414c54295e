// Copyright (c) 2016-2022 The Decred developers
// Copyright (c) 2026 The stakechain developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package chaingen provides facilities for generating a full chain of blocks.
//
// Blocks are created on top of a tip that is tracked by the generator and may
// be referred to by name afterwards, which makes it easy to describe forks and
// reorganizations in tests:
//
//	g.NextBlock("b1", nil)
//	g.NextBlock("b2", &outs[0])
//	g.SetTip("b1")
//	g.NextBlock("b2a", nil)
//
// The generator produces blocks that carry no proof, a solved proof of work or
// a proof of stake as required by the net upgrades of the chain parameters.
// Proof-of-stake blocks are produced with the pool created by the most recent
// CreateStakePoolTx call.
package chaingen

import (
	"fmt"

	"github.com/decred/dcrd/chaincfg/chainhash"
	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/stakechain/chaind/chaincfg"
	"github.com/stakechain/chaind/internal/amount"
	"github.com/stakechain/chaind/internal/consensus"
	"github.com/stakechain/chaind/internal/posaccounting"
	"github.com/stakechain/chaind/internal/signature"
	"github.com/stakechain/chaind/wire"
)

const (
	// spendFee is the fee paid by the transactions spending outputs passed
	// to NextBlock.
	spendFee = amount.Amount(1000)

	// maxSolveAttempts is the number of nonces tried before giving up on
	// solving a block.
	maxSolveAttempts = 1 << 20
)

// SpendableOut represents a transaction or reward output that is spendable
// along with additional metadata such as the amount.
type SpendableOut struct {
	PrevOut wire.OutPoint
	Amount  amount.Amount
}

// MakeSpendableOut returns a spendable output for the given block, transaction
// index within the block and output index within the transaction.
func MakeSpendableOut(block *wire.MsgBlock, txIndex, txOutIndex uint32) SpendableOut {
	tx := block.Transactions[txIndex]
	return SpendableOut{
		PrevOut: wire.OutPoint{
			Hash:   tx.TxHash(),
			Source: wire.SourceTransaction,
			Index:  txOutIndex,
		},
		Amount: tx.TxOut[txOutIndex].Value.Amount,
	}
}

// MakeSpendableRewardOut returns a spendable output for the given output index
// of the reward of a block.
func MakeSpendableRewardOut(block *wire.MsgBlock, outIndex uint32) SpendableOut {
	return SpendableOut{
		PrevOut: wire.OutPoint{
			Hash:   block.BlockHash(),
			Source: wire.SourceBlockReward,
			Index:  outIndex,
		},
		Amount: block.Reward.Outputs[outIndex].Value.Amount,
	}
}

// Generator houses state used to ease the process of generating test blocks
// that build from one another along with housing other useful things such as
// available spendable outputs used throughout the tests.
type Generator struct {
	params       *chaincfg.Params
	tip          *wire.MsgBlock
	tipName      string
	blocks       map[chainhash.Hash]*wire.MsgBlock
	blockHeights map[chainhash.Hash]int64
	blocksByName map[string]*wire.MsgBlock
	blockNames   map[chainhash.Hash]string

	// generated counts the generated blocks.  It keeps sibling blocks
	// with identical contents apart.
	generated uint64

	// stakePool is the pool proof-of-stake blocks are produced with.
	stakePool *StakePool

	// randomness holds the epoch randomness recorded by the last block of
	// every epoch keyed by the block hash.
	randomness map[chainhash.Hash]chainhash.Hash
}

// StakePool describes a pool the generator produces proof-of-stake blocks
// with.
type StakePool struct {
	ID     chainhash.Hash
	Out    wire.OutPoint
	VRFKey *secp256k1.PrivateKey
}

// MakeGenerator returns a generator instance initialized with the genesis block
// as the tip.
func MakeGenerator(params *chaincfg.Params) (Generator, error) {
	if err := params.Validate(); err != nil {
		return Generator{}, err
	}
	genesis := params.GenesisBlock
	genesisHash := genesis.BlockHash()
	return Generator{
		params:       params,
		tip:          genesis,
		tipName:      "genesis",
		blocks:       map[chainhash.Hash]*wire.MsgBlock{genesisHash: genesis},
		blockHeights: map[chainhash.Hash]int64{genesisHash: 0},
		blocksByName: map[string]*wire.MsgBlock{"genesis": genesis},
		blockNames:   map[chainhash.Hash]string{genesisHash: "genesis"},
		randomness:   make(map[chainhash.Hash]chainhash.Hash),
	}, nil
}

// Params returns the chain params associated with the generator instance.
func (g *Generator) Params() *chaincfg.Params {
	return g.params
}

// Tip returns the current tip block of the generator instance.
func (g *Generator) Tip() *wire.MsgBlock {
	return g.tip
}

// TipName returns the name of the current tip block of the generator instance.
func (g *Generator) TipName() string {
	return g.tipName
}

// TipHeight returns the height of the current tip block.
func (g *Generator) TipHeight() int64 {
	return g.blockHeights[g.tip.BlockHash()]
}

// BlockByName returns the block associated with the provided block name.  It
// will panic if the specified block name does not exist.
func (g *Generator) BlockByName(blockName string) *wire.MsgBlock {
	block, ok := g.blocksByName[blockName]
	if !ok {
		panic(fmt.Sprintf("block name %s does not exist", blockName))
	}
	return block
}

// BlockByHash returns the block associated with the provided block hash.  It
// will panic if the specified block hash does not exist.
func (g *Generator) BlockByHash(hash *chainhash.Hash) *wire.MsgBlock {
	block, ok := g.blocks[*hash]
	if !ok {
		panic(fmt.Sprintf("block with hash %s does not exist", hash))
	}
	return block
}

// BlockName returns the name of the block with the given hash or "(unknown)"
// when the generator did not create it.
func (g *Generator) BlockName(hash *chainhash.Hash) string {
	name, ok := g.blockNames[*hash]
	if !ok {
		return "(unknown)"
	}
	return name
}

// BlockHeight returns the height of the block associated with the provided
// block name.  It will panic if the specified block name does not exist.
func (g *Generator) BlockHeight(blockName string) int64 {
	return g.blockHeights[g.BlockByName(blockName).BlockHash()]
}

// GenesisOut returns the premine output of the genesis block.  It is spendable
// from the first block on.
func (g *Generator) GenesisOut() SpendableOut {
	return MakeSpendableRewardOut(g.params.GenesisBlock, 0)
}

// SetTip changes the tip of the instance to the block with the provided name.
// This is useful since the tip is used for things such as generating subsequent
// blocks.
func (g *Generator) SetTip(blockName string) {
	g.tip = g.BlockByName(blockName)
	g.tipName = blockName
}

// HeaderAt returns the header at the given height on the branch ending with the
// current tip.  It allows the generator to serve as the header chain of the
// difficulty calculations.
func (g *Generator) HeaderAt(height int64) (*wire.BlockHeader, error) {
	block, ok := g.ancestorAt(g.tip, height)
	if !ok {
		return nil, fmt.Errorf("no block at height %d below the tip", height)
	}
	return &block.Header, nil
}

// AddTx returns a munge function that appends the transaction to a block and
// updates its merkle root.
func AddTx(tx *wire.MsgTx) func(*wire.MsgBlock) {
	return func(b *wire.MsgBlock) {
		b.Transactions = append(b.Transactions, tx)
		b.Header.MerkleRoot = b.CalcMerkleRoot()
	}
}

// CreateStakePoolTx returns a transaction pledging the given amount of the
// spendable output to a new stake pool whose VRF key is vrfKey.  The rest of
// the output is paid to anyone, so the transaction pays no fee.  The staker and
// decommission destinations of the pool are spendable by anyone.
//
// The pool becomes the one following proof-of-stake blocks are produced with.
func (g *Generator) CreateStakePoolTx(spend *SpendableOut, pledge amount.Amount,
	vrfKey *secp256k1.PrivateKey) *wire.MsgTx {

	tx := wire.NewMsgTx()
	tx.AddTxIn(wire.NewTxIn(&spend.PrevOut, nil))
	tx.AddTxOut(&wire.TxOut{
		Type:  wire.OutputStakePool,
		Value: wire.CoinValue(pledge),
		Pool: &wire.StakePoolData{
			Staker:       wire.AnyoneCanSpend(),
			VRFPublicKey: vrfKey.PubKey().SerializeCompressed(),
			Decommission: wire.AnyoneCanSpend(),
		},
	})
	tx.AddTxOut(wire.NewTransfer(spend.Amount-pledge, wire.AnyoneCanSpend()))

	out := wire.OutPoint{Hash: tx.TxHash(), Source: wire.SourceTransaction}
	g.stakePool = &StakePool{
		ID:     posaccounting.PoolID(&out),
		Out:    out,
		VRFKey: vrfKey,
	}
	return tx
}

// StakePool returns the pool proof-of-stake blocks are produced with or nil
// when no pool was created.
func (g *Generator) StakePool() *StakePool {
	return g.stakePool
}

// ancestorAt returns the block at the given height on the branch ending with
// the passed block.
func (g *Generator) ancestorAt(block *wire.MsgBlock, height int64) (*wire.MsgBlock, bool) {
	if height < 0 || g.blockHeights[block.BlockHash()] < height {
		return nil, false
	}
	for g.blockHeights[block.BlockHash()] > height {
		block = g.blocks[block.Header.PrevBlock]
	}
	return block, true
}

// stakeKernel returns the output the next proof-of-stake block on top of the
// passed block spends as its kernel: the reward of the most recent block
// produced by the pool or the pool output itself.
func (g *Generator) stakeKernel(tip *wire.MsgBlock) wire.OutPoint {
	for block := tip; ; {
		cd := &block.Header.ConsensusData
		if cd.Type == wire.ConsensusPoS && cd.StakePoolID == g.stakePool.ID {
			return wire.OutPoint{
				Hash:   block.BlockHash(),
				Source: wire.SourceBlockReward,
			}
		}
		parent, ok := g.blocks[block.Header.PrevBlock]
		if !ok {
			return g.stakePool.Out
		}
		block = parent
	}
}

// epochRandomness returns the randomness of the epoch on the branch ending
// with the passed block.  False is returned when the last block of the epoch
// is not on the branch.
func (g *Generator) epochRandomness(tip *wire.MsgBlock, epoch uint64) (chainhash.Hash, bool) {
	last, ok := g.ancestorAt(tip, g.params.EpochStartHeight(epoch+1)-1)
	if !ok {
		return chainhash.Hash{}, false
	}
	randomness, ok := g.randomness[last.BlockHash()]
	return randomness, ok
}

// EpochRandomness returns the randomness of the epoch on the branch ending
// with the current tip.  False is returned when the epoch is not complete.
func (g *Generator) EpochRandomness(epoch uint64) (chainhash.Hash, bool) {
	return g.epochRandomness(g.tip, epoch)
}

// StakeSeed returns the randomness the stake kernel of a block at the given
// height on top of the current tip is drawn with.
func (g *Generator) StakeSeed(height int64) chainhash.Hash {
	epoch, ok := consensus.RandomnessEpoch(g.params, height)
	if !ok {
		return g.params.InitialRandomness
	}
	seed, ok := g.epochRandomness(g.tip, epoch)
	if !ok {
		return g.params.InitialRandomness
	}
	return seed
}

// ProveStake returns the VRF proof of the pool key over the transcript of the
// epoch of the height, the seed and the header timestamp.
func ProveStake(params *chaincfg.Params, key *secp256k1.PrivateKey, header *wire.BlockHeader,
	height int64, seed *chainhash.Hash) []byte {

	transcript := signature.VRFTranscript(params.EpochIndexFromHeight(height),
		seed, uint64(header.Timestamp.Unix()))
	proof, err := signature.VRFProve(key, &transcript)
	if err != nil {
		panic(fmt.Sprintf("unable to prove stake: %v", err))
	}
	return proof
}

// recordRandomness records the randomness of the epoch a block completes.  It
// chains the randomness of the previous epoch with the VRF output of the block,
// or its hash when it carries no proof of stake.
func (g *Generator) recordRandomness(block *wire.MsgBlock, height int64) {
	if !g.params.IsLastBlockInEpoch(height) {
		return
	}
	epoch := g.params.EpochIndexFromHeight(height)
	prev := g.params.InitialRandomness
	if parent, ok := g.blocks[block.Header.PrevBlock]; ok && epoch > 0 {
		if r, ok := g.epochRandomness(parent, epoch-1); ok {
			prev = r
		}
	}
	blockHash := block.BlockHash()
	entropy := blockHash
	if cd := &block.Header.ConsensusData; cd.Type == wire.ConsensusPoS {
		entropy = signature.VRFOutput(cd.VRFProof)
	}
	var buf [2 * chainhash.HashSize]byte
	copy(buf[:chainhash.HashSize], prev[:])
	copy(buf[chainhash.HashSize:], entropy[:])
	g.randomness[blockHash] = chainhash.HashH(buf[:])
}

// solveBlock increments the nonce of the header until its proof-of-work hash
// satisfies its bits.  It returns whether a solution was found.
func solveBlock(header *wire.BlockHeader, upgrade *chaincfg.NetUpgrade) bool {
	for i := 0; i < maxSolveAttempts; i++ {
		if consensus.CheckProofOfWork(header, upgrade.PowLimit) == nil {
			return true
		}
		header.ConsensusData.Nonce++
	}
	return false
}

// NextBlock builds a new block that extends the current tip associated with the
// generator and updates the generator's tip to the newly generated block.
//
// The block will include the following:
//   - A reward paying the block subsidy and the fees minus the number of
//     blocks generated so far in atoms to anyone, or for proof-of-stake
//     blocks a reward carrying the stake pool forward to its staker
//   - When a spendable output is provided, a transaction spending it to anyone
//     minus a fee
//
// Proof-of-stake blocks spend the kernel of the stake pool on the branch of the
// tip and carry a VRF proof over the seed of their height.  Since they pay no
// varying amount, sibling proof-of-stake blocks only differ when their
// transactions do.
//
// Additionally, if one or more munge functions are specified, they will be
// invoked with the block prior to solving it.  This provides callers with the
// opportunity to modify the block which is especially useful for testing.
//
// In order to simply the logic in the munge functions, the following rules are
// applied after all munge functions have been invoked:
//   - The block is solved when it carries a proof of work
//
// The merkle root and the VRF proof are calculated before the munge functions
// run, so a munge function that modifies the transactions or the reward must
// update the merkle root and one that modifies the timestamp must prove the
// stake again.
func (g *Generator) NextBlock(blockName string, spend *SpendableOut, mungers ...func(*wire.MsgBlock)) *wire.MsgBlock {
	if _, ok := g.blocksByName[blockName]; ok {
		panic(fmt.Sprintf("block name %s already exists", blockName))
	}

	parentHash := g.tip.BlockHash()
	height := g.blockHeights[parentHash] + 1

	var txns []*wire.MsgTx
	var fees amount.Amount
	if spend != nil {
		tx := wire.NewMsgTx()
		tx.AddTxIn(wire.NewTxIn(&spend.PrevOut, nil))
		tx.AddTxOut(wire.NewTransfer(spend.Amount-spendFee,
			wire.AnyoneCanSpend()))
		txns = append(txns, tx)
		fees = spendFee
	}
	payout := g.params.BlockSubsidyAtHeight(height) + fees -
		amount.Amount(g.generated)
	g.generated++

	var cd wire.ConsensusData
	rewardOut := wire.NewTransfer(payout, wire.AnyoneCanSpend())
	upgrade := g.params.ConsensusUpgradeAt(height)
	if upgrade != nil {
		switch upgrade.Kind {
		case chaincfg.ConsensusPoW:
			bits, err := consensus.CalcNextRequiredBits(g.params, height, g)
			if err != nil {
				panic(fmt.Sprintf("unable to calculate the difficulty of "+
					"block %s: %v", blockName, err))
			}
			cd = wire.ConsensusData{Type: wire.ConsensusPoW, Bits: bits}

		case chaincfg.ConsensusPoS:
			if g.stakePool == nil {
				panic(fmt.Sprintf("no stake pool to produce block %s",
					blockName))
			}
			kernel := g.stakeKernel(g.tip)
			cd = wire.ConsensusData{
				Type:         wire.ConsensusPoS,
				Bits:         upgrade.TargetBits,
				KernelInputs: []*wire.TxIn{wire.NewTxIn(&kernel, nil)},
				StakePoolID:  g.stakePool.ID,
			}
			rewardOut = &wire.TxOut{
				Type:        wire.OutputProduceBlockFromStake,
				Destination: wire.AnyoneCanSpend(),
				PoolID:      g.stakePool.ID,
			}
		}
	}

	block := &wire.MsgBlock{
		Header: wire.BlockHeader{
			Version:       wire.BlockVersion,
			PrevBlock:     parentHash,
			Timestamp:     g.tip.Header.Timestamp.Add(g.params.TargetTimePerBlock),
			ConsensusData: cd,
		},
		Reward: wire.BlockReward{
			Outputs: []*wire.TxOut{rewardOut},
		},
		Transactions: txns,
	}
	if block.Transactions == nil {
		block.Transactions = []*wire.MsgTx{}
	}
	block.Header.MerkleRoot = block.CalcMerkleRoot()
	if cd.Type == wire.ConsensusPoS {
		seed := g.StakeSeed(height)
		block.Header.ConsensusData.VRFProof = ProveStake(g.params,
			g.stakePool.VRFKey, &block.Header, height, &seed)
	}

	for _, f := range mungers {
		f(block)
	}

	if block.Header.ConsensusData.Type == wire.ConsensusPoW && upgrade != nil &&
		upgrade.PowLimit != nil {

		if !solveBlock(&block.Header, upgrade) {
			panic(fmt.Sprintf("unable to solve block %s at height %d",
				blockName, height))
		}
	}

	blockHash := block.BlockHash()
	g.blocks[blockHash] = block
	g.blockHeights[blockHash] = height
	g.blocksByName[blockName] = block
	g.blockNames[blockHash] = blockName
	g.recordRandomness(block, height)
	g.tip = block
	g.tipName = blockName
	return block
}
