// Copyright (c) 2014-2016 The btcsuite developers
// Copyright (c) 2015-2024 The Decred developers
// Copyright (c) 2026 The stakechain developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package chaincfg

import (
	"fmt"
	"math/big"
	"time"

	"github.com/decred/dcrd/chaincfg/chainhash"
	"github.com/stakechain/chaind/internal/amount"
	"github.com/stakechain/chaind/wire"
)

// bigOne is 1 represented as a big.Int.  It is defined here to avoid the
// overhead of creating it multiple times.
var bigOne = big.NewInt(1)

// CurrencyNet represents which network a serialized block belongs to.  It is
// written ahead of every block in bootstrap files.
type CurrencyNet uint32

// Constants used to indicate the network.
const (
	// MainNet represents the main network.
	MainNet CurrencyNet = 0xb194aa75

	// TestNet represents the public test network.
	TestNet CurrencyNet = 0x2e1a4f0b

	// RegNet represents the regression test network.
	RegNet CurrencyNet = 0xdab5bffa

	// SimNet represents the simulation test network.
	SimNet CurrencyNet = 0x12141c16
)

var currencyNetStrings = map[CurrencyNet]string{
	MainNet: "MainNet",
	TestNet: "TestNet",
	RegNet:  "RegNet",
	SimNet:  "SimNet",
}

// String returns the CurrencyNet in human-readable form.
func (n CurrencyNet) String() string {
	if s, ok := currencyNetStrings[n]; ok {
		return s
	}
	return fmt.Sprintf("Unknown CurrencyNet (%d)", uint32(n))
}

// ConsensusKind identifies the consensus rules of a net upgrade.
type ConsensusKind uint8

// These constants define the consensus kinds.
const (
	// ConsensusIgnore accepts blocks without any proof.
	ConsensusIgnore ConsensusKind = iota

	// ConsensusPoW requires a proof of work.
	ConsensusPoW

	// ConsensusPoS requires a proof of stake.
	ConsensusPoS
)

// String returns the ConsensusKind in human-readable form.
func (k ConsensusKind) String() string {
	switch k {
	case ConsensusIgnore:
		return "IgnoreConsensus"
	case ConsensusPoW:
		return "ProofOfWork"
	case ConsensusPoS:
		return "ProofOfStake"
	}
	return fmt.Sprintf("Unknown ConsensusKind (%d)", uint8(k))
}

// NetUpgrade activates a consensus kind from Height until the next upgrade.
type NetUpgrade struct {
	// Height is the first block height the upgrade applies to.
	Height int64

	// Kind is the consensus required of blocks covered by the upgrade.
	Kind ConsensusKind

	// InitialBits is the compact difficulty of the first proof-of-work
	// block of the segment.
	InitialBits uint32

	// PowLimit is the highest proof-of-work target allowed in the
	// segment.
	PowLimit *big.Int

	// PowLimitBits is PowLimit in compact form.
	PowLimitBits uint32

	// TargetBits is the compact stake target proof-of-stake headers must
	// declare.
	TargetBits uint32
}

// Params defines a network by its parameters.  These parameters may be used by
// applications to differentiate networks as well as addresses and keys for one
// network from those intended for use on another network.
type Params struct {
	// Name defines a human-readable identifier for the network.
	Name string

	// Net defines the magic bytes used to identify the network.
	Net CurrencyNet

	// GenesisBlock defines the first block of the chain.
	GenesisBlock *wire.MsgBlock

	// GenesisHash is the starting block hash.
	GenesisHash chainhash.Hash

	// NetUpgrades is the consensus schedule ordered by activation height.
	// The first upgrade must activate at height zero.
	NetUpgrades []NetUpgrade

	// MaxBlockSize is the maximum number of bytes a serialized block may
	// occupy.
	MaxBlockSize int

	// MaxFutureBlockTime is how far ahead of the local clock a block
	// timestamp may be.
	MaxFutureBlockTime time.Duration

	// TargetTimePerBlock is the desired amount of time to generate each
	// block.
	TargetTimePerBlock time.Duration

	// PowRetargetInterval is the number of blocks between proof-of-work
	// difficulty adjustments.
	PowRetargetInterval int64

	// RetargetAdjustmentFactor is the adjustment factor used to limit
	// the minimum and maximum amount of adjustment that can occur between
	// difficulty retargets.
	RetargetAdjustmentFactor int64

	// PowNoRetargeting disables difficulty adjustments.  Every
	// proof-of-work block then declares the initial difficulty of its
	// segment.
	PowNoRetargeting bool

	// EpochLength is the number of blocks in an accounting epoch.
	EpochLength int64

	// SealedEpochDistanceFromTip is how many epochs behind the tip an
	// epoch must be before its accounting is sealed.
	SealedEpochDistanceFromTip int64

	// InitialRandomness seeds the stake kernel until the first epoch is
	// sealed.
	InitialRandomness chainhash.Hash

	// BlockRewardMaturity is the number of blocks required before a block
	// reward output can be spent.
	BlockRewardMaturity int64

	// BaseSubsidy is the block subsidy before any halving.
	BaseSubsidy amount.Amount

	// SubsidyHalvingInterval is the number of blocks between subsidy
	// halvings.
	SubsidyHalvingInterval int64

	// TokenMinIssuanceFee is the amount of coins a token issuing
	// transaction must burn.
	TokenMinIssuanceFee amount.Amount

	// TokenMaxTickerLen is the maximum length of a token ticker.
	TokenMaxTickerLen int

	// TokenMaxDecimals is the maximum number of decimals of a token.
	TokenMaxDecimals uint8

	// TokenMaxURILen is the maximum length of a token metadata URI.
	TokenMaxURILen int

	// AddressPrefix is the two byte prefix of encoded addresses.
	AddressPrefix [2]byte
}

// ConsensusUpgradeAt returns the net upgrade that applies to the given height.
func (p *Params) ConsensusUpgradeAt(height int64) *NetUpgrade {
	var upgrade *NetUpgrade
	for i := range p.NetUpgrades {
		if p.NetUpgrades[i].Height > height {
			break
		}
		upgrade = &p.NetUpgrades[i]
	}
	return upgrade
}

// EpochIndexFromHeight returns the epoch the block at the given height
// belongs to.
func (p *Params) EpochIndexFromHeight(height int64) uint64 {
	return uint64(height / p.EpochLength)
}

// EpochStartHeight returns the height of the first block of an epoch.
func (p *Params) EpochStartHeight(epoch uint64) int64 {
	return int64(epoch) * p.EpochLength
}

// IsLastBlockInEpoch returns whether the block at the given height is the last
// block of its epoch.
func (p *Params) IsLastBlockInEpoch(height int64) bool {
	return (height+1)%p.EpochLength == 0
}

// BlockSubsidyAtHeight returns the subsidy the reward of the block at the given
// height may claim.
func (p *Params) BlockSubsidyAtHeight(height int64) amount.Amount {
	if height <= 0 {
		return 0
	}
	halvings := height / p.SubsidyHalvingInterval
	if halvings >= 64 {
		return 0
	}
	return p.BaseSubsidy >> uint(halvings)
}

// EncodeAddress encodes a public key hash as a human-readable address.
func (p *Params) EncodeAddress(pubKeyHash []byte) string {
	return encodeAddress(pubKeyHash, p.AddressPrefix)
}

// DecodeAddress decodes an address produced by EncodeAddress.
func (p *Params) DecodeAddress(addr string) ([]byte, error) {
	return decodeAddress(addr, p.AddressPrefix)
}

// Validate ensures the parameters are internally consistent.
func (p *Params) Validate() error {
	if len(p.NetUpgrades) == 0 || p.NetUpgrades[0].Height != 0 {
		return fmt.Errorf("%s: net upgrades must start at height 0", p.Name)
	}
	for i := 1; i < len(p.NetUpgrades); i++ {
		if p.NetUpgrades[i].Height <= p.NetUpgrades[i-1].Height {
			return fmt.Errorf("%s: net upgrade %d does not activate "+
				"after its predecessor", p.Name, i)
		}
	}
	for i := range p.NetUpgrades {
		u := &p.NetUpgrades[i]
		if u.Kind == ConsensusPoW && u.PowLimit == nil {
			return fmt.Errorf("%s: proof-of-work upgrade at height %d "+
				"has no limit", p.Name, u.Height)
		}
	}
	switch {
	case p.EpochLength <= 0:
		return fmt.Errorf("%s: epoch length must be positive", p.Name)
	case p.SubsidyHalvingInterval <= 0:
		return fmt.Errorf("%s: subsidy halving interval must be "+
			"positive", p.Name)
	case p.RetargetAdjustmentFactor <= 0:
		return fmt.Errorf("%s: retarget adjustment factor must be "+
			"positive", p.Name)
	case p.SealedEpochDistanceFromTip < 0:
		return fmt.Errorf("%s: sealed epoch distance must not be "+
			"negative", p.Name)
	case p.GenesisBlock == nil:
		return fmt.Errorf("%s: no genesis block", p.Name)
	case p.GenesisBlock.BlockHash() != p.GenesisHash:
		return fmt.Errorf("%s: genesis hash does not commit to the "+
			"genesis block", p.Name)
	}
	return nil
}
