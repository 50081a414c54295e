// Copyright (c) 2026 The stakechain developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package consensus

import (
	"errors"
	"fmt"
	"math/big"
	"testing"
	"time"

	"github.com/decred/dcrd/blockchain/standalone/v2"
	"github.com/decred/dcrd/chaincfg/chainhash"
	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/stakechain/chaind/chaincfg"
	"github.com/stakechain/chaind/internal/posaccounting"
	"github.com/stakechain/chaind/internal/signature"
	"github.com/stakechain/chaind/wire"
)

var (
	// easyPowLimit is a limit about half of all hashes satisfy.
	easyPowLimit = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 255), big.NewInt(1))

	// mainPowLimit matches the main network limit.
	mainPowLimit = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 224), big.NewInt(1))
)

// headerMap is a HeaderChain backed by a map of heights to headers.
type headerMap map[int64]*wire.BlockHeader

func (m headerMap) HeaderAt(height int64) (*wire.BlockHeader, error) {
	header, ok := m[height]
	if !ok {
		return nil, fmt.Errorf("no header at height %d", height)
	}
	return header, nil
}

// upgradeParams returns parameters that ignore consensus until height 5 and
// require proof of work from then on.
func upgradeParams() *chaincfg.Params {
	params := chaincfg.RegNetParams()
	params.NetUpgrades = []chaincfg.NetUpgrade{{
		Height: 0,
		Kind:   chaincfg.ConsensusIgnore,
	}, {
		Height:       5,
		Kind:         chaincfg.ConsensusPoW,
		InitialBits:  0x207fffff,
		PowLimit:     easyPowLimit,
		PowLimitBits: 0x207fffff,
	}}
	return params
}

// solveHeader increments the nonce of the header until its proof-of-work hash
// satisfies its bits.
func solveHeader(t *testing.T, header *wire.BlockHeader, powLimit *big.Int) {
	t.Helper()
	for i := 0; i < 1000; i++ {
		if CheckProofOfWork(header, powLimit) == nil {
			return
		}
		header.ConsensusData.Nonce++
	}
	t.Fatalf("unable to solve header with bits %08x",
		header.ConsensusData.Bits)
}

// TestConsensusTypeEnforcement ensures headers must carry the consensus data
// the net upgrade schedule requires at their height.
func TestConsensusTypeEnforcement(t *testing.T) {
	params := upgradeParams()
	noneHeader := &wire.BlockHeader{Timestamp: time.Unix(1700000000, 0)}
	powHeader := &wire.BlockHeader{
		Timestamp: time.Unix(1700000000, 0),
		ConsensusData: wire.ConsensusData{
			Type: wire.ConsensusPoW,
			Bits: 0x207fffff,
		},
	}

	tests := []struct {
		name   string
		header *wire.BlockHeader
		height int64
		want   error
	}{
		{name: "none before upgrade", header: noneHeader, height: 4},
		{name: "pow before upgrade", header: powHeader, height: 4,
			want: ErrConsensusTypeMismatch},
		{name: "none at upgrade", header: noneHeader, height: 5,
			want: ErrConsensusTypeMismatch},
		{name: "pow at upgrade", header: powHeader, height: 5},
		{name: "pow after upgrade", header: powHeader, height: 100},
	}
	for _, test := range tests {
		err := CheckConsensusType(params, test.header, test.height)
		if !errors.Is(err, test.want) {
			t.Errorf("%s: unexpected error -- got %v, want %v", test.name,
				err, test.want)
		}
	}

	// A mined header at the upgrade height passes the full proof-of-work
	// checks while an unmined one with an impossible target fails.
	header := *powHeader
	solveHeader(t, &header, easyPowLimit)
	if err := CheckPoWHeader(params, &header, 5, headerMap{}); err != nil {
		t.Fatalf("mined header rejected: %v", err)
	}
	header.ConsensusData.Bits = 0x1d00ffff
	err := CheckPoWHeader(params, &header, 5, headerMap{})
	if !errors.Is(err, ErrUnexpectedDifficulty) {
		t.Fatalf("unexpected error -- got %v, want %v", err,
			ErrUnexpectedDifficulty)
	}
}

// TestCheckProofOfWork ensures hashes above the declared target and targets
// above the limit are rejected.
func TestCheckProofOfWork(t *testing.T) {
	header := &wire.BlockHeader{
		Timestamp: time.Unix(1700000000, 0),
		ConsensusData: wire.ConsensusData{
			Type: wire.ConsensusPoW,
			Bits: 0x207fffff,
		},
	}
	solveHeader(t, header, easyPowLimit)

	err := CheckProofOfWork(header, mainPowLimit)
	if !errors.Is(err, ErrUnexpectedDifficulty) {
		t.Fatalf("unexpected error -- got %v, want %v", err,
			ErrUnexpectedDifficulty)
	}

	// A target of one is never met by a real hash.
	header.ConsensusData.Bits = 0x03000001
	err = CheckProofOfWork(header, easyPowLimit)
	if !errors.Is(err, ErrHighHash) {
		t.Fatalf("unexpected error -- got %v, want %v", err, ErrHighHash)
	}
}

// TestBlockProof ensures block proofs follow the bitcoin work formula and that
// blocks without a proof contribute one.
func TestBlockProof(t *testing.T) {
	header := &wire.BlockHeader{}
	if proof := BlockProof(header); proof.Uint64() != 1 {
		t.Fatalf("unexpected proof for a header without consensus data: %v",
			proof.ToBig())
	}

	header.ConsensusData = wire.ConsensusData{Type: wire.ConsensusPoW, Bits: 0x1d00ffff}
	proof := BlockProof(header)
	want := standalone.CalcWork(0x1d00ffff)
	if proof.ToBig().Cmp(want) != 0 {
		t.Fatalf("unexpected proof -- got %v, want %v", proof.ToBig(), want)
	}

	// Harder targets carry more trust.
	header.ConsensusData.Bits = 0x1c00ffff
	harder := BlockProof(header)
	if !proof.Lt(&harder) {
		t.Fatalf("proof %v of a harder target is not above %v",
			harder.ToBig(), proof.ToBig())
	}
}

// TestCalcNextRequiredBits ensures the retarget rules scale the previous
// target by the observed timespan within the adjustment limits.
func TestCalcNextRequiredBits(t *testing.T) {
	const startBits = 0x1c00ffff
	params := chaincfg.RegNetParams()
	params.NetUpgrades = []chaincfg.NetUpgrade{{
		Height:       0,
		Kind:         chaincfg.ConsensusPoW,
		InitialBits:  startBits,
		PowLimit:     mainPowLimit,
		PowLimitBits: 0x1d00ffff,
	}}
	params.PowNoRetargeting = false
	params.PowRetargetInterval = 4
	params.TargetTimePerBlock = 10 * time.Second
	params.RetargetAdjustmentFactor = 4

	// chainWithSpacing returns a four block chain whose blocks are the given
	// number of seconds apart.
	chainWithSpacing := func(bits uint32, spacing int64) headerMap {
		chain := make(headerMap)
		for h := int64(0); h < 4; h++ {
			chain[h] = &wire.BlockHeader{
				Timestamp: time.Unix(1700000000+h*spacing, 0),
				ConsensusData: wire.ConsensusData{
					Type: wire.ConsensusPoW,
					Bits: bits,
				},
			}
		}
		return chain
	}
	scaled := func(bits uint32, num, den int64) uint32 {
		target := standalone.CompactToBig(bits)
		target.Mul(target, big.NewInt(num))
		target.Div(target, big.NewInt(den))
		return standalone.BigToCompact(target)
	}

	tests := []struct {
		name   string
		chain  headerMap
		height int64
		want   uint32
	}{{
		name:   "first block of segment",
		chain:  headerMap{},
		height: 0,
		want:   startBits,
	}, {
		name:   "between retargets",
		chain:  chainWithSpacing(0x1b7fff80, 10),
		height: 3,
		want:   0x1b7fff80,
	}, {
		// Three gaps of 5s against a 40s target.
		name:   "fast blocks",
		chain:  chainWithSpacing(startBits, 5),
		height: 4,
		want:   scaled(startBits, 15, 40),
	}, {
		// Three gaps of 1s are clamped to a quarter of the target.
		name:   "clamped fast blocks",
		chain:  chainWithSpacing(startBits, 1),
		height: 4,
		want:   scaled(startBits, 1, 4),
	}, {
		// Very slow blocks are clamped to four times the target.
		name:   "clamped slow blocks",
		chain:  chainWithSpacing(startBits, 1000),
		height: 4,
		want:   scaled(startBits, 4, 1),
	}, {
		name:   "capped at limit",
		chain:  chainWithSpacing(0x1d00ffff, 1000),
		height: 4,
		want:   0x1d00ffff,
	}}
	for _, test := range tests {
		got, err := CalcNextRequiredBits(params, test.height, test.chain)
		if err != nil {
			t.Errorf("%s: unexpected error: %v", test.name, err)
			continue
		}
		if got != test.want {
			t.Errorf("%s: unexpected bits -- got %08x, want %08x",
				test.name, got, test.want)
		}
	}

	// Disabling retargets keeps the initial difficulty.
	params.PowNoRetargeting = true
	got, err := CalcNextRequiredBits(params, 4, chainWithSpacing(startBits, 1))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != startBits {
		t.Fatalf("unexpected bits -- got %08x, want %08x", got, startBits)
	}
}

func testKey(seed byte) *secp256k1.PrivateKey {
	var b [32]byte
	b[0] = 0x01
	b[31] = seed
	return secp256k1.PrivKeyFromBytes(b[:])
}

// TestCheckProofOfStake exercises the stake kernel rules.
func TestCheckProofOfStake(t *testing.T) {
	const easyBits = 0x207fffff
	params := chaincfg.RegNetParams()
	params.NetUpgrades = []chaincfg.NetUpgrade{{
		Height: 0,
		Kind:   chaincfg.ConsensusIgnore,
	}, {
		Height:     1,
		Kind:       chaincfg.ConsensusPoS,
		TargetBits: easyBits,
	}}

	key := testKey(1)
	poolInfo := &wire.StakePoolData{
		Staker:       signature.PublicKeyDestination(key.PubKey()),
		VRFPublicKey: key.PubKey().SerializeCompressed(),
		Decommission: signature.PublicKeyDestination(key.PubKey()),
	}
	kernelOutPoint := wire.NewOutPoint(&chainhash.Hash{0x02}, wire.SourceTransaction, 0)
	poolID := posaccounting.PoolID(kernelOutPoint)
	pools := posaccounting.NewCache(posaccounting.EmptyView{})
	if _, err := pools.CreatePool(poolID, posaccounting.NewPoolData(1000, poolInfo)); err != nil {
		t.Fatalf("CreatePool: %v", err)
	}
	poolOutput := &wire.TxOut{
		Type:  wire.OutputStakePool,
		Value: wire.CoinValue(1000),
		Pool:  poolInfo,
	}
	seed := chainhash.HashH([]byte("seed"))

	const height = 12
	makeHeader := func(signer *secp256k1.PrivateKey, bits uint32) *wire.BlockHeader {
		header := &wire.BlockHeader{
			Timestamp: time.Unix(1700000000, 0),
			ConsensusData: wire.ConsensusData{
				Type: wire.ConsensusPoS,
				Bits: bits,
				KernelInputs: []*wire.TxIn{wire.NewTxIn(kernelOutPoint, nil)},
				StakePoolID: poolID,
			},
		}
		transcript := signature.VRFTranscript(params.EpochIndexFromHeight(height),
			&seed, uint64(header.Timestamp.Unix()))
		proof, err := signature.VRFProve(signer, &transcript)
		if err != nil {
			t.Fatalf("VRFProve: %v", err)
		}
		header.ConsensusData.VRFProof = proof
		return header
	}

	// A proof by the pool key over a large target is accepted and yields
	// the VRF output.
	header := makeHeader(key, easyBits)
	out, err := CheckProofOfStake(params, header, height, poolOutput, pools, &seed)
	if err != nil {
		t.Fatalf("valid stake rejected: %v", err)
	}
	if out != signature.VRFOutput(header.ConsensusData.VRFProof) {
		t.Fatalf("unexpected vrf output %v", out)
	}

	otherPool := posaccounting.PoolID(wire.NewOutPoint(&chainhash.Hash{0x03},
		wire.SourceTransaction, 0))
	tests := []struct {
		name   string
		header *wire.BlockHeader
		kernel *wire.TxOut
		mutate func(p *chaincfg.Params)
		want   error
	}{{
		name:   "proof by another key",
		header: makeHeader(testKey(2), easyBits),
		kernel: poolOutput,
		want:   ErrBadBlockProof,
	}, {
		name:   "transfer kernel",
		header: makeHeader(key, easyBits),
		kernel: wire.NewTransfer(1000, wire.AnyoneCanSpend()),
		want:   ErrInvalidOutputPurposeInStakeKernel,
	}, {
		name:   "kernel of another pool",
		header: makeHeader(key, easyBits),
		kernel: &wire.TxOut{
			Type:        wire.OutputProduceBlockFromStake,
			Destination: wire.AnyoneCanSpend(),
			PoolID:      otherPool,
		},
		want: ErrKernelPoolMismatch,
	}, {
		name:   "unexpected target bits",
		header: makeHeader(key, 0x1d00ffff),
		kernel: poolOutput,
		want:   ErrUnexpectedDifficulty,
	}, {
		name:   "hash above weighted target",
		header: makeHeader(key, 0x03000001),
		kernel: poolOutput,
		mutate: func(p *chaincfg.Params) {
			p.NetUpgrades[1].TargetBits = 0x03000001
		},
		want: ErrStakeKernelHashTooHigh,
	}}
	for _, test := range tests {
		params := chaincfg.RegNetParams()
		params.NetUpgrades = []chaincfg.NetUpgrade{
			{Height: 0, Kind: chaincfg.ConsensusIgnore},
			{Height: 1, Kind: chaincfg.ConsensusPoS, TargetBits: easyBits},
		}
		if test.mutate != nil {
			test.mutate(params)
		}
		_, err := CheckProofOfStake(params, test.header, height, test.kernel,
			pools, &seed)
		if !errors.Is(err, test.want) {
			t.Errorf("%s: unexpected error -- got %v, want %v", test.name,
				err, test.want)
		}
	}

	// Pools unknown to the provided view have no sealed balance.
	_, err = CheckProofOfStake(params, header, height, poolOutput,
		posaccounting.EmptyView{}, &seed)
	if !errors.Is(err, ErrPoolBalanceNotFound) {
		t.Fatalf("unexpected error -- got %v, want %v", err,
			ErrPoolBalanceNotFound)
	}
}

// TestRandomnessEpoch ensures the epoch seeding stake kernels is one epoch
// closer for the last block of an epoch.
func TestRandomnessEpoch(t *testing.T) {
	tests := []struct {
		name      string
		distance  int64
		height    int64
		wantEpoch uint64
		wantOk    bool
	}{
		{name: "first epoch", distance: 0, height: 3},
		{name: "last block of first epoch", distance: 0, height: 4, wantEpoch: 0, wantOk: true},
		{name: "first block of second epoch", distance: 0, height: 5, wantEpoch: 0, wantOk: true},
		{name: "inside second epoch", distance: 0, height: 8, wantEpoch: 0, wantOk: true},
		{name: "last block of second epoch", distance: 0, height: 9, wantEpoch: 1, wantOk: true},
		{name: "third epoch", distance: 0, height: 10, wantEpoch: 1, wantOk: true},
		{name: "distance 2 too early", distance: 2, height: 12},
		{name: "distance 2 last block", distance: 2, height: 14, wantEpoch: 0, wantOk: true},
		{name: "distance 2 next epoch", distance: 2, height: 15, wantEpoch: 0, wantOk: true},
		{name: "distance 2 later last block", distance: 2, height: 24, wantEpoch: 2, wantOk: true},
		{name: "distance 2 later block", distance: 2, height: 23, wantEpoch: 1, wantOk: true},
	}
	for _, test := range tests {
		params := chaincfg.RegNetParams()
		params.EpochLength = 5
		params.SealedEpochDistanceFromTip = test.distance
		epoch, ok := RandomnessEpoch(params, test.height)
		if ok != test.wantOk || epoch != test.wantEpoch {
			t.Errorf("%s: unexpected epoch -- got %d (%v), want %d (%v)",
				test.name, epoch, ok, test.wantEpoch, test.wantOk)
		}
	}
}

// TestKernelInput ensures exactly one kernel input is required.
func TestKernelInput(t *testing.T) {
	in := wire.NewTxIn(wire.NewOutPoint(&chainhash.Hash{}, wire.SourceTransaction, 0), nil)
	tests := []struct {
		inputs []*wire.TxIn
		want   error
	}{
		{inputs: nil, want: ErrNoKernel},
		{inputs: []*wire.TxIn{in}},
		{inputs: []*wire.TxIn{in, in}, want: ErrMultipleKernels},
	}
	for i, test := range tests {
		header := &wire.BlockHeader{ConsensusData: wire.ConsensusData{
			Type:         wire.ConsensusPoS,
			KernelInputs: test.inputs,
		}}
		_, err := KernelInput(header)
		if !errors.Is(err, test.want) {
			t.Errorf("#%d: unexpected error -- got %v, want %v", i, err,
				test.want)
		}
	}
}
