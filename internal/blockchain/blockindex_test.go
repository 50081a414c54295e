// Copyright (c) 2018-2022 The Decred developers
// Copyright (c) 2026 The stakechain developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockchain

import (
	"errors"
	"math/bits"
	"testing"
	"time"

	"github.com/davecgh/go-spew/spew"
	"github.com/stakechain/chaind/chaincfg"
	"github.com/stakechain/chaind/internal/chaindb"
	"github.com/stakechain/chaind/wire"
	"pgregory.net/rapid"
)

// TestCalcSkipListHeight ensures the skip list height of every block is below
// the block and only drops set bits of the height.
func TestCalcSkipListHeight(t *testing.T) {
	for height := int64(0); height < 2; height++ {
		if got := calcSkipListHeight(height); got != 0 {
			t.Fatalf("calcSkipListHeight(%d) = %d, want 0", height, got)
		}
	}

	rapid.Check(t, func(t *rapid.T) {
		height := rapid.Int64Range(2, 1<<40).Draw(t, "height")

		skip := calcSkipListHeight(height)
		if skip < 0 || skip >= height {
			t.Fatalf("calcSkipListHeight(%d) = %d is out of range", height,
				skip)
		}
		if skip&^height != 0 {
			t.Fatalf("calcSkipListHeight(%d) = %d sets bits the height "+
				"does not have", height, skip)
		}
		if bits.OnesCount64(uint64(height)) > 2 &&
			bits.Len64(uint64(skip)) != bits.Len64(uint64(height)) {

			t.Fatalf("calcSkipListHeight(%d) = %d drops the highest bit",
				height, skip)
		}
	})
}

// TestBlockIndexSerialization ensures a block index survives a trip through
// its serialized form and that malformed data is rejected.
func TestBlockIndexSerialization(t *testing.T) {
	params := chaincfg.RegNetParams()
	genesis := newGenesisIndex(params.GenesisBlock)

	header := wire.BlockHeader{
		Version:    wire.BlockVersion,
		PrevBlock:  params.GenesisHash,
		MerkleRoot: params.GenesisBlock.Header.MerkleRoot,
		Timestamp:  time.Unix(params.GenesisBlock.Header.Timestamp.Unix()+1, 0),
		ConsensusData: wire.ConsensusData{
			Type:  wire.ConsensusPoW,
			Bits:  0x207fffff,
			Nonce: 12345,
		},
	}
	idx := newBlockIndex(&header, genesis, params.GenesisHash)
	idx.status = statusDataStored | statusValidated

	serialized, err := idx.serialize()
	if err != nil {
		t.Fatalf("serialize: unexpected error: %v", err)
	}
	hash := header.BlockHash()
	got, err := deserializeBlockIndex(&hash, serialized)
	if err != nil {
		t.Fatalf("deserializeBlockIndex: unexpected error: %v", err)
	}
	if got.hash != idx.hash || got.height != idx.height ||
		got.chainTrust.Bytes() != idx.chainTrust.Bytes() ||
		got.skipHash != idx.skipHash || got.status != idx.status ||
		got.header.BlockHash() != hash {

		t.Fatalf("mismatched block index -- got %v, want %v",
			spew.Sdump(got), spew.Sdump(idx))
	}
	if !got.status.HasValidated() || got.status.KnownInvalid() {
		t.Fatalf("unexpected status %08b", got.status)
	}

	var decodeErr chaindb.ContextError
	_, err = deserializeBlockIndex(&hash, serialized[:blockIndexFixedSize-1])
	if !errors.As(err, &decodeErr) || !errors.Is(err, chaindb.ErrDbDecode) {
		t.Fatalf("unexpected error for a truncated index -- got %v, want %v",
			err, chaindb.ErrDbDecode)
	}
	_, err = deserializeBlockIndex(&hash, serialized[:blockIndexFixedSize+1])
	if !errors.Is(err, chaindb.ErrDbDecode) {
		t.Fatalf("unexpected error for a truncated header -- got %v, want %v",
			err, chaindb.ErrDbDecode)
	}
}

// TestBlockStatus ensures the validation states of a block are reported as
// expected.
func TestBlockStatus(t *testing.T) {
	tests := []struct {
		name            string
		status          blockStatus
		haveData        bool
		validated       bool
		validateFailed  bool
		invalidAncestor bool
		knownInvalid    bool
	}{{
		name:     "data stored",
		status:   statusDataStored,
		haveData: true,
	}, {
		name:      "validated",
		status:    statusDataStored | statusValidated,
		haveData:  true,
		validated: true,
	}, {
		name:           "failed",
		status:         statusDataStored | statusValidateFailed,
		haveData:       true,
		validateFailed: true,
		knownInvalid:   true,
	}, {
		name:            "invalid ancestor",
		status:          statusDataStored | statusInvalidAncestor,
		haveData:        true,
		invalidAncestor: true,
		knownInvalid:    true,
	}}
	for _, test := range tests {
		if got := test.status.HaveData(); got != test.haveData {
			t.Errorf("%q: HaveData -- got %v, want %v", test.name, got,
				test.haveData)
		}
		if got := test.status.HasValidated(); got != test.validated {
			t.Errorf("%q: HasValidated -- got %v, want %v", test.name, got,
				test.validated)
		}
		if got := test.status.KnownValidateFailed(); got != test.validateFailed {
			t.Errorf("%q: KnownValidateFailed -- got %v, want %v", test.name,
				got, test.validateFailed)
		}
		if got := test.status.KnownInvalidAncestor(); got != test.invalidAncestor {
			t.Errorf("%q: KnownInvalidAncestor -- got %v, want %v",
				test.name, got, test.invalidAncestor)
		}
		if got := test.status.KnownInvalid(); got != test.knownInvalid {
			t.Errorf("%q: KnownInvalid -- got %v, want %v", test.name, got,
				test.knownInvalid)
		}
	}
}

// TestMedianTime ensures the median of timestamps is calculated as expected.
func TestMedianTime(t *testing.T) {
	tests := []struct {
		name       string
		timestamps []int64
		want       int64
	}{{
		name:       "single",
		timestamps: []int64{1000},
		want:       1000,
	}, {
		name:       "even count takes the upper middle",
		timestamps: []int64{1000, 1001},
		want:       1001,
	}, {
		name:       "unsorted",
		timestamps: []int64{1005, 1001, 1003, 1002, 1004},
		want:       1003,
	}, {
		name:       "duplicates",
		timestamps: []int64{1000, 1000, 999, 1000, 1010, 1010, 1010},
		want:       1000,
	}}
	for _, test := range tests {
		got := medianTime(test.timestamps)
		if got.Unix() != test.want {
			t.Errorf("%q: unexpected median -- got %d, want %d", test.name,
				got.Unix(), test.want)
		}
	}
}
