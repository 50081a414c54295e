// Copyright (c) 2026 The stakechain developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

import (
	"bytes"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/davecgh/go-spew/spew"
	"github.com/decred/dcrd/chaincfg/chainhash"
)

// testBlock returns a block exercising every output and consensus kind.
func testBlock() *MsgBlock {
	pk := bytes.Repeat([]byte{0x02}, 33)
	pkh := bytes.Repeat([]byte{0x11}, 20)
	prev := chainhash.HashH([]byte("prev"))
	pool := chainhash.HashH([]byte("pool"))

	tx := NewMsgTx()
	tx.AddTxIn(NewTxIn(NewOutPoint(&prev, SourceTransaction, 1), []byte{1, 2, 3}))
	tx.AddTxIn(NewTxIn(NewOutPoint(&prev, SourceBlockReward, 0), nil))
	tx.AddTxOut(NewTransfer(5000, Destination{Type: DestAddress, Data: pkh}))
	tx.AddTxOut(NewLockThenTransfer(10, Destination{Type: DestPublicKey, Data: pk},
		Timelock{Type: LockForBlockCount, Value: 7}))
	tx.AddTxOut(NewBurn(TokenValue(pool, 3)))
	tx.AddTxOut(&TxOut{Type: OutputBurn, Value: IssuanceValue(&TokenIssuance{
		Ticker: "TKN", Supply: 1000, Decimals: 2, MetadataURI: "http://x",
	})})
	tx.AddTxOut(&TxOut{Type: OutputStakePool, Value: CoinValue(40), Pool: &StakePoolData{
		Staker:                 Destination{Type: DestPublicKey, Data: pk},
		VRFPublicKey:           pk,
		Decommission:           AnyoneCanSpend(),
		MarginRatioPerThousand: 100,
		CostPerEpoch:           5,
	}})
	tx.AddTxOut(&TxOut{Type: OutputCreateDelegationID,
		Destination: AnyoneCanSpend(), PoolID: pool})
	tx.AddTxOut(&TxOut{Type: OutputDelegateStaking, Value: CoinValue(9),
		DelegationID: pool})

	block := NewMsgBlock(&BlockHeader{
		Version:   BlockVersion,
		PrevBlock: prev,
		Timestamp: time.Unix(1700000000, 0),
		ConsensusData: ConsensusData{
			Type: ConsensusPoS,
			KernelInputs: []*TxIn{NewTxIn(NewOutPoint(&prev,
				SourceTransaction, 4), nil)},
			StakePoolID: pool,
			Bits:        0x207fffff,
			VRFProof:    []byte{9, 9, 9},
		},
	})
	block.Reward.Outputs = []*TxOut{{Type: OutputProduceBlockFromStake,
		Destination: AnyoneCanSpend(), PoolID: pool}}
	block.AddTransaction(tx)
	block.Header.MerkleRoot = block.CalcMerkleRoot()
	return block
}

// TestBlockSerialize ensures blocks round trip through their serialization and
// that the reported sizes and transaction locations are accurate.
func TestBlockSerialize(t *testing.T) {
	block := testBlock()
	b, err := block.Bytes()
	if err != nil {
		t.Fatalf("Bytes: unexpected error: %v", err)
	}
	if len(b) != block.SerializeSize() {
		t.Fatalf("SerializeSize: got %d, want %d", block.SerializeSize(),
			len(b))
	}

	var decoded MsgBlock
	if err := decoded.FromBytes(b); err != nil {
		t.Fatalf("FromBytes: unexpected error: %v", err)
	}
	if !reflect.DeepEqual(&decoded, block) {
		t.Fatalf("mismatched block - got %v, want %v", spew.Sdump(&decoded),
			spew.Sdump(block))
	}
	if decoded.BlockHash() != block.BlockHash() {
		t.Fatal("block hash changed across serialization")
	}

	for i, loc := range block.TxLoc() {
		var tx MsgTx
		raw := b[loc.TxStart : loc.TxStart+loc.TxLen]
		if err := tx.Deserialize(bytes.NewReader(raw)); err != nil {
			t.Fatalf("tx %d: unexpected error: %v", i, err)
		}
		if tx.TxHash() != block.Transactions[i].TxHash() {
			t.Fatalf("tx %d: located transaction mismatch", i)
		}
	}
}

// TestTxHashExcludesWitness ensures witnesses do not change transaction ids
// while header proofs do change block ids.
func TestTxHashExcludesWitness(t *testing.T) {
	block := testBlock()
	tx := block.Transactions[0]
	before := tx.TxHash()
	tx.TxIn[0].Witness = []byte{0xff}
	if tx.TxHash() != before {
		t.Fatal("witness changed the transaction hash")
	}

	id := block.BlockHash()
	block.Header.ConsensusData.VRFProof = []byte{1}
	if block.BlockHash() == id {
		t.Fatal("vrf proof did not change the block hash")
	}
	if !bytes.Equal(block.Header.VRFMessage(), testBlock().Header.VRFMessage()) {
		t.Fatal("vrf proof changed the vrf message")
	}
}

// TestOutPointKey ensures outpoint keys round trip and reject bad input.
func TestOutPointKey(t *testing.T) {
	hash := chainhash.HashH([]byte{1})
	op := NewOutPoint(&hash, SourceBlockReward, 0x01020304)
	got, err := OutPointFromKey(op.Key())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != *op {
		t.Fatalf("got %v, want %v", got, op)
	}

	key := op.Key()
	key[0] = 7
	if _, err := OutPointFromKey(key); !errors.Is(err, ErrUnknownOutPointSource) {
		t.Fatalf("unexpected error: %v", err)
	}
}

// TestDeserializeErrors ensures malformed data is rejected with the expected
// error kinds.
func TestDeserializeErrors(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want error
	}{{
		name: "unknown output type",
		data: []byte{byte(numOutputTypes)},
		want: ErrUnknownOutputType,
	}, {
		name: "unknown value type",
		data: []byte{byte(OutputTransfer), 9},
		want: ErrUnknownValueType,
	}, {
		name: "unknown destination",
		data: []byte{byte(OutputTransfer), byte(ValueCoin), 0, 0, 0, 0, 0, 0,
			0, 0, 9},
		want: ErrUnknownDestination,
	}}

	for _, test := range tests {
		var to TxOut
		err := to.Deserialize(bytes.NewReader(test.data))
		if !errors.Is(err, test.want) {
			t.Errorf("%s: got %v, want %v", test.name, err, test.want)
		}
	}
}
