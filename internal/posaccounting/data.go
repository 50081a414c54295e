// Copyright (c) 2026 The stakechain developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package posaccounting

import (
	"bytes"
	"fmt"

	"github.com/decred/dcrd/chaincfg/chainhash"
	"github.com/stakechain/chaind/internal/amount"
	"github.com/stakechain/chaind/internal/chaindb"
	"github.com/stakechain/chaind/wire"
)

// delegationTag separates delegation ids from pool ids derived from the same
// outpoint.
var delegationTag = []byte("delegation")

// PoolID returns the id of the pool created by the StakePool output at the
// given outpoint.
func PoolID(op *wire.OutPoint) chainhash.Hash {
	b := append(op.Key(), 0, 0, 0, 0)
	return chainhash.HashH(b)
}

// DelegationID returns the id of the delegation created by the
// CreateDelegationID output at the given outpoint.
func DelegationID(op *wire.OutPoint) chainhash.Hash {
	b := append(op.Key(), delegationTag...)
	return chainhash.HashH(b)
}

// PoolData is the stored state of a stake pool.
type PoolData struct {
	Pledge amount.Amount
	wire.StakePoolData
}

// NewPoolData returns the pool data of a stake pool output.
func NewPoolData(pledge amount.Amount, data *wire.StakePoolData) *PoolData {
	return &PoolData{Pledge: pledge, StakePoolData: *data}
}

// asTxOut returns the stake pool output the pool data is encoded as.
func (p *PoolData) asTxOut() *wire.TxOut {
	return &wire.TxOut{
		Type:  wire.OutputStakePool,
		Value: wire.CoinValue(p.Pledge),
		Pool:  &p.StakePoolData,
	}
}

// Serialize returns the serialized pool data.
func (p *PoolData) Serialize() ([]byte, error) {
	return p.asTxOut().Bytes()
}

// DeserializePoolData decodes pool data produced by Serialize.
func DeserializePoolData(b []byte) (*PoolData, error) {
	var out wire.TxOut
	if err := out.Deserialize(bytes.NewReader(b)); err != nil {
		return nil, chaindb.DecodeError(fmt.Sprintf("malformed pool "+
			"data: %v", err))
	}
	if out.Type != wire.OutputStakePool || out.Pool == nil {
		return nil, chaindb.DecodeError("pool data is not a stake pool")
	}
	return NewPoolData(out.Value.Amount, out.Pool), nil
}

// Equal returns whether both pool data are identical.  Nil pool data only
// equals nil.
func (p *PoolData) Equal(other *PoolData) bool {
	if p == nil || other == nil {
		return p == other
	}
	a, errA := p.Serialize()
	b, errB := other.Serialize()
	return errA == nil && errB == nil && bytes.Equal(a, b)
}

// DelegationData is the stored state of a delegation.
type DelegationData struct {
	PoolID chainhash.Hash
	Owner  wire.Destination
}

func (d *DelegationData) asTxOut() *wire.TxOut {
	return &wire.TxOut{
		Type:        wire.OutputCreateDelegationID,
		Destination: d.Owner,
		PoolID:      d.PoolID,
	}
}

// Serialize returns the serialized delegation data.
func (d *DelegationData) Serialize() ([]byte, error) {
	return d.asTxOut().Bytes()
}

// DeserializeDelegationData decodes delegation data produced by Serialize.
func DeserializeDelegationData(b []byte) (*DelegationData, error) {
	var out wire.TxOut
	if err := out.Deserialize(bytes.NewReader(b)); err != nil {
		return nil, chaindb.DecodeError(fmt.Sprintf("malformed delegation "+
			"data: %v", err))
	}
	if out.Type != wire.OutputCreateDelegationID {
		return nil, chaindb.DecodeError("delegation data is not a " +
			"delegation")
	}
	return &DelegationData{PoolID: out.PoolID, Owner: out.Destination}, nil
}

// Equal returns whether both delegation data are identical.
func (d *DelegationData) Equal(other *DelegationData) bool {
	if d == nil || other == nil {
		return d == other
	}
	return d.PoolID == other.PoolID && d.Owner.Equal(&other.Owner)
}

// ShareKey identifies the share a delegation holds in a pool.
type ShareKey struct {
	PoolID       chainhash.Hash
	DelegationID chainhash.Hash
}
