// Copyright (c) 2026 The stakechain developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

import (
	"bytes"
	"fmt"
	"io"

	"github.com/decred/dcrd/chaincfg/chainhash"
	"github.com/stakechain/chaind/internal/amount"
)

const (
	// MaxTokenTickerLen is the maximum length of a token ticker.
	MaxTokenTickerLen = 12

	// MaxTokenMetadataURILen is the maximum length of a token metadata URI.
	MaxTokenMetadataURILen = 1024
)

// OutputType identifies the purpose of a transaction output.
type OutputType uint8

// These constants define the output purposes.
const (
	// OutputTransfer sends a value to a destination.
	OutputTransfer OutputType = iota

	// OutputLockThenTransfer sends a value to a destination that may not
	// be spent until its timelock is satisfied.
	OutputLockThenTransfer

	// OutputBurn permanently destroys a value.
	OutputBurn

	// OutputStakePool pledges coins to create a new stake pool.
	OutputStakePool

	// OutputProduceBlockFromStake carries a stake pool forward through
	// the block reward of a proof-of-stake block.
	OutputProduceBlockFromStake

	// OutputCreateDelegationID creates a delegation bound to a pool.
	OutputCreateDelegationID

	// OutputDelegateStaking adds coins to an existing delegation.
	OutputDelegateStaking

	numOutputTypes
)

var outputTypeStrings = map[OutputType]string{
	OutputTransfer:              "Transfer",
	OutputLockThenTransfer:      "LockThenTransfer",
	OutputBurn:                  "Burn",
	OutputStakePool:             "StakePool",
	OutputProduceBlockFromStake: "ProduceBlockFromStake",
	OutputCreateDelegationID:    "CreateDelegationId",
	OutputDelegateStaking:       "DelegateStaking",
}

// String returns the OutputType in human-readable form.
func (t OutputType) String() string {
	if s, ok := outputTypeStrings[t]; ok {
		return s
	}
	return fmt.Sprintf("Unknown OutputType (%d)", uint8(t))
}

// ValueType identifies what an output value carries.
type ValueType uint8

// These constants define the output value kinds.
const (
	ValueCoin ValueType = iota
	ValueTokenTransfer
	ValueTokenIssuance
)

// TokenIssuance describes the creation of a new fungible token.
type TokenIssuance struct {
	Ticker      string
	Supply      amount.Amount
	Decimals    uint8
	MetadataURI string
}

// OutputValue is the value carried by an output.  Coin values only use
// Amount.  Token transfers use TokenID and Amount.  Token issuances use
// Issuance.
type OutputValue struct {
	Type     ValueType
	Amount   amount.Amount
	TokenID  chainhash.Hash
	Issuance *TokenIssuance
}

// CoinValue returns an output value of the given coin amount.
func CoinValue(a amount.Amount) OutputValue {
	return OutputValue{Type: ValueCoin, Amount: a}
}

// TokenValue returns an output value transferring the given amount of a
// token.
func TokenValue(id chainhash.Hash, a amount.Amount) OutputValue {
	return OutputValue{Type: ValueTokenTransfer, TokenID: id, Amount: a}
}

// IssuanceValue returns an output value issuing a new token.
func IssuanceValue(issuance *TokenIssuance) OutputValue {
	return OutputValue{Type: ValueTokenIssuance, Issuance: issuance}
}

// DestinationType identifies the spending condition of an output.
type DestinationType uint8

// These constants define the destination kinds.
const (
	// DestAnyoneCanSpend requires no witness.
	DestAnyoneCanSpend DestinationType = iota

	// DestAddress commits to the hash160 of a public key.
	DestAddress

	// DestPublicKey commits to a compressed secp256k1 public key.
	DestPublicKey

	// DestScriptHash commits to the hash of a script.  Spending script hash
	// destinations is not supported yet.
	DestScriptHash
)

// Destination is the spending condition of an output.
type Destination struct {
	Type DestinationType
	Data []byte
}

// AnyoneCanSpend returns a destination that requires no witness.
func AnyoneCanSpend() Destination {
	return Destination{Type: DestAnyoneCanSpend}
}

// Equal returns whether the two destinations are identical.
func (d *Destination) Equal(other *Destination) bool {
	return d.Type == other.Type && bytes.Equal(d.Data, other.Data)
}

// TimelockType identifies how a LockThenTransfer output is locked.
type TimelockType uint8

// These constants define the timelock kinds.
const (
	LockUntilHeight TimelockType = iota
	LockUntilTime
	LockForBlockCount
	LockForSeconds
)

// Timelock is the lock condition of a LockThenTransfer output.  Value is a
// height, a unix time, a block count or a number of seconds depending on the
// type.
type Timelock struct {
	Type  TimelockType
	Value uint64
}

// StakePoolData describes a stake pool created by a StakePool output.
type StakePoolData struct {
	Staker                 Destination
	VRFPublicKey           []byte
	Decommission           Destination
	MarginRatioPerThousand uint16
	CostPerEpoch           amount.Amount
}

// TxOut defines an output of a transaction or block reward.
//
// Which fields are meaningful depends on Type:
//
//	Transfer:              Value, Destination
//	LockThenTransfer:      Value, Destination, Timelock
//	Burn:                  Value
//	StakePool:             Value (the pledge), Pool
//	ProduceBlockFromStake: Destination, PoolID
//	CreateDelegationID:    Destination, PoolID
//	DelegateStaking:       Value, DelegationID
type TxOut struct {
	Type         OutputType
	Value        OutputValue
	Destination  Destination
	Timelock     Timelock
	Pool         *StakePoolData
	PoolID       chainhash.Hash
	DelegationID chainhash.Hash
}

// NewTransfer returns a transfer output of coins to the given destination.
func NewTransfer(value amount.Amount, dest Destination) *TxOut {
	return &TxOut{
		Type:        OutputTransfer,
		Value:       CoinValue(value),
		Destination: dest,
	}
}

// NewLockThenTransfer returns a timelocked coin output.
func NewLockThenTransfer(value amount.Amount, dest Destination, lock Timelock) *TxOut {
	return &TxOut{
		Type:        OutputLockThenTransfer,
		Value:       CoinValue(value),
		Destination: dest,
		Timelock:    lock,
	}
}

// NewBurn returns an output destroying the given value.
func NewBurn(value OutputValue) *TxOut {
	return &TxOut{Type: OutputBurn, Value: value}
}

// hasValue reports whether the output type carries an OutputValue.
func (t OutputType) hasValue() bool {
	switch t {
	case OutputTransfer, OutputLockThenTransfer, OutputBurn,
		OutputStakePool, OutputDelegateStaking:
		return true
	}
	return false
}

// hasDestination reports whether the output type carries a Destination.
func (t OutputType) hasDestination() bool {
	switch t {
	case OutputTransfer, OutputLockThenTransfer,
		OutputProduceBlockFromStake, OutputCreateDelegationID:
		return true
	}
	return false
}

// SpendDestination returns the destination a spender of the output must
// satisfy along with whether the output is spendable at all.  Stake pool
// outputs are spent by their decommission key.
func (o *TxOut) SpendDestination() (*Destination, bool) {
	switch o.Type {
	case OutputTransfer, OutputLockThenTransfer,
		OutputProduceBlockFromStake:
		return &o.Destination, true
	case OutputStakePool:
		if o.Pool == nil {
			return nil, false
		}
		return &o.Pool.Decommission, true
	}
	return nil, false
}

func writeDestination(w io.Writer, d *Destination) error {
	if err := writeUint8(w, uint8(d.Type)); err != nil {
		return err
	}
	if d.Type == DestAnyoneCanSpend {
		return nil
	}
	return writeVarBytes(w, d.Data)
}

func readDestination(r io.Reader, d *Destination) error {
	t, err := readUint8(r)
	if err != nil {
		return err
	}
	d.Type = DestinationType(t)
	switch d.Type {
	case DestAnyoneCanSpend:
		d.Data = nil
		return nil
	case DestAddress, DestPublicKey, DestScriptHash:
	default:
		str := fmt.Sprintf("unknown destination type %d", t)
		return messageError("readDestination", ErrUnknownDestination, str)
	}
	d.Data, err = readVarBytes(r, MaxDataFieldSize, "destination")
	return err
}

func destinationSize(d *Destination) int {
	if d.Type == DestAnyoneCanSpend {
		return 1
	}
	return 1 + varBytesSize(d.Data)
}

func writeOutputValue(w io.Writer, v *OutputValue) error {
	if err := writeUint8(w, uint8(v.Type)); err != nil {
		return err
	}
	switch v.Type {
	case ValueCoin:
		return writeUint64(w, uint64(v.Amount))
	case ValueTokenTransfer:
		if _, err := w.Write(v.TokenID[:]); err != nil {
			return err
		}
		return writeUint64(w, uint64(v.Amount))
	case ValueTokenIssuance:
		iss := v.Issuance
		if iss == nil {
			iss = &TokenIssuance{}
		}
		if err := writeVarBytes(w, []byte(iss.Ticker)); err != nil {
			return err
		}
		if err := writeUint64(w, uint64(iss.Supply)); err != nil {
			return err
		}
		if err := writeUint8(w, iss.Decimals); err != nil {
			return err
		}
		return writeVarBytes(w, []byte(iss.MetadataURI))
	}
	str := fmt.Sprintf("unknown value type %d", v.Type)
	return messageError("writeOutputValue", ErrUnknownValueType, str)
}

func readOutputValue(r io.Reader, v *OutputValue) error {
	const op = "readOutputValue"
	t, err := readUint8(r)
	if err != nil {
		return err
	}
	v.Type = ValueType(t)
	switch v.Type {
	case ValueCoin:
		amt, err := readUint64(r)
		v.Amount = amount.Amount(amt)
		return err

	case ValueTokenTransfer:
		if err := readHash(r, &v.TokenID); err != nil {
			return err
		}
		amt, err := readUint64(r)
		v.Amount = amount.Amount(amt)
		return err

	case ValueTokenIssuance:
		var iss TokenIssuance
		iss.Ticker, err = readVarString(r, MaxTokenTickerLen, "ticker")
		if err != nil {
			return err
		}
		supply, err := readUint64(r)
		if err != nil {
			return err
		}
		iss.Supply = amount.Amount(supply)
		if iss.Decimals, err = readUint8(r); err != nil {
			return err
		}
		iss.MetadataURI, err = readVarString(r, MaxTokenMetadataURILen,
			"metadata uri")
		if err != nil {
			return err
		}
		v.Issuance = &iss
		return nil
	}
	str := fmt.Sprintf("unknown value type %d", t)
	return messageError(op, ErrUnknownValueType, str)
}

func outputValueSize(v *OutputValue) int {
	switch v.Type {
	case ValueCoin:
		return 1 + 8
	case ValueTokenTransfer:
		return 1 + chainhash.HashSize + 8
	case ValueTokenIssuance:
		iss := v.Issuance
		if iss == nil {
			iss = &TokenIssuance{}
		}
		return 1 + varBytesSize([]byte(iss.Ticker)) + 8 + 1 +
			varBytesSize([]byte(iss.MetadataURI))
	}
	return 1
}

func writePoolData(w io.Writer, p *StakePoolData) error {
	if err := writeDestination(w, &p.Staker); err != nil {
		return err
	}
	if err := writeVarBytes(w, p.VRFPublicKey); err != nil {
		return err
	}
	if err := writeDestination(w, &p.Decommission); err != nil {
		return err
	}
	if err := writeUint16(w, p.MarginRatioPerThousand); err != nil {
		return err
	}
	return writeUint64(w, uint64(p.CostPerEpoch))
}

func readPoolData(r io.Reader, p *StakePoolData) error {
	if err := readDestination(r, &p.Staker); err != nil {
		return err
	}
	var err error
	p.VRFPublicKey, err = readVarBytes(r, MaxDataFieldSize, "vrf public key")
	if err != nil {
		return err
	}
	if err := readDestination(r, &p.Decommission); err != nil {
		return err
	}
	if p.MarginRatioPerThousand, err = readUint16(r); err != nil {
		return err
	}
	cost, err := readUint64(r)
	p.CostPerEpoch = amount.Amount(cost)
	return err
}

func poolDataSize(p *StakePoolData) int {
	return destinationSize(&p.Staker) + varBytesSize(p.VRFPublicKey) +
		destinationSize(&p.Decommission) + 2 + 8
}

// Serialize encodes the output to w.
func (o *TxOut) Serialize(w io.Writer) error {
	const op = "TxOut.Serialize"
	if o.Type >= numOutputTypes {
		str := fmt.Sprintf("unknown output type %d", o.Type)
		return messageError(op, ErrUnknownOutputType, str)
	}
	if err := writeUint8(w, uint8(o.Type)); err != nil {
		return err
	}
	if o.Type.hasValue() {
		if err := writeOutputValue(w, &o.Value); err != nil {
			return err
		}
	}
	if o.Type.hasDestination() {
		if err := writeDestination(w, &o.Destination); err != nil {
			return err
		}
	}
	switch o.Type {
	case OutputLockThenTransfer:
		if err := writeUint8(w, uint8(o.Timelock.Type)); err != nil {
			return err
		}
		return writeUint64(w, o.Timelock.Value)

	case OutputStakePool:
		if o.Pool == nil {
			return messageError(op, ErrMissingPoolData, "stake pool "+
				"output without pool data")
		}
		return writePoolData(w, o.Pool)

	case OutputProduceBlockFromStake, OutputCreateDelegationID:
		_, err := w.Write(o.PoolID[:])
		return err

	case OutputDelegateStaking:
		_, err := w.Write(o.DelegationID[:])
		return err
	}
	return nil
}

// Deserialize decodes an output from r into the receiver.
func (o *TxOut) Deserialize(r io.Reader) error {
	const op = "TxOut.Deserialize"
	t, err := readUint8(r)
	if err != nil {
		return err
	}
	*o = TxOut{Type: OutputType(t)}
	if o.Type >= numOutputTypes {
		str := fmt.Sprintf("unknown output type %d", t)
		return messageError(op, ErrUnknownOutputType, str)
	}
	if o.Type.hasValue() {
		if err := readOutputValue(r, &o.Value); err != nil {
			return err
		}
	}
	if o.Type.hasDestination() {
		if err := readDestination(r, &o.Destination); err != nil {
			return err
		}
	}
	switch o.Type {
	case OutputLockThenTransfer:
		lt, err := readUint8(r)
		if err != nil {
			return err
		}
		if TimelockType(lt) > LockForSeconds {
			str := fmt.Sprintf("unknown timelock type %d", lt)
			return messageError(op, ErrUnknownTimelock, str)
		}
		o.Timelock.Type = TimelockType(lt)
		o.Timelock.Value, err = readUint64(r)
		return err

	case OutputStakePool:
		o.Pool = new(StakePoolData)
		return readPoolData(r, o.Pool)

	case OutputProduceBlockFromStake, OutputCreateDelegationID:
		return readHash(r, &o.PoolID)

	case OutputDelegateStaking:
		return readHash(r, &o.DelegationID)
	}
	return nil
}

// SerializeSize returns the number of bytes it would take to serialize the
// output.
func (o *TxOut) SerializeSize() int {
	n := 1
	if o.Type.hasValue() {
		n += outputValueSize(&o.Value)
	}
	if o.Type.hasDestination() {
		n += destinationSize(&o.Destination)
	}
	switch o.Type {
	case OutputLockThenTransfer:
		n += 1 + 8
	case OutputStakePool:
		if o.Pool != nil {
			n += poolDataSize(o.Pool)
		}
	case OutputProduceBlockFromStake, OutputCreateDelegationID,
		OutputDelegateStaking:
		n += chainhash.HashSize
	}
	return n
}

// Bytes returns the serialized output.
func (o *TxOut) Bytes() ([]byte, error) {
	var buf bytes.Buffer
	buf.Grow(o.SerializeSize())
	if err := o.Serialize(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
