// Copyright (c) 2026 The stakechain developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package txverifier

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"unicode"

	"github.com/decred/dcrd/chaincfg/chainhash"
	dcrwire "github.com/decred/dcrd/wire"
	"github.com/stakechain/chaind/chaincfg"
	"github.com/stakechain/chaind/internal/amount"
	"github.com/stakechain/chaind/internal/chaindb"
	"github.com/stakechain/chaind/wire"
)

// TokenAuxData records where a token was issued.
type TokenAuxData struct {
	IssuanceTx chainhash.Hash
	BlockHash  chainhash.Hash
	Issuance   wire.TokenIssuance
}

// TokenID returns the id of the token issued by the transaction, which is the
// hash of the outpoint spent by its first input.
func TokenID(tx *wire.MsgTx) chainhash.Hash {
	return chainhash.HashH(tx.TxIn[0].PreviousOutPoint.Key())
}

// Serialize returns the serialized aux data.
func (d *TokenAuxData) Serialize() []byte {
	var buf bytes.Buffer
	pver := dcrwire.ProtocolVersion
	buf.Write(d.IssuanceTx[:])
	buf.Write(d.BlockHash[:])
	_ = dcrwire.WriteVarBytes(&buf, pver, []byte(d.Issuance.Ticker))
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], uint64(d.Issuance.Supply))
	buf.Write(b[:])
	buf.WriteByte(d.Issuance.Decimals)
	_ = dcrwire.WriteVarBytes(&buf, pver, []byte(d.Issuance.MetadataURI))
	return buf.Bytes()
}

// DeserializeTokenAuxData decodes aux data produced by Serialize.
func DeserializeTokenAuxData(b []byte) (*TokenAuxData, error) {
	d, err := deserializeTokenAuxData(bytes.NewReader(b))
	if err != nil {
		return nil, chaindb.DecodeError(fmt.Sprintf("malformed token aux "+
			"data: %v", err))
	}
	return d, nil
}

func deserializeTokenAuxData(r *bytes.Reader) (*TokenAuxData, error) {
	var d TokenAuxData
	pver := dcrwire.ProtocolVersion
	if _, err := io.ReadFull(r, d.IssuanceTx[:]); err != nil {
		return nil, err
	}
	if _, err := io.ReadFull(r, d.BlockHash[:]); err != nil {
		return nil, err
	}
	ticker, err := dcrwire.ReadVarBytes(r, pver, 256, "ticker")
	if err != nil {
		return nil, err
	}
	var fixed [9]byte
	if _, err := io.ReadFull(r, fixed[:]); err != nil {
		return nil, err
	}
	uri, err := dcrwire.ReadVarBytes(r, pver, wire.MaxTokenMetadataURILen, "uri")
	if err != nil {
		return nil, err
	}
	if r.Len() != 0 {
		return nil, fmt.Errorf("%d trailing bytes", r.Len())
	}
	d.Issuance = wire.TokenIssuance{
		Ticker:      string(ticker),
		Supply:      amount.Amount(binary.LittleEndian.Uint64(fixed[:8])),
		Decimals:    fixed[8],
		MetadataURI: string(uri),
	}
	return &d, nil
}

// checkTokenIssuance ensures the issuance respects the network token limits.
func checkTokenIssuance(params *chaincfg.Params, issuance *wire.TokenIssuance) error {
	ticker := issuance.Ticker
	switch {
	case len(ticker) == 0 || len(ticker) > params.TokenMaxTickerLen:
		str := fmt.Sprintf("token ticker %q must have between 1 and %d "+
			"characters", ticker, params.TokenMaxTickerLen)
		return ruleError(ErrTokenIssuanceInvalid, str)
	case issuance.Supply == 0:
		return ruleError(ErrTokenIssuanceInvalid, "token supply is zero")
	case issuance.Decimals > params.TokenMaxDecimals:
		str := fmt.Sprintf("token decimals %d exceed the maximum of %d",
			issuance.Decimals, params.TokenMaxDecimals)
		return ruleError(ErrTokenIssuanceInvalid, str)
	case len(issuance.MetadataURI) > params.TokenMaxURILen:
		str := fmt.Sprintf("token metadata uri has %d bytes, more than "+
			"the maximum of %d", len(issuance.MetadataURI),
			params.TokenMaxURILen)
		return ruleError(ErrTokenIssuanceInvalid, str)
	}
	for _, r := range ticker {
		if r > unicode.MaxASCII || !(unicode.IsLetter(r) || unicode.IsDigit(r)) {
			str := fmt.Sprintf("token ticker %q is not alphanumeric", ticker)
			return ruleError(ErrTokenIssuanceInvalid, str)
		}
	}
	return nil
}

// TokenView provides read access to the registered tokens.
type TokenView interface {
	// TokenAuxData returns the aux data of the token or nil when it is
	// not registered.
	TokenAuxData(id chainhash.Hash) (*TokenAuxData, error)

	// TokenIDByTx returns the id of the token issued by the transaction
	// or nil when it issued none.
	TokenIDByTx(txHash chainhash.Hash) (*chainhash.Hash, error)
}

// tokenCache is an in-memory layer of token registrations over a parent view.
// Nil values mark removed registrations.
type tokenCache struct {
	parent TokenView
	aux    map[chainhash.Hash]*TokenAuxData
	byTx   map[chainhash.Hash]*chainhash.Hash
}

func newTokenCache(parent TokenView) *tokenCache {
	return &tokenCache{
		parent: parent,
		aux:    make(map[chainhash.Hash]*TokenAuxData),
		byTx:   make(map[chainhash.Hash]*chainhash.Hash),
	}
}

// TokenAuxData is part of the TokenView interface.
func (c *tokenCache) TokenAuxData(id chainhash.Hash) (*TokenAuxData, error) {
	if d, ok := c.aux[id]; ok {
		return d, nil
	}
	return c.parent.TokenAuxData(id)
}

// TokenIDByTx is part of the TokenView interface.
func (c *tokenCache) TokenIDByTx(txHash chainhash.Hash) (*chainhash.Hash, error) {
	if id, ok := c.byTx[txHash]; ok {
		return id, nil
	}
	return c.parent.TokenIDByTx(txHash)
}

// checkRegister ensures the token id is not registered yet.
func (c *tokenCache) checkRegister(id chainhash.Hash) error {
	existing, err := c.TokenAuxData(id)
	if err != nil {
		return err
	}
	if existing != nil {
		str := fmt.Sprintf("token %v was already issued by transaction %v",
			id, existing.IssuanceTx)
		return ruleError(ErrTokenAlreadyIssued, str)
	}
	return nil
}

func (c *tokenCache) register(id chainhash.Hash, d *TokenAuxData) {
	c.aux[id] = d
	c.byTx[d.IssuanceTx] = &id
}

func (c *tokenCache) unregister(id chainhash.Hash) error {
	existing, err := c.TokenAuxData(id)
	if err != nil {
		return err
	}
	if existing == nil {
		str := fmt.Sprintf("token %v is not registered", id)
		return ruleError(ErrTokenIssuanceInvalid, str)
	}
	c.aux[id] = nil
	c.byTx[existing.IssuanceTx] = nil
	return nil
}

// consume returns the modified registrations and resets the cache.
func (c *tokenCache) consume() (map[chainhash.Hash]*TokenAuxData, map[chainhash.Hash]*chainhash.Hash) {
	aux, byTx := c.aux, c.byTx
	c.aux = make(map[chainhash.Hash]*TokenAuxData)
	c.byTx = make(map[chainhash.Hash]*chainhash.Hash)
	return aux, byTx
}

// merge applies registrations consumed from a cache layered over this one.
func (c *tokenCache) merge(aux map[chainhash.Hash]*TokenAuxData, byTx map[chainhash.Hash]*chainhash.Hash) {
	for id, d := range aux {
		c.aux[id] = d
	}
	for txHash, id := range byTx {
		c.byTx[txHash] = id
	}
}
