// Copyright (c) 2015-2024 The Decred developers
// Copyright (c) 2026 The stakechain developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package signature

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/decred/dcrd/chaincfg/chainhash"
	"github.com/decred/dcrd/crypto/blake256"
	"github.com/decred/dcrd/crypto/ripemd160"
	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"
	dcrwire "github.com/decred/dcrd/wire"
	"github.com/stakechain/chaind/wire"
)

// maxPubKeyLen is the maximum length of a public key in an address witness.
const maxPubKeyLen = 65

// maxSigLen is the maximum length of a DER encoded signature.
const maxSigLen = 72

// Hash160 calculates the hash ripemd160(blake256(b)).
func Hash160(buf []byte) []byte {
	b256Hash := blake256.Sum256(buf)
	hasher := ripemd160.New()
	hasher.Write(b256Hash[:])
	return hasher.Sum(nil)
}

// AddressDestination returns the destination paying to the hash160 of the
// serialized compressed public key.
func AddressDestination(pub *secp256k1.PublicKey) wire.Destination {
	return wire.Destination{
		Type: wire.DestAddress,
		Data: Hash160(pub.SerializeCompressed()),
	}
}

// PublicKeyDestination returns the destination paying directly to the public
// key.
func PublicKeyDestination(pub *secp256k1.PublicKey) wire.Destination {
	return wire.Destination{
		Type: wire.DestPublicKey,
		Data: pub.SerializeCompressed(),
	}
}

// SigHash returns the message an input witness signs: the transaction id, the
// input index and the output being spent.
func SigHash(tx *wire.MsgTx, idx int, spent *wire.TxOut) (chainhash.Hash, error) {
	spentBytes, err := spent.Bytes()
	if err != nil {
		return chainhash.Hash{}, err
	}
	txHash := tx.TxHash()
	buf := make([]byte, 0, chainhash.HashSize+4+len(spentBytes))
	buf = append(buf, txHash[:]...)
	buf = binary.LittleEndian.AppendUint32(buf, uint32(idx))
	buf = append(buf, spentBytes...)
	return chainhash.Hash(blake256.Sum256(buf)), nil
}

// SignInput produces the witness for input idx of tx which spends the passed
// output paying to dest.
func SignInput(key *secp256k1.PrivateKey, dest *wire.Destination, tx *wire.MsgTx,
	idx int, spent *wire.TxOut) ([]byte, error) {

	switch dest.Type {
	case wire.DestAnyoneCanSpend:
		return nil, nil
	case wire.DestPublicKey, wire.DestAddress:
	default:
		str := fmt.Sprintf("cannot sign for destination type %d", dest.Type)
		return nil, sigError(ErrUnsupportedDestination, str)
	}

	hash, err := SigHash(tx, idx, spent)
	if err != nil {
		return nil, err
	}
	sig := ecdsa.Sign(key, hash[:]).Serialize()
	if dest.Type == wire.DestPublicKey {
		return sig, nil
	}

	var buf bytes.Buffer
	pver := dcrwire.ProtocolVersion
	if err := dcrwire.WriteVarBytes(&buf, pver, key.PubKey().SerializeCompressed()); err != nil {
		return nil, err
	}
	if err := dcrwire.WriteVarBytes(&buf, pver, sig); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// verifyECDSA verifies a DER signature of hash by the serialized public key.
func verifyECDSA(pubKey, sig []byte, hash *chainhash.Hash) error {
	pub, err := secp256k1.ParsePubKey(pubKey)
	if err != nil {
		return sigError(ErrMalformedWitness, fmt.Sprintf("malformed public "+
			"key: %v", err))
	}
	parsed, err := ecdsa.ParseDERSignature(sig)
	if err != nil {
		return sigError(ErrMalformedWitness, fmt.Sprintf("malformed "+
			"signature: %v", err))
	}
	if !parsed.Verify(hash[:], pub) {
		return sigError(ErrSignatureInvalid, "signature does not verify")
	}
	return nil
}

// VerifyInput verifies the witness of input idx of tx against the destination
// of the output it spends.
func VerifyInput(dest *wire.Destination, tx *wire.MsgTx, idx int, spent *wire.TxOut) error {
	witness := tx.TxIn[idx].Witness
	switch dest.Type {
	case wire.DestAnyoneCanSpend:
		if len(witness) != 0 {
			return sigError(ErrMalformedWitness, "anyone-can-spend "+
				"inputs carry no witness")
		}
		return nil

	case wire.DestPublicKey:
		hash, err := SigHash(tx, idx, spent)
		if err != nil {
			return err
		}
		return verifyECDSA(dest.Data, witness, &hash)

	case wire.DestAddress:
		r := bytes.NewReader(witness)
		pver := dcrwire.ProtocolVersion
		pubKey, err := dcrwire.ReadVarBytes(r, pver, maxPubKeyLen, "pubkey")
		if err != nil {
			return sigError(ErrMalformedWitness, fmt.Sprintf("malformed "+
				"address witness: %v", err))
		}
		sig, err := dcrwire.ReadVarBytes(r, pver, maxSigLen, "signature")
		if err != nil {
			return sigError(ErrMalformedWitness, fmt.Sprintf("malformed "+
				"address witness: %v", err))
		}
		if !bytes.Equal(Hash160(pubKey), dest.Data) {
			return sigError(ErrPublicKeyMismatch, "public key does not "+
				"match the spent address")
		}
		hash, err := SigHash(tx, idx, spent)
		if err != nil {
			return err
		}
		return verifyECDSA(pubKey, sig, &hash)
	}

	str := fmt.Sprintf("spending destination type %d is not supported",
		dest.Type)
	return sigError(ErrUnsupportedDestination, str)
}
