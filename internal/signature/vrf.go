// Copyright (c) 2026 The stakechain developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package signature

import (
	"encoding/binary"
	"fmt"

	"github.com/decred/dcrd/chaincfg/chainhash"
	"github.com/decred/dcrd/crypto/blake256"
	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/decred/dcrd/dcrec/secp256k1/v4/schnorr"
)

// vrfTag domain separates stake kernel transcripts.
var vrfTag = []byte("stakechain/pos/vrf/v1")

// VRFTranscript returns the message a stake pool proves over for a block of
// the given epoch, randomness seed and timestamp.
func VRFTranscript(epoch uint64, seed *chainhash.Hash, timestamp uint64) chainhash.Hash {
	buf := make([]byte, 0, len(vrfTag)+8+chainhash.HashSize+8)
	buf = append(buf, vrfTag...)
	buf = binary.LittleEndian.AppendUint64(buf, epoch)
	buf = append(buf, seed[:]...)
	buf = binary.LittleEndian.AppendUint64(buf, timestamp)
	return chainhash.Hash(blake256.Sum256(buf))
}

// VRFProve returns a proof over the transcript.  Schnorr signatures use
// deterministic nonces, so a key produces exactly one proof per transcript.
func VRFProve(key *secp256k1.PrivateKey, transcript *chainhash.Hash) ([]byte, error) {
	sig, err := schnorr.Sign(key, transcript[:])
	if err != nil {
		return nil, err
	}
	return sig.Serialize(), nil
}

// VRFVerify verifies a proof over the transcript by the serialized VRF public
// key and returns the pseudorandom output derived from it.
func VRFVerify(pubKey []byte, transcript *chainhash.Hash, proof []byte) (chainhash.Hash, error) {
	pub, err := secp256k1.ParsePubKey(pubKey)
	if err != nil {
		return chainhash.Hash{}, sigError(ErrVRFInvalid, fmt.Sprintf("malformed "+
			"vrf public key: %v", err))
	}
	sig, err := schnorr.ParseSignature(proof)
	if err != nil {
		return chainhash.Hash{}, sigError(ErrVRFInvalid, fmt.Sprintf("malformed "+
			"vrf proof: %v", err))
	}
	if !sig.Verify(transcript[:], pub) {
		return chainhash.Hash{}, sigError(ErrVRFInvalid, "vrf proof does not "+
			"verify")
	}
	return VRFOutput(proof), nil
}

// VRFOutput returns the pseudorandom output of a verified proof.
func VRFOutput(proof []byte) chainhash.Hash {
	return chainhash.Hash(blake256.Sum256(proof))
}
