// Copyright (c) 2026 The stakechain developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package chaincfg

import (
	"fmt"

	"github.com/decred/base58"
)

// pubKeyHashLen is the length of the hash160 committed to by an address.
const pubKeyHashLen = 20

func encodeAddress(pubKeyHash []byte, prefix [2]byte) string {
	return base58.CheckEncode(pubKeyHash, prefix)
}

func decodeAddress(addr string, prefix [2]byte) ([]byte, error) {
	decoded, version, err := base58.CheckDecode(addr)
	if err != nil {
		return nil, fmt.Errorf("malformed address %q: %w", addr, err)
	}
	if version != prefix {
		return nil, fmt.Errorf("address %q is for a different network", addr)
	}
	if len(decoded) != pubKeyHashLen {
		return nil, fmt.Errorf("address %q has a bad payload length %d",
			addr, len(decoded))
	}
	return decoded, nil
}
