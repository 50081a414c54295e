// Copyright (c) 2017-2019 The Decred developers
// Copyright (c) 2026 The stakechain developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package chaincfg

import "fmt"

// validateStandardNetworks panics when one of the standard networks is
// misconfigured.
func validateStandardNetworks() {
	allParams := []*Params{MainNetParams(), TestNetParams(), SimNetParams(),
		RegNetParams()}
	for _, params := range allParams {
		if err := params.Validate(); err != nil {
			panic(fmt.Sprintf("invalid network parameters: %v", err))
		}
	}
}

func init() {
	validateStandardNetworks()
}
