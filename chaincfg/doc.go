// Copyright (c) 2013-2016 The btcsuite developers
// Copyright (c) 2015-2024 The Decred developers
// Copyright (c) 2026 The stakechain developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package chaincfg defines chain configuration parameters.
//
// Four standard networks are defined: the main network, the public test
// network, the regression test network and the simulation test network.  They
// are incompatible with each other since each has a different genesis block.
//
// The consensus rules of a network change over its lifetime through a
// schedule of net upgrades.  Every upgrade applies from its activation height
// until the next upgrade and names exactly one consensus kind: no consensus,
// proof of work with an initial difficulty, or proof of stake.
//
// For main packages, a (typically global) var may be assigned the result of
// one of the standard network functions for use as the application's "active"
// network.
//
//	var chainParams = chaincfg.MainNetParams()
//	if *regnet {
//		chainParams = chaincfg.RegNetParams()
//	}
//
// If an application does not use one of the standard networks, a new Params
// struct may be created which defines the parameters for the non-standard
// network.  Validate should be called on such parameters.
package chaincfg
