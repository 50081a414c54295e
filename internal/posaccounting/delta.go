// Copyright (c) 2026 The stakechain developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package posaccounting

import (
	"fmt"

	"github.com/decred/dcrd/chaincfg/chainhash"
	"github.com/stakechain/chaind/internal/amount"
)

// DataChange records a change of a data item from Prev to Next.  A nil Prev
// means the item was created and a nil Next means it was deleted.
type DataChange[T any] struct {
	Prev *T
	Next *T
}

// Delta is an invertible set of accounting changes.  Data items are recorded
// together with the value they replace, which allows deltas to be merged only
// on top of the state they were produced from, and balances are recorded as
// signed changes.
type Delta struct {
	Pools              map[chainhash.Hash]*DataChange[PoolData]
	PoolBalances       map[chainhash.Hash]amount.SignedAmount
	Delegations        map[chainhash.Hash]*DataChange[DelegationData]
	DelegationBalances map[chainhash.Hash]amount.SignedAmount
	Shares             map[ShareKey]amount.SignedAmount
}

// NewDelta returns an empty delta.
func NewDelta() *Delta {
	return &Delta{
		Pools:              make(map[chainhash.Hash]*DataChange[PoolData]),
		PoolBalances:       make(map[chainhash.Hash]amount.SignedAmount),
		Delegations:        make(map[chainhash.Hash]*DataChange[DelegationData]),
		DelegationBalances: make(map[chainhash.Hash]amount.SignedAmount),
		Shares:             make(map[ShareKey]amount.SignedAmount),
	}
}

// IsEmpty returns whether the delta changes nothing.
func (d *Delta) IsEmpty() bool {
	return len(d.Pools) == 0 && len(d.PoolBalances) == 0 &&
		len(d.Delegations) == 0 && len(d.DelegationBalances) == 0 &&
		len(d.Shares) == 0
}

// addSigned adds v to the change stored under key, dropping changes that net
// to zero.
func addSigned[K comparable](m map[K]amount.SignedAmount, key K, v amount.SignedAmount) error {
	sum, err := m[key].Add(v)
	if err != nil {
		return ruleError(ErrAccountingOverflow, fmt.Sprintf("balance "+
			"change of %v overflows: %v", key, err))
	}
	if sum == 0 {
		delete(m, key)
		return nil
	}
	m[key] = sum
	return nil
}

// mergeChange merges the change upper on top of the change stored under key.
// The upper change must start from the value the stored change ends with.
func mergeChange[K comparable, T any](m map[K]*DataChange[T], key K,
	upper *DataChange[T], equal func(a, b *T) bool) error {

	lower, ok := m[key]
	if !ok {
		m[key] = &DataChange[T]{Prev: upper.Prev, Next: upper.Next}
		return nil
	}
	if !equal(lower.Next, upper.Prev) {
		str := fmt.Sprintf("change of %v does not apply on top of the "+
			"previous change", key)
		return ruleError(ErrDeltaConflict, str)
	}
	if equal(lower.Prev, upper.Next) {
		delete(m, key)
		return nil
	}
	m[key] = &DataChange[T]{Prev: lower.Prev, Next: upper.Next}
	return nil
}

func poolDataEqual(a, b *PoolData) bool             { return a.Equal(b) }
func delegationDataEqual(a, b *DelegationData) bool { return a.Equal(b) }

// Merge merges the delta upper, which was produced on top of d, into d.  On
// failure d is left partially merged and must be discarded.
func (d *Delta) Merge(upper *Delta) error {
	for id, change := range upper.Pools {
		if err := mergeChange(d.Pools, id, change, poolDataEqual); err != nil {
			return err
		}
	}
	for id, change := range upper.Delegations {
		err := mergeChange(d.Delegations, id, change, delegationDataEqual)
		if err != nil {
			return err
		}
	}
	for id, v := range upper.PoolBalances {
		if err := addSigned(d.PoolBalances, id, v); err != nil {
			return err
		}
	}
	for id, v := range upper.DelegationBalances {
		if err := addSigned(d.DelegationBalances, id, v); err != nil {
			return err
		}
	}
	for key, v := range upper.Shares {
		if err := addSigned(d.Shares, key, v); err != nil {
			return err
		}
	}
	return nil
}

// Clone returns a deep copy of the delta maps.  Data items are shared since
// they are never modified in place.
func (d *Delta) Clone() *Delta {
	c := NewDelta()
	for k, v := range d.Pools {
		c.Pools[k] = &DataChange[PoolData]{Prev: v.Prev, Next: v.Next}
	}
	for k, v := range d.Delegations {
		c.Delegations[k] = &DataChange[DelegationData]{Prev: v.Prev, Next: v.Next}
	}
	for k, v := range d.PoolBalances {
		c.PoolBalances[k] = v
	}
	for k, v := range d.DelegationBalances {
		c.DelegationBalances[k] = v
	}
	for k, v := range d.Shares {
		c.Shares[k] = v
	}
	return c
}

// Invert returns the delta that reverses d.
func (d *Delta) Invert() (*Delta, error) {
	inv := NewDelta()
	for k, v := range d.Pools {
		inv.Pools[k] = &DataChange[PoolData]{Prev: v.Next, Next: v.Prev}
	}
	for k, v := range d.Delegations {
		inv.Delegations[k] = &DataChange[DelegationData]{Prev: v.Next, Next: v.Prev}
	}
	negate := func(dst, src map[chainhash.Hash]amount.SignedAmount) error {
		for k, v := range src {
			neg, err := v.Neg()
			if err != nil {
				return ruleError(ErrAccountingOverflow, err.Error())
			}
			dst[k] = neg
		}
		return nil
	}
	if err := negate(inv.PoolBalances, d.PoolBalances); err != nil {
		return nil, err
	}
	if err := negate(inv.DelegationBalances, d.DelegationBalances); err != nil {
		return nil, err
	}
	for k, v := range d.Shares {
		neg, err := v.Neg()
		if err != nil {
			return nil, ruleError(ErrAccountingOverflow, err.Error())
		}
		inv.Shares[k] = neg
	}
	return inv, nil
}
