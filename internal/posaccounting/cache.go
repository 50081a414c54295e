// Copyright (c) 2026 The stakechain developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package posaccounting

import (
	"fmt"

	"github.com/decred/dcrd/chaincfg/chainhash"
	"github.com/stakechain/chaind/internal/amount"
	"github.com/stakechain/chaind/wire"
)

// View is the read side of the proof-of-stake accounting state.  Missing pools
// and delegations are reported as nil data and zero balances.
type View interface {
	PoolData(id chainhash.Hash) (*PoolData, error)
	PoolBalance(id chainhash.Hash) (amount.Amount, error)
	DelegationData(id chainhash.Hash) (*DelegationData, error)
	DelegationBalance(id chainhash.Hash) (amount.Amount, error)
	PoolDelegationShare(poolID, delegationID chainhash.Hash) (amount.Amount, error)
}

// Cache applies accounting operations as a delta over a parent view.  Every
// operation returns the undo data needed to reverse it exactly.
//
// A Cache is not safe for concurrent use.
type Cache struct {
	parent View
	delta  *Delta
}

// Ensure Cache implements the View interface.
var _ View = (*Cache)(nil)

// NewCache returns an empty cache over the given view.
func NewCache(parent View) *Cache {
	return &Cache{parent: parent, delta: NewDelta()}
}

// PoolData returns the data of a pool or nil when it does not exist.
func (c *Cache) PoolData(id chainhash.Hash) (*PoolData, error) {
	if change, ok := c.delta.Pools[id]; ok {
		return change.Next, nil
	}
	return c.parent.PoolData(id)
}

// DelegationData returns the data of a delegation or nil when it does not
// exist.
func (c *Cache) DelegationData(id chainhash.Hash) (*DelegationData, error) {
	if change, ok := c.delta.Delegations[id]; ok {
		return change.Next, nil
	}
	return c.parent.DelegationData(id)
}

// applySigned returns base changed by v, reporting a negative result as
// ErrBalanceUnderflow.
func applySigned(base amount.Amount, v amount.SignedAmount, what string) (amount.Amount, error) {
	result, err := base.AddSigned(v)
	if err != nil {
		kind := ErrAccountingOverflow
		if v < 0 {
			kind = ErrBalanceUnderflow
		}
		str := fmt.Sprintf("changing %s %v by %d: %v", what, base, v, err)
		return 0, ruleError(kind, str)
	}
	return result, nil
}

// PoolBalance returns the balance of a pool.
func (c *Cache) PoolBalance(id chainhash.Hash) (amount.Amount, error) {
	base, err := c.parent.PoolBalance(id)
	if err != nil {
		return 0, err
	}
	return applySigned(base, c.delta.PoolBalances[id], "pool balance")
}

// DelegationBalance returns the balance of a delegation.
func (c *Cache) DelegationBalance(id chainhash.Hash) (amount.Amount, error) {
	base, err := c.parent.DelegationBalance(id)
	if err != nil {
		return 0, err
	}
	return applySigned(base, c.delta.DelegationBalances[id], "delegation balance")
}

// PoolDelegationShare returns the share a delegation holds in a pool.
func (c *Cache) PoolDelegationShare(poolID, delegationID chainhash.Hash) (amount.Amount, error) {
	base, err := c.parent.PoolDelegationShare(poolID, delegationID)
	if err != nil {
		return 0, err
	}
	key := ShareKey{PoolID: poolID, DelegationID: delegationID}
	return applySigned(base, c.delta.Shares[key], "delegation share")
}

func (c *Cache) setPoolData(id chainhash.Hash, next *PoolData) error {
	prev, err := c.PoolData(id)
	if err != nil {
		return err
	}
	change := &DataChange[PoolData]{Prev: prev, Next: next}
	return mergeChange(c.delta.Pools, id, change, poolDataEqual)
}

func (c *Cache) setDelegationData(id chainhash.Hash, next *DelegationData) error {
	prev, err := c.DelegationData(id)
	if err != nil {
		return err
	}
	change := &DataChange[DelegationData]{Prev: prev, Next: next}
	return mergeChange(c.delta.Delegations, id, change, delegationDataEqual)
}

func (c *Cache) changePoolBalance(id chainhash.Hash, v amount.SignedAmount) error {
	cur, err := c.PoolBalance(id)
	if err != nil {
		return err
	}
	if _, err := applySigned(cur, v, "pool balance"); err != nil {
		return err
	}
	return addSigned(c.delta.PoolBalances, id, v)
}

func (c *Cache) changeDelegationBalance(id chainhash.Hash, v amount.SignedAmount) error {
	cur, err := c.DelegationBalance(id)
	if err != nil {
		return err
	}
	if _, err := applySigned(cur, v, "delegation balance"); err != nil {
		return err
	}
	return addSigned(c.delta.DelegationBalances, id, v)
}

func (c *Cache) changeShare(poolID, delegationID chainhash.Hash, v amount.SignedAmount) error {
	cur, err := c.PoolDelegationShare(poolID, delegationID)
	if err != nil {
		return err
	}
	if _, err := applySigned(cur, v, "delegation share"); err != nil {
		return err
	}
	key := ShareKey{PoolID: poolID, DelegationID: delegationID}
	return addSigned(c.delta.Shares, key, v)
}

// signed converts an amount for use in a delta.
func signed(a amount.Amount) (amount.SignedAmount, error) {
	s, err := a.Signed()
	if err != nil {
		return 0, ruleError(ErrAccountingOverflow, err.Error())
	}
	return s, nil
}

// negSigned converts an amount for use as a negative change in a delta.
func negSigned(a amount.Amount) (amount.SignedAmount, error) {
	s, err := signed(a)
	return -s, err
}

// requirePool returns the data of an existing pool or ErrPoolNotFound.
func (c *Cache) requirePool(id chainhash.Hash) (*PoolData, error) {
	data, err := c.PoolData(id)
	if err != nil {
		return nil, err
	}
	if data == nil {
		return nil, ruleError(ErrPoolNotFound, fmt.Sprintf("pool %v does "+
			"not exist", id))
	}
	return data, nil
}

// CreatePool registers a new pool holding its pledge as the initial balance.
func (c *Cache) CreatePool(id chainhash.Hash, data *PoolData) (*Undo, error) {
	existing, err := c.PoolData(id)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ruleError(ErrPoolAlreadyExists, fmt.Sprintf("pool %v "+
			"already exists", id))
	}
	pledge, err := signed(data.Pledge)
	if err != nil {
		return nil, err
	}
	if err := c.changePoolBalance(id, pledge); err != nil {
		return nil, err
	}
	if err := c.setPoolData(id, data); err != nil {
		return nil, err
	}
	log.Tracef("Created pool %v with pledge %v", id, data.Pledge)
	return &Undo{Kind: UndoCreatePool, PoolID: id, Amount: data.Pledge}, nil
}

// DecommissionPool removes a pool along with its balance.  Delegation shares
// in the pool are kept.
func (c *Cache) DecommissionPool(id chainhash.Hash) (*Undo, error) {
	data, err := c.requirePool(id)
	if err != nil {
		return nil, err
	}
	balance, err := c.PoolBalance(id)
	if err != nil {
		return nil, err
	}
	neg, err := negSigned(balance)
	if err != nil {
		return nil, err
	}
	if err := c.changePoolBalance(id, neg); err != nil {
		return nil, err
	}
	if err := c.setPoolData(id, nil); err != nil {
		return nil, err
	}
	log.Tracef("Decommissioned pool %v with balance %v", id, balance)
	return &Undo{
		Kind:     UndoDecommissionPool,
		PoolID:   id,
		Amount:   balance,
		PoolData: data,
	}, nil
}

// IncreasePoolBalance adds to the balance of an existing pool.
func (c *Cache) IncreasePoolBalance(id chainhash.Hash, value amount.Amount) (*Undo, error) {
	if _, err := c.requirePool(id); err != nil {
		return nil, err
	}
	v, err := signed(value)
	if err != nil {
		return nil, err
	}
	if err := c.changePoolBalance(id, v); err != nil {
		return nil, err
	}
	return &Undo{Kind: UndoIncreasePoolBalance, PoolID: id, Amount: value}, nil
}

// CreateDelegationID registers a delegation to an existing pool.  The id is
// derived from the outpoint of the creating output.
func (c *Cache) CreateDelegationID(poolID chainhash.Hash, owner wire.Destination,
	op *wire.OutPoint) (chainhash.Hash, *Undo, error) {

	if _, err := c.requirePool(poolID); err != nil {
		return chainhash.Hash{}, nil, err
	}
	id := DelegationID(op)
	existing, err := c.DelegationData(id)
	if err != nil {
		return chainhash.Hash{}, nil, err
	}
	if existing != nil {
		return chainhash.Hash{}, nil, ruleError(ErrDelegationAlreadyExists,
			fmt.Sprintf("delegation %v already exists", id))
	}
	data := &DelegationData{PoolID: poolID, Owner: owner}
	if err := c.setDelegationData(id, data); err != nil {
		return chainhash.Hash{}, nil, err
	}
	return id, &Undo{
		Kind:           UndoCreateDelegationID,
		DelegationID:   id,
		DelegationData: data,
	}, nil
}

// DelegateStaking adds stake to a delegation, increasing the delegation
// balance, the balance of its pool and its share in the pool.
func (c *Cache) DelegateStaking(delegationID chainhash.Hash, value amount.Amount) (*Undo, error) {
	data, err := c.DelegationData(delegationID)
	if err != nil {
		return nil, err
	}
	if data == nil {
		return nil, ruleError(ErrDelegationNotFound, fmt.Sprintf("delegation "+
			"%v does not exist", delegationID))
	}
	if _, err := c.requirePool(data.PoolID); err != nil {
		return nil, err
	}
	v, err := signed(value)
	if err != nil {
		return nil, err
	}
	if err := c.changeDelegationBalance(delegationID, v); err != nil {
		return nil, err
	}
	if err := c.changePoolBalance(data.PoolID, v); err != nil {
		return nil, err
	}
	if err := c.changeShare(data.PoolID, delegationID, v); err != nil {
		return nil, err
	}
	return &Undo{
		Kind:         UndoDelegateStaking,
		PoolID:       data.PoolID,
		DelegationID: delegationID,
		Amount:       value,
	}, nil
}

// ApplyUndo reverses the operation that produced the undo data.  Undo data
// must be applied in the reverse order of the operations.
func (c *Cache) ApplyUndo(u *Undo) error {
	switch u.Kind {
	case UndoCreatePool:
		if _, err := c.requirePool(u.PoolID); err != nil {
			return err
		}
		neg, err := negSigned(u.Amount)
		if err != nil {
			return err
		}
		if err := c.changePoolBalance(u.PoolID, neg); err != nil {
			return err
		}
		return c.setPoolData(u.PoolID, nil)

	case UndoDecommissionPool:
		existing, err := c.PoolData(u.PoolID)
		if err != nil {
			return err
		}
		if existing != nil {
			return ruleError(ErrPoolAlreadyExists, fmt.Sprintf("pool %v "+
				"already exists", u.PoolID))
		}
		v, err := signed(u.Amount)
		if err != nil {
			return err
		}
		if err := c.changePoolBalance(u.PoolID, v); err != nil {
			return err
		}
		return c.setPoolData(u.PoolID, u.PoolData)

	case UndoIncreasePoolBalance:
		neg, err := negSigned(u.Amount)
		if err != nil {
			return err
		}
		return c.changePoolBalance(u.PoolID, neg)

	case UndoCreateDelegationID:
		existing, err := c.DelegationData(u.DelegationID)
		if err != nil {
			return err
		}
		if existing == nil {
			return ruleError(ErrDelegationNotFound, fmt.Sprintf("delegation "+
				"%v does not exist", u.DelegationID))
		}
		return c.setDelegationData(u.DelegationID, nil)

	case UndoDelegateStaking:
		neg, err := negSigned(u.Amount)
		if err != nil {
			return err
		}
		if err := c.changeShare(u.PoolID, u.DelegationID, neg); err != nil {
			return err
		}
		if err := c.changePoolBalance(u.PoolID, neg); err != nil {
			return err
		}
		return c.changeDelegationBalance(u.DelegationID, neg)
	}
	return ruleError(ErrUnknownUndo, fmt.Sprintf("unknown accounting undo "+
		"kind %d", u.Kind))
}

// MergeDelta applies a delta produced by a cache layered over this one.  The
// data changes of the delta must start from the values currently visible
// through the cache.
func (c *Cache) MergeDelta(d *Delta) error {
	for id, change := range d.Pools {
		cur, err := c.PoolData(id)
		if err != nil {
			return err
		}
		if !cur.Equal(change.Prev) {
			return ruleError(ErrDeltaConflict, fmt.Sprintf("pool %v "+
				"changed underneath the delta", id))
		}
		if err := c.setPoolData(id, change.Next); err != nil {
			return err
		}
	}
	for id, change := range d.Delegations {
		cur, err := c.DelegationData(id)
		if err != nil {
			return err
		}
		if !cur.Equal(change.Prev) {
			return ruleError(ErrDeltaConflict, fmt.Sprintf("delegation "+
				"%v changed underneath the delta", id))
		}
		if err := c.setDelegationData(id, change.Next); err != nil {
			return err
		}
	}
	for id, v := range d.PoolBalances {
		if err := c.changePoolBalance(id, v); err != nil {
			return err
		}
	}
	for id, v := range d.DelegationBalances {
		if err := c.changeDelegationBalance(id, v); err != nil {
			return err
		}
	}
	for key, v := range d.Shares {
		if err := c.changeShare(key.PoolID, key.DelegationID, v); err != nil {
			return err
		}
	}
	return nil
}

// Consume returns the accumulated delta and resets the cache.
func (c *Cache) Consume() *Delta {
	d := c.delta
	c.delta = NewDelta()
	return d
}

// EmptyView is a view without any pools or delegations.
type EmptyView struct{}

// Ensure EmptyView implements the View interface.
var _ View = EmptyView{}

func (EmptyView) PoolData(chainhash.Hash) (*PoolData, error)             { return nil, nil }
func (EmptyView) PoolBalance(chainhash.Hash) (amount.Amount, error)      { return 0, nil }
func (EmptyView) DelegationData(chainhash.Hash) (*DelegationData, error) { return nil, nil }
func (EmptyView) DelegationBalance(chainhash.Hash) (amount.Amount, error) {
	return 0, nil
}
func (EmptyView) PoolDelegationShare(chainhash.Hash, chainhash.Hash) (amount.Amount, error) {
	return 0, nil
}
