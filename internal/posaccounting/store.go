// Copyright (c) 2026 The stakechain developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package posaccounting

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"sort"

	"github.com/decred/dcrd/chaincfg/chainhash"
	dcrwire "github.com/decred/dcrd/wire"
	"github.com/stakechain/chaind/internal/amount"
	"github.com/stakechain/chaind/internal/chaindb"
)

// Keys inside an accounting bucket start with one of these tags.
const (
	tagPoolData          = 'p'
	tagPoolBalance       = 'b'
	tagDelegationData    = 'd'
	tagDelegationBalance = 'e'
	tagShare             = 's'
)

// DBView is an accounting state stored in a database bucket.  The tip state
// follows the best chain block by block while the sealed state only changes
// when an epoch is sealed.
type DBView struct {
	r      chaindb.Reader
	bucket chaindb.Bucket
}

// Ensure DBView implements the View interface.
var _ View = (*DBView)(nil)

// NewTipView returns the accounting state of the best chain tip.
func NewTipView(r chaindb.Reader) *DBView {
	return &DBView{r: r, bucket: chaindb.BucketAccountingTip}
}

// NewSealedView returns the accounting state as of the last sealed epoch.
func NewSealedView(r chaindb.Reader) *DBView {
	return &DBView{r: r, bucket: chaindb.BucketAccountingSealed}
}

func (v *DBView) key(tag byte, ids ...chainhash.Hash) []byte {
	parts := make([][]byte, 0, len(ids)+1)
	parts = append(parts, []byte{tag})
	for i := range ids {
		parts = append(parts, ids[i][:])
	}
	return v.bucket.Key(parts...)
}

func (v *DBView) getAmount(key []byte) (amount.Amount, error) {
	b, err := v.r.Get(key)
	if err != nil || b == nil {
		return 0, err
	}
	if len(b) != 8 {
		return 0, chaindb.DecodeError(fmt.Sprintf("malformed balance %x", b))
	}
	return amount.Amount(binary.LittleEndian.Uint64(b)), nil
}

// PoolData loads the data of a pool.  It is part of the View interface.
func (v *DBView) PoolData(id chainhash.Hash) (*PoolData, error) {
	b, err := v.r.Get(v.key(tagPoolData, id))
	if err != nil || b == nil {
		return nil, err
	}
	return DeserializePoolData(b)
}

// PoolBalance loads the balance of a pool.  It is part of the View interface.
func (v *DBView) PoolBalance(id chainhash.Hash) (amount.Amount, error) {
	return v.getAmount(v.key(tagPoolBalance, id))
}

// DelegationData loads the data of a delegation.  It is part of the View
// interface.
func (v *DBView) DelegationData(id chainhash.Hash) (*DelegationData, error) {
	b, err := v.r.Get(v.key(tagDelegationData, id))
	if err != nil || b == nil {
		return nil, err
	}
	return DeserializeDelegationData(b)
}

// DelegationBalance loads the balance of a delegation.  It is part of the
// View interface.
func (v *DBView) DelegationBalance(id chainhash.Hash) (amount.Amount, error) {
	return v.getAmount(v.key(tagDelegationBalance, id))
}

// PoolDelegationShare loads the share of a delegation in a pool.  It is part
// of the View interface.
func (v *DBView) PoolDelegationShare(poolID, delegationID chainhash.Hash) (amount.Amount, error) {
	return v.getAmount(v.key(tagShare, poolID, delegationID))
}

// putAmount stores a balance, removing zero balances.
func putAmount(w chaindb.Writer, key []byte, a amount.Amount) error {
	if a == 0 {
		return w.Delete(key)
	}
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], uint64(a))
	return w.Put(key, b[:])
}

// ApplyDelta writes a delta to the accounting state stored in the bucket of
// the view.  The writer must be the transaction the view reads from.
func (v *DBView) ApplyDelta(w chaindb.Writer, d *Delta) error {
	// A cache over the stored state validates the delta before anything is
	// written.
	cache := NewCache(v)
	if err := cache.MergeDelta(d); err != nil {
		return err
	}
	merged := cache.Consume()

	for id, change := range merged.Pools {
		key := v.key(tagPoolData, id)
		if change.Next == nil {
			if err := w.Delete(key); err != nil {
				return err
			}
			continue
		}
		b, err := change.Next.Serialize()
		if err != nil {
			return err
		}
		if err := w.Put(key, b); err != nil {
			return err
		}
	}
	for id, change := range merged.Delegations {
		key := v.key(tagDelegationData, id)
		if change.Next == nil {
			if err := w.Delete(key); err != nil {
				return err
			}
			continue
		}
		b, err := change.Next.Serialize()
		if err != nil {
			return err
		}
		if err := w.Put(key, b); err != nil {
			return err
		}
	}
	for id, change := range merged.PoolBalances {
		base, err := v.PoolBalance(id)
		if err != nil {
			return err
		}
		balance, err := applySigned(base, change, "pool balance")
		if err != nil {
			return err
		}
		if err := putAmount(w, v.key(tagPoolBalance, id), balance); err != nil {
			return err
		}
	}
	for id, change := range merged.DelegationBalances {
		base, err := v.DelegationBalance(id)
		if err != nil {
			return err
		}
		balance, err := applySigned(base, change, "delegation balance")
		if err != nil {
			return err
		}
		if err := putAmount(w, v.key(tagDelegationBalance, id), balance); err != nil {
			return err
		}
	}
	for key, change := range merged.Shares {
		base, err := v.PoolDelegationShare(key.PoolID, key.DelegationID)
		if err != nil {
			return err
		}
		share, err := applySigned(base, change, "delegation share")
		if err != nil {
			return err
		}
		dbKey := v.key(tagShare, key.PoolID, key.DelegationID)
		if err := putAmount(w, dbKey, share); err != nil {
			return err
		}
	}
	return nil
}

// -----------------------------------------------------------------------------
// The serialized format of a delta is a sequence of sections, each a VLQ count
// followed by its items in ascending key order:
//
//	pools:               <id><optional prev pool><optional next pool>
//	pool balances:       <id><int64 change>
//	delegations:         <id><optional prev delegation><optional next delegation>
//	delegation balances: <id><int64 change>
//	shares:              <pool id><delegation id><int64 change>
//
// Optional items are a presence byte followed by var bytes.
// -----------------------------------------------------------------------------

func sortedHashes[V any](m map[chainhash.Hash]V) []chainhash.Hash {
	hashes := make([]chainhash.Hash, 0, len(m))
	for h := range m {
		hashes = append(hashes, h)
	}
	sort.Slice(hashes, func(i, j int) bool {
		return bytes.Compare(hashes[i][:], hashes[j][:]) < 0
	})
	return hashes
}

func writeSigned(w *bytes.Buffer, v amount.SignedAmount) {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], uint64(v))
	w.Write(b[:])
}

func readSigned(r io.Reader) (amount.SignedAmount, error) {
	var b [8]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, err
	}
	return amount.SignedAmount(binary.LittleEndian.Uint64(b[:])), nil
}

func writeBalances(w *bytes.Buffer, m map[chainhash.Hash]amount.SignedAmount) error {
	err := dcrwire.WriteVarInt(w, dcrwire.ProtocolVersion, uint64(len(m)))
	if err != nil {
		return err
	}
	for _, id := range sortedHashes(m) {
		w.Write(id[:])
		writeSigned(w, m[id])
	}
	return nil
}

func readCount(r io.Reader) (uint64, error) {
	count, err := dcrwire.ReadVarInt(r, dcrwire.ProtocolVersion)
	if err != nil {
		return 0, err
	}
	if count > maxUndos {
		return 0, fmt.Errorf("too many delta items %d", count)
	}
	return count, nil
}

func readBalances(r io.Reader, m map[chainhash.Hash]amount.SignedAmount) error {
	count, err := readCount(r)
	if err != nil {
		return err
	}
	for i := uint64(0); i < count; i++ {
		var id chainhash.Hash
		if _, err := io.ReadFull(r, id[:]); err != nil {
			return err
		}
		if m[id], err = readSigned(r); err != nil {
			return err
		}
	}
	return nil
}

// Serialize returns the serialized delta.
func (d *Delta) Serialize() ([]byte, error) {
	var buf bytes.Buffer
	err := dcrwire.WriteVarInt(&buf, dcrwire.ProtocolVersion, uint64(len(d.Pools)))
	if err != nil {
		return nil, err
	}
	for _, id := range sortedHashes(d.Pools) {
		change := d.Pools[id]
		buf.Write(id[:])
		for _, p := range []*PoolData{change.Prev, change.Next} {
			if err := writeOptional(&buf, p != nil, p.Serialize); err != nil {
				return nil, err
			}
		}
	}
	if err := writeBalances(&buf, d.PoolBalances); err != nil {
		return nil, err
	}

	err = dcrwire.WriteVarInt(&buf, dcrwire.ProtocolVersion, uint64(len(d.Delegations)))
	if err != nil {
		return nil, err
	}
	for _, id := range sortedHashes(d.Delegations) {
		change := d.Delegations[id]
		buf.Write(id[:])
		for _, dd := range []*DelegationData{change.Prev, change.Next} {
			if err := writeOptional(&buf, dd != nil, dd.Serialize); err != nil {
				return nil, err
			}
		}
	}
	if err := writeBalances(&buf, d.DelegationBalances); err != nil {
		return nil, err
	}

	keys := make([]ShareKey, 0, len(d.Shares))
	for k := range d.Shares {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if c := bytes.Compare(keys[i].PoolID[:], keys[j].PoolID[:]); c != 0 {
			return c < 0
		}
		return bytes.Compare(keys[i].DelegationID[:], keys[j].DelegationID[:]) < 0
	})
	err = dcrwire.WriteVarInt(&buf, dcrwire.ProtocolVersion, uint64(len(keys)))
	if err != nil {
		return nil, err
	}
	for _, k := range keys {
		buf.Write(k.PoolID[:])
		buf.Write(k.DelegationID[:])
		writeSigned(&buf, d.Shares[k])
	}
	return buf.Bytes(), nil
}

// DeserializeDelta decodes a delta produced by Serialize.
func DeserializeDelta(b []byte) (*Delta, error) {
	r := bytes.NewReader(b)
	d, err := deserializeDelta(r)
	if err == nil && r.Len() != 0 {
		err = fmt.Errorf("%d trailing bytes", r.Len())
	}
	if err != nil {
		return nil, chaindb.DecodeError(fmt.Sprintf("malformed accounting "+
			"delta: %v", err))
	}
	return d, nil
}

func deserializeDelta(r *bytes.Reader) (*Delta, error) {
	d := NewDelta()
	count, err := readCount(r)
	if err != nil {
		return nil, err
	}
	for i := uint64(0); i < count; i++ {
		var id chainhash.Hash
		if _, err := io.ReadFull(r, id[:]); err != nil {
			return nil, err
		}
		change := new(DataChange[PoolData])
		for _, dst := range []**PoolData{&change.Prev, &change.Next} {
			b, err := readOptional(r)
			if err != nil {
				return nil, err
			}
			if b == nil {
				continue
			}
			if *dst, err = DeserializePoolData(b); err != nil {
				return nil, err
			}
		}
		d.Pools[id] = change
	}
	if err := readBalances(r, d.PoolBalances); err != nil {
		return nil, err
	}

	if count, err = readCount(r); err != nil {
		return nil, err
	}
	for i := uint64(0); i < count; i++ {
		var id chainhash.Hash
		if _, err := io.ReadFull(r, id[:]); err != nil {
			return nil, err
		}
		change := new(DataChange[DelegationData])
		for _, dst := range []**DelegationData{&change.Prev, &change.Next} {
			b, err := readOptional(r)
			if err != nil {
				return nil, err
			}
			if b == nil {
				continue
			}
			if *dst, err = DeserializeDelegationData(b); err != nil {
				return nil, err
			}
		}
		d.Delegations[id] = change
	}
	if err := readBalances(r, d.DelegationBalances); err != nil {
		return nil, err
	}

	if count, err = readCount(r); err != nil {
		return nil, err
	}
	for i := uint64(0); i < count; i++ {
		var k ShareKey
		if _, err := io.ReadFull(r, k.PoolID[:]); err != nil {
			return nil, err
		}
		if _, err := io.ReadFull(r, k.DelegationID[:]); err != nil {
			return nil, err
		}
		if d.Shares[k], err = readSigned(r); err != nil {
			return nil, err
		}
	}
	return d, nil
}

// PutBlockDelta stores the accounting delta a block applied.  Sealing merges
// the deltas of every block of an epoch.
func PutBlockDelta(w chaindb.Writer, blockHash *chainhash.Hash, d *Delta) error {
	b, err := d.Serialize()
	if err != nil {
		return err
	}
	return w.Put(chaindb.BucketAccountingDelta.Key(blockHash[:]), b)
}

// FetchBlockDelta loads the accounting delta of a block.  It returns nil for
// both the delta and the error when none is stored.
func FetchBlockDelta(r chaindb.Reader, blockHash *chainhash.Hash) (*Delta, error) {
	b, err := r.Get(chaindb.BucketAccountingDelta.Key(blockHash[:]))
	if err != nil || b == nil {
		return nil, err
	}
	return DeserializeDelta(b)
}

// DeleteBlockDelta removes the accounting delta of a block.
func DeleteBlockDelta(w chaindb.Writer, blockHash *chainhash.Hash) error {
	return w.Delete(chaindb.BucketAccountingDelta.Key(blockHash[:]))
}

// PutBlockUndo stores the accounting undo data of a block.
func PutBlockUndo(w chaindb.Writer, blockHash *chainhash.Hash, undo *BlockUndo) error {
	b, err := undo.Serialize()
	if err != nil {
		return err
	}
	return w.Put(chaindb.BucketAccountingUndo.Key(blockHash[:]), b)
}

// FetchBlockUndo loads the accounting undo data of a block.  It returns nil
// for both the undo data and the error when none is stored.
func FetchBlockUndo(r chaindb.Reader, blockHash *chainhash.Hash) (*BlockUndo, error) {
	b, err := r.Get(chaindb.BucketAccountingUndo.Key(blockHash[:]))
	if err != nil || b == nil {
		return nil, err
	}
	return DeserializeBlockUndo(b)
}

// DeleteBlockUndo removes the accounting undo data of a block.
func DeleteBlockUndo(w chaindb.Writer, blockHash *chainhash.Hash) error {
	return w.Delete(chaindb.BucketAccountingUndo.Key(blockHash[:]))
}
