// Copyright (c) 2026 The stakechain developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package txverifier

import (
	"fmt"
	"time"

	"github.com/decred/dcrd/chaincfg/chainhash"
	"github.com/stakechain/chaind/chaincfg"
	"github.com/stakechain/chaind/internal/amount"
	"github.com/stakechain/chaind/internal/posaccounting"
	"github.com/stakechain/chaind/internal/signature"
	"github.com/stakechain/chaind/internal/utxo"
	"github.com/stakechain/chaind/wire"
)

// inputKey identifies one input of a transaction.
type inputKey struct {
	txHash chainhash.Hash
	index  int
}

// assetID keys per-asset amount totals.  The zero value is the native coin.
type assetID struct {
	token bool
	id    chainhash.Hash
}

// TransactionVerifier validates transactions and block rewards against the
// ledger state of its storage and applies their effects to in-memory caches
// layered over it, recording the undo data needed to reverse them.  Nothing
// reaches the storage until the modifications are consumed and flushed.
//
// Verifiers implement Storage so a child may be layered over a parent for
// speculative validation.  A verifier memoizes the state it reads and is
// therefore not safe for concurrent use, including reads through children.
type TransactionVerifier struct {
	params         *chaincfg.Params
	storage        Storage
	txIndexEnabled bool

	utxos          *utxo.Cache
	accounting     *posaccounting.Cache
	tokens         *tokenCache
	txIndex        *txIndexCache
	utxoUndo       *undoCache[*utxo.BlockUndo]
	accountingUndo *undoCache[*posaccounting.BlockUndo]

	// preverified holds inputs whose signatures were verified ahead of
	// time by a verification strategy.
	preverified map[inputKey]struct{}
}

// Ensure TransactionVerifier implements the Storage interface.
var _ Storage = (*TransactionVerifier)(nil)

// New returns a verifier layered over the given storage.  The transaction
// index is only maintained when txIndexEnabled is set.
func New(params *chaincfg.Params, storage Storage, txIndexEnabled bool) *TransactionVerifier {
	v := &TransactionVerifier{
		params:         params,
		storage:        storage,
		txIndexEnabled: txIndexEnabled,
		utxos:          utxo.NewCache(storage.UtxoView()),
		accounting:     posaccounting.NewCache(storage.AccountingView()),
		tokens:         newTokenCache(storage),
		utxoUndo:       newUndoCache(storage.FetchUtxoUndo, utxo.NewBlockUndo),
		accountingUndo: newUndoCache(storage.FetchAccountingUndo, posaccounting.NewBlockUndo),
		preverified:    make(map[inputKey]struct{}),
	}
	if txIndexEnabled {
		v.txIndex = newTxIndexCache(storage)
	}
	return v
}

// DeriveChild returns a verifier layered over v.  Modifications made through
// the child only reach v when the child delta is applied with ApplyDelta.
func (v *TransactionVerifier) DeriveChild() *TransactionVerifier {
	return New(v.params, v, v.txIndexEnabled)
}

// UtxoView is part of the Storage interface.
func (v *TransactionVerifier) UtxoView() utxo.View {
	return v.utxos
}

// AccountingView is part of the Storage interface.
func (v *TransactionVerifier) AccountingView() posaccounting.View {
	return v.accounting
}

// TokenAuxData is part of the TokenView interface.
func (v *TransactionVerifier) TokenAuxData(id chainhash.Hash) (*TokenAuxData, error) {
	return v.tokens.TokenAuxData(id)
}

// TokenIDByTx is part of the TokenView interface.
func (v *TransactionVerifier) TokenIDByTx(txHash chainhash.Hash) (*chainhash.Hash, error) {
	return v.tokens.TokenIDByTx(txHash)
}

// FetchTxIndex is part of the TxIndexView interface.
func (v *TransactionVerifier) FetchTxIndex(txHash chainhash.Hash) (*TxMainChainIndex, error) {
	if v.txIndex == nil {
		return v.storage.FetchTxIndex(txHash)
	}
	return v.txIndex.FetchTxIndex(txHash)
}

// FetchUtxoUndo is part of the Storage interface.  The returned undo data is
// a copy.
func (v *TransactionVerifier) FetchUtxoUndo(source TransactionSource) (*utxo.BlockUndo, error) {
	u, err := v.utxoUndo.get(source)
	if err != nil {
		return nil, err
	}
	return cloneUtxoUndo(u), nil
}

// FetchAccountingUndo is part of the Storage interface.  The returned undo
// data is a copy.
func (v *TransactionVerifier) FetchAccountingUndo(source TransactionSource) (*posaccounting.BlockUndo, error) {
	u, err := v.accountingUndo.get(source)
	if err != nil {
		return nil, err
	}
	return cloneAccountingUndo(u), nil
}

// BlockTimestamp is part of the Storage interface.
func (v *TransactionVerifier) BlockTimestamp(height int64) (time.Time, error) {
	return v.storage.BlockTimestamp(height)
}

// SetBestBlock sets the block the UTXO set is consistent with.
func (v *TransactionVerifier) SetBestBlock(hash chainhash.Hash) {
	v.utxos.SetBestBlock(hash)
}

// Consume returns every modification of the verifier and resets it.
func (v *TransactionVerifier) Consume() *Delta {
	tokens, byTx := v.tokens.consume()
	d := &Delta{
		Utxos:          v.utxos.Consume(),
		Accounting:     v.accounting.Consume(),
		Tokens:         tokens,
		TokensByTx:     byTx,
		UtxoUndo:       v.utxoUndo.consume(),
		AccountingUndo: v.accountingUndo.consume(),
	}
	if v.txIndex != nil {
		d.TxIndex = v.txIndex.consume()
	}
	v.preverified = make(map[inputKey]struct{})
	return d
}

// ApplyDelta applies the modifications consumed from a child verifier.
func (v *TransactionVerifier) ApplyDelta(d *Delta) error {
	if d.Utxos != nil {
		if err := v.utxos.BatchWrite(d.Utxos); err != nil {
			return err
		}
	}
	if d.Accounting != nil {
		if err := v.accounting.MergeDelta(d.Accounting); err != nil {
			return err
		}
	}
	v.tokens.merge(d.Tokens, d.TokensByTx)
	if v.txIndex != nil {
		v.txIndex.merge(d.TxIndex)
	}
	v.utxoUndo.merge(d.UtxoUndo)
	v.accountingUndo.merge(d.AccountingUndo)
	return nil
}

// fetchInputs returns the entries spent by the inputs.
func (v *TransactionVerifier) fetchInputs(inputs []*wire.TxIn) ([]*utxo.Entry, error) {
	entries := make([]*utxo.Entry, len(inputs))
	for i, in := range inputs {
		entry, err := v.utxos.FetchEntry(in.PreviousOutPoint)
		if err != nil {
			return nil, err
		}
		if entry == nil {
			str := fmt.Sprintf("output %v referenced by input %d is "+
				"missing or spent", in.PreviousOutPoint, i)
			return nil, ruleError(ErrMissingOutputOrSpent, str)
		}
		entries[i] = entry
	}
	return entries, nil
}

// stakePoolOf returns the pool an output carries along with whether the output
// is a stake output at all.  Stake pool outputs identify their pool by their
// own outpoint.
func stakePoolOf(op *wire.OutPoint, out *wire.TxOut) (chainhash.Hash, bool) {
	switch out.Type {
	case wire.OutputStakePool:
		return posaccounting.PoolID(op), true
	case wire.OutputProduceBlockFromStake:
		return out.PoolID, true
	}
	return chainhash.Hash{}, false
}

// checkPurposes enforces the input and output purpose policy and returns the
// pools the transaction decommissions in input order.
func checkPurposes(tx *wire.MsgTx, entries []*utxo.Entry) ([]chainhash.Hash, error) {
	var decommission []chainhash.Hash
	for i, entry := range entries {
		op := &tx.TxIn[i].PreviousOutPoint
		if _, ok := entry.Output.SpendDestination(); !ok {
			str := fmt.Sprintf("input %d spends %v output %v", i,
				entry.Output.Type, op)
			return nil, ruleError(ErrAttemptToSpendBurnedAmount, str)
		}
		if poolID, ok := stakePoolOf(op, entry.Output); ok {
			decommission = append(decommission, poolID)
		}
	}

	for i, out := range tx.TxOut {
		switch out.Type {
		case wire.OutputProduceBlockFromStake:
			str := fmt.Sprintf("output %d produces a block from stake "+
				"outside of a block reward", i)
			return nil, ruleError(ErrInvalidOutputPurpose, str)

		case wire.OutputStakePool, wire.OutputDelegateStaking:
			if out.Value.Type != wire.ValueCoin {
				str := fmt.Sprintf("%v output %d does not carry coins",
					out.Type, i)
				return nil, ruleError(ErrInvalidOutputPurpose, str)
			}
			if out.Type == wire.OutputStakePool && out.Pool == nil {
				str := fmt.Sprintf("stake pool output %d has no pool "+
					"data", i)
				return nil, ruleError(ErrInvalidOutputPurpose, str)
			}
		}
		if len(decommission) > 0 && out.Type != wire.OutputLockThenTransfer {
			str := fmt.Sprintf("output %d of a pool decommissioning "+
				"transaction is %v instead of LockThenTransfer", i, out.Type)
			return nil, ruleError(ErrInvalidOutputPurpose, str)
		}
	}
	return decommission, nil
}

// checkSpendable ensures a spent entry is mature and its timelock, if any, is
// satisfied at the spending height and median time past.
func (v *TransactionVerifier) checkSpendable(op *wire.OutPoint, entry *utxo.Entry,
	height int64, medianTime time.Time) error {

	if entry.IsBlockReward {
		maturity := int64(v.params.BlockRewardMaturity)
		if height-entry.Height < maturity {
			str := fmt.Sprintf("output %v from the block reward at height "+
				"%d is spent at height %d before maturing for %d blocks",
				op, entry.Height, height, maturity)
			return ruleError(ErrImmatureBlockRewardSpend, str)
		}
	}

	out := entry.Output
	if out.Type != wire.OutputLockThenTransfer {
		return nil
	}
	lock := out.Timelock
	var ok bool
	switch lock.Type {
	case wire.LockUntilHeight:
		ok = height >= 0 && uint64(height) >= lock.Value
	case wire.LockUntilTime:
		ok = medianTime.Unix() >= 0 && uint64(medianTime.Unix()) >= lock.Value
	case wire.LockForBlockCount:
		ok = height >= entry.Height && uint64(height-entry.Height) >= lock.Value
	case wire.LockForSeconds:
		if entry.Height >= height {
			ok = lock.Value == 0
			break
		}
		created, err := v.storage.BlockTimestamp(entry.Height)
		if err != nil {
			return err
		}
		elapsed := medianTime.Unix() - created.Unix()
		ok = elapsed >= 0 && uint64(elapsed) >= lock.Value
	default:
		str := fmt.Sprintf("output %v has unknown timelock type %d", op,
			lock.Type)
		return ruleError(ErrTimelockNotSatisfied, str)
	}
	if !ok {
		str := fmt.Sprintf("timelock %d:%d of output %v is not satisfied "+
			"at height %d and median time %v", lock.Type, lock.Value, op,
			height, medianTime)
		return ruleError(ErrTimelockNotSatisfied, str)
	}
	return nil
}

// addAmount adds a to the total of the asset.
func addAmount(totals map[assetID]amount.Amount, asset assetID, a amount.Amount) error {
	sum, err := totals[asset].Add(a)
	if err != nil {
		str := fmt.Sprintf("amounts of asset %v overflow", asset.id)
		return ruleError(ErrAmountOverflow, str)
	}
	totals[asset] = sum
	return nil
}

// inputValue returns the asset and amount an entry contributes as an input.
// Stake outputs are worth the balance of their pool.
func (v *TransactionVerifier) inputValue(op *wire.OutPoint, entry *utxo.Entry) (assetID, amount.Amount, error) {
	out := entry.Output
	if poolID, ok := stakePoolOf(op, out); ok {
		data, err := v.accounting.PoolData(poolID)
		if err != nil {
			return assetID{}, 0, err
		}
		if data == nil {
			str := fmt.Sprintf("pool %v of output %v does not exist",
				poolID, op)
			return assetID{}, 0, ruleError(ErrPoolDataNotFound, str)
		}
		balance, err := v.accounting.PoolBalance(poolID)
		return assetID{}, balance, err
	}

	switch out.Value.Type {
	case wire.ValueTokenTransfer:
		return assetID{token: true, id: out.Value.TokenID}, out.Value.Amount, nil

	case wire.ValueTokenIssuance:
		if op.Source != wire.SourceTransaction || out.Value.Issuance == nil {
			str := fmt.Sprintf("output %v holds an invalid issuance", op)
			return assetID{}, 0, ruleError(ErrTokenIssuanceInvalid, str)
		}
		id, err := v.tokens.TokenIDByTx(op.Hash)
		if err != nil {
			return assetID{}, 0, err
		}
		if id == nil {
			str := fmt.Sprintf("no token is registered for the issuance "+
				"of transaction %v", op.Hash)
			return assetID{}, 0, ruleError(ErrTokenIssuanceInvalid, str)
		}
		return assetID{token: true, id: *id}, out.Value.Issuance.Supply, nil
	}
	return assetID{}, out.Value.Amount, nil
}

// outputTotals returns the per-asset totals paid by the outputs.  Issuances
// create their asset and are not counted.
func outputTotals(outputs []*wire.TxOut) (map[assetID]amount.Amount, error) {
	totals := make(map[assetID]amount.Amount)
	for _, out := range outputs {
		switch out.Type {
		case wire.OutputProduceBlockFromStake, wire.OutputCreateDelegationID:
			continue
		}
		var err error
		switch out.Value.Type {
		case wire.ValueCoin:
			err = addAmount(totals, assetID{}, out.Value.Amount)
		case wire.ValueTokenTransfer:
			asset := assetID{token: true, id: out.Value.TokenID}
			err = addAmount(totals, asset, out.Value.Amount)
		}
		if err != nil {
			return nil, err
		}
	}
	return totals, nil
}

// checkAmounts ensures no asset is paid out beyond its inputs and returns the
// coin fee.
func (v *TransactionVerifier) checkAmounts(tx *wire.MsgTx, entries []*utxo.Entry) (Fee, error) {
	inputs := make(map[assetID]amount.Amount)
	for i, entry := range entries {
		asset, value, err := v.inputValue(&tx.TxIn[i].PreviousOutPoint, entry)
		if err != nil {
			return Fee{}, err
		}
		if err := addAmount(inputs, asset, value); err != nil {
			return Fee{}, err
		}
	}
	outputs, err := outputTotals(tx.TxOut)
	if err != nil {
		return Fee{}, err
	}
	for asset, out := range outputs {
		in := inputs[asset]
		if out > in {
			what := "coins"
			if asset.token {
				what = "token " + asset.id.String()
			}
			str := fmt.Sprintf("transaction %v pays %v of %s with inputs "+
				"worth %v", tx.TxHash(), out, what, in)
			return Fee{}, ruleError(ErrAttemptToPrintMoney, str)
		}
	}
	fee, _ := inputs[assetID{}].Sub(outputs[assetID{}])
	return NewFee(fee), nil
}

// checkIssuance validates the token issuance of the transaction, if any, and
// returns it.
func (v *TransactionVerifier) checkIssuance(tx *wire.MsgTx) (*wire.TokenIssuance, error) {
	var issuance *wire.TokenIssuance
	var burned amount.Amount
	for i, out := range tx.TxOut {
		if out.Type == wire.OutputBurn && out.Value.Type == wire.ValueCoin {
			var err error
			if burned, err = burned.Add(out.Value.Amount); err != nil {
				return nil, ruleError(ErrAmountOverflow, "burned "+
					"amounts overflow")
			}
		}
		if out.Value.Type != wire.ValueTokenIssuance {
			continue
		}
		if issuance != nil {
			str := fmt.Sprintf("output %d issues a second token", i)
			return nil, ruleError(ErrMultipleTokenIssuance, str)
		}
		if out.Value.Issuance == nil {
			str := fmt.Sprintf("output %d has no issuance data", i)
			return nil, ruleError(ErrTokenIssuanceInvalid, str)
		}
		issuance = out.Value.Issuance
	}
	if issuance == nil {
		return nil, nil
	}
	if len(tx.TxIn) == 0 {
		return nil, ruleError(ErrTokenIssuanceInvalid, "token issuing "+
			"transaction has no inputs")
	}
	if err := checkTokenIssuance(v.params, issuance); err != nil {
		return nil, err
	}
	if burned < v.params.TokenMinIssuanceFee {
		str := fmt.Sprintf("transaction %v burns %v for a token issuance "+
			"which requires %v", tx.TxHash(), burned,
			v.params.TokenMinIssuanceFee)
		return nil, ruleError(ErrInsufficientTokenFees, str)
	}
	if err := v.tokens.checkRegister(TokenID(tx)); err != nil {
		return nil, err
	}
	return issuance, nil
}

// verifySignatures verifies every input witness that was not verified ahead of
// time against the destination of the output it spends.
func (v *TransactionVerifier) verifySignatures(tx *wire.MsgTx, txHash chainhash.Hash,
	entries []*utxo.Entry) error {

	for i, entry := range entries {
		key := inputKey{txHash: txHash, index: i}
		if _, ok := v.preverified[key]; ok {
			delete(v.preverified, key)
			continue
		}
		if err := verifyInput(tx, i, entry.Output); err != nil {
			return err
		}
	}
	return nil
}

// verifyInput verifies the witness of input idx against the spent output.
func verifyInput(tx *wire.MsgTx, idx int, spent *wire.TxOut) error {
	dest, ok := spent.SpendDestination()
	if !ok {
		str := fmt.Sprintf("input %d spends an unspendable %v output", idx,
			spent.Type)
		return ruleError(ErrAttemptToSpendBurnedAmount, str)
	}
	if err := signature.VerifyInput(dest, tx, idx, spent); err != nil {
		str := fmt.Sprintf("input %d of transaction %v: %v", idx,
			tx.TxHash(), err)
		return RuleError{Err: ErrSignatureVerificationFailed, Description: str}
	}
	return nil
}

// connectAccounting applies the stake effects of the transaction to a cache
// layered over the accounting state and returns its delta and undo data.
func (v *TransactionVerifier) connectAccounting(tx *wire.MsgTx, txHash chainhash.Hash,
	decommission []chainhash.Hash) (*posaccounting.Delta, *posaccounting.TxUndo, error) {

	cache := posaccounting.NewCache(v.accounting)
	undo := new(posaccounting.TxUndo)
	record := func(u *posaccounting.Undo, err error) error {
		if err != nil {
			return err
		}
		undo.Undos = append(undo.Undos, u)
		return nil
	}

	decommissioned := make(map[chainhash.Hash]struct{}, len(decommission))
	for _, poolID := range decommission {
		if _, ok := decommissioned[poolID]; ok {
			continue
		}
		decommissioned[poolID] = struct{}{}
		if err := record(cache.DecommissionPool(poolID)); err != nil {
			return nil, nil, err
		}
	}

	for i, out := range tx.TxOut {
		op := wire.OutPoint{Hash: txHash, Source: wire.SourceTransaction,
			Index: uint32(i)}
		var err error
		switch out.Type {
		case wire.OutputStakePool:
			data := posaccounting.NewPoolData(out.Value.Amount, out.Pool)
			err = record(cache.CreatePool(posaccounting.PoolID(&op), data))
		case wire.OutputCreateDelegationID:
			var u *posaccounting.Undo
			_, u, err = cache.CreateDelegationID(out.PoolID, out.Destination, &op)
			err = record(u, err)
		case wire.OutputDelegateStaking:
			err = record(cache.DelegateStaking(out.DelegationID, out.Value.Amount))
		}
		if err != nil {
			return nil, nil, err
		}
	}
	if len(undo.Undos) == 0 {
		return nil, nil, nil
	}
	return cache.Consume(), undo, nil
}

// ConnectTransaction validates the transaction against the current state and
// applies it: its inputs are spent, its spendable outputs are added, its stake
// and token effects are applied and the transaction index is updated for chain
// sources.  The undo data is recorded under the source.  The returned fee is
// the unclaimed coin value.
//
// The spend height is the height of the block being connected, or the height
// of the next block for mempool sources.  Chain sources must provide the
// position of the transaction when the transaction index is enabled.  The
// verifier is not modified when an error is returned.
func (v *TransactionVerifier) ConnectTransaction(source TransactionSource, tx *wire.MsgTx,
	pos *TxPosition, height int64, medianTime time.Time) (Fee, error) {

	txHash := tx.TxHash()
	entries, err := v.fetchInputs(tx.TxIn)
	if err != nil {
		return Fee{}, err
	}
	decommission, err := checkPurposes(tx, entries)
	if err != nil {
		return Fee{}, err
	}
	for i, entry := range entries {
		op := &tx.TxIn[i].PreviousOutPoint
		if err := v.checkSpendable(op, entry, height, medianTime); err != nil {
			return Fee{}, err
		}
	}
	fee, err := v.checkAmounts(tx, entries)
	if err != nil {
		return Fee{}, err
	}
	issuance, err := v.checkIssuance(tx)
	if err != nil {
		return Fee{}, err
	}
	if err := v.verifySignatures(tx, txHash, entries); err != nil {
		return Fee{}, err
	}

	indexed := source.IsChain() && v.txIndex != nil
	if indexed {
		if pos == nil {
			return Fee{}, AssertError(fmt.Sprintf("no position for "+
				"transaction %v of %v", txHash, source))
		}
		for _, in := range tx.TxIn {
			if in.PreviousOutPoint.Source != wire.SourceTransaction {
				continue
			}
			if err := v.txIndex.checkSpend(&in.PreviousOutPoint); err != nil {
				return Fee{}, err
			}
		}
		if err := v.txIndex.checkAdd(txHash); err != nil {
			return Fee{}, err
		}
	}

	accDelta, accUndo, err := v.connectAccounting(tx, txHash, decommission)
	if err != nil {
		return Fee{}, err
	}

	utxoRecord, err := v.utxoUndo.getOrCreate(source)
	if err != nil {
		return Fee{}, err
	}
	if _, ok := utxoRecord.TxUndos[txHash]; ok {
		v.utxoUndo.removeIfEmpty(source)
		return Fee{}, AssertError(fmt.Sprintf("transaction %v is already "+
			"connected in %v", txHash, source))
	}
	var accRecord *posaccounting.BlockUndo
	if accUndo != nil {
		accRecord, err = v.accountingUndo.getOrCreate(source)
		if err != nil {
			v.utxoUndo.removeIfEmpty(source)
			return Fee{}, err
		}
	}

	// Everything is validated.  The UTXO cache leaves itself untouched on
	// failure, so it goes first.
	txUndo, err := v.utxos.ConnectTransaction(tx, height)
	if err != nil {
		v.utxoUndo.removeIfEmpty(source)
		v.accountingUndo.removeIfEmpty(source)
		return Fee{}, err
	}
	if err := utxoRecord.InsertTxUndo(txHash, txUndo); err != nil {
		return Fee{}, err
	}
	if accUndo != nil {
		if err := v.accounting.MergeDelta(accDelta); err != nil {
			return Fee{}, err
		}
		if err := accRecord.InsertTxUndo(txHash, accUndo); err != nil {
			return Fee{}, err
		}
	}
	if issuance != nil {
		aux := &TokenAuxData{
			IssuanceTx: txHash,
			BlockHash:  source.BlockHash,
			Issuance:   *issuance,
		}
		v.tokens.register(TokenID(tx), aux)
	}
	if indexed {
		for _, in := range tx.TxIn {
			if in.PreviousOutPoint.Source != wire.SourceTransaction {
				continue
			}
			if err := v.txIndex.spend(&in.PreviousOutPoint); err != nil {
				return Fee{}, err
			}
		}
		entry := NewTxMainChainIndex(source.BlockHash, *pos, uint32(len(tx.TxOut)))
		if err := v.txIndex.add(txHash, entry); err != nil {
			return Fee{}, err
		}
	}

	log.Tracef("Connected transaction %v from %v with fee %v", txHash,
		source, fee)
	return fee, nil
}

// CanDisconnectTransaction returns whether none of the outputs of the
// transaction are spent by a transaction that is still connected.
func (v *TransactionVerifier) CanDisconnectTransaction(source TransactionSource, tx *wire.MsgTx) (bool, error) {
	if source.IsChain() && v.txIndex != nil {
		entry, err := v.txIndex.FetchTxIndex(tx.TxHash())
		if err != nil {
			return false, err
		}
		if entry == nil {
			return false, nil
		}
		return !entry.AnySpent(), nil
	}
	return v.utxos.CanDisconnectTransaction(tx)
}

// takeUtxoTxUndo removes the UTXO undo data of a transaction.
func (v *TransactionVerifier) takeUtxoTxUndo(source TransactionSource,
	txHash chainhash.Hash) (*utxo.TxUndo, error) {

	record, err := v.utxoUndo.get(source)
	if err != nil {
		return nil, err
	}
	if record == nil {
		str := fmt.Sprintf("no undo data for %v", source)
		return nil, ruleError(ErrMissingBlockUndo, str)
	}
	if _, ok := record.TxUndos[txHash]; !ok {
		str := fmt.Sprintf("no undo data for transaction %v in %v", txHash,
			source)
		return nil, ruleError(ErrMissingTxUndo, str)
	}
	return record.TakeTxUndo(txHash)
}

// DisconnectTransaction reverses ConnectTransaction using the undo data
// recorded under the source.  Transactions of a source must be disconnected
// in the reverse order of their connection.
func (v *TransactionVerifier) DisconnectTransaction(source TransactionSource, tx *wire.MsgTx) error {
	txHash := tx.TxHash()
	ok, err := v.CanDisconnectTransaction(source, tx)
	if err != nil {
		return err
	}
	if !ok {
		str := fmt.Sprintf("outputs of transaction %v are spent by a "+
			"connected transaction", txHash)
		return ruleError(ErrMissingOutputOrSpent, str)
	}

	undo, err := v.takeUtxoTxUndo(source, txHash)
	if err != nil {
		return err
	}
	if err := v.utxos.DisconnectTransaction(tx, undo); err != nil {
		return err
	}
	v.utxoUndo.removeIfEmpty(source)

	accRecord, err := v.accountingUndo.get(source)
	if err != nil {
		return err
	}
	if accRecord != nil {
		if _, ok := accRecord.TxUndos[txHash]; ok {
			accUndo, err := accRecord.TakeTxUndo(txHash)
			if err != nil {
				return err
			}
			cache := posaccounting.NewCache(v.accounting)
			if err := accUndo.Apply(cache); err != nil {
				return err
			}
			if err := v.accounting.MergeDelta(cache.Consume()); err != nil {
				return err
			}
			v.accountingUndo.removeIfEmpty(source)
		}
	}

	for _, out := range tx.TxOut {
		if out.Value.Type == wire.ValueTokenIssuance {
			if err := v.tokens.unregister(TokenID(tx)); err != nil {
				return err
			}
			break
		}
	}

	if source.IsChain() && v.txIndex != nil {
		if err := v.txIndex.remove(txHash); err != nil {
			return err
		}
		for _, in := range tx.TxIn {
			if in.PreviousOutPoint.Source != wire.SourceTransaction {
				continue
			}
			if err := v.txIndex.unspend(&in.PreviousOutPoint); err != nil {
				return err
			}
		}
	}

	log.Tracef("Disconnected transaction %v from %v", txHash, source)
	return nil
}
