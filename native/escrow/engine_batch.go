package escrow

import (
	"math/big"

	"github.com/ainur-network/ainurchain/native/ledger"
)

// Batch dispatch operations validate every item against current state
// before executing any of them, then execute sequentially. Because a single
// dispatch call runs to completion before the next one starts, no other
// mutation can intervene between validation and execution. There is no
// snapshot/rollback journal over the underlying trie writes: if an item
// still fails during execution, the items already executed stay applied.

const (
	batchOpCreate  = "createEscrow"
	batchOpRelease = "releasePayment"
	batchOpRefund  = "refundEscrow"
	batchOpDispute = "disputeEscrow"
)

// BatchCreateEscrowItem is one entry of a batch createEscrow dispatch.
type BatchCreateEscrowItem struct {
	TaskID       [32]byte
	User         [20]byte
	AgentDid     string
	AgentAccount [20]byte
	Amount       *big.Int
	FeePercent   uint8
	ExpiresAt    uint64
	TaskHash     [32]byte
}

func (e *Engine) newBatchID(caller [20]byte, opType string) ([32]byte, error) {
	counter, err := e.store.nextBatchCounter()
	if err != nil {
		return [32]byte{}, err
	}
	return deriveBatchID(caller, opType, e.now(), counter), nil
}

// BatchReleasePayments releases a batch of Accepted escrows in one dispatch.
// Every taskId is validated (exists, Accepted, caller is its user) before
// any payment is released.
func (e *Engine) BatchReleasePayments(caller [20]byte, taskIDs [][32]byte) ([32]byte, []*Escrow, error) {
	var batchID [32]byte
	if err := e.guardNotPaused(); err != nil {
		return batchID, nil, err
	}
	if len(taskIDs) == 0 || len(taskIDs) > MaxBatchSize {
		return batchID, nil, ErrBatchSizeInvalid
	}
	batchID, err := e.newBatchID(caller, batchOpRelease)
	if err != nil {
		return batchID, nil, err
	}
	escrows := make([]*Escrow, 0, len(taskIDs))
	for _, id := range taskIDs {
		escrow, err := e.store.getEscrow(id)
		if err != nil {
			e.emit(NewBatchOperationFailedEvent(batchID, batchOpRelease, err.Error()))
			return batchID, nil, err
		}
		if escrow.Status != StatusAccepted {
			e.emit(NewBatchOperationFailedEvent(batchID, batchOpRelease, ErrWrongState.Error()))
			return batchID, nil, ErrWrongState
		}
		if escrow.User != caller {
			e.emit(NewBatchOperationFailedEvent(batchID, batchOpRelease, ErrNotAuthorized.Error()))
			return batchID, nil, ErrNotAuthorized
		}
		escrows = append(escrows, escrow)
	}
	results := make([]*Escrow, 0, len(taskIDs))
	for _, escrow := range escrows {
		settled, err := e.ReleasePayment(escrow.TaskID, caller)
		if err != nil {
			e.emit(NewBatchOperationFailedEvent(batchID, batchOpRelease, err.Error()))
			return batchID, results, err
		}
		results = append(results, settled)
	}
	e.emit(NewBatchOperationCompletedEvent(batchID, batchOpRelease, len(results)))
	return batchID, results, nil
}

// BatchRefundEscrows refunds a batch of eligible escrows in one dispatch,
// pre-validating every item's refund eligibility before refunding any of
// them.
func (e *Engine) BatchRefundEscrows(caller [20]byte, taskIDs [][32]byte) ([32]byte, []*Escrow, error) {
	var batchID [32]byte
	if err := e.guardNotPaused(); err != nil {
		return batchID, nil, err
	}
	if len(taskIDs) == 0 || len(taskIDs) > MaxBatchSize {
		return batchID, nil, ErrBatchSizeInvalid
	}
	batchID, err := e.newBatchID(caller, batchOpRefund)
	if err != nil {
		return batchID, nil, err
	}
	for _, id := range taskIDs {
		escrow, err := e.store.getEscrow(id)
		if err != nil {
			e.emit(NewBatchOperationFailedEvent(batchID, batchOpRefund, err.Error()))
			return batchID, nil, err
		}
		switch escrow.Status {
		case StatusPending:
			if escrow.User != caller {
				e.emit(NewBatchOperationFailedEvent(batchID, batchOpRefund, ErrNotAuthorized.Error()))
				return batchID, nil, ErrNotAuthorized
			}
		case StatusAccepted:
			if e.now() < escrow.ExpiresAt {
				e.emit(NewBatchOperationFailedEvent(batchID, batchOpRefund, ErrNotExpired.Error()))
				return batchID, nil, ErrNotExpired
			}
		default:
			e.emit(NewBatchOperationFailedEvent(batchID, batchOpRefund, ErrWrongState.Error()))
			return batchID, nil, ErrWrongState
		}
	}
	results := make([]*Escrow, 0, len(taskIDs))
	for _, id := range taskIDs {
		refunded, err := e.RefundEscrow(id, caller)
		if err != nil {
			e.emit(NewBatchOperationFailedEvent(batchID, batchOpRefund, err.Error()))
			return batchID, results, err
		}
		results = append(results, refunded)
	}
	e.emit(NewBatchOperationCompletedEvent(batchID, batchOpRefund, len(results)))
	return batchID, results, nil
}

// BatchDisputeEscrows raises a dispute on a batch of Accepted escrows in one
// dispatch.
func (e *Engine) BatchDisputeEscrows(caller [20]byte, taskIDs [][32]byte) ([32]byte, []*Escrow, error) {
	var batchID [32]byte
	if err := e.guardNotPaused(); err != nil {
		return batchID, nil, err
	}
	if len(taskIDs) == 0 || len(taskIDs) > MaxBatchSize {
		return batchID, nil, ErrBatchSizeInvalid
	}
	batchID, err := e.newBatchID(caller, batchOpDispute)
	if err != nil {
		return batchID, nil, err
	}
	for _, id := range taskIDs {
		escrow, err := e.store.getEscrow(id)
		if err != nil {
			e.emit(NewBatchOperationFailedEvent(batchID, batchOpDispute, err.Error()))
			return batchID, nil, err
		}
		if escrow.Status != StatusAccepted {
			e.emit(NewBatchOperationFailedEvent(batchID, batchOpDispute, ErrWrongState.Error()))
			return batchID, nil, ErrWrongState
		}
		if escrow.User != caller && escrow.AgentAccount != caller {
			e.emit(NewBatchOperationFailedEvent(batchID, batchOpDispute, ErrNotAuthorized.Error()))
			return batchID, nil, ErrNotAuthorized
		}
	}
	results := make([]*Escrow, 0, len(taskIDs))
	for _, id := range taskIDs {
		disputed, err := e.DisputeEscrow(id, caller)
		if err != nil {
			e.emit(NewBatchOperationFailedEvent(batchID, batchOpDispute, err.Error()))
			return batchID, results, err
		}
		results = append(results, disputed)
	}
	e.emit(NewBatchOperationCompletedEvent(batchID, batchOpDispute, len(results)))
	return batchID, results, nil
}

// BatchCreateEscrows opens a batch of new escrows in one dispatch,
// pre-validating every item (no duplicate/existing taskId, valid amount,
// active agentDid where set) before creating any of them.
func (e *Engine) BatchCreateEscrows(caller [20]byte, items []BatchCreateEscrowItem) ([32]byte, []*Escrow, error) {
	var batchID [32]byte
	if err := e.guardNotPaused(); err != nil {
		return batchID, nil, err
	}
	if len(items) == 0 || len(items) > MaxBatchSize {
		return batchID, nil, ErrBatchSizeInvalid
	}
	batchID, err := e.newBatchID(caller, batchOpCreate)
	if err != nil {
		return batchID, nil, err
	}
	totalAmount := big.NewInt(0)
	seen := make(map[[32]byte]struct{}, len(items))
	for _, item := range items {
		if err := validateAmount(item.Amount); err != nil {
			e.emit(NewBatchOperationFailedEvent(batchID, batchOpCreate, err.Error()))
			return batchID, nil, err
		}
		if _, dup := seen[item.TaskID]; dup {
			e.emit(NewBatchOperationFailedEvent(batchID, batchOpCreate, ErrEscrowExists.Error()))
			return batchID, nil, ErrEscrowExists
		}
		seen[item.TaskID] = struct{}{}
		if exists, err := e.store.escrowExists(item.TaskID); err != nil {
			e.emit(NewBatchOperationFailedEvent(batchID, batchOpCreate, err.Error()))
			return batchID, nil, err
		} else if exists {
			e.emit(NewBatchOperationFailedEvent(batchID, batchOpCreate, ErrEscrowExists.Error()))
			return batchID, nil, ErrEscrowExists
		}
		if item.AgentDid != "" && (e.dids == nil || !e.dids.IsDidActive(item.AgentDid)) {
			e.emit(NewBatchOperationFailedEvent(batchID, batchOpCreate, ErrDidNotActive.Error()))
			return batchID, nil, ErrDidNotActive
		}
		totalAmount, err = ledger.CheckedAdd(totalAmount, item.Amount)
		if err != nil {
			e.emit(NewBatchOperationFailedEvent(batchID, batchOpCreate, err.Error()))
			return batchID, nil, err
		}
	}
	freeBalance, err := e.vault.FreeBalance(caller[:])
	if err != nil {
		e.emit(NewBatchOperationFailedEvent(batchID, batchOpCreate, err.Error()))
		return batchID, nil, err
	}
	if totalAmount.Cmp(freeBalance) > 0 {
		e.emit(NewBatchOperationFailedEvent(batchID, batchOpCreate, ledger.ErrInsufficientBalance.Error()))
		return batchID, nil, ledger.ErrInsufficientBalance
	}
	results := make([]*Escrow, 0, len(items))
	for _, item := range items {
		escrow, err := e.CreateEscrow(item.TaskID, item.User, item.AgentDid, item.AgentAccount, item.Amount, item.FeePercent, item.ExpiresAt, item.TaskHash)
		if err != nil {
			e.emit(NewBatchOperationFailedEvent(batchID, batchOpCreate, err.Error()))
			return batchID, results, err
		}
		results = append(results, escrow)
	}
	e.emit(NewBatchOperationCompletedEvent(batchID, batchOpCreate, len(results)))
	return batchID, results, nil
}
