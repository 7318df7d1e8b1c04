package escrow

import (
	"math/big"
	"time"

	"github.com/ainur-network/ainurchain/core/events"
	"github.com/ainur-network/ainurchain/core/types"
	nativecommon "github.com/ainur-network/ainurchain/native/common"
	"github.com/ainur-network/ainurchain/native/ledger"
)

// didValidator is the narrow view of core/identity.Engine the escrow engine
// needs to enforce that agentDid resolves to an active document.
type didValidator interface {
	IsDidActive(did string) bool
}

// Engine wires the escrow dispatch surface against its storage layer, the
// currency collaborator, and the identity registry.
type Engine struct {
	store      *store
	vault      *ledger.Vault
	dids       didValidator
	feeAccount [20]byte
	emitter    events.Emitter
	pauses     nativecommon.PauseView
	nowFn      func() int64
}

// NewEngine constructs an engine backed by the provided storage, vault,
// DID validity oracle, and protocol fee account.
func NewEngine(backend storage, vault *ledger.Vault, dids didValidator, feeAccount [20]byte) *Engine {
	return &Engine{
		store:      newStore(backend),
		vault:      vault,
		dids:       dids,
		feeAccount: feeAccount,
		emitter:    events.NoopEmitter{},
		nowFn:      func() int64 { return time.Now().Unix() },
	}
}

// SetState rebinds the storage dependency.
func (e *Engine) SetState(backend storage) { e.store = newStore(backend) }

// SetEmitter configures the event sink.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		emitter = events.NoopEmitter{}
	}
	e.emitter = emitter
}

// SetPauses configures the module pause view checked before every dispatch.
func (e *Engine) SetPauses(p nativecommon.PauseView) { e.pauses = p }

// SetNowFunc overrides the wall clock / block-number source.
func (e *Engine) SetNowFunc(now func() int64) {
	if now == nil {
		e.nowFn = func() int64 { return time.Now().Unix() }
		return
	}
	e.nowFn = now
}

// escrowEvent adapts the module's plain *types.Event payloads to the
// events.Event interface the shared emitter expects.
type escrowEvent struct {
	evt *types.Event
}

func (e escrowEvent) EventType() string {
	if e.evt == nil {
		return ""
	}
	return e.evt.Type
}

func (e *Engine) emit(evt *types.Event) {
	if e.emitter != nil && evt != nil {
		e.emitter.Emit(escrowEvent{evt: evt})
	}
}

func (e *Engine) now() uint64 {
	if e.nowFn == nil {
		return uint64(time.Now().Unix())
	}
	return uint64(e.nowFn())
}

func (e *Engine) guardNotPaused() error {
	return nativecommon.Guard(e.pauses, "escrow")
}

func (e *Engine) fee(amount *big.Int, feePercent uint8) (*big.Int, error) {
	return ledger.CheckedMulDivPercent(amount, uint64(feePercent))
}

// CreateEscrow opens a new Pending escrow, reserving amount against user.
func (e *Engine) CreateEscrow(taskID [32]byte, user [20]byte, agentDid string, agentAccount [20]byte, amount *big.Int, feePercent uint8, expiresAt uint64, taskHash [32]byte) (*Escrow, error) {
	if err := e.guardNotPaused(); err != nil {
		return nil, err
	}
	if err := validateAmount(amount); err != nil {
		return nil, err
	}
	if exists, err := e.store.escrowExists(taskID); err != nil {
		return nil, err
	} else if exists {
		return nil, ErrEscrowExists
	}
	if agentDid != "" && (e.dids == nil || !e.dids.IsDidActive(agentDid)) {
		return nil, ErrDidNotActive
	}
	if feePercent == 0 {
		feePercent = DefaultFeePercent
	}
	if err := e.vault.Reserve(user[:], amount); err != nil {
		return nil, err
	}
	escrow := &Escrow{
		TaskID:            taskID,
		User:              user,
		AgentDid:          agentDid,
		AgentAccount:      agentAccount,
		Amount:            new(big.Int).Set(amount),
		RemainingReserved: new(big.Int).Set(amount),
		FeePercent:        feePercent,
		CreatedAt:         e.now(),
		ExpiresAt:         expiresAt,
		Status:            StatusPending,
		TaskHash:          taskHash,
	}
	if err := e.store.putEscrow(escrow); err != nil {
		return nil, err
	}
	e.emit(NewEscrowCreatedEvent(escrow))
	return escrow.Clone(), nil
}

// AcceptTask transitions a Pending escrow to Accepted, binding the agent
// that will perform the task.
func (e *Engine) AcceptTask(taskID [32]byte, did string, agentAccount [20]byte) (*Escrow, error) {
	if err := e.guardNotPaused(); err != nil {
		return nil, err
	}
	escrow, err := e.store.getEscrow(taskID)
	if err != nil {
		return nil, err
	}
	if escrow.Status != StatusPending {
		return nil, ErrWrongState
	}
	if e.now() >= escrow.ExpiresAt {
		return nil, ErrExpired
	}
	if e.dids == nil || !e.dids.IsDidActive(did) {
		return nil, ErrDidNotActive
	}
	escrow.AgentDid = did
	escrow.AgentAccount = agentAccount
	escrow.Status = StatusAccepted
	if err := e.store.putEscrow(escrow); err != nil {
		return nil, err
	}
	e.emit(NewEscrowAcceptedEvent(escrow))
	return escrow.Clone(), nil
}

// ReleasePayment settles an Accepted escrow's remaining reserved funds to
// the agent, less the protocol fee, transitioning it to Completed.
func (e *Engine) ReleasePayment(taskID [32]byte, caller [20]byte) (*Escrow, error) {
	if err := e.guardNotPaused(); err != nil {
		return nil, err
	}
	escrow, err := e.store.getEscrow(taskID)
	if err != nil {
		return nil, err
	}
	if escrow.Status != StatusAccepted {
		return nil, ErrWrongState
	}
	if caller != escrow.User {
		return nil, ErrNotAuthorized
	}
	if err := e.settle(escrow, escrow.RemainingReserved); err != nil {
		return nil, err
	}
	escrow.RemainingReserved = big.NewInt(0)
	escrow.Status = StatusCompleted
	if err := e.store.putEscrow(escrow); err != nil {
		return nil, err
	}
	e.emit(NewEscrowCompletedEvent(escrow))
	return escrow.Clone(), nil
}

// settle releases amount out of escrow.RemainingReserved to the agent, minus
// the protocol fee, via the vault. It does not mutate escrow's persisted
// status; callers update Status/RemainingReserved themselves after a nil
// return.
func (e *Engine) settle(escrow *Escrow, amount *big.Int) error {
	if amount == nil || amount.Sign() == 0 {
		return nil
	}
	fee, err := e.fee(amount, escrow.FeePercent)
	if err != nil {
		return err
	}
	net := new(big.Int).Sub(amount, fee)
	if net.Sign() > 0 {
		if err := e.vault.SlashReserved(escrow.User[:], net, escrow.AgentAccount[:]); err != nil {
			return err
		}
	}
	if fee.Sign() > 0 {
		if err := e.vault.SlashReserved(escrow.User[:], fee, e.feeAccount[:]); err != nil {
			return err
		}
	}
	return nil
}

// RefundEscrow refunds a Pending or expired Accepted escrow to the user,
// computing the refund amount from the active refund policy (Standard, full
// refund, if none was set).
func (e *Engine) RefundEscrow(taskID [32]byte, caller [20]byte) (*Escrow, error) {
	if err := e.guardNotPaused(); err != nil {
		return nil, err
	}
	escrow, err := e.store.getEscrow(taskID)
	if err != nil {
		return nil, err
	}
	switch escrow.Status {
	case StatusPending:
		if caller != escrow.User {
			return nil, ErrNotAuthorized
		}
	case StatusAccepted:
		if e.now() < escrow.ExpiresAt {
			return nil, ErrNotExpired
		}
	default:
		return nil, ErrWrongState
	}
	refund, err := e.evaluateRefund(escrow)
	if err != nil {
		return nil, err
	}
	if refund.Sign() > 0 {
		if err := e.vault.Unreserve(escrow.User[:], refund); err != nil {
			return nil, err
		}
	}
	forfeited := new(big.Int).Sub(escrow.RemainingReserved, refund)
	if forfeited.Sign() > 0 {
		if err := e.vault.SlashReserved(escrow.User[:], forfeited, e.feeAccount[:]); err != nil {
			return nil, err
		}
	}
	escrow.RemainingReserved = big.NewInt(0)
	escrow.Status = StatusRefunded
	if err := e.store.putEscrow(escrow); err != nil {
		return nil, err
	}
	e.emit(NewEscrowRefundedEvent(escrow, refund))
	return escrow.Clone(), nil
}

func (e *Engine) evaluateRefund(escrow *Escrow) (*big.Int, error) {
	policy, ok, err := e.store.getRefundPolicy(escrow.TaskID)
	if err != nil {
		return nil, err
	}
	if !ok {
		policy = &RefundPolicy{Kind: PolicyStandard}
	}
	completed := 0
	for _, m := range escrow.Milestones {
		if m.Completed {
			completed++
		}
	}
	return policy.Evaluate(escrow.RemainingReserved, e.now(), completed), nil
}

// DisputeEscrow moves an Accepted escrow into Disputed. Disputed is
// terminal: no later operation, overrideRefundAmount included, settles it
// or moves its remaining reserved funds.
func (e *Engine) DisputeEscrow(taskID [32]byte, caller [20]byte) (*Escrow, error) {
	if err := e.guardNotPaused(); err != nil {
		return nil, err
	}
	escrow, err := e.store.getEscrow(taskID)
	if err != nil {
		return nil, err
	}
	if escrow.Status != StatusAccepted {
		return nil, ErrWrongState
	}
	if caller != escrow.User && caller != escrow.AgentAccount {
		return nil, ErrNotAuthorized
	}
	escrow.Status = StatusDisputed
	if err := e.store.putEscrow(escrow); err != nil {
		return nil, err
	}
	e.emit(NewEscrowDisputedEvent(escrow))
	return escrow.Clone(), nil
}

// EvaluateRefundAmount is a pure compute over the escrow's active policy; it
// emits an informational event carrying the result without mutating state.
func (e *Engine) EvaluateRefundAmount(taskID [32]byte) (*big.Int, error) {
	escrow, err := e.store.getEscrow(taskID)
	if err != nil {
		return nil, err
	}
	refund, err := e.evaluateRefund(escrow)
	if err != nil {
		return nil, err
	}
	e.emit(NewRefundEvaluatedEvent(escrow, refund))
	return refund, nil
}

// OverrideRefundAmount lets the refund policy's designated authority impose
// a concrete refund without policy recomputation, terminating the escrow in
// Refunded. Requires override <= escrow.RemainingReserved.
func (e *Engine) OverrideRefundAmount(taskID [32]byte, caller [20]byte, override *big.Int) (*Escrow, error) {
	if err := e.guardNotPaused(); err != nil {
		return nil, err
	}
	escrow, err := e.store.getEscrow(taskID)
	if err != nil {
		return nil, err
	}
	if escrow.Status.terminal() {
		return nil, ErrWrongState
	}
	policy, ok, err := e.store.getRefundPolicy(taskID)
	if err != nil {
		return nil, err
	}
	if !ok || !policy.CanOverride || policy.Authority != caller {
		return nil, ErrNotAuthorized
	}
	if override == nil || override.Sign() < 0 || override.Cmp(escrow.RemainingReserved) > 0 {
		return nil, ErrInvalidAmount
	}
	if override.Sign() > 0 {
		if err := e.vault.Unreserve(escrow.User[:], override); err != nil {
			return nil, err
		}
	}
	forfeited := new(big.Int).Sub(escrow.RemainingReserved, override)
	if forfeited.Sign() > 0 {
		if err := e.vault.SlashReserved(escrow.User[:], forfeited, e.feeAccount[:]); err != nil {
			return nil, err
		}
	}
	escrow.RemainingReserved = big.NewInt(0)
	escrow.Status = StatusRefunded
	if err := e.store.putEscrow(escrow); err != nil {
		return nil, err
	}
	e.emit(NewEscrowRefundedEvent(escrow, override))
	return escrow.Clone(), nil
}

// SetRefundPolicy attaches policy to a Pending escrow. Only the user may
// call this.
func (e *Engine) SetRefundPolicy(taskID [32]byte, caller [20]byte, policy *RefundPolicy) error {
	if err := e.guardNotPaused(); err != nil {
		return err
	}
	escrow, err := e.store.getEscrow(taskID)
	if err != nil {
		return err
	}
	if escrow.Status != StatusPending {
		return ErrWrongState
	}
	if caller != escrow.User {
		return ErrNotAuthorized
	}
	if err := policy.Validate(); err != nil {
		return err
	}
	return e.store.putRefundPolicy(taskID, policy)
}

// UpdateRefundPolicy replaces an existing policy. Either the escrow's user
// or, when the existing policy allows it, its designated override authority
// may call this.
func (e *Engine) UpdateRefundPolicy(taskID [32]byte, caller [20]byte, policy *RefundPolicy) error {
	if err := e.guardNotPaused(); err != nil {
		return err
	}
	escrow, err := e.store.getEscrow(taskID)
	if err != nil {
		return err
	}
	if escrow.Status.terminal() {
		return ErrWrongState
	}
	existing, ok, err := e.store.getRefundPolicy(taskID)
	if err != nil {
		return err
	}
	authorized := caller == escrow.User
	if !authorized && ok && existing.CanOverride && existing.Authority == caller {
		authorized = true
	}
	if !authorized {
		return ErrNotAuthorized
	}
	if err := policy.Validate(); err != nil {
		return err
	}
	return e.store.putRefundPolicy(taskID, policy)
}
