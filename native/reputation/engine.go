package reputation

import (
	"math/big"

	"github.com/ainur-network/ainurchain/native/ledger"
)

// Engine wires the reputation operations named by the marketplace core
// against the ledger's storage layer.
type Engine struct {
	ledger *Ledger
}

// NewEngine constructs an engine backed by the provided storage backend,
// vault, and treasury address.
func NewEngine(store storage, vault *ledger.Vault, treasury []byte) *Engine {
	if store == nil || vault == nil {
		return &Engine{ledger: nil}
	}
	return &Engine{ledger: NewLedger(store, vault, treasury)}
}

// SetNowFunc overrides the wall clock used by the underlying ledger.
func (e *Engine) SetNowFunc(now func() int64) {
	if e == nil || e.ledger == nil {
		return
	}
	e.ledger.SetNowFunc(now)
}

// BondReputation reserves value as bonded collateral for account.
func (e *Engine) BondReputation(account []byte, value *big.Int) (*ReputationStake, error) {
	if e == nil || e.ledger == nil {
		return nil, ErrStakeNotFound
	}
	return e.ledger.Bond(account, value)
}

// UnbondReputation releases value of previously bonded collateral.
func (e *Engine) UnbondReputation(account []byte, value *big.Int) (*ReputationStake, error) {
	if e == nil || e.ledger == nil {
		return nil, ErrStakeNotFound
	}
	return e.ledger.Unbond(account, value)
}

// ReportOutcome records a task result for account.
func (e *Engine) ReportOutcome(account []byte, success bool) (*ReputationStake, error) {
	if e == nil || e.ledger == nil {
		return nil, ErrStakeNotFound
	}
	return e.ledger.ReportOutcome(account, success)
}

// SlashSevere applies a governance-adjudicated severe slash to account.
func (e *Engine) SlashSevere(account []byte, offenseCode uint8) (*ReputationStake, error) {
	if e == nil || e.ledger == nil {
		return nil, ErrStakeNotFound
	}
	return e.ledger.SlashSevere(account, offenseCode)
}

// ReputationTier returns the tier banding for account's current score.
func (e *Engine) ReputationTier(account []byte) (Tier, error) {
	if e == nil || e.ledger == nil {
		return "", ErrStakeNotFound
	}
	stake, err := e.ledger.Get(account)
	if err != nil {
		return "", err
	}
	return ReputationTier(stake.Reputation), nil
}

// GetStake returns the full stake record for account.
func (e *Engine) GetStake(account []byte) (*ReputationStake, error) {
	if e == nil || e.ledger == nil {
		return nil, ErrStakeNotFound
	}
	return e.ledger.Get(account)
}
