// Package ledger implements the currency collaborator every native module is
// specified against: reserve/unreserve/transfer(keep_alive|allow_death)/
// free_balance. The reference ledger's escrow code does not expose a generic
// reserve primitive on arbitrary accounts — it moves funds into a per-token
// vault account and tracks credit/debit against that vault instead (see
// native/escrow/storage_test.go's TestManagerEscrowCreditDebit in the
// retrieved teacher). Vault generalizes that idiom: reservations move funds
// from an owner account into a module-owned vault account; transfers move
// funds out of the vault to their final recipient.
package ledger

import (
	"errors"
	"math/big"

	"github.com/ainur-network/ainurchain/core/types"
	"github.com/ainur-network/ainurchain/native/common"
)

var (
	// ErrInsufficientBalance is returned when a reserve or transfer would
	// draw more than an account's free (or vault) balance holds.
	ErrInsufficientBalance = errors.New("ledger: insufficient balance")
	// ErrAccountWouldBeReaped is returned by a keep_alive transfer that would
	// leave the recipient account with a zero balance.
	ErrAccountWouldBeReaped = errors.New("ledger: transfer would reap keep-alive account")
)

func init() {
	common.RegisterErrors(common.TaxonomyInsufficientBalance, ErrInsufficientBalance)
	common.RegisterErrors(common.TaxonomyArithmeticOverflow, ErrArithmeticOverflow)
}

// accountStore is the narrow storage dependency Vault needs, mirroring the
// engineState pattern every native module's Engine type uses to inject its
// storage layer. core/state.Manager satisfies this directly.
type accountStore interface {
	GetAccount(addr []byte) (*types.Account, error)
	PutAccount(addr []byte, account *types.Account) error
}

// Vault is one module-owned settlement account (e.g. the escrow vault, the
// reputation treasury). A deployment typically constructs one Vault per
// settlement domain, all sharing the same accountStore.
type Vault struct {
	state   accountStore
	address []byte
}

// NewVault constructs a Vault rooted at the given module-owned account
// address. The address has no special on-chain meaning beyond being the
// account that holds reserved funds in transit.
func NewVault(state accountStore, vaultAddress []byte) *Vault {
	return &Vault{state: state, address: append([]byte(nil), vaultAddress...)}
}

// SetState rebinds the storage dependency, mirroring the teacher's
// SetState(...) wiring pattern used across native/escrow and native/lending.
func (v *Vault) SetState(state accountStore) {
	v.state = state
}

// FreeBalance returns the unreserved balance available to account for new
// reservations or outgoing transfers.
func (v *Vault) FreeBalance(account []byte) (*big.Int, error) {
	acc, err := v.state.GetAccount(account)
	if err != nil {
		return nil, err
	}
	return acc.FreeBalance(), nil
}

// Reserve moves amount out of account's free balance into the vault,
// incrementing account's Reserved counter so FreeBalance accounting on the
// account itself reflects the hold.
func (v *Vault) Reserve(account []byte, amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return nil
	}
	acc, err := v.state.GetAccount(account)
	if err != nil {
		return err
	}
	if acc.Balance.Cmp(amount) < 0 {
		return ErrInsufficientBalance
	}
	acc.Balance = new(big.Int).Sub(acc.Balance, amount)
	acc.Reserved = new(big.Int).Add(acc.Reserved, amount)
	if err := v.state.PutAccount(account, acc); err != nil {
		return err
	}
	vault, err := v.state.GetAccount(v.address)
	if err != nil {
		return err
	}
	vault.Balance = new(big.Int).Add(vault.Balance, amount)
	return v.state.PutAccount(v.address, vault)
}

// Unreserve reverses a prior Reserve without moving funds anywhere else: the
// vault returns amount to account's free balance and account's Reserved
// counter is decremented.
func (v *Vault) Unreserve(account []byte, amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return nil
	}
	vault, err := v.state.GetAccount(v.address)
	if err != nil {
		return err
	}
	if vault.Balance.Cmp(amount) < 0 {
		return ErrInsufficientBalance
	}
	vault.Balance = new(big.Int).Sub(vault.Balance, amount)
	if err := v.state.PutAccount(v.address, vault); err != nil {
		return err
	}
	acc, err := v.state.GetAccount(account)
	if err != nil {
		return err
	}
	if acc.Reserved.Cmp(amount) < 0 {
		acc.Reserved = big.NewInt(0)
	} else {
		acc.Reserved = new(big.Int).Sub(acc.Reserved, amount)
	}
	acc.Balance = new(big.Int).Add(acc.Balance, amount)
	return v.state.PutAccount(account, acc)
}

// Transfer moves amount out of the vault to recipient. keepAlive mirrors the
// host currency collaborator's keep_alive/allow_death distinction; here it
// guards against a transfer that would land the recipient at a zero balance
// (a degenerate release no escrow payout should ever produce).
func (v *Vault) Transfer(recipient []byte, amount *big.Int, keepAlive bool) error {
	if amount == nil || amount.Sign() <= 0 {
		return nil
	}
	vault, err := v.state.GetAccount(v.address)
	if err != nil {
		return err
	}
	if vault.Balance.Cmp(amount) < 0 {
		return ErrInsufficientBalance
	}
	vault.Balance = new(big.Int).Sub(vault.Balance, amount)
	if err := v.state.PutAccount(v.address, vault); err != nil {
		return err
	}
	recv, err := v.state.GetAccount(recipient)
	if err != nil {
		return err
	}
	recv.Balance = new(big.Int).Add(recv.Balance, amount)
	if keepAlive && recv.Balance.Sign() == 0 {
		return ErrAccountWouldBeReaped
	}
	return v.state.PutAccount(recipient, recv)
}

// SlashReserved moves amount out of account's Reserved counter directly to
// recipient, without first returning it to account's free balance. This is
// the reputation module's slashing primitive: the slashed amount never
// passes back through the offending account.
func (v *Vault) SlashReserved(account []byte, amount *big.Int, recipient []byte) error {
	if amount == nil || amount.Sign() <= 0 {
		return nil
	}
	vault, err := v.state.GetAccount(v.address)
	if err != nil {
		return err
	}
	if vault.Balance.Cmp(amount) < 0 {
		return ErrInsufficientBalance
	}
	acc, err := v.state.GetAccount(account)
	if err != nil {
		return err
	}
	if acc.Reserved.Cmp(amount) < 0 {
		return ErrInsufficientBalance
	}
	vault.Balance = new(big.Int).Sub(vault.Balance, amount)
	acc.Reserved = new(big.Int).Sub(acc.Reserved, amount)
	if err := v.state.PutAccount(v.address, vault); err != nil {
		return err
	}
	if err := v.state.PutAccount(account, acc); err != nil {
		return err
	}
	recv, err := v.state.GetAccount(recipient)
	if err != nil {
		return err
	}
	recv.Balance = new(big.Int).Add(recv.Balance, amount)
	return v.state.PutAccount(recipient, recv)
}

// Credit directly increases account's free balance without involving the
// vault at all (used to fund test fixtures and for direct deposits).
func (v *Vault) Credit(account []byte, amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return nil
	}
	acc, err := v.state.GetAccount(account)
	if err != nil {
		return err
	}
	acc.Balance = new(big.Int).Add(acc.Balance, amount)
	return v.state.PutAccount(account, acc)
}
