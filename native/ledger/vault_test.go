package ledger_test

import (
	"bytes"
	"math/big"
	"testing"

	"github.com/ainur-network/ainurchain/core/state"
	"github.com/ainur-network/ainurchain/native/ledger"
	"github.com/ainur-network/ainurchain/storage"
	"github.com/ainur-network/ainurchain/storage/trie"
)

func newTestManager(t *testing.T) *state.Manager {
	t.Helper()
	db := storage.NewMemDB()
	t.Cleanup(func() { _ = db.Close() })
	tr, err := trie.NewTrie(db, nil)
	if err != nil {
		t.Fatalf("new trie: %v", err)
	}
	return state.NewManager(tr)
}

var (
	vaultAddr = bytes.Repeat([]byte{0xEE}, 20)
	payerAddr = bytes.Repeat([]byte{0x01}, 20)
	payeeAddr = bytes.Repeat([]byte{0x02}, 20)
)

func TestVaultReserveUnreserveRoundTrip(t *testing.T) {
	mgr := newTestManager(t)
	v := ledger.NewVault(mgr, vaultAddr)

	if err := v.Credit(payerAddr, big.NewInt(1000)); err != nil {
		t.Fatalf("Credit: %v", err)
	}
	if err := v.Reserve(payerAddr, big.NewInt(400)); err != nil {
		t.Fatalf("Reserve: %v", err)
	}

	free, err := v.FreeBalance(payerAddr)
	if err != nil {
		t.Fatalf("FreeBalance: %v", err)
	}
	if free.Cmp(big.NewInt(600)) != 0 {
		t.Fatalf("expected free balance 600, got %s", free)
	}

	vaultAccount, err := mgr.GetAccount(vaultAddr)
	if err != nil {
		t.Fatalf("GetAccount(vault): %v", err)
	}
	if vaultAccount.Balance.Cmp(big.NewInt(400)) != 0 {
		t.Fatalf("expected vault balance 400, got %s", vaultAccount.Balance)
	}

	if err := v.Unreserve(payerAddr, big.NewInt(400)); err != nil {
		t.Fatalf("Unreserve: %v", err)
	}
	free, err = v.FreeBalance(payerAddr)
	if err != nil {
		t.Fatalf("FreeBalance: %v", err)
	}
	if free.Cmp(big.NewInt(1000)) != 0 {
		t.Fatalf("expected free balance restored to 1000, got %s", free)
	}
}

func TestVaultReserveInsufficientBalance(t *testing.T) {
	mgr := newTestManager(t)
	v := ledger.NewVault(mgr, vaultAddr)

	if err := v.Credit(payerAddr, big.NewInt(100)); err != nil {
		t.Fatalf("Credit: %v", err)
	}
	if err := v.Reserve(payerAddr, big.NewInt(500)); err != ledger.ErrInsufficientBalance {
		t.Fatalf("expected ErrInsufficientBalance, got %v", err)
	}
}

func TestVaultTransferMovesFundsOutOfVault(t *testing.T) {
	mgr := newTestManager(t)
	v := ledger.NewVault(mgr, vaultAddr)

	if err := v.Credit(payerAddr, big.NewInt(1000)); err != nil {
		t.Fatalf("Credit: %v", err)
	}
	if err := v.Reserve(payerAddr, big.NewInt(1000)); err != nil {
		t.Fatalf("Reserve: %v", err)
	}
	if err := v.Transfer(payeeAddr, big.NewInt(1000), false); err != nil {
		t.Fatalf("Transfer: %v", err)
	}

	payeeAccount, err := mgr.GetAccount(payeeAddr)
	if err != nil {
		t.Fatalf("GetAccount(payee): %v", err)
	}
	if payeeAccount.Balance.Cmp(big.NewInt(1000)) != 0 {
		t.Fatalf("expected payee balance 1000, got %s", payeeAccount.Balance)
	}

	vaultAccount, err := mgr.GetAccount(vaultAddr)
	if err != nil {
		t.Fatalf("GetAccount(vault): %v", err)
	}
	if vaultAccount.Balance.Sign() != 0 {
		t.Fatalf("expected vault drained to zero, got %s", vaultAccount.Balance)
	}
}

func TestVaultTransferKeepAliveAllowsNonZeroRecipientBalance(t *testing.T) {
	mgr := newTestManager(t)
	v := ledger.NewVault(mgr, vaultAddr)

	if err := v.Credit(payerAddr, big.NewInt(50)); err != nil {
		t.Fatalf("Credit: %v", err)
	}
	if err := v.Reserve(payerAddr, big.NewInt(50)); err != nil {
		t.Fatalf("Reserve: %v", err)
	}
	if err := v.Transfer(payeeAddr, big.NewInt(50), true); err != nil {
		t.Fatalf("Transfer: %v", err)
	}
}

func TestVaultSlashReservedBypassesAccountBalance(t *testing.T) {
	mgr := newTestManager(t)
	v := ledger.NewVault(mgr, vaultAddr)

	if err := v.Credit(payerAddr, big.NewInt(1000)); err != nil {
		t.Fatalf("Credit: %v", err)
	}
	if err := v.Reserve(payerAddr, big.NewInt(1000)); err != nil {
		t.Fatalf("Reserve: %v", err)
	}
	if err := v.SlashReserved(payerAddr, big.NewInt(100), payeeAddr); err != nil {
		t.Fatalf("SlashReserved: %v", err)
	}

	payer, err := mgr.GetAccount(payerAddr)
	if err != nil {
		t.Fatalf("GetAccount(payer): %v", err)
	}
	if payer.Balance.Sign() != 0 {
		t.Fatalf("expected slashed amount to bypass free balance, got %s", payer.Balance)
	}
	if payer.Reserved.Cmp(big.NewInt(900)) != 0 {
		t.Fatalf("expected reserved reduced to 900, got %s", payer.Reserved)
	}

	payee, err := mgr.GetAccount(payeeAddr)
	if err != nil {
		t.Fatalf("GetAccount(payee): %v", err)
	}
	if payee.Balance.Cmp(big.NewInt(100)) != 0 {
		t.Fatalf("expected recipient credited 100, got %s", payee.Balance)
	}
}
