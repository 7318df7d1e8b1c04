package escrow

import (
	"math/big"
	"testing"

	"github.com/ainur-network/ainurchain/core/state"
	"github.com/ainur-network/ainurchain/native/ledger"
)

type alwaysActiveDids struct{}

func (alwaysActiveDids) IsDidActive(string) bool { return true }

type neverActiveDids struct{}

func (neverActiveDids) IsDidActive(string) bool { return false }

var (
	vaultAddr = []byte{0xEE}
	feeAddr   = account(0xFF)
	userAddr  = account(1)
	agentAddr = account(2)
)

func newTestEngine(t *testing.T) (*Engine, *state.Manager, *ledger.Vault) {
	t.Helper()
	mgr := newTestManager(t)
	vault := ledger.NewVault(mgr, vaultAddr)
	if err := vault.Credit(userAddr[:], big.NewInt(1_000_000)); err != nil {
		t.Fatalf("Credit: %v", err)
	}
	engine := NewEngine(mgr, vault, alwaysActiveDids{}, feeAddr)
	engine.SetNowFunc(func() int64 { return 1000 })
	return engine, mgr, vault
}

func TestCreateEscrowReservesAmount(t *testing.T) {
	engine, mgr, _ := newTestEngine(t)
	escrow, err := engine.CreateEscrow(taskID(1), userAddr, "did:ainur:agent", agentAddr, big.NewInt(500), 10, 2000, taskID(99))
	if err != nil {
		t.Fatalf("CreateEscrow: %v", err)
	}
	if escrow.Status != StatusPending {
		t.Fatalf("expected pending status, got %s", escrow.Status)
	}
	acc, err := mgr.GetAccount(userAddr[:])
	if err != nil {
		t.Fatalf("GetAccount: %v", err)
	}
	if acc.Reserved.Cmp(big.NewInt(500)) != 0 {
		t.Fatalf("expected 500 reserved, got %s", acc.Reserved)
	}
}

func TestCreateEscrowRejectsDuplicateTaskID(t *testing.T) {
	engine, _, _ := newTestEngine(t)
	if _, err := engine.CreateEscrow(taskID(1), userAddr, "", agentAddr, big.NewInt(100), 0, 2000, taskID(1)); err != nil {
		t.Fatalf("CreateEscrow: %v", err)
	}
	if _, err := engine.CreateEscrow(taskID(1), userAddr, "", agentAddr, big.NewInt(100), 0, 2000, taskID(1)); err != ErrEscrowExists {
		t.Fatalf("expected ErrEscrowExists, got %v", err)
	}
}

func TestCreateEscrowRejectsInactiveDid(t *testing.T) {
	mgr := newTestManager(t)
	vault := ledger.NewVault(mgr, vaultAddr)
	_ = vault.Credit(userAddr[:], big.NewInt(1000))
	engine := NewEngine(mgr, vault, neverActiveDids{}, feeAddr)
	if _, err := engine.CreateEscrow(taskID(1), userAddr, "did:ainur:agent", agentAddr, big.NewInt(100), 0, 2000, taskID(1)); err != ErrDidNotActive {
		t.Fatalf("expected ErrDidNotActive, got %v", err)
	}
}

func TestAcceptAndReleasePaymentSettlesFeeAndNet(t *testing.T) {
	engine, mgr, _ := newTestEngine(t)
	if _, err := engine.CreateEscrow(taskID(1), userAddr, "", agentAddr, big.NewInt(1000), 10, 2000, taskID(1)); err != nil {
		t.Fatalf("CreateEscrow: %v", err)
	}
	if _, err := engine.AcceptTask(taskID(1), "did:ainur:agent", agentAddr); err != nil {
		t.Fatalf("AcceptTask: %v", err)
	}
	escrow, err := engine.ReleasePayment(taskID(1), userAddr)
	if err != nil {
		t.Fatalf("ReleasePayment: %v", err)
	}
	if escrow.Status != StatusCompleted {
		t.Fatalf("expected completed status, got %s", escrow.Status)
	}
	agentAcc, err := mgr.GetAccount(agentAddr[:])
	if err != nil {
		t.Fatalf("GetAccount(agent): %v", err)
	}
	if agentAcc.Balance.Cmp(big.NewInt(900)) != 0 {
		t.Fatalf("expected agent credited 900 net of 10%% fee, got %s", agentAcc.Balance)
	}
	feeAcc, err := mgr.GetAccount(feeAddr[:])
	if err != nil {
		t.Fatalf("GetAccount(fee): %v", err)
	}
	if feeAcc.Balance.Cmp(big.NewInt(100)) != 0 {
		t.Fatalf("expected fee account credited 100, got %s", feeAcc.Balance)
	}
	userAcc, err := mgr.GetAccount(userAddr[:])
	if err != nil {
		t.Fatalf("GetAccount(user): %v", err)
	}
	if userAcc.Reserved.Sign() != 0 {
		t.Fatalf("expected user reserved drained to zero, got %s", userAcc.Reserved)
	}
}

func TestRefundEscrowPendingReturnsFullAmount(t *testing.T) {
	engine, mgr, _ := newTestEngine(t)
	if _, err := engine.CreateEscrow(taskID(1), userAddr, "", agentAddr, big.NewInt(400), 0, 2000, taskID(1)); err != nil {
		t.Fatalf("CreateEscrow: %v", err)
	}
	escrow, err := engine.RefundEscrow(taskID(1), userAddr)
	if err != nil {
		t.Fatalf("RefundEscrow: %v", err)
	}
	if escrow.Status != StatusRefunded {
		t.Fatalf("expected refunded status, got %s", escrow.Status)
	}
	userAcc, err := mgr.GetAccount(userAddr[:])
	if err != nil {
		t.Fatalf("GetAccount: %v", err)
	}
	if userAcc.Balance.Cmp(big.NewInt(1_000_000)) != 0 {
		t.Fatalf("expected full balance restored, got %s", userAcc.Balance)
	}
}

func TestRefundEscrowAcceptedRequiresExpiry(t *testing.T) {
	engine, _, _ := newTestEngine(t)
	if _, err := engine.CreateEscrow(taskID(1), userAddr, "", agentAddr, big.NewInt(400), 0, 2000, taskID(1)); err != nil {
		t.Fatalf("CreateEscrow: %v", err)
	}
	if _, err := engine.AcceptTask(taskID(1), "did:ainur:agent", agentAddr); err != nil {
		t.Fatalf("AcceptTask: %v", err)
	}
	if _, err := engine.RefundEscrow(taskID(1), userAddr); err != ErrNotExpired {
		t.Fatalf("expected ErrNotExpired, got %v", err)
	}
	engine.SetNowFunc(func() int64 { return 3000 })
	if _, err := engine.RefundEscrow(taskID(1), userAddr); err != nil {
		t.Fatalf("RefundEscrow after expiry: %v", err)
	}
}

func TestDisputeEscrowRequiresParty(t *testing.T) {
	engine, _, _ := newTestEngine(t)
	if _, err := engine.CreateEscrow(taskID(1), userAddr, "", agentAddr, big.NewInt(400), 0, 2000, taskID(1)); err != nil {
		t.Fatalf("CreateEscrow: %v", err)
	}
	if _, err := engine.AcceptTask(taskID(1), "did:ainur:agent", agentAddr); err != nil {
		t.Fatalf("AcceptTask: %v", err)
	}
	stranger := account(9)
	if _, err := engine.DisputeEscrow(taskID(1), stranger); err != ErrNotAuthorized {
		t.Fatalf("expected ErrNotAuthorized, got %v", err)
	}
	escrow, err := engine.DisputeEscrow(taskID(1), userAddr)
	if err != nil {
		t.Fatalf("DisputeEscrow: %v", err)
	}
	if escrow.Status != StatusDisputed {
		t.Fatalf("expected disputed status, got %s", escrow.Status)
	}
}

func TestMilestoneApprovalQuorumReleasesPayout(t *testing.T) {
	engine, mgr, _ := newTestEngine(t)
	if _, err := engine.CreateEscrow(taskID(1), userAddr, "", agentAddr, big.NewInt(1000), 0, 5000, taskID(1)); err != nil {
		t.Fatalf("CreateEscrow: %v", err)
	}
	if _, err := engine.AcceptTask(taskID(1), "did:ainur:agent", agentAddr); err != nil {
		t.Fatalf("AcceptTask: %v", err)
	}
	if _, err := engine.AddMilestone(taskID(1), userAddr, "phase 1", big.NewInt(400), 2); err != nil {
		t.Fatalf("AddMilestone: %v", err)
	}
	arbiter := account(3)
	participant := Participant{Account: arbiter, Role: RoleArbiter}
	if _, err := engine.AddParticipant(taskID(1), userAddr, participant); err != nil {
		t.Fatalf("AddParticipant: %v", err)
	}
	if _, err := engine.CompleteMilestone(taskID(1), agentAddr, 0); err != nil {
		t.Fatalf("CompleteMilestone: %v", err)
	}
	if _, err := engine.ApproveMilestone(taskID(1), userAddr, 0); err != nil {
		t.Fatalf("ApproveMilestone(user): %v", err)
	}
	agentAcc, err := mgr.GetAccount(agentAddr[:])
	if err != nil {
		t.Fatalf("GetAccount: %v", err)
	}
	if agentAcc.Balance.Sign() != 0 {
		t.Fatalf("expected no payout before quorum reached, got %s", agentAcc.Balance)
	}
	if _, err := engine.ApproveMilestone(taskID(1), arbiter, 0); err != nil {
		t.Fatalf("ApproveMilestone(arbiter): %v", err)
	}
	agentAcc, err = mgr.GetAccount(agentAddr[:])
	if err != nil {
		t.Fatalf("GetAccount: %v", err)
	}
	if agentAcc.Balance.Cmp(big.NewInt(380)) != 0 {
		t.Fatalf("expected milestone payout of 380 (400 less the default 5%% fee) once quorum reached, got %s", agentAcc.Balance)
	}
}

func TestRefundPolicyGraduatedAppliesLastPassedStage(t *testing.T) {
	engine, mgr, _ := newTestEngine(t)
	if _, err := engine.CreateEscrow(taskID(1), userAddr, "", agentAddr, big.NewInt(1000), 0, 5000, taskID(1)); err != nil {
		t.Fatalf("CreateEscrow: %v", err)
	}
	policy := &RefundPolicy{
		Kind: PolicyGraduated,
		Stages: []GraduatedStage{
			{Deadline: 500, Percent: 75},
			{Deadline: 1500, Percent: 25},
		},
	}
	if err := engine.SetRefundPolicy(taskID(1), userAddr, policy); err != nil {
		t.Fatalf("SetRefundPolicy: %v", err)
	}
	escrow, err := engine.RefundEscrow(taskID(1), userAddr)
	if err != nil {
		t.Fatalf("RefundEscrow: %v", err)
	}
	if escrow.Status != StatusRefunded {
		t.Fatalf("expected refunded status, got %s", escrow.Status)
	}
	userAcc, err := mgr.GetAccount(userAddr[:])
	if err != nil {
		t.Fatalf("GetAccount: %v", err)
	}
	// now=1000 has passed the 500 stage but not the 1500 stage: 75% of 1000 = 750 refunded.
	if userAcc.Balance.Cmp(big.NewInt(999750)) != 0 {
		t.Fatalf("expected balance 999750 after 750 refund, got %s", userAcc.Balance)
	}
	feeAcc, err := mgr.GetAccount(feeAddr[:])
	if err != nil {
		t.Fatalf("GetAccount(fee): %v", err)
	}
	if feeAcc.Balance.Cmp(big.NewInt(250)) != 0 {
		t.Fatalf("expected forfeited 250 routed to fee account, got %s", feeAcc.Balance)
	}
}

func TestBatchReleasePaymentsValidatesBeforeExecuting(t *testing.T) {
	engine, _, _ := newTestEngine(t)
	if _, err := engine.CreateEscrow(taskID(1), userAddr, "", agentAddr, big.NewInt(100), 0, 5000, taskID(1)); err != nil {
		t.Fatalf("CreateEscrow: %v", err)
	}
	if _, err := engine.AcceptTask(taskID(1), "did:ainur:agent", agentAddr); err != nil {
		t.Fatalf("AcceptTask: %v", err)
	}
	// taskID(2) does not exist: the whole batch must be rejected before
	// taskID(1) is ever released.
	_, _, err := engine.BatchReleasePayments(userAddr, [][32]byte{taskID(1), taskID(2)})
	if err != ErrEscrowNotFound {
		t.Fatalf("expected ErrEscrowNotFound, got %v", err)
	}
	escrow, err := engine.store.getEscrow(taskID(1))
	if err != nil {
		t.Fatalf("getEscrow: %v", err)
	}
	if escrow.Status != StatusAccepted {
		t.Fatalf("expected taskID(1) left untouched at Accepted, got %s", escrow.Status)
	}
}

func TestBatchCreateEscrowsSucceeds(t *testing.T) {
	engine, _, _ := newTestEngine(t)
	items := []BatchCreateEscrowItem{
		{TaskID: taskID(1), User: userAddr, AgentAccount: agentAddr, Amount: big.NewInt(100), ExpiresAt: 5000},
		{TaskID: taskID(2), User: userAddr, AgentAccount: agentAddr, Amount: big.NewInt(200), ExpiresAt: 5000},
	}
	batchID, results, err := engine.BatchCreateEscrows(userAddr, items)
	if err != nil {
		t.Fatalf("BatchCreateEscrows: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if batchID == ([32]byte{}) {
		t.Fatalf("expected non-zero batch id")
	}
}
