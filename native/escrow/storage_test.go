package escrow

import (
	"bytes"
	"math/big"
	"testing"

	"github.com/ainur-network/ainurchain/core/state"
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

func taskID(seed byte) [32]byte {
	var id [32]byte
	id[0] = seed
	return id
}

func account(seed byte) [20]byte {
	var a [20]byte
	a[0] = seed
	return a
}

func TestStorePutAndGetEscrowRoundTrip(t *testing.T) {
	mgr := newTestManager(t)
	s := newStore(mgr)
	escrow := &Escrow{
		TaskID:            taskID(1),
		User:              account(1),
		AgentDid:          "did:ainur:agent1",
		Amount:            big.NewInt(100),
		RemainingReserved: big.NewInt(100),
		Status:            StatusPending,
	}
	if err := s.putEscrow(escrow); err != nil {
		t.Fatalf("putEscrow: %v", err)
	}
	got, err := s.getEscrow(escrow.TaskID)
	if err != nil {
		t.Fatalf("getEscrow: %v", err)
	}
	if got.User != escrow.User || got.AgentDid != escrow.AgentDid {
		t.Fatalf("round trip mismatch: %+v", got)
	}

	ids, err := s.userEscrowIDs(escrow.User)
	if err != nil {
		t.Fatalf("userEscrowIDs: %v", err)
	}
	if len(ids) != 1 || !bytes.Equal(ids[0][:], escrow.TaskID[:]) {
		t.Fatalf("expected user index to contain taskId, got %v", ids)
	}

	agentIDs, err := s.agentEscrowIDs(escrow.AgentDid)
	if err != nil {
		t.Fatalf("agentEscrowIDs: %v", err)
	}
	if len(agentIDs) != 1 {
		t.Fatalf("expected agent index to contain taskId, got %v", agentIDs)
	}
}

func TestStoreGetEscrowNotFound(t *testing.T) {
	mgr := newTestManager(t)
	s := newStore(mgr)
	if _, err := s.getEscrow(taskID(9)); err != ErrEscrowNotFound {
		t.Fatalf("expected ErrEscrowNotFound, got %v", err)
	}
}

func TestStoreTemplateLifecycle(t *testing.T) {
	mgr := newTestManager(t)
	s := newStore(mgr)
	id, err := s.nextTemplateID()
	if err != nil {
		t.Fatalf("nextTemplateID: %v", err)
	}
	if id != 1 {
		t.Fatalf("expected first template id 1, got %d", id)
	}
	tmpl := &Template{ID: id, Name: "custom", Type: TemplateCustom, CreatedBy: account(2)}
	if err := s.putTemplate(tmpl); err != nil {
		t.Fatalf("putTemplate: %v", err)
	}
	got, err := s.getTemplate(id)
	if err != nil {
		t.Fatalf("getTemplate: %v", err)
	}
	if got.Name != "custom" {
		t.Fatalf("expected name custom, got %s", got.Name)
	}
}

func TestDeriveBatchIDDeterministicPerCounter(t *testing.T) {
	a := deriveBatchID(account(1), "createEscrow", 10, 1)
	b := deriveBatchID(account(1), "createEscrow", 10, 1)
	if a != b {
		t.Fatalf("expected deterministic batch id for identical inputs")
	}
	c := deriveBatchID(account(1), "createEscrow", 10, 2)
	if a == c {
		t.Fatalf("expected distinct batch id for distinct counters")
	}
}
