package identity

import (
	"testing"

	"github.com/ethereum/go-ethereum/rlp"
)

type memoryStore struct {
	data map[string][]byte
}

func newMemoryStore() *memoryStore {
	return &memoryStore{data: make(map[string][]byte)}
}

func (m *memoryStore) KVPut(key []byte, value interface{}) error {
	encoded, err := rlp.EncodeToBytes(value)
	if err != nil {
		return err
	}
	m.data[string(key)] = encoded
	return nil
}

func (m *memoryStore) KVGet(key []byte, out interface{}) (bool, error) {
	encoded, ok := m.data[string(key)]
	if !ok {
		return false, nil
	}
	if out == nil {
		return true, nil
	}
	if err := rlp.DecodeBytes(encoded, out); err != nil {
		return false, err
	}
	return true, nil
}

func testController() [20]byte {
	var c [20]byte
	copy(c[:], []byte("controller-address-1"))
	return c
}

func testKey(seed byte) [32]byte {
	var k [32]byte
	for i := range k {
		k[i] = seed
	}
	return k
}

func TestRegistryCreateAndResolve(t *testing.T) {
	reg := NewRegistry(newMemoryStore())

	doc, err := reg.Create("did:ainur:agent-1", testController(), testKey(0x01))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if !doc.Active {
		t.Fatalf("expected newly created document to be active")
	}

	resolved, err := reg.Resolve("did:ainur:agent-1")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if resolved.PublicKey != testKey(0x01) {
		t.Fatalf("unexpected public key: %x", resolved.PublicKey)
	}
}

func TestRegistryCreateRejectsMissingPrefix(t *testing.T) {
	reg := NewRegistry(newMemoryStore())
	if _, err := reg.Create("agent-1", testController(), testKey(0x01)); err == nil {
		t.Fatalf("expected error for did missing required prefix")
	}
}

func TestRegistryCreateRejectsDuplicate(t *testing.T) {
	reg := NewRegistry(newMemoryStore())
	if _, err := reg.Create("did:ainur:agent-1", testController(), testKey(0x01)); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := reg.Create("did:ainur:agent-1", testController(), testKey(0x02)); err != ErrDidExists {
		t.Fatalf("expected ErrDidExists, got %v", err)
	}
}

func TestRegistryUpdateKeyRequiresController(t *testing.T) {
	reg := NewRegistry(newMemoryStore())
	if _, err := reg.Create("did:ainur:agent-1", testController(), testKey(0x01)); err != nil {
		t.Fatalf("Create: %v", err)
	}

	var stranger [20]byte
	copy(stranger[:], []byte("stranger-address-999"))
	if _, err := reg.UpdateKey("did:ainur:agent-1", stranger, testKey(0x02)); err != ErrNotController {
		t.Fatalf("expected ErrNotController, got %v", err)
	}

	updated, err := reg.UpdateKey("did:ainur:agent-1", testController(), testKey(0x02))
	if err != nil {
		t.Fatalf("UpdateKey: %v", err)
	}
	if updated.PublicKey != testKey(0x02) {
		t.Fatalf("expected rotated key, got %x", updated.PublicKey)
	}
}

func TestRegistryRevokeIsOneWay(t *testing.T) {
	reg := NewRegistry(newMemoryStore())
	if _, err := reg.Create("did:ainur:agent-1", testController(), testKey(0x01)); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := reg.Revoke("did:ainur:agent-1", testController()); err != nil {
		t.Fatalf("Revoke: %v", err)
	}
	if reg.IsActive("did:ainur:agent-1") {
		t.Fatalf("expected did to be inactive after revocation")
	}
	if _, err := reg.Resolve("did:ainur:agent-1"); err != ErrDidNotFound {
		t.Fatalf("expected ErrDidNotFound for revoked did, got %v", err)
	}
	if err := reg.Revoke("did:ainur:agent-1", testController()); err != ErrDidNotFound {
		t.Fatalf("expected second revoke to fail with ErrDidNotFound, got %v", err)
	}
}

func TestRegistryResolveByAccount(t *testing.T) {
	reg := NewRegistry(newMemoryStore())
	if _, err := reg.Create("did:ainur:agent-1", testController(), testKey(0x01)); err != nil {
		t.Fatalf("Create: %v", err)
	}
	did, err := reg.ResolveByAccount(testController())
	if err != nil {
		t.Fatalf("ResolveByAccount: %v", err)
	}
	if did != "did:ainur:agent-1" {
		t.Fatalf("expected did:ainur:agent-1, got %s", did)
	}

	var stranger [20]byte
	copy(stranger[:], []byte("unbound-account-xxxx"))
	if _, err := reg.ResolveByAccount(stranger); err != ErrDidNotFound {
		t.Fatalf("expected ErrDidNotFound for unbound account, got %v", err)
	}
}
