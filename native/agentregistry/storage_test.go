package agentregistry

import (
	"math/big"
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

func (m *memoryStore) KVAppend(key []byte, value []byte) error {
	var list [][]byte
	if encoded, ok := m.data[string(key)]; ok {
		if err := rlp.DecodeBytes(encoded, &list); err != nil {
			return err
		}
	}
	for _, existing := range list {
		if string(existing) == string(value) {
			return nil
		}
	}
	list = append(list, append([]byte(nil), value...))
	encoded, err := rlp.EncodeToBytes(list)
	if err != nil {
		return err
	}
	m.data[string(key)] = encoded
	return nil
}

func (m *memoryStore) KVGetList(key []byte, out interface{}) error {
	encoded, ok := m.data[string(key)]
	if !ok {
		if ptr, ok2 := out.(*[][]byte); ok2 {
			*ptr = nil
		}
		return nil
	}
	return rlp.DecodeBytes(encoded, out)
}

type alwaysActiveDids struct{}

func (alwaysActiveDids) IsDidActive(string) bool { return true }

type neverActiveDids struct{}

func (neverActiveDids) IsDidActive(string) bool { return false }

func testWasmHash(seed byte) [32]byte {
	var h [32]byte
	for i := range h {
		h[i] = seed
	}
	return h
}

func TestRegisterAgentRequiresActiveDid(t *testing.T) {
	reg := NewRegistry(newMemoryStore(), neverActiveDids{})
	_, err := reg.RegisterAgent("did:ainur:agent-1", "Agent One", []string{"image-classify"}, testWasmHash(1), big.NewInt(100))
	if err != ErrDidNotActive {
		t.Fatalf("expected ErrDidNotActive, got %v", err)
	}
}

func TestRegisterAgentAndFindByCapability(t *testing.T) {
	reg := NewRegistry(newMemoryStore(), alwaysActiveDids{})
	card, err := reg.RegisterAgent("did:ainur:agent-1", "Agent One", []string{"Image-Classify", "image-classify", "ocr"}, testWasmHash(1), big.NewInt(100))
	if err != nil {
		t.Fatalf("RegisterAgent: %v", err)
	}
	if len(card.Capabilities) != 2 {
		t.Fatalf("expected deduped capability set of 2, got %v", card.Capabilities)
	}

	dids, err := reg.FindAgentsByCapability("image-classify")
	if err != nil {
		t.Fatalf("FindAgentsByCapability: %v", err)
	}
	if len(dids) != 1 || dids[0] != "did:ainur:agent-1" {
		t.Fatalf("unexpected index result: %v", dids)
	}
}

func TestRegisterAgentRejectsDuplicate(t *testing.T) {
	reg := NewRegistry(newMemoryStore(), alwaysActiveDids{})
	if _, err := reg.RegisterAgent("did:ainur:agent-1", "Agent One", nil, testWasmHash(1), big.NewInt(100)); err != nil {
		t.Fatalf("RegisterAgent: %v", err)
	}
	if _, err := reg.RegisterAgent("did:ainur:agent-1", "Agent One Again", nil, testWasmHash(2), big.NewInt(200)); err != ErrAgentExists {
		t.Fatalf("expected ErrAgentExists, got %v", err)
	}
}

func TestDeregisterAgentLeavesIndexStale(t *testing.T) {
	reg := NewRegistry(newMemoryStore(), alwaysActiveDids{})
	if _, err := reg.RegisterAgent("did:ainur:agent-1", "Agent One", []string{"ocr"}, testWasmHash(1), big.NewInt(100)); err != nil {
		t.Fatalf("RegisterAgent: %v", err)
	}
	if err := reg.DeregisterAgent("did:ainur:agent-1"); err != nil {
		t.Fatalf("DeregisterAgent: %v", err)
	}
	if reg.IsAgentActive("did:ainur:agent-1") {
		t.Fatalf("expected agent to be inactive")
	}

	// The capability index is not reconciled on deregistration: the DID is
	// still returned by the index even though it is no longer active.
	dids, err := reg.FindAgentsByCapability("ocr")
	if err != nil {
		t.Fatalf("FindAgentsByCapability: %v", err)
	}
	if len(dids) != 1 {
		t.Fatalf("expected stale index entry to remain, got %v", dids)
	}
	if _, err := reg.GetAgentCard("did:ainur:agent-1"); err != ErrAgentNotFound {
		t.Fatalf("expected ErrAgentNotFound for inactive card, got %v", err)
	}
}
