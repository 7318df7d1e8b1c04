package agentregistry

import (
	"errors"
	"fmt"
	"math/big"
	"time"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
)

// storage abstracts the subset of state manager functionality required by
// the agent registry.
type storage interface {
	KVGet(key []byte, out interface{}) (bool, error)
	KVPut(key []byte, value interface{}) error
	KVAppend(key []byte, value []byte) error
	KVGetList(key []byte, out interface{}) error
}

var (
	agentCardPrefix       = []byte("agentregistry/card/")
	capabilityIndexPrefix = []byte("agentregistry/capability/")
)

func agentCardKey(did string) []byte {
	digest := ethcrypto.Keccak256([]byte(did))
	return []byte(fmt.Sprintf("%s%x", agentCardPrefix, digest))
}

func capabilityIndexKey(capability string) []byte {
	digest := ethcrypto.Keccak256([]byte(capability))
	return []byte(fmt.Sprintf("%s%x", capabilityIndexPrefix, digest))
}

// didValidator is the narrow view of core/identity.Engine the registry needs
// to enforce that registerAgent only binds active DIDs.
type didValidator interface {
	IsDidActive(did string) bool
}

// Registry persists agent cards and the capability inverted index.
type Registry struct {
	store storage
	dids  didValidator
	nowFn func() int64
}

// NewRegistry constructs a registry bound to the provided storage backend and
// DID validity oracle.
func NewRegistry(store storage, dids didValidator) *Registry {
	return &Registry{
		store: store,
		dids:  dids,
		nowFn: func() int64 { return time.Now().Unix() },
	}
}

// SetNowFunc overrides the wall clock used for timestamping agent cards.
func (r *Registry) SetNowFunc(now func() int64) {
	if r == nil {
		return
	}
	if now == nil {
		r.nowFn = func() int64 { return time.Now().Unix() }
		return
	}
	r.nowFn = now
}

func (r *Registry) now() uint64 {
	if r == nil || r.nowFn == nil {
		return uint64(time.Now().Unix())
	}
	return uint64(r.nowFn())
}

// RegisterAgent publishes a new agent card for did. It refuses registration
// if did is not active, an agent card already exists for did, or any field
// exceeds its bound.
func (r *Registry) RegisterAgent(did, name string, capabilities []string, wasmHash [32]byte, pricePerTask *big.Int) (*AgentCard, error) {
	if r == nil || r.store == nil {
		return nil, errors.New("agentregistry: registry not initialised")
	}
	if r.dids == nil || !r.dids.IsDidActive(did) {
		return nil, ErrDidNotActive
	}
	normalizedName, err := NormalizeName(name)
	if err != nil {
		return nil, err
	}
	normalizedCapabilities, err := NormalizeCapabilities(capabilities)
	if err != nil {
		return nil, err
	}
	if wasmHash == ([32]byte{}) {
		return nil, ErrInvalidWasmHash
	}
	if pricePerTask == nil || pricePerTask.Sign() < 0 {
		return nil, ErrInvalidPrice
	}
	key := agentCardKey(did)
	if ok, err := r.store.KVGet(key, nil); err != nil {
		return nil, err
	} else if ok {
		return nil, ErrAgentExists
	}
	now := r.now()
	card := &AgentCard{
		Did:          did,
		Name:         normalizedName,
		Capabilities: normalizedCapabilities,
		WasmHash:     wasmHash,
		PricePerTask: new(big.Int).Set(pricePerTask),
		RegisteredAt: now,
		UpdatedAt:    now,
		Active:       true,
	}
	if err := r.store.KVPut(key, card); err != nil {
		return nil, err
	}
	for _, capability := range normalizedCapabilities {
		if err := r.store.KVAppend(capabilityIndexKey(capability), []byte(did)); err != nil {
			return nil, err
		}
	}
	return card.Clone(), nil
}

func (r *Registry) get(did string) (*AgentCard, error) {
	card := &AgentCard{}
	ok, err := r.store.KVGet(agentCardKey(did), card)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrAgentNotFound
	}
	return card, nil
}

// GetAgentCard returns the card for did, but only if it is active.
func (r *Registry) GetAgentCard(did string) (*AgentCard, error) {
	if r == nil || r.store == nil {
		return nil, errors.New("agentregistry: registry not initialised")
	}
	card, err := r.get(did)
	if err != nil {
		return nil, err
	}
	if !card.Active {
		return nil, ErrAgentNotFound
	}
	return card.Clone(), nil
}

// IsAgentActive reports whether did has a registered, active agent card.
func (r *Registry) IsAgentActive(did string) bool {
	_, err := r.GetAgentCard(did)
	return err == nil
}

// UpdateAgent updates the capability set and/or price of an existing agent
// card. Either argument may be nil to leave that field unchanged. The
// capability inverted index is NOT reconciled: capabilities removed by this
// call remain discoverable via findAgentsByCapability until the entry
// naturally goes stale for the caller re-checking GetAgentCard.
func (r *Registry) UpdateAgent(did string, newCapabilities []string, newPrice *big.Int) (*AgentCard, error) {
	if r == nil || r.store == nil {
		return nil, errors.New("agentregistry: registry not initialised")
	}
	card, err := r.get(did)
	if err != nil {
		return nil, err
	}
	if !card.Active {
		return nil, ErrAgentNotFound
	}
	if newCapabilities != nil {
		normalized, err := NormalizeCapabilities(newCapabilities)
		if err != nil {
			return nil, err
		}
		card.Capabilities = normalized
		for _, capability := range normalized {
			if err := r.store.KVAppend(capabilityIndexKey(capability), []byte(did)); err != nil {
				return nil, err
			}
		}
	}
	if newPrice != nil {
		if newPrice.Sign() < 0 {
			return nil, ErrInvalidPrice
		}
		card.PricePerTask = new(big.Int).Set(newPrice)
	}
	card.UpdatedAt = r.now()
	if err := r.store.KVPut(agentCardKey(did), card); err != nil {
		return nil, err
	}
	return card.Clone(), nil
}

// DeregisterAgent deactivates the agent card for did. The capability
// inverted index is left untouched, per the same stale-entry behavior
// UpdateAgent exhibits.
func (r *Registry) DeregisterAgent(did string) error {
	if r == nil || r.store == nil {
		return errors.New("agentregistry: registry not initialised")
	}
	card, err := r.get(did)
	if err != nil {
		return err
	}
	if !card.Active {
		return ErrAgentNotFound
	}
	card.Active = false
	card.UpdatedAt = r.now()
	return r.store.KVPut(agentCardKey(did), card)
}

// FindAgentsByCapability returns every DID ever indexed under capability.
// The result is a superset filter: callers must re-check IsAgentActive and
// GetAgentCard on each hit before relying on it.
func (r *Registry) FindAgentsByCapability(capability string) ([]string, error) {
	if r == nil || r.store == nil {
		return nil, errors.New("agentregistry: registry not initialised")
	}
	normalized, err := NormalizeCapabilities([]string{capability})
	if err != nil {
		return nil, err
	}
	if len(normalized) == 0 {
		return nil, ErrInvalidCapability
	}
	var raw [][]byte
	if err := r.store.KVGetList(capabilityIndexKey(normalized[0]), &raw); err != nil {
		return nil, err
	}
	dids := make([]string, 0, len(raw))
	for _, entry := range raw {
		dids = append(dids, string(entry))
	}
	return dids, nil
}
