package agentregistry

import "math/big"

// Engine wires the agent registry operations named by the marketplace core
// against the registry's storage layer.
type Engine struct {
	registry *Registry
}

// NewEngine constructs an engine backed by the provided storage backend and
// DID validity oracle.
func NewEngine(store storage, dids didValidator) *Engine {
	if store == nil {
		return &Engine{registry: nil}
	}
	return &Engine{registry: NewRegistry(store, dids)}
}

// SetNowFunc overrides the wall clock used by the underlying registry.
func (e *Engine) SetNowFunc(now func() int64) {
	if e == nil || e.registry == nil {
		return
	}
	e.registry.SetNowFunc(now)
}

// RegisterAgent publishes a new agent card.
func (e *Engine) RegisterAgent(did, name string, capabilities []string, wasmHash [32]byte, pricePerTask *big.Int) (*AgentCard, error) {
	if e == nil || e.registry == nil {
		return nil, ErrAgentNotFound
	}
	return e.registry.RegisterAgent(did, name, capabilities, wasmHash, pricePerTask)
}

// UpdateAgent updates an existing agent card's capabilities and/or price.
func (e *Engine) UpdateAgent(did string, newCapabilities []string, newPrice *big.Int) (*AgentCard, error) {
	if e == nil || e.registry == nil {
		return nil, ErrAgentNotFound
	}
	return e.registry.UpdateAgent(did, newCapabilities, newPrice)
}

// DeregisterAgent deactivates an agent card.
func (e *Engine) DeregisterAgent(did string) error {
	if e == nil || e.registry == nil {
		return ErrAgentNotFound
	}
	return e.registry.DeregisterAgent(did)
}

// GetAgentCard returns the active card for did.
func (e *Engine) GetAgentCard(did string) (*AgentCard, error) {
	if e == nil || e.registry == nil {
		return nil, ErrAgentNotFound
	}
	return e.registry.GetAgentCard(did)
}

// FindAgentsByCapability returns the (possibly stale) set of DIDs indexed
// under capability.
func (e *Engine) FindAgentsByCapability(capability string) ([]string, error) {
	if e == nil || e.registry == nil {
		return nil, ErrAgentNotFound
	}
	return e.registry.FindAgentsByCapability(capability)
}

// IsAgentActive reports whether did has an active agent card.
func (e *Engine) IsAgentActive(did string) bool {
	if e == nil || e.registry == nil {
		return false
	}
	return e.registry.IsAgentActive(did)
}

// AgentCapabilities returns the capability set published by did's active
// agent card. Callers that only need to check capability gating (auction
// bidding) use this instead of pulling the full AgentCard across the module
// boundary.
func (e *Engine) AgentCapabilities(did string) ([]string, error) {
	if e == nil || e.registry == nil {
		return nil, ErrAgentNotFound
	}
	card, err := e.registry.GetAgentCard(did)
	if err != nil {
		return nil, err
	}
	return card.Capabilities, nil
}
