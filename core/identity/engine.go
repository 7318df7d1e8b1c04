package identity

// Engine wires the DID operations named by the marketplace core against the
// registry's storage layer, giving downstream modules (agent registry,
// escrow, auction) a single dependency to validate DID state against.
type Engine struct {
	registry *Registry
}

// NewEngine constructs an engine backed by the provided storage backend.
func NewEngine(store storage) *Engine {
	if store == nil {
		return &Engine{registry: nil}
	}
	return &Engine{registry: NewRegistry(store)}
}

// SetNowFunc overrides the wall clock used by the underlying registry.
func (e *Engine) SetNowFunc(now func() int64) {
	if e == nil || e.registry == nil {
		return
	}
	e.registry.SetNowFunc(now)
}

// CreateDid registers a new DID document.
func (e *Engine) CreateDid(did string, controller [20]byte, publicKey [32]byte) (*DidDocument, error) {
	if e == nil || e.registry == nil {
		return nil, ErrDidNotFound
	}
	return e.registry.Create(did, controller, publicKey)
}

// UpdateKey rotates the signing key for did on behalf of caller.
func (e *Engine) UpdateKey(did string, caller [20]byte, newPublicKey [32]byte) (*DidDocument, error) {
	if e == nil || e.registry == nil {
		return nil, ErrDidNotFound
	}
	return e.registry.UpdateKey(did, caller, newPublicKey)
}

// RevokeDid deactivates did on behalf of caller.
func (e *Engine) RevokeDid(did string, caller [20]byte) error {
	if e == nil || e.registry == nil {
		return ErrDidNotFound
	}
	return e.registry.Revoke(did, caller)
}

// ResolvePublicKey returns the active signing key bound to did.
func (e *Engine) ResolvePublicKey(did string) ([32]byte, error) {
	if e == nil || e.registry == nil {
		return [32]byte{}, ErrDidNotFound
	}
	doc, err := e.registry.Resolve(did)
	if err != nil {
		return [32]byte{}, err
	}
	return doc.PublicKey, nil
}

// IsDidActive reports whether did is registered and active.
func (e *Engine) IsDidActive(did string) bool {
	if e == nil || e.registry == nil {
		return false
	}
	return e.registry.IsActive(did)
}

// GetDidDocument returns the full active document for did.
func (e *Engine) GetDidDocument(did string) (*DidDocument, error) {
	if e == nil || e.registry == nil {
		return nil, ErrDidNotFound
	}
	return e.registry.Resolve(did)
}

// ResolveByAccount returns the DID controlled by account, the reverse
// direction of CreateDid's account-to-DID binding. Modules that only hold a
// caller's account (auction bids, escrow participants) use this to derive
// the DID needed for capability/reputation checks.
func (e *Engine) ResolveByAccount(account [20]byte) (string, error) {
	if e == nil || e.registry == nil {
		return "", ErrDidNotFound
	}
	return e.registry.ResolveByAccount(account)
}
