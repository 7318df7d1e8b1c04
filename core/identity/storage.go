package identity

import (
	"errors"
	"fmt"
	"time"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
)

// storage abstracts the subset of state manager functionality required by the
// DID registry.
type storage interface {
	KVGet(key []byte, out interface{}) (bool, error)
	KVPut(key []byte, value interface{}) error
}

var (
	didPrefixKey     = []byte("identity/did/")
	accountDidPrefix = []byte("identity/accountdid/")
)

func didKey(did string) []byte {
	digest := ethcrypto.Keccak256([]byte(did))
	return []byte(fmt.Sprintf("%s%x", didPrefixKey, digest))
}

func accountDidKey(account [20]byte) []byte {
	return []byte(fmt.Sprintf("%s%x", accountDidPrefix, account))
}

// Registry persists DID documents.
type Registry struct {
	store storage
	nowFn func() int64
}

// NewRegistry constructs a registry bound to the provided storage backend.
func NewRegistry(store storage) *Registry {
	return &Registry{
		store: store,
		nowFn: func() int64 { return time.Now().Unix() },
	}
}

// SetNowFunc overrides the wall clock used for timestamping DID documents.
// Tests supply a deterministic clock.
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

// Create registers a new DID document controlled by controller. It fails if
// the DID is malformed or already registered.
func (r *Registry) Create(did string, controller [20]byte, publicKey [32]byte) (*DidDocument, error) {
	if r == nil || r.store == nil {
		return nil, errors.New("identity: registry not initialised")
	}
	normalized, err := NormalizeDid(did)
	if err != nil {
		return nil, err
	}
	if publicKey == ([32]byte{}) {
		return nil, ErrInvalidPublicKey
	}
	key := didKey(normalized)
	if ok, err := r.store.KVGet(key, nil); err != nil {
		return nil, err
	} else if ok {
		return nil, ErrDidExists
	}
	now := r.now()
	doc := &DidDocument{
		Did:        normalized,
		Controller: controller,
		PublicKey:  publicKey,
		CreatedAt:  now,
		UpdatedAt:  now,
		Active:     true,
	}
	if err := r.store.KVPut(key, doc); err != nil {
		return nil, err
	}
	if err := r.store.KVPut(accountDidKey(controller), normalized); err != nil {
		return nil, err
	}
	return doc, nil
}

// ResolveByAccount looks up the DID controlled by account, mirroring the
// original implementation's scale-encoded-AccountId lookup (AccountToDid).
// It returns the most recently created DID for account; an account that has
// never called createDid resolves to ErrDidNotFound.
func (r *Registry) ResolveByAccount(account [20]byte) (string, error) {
	if r == nil || r.store == nil {
		return "", errors.New("identity: registry not initialised")
	}
	var did string
	ok, err := r.store.KVGet(accountDidKey(account), &did)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", ErrDidNotFound
	}
	return did, nil
}

// get returns the raw stored document regardless of active status. UpdateKey
// and Revoke use it and reject an inactive document with ErrDidNotFound
// before checking the controller.
func (r *Registry) get(normalized string) (*DidDocument, error) {
	doc := &DidDocument{}
	ok, err := r.store.KVGet(didKey(normalized), doc)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrDidNotFound
	}
	return doc, nil
}

// Resolve returns the document for did if it exists and is active.
// A revoked or missing DID is treated identically: ErrDidNotFound.
func (r *Registry) Resolve(did string) (*DidDocument, error) {
	if r == nil || r.store == nil {
		return nil, errors.New("identity: registry not initialised")
	}
	normalized, err := NormalizeDid(did)
	if err != nil {
		return nil, err
	}
	doc, err := r.get(normalized)
	if err != nil {
		return nil, err
	}
	if !doc.Active {
		return nil, ErrDidNotFound
	}
	return doc.Clone(), nil
}

// IsActive reports whether did resolves to an active document.
func (r *Registry) IsActive(did string) bool {
	_, err := r.Resolve(did)
	return err == nil
}

// UpdateKey rotates the signing public key for did. caller must equal the
// document's stored controller and the document must currently be active.
func (r *Registry) UpdateKey(did string, caller [20]byte, newPublicKey [32]byte) (*DidDocument, error) {
	if r == nil || r.store == nil {
		return nil, errors.New("identity: registry not initialised")
	}
	normalized, err := NormalizeDid(did)
	if err != nil {
		return nil, err
	}
	if newPublicKey == ([32]byte{}) {
		return nil, ErrInvalidPublicKey
	}
	doc, err := r.get(normalized)
	if err != nil {
		return nil, err
	}
	if !doc.Active {
		return nil, ErrDidNotFound
	}
	if doc.Controller != caller {
		return nil, ErrNotController
	}
	doc.PublicKey = newPublicKey
	doc.UpdatedAt = r.now()
	if err := r.store.KVPut(didKey(normalized), doc); err != nil {
		return nil, err
	}
	return doc.Clone(), nil
}

// Revoke deactivates did. The record persists for audit but becomes
// unusable by downstream modules; revocation is one-way.
func (r *Registry) Revoke(did string, caller [20]byte) error {
	if r == nil || r.store == nil {
		return errors.New("identity: registry not initialised")
	}
	normalized, err := NormalizeDid(did)
	if err != nil {
		return err
	}
	doc, err := r.get(normalized)
	if err != nil {
		return err
	}
	if !doc.Active {
		return ErrDidNotFound
	}
	if doc.Controller != caller {
		return ErrNotController
	}
	doc.Active = false
	doc.UpdatedAt = r.now()
	return r.store.KVPut(didKey(normalized), doc)
}
