// Package identity implements the DID registry: a DID document binds a
// controller account to a signing public key, with a one-way active/revoked
// lifecycle. Only the controller may mutate or revoke its own document.
package identity

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ainur-network/ainurchain/native/common"
)

const (
	didPrefix    = "did:ainur:"
	didMaxLength = 128
)

var (
	// ErrInvalidDid is returned when a DID does not carry the required
	// prefix or exceeds the length bound.
	ErrInvalidDid = errors.New("identity: invalid did")
	// ErrDidExists is returned by createDid when the identifier is already
	// registered.
	ErrDidExists = errors.New("identity: did already registered")
	// ErrDidNotFound is returned when the referenced DID has no document, or
	// its document is revoked (revoked DIDs are treated as nonexistent for
	// validity purposes).
	ErrDidNotFound = errors.New("identity: did not found")
	// ErrNotController is returned when the caller does not match the
	// document's controller.
	ErrNotController = errors.New("identity: caller is not did controller")
	// ErrInvalidPublicKey is returned when the supplied public key is all
	// zero bytes.
	ErrInvalidPublicKey = errors.New("identity: invalid public key")
)

func init() {
	common.RegisterErrors(common.TaxonomyInvalidFormat, ErrInvalidDid, ErrInvalidPublicKey)
	common.RegisterErrors(common.TaxonomyAlreadyExists, ErrDidExists)
	common.RegisterErrors(common.TaxonomyNotFound, ErrDidNotFound)
	common.RegisterErrors(common.TaxonomyNotAuthorized, ErrNotController)
}

// DidDocument binds a DID to a controlling account and a signing public key.
type DidDocument struct {
	Did        string
	Controller [20]byte
	PublicKey  [32]byte
	CreatedAt  uint64
	UpdatedAt  uint64
	Active     bool
}

// Clone returns a deep copy so callers can mutate without aliasing state
// retrieved from storage.
func (d *DidDocument) Clone() *DidDocument {
	if d == nil {
		return nil
	}
	clone := *d
	return &clone
}

// NormalizeDid validates the supplied DID and returns its canonical form.
// DIDs are case-sensitive opaque strings beyond the did:ainur: prefix, so no
// case folding is applied (unlike alias normalization, which lowercases).
func NormalizeDid(did string) (string, error) {
	trimmed := strings.TrimSpace(did)
	if !strings.HasPrefix(trimmed, didPrefix) {
		return "", fmt.Errorf("%w: must start with %s", ErrInvalidDid, didPrefix)
	}
	if len(trimmed) <= len(didPrefix) {
		return "", fmt.Errorf("%w: missing method-specific id", ErrInvalidDid)
	}
	if len(trimmed) > didMaxLength {
		return "", fmt.Errorf("%w: exceeds %d characters", ErrInvalidDid, didMaxLength)
	}
	return trimmed, nil
}
