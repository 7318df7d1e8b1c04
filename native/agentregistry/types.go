// Package agentregistry publishes verifiable capability credentials (agent
// cards) keyed by DID, with a capability name maintained as a secondary
// inverted index for discovery. The index is deliberately not reconciled on
// update or deregistration — entries may go stale and callers must re-check
// IsAgentActive/GetAgentCard on every hit, matching the behavior observed in
// the source this registry was distilled from.
package agentregistry

import (
	"errors"
	"fmt"
	"math/big"
	"sort"
	"strings"

	"github.com/ainur-network/ainurchain/native/common"
)

const (
	maxNameLength           = 128
	maxCapabilityNameLength = 64
	maxCapabilities         = 32
)

var (
	// ErrInvalidName is returned when an agent name fails length validation.
	ErrInvalidName = errors.New("agentregistry: invalid name")
	// ErrInvalidCapability is returned when a capability name fails length
	// validation.
	ErrInvalidCapability = errors.New("agentregistry: invalid capability")
	// ErrTooManyCapabilities is returned when a capability set exceeds the
	// bound.
	ErrTooManyCapabilities = errors.New("agentregistry: too many capabilities")
	// ErrInvalidWasmHash is returned when the wasm module hash is all zero
	// bytes.
	ErrInvalidWasmHash = errors.New("agentregistry: invalid wasm hash")
	// ErrInvalidPrice is returned when pricePerTask is nil or negative.
	ErrInvalidPrice = errors.New("agentregistry: invalid price")
	// ErrDidNotActive is returned when registerAgent references a DID that
	// is not currently active.
	ErrDidNotActive = errors.New("agentregistry: did is not active")
	// ErrAgentExists is returned when registerAgent targets a DID that
	// already has a card.
	ErrAgentExists = errors.New("agentregistry: agent already registered")
	// ErrAgentNotFound is returned when the referenced agent card does not
	// exist, or exists but is inactive.
	ErrAgentNotFound = errors.New("agentregistry: agent not found")
)

func init() {
	common.RegisterErrors(common.TaxonomyInvalidFormat, ErrInvalidName, ErrInvalidCapability, ErrInvalidWasmHash, ErrInvalidPrice)
	common.RegisterErrors(common.TaxonomyBoundExceeded, ErrTooManyCapabilities)
	common.RegisterErrors(common.TaxonomyPolicyInvalid, ErrDidNotActive)
	common.RegisterErrors(common.TaxonomyAlreadyExists, ErrAgentExists)
	common.RegisterErrors(common.TaxonomyNotFound, ErrAgentNotFound)
}

// AgentCard is the verifiable credential an agent publishes: its
// capabilities, the hash of the wasm module that implements it, and its
// price per task.
type AgentCard struct {
	Did          string
	Name         string
	Capabilities []string
	WasmHash     [32]byte
	PricePerTask *big.Int
	RegisteredAt uint64
	UpdatedAt    uint64
	Active       bool
}

// Clone returns a deep copy so callers can mutate without aliasing state
// retrieved from storage.
func (c *AgentCard) Clone() *AgentCard {
	if c == nil {
		return nil
	}
	clone := *c
	if len(c.Capabilities) > 0 {
		clone.Capabilities = append([]string(nil), c.Capabilities...)
	}
	if c.PricePerTask != nil {
		clone.PricePerTask = new(big.Int).Set(c.PricePerTask)
	}
	return &clone
}

// NormalizeName validates and trims an agent display name.
func NormalizeName(name string) (string, error) {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" || len(trimmed) > maxNameLength {
		return "", fmt.Errorf("%w: must be between 1 and %d characters", ErrInvalidName, maxNameLength)
	}
	return trimmed, nil
}

// NormalizeCapabilities validates and deduplicates a capability set,
// returning it in a deterministic sorted order so stored cards compare
// equal regardless of caller-supplied ordering.
func NormalizeCapabilities(capabilities []string) ([]string, error) {
	if len(capabilities) > maxCapabilities {
		return nil, fmt.Errorf("%w: at most %d capabilities", ErrTooManyCapabilities, maxCapabilities)
	}
	seen := make(map[string]struct{}, len(capabilities))
	normalized := make([]string, 0, len(capabilities))
	for _, raw := range capabilities {
		trimmed := strings.ToLower(strings.TrimSpace(raw))
		if trimmed == "" || len(trimmed) > maxCapabilityNameLength {
			return nil, fmt.Errorf("%w: must be between 1 and %d characters", ErrInvalidCapability, maxCapabilityNameLength)
		}
		if _, dup := seen[trimmed]; dup {
			continue
		}
		seen[trimmed] = struct{}{}
		normalized = append(normalized, trimmed)
	}
	sort.Strings(normalized)
	return normalized, nil
}
