package common

import (
	"errors"
	"sync"
)

// Error taxonomy names. These are the public contract exposed in dispatch
// failures; the gateway maps each to an HTTP status code.
const (
	TaxonomyInvalidFormat       = "invalid-format"
	TaxonomyNotFound            = "not-found"
	TaxonomyAlreadyExists       = "already-exists"
	TaxonomyNotAuthorized       = "not-authorized"
	TaxonomyWrongState          = "wrong-state"
	TaxonomyExpired             = "expired"
	TaxonomyBoundExceeded       = "bound-exceeded"
	TaxonomyInsufficientBalance = "insufficient-balance"
	TaxonomyArithmeticOverflow  = "arithmetic-overflow"
	TaxonomyPolicyInvalid       = "policy-invalid"
)

var (
	registryMu sync.RWMutex
	registry   = map[error]string{}
)

// RegisterErrors associates each of errs with category in the shared
// taxonomy above. Each native module calls this from an init() for its own
// sentinel errors, so Classify can map them without native/common importing
// the module back (the same driver-registration shape as database/sql).
func RegisterErrors(category string, errs ...error) {
	registryMu.Lock()
	defer registryMu.Unlock()
	for _, err := range errs {
		if err == nil {
			continue
		}
		registry[err] = category
	}
}

// Classify maps err to one of the taxonomy constants via errors.Is against
// every sentinel registered with RegisterErrors. An unrecognized error
// classifies as "", which callers treat as an internal/500 failure.
func Classify(err error) string {
	if err == nil {
		return ""
	}
	registryMu.RLock()
	defer registryMu.RUnlock()
	for sentinel, category := range registry {
		if errors.Is(err, sentinel) {
			return category
		}
	}
	return ""
}
