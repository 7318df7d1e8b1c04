package dispatch

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ainur-network/ainurchain/core/identity"
	"github.com/ainur-network/ainurchain/native/escrow"
	"github.com/ainur-network/ainurchain/native/ledger"
	"github.com/ainur-network/ainurchain/storage"
	"github.com/ainur-network/ainurchain/storage/trie"

	"github.com/ainur-network/ainurchain/core/state"
)

var errUnauthenticated = errors.New("dispatch test: authentication denied")

func newTestManager(t *testing.T) *state.Manager {
	t.Helper()
	db := storage.NewMemDB()
	t.Cleanup(func() { _ = db.Close() })
	tr, err := trie.NewTrie(db, nil)
	require.NoError(t, err)
	return state.NewManager(tr)
}

func newTestVault(t *testing.T, mgr *state.Manager) *ledger.Vault {
	t.Helper()
	return ledger.NewVault(mgr, []byte("test-vault"))
}

// allowAllJWT and allowAllHMAC stand in for the gateway's real authenticators;
// this package tests dispatch routing and envelope shape, not auth itself.
func allowAllJWT(scopes ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler { return next }
}

func allowAllHMAC(req *http.Request, body []byte) (string, error) {
	return "test-caller", nil
}

func denyAllHMAC(req *http.Request, body []byte) (string, error) {
	return "", errUnauthenticated
}

func newTestRouter(t *testing.T) *Router {
	t.Helper()
	mgr := newTestManager(t)
	identityEngine := identity.NewEngine(mgr)

	r := NewRouter(nil)
	RegisterIdentity(r, identityEngine)
	return r
}

func TestDispatchCreateDidEnvelope(t *testing.T) {
	r := newTestRouter(t)
	handler := r.Handler(allowAllJWT, allowAllHMAC)

	body := map[string]string{
		"did":        "did:ainur:agent-1",
		"controller": strings.Repeat("ab", 20),
		"publicKey":  strings.Repeat("cd", 32),
	}
	raw, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/v1/dispatch/identity/createDid", bytes.NewReader(raw))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var envelope successEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	require.NotEmpty(t, envelope.RequestID)
	require.NotNil(t, envelope.Result)
}

func TestDispatchUnknownModuleAndOperation(t *testing.T) {
	r := newTestRouter(t)
	handler := r.Handler(allowAllJWT, allowAllHMAC)

	req := httptest.NewRequest(http.MethodPost, "/v1/dispatch/bogus/createDid", bytes.NewReader([]byte(`{}`)))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusNotFound, rec.Code)

	req = httptest.NewRequest(http.MethodPost, "/v1/dispatch/identity/bogusOperation", bytes.NewReader([]byte(`{}`)))
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDispatchInvalidFormatMapsToBadRequest(t *testing.T) {
	r := newTestRouter(t)
	handler := r.Handler(allowAllJWT, allowAllHMAC)

	body := map[string]string{
		"did":        "did:ainur:agent-1",
		"controller": "not-hex",
		"publicKey":  strings.Repeat("cd", 32),
	}
	raw, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/v1/dispatch/identity/createDid", bytes.NewReader(raw))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDispatchGenericRouteRejectsFailedHMACAuth(t *testing.T) {
	r := newTestRouter(t)
	handler := r.Handler(allowAllJWT, denyAllHMAC)

	req := httptest.NewRequest(http.MethodPost, "/v1/dispatch/identity/createDid", bytes.NewReader([]byte(`{}`)))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

// TestDispatchRestrictedRouteBypassesHMAC confirms restricted operations are
// routed through the JWT middleware instead of the generic HMAC route: a
// failing hmacAuthenticate must not block a restricted-scope dispatch.
func TestDispatchRestrictedRouteBypassesHMAC(t *testing.T) {
	mgr := newTestManager(t)
	identityEngine := identity.NewEngine(mgr)
	vault := newTestVault(t, mgr)
	escrowEngine := escrow.NewEngine(mgr, vault, identityEngine, [20]byte{1})

	r := NewRouter(nil)
	RegisterEscrow(r, escrowEngine)
	handler := r.Handler(allowAllJWT, denyAllHMAC)

	req := httptest.NewRequest(http.MethodPost, "/v1/dispatch/escrow/createTemplate", bytes.NewReader([]byte(`{
		"caller": "`+strings.Repeat("ab", 20)+`",
		"name": "fixed-price",
		"params": {}
	}`)))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.NotEqual(t, http.StatusUnauthorized, rec.Code)
}

func TestStatusForTaxonomy(t *testing.T) {
	cases := map[string]int{
		"invalid-format":       http.StatusBadRequest,
		"not-found":            http.StatusNotFound,
		"already-exists":       http.StatusConflict,
		"not-authorized":       http.StatusForbidden,
		"wrong-state":          http.StatusConflict,
		"expired":              http.StatusGone,
		"bound-exceeded":       http.StatusRequestEntityTooLarge,
		"insufficient-balance": http.StatusPaymentRequired,
		"arithmetic-overflow":  http.StatusInternalServerError,
		"policy-invalid":       http.StatusUnprocessableEntity,
		"":                     http.StatusInternalServerError,
	}
	for taxonomy, want := range cases {
		require.Equal(t, want, statusForTaxonomy(taxonomy), "taxonomy %q", taxonomy)
	}
}

func TestAmountStringRoundTrip(t *testing.T) {
	amount, err := decodeAmount("12345678901234567890")
	require.NoError(t, err)
	require.Equal(t, "12345678901234567890", amountString(amount))

	require.Equal(t, "0", amountString(nil))

	_, err = decodeAmount("not-a-number")
	require.Error(t, err)
}
