// Package dispatch implements the gateway's HTTP dispatch surface named in
// the core specification's external interfaces: every module operation
// (createEscrow, placeBid, bondReputation, ...) is reachable as
// POST /v1/dispatch/{module}/{operation}, alongside the in-process Go calls
// the engines also support directly. The package owns request decoding,
// operation lookup, and mapping each engine's sentinel errors to the shared
// error taxonomy (native/common.Classify) and its corresponding HTTP status.
package dispatch

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"math/big"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/ainur-network/ainurchain/native/common"
	"github.com/ainur-network/ainurchain/observability"
)

// metricsForModule returns the singleton dispatch metrics registry for
// module, or nil for a module name this package doesn't recognize (the
// generic route's 404 path never reaches a module with metrics to record).
func metricsForModule(module string) *observability.DispatchMetrics {
	switch module {
	case "identity":
		return observability.Identity()
	case "registry":
		return observability.Registry()
	case "reputation":
		return observability.Reputation()
	case "escrow":
		return observability.Escrow()
	case "auction":
		return observability.Auction()
	default:
		return nil
	}
}

// handlerFunc decodes a dispatch request body and returns the JSON-encodable
// result of the operation. Returned errors are classified via
// native/common.Classify and mapped to an HTTP status by statusForTaxonomy.
type handlerFunc func(body []byte) (interface{}, error)

// operation names requiring a JWT bearer token carrying the listed scope,
// rather than the default HMAC API-key+nonce authentication. Mirrors
// SPEC_FULL.md §6's restricted-origin dispatch list.
var restrictedScopes = map[string]string{
	"reputation/reportOutcome":  "reputation:report",
	"reputation/slashSevere":    "reputation:slash",
	"escrow/createTemplate":     "escrow:template-admin",
	"escrow/updateTemplate":     "escrow:template-admin",
	"escrow/deactivateTemplate": "escrow:template-admin",
}

// RequiredScope reports the JWT scope required for module/operation, and
// whether the pair is restricted at all.
func RequiredScope(module, operation string) (string, bool) {
	scope, ok := restrictedScopes[module+"/"+operation]
	return scope, ok
}

// Router composes the marketplace's five modules into a single HTTP dispatch
// surface.
type Router struct {
	modules map[string]map[string]handlerFunc
	logger  *log.Logger
}

// NewRouter constructs an empty dispatch router. Each module's Register*
// function (RegisterIdentity, RegisterRegistry, ...) populates it with that
// module's operations.
func NewRouter(logger *log.Logger) *Router {
	if logger == nil {
		logger = log.Default()
	}
	return &Router{modules: make(map[string]map[string]handlerFunc), logger: logger}
}

func (r *Router) register(module, operation string, fn handlerFunc) {
	ops, ok := r.modules[module]
	if !ok {
		ops = make(map[string]handlerFunc)
		r.modules[module] = ops
	}
	ops[operation] = fn
}

// Handler builds the chi mux for the dispatch surface. Restricted-origin
// operations (per restrictedScopes) are mounted on their own route wrapped
// with jwtMiddleware(scope); every other operation runs behind the generic
// route, which authenticates inline via hmacAuthenticate against the raw
// request body (HMAC signing covers the body, so it must be read before the
// signature can be checked).
func (r *Router) Handler(jwtMiddleware func(scopes ...string) func(http.Handler) http.Handler, hmacAuthenticate func(req *http.Request, body []byte) (string, error)) http.Handler {
	mux := chi.NewRouter()
	mux.Post("/v1/dispatch/{module}/{operation}", r.dispatchCore(hmacAuthenticate))
	for key, scope := range restrictedScopes {
		parts := strings.SplitN(key, "/", 2)
		route := fmt.Sprintf("/v1/dispatch/%s/%s", parts[0], parts[1])
		mux.With(jwtMiddleware(scope)).Post(route, r.dispatchCore(nil))
	}
	return mux
}

// dispatchCore looks up and invokes the registered handler for the
// requested module/operation. hmacAuthenticate is nil for routes already
// authenticated by the JWT middleware chain.
func (r *Router) dispatchCore(hmacAuthenticate func(req *http.Request, body []byte) (string, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		module := chi.URLParam(req, "module")
		operation := chi.URLParam(req, "operation")
		if module == "" && operation == "" {
			// Restricted routes are literal paths and carry no URL params.
			if parts := strings.SplitN(strings.TrimPrefix(req.URL.Path, "/v1/dispatch/"), "/", 2); len(parts) == 2 {
				module, operation = parts[0], parts[1]
			}
		}
		requestID := uuid.NewString()

		ops, ok := r.modules[module]
		if !ok {
			writeError(w, requestID, http.StatusNotFound, "unknown module")
			return
		}
		fn, ok := ops[operation]
		if !ok {
			writeError(w, requestID, http.StatusNotFound, "unknown operation")
			return
		}

		body, err := io.ReadAll(io.LimitReader(req.Body, 1<<20))
		if err != nil {
			writeError(w, requestID, http.StatusBadRequest, "read request body")
			return
		}

		if hmacAuthenticate != nil {
			caller, err := hmacAuthenticate(req, body)
			if err != nil {
				r.logger.Printf("dispatch %s/%s: auth failed: %v", module, operation, err)
				writeError(w, requestID, http.StatusUnauthorized, "authentication failed")
				return
			}
			r.logger.Printf("dispatch %s/%s: caller=%s request=%s", module, operation, caller, requestID)
		}

		start := time.Now()
		result, err := fn(body)
		if metrics := metricsForModule(module); metrics != nil {
			metrics.Observe(operation, time.Since(start), err)
		}
		if err != nil {
			taxonomy := common.Classify(err)
			writeTaxonomyError(w, requestID, taxonomy, err)
			return
		}
		writeResult(w, requestID, result)
	}
}

type successEnvelope struct {
	RequestID string      `json:"requestId"`
	Result    interface{} `json:"result"`
}

type errorEnvelope struct {
	RequestID string    `json:"requestId"`
	Error     errorBody `json:"error"`
}

type errorBody struct {
	Taxonomy string `json:"taxonomy"`
	Message  string `json:"message"`
}

func writeResult(w http.ResponseWriter, requestID string, result interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(successEnvelope{RequestID: requestID, Result: result})
}

func writeError(w http.ResponseWriter, requestID string, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(errorEnvelope{RequestID: requestID, Error: errorBody{Message: message}})
}

func writeTaxonomyError(w http.ResponseWriter, requestID, taxonomy string, err error) {
	status := statusForTaxonomy(taxonomy)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(errorEnvelope{
		RequestID: requestID,
		Error:     errorBody{Taxonomy: taxonomy, Message: err.Error()},
	})
}

// statusForTaxonomy maps the shared error taxonomy to an HTTP status, per
// SPEC_FULL.md §6.
func statusForTaxonomy(taxonomy string) int {
	switch taxonomy {
	case common.TaxonomyInvalidFormat:
		return http.StatusBadRequest
	case common.TaxonomyNotFound:
		return http.StatusNotFound
	case common.TaxonomyAlreadyExists:
		return http.StatusConflict
	case common.TaxonomyNotAuthorized:
		return http.StatusForbidden
	case common.TaxonomyWrongState:
		return http.StatusConflict
	case common.TaxonomyExpired:
		return http.StatusGone
	case common.TaxonomyBoundExceeded:
		return http.StatusRequestEntityTooLarge
	case common.TaxonomyInsufficientBalance:
		return http.StatusPaymentRequired
	case common.TaxonomyArithmeticOverflow:
		return http.StatusInternalServerError
	case common.TaxonomyPolicyInvalid:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// --- wire codec helpers ---

var (
	errInvalidHexLength = errors.New("dispatch: invalid hex length")
	errInvalidHex       = errors.New("dispatch: invalid hex encoding")
)

func init() {
	common.RegisterErrors(common.TaxonomyInvalidFormat, errInvalidHexLength, errInvalidHex)
}

func decodeAccount(s string) ([20]byte, error) {
	var out [20]byte
	raw, err := hex.DecodeString(s)
	if err != nil {
		return out, fmt.Errorf("%w: decode account: %v", errInvalidHex, err)
	}
	if len(raw) != 20 {
		return out, fmt.Errorf("%w: account must be 20 bytes, got %d", errInvalidHexLength, len(raw))
	}
	copy(out[:], raw)
	return out, nil
}

func decodeHash32(s string) ([32]byte, error) {
	var out [32]byte
	raw, err := hex.DecodeString(s)
	if err != nil {
		return out, fmt.Errorf("%w: decode hash: %v", errInvalidHex, err)
	}
	if len(raw) != 32 {
		return out, fmt.Errorf("%w: hash must be 32 bytes, got %d", errInvalidHexLength, len(raw))
	}
	copy(out[:], raw)
	return out, nil
}

func encodeBytes(b []byte) string {
	return hex.EncodeToString(b)
}

func decodeAmount(s string) (*big.Int, error) {
	if s == "" {
		return nil, fmt.Errorf("dispatch: amount must not be empty")
	}
	amount, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil, fmt.Errorf("dispatch: invalid decimal amount %q", s)
	}
	return amount, nil
}

func amountString(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}
