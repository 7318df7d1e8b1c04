// Command ainurd runs the marketplace core: the Identity, Registry,
// Reputation, Escrow, and Auction state machines wired to a single storage
// backend and exposed over the gateway's HTTP dispatch surface.
package main

import (
	"context"
	"flag"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/ainur-network/ainurchain/config"
	"github.com/ainur-network/ainurchain/core/identity"
	"github.com/ainur-network/ainurchain/core/state"
	"github.com/ainur-network/ainurchain/crypto"
	gatewayauth "github.com/ainur-network/ainurchain/gateway/auth"
	"github.com/ainur-network/ainurchain/gateway/dispatch"
	gatewayconfig "github.com/ainur-network/ainurchain/gateway/config"
	"github.com/ainur-network/ainurchain/gateway/middleware"
	"github.com/ainur-network/ainurchain/native/agentregistry"
	"github.com/ainur-network/ainurchain/native/auction"
	"github.com/ainur-network/ainurchain/native/escrow"
	"github.com/ainur-network/ainurchain/native/ledger"
	"github.com/ainur-network/ainurchain/native/reputation"
	"github.com/ainur-network/ainurchain/observability/logging"
	"github.com/ainur-network/ainurchain/storage"
	"github.com/ainur-network/ainurchain/storage/trie"
)

var (
	escrowVaultAddress     = []byte("ainur/vault/escrow")
	reputationVaultAddress = []byte("ainur/vault/reputation")
)

func main() {
	var cfgPath string
	var gatewayCfgPath string
	flag.StringVar(&cfgPath, "config", "./ainurd.toml", "path to node configuration")
	flag.StringVar(&gatewayCfgPath, "gateway-config", "", "path to gateway HTTP configuration (overrides node config's Gateway.ConfigFile)")
	flag.Parse()

	env := strings.TrimSpace(os.Getenv("AINUR_ENV"))
	slogger := logging.Setup("ainurd", env)
	logger := log.New(os.Stdout, "ainurd ", log.LstdFlags|log.Lmsgprefix)

	cfg, err := config.Load(cfgPath)
	if err != nil {
		logger.Fatalf("load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatalf("invalid config: %v", err)
	}

	feeAccount, err := crypto.DecodeAddress(cfg.Escrow.FeeAccount)
	if err != nil {
		logger.Fatalf("decode escrow fee account: %v", err)
	}
	treasuryAccount, err := crypto.DecodeAddress(cfg.Reputation.TreasuryAccount)
	if err != nil {
		logger.Fatalf("decode reputation treasury account: %v", err)
	}
	var feeAccountBytes [20]byte
	copy(feeAccountBytes[:], feeAccount.Bytes())

	backend, err := storage.NewLevelDB(filepath.Join(cfg.DataDir, "state"))
	if err != nil {
		logger.Fatalf("open state store: %v", err)
	}
	defer backend.Close()

	tr, err := trie.NewTrie(backend, nil)
	if err != nil {
		logger.Fatalf("open state trie: %v", err)
	}
	manager := state.NewManager(tr)

	escrowVault := ledger.NewVault(manager, escrowVaultAddress)
	reputationVault := ledger.NewVault(manager, reputationVaultAddress)

	identityEngine := identity.NewEngine(manager)
	registryEngine := agentregistry.NewEngine(manager, identityEngine)
	reputationEngine := reputation.NewEngine(manager, reputationVault, treasuryAccount.Bytes())
	escrowEngine := escrow.NewEngine(manager, escrowVault, identityEngine, feeAccountBytes)
	auctionEngine := auction.NewEngine(manager, registryEngine, identityEngine)

	router := dispatch.NewRouter(logger)
	dispatch.RegisterIdentity(router, identityEngine)
	dispatch.RegisterRegistry(router, registryEngine)
	dispatch.RegisterReputation(router, reputationEngine)
	dispatch.RegisterEscrow(router, escrowEngine)
	dispatch.RegisterAuction(router, auctionEngine)

	if gatewayCfgPath == "" {
		gatewayCfgPath = cfg.Gateway.ConfigFile
	}
	gwCfg, err := gatewayconfig.Load(gatewayCfgPath)
	if err != nil {
		logger.Fatalf("load gateway config: %v", err)
	}

	obs := middleware.NewObservability(middleware.ObservabilityConfig{
		ServiceName:   gwCfg.Observability.ServiceName,
		MetricsPrefix: gwCfg.Observability.MetricsPrefix,
		LogRequests:   gwCfg.Observability.LogRequests,
		Enabled:       gwCfg.Observability.Metrics || gwCfg.Observability.Tracing,
	}, logger)

	jwtAuth := middleware.NewAuthenticator(middleware.AuthConfig{
		Enabled:        gwCfg.Auth.Enabled,
		HMACSecret:     gwCfg.Auth.HMACSecret,
		Issuer:         gwCfg.Auth.Issuer,
		Audience:       gwCfg.Auth.Audience,
		ScopeClaim:     gwCfg.Auth.ScopeClaim,
		OptionalPaths:  gwCfg.Auth.OptionalPaths,
		AllowAnonymous: gwCfg.Auth.AllowAnonymous,
		ClockSkew:      gwCfg.Auth.ClockSkew,
	}, logger)

	noncePersistence, err := gatewayauth.NewLevelDBNoncePersistence(filepath.Join(cfg.DataDir, "nonces"))
	if err != nil {
		logger.Fatalf("open nonce store: %v", err)
	}
	apiKeySecrets := loadAPIKeySecrets()
	hmacAuth := gatewayauth.NewAuthenticator(apiKeySecrets, 2*time.Minute, 10*time.Minute, 4096, time.Now, noncePersistence)

	rateLimits := map[string]middleware.RateLimit{
		"dispatch": {RatePerSecond: 20, Burst: 100},
	}
	rateLimiter := middleware.NewRateLimiter(rateLimits, logger)

	hmacAuthenticate := func(req *http.Request, body []byte) (string, error) {
		principal, err := hmacAuth.Authenticate(req, body)
		if err != nil {
			return "", err
		}
		return principal.APIKey, nil
	}

	handler := router.Handler(jwtAuth.Middleware, hmacAuthenticate)
	handler = rateLimiter.Middleware("dispatch")(handler)
	handler = obs.Middleware("dispatch")(handler)
	handler = middleware.CORS(middleware.CORSConfig{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"POST", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization", "X-Api-Key", "X-Nonce", "X-Signature", "X-Timestamp"},
		AllowCredentials: false,
	})(handler)

	server := &http.Server{
		Addr:         gwCfg.ListenAddress,
		Handler:      handler,
		ReadTimeout:  gwCfg.ReadTimeout,
		WriteTimeout: gwCfg.WriteTimeout,
		IdleTimeout:  gwCfg.IdleTimeout,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	listener, err := net.Listen("tcp", gwCfg.ListenAddress)
	if err != nil {
		logger.Fatalf("listen: %v", err)
	}
	go func() {
		slogger.Info("listening", "address", listener.Addr().String())
		if serveErr := server.Serve(listener); serveErr != nil && serveErr != http.ErrServerClosed {
			logger.Fatalf("listen and serve: %v", serveErr)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Printf("graceful shutdown failed: %v", err)
	}
}

// loadAPIKeySecrets reads AINUR_APIKEY_<name>=<secret> pairs from the
// environment into the map gatewayauth.NewAuthenticator expects.
func loadAPIKeySecrets() map[string]string {
	const prefix = "AINUR_APIKEY_"
	secrets := make(map[string]string)
	for _, kv := range os.Environ() {
		if !strings.HasPrefix(kv, prefix) {
			continue
		}
		parts := strings.SplitN(kv, "=", 2)
		if len(parts) != 2 {
			continue
		}
		name := strings.ToLower(strings.TrimPrefix(parts[0], prefix))
		secrets[name] = parts[1]
	}
	return secrets
}
