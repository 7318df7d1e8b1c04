package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

type ServiceConfig struct {
	Name               string        `toml:"name"`
	Endpoint           string        `toml:"endpoint"`
	Timeout            time.Duration `toml:"timeout"`
	InsecureSkipVerify bool          `toml:"insecureSkipVerify"`
}

type RateLimitConfig struct {
	ID                string   `toml:"id"`
	RequestsPerMinute float64  `toml:"requestsPerMinute"`
	RatePerSecond     float64  `toml:"ratePerSecond"`
	Burst             int      `toml:"burst"`
	Paths             []string `toml:"paths"`
}

type ObservabilityConfig struct {
	ServiceName   string `toml:"serviceName"`
	Metrics       bool   `toml:"metrics"`
	Tracing       bool   `toml:"tracing"`
	LogRequests   bool   `toml:"logRequests"`
	MetricsPrefix string `toml:"metricsPrefix"`
}

type Config struct {
	ListenAddress string              `toml:"listen"`
	ReadTimeout   time.Duration       `toml:"readTimeout"`
	WriteTimeout  time.Duration       `toml:"writeTimeout"`
	IdleTimeout   time.Duration       `toml:"idleTimeout"`
	Services      []ServiceConfig     `toml:"services"`
	RateLimits    []RateLimitConfig   `toml:"rateLimits"`
	Observability ObservabilityConfig `toml:"observability"`
	Auth          AuthConfig          `toml:"auth"`
	Security      SecurityConfig      `toml:"security"`

	allowAnonymousSet bool
	enabledSet        bool
}

type AuthConfig struct {
	Enabled        bool          `toml:"enabled"`
	HMACSecret     string        `toml:"hmacSecret"`
	Issuer         string        `toml:"issuer"`
	Audience       string        `toml:"audience"`
	ScopeClaim     string        `toml:"scopeClaim"`
	OptionalPaths  []string      `toml:"optionalPaths"`
	AllowAnonymous bool          `toml:"allowAnonymous"`
	ClockSkew      time.Duration `toml:"clockSkew"`
}

type SecurityConfig struct {
	AutoUpgradeHTTP bool   `toml:"autoUpgradeHTTP"`
	AllowInsecure   bool   `toml:"allowInsecure"`
	TLSCertFile     string `toml:"tlsCertFile"`
	TLSKeyFile      string `toml:"tlsKeyFile"`
	TLSClientCAFile string `toml:"tlsClientCAFile"`
}

// Load reads a TOML gateway configuration from path, applying defaults for
// unset fields. An empty path returns the default configuration with no
// services or auth configured, used by tests and ungated local runs.
//
// Whether auth.enabled and auth.allowAnonymous were explicitly present in
// the file (as opposed to defaulting to their zero value) matters for
// Validate's sensitive-deployment checks, so presence is tracked via the
// decoder's MetaData rather than the decoded struct alone.
func Load(path string) (Config, error) {
	cfg := Config{
		ListenAddress: ":8080",
		ReadTimeout:   30 * time.Second,
		WriteTimeout:  30 * time.Second,
		IdleTimeout:   120 * time.Second,
		Observability: ObservabilityConfig{
			ServiceName:   "ainur-gateway",
			Metrics:       true,
			Tracing:       false,
			LogRequests:   true,
			MetricsPrefix: "gateway",
		},
		Auth: AuthConfig{
			Enabled:        true,
			ScopeClaim:     "scope",
			AllowAnonymous: false,
			ClockSkew:      2 * time.Minute,
		},
	}
	if path == "" {
		cfg.applyAuthDefaults()
		if err := cfg.Validate(); err != nil {
			return Config{}, fmt.Errorf("validate config: %w", err)
		}
		return cfg, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("open config: %w", err)
	}
	meta, err := toml.Decode(string(raw), &cfg)
	if err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	cfg.enabledSet = meta.IsDefined("auth", "enabled")
	cfg.allowAnonymousSet = meta.IsDefined("auth", "allowAnonymous")
	cfg.applyAuthDefaults()
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

func (cfg *Config) applyAuthDefaults() {
	if cfg == nil {
		return
	}
	if !cfg.enabledSet {
		cfg.Auth.Enabled = true
	}
	if cfg.Auth.ClockSkew <= 0 {
		cfg.Auth.ClockSkew = 2 * time.Minute
	}
	if cfg.Auth.ScopeClaim == "" {
		cfg.Auth.ScopeClaim = "scope"
	}
	if !cfg.allowAnonymousSet {
		cfg.Auth.AllowAnonymous = false
	}
}

var ErrAuthEnabledNotConfigured = errors.New("auth.enabled must be explicitly set for sensitive deployments")

func (cfg *Config) Validate() error {
	if cfg == nil {
		return fmt.Errorf("config is nil")
	}
	if cfg.isSensitiveDeployment() && !cfg.enabledSet {
		return ErrAuthEnabledNotConfigured
	}
	if cfg.Auth.AllowAnonymous && !cfg.allowAnonymousSet {
		return fmt.Errorf("auth.allowAnonymous must be explicitly set to true to enable anonymous access")
	}
	trimmed := make([]string, len(cfg.Auth.OptionalPaths))
	for i, path := range cfg.Auth.OptionalPaths {
		trimmedPath := strings.TrimSpace(path)
		if trimmedPath == "" {
			return fmt.Errorf("auth.optionalPaths[%d] cannot be empty", i)
		}
		if !strings.HasPrefix(trimmedPath, "/") {
			return fmt.Errorf("auth.optionalPaths[%d] must start with '/'", i)
		}
		trimmed[i] = trimmedPath
	}
	cfg.Auth.OptionalPaths = trimmed
	if cfg.Auth.Enabled && cfg.Auth.AllowAnonymous && len(cfg.Auth.OptionalPaths) == 0 {
		return fmt.Errorf("auth.optionalPaths must list at least one entry when auth.allowAnonymous is true")
	}
	return nil
}

func (s ServiceConfig) URL() (*url.URL, error) {
	if s.Endpoint == "" {
		return nil, fmt.Errorf("endpoint missing for service %s", s.Name)
	}
	parsed, err := url.Parse(s.Endpoint)
	if err != nil {
		return nil, fmt.Errorf("parse service %s endpoint: %w", s.Name, err)
	}
	return parsed, nil
}

func (cfg Config) ServiceByName(name string) (*ServiceConfig, error) {
	for _, svc := range cfg.Services {
		if svc.Name == name {
			return &svc, nil
		}
	}
	return nil, fmt.Errorf("service %s not configured", name)
}

func (cfg *Config) isSensitiveDeployment() bool {
	if cfg == nil {
		return false
	}
	if cfg.Security.AutoUpgradeHTTP {
		return true
	}
	if strings.TrimSpace(cfg.Security.TLSCertFile) != "" {
		return true
	}
	if strings.TrimSpace(cfg.Security.TLSKeyFile) != "" {
		return true
	}
	if strings.TrimSpace(cfg.Security.TLSClientCAFile) != "" {
		return true
	}
	return false
}

// EnforceSecureScheme ensures the supplied URL uses HTTPS outside of the dev environment.
// If autoUpgrade is enabled, insecure HTTP URLs are transparently upgraded to HTTPS.
// The returned boolean indicates whether an upgrade occurred.
func EnforceSecureScheme(env string, target *url.URL, autoUpgrade bool) (*url.URL, bool, error) {
	if target == nil {
		return nil, false, fmt.Errorf("target URL is nil")
	}
	scheme := strings.ToLower(strings.TrimSpace(target.Scheme))
	switch scheme {
	case "https":
		return target, false, nil
	case "http":
		if isDevEnv(env) {
			return target, false, nil
		}
		if autoUpgrade {
			upgraded := *target
			upgraded.Scheme = "https"
			return &upgraded, true, nil
		}
		if strings.TrimSpace(env) == "" {
			env = "(unset)"
		}
		return nil, false, fmt.Errorf("plaintext HTTP endpoints are not permitted for environment %s", env)
	case "":
		return nil, false, fmt.Errorf("URL scheme is required")
	default:
		return nil, false, fmt.Errorf("unsupported URL scheme %q", target.Scheme)
	}
}

func isDevEnv(env string) bool {
	return strings.EqualFold(strings.TrimSpace(env), "dev")
}
