// Package config loads the marketplace core's node configuration: the
// storage location, the gateway listen address, and the small set of
// per-module parameters (fee/treasury accounts) that are deployment-specific
// rather than protocol-fixed.
package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// EscrowConfig carries the escrow module's deployment-specific parameter:
// the account that receives the protocol fee on every released payment.
type EscrowConfig struct {
	FeeAccount string `toml:"FeeAccount"`
}

// ReputationConfig carries the reputation module's deployment-specific
// parameter: the account that receives severe-slash forfeitures.
type ReputationConfig struct {
	TreasuryAccount string `toml:"TreasuryAccount"`
}

// GatewayConfig points at the separate TOML file consumed by
// gateway/config.Load for the HTTP dispatch surface (auth, rate limits,
// TLS). Left empty, the gateway runs with its built-in defaults.
type GatewayConfig struct {
	ConfigFile string `toml:"ConfigFile"`
}

// Config is the root node configuration.
type Config struct {
	ListenAddress string           `toml:"ListenAddress"`
	DataDir       string           `toml:"DataDir"`
	Escrow        EscrowConfig     `toml:"Escrow"`
	Reputation    ReputationConfig `toml:"Reputation"`
	Gateway       GatewayConfig    `toml:"Gateway"`
}

// Load loads the configuration from the given path, creating a default file
// in its place when none exists yet.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return createDefault(path)
	}

	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// createDefault creates and saves a default configuration file.
func createDefault(path string) (*Config, error) {
	cfg := &Config{
		ListenAddress: ":8081",
		DataDir:       "./ainurd-data",
	}

	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	if err := toml.NewEncoder(f).Encode(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks that the deployment-specific accounts required by the
// escrow and reputation modules are present.
func (cfg *Config) Validate() error {
	if cfg == nil {
		return fmt.Errorf("config is nil")
	}
	if cfg.Escrow.FeeAccount == "" {
		return fmt.Errorf("Escrow.FeeAccount must be configured")
	}
	if cfg.Reputation.TreasuryAccount == "" {
		return fmt.Errorf("Reputation.TreasuryAccount must be configured")
	}
	return nil
}
