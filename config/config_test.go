package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadCreatesDefaultWhenMissing(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.ListenAddress != ":8081" {
		t.Fatalf("expected default listen address, got %q", cfg.ListenAddress)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("expected config file to be created: %v", err)
	}
}

func TestLoadParsesExistingFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	contents := `ListenAddress = ":9090"
DataDir = "./data"

[Escrow]
FeeAccount = "ainur1feeaccountxxxxxxxxxxxxxxxxxxxxxxxxxx"

[Reputation]
TreasuryAccount = "ainur1treasuryxxxxxxxxxxxxxxxxxxxxxxxxxxxx"

[Gateway]
ConfigFile = "./gateway.toml"
`
	if err := os.WriteFile(path, []byte(contents), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.ListenAddress != ":9090" {
		t.Fatalf("unexpected listen address: %q", cfg.ListenAddress)
	}
	if cfg.Escrow.FeeAccount == "" {
		t.Fatalf("expected escrow fee account to be parsed")
	}
	if cfg.Gateway.ConfigFile != "./gateway.toml" {
		t.Fatalf("unexpected gateway config file: %q", cfg.Gateway.ConfigFile)
	}
}

func TestValidateRequiresDeploymentAccounts(t *testing.T) {
	cfg := &Config{ListenAddress: ":8081", DataDir: "./data"}
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected validation error for missing accounts")
	}
	cfg.Escrow.FeeAccount = "ainur1feeaccountxxxxxxxxxxxxxxxxxxxxxxxxxx"
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected validation error for missing treasury account")
	}
	cfg.Reputation.TreasuryAccount = "ainur1treasuryxxxxxxxxxxxxxxxxxxxxxxxxxxxx"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}
