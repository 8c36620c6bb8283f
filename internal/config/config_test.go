package config

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func resetGlobalConfig() {
	globalConfig = &Config{
		DataDir:               ".sigil",
		Network:               "mainnet",
		LedgerApiUrl:          "https://api.kaspa.org",
		RewardTokenTicker:     "CERT",
		PollInterval:          DefaultPollInterval,
		ShutdownTimeout:       DefaultShutdownTimeout,
		MetricsBindAddr:       "0.0.0.0",
		EligibilityThreshold:  50,
		ConfirmationThreshold: 6,
		MaxPollAttempts:       40,
		MetricsPort:           8090,
	}
}

func TestLoad_CompareFullStruct(t *testing.T) {
	resetGlobalConfig()
	yamlContent := `
dataDir: "/var/lib/sigil"
network: "testnet-10"
ledgerApiUrl: "https://api-tn10.kaspa.org"
walletAddress: "kaspatest:qz0example"
rewardApiUrl: "https://api.kasplex.org/v1"
rewardTokenTicker: "CTEST"
rewardTreasuryWallet: "kaspatest:qz0treasury"
rewardsEnabled: true
pollInterval: "10s"
shutdownTimeout: "15s"
metricsBindAddr: "127.0.0.1"
eligibilityThreshold: 60
confirmationThreshold: 10
maxPollAttempts: 20
metricsPort: 8091
mockLedger: false
tracing: true
tracingStdout: true
`

	tmpDir := t.TempDir()
	tmpFile := filepath.Join(tmpDir, "test-sigil.yaml")

	err := os.WriteFile(tmpFile, []byte(yamlContent), 0644)
	if err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}
	defer os.Remove(tmpFile)

	expected := &Config{
		DataDir:               "/var/lib/sigil",
		Network:               "testnet-10",
		LedgerApiUrl:          "https://api-tn10.kaspa.org",
		WalletAddress:         "kaspatest:qz0example",
		RewardApiUrl:          "https://api.kasplex.org/v1",
		RewardTokenTicker:     "CTEST",
		RewardTreasuryWallet:  "kaspatest:qz0treasury",
		RewardsEnabled:        true,
		PollInterval:          "10s",
		ShutdownTimeout:       "15s",
		MetricsBindAddr:       "127.0.0.1",
		EligibilityThreshold:  60,
		ConfirmationThreshold: 10,
		MaxPollAttempts:       20,
		MetricsPort:           8091,
		MockLedger:            false,
		Tracing:               true,
		TracingStdout:         true,
	}

	actual, err := LoadConfig(tmpFile)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if !reflect.DeepEqual(actual, expected) {
		t.Errorf(
			"Loaded config does not match expected.\nActual: %+v\nExpected: %+v",
			actual,
			expected,
		)
	}
}

func TestLoad_WithoutConfigFile_UsesDefaults(t *testing.T) {
	resetGlobalConfig()

	// Without Config file
	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}

	// Expected is the original default values from globalConfig
	expected := &Config{
		DataDir:               ".sigil",
		Network:               "mainnet",
		LedgerApiUrl:          "https://api.kaspa.org",
		RewardTokenTicker:     "CERT",
		PollInterval:          DefaultPollInterval,
		ShutdownTimeout:       DefaultShutdownTimeout,
		MetricsBindAddr:       "0.0.0.0",
		EligibilityThreshold:  50,
		ConfirmationThreshold: 6,
		MaxPollAttempts:       40,
		MetricsPort:           8090,
	}

	if !reflect.DeepEqual(cfg, expected) {
		t.Errorf(
			"config mismatch without file:\nExpected: %+v\nGot:      %+v",
			expected,
			cfg,
		)
	}
}

func TestLoad_WithMockLedgerConfig(t *testing.T) {
	resetGlobalConfig()

	// Test with mock ledger in config file
	yamlContent := `
mockLedger: true
network: "mainnet"
`

	tmpDir := t.TempDir()
	tmpFile := filepath.Join(tmpDir, "test-mock-ledger.yaml")

	err := os.WriteFile(tmpFile, []byte(yamlContent), 0644)
	if err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	cfg, err := LoadConfig(tmpFile)
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}

	if !cfg.MockLedger {
		t.Errorf("expected MockLedger to be true, got: %v", cfg.MockLedger)
	}
}

func TestLoad_WithEnvironmentOverride(t *testing.T) {
	resetGlobalConfig()

	t.Setenv("SIGIL_LEDGER_API_URL", "https://api-tn11.kaspa.org")
	t.Setenv("SIGIL_NETWORK", "testnet-11")

	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}

	if cfg.LedgerApiUrl != "https://api-tn11.kaspa.org" {
		t.Errorf(
			"expected LedgerApiUrl override, got: %s",
			cfg.LedgerApiUrl,
		)
	}
	if cfg.Network != "testnet-11" {
		t.Errorf("expected Network override, got: %s", cfg.Network)
	}
}
