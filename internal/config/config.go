// Copyright 2025 Blink Labs Software
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

type ctxKey string

const configContextKey ctxKey = "sigil.config"

const (
	DefaultShutdownTimeout = "30s"
	DefaultPollInterval    = "30s"
)

func WithContext(ctx context.Context, cfg *Config) context.Context {
	return context.WithValue(ctx, configContextKey, cfg)
}

func FromContext(ctx context.Context) *Config {
	cfg, ok := ctx.Value(configContextKey).(*Config)
	if !ok {
		return nil
	}
	return cfg
}

type Config struct {
	DataDir               string  `yaml:"dataDir"                                                   split_words:"true"`
	Network               string  `yaml:"network"`
	LedgerApiUrl          string  `yaml:"ledgerApiUrl"          envconfig:"SIGIL_LEDGER_API_URL"`
	WalletAddress         string  `yaml:"walletAddress"                                             split_words:"true"`
	RewardApiUrl          string  `yaml:"rewardApiUrl"          envconfig:"SIGIL_REWARD_API_URL"`
	RewardTokenTicker     string  `yaml:"rewardTokenTicker"                                         split_words:"true"`
	RewardTreasuryWallet  string  `yaml:"rewardTreasuryWallet"                                      split_words:"true"`
	PollInterval          string  `yaml:"pollInterval"                                              split_words:"true"`
	ShutdownTimeout       string  `yaml:"shutdownTimeout"                                           split_words:"true"`
	MetricsBindAddr       string  `yaml:"metricsBindAddr"                                           split_words:"true"`
	EligibilityThreshold  float64 `yaml:"eligibilityThreshold"                                      split_words:"true"`
	ConfirmationThreshold uint64  `yaml:"confirmationThreshold"                                     split_words:"true"`
	MaxPollAttempts       int     `yaml:"maxPollAttempts"                                           split_words:"true"`
	MetricsPort           uint    `yaml:"metricsPort"                                               split_words:"true"`
	RewardsEnabled        bool    `yaml:"rewardsEnabled"                                            split_words:"true"`
	MockLedger            bool    `yaml:"mockLedger"                                                split_words:"true"`
	Tracing               bool    `yaml:"tracing"`
	TracingStdout         bool    `yaml:"tracingStdout"                                             split_words:"true"`
}

var globalConfig = &Config{
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

func LoadConfig(configFile string) (*Config, error) {
	// Load config file as YAML if provided
	if configFile == "" {
		// Check for config file in this path: ~/.sigil/sigil.yaml
		if homeDir, err := os.UserHomeDir(); err == nil {
			userPath := filepath.Join(homeDir, ".sigil", "sigil.yaml")
			if _, err := os.Stat(userPath); err == nil {
				configFile = userPath
			}
		}

		// Try to check for /etc/sigil/sigil.yaml if still not found
		if configFile == "" {
			systemPath := "/etc/sigil/sigil.yaml"
			if _, err := os.Stat(systemPath); err == nil {
				configFile = systemPath
			}
		}
	}

	if configFile != "" {
		buf, err := os.ReadFile(configFile)
		if err != nil {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Overlay config values onto existing defaults
		err = yaml.Unmarshal(buf, globalConfig)
		if err != nil {
			return nil, fmt.Errorf("error parsing config file: %w", err)
		}
	}
	// Process environment variables
	err := envconfig.Process("sigil", globalConfig)
	if err != nil {
		return nil, fmt.Errorf("error processing environment: %+w", err)
	}
	return globalConfig, nil
}

func GetConfig() *Config {
	return globalConfig
}
