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

package sigil

import (
	"errors"
	"io"
	"log/slog"
	"time"

	"github.com/blinklabs-io/sigil/ledger"
	"github.com/blinklabs-io/sigil/reward"
	"github.com/prometheus/client_golang/prometheus"
)

type Config struct {
	promRegistry          prometheus.Registerer
	logger                *slog.Logger
	ledger                ledger.Port
	rewards               reward.Port
	dataDir               string
	network               string
	ledgerApiUrl          string
	walletAddress         string
	rewardApiUrl          string
	rewardTokenTicker     string
	rewardTreasuryWallet  string
	eligibilityThreshold  float64
	confirmationThreshold uint64
	pollInterval          time.Duration
	maxPollAttempts       int
	shutdownTimeout       time.Duration
	rewardsEnabled        bool
	mockLedger            bool
	tracing               bool
	tracingStdout         bool
}

func (n *Node) configValidate() error {
	cfg := n.config
	if cfg.ledger == nil && !cfg.mockLedger {
		if cfg.ledgerApiUrl == "" {
			return errors.New("no ledger API URL defined")
		}
		if cfg.walletAddress == "" {
			return errors.New("no wallet address defined")
		}
		if cfg.network == "" {
			return errors.New("no network defined")
		}
	}
	if cfg.rewards == nil && cfg.rewardsEnabled {
		if cfg.rewardApiUrl == "" {
			return errors.New("rewards enabled but no reward API URL defined")
		}
		if cfg.rewardTokenTicker == "" {
			return errors.New("rewards enabled but no token ticker defined")
		}
		if cfg.rewardTreasuryWallet == "" {
			return errors.New(
				"rewards enabled but no treasury wallet defined",
			)
		}
	}
	return nil
}

// ConfigOptionFunc is a type that represents functions that modify the node config
type ConfigOptionFunc func(*Config)

// NewConfig creates a new sigil config with the specified options
func NewConfig(opts ...ConfigOptionFunc) Config {
	c := Config{
		// Default logger will throw away logs
		// We do this so we don't have to add guards around every log operation
		logger: slog.New(slog.NewJSONHandler(io.Discard, nil)),
	}
	// Apply options
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

// WithLogger specifies the logger to use. This defaults to discarding log output
func WithLogger(logger *slog.Logger) ConfigOptionFunc {
	return func(c *Config) {
		c.logger = logger
	}
}

// WithDataDir specifies the persistent data directory to use. The default is to store everything in memory
func WithDataDir(dataDir string) ConfigOptionFunc {
	return func(c *Config) {
		c.dataDir = dataDir
	}
}

// WithNetwork specifies the named ledger network to anchor against (mainnet, testnet-10, testnet-11)
func WithNetwork(network string) ConfigOptionFunc {
	return func(c *Config) {
		c.network = network
	}
}

// WithPrometheusRegistry specifies a prometheus.Registerer instance to add metrics to. In most cases, prometheus.DefaultRegistry would be
// a good choice to get metrics working
func WithPrometheusRegistry(registry prometheus.Registerer) ConfigOptionFunc {
	return func(c *Config) {
		c.promRegistry = registry
	}
}

// WithLedger specifies a custom ledger adapter. This overrides the built-in
// adapters selected by the other ledger options
func WithLedger(port ledger.Port) ConfigOptionFunc {
	return func(c *Config) {
		c.ledger = port
	}
}

// WithLedgerApiUrl specifies the REST API URL of the ledger node used for anchoring
func WithLedgerApiUrl(apiUrl string) ConfigOptionFunc {
	return func(c *Config) {
		c.ledgerApiUrl = apiUrl
	}
}

// WithWalletAddress specifies the wallet address anchoring transactions are sent from
func WithWalletAddress(address string) ConfigOptionFunc {
	return func(c *Config) {
		c.walletAddress = address
	}
}

// WithMockLedger enables the in-memory scriptable ledger. This is mostly useful for development and testing
func WithMockLedger(mock bool) ConfigOptionFunc {
	return func(c *Config) {
		c.mockLedger = mock
	}
}

// WithRewards specifies a custom reward adapter. This overrides the built-in
// adapter selected by the other reward options
func WithRewards(port reward.Port) ConfigOptionFunc {
	return func(c *Config) {
		c.rewards = port
	}
}

// WithRewardsEnabled specifies whether reward payouts are performed. This is disabled by default
func WithRewardsEnabled(enabled bool) ConfigOptionFunc {
	return func(c *Config) {
		c.rewardsEnabled = enabled
	}
}

// WithRewardApiUrl specifies the token API URL used for reward payouts
func WithRewardApiUrl(apiUrl string) ConfigOptionFunc {
	return func(c *Config) {
		c.rewardApiUrl = apiUrl
	}
}

// WithRewardToken specifies the token ticker and treasury wallet used for reward payouts
func WithRewardToken(ticker string, treasuryWallet string) ConfigOptionFunc {
	return func(c *Config) {
		c.rewardTokenTicker = ticker
		c.rewardTreasuryWallet = treasuryWallet
	}
}

// WithEligibilityThreshold specifies the minimum claimant eligibility score required to certify. The default is 50
func WithEligibilityThreshold(threshold float64) ConfigOptionFunc {
	return func(c *Config) {
		c.eligibilityThreshold = threshold
	}
}

// WithConfirmationThreshold specifies the confirmation depth at which a certificate is considered settled. The default is 6
func WithConfirmationThreshold(threshold uint64) ConfigOptionFunc {
	return func(c *Config) {
		c.confirmationThreshold = threshold
	}
}

// WithPollInterval specifies the interval between confirmation polls. The default is 30 seconds
func WithPollInterval(interval time.Duration) ConfigOptionFunc {
	return func(c *Config) {
		c.pollInterval = interval
	}
}

// WithMaxPollAttempts specifies the attempt ceiling for confirmation tracking. The default is 40
func WithMaxPollAttempts(attempts int) ConfigOptionFunc {
	return func(c *Config) {
		c.maxPollAttempts = attempts
	}
}

// WithTracing enables tracing. By default, spans are submitted to a HTTP(s) endpoint using OTLP. This can be configured
// using the OTEL_EXPORTER_OTLP_* env vars documented in the README for [go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp]
func WithTracing(tracing bool) ConfigOptionFunc {
	return func(c *Config) {
		c.tracing = tracing
	}
}

// WithTracingStdout enables tracing output to stdout. This also requires tracing to enabled separately. This is mostly useful for debugging
func WithTracingStdout(stdout bool) ConfigOptionFunc {
	return func(c *Config) {
		c.tracingStdout = stdout
	}
}

// WithShutdownTimeout specifies the timeout for graceful shutdown. The default is 30 seconds
func WithShutdownTimeout(timeout time.Duration) ConfigOptionFunc {
	return func(c *Config) {
		c.shutdownTimeout = timeout
	}
}
