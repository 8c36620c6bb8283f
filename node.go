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
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/blinklabs-io/sigil/certify"
	"github.com/blinklabs-io/sigil/database"
	"github.com/blinklabs-io/sigil/event"
	"github.com/blinklabs-io/sigil/ledger"
	"github.com/blinklabs-io/sigil/ledger/kaspa"
	"github.com/blinklabs-io/sigil/ledger/mock"
	"github.com/blinklabs-io/sigil/reward"
	"github.com/blinklabs-io/sigil/reward/kasplex"
)

type Node struct {
	eventBus      *event.EventBus
	db            *database.Database
	engine        *certify.Engine
	ledger        ledger.Port
	rewards       reward.Port
	shutdownFuncs []func(context.Context) error
	config        Config
	done          chan struct{}
	shutdownOnce  sync.Once
}

func New(cfg Config) (*Node, error) {
	n := &Node{
		config:   cfg,
		eventBus: event.NewEventBus(cfg.promRegistry, cfg.logger),
		done:     make(chan struct{}),
	}
	if err := n.configValidate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return n, nil
}

func (n *Node) Run() error {
	// Configure tracing
	if n.config.tracing {
		if err := n.setupTracing(); err != nil {
			return err
		}
	}
	// Load database
	db, err := database.New(&database.Config{
		DataDir: n.config.dataDir,
		Logger:  n.config.logger,
		Tracing: n.config.tracing,
	})
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	n.db = db
	// Configure ledger adapter
	n.ledger = n.config.ledger
	if n.ledger == nil {
		if n.config.mockLedger {
			n.ledger = mock.New()
			n.config.logger.Warn(
				"using mock ledger, anchors are not durable",
				"component", "node",
			)
		} else {
			n.ledger = kaspa.New(kaspa.KaspaConfig{
				Logger:        n.config.logger,
				ApiUrl:        n.config.ledgerApiUrl,
				Network:       n.config.network,
				WalletAddress: n.config.walletAddress,
			})
		}
	}
	// Configure reward adapter
	n.rewards = n.config.rewards
	if n.rewards == nil {
		n.rewards = kasplex.New(kasplex.KasplexConfig{
			Logger:         n.config.logger,
			ApiUrl:         n.config.rewardApiUrl,
			TokenTicker:    n.config.rewardTokenTicker,
			TreasuryWallet: n.config.rewardTreasuryWallet,
			Enabled:        n.config.rewardsEnabled,
		})
	}
	// Initialize certification engine
	n.engine = certify.NewEngine(certify.Config{
		Logger:                n.config.logger,
		EventBus:              n.eventBus,
		PromRegistry:          n.config.promRegistry,
		Database:              n.db,
		Ledger:                n.ledger,
		Rewards:               n.rewards,
		Claimants:             database.NewClaimantResolver(n.db),
		EligibilityThreshold:  n.config.eligibilityThreshold,
		ConfirmationThreshold: n.config.confirmationThreshold,
		PollInterval:          n.config.pollInterval,
		MaxPollAttempts:       n.config.maxPollAttempts,
	})
	// Resume settlement monitoring for certificates left pending by a
	// previous run
	if err := n.engine.ResumeTracking(context.Background()); err != nil {
		return fmt.Errorf("failed to resume confirmation tracking: %w", err)
	}

	// Wait for shutdown signal
	<-n.done
	return nil
}

// Engine returns the certification engine. It is nil until Run has been called
func (n *Node) Engine() *certify.Engine {
	return n.engine
}

// EventBus returns the event bus used for settlement notifications
func (n *Node) EventBus() *event.EventBus {
	return n.eventBus
}

// Database returns the underlying database instance. It is nil until Run has
// been called
func (n *Node) Database() *database.Database {
	return n.db
}

func (n *Node) Stop() error {
	var err error
	n.shutdownOnce.Do(func() {
		err = n.shutdown()
	})
	return err
}

func (n *Node) shutdown() error {
	// Create shutdown context with timeout (default 30s if not configured)
	shutdownTimeout := 30 * time.Second
	if n.config.shutdownTimeout > 0 {
		shutdownTimeout = n.config.shutdownTimeout
	}
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	var err error

	n.config.logger.Debug("starting graceful shutdown")

	// Phase 1: Stop accepting new work and drain trackers
	n.config.logger.Debug("shutdown phase 1: stopping certification engine")

	if n.engine != nil {
		if stopErr := n.engine.Stop(ctx); stopErr != nil {
			err = errors.Join(err, fmt.Errorf("engine shutdown: %w", stopErr))
		}
	}

	// Phase 2: Flush state and close database
	n.config.logger.Debug("shutdown phase 2: closing database")

	if n.db != nil {
		if closeErr := n.db.Close(); closeErr != nil {
			err = errors.Join(err, fmt.Errorf("database close: %w", closeErr))
		}
	}

	// Phase 3: Cleanup resources
	n.config.logger.Debug("shutdown phase 3: cleanup resources")

	// Call registered shutdown functions
	for _, fn := range n.shutdownFuncs {
		if fnErr := fn(ctx); fnErr != nil {
			err = errors.Join(err, fmt.Errorf("shutdown function: %w", fnErr))
		}
	}
	n.shutdownFuncs = nil

	if n.eventBus != nil {
		n.eventBus.Stop()
	}

	n.config.logger.Debug("graceful shutdown complete")
	close(n.done)
	return err
}
