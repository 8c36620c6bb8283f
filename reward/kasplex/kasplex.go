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

// Package kasplex pays certification rewards as KRC-20 token transfers via
// the Kasplex API. The adapter can be disabled outright, in which case every
// payout returns a nil receipt and no error
package kasplex

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/blinklabs-io/sigil/reward"
)

const defaultRequestTimeout = 15 * time.Second

type KasplexConfig struct {
	Logger         *slog.Logger
	HttpClient     *http.Client
	ApiUrl         string
	TokenTicker    string
	TreasuryWallet string
	RequestTimeout time.Duration
	Enabled        bool
}

// Kasplex is a reward.Port backed by the Kasplex token API
type Kasplex struct {
	config     KasplexConfig
	logger     *slog.Logger
	httpClient *http.Client
}

func New(config KasplexConfig) *Kasplex {
	k := &Kasplex{
		config: config,
	}
	if config.Logger == nil {
		// Create logger to throw away logs
		// We do this so we don't have to add guards around every log operation
		k.logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	} else {
		k.logger = config.Logger
	}
	if config.HttpClient != nil {
		k.httpClient = config.HttpClient
	} else {
		timeout := config.RequestTimeout
		if timeout <= 0 {
			timeout = defaultRequestTimeout
		}
		k.httpClient = &http.Client{Timeout: timeout}
	}
	return k
}

type transferRequest struct {
	Ticker string `json:"ticker"`
	From   string `json:"from"`
	To     string `json:"to"`
	Amount uint64 `json:"amount"`
	Memo   string `json:"memo,omitempty"`
}

type transferResponse struct {
	TransactionId string `json:"transactionId"`
}

func (k *Kasplex) Reward(
	ctx context.Context,
	claimantId string,
	amount uint64,
	certificateId string,
) (*reward.Receipt, error) {
	if !k.config.Enabled {
		k.logger.Debug(
			"rewards disabled, skipping payout",
			"component", "rewards",
			"certificate_id", certificateId,
		)
		return nil, nil
	}
	if amount == 0 {
		return nil, nil
	}
	reqBody, err := json.Marshal(transferRequest{
		Ticker: k.config.TokenTicker,
		From:   k.config.TreasuryWallet,
		To:     claimantId,
		Amount: amount,
		Memo:   "certification_reward:" + certificateId,
	})
	if err != nil {
		return nil, fmt.Errorf("encoding transfer request: %w", err)
	}
	req, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		k.config.ApiUrl+"/krc20/transfer",
		bytes.NewReader(reqBody),
	)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := k.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("reward transfer failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf(
			"unexpected HTTP status %d from reward transfer: %s",
			resp.StatusCode,
			string(respBody),
		)
	}
	var transferResp transferResponse
	if err := json.NewDecoder(resp.Body).Decode(&transferResp); err != nil {
		return nil, fmt.Errorf("decoding transfer response: %w", err)
	}
	k.logger.Info(
		"certification reward issued",
		"component", "rewards",
		"certificate_id", certificateId,
		"claimant", claimantId,
		"amount", amount,
		"tx_id", transferResp.TransactionId,
	)
	return &reward.Receipt{
		TxRef:         transferResp.TransactionId,
		ClaimantID:    claimantId,
		CertificateID: certificateId,
		Amount:        amount,
	}, nil
}
