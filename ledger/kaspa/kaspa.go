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

// Package kaspa implements the ledger port against a Kaspa REST API node.
// Anchoring records are carried in a transaction payload envelope; the
// confirmation depth of a transaction is the distance between the virtual
// chain blue score and the blue score of the block that accepted it
package kaspa

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/blinklabs-io/sigil/ledger"
)

const (
	payloadProtocol = "sigil"
	payloadVersion  = "1"

	defaultRequestTimeout = 15 * time.Second
)

var explorerBaseUrls = map[string]string{
	"mainnet":    "https://explorer.kaspa.org/txs",
	"testnet-10": "https://explorer-tn10.kaspa.org/txs",
	"testnet-11": "https://explorer-tn11.kaspa.org/txs",
}

type KaspaConfig struct {
	Logger         *slog.Logger
	HttpClient     *http.Client
	ApiUrl         string
	Network        string
	WalletAddress  string
	RequestTimeout time.Duration
}

// Kaspa is a ledger.Port backed by a Kaspa node's REST API
type Kaspa struct {
	config     KaspaConfig
	logger     *slog.Logger
	httpClient *http.Client
}

func New(config KaspaConfig) *Kaspa {
	k := &Kaspa{
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

// payloadEnvelope is the JSON document hex-encoded into the transaction
// payload field
type payloadEnvelope struct {
	Metadata      map[string]string `json:"metadata,omitempty"`
	Protocol      string            `json:"protocol"`
	Version       string            `json:"version"`
	ContentDigest string            `json:"contentDigest"`
	Category      string            `json:"category"`
	Claimant      string            `json:"claimant"`
	Timestamp     int64             `json:"timestamp"`
}

type submitRequest struct {
	FromAddress string `json:"fromAddress"`
	Payload     string `json:"payload"`
}

type submitResponse struct {
	TransactionId string `json:"transactionId"`
}

type transactionResponse struct {
	TransactionId           string `json:"transactionId"`
	IsAccepted              bool   `json:"is_accepted"`
	AcceptingBlockBlueScore uint64 `json:"accepting_block_blue_score"`
}

type virtualChainResponse struct {
	BlueScore uint64 `json:"blueScore"`
}

// EncodePayload renders the anchoring payload as the hex-encoded envelope
// written to the transaction payload field
func EncodePayload(payload ledger.SubmitPayload) (string, error) {
	envelope := payloadEnvelope{
		Protocol:      payloadProtocol,
		Version:       payloadVersion,
		ContentDigest: payload.ContentDigest.String(),
		Category:      payload.Category,
		Claimant:      payload.ClaimantID,
		Timestamp:     payload.Timestamp.UnixMilli(),
		Metadata:      payload.Metadata,
	}
	raw, err := json.Marshal(envelope)
	if err != nil {
		return "", fmt.Errorf("encoding payload envelope: %w", err)
	}
	return hex.EncodeToString(raw), nil
}

// DecodePayload parses a hex-encoded payload envelope back into a submit
// payload. Used by verification tooling to inspect on-chain anchors
func DecodePayload(encoded string) (ledger.SubmitPayload, error) {
	raw, err := hex.DecodeString(encoded)
	if err != nil {
		return ledger.SubmitPayload{}, fmt.Errorf(
			"decoding payload hex: %w",
			err,
		)
	}
	var envelope payloadEnvelope
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return ledger.SubmitPayload{}, fmt.Errorf(
			"decoding payload envelope: %w",
			err,
		)
	}
	ret := ledger.SubmitPayload{
		Category:   envelope.Category,
		ClaimantID: envelope.Claimant,
		Timestamp:  time.UnixMilli(envelope.Timestamp),
		Metadata:   envelope.Metadata,
	}
	if envelope.ContentDigest != "" {
		if err := ret.ContentDigest.UnmarshalText([]byte(envelope.ContentDigest)); err != nil {
			return ledger.SubmitPayload{}, err
		}
	}
	return ret, nil
}

func (k *Kaspa) Submit(
	ctx context.Context,
	payload ledger.SubmitPayload,
) (string, error) {
	encoded, err := EncodePayload(payload)
	if err != nil {
		return "", err
	}
	reqBody, err := json.Marshal(submitRequest{
		FromAddress: k.config.WalletAddress,
		Payload:     encoded,
	})
	if err != nil {
		return "", fmt.Errorf("encoding submit request: %w", err)
	}
	var resp submitResponse
	if err := k.doRequest(
		ctx,
		http.MethodPost,
		"/transactions",
		reqBody,
		&resp,
	); err != nil {
		return "", ledger.NewUnavailableError("submit", err)
	}
	if resp.TransactionId == "" {
		return "", ledger.NewUnavailableError(
			"submit",
			fmt.Errorf("node returned empty transaction ID"),
		)
	}
	k.logger.Debug(
		"anchoring transaction submitted",
		"component", "ledger",
		"tx_id", resp.TransactionId,
		"digest", payload.ContentDigest.Short(),
	)
	return resp.TransactionId, nil
}

func (k *Kaspa) Confirmations(
	ctx context.Context,
	ref string,
) (uint64, error) {
	var txResp transactionResponse
	if err := k.doRequest(
		ctx,
		http.MethodGet,
		"/transactions/"+ref,
		nil,
		&txResp,
	); err != nil {
		return 0, ledger.NewUnavailableError("confirmations", err)
	}
	if !txResp.IsAccepted {
		return 0, nil
	}
	var chainResp virtualChainResponse
	if err := k.doRequest(
		ctx,
		http.MethodGet,
		"/info/virtual-chain-blue-score",
		nil,
		&chainResp,
	); err != nil {
		return 0, ledger.NewUnavailableError("confirmations", err)
	}
	if chainResp.BlueScore < txResp.AcceptingBlockBlueScore {
		// Node views can briefly disagree during reorgs; report no depth
		// rather than a bogus value
		return 0, nil
	}
	return chainResp.BlueScore - txResp.AcceptingBlockBlueScore, nil
}

func (k *Kaspa) ExplorerURL(ref string) string {
	baseUrl, ok := explorerBaseUrls[k.config.Network]
	if !ok {
		baseUrl = explorerBaseUrls["mainnet"]
	}
	return fmt.Sprintf("%s/%s", baseUrl, ref)
}

func (k *Kaspa) doRequest(
	ctx context.Context,
	method string,
	path string,
	body []byte,
	out any,
) error {
	var bodyReader io.Reader
	if body != nil {
		bodyReader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(
		ctx,
		method,
		k.config.ApiUrl+path,
		bodyReader,
	)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := k.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf(
			"unexpected HTTP status %d from %s: %s",
			resp.StatusCode,
			path,
			string(respBody),
		)
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decoding response from %s: %w", path, err)
		}
	}
	return nil
}
