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

// Package mock provides a scriptable in-memory ledger for development mode
// and tests. Confirmation depths can be scripted per transaction; with no
// script, depth grows by one per query to simulate settlement
package mock

import (
	"context"
	"fmt"
	"sync"

	"github.com/blinklabs-io/sigil/ledger"
)

type mockTx struct {
	payload     ledger.SubmitPayload
	depthScript []uint64
	scriptPos   int
	autoDepth   uint64
}

// Mock is an in-memory ledger.Port
type Mock struct {
	transactions map[string]*mockTx
	submitErr    error
	queryErr     error
	mu           sync.Mutex
	lastTxNum    int
}

func New() *Mock {
	return &Mock{
		transactions: make(map[string]*mockTx),
	}
}

// FailSubmit makes subsequent Submit calls fail with the given error wrapped
// as a ledger.UnavailableError. Pass nil to clear
func (m *Mock) FailSubmit(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.submitErr = err
}

// FailConfirmations makes subsequent Confirmations calls fail with the given
// error wrapped as a ledger.UnavailableError. Pass nil to clear
func (m *Mock) FailConfirmations(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queryErr = err
}

// NextRef returns the reference the next Submit call will assign. Lets a
// caller script depths for a transaction before it exists, closing the gap
// between submission and scripting
func (m *Mock) NextRef() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return fmt.Sprintf("mock_tx_%06d", m.lastTxNum+1)
}

// ScriptDepths sets the exact depth sequence returned by successive
// Confirmations calls for a transaction. The final value repeats once the
// script is exhausted. The transaction does not need to exist yet
func (m *Mock) ScriptDepths(ref string, depths ...uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	tx, ok := m.transactions[ref]
	if !ok {
		tx = &mockTx{}
		m.transactions[ref] = tx
	}
	tx.depthScript = depths
	tx.scriptPos = 0
}

// Payload returns the payload recorded for a submitted transaction
func (m *Mock) Payload(ref string) (ledger.SubmitPayload, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	tx, ok := m.transactions[ref]
	if !ok {
		return ledger.SubmitPayload{}, false
	}
	return tx.payload, true
}

func (m *Mock) Submit(
	_ context.Context,
	payload ledger.SubmitPayload,
) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.submitErr != nil {
		return "", ledger.NewUnavailableError("submit", m.submitErr)
	}
	m.lastTxNum++
	ref := fmt.Sprintf("mock_tx_%06d", m.lastTxNum)
	// Keep any depth script installed ahead of submission
	if tx, ok := m.transactions[ref]; ok {
		tx.payload = payload
	} else {
		m.transactions[ref] = &mockTx{payload: payload}
	}
	return ref, nil
}

func (m *Mock) Confirmations(
	_ context.Context,
	ref string,
) (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.queryErr != nil {
		return 0, ledger.NewUnavailableError("confirmations", m.queryErr)
	}
	tx, ok := m.transactions[ref]
	if !ok {
		return 0, ledger.NewUnavailableError(
			"confirmations",
			fmt.Errorf("unknown transaction: %s", ref),
		)
	}
	if len(tx.depthScript) > 0 {
		depth := tx.depthScript[tx.scriptPos]
		if tx.scriptPos < len(tx.depthScript)-1 {
			tx.scriptPos++
		}
		return depth, nil
	}
	tx.autoDepth++
	return tx.autoDepth, nil
}

func (m *Mock) ExplorerURL(ref string) string {
	return "https://explorer.invalid/txs/" + ref
}
