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

package certify_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/blinklabs-io/sigil/certificate"
	"github.com/blinklabs-io/sigil/certify"
	"github.com/blinklabs-io/sigil/event"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const eventWait = 5 * time.Second

func waitForEvent(t *testing.T, evtCh <-chan event.Event) event.Event {
	t.Helper()
	select {
	case evt := <-evtCh:
		return evt
	case <-time.After(eventWait):
		t.Fatal("timeout waiting for event")
		return event.Event{}
	}
}

func TestTrackerConfirms(t *testing.T) {
	h := newTestHarness(t, certify.Config{
		PollInterval: 5 * time.Millisecond,
	})
	ctx := t.Context()
	h.seedClaimant(t, "claimant_1", 85, true)
	_, confirmedCh := h.bus.Subscribe(certify.CertificateConfirmedEventType)
	// Script the depth sequence ahead of submission so the first poll can
	// never observe anything unscripted
	h.ledger.ScriptDepths(h.ledger.NextRef(), 2, 6, 6)
	cert, err := h.engine.Certify(ctx, certify.Request{
		Content:    []byte("0123456789"),
		Category:   certificate.CategoryDocument,
		ClaimantID: "claimant_1",
	})
	require.NoError(t, err)

	evt := waitForEvent(t, confirmedCh)
	require.Equal(t, certify.CertificateConfirmedEventType, evt.Type)
	data, ok := evt.Data.(certify.CertificateConfirmedEvent)
	require.True(t, ok)
	assert.Equal(t, cert.ID, data.CertificateID)
	assert.Equal(t, cert.LedgerRef, data.LedgerRef)
	assert.Equal(t, "claimant_1", data.ClaimantID)
	assert.GreaterOrEqual(t, data.ConfirmationDepth, uint64(6))

	stored, err := h.db.GetCertificate(ctx, cert.ID)
	require.NoError(t, err)
	assert.Equal(t, certificate.StateConfirmed, stored.State)
	assert.GreaterOrEqual(t, stored.ConfirmationDepth, uint64(6))
	require.NotNil(t, stored.ConfirmedAt)
	confirmedAt := *stored.ConfirmedAt

	// Further polls after settlement change nothing
	time.Sleep(50 * time.Millisecond)
	stored, err = h.db.GetCertificate(ctx, cert.ID)
	require.NoError(t, err)
	assert.Equal(t, certificate.StateConfirmed, stored.State)
	assert.Equal(t, confirmedAt, *stored.ConfirmedAt)
}

func TestTrackerMonotonicDepth(t *testing.T) {
	h := newTestHarness(t, certify.Config{
		PollInterval: 5 * time.Millisecond,
		// Keep the threshold out of reach so every scripted depth is
		// observed before the tracker times out
		ConfirmationThreshold: 100,
		MaxPollAttempts:       4,
	})
	ctx := t.Context()
	h.seedClaimant(t, "claimant_1", 85, true)
	_, timeoutCh := h.bus.Subscribe(certify.ConfirmationTimeoutEventType)
	// Out-of-order ledger reads; the stale 2 must never land
	h.ledger.ScriptDepths(h.ledger.NextRef(), 0, 3, 2, 5)
	cert, err := h.engine.Certify(ctx, certify.Request{
		Content:    []byte("content"),
		Category:   certificate.CategoryArticle,
		ClaimantID: "claimant_1",
	})
	require.NoError(t, err)

	evt := waitForEvent(t, timeoutCh)
	data, ok := evt.Data.(certify.ConfirmationTimeoutEvent)
	require.True(t, ok)
	assert.Equal(t, cert.ID, data.CertificateID)
	assert.Equal(t, uint64(5), data.LastDepth)
	assert.Equal(t, 4, data.Attempts)

	stored, err := h.db.GetCertificate(ctx, cert.ID)
	require.NoError(t, err)
	assert.Equal(t, certificate.StatePending, stored.State)
	assert.Equal(t, uint64(5), stored.ConfirmationDepth)
}

func TestTrackerTimeout(t *testing.T) {
	h := newTestHarness(t, certify.Config{
		PollInterval:    5 * time.Millisecond,
		MaxPollAttempts: 3,
	})
	ctx := t.Context()
	h.seedClaimant(t, "claimant_1", 85, true)
	_, timeoutCh := h.bus.Subscribe(certify.ConfirmationTimeoutEventType)
	h.ledger.ScriptDepths(h.ledger.NextRef(), 1)
	cert, err := h.engine.Certify(ctx, certify.Request{
		Content:    []byte("content"),
		Category:   certificate.CategoryArticle,
		ClaimantID: "claimant_1",
	})
	require.NoError(t, err)

	evt := waitForEvent(t, timeoutCh)
	data, ok := evt.Data.(certify.ConfirmationTimeoutEvent)
	require.True(t, ok)
	assert.Equal(t, 3, data.Attempts)
	// Timeout is a reporting event, not a state change
	stored, err := h.db.GetCertificate(ctx, cert.ID)
	require.NoError(t, err)
	assert.Equal(t, certificate.StatePending, stored.State)
	assert.Equal(t, uint64(1), stored.ConfirmationDepth)
}

func TestTrackerRetriesLedgerErrors(t *testing.T) {
	h := newTestHarness(t, certify.Config{
		PollInterval:    5 * time.Millisecond,
		MaxPollAttempts: 2,
	})
	ctx := t.Context()
	h.seedClaimant(t, "claimant_1", 85, true)
	_, timeoutCh := h.bus.Subscribe(certify.ConfirmationTimeoutEventType)
	cert, err := h.engine.Certify(ctx, certify.Request{
		Content:    []byte("content"),
		Category:   certificate.CategoryArticle,
		ClaimantID: "claimant_1",
	})
	require.NoError(t, err)
	h.ledger.FailConfirmations(errors.New("node down"))

	// Query failures burn attempts and degrade to a timeout event without
	// corrupting the stored record
	evt := waitForEvent(t, timeoutCh)
	data, ok := evt.Data.(certify.ConfirmationTimeoutEvent)
	require.True(t, ok)
	assert.Equal(t, uint64(0), data.LastDepth)
	stored, err := h.db.GetCertificate(ctx, cert.ID)
	require.NoError(t, err)
	assert.Equal(t, certificate.StatePending, stored.State)
	assert.Equal(t, uint64(0), stored.ConfirmationDepth)
}

func TestTrackerStopsOnRevocation(t *testing.T) {
	h := newTestHarness(t, certify.Config{
		PollInterval: 20 * time.Millisecond,
	})
	ctx := t.Context()
	h.seedClaimant(t, "claimant_1", 85, true)
	// Depths stay below the settlement threshold so no poll can confirm
	h.ledger.ScriptDepths(h.ledger.NextRef(), 1, 2, 3)
	cert, err := h.engine.Certify(ctx, certify.Request{
		Content:    []byte("content"),
		Category:   certificate.CategoryArticle,
		ClaimantID: "claimant_1",
	})
	require.NoError(t, err)
	// Revocation cancels the tracker and freezes the store; the guard
	// rejects any in-flight depth write afterwards
	_, err = h.engine.Revoke(ctx, cert.ID, "retracted")
	require.NoError(t, err)
	stored, err := h.db.GetCertificate(ctx, cert.ID)
	require.NoError(t, err)
	require.Equal(t, certificate.StateRevoked, stored.State)
	require.Nil(t, stored.ConfirmedAt)
	frozenDepth := stored.ConfirmationDepth

	time.Sleep(100 * time.Millisecond)
	stored, err = h.db.GetCertificate(ctx, cert.ID)
	require.NoError(t, err)
	assert.Equal(t, certificate.StateRevoked, stored.State)
	assert.Equal(t, frozenDepth, stored.ConfirmationDepth)
	assert.Nil(t, stored.ConfirmedAt)
}

func TestResumeTracking(t *testing.T) {
	// The first engine keeps its tracker idle so the certificate is still
	// pending when it stops
	h := newTestHarness(t, certify.Config{})
	ctx := t.Context()
	h.seedClaimant(t, "claimant_1", 85, true)
	cert, err := h.engine.Certify(ctx, certify.Request{
		Content:    []byte("content"),
		Category:   certificate.CategoryArticle,
		ClaimantID: "claimant_1",
	})
	require.NoError(t, err)
	h.ledger.ScriptDepths(cert.LedgerRef, 6)
	require.NoError(t, h.engine.Stop(ctx))

	// A fresh engine over the same stores picks the pending certificate
	// back up
	resumed := certify.NewEngine(certify.Config{
		Database:     h.db,
		Ledger:       h.ledger,
		Claimants:    nil,
		EventBus:     h.bus,
		PollInterval: 5 * time.Millisecond,
	})
	defer func() {
		stopCtx, cancel := context.WithTimeout(
			context.Background(),
			5*time.Second,
		)
		defer cancel()
		_ = resumed.Stop(stopCtx)
	}()
	_, confirmedCh := h.bus.Subscribe(certify.CertificateConfirmedEventType)
	require.NoError(t, resumed.ResumeTracking(ctx))
	evt := waitForEvent(t, confirmedCh)
	data, ok := evt.Data.(certify.CertificateConfirmedEvent)
	require.True(t, ok)
	assert.Equal(t, cert.ID, data.CertificateID)
}
