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

package certify

import (
	"context"
	"errors"
	"time"

	"github.com/blinklabs-io/sigil/certificate"
	"github.com/blinklabs-io/sigil/database"
	"github.com/blinklabs-io/sigil/event"
)

// tracker watches a single in-flight certificate until it settles, is
// revoked, or the attempt ceiling runs out. Every accepted certificate owns
// exactly one tracker; trackers never block each other or the issuance path
type tracker struct {
	engine        *Engine
	cancelCh      chan struct{}
	certificateId string
	ledgerRef     string
	claimantId    string
	lastDepth     uint64
}

func (e *Engine) startTracker(cert certificate.Certificate) {
	e.trackersMu.Lock()
	defer e.trackersMu.Unlock()
	if e.stopped {
		return
	}
	if _, ok := e.trackers[cert.ID]; ok {
		return
	}
	t := &tracker{
		engine:        e,
		cancelCh:      make(chan struct{}),
		certificateId: cert.ID,
		ledgerRef:     cert.LedgerRef,
		claimantId:    cert.ClaimantID,
		lastDepth:     cert.ConfirmationDepth,
	}
	e.trackers[cert.ID] = t
	e.trackersWg.Add(1)
	if e.metrics != nil {
		e.metrics.activeTrackers.Inc()
	}
	go t.run()
}

// stopTracker cancels the tracker for a certificate, if one is running. Used
// by revocation as an external cancellation signal
func (e *Engine) stopTracker(certificateId string) {
	e.trackersMu.Lock()
	defer e.trackersMu.Unlock()
	t, ok := e.trackers[certificateId]
	if !ok {
		return
	}
	delete(e.trackers, certificateId)
	close(t.cancelCh)
}

func (e *Engine) trackerDone(certificateId string) {
	e.trackersMu.Lock()
	if t, ok := e.trackers[certificateId]; ok {
		delete(e.trackers, certificateId)
		close(t.cancelCh)
	}
	e.trackersMu.Unlock()
	if e.metrics != nil {
		e.metrics.activeTrackers.Dec()
	}
	e.trackersWg.Done()
}

func (t *tracker) run() {
	defer t.engine.trackerDone(t.certificateId)
	ticker := time.NewTicker(t.engine.pollInterval)
	defer ticker.Stop()
	for attempt := 1; attempt <= t.engine.maxPollAttempts; attempt++ {
		select {
		case <-t.engine.shutdownCh:
			return
		case <-t.cancelCh:
			return
		case <-ticker.C:
		}
		done := t.poll()
		if done {
			return
		}
	}
	// Attempt ceiling reached without settlement. The certificate stays
	// pending; subscribers decide what to do with the timeout
	t.engine.logger.Warn(
		"confirmation tracking timed out",
		"component", "certify",
		"certificate_id", t.certificateId,
		"ledger_ref", t.ledgerRef,
		"last_depth", t.lastDepth,
		"attempts", t.engine.maxPollAttempts,
	)
	if t.engine.metrics != nil {
		t.engine.metrics.timeouts.Inc()
	}
	t.publish(
		ConfirmationTimeoutEventType,
		ConfirmationTimeoutEvent{
			CertificateID: t.certificateId,
			LedgerRef:     t.ledgerRef,
			LastDepth:     t.lastDepth,
			Attempts:      t.engine.maxPollAttempts,
		},
	)
}

// poll performs one confirmation query and applies the outcome. It returns
// true when the tracker is finished. A query or write failure is retried at
// the next tick; the guarded store writes mean a failed or stale poll can
// never corrupt the stored record
func (t *tracker) poll() bool {
	ctx := context.Background()
	depth, err := t.engine.ledger.Confirmations(ctx, t.ledgerRef)
	if err != nil {
		t.engine.logger.Warn(
			"confirmation query failed",
			"component", "certify",
			"certificate_id", t.certificateId,
			"ledger_ref", t.ledgerRef,
			"error", err,
		)
		return false
	}
	if depth < t.lastDepth {
		// Regressed read from a lagging node; discard it
		if t.engine.metrics != nil {
			t.engine.metrics.depthRegressions.Inc()
		}
	} else if depth > t.lastDepth {
		changed, err := t.engine.db.SetConfirmationDepth(
			ctx,
			t.certificateId,
			depth,
		)
		if err != nil {
			t.engine.logger.Warn(
				"confirmation depth write failed",
				"component", "certify",
				"certificate_id", t.certificateId,
				"error", err,
			)
			return false
		}
		if changed {
			t.lastDepth = depth
		} else if stopped := t.checkStillPending(ctx); stopped {
			// The write was rejected by the state guard rather than a
			// higher stored depth
			return true
		}
	}
	if depth >= t.engine.confirmationThreshold {
		return t.confirm(ctx, depth)
	}
	return false
}

// confirm attempts the one-way pending to confirmed transition. The store
// guard ensures only one writer wins; a tracker racing a revocation or a
// duplicate confirmation simply stops without an event
func (t *tracker) confirm(ctx context.Context, depth uint64) bool {
	confirmedAt := time.Now()
	confirmed, err := t.engine.db.ConfirmCertificate(
		ctx,
		t.certificateId,
		depth,
		confirmedAt,
	)
	if err != nil {
		t.engine.logger.Warn(
			"confirmation write failed",
			"component", "certify",
			"certificate_id", t.certificateId,
			"error", err,
		)
		return false
	}
	if !confirmed {
		// No longer pending
		return true
	}
	t.engine.logger.Info(
		"certificate confirmed",
		"component", "certify",
		"certificate_id", t.certificateId,
		"ledger_ref", t.ledgerRef,
		"depth", depth,
	)
	if t.engine.metrics != nil {
		t.engine.metrics.confirmed.Inc()
	}
	t.publish(
		CertificateConfirmedEventType,
		CertificateConfirmedEvent{
			CertificateID:     t.certificateId,
			LedgerRef:         t.ledgerRef,
			ClaimantID:        t.claimantId,
			ConfirmationDepth: depth,
			ConfirmedAt:       confirmedAt,
		},
	)
	return true
}

// checkStillPending reports whether the tracker should stop because the
// certificate left the pending state externally (revocation)
func (t *tracker) checkStillPending(ctx context.Context) bool {
	cert, err := t.engine.db.GetCertificate(ctx, t.certificateId)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return true
		}
		return false
	}
	return !cert.IsPending()
}

func (t *tracker) publish(eventType event.EventType, data any) {
	if t.engine.eventBus == nil {
		return
	}
	t.engine.eventBus.Publish(eventType, event.NewEvent(eventType, data))
}
