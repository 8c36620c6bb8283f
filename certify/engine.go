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

// Package certify orchestrates certificate issuance and settlement tracking.
// The engine validates claimant eligibility, enforces digest uniqueness,
// anchors the certificate on the ledger, and hands each accepted certificate
// to its own confirmation tracker
package certify

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/blinklabs-io/sigil/certificate"
	"github.com/blinklabs-io/sigil/claimant"
	"github.com/blinklabs-io/sigil/database"
	"github.com/blinklabs-io/sigil/digest"
	"github.com/blinklabs-io/sigil/event"
	"github.com/blinklabs-io/sigil/ledger"
	"github.com/blinklabs-io/sigil/reward"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
)

const (
	DefaultPollInterval           = 30 * time.Second
	DefaultMaxPollAttempts        = 40
	certificateIdPrefix           = "cert_"
	CertificateConfirmedEventType = event.EventType("certificate.confirmed")
	ConfirmationTimeoutEventType  = event.EventType(
		"certificate.confirmation_timeout",
	)
)

// CertificateConfirmedEvent is published when a certificate reaches the
// settlement threshold
type CertificateConfirmedEvent struct {
	ConfirmedAt       time.Time
	CertificateID     string
	LedgerRef         string
	ClaimantID        string
	ConfirmationDepth uint64
}

// ConfirmationTimeoutEvent is published when a tracker exhausts its attempt
// ceiling without the certificate settling. The certificate stays pending;
// this is a reporting event, not a state change
type ConfirmationTimeoutEvent struct {
	CertificateID string
	LedgerRef     string
	LastDepth     uint64
	Attempts      int
}

type Config struct {
	Logger                *slog.Logger
	EventBus              *event.EventBus
	PromRegistry          prometheus.Registerer
	Database              *database.Database
	Ledger                ledger.Port
	Rewards               reward.Port
	Claimants             claimant.Resolver
	EligibilityThreshold  float64
	ConfirmationThreshold uint64
	PollInterval          time.Duration
	MaxPollAttempts       int
}

// Engine is the certification pipeline. Issuance is synchronous up to
// persistence; settlement monitoring happens on per-certificate trackers
// that never block the issuing caller
type Engine struct {
	logger                *slog.Logger
	eventBus              *event.EventBus
	metrics               *engineMetrics
	db                    *database.Database
	ledger                ledger.Port
	rewards               reward.Port
	claimants             claimant.Resolver
	trackers              map[string]*tracker
	shutdownCh            chan struct{}
	eligibilityThreshold  float64
	confirmationThreshold uint64
	pollInterval          time.Duration
	maxPollAttempts       int
	trackersMu            sync.Mutex
	trackersWg            sync.WaitGroup
	stopOnce              sync.Once
	stopped               bool
}

func NewEngine(cfg Config) *Engine {
	logger := cfg.Logger
	if logger == nil {
		// Create logger to throw away logs
		// We do this so we don't have to add guards around every log operation
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	eligibilityThreshold := cfg.EligibilityThreshold
	if eligibilityThreshold <= 0 {
		eligibilityThreshold = claimant.DefaultEligibilityThreshold
	}
	confirmationThreshold := cfg.ConfirmationThreshold
	if confirmationThreshold == 0 {
		confirmationThreshold = certificate.DefaultConfirmationThreshold
	}
	pollInterval := cfg.PollInterval
	if pollInterval <= 0 {
		pollInterval = DefaultPollInterval
	}
	maxPollAttempts := cfg.MaxPollAttempts
	if maxPollAttempts <= 0 {
		maxPollAttempts = DefaultMaxPollAttempts
	}
	e := &Engine{
		logger:                logger,
		eventBus:              cfg.EventBus,
		db:                    cfg.Database,
		ledger:                cfg.Ledger,
		rewards:               cfg.Rewards,
		claimants:             cfg.Claimants,
		trackers:              make(map[string]*tracker),
		shutdownCh:            make(chan struct{}),
		eligibilityThreshold:  eligibilityThreshold,
		confirmationThreshold: confirmationThreshold,
		pollInterval:          pollInterval,
		maxPollAttempts:       maxPollAttempts,
	}
	if cfg.PromRegistry != nil {
		e.metrics = newEngineMetrics(cfg.PromRegistry)
	}
	return e
}

// Request describes a single certification
type Request struct {
	Metadata   map[string]string
	ClaimantID string
	Category   certificate.Category
	Content    []byte
}

// Certify issues a certificate for the requested content. It returns once
// the certificate is durably recorded with state pending; settlement
// monitoring continues in the background. Failures before persistence leave
// no partial state; failures after persistence (issuance counter, reward)
// are logged and ignored
func (e *Engine) Certify(
	ctx context.Context,
	req Request,
) (certificate.Certificate, error) {
	if e.isStopped() {
		return certificate.Certificate{}, ErrShutdown
	}
	if len(req.Content) == 0 {
		return certificate.Certificate{}, ErrEmptyContent
	}
	if !req.Category.Valid() {
		return certificate.Certificate{}, fmt.Errorf(
			"%w: %q",
			certificate.ErrInvalidCategory,
			req.Category,
		)
	}
	cl, err := e.claimants.Resolve(ctx, req.ClaimantID)
	if err != nil {
		return certificate.Certificate{}, err
	}
	if !cl.Eligible(e.eligibilityThreshold) {
		return certificate.Certificate{}, &IneligibleClaimantError{
			ClaimantID: cl.ID,
			Score:      cl.EligibilityScore,
			Threshold:  e.eligibilityThreshold,
			Verified:   cl.Verified,
		}
	}
	contentDigest := digest.New(req.Content)
	// Fast-path duplicate check before touching the ledger. The guarded
	// insert below closes the race between concurrent issuances
	if existing, err := e.db.GetActiveCertificateByDigest(
		ctx,
		contentDigest,
	); err == nil {
		return certificate.Certificate{}, &DuplicateContentError{
			ExistingID:    existing.ID,
			ContentDigest: contentDigest,
		}
	} else if !errors.Is(err, database.ErrNotFound) {
		return certificate.Certificate{}, err
	}
	ledgerRef, err := e.ledger.Submit(ctx, ledger.SubmitPayload{
		ContentDigest: contentDigest,
		Category:      string(req.Category),
		ClaimantID:    req.ClaimantID,
		Timestamp:     time.Now(),
		Metadata:      req.Metadata,
	})
	if err != nil {
		return certificate.Certificate{}, err
	}
	certId, err := newCertificateId()
	if err != nil {
		return certificate.Certificate{}, err
	}
	cert := certificate.New(
		certId,
		contentDigest,
		req.Category,
		ledgerRef,
		req.ClaimantID,
		req.Metadata,
		time.Now(),
	)
	stored, inserted, err := e.db.InsertCertificateIfAbsent(ctx, cert)
	if err != nil {
		return certificate.Certificate{}, err
	}
	if !inserted {
		// A concurrent issuance of the same content won the insert
		return certificate.Certificate{}, &DuplicateContentError{
			ExistingID:    stored.ID,
			ContentDigest: contentDigest,
		}
	}
	e.logger.Info(
		"certificate issued",
		"component", "certify",
		"certificate_id", cert.ID,
		"digest", contentDigest.Short(),
		"category", cert.Category,
		"claimant_id", cert.ClaimantID,
		"ledger_ref", ledgerRef,
	)
	if e.metrics != nil {
		e.metrics.issued.WithLabelValues(string(cert.Category)).Inc()
	}
	// Everything below is best-effort. The certificate is already durable
	if err := e.db.PutContent(contentDigest, req.Content); err != nil {
		e.logger.Warn(
			"failed to archive content",
			"component", "certify",
			"certificate_id", cert.ID,
			"error", err,
		)
	}
	if err := e.claimants.RecordIssuance(ctx, req.ClaimantID); err != nil {
		e.logger.Warn(
			"failed to record claimant issuance",
			"component", "certify",
			"certificate_id", cert.ID,
			"claimant_id", req.ClaimantID,
			"error", err,
		)
	}
	e.payReward(ctx, cl, cert)
	e.startTracker(cert)
	return cert, nil
}

func (e *Engine) payReward(
	ctx context.Context,
	cl *claimant.Claimant,
	cert certificate.Certificate,
) {
	if e.rewards == nil {
		return
	}
	amount := reward.Calculate(cl.EligibilityScore, cert.Category)
	receipt, err := e.rewards.Reward(ctx, cl.ID, amount, cert.ID)
	if err != nil {
		e.logger.Warn(
			"reward payout failed",
			"component", "certify",
			"certificate_id", cert.ID,
			"claimant_id", cl.ID,
			"amount", amount,
			"error", err,
		)
		if e.metrics != nil {
			e.metrics.rewardFailures.Inc()
		}
		return
	}
	if receipt == nil {
		// Reward subsystem disabled
		return
	}
	e.logger.Info(
		"reward paid",
		"component", "certify",
		"certificate_id", cert.ID,
		"claimant_id", cl.ID,
		"amount", receipt.Amount,
		"tx_ref", receipt.TxRef,
	)
	if e.metrics != nil {
		e.metrics.rewardsPaid.Inc()
	}
}

// VerificationResult is the outcome of verifying a piece of content against
// the certificate store and the ledger
type VerificationResult struct {
	Certificate       *certificate.Certificate
	ExplorerURL       string
	ConfirmationDepth uint64
	Certified         bool
	Confirmed         bool
}

// Verify checks whether content is covered by an active certificate. The
// confirmed flag and depth come from a fresh ledger query rather than the
// stored record, so a caller never sees a stale settlement status. The
// freshly observed depth is not written back; the tracker owns the stored
// depth
func (e *Engine) Verify(
	ctx context.Context,
	content []byte,
) (VerificationResult, error) {
	contentDigest := digest.New(content)
	cert, err := e.db.GetActiveCertificateByDigest(ctx, contentDigest)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return VerificationResult{Certified: false}, nil
		}
		return VerificationResult{}, err
	}
	depth, err := e.ledger.Confirmations(ctx, cert.LedgerRef)
	if err != nil {
		return VerificationResult{}, err
	}
	return VerificationResult{
		Certificate:       &cert,
		ExplorerURL:       e.ledger.ExplorerURL(cert.LedgerRef),
		ConfirmationDepth: depth,
		Certified:         true,
		Confirmed:         depth >= e.confirmationThreshold,
	}, nil
}

// Get returns a certificate by ID. For a pending certificate it additionally
// refreshes the stored confirmation depth from the ledger on a best-effort
// basis; the guarded write keeps the stored depth monotonic even against a
// concurrent tracker
func (e *Engine) Get(
	ctx context.Context,
	id string,
) (certificate.Certificate, error) {
	cert, err := e.db.GetCertificate(ctx, id)
	if err != nil {
		return certificate.Certificate{}, err
	}
	if !cert.IsPending() {
		return cert, nil
	}
	depth, err := e.ledger.Confirmations(ctx, cert.LedgerRef)
	if err != nil {
		return cert, nil
	}
	changed, err := e.db.SetConfirmationDepth(ctx, id, depth)
	if err != nil || !changed {
		return cert, nil
	}
	return e.db.GetCertificate(ctx, id)
}

// CheckDigest returns the active certificate holding the given digest, or
// database.ErrNotFound
func (e *Engine) CheckDigest(
	ctx context.Context,
	contentDigest digest.Digest,
) (certificate.Certificate, error) {
	return e.db.GetActiveCertificateByDigest(ctx, contentDigest)
}

// List returns certificates issued to a claimant
func (e *Engine) List(
	ctx context.Context,
	claimantId string,
	opts database.ListOptions,
) ([]certificate.Certificate, error) {
	return e.db.ListCertificatesByClaimant(ctx, claimantId, opts)
}

// Stats returns certification statistics
func (e *Engine) Stats(ctx context.Context) (database.Stats, error) {
	return e.db.CertificateStats(ctx)
}

// Revoke transitions a certificate to revoked with the reason recorded in
// its metadata and cancels any running tracker for it. The store write is
// guarded on the state observed at read, so a tracker confirming the
// certificate mid-revocation never loses its confirmation time or depth; the
// revocation simply retries against the confirmed state. Revoking an already
// revoked certificate fails with certificate.ErrAlreadyRevoked
func (e *Engine) Revoke(
	ctx context.Context,
	id string,
	reason string,
) (certificate.Certificate, error) {
	var revoked certificate.Certificate
	for {
		cert, err := e.db.GetCertificate(ctx, id)
		if err != nil {
			return certificate.Certificate{}, err
		}
		revoked, err = cert.Revoke(reason, time.Now())
		if err != nil {
			return certificate.Certificate{}, err
		}
		landed, err := e.db.RevokeCertificate(ctx, revoked, cert.State)
		if err != nil {
			return certificate.Certificate{}, err
		}
		if landed {
			break
		}
		// State changed between the read and the write; retry against the
		// fresh state
	}
	e.stopTracker(id)
	e.logger.Info(
		"certificate revoked",
		"component", "certify",
		"certificate_id", id,
		"reason", reason,
	)
	if e.metrics != nil {
		e.metrics.revoked.Inc()
	}
	return revoked, nil
}

// BulkItem is one entry in a bulk certification
type BulkItem struct {
	Metadata map[string]string
	Category certificate.Category
	Content  []byte
}

// BulkResult is the per-item outcome of a bulk certification
type BulkResult struct {
	Err         error
	Certificate *certificate.Certificate
}

// BulkCertify applies Certify to each item in order. A failing item never
// aborts the batch; each result carries its own certificate or error
func (e *Engine) BulkCertify(
	ctx context.Context,
	claimantId string,
	items []BulkItem,
) []BulkResult {
	ret := make([]BulkResult, 0, len(items))
	for _, item := range items {
		cert, err := e.Certify(ctx, Request{
			Content:    item.Content,
			Category:   item.Category,
			ClaimantID: claimantId,
			Metadata:   item.Metadata,
		})
		if err != nil {
			ret = append(ret, BulkResult{Err: err})
			continue
		}
		ret = append(ret, BulkResult{Certificate: &cert})
	}
	return ret
}

// ResumeTracking restarts confirmation trackers for certificates that were
// still pending when the process last stopped
func (e *Engine) ResumeTracking(ctx context.Context) error {
	pending, err := e.db.ListPendingCertificates(ctx)
	if err != nil {
		return fmt.Errorf("listing pending certificates: %w", err)
	}
	for _, cert := range pending {
		e.startTracker(cert)
	}
	if len(pending) > 0 {
		e.logger.Info(
			"resumed confirmation tracking",
			"component", "certify",
			"count", len(pending),
		)
	}
	return nil
}

// Stop cancels all running trackers and waits for them to exit, bounded by
// the provided context
func (e *Engine) Stop(ctx context.Context) error {
	e.stopOnce.Do(func() {
		e.trackersMu.Lock()
		e.stopped = true
		e.trackersMu.Unlock()
		close(e.shutdownCh)
	})
	done := make(chan struct{})
	go func() {
		e.trackersWg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (e *Engine) isStopped() bool {
	e.trackersMu.Lock()
	defer e.trackersMu.Unlock()
	return e.stopped
}

func newCertificateId() (string, error) {
	// UUIDv7 keeps generated IDs time-ordered
	id, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("generating certificate ID: %w", err)
	}
	return certificateIdPrefix + id.String(), nil
}
