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

package certificate_test

import (
	"errors"
	"testing"
	"time"

	"github.com/blinklabs-io/sigil/certificate"
	"github.com/blinklabs-io/sigil/digest"
)

func testCertificate() certificate.Certificate {
	return certificate.New(
		"cert_test_1",
		digest.New([]byte("test content")),
		certificate.CategoryDocument,
		"tx_ref_1",
		"claimant_1",
		map[string]string{"title": "test"},
		time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC),
	)
}

func TestNewIsPending(t *testing.T) {
	cert := testCertificate()
	if !cert.IsPending() {
		t.Fatalf("new certificate not pending: %s", cert.State)
	}
	if cert.ConfirmationDepth != 0 {
		t.Fatalf(
			"new certificate has nonzero depth: %d",
			cert.ConfirmationDepth,
		)
	}
	if cert.ConfirmedAt != nil {
		t.Fatalf("new certificate has confirmation time set")
	}
	if err := cert.Validate(); err != nil {
		t.Fatalf("unexpected validation error: %v", err)
	}
}

func TestApplyDepthMonotonic(t *testing.T) {
	cert := testCertificate()
	now := time.Now()
	// Simulated out-of-order ledger reads
	depths := []uint64{0, 3, 2, 5}
	var persisted []uint64
	for _, depth := range depths {
		tmpCert, changed := cert.ApplyDepth(depth, 6, now)
		if changed {
			cert = tmpCert
			persisted = append(persisted, cert.ConfirmationDepth)
		}
	}
	expected := []uint64{3, 5}
	if len(persisted) != len(expected) {
		t.Fatalf(
			"unexpected persisted depth sequence: got %v, wanted %v",
			persisted,
			expected,
		)
	}
	for i := range expected {
		if persisted[i] != expected[i] {
			t.Fatalf(
				"unexpected persisted depth sequence: got %v, wanted %v",
				persisted,
				expected,
			)
		}
	}
	if !cert.IsPending() {
		t.Fatalf("certificate should still be pending at depth 5")
	}
}

func TestApplyDepthConfirmsAtThreshold(t *testing.T) {
	cert := testCertificate()
	now := time.Now()
	cert, changed := cert.ApplyDepth(6, 6, now)
	if !changed {
		t.Fatalf("expected change at threshold")
	}
	if !cert.IsConfirmed() {
		t.Fatalf("certificate not confirmed at threshold: %s", cert.State)
	}
	if cert.ConfirmedAt == nil || !cert.ConfirmedAt.Equal(now) {
		t.Fatalf("unexpected confirmation time: %v", cert.ConfirmedAt)
	}
	// Further depth updates must not touch ConfirmedAt
	later := now.Add(time.Minute)
	cert2, changed := cert.ApplyDepth(10, 6, later)
	if !changed {
		t.Fatalf("expected depth update on confirmed certificate")
	}
	if cert2.ConfirmationDepth != 10 {
		t.Fatalf("unexpected depth: %d", cert2.ConfirmationDepth)
	}
	if !cert2.ConfirmedAt.Equal(now) {
		t.Fatalf("confirmation time overwritten: %v", cert2.ConfirmedAt)
	}
}

func TestApplyDepthRevokedFrozen(t *testing.T) {
	cert := testCertificate()
	cert, err := cert.Revoke("test", time.Now())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	cert2, changed := cert.ApplyDepth(100, 6, time.Now())
	if changed {
		t.Fatalf("revoked certificate accepted depth update")
	}
	if cert2.ConfirmationDepth != cert.ConfirmationDepth {
		t.Fatalf("revoked certificate depth changed")
	}
}

func TestRevoke(t *testing.T) {
	cert := testCertificate()
	now := time.Now()
	revoked, err := cert.Revoke("copyright dispute", now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !revoked.IsRevoked() {
		t.Fatalf("certificate not revoked: %s", revoked.State)
	}
	if revoked.Metadata[certificate.MetadataRevocationReason] != "copyright dispute" {
		t.Fatalf("revocation reason not recorded: %v", revoked.Metadata)
	}
	if revoked.Metadata[certificate.MetadataRevokedAt] == "" {
		t.Fatalf("revocation time not recorded")
	}
	// Original value untouched
	if cert.IsRevoked() {
		t.Fatalf("original certificate value mutated")
	}
	if _, ok := cert.Metadata[certificate.MetadataRevocationReason]; ok {
		t.Fatalf("original certificate metadata mutated")
	}
	// Revoking again fails
	if _, err := revoked.Revoke("again", now); !errors.Is(err, certificate.ErrAlreadyRevoked) {
		t.Fatalf("expected ErrAlreadyRevoked, got %v", err)
	}
}

func TestRevokeConfirmedKeepsConfirmedAt(t *testing.T) {
	cert := testCertificate()
	now := time.Now()
	cert, _ = cert.ApplyDepth(6, 6, now)
	revoked, err := cert.Revoke("fraud", now.Add(time.Hour))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if revoked.ConfirmedAt == nil || !revoked.ConfirmedAt.Equal(now) {
		t.Fatalf(
			"revocation cleared confirmation time: %v",
			revoked.ConfirmedAt,
		)
	}
}

func TestParseCategory(t *testing.T) {
	for _, category := range certificate.Categories() {
		parsed, err := certificate.ParseCategory(string(category))
		if err != nil {
			t.Fatalf("unexpected error for %q: %v", category, err)
		}
		if parsed != category {
			t.Fatalf("category mismatch: %s != %s", parsed, category)
		}
	}
	if _, err := certificate.ParseCategory("tweet"); !errors.Is(err, certificate.ErrInvalidCategory) {
		t.Fatalf("expected ErrInvalidCategory, got %v", err)
	}
}

func TestValidate(t *testing.T) {
	cert := testCertificate()
	cert.Category = "bogus"
	if err := cert.Validate(); err == nil {
		t.Fatalf("expected validation error for bogus category")
	}
	cert = testCertificate()
	cert.State = certificate.StateConfirmed
	if err := cert.Validate(); err == nil {
		t.Fatalf("expected validation error for confirmed without timestamp")
	}
}
