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

// Package claimant defines the identity contract consumed by the
// certification core. Claimant records are owned by an external identity
// system; the core only reads eligibility and bumps an issuance counter
package claimant

import (
	"context"
	"errors"
	"time"
)

// DefaultEligibilityThreshold is the minimum eligibility score required to
// certify content
const DefaultEligibilityThreshold float64 = 50

var ErrNotFound = errors.New("claimant not found")

type TrustLevel string

const (
	TrustLevelPlatinum TrustLevel = "platinum"
	TrustLevelGold     TrustLevel = "gold"
	TrustLevelSilver   TrustLevel = "silver"
	TrustLevelBronze   TrustLevel = "bronze"
	TrustLevelUnranked TrustLevel = "unranked"
)

// Claimant is a read-only view of an identity asserting authorship of
// certified content
type Claimant struct {
	CreatedAt           time.Time
	LastActiveAt        time.Time
	ID                  string
	EligibilityScore    float64
	TotalCertifications uint64
	Verified            bool
}

// Eligible returns true if the claimant passes the trust gate: a verified
// identity with an eligibility score at or above the threshold
func (c Claimant) Eligible(threshold float64) bool {
	return c.EligibilityScore >= threshold && c.Verified
}

// TrustLevel buckets the eligibility score for display
func (c Claimant) TrustLevel() TrustLevel {
	switch {
	case c.EligibilityScore >= 95:
		return TrustLevelPlatinum
	case c.EligibilityScore >= 85:
		return TrustLevelGold
	case c.EligibilityScore >= 70:
		return TrustLevelSilver
	case c.EligibilityScore >= 50:
		return TrustLevelBronze
	default:
		return TrustLevelUnranked
	}
}

// Resolver resolves claimant identities and records their activity
type Resolver interface {
	// Resolve returns the claimant for the given ID, or ErrNotFound
	Resolve(ctx context.Context, claimantId string) (*Claimant, error)
	// RecordIssuance increments the claimant's issuance counter. Best-effort:
	// callers treat failures as non-fatal
	RecordIssuance(ctx context.Context, claimantId string) error
}
