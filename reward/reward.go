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

// Package reward defines the incentive payout contract. Rewards are advisory:
// a failed or disabled payout never affects certification outcome
package reward

import (
	"context"

	"github.com/blinklabs-io/sigil/certificate"
)

// DefaultBaseAmount is used for categories without an explicit base amount
const DefaultBaseAmount uint64 = 5

// baseAmounts are the per-category token base amounts
var baseAmounts = map[certificate.Category]uint64{
	certificate.CategoryArticle:     10,
	certificate.CategoryVideo:       15,
	certificate.CategoryImage:       5,
	certificate.CategoryDocument:    8,
	certificate.CategoryAudio:       7,
	certificate.CategoryShortPost:   3,
	certificate.CategoryGenericPost: 5,
}

// Receipt records a completed payout
type Receipt struct {
	TxRef         string
	ClaimantID    string
	CertificateID string
	Amount        uint64
}

// Port pays an incentive for a completed certification. A nil receipt with a
// nil error means the reward subsystem is disabled
type Port interface {
	Reward(
		ctx context.Context,
		claimantId string,
		amount uint64,
		certificateId string,
	) (*Receipt, error)
}

// Calculate derives the payout amount from the claimant's eligibility score
// and the content category: floor(baseAmount * score / 100)
func Calculate(
	eligibilityScore float64,
	category certificate.Category,
) uint64 {
	baseAmount, ok := baseAmounts[category]
	if !ok {
		baseAmount = DefaultBaseAmount
	}
	if eligibilityScore <= 0 {
		return 0
	}
	if eligibilityScore > 100 {
		eligibilityScore = 100
	}
	return uint64(float64(baseAmount) * eligibilityScore / 100)
}
