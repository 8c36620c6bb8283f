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

package claimant_test

import (
	"testing"

	"github.com/blinklabs-io/sigil/claimant"
)

func TestEligible(t *testing.T) {
	testDefs := []struct {
		score    float64
		verified bool
		expected bool
	}{
		{49, true, false},
		{50, true, true},
		{100, true, true},
		{100, false, false},
		{0, true, false},
	}
	for _, testDef := range testDefs {
		c := claimant.Claimant{
			ID:               "claimant_1",
			EligibilityScore: testDef.score,
			Verified:         testDef.verified,
		}
		got := c.Eligible(claimant.DefaultEligibilityThreshold)
		if got != testDef.expected {
			t.Fatalf(
				"unexpected eligibility for score=%.0f verified=%v: got %v",
				testDef.score,
				testDef.verified,
				got,
			)
		}
	}
}

func TestTrustLevel(t *testing.T) {
	testDefs := []struct {
		score    float64
		expected claimant.TrustLevel
	}{
		{100, claimant.TrustLevelPlatinum},
		{95, claimant.TrustLevelPlatinum},
		{94, claimant.TrustLevelGold},
		{85, claimant.TrustLevelGold},
		{70, claimant.TrustLevelSilver},
		{50, claimant.TrustLevelBronze},
		{49, claimant.TrustLevelUnranked},
		{0, claimant.TrustLevelUnranked},
	}
	for _, testDef := range testDefs {
		c := claimant.Claimant{EligibilityScore: testDef.score}
		if got := c.TrustLevel(); got != testDef.expected {
			t.Fatalf(
				"unexpected trust level for score %.0f: got %s, wanted %s",
				testDef.score,
				got,
				testDef.expected,
			)
		}
	}
}
