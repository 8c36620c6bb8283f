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

package reward_test

import (
	"testing"

	"github.com/blinklabs-io/sigil/certificate"
	"github.com/blinklabs-io/sigil/reward"
)

func TestCalculate(t *testing.T) {
	testDefs := []struct {
		category certificate.Category
		score    float64
		expected uint64
	}{
		{certificate.CategoryArticle, 100, 10},
		{certificate.CategoryArticle, 85, 8},
		{certificate.CategoryVideo, 85, 12},
		{certificate.CategoryImage, 50, 2},
		{certificate.CategoryDocument, 99, 7},
		{certificate.CategoryAudio, 100, 7},
		{certificate.CategoryShortPost, 100, 3},
		{certificate.CategoryGenericPost, 60, 3},
		// Unknown categories fall back to the default base amount
		{certificate.Category("bogus"), 100, 5},
		// Scores are clamped
		{certificate.CategoryArticle, 0, 0},
		{certificate.CategoryArticle, -5, 0},
		{certificate.CategoryArticle, 150, 10},
	}
	for _, testDef := range testDefs {
		got := reward.Calculate(testDef.score, testDef.category)
		if got != testDef.expected {
			t.Fatalf(
				"unexpected reward for %s at score %.0f: got %d, wanted %d",
				testDef.category,
				testDef.score,
				got,
				testDef.expected,
			)
		}
	}
}
