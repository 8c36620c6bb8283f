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
	"errors"
	"fmt"

	"github.com/blinklabs-io/sigil/digest"
)

var (
	ErrShutdown     = errors.New("certification engine is shut down")
	ErrEmptyContent = errors.New("content is empty")
)

// IneligibleClaimantError is returned when a claimant fails the trust gate at
// issuance time. It carries the observed score for diagnostics
type IneligibleClaimantError struct {
	ClaimantID string
	Score      float64
	Threshold  float64
	Verified   bool
}

func (e *IneligibleClaimantError) Error() string {
	if !e.Verified {
		return fmt.Sprintf(
			"claimant %s is not eligible: identity not verified",
			e.ClaimantID,
		)
	}
	return fmt.Sprintf(
		"claimant %s is not eligible: score %.1f below threshold %.1f",
		e.ClaimantID,
		e.Score,
		e.Threshold,
	)
}

// DuplicateContentError is returned when content is already held by an active
// certificate. It carries the existing certificate's ID so the caller can
// reference it
type DuplicateContentError struct {
	ExistingID    string
	ContentDigest digest.Digest
}

func (e *DuplicateContentError) Error() string {
	return fmt.Sprintf(
		"content already certified by %s (digest %s)",
		e.ExistingID,
		e.ContentDigest.Short(),
	)
}
