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

package certificate

import (
	"errors"
	"fmt"
	"maps"
	"time"

	"github.com/blinklabs-io/sigil/digest"
)

// DefaultConfirmationThreshold is the confirmation depth at which a pending
// certificate is considered settled
const DefaultConfirmationThreshold uint64 = 6

// Metadata keys added by revocation
const (
	MetadataRevocationReason = "revocation_reason"
	MetadataRevokedAt        = "revoked_at"
)

var (
	ErrAlreadyRevoked  = errors.New("certificate is already revoked")
	ErrInvalidCategory = errors.New("invalid content category")
)

type State string

const (
	StatePending   State = "pending"
	StateConfirmed State = "confirmed"
	StateRevoked   State = "revoked"
)

// Valid returns true if the State is a known state
func (s State) Valid() bool {
	switch s {
	case StatePending, StateConfirmed, StateRevoked:
		return true
	default:
		return false
	}
}

type Category string

const (
	CategoryArticle     Category = "article"
	CategoryVideo       Category = "video"
	CategoryImage       Category = "image"
	CategoryDocument    Category = "document"
	CategoryAudio       Category = "audio"
	CategoryShortPost   Category = "short-post"
	CategoryGenericPost Category = "generic-post"
)

// Categories returns all known content categories
func Categories() []Category {
	return []Category{
		CategoryArticle,
		CategoryVideo,
		CategoryImage,
		CategoryDocument,
		CategoryAudio,
		CategoryShortPost,
		CategoryGenericPost,
	}
}

// Valid returns true if the Category is a known category
func (c Category) Valid() bool {
	switch c {
	case CategoryArticle, CategoryVideo, CategoryImage, CategoryDocument,
		CategoryAudio, CategoryShortPost, CategoryGenericPost:
		return true
	default:
		return false
	}
}

// ParseCategory validates an externally supplied category name
func ParseCategory(s string) (Category, error) {
	c := Category(s)
	if !c.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidCategory, s)
	}
	return c, nil
}

// Certificate is the settlement record binding a content digest to a claimant
// identity and a ledger anchor. It is an immutable value: state changes are
// expressed as transition functions returning a new value, which are applied
// through the store's guarded update operations
type Certificate struct {
	CreatedAt         time.Time
	ConfirmedAt       *time.Time
	Metadata          map[string]string
	ID                string
	LedgerRef         string
	ClaimantID        string
	ContentDigest     digest.Digest
	Category          Category
	State             State
	ConfirmationDepth uint64
}

// New constructs a pending certificate at issuance time
func New(
	id string,
	contentDigest digest.Digest,
	category Category,
	ledgerRef string,
	claimantID string,
	metadata map[string]string,
	now time.Time,
) Certificate {
	return Certificate{
		ID:                id,
		ContentDigest:     contentDigest,
		Category:          category,
		LedgerRef:         ledgerRef,
		ClaimantID:        claimantID,
		Metadata:          cloneMetadata(metadata),
		State:             StatePending,
		ConfirmationDepth: 0,
		CreatedAt:         now,
	}
}

func (c Certificate) IsPending() bool {
	return c.State == StatePending
}

func (c Certificate) IsConfirmed() bool {
	return c.State == StateConfirmed
}

func (c Certificate) IsRevoked() bool {
	return c.State == StateRevoked
}

// ApplyDepth returns a copy of the certificate with the observed confirmation
// depth applied, and whether anything changed. A depth lower than the stored
// depth is treated as a stale ledger read and discarded, keeping the stored
// depth monotonic. When the depth reaches the threshold on a pending
// certificate, the copy transitions to confirmed with ConfirmedAt set; the
// transition is one-way and ConfirmedAt is never overwritten. A revoked
// certificate never changes
func (c Certificate) ApplyDepth(
	depth uint64,
	threshold uint64,
	now time.Time,
) (Certificate, bool) {
	if c.State == StateRevoked {
		return c, false
	}
	changed := false
	if depth > c.ConfirmationDepth {
		c.ConfirmationDepth = depth
		changed = true
	}
	if c.State == StatePending && c.ConfirmationDepth >= threshold {
		c.State = StateConfirmed
		confirmedAt := now
		c.ConfirmedAt = &confirmedAt
		changed = true
	}
	return c, changed
}

// Revoke returns a revoked copy of the certificate with the reason and
// revocation time recorded in its metadata. Revoking from pending or
// confirmed is permitted; ConfirmedAt is preserved. Revoking an already
// revoked certificate fails with ErrAlreadyRevoked
func (c Certificate) Revoke(
	reason string,
	now time.Time,
) (Certificate, error) {
	if c.State == StateRevoked {
		return c, ErrAlreadyRevoked
	}
	c.State = StateRevoked
	c.Metadata = cloneMetadata(c.Metadata)
	if c.Metadata == nil {
		c.Metadata = make(map[string]string)
	}
	c.Metadata[MetadataRevocationReason] = reason
	c.Metadata[MetadataRevokedAt] = now.UTC().Format(time.RFC3339)
	return c, nil
}

// Validate checks the structural invariants of the certificate
func (c Certificate) Validate() error {
	if c.ID == "" {
		return errors.New("certificate ID is empty")
	}
	if c.ContentDigest.IsZero() {
		return errors.New("certificate content digest is empty")
	}
	if !c.Category.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidCategory, c.Category)
	}
	if c.ClaimantID == "" {
		return errors.New("certificate claimant ID is empty")
	}
	if !c.State.Valid() {
		return fmt.Errorf("invalid certificate state: %q", c.State)
	}
	// ConfirmedAt is set exactly when the certificate is confirmed, except
	// that revocation preserves it
	if c.State == StateConfirmed && c.ConfirmedAt == nil {
		return errors.New("confirmed certificate missing confirmation time")
	}
	if c.State == StatePending && c.ConfirmedAt != nil {
		return errors.New("pending certificate has confirmation time set")
	}
	return nil
}

// VerificationURL returns the public verification link for the certificate
func (c Certificate) VerificationURL(baseUrl string) string {
	return fmt.Sprintf("%s/verify/%s", baseUrl, c.ID)
}

// AgeIn returns the certificate age relative to the given time
func (c Certificate) AgeIn(now time.Time) time.Duration {
	return now.Sub(c.CreatedAt)
}

func cloneMetadata(metadata map[string]string) map[string]string {
	if metadata == nil {
		return nil
	}
	return maps.Clone(metadata)
}
