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

// Package ledger defines the contract the certification core needs from an
// external append-only settlement system. No concrete protocol or consensus
// rule is mandated here; adapters live in subpackages
package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/blinklabs-io/sigil/digest"
)

// SubmitPayload is the anchoring record written to the ledger
type SubmitPayload struct {
	Timestamp     time.Time
	Metadata      map[string]string
	Category      string
	ClaimantID    string
	ContentDigest digest.Digest
}

// Port is the capability the core consumes: anchor a record, observe its
// confirmation depth, and render a human-readable locator
type Port interface {
	// Submit anchors the payload and returns an opaque transaction reference
	Submit(ctx context.Context, payload SubmitPayload) (string, error)
	// Confirmations returns the current confirmation depth of a previously
	// submitted transaction
	Confirmations(ctx context.Context, ref string) (uint64, error)
	// ExplorerURL returns a display URL for the transaction
	ExplorerURL(ref string) string
}

// UnavailableError wraps any transport or node failure from a ledger adapter
type UnavailableError struct {
	Err error
	Op  string
}

func (e *UnavailableError) Error() string {
	return fmt.Sprintf("ledger unavailable during %s: %s", e.Op, e.Err)
}

func (e *UnavailableError) Unwrap() error {
	return e.Err
}

// NewUnavailableError wraps err as an UnavailableError for the given operation
func NewUnavailableError(op string, err error) *UnavailableError {
	return &UnavailableError{Op: op, Err: err}
}
