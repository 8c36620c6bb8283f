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

package models

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/blinklabs-io/sigil/certificate"
	"github.com/blinklabs-io/sigil/digest"
)

type Certificate struct {
	CreatedAt         time.Time
	ConfirmedAt       *time.Time
	ID                string `gorm:"primaryKey"`
	ContentDigest     string `gorm:"index"`
	Category          string
	LedgerRef         string
	ClaimantID        string `gorm:"index"`
	Metadata          string
	State             string `gorm:"index"`
	ConfirmationDepth uint64
}

func (Certificate) TableName() string {
	return "certificate"
}

// CertificateFromEntity converts a domain certificate into its storage row
func CertificateFromEntity(
	cert certificate.Certificate,
) (Certificate, error) {
	ret := Certificate{
		ID:                cert.ID,
		ContentDigest:     cert.ContentDigest.String(),
		Category:          string(cert.Category),
		LedgerRef:         cert.LedgerRef,
		ClaimantID:        cert.ClaimantID,
		State:             string(cert.State),
		ConfirmationDepth: cert.ConfirmationDepth,
		CreatedAt:         cert.CreatedAt,
		ConfirmedAt:       cert.ConfirmedAt,
	}
	if len(cert.Metadata) > 0 {
		raw, err := json.Marshal(cert.Metadata)
		if err != nil {
			return ret, fmt.Errorf(
				"encoding certificate metadata: %w",
				err,
			)
		}
		ret.Metadata = string(raw)
	}
	return ret, nil
}

// ToEntity converts a storage row back into a domain certificate
func (c Certificate) ToEntity() (certificate.Certificate, error) {
	contentDigest, err := digest.Parse(c.ContentDigest)
	if err != nil {
		return certificate.Certificate{}, fmt.Errorf(
			"certificate %s: %w",
			c.ID,
			err,
		)
	}
	ret := certificate.Certificate{
		ID:                c.ID,
		ContentDigest:     contentDigest,
		Category:          certificate.Category(c.Category),
		LedgerRef:         c.LedgerRef,
		ClaimantID:        c.ClaimantID,
		State:             certificate.State(c.State),
		ConfirmationDepth: c.ConfirmationDepth,
		CreatedAt:         c.CreatedAt,
		ConfirmedAt:       c.ConfirmedAt,
	}
	if c.Metadata != "" {
		if err := json.Unmarshal([]byte(c.Metadata), &ret.Metadata); err != nil {
			return certificate.Certificate{}, fmt.Errorf(
				"decoding certificate metadata for %s: %w",
				c.ID,
				err,
			)
		}
	}
	return ret, nil
}
