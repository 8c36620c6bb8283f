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
	"time"

	"github.com/blinklabs-io/sigil/claimant"
)

type Claimant struct {
	CreatedAt           time.Time
	LastActiveAt        time.Time
	ID                  string `gorm:"primaryKey"`
	EligibilityScore    float64
	TotalCertifications uint64
	Verified            bool
}

func (Claimant) TableName() string {
	return "claimant"
}

// ClaimantFromEntity converts a claimant record into its storage row
func ClaimantFromEntity(c claimant.Claimant) Claimant {
	return Claimant{
		ID:                  c.ID,
		EligibilityScore:    c.EligibilityScore,
		TotalCertifications: c.TotalCertifications,
		Verified:            c.Verified,
		CreatedAt:           c.CreatedAt,
		LastActiveAt:        c.LastActiveAt,
	}
}

// ToEntity converts a storage row back into a claimant record
func (c Claimant) ToEntity() claimant.Claimant {
	return claimant.Claimant{
		ID:                  c.ID,
		EligibilityScore:    c.EligibilityScore,
		TotalCertifications: c.TotalCertifications,
		Verified:            c.Verified,
		CreatedAt:           c.CreatedAt,
		LastActiveAt:        c.LastActiveAt,
	}
}
