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

package database

import (
	"context"
	"errors"
	"time"

	"github.com/blinklabs-io/sigil/claimant"
	"github.com/blinklabs-io/sigil/database/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GetClaimant returns the claimant record with the given ID, or
// claimant.ErrNotFound
func (d *Database) GetClaimant(
	ctx context.Context,
	id string,
) (*claimant.Claimant, error) {
	var model models.Claimant
	result := d.metadata.WithContext(ctx).
		Where("id = ?", id).
		First(&model)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, claimant.ErrNotFound
		}
		return nil, result.Error
	}
	ret := model.ToEntity()
	return &ret, nil
}

// UpsertClaimant creates or replaces a claimant record
func (d *Database) UpsertClaimant(
	ctx context.Context,
	c claimant.Claimant,
) error {
	model := models.ClaimantFromEntity(c)
	if model.CreatedAt.IsZero() {
		model.CreatedAt = time.Now()
	}
	if model.LastActiveAt.IsZero() {
		model.LastActiveAt = model.CreatedAt
	}
	return d.metadata.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			UpdateAll: true,
		}).
		Create(&model).
		Error
}

// IncrementClaimantIssuance bumps the claimant's issuance counter and
// activity timestamp
func (d *Database) IncrementClaimantIssuance(
	ctx context.Context,
	id string,
) error {
	result := d.metadata.WithContext(ctx).
		Model(&models.Claimant{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"total_certifications": gorm.Expr("total_certifications + 1"),
			"last_active_at":       time.Now(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return claimant.ErrNotFound
	}
	return nil
}

// ClaimantResolver adapts the database into the claimant.Resolver contract
// consumed by the certification engine
type ClaimantResolver struct {
	db *Database
}

func NewClaimantResolver(db *Database) *ClaimantResolver {
	return &ClaimantResolver{db: db}
}

func (r *ClaimantResolver) Resolve(
	ctx context.Context,
	claimantId string,
) (*claimant.Claimant, error) {
	return r.db.GetClaimant(ctx, claimantId)
}

func (r *ClaimantResolver) RecordIssuance(
	ctx context.Context,
	claimantId string,
) error {
	return r.db.IncrementClaimantIssuance(ctx, claimantId)
}
