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
	"fmt"
	"time"

	"github.com/blinklabs-io/sigil/certificate"
	"github.com/blinklabs-io/sigil/database/models"
	"github.com/blinklabs-io/sigil/digest"
	badger "github.com/dgraph-io/badger/v4"
	"gorm.io/gorm"
)

const defaultListLimit = 50

var blobContentKeyPrefix = []byte("content/")

// InsertCertificateIfAbsent persists a new certificate unless an active
// (non-revoked) certificate already holds its content digest. It returns the
// stored certificate and whether an insert happened; when it returns false,
// the returned certificate is the existing holder. The check and insert run
// in one transaction so concurrent issuances of the same content cannot both
// insert
func (d *Database) InsertCertificateIfAbsent(
	ctx context.Context,
	cert certificate.Certificate,
) (certificate.Certificate, bool, error) {
	var existing models.Certificate
	inserted := false
	err := d.metadata.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.
			Where(
				"content_digest = ? AND state <> ?",
				cert.ContentDigest.String(),
				string(certificate.StateRevoked),
			).
			First(&existing)
		if result.Error == nil {
			return nil
		}
		if !errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return result.Error
		}
		model, err := models.CertificateFromEntity(cert)
		if err != nil {
			return err
		}
		if err := tx.Create(&model).Error; err != nil {
			return err
		}
		inserted = true
		return nil
	})
	if err != nil {
		return certificate.Certificate{}, false, err
	}
	if !inserted {
		existingCert, err := existing.ToEntity()
		if err != nil {
			return certificate.Certificate{}, false, err
		}
		return existingCert, false, nil
	}
	return cert, true, nil
}

// GetCertificate returns the certificate with the given ID, or ErrNotFound
func (d *Database) GetCertificate(
	ctx context.Context,
	id string,
) (certificate.Certificate, error) {
	var model models.Certificate
	result := d.metadata.WithContext(ctx).
		Where("id = ?", id).
		First(&model)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return certificate.Certificate{}, ErrNotFound
		}
		return certificate.Certificate{}, result.Error
	}
	return model.ToEntity()
}

// GetActiveCertificateByDigest returns the non-revoked certificate holding
// the given content digest, or ErrNotFound
func (d *Database) GetActiveCertificateByDigest(
	ctx context.Context,
	contentDigest digest.Digest,
) (certificate.Certificate, error) {
	var model models.Certificate
	result := d.metadata.WithContext(ctx).
		Where(
			"content_digest = ? AND state <> ?",
			contentDigest.String(),
			string(certificate.StateRevoked),
		).
		First(&model)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return certificate.Certificate{}, ErrNotFound
		}
		return certificate.Certificate{}, result.Error
	}
	return model.ToEntity()
}

// RevokeCertificate transitions a certificate to revoked, writing only the
// state and metadata columns. The write is guarded on the state the caller
// observed, so a confirmation landing between the caller's read and this
// write misses the guard instead of losing its confirmation time or depth.
// Returns whether the write landed
func (d *Database) RevokeCertificate(
	ctx context.Context,
	cert certificate.Certificate,
	fromState certificate.State,
) (bool, error) {
	model, err := models.CertificateFromEntity(cert)
	if err != nil {
		return false, err
	}
	result := d.metadata.WithContext(ctx).
		Model(&models.Certificate{}).
		Where("id = ? AND state = ?", cert.ID, string(fromState)).
		Select("state", "metadata").
		Updates(&model)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// SetConfirmationDepth records an observed confirmation depth for a pending
// certificate. The write is a compare-and-set: it only lands if the new
// depth is higher than the stored one, so a stale ledger read arriving after
// a newer one is discarded and the stored depth stays monotonic. Returns
// whether the write landed
func (d *Database) SetConfirmationDepth(
	ctx context.Context,
	id string,
	depth uint64,
) (bool, error) {
	result := d.metadata.WithContext(ctx).
		Model(&models.Certificate{}).
		Where(
			"id = ? AND state = ? AND confirmation_depth < ?",
			id,
			string(certificate.StatePending),
			depth,
		).
		Update("confirmation_depth", depth)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// ConfirmCertificate transitions a pending certificate to confirmed. The
// guard on the current state makes the transition one-way and ensures the
// confirmation time is set exactly once, even with a racing revocation or a
// duplicate tracker. Returns whether the transition happened
func (d *Database) ConfirmCertificate(
	ctx context.Context,
	id string,
	depth uint64,
	confirmedAt time.Time,
) (bool, error) {
	result := d.metadata.WithContext(ctx).
		Model(&models.Certificate{}).
		Where(
			"id = ? AND state = ?",
			id,
			string(certificate.StatePending),
		).
		Updates(map[string]any{
			"state":              string(certificate.StateConfirmed),
			"confirmed_at":       confirmedAt,
			"confirmation_depth": gorm.Expr("MAX(confirmation_depth, ?)", depth),
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// ListOptions filters ListCertificatesByClaimant
type ListOptions struct {
	State  certificate.State
	Limit  int
	Offset int
}

// ListCertificatesByClaimant returns certificates issued to a claimant,
// newest first
func (d *Database) ListCertificatesByClaimant(
	ctx context.Context,
	claimantId string,
	opts ListOptions,
) ([]certificate.Certificate, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	query := d.metadata.WithContext(ctx).
		Where("claimant_id = ?", claimantId)
	if opts.State != "" {
		query = query.Where("state = ?", string(opts.State))
	}
	var rows []models.Certificate
	result := query.
		Order("created_at DESC").
		Limit(limit).
		Offset(opts.Offset).
		Find(&rows)
	if result.Error != nil {
		return nil, result.Error
	}
	ret := make([]certificate.Certificate, 0, len(rows))
	for _, row := range rows {
		cert, err := row.ToEntity()
		if err != nil {
			return nil, err
		}
		ret = append(ret, cert)
	}
	return ret, nil
}

// ListPendingCertificates returns all certificates still awaiting
// settlement, oldest first. Used to resume confirmation tracking after a
// restart
func (d *Database) ListPendingCertificates(
	ctx context.Context,
) ([]certificate.Certificate, error) {
	var rows []models.Certificate
	result := d.metadata.WithContext(ctx).
		Where("state = ?", string(certificate.StatePending)).
		Order("created_at ASC").
		Find(&rows)
	if result.Error != nil {
		return nil, result.Error
	}
	ret := make([]certificate.Certificate, 0, len(rows))
	for _, row := range rows {
		cert, err := row.ToEntity()
		if err != nil {
			return nil, err
		}
		ret = append(ret, cert)
	}
	return ret, nil
}

// Stats summarizes the stored certificates
type Stats struct {
	ByCategory map[string]int64
	Total      int64
	Pending    int64
	Confirmed  int64
	Revoked    int64
}

// CertificateStats returns certification statistics
func (d *Database) CertificateStats(ctx context.Context) (Stats, error) {
	ret := Stats{
		ByCategory: make(map[string]int64),
	}
	type stateCount struct {
		State string
		Count int64
	}
	var stateCounts []stateCount
	result := d.metadata.WithContext(ctx).
		Model(&models.Certificate{}).
		Select("state, COUNT(*) AS count").
		Group("state").
		Find(&stateCounts)
	if result.Error != nil {
		return ret, result.Error
	}
	for _, row := range stateCounts {
		ret.Total += row.Count
		switch certificate.State(row.State) {
		case certificate.StatePending:
			ret.Pending = row.Count
		case certificate.StateConfirmed:
			ret.Confirmed = row.Count
		case certificate.StateRevoked:
			ret.Revoked = row.Count
		}
	}
	type categoryCount struct {
		Category string
		Count    int64
	}
	var categoryCounts []categoryCount
	result = d.metadata.WithContext(ctx).
		Model(&models.Certificate{}).
		Select("category, COUNT(*) AS count").
		Group("category").
		Find(&categoryCounts)
	if result.Error != nil {
		return ret, result.Error
	}
	for _, row := range categoryCounts {
		ret.ByCategory[row.Category] = row.Count
	}
	return ret, nil
}

// PutContent archives the raw bytes of certified content in the blob store,
// keyed by digest
func (d *Database) PutContent(
	contentDigest digest.Digest,
	content []byte,
) error {
	key := blobContentKey(contentDigest)
	return d.blob.Update(func(txn *badger.Txn) error {
		return txn.Set(key, content)
	})
}

// GetContent returns previously archived content bytes, or ErrNotFound
func (d *Database) GetContent(
	contentDigest digest.Digest,
) ([]byte, error) {
	key := blobContentKey(contentDigest)
	var ret []byte
	err := d.blob.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return ErrNotFound
			}
			return err
		}
		ret, err = item.ValueCopy(nil)
		return err
	})
	if err != nil {
		return nil, err
	}
	return ret, nil
}

func blobContentKey(contentDigest digest.Digest) []byte {
	return fmt.Appendf(nil, "%s%s", blobContentKeyPrefix, contentDigest)
}
