package persistence

import (
	"context"
	"errors"

	"github.com/docintake/backend/internal/domain/intake"
	"github.com/docintake/backend/internal/domain/shared"
	"github.com/docintake/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormChecksumIndex implements intake.ChecksumIndex using GORM. Uniqueness
// of active checksums is enforced by a partial unique index
// (WHERE revoked = false), so Register is atomic at the database level:
// of two concurrent inserts for the same checksum exactly one wins.
type GormChecksumIndex struct {
	db *gorm.DB
}

var _ intake.ChecksumIndex = (*GormChecksumIndex)(nil)

// NewGormChecksumIndex creates a new GormChecksumIndex
func NewGormChecksumIndex(db *gorm.DB) *GormChecksumIndex {
	return &GormChecksumIndex{db: db}
}

// FindActive finds the non-revoked artifact for a checksum, if any
func (r *GormChecksumIndex) FindActive(ctx context.Context, checksum string) (*intake.Artifact, error) {
	var model models.ChecksumIndexModel
	if err := r.db.WithContext(ctx).
		First(&model, "checksum = ? AND revoked = false", checksum).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// Register inserts the artifact if its checksum is not already active.
// ON CONFLICT DO NOTHING turns a lost race into zero affected rows, which
// is reported as shared.ErrDuplicateContent.
func (r *GormChecksumIndex) Register(ctx context.Context, artifact *intake.Artifact) error {
	var model models.ChecksumIndexModel
	model.FromDomain(artifact)
	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&model)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrDuplicateContent
	}
	return nil
}

// Revoke marks the active artifact for a checksum as revoked, freeing the
// checksum for re-ingestion
func (r *GormChecksumIndex) Revoke(ctx context.Context, checksum string) error {
	result := r.db.WithContext(ctx).
		Model(&models.ChecksumIndexModel{}).
		Where("checksum = ? AND revoked = false", checksum).
		Updates(map[string]any{
			"revoked":    true,
			"revoked_at": gorm.Expr("NOW()"),
			"updated_at": gorm.Expr("NOW()"),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}
