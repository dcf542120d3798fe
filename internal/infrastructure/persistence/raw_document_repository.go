package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/docintake/backend/internal/domain/intake"
	"github.com/docintake/backend/internal/domain/shared"
	"github.com/docintake/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormRawDocumentRepository implements intake.RawDocumentRepository using GORM
type GormRawDocumentRepository struct {
	db *gorm.DB
}

var _ intake.RawDocumentRepository = (*GormRawDocumentRepository)(nil)

// NewGormRawDocumentRepository creates a new GormRawDocumentRepository
func NewGormRawDocumentRepository(db *gorm.DB) *GormRawDocumentRepository {
	return &GormRawDocumentRepository{db: db}
}

// FindByTransactionID finds the reconciliation record for a transaction
func (r *GormRawDocumentRepository) FindByTransactionID(ctx context.Context, transactionID uuid.UUID) (*intake.RawDocumentRecord, error) {
	var model models.RawDocumentModel
	if err := r.db.WithContext(ctx).First(&model, "transaction_id = ?", transactionID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// Save upserts the reconciliation record keyed by transaction ID
func (r *GormRawDocumentRepository) Save(ctx context.Context, record *intake.RawDocumentRecord) error {
	var model models.RawDocumentModel
	model.FromDomain(record)
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "transaction_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"declared_lines", "stored_lines", "parsed_lines",
				"status", "reason", "postable", "updated_at",
			}),
		}).
		Create(&model).Error
}

// StoreUnits persists the raw content units of a document and returns how
// many rows actually landed. A retried parse replaces the previous units so
// positions stay dense.
func (r *GormRawDocumentRepository) StoreUnits(ctx context.Context, transactionID uuid.UUID, units []string) (int, error) {
	stored := 0
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("transaction_id = ?", transactionID).
			Delete(&models.RawUnitModel{}).Error; err != nil {
			return err
		}
		if len(units) == 0 {
			return nil
		}
		now := time.Now()
		unitModels := make([]models.RawUnitModel, 0, len(units))
		for i, content := range units {
			unitModels = append(unitModels, models.RawUnitModel{
				TransactionID: transactionID,
				Position:      i,
				Content:       content,
				CreatedAt:     now,
			})
		}
		result := tx.CreateInBatches(unitModels, 500)
		if result.Error != nil {
			return result.Error
		}
		stored = int(result.RowsAffected)
		return nil
	})
	if err != nil {
		return 0, err
	}
	return stored, nil
}

// CountUnits re-reads the persisted unit count from the database
func (r *GormRawDocumentRepository) CountUnits(ctx context.Context, transactionID uuid.UUID) (int, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.RawUnitModel{}).
		Where("transaction_id = ?", transactionID).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return int(count), nil
}
