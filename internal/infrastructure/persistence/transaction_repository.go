package persistence

import (
	"context"
	"errors"

	"github.com/docintake/backend/internal/domain/intake"
	"github.com/docintake/backend/internal/domain/shared"
	"github.com/docintake/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormTransactionRepository implements intake.TransactionRepository using GORM
type GormTransactionRepository struct {
	db *gorm.DB
}

var _ intake.TransactionRepository = (*GormTransactionRepository)(nil)

// NewGormTransactionRepository creates a new GormTransactionRepository
func NewGormTransactionRepository(db *gorm.DB) *GormTransactionRepository {
	return &GormTransactionRepository{db: db}
}

// FindByID finds an upload transaction by its ID
func (r *GormTransactionRepository) FindByID(ctx context.Context, id uuid.UUID) (*intake.UploadTransaction, error) {
	var model models.UploadTransactionModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain()
}

// FindAll finds transactions matching the filter, newest first
func (r *GormTransactionRepository) FindAll(ctx context.Context, filter intake.TransactionFilter, page, pageSize int) (*shared.Paginated[*intake.UploadTransaction], error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 200 {
		pageSize = 20
	}

	applyFilter := func(query *gorm.DB) *gorm.DB {
		if filter.SourceID != nil {
			query = query.Where("source_id = ?", *filter.SourceID)
		}
		if filter.Status != nil {
			query = query.Where("status = ?", string(*filter.Status))
		}
		return query
	}

	var total int64
	countQuery := applyFilter(r.db.WithContext(ctx).Model(&models.UploadTransactionModel{}))
	if err := countQuery.Count(&total).Error; err != nil {
		return nil, err
	}

	var txModels []models.UploadTransactionModel
	pageQuery := applyFilter(r.db.WithContext(ctx).Model(&models.UploadTransactionModel{}))
	if err := pageQuery.
		Order("created_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&txModels).Error; err != nil {
		return nil, err
	}

	items := make([]*intake.UploadTransaction, 0, len(txModels))
	for i := range txModels {
		tx, err := txModels[i].ToDomain()
		if err != nil {
			return nil, err
		}
		items = append(items, tx)
	}
	paginated := shared.NewPaginated(items, total, page, pageSize)
	return &paginated, nil
}

// Save persists an upload transaction. New aggregates (version 1) are
// inserted; updates carry an optimistic version check so a concurrent
// checkpoint cannot silently overwrite another's transition.
func (r *GormTransactionRepository) Save(ctx context.Context, tx *intake.UploadTransaction) error {
	var model models.UploadTransactionModel
	if err := model.FromDomain(tx); err != nil {
		return err
	}

	if tx.Version == 1 {
		return r.db.WithContext(ctx).Create(&model).Error
	}

	result := r.db.WithContext(ctx).
		Model(&models.UploadTransactionModel{}).
		Where("id = ? AND version = ?", tx.ID, tx.Version-1).
		Updates(map[string]any{
			"checksum":          model.Checksum,
			"status":            model.Status,
			"declared_category": model.DeclaredCategory,
			"parsed":            model.ParsedJSON,
			"attribution":       model.AttributionJSON,
			"classification":    model.ClassificationJSON,
			"canonical_key":     model.CanonicalKey,
			"backup_key":        model.BackupKey,
			"reason":            model.Reason,
			"reason_code":       model.ReasonCode,
			"version":           model.Version,
			"updated_at":        model.UpdatedAt,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrConcurrencyConflict
	}
	return nil
}
