package persistence

import (
	"context"
	"errors"

	"github.com/docintake/backend/internal/domain/intake"
	"github.com/docintake/backend/internal/domain/shared"
	"github.com/docintake/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormExceptionRepository implements intake.ExceptionRepository using GORM
type GormExceptionRepository struct {
	db *gorm.DB
}

var _ intake.ExceptionRepository = (*GormExceptionRepository)(nil)

// NewGormExceptionRepository creates a new GormExceptionRepository
func NewGormExceptionRepository(db *gorm.DB) *GormExceptionRepository {
	return &GormExceptionRepository{db: db}
}

// FindByID finds an exception record by its ID
func (r *GormExceptionRepository) FindByID(ctx context.Context, id uuid.UUID) (*intake.ExceptionRecord, error) {
	var model models.ExceptionModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain()
}

// FindUnresolved lists open exceptions, oldest first so the queue drains
// in arrival order
func (r *GormExceptionRepository) FindUnresolved(ctx context.Context, page, pageSize int) (*shared.Paginated[*intake.ExceptionRecord], error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 200 {
		pageSize = 20
	}

	var total int64
	if err := r.db.WithContext(ctx).
		Model(&models.ExceptionModel{}).
		Where("resolved = false").
		Count(&total).Error; err != nil {
		return nil, err
	}

	var exceptionModels []models.ExceptionModel
	if err := r.db.WithContext(ctx).
		Model(&models.ExceptionModel{}).
		Where("resolved = false").
		Order("created_at ASC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&exceptionModels).Error; err != nil {
		return nil, err
	}

	items := make([]*intake.ExceptionRecord, 0, len(exceptionModels))
	for i := range exceptionModels {
		record, err := exceptionModels[i].ToDomain()
		if err != nil {
			return nil, err
		}
		items = append(items, record)
	}
	paginated := shared.NewPaginated(items, total, page, pageSize)
	return &paginated, nil
}

// Save upserts an exception record
func (r *GormExceptionRepository) Save(ctx context.Context, record *intake.ExceptionRecord) error {
	var model models.ExceptionModel
	if err := model.FromDomain(record); err != nil {
		return err
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"severity", "reason", "candidate",
				"resolved", "resolved_at", "resolved_by", "resolution",
				"updated_at",
			}),
		}).
		Create(&model).Error
}
