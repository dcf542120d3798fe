package persistence

import (
	"context"

	"github.com/docintake/backend/internal/domain/intake"
	"github.com/docintake/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormStateChangeRepository implements intake.StateChangeRepository using GORM.
// The audit log is append-only; this repository exposes no update or delete.
type GormStateChangeRepository struct {
	db *gorm.DB
}

var _ intake.StateChangeRepository = (*GormStateChangeRepository)(nil)

// NewGormStateChangeRepository creates a new GormStateChangeRepository
func NewGormStateChangeRepository(db *gorm.DB) *GormStateChangeRepository {
	return &GormStateChangeRepository{db: db}
}

// Append inserts an audit log entry. The unique (transaction_id, sequence)
// index rejects a second entry for the same transition.
func (r *GormStateChangeRepository) Append(ctx context.Context, entry *intake.StateChangeEntry) error {
	var model models.StateChangeLogModel
	if err := model.FromDomain(entry); err != nil {
		return err
	}
	return r.db.WithContext(ctx).Create(&model).Error
}

// History returns a transaction's audit entries ordered by sequence
func (r *GormStateChangeRepository) History(ctx context.Context, transactionID uuid.UUID) ([]*intake.StateChangeEntry, error) {
	var logModels []models.StateChangeLogModel
	if err := r.db.WithContext(ctx).
		Where("transaction_id = ?", transactionID).
		Order("sequence ASC").
		Find(&logModels).Error; err != nil {
		return nil, err
	}

	entries := make([]*intake.StateChangeEntry, 0, len(logModels))
	for i := range logModels {
		entry, err := logModels[i].ToDomain()
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, nil
}
