package persistence

import (
	"context"
	"strings"

	intakeapp "github.com/docintake/backend/internal/application/intake"
	"github.com/docintake/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// maxDirectoryCandidates bounds a single lookup so an overly generic name
// cannot drag the whole directory into the attribution scorer.
const maxDirectoryCandidates = 25

// GormEntityDirectory implements intakeapp.EntityDirectory over the
// entities table. It only retrieves plausible candidates; confidence
// scoring happens in the application layer.
type GormEntityDirectory struct {
	db *gorm.DB
}

var _ intakeapp.EntityDirectory = (*GormEntityDirectory)(nil)

// NewGormEntityDirectory creates a new GormEntityDirectory
func NewGormEntityDirectory(db *gorm.DB) *GormEntityDirectory {
	return &GormEntityDirectory{db: db}
}

// Lookup returns candidate entities matching the code exactly or the name
// by containment. Code matches are fetched first so an exact code hit is
// never cut off by the candidate limit.
func (d *GormEntityDirectory) Lookup(ctx context.Context, name, code string) ([]intakeapp.EntityCandidate, error) {
	name = strings.TrimSpace(name)
	code = strings.TrimSpace(code)
	if name == "" && code == "" {
		return nil, nil
	}

	var entityModels []models.EntityModel

	if code != "" {
		var byCode []models.EntityModel
		if err := d.db.WithContext(ctx).
			Model(&models.EntityModel{}).
			Where("LOWER(code) = LOWER(?)", code).
			Limit(maxDirectoryCandidates).
			Find(&byCode).Error; err != nil {
			return nil, err
		}
		entityModels = append(entityModels, byCode...)
	}

	if name != "" && len(entityModels) < maxDirectoryCandidates {
		var byName []models.EntityModel
		query := d.db.WithContext(ctx).
			Model(&models.EntityModel{}).
			Where("name ILIKE ?", "%"+name+"%")
		if code != "" {
			query = query.Where("LOWER(code) <> LOWER(?)", code)
		}
		if err := query.
			Order("name ASC").
			Limit(maxDirectoryCandidates - len(entityModels)).
			Find(&byName).Error; err != nil {
			return nil, err
		}
		entityModels = append(entityModels, byName...)
	}

	candidates := make([]intakeapp.EntityCandidate, 0, len(entityModels))
	for i := range entityModels {
		candidates = append(candidates, intakeapp.EntityCandidate{
			ID:   entityModels[i].ID,
			Name: entityModels[i].Name,
			Code: entityModels[i].Code,
		})
	}
	return candidates, nil
}
