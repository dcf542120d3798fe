package models

// EntityModel is the persistence model for the entity directory: the
// registered counterparties documents are attributed to.
type EntityModel struct {
	BaseModel
	Name string `gorm:"not null;size:255;index"`
	Code string `gorm:"not null;size:64;uniqueIndex"`
}

// TableName returns the table name for EntityModel
func (EntityModel) TableName() string {
	return "entities"
}
