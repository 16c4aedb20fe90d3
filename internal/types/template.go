package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Template is the immutable blueprint a project is instantiated from.
// Edits to a template never touch projects that were already created.
type Template struct {
	ID          uuid.UUID        `gorm:"type:uuid;primaryKey" json:"id"`
	Name        string           `gorm:"column:name;not null" json:"name"`
	Version     string           `gorm:"column:version;not null" json:"version"`
	Description string           `gorm:"column:description" json:"description"`
	IsActive    bool             `gorm:"column:is_active;not null" json:"is_active"`
	Metadata    datatypes.JSON   `gorm:"column:metadata" json:"metadata,omitempty"`
	Stages      []*TemplateStage `gorm:"foreignKey:TemplateID;references:ID" json:"stages,omitempty"`
	Tasks       []*TemplateTask  `gorm:"foreignKey:TemplateID;references:ID" json:"tasks,omitempty"`
	CreatedAt   time.Time        `gorm:"not null" json:"created_at"`
	UpdatedAt   time.Time        `gorm:"not null" json:"updated_at"`
	DeletedAt   gorm.DeletedAt   `gorm:"index" json:"deleted_at,omitempty"`
}

func (Template) TableName() string { return "template" }

func (t *Template) BeforeCreate(tx *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}
