package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type TemplateStage struct {
	ID          uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	TemplateID  uuid.UUID       `gorm:"type:uuid;not null;index" json:"template_id"`
	Template    *Template       `gorm:"constraint:OnDelete:CASCADE;foreignKey:TemplateID;references:ID" json:"template,omitempty"`
	Name        string          `gorm:"column:name;not null" json:"name"`
	Description string          `gorm:"column:description" json:"description"`
	Order       int             `gorm:"column:order;not null" json:"order"`
	GemType     string          `gorm:"column:gem_type" json:"gem_type"`
	Tasks       []*TemplateTask `gorm:"foreignKey:StageID;references:ID" json:"tasks,omitempty"`
	CreatedAt   time.Time       `gorm:"not null" json:"created_at"`
	UpdatedAt   time.Time       `gorm:"not null" json:"updated_at"`
}

func (TemplateStage) TableName() string { return "template_stage" }

func (s *TemplateStage) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}
