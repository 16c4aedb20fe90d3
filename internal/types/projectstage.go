package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ProjectStage struct {
	ID          uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	ProjectID   uuid.UUID      `gorm:"type:uuid;not null;index" json:"project_id"`
	Project     *Project       `gorm:"constraint:OnDelete:CASCADE;foreignKey:ProjectID;references:ID" json:"project,omitempty"`
	Name        string         `gorm:"column:name;not null" json:"name"`
	Description string         `gorm:"column:description" json:"description"`
	Order       int            `gorm:"column:order;not null" json:"order"`
	GemType     string         `gorm:"column:gem_type" json:"gem_type"`
	Tasks       []*ProjectTask `gorm:"foreignKey:StageID;references:ID" json:"tasks,omitempty"`
	CreatedAt   time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt   time.Time      `gorm:"not null" json:"updated_at"`
}

func (ProjectStage) TableName() string { return "project_stage" }

func (s *ProjectStage) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}
