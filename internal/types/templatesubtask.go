package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type TemplateSubtask struct {
	ID          uuid.UUID     `gorm:"type:uuid;primaryKey" json:"id"`
	TaskID      uuid.UUID     `gorm:"type:uuid;not null;index" json:"task_id"`
	Task        *TemplateTask `gorm:"constraint:OnDelete:CASCADE;foreignKey:TaskID;references:ID" json:"task,omitempty"`
	Description string        `gorm:"column:description;not null" json:"description"`
	CreatedAt   time.Time     `gorm:"not null" json:"created_at"`
	UpdatedAt   time.Time     `gorm:"not null" json:"updated_at"`
}

func (TemplateSubtask) TableName() string { return "template_subtask" }

func (s *TemplateSubtask) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}
