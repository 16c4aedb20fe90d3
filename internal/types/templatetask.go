package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// TemplateTask belongs to a stage, or directly to the template when
// StageID is null (unstaged tasks).
type TemplateTask struct {
	ID          uuid.UUID          `gorm:"type:uuid;primaryKey" json:"id"`
	TemplateID  uuid.UUID          `gorm:"type:uuid;not null;index" json:"template_id"`
	Template    *Template          `gorm:"constraint:OnDelete:CASCADE;foreignKey:TemplateID;references:ID" json:"template,omitempty"`
	StageID     *uuid.UUID         `gorm:"type:uuid;index" json:"stage_id,omitempty"`
	Stage       *TemplateStage     `gorm:"constraint:OnDelete:CASCADE;foreignKey:StageID;references:ID" json:"stage,omitempty"`
	Title       string             `gorm:"column:title;not null" json:"title"`
	Description string             `gorm:"column:description" json:"description"`
	Order       int                `gorm:"column:order;not null" json:"order"`
	Subtasks    []*TemplateSubtask `gorm:"foreignKey:TaskID;references:ID" json:"subtasks,omitempty"`
	CreatedAt   time.Time          `gorm:"not null" json:"created_at"`
	UpdatedAt   time.Time          `gorm:"not null" json:"updated_at"`
}

func (TemplateTask) TableName() string { return "template_task" }

func (t *TemplateTask) BeforeCreate(tx *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}
