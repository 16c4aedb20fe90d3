package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ProjectSubtask is the leaf signal: its Completed flag is the atomic
// unit of progress measurement.
type ProjectSubtask struct {
	ID          uuid.UUID    `gorm:"type:uuid;primaryKey" json:"id"`
	TaskID      uuid.UUID    `gorm:"type:uuid;not null;index" json:"task_id"`
	Task        *ProjectTask `gorm:"constraint:OnDelete:CASCADE;foreignKey:TaskID;references:ID" json:"task,omitempty"`
	Description string       `gorm:"column:description;not null" json:"description"`
	Completed   bool         `gorm:"column:completed;not null" json:"completed"`
	Answer      *string      `gorm:"column:answer" json:"answer,omitempty"`
	Link        *string      `gorm:"column:link" json:"link,omitempty"`
	CreatedAt   time.Time    `gorm:"not null" json:"created_at"`
	UpdatedAt   time.Time    `gorm:"not null" json:"updated_at"`
}

func (ProjectSubtask) TableName() string { return "project_subtask" }

func (s *ProjectSubtask) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}
