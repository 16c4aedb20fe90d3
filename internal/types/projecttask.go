package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ProjectTask carries its own Status/Completed pair when it has no
// subtasks; with subtasks both fields are derived and Completed always
// mirrors Status == DONE.
type ProjectTask struct {
	ID          uuid.UUID         `gorm:"type:uuid;primaryKey" json:"id"`
	ProjectID   uuid.UUID         `gorm:"type:uuid;not null;index" json:"project_id"`
	Project     *Project          `gorm:"constraint:OnDelete:CASCADE;foreignKey:ProjectID;references:ID" json:"project,omitempty"`
	StageID     *uuid.UUID        `gorm:"type:uuid;index" json:"stage_id,omitempty"`
	Stage       *ProjectStage     `gorm:"constraint:OnDelete:CASCADE;foreignKey:StageID;references:ID" json:"stage,omitempty"`
	Title       string            `gorm:"column:title;not null" json:"title"`
	Description string            `gorm:"column:description" json:"description"`
	Order       int               `gorm:"column:order;not null" json:"order"`
	Status      TaskStatus        `gorm:"column:status;not null" json:"status"`
	Completed   bool              `gorm:"column:completed;not null" json:"completed"`
	Link        *string           `gorm:"column:link" json:"link,omitempty"`
	Subtasks    []*ProjectSubtask `gorm:"foreignKey:TaskID;references:ID" json:"subtasks,omitempty"`
	CreatedAt   time.Time         `gorm:"not null" json:"created_at"`
	UpdatedAt   time.Time         `gorm:"not null" json:"updated_at"`
}

func (ProjectTask) TableName() string { return "project_task" }

func (t *ProjectTask) BeforeCreate(tx *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}
