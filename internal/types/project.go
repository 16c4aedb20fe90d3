package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Project is a user's mutable instantiation of a template. Progress and
// CurrentGem are derived by the engine and never accepted from clients.
type Project struct {
	ID         uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	UserID     uuid.UUID       `gorm:"type:uuid;not null;index" json:"user_id"`
	User       *User           `gorm:"constraint:OnDelete:CASCADE;foreignKey:UserID;references:ID" json:"user,omitempty"`
	TemplateID uuid.UUID       `gorm:"type:uuid;not null;index" json:"template_id"`
	Template   *Template       `gorm:"foreignKey:TemplateID;references:ID" json:"template,omitempty"`
	Name       string          `gorm:"column:name;not null" json:"name"`
	Progress   float64         `gorm:"column:progress;not null" json:"progress"`
	CurrentGem *string         `gorm:"column:current_gem" json:"current_gem,omitempty"`
	Stages     []*ProjectStage `gorm:"foreignKey:ProjectID;references:ID" json:"stages,omitempty"`
	Tasks      []*ProjectTask  `gorm:"foreignKey:ProjectID;references:ID" json:"tasks,omitempty"`
	CreatedAt  time.Time       `gorm:"not null" json:"created_at"`
	UpdatedAt  time.Time       `gorm:"not null" json:"updated_at"`
	DeletedAt  gorm.DeletedAt  `gorm:"index" json:"deleted_at,omitempty"`
}

func (Project) TableName() string { return "project" }

func (p *Project) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}
