package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/pathwayhq/pathway-backend/internal/logger"
	"github.com/pathwayhq/pathway-backend/internal/types"
)

type TemplateStageRepo interface {
	Create(ctx context.Context, tx *gorm.DB, rows []*types.TemplateStage) ([]*types.TemplateStage, error)
	GetByTemplateIDs(ctx context.Context, tx *gorm.DB, templateIDs []uuid.UUID) ([]*types.TemplateStage, error)
	UpdateFields(ctx context.Context, tx *gorm.DB, id uuid.UUID, fields map[string]interface{}) error
	FullDeleteByIDs(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) error
}

type templateStageRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewTemplateStageRepo(db *gorm.DB, baseLog *logger.Logger) TemplateStageRepo {
	repoLog := baseLog.With("repo", "TemplateStageRepo")
	return &templateStageRepo{db: db, log: repoLog}
}

func (r *templateStageRepo) Create(ctx context.Context, tx *gorm.DB, rows []*types.TemplateStage) ([]*types.TemplateStage, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if len(rows) == 0 {
		return []*types.TemplateStage{}, nil
	}

	if err := transaction.WithContext(ctx).Create(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *templateStageRepo) GetByTemplateIDs(ctx context.Context, tx *gorm.DB, templateIDs []uuid.UUID) ([]*types.TemplateStage, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var results []*types.TemplateStage
	if len(templateIDs) == 0 {
		return results, nil
	}

	if err := transaction.WithContext(ctx).
		Where("template_id IN ?", templateIDs).
		Order("\"order\" ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *templateStageRepo) UpdateFields(ctx context.Context, tx *gorm.DB, id uuid.UUID, fields map[string]interface{}) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if len(fields) == 0 {
		return nil
	}

	if err := transaction.WithContext(ctx).
		Model(&types.TemplateStage{}).
		Where("id = ?", id).
		Updates(fields).Error; err != nil {
		return err
	}
	return nil
}

func (r *templateStageRepo) FullDeleteByIDs(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if len(ids) == 0 {
		return nil
	}

	if err := transaction.WithContext(ctx).
		Unscoped().
		Where("id IN ?", ids).
		Delete(&types.TemplateStage{}).Error; err != nil {
		return err
	}
	return nil
}
