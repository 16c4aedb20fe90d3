package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/pathwayhq/pathway-backend/internal/logger"
	"github.com/pathwayhq/pathway-backend/internal/types"
)

type TemplateTaskRepo interface {
	Create(ctx context.Context, tx *gorm.DB, rows []*types.TemplateTask) ([]*types.TemplateTask, error)
	GetByStageIDs(ctx context.Context, tx *gorm.DB, stageIDs []uuid.UUID) ([]*types.TemplateTask, error)
	GetUnstagedByTemplateIDs(ctx context.Context, tx *gorm.DB, templateIDs []uuid.UUID) ([]*types.TemplateTask, error)
	UpdateFields(ctx context.Context, tx *gorm.DB, id uuid.UUID, fields map[string]interface{}) error
	FullDeleteByIDs(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) error
	FullDeleteByStageIDs(ctx context.Context, tx *gorm.DB, stageIDs []uuid.UUID) error
}

type templateTaskRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewTemplateTaskRepo(db *gorm.DB, baseLog *logger.Logger) TemplateTaskRepo {
	repoLog := baseLog.With("repo", "TemplateTaskRepo")
	return &templateTaskRepo{db: db, log: repoLog}
}

func (r *templateTaskRepo) Create(ctx context.Context, tx *gorm.DB, rows []*types.TemplateTask) ([]*types.TemplateTask, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if len(rows) == 0 {
		return []*types.TemplateTask{}, nil
	}

	if err := transaction.WithContext(ctx).Create(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *templateTaskRepo) GetByStageIDs(ctx context.Context, tx *gorm.DB, stageIDs []uuid.UUID) ([]*types.TemplateTask, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var results []*types.TemplateTask
	if len(stageIDs) == 0 {
		return results, nil
	}

	if err := transaction.WithContext(ctx).
		Where("stage_id IN ?", stageIDs).
		Order("\"order\" ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *templateTaskRepo) GetUnstagedByTemplateIDs(ctx context.Context, tx *gorm.DB, templateIDs []uuid.UUID) ([]*types.TemplateTask, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var results []*types.TemplateTask
	if len(templateIDs) == 0 {
		return results, nil
	}

	if err := transaction.WithContext(ctx).
		Where("template_id IN ? AND stage_id IS NULL", templateIDs).
		Order("\"order\" ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *templateTaskRepo) UpdateFields(ctx context.Context, tx *gorm.DB, id uuid.UUID, fields map[string]interface{}) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if len(fields) == 0 {
		return nil
	}

	if err := transaction.WithContext(ctx).
		Model(&types.TemplateTask{}).
		Where("id = ?", id).
		Updates(fields).Error; err != nil {
		return err
	}
	return nil
}

func (r *templateTaskRepo) FullDeleteByIDs(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) error {
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
		Delete(&types.TemplateTask{}).Error; err != nil {
		return err
	}
	return nil
}

func (r *templateTaskRepo) FullDeleteByStageIDs(ctx context.Context, tx *gorm.DB, stageIDs []uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if len(stageIDs) == 0 {
		return nil
	}

	if err := transaction.WithContext(ctx).
		Unscoped().
		Where("stage_id IN ?", stageIDs).
		Delete(&types.TemplateTask{}).Error; err != nil {
		return err
	}
	return nil
}
