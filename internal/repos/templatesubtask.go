package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/pathwayhq/pathway-backend/internal/logger"
	"github.com/pathwayhq/pathway-backend/internal/types"
)

type TemplateSubtaskRepo interface {
	Create(ctx context.Context, tx *gorm.DB, rows []*types.TemplateSubtask) ([]*types.TemplateSubtask, error)
	GetByTaskIDs(ctx context.Context, tx *gorm.DB, taskIDs []uuid.UUID) ([]*types.TemplateSubtask, error)
	UpdateFields(ctx context.Context, tx *gorm.DB, id uuid.UUID, fields map[string]interface{}) error
	FullDeleteByIDs(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) error
	FullDeleteByTaskIDs(ctx context.Context, tx *gorm.DB, taskIDs []uuid.UUID) error
}

type templateSubtaskRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewTemplateSubtaskRepo(db *gorm.DB, baseLog *logger.Logger) TemplateSubtaskRepo {
	repoLog := baseLog.With("repo", "TemplateSubtaskRepo")
	return &templateSubtaskRepo{db: db, log: repoLog}
}

func (r *templateSubtaskRepo) Create(ctx context.Context, tx *gorm.DB, rows []*types.TemplateSubtask) ([]*types.TemplateSubtask, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if len(rows) == 0 {
		return []*types.TemplateSubtask{}, nil
	}

	if err := transaction.WithContext(ctx).Create(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *templateSubtaskRepo) GetByTaskIDs(ctx context.Context, tx *gorm.DB, taskIDs []uuid.UUID) ([]*types.TemplateSubtask, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var results []*types.TemplateSubtask
	if len(taskIDs) == 0 {
		return results, nil
	}

	if err := transaction.WithContext(ctx).
		Where("task_id IN ?", taskIDs).
		Order("created_at ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *templateSubtaskRepo) UpdateFields(ctx context.Context, tx *gorm.DB, id uuid.UUID, fields map[string]interface{}) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if len(fields) == 0 {
		return nil
	}

	if err := transaction.WithContext(ctx).
		Model(&types.TemplateSubtask{}).
		Where("id = ?", id).
		Updates(fields).Error; err != nil {
		return err
	}
	return nil
}

func (r *templateSubtaskRepo) FullDeleteByIDs(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) error {
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
		Delete(&types.TemplateSubtask{}).Error; err != nil {
		return err
	}
	return nil
}

func (r *templateSubtaskRepo) FullDeleteByTaskIDs(ctx context.Context, tx *gorm.DB, taskIDs []uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if len(taskIDs) == 0 {
		return nil
	}

	if err := transaction.WithContext(ctx).
		Unscoped().
		Where("task_id IN ?", taskIDs).
		Delete(&types.TemplateSubtask{}).Error; err != nil {
		return err
	}
	return nil
}
