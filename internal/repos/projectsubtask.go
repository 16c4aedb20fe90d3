package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/pathwayhq/pathway-backend/internal/logger"
	"github.com/pathwayhq/pathway-backend/internal/types"
)

type ProjectSubtaskRepo interface {
	Create(ctx context.Context, tx *gorm.DB, rows []*types.ProjectSubtask) ([]*types.ProjectSubtask, error)
	GetByIDs(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) ([]*types.ProjectSubtask, error)
	GetByTaskIDs(ctx context.Context, tx *gorm.DB, taskIDs []uuid.UUID) ([]*types.ProjectSubtask, error)
	UpdateFields(ctx context.Context, tx *gorm.DB, id uuid.UUID, fields map[string]interface{}) error
	FullDeleteByIDs(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) error
	FullDeleteByTaskIDs(ctx context.Context, tx *gorm.DB, taskIDs []uuid.UUID) error
}

type projectSubtaskRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewProjectSubtaskRepo(db *gorm.DB, baseLog *logger.Logger) ProjectSubtaskRepo {
	repoLog := baseLog.With("repo", "ProjectSubtaskRepo")
	return &projectSubtaskRepo{db: db, log: repoLog}
}

func (r *projectSubtaskRepo) Create(ctx context.Context, tx *gorm.DB, rows []*types.ProjectSubtask) ([]*types.ProjectSubtask, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if len(rows) == 0 {
		return []*types.ProjectSubtask{}, nil
	}

	if err := transaction.WithContext(ctx).Create(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *projectSubtaskRepo) GetByIDs(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) ([]*types.ProjectSubtask, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var results []*types.ProjectSubtask
	if len(ids) == 0 {
		return results, nil
	}

	if err := transaction.WithContext(ctx).
		Where("id IN ?", ids).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *projectSubtaskRepo) GetByTaskIDs(ctx context.Context, tx *gorm.DB, taskIDs []uuid.UUID) ([]*types.ProjectSubtask, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var results []*types.ProjectSubtask
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

func (r *projectSubtaskRepo) UpdateFields(ctx context.Context, tx *gorm.DB, id uuid.UUID, fields map[string]interface{}) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if len(fields) == 0 {
		return nil
	}

	if err := transaction.WithContext(ctx).
		Model(&types.ProjectSubtask{}).
		Where("id = ?", id).
		Updates(fields).Error; err != nil {
		return err
	}
	return nil
}

func (r *projectSubtaskRepo) FullDeleteByIDs(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) error {
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
		Delete(&types.ProjectSubtask{}).Error; err != nil {
		return err
	}
	return nil
}

func (r *projectSubtaskRepo) FullDeleteByTaskIDs(ctx context.Context, tx *gorm.DB, taskIDs []uuid.UUID) error {
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
		Delete(&types.ProjectSubtask{}).Error; err != nil {
		return err
	}
	return nil
}
