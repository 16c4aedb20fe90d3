package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/pathwayhq/pathway-backend/internal/logger"
	"github.com/pathwayhq/pathway-backend/internal/types"
)

type ProjectTaskRepo interface {
	Create(ctx context.Context, tx *gorm.DB, rows []*types.ProjectTask) ([]*types.ProjectTask, error)
	GetByIDs(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) ([]*types.ProjectTask, error)
	GetByProjectIDs(ctx context.Context, tx *gorm.DB, projectIDs []uuid.UUID) ([]*types.ProjectTask, error)
	GetByStageIDs(ctx context.Context, tx *gorm.DB, stageIDs []uuid.UUID) ([]*types.ProjectTask, error)
	GetUnstagedByProjectIDs(ctx context.Context, tx *gorm.DB, projectIDs []uuid.UUID) ([]*types.ProjectTask, error)
	UpdateFields(ctx context.Context, tx *gorm.DB, id uuid.UUID, fields map[string]interface{}) error
	FullDeleteByIDs(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) error
	FullDeleteByStageIDs(ctx context.Context, tx *gorm.DB, stageIDs []uuid.UUID) error
}

type projectTaskRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewProjectTaskRepo(db *gorm.DB, baseLog *logger.Logger) ProjectTaskRepo {
	repoLog := baseLog.With("repo", "ProjectTaskRepo")
	return &projectTaskRepo{db: db, log: repoLog}
}

func (r *projectTaskRepo) Create(ctx context.Context, tx *gorm.DB, rows []*types.ProjectTask) ([]*types.ProjectTask, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if len(rows) == 0 {
		return []*types.ProjectTask{}, nil
	}

	if err := transaction.WithContext(ctx).Create(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *projectTaskRepo) GetByIDs(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) ([]*types.ProjectTask, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var results []*types.ProjectTask
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

func (r *projectTaskRepo) GetByProjectIDs(ctx context.Context, tx *gorm.DB, projectIDs []uuid.UUID) ([]*types.ProjectTask, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var results []*types.ProjectTask
	if len(projectIDs) == 0 {
		return results, nil
	}

	if err := transaction.WithContext(ctx).
		Where("project_id IN ?", projectIDs).
		Order("\"order\" ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *projectTaskRepo) GetByStageIDs(ctx context.Context, tx *gorm.DB, stageIDs []uuid.UUID) ([]*types.ProjectTask, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var results []*types.ProjectTask
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

func (r *projectTaskRepo) GetUnstagedByProjectIDs(ctx context.Context, tx *gorm.DB, projectIDs []uuid.UUID) ([]*types.ProjectTask, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var results []*types.ProjectTask
	if len(projectIDs) == 0 {
		return results, nil
	}

	if err := transaction.WithContext(ctx).
		Where("project_id IN ? AND stage_id IS NULL", projectIDs).
		Order("\"order\" ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *projectTaskRepo) UpdateFields(ctx context.Context, tx *gorm.DB, id uuid.UUID, fields map[string]interface{}) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if len(fields) == 0 {
		return nil
	}

	if err := transaction.WithContext(ctx).
		Model(&types.ProjectTask{}).
		Where("id = ?", id).
		Updates(fields).Error; err != nil {
		return err
	}
	return nil
}

func (r *projectTaskRepo) FullDeleteByIDs(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) error {
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
		Delete(&types.ProjectTask{}).Error; err != nil {
		return err
	}
	return nil
}

func (r *projectTaskRepo) FullDeleteByStageIDs(ctx context.Context, tx *gorm.DB, stageIDs []uuid.UUID) error {
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
		Delete(&types.ProjectTask{}).Error; err != nil {
		return err
	}
	return nil
}
