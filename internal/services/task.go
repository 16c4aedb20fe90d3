package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/pathwayhq/pathway-backend/internal/logger"
	apperrors "github.com/pathwayhq/pathway-backend/internal/pkg/errors"
	"github.com/pathwayhq/pathway-backend/internal/repos"
	"github.com/pathwayhq/pathway-backend/internal/types"
)

// TaskService mutates leaf tasks. Status and completion of a task with
// subtasks are derived state and rejected here; only subtask-less tasks
// carry their own pair.
type TaskService interface {
	SetStatus(ctx context.Context, userID, taskID uuid.UUID, status string) (*types.ProjectTask, GemChange, error)
	ToggleTask(ctx context.Context, userID, taskID uuid.UUID) (*types.ProjectTask, GemChange, error)
	SetLink(ctx context.Context, userID, taskID uuid.UUID, link *string) (*types.ProjectTask, error)
}

type taskService struct {
	db              *gorm.DB
	log             *logger.Logger
	projectRepo     repos.ProjectRepo
	taskRepo        repos.ProjectTaskRepo
	subtaskRepo     repos.ProjectSubtaskRepo
	progressService ProgressService
}

func NewTaskService(
	db *gorm.DB,
	baseLog *logger.Logger,
	projectRepo repos.ProjectRepo,
	taskRepo repos.ProjectTaskRepo,
	subtaskRepo repos.ProjectSubtaskRepo,
	progressService ProgressService,
) TaskService {
	serviceLog := baseLog.With("service", "TaskService")
	return &taskService{
		db:              db,
		log:             serviceLog,
		projectRepo:     projectRepo,
		taskRepo:        taskRepo,
		subtaskRepo:     subtaskRepo,
		progressService: progressService,
	}
}

func (s *taskService) SetStatus(ctx context.Context, userID, taskID uuid.UUID, status string) (*types.ProjectTask, GemChange, error) {
	newStatus := types.TaskStatus(status)
	if !newStatus.Valid() {
		return nil, GemChange{}, fmt.Errorf("status %q: %w", status, apperrors.ErrInvalidState)
	}

	task, err := s.loadOwnedTask(ctx, userID, taskID)
	if err != nil {
		return nil, GemChange{}, err
	}
	subtasks, err := s.subtaskRepo.GetByTaskIDs(ctx, nil, []uuid.UUID{taskID})
	if err != nil {
		return nil, GemChange{}, fmt.Errorf("load subtasks: %w", err)
	}
	if len(subtasks) > 0 {
		return nil, GemChange{}, fmt.Errorf("task %s status is derived from subtasks: %w", taskID, apperrors.ErrInvalidState)
	}

	var change GemChange
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		fields := map[string]interface{}{
			"status":    newStatus,
			"completed": newStatus == types.TaskStatusDone,
		}
		if err := s.taskRepo.UpdateFields(ctx, tx, taskID, fields); err != nil {
			return fmt.Errorf("update task: %w", err)
		}
		if _, err := s.progressService.RecalculateProgress(ctx, tx, task.ProjectID); err != nil {
			return err
		}
		change, err = s.progressService.ResolveGem(ctx, tx, task.ProjectID)
		return err
	})
	if err != nil {
		s.log.Error("SetStatus failed", "error", err, "task_id", taskID)
		return nil, GemChange{}, err
	}

	task.Status = newStatus
	task.Completed = newStatus == types.TaskStatusDone
	return task, change, nil
}

func (s *taskService) ToggleTask(ctx context.Context, userID, taskID uuid.UUID) (*types.ProjectTask, GemChange, error) {
	task, err := s.loadOwnedTask(ctx, userID, taskID)
	if err != nil {
		return nil, GemChange{}, err
	}
	subtasks, err := s.subtaskRepo.GetByTaskIDs(ctx, nil, []uuid.UUID{taskID})
	if err != nil {
		return nil, GemChange{}, fmt.Errorf("load subtasks: %w", err)
	}
	if len(subtasks) > 0 {
		return nil, GemChange{}, fmt.Errorf("task %s completion is derived from subtasks: %w", taskID, apperrors.ErrInvalidState)
	}

	newCompleted := !task.Completed
	newStatus := types.TaskStatusTodo
	if newCompleted {
		newStatus = types.TaskStatusDone
	}

	var change GemChange
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		fields := map[string]interface{}{
			"status":    newStatus,
			"completed": newCompleted,
		}
		if err := s.taskRepo.UpdateFields(ctx, tx, taskID, fields); err != nil {
			return fmt.Errorf("update task: %w", err)
		}
		if _, err := s.progressService.RecalculateProgress(ctx, tx, task.ProjectID); err != nil {
			return err
		}
		change, err = s.progressService.ResolveGem(ctx, tx, task.ProjectID)
		return err
	})
	if err != nil {
		s.log.Error("ToggleTask failed", "error", err, "task_id", taskID)
		return nil, GemChange{}, err
	}

	task.Status = newStatus
	task.Completed = newCompleted
	return task, change, nil
}

func (s *taskService) SetLink(ctx context.Context, userID, taskID uuid.UUID, link *string) (*types.ProjectTask, error) {
	task, err := s.loadOwnedTask(ctx, userID, taskID)
	if err != nil {
		return nil, err
	}
	if err := s.taskRepo.UpdateFields(ctx, nil, taskID, map[string]interface{}{"link": link}); err != nil {
		return nil, fmt.Errorf("update task link: %w", err)
	}
	task.Link = link
	return task, nil
}

func (s *taskService) loadOwnedTask(ctx context.Context, userID, taskID uuid.UUID) (*types.ProjectTask, error) {
	tasks, err := s.taskRepo.GetByIDs(ctx, nil, []uuid.UUID{taskID})
	if err != nil {
		return nil, fmt.Errorf("load task: %w", err)
	}
	if len(tasks) == 0 {
		return nil, fmt.Errorf("task %s: %w", taskID, apperrors.ErrNotFound)
	}
	task := tasks[0]

	projects, err := s.projectRepo.GetByIDs(ctx, nil, []uuid.UUID{task.ProjectID})
	if err != nil {
		return nil, fmt.Errorf("load project: %w", err)
	}
	if len(projects) == 0 {
		return nil, fmt.Errorf("project %s: %w", task.ProjectID, apperrors.ErrNotFound)
	}
	if projects[0].UserID != userID {
		return nil, fmt.Errorf("project %s: %w", task.ProjectID, apperrors.ErrForbidden)
	}
	return task, nil
}
