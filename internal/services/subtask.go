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

// SubtaskService mutates leaf signals. Every completion toggle runs the
// full derivation chain in order: leaf write, task status propagation,
// progress recalculation, gem resolution.
type SubtaskService interface {
	ToggleSubtask(ctx context.Context, userID, subtaskID uuid.UUID) (*types.ProjectSubtask, GemChange, error)
	SetAnswer(ctx context.Context, userID, subtaskID uuid.UUID, answer *string) (*types.ProjectSubtask, error)
	SetLink(ctx context.Context, userID, subtaskID uuid.UUID, link *string) (*types.ProjectSubtask, error)
}

type subtaskService struct {
	db              *gorm.DB
	log             *logger.Logger
	projectRepo     repos.ProjectRepo
	taskRepo        repos.ProjectTaskRepo
	subtaskRepo     repos.ProjectSubtaskRepo
	progressService ProgressService
}

func NewSubtaskService(
	db *gorm.DB,
	baseLog *logger.Logger,
	projectRepo repos.ProjectRepo,
	taskRepo repos.ProjectTaskRepo,
	subtaskRepo repos.ProjectSubtaskRepo,
	progressService ProgressService,
) SubtaskService {
	serviceLog := baseLog.With("service", "SubtaskService")
	return &subtaskService{
		db:              db,
		log:             serviceLog,
		projectRepo:     projectRepo,
		taskRepo:        taskRepo,
		subtaskRepo:     subtaskRepo,
		progressService: progressService,
	}
}

func (s *subtaskService) ToggleSubtask(ctx context.Context, userID, subtaskID uuid.UUID) (*types.ProjectSubtask, GemChange, error) {
	subtask, projectID, err := s.loadOwnedSubtask(ctx, userID, subtaskID)
	if err != nil {
		return nil, GemChange{}, err
	}

	newCompleted := !subtask.Completed
	var change GemChange
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.subtaskRepo.UpdateFields(ctx, tx, subtaskID, map[string]interface{}{"completed": newCompleted}); err != nil {
			return fmt.Errorf("update subtask: %w", err)
		}
		if err := s.progressService.PropagateTaskStatus(ctx, tx, subtask.TaskID); err != nil {
			return err
		}
		if _, err := s.progressService.RecalculateProgress(ctx, tx, projectID); err != nil {
			return err
		}
		change, err = s.progressService.ResolveGem(ctx, tx, projectID)
		return err
	})
	if err != nil {
		s.log.Error("ToggleSubtask failed", "error", err, "subtask_id", subtaskID)
		return nil, GemChange{}, err
	}

	subtask.Completed = newCompleted
	return subtask, change, nil
}

func (s *subtaskService) SetAnswer(ctx context.Context, userID, subtaskID uuid.UUID, answer *string) (*types.ProjectSubtask, error) {
	subtask, _, err := s.loadOwnedSubtask(ctx, userID, subtaskID)
	if err != nil {
		return nil, err
	}
	if err := s.subtaskRepo.UpdateFields(ctx, nil, subtaskID, map[string]interface{}{"answer": answer}); err != nil {
		return nil, fmt.Errorf("update subtask answer: %w", err)
	}
	subtask.Answer = answer
	return subtask, nil
}

func (s *subtaskService) SetLink(ctx context.Context, userID, subtaskID uuid.UUID, link *string) (*types.ProjectSubtask, error) {
	subtask, _, err := s.loadOwnedSubtask(ctx, userID, subtaskID)
	if err != nil {
		return nil, err
	}
	if err := s.subtaskRepo.UpdateFields(ctx, nil, subtaskID, map[string]interface{}{"link": link}); err != nil {
		return nil, fmt.Errorf("update subtask link: %w", err)
	}
	subtask.Link = link
	return subtask, nil
}

func (s *subtaskService) loadOwnedSubtask(ctx context.Context, userID, subtaskID uuid.UUID) (*types.ProjectSubtask, uuid.UUID, error) {
	subtasks, err := s.subtaskRepo.GetByIDs(ctx, nil, []uuid.UUID{subtaskID})
	if err != nil {
		return nil, uuid.Nil, fmt.Errorf("load subtask: %w", err)
	}
	if len(subtasks) == 0 {
		return nil, uuid.Nil, fmt.Errorf("subtask %s: %w", subtaskID, apperrors.ErrNotFound)
	}
	subtask := subtasks[0]

	tasks, err := s.taskRepo.GetByIDs(ctx, nil, []uuid.UUID{subtask.TaskID})
	if err != nil {
		return nil, uuid.Nil, fmt.Errorf("load task: %w", err)
	}
	if len(tasks) == 0 {
		return nil, uuid.Nil, fmt.Errorf("task %s: %w", subtask.TaskID, apperrors.ErrNotFound)
	}
	task := tasks[0]

	projects, err := s.projectRepo.GetByIDs(ctx, nil, []uuid.UUID{task.ProjectID})
	if err != nil {
		return nil, uuid.Nil, fmt.Errorf("load project: %w", err)
	}
	if len(projects) == 0 {
		return nil, uuid.Nil, fmt.Errorf("project %s: %w", task.ProjectID, apperrors.ErrNotFound)
	}
	if projects[0].UserID != userID {
		return nil, uuid.Nil, fmt.Errorf("project %s: %w", task.ProjectID, apperrors.ErrForbidden)
	}
	return subtask, task.ProjectID, nil
}
