package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/pathwayhq/pathway-backend/internal/types"
)

// StageInput / TaskInput / SubtaskInput carry a client-submitted tree
// edit. An element with an ID means "update in place"; without one it is
// created fresh. Submission order defines the new sibling order; client
// order values are never trusted.
type StageInput struct {
	ID          *uuid.UUID  `json:"id,omitempty"`
	Name        string      `json:"name"`
	Description string      `json:"description"`
	GemType     string      `json:"gem_type"`
	Tasks       []TaskInput `json:"tasks"`
}

type TaskInput struct {
	ID          *uuid.UUID     `json:"id,omitempty"`
	Title       string         `json:"title"`
	Description string         `json:"description"`
	Subtasks    []SubtaskInput `json:"subtasks"`
}

type SubtaskInput struct {
	ID          *uuid.UUID `json:"id,omitempty"`
	Description string     `json:"description"`
}

// ReconcileCounts reports what happened at one level of the tree, so
// unexpected duplication (an unknown id silently recreated) is visible
// to callers and audits.
type ReconcileCounts struct {
	Matched int `json:"matched"`
	Created int `json:"created"`
	Deleted int `json:"deleted"`
}

type ReconcileResult struct {
	Stages   ReconcileCounts `json:"stages"`
	Tasks    ReconcileCounts `json:"tasks"`
	Subtasks ReconcileCounts `json:"subtasks"`
}

// UpdateStructure reconciles a submitted tree against the persisted one.
// Matching is by id, always scoped to the immediate parent: an id under
// the wrong parent is treated as unknown and recreated fresh, never
// relinked. Unknown ids are tolerated (created fresh) so client retries
// after partial failures stay idempotent. Elements absent from the
// submission are deleted, children first.
func (s *projectService) UpdateStructure(ctx context.Context, userID, projectID uuid.UUID, stages []StageInput, unstagedTasks []TaskInput) (*types.Project, *ReconcileResult, error) {
	if _, err := s.loadOwnedProject(ctx, nil, userID, projectID); err != nil {
		return nil, nil, err
	}

	result := &ReconcileResult{}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		existingStages, err := s.stageRepo.GetByProjectIDs(ctx, tx, []uuid.UUID{projectID})
		if err != nil {
			return fmt.Errorf("load stages: %w", err)
		}
		stagesByID := make(map[uuid.UUID]*types.ProjectStage, len(existingStages))
		for _, st := range existingStages {
			stagesByID[st.ID] = st
		}

		incomingStageIDs := make(map[uuid.UUID]bool)
		for _, in := range stages {
			if in.ID != nil {
				incomingStageIDs[*in.ID] = true
			}
		}

		// Delete stages missing from the submission, cascading by hand.
		var removedStageIDs []uuid.UUID
		for _, st := range existingStages {
			if !incomingStageIDs[st.ID] {
				removedStageIDs = append(removedStageIDs, st.ID)
			}
		}
		if len(removedStageIDs) > 0 {
			removedTasks, err := s.taskRepo.GetByStageIDs(ctx, tx, removedStageIDs)
			if err != nil {
				return fmt.Errorf("load tasks of removed stages: %w", err)
			}
			removedTaskIDs := make([]uuid.UUID, len(removedTasks))
			for i, t := range removedTasks {
				removedTaskIDs[i] = t.ID
			}
			removedSubtasks, err := s.subtaskRepo.GetByTaskIDs(ctx, tx, removedTaskIDs)
			if err != nil {
				return fmt.Errorf("load subtasks of removed stages: %w", err)
			}
			if err := s.subtaskRepo.FullDeleteByTaskIDs(ctx, tx, removedTaskIDs); err != nil {
				return fmt.Errorf("delete subtasks of removed stages: %w", err)
			}
			if err := s.taskRepo.FullDeleteByStageIDs(ctx, tx, removedStageIDs); err != nil {
				return fmt.Errorf("delete tasks of removed stages: %w", err)
			}
			if err := s.stageRepo.FullDeleteByIDs(ctx, tx, removedStageIDs); err != nil {
				return fmt.Errorf("delete stages: %w", err)
			}
			result.Stages.Deleted += len(removedStageIDs)
			result.Tasks.Deleted += len(removedTasks)
			result.Subtasks.Deleted += len(removedSubtasks)
		}

		var survivingTaskIDs []uuid.UUID
		for position, in := range stages {
			var stageID uuid.UUID
			var existingTasks []*types.ProjectTask
			if in.ID != nil && stagesByID[*in.ID] != nil {
				stageID = *in.ID
				fields := map[string]interface{}{
					"name":        in.Name,
					"description": in.Description,
					"gem_type":    in.GemType,
					"order":       position,
				}
				if err := s.stageRepo.UpdateFields(ctx, tx, stageID, fields); err != nil {
					return fmt.Errorf("update stage: %w", err)
				}
				result.Stages.Matched++
				existingTasks, err = s.taskRepo.GetByStageIDs(ctx, tx, []uuid.UUID{stageID})
				if err != nil {
					return fmt.Errorf("load stage tasks: %w", err)
				}
			} else {
				if in.ID != nil {
					s.log.Warn("incoming stage id not found in project, creating fresh", "project_id", projectID, "stage_id", *in.ID)
				}
				stageID = uuid.New()
				row := &types.ProjectStage{
					ID:          stageID,
					ProjectID:   projectID,
					Name:        in.Name,
					Description: in.Description,
					Order:       position,
					GemType:     in.GemType,
				}
				if _, err := s.stageRepo.Create(ctx, tx, []*types.ProjectStage{row}); err != nil {
					return fmt.Errorf("create stage: %w", err)
				}
				result.Stages.Created++
			}

			stageRef := stageID
			taskIDs, err := s.reconcileTasks(ctx, tx, projectID, &stageRef, existingTasks, in.Tasks, result)
			if err != nil {
				return err
			}
			survivingTaskIDs = append(survivingTaskIDs, taskIDs...)
		}

		existingUnstaged, err := s.taskRepo.GetUnstagedByProjectIDs(ctx, tx, []uuid.UUID{projectID})
		if err != nil {
			return fmt.Errorf("load unstaged tasks: %w", err)
		}
		taskIDs, err := s.reconcileTasks(ctx, tx, projectID, nil, existingUnstaged, unstagedTasks, result)
		if err != nil {
			return err
		}
		survivingTaskIDs = append(survivingTaskIDs, taskIDs...)

		// Structural write done; rederive statuses, then progress, then gem.
		for _, taskID := range survivingTaskIDs {
			if err := s.progressService.PropagateTaskStatus(ctx, tx, taskID); err != nil {
				return err
			}
		}
		if _, err := s.progressService.RecalculateProgress(ctx, tx, projectID); err != nil {
			return err
		}
		if _, err := s.progressService.ResolveGem(ctx, tx, projectID); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		s.log.Error("UpdateStructure failed", "error", err, "project_id", projectID)
		return nil, nil, err
	}

	project, err := s.loadProjectTree(ctx, nil, projectID)
	if err != nil {
		return nil, nil, err
	}
	return project, result, nil
}

func (s *projectService) reconcileTasks(ctx context.Context, tx *gorm.DB, projectID uuid.UUID, stageID *uuid.UUID, existing []*types.ProjectTask, incoming []TaskInput, result *ReconcileResult) ([]uuid.UUID, error) {
	tasksByID := make(map[uuid.UUID]*types.ProjectTask, len(existing))
	for _, t := range existing {
		tasksByID[t.ID] = t
	}
	incomingTaskIDs := make(map[uuid.UUID]bool)
	for _, in := range incoming {
		if in.ID != nil {
			incomingTaskIDs[*in.ID] = true
		}
	}

	var removedTaskIDs []uuid.UUID
	for _, t := range existing {
		if !incomingTaskIDs[t.ID] {
			removedTaskIDs = append(removedTaskIDs, t.ID)
		}
	}
	if len(removedTaskIDs) > 0 {
		removedSubtasks, err := s.subtaskRepo.GetByTaskIDs(ctx, tx, removedTaskIDs)
		if err != nil {
			return nil, fmt.Errorf("load subtasks of removed tasks: %w", err)
		}
		if err := s.subtaskRepo.FullDeleteByTaskIDs(ctx, tx, removedTaskIDs); err != nil {
			return nil, fmt.Errorf("delete subtasks of removed tasks: %w", err)
		}
		if err := s.taskRepo.FullDeleteByIDs(ctx, tx, removedTaskIDs); err != nil {
			return nil, fmt.Errorf("delete tasks: %w", err)
		}
		result.Tasks.Deleted += len(removedTaskIDs)
		result.Subtasks.Deleted += len(removedSubtasks)
	}

	var survivors []uuid.UUID
	for position, in := range incoming {
		var taskID uuid.UUID
		var existingSubtasks []*types.ProjectSubtask
		if in.ID != nil && tasksByID[*in.ID] != nil {
			taskID = *in.ID
			fields := map[string]interface{}{
				"title":       in.Title,
				"description": in.Description,
				"order":       position,
			}
			if err := s.taskRepo.UpdateFields(ctx, tx, taskID, fields); err != nil {
				return nil, fmt.Errorf("update task: %w", err)
			}
			result.Tasks.Matched++
			var err error
			existingSubtasks, err = s.subtaskRepo.GetByTaskIDs(ctx, tx, []uuid.UUID{taskID})
			if err != nil {
				return nil, fmt.Errorf("load task subtasks: %w", err)
			}
		} else {
			if in.ID != nil {
				s.log.Warn("incoming task id not found under parent, creating fresh", "project_id", projectID, "task_id", *in.ID)
			}
			taskID = uuid.New()
			row := &types.ProjectTask{
				ID:          taskID,
				ProjectID:   projectID,
				StageID:     stageID,
				Title:       in.Title,
				Description: in.Description,
				Order:       position,
				Status:      types.TaskStatusTodo,
				Completed:   false,
			}
			if _, err := s.taskRepo.Create(ctx, tx, []*types.ProjectTask{row}); err != nil {
				return nil, fmt.Errorf("create task: %w", err)
			}
			result.Tasks.Created++
		}

		if err := s.reconcileSubtasks(ctx, tx, projectID, taskID, existingSubtasks, in.Subtasks, result); err != nil {
			return nil, err
		}
		survivors = append(survivors, taskID)
	}
	return survivors, nil
}

func (s *projectService) reconcileSubtasks(ctx context.Context, tx *gorm.DB, projectID, taskID uuid.UUID, existing []*types.ProjectSubtask, incoming []SubtaskInput, result *ReconcileResult) error {
	subtasksByID := make(map[uuid.UUID]*types.ProjectSubtask, len(existing))
	for _, st := range existing {
		subtasksByID[st.ID] = st
	}
	incomingSubtaskIDs := make(map[uuid.UUID]bool)
	for _, in := range incoming {
		if in.ID != nil {
			incomingSubtaskIDs[*in.ID] = true
		}
	}

	var removedSubtaskIDs []uuid.UUID
	for _, st := range existing {
		if !incomingSubtaskIDs[st.ID] {
			removedSubtaskIDs = append(removedSubtaskIDs, st.ID)
		}
	}
	if len(removedSubtaskIDs) > 0 {
		if err := s.subtaskRepo.FullDeleteByIDs(ctx, tx, removedSubtaskIDs); err != nil {
			return fmt.Errorf("delete subtasks: %w", err)
		}
		result.Subtasks.Deleted += len(removedSubtaskIDs)
	}

	for _, in := range incoming {
		if in.ID != nil && subtasksByID[*in.ID] != nil {
			// Only the submitted field is overwritten; completion,
			// answer and link survive the edit.
			if err := s.subtaskRepo.UpdateFields(ctx, tx, *in.ID, map[string]interface{}{"description": in.Description}); err != nil {
				return fmt.Errorf("update subtask: %w", err)
			}
			result.Subtasks.Matched++
			continue
		}
		if in.ID != nil {
			s.log.Warn("incoming subtask id not found under parent, creating fresh", "project_id", projectID, "subtask_id", *in.ID)
		}
		row := &types.ProjectSubtask{
			ID:          uuid.New(),
			TaskID:      taskID,
			Description: in.Description,
			Completed:   false,
		}
		if _, err := s.subtaskRepo.Create(ctx, tx, []*types.ProjectSubtask{row}); err != nil {
			return fmt.Errorf("create subtask: %w", err)
		}
		result.Subtasks.Created++
	}
	return nil
}
