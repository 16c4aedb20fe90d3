package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/pathwayhq/pathway-backend/internal/logger"
	"github.com/pathwayhq/pathway-backend/internal/repos"
	"github.com/pathwayhq/pathway-backend/internal/types"
)

// GemChange reports the outcome of a gem resolution so callers can decide
// whether a notification is warranted.
type GemChange struct {
	Changed  bool    `json:"changed"`
	Previous *string `json:"previous,omitempty"`
	New      *string `json:"new,omitempty"`
}

// ProgressService derives task status, project progress and the current
// gem from leaf state. Recalculation methods degrade to a no-op when the
// target row is gone; they always run as a side effect of an already
// validated mutation.
type ProgressService interface {
	PropagateTaskStatus(ctx context.Context, tx *gorm.DB, taskID uuid.UUID) error
	RecalculateProgress(ctx context.Context, tx *gorm.DB, projectID uuid.UUID) (float64, error)
	ResolveGem(ctx context.Context, tx *gorm.DB, projectID uuid.UUID) (GemChange, error)
}

type progressService struct {
	db          *gorm.DB
	log         *logger.Logger
	projectRepo repos.ProjectRepo
	stageRepo   repos.ProjectStageRepo
	taskRepo    repos.ProjectTaskRepo
	subtaskRepo repos.ProjectSubtaskRepo
}

func NewProgressService(
	db *gorm.DB,
	baseLog *logger.Logger,
	projectRepo repos.ProjectRepo,
	stageRepo repos.ProjectStageRepo,
	taskRepo repos.ProjectTaskRepo,
	subtaskRepo repos.ProjectSubtaskRepo,
) ProgressService {
	serviceLog := baseLog.With("service", "ProgressService")
	return &progressService{
		db:          db,
		log:         serviceLog,
		projectRepo: projectRepo,
		stageRepo:   stageRepo,
		taskRepo:    taskRepo,
		subtaskRepo: subtaskRepo,
	}
}

// PropagateTaskStatus rederives a task's Status/Completed pair from its
// subtasks. Tasks without subtasks keep their own pair untouched. The
// write is skipped when nothing changed, so repeated calls are no-ops.
func (ps *progressService) PropagateTaskStatus(ctx context.Context, tx *gorm.DB, taskID uuid.UUID) error {
	tasks, err := ps.taskRepo.GetByIDs(ctx, tx, []uuid.UUID{taskID})
	if err != nil {
		return fmt.Errorf("load task: %w", err)
	}
	if len(tasks) == 0 {
		ps.log.Debug("PropagateTaskStatus on missing task, skipping", "task_id", taskID)
		return nil
	}
	task := tasks[0]

	subtasks, err := ps.subtaskRepo.GetByTaskIDs(ctx, tx, []uuid.UUID{taskID})
	if err != nil {
		return fmt.Errorf("load subtasks: %w", err)
	}
	if len(subtasks) == 0 {
		return nil
	}

	completedCount := 0
	for _, st := range subtasks {
		if st.Completed {
			completedCount++
		}
	}

	newStatus := task.Status
	newCompleted := false
	switch {
	case completedCount == len(subtasks):
		newStatus = types.TaskStatusDone
		newCompleted = true
	case completedCount == 0:
		newStatus = types.TaskStatusTodo
	default:
		// Partial completion lands on IN_PROGRESS. Demoting DONE here
		// keeps completed consistent with status.
		newStatus = types.TaskStatusInProgress
	}

	if newStatus == task.Status && newCompleted == task.Completed {
		return nil
	}

	fields := map[string]interface{}{
		"status":    newStatus,
		"completed": newCompleted,
	}
	if err := ps.taskRepo.UpdateFields(ctx, tx, taskID, fields); err != nil {
		return fmt.Errorf("update task status: %w", err)
	}
	return nil
}

// RecalculateProgress recomputes the project percentage from every
// subtask under the project, staged or not. Leaf-counted: a task with
// many subtasks weighs more than a task with one.
func (ps *progressService) RecalculateProgress(ctx context.Context, tx *gorm.DB, projectID uuid.UUID) (float64, error) {
	projects, err := ps.projectRepo.GetByIDs(ctx, tx, []uuid.UUID{projectID})
	if err != nil {
		return 0, fmt.Errorf("load project: %w", err)
	}
	if len(projects) == 0 {
		ps.log.Debug("RecalculateProgress on missing project, skipping", "project_id", projectID)
		return 0, nil
	}
	project := projects[0]

	tasks, err := ps.taskRepo.GetByProjectIDs(ctx, tx, []uuid.UUID{projectID})
	if err != nil {
		return 0, fmt.Errorf("load tasks: %w", err)
	}
	taskIDs := make([]uuid.UUID, len(tasks))
	for i, t := range tasks {
		taskIDs[i] = t.ID
	}
	subtasks, err := ps.subtaskRepo.GetByTaskIDs(ctx, tx, taskIDs)
	if err != nil {
		return 0, fmt.Errorf("load subtasks: %w", err)
	}

	completed := 0
	for _, st := range subtasks {
		if st.Completed {
			completed++
		}
	}
	var progress float64
	if len(subtasks) > 0 {
		progress = 100 * float64(completed) / float64(len(subtasks))
	}

	if progress != project.Progress {
		if err := ps.projectRepo.UpdateFields(ctx, tx, projectID, map[string]interface{}{"progress": progress}); err != nil {
			return 0, fmt.Errorf("persist progress: %w", err)
		}
	}
	return progress, nil
}

// ResolveGem walks the project's stages in order. A fully completed
// stage sets the gem and the walk continues; the first incomplete stage
// halts the walk, claiming the gem only when it has been started and no
// earlier stage completed. The net result is the gem of the last fully
// completed stage, or the first started stage when nothing is complete
// yet.
func (ps *progressService) ResolveGem(ctx context.Context, tx *gorm.DB, projectID uuid.UUID) (GemChange, error) {
	projects, err := ps.projectRepo.GetByIDs(ctx, tx, []uuid.UUID{projectID})
	if err != nil {
		return GemChange{}, fmt.Errorf("load project: %w", err)
	}
	if len(projects) == 0 {
		ps.log.Debug("ResolveGem on missing project, skipping", "project_id", projectID)
		return GemChange{}, nil
	}
	project := projects[0]

	stages, err := ps.stageRepo.GetByProjectIDs(ctx, tx, []uuid.UUID{projectID})
	if err != nil {
		return GemChange{}, fmt.Errorf("load stages: %w", err)
	}
	stageIDs := make([]uuid.UUID, len(stages))
	for i, s := range stages {
		stageIDs[i] = s.ID
	}
	tasks, err := ps.taskRepo.GetByStageIDs(ctx, tx, stageIDs)
	if err != nil {
		return GemChange{}, fmt.Errorf("load tasks: %w", err)
	}
	taskIDs := make([]uuid.UUID, len(tasks))
	for i, t := range tasks {
		taskIDs[i] = t.ID
	}
	subtasks, err := ps.subtaskRepo.GetByTaskIDs(ctx, tx, taskIDs)
	if err != nil {
		return GemChange{}, fmt.Errorf("load subtasks: %w", err)
	}

	tasksByStage := make(map[uuid.UUID][]*types.ProjectTask)
	for _, t := range tasks {
		if t.StageID != nil {
			tasksByStage[*t.StageID] = append(tasksByStage[*t.StageID], t)
		}
	}
	subtasksByTask := make(map[uuid.UUID][]*types.ProjectSubtask)
	for _, st := range subtasks {
		subtasksByTask[st.TaskID] = append(subtasksByTask[st.TaskID], st)
	}

	var currentGem *string
	for _, stage := range stages {
		stageTasks := tasksByStage[stage.ID]
		if stageFullyComplete(stageTasks, subtasksByTask) {
			gem := stage.GemType
			currentGem = &gem
			continue
		}
		if currentGem == nil && stageStarted(stageTasks, subtasksByTask) {
			gem := stage.GemType
			currentGem = &gem
		}
		// The first incomplete stage halts the walk.
		break
	}

	change := GemChange{
		Changed:  !gemEqual(project.CurrentGem, currentGem),
		Previous: project.CurrentGem,
		New:      currentGem,
	}
	if change.Changed {
		if err := ps.projectRepo.UpdateFields(ctx, tx, projectID, map[string]interface{}{"current_gem": currentGem}); err != nil {
			return GemChange{}, fmt.Errorf("persist gem: %w", err)
		}
	}
	return change, nil
}

// taskComplete is total over both task shapes: with subtasks the answer
// comes from the leaves, without them from the task's own flag.
func taskComplete(task *types.ProjectTask, subtasksByTask map[uuid.UUID][]*types.ProjectSubtask) bool {
	subtasks := subtasksByTask[task.ID]
	if len(subtasks) == 0 {
		return task.Completed
	}
	for _, st := range subtasks {
		if !st.Completed {
			return false
		}
	}
	return true
}

func stageFullyComplete(tasks []*types.ProjectTask, subtasksByTask map[uuid.UUID][]*types.ProjectSubtask) bool {
	for _, t := range tasks {
		if !taskComplete(t, subtasksByTask) {
			return false
		}
	}
	return true
}

func stageStarted(tasks []*types.ProjectTask, subtasksByTask map[uuid.UUID][]*types.ProjectSubtask) bool {
	for _, t := range tasks {
		if taskComplete(t, subtasksByTask) {
			return true
		}
		for _, st := range subtasksByTask[t.ID] {
			if st.Completed {
				return true
			}
		}
	}
	return false
}

func gemEqual(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
