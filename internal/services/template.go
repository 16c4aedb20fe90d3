package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/pathwayhq/pathway-backend/internal/logger"
	apperrors "github.com/pathwayhq/pathway-backend/internal/pkg/errors"
	"github.com/pathwayhq/pathway-backend/internal/repos"
	"github.com/pathwayhq/pathway-backend/internal/types"
)

type TemplateInput struct {
	Name        string               `json:"name"`
	Version     string               `json:"version"`
	Description string               `json:"description"`
	Metadata    datatypes.JSON       `json:"metadata,omitempty"`
	Stages      []TemplateStageInput `json:"stages"`
	Tasks       []TemplateTaskInput  `json:"tasks"`
}

type TemplateStageInput struct {
	ID          *uuid.UUID          `json:"id,omitempty"`
	Name        string              `json:"name"`
	Description string              `json:"description"`
	GemType     string              `json:"gem_type"`
	Tasks       []TemplateTaskInput `json:"tasks"`
}

type TemplateTaskInput struct {
	ID          *uuid.UUID             `json:"id,omitempty"`
	Title       string                 `json:"title"`
	Description string                 `json:"description"`
	Subtasks    []TemplateSubtaskInput `json:"subtasks"`
}

type TemplateSubtaskInput struct {
	ID          *uuid.UUID `json:"id,omitempty"`
	Description string     `json:"description"`
}

// TemplateService manages the immutable blueprints. Structure edits use
// the same match-by-id reconciliation as project trees; projects already
// materialized from a template are never touched by template edits.
type TemplateService interface {
	CreateTemplate(ctx context.Context, input TemplateInput) (*types.Template, error)
	GetAll(ctx context.Context) ([]*types.Template, error)
	GetByID(ctx context.Context, id uuid.UUID) (*types.Template, error)
	UpdateTemplate(ctx context.Context, id uuid.UUID, input TemplateInput) (*types.Template, error)
	CreateVersion(ctx context.Context, id uuid.UUID, input TemplateInput) (*types.Template, error)
	ToggleActive(ctx context.Context, id uuid.UUID) (*types.Template, error)
}

type templateService struct {
	db           *gorm.DB
	log          *logger.Logger
	templateRepo repos.TemplateRepo
	stageRepo    repos.TemplateStageRepo
	taskRepo     repos.TemplateTaskRepo
	subtaskRepo  repos.TemplateSubtaskRepo
}

func NewTemplateService(
	db *gorm.DB,
	baseLog *logger.Logger,
	templateRepo repos.TemplateRepo,
	stageRepo repos.TemplateStageRepo,
	taskRepo repos.TemplateTaskRepo,
	subtaskRepo repos.TemplateSubtaskRepo,
) TemplateService {
	serviceLog := baseLog.With("service", "TemplateService")
	return &templateService{
		db:           db,
		log:          serviceLog,
		templateRepo: templateRepo,
		stageRepo:    stageRepo,
		taskRepo:     taskRepo,
		subtaskRepo:  subtaskRepo,
	}
}

func (s *templateService) CreateTemplate(ctx context.Context, input TemplateInput) (*types.Template, error) {
	version := input.Version
	if version == "" {
		version = "1.0"
	}
	template := &types.Template{
		ID:          uuid.New(),
		Name:        input.Name,
		Version:     version,
		Description: input.Description,
		IsActive:    true,
		Metadata:    input.Metadata,
	}
	s.log.Info("CreateTemplate", "name", input.Name, "version", version)

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := s.templateRepo.Create(ctx, tx, []*types.Template{template}); err != nil {
			return fmt.Errorf("create template: %w", err)
		}
		for position, stageIn := range input.Stages {
			stage := &types.TemplateStage{
				ID:          uuid.New(),
				TemplateID:  template.ID,
				Name:        stageIn.Name,
				Description: stageIn.Description,
				Order:       position,
				GemType:     stageIn.GemType,
			}
			if _, err := s.stageRepo.Create(ctx, tx, []*types.TemplateStage{stage}); err != nil {
				return fmt.Errorf("create template stage: %w", err)
			}
			if err := s.createTasks(ctx, tx, template.ID, &stage.ID, stageIn.Tasks); err != nil {
				return err
			}
		}
		if err := s.createTasks(ctx, tx, template.ID, nil, input.Tasks); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		s.log.Error("CreateTemplate failed", "error", err)
		return nil, err
	}
	return s.loadTemplateTree(ctx, nil, template.ID)
}

func (s *templateService) createTasks(ctx context.Context, tx *gorm.DB, templateID uuid.UUID, stageID *uuid.UUID, inputs []TemplateTaskInput) error {
	for position, taskIn := range inputs {
		task := &types.TemplateTask{
			ID:          uuid.New(),
			TemplateID:  templateID,
			StageID:     stageID,
			Title:       taskIn.Title,
			Description: taskIn.Description,
			Order:       position,
		}
		if _, err := s.taskRepo.Create(ctx, tx, []*types.TemplateTask{task}); err != nil {
			return fmt.Errorf("create template task: %w", err)
		}
		for _, subtaskIn := range taskIn.Subtasks {
			row := &types.TemplateSubtask{
				ID:          uuid.New(),
				TaskID:      task.ID,
				Description: subtaskIn.Description,
			}
			if _, err := s.subtaskRepo.Create(ctx, tx, []*types.TemplateSubtask{row}); err != nil {
				return fmt.Errorf("create template subtask: %w", err)
			}
		}
	}
	return nil
}

func (s *templateService) GetAll(ctx context.Context) ([]*types.Template, error) {
	templates, err := s.templateRepo.GetAll(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("load templates: %w", err)
	}
	for _, template := range templates {
		if err := s.attachTree(ctx, nil, template); err != nil {
			return nil, err
		}
	}
	return templates, nil
}

func (s *templateService) GetByID(ctx context.Context, id uuid.UUID) (*types.Template, error) {
	return s.loadTemplateTree(ctx, nil, id)
}

// UpdateTemplate reconciles a submitted template tree against the
// persisted one with the same semantics as project structure edits:
// match by id within the parent, delete what is missing, order follows
// submission position.
func (s *templateService) UpdateTemplate(ctx context.Context, id uuid.UUID, input TemplateInput) (*types.Template, error) {
	if _, err := s.loadTemplate(ctx, nil, id); err != nil {
		return nil, err
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		fields := map[string]interface{}{
			"name":        input.Name,
			"version":     input.Version,
			"description": input.Description,
		}
		if input.Metadata != nil {
			fields["metadata"] = input.Metadata
		}
		if err := s.templateRepo.UpdateFields(ctx, tx, id, fields); err != nil {
			return fmt.Errorf("update template: %w", err)
		}

		existingStages, err := s.stageRepo.GetByTemplateIDs(ctx, tx, []uuid.UUID{id})
		if err != nil {
			return fmt.Errorf("load template stages: %w", err)
		}
		stagesByID := make(map[uuid.UUID]*types.TemplateStage, len(existingStages))
		for _, st := range existingStages {
			stagesByID[st.ID] = st
		}
		incomingStageIDs := make(map[uuid.UUID]bool)
		for _, in := range input.Stages {
			if in.ID != nil {
				incomingStageIDs[*in.ID] = true
			}
		}

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
			if err := s.subtaskRepo.FullDeleteByTaskIDs(ctx, tx, removedTaskIDs); err != nil {
				return fmt.Errorf("delete subtasks of removed stages: %w", err)
			}
			if err := s.taskRepo.FullDeleteByStageIDs(ctx, tx, removedStageIDs); err != nil {
				return fmt.Errorf("delete tasks of removed stages: %w", err)
			}
			if err := s.stageRepo.FullDeleteByIDs(ctx, tx, removedStageIDs); err != nil {
				return fmt.Errorf("delete stages: %w", err)
			}
		}

		for position, in := range input.Stages {
			var stageID uuid.UUID
			var existingTasks []*types.TemplateTask
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
				existingTasks, err = s.taskRepo.GetByStageIDs(ctx, tx, []uuid.UUID{stageID})
				if err != nil {
					return fmt.Errorf("load stage tasks: %w", err)
				}
			} else {
				stageID = uuid.New()
				row := &types.TemplateStage{
					ID:          stageID,
					TemplateID:  id,
					Name:        in.Name,
					Description: in.Description,
					Order:       position,
					GemType:     in.GemType,
				}
				if _, err := s.stageRepo.Create(ctx, tx, []*types.TemplateStage{row}); err != nil {
					return fmt.Errorf("create stage: %w", err)
				}
			}
			if err := s.reconcileTemplateTasks(ctx, tx, id, &stageID, existingTasks, in.Tasks); err != nil {
				return err
			}
		}

		existingUnstaged, err := s.taskRepo.GetUnstagedByTemplateIDs(ctx, tx, []uuid.UUID{id})
		if err != nil {
			return fmt.Errorf("load unstaged template tasks: %w", err)
		}
		return s.reconcileTemplateTasks(ctx, tx, id, nil, existingUnstaged, input.Tasks)
	})
	if err != nil {
		s.log.Error("UpdateTemplate failed", "error", err, "template_id", id)
		return nil, err
	}
	return s.loadTemplateTree(ctx, nil, id)
}

func (s *templateService) reconcileTemplateTasks(ctx context.Context, tx *gorm.DB, templateID uuid.UUID, stageID *uuid.UUID, existing []*types.TemplateTask, incoming []TemplateTaskInput) error {
	tasksByID := make(map[uuid.UUID]*types.TemplateTask, len(existing))
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
		if err := s.subtaskRepo.FullDeleteByTaskIDs(ctx, tx, removedTaskIDs); err != nil {
			return fmt.Errorf("delete subtasks of removed tasks: %w", err)
		}
		if err := s.taskRepo.FullDeleteByIDs(ctx, tx, removedTaskIDs); err != nil {
			return fmt.Errorf("delete tasks: %w", err)
		}
	}

	for position, in := range incoming {
		var taskID uuid.UUID
		var existingSubtasks []*types.TemplateSubtask
		if in.ID != nil && tasksByID[*in.ID] != nil {
			taskID = *in.ID
			fields := map[string]interface{}{
				"title":       in.Title,
				"description": in.Description,
				"order":       position,
			}
			if err := s.taskRepo.UpdateFields(ctx, tx, taskID, fields); err != nil {
				return fmt.Errorf("update task: %w", err)
			}
			var err error
			existingSubtasks, err = s.subtaskRepo.GetByTaskIDs(ctx, tx, []uuid.UUID{taskID})
			if err != nil {
				return fmt.Errorf("load task subtasks: %w", err)
			}
		} else {
			taskID = uuid.New()
			row := &types.TemplateTask{
				ID:          taskID,
				TemplateID:  templateID,
				StageID:     stageID,
				Title:       in.Title,
				Description: in.Description,
				Order:       position,
			}
			if _, err := s.taskRepo.Create(ctx, tx, []*types.TemplateTask{row}); err != nil {
				return fmt.Errorf("create task: %w", err)
			}
		}

		subtasksByID := make(map[uuid.UUID]*types.TemplateSubtask, len(existingSubtasks))
		for _, st := range existingSubtasks {
			subtasksByID[st.ID] = st
		}
		incomingSubtaskIDs := make(map[uuid.UUID]bool)
		for _, subIn := range in.Subtasks {
			if subIn.ID != nil {
				incomingSubtaskIDs[*subIn.ID] = true
			}
		}
		var removedSubtaskIDs []uuid.UUID
		for _, st := range existingSubtasks {
			if !incomingSubtaskIDs[st.ID] {
				removedSubtaskIDs = append(removedSubtaskIDs, st.ID)
			}
		}
		if err := s.subtaskRepo.FullDeleteByIDs(ctx, tx, removedSubtaskIDs); err != nil {
			return fmt.Errorf("delete subtasks: %w", err)
		}
		for _, subIn := range in.Subtasks {
			if subIn.ID != nil && subtasksByID[*subIn.ID] != nil {
				if err := s.subtaskRepo.UpdateFields(ctx, tx, *subIn.ID, map[string]interface{}{"description": subIn.Description}); err != nil {
					return fmt.Errorf("update subtask: %w", err)
				}
				continue
			}
			row := &types.TemplateSubtask{
				ID:          uuid.New(),
				TaskID:      taskID,
				Description: subIn.Description,
			}
			if _, err := s.subtaskRepo.Create(ctx, tx, []*types.TemplateSubtask{row}); err != nil {
				return fmt.Errorf("create subtask: %w", err)
			}
		}
	}
	return nil
}

// CreateVersion copies a template forward under a new version string,
// with fresh ids throughout. The submitted input overrides the copied
// tree when present.
func (s *templateService) CreateVersion(ctx context.Context, id uuid.UUID, input TemplateInput) (*types.Template, error) {
	existing, err := s.loadTemplateTree(ctx, nil, id)
	if err != nil {
		return nil, err
	}

	next := TemplateInput{
		Name:        input.Name,
		Version:     input.Version,
		Description: input.Description,
		Metadata:    input.Metadata,
		Stages:      input.Stages,
		Tasks:       input.Tasks,
	}
	if next.Name == "" {
		next.Name = existing.Name
	}
	if next.Version == "" {
		next.Version = existing.Version + "-1"
	}
	if next.Description == "" {
		next.Description = existing.Description
	}
	if next.Metadata == nil {
		next.Metadata = existing.Metadata
	}
	if next.Stages == nil && next.Tasks == nil {
		next.Stages = copyStageInputs(existing.Stages)
		next.Tasks = copyTaskInputs(existing.Tasks)
	}
	return s.CreateTemplate(ctx, next)
}

func copyStageInputs(stages []*types.TemplateStage) []TemplateStageInput {
	out := make([]TemplateStageInput, len(stages))
	for i, st := range stages {
		out[i] = TemplateStageInput{
			Name:        st.Name,
			Description: st.Description,
			GemType:     st.GemType,
			Tasks:       copyTaskInputs(st.Tasks),
		}
	}
	return out
}

func copyTaskInputs(tasks []*types.TemplateTask) []TemplateTaskInput {
	out := make([]TemplateTaskInput, len(tasks))
	for i, t := range tasks {
		subtasks := make([]TemplateSubtaskInput, len(t.Subtasks))
		for j, st := range t.Subtasks {
			subtasks[j] = TemplateSubtaskInput{Description: st.Description}
		}
		out[i] = TemplateTaskInput{
			Title:       t.Title,
			Description: t.Description,
			Subtasks:    subtasks,
		}
	}
	return out
}

func (s *templateService) ToggleActive(ctx context.Context, id uuid.UUID) (*types.Template, error) {
	template, err := s.loadTemplate(ctx, nil, id)
	if err != nil {
		return nil, err
	}
	if err := s.templateRepo.UpdateFields(ctx, nil, id, map[string]interface{}{"is_active": !template.IsActive}); err != nil {
		return nil, fmt.Errorf("toggle template active: %w", err)
	}
	return s.loadTemplateTree(ctx, nil, id)
}

func (s *templateService) loadTemplate(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Template, error) {
	templates, err := s.templateRepo.GetByIDs(ctx, tx, []uuid.UUID{id})
	if err != nil {
		return nil, fmt.Errorf("load template: %w", err)
	}
	if len(templates) == 0 {
		return nil, fmt.Errorf("template %s: %w", id, apperrors.ErrNotFound)
	}
	return templates[0], nil
}

func (s *templateService) loadTemplateTree(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Template, error) {
	template, err := s.loadTemplate(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if err := s.attachTree(ctx, tx, template); err != nil {
		return nil, err
	}
	return template, nil
}

func (s *templateService) attachTree(ctx context.Context, tx *gorm.DB, template *types.Template) error {
	stages, err := s.stageRepo.GetByTemplateIDs(ctx, tx, []uuid.UUID{template.ID})
	if err != nil {
		return fmt.Errorf("load template stages: %w", err)
	}
	stageIDs := make([]uuid.UUID, len(stages))
	for i, st := range stages {
		stageIDs[i] = st.ID
	}
	stagedTasks, err := s.taskRepo.GetByStageIDs(ctx, tx, stageIDs)
	if err != nil {
		return fmt.Errorf("load template tasks: %w", err)
	}
	unstagedTasks, err := s.taskRepo.GetUnstagedByTemplateIDs(ctx, tx, []uuid.UUID{template.ID})
	if err != nil {
		return fmt.Errorf("load unstaged template tasks: %w", err)
	}
	allTasks := append(append([]*types.TemplateTask{}, stagedTasks...), unstagedTasks...)
	taskIDs := make([]uuid.UUID, len(allTasks))
	for i, t := range allTasks {
		taskIDs[i] = t.ID
	}
	subtasks, err := s.subtaskRepo.GetByTaskIDs(ctx, tx, taskIDs)
	if err != nil {
		return fmt.Errorf("load template subtasks: %w", err)
	}

	subtasksByTask := make(map[uuid.UUID][]*types.TemplateSubtask)
	for _, st := range subtasks {
		subtasksByTask[st.TaskID] = append(subtasksByTask[st.TaskID], st)
	}
	for _, t := range allTasks {
		t.Subtasks = subtasksByTask[t.ID]
	}
	stagesByID := make(map[uuid.UUID]*types.TemplateStage, len(stages))
	for _, st := range stages {
		st.Tasks = nil
		stagesByID[st.ID] = st
	}
	for _, t := range stagedTasks {
		if t.StageID != nil {
			if stage, ok := stagesByID[*t.StageID]; ok {
				stage.Tasks = append(stage.Tasks, t)
			}
		}
	}
	template.Stages = stages
	template.Tasks = unstagedTasks
	return nil
}
