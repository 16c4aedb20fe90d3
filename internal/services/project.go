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

type ProjectService interface {
	CreateProject(ctx context.Context, userID, templateID uuid.UUID, name string) (*types.Project, error)
	GetUserProjects(ctx context.Context, userID uuid.UUID) ([]*types.Project, error)
	GetProject(ctx context.Context, userID, projectID uuid.UUID) (*types.Project, error)
	DeleteProject(ctx context.Context, userID, projectID uuid.UUID) error
	UpdateStructure(ctx context.Context, userID, projectID uuid.UUID, stages []StageInput, unstagedTasks []TaskInput) (*types.Project, *ReconcileResult, error)
}

type projectService struct {
	db                  *gorm.DB
	log                 *logger.Logger
	projectRepo         repos.ProjectRepo
	stageRepo           repos.ProjectStageRepo
	taskRepo            repos.ProjectTaskRepo
	subtaskRepo         repos.ProjectSubtaskRepo
	templateRepo        repos.TemplateRepo
	templateStageRepo   repos.TemplateStageRepo
	templateTaskRepo    repos.TemplateTaskRepo
	templateSubtaskRepo repos.TemplateSubtaskRepo
	progressService     ProgressService
}

func NewProjectService(
	db *gorm.DB,
	baseLog *logger.Logger,
	projectRepo repos.ProjectRepo,
	stageRepo repos.ProjectStageRepo,
	taskRepo repos.ProjectTaskRepo,
	subtaskRepo repos.ProjectSubtaskRepo,
	templateRepo repos.TemplateRepo,
	templateStageRepo repos.TemplateStageRepo,
	templateTaskRepo repos.TemplateTaskRepo,
	templateSubtaskRepo repos.TemplateSubtaskRepo,
	progressService ProgressService,
) ProjectService {
	serviceLog := baseLog.With("service", "ProjectService")
	return &projectService{
		db:                  db,
		log:                 serviceLog,
		projectRepo:         projectRepo,
		stageRepo:           stageRepo,
		taskRepo:            taskRepo,
		subtaskRepo:         subtaskRepo,
		templateRepo:        templateRepo,
		templateStageRepo:   templateStageRepo,
		templateTaskRepo:    templateTaskRepo,
		templateSubtaskRepo: templateSubtaskRepo,
		progressService:     progressService,
	}
}

// CreateProject materializes a template snapshot into a fresh project
// tree: fresh ids everywhere, completion flags false, status TODO,
// progress 0, gem null. Later template edits never touch the project.
func (s *projectService) CreateProject(ctx context.Context, userID, templateID uuid.UUID, name string) (*types.Project, error) {
	templates, err := s.templateRepo.GetByIDs(ctx, nil, []uuid.UUID{templateID})
	if err != nil {
		return nil, fmt.Errorf("load template: %w", err)
	}
	if len(templates) == 0 {
		return nil, fmt.Errorf("template %s: %w", templateID, apperrors.ErrNotFound)
	}
	template := templates[0]

	templateStages, err := s.templateStageRepo.GetByTemplateIDs(ctx, nil, []uuid.UUID{templateID})
	if err != nil {
		return nil, fmt.Errorf("load template stages: %w", err)
	}
	stageIDs := make([]uuid.UUID, len(templateStages))
	for i, st := range templateStages {
		stageIDs[i] = st.ID
	}
	stagedTasks, err := s.templateTaskRepo.GetByStageIDs(ctx, nil, stageIDs)
	if err != nil {
		return nil, fmt.Errorf("load template tasks: %w", err)
	}
	unstagedTasks, err := s.templateTaskRepo.GetUnstagedByTemplateIDs(ctx, nil, []uuid.UUID{templateID})
	if err != nil {
		return nil, fmt.Errorf("load unstaged template tasks: %w", err)
	}
	allTasks := append(append([]*types.TemplateTask{}, stagedTasks...), unstagedTasks...)
	taskIDs := make([]uuid.UUID, len(allTasks))
	for i, t := range allTasks {
		taskIDs[i] = t.ID
	}
	templateSubtasks, err := s.templateSubtaskRepo.GetByTaskIDs(ctx, nil, taskIDs)
	if err != nil {
		return nil, fmt.Errorf("load template subtasks: %w", err)
	}
	subtasksByTask := make(map[uuid.UUID][]*types.TemplateSubtask)
	for _, st := range templateSubtasks {
		subtasksByTask[st.TaskID] = append(subtasksByTask[st.TaskID], st)
	}
	tasksByStage := make(map[uuid.UUID][]*types.TemplateTask)
	for _, t := range stagedTasks {
		if t.StageID != nil {
			tasksByStage[*t.StageID] = append(tasksByStage[*t.StageID], t)
		}
	}

	if name == "" {
		name = template.Name
	}
	s.log.Info("CreateProject", "user_id", userID, "template_id", templateID)

	project := &types.Project{
		ID:         uuid.New(),
		UserID:     userID,
		TemplateID: templateID,
		Name:       name,
		Progress:   0,
		CurrentGem: nil,
	}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := s.projectRepo.Create(ctx, tx, []*types.Project{project}); err != nil {
			return fmt.Errorf("create project: %w", err)
		}

		var stageRows []*types.ProjectStage
		var taskRows []*types.ProjectTask
		var subtaskRows []*types.ProjectSubtask

		appendTask := func(tt *types.TemplateTask, stageID *uuid.UUID) {
			taskID := uuid.New()
			taskRows = append(taskRows, &types.ProjectTask{
				ID:          taskID,
				ProjectID:   project.ID,
				StageID:     stageID,
				Title:       tt.Title,
				Description: tt.Description,
				Order:       tt.Order,
				Status:      types.TaskStatusTodo,
				Completed:   false,
			})
			for _, ts := range subtasksByTask[tt.ID] {
				subtaskRows = append(subtaskRows, &types.ProjectSubtask{
					ID:          uuid.New(),
					TaskID:      taskID,
					Description: ts.Description,
					Completed:   false,
				})
			}
		}

		for _, ts := range templateStages {
			stageID := uuid.New()
			stageRows = append(stageRows, &types.ProjectStage{
				ID:          stageID,
				ProjectID:   project.ID,
				Name:        ts.Name,
				Description: ts.Description,
				Order:       ts.Order,
				GemType:     ts.GemType,
			})
			for _, tt := range tasksByStage[ts.ID] {
				sid := stageID
				appendTask(tt, &sid)
			}
		}
		for _, tt := range unstagedTasks {
			appendTask(tt, nil)
		}

		if _, err := s.stageRepo.Create(ctx, tx, stageRows); err != nil {
			return fmt.Errorf("create project stages: %w", err)
		}
		if _, err := s.taskRepo.Create(ctx, tx, taskRows); err != nil {
			return fmt.Errorf("create project tasks: %w", err)
		}
		if _, err := s.subtaskRepo.Create(ctx, tx, subtaskRows); err != nil {
			return fmt.Errorf("create project subtasks: %w", err)
		}
		return nil
	})
	if err != nil {
		s.log.Error("CreateProject failed", "error", err, "template_id", templateID)
		return nil, err
	}

	return s.loadProjectTree(ctx, nil, project.ID)
}

func (s *projectService) GetUserProjects(ctx context.Context, userID uuid.UUID) ([]*types.Project, error) {
	projects, err := s.projectRepo.GetByUserID(ctx, nil, userID)
	if err != nil {
		return nil, fmt.Errorf("load projects: %w", err)
	}
	return projects, nil
}

func (s *projectService) GetProject(ctx context.Context, userID, projectID uuid.UUID) (*types.Project, error) {
	if _, err := s.loadOwnedProject(ctx, nil, userID, projectID); err != nil {
		return nil, err
	}
	return s.loadProjectTree(ctx, nil, projectID)
}

// DeleteProject destroys the whole tree, children first, so the cascade
// does not rely on a storage-engine feature.
func (s *projectService) DeleteProject(ctx context.Context, userID, projectID uuid.UUID) error {
	if _, err := s.loadOwnedProject(ctx, nil, userID, projectID); err != nil {
		return err
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		tasks, err := s.taskRepo.GetByProjectIDs(ctx, tx, []uuid.UUID{projectID})
		if err != nil {
			return fmt.Errorf("load tasks: %w", err)
		}
		taskIDs := make([]uuid.UUID, len(tasks))
		for i, t := range tasks {
			taskIDs[i] = t.ID
		}
		stages, err := s.stageRepo.GetByProjectIDs(ctx, tx, []uuid.UUID{projectID})
		if err != nil {
			return fmt.Errorf("load stages: %w", err)
		}
		stageIDs := make([]uuid.UUID, len(stages))
		for i, st := range stages {
			stageIDs[i] = st.ID
		}

		if err := s.subtaskRepo.FullDeleteByTaskIDs(ctx, tx, taskIDs); err != nil {
			return fmt.Errorf("delete subtasks: %w", err)
		}
		if err := s.taskRepo.FullDeleteByIDs(ctx, tx, taskIDs); err != nil {
			return fmt.Errorf("delete tasks: %w", err)
		}
		if err := s.stageRepo.FullDeleteByIDs(ctx, tx, stageIDs); err != nil {
			return fmt.Errorf("delete stages: %w", err)
		}
		if err := s.projectRepo.FullDeleteByIDs(ctx, tx, []uuid.UUID{projectID}); err != nil {
			return fmt.Errorf("delete project: %w", err)
		}
		return nil
	})
}

// loadOwnedProject is the ownership guard used before any mutation:
// missing project is NotFound, wrong owner is Forbidden.
func (s *projectService) loadOwnedProject(ctx context.Context, tx *gorm.DB, userID, projectID uuid.UUID) (*types.Project, error) {
	projects, err := s.projectRepo.GetByIDs(ctx, tx, []uuid.UUID{projectID})
	if err != nil {
		return nil, fmt.Errorf("load project: %w", err)
	}
	if len(projects) == 0 {
		return nil, fmt.Errorf("project %s: %w", projectID, apperrors.ErrNotFound)
	}
	if projects[0].UserID != userID {
		return nil, fmt.Errorf("project %s: %w", projectID, apperrors.ErrForbidden)
	}
	return projects[0], nil
}

func (s *projectService) loadProjectTree(ctx context.Context, tx *gorm.DB, projectID uuid.UUID) (*types.Project, error) {
	projects, err := s.projectRepo.GetByIDs(ctx, tx, []uuid.UUID{projectID})
	if err != nil {
		return nil, fmt.Errorf("load project: %w", err)
	}
	if len(projects) == 0 {
		return nil, fmt.Errorf("project %s: %w", projectID, apperrors.ErrNotFound)
	}
	project := projects[0]

	stages, err := s.stageRepo.GetByProjectIDs(ctx, tx, []uuid.UUID{projectID})
	if err != nil {
		return nil, fmt.Errorf("load stages: %w", err)
	}
	tasks, err := s.taskRepo.GetByProjectIDs(ctx, tx, []uuid.UUID{projectID})
	if err != nil {
		return nil, fmt.Errorf("load tasks: %w", err)
	}
	taskIDs := make([]uuid.UUID, len(tasks))
	for i, t := range tasks {
		taskIDs[i] = t.ID
	}
	subtasks, err := s.subtaskRepo.GetByTaskIDs(ctx, tx, taskIDs)
	if err != nil {
		return nil, fmt.Errorf("load subtasks: %w", err)
	}

	subtasksByTask := make(map[uuid.UUID][]*types.ProjectSubtask)
	for _, st := range subtasks {
		subtasksByTask[st.TaskID] = append(subtasksByTask[st.TaskID], st)
	}
	for _, t := range tasks {
		t.Subtasks = subtasksByTask[t.ID]
	}

	stagesByID := make(map[uuid.UUID]*types.ProjectStage, len(stages))
	for _, st := range stages {
		st.Tasks = nil
		stagesByID[st.ID] = st
	}
	project.Stages = stages
	project.Tasks = nil
	for _, t := range tasks {
		if t.StageID != nil {
			if stage, ok := stagesByID[*t.StageID]; ok {
				stage.Tasks = append(stage.Tasks, t)
				continue
			}
		}
		project.Tasks = append(project.Tasks, t)
	}
	return project, nil
}
