package services

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/pathwayhq/pathway-backend/internal/logger"
	"github.com/pathwayhq/pathway-backend/internal/repos"
	"github.com/pathwayhq/pathway-backend/internal/types"
)

// testEnv wires the real services against an in-memory sqlite database
// so derivation runs end to end without a postgres instance.
type testEnv struct {
	db *gorm.DB

	userRepo    repos.UserRepo
	projectRepo repos.ProjectRepo
	stageRepo   repos.ProjectStageRepo
	taskRepo    repos.ProjectTaskRepo
	subtaskRepo repos.ProjectSubtaskRepo

	templates TemplateService
	projects  ProjectService
	tasks     TaskService
	subtasks  SubtaskService
	progress  ProgressService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	err = db.AutoMigrate(
		&types.User{},
		&types.UserToken{},
		&types.Template{},
		&types.TemplateStage{},
		&types.TemplateTask{},
		&types.TemplateSubtask{},
		&types.Project{},
		&types.ProjectStage{},
		&types.ProjectTask{},
		&types.ProjectSubtask{},
	)
	if err != nil {
		t.Fatalf("auto migrate: %v", err)
	}

	log := logger.NewNop()
	userRepo := repos.NewUserRepo(db, log)
	templateRepo := repos.NewTemplateRepo(db, log)
	templateStageRepo := repos.NewTemplateStageRepo(db, log)
	templateTaskRepo := repos.NewTemplateTaskRepo(db, log)
	templateSubtaskRepo := repos.NewTemplateSubtaskRepo(db, log)
	projectRepo := repos.NewProjectRepo(db, log)
	stageRepo := repos.NewProjectStageRepo(db, log)
	taskRepo := repos.NewProjectTaskRepo(db, log)
	subtaskRepo := repos.NewProjectSubtaskRepo(db, log)

	progress := NewProgressService(db, log, projectRepo, stageRepo, taskRepo, subtaskRepo)
	return &testEnv{
		db:          db,
		userRepo:    userRepo,
		projectRepo: projectRepo,
		stageRepo:   stageRepo,
		taskRepo:    taskRepo,
		subtaskRepo: subtaskRepo,
		templates:   NewTemplateService(db, log, templateRepo, templateStageRepo, templateTaskRepo, templateSubtaskRepo),
		projects: NewProjectService(
			db, log,
			projectRepo, stageRepo, taskRepo, subtaskRepo,
			templateRepo, templateStageRepo, templateTaskRepo, templateSubtaskRepo,
			progress,
		),
		tasks:    NewTaskService(db, log, projectRepo, taskRepo, subtaskRepo, progress),
		subtasks: NewSubtaskService(db, log, projectRepo, taskRepo, subtaskRepo, progress),
		progress: progress,
	}
}

func createTestUser(t *testing.T, env *testEnv, email string) *types.User {
	t.Helper()
	user := &types.User{
		ID:       uuid.New(),
		Email:    email,
		Password: "hashed",
	}
	if _, err := env.userRepo.Create(context.Background(), nil, []*types.User{user}); err != nil {
		t.Fatalf("create user: %v", err)
	}
	return user
}

// seedOnboardingTemplate builds the canonical fixture: two stages with
// two tasks of two subtasks each, plus one unstaged task without
// subtasks. Eight subtasks total.
func seedOnboardingTemplate(t *testing.T, env *testEnv) *types.Template {
	t.Helper()
	input := TemplateInput{
		Name:        "Engineering Onboarding",
		Version:     "1.0",
		Description: "Ramp-up track",
		Stages: []TemplateStageInput{
			{
				Name:    "Foundations",
				GemType: "AMETHYST",
				Tasks: []TemplateTaskInput{
					{Title: "Set up laptop", Subtasks: []TemplateSubtaskInput{
						{Description: "Install toolchain"},
						{Description: "Clone repositories"},
					}},
					{Title: "Meet the team", Subtasks: []TemplateSubtaskInput{
						{Description: "Intro with manager"},
						{Description: "Pair with buddy"},
					}},
				},
			},
			{
				Name:    "Delivery",
				GemType: "EMERALD",
				Tasks: []TemplateTaskInput{
					{Title: "First ticket", Subtasks: []TemplateSubtaskInput{
						{Description: "Pick a starter issue"},
						{Description: "Open a pull request"},
					}},
					{Title: "First release", Subtasks: []TemplateSubtaskInput{
						{Description: "Ship to staging"},
						{Description: "Ship to production"},
					}},
				},
			},
		},
		Tasks: []TemplateTaskInput{
			{Title: "Read the handbook"},
		},
	}
	template, err := env.templates.CreateTemplate(context.Background(), input)
	if err != nil {
		t.Fatalf("create template: %v", err)
	}
	return template
}

func findStage(t *testing.T, project *types.Project, name string) *types.ProjectStage {
	t.Helper()
	for _, st := range project.Stages {
		if st.Name == name {
			return st
		}
	}
	t.Fatalf("stage %q not found", name)
	return nil
}

func findTask(t *testing.T, stage *types.ProjectStage, title string) *types.ProjectTask {
	t.Helper()
	for _, task := range stage.Tasks {
		if task.Title == title {
			return task
		}
	}
	t.Fatalf("task %q not found in stage %q", title, stage.Name)
	return nil
}

// completeStage toggles every still-incomplete subtask under the named
// stage through the subtask service, so derivation runs after every
// leaf write. Reloads first so earlier toggles are respected.
func completeStage(t *testing.T, env *testEnv, userID, projectID uuid.UUID, stageName string) {
	t.Helper()
	stage := findStage(t, reloadProject(t, env, userID, projectID), stageName)
	for _, task := range stage.Tasks {
		for _, subtask := range task.Subtasks {
			if subtask.Completed {
				continue
			}
			if _, _, err := env.subtasks.ToggleSubtask(context.Background(), userID, subtask.ID); err != nil {
				t.Fatalf("toggle subtask: %v", err)
			}
		}
	}
}

func reloadProject(t *testing.T, env *testEnv, userID, projectID uuid.UUID) *types.Project {
	t.Helper()
	project, err := env.projects.GetProject(context.Background(), userID, projectID)
	if err != nil {
		t.Fatalf("reload project: %v", err)
	}
	return project
}
