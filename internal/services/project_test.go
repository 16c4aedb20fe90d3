package services

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	apperrors "github.com/pathwayhq/pathway-backend/internal/pkg/errors"
	"github.com/pathwayhq/pathway-backend/internal/types"
)

func TestCreateProjectMaterializesTemplate(t *testing.T) {
	env := newTestEnv(t)
	user := createTestUser(t, env, "owner@example.com")
	template := seedOnboardingTemplate(t, env)

	project, err := env.projects.CreateProject(context.Background(), user.ID, template.ID, "")
	if err != nil {
		t.Fatalf("create project: %v", err)
	}

	if project.Name != template.Name {
		t.Errorf("name = %q, want template name %q", project.Name, template.Name)
	}
	if project.Progress != 0 {
		t.Errorf("progress = %v, want 0", project.Progress)
	}
	if project.CurrentGem != nil {
		t.Errorf("current gem = %v, want nil", *project.CurrentGem)
	}
	if len(project.Stages) != 2 {
		t.Fatalf("stages = %d, want 2", len(project.Stages))
	}
	if len(project.Tasks) != 1 {
		t.Fatalf("unstaged tasks = %d, want 1", len(project.Tasks))
	}

	totalTasks, totalSubtasks := 0, 0
	for _, stage := range project.Stages {
		totalTasks += len(stage.Tasks)
		for _, task := range stage.Tasks {
			totalSubtasks += len(task.Subtasks)
			if task.Status != types.TaskStatusTodo {
				t.Errorf("task %q status = %q, want TODO", task.Title, task.Status)
			}
			if task.Completed {
				t.Errorf("task %q completed, want fresh", task.Title)
			}
			for _, subtask := range task.Subtasks {
				if subtask.Completed {
					t.Errorf("subtask %q completed, want fresh", subtask.Description)
				}
			}
		}
	}
	if totalTasks != 4 {
		t.Errorf("staged tasks = %d, want 4", totalTasks)
	}
	if totalSubtasks != 8 {
		t.Errorf("subtasks = %d, want 8", totalSubtasks)
	}
}

func TestCreateProjectIdsAreFresh(t *testing.T) {
	env := newTestEnv(t)
	user := createTestUser(t, env, "owner@example.com")
	template := seedOnboardingTemplate(t, env)

	templateStageIDs := make(map[uuid.UUID]bool)
	for _, st := range template.Stages {
		templateStageIDs[st.ID] = true
	}

	project, err := env.projects.CreateProject(context.Background(), user.ID, template.ID, "My ramp-up")
	if err != nil {
		t.Fatalf("create project: %v", err)
	}
	if project.Name != "My ramp-up" {
		t.Errorf("name = %q, want explicit name", project.Name)
	}
	for _, st := range project.Stages {
		if templateStageIDs[st.ID] {
			t.Errorf("project stage %q reuses template id", st.Name)
		}
	}
}

func TestCreateProjectUnknownTemplate(t *testing.T) {
	env := newTestEnv(t)
	user := createTestUser(t, env, "owner@example.com")

	_, err := env.projects.CreateProject(context.Background(), user.ID, uuid.New(), "")
	if !errors.Is(err, apperrors.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestGetProjectOwnership(t *testing.T) {
	env := newTestEnv(t)
	owner := createTestUser(t, env, "owner@example.com")
	intruder := createTestUser(t, env, "intruder@example.com")
	template := seedOnboardingTemplate(t, env)

	project, err := env.projects.CreateProject(context.Background(), owner.ID, template.ID, "")
	if err != nil {
		t.Fatalf("create project: %v", err)
	}

	if _, err := env.projects.GetProject(context.Background(), intruder.ID, project.ID); !errors.Is(err, apperrors.ErrForbidden) {
		t.Errorf("foreign read err = %v, want ErrForbidden", err)
	}
	if _, err := env.projects.GetProject(context.Background(), owner.ID, uuid.New()); !errors.Is(err, apperrors.ErrNotFound) {
		t.Errorf("missing read err = %v, want ErrNotFound", err)
	}
}

func TestDeleteProjectCascades(t *testing.T) {
	env := newTestEnv(t)
	user := createTestUser(t, env, "owner@example.com")
	template := seedOnboardingTemplate(t, env)

	project, err := env.projects.CreateProject(context.Background(), user.ID, template.ID, "")
	if err != nil {
		t.Fatalf("create project: %v", err)
	}
	if err := env.projects.DeleteProject(context.Background(), user.ID, project.ID); err != nil {
		t.Fatalf("delete project: %v", err)
	}

	tasks, err := env.taskRepo.GetByProjectIDs(context.Background(), nil, []uuid.UUID{project.ID})
	if err != nil {
		t.Fatalf("load tasks: %v", err)
	}
	if len(tasks) != 0 {
		t.Errorf("tasks left after delete = %d, want 0", len(tasks))
	}
	stages, err := env.stageRepo.GetByProjectIDs(context.Background(), nil, []uuid.UUID{project.ID})
	if err != nil {
		t.Fatalf("load stages: %v", err)
	}
	if len(stages) != 0 {
		t.Errorf("stages left after delete = %d, want 0", len(stages))
	}
	if _, err := env.projects.GetProject(context.Background(), user.ID, project.ID); !errors.Is(err, apperrors.ErrNotFound) {
		t.Errorf("read after delete err = %v, want ErrNotFound", err)
	}
}

func TestDeleteProjectForeignOwner(t *testing.T) {
	env := newTestEnv(t)
	owner := createTestUser(t, env, "owner@example.com")
	intruder := createTestUser(t, env, "intruder@example.com")
	template := seedOnboardingTemplate(t, env)

	project, err := env.projects.CreateProject(context.Background(), owner.ID, template.ID, "")
	if err != nil {
		t.Fatalf("create project: %v", err)
	}
	if err := env.projects.DeleteProject(context.Background(), intruder.ID, project.ID); !errors.Is(err, apperrors.ErrForbidden) {
		t.Fatalf("err = %v, want ErrForbidden", err)
	}
	if _, err := env.projects.GetProject(context.Background(), owner.ID, project.ID); err != nil {
		t.Errorf("project gone after forbidden delete: %v", err)
	}
}

func TestTemplateEditDoesNotTouchProject(t *testing.T) {
	env := newTestEnv(t)
	user := createTestUser(t, env, "owner@example.com")
	template := seedOnboardingTemplate(t, env)

	project, err := env.projects.CreateProject(context.Background(), user.ID, template.ID, "")
	if err != nil {
		t.Fatalf("create project: %v", err)
	}

	// Drop every stage from the template.
	_, err = env.templates.UpdateTemplate(context.Background(), template.ID, TemplateInput{
		Name:    template.Name,
		Version: template.Version,
	})
	if err != nil {
		t.Fatalf("update template: %v", err)
	}

	reloaded := reloadProject(t, env, user.ID, project.ID)
	if len(reloaded.Stages) != 2 {
		t.Errorf("project stages after template edit = %d, want 2", len(reloaded.Stages))
	}
}
