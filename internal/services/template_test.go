package services

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	apperrors "github.com/pathwayhq/pathway-backend/internal/pkg/errors"
)

func TestCreateTemplateBuildsTree(t *testing.T) {
	env := newTestEnv(t)
	template := seedOnboardingTemplate(t, env)

	if !template.IsActive {
		t.Errorf("new template inactive, want active")
	}
	if len(template.Stages) != 2 {
		t.Fatalf("stages = %d, want 2", len(template.Stages))
	}
	if len(template.Tasks) != 1 {
		t.Fatalf("unstaged tasks = %d, want 1", len(template.Tasks))
	}
	for i, stage := range template.Stages {
		if stage.Order != i {
			t.Errorf("stage %q order = %d, want %d", stage.Name, stage.Order, i)
		}
		for j, task := range stage.Tasks {
			if task.Order != j {
				t.Errorf("task %q order = %d, want %d", task.Title, task.Order, j)
			}
		}
	}
}

func TestGetTemplateNotFound(t *testing.T) {
	env := newTestEnv(t)
	if _, err := env.templates.GetByID(context.Background(), uuid.New()); !errors.Is(err, apperrors.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestUpdateTemplateReconciles(t *testing.T) {
	env := newTestEnv(t)
	template := seedOnboardingTemplate(t, env)

	// Keep Foundations by id with a rename, drop Delivery, add one new
	// stage. The handbook task stays.
	foundationsID := template.Stages[0].ID
	taskID := template.Stages[0].Tasks[0].ID
	handbookID := template.Tasks[0].ID
	input := TemplateInput{
		Name:    "Engineering Onboarding",
		Version: "1.1",
		Stages: []TemplateStageInput{
			{
				ID:      &foundationsID,
				Name:    "Basics",
				GemType: "AMETHYST",
				Tasks: []TemplateTaskInput{
					{ID: &taskID, Title: "Set up workstation"},
				},
			},
			{
				Name:    "Growth",
				GemType: "SAPPHIRE",
			},
		},
		Tasks: []TemplateTaskInput{
			{ID: &handbookID, Title: "Read the handbook"},
		},
	}
	updated, err := env.templates.UpdateTemplate(context.Background(), template.ID, input)
	if err != nil {
		t.Fatalf("update template: %v", err)
	}

	if updated.Version != "1.1" {
		t.Errorf("version = %q, want 1.1", updated.Version)
	}
	if len(updated.Stages) != 2 {
		t.Fatalf("stages = %d, want 2", len(updated.Stages))
	}
	if updated.Stages[0].ID != foundationsID {
		t.Errorf("matched stage id changed")
	}
	if updated.Stages[0].Name != "Basics" {
		t.Errorf("stage name = %q, want Basics", updated.Stages[0].Name)
	}
	if len(updated.Stages[0].Tasks) != 1 || updated.Stages[0].Tasks[0].ID != taskID {
		t.Errorf("matched task not kept: %+v", updated.Stages[0].Tasks)
	}
	// The matched task's submission carried no subtasks, so they are gone.
	if len(updated.Stages[0].Tasks[0].Subtasks) != 0 {
		t.Errorf("subtasks = %d, want 0", len(updated.Stages[0].Tasks[0].Subtasks))
	}
	if updated.Stages[1].Name != "Growth" {
		t.Errorf("second stage = %q, want Growth", updated.Stages[1].Name)
	}
	if len(updated.Tasks) != 1 || updated.Tasks[0].ID != handbookID {
		t.Errorf("unstaged task not kept: %+v", updated.Tasks)
	}
}

func TestUpdateTemplateNotFound(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.templates.UpdateTemplate(context.Background(), uuid.New(), TemplateInput{Name: "x"})
	if !errors.Is(err, apperrors.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestCreateVersionCopiesTree(t *testing.T) {
	env := newTestEnv(t)
	template := seedOnboardingTemplate(t, env)

	next, err := env.templates.CreateVersion(context.Background(), template.ID, TemplateInput{})
	if err != nil {
		t.Fatalf("create version: %v", err)
	}
	if next.ID == template.ID {
		t.Fatalf("version reuses template id")
	}
	if next.Name != template.Name {
		t.Errorf("name = %q, want %q", next.Name, template.Name)
	}
	if next.Version == template.Version {
		t.Errorf("version string unchanged: %q", next.Version)
	}
	if len(next.Stages) != len(template.Stages) {
		t.Fatalf("stages = %d, want %d", len(next.Stages), len(template.Stages))
	}
	for i, stage := range next.Stages {
		if stage.ID == template.Stages[i].ID {
			t.Errorf("stage %q reuses id across versions", stage.Name)
		}
	}

	// Both versions exist side by side.
	all, err := env.templates.GetAll(context.Background())
	if err != nil {
		t.Fatalf("get all: %v", err)
	}
	if len(all) != 2 {
		t.Errorf("templates = %d, want 2", len(all))
	}
}

func TestToggleActive(t *testing.T) {
	env := newTestEnv(t)
	template := seedOnboardingTemplate(t, env)

	toggled, err := env.templates.ToggleActive(context.Background(), template.ID)
	if err != nil {
		t.Fatalf("toggle active: %v", err)
	}
	if toggled.IsActive {
		t.Errorf("still active after toggle")
	}
	toggled, err = env.templates.ToggleActive(context.Background(), template.ID)
	if err != nil {
		t.Fatalf("toggle active: %v", err)
	}
	if !toggled.IsActive {
		t.Errorf("still inactive after second toggle")
	}
}
