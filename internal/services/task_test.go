package services

import (
	"context"
	"errors"
	"testing"

	apperrors "github.com/pathwayhq/pathway-backend/internal/pkg/errors"
	"github.com/pathwayhq/pathway-backend/internal/types"
)

func TestSetStatusValidation(t *testing.T) {
	env := newTestEnv(t)
	user, project := setupProject(t, env)
	handbook := project.Tasks[0]

	cases := []struct {
		name    string
		status  string
		wantErr bool
	}{
		{name: "todo", status: "TODO"},
		{name: "in progress", status: "IN_PROGRESS"},
		{name: "done", status: "DONE"},
		{name: "unknown", status: "BLOCKED", wantErr: true},
		{name: "lowercase", status: "done", wantErr: true},
		{name: "empty", status: "", wantErr: true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, _, err := env.tasks.SetStatus(context.Background(), user.ID, handbook.ID, tc.status)
			if tc.wantErr {
				if !errors.Is(err, apperrors.ErrInvalidState) {
					t.Fatalf("err = %v, want ErrInvalidState", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("err = %v", err)
			}
		})
	}
}

func TestSetStatusSyncsCompleted(t *testing.T) {
	env := newTestEnv(t)
	user, project := setupProject(t, env)
	handbook := project.Tasks[0]

	task, _, err := env.tasks.SetStatus(context.Background(), user.ID, handbook.ID, "DONE")
	if err != nil {
		t.Fatalf("set status: %v", err)
	}
	if !task.Completed {
		t.Errorf("completed = false after DONE")
	}

	task, _, err = env.tasks.SetStatus(context.Background(), user.ID, handbook.ID, "IN_PROGRESS")
	if err != nil {
		t.Fatalf("set status: %v", err)
	}
	if task.Completed {
		t.Errorf("completed = true for IN_PROGRESS")
	}
}

func TestSetStatusRejectsDerivedTask(t *testing.T) {
	env := newTestEnv(t)
	user, project := setupProject(t, env)
	derived := findTask(t, findStage(t, project, "Foundations"), "Set up laptop")

	_, _, err := env.tasks.SetStatus(context.Background(), user.ID, derived.ID, "DONE")
	if !errors.Is(err, apperrors.ErrInvalidState) {
		t.Fatalf("err = %v, want ErrInvalidState", err)
	}
	_, _, err = env.tasks.ToggleTask(context.Background(), user.ID, derived.ID)
	if !errors.Is(err, apperrors.ErrInvalidState) {
		t.Fatalf("toggle err = %v, want ErrInvalidState", err)
	}
}

func TestToggleTaskRoundTrip(t *testing.T) {
	env := newTestEnv(t)
	user, project := setupProject(t, env)
	handbook := project.Tasks[0]

	task, _, err := env.tasks.ToggleTask(context.Background(), user.ID, handbook.ID)
	if err != nil {
		t.Fatalf("toggle: %v", err)
	}
	if !task.Completed || task.Status != types.TaskStatusDone {
		t.Fatalf("after toggle: completed=%v status=%q, want true/DONE", task.Completed, task.Status)
	}

	task, _, err = env.tasks.ToggleTask(context.Background(), user.ID, handbook.ID)
	if err != nil {
		t.Fatalf("toggle: %v", err)
	}
	if task.Completed || task.Status != types.TaskStatusTodo {
		t.Fatalf("after second toggle: completed=%v status=%q, want false/TODO", task.Completed, task.Status)
	}
}

func TestTaskOwnership(t *testing.T) {
	env := newTestEnv(t)
	user, project := setupProject(t, env)
	intruder := createTestUser(t, env, "intruder@example.com")
	handbook := project.Tasks[0]

	if _, _, err := env.tasks.ToggleTask(context.Background(), intruder.ID, handbook.ID); !errors.Is(err, apperrors.ErrForbidden) {
		t.Fatalf("err = %v, want ErrForbidden", err)
	}
	_ = user
}

func TestTaskSetLink(t *testing.T) {
	env := newTestEnv(t)
	user, project := setupProject(t, env)
	handbook := project.Tasks[0]

	link := "https://handbook.example.com"
	task, err := env.tasks.SetLink(context.Background(), user.ID, handbook.ID, &link)
	if err != nil {
		t.Fatalf("set link: %v", err)
	}
	if task.Link == nil || *task.Link != link {
		t.Errorf("link = %v, want %q", task.Link, link)
	}

	task, err = env.tasks.SetLink(context.Background(), user.ID, handbook.ID, nil)
	if err != nil {
		t.Fatalf("clear link: %v", err)
	}
	if task.Link != nil {
		t.Errorf("link = %q, want cleared", *task.Link)
	}
}
