package services

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	apperrors "github.com/pathwayhq/pathway-backend/internal/pkg/errors"
)

func TestToggleSubtaskRunsDerivationChain(t *testing.T) {
	env := newTestEnv(t)
	user, project := setupProject(t, env)
	task := findTask(t, findStage(t, project, "Foundations"), "Set up laptop")

	// A single toggle must land leaf completion, task status, project
	// progress and the gem in one call.
	subtask, change, err := env.subtasks.ToggleSubtask(context.Background(), user.ID, task.Subtasks[0].ID)
	if err != nil {
		t.Fatalf("toggle: %v", err)
	}
	if !subtask.Completed {
		t.Errorf("subtask not completed")
	}
	if change.New == nil || *change.New != "AMETHYST" {
		t.Errorf("gem change = %+v, want AMETHYST claimed", change)
	}

	reloaded := reloadProject(t, env, user.ID, project.ID)
	if reloaded.Progress != 12.5 {
		t.Errorf("progress = %v, want 12.5", reloaded.Progress)
	}
}

func TestToggleSubtaskUncomplete(t *testing.T) {
	env := newTestEnv(t)
	user, project := setupProject(t, env)
	target := findTask(t, findStage(t, project, "Foundations"), "Set up laptop").Subtasks[0]

	if _, _, err := env.subtasks.ToggleSubtask(context.Background(), user.ID, target.ID); err != nil {
		t.Fatalf("toggle: %v", err)
	}
	subtask, _, err := env.subtasks.ToggleSubtask(context.Background(), user.ID, target.ID)
	if err != nil {
		t.Fatalf("second toggle: %v", err)
	}
	if subtask.Completed {
		t.Errorf("subtask still completed after second toggle")
	}
	reloaded := reloadProject(t, env, user.ID, project.ID)
	if reloaded.Progress != 0 {
		t.Errorf("progress = %v, want 0", reloaded.Progress)
	}
}

func TestSubtaskOwnership(t *testing.T) {
	env := newTestEnv(t)
	user, project := setupProject(t, env)
	intruder := createTestUser(t, env, "intruder@example.com")
	target := findTask(t, findStage(t, project, "Foundations"), "Set up laptop").Subtasks[0]

	if _, _, err := env.subtasks.ToggleSubtask(context.Background(), intruder.ID, target.ID); !errors.Is(err, apperrors.ErrForbidden) {
		t.Fatalf("err = %v, want ErrForbidden", err)
	}
	if _, _, err := env.subtasks.ToggleSubtask(context.Background(), user.ID, uuid.New()); !errors.Is(err, apperrors.ErrNotFound) {
		t.Fatalf("missing err = %v, want ErrNotFound", err)
	}
}

func TestSubtaskAnswerAndLink(t *testing.T) {
	env := newTestEnv(t)
	user, project := setupProject(t, env)
	target := findTask(t, findStage(t, project, "Foundations"), "Set up laptop").Subtasks[0]

	answer := "Used the provisioning script"
	subtask, err := env.subtasks.SetAnswer(context.Background(), user.ID, target.ID, &answer)
	if err != nil {
		t.Fatalf("set answer: %v", err)
	}
	if subtask.Answer == nil || *subtask.Answer != answer {
		t.Errorf("answer = %v, want %q", subtask.Answer, answer)
	}

	link := "https://wiki.example.com/setup"
	subtask, err = env.subtasks.SetLink(context.Background(), user.ID, target.ID, &link)
	if err != nil {
		t.Fatalf("set link: %v", err)
	}
	if subtask.Link == nil || *subtask.Link != link {
		t.Errorf("link = %v, want %q", subtask.Link, link)
	}

	// Neither write touches completion.
	if subtask.Completed {
		t.Errorf("completion flipped by a metadata write")
	}
}
