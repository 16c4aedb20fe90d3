package services

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	apperrors "github.com/pathwayhq/pathway-backend/internal/pkg/errors"
	"github.com/pathwayhq/pathway-backend/internal/types"
)

// treeToInputs rebuilds the submission that would leave the project
// unchanged.
func treeToInputs(project *types.Project) ([]StageInput, []TaskInput) {
	stages := make([]StageInput, len(project.Stages))
	for i, st := range project.Stages {
		id := st.ID
		stages[i] = StageInput{
			ID:          &id,
			Name:        st.Name,
			Description: st.Description,
			GemType:     st.GemType,
			Tasks:       tasksToInputs(st.Tasks),
		}
	}
	return stages, tasksToInputs(project.Tasks)
}

func tasksToInputs(tasks []*types.ProjectTask) []TaskInput {
	out := make([]TaskInput, len(tasks))
	for i, task := range tasks {
		id := task.ID
		subtasks := make([]SubtaskInput, len(task.Subtasks))
		for j, st := range task.Subtasks {
			sid := st.ID
			subtasks[j] = SubtaskInput{ID: &sid, Description: st.Description}
		}
		out[i] = TaskInput{
			ID:          &id,
			Title:       task.Title,
			Description: task.Description,
			Subtasks:    subtasks,
		}
	}
	return out
}

func setupProject(t *testing.T, env *testEnv) (*types.User, *types.Project) {
	t.Helper()
	user := createTestUser(t, env, "owner@example.com")
	template := seedOnboardingTemplate(t, env)
	project, err := env.projects.CreateProject(context.Background(), user.ID, template.ID, "")
	if err != nil {
		t.Fatalf("create project: %v", err)
	}
	return user, project
}

func TestUpdateStructureIdempotent(t *testing.T) {
	env := newTestEnv(t)
	user, project := setupProject(t, env)
	stages, unstaged := treeToInputs(project)

	_, result, err := env.projects.UpdateStructure(context.Background(), user.ID, project.ID, stages, unstaged)
	if err != nil {
		t.Fatalf("update structure: %v", err)
	}
	if result.Stages.Matched != 2 || result.Stages.Created != 0 || result.Stages.Deleted != 0 {
		t.Errorf("stage counts = %+v, want all matched", result.Stages)
	}
	if result.Tasks.Matched != 5 || result.Tasks.Created != 0 || result.Tasks.Deleted != 0 {
		t.Errorf("task counts = %+v, want 5 matched", result.Tasks)
	}
	if result.Subtasks.Matched != 8 || result.Subtasks.Created != 0 || result.Subtasks.Deleted != 0 {
		t.Errorf("subtask counts = %+v, want 8 matched", result.Subtasks)
	}
}

func TestUpdateStructureDeletesMissingStage(t *testing.T) {
	env := newTestEnv(t)
	user, project := setupProject(t, env)
	stages, unstaged := treeToInputs(project)

	// Drop "Delivery": its two tasks and four subtasks go with it.
	kept := stages[:1]
	_, result, err := env.projects.UpdateStructure(context.Background(), user.ID, project.ID, kept, unstaged)
	if err != nil {
		t.Fatalf("update structure: %v", err)
	}
	if result.Stages.Deleted != 1 {
		t.Errorf("stages deleted = %d, want 1", result.Stages.Deleted)
	}
	if result.Tasks.Deleted != 2 {
		t.Errorf("tasks deleted = %d, want 2", result.Tasks.Deleted)
	}
	if result.Subtasks.Deleted != 4 {
		t.Errorf("subtasks deleted = %d, want 4", result.Subtasks.Deleted)
	}

	reloaded := reloadProject(t, env, user.ID, project.ID)
	if len(reloaded.Stages) != 1 {
		t.Fatalf("stages = %d, want 1", len(reloaded.Stages))
	}
	if reloaded.Stages[0].Name != "Foundations" {
		t.Errorf("surviving stage = %q, want Foundations", reloaded.Stages[0].Name)
	}
}

func TestUpdateStructureReordersByPosition(t *testing.T) {
	env := newTestEnv(t)
	user, project := setupProject(t, env)
	stages, unstaged := treeToInputs(project)

	// Submit the stages reversed; submitted order wins over stored order.
	reversed := []StageInput{stages[1], stages[0]}
	_, _, err := env.projects.UpdateStructure(context.Background(), user.ID, project.ID, reversed, unstaged)
	if err != nil {
		t.Fatalf("update structure: %v", err)
	}

	reloaded := reloadProject(t, env, user.ID, project.ID)
	if reloaded.Stages[0].Name != "Delivery" || reloaded.Stages[1].Name != "Foundations" {
		t.Errorf("order = [%q %q], want [Delivery Foundations]", reloaded.Stages[0].Name, reloaded.Stages[1].Name)
	}
	if reloaded.Stages[0].Order != 0 || reloaded.Stages[1].Order != 1 {
		t.Errorf("orders = [%d %d], want compacted [0 1]", reloaded.Stages[0].Order, reloaded.Stages[1].Order)
	}
}

func TestUpdateStructureUnknownIDCreatesFresh(t *testing.T) {
	env := newTestEnv(t)
	user, project := setupProject(t, env)
	stages, unstaged := treeToInputs(project)

	phantom := uuid.New()
	stages = append(stages, StageInput{
		ID:      &phantom,
		Name:    "Phantom",
		GemType: "RUBY",
	})
	_, result, err := env.projects.UpdateStructure(context.Background(), user.ID, project.ID, stages, unstaged)
	if err != nil {
		t.Fatalf("update structure: %v", err)
	}
	if result.Stages.Created != 1 {
		t.Errorf("stages created = %d, want 1", result.Stages.Created)
	}

	reloaded := reloadProject(t, env, user.ID, project.ID)
	created := findStage(t, reloaded, "Phantom")
	if created.ID == phantom {
		t.Errorf("unknown id was adopted; want a fresh id")
	}
}

func TestUpdateStructureWrongParentIDCreatesFresh(t *testing.T) {
	env := newTestEnv(t)
	user, project := setupProject(t, env)
	stages, unstaged := treeToInputs(project)

	// Move a task id from Foundations under Delivery: matching is scoped
	// to the immediate parent, so it is recreated there, and the original
	// (now missing from its own parent) is deleted.
	moved := stages[0].Tasks[0]
	stages[0].Tasks = stages[0].Tasks[1:]
	stages[1].Tasks = append(stages[1].Tasks, moved)

	_, result, err := env.projects.UpdateStructure(context.Background(), user.ID, project.ID, stages, unstaged)
	if err != nil {
		t.Fatalf("update structure: %v", err)
	}
	if result.Tasks.Created != 1 {
		t.Errorf("tasks created = %d, want 1", result.Tasks.Created)
	}
	if result.Tasks.Deleted != 1 {
		t.Errorf("tasks deleted = %d, want 1", result.Tasks.Deleted)
	}

	reloaded := reloadProject(t, env, user.ID, project.ID)
	delivery := findStage(t, reloaded, "Delivery")
	recreated := findTask(t, delivery, moved.Title)
	if recreated.ID == *moved.ID {
		t.Errorf("task id survived a cross-parent move; want fresh id")
	}
}

func TestUpdateStructureWrongParentSubtaskIDCreatesFresh(t *testing.T) {
	env := newTestEnv(t)
	user, project := setupProject(t, env)
	stages, unstaged := treeToInputs(project)

	// Move a subtask id between sibling tasks inside Foundations.
	moved := stages[0].Tasks[0].Subtasks[0]
	stages[0].Tasks[0].Subtasks = stages[0].Tasks[0].Subtasks[1:]
	stages[0].Tasks[1].Subtasks = append(stages[0].Tasks[1].Subtasks, moved)

	_, result, err := env.projects.UpdateStructure(context.Background(), user.ID, project.ID, stages, unstaged)
	if err != nil {
		t.Fatalf("update structure: %v", err)
	}
	if result.Subtasks.Created != 1 {
		t.Errorf("subtasks created = %d, want 1", result.Subtasks.Created)
	}
	if result.Subtasks.Deleted != 1 {
		t.Errorf("subtasks deleted = %d, want 1", result.Subtasks.Deleted)
	}

	reloaded := reloadProject(t, env, user.ID, project.ID)
	target := findTask(t, findStage(t, reloaded, "Foundations"), "Meet the team")
	if len(target.Subtasks) != 3 {
		t.Fatalf("subtasks = %d, want 3", len(target.Subtasks))
	}
	for _, st := range target.Subtasks {
		if st.ID == *moved.ID {
			t.Errorf("subtask id survived a cross-parent move; want fresh id")
		}
	}
}

func TestUpdateStructurePreservesSubtaskState(t *testing.T) {
	env := newTestEnv(t)
	user, project := setupProject(t, env)

	target := findTask(t, findStage(t, project, "Foundations"), "Set up laptop").Subtasks[0]
	if _, _, err := env.subtasks.ToggleSubtask(context.Background(), user.ID, target.ID); err != nil {
		t.Fatalf("toggle subtask: %v", err)
	}

	project = reloadProject(t, env, user.ID, project.ID)
	stages, unstaged := treeToInputs(project)
	// Rename the completed subtask's description in the submission.
	stages[0].Tasks[0].Subtasks[0].Description = "Install the full toolchain"

	_, _, err := env.projects.UpdateStructure(context.Background(), user.ID, project.ID, stages, unstaged)
	if err != nil {
		t.Fatalf("update structure: %v", err)
	}

	reloaded := reloadProject(t, env, user.ID, project.ID)
	edited := findTask(t, findStage(t, reloaded, "Foundations"), "Set up laptop").Subtasks[0]
	if edited.Description != "Install the full toolchain" {
		t.Errorf("description = %q, want updated text", edited.Description)
	}
	if !edited.Completed {
		t.Errorf("completion lost across structural edit")
	}
}

func TestUpdateStructureRederivesProgress(t *testing.T) {
	env := newTestEnv(t)
	user, project := setupProject(t, env)

	// Complete Foundations: 4 of 8 subtasks -> 50%.
	completeStage(t, env, user.ID, project.ID, "Foundations")
	project = reloadProject(t, env, user.ID, project.ID)
	if project.Progress != 50 {
		t.Fatalf("progress = %v, want 50", project.Progress)
	}

	// Delete the incomplete Delivery stage: the 4 surviving subtasks are
	// all complete, so progress jumps to 100 in the same call.
	stages, unstaged := treeToInputs(project)
	_, _, err := env.projects.UpdateStructure(context.Background(), user.ID, project.ID, stages[:1], unstaged)
	if err != nil {
		t.Fatalf("update structure: %v", err)
	}
	reloaded := reloadProject(t, env, user.ID, project.ID)
	if reloaded.Progress != 100 {
		t.Errorf("progress after deletion = %v, want 100", reloaded.Progress)
	}
}

func TestUpdateStructureForeignOwner(t *testing.T) {
	env := newTestEnv(t)
	user, project := setupProject(t, env)
	intruder := createTestUser(t, env, "intruder@example.com")
	stages, unstaged := treeToInputs(project)

	_, _, err := env.projects.UpdateStructure(context.Background(), intruder.ID, project.ID, stages, unstaged)
	if !errors.Is(err, apperrors.ErrForbidden) {
		t.Fatalf("err = %v, want ErrForbidden", err)
	}
	_ = user
}
