package main

import (
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/pathwayhq/pathway-backend/internal/db"
	"github.com/pathwayhq/pathway-backend/internal/logger"
	"github.com/pathwayhq/pathway-backend/internal/repos"
	"github.com/pathwayhq/pathway-backend/internal/services"
	"github.com/pathwayhq/pathway-backend/internal/utils"
)

type seedSubtask struct {
	Description string `yaml:"description"`
}

type seedTask struct {
	Title       string        `yaml:"title"`
	Description string        `yaml:"description"`
	Subtasks    []seedSubtask `yaml:"subtasks"`
}

type seedStage struct {
	Name        string     `yaml:"name"`
	Description string     `yaml:"description"`
	GemType     string     `yaml:"gem_type"`
	Tasks       []seedTask `yaml:"tasks"`
}

type seedTemplate struct {
	Name        string      `yaml:"name"`
	Version     string      `yaml:"version"`
	Description string      `yaml:"description"`
	Stages      []seedStage `yaml:"stages"`
	Tasks       []seedTask  `yaml:"tasks"`
}

type seedCatalog struct {
	Templates []seedTemplate `yaml:"templates"`
}

// Loads a YAML template catalog and creates each template. Existing
// templates with the same name are left alone; a rerun only adds new
// names.
func main() {
	log, err := logger.New("development")
	if err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	catalogPath := utils.GetEnv("TEMPLATE_CATALOG", "templates.yaml", log)
	raw, err := os.ReadFile(catalogPath)
	if err != nil {
		log.Error("Failed to read template catalog", "path", catalogPath, "error", err)
		os.Exit(1)
	}
	var catalog seedCatalog
	if err := yaml.Unmarshal(raw, &catalog); err != nil {
		log.Error("Failed to parse template catalog", "path", catalogPath, "error", err)
		os.Exit(1)
	}

	postgresService, err := db.NewPostgresService(log)
	if err != nil {
		log.Error("Postgres init failed", "error", err)
		os.Exit(1)
	}
	if err = postgresService.AutoMigrateAll(); err != nil {
		log.Error("Postgres auto migration failed", "error", err)
		os.Exit(1)
	}
	thePG := postgresService.DB()

	templateRepo := repos.NewTemplateRepo(thePG, log)
	templateStageRepo := repos.NewTemplateStageRepo(thePG, log)
	templateTaskRepo := repos.NewTemplateTaskRepo(thePG, log)
	templateSubtaskRepo := repos.NewTemplateSubtaskRepo(thePG, log)
	templateService := services.NewTemplateService(thePG, log, templateRepo, templateStageRepo, templateTaskRepo, templateSubtaskRepo)

	ctx := context.Background()
	existing, err := templateService.GetAll(ctx)
	if err != nil {
		log.Error("Failed to load existing templates", "error", err)
		os.Exit(1)
	}
	existingNames := make(map[string]bool, len(existing))
	for _, t := range existing {
		existingNames[t.Name] = true
	}

	created := 0
	for _, tpl := range catalog.Templates {
		if existingNames[tpl.Name] {
			log.Info("Template already present, skipping", "name", tpl.Name)
			continue
		}
		input := services.TemplateInput{
			Name:        tpl.Name,
			Version:     tpl.Version,
			Description: tpl.Description,
			Stages:      make([]services.TemplateStageInput, len(tpl.Stages)),
			Tasks:       convertSeedTasks(tpl.Tasks),
		}
		for i, st := range tpl.Stages {
			input.Stages[i] = services.TemplateStageInput{
				Name:        st.Name,
				Description: st.Description,
				GemType:     st.GemType,
				Tasks:       convertSeedTasks(st.Tasks),
			}
		}
		if _, err := templateService.CreateTemplate(ctx, input); err != nil {
			log.Error("Failed to create template", "name", tpl.Name, "error", err)
			os.Exit(1)
		}
		created++
	}
	log.Info("Seed complete", "created", created, "skipped", len(catalog.Templates)-created)
}

func convertSeedTasks(tasks []seedTask) []services.TemplateTaskInput {
	out := make([]services.TemplateTaskInput, len(tasks))
	for i, t := range tasks {
		subtasks := make([]services.TemplateSubtaskInput, len(t.Subtasks))
		for j, st := range t.Subtasks {
			subtasks[j] = services.TemplateSubtaskInput{Description: st.Description}
		}
		out[i] = services.TemplateTaskInput{
			Title:       t.Title,
			Description: t.Description,
			Subtasks:    subtasks,
		}
	}
	return out
}
