package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/pathwayhq/pathway-backend/internal/db"
	"github.com/pathwayhq/pathway-backend/internal/handlers"
	"github.com/pathwayhq/pathway-backend/internal/logger"
	"github.com/pathwayhq/pathway-backend/internal/middleware"
	"github.com/pathwayhq/pathway-backend/internal/observability"
	"github.com/pathwayhq/pathway-backend/internal/repos"
	"github.com/pathwayhq/pathway-backend/internal/server"
	"github.com/pathwayhq/pathway-backend/internal/services"
	"github.com/pathwayhq/pathway-backend/internal/utils"
)

func main() {
	// Logger
	logMode := os.Getenv("LOG_MODE")
	if logMode == "" {
		logMode = "development"
	}
	log, err := logger.New(logMode)
	if err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	// Env
	jwtSecretKey := utils.GetEnv("JWT_SECRET_KEY", "defaultsecret", log)
	accessTokenTTL := utils.GetEnvAsInt("ACCESS_TOKEN_TTL", 3600, log)
	refreshTokenTTL := utils.GetEnvAsInt("REFRESH_TOKEN_TTL", 86400, log)

	// Tracing
	shutdownTracing := observability.InitOTel(context.Background(), log, observability.OtelConfig{
		ServiceName: "pathway-backend",
		Environment: utils.GetEnv("APP_ENV", "development", log),
		Version:     utils.GetEnv("APP_VERSION", "dev", log),
	})
	if shutdownTracing != nil {
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := shutdownTracing(ctx); err != nil {
				log.Warn("Tracing shutdown failed", "error", err)
			}
		}()
	}

	// Postgres
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

	// Repos
	userRepo := repos.NewUserRepo(thePG, log)
	userTokenRepo := repos.NewUserTokenRepo(thePG, log)
	templateRepo := repos.NewTemplateRepo(thePG, log)
	templateStageRepo := repos.NewTemplateStageRepo(thePG, log)
	templateTaskRepo := repos.NewTemplateTaskRepo(thePG, log)
	templateSubtaskRepo := repos.NewTemplateSubtaskRepo(thePG, log)
	projectRepo := repos.NewProjectRepo(thePG, log)
	projectStageRepo := repos.NewProjectStageRepo(thePG, log)
	projectTaskRepo := repos.NewProjectTaskRepo(thePG, log)
	projectSubtaskRepo := repos.NewProjectSubtaskRepo(thePG, log)

	// Services
	authService := services.NewAuthService(thePG, log, userRepo, userTokenRepo, jwtSecretKey, time.Duration(accessTokenTTL)*time.Second, time.Duration(refreshTokenTTL)*time.Second)
	userService := services.NewUserService(thePG, log, userRepo)
	templateService := services.NewTemplateService(thePG, log, templateRepo, templateStageRepo, templateTaskRepo, templateSubtaskRepo)
	progressService := services.NewProgressService(thePG, log, projectRepo, projectStageRepo, projectTaskRepo, projectSubtaskRepo)
	projectService := services.NewProjectService(
		thePG,
		log,
		projectRepo,
		projectStageRepo,
		projectTaskRepo,
		projectSubtaskRepo,
		templateRepo,
		templateStageRepo,
		templateTaskRepo,
		templateSubtaskRepo,
		progressService,
	)
	taskService := services.NewTaskService(thePG, log, projectRepo, projectTaskRepo, projectSubtaskRepo, progressService)
	subtaskService := services.NewSubtaskService(thePG, log, projectRepo, projectTaskRepo, projectSubtaskRepo, progressService)

	// Handlers
	authHandler := handlers.NewAuthHandler(authService)
	userHandler := handlers.NewUserHandler(userService)
	templateHandler := handlers.NewTemplateHandler(templateService)
	projectHandler := handlers.NewProjectHandler(projectService)
	taskHandler := handlers.NewTaskHandler(taskService)
	subtaskHandler := handlers.NewSubtaskHandler(subtaskService)

	// Middleware
	authMiddleware := middleware.NewAuthMiddleware(log, authService)

	// Router
	router := server.NewRouter(server.RouterConfig{
		AuthHandler:     authHandler,
		AuthMiddleware:  authMiddleware,
		UserHandler:     userHandler,
		TemplateHandler: templateHandler,
		ProjectHandler:  projectHandler,
		TaskHandler:     taskHandler,
		SubtaskHandler:  subtaskHandler,
	})

	port := utils.GetEnv("PORT", "8080", log)
	log.Info("Server listening", "port", port)
	if err := router.Run(":" + port); err != nil {
		log.Error("Server failed", "error", err)
	}
}
