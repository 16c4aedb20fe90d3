package server

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/pathwayhq/pathway-backend/internal/handlers"
	"github.com/pathwayhq/pathway-backend/internal/middleware"
)

type RouterConfig struct {
	AuthHandler     *handlers.AuthHandler
	AuthMiddleware  *middleware.AuthMiddleware
	UserHandler     *handlers.UserHandler
	TemplateHandler *handlers.TemplateHandler
	ProjectHandler  *handlers.ProjectHandler
	TaskHandler     *handlers.TaskHandler
	SubtaskHandler  *handlers.SubtaskHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.Default()

	router.Use(otelgin.Middleware("pathway-backend"))
	router.Use(cors.New(cors.Config{
		AllowOrigins: []string{
			"http://localhost:80",
			"http://localhost:3000",
			"http://localhost:5173",
		},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", "X-Requested-With"},
		AllowCredentials: true,
	}))

	// Public
	router.GET("/healthcheck", handlers.HealthCheck)
	router.POST("/api/register", cfg.AuthHandler.Register)
	router.POST("/api/login", cfg.AuthHandler.Login)

	// Protected
	api := router.Group("/api")
	api.Use(cfg.AuthMiddleware.RequireAuth())

	// Auth
	api.POST("/refresh", cfg.AuthHandler.Refresh)
	api.POST("/logout", cfg.AuthHandler.Logout)
	// User
	api.GET("/user", cfg.UserHandler.GetMe)
	// Templates
	api.POST("/templates", cfg.TemplateHandler.Create)
	api.GET("/templates", cfg.TemplateHandler.GetAll)
	api.GET("/templates/:id", cfg.TemplateHandler.GetByID)
	api.PUT("/templates/:id", cfg.TemplateHandler.Update)
	api.POST("/templates/:id/versions", cfg.TemplateHandler.CreateVersion)
	api.PATCH("/templates/:id/active", cfg.TemplateHandler.ToggleActive)
	// Projects
	api.POST("/projects", cfg.ProjectHandler.Create)
	api.GET("/projects", cfg.ProjectHandler.GetAll)
	api.GET("/projects/:id", cfg.ProjectHandler.GetByID)
	api.DELETE("/projects/:id", cfg.ProjectHandler.Delete)
	api.PUT("/projects/:id/structure", cfg.ProjectHandler.UpdateStructure)
	// Tasks
	api.PATCH("/tasks/:id/status", cfg.TaskHandler.SetStatus)
	api.POST("/tasks/:id/toggle", cfg.TaskHandler.Toggle)
	api.PATCH("/tasks/:id/link", cfg.TaskHandler.SetLink)
	// Subtasks
	api.POST("/subtasks/:id/toggle", cfg.SubtaskHandler.Toggle)
	api.PATCH("/subtasks/:id/answer", cfg.SubtaskHandler.SetAnswer)
	api.PATCH("/subtasks/:id/link", cfg.SubtaskHandler.SetLink)

	return router
}
