package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "github.com/pathwayhq/pathway-backend/internal/pkg/errors"
	"github.com/pathwayhq/pathway-backend/internal/requestdata"
	"github.com/pathwayhq/pathway-backend/internal/services"
)

type ProjectHandler struct {
	projectService services.ProjectService
}

func NewProjectHandler(projectService services.ProjectService) *ProjectHandler {
	return &ProjectHandler{projectService: projectService}
}

func currentUserID(c *gin.Context) (*requestdata.RequestData, bool) {
	rd := requestdata.GetRequestData(c.Request.Context())
	if rd == nil {
		RespondError(c, http.StatusForbidden, "forbidden", apperrors.ErrForbidden)
		return nil, false
	}
	return rd, true
}

func (ph *ProjectHandler) Create(c *gin.Context) {
	rd, ok := currentUserID(c)
	if !ok {
		return
	}
	var req struct {
		TemplateID string `json:"template_id"`
		Name       string `json:"name"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "bad_request", err)
		return
	}
	templateID, err := parseID(req.TemplateID, "template_id")
	if err != nil {
		RespondError(c, http.StatusBadRequest, "bad_request", err)
		return
	}
	project, err := ph.projectService.CreateProject(c.Request.Context(), rd.UserID, templateID, req.Name)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"project": project})
}

func (ph *ProjectHandler) GetAll(c *gin.Context) {
	rd, ok := currentUserID(c)
	if !ok {
		return
	}
	projects, err := ph.projectService.GetUserProjects(c.Request.Context(), rd.UserID)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"projects": projects})
}

func (ph *ProjectHandler) GetByID(c *gin.Context) {
	rd, ok := currentUserID(c)
	if !ok {
		return
	}
	projectID, err := parseIDParam(c, "id")
	if err != nil {
		RespondError(c, http.StatusBadRequest, "bad_request", err)
		return
	}
	project, err := ph.projectService.GetProject(c.Request.Context(), rd.UserID, projectID)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"project": project})
}

func (ph *ProjectHandler) Delete(c *gin.Context) {
	rd, ok := currentUserID(c)
	if !ok {
		return
	}
	projectID, err := parseIDParam(c, "id")
	if err != nil {
		RespondError(c, http.StatusBadRequest, "bad_request", err)
		return
	}
	if err := ph.projectService.DeleteProject(c.Request.Context(), rd.UserID, projectID); err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"deleted": true})
}

func (ph *ProjectHandler) UpdateStructure(c *gin.Context) {
	rd, ok := currentUserID(c)
	if !ok {
		return
	}
	projectID, err := parseIDParam(c, "id")
	if err != nil {
		RespondError(c, http.StatusBadRequest, "bad_request", err)
		return
	}
	var req struct {
		Stages []services.StageInput `json:"stages"`
		Tasks  []services.TaskInput  `json:"tasks"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "bad_request", err)
		return
	}
	project, result, err := ph.projectService.UpdateStructure(c.Request.Context(), rd.UserID, projectID, req.Stages, req.Tasks)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"project": project, "reconcile": result})
}
