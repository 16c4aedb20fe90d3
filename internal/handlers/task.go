package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/pathwayhq/pathway-backend/internal/services"
)

type TaskHandler struct {
	taskService services.TaskService
}

func NewTaskHandler(taskService services.TaskService) *TaskHandler {
	return &TaskHandler{taskService: taskService}
}

func (th *TaskHandler) SetStatus(c *gin.Context) {
	rd, ok := currentUserID(c)
	if !ok {
		return
	}
	taskID, err := parseIDParam(c, "id")
	if err != nil {
		RespondError(c, http.StatusBadRequest, "bad_request", err)
		return
	}
	var req struct {
		Status string `json:"status"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "bad_request", err)
		return
	}
	task, gem, err := th.taskService.SetStatus(c.Request.Context(), rd.UserID, taskID, req.Status)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"task": task, "gem": gem})
}

func (th *TaskHandler) Toggle(c *gin.Context) {
	rd, ok := currentUserID(c)
	if !ok {
		return
	}
	taskID, err := parseIDParam(c, "id")
	if err != nil {
		RespondError(c, http.StatusBadRequest, "bad_request", err)
		return
	}
	task, gem, err := th.taskService.ToggleTask(c.Request.Context(), rd.UserID, taskID)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"task": task, "gem": gem})
}

func (th *TaskHandler) SetLink(c *gin.Context) {
	rd, ok := currentUserID(c)
	if !ok {
		return
	}
	taskID, err := parseIDParam(c, "id")
	if err != nil {
		RespondError(c, http.StatusBadRequest, "bad_request", err)
		return
	}
	var req struct {
		Link *string `json:"link"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "bad_request", err)
		return
	}
	task, err := th.taskService.SetLink(c.Request.Context(), rd.UserID, taskID, req.Link)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"task": task})
}
