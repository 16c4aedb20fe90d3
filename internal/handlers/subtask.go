package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/pathwayhq/pathway-backend/internal/services"
)

type SubtaskHandler struct {
	subtaskService services.SubtaskService
}

func NewSubtaskHandler(subtaskService services.SubtaskService) *SubtaskHandler {
	return &SubtaskHandler{subtaskService: subtaskService}
}

func (sh *SubtaskHandler) Toggle(c *gin.Context) {
	rd, ok := currentUserID(c)
	if !ok {
		return
	}
	subtaskID, err := parseIDParam(c, "id")
	if err != nil {
		RespondError(c, http.StatusBadRequest, "bad_request", err)
		return
	}
	subtask, gem, err := sh.subtaskService.ToggleSubtask(c.Request.Context(), rd.UserID, subtaskID)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"subtask": subtask, "gem": gem})
}

func (sh *SubtaskHandler) SetAnswer(c *gin.Context) {
	rd, ok := currentUserID(c)
	if !ok {
		return
	}
	subtaskID, err := parseIDParam(c, "id")
	if err != nil {
		RespondError(c, http.StatusBadRequest, "bad_request", err)
		return
	}
	var req struct {
		Answer *string `json:"answer"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "bad_request", err)
		return
	}
	subtask, err := sh.subtaskService.SetAnswer(c.Request.Context(), rd.UserID, subtaskID, req.Answer)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"subtask": subtask})
}

func (sh *SubtaskHandler) SetLink(c *gin.Context) {
	rd, ok := currentUserID(c)
	if !ok {
		return
	}
	subtaskID, err := parseIDParam(c, "id")
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
	subtask, err := sh.subtaskService.SetLink(c.Request.Context(), rd.UserID, subtaskID, req.Link)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"subtask": subtask})
}
