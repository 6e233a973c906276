package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"taskhub/internal/model"
	"taskhub/internal/service/task"
)

type TaskHandler struct {
	svc    *task.Service
	logger *zap.Logger
}

func NewTaskHandler(svc *task.Service, logger *zap.Logger) *TaskHandler {
	return &TaskHandler{svc: svc, logger: logger}
}

type taskRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	DueDate     string `json:"due_date"`
	AssignedTo  int    `json:"assigned_to"`
	ProjectID   *int   `json:"project_id"`
	Status      string `json:"status"`
}

func (r taskRequest) input() (task.Input, model.FieldErrors) {
	in := task.Input{
		Title:       r.Title,
		Description: r.Description,
		AssignedTo:  r.AssignedTo,
		ProjectID:   r.ProjectID,
	}
	fe := model.FieldErrors{}
	if r.DueDate != "" {
		t, ok := parseDate(r.DueDate)
		if !ok {
			fe["dueDate"] = "Invalid date format"
		} else {
			in.DueDate = t
		}
	}
	return in, fe
}

func (h *TaskHandler) Create(c *gin.Context) {
	p, ok := CurrentPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "not logged in"})
		return
	}

	var req taskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	in, fe := req.input()
	if len(fe) > 0 {
		writeError(c, h.logger, fe)
		return
	}

	t, warn, err := h.svc.Create(c.Request.Context(), p, in)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}

	body := gin.H{"task": t}
	if warn != "" {
		body["warning"] = warn
	}
	c.JSON(http.StatusCreated, body)
}

func (h *TaskHandler) Get(c *gin.Context) {
	p, ok := CurrentPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "not logged in"})
		return
	}

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid task id"})
		return
	}

	t, err := h.svc.Get(c.Request.Context(), p, id)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"task": t})
}

func (h *TaskHandler) List(c *gin.Context) {
	p, ok := CurrentPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "not logged in"})
		return
	}

	var f task.ListFilter
	if v := c.Query("status"); v != "" {
		f.Status = &v
	}
	if v := c.Query("project"); v != "" {
		id, err := strconv.Atoi(v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid project filter"})
			return
		}
		f.ProjectID = &id
	}
	if v := c.Query("assignee"); v != "" {
		id, err := strconv.Atoi(v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid assignee filter"})
			return
		}
		f.AssigneeID = &id
	}
	if v := c.Query("creator"); v != "" {
		id, err := strconv.Atoi(v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid creator filter"})
			return
		}
		f.CreatorID = &id
	}

	tasks, err := h.svc.List(c.Request.Context(), p, f)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"tasks": tasks})
}

func (h *TaskHandler) Update(c *gin.Context) {
	p, ok := CurrentPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "not logged in"})
		return
	}

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid task id"})
		return
	}

	var req taskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	in, fe := req.input()
	if len(fe) > 0 {
		writeError(c, h.logger, fe)
		return
	}

	t, warn, err := h.svc.Update(c.Request.Context(), p, id, in, req.Status)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}

	body := gin.H{"task": t}
	if warn != "" {
		body["warning"] = warn
	}
	c.JSON(http.StatusOK, body)
}

type statusRequest struct {
	Status string `json:"status"`
}

func (h *TaskHandler) UpdateStatus(c *gin.Context) {
	p, ok := CurrentPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "not logged in"})
		return
	}

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid task id"})
		return
	}

	var req statusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	t, err := h.svc.UpdateStatus(c.Request.Context(), p, id, req.Status)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"task": t})
}

func (h *TaskHandler) Delete(c *gin.Context) {
	p, ok := CurrentPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "not logged in"})
		return
	}

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid task id"})
		return
	}

	if err := h.svc.Delete(c.Request.Context(), p, id); err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *TaskHandler) Logs(c *gin.Context) {
	p, ok := CurrentPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "not logged in"})
		return
	}

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid task id"})
		return
	}

	logs, err := h.svc.Logs(c.Request.Context(), p, id)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"logs": logs})
}
