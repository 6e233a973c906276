package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"taskhub/internal/service/project"
	"taskhub/internal/service/task"
)

type DashboardHandler struct {
	tasks    *task.Service
	projects *project.Service
	logger   *zap.Logger
}

func NewDashboardHandler(tasks *task.Service, projects *project.Service, logger *zap.Logger) *DashboardHandler {
	return &DashboardHandler{tasks: tasks, projects: projects, logger: logger}
}

// Get serves the landing page payload: the principal's assigned and
// created tasks with summary counts. Admins also receive the project
// list for the project filter control.
func (h *DashboardHandler) Get(c *gin.Context) {
	p, ok := CurrentPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "not logged in"})
		return
	}

	var (
		projectID *int
		status    *string
	)
	if v := c.Query("project"); v != "" {
		id, err := strconv.Atoi(v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid project filter"})
			return
		}
		projectID = &id
	}
	if v := c.Query("status"); v != "" {
		status = &v
	}

	dash, err := h.tasks.GetDashboard(c.Request.Context(), p, projectID, status)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}

	body := gin.H{
		"assigned_tasks": dash.AssignedTasks,
		"created_tasks":  dash.CreatedTasks,
		"summary":        dash.Summary,
	}
	if p.IsAdmin() {
		projects, err := h.projects.List(c.Request.Context())
		if err != nil {
			writeError(c, h.logger, err)
			return
		}
		body["projects"] = projects
	}
	c.JSON(http.StatusOK, body)
}
