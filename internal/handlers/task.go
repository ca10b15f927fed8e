package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/okamura/project-management-api/internal/dto"
	apierrors "github.com/okamura/project-management-api/internal/errors"
	"github.com/okamura/project-management-api/internal/models"
	"github.com/okamura/project-management-api/internal/services"
	"github.com/okamura/project-management-api/internal/utils"
	"go.uber.org/zap"
)

// TaskHandler coordinates task HTTP handlers.
type TaskHandler struct {
	taskService *services.TaskService
	log         *zap.Logger
}

// NewTaskHandler creates a new TaskHandler.
func NewTaskHandler(taskService *services.TaskService, log *zap.Logger) *TaskHandler {
	return &TaskHandler{
		taskService: taskService,
		log:         log,
	}
}

// CreateTask creates a task in a project the caller has access to.
func (h *TaskHandler) CreateTask(c *gin.Context) {
	actor, ok := currentUser(c)
	if !ok {
		apierrors.Unauthorized(c, apierrors.ErrTokenMissing)
		return
	}

	type CreateTaskRequest struct {
		Title       string              `json:"title" binding:"required,max=255"`
		Description string              `json:"description"`
		ProjectID   string              `json:"project_id" binding:"required"`
		AssignedTo  string              `json:"assigned_to"`
		Status      models.TaskStatus   `json:"status"`
		Priority    models.TaskPriority `json:"priority"`
		DueDate     *time.Time          `json:"due_date"`
	}

	var req CreateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	task, err := h.taskService.CreateTask(actor, services.CreateTaskInput{
		Title:       req.Title,
		Description: req.Description,
		ProjectID:   req.ProjectID,
		AssignedTo:  req.AssignedTo,
		Status:      req.Status,
		Priority:    req.Priority,
		DueDate:     req.DueDate,
	})
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusCreated, dto.ToTaskDTO(*task))
}

// ListTasks returns tasks in projects the caller can access, with filtering.
func (h *TaskHandler) ListTasks(c *gin.Context) {
	actor, ok := currentUser(c)
	if !ok {
		apierrors.Unauthorized(c, apierrors.ErrTokenMissing)
		return
	}

	params := utils.GetPaginationParams(c)

	input := services.ListTasksInput{
		Search:    c.Query("search"),
		SortByDue: c.Query("sort") == "due_date",
		Page:      params.Page,
		PageSize:  params.PageSize,
	}

	if v := c.Query("project_id"); v != "" {
		input.ProjectID = &v
	}
	if v := c.Query("status"); v != "" {
		status := models.TaskStatus(v)
		input.Status = &status
	}
	if v := c.Query("priority"); v != "" {
		priority := models.TaskPriority(v)
		input.Priority = &priority
	}
	if v := c.Query("assigned_to"); v != "" {
		input.AssignedTo = &v
	}
	if v := c.Query("due_before"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			apierrors.BadRequest(c, "Invalid due_before timestamp")
			return
		}
		input.DueBefore = &t
	}
	if v := c.Query("due_after"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			apierrors.BadRequest(c, "Invalid due_after timestamp")
			return
		}
		input.DueAfter = &t
	}

	tasks, total, err := h.taskService.ListTasks(actor, input)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToTaskListResponse(tasks, params.Page, params.PageSize, total))
}

// GetTask returns a single task.
func (h *TaskHandler) GetTask(c *gin.Context) {
	actor, ok := currentUser(c)
	if !ok {
		apierrors.Unauthorized(c, apierrors.ErrTokenMissing)
		return
	}

	task, err := h.taskService.GetTask(actor, c.Param("id"))
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToTaskDTO(*task))
}

// UpdateTask updates a task, including status transitions and reassignment.
func (h *TaskHandler) UpdateTask(c *gin.Context) {
	actor, ok := currentUser(c)
	if !ok {
		apierrors.Unauthorized(c, apierrors.ErrTokenMissing)
		return
	}

	type UpdateTaskRequest struct {
		Title        *string              `json:"title" binding:"omitempty,max=255"`
		Description  *string              `json:"description"`
		Status       *models.TaskStatus   `json:"status"`
		Priority     *models.TaskPriority `json:"priority"`
		AssignedTo   *string              `json:"assigned_to"`
		DueDate      *time.Time           `json:"due_date"`
		ClearDueDate bool                 `json:"clear_due_date"`
	}

	var req UpdateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	task, err := h.taskService.UpdateTask(actor, c.Param("id"), services.UpdateTaskInput{
		Title:        req.Title,
		Description:  req.Description,
		Status:       req.Status,
		Priority:     req.Priority,
		AssignedTo:   req.AssignedTo,
		DueDate:      req.DueDate,
		ClearDueDate: req.ClearDueDate,
	})
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToTaskDTO(*task))
}

// DeleteTask removes a task.
func (h *TaskHandler) DeleteTask(c *gin.Context) {
	actor, ok := currentUser(c)
	if !ok {
		apierrors.Unauthorized(c, apierrors.ErrTokenMissing)
		return
	}

	if err := h.taskService.DeleteTask(actor, c.Param("id")); err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Task deleted"})
}

// BulkUpdateStatus moves a batch of tasks to a new status, all-or-nothing.
func (h *TaskHandler) BulkUpdateStatus(c *gin.Context) {
	actor, ok := currentUser(c)
	if !ok {
		apierrors.Unauthorized(c, apierrors.ErrTokenMissing)
		return
	}

	type BulkUpdateRequest struct {
		TaskIDs []string          `json:"task_ids" binding:"required"`
		Status  models.TaskStatus `json:"status" binding:"required"`
	}

	var req BulkUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	tasks, err := h.taskService.BulkUpdateStatus(actor, req.TaskIDs, req.Status)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	items := make([]dto.TaskDTO, len(tasks))
	for i, task := range tasks {
		items[i] = dto.ToTaskDTO(task)
	}
	c.JSON(http.StatusOK, gin.H{"tasks": items})
}
