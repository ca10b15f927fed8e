package dto

import (
	"time"

	"github.com/okamura/project-management-api/internal/models"
)

// TaskDTO represents a task in API responses
type TaskDTO struct {
	ID          string              `json:"id"`
	Title       string              `json:"title"`
	Description string              `json:"description"`
	ProjectID   string              `json:"project_id"`
	AssignedTo  string              `json:"assigned_to"`
	Status      models.TaskStatus   `json:"status"`
	Priority    models.TaskPriority `json:"priority"`
	DueDate     *time.Time          `json:"due_date"`
	CompletedAt *time.Time          `json:"completed_at"`
	CreatedAt   time.Time           `json:"created_at"`
	UpdatedAt   time.Time           `json:"updated_at"`
	Assignee    *UserDTO            `json:"assignee,omitempty"`
}

// TaskListResponse represents a paginated list of tasks
type TaskListResponse struct {
	Tasks      []TaskDTO `json:"tasks"`
	Page       int       `json:"page"`
	PageSize   int       `json:"page_size"`
	TotalCount int64     `json:"total_count"`
	TotalPages int       `json:"total_pages"`
}

// ToTaskDTO converts a Task model to TaskDTO
func ToTaskDTO(task models.Task) TaskDTO {
	dto := TaskDTO{
		ID:          task.ID,
		Title:       task.Title,
		Description: task.Description,
		ProjectID:   task.ProjectID,
		AssignedTo:  task.AssignedTo,
		Status:      task.Status,
		Priority:    task.Priority,
		DueDate:     task.DueDate,
		CompletedAt: task.CompletedAt,
		CreatedAt:   task.CreatedAt,
		UpdatedAt:   task.UpdatedAt,
	}

	// Include assignee if preloaded
	if task.Assignee.ID != "" {
		assignee := ToUserDTO(task.Assignee)
		dto.Assignee = &assignee
	}

	return dto
}

// ToTaskListResponse converts a slice of tasks to TaskListResponse
func ToTaskListResponse(tasks []models.Task, page, pageSize int, totalCount int64) TaskListResponse {
	items := make([]TaskDTO, len(tasks))
	for i, task := range tasks {
		items[i] = ToTaskDTO(task)
	}

	return TaskListResponse{
		Tasks:      items,
		Page:       page,
		PageSize:   pageSize,
		TotalCount: totalCount,
		TotalPages: totalPages(totalCount, pageSize),
	}
}
