package services

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/okamura/project-management-api/internal/authz"
	"github.com/okamura/project-management-api/internal/constants"
	apierrors "github.com/okamura/project-management-api/internal/errors"
	"github.com/okamura/project-management-api/internal/models"
	"github.com/okamura/project-management-api/internal/repository"
	"gorm.io/gorm"
)

// TaskService handles task business logic.
type TaskService struct {
	taskRepo    repository.TaskRepository
	projectRepo repository.ProjectRepository
	engine      *authz.Engine
}

// NewTaskService creates a new TaskService.
func NewTaskService(taskRepo repository.TaskRepository, projectRepo repository.ProjectRepository, engine *authz.Engine) *TaskService {
	return &TaskService{
		taskRepo:    taskRepo,
		projectRepo: projectRepo,
		engine:      engine,
	}
}

// CreateTaskInput represents input for creating a task.
type CreateTaskInput struct {
	Title       string
	Description string
	ProjectID   string
	AssignedTo  string
	Status      models.TaskStatus
	Priority    models.TaskPriority
	DueDate     *time.Time
}

// CreateTask creates a task in a project the actor has access to. The
// assignee must also have project access, and a due date in the past is
// rejected before anything is written.
func (s *TaskService) CreateTask(actor *models.User, input CreateTaskInput) (*models.Task, error) {
	if strings.TrimSpace(input.Title) == "" {
		return nil, apierrors.New(apierrors.ErrCodeValidation, "Title is required")
	}

	if input.Status == "" {
		input.Status = models.TaskStatusTodo
	}
	if !models.ValidTaskStatus(input.Status) {
		return nil, apierrors.New(apierrors.ErrCodeValidation, "Invalid task status")
	}
	if input.Priority == "" {
		input.Priority = models.TaskPriorityMedium
	}
	if !models.ValidTaskPriority(input.Priority) {
		return nil, apierrors.New(apierrors.ErrCodeValidation, "Invalid task priority")
	}
	if input.DueDate != nil && input.DueDate.Before(time.Now()) {
		return nil, apierrors.New(apierrors.ErrCodeValidation, "Due date cannot be in the past")
	}

	project, err := s.findProject(input.ProjectID)
	if err != nil {
		return nil, err
	}

	d, err := s.engine.CanAccessProject(actor, project)
	if err != nil {
		return nil, err
	}
	if !d.Allowed {
		return nil, d.Err()
	}

	assignee := input.AssignedTo
	if assignee == "" {
		assignee = actor.ID
	}

	d, err = s.engine.CanAssignTask(project, assignee)
	if err != nil {
		return nil, err
	}
	if !d.Allowed {
		return nil, d.Err()
	}

	task := &models.Task{
		ID:          uuid.NewString(),
		Title:       strings.TrimSpace(input.Title),
		Description: input.Description,
		ProjectID:   project.ID,
		AssignedTo:  assignee,
		Status:      input.Status,
		Priority:    input.Priority,
		DueDate:     input.DueDate,
	}
	applyCompletionStamp(task, nil)

	if err := s.taskRepo.Create(task); err != nil {
		return nil, fmt.Errorf("failed to create task: %w", err)
	}

	return s.taskRepo.FindByID(task.ID, "Project", "Assignee")
}

// GetTask returns a task if the actor has access to its parent project.
func (s *TaskService) GetTask(actor *models.User, taskID string) (*models.Task, error) {
	task, err := s.findTask(taskID, "Project", "Assignee")
	if err != nil {
		return nil, err
	}

	if err := s.authorizeTask(actor, task); err != nil {
		return nil, err
	}

	return task, nil
}

// ListTasksInput represents filters for listing tasks.
type ListTasksInput struct {
	ProjectID  *string
	Status     *models.TaskStatus
	Priority   *models.TaskPriority
	AssignedTo *string
	Search     string
	DueBefore  *time.Time
	DueAfter   *time.Time
	SortByDue  bool
	Page       int
	PageSize   int
}

// ListTasks returns tasks in projects the actor can access.
func (s *TaskService) ListTasks(actor *models.User, input ListTasksInput) ([]models.Task, int64, error) {
	if input.Status != nil && !models.ValidTaskStatus(*input.Status) {
		return nil, 0, apierrors.New(apierrors.ErrCodeValidation, "Invalid task status")
	}
	if input.Priority != nil && !models.ValidTaskPriority(*input.Priority) {
		return nil, 0, apierrors.New(apierrors.ErrCodeValidation, "Invalid task priority")
	}

	projectIDs, err := s.resolveProjectScope(actor, input.ProjectID)
	if err != nil {
		return nil, 0, err
	}
	if len(projectIDs) == 0 {
		return []models.Task{}, 0, nil
	}

	filter := repository.TaskFilter{
		ProjectIDs: projectIDs,
		Status:     input.Status,
		Priority:   input.Priority,
		AssignedTo: input.AssignedTo,
		Search:     input.Search,
		DueBefore:  input.DueBefore,
		DueAfter:   input.DueAfter,
		SortByDue:  input.SortByDue,
		Page:       input.Page,
		PageSize:   input.PageSize,
	}

	tasks, total, err := s.taskRepo.List(filter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list tasks: %w", err)
	}

	return tasks, total, nil
}

// UpdateTaskInput represents partial task changes.
type UpdateTaskInput struct {
	Title        *string
	Description  *string
	Status       *models.TaskStatus
	Priority     *models.TaskPriority
	AssignedTo   *string
	DueDate      *time.Time
	ClearDueDate bool
}

// UpdateTask updates a task. Any user with access to the parent project may
// mutate it. Reassignment re-validates the new assignee's project access,
// and status transitions recompute the completion stamp.
func (s *TaskService) UpdateTask(actor *models.User, taskID string, input UpdateTaskInput) (*models.Task, error) {
	task, err := s.findTask(taskID)
	if err != nil {
		return nil, err
	}

	project, err := s.findProject(task.ProjectID)
	if err != nil {
		return nil, err
	}

	d, err := s.engine.CanAccessTask(actor, project)
	if err != nil {
		return nil, err
	}
	if !d.Allowed {
		return nil, d.Err()
	}

	if input.Title != nil {
		if strings.TrimSpace(*input.Title) == "" {
			return nil, apierrors.New(apierrors.ErrCodeValidation, "Title cannot be empty")
		}
		task.Title = strings.TrimSpace(*input.Title)
	}
	if input.Description != nil {
		task.Description = *input.Description
	}
	if input.Priority != nil {
		if !models.ValidTaskPriority(*input.Priority) {
			return nil, apierrors.New(apierrors.ErrCodeValidation, "Invalid task priority")
		}
		task.Priority = *input.Priority
	}
	if input.AssignedTo != nil && *input.AssignedTo != task.AssignedTo {
		d, err := s.engine.CanAssignTask(project, *input.AssignedTo)
		if err != nil {
			return nil, err
		}
		if !d.Allowed {
			return nil, d.Err()
		}
		task.AssignedTo = *input.AssignedTo
	}
	if input.ClearDueDate {
		task.DueDate = nil
	} else if input.DueDate != nil {
		task.DueDate = input.DueDate
	}
	if input.Status != nil {
		if !models.ValidTaskStatus(*input.Status) {
			return nil, apierrors.New(apierrors.ErrCodeValidation, "Invalid task status")
		}
		task.Status = *input.Status
	}
	applyCompletionStamp(task, task.CompletedAt)

	if err := s.taskRepo.Update(task); err != nil {
		return nil, fmt.Errorf("failed to update task: %w", err)
	}

	return s.taskRepo.FindByID(task.ID, "Project", "Assignee")
}

// DeleteTask deletes a task. Any user with access to the parent project may
// delete it; this is not owner-restricted.
func (s *TaskService) DeleteTask(actor *models.User, taskID string) error {
	task, err := s.findTask(taskID)
	if err != nil {
		return err
	}

	project, err := s.findProject(task.ProjectID)
	if err != nil {
		return err
	}

	d, err := s.engine.CanAccessTask(actor, project)
	if err != nil {
		return err
	}
	if !d.Allowed {
		return d.Err()
	}

	if err := s.taskRepo.Delete(taskID); err != nil {
		return fmt.Errorf("failed to delete task: %w", err)
	}

	return nil
}

// BulkUpdateStatus moves every given task to the new status. Every task id
// must exist and the actor must have access to every referenced project
// before any write happens; on any failed check zero tasks are updated.
func (s *TaskService) BulkUpdateStatus(actor *models.User, taskIDs []string, status models.TaskStatus) ([]models.Task, error) {
	if len(taskIDs) == 0 {
		return nil, apierrors.New(apierrors.ErrCodeValidation, "At least one task id is required")
	}
	if len(taskIDs) > constants.MaxBulkTaskIDs {
		return nil, apierrors.New(apierrors.ErrCodeValidation,
			fmt.Sprintf("At most %d task ids per request", constants.MaxBulkTaskIDs))
	}
	if !models.ValidTaskStatus(status) {
		return nil, apierrors.New(apierrors.ErrCodeValidation, "Invalid task status")
	}

	ids := uniqueStrings(taskIDs)

	tasks, err := s.taskRepo.FindByIDs(ids)
	if err != nil {
		return nil, fmt.Errorf("failed to load tasks: %w", err)
	}
	if len(tasks) != len(ids) {
		found := make(map[string]struct{}, len(tasks))
		for _, t := range tasks {
			found[t.ID] = struct{}{}
		}
		missing := make([]string, 0)
		for _, id := range ids {
			if _, ok := found[id]; !ok {
				missing = append(missing, id)
			}
		}
		return nil, apierrors.NewWithDetails(apierrors.ErrCodeTaskNotFound, "One or more tasks do not exist", missing)
	}

	// Authorize against every distinct parent project before touching
	// anything.
	checked := make(map[string]struct{})
	for _, task := range tasks {
		if _, ok := checked[task.ProjectID]; ok {
			continue
		}
		checked[task.ProjectID] = struct{}{}

		project, err := s.findProject(task.ProjectID)
		if err != nil {
			return nil, err
		}
		d, err := s.engine.CanAccessTask(actor, project)
		if err != nil {
			return nil, err
		}
		if !d.Allowed {
			return nil, d.Err()
		}
	}

	var completedAt *time.Time
	if status == models.TaskStatusCompleted {
		now := time.Now()
		completedAt = &now
	}

	if err := s.taskRepo.BulkUpdateStatus(ids, status, completedAt); err != nil {
		return nil, fmt.Errorf("failed to bulk update tasks: %w", err)
	}

	updated, err := s.taskRepo.FindByIDs(ids)
	if err != nil {
		return nil, fmt.Errorf("failed to reload tasks: %w", err)
	}
	return updated, nil
}

// resolveProjectScope returns the project ids the listing is allowed to
// cover: either the one requested project (access-checked) or every project
// the actor owns or belongs to.
func (s *TaskService) resolveProjectScope(actor *models.User, projectID *string) ([]string, error) {
	if projectID != nil {
		project, err := s.findProject(*projectID)
		if err != nil {
			return nil, err
		}
		d, err := s.engine.CanAccessProject(actor, project)
		if err != nil {
			return nil, err
		}
		if !d.Allowed {
			return nil, d.Err()
		}
		return []string{project.ID}, nil
	}

	ids, err := s.projectRepo.AccessibleProjectIDs(actor.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve accessible projects: %w", err)
	}
	return ids, nil
}

func (s *TaskService) authorizeTask(actor *models.User, task *models.Task) error {
	project, err := s.findProject(task.ProjectID)
	if err != nil {
		return err
	}

	d, err := s.engine.CanAccessTask(actor, project)
	if err != nil {
		return err
	}
	if !d.Allowed {
		return d.Err()
	}
	return nil
}

func (s *TaskService) findTask(taskID string, preload ...string) (*models.Task, error) {
	task, err := s.taskRepo.FindByID(taskID, preload...)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apierrors.ErrTaskNotFound
		}
		return nil, fmt.Errorf("failed to find task: %w", err)
	}
	return task, nil
}

func (s *TaskService) findProject(projectID string, preload ...string) (*models.Project, error) {
	project, err := s.projectRepo.FindByID(projectID, preload...)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apierrors.ErrProjectNotFound
		}
		return nil, fmt.Errorf("failed to find project: %w", err)
	}
	return project, nil
}

// applyCompletionStamp keeps completedAt in lockstep with status: entering
// completed stamps the current time (preserving an existing stamp when the
// status did not actually change), leaving completed clears it.
func applyCompletionStamp(task *models.Task, previous *time.Time) {
	if task.Status == models.TaskStatusCompleted {
		if previous == nil {
			now := time.Now()
			task.CompletedAt = &now
		} else {
			task.CompletedAt = previous
		}
		return
	}
	task.CompletedAt = nil
}

// uniqueStrings removes duplicate values while preserving order.
func uniqueStrings(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	result := make([]string, 0, len(values))
	for _, v := range values {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		result = append(result, v)
	}
	return result
}
