package services

import (
	"fmt"
	"time"

	apierrors "github.com/okamura/project-management-api/internal/errors"
	"github.com/okamura/project-management-api/internal/models"
	"github.com/okamura/project-management-api/internal/repository"
)

const upcomingTaskLimit = 5

// DashboardService computes read-only aggregations. Empty aggregations
// produce zeroed defaults, never errors.
type DashboardService struct {
	taskRepo    repository.TaskRepository
	projectRepo repository.ProjectRepository
	userRepo    repository.UserRepository
}

// NewDashboardService creates a new DashboardService.
func NewDashboardService(taskRepo repository.TaskRepository, projectRepo repository.ProjectRepository, userRepo repository.UserRepository) *DashboardService {
	return &DashboardService{
		taskRepo:    taskRepo,
		projectRepo: projectRepo,
		userRepo:    userRepo,
	}
}

// UserDashboard aggregates the actor's own workload.
type UserDashboard struct {
	TasksByStatus   map[models.TaskStatus]int64   `json:"tasks_by_status"`
	TasksByPriority map[models.TaskPriority]int64 `json:"tasks_by_priority"`
	TotalTasks      int64                         `json:"total_tasks"`
	OverdueTasks    int64                         `json:"overdue_tasks"`
	UpcomingTasks   []models.Task                 `json:"upcoming_tasks"`
	ProjectCount    int                           `json:"project_count"`
}

// GetUserDashboard returns counts and nearest deadlines for tasks assigned
// to the actor, plus the number of projects the actor can access.
func (s *DashboardService) GetUserDashboard(actor *models.User) (*UserDashboard, error) {
	scope := repository.TaskScope{AssignedTo: actor.ID}
	now := time.Now()

	statusCounts, err := s.taskRepo.StatusCounts(scope)
	if err != nil {
		return nil, fmt.Errorf("failed to count tasks by status: %w", err)
	}
	priorityCounts, err := s.taskRepo.PriorityCounts(scope)
	if err != nil {
		return nil, fmt.Errorf("failed to count tasks by priority: %w", err)
	}
	total, err := s.taskRepo.Count(scope)
	if err != nil {
		return nil, fmt.Errorf("failed to count tasks: %w", err)
	}
	overdue, err := s.taskRepo.CountOverdue(scope, now)
	if err != nil {
		return nil, fmt.Errorf("failed to count overdue tasks: %w", err)
	}
	upcoming, err := s.taskRepo.FindUpcoming(scope, now, upcomingTaskLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to find upcoming tasks: %w", err)
	}
	projectIDs, err := s.projectRepo.AccessibleProjectIDs(actor.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve accessible projects: %w", err)
	}

	return &UserDashboard{
		TasksByStatus:   fillStatusCounts(statusCounts),
		TasksByPriority: fillPriorityCounts(priorityCounts),
		TotalTasks:      total,
		OverdueTasks:    overdue,
		UpcomingTasks:   upcoming,
		ProjectCount:    len(projectIDs),
	}, nil
}

// AdminStats aggregates global counts across all tenants.
type AdminStats struct {
	TotalUsers       int64                          `json:"total_users"`
	ActiveUsers      int64                          `json:"active_users"`
	TotalProjects    int64                          `json:"total_projects"`
	ProjectsByStatus map[models.ProjectStatus]int64 `json:"projects_by_status"`
	TotalTasks       int64                          `json:"total_tasks"`
	TasksByStatus    map[models.TaskStatus]int64    `json:"tasks_by_status"`
	TasksByPriority  map[models.TaskPriority]int64  `json:"tasks_by_priority"`
	OverdueTasks     int64                          `json:"overdue_tasks"`
}

// GetAdminStats returns global statistics. Admin only.
func (s *DashboardService) GetAdminStats(actor *models.User) (*AdminStats, error) {
	if actor.Role != models.RoleAdmin {
		return nil, apierrors.New(apierrors.ErrCodeAccessDenied, "Admin access required")
	}

	global := repository.TaskScope{}
	now := time.Now()

	totalUsers, err := s.userRepo.CountAll()
	if err != nil {
		return nil, fmt.Errorf("failed to count users: %w", err)
	}
	activeUsers, err := s.userRepo.CountActive()
	if err != nil {
		return nil, fmt.Errorf("failed to count active users: %w", err)
	}
	totalProjects, err := s.projectRepo.CountAll()
	if err != nil {
		return nil, fmt.Errorf("failed to count projects: %w", err)
	}
	projectCounts, err := s.projectRepo.StatusCounts()
	if err != nil {
		return nil, fmt.Errorf("failed to count projects by status: %w", err)
	}
	totalTasks, err := s.taskRepo.Count(global)
	if err != nil {
		return nil, fmt.Errorf("failed to count tasks: %w", err)
	}
	taskCounts, err := s.taskRepo.StatusCounts(global)
	if err != nil {
		return nil, fmt.Errorf("failed to count tasks by status: %w", err)
	}
	priorityCounts, err := s.taskRepo.PriorityCounts(global)
	if err != nil {
		return nil, fmt.Errorf("failed to count tasks by priority: %w", err)
	}
	overdue, err := s.taskRepo.CountOverdue(global, now)
	if err != nil {
		return nil, fmt.Errorf("failed to count overdue tasks: %w", err)
	}

	return &AdminStats{
		TotalUsers:       totalUsers,
		ActiveUsers:      activeUsers,
		TotalProjects:    totalProjects,
		ProjectsByStatus: fillProjectStatusCounts(projectCounts),
		TotalTasks:       totalTasks,
		TasksByStatus:    fillStatusCounts(taskCounts),
		TasksByPriority:  fillPriorityCounts(priorityCounts),
		OverdueTasks:     overdue,
	}, nil
}

// fillStatusCounts guarantees every status key is present, zeroed if absent.
func fillStatusCounts(counts map[models.TaskStatus]int64) map[models.TaskStatus]int64 {
	filled := map[models.TaskStatus]int64{
		models.TaskStatusTodo:       0,
		models.TaskStatusInProgress: 0,
		models.TaskStatusCompleted:  0,
	}
	for status, count := range counts {
		filled[status] = count
	}
	return filled
}

func fillPriorityCounts(counts map[models.TaskPriority]int64) map[models.TaskPriority]int64 {
	filled := map[models.TaskPriority]int64{
		models.TaskPriorityLow:    0,
		models.TaskPriorityMedium: 0,
		models.TaskPriorityHigh:   0,
	}
	for priority, count := range counts {
		filled[priority] = count
	}
	return filled
}

func fillProjectStatusCounts(counts map[models.ProjectStatus]int64) map[models.ProjectStatus]int64 {
	filled := map[models.ProjectStatus]int64{
		models.ProjectStatusActive:    0,
		models.ProjectStatusCompleted: 0,
		models.ProjectStatusPaused:    0,
	}
	for status, count := range counts {
		filled[status] = count
	}
	return filled
}
