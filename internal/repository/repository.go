package repository

import (
	"time"

	"github.com/okamura/project-management-api/internal/models"
)

// UserRepository defines the interface for user data access
type UserRepository interface {
	// Create creates a new user
	Create(user *models.User) error

	// FindByID finds a user by ID with optional preloading
	FindByID(id string, preload ...string) (*models.User, error)

	// FindByEmail finds a user by email
	FindByEmail(email string) (*models.User, error)

	// FindActiveByIDs returns the active users among the given IDs
	FindActiveByIDs(ids []string) ([]models.User, error)

	// List returns users with pagination
	List(page, pageSize int) ([]models.User, int64, error)

	// Update saves changes to a user
	Update(user *models.User) error

	// UpdateLastLogin stamps the last successful login time
	UpdateLastLogin(id string, at time.Time) error

	// CountAll returns the total number of users
	CountAll() (int64, error)

	// CountActive returns the number of active users
	CountActive() (int64, error)
}

// ProjectRepository defines the interface for project data access
type ProjectRepository interface {
	// Create creates a project together with its member rows atomically
	Create(project *models.Project, memberIDs []string) error

	// FindByID finds a project by ID with optional preloading
	FindByID(id string, preload ...string) (*models.Project, error)

	// ListForUser lists projects the user owns or is a member of
	ListForUser(userID string, status *models.ProjectStatus, page, pageSize int) ([]models.Project, int64, error)

	// Update saves changes to a project
	Update(project *models.Project) error

	// Delete removes a project and all related data
	Delete(id string) error

	// AddMember adds a member to a project
	AddMember(member *models.ProjectMember) error

	// RemoveMember removes a member from a project
	RemoveMember(projectID, userID string) error

	// IsMember reports whether the user has a member row in the project
	IsMember(projectID, userID string) (bool, error)

	// MemberIDs returns the user IDs of all project members
	MemberIDs(projectID string) ([]string, error)

	// AccessibleProjectIDs returns IDs of projects the user owns or belongs to
	AccessibleProjectIDs(userID string) ([]string, error)

	// CountAll returns the total number of projects
	CountAll() (int64, error)

	// StatusCounts returns project counts grouped by status
	StatusCounts() (map[models.ProjectStatus]int64, error)
}

// TaskFilter holds filtering options for listing tasks
type TaskFilter struct {
	ProjectIDs []string
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

// TaskScope restricts dashboard aggregations. The zero value means global
// (admin statistics).
type TaskScope struct {
	ProjectIDs *[]string
	AssignedTo string
}

// TaskRepository defines the interface for task data access
type TaskRepository interface {
	// Create creates a new task
	Create(task *models.Task) error

	// FindByID finds a task by ID with optional preloading
	FindByID(id string, preload ...string) (*models.Task, error)

	// FindByIDs returns tasks matching the given IDs
	FindByIDs(ids []string) ([]models.Task, error)

	// List retrieves tasks with filtering and pagination
	List(filter TaskFilter) ([]models.Task, int64, error)

	// Update saves changes to a task
	Update(task *models.Task) error

	// Delete soft deletes a task
	Delete(id string) error

	// BulkUpdateStatus updates the status of every given task in one
	// transaction; completedAt applies to all of them
	BulkUpdateStatus(ids []string, status models.TaskStatus, completedAt *time.Time) error

	// StatusCounts returns task counts grouped by status within the scope
	StatusCounts(scope TaskScope) (map[models.TaskStatus]int64, error)

	// PriorityCounts returns task counts grouped by priority within the scope
	PriorityCounts(scope TaskScope) (map[models.TaskPriority]int64, error)

	// CountOverdue counts unfinished tasks past their due date
	CountOverdue(scope TaskScope, now time.Time) (int64, error)

	// FindUpcoming returns the nearest-deadline unfinished tasks
	FindUpcoming(scope TaskScope, now time.Time, limit int) ([]models.Task, error)

	// Count returns the total number of tasks within the scope
	Count(scope TaskScope) (int64, error)
}
