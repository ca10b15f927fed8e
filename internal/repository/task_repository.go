package repository

import (
	"strings"
	"time"

	"github.com/okamura/project-management-api/internal/models"
	"gorm.io/gorm"
)

// GormTaskRepository is a GORM implementation of TaskRepository
type GormTaskRepository struct {
	CRUD[models.Task]
}

// NewTaskRepository creates a new TaskRepository
func NewTaskRepository(db *gorm.DB) TaskRepository {
	return &GormTaskRepository{CRUD: NewCRUD[models.Task](db)}
}

// FindByIDs returns tasks matching the given IDs
func (r *GormTaskRepository) FindByIDs(ids []string) ([]models.Task, error) {
	if len(ids) == 0 {
		return []models.Task{}, nil
	}

	var tasks []models.Task
	if err := r.DB().Where("id IN ?", ids).Find(&tasks).Error; err != nil {
		return nil, err
	}
	return tasks, nil
}

// List retrieves tasks with filtering and pagination
func (r *GormTaskRepository) List(filter TaskFilter) ([]models.Task, int64, error) {
	var tasks []models.Task

	if len(filter.ProjectIDs) == 0 {
		return []models.Task{}, 0, nil
	}

	query := r.DB().Model(&models.Task{}).Where("tasks.project_id IN ?", filter.ProjectIDs)

	if filter.Status != nil {
		query = query.Where("tasks.status = ?", *filter.Status)
	}
	if filter.Priority != nil {
		query = query.Where("tasks.priority = ?", *filter.Priority)
	}
	if filter.AssignedTo != nil {
		query = query.Where("tasks.assigned_to = ?", *filter.AssignedTo)
	}
	if filter.Search != "" {
		pattern := "%" + strings.ToLower(filter.Search) + "%"
		query = query.Where("LOWER(tasks.title) LIKE ? OR LOWER(tasks.description) LIKE ?", pattern, pattern)
	}
	if filter.DueAfter != nil {
		query = query.Where("tasks.due_date >= ?", *filter.DueAfter)
	}
	if filter.DueBefore != nil {
		query = query.Where("tasks.due_date < ?", *filter.DueBefore)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	listQuery := query
	if filter.SortByDue {
		listQuery = listQuery.Order("CASE WHEN tasks.due_date IS NULL THEN 1 ELSE 0 END, tasks.due_date ASC")
	} else {
		listQuery = listQuery.Order("tasks.created_at DESC")
	}

	if filter.Page > 0 && filter.PageSize > 0 {
		offset := (filter.Page - 1) * filter.PageSize
		listQuery = listQuery.Offset(offset).Limit(filter.PageSize)
	}

	if err := listQuery.Preload("Assignee").Find(&tasks).Error; err != nil {
		return nil, 0, err
	}

	return tasks, total, nil
}

// Update saves changes to a task
func (r *GormTaskRepository) Update(task *models.Task) error {
	return r.Save(task)
}

// Delete soft deletes a task
func (r *GormTaskRepository) Delete(id string) error {
	return r.DeleteByID(id)
}

// BulkUpdateStatus updates the status of every given task in one
// transaction. Callers validate access to every task before invoking this;
// the transaction keeps the write itself all-or-nothing.
func (r *GormTaskRepository) BulkUpdateStatus(ids []string, status models.TaskStatus, completedAt *time.Time) error {
	if len(ids) == 0 {
		return nil
	}

	return r.DB().Transaction(func(tx *gorm.DB) error {
		return tx.Model(&models.Task{}).
			Where("id IN ?", ids).
			Updates(map[string]interface{}{
				"status":       status,
				"completed_at": completedAt,
			}).Error
	})
}

// scoped applies a TaskScope to a task query
func (r *GormTaskRepository) scoped(scope TaskScope) *gorm.DB {
	query := r.DB().Model(&models.Task{})
	if scope.ProjectIDs != nil {
		if len(*scope.ProjectIDs) == 0 {
			// No accessible projects: force an empty result set
			query = query.Where("1 = 0")
		} else {
			query = query.Where("tasks.project_id IN ?", *scope.ProjectIDs)
		}
	}
	if scope.AssignedTo != "" {
		query = query.Where("tasks.assigned_to = ?", scope.AssignedTo)
	}
	return query
}

// StatusCounts returns task counts grouped by status within the scope
func (r *GormTaskRepository) StatusCounts(scope TaskScope) (map[models.TaskStatus]int64, error) {
	var rows []struct {
		Status models.TaskStatus
		Count  int64
	}
	err := r.scoped(scope).
		Select("tasks.status AS status, COUNT(*) AS count").
		Group("tasks.status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	counts := make(map[models.TaskStatus]int64, len(rows))
	for _, row := range rows {
		counts[row.Status] = row.Count
	}
	return counts, nil
}

// PriorityCounts returns task counts grouped by priority within the scope
func (r *GormTaskRepository) PriorityCounts(scope TaskScope) (map[models.TaskPriority]int64, error) {
	var rows []struct {
		Priority models.TaskPriority
		Count    int64
	}
	err := r.scoped(scope).
		Select("tasks.priority AS priority, COUNT(*) AS count").
		Group("tasks.priority").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	counts := make(map[models.TaskPriority]int64, len(rows))
	for _, row := range rows {
		counts[row.Priority] = row.Count
	}
	return counts, nil
}

// CountOverdue counts unfinished tasks past their due date
func (r *GormTaskRepository) CountOverdue(scope TaskScope, now time.Time) (int64, error) {
	var count int64
	err := r.scoped(scope).
		Where("tasks.due_date IS NOT NULL AND tasks.due_date < ?", now).
		Where("tasks.status <> ?", models.TaskStatusCompleted).
		Count(&count).Error
	return count, err
}

// FindUpcoming returns the nearest-deadline unfinished tasks
func (r *GormTaskRepository) FindUpcoming(scope TaskScope, now time.Time, limit int) ([]models.Task, error) {
	var tasks []models.Task
	err := r.scoped(scope).
		Where("tasks.due_date IS NOT NULL AND tasks.due_date >= ?", now).
		Where("tasks.status <> ?", models.TaskStatusCompleted).
		Order("tasks.due_date ASC").
		Limit(limit).
		Find(&tasks).Error
	if err != nil {
		return nil, err
	}
	return tasks, nil
}

// Count returns the total number of tasks within the scope
func (r *GormTaskRepository) Count(scope TaskScope) (int64, error) {
	var count int64
	err := r.scoped(scope).Count(&count).Error
	return count, err
}
