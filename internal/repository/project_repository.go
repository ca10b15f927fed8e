package repository

import (
	"time"

	"github.com/okamura/project-management-api/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormProjectRepository is a GORM implementation of ProjectRepository
type GormProjectRepository struct {
	CRUD[models.Project]
}

// NewProjectRepository creates a new ProjectRepository
func NewProjectRepository(db *gorm.DB) ProjectRepository {
	return &GormProjectRepository{CRUD: NewCRUD[models.Project](db)}
}

// Create creates a project together with its member rows atomically.
// Either the project exists with exactly the given member set afterwards,
// or nothing was written.
func (r *GormProjectRepository) Create(project *models.Project, memberIDs []string) error {
	return r.DB().Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(project).Error; err != nil {
			return err
		}

		now := time.Now()
		for _, userID := range memberIDs {
			member := models.ProjectMember{
				ProjectID: project.ID,
				UserID:    userID,
				AddedAt:   now,
			}
			if err := tx.Create(&member).Error; err != nil {
				return err
			}
		}

		return nil
	})
}

// ListForUser lists projects the user owns or is a member of
func (r *GormProjectRepository) ListForUser(userID string, status *models.ProjectStatus, page, pageSize int) ([]models.Project, int64, error) {
	var projects []models.Project

	memberSubQuery := r.DB().Model(&models.ProjectMember{}).
		Select("1").
		Where("project_members.project_id = projects.id").
		Where("project_members.user_id = ?", userID).
		Where("project_members.deleted_at IS NULL")

	query := r.DB().Model(&models.Project{}).
		Where("projects.owner_id = ? OR EXISTS (?)", userID, memberSubQuery)

	if status != nil {
		query = query.Where("projects.status = ?", *status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	listQuery := query.Order("projects.created_at DESC")
	if page > 0 && pageSize > 0 {
		listQuery = listQuery.Offset((page - 1) * pageSize).Limit(pageSize)
	}

	if err := listQuery.Preload("Owner").Find(&projects).Error; err != nil {
		return nil, 0, err
	}

	return projects, total, nil
}

// Update saves changes to a project
func (r *GormProjectRepository) Update(project *models.Project) error {
	return r.Save(project)
}

// Delete removes a project, its tasks and its member rows in a transaction
func (r *GormProjectRepository) Delete(id string) error {
	return r.DB().Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("project_id = ?", id).Delete(&models.Task{}).Error; err != nil {
			return err
		}

		if err := tx.Where("project_id = ?", id).Delete(&models.ProjectMember{}).Error; err != nil {
			return err
		}

		return tx.Delete(&models.Project{}, "id = ?", id).Error
	})
}

// AddMember adds a member to a project. A row left behind by an earlier
// soft-deleted removal is revived in place.
func (r *GormProjectRepository) AddMember(member *models.ProjectMember) error {
	return r.DB().
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "project_id"}, {Name: "user_id"}},
			DoUpdates: clause.Assignments(map[string]interface{}{
				"deleted_at": gorm.Expr("NULL"),
				"added_at":   member.AddedAt,
			}),
		}).
		Create(member).Error
}

// RemoveMember removes a member from a project
func (r *GormProjectRepository) RemoveMember(projectID, userID string) error {
	return r.DB().Where("project_id = ? AND user_id = ?", projectID, userID).
		Delete(&models.ProjectMember{}).Error
}

// IsMember reports whether the user has a member row in the project
func (r *GormProjectRepository) IsMember(projectID, userID string) (bool, error) {
	var count int64
	err := r.DB().Model(&models.ProjectMember{}).
		Where("project_id = ? AND user_id = ?", projectID, userID).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// MemberIDs returns the user IDs of all project members
func (r *GormProjectRepository) MemberIDs(projectID string) ([]string, error) {
	var ids []string
	err := r.DB().Model(&models.ProjectMember{}).
		Where("project_id = ?", projectID).
		Pluck("user_id", &ids).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}

// AccessibleProjectIDs returns IDs of projects the user owns or belongs to
func (r *GormProjectRepository) AccessibleProjectIDs(userID string) ([]string, error) {
	var owned []string
	if err := r.DB().Model(&models.Project{}).
		Where("owner_id = ?", userID).
		Pluck("id", &owned).Error; err != nil {
		return nil, err
	}

	var member []string
	if err := r.DB().Model(&models.ProjectMember{}).
		Where("user_id = ?", userID).
		Pluck("project_id", &member).Error; err != nil {
		return nil, err
	}

	seen := make(map[string]struct{}, len(owned)+len(member))
	ids := make([]string, 0, len(owned)+len(member))
	for _, id := range append(owned, member...) {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}

	return ids, nil
}

// CountAll returns the total number of projects
func (r *GormProjectRepository) CountAll() (int64, error) {
	return r.CountWhere(nil)
}

// StatusCounts returns project counts grouped by status
func (r *GormProjectRepository) StatusCounts() (map[models.ProjectStatus]int64, error) {
	var rows []struct {
		Status models.ProjectStatus
		Count  int64
	}
	err := r.DB().Model(&models.Project{}).
		Select("projects.status AS status, COUNT(*) AS count").
		Group("projects.status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	counts := make(map[models.ProjectStatus]int64, len(rows))
	for _, row := range rows {
		counts[row.Status] = row.Count
	}
	return counts, nil
}
