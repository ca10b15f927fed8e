package dto

import (
	"time"

	"github.com/okamura/project-management-api/internal/models"
)

// ProjectMemberDTO represents a member in a project
type ProjectMemberDTO struct {
	User    UserDTO   `json:"user"`
	AddedAt time.Time `json:"added_at"`
}

// ProjectDTO represents a project in API responses
type ProjectDTO struct {
	ID          string               `json:"id"`
	Name        string               `json:"name"`
	Description string               `json:"description"`
	OwnerID     string               `json:"owner_id"`
	Status      models.ProjectStatus `json:"status"`
	CreatedAt   time.Time            `json:"created_at"`
	UpdatedAt   time.Time            `json:"updated_at"`
	Owner       *UserDTO             `json:"owner,omitempty"`
	Members     []ProjectMemberDTO   `json:"members,omitempty"`
}

// ProjectListResponse represents a paginated list of projects
type ProjectListResponse struct {
	Projects   []ProjectDTO `json:"projects"`
	Page       int          `json:"page"`
	PageSize   int          `json:"page_size"`
	TotalCount int64        `json:"total_count"`
	TotalPages int          `json:"total_pages"`
}

// ToProjectDTO converts a Project model to ProjectDTO
func ToProjectDTO(project models.Project) ProjectDTO {
	dto := ProjectDTO{
		ID:          project.ID,
		Name:        project.Name,
		Description: project.Description,
		OwnerID:     project.OwnerID,
		Status:      project.Status,
		CreatedAt:   project.CreatedAt,
		UpdatedAt:   project.UpdatedAt,
	}

	// Include owner if preloaded
	if project.Owner.ID != "" {
		owner := ToUserDTO(project.Owner)
		dto.Owner = &owner
	}

	// Include members if preloaded
	if len(project.Members) > 0 {
		dto.Members = make([]ProjectMemberDTO, len(project.Members))
		for i, member := range project.Members {
			dto.Members[i] = ProjectMemberDTO{
				User:    ToUserDTO(member.User),
				AddedAt: member.AddedAt,
			}
		}
	}

	return dto
}

// ToProjectListResponse converts a slice of projects to ProjectListResponse
func ToProjectListResponse(projects []models.Project, page, pageSize int, totalCount int64) ProjectListResponse {
	items := make([]ProjectDTO, len(projects))
	for i, project := range projects {
		items[i] = ToProjectDTO(project)
	}

	return ProjectListResponse{
		Projects:   items,
		Page:       page,
		PageSize:   pageSize,
		TotalCount: totalCount,
		TotalPages: totalPages(totalCount, pageSize),
	}
}
