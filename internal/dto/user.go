package dto

import (
	"time"

	"github.com/okamura/project-management-api/internal/models"
)

// UserDTO represents a user in API responses
type UserDTO struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Email     string          `json:"email"`
	Role      models.UserRole `json:"role"`
	IsActive  bool            `json:"is_active"`
	LastLogin *time.Time      `json:"last_login,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

// UserListResponse represents a paginated list of users
type UserListResponse struct {
	Users      []UserDTO `json:"users"`
	Page       int       `json:"page"`
	PageSize   int       `json:"page_size"`
	TotalCount int64     `json:"total_count"`
	TotalPages int       `json:"total_pages"`
}

// ToUserDTO converts a User model to UserDTO
func ToUserDTO(user models.User) UserDTO {
	return UserDTO{
		ID:        user.ID,
		Name:      user.Name,
		Email:     user.Email,
		Role:      user.Role,
		IsActive:  user.IsActive,
		LastLogin: user.LastLogin,
		CreatedAt: user.CreatedAt,
	}
}

// ToUserListResponse converts a slice of users to UserListResponse
func ToUserListResponse(users []models.User, page, pageSize int, totalCount int64) UserListResponse {
	items := make([]UserDTO, len(users))
	for i, user := range users {
		items[i] = ToUserDTO(user)
	}

	return UserListResponse{
		Users:      items,
		Page:       page,
		PageSize:   pageSize,
		TotalCount: totalCount,
		TotalPages: totalPages(totalCount, pageSize),
	}
}

func totalPages(totalCount int64, pageSize int) int {
	if pageSize <= 0 {
		return 0
	}
	pages := int(totalCount) / pageSize
	if int(totalCount)%pageSize > 0 {
		pages++
	}
	return pages
}
