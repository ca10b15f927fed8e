package models

import (
	"time"

	"gorm.io/gorm"
)

type UserRole string

const (
	RoleAdmin UserRole = "admin"
	RoleUser  UserRole = "user"
)

type User struct {
	ID           string         `gorm:"type:varchar(36);primarykey" json:"id"`
	Name         string         `gorm:"type:varchar(255);not null" json:"name"`
	Email        string         `gorm:"type:varchar(255);uniqueIndex;not null" json:"email"`
	PasswordHash string         `gorm:"type:varchar(255);not null" json:"-"`
	Role         UserRole       `gorm:"type:varchar(20);not null;default:'user'" json:"role"`
	IsActive     bool           `gorm:"not null;default:true" json:"is_active"`
	LastLogin    *time.Time     `json:"last_login"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`

	// Relations
	OwnedProjects []Project       `gorm:"foreignKey:OwnerID" json:"-"`
	Memberships   []ProjectMember `gorm:"foreignKey:UserID" json:"-"`
	AssignedTasks []Task          `gorm:"foreignKey:AssignedTo" json:"-"`
}
