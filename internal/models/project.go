package models

import (
	"time"

	"gorm.io/gorm"
)

type ProjectStatus string

const (
	ProjectStatusActive    ProjectStatus = "active"
	ProjectStatusCompleted ProjectStatus = "completed"
	ProjectStatusPaused    ProjectStatus = "paused"
)

// ValidProjectStatus reports whether s is one of the known project statuses.
func ValidProjectStatus(s ProjectStatus) bool {
	switch s {
	case ProjectStatusActive, ProjectStatusCompleted, ProjectStatusPaused:
		return true
	}
	return false
}

type Project struct {
	ID          string         `gorm:"type:varchar(36);primarykey" json:"id"`
	Name        string         `gorm:"type:varchar(255);not null" json:"name"`
	Description string         `gorm:"type:text" json:"description"`
	// OwnerID is immutable after creation. The owner is never duplicated
	// into the members rows; access checks union {owner} with members.
	OwnerID   string         `gorm:"type:varchar(36);not null;index" json:"owner_id"`
	Status    ProjectStatus  `gorm:"type:varchar(20);not null;default:'active'" json:"status"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	// Relations
	Owner   User            `gorm:"foreignKey:OwnerID" json:"owner,omitempty"`
	Members []ProjectMember `gorm:"foreignKey:ProjectID" json:"members,omitempty"`
	Tasks   []Task          `gorm:"foreignKey:ProjectID" json:"tasks,omitempty"`
}
