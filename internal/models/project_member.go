package models

import (
	"time"

	"gorm.io/gorm"
)

type ProjectMember struct {
	ProjectID string         `gorm:"type:varchar(36);primarykey" json:"project_id"`
	UserID    string         `gorm:"type:varchar(36);primarykey" json:"user_id"`
	AddedAt   time.Time      `json:"added_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	// Relations
	Project Project `gorm:"foreignKey:ProjectID" json:"project,omitempty"`
	User    User    `gorm:"foreignKey:UserID" json:"user,omitempty"`
}
