package models

import (
	"time"

	"gorm.io/gorm"
)

type TaskStatus string

const (
	TaskStatusTodo       TaskStatus = "todo"
	TaskStatusInProgress TaskStatus = "in_progress"
	TaskStatusCompleted  TaskStatus = "completed"
)

// ValidTaskStatus reports whether s is one of the known task statuses.
// Any status may transition to any other; there is no terminal state.
func ValidTaskStatus(s TaskStatus) bool {
	switch s {
	case TaskStatusTodo, TaskStatusInProgress, TaskStatusCompleted:
		return true
	}
	return false
}

type TaskPriority string

const (
	TaskPriorityLow    TaskPriority = "low"
	TaskPriorityMedium TaskPriority = "medium"
	TaskPriorityHigh   TaskPriority = "high"
)

// ValidTaskPriority reports whether p is one of the known priorities.
func ValidTaskPriority(p TaskPriority) bool {
	switch p {
	case TaskPriorityLow, TaskPriorityMedium, TaskPriorityHigh:
		return true
	}
	return false
}

type Task struct {
	ID          string       `gorm:"type:varchar(36);primarykey" json:"id"`
	Title       string       `gorm:"not null" json:"title"`
	Description string       `gorm:"type:text" json:"description"`
	ProjectID   string       `gorm:"type:varchar(36);not null;index" json:"project_id"`
	AssignedTo  string       `gorm:"type:varchar(36);not null;index" json:"assigned_to"`
	Status      TaskStatus   `gorm:"type:varchar(20);not null;default:'todo'" json:"status"`
	Priority    TaskPriority `gorm:"type:varchar(20);not null;default:'medium'" json:"priority"`
	DueDate     *time.Time   `json:"due_date"`
	// CompletedAt is set iff Status is completed. The task service derives
	// it on every status transition; it is never written by a gorm hook.
	CompletedAt *time.Time     `json:"completed_at"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`

	// Relations
	Project  Project `gorm:"foreignKey:ProjectID" json:"project,omitempty"`
	Assignee User    `gorm:"foreignKey:AssignedTo" json:"assignee,omitempty"`
}
