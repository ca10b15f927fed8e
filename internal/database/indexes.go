package database

import (
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// AddIndexes adds performance-critical indexes beyond what AutoMigrate
// declares on the models.
func AddIndexes(db *gorm.DB, log *zap.Logger) error {
	indexes := []struct {
		table   string
		name    string
		columns string
	}{
		// Task indexes for filtering, dashboards and deadline scans
		{"tasks", "idx_tasks_project_id_status", "project_id, status"},
		{"tasks", "idx_tasks_assigned_to", "assigned_to"},
		{"tasks", "idx_tasks_priority", "priority"},
		{"tasks", "idx_tasks_due_date", "due_date"},
		{"tasks", "idx_tasks_created_at", "created_at"},

		// Project member indexes for access checks
		{"project_members", "idx_project_members_project_id", "project_id"},
		{"project_members", "idx_project_members_user_id", "user_id"},

		// Project listing by owner and status
		{"projects", "idx_projects_owner_id_status", "owner_id, status"},
	}

	for _, idx := range indexes {
		var count int64
		err := db.Raw(`
			SELECT COUNT(*)
			FROM pg_indexes
			WHERE tablename = ? AND indexname = ?
		`, idx.table, idx.name).Count(&count).Error

		if err != nil {
			return fmt.Errorf("failed to check index %s: %w", idx.name, err)
		}

		if count > 0 {
			log.Debug("index already exists, skipping", zap.String("index", idx.name))
			continue
		}

		sql := fmt.Sprintf("CREATE INDEX %s ON %s (%s)", idx.name, idx.table, idx.columns)
		if err := db.Exec(sql).Error; err != nil {
			return fmt.Errorf("failed to create index %s: %w", idx.name, err)
		}

		log.Info("created index",
			zap.String("index", idx.name),
			zap.String("table", idx.table),
			zap.String("columns", idx.columns))
	}

	return nil
}
