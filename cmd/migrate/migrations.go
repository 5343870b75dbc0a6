package main

import (
	"gorm.io/gorm"

	"github.com/logicflow/engine/internal/repository"
)

// runMigrations executes all database migrations
func runMigrations(db *gorm.DB) error {
	if err := db.AutoMigrate(repository.Models()...); err != nil {
		return err
	}
	return runCustomMigrations(db)
}

// runCustomMigrations handles indexes AutoMigrate can't express
func runCustomMigrations(db *gorm.DB) error {
	migrations := []func(*gorm.DB) error{
		addLiveProjectIndex,
		addHistoryIndexes,
	}

	for _, migration := range migrations {
		if err := migration(db); err != nil {
			return err
		}
	}

	return nil
}

// addLiveProjectIndex backs the newest-first listing of live projects.
func addLiveProjectIndex(db *gorm.DB) error {
	return db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_projects_live_updated
		ON projects(user_id, updated_at DESC, id DESC)
		WHERE is_deleted = false
	`).Error
}

func addHistoryIndexes(db *gorm.DB) error {
	if err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_project_history_project_changed
		ON project_history(user_id, project_id, changed_at DESC, seq DESC)
	`).Error; err != nil {
		return err
	}

	return db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_version_history_version_restored
		ON version_history(user_id, project_id, version_id, restored_at DESC)
	`).Error
}
