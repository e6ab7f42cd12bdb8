package db

import (
	"fmt"

	types "github.com/yungbote/neurobridge-curriculum/internal/domain"
	"gorm.io/gorm"
)

func AutoMigrateAll(db *gorm.DB) error {
	return db.AutoMigrate(types.Models()...)
}

// EnsureCurriculumIndexes adds expression indexes for the legacy markers the
// migration looks nodes up by. The expression matches what datatypes.JSONQuery
// emits on postgres. SQLite relies on the scan.
func EnsureCurriculumIndexes(db *gorm.DB) error {
	if db.Dialector.Name() != DriverPostgres {
		return nil
	}
	for _, key := range []string{"legacy_course_id", "legacy_section_id", "legacy_lesson_id"} {
		stmt := fmt.Sprintf(`
			CREATE INDEX IF NOT EXISTS idx_curriculum_nodes_%s
			ON curriculum_nodes (course_id, json_extract_path_text(properties::json, '%s'))
			WHERE deleted_at IS NULL;
		`, key, key)
		if err := db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("create idx_curriculum_nodes_%s: %w", key, err)
		}
	}
	return nil
}

func (s *Service) AutoMigrateAll() error {
	s.log.Info("Auto migrating curriculum tables...", "driver", s.driver)
	if err := AutoMigrateAll(s.db); err != nil {
		s.log.Error("Auto migration failed", "error", err)
		return err
	}
	if err := EnsureCurriculumIndexes(s.db); err != nil {
		s.log.Error("Curriculum index migration failed", "error", err)
		return err
	}
	return nil
}
