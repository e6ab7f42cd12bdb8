package app

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/yungbote/neurobridge-curriculum/internal/data/db"
	"github.com/yungbote/neurobridge-curriculum/internal/platform/logger"
	"github.com/yungbote/neurobridge-curriculum/internal/services"
)

type Services struct {
	NodeProperties         services.NodePropertiesService
	BlueprintSerialization services.BlueprintSerializationService
	LegacyMigration        services.LegacyMigrationService
}

func wireServices(gdb *gorm.DB, log *logger.Logger, cfg Config, reposet Repos) (Services, error) {
	log.Info("Wiring services...")

	required, err := services.LoadRequiredProperties(cfg.NodePropertiesConfig)
	if err != nil {
		return Services{}, fmt.Errorf("load node properties config: %w", err)
	}

	return Services{
		NodeProperties: services.NewNodePropertiesService(log, reposet.CurriculumNode, required),
		BlueprintSerialization: services.NewBlueprintSerializationService(
			log,
			reposet.AcademicBlueprint,
			cfg.ExportConcurrency,
		),
		LegacyMigration: services.NewLegacyMigrationService(
			db.NewGormTxRunner(gdb),
			log,
			reposet.AcademicBlueprint,
			reposet.CurriculumNode,
			reposet.Course,
			reposet.CourseSection,
			reposet.Lesson,
		),
	}, nil
}
