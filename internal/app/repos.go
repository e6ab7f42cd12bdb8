package app

import (
	"gorm.io/gorm"

	"github.com/yungbote/neurobridge-curriculum/internal/data/repos"
	"github.com/yungbote/neurobridge-curriculum/internal/platform/logger"
)

type Repos struct {
	AcademicBlueprint repos.AcademicBlueprintRepo
	CurriculumNode    repos.CurriculumNodeRepo
	Course            repos.CourseRepo
	CourseSection     repos.CourseSectionRepo
	Lesson            repos.LessonRepo
}

func wireRepos(db *gorm.DB, log *logger.Logger) Repos {
	log.Info("Wiring repos...")
	return Repos{
		AcademicBlueprint: repos.NewAcademicBlueprintRepo(db, log),
		CurriculumNode:    repos.NewCurriculumNodeRepo(db, log),
		Course:            repos.NewCourseRepo(db, log),
		CourseSection:     repos.NewCourseSectionRepo(db, log),
		Lesson:            repos.NewLessonRepo(db, log),
	}
}
