package repos

import (
	"gorm.io/gorm"

	"github.com/yungbote/neurobridge-curriculum/internal/data/repos/curriculum"
	"github.com/yungbote/neurobridge-curriculum/internal/data/repos/learning"
	"github.com/yungbote/neurobridge-curriculum/internal/platform/logger"
)

type AcademicBlueprintRepo = curriculum.AcademicBlueprintRepo
type CurriculumNodeRepo = curriculum.CurriculumNodeRepo

type CourseRepo = learning.CourseRepo
type CourseSectionRepo = learning.CourseSectionRepo
type LessonRepo = learning.LessonRepo

func NewAcademicBlueprintRepo(db *gorm.DB, baseLog *logger.Logger) AcademicBlueprintRepo {
	return curriculum.NewAcademicBlueprintRepo(db, baseLog)
}
func NewCurriculumNodeRepo(db *gorm.DB, baseLog *logger.Logger) CurriculumNodeRepo {
	return curriculum.NewCurriculumNodeRepo(db, baseLog)
}

func NewCourseRepo(db *gorm.DB, baseLog *logger.Logger) CourseRepo {
	return learning.NewCourseRepo(db, baseLog)
}
func NewCourseSectionRepo(db *gorm.DB, baseLog *logger.Logger) CourseSectionRepo {
	return learning.NewCourseSectionRepo(db, baseLog)
}
func NewLessonRepo(db *gorm.DB, baseLog *logger.Logger) LessonRepo {
	return learning.NewLessonRepo(db, baseLog)
}
