package domain

import (
	"github.com/yungbote/neurobridge-curriculum/internal/domain/curriculum"
	"github.com/yungbote/neurobridge-curriculum/internal/domain/learning"
	"github.com/yungbote/neurobridge-curriculum/internal/domain/learning/legacy_course"
)

type AcademicBlueprint = curriculum.AcademicBlueprint
type CurriculumNode = curriculum.CurriculumNode

type Course = learning.Course
type CourseSection = legacy_course.CourseSection
type Lesson = legacy_course.Lesson
type LessonAttachment = legacy_course.LessonAttachment

// Models lists every table owned by this module in creation order.
func Models() []any {
	return []any{
		&AcademicBlueprint{},
		&Course{},
		&CourseSection{},
		&Lesson{},
		&LessonAttachment{},
		&CurriculumNode{},
	}
}
