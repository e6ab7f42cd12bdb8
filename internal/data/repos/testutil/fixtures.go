package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/neurobridge-curriculum/internal/domain"
	"github.com/yungbote/neurobridge-curriculum/internal/domain/curriculum"
)

// DefaultLevels is the three-level hierarchy most fixtures use.
var DefaultLevels = []string{"Course", "Section", "Lesson"}

func SeedBlueprint(tb testing.TB, ctx context.Context, tx *gorm.DB, name string, levels []string) *types.AcademicBlueprint {
	tb.Helper()
	if levels == nil {
		levels = DefaultLevels
	}
	bp, err := curriculum.NewAcademicBlueprint(name, "fixture", levels, map[string]any{"type": "pass_fail"}, nil)
	if err != nil {
		tb.Fatalf("build blueprint: %v", err)
	}
	if err := tx.WithContext(ctx).Create(bp).Error; err != nil {
		tb.Fatalf("seed blueprint: %v", err)
	}
	return bp
}

func SeedCourse(tb testing.TB, ctx context.Context, tx *gorm.DB, blueprintID *uuid.UUID) *types.Course {
	tb.Helper()
	c := &types.Course{
		ID:          uuid.New(),
		Title:       "course",
		Slug:        "course",
		BlueprintID: blueprintID,
	}
	if err := tx.WithContext(ctx).Create(c).Error; err != nil {
		tb.Fatalf("seed course: %v", err)
	}
	return c
}

func SeedNode(tb testing.TB, ctx context.Context, tx *gorm.DB, courseID uuid.UUID, parentID *uuid.UUID, nodeType string, position int) *types.CurriculumNode {
	tb.Helper()
	n := &types.CurriculumNode{
		ID:       uuid.New(),
		CourseID: courseID,
		ParentID: parentID,
		NodeType: nodeType,
		Title:    nodeType,
		Position: position,
	}
	if err := tx.WithContext(ctx).Create(n).Error; err != nil {
		tb.Fatalf("seed node: %v", err)
	}
	return n
}

func SeedSection(tb testing.TB, ctx context.Context, tx *gorm.DB, courseID uuid.UUID, order int) *types.CourseSection {
	tb.Helper()
	s := &types.CourseSection{
		ID:       uuid.New(),
		CourseID: courseID,
		Title:    "section",
		Order:    order,
	}
	if err := tx.WithContext(ctx).Create(s).Error; err != nil {
		tb.Fatalf("seed section: %v", err)
	}
	return s
}

func SeedLesson(tb testing.TB, ctx context.Context, tx *gorm.DB, courseID uuid.UUID, sectionID *uuid.UUID, order int) *types.Lesson {
	tb.Helper()
	l := &types.Lesson{
		ID:              uuid.New(),
		CourseID:        courseID,
		CourseSectionID: sectionID,
		Title:           "lesson",
		Slug:            "lesson",
		LessonType:      "text",
		Content:         "content",
		Order:           order,
	}
	if err := tx.WithContext(ctx).Create(l).Error; err != nil {
		tb.Fatalf("seed lesson: %v", err)
	}
	return l
}

func PtrUUID(v uuid.UUID) *uuid.UUID { return &v }

func PtrTime(v time.Time) *time.Time { return &v }
