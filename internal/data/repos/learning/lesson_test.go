package learning

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"github.com/yungbote/neurobridge-curriculum/internal/data/repos/testutil"
	types "github.com/yungbote/neurobridge-curriculum/internal/domain"
	"github.com/yungbote/neurobridge-curriculum/internal/platform/dbctx"
)

func TestCourseSectionRepo(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)

	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}
	repo := NewCourseSectionRepo(db, testutil.Logger(t))

	c := testutil.SeedCourse(t, ctx, tx, nil)
	late := testutil.SeedSection(t, ctx, tx, c.ID, 2)
	early := testutil.SeedSection(t, ctx, tx, c.ID, 1)
	other := testutil.SeedCourse(t, ctx, tx, nil)
	testutil.SeedSection(t, ctx, tx, other.ID, 0)

	rows, err := repo.GetByCourseIDs(dbc, []uuid.UUID{c.ID})
	if err != nil || len(rows) != 2 {
		t.Fatalf("GetByCourseIDs: err=%v len=%d", err, len(rows))
	}
	if rows[0].ID != early.ID || rows[1].ID != late.ID {
		t.Fatalf("GetByCourseIDs order: got orders %d, %d", rows[0].Order, rows[1].Order)
	}

	if err := tx.Delete(early).Error; err != nil {
		t.Fatalf("soft delete: %v", err)
	}
	rows, err = repo.GetByCourseIDs(dbc, []uuid.UUID{c.ID, other.ID})
	if err != nil || len(rows) != 2 || rows[0].ID == early.ID || rows[1].ID == early.ID {
		t.Fatalf("soft-deleted section still visible: err=%v len=%d", err, len(rows))
	}
}

func TestLessonRepo(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)

	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}
	repo := NewLessonRepo(db, testutil.Logger(t))

	c := testutil.SeedCourse(t, ctx, tx, nil)
	s := testutil.SeedSection(t, ctx, tx, c.ID, 0)
	l := &types.Lesson{
		CourseID:        c.ID,
		CourseSectionID: testutil.PtrUUID(s.ID),
		Title:           "Creation",
		LessonType:      "video",
		VideoURL:        "https://videos.example.com/creation.mp4",
		Order:           1,
		Attachments: []types.LessonAttachment{
			{Name: "notes.pdf", URL: "https://files.example.com/notes.pdf", Type: "pdf"},
			{Name: "map.png", URL: "https://files.example.com/map.png", Type: "image"},
		},
	}
	if err := tx.WithContext(ctx).Create(l).Error; err != nil {
		t.Fatalf("seed lesson: %v", err)
	}
	orphan := testutil.SeedLesson(t, ctx, tx, c.ID, nil, 0)

	rows, err := repo.GetByCourseIDs(dbc, []uuid.UUID{c.ID})
	if err != nil || len(rows) != 2 {
		t.Fatalf("GetByCourseIDs: err=%v len=%d", err, len(rows))
	}
	if rows[0].ID != orphan.ID || rows[1].ID != l.ID {
		t.Fatalf("GetByCourseIDs order: got %s, %s", rows[0].Title, rows[1].Title)
	}
	if len(rows[1].Attachments) != 2 {
		t.Fatalf("attachments not loaded: %+v", rows[1].Attachments)
	}

	if err := tx.Delete(orphan).Error; err != nil {
		t.Fatalf("soft delete: %v", err)
	}
	if rows, _ := repo.GetByCourseIDs(dbc, []uuid.UUID{c.ID}); len(rows) != 1 {
		t.Fatalf("after soft delete: len=%d", len(rows))
	}
	if rows, err := repo.GetByCourseIDs(dbc, nil); err != nil || len(rows) != 0 {
		t.Fatalf("GetByCourseIDs(nil): err=%v len=%d", err, len(rows))
	}
}
