package learning

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"github.com/yungbote/neurobridge-curriculum/internal/data/repos/testutil"
	types "github.com/yungbote/neurobridge-curriculum/internal/domain"
	"github.com/yungbote/neurobridge-curriculum/internal/platform/dbctx"
)

func TestCourseRepo(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)

	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}
	repo := NewCourseRepo(db, testutil.Logger(t))

	bp := testutil.SeedBlueprint(t, ctx, tx, "Course repo", nil)
	c := &types.Course{
		ID:       uuid.New(),
		Title:    "Systematic Theology",
		Slug:     "systematic-theology",
		Position: 2,
	}
	if err := tx.WithContext(ctx).Create(c).Error; err != nil {
		t.Fatalf("seed course: %v", err)
	}
	first := testutil.SeedCourse(t, ctx, tx, nil)

	if rows, err := repo.GetByIDs(dbc, []uuid.UUID{c.ID}); err != nil || len(rows) != 1 {
		t.Fatalf("GetByIDs: err=%v len=%d", err, len(rows))
	}
	if got, err := repo.GetByID(dbc, c.ID); err != nil || got == nil || got.Title != c.Title {
		t.Fatalf("GetByID: got=%v err=%v", got, err)
	}
	all, err := repo.ListAll(dbc)
	if err != nil || len(all) != 2 || all[0].ID != first.ID {
		t.Fatalf("ListAll: err=%v rows=%v", err, all)
	}

	if err := repo.AssignBlueprint(dbc, []uuid.UUID{c.ID, first.ID}, testutil.PtrUUID(bp.ID)); err != nil {
		t.Fatalf("AssignBlueprint: %v", err)
	}
	if rows, err := repo.GetByBlueprintIDs(dbc, []uuid.UUID{bp.ID}); err != nil || len(rows) != 2 {
		t.Fatalf("GetByBlueprintIDs: err=%v len=%d", err, len(rows))
	}

	if err := tx.Delete(first).Error; err != nil {
		t.Fatalf("soft delete: %v", err)
	}
	if rows, err := repo.GetByIDs(dbc, []uuid.UUID{first.ID}); err != nil || len(rows) != 0 {
		t.Fatalf("soft-deleted course visible: err=%v len=%d", err, len(rows))
	}
	if rows, _ := repo.GetByBlueprintIDs(dbc, []uuid.UUID{bp.ID}); len(rows) != 1 || rows[0].ID != c.ID {
		t.Fatalf("GetByBlueprintIDs after soft delete: %v", rows)
	}

	cleared, err := repo.ClearAllBlueprints(dbc)
	if err != nil || cleared != 2 {
		t.Fatalf("ClearAllBlueprints: cleared=%d err=%v", cleared, err)
	}
	if rows, _ := repo.GetByBlueprintIDs(dbc, []uuid.UUID{bp.ID}); len(rows) != 0 {
		t.Fatalf("blueprint still assigned to %d courses", len(rows))
	}
	var stale int64
	tx.Unscoped().Model(&types.Course{}).Where("blueprint_id IS NOT NULL").Count(&stale)
	if stale != 0 {
		t.Fatalf("soft-deleted course kept its blueprint")
	}

}
