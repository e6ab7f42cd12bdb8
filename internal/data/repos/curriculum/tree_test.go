package curriculum

import (
	"testing"
	"time"

	"github.com/google/uuid"

	types "github.com/yungbote/neurobridge-curriculum/internal/domain"
)

func arenaNode(parent *types.CurriculumNode, position int, created time.Time) *types.CurriculumNode {
	n := &types.CurriculumNode{ID: uuid.New(), Position: position, CreatedAt: created}
	if parent != nil {
		id := parent.ID
		n.ParentID = &id
	}
	return n
}

func TestNodeArenaOrdering(t *testing.T) {
	t0 := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	root := arenaNode(nil, 0, t0)
	late := arenaNode(root, 1, t0)
	tieOld := arenaNode(root, 0, t0)
	tieNew := arenaNode(root, 0, t0.Add(time.Second))
	leaf := arenaNode(tieOld, 0, t0)

	a := newNodeArena([]*types.CurriculumNode{leaf, late, tieNew, root, tieOld})
	got := nodeIDs(a.preorder(a.roots))
	want := []uuid.UUID{root.ID, tieOld.ID, leaf.ID, tieNew.ID, late.ID}
	if len(got) != len(want) {
		t.Fatalf("preorder: got %d nodes", len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("preorder[%d]: want %s got %s", i, want[i], got[i])
		}
	}

	if d := a.depth(leaf.ID); d != 2 {
		t.Fatalf("depth(leaf): got %d", d)
	}
	if h := a.height(root.ID); h != 2 {
		t.Fatalf("height(root): got %d", h)
	}
	if !a.isDescendant(leaf.ID, root.ID) || a.isDescendant(root.ID, leaf.ID) {
		t.Fatalf("isDescendant: wrong direction")
	}
	if len(a.subtree(tieOld.ID)) != 2 {
		t.Fatalf("subtree(tieOld): got %d", len(a.subtree(tieOld.ID)))
	}
}

func TestNodeArenaSurvivesCycles(t *testing.T) {
	a := &types.CurriculumNode{ID: uuid.New()}
	b := &types.CurriculumNode{ID: uuid.New()}
	aID, bID := a.ID, b.ID
	a.ParentID = &bID
	b.ParentID = &aID

	arena := newNodeArena([]*types.CurriculumNode{a, b})
	if len(arena.roots) != 0 {
		t.Fatalf("cycle produced roots: %d", len(arena.roots))
	}
	if got := arena.ancestors(a.ID); len(got) != 1 || got[0].ID != b.ID {
		t.Fatalf("ancestors: got %v", nodeIDs(got))
	}
	if h := arena.height(a.ID); h != 1 {
		t.Fatalf("height: got %d", h)
	}
	if len(arena.subtree(a.ID)) != 2 {
		t.Fatalf("subtree: got %d", len(arena.subtree(a.ID)))
	}
}
