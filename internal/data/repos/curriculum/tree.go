package curriculum

import (
	"sort"

	"github.com/google/uuid"

	types "github.com/yungbote/neurobridge-curriculum/internal/domain"
)

// nodeArena indexes one course's nodes by id. Parentage stays as id
// references; traversal uses explicit stacks so a corrupt parent cycle cannot
// blow the goroutine stack.
type nodeArena struct {
	byID     map[uuid.UUID]*types.CurriculumNode
	children map[uuid.UUID][]*types.CurriculumNode
	roots    []*types.CurriculumNode
}

func newNodeArena(rows []*types.CurriculumNode) *nodeArena {
	a := &nodeArena{
		byID:     make(map[uuid.UUID]*types.CurriculumNode, len(rows)),
		children: make(map[uuid.UUID][]*types.CurriculumNode),
	}
	for _, n := range rows {
		if n != nil {
			a.byID[n.ID] = n
		}
	}
	var orphans []*types.CurriculumNode
	for _, n := range a.byID {
		switch {
		case n.ParentID == nil:
			a.roots = append(a.roots, n)
		case a.byID[*n.ParentID] == nil:
			// parent soft-deleted or outside the loaded set
			orphans = append(orphans, n)
		default:
			a.children[*n.ParentID] = append(a.children[*n.ParentID], n)
		}
	}
	sortSiblings(a.roots)
	sortSiblings(orphans)
	a.roots = append(a.roots, orphans...)
	for id := range a.children {
		sortSiblings(a.children[id])
	}
	return a
}

func sortSiblings(nodes []*types.CurriculumNode) {
	sort.SliceStable(nodes, func(i, j int) bool {
		if nodes[i].Position != nodes[j].Position {
			return nodes[i].Position < nodes[j].Position
		}
		if !nodes[i].CreatedAt.Equal(nodes[j].CreatedAt) {
			return nodes[i].CreatedAt.Before(nodes[j].CreatedAt)
		}
		return nodes[i].ID.String() < nodes[j].ID.String()
	})
}

// preorder walks depth-first from start, parents before children and siblings
// in position order.
func (a *nodeArena) preorder(start []*types.CurriculumNode) []*types.CurriculumNode {
	out := make([]*types.CurriculumNode, 0, len(a.byID))
	seen := make(map[uuid.UUID]bool, len(a.byID))
	stack := make([]*types.CurriculumNode, 0, len(start))
	for i := len(start) - 1; i >= 0; i-- {
		stack = append(stack, start[i])
	}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if seen[n.ID] {
			continue
		}
		seen[n.ID] = true
		out = append(out, n)
		kids := a.children[n.ID]
		for i := len(kids) - 1; i >= 0; i-- {
			stack = append(stack, kids[i])
		}
	}
	return out
}

func (a *nodeArena) subtree(id uuid.UUID) []*types.CurriculumNode {
	n := a.byID[id]
	if n == nil {
		return nil
	}
	return a.preorder([]*types.CurriculumNode{n})
}

// ancestors returns the loaded path from the root down to id's parent.
func (a *nodeArena) ancestors(id uuid.UUID) []*types.CurriculumNode {
	n := a.byID[id]
	if n == nil {
		return nil
	}
	var path []*types.CurriculumNode
	seen := map[uuid.UUID]bool{id: true}
	for n.ParentID != nil {
		p := a.byID[*n.ParentID]
		if p == nil || seen[p.ID] {
			break
		}
		seen[p.ID] = true
		path = append(path, p)
		n = p
	}
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path
}

func (a *nodeArena) depth(id uuid.UUID) int {
	return len(a.ancestors(id))
}

// height is the depth of the deepest descendant relative to id (0 for a leaf).
func (a *nodeArena) height(id uuid.UUID) int {
	type item struct {
		id    uuid.UUID
		level int
	}
	maxLevel := 0
	seen := map[uuid.UUID]bool{}
	stack := []item{{id: id}}
	for len(stack) > 0 {
		it := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if seen[it.id] {
			continue
		}
		seen[it.id] = true
		if it.level > maxLevel {
			maxLevel = it.level
		}
		for _, c := range a.children[it.id] {
			stack = append(stack, item{id: c.ID, level: it.level + 1})
		}
	}
	return maxLevel
}

// isDescendant reports whether candidate sits somewhere below ancestor.
func (a *nodeArena) isDescendant(candidate, ancestor uuid.UUID) bool {
	for _, n := range a.ancestors(candidate) {
		if n.ID == ancestor {
			return true
		}
	}
	return false
}

func nodeIDs(nodes []*types.CurriculumNode) []uuid.UUID {
	out := make([]uuid.UUID, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, n.ID)
	}
	return out
}
