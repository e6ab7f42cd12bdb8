package curriculum

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/yungbote/neurobridge-curriculum/internal/domain"
	domainerr "github.com/yungbote/neurobridge-curriculum/internal/pkg/errors"
	"github.com/yungbote/neurobridge-curriculum/internal/platform/dbctx"
	"github.com/yungbote/neurobridge-curriculum/internal/platform/logger"
)

const deleteChunkSize = 500

type CurriculumNodeRepo interface {
	Create(dbc dbctx.Context, rows []*types.CurriculumNode) ([]*types.CurriculumNode, error)

	GetByIDs(dbc dbctx.Context, ids []uuid.UUID) ([]*types.CurriculumNode, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.CurriculumNode, error)
	GetByCourseIDs(dbc dbctx.Context, courseIDs []uuid.UUID) ([]*types.CurriculumNode, error)
	GetRootNodes(dbc dbctx.Context, courseID uuid.UUID) ([]*types.CurriculumNode, error)
	GetChildren(dbc dbctx.Context, nodeID uuid.UUID) ([]*types.CurriculumNode, error)
	GetTreeForCourse(dbc dbctx.Context, courseID uuid.UUID) ([]*types.CurriculumNode, error)
	GetSubtree(dbc dbctx.Context, nodeID uuid.UUID) ([]*types.CurriculumNode, error)
	GetAncestors(dbc dbctx.Context, nodeID uuid.UUID) ([]*types.CurriculumNode, error)
	Depth(dbc dbctx.Context, nodeID uuid.UUID) (int, error)
	FindByLegacyMarker(dbc dbctx.Context, courseID uuid.UUID, key, value string) (*types.CurriculumNode, error)
	CountByCourseID(dbc dbctx.Context, courseID uuid.UUID) (int64, error)

	MoveNode(dbc dbctx.Context, nodeID uuid.UUID, newParentID *uuid.UUID) (bool, error)
	ReorderSiblings(dbc dbctx.Context, orderedIDs []uuid.UUID) error
	Update(dbc dbctx.Context, row *types.CurriculumNode) error
	UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error

	SoftDeleteByIDs(dbc dbctx.Context, ids []uuid.UUID) error
	ForceDelete(dbc dbctx.Context, nodeID uuid.UUID) (int64, error)
	FullDeleteAll(dbc dbctx.Context) (int64, error)
}

type curriculumNodeRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewCurriculumNodeRepo(db *gorm.DB, baseLog *logger.Logger) CurriculumNodeRepo {
	return &curriculumNodeRepo{db: db, log: baseLog.With("repo", "CurriculumNodeRepo")}
}

// Create inserts rows in order, so a row may name an earlier row of the same
// batch as its parent. Every row is checked against the course blueprint
// before it is written; the batch is all-or-nothing.
func (r *curriculumNodeRepo) Create(dbc dbctx.Context, rows []*types.CurriculumNode) ([]*types.CurriculumNode, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if len(rows) == 0 {
		return []*types.CurriculumNode{}, nil
	}
	blueprints := map[uuid.UUID]*types.AcademicBlueprint{}
	err := t.WithContext(dbc.Ctx).Transaction(func(tx *gorm.DB) error {
		for _, row := range rows {
			if row == nil {
				continue
			}
			bp, ok := blueprints[row.CourseID]
			if !ok {
				var err error
				bp, err = blueprintForCourse(tx, row.CourseID)
				if err != nil {
					return err
				}
				blueprints[row.CourseID] = bp
			}
			if err := checkNodeType(bp, row.NodeType); err != nil {
				return err
			}
			depth := 0
			if row.ParentID != nil {
				parent, err := liveNode(tx, *row.ParentID)
				if err != nil {
					return err
				}
				if parent == nil {
					return domainerr.InvalidArgument("CurriculumNodeRepo.Create", "Parent node %s does not exist", *row.ParentID)
				}
				if parent.CourseID != row.CourseID {
					return domainerr.InvalidArgument("CurriculumNodeRepo.Create", "Parent node %s belongs to a different course", parent.ID)
				}
				d, err := chainDepth(tx, parent.ID)
				if err != nil {
					return err
				}
				depth = d + 1
			}
			if bp != nil && depth > bp.MaxDepth() {
				return domainerr.New(domainerr.CodeMaxDepthExceeded, "CurriculumNodeRepo.Create",
					"Node depth %d exceeds the maximum depth %d allowed by blueprint %q", depth, bp.MaxDepth(), bp.Name)
			}
			if err := tx.Create(row).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *curriculumNodeRepo) GetByIDs(dbc dbctx.Context, ids []uuid.UUID) ([]*types.CurriculumNode, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var out []*types.CurriculumNode
	if len(ids) == 0 {
		return out, nil
	}
	if err := t.WithContext(dbc.Ctx).Where("id IN ?", ids).Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *curriculumNodeRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.CurriculumNode, error) {
	if id == uuid.Nil {
		return nil, nil
	}
	rows, err := r.GetByIDs(dbc, []uuid.UUID{id})
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0], nil
}

func (r *curriculumNodeRepo) GetByCourseIDs(dbc dbctx.Context, courseIDs []uuid.UUID) ([]*types.CurriculumNode, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var out []*types.CurriculumNode
	if len(courseIDs) == 0 {
		return out, nil
	}
	if err := t.WithContext(dbc.Ctx).
		Where("course_id IN ?", courseIDs).
		Order("course_id ASC, position ASC, created_at ASC, id ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *curriculumNodeRepo) GetRootNodes(dbc dbctx.Context, courseID uuid.UUID) ([]*types.CurriculumNode, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var out []*types.CurriculumNode
	if courseID == uuid.Nil {
		return out, nil
	}
	if err := t.WithContext(dbc.Ctx).
		Where("course_id = ? AND parent_id IS NULL", courseID).
		Order("position ASC, created_at ASC, id ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *curriculumNodeRepo) GetChildren(dbc dbctx.Context, nodeID uuid.UUID) ([]*types.CurriculumNode, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var out []*types.CurriculumNode
	if nodeID == uuid.Nil {
		return out, nil
	}
	if err := t.WithContext(dbc.Ctx).
		Where("parent_id = ?", nodeID).
		Order("position ASC, created_at ASC, id ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// GetTreeForCourse returns every live node of the course in depth-first
// pre-order. Nodes whose parent was soft-deleted surface as extra roots after
// the real ones.
func (r *curriculumNodeRepo) GetTreeForCourse(dbc dbctx.Context, courseID uuid.UUID) ([]*types.CurriculumNode, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if courseID == uuid.Nil {
		return []*types.CurriculumNode{}, nil
	}
	arena, err := loadArena(t.WithContext(dbc.Ctx), courseID, false)
	if err != nil {
		return nil, err
	}
	return arena.preorder(arena.roots), nil
}

func (r *curriculumNodeRepo) GetSubtree(dbc dbctx.Context, nodeID uuid.UUID) ([]*types.CurriculumNode, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	tx := t.WithContext(dbc.Ctx)
	node, err := liveNode(tx, nodeID)
	if err != nil {
		return nil, err
	}
	if node == nil {
		return nil, domainerr.NotFound("CurriculumNodeRepo.GetSubtree", "Curriculum node %s not found", nodeID)
	}
	arena, err := loadArena(tx, node.CourseID, false)
	if err != nil {
		return nil, err
	}
	return arena.subtree(nodeID), nil
}

func (r *curriculumNodeRepo) GetAncestors(dbc dbctx.Context, nodeID uuid.UUID) ([]*types.CurriculumNode, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	tx := t.WithContext(dbc.Ctx)
	node, err := liveNode(tx, nodeID)
	if err != nil {
		return nil, err
	}
	if node == nil {
		return nil, domainerr.NotFound("CurriculumNodeRepo.GetAncestors", "Curriculum node %s not found", nodeID)
	}
	arena, err := loadArena(tx, node.CourseID, false)
	if err != nil {
		return nil, err
	}
	return arena.ancestors(nodeID), nil
}

// Depth counts every ancestor row, soft-deleted ones included.
func (r *curriculumNodeRepo) Depth(dbc dbctx.Context, nodeID uuid.UUID) (int, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	return chainDepth(t.WithContext(dbc.Ctx), nodeID)
}

// FindByLegacyMarker finds the node of a course whose properties[key] equals value.
func (r *curriculumNodeRepo) FindByLegacyMarker(dbc dbctx.Context, courseID uuid.UUID, key, value string) (*types.CurriculumNode, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if courseID == uuid.Nil || strings.TrimSpace(key) == "" || value == "" {
		return nil, nil
	}
	var row types.CurriculumNode
	err := t.WithContext(dbc.Ctx).
		Where("course_id = ?", courseID).
		Where(datatypes.JSONQuery("properties").Equals(value, key)).
		Order("created_at ASC, id ASC").
		Limit(1).
		Find(&row).Error
	if err != nil {
		return nil, err
	}
	if row.ID == uuid.Nil {
		return nil, nil
	}
	return &row, nil
}

func (r *curriculumNodeRepo) CountByCourseID(dbc dbctx.Context, courseID uuid.UUID) (int64, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var n int64
	if courseID == uuid.Nil {
		return 0, nil
	}
	if err := t.WithContext(dbc.Ctx).Model(&types.CurriculumNode{}).Where("course_id = ?", courseID).Count(&n).Error; err != nil {
		return 0, err
	}
	return n, nil
}

// MoveNode re-parents nodeID (nil makes it a root). The rows are re-read and,
// on postgres, locked inside the write transaction, and the depth of the
// deepest node of the moved subtree is checked before parent_id is written.
func (r *curriculumNodeRepo) MoveNode(dbc dbctx.Context, nodeID uuid.UUID, newParentID *uuid.UUID) (bool, error) {
	const op = "CurriculumNodeRepo.MoveNode"
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	err := t.WithContext(dbc.Ctx).Transaction(func(tx *gorm.DB) error {
		node, err := liveNode(tx, nodeID)
		if err != nil {
			return err
		}
		if node == nil {
			return domainerr.NotFound(op, "Curriculum node %s not found", nodeID)
		}
		arena, err := loadArena(lockRows(tx), node.CourseID, true)
		if err != nil {
			return err
		}

		newDepth := 0
		var parentValue interface{}
		if newParentID != nil {
			if *newParentID == nodeID {
				return domainerr.InvalidArgument(op, "A node cannot be its own parent")
			}
			parent, err := liveNode(tx, *newParentID)
			if err != nil {
				return err
			}
			if parent == nil {
				return domainerr.NotFound(op, "Parent node %s not found", *newParentID)
			}
			if parent.CourseID != node.CourseID {
				return domainerr.InvalidArgument(op, "Parent node %s belongs to a different course", parent.ID)
			}
			if arena.isDescendant(parent.ID, nodeID) {
				return domainerr.InvalidArgument(op, "Cannot move node %s under its own descendant %s", nodeID, parent.ID)
			}
			newDepth = arena.depth(parent.ID) + 1
			parentValue = parent.ID
		}

		bp, err := blueprintForCourse(tx, node.CourseID)
		if err != nil {
			return err
		}
		if bp != nil {
			deepest := newDepth + arena.height(nodeID)
			if deepest > bp.MaxDepth() {
				return domainerr.New(domainerr.CodeMaxDepthExceeded, op,
					"Moving node %s would place nodes at depth %d; blueprint %q allows at most %d", nodeID, deepest, bp.Name, bp.MaxDepth())
			}
		}

		return tx.Model(&types.CurriculumNode{}).
			Where("id = ?", nodeID).
			Updates(map[string]interface{}{
				"parent_id":  parentValue,
				"updated_at": time.Now().UTC(),
			}).Error
	})
	if err != nil {
		return false, err
	}
	return true, nil
}

// ReorderSiblings sets position = index for each id in one UPDATE. The ids
// must be distinct live siblings; parentage is untouched.
func (r *curriculumNodeRepo) ReorderSiblings(dbc dbctx.Context, orderedIDs []uuid.UUID) error {
	const op = "CurriculumNodeRepo.ReorderSiblings"
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if len(orderedIDs) == 0 {
		return nil
	}
	seen := make(map[uuid.UUID]bool, len(orderedIDs))
	for _, id := range orderedIDs {
		if seen[id] {
			return domainerr.InvalidArgument(op, "Node %s appears more than once", id)
		}
		seen[id] = true
	}
	return t.WithContext(dbc.Ctx).Transaction(func(tx *gorm.DB) error {
		var rows []*types.CurriculumNode
		if err := lockRows(tx).Where("id IN ?", orderedIDs).Find(&rows).Error; err != nil {
			return err
		}
		if len(rows) != len(orderedIDs) {
			return domainerr.NotFound(op, "Expected %d nodes, found %d", len(orderedIDs), len(rows))
		}
		first := rows[0]
		for _, n := range rows[1:] {
			if n.CourseID != first.CourseID || !sameParent(n.ParentID, first.ParentID) {
				return domainerr.InvalidArgument(op, "Nodes %s and %s are not siblings", first.ID, n.ID)
			}
		}

		var b strings.Builder
		args := make([]interface{}, 0, len(orderedIDs)*2)
		b.WriteString("CASE id")
		for i, id := range orderedIDs {
			b.WriteString(" WHEN ? THEN CAST(? AS INTEGER)")
			args = append(args, id, i)
		}
		b.WriteString(" END")
		return tx.Model(&types.CurriculumNode{}).
			Where("id IN ?", orderedIDs).
			Updates(map[string]interface{}{
				"position":   gorm.Expr(b.String(), args...),
				"updated_at": time.Now().UTC(),
			}).Error
	})
}

// Update saves content fields. Tree placement changes go through MoveNode, so
// a changed parent_id or course_id is rejected here.
func (r *curriculumNodeRepo) Update(dbc dbctx.Context, row *types.CurriculumNode) error {
	const op = "CurriculumNodeRepo.Update"
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if row == nil || row.ID == uuid.Nil {
		return nil
	}
	return t.WithContext(dbc.Ctx).Transaction(func(tx *gorm.DB) error {
		stored, err := liveNode(tx, row.ID)
		if err != nil {
			return err
		}
		if stored == nil {
			return domainerr.NotFound(op, "Curriculum node %s not found", row.ID)
		}
		if stored.CourseID != row.CourseID || !sameParent(stored.ParentID, row.ParentID) {
			return domainerr.InvalidArgument(op, "Use MoveNode to change the placement of node %s", row.ID)
		}
		if !strings.EqualFold(stored.NodeType, row.NodeType) {
			bp, err := blueprintForCourse(tx, row.CourseID)
			if err != nil {
				return err
			}
			if err := checkNodeType(bp, row.NodeType); err != nil {
				return err
			}
		}
		return tx.Save(row).Error
	})
}

var placementColumns = []string{"parent_id", "course_id", "node_type"}

func (r *curriculumNodeRepo) UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if id == uuid.Nil {
		return nil
	}
	if updates == nil {
		updates = map[string]interface{}{}
	}
	for _, col := range placementColumns {
		if _, ok := updates[col]; ok {
			return domainerr.InvalidArgument("CurriculumNodeRepo.UpdateFields", "Column %s cannot be updated directly", col)
		}
	}
	if _, ok := updates["updated_at"]; !ok {
		updates["updated_at"] = time.Now().UTC()
	}
	return t.WithContext(dbc.Ctx).
		Model(&types.CurriculumNode{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *curriculumNodeRepo) SoftDeleteByIDs(dbc dbctx.Context, ids []uuid.UUID) error {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if len(ids) == 0 {
		return nil
	}
	return t.WithContext(dbc.Ctx).Where("id IN ?", ids).Delete(&types.CurriculumNode{}).Error
}

// ForceDelete hard-deletes nodeID and its whole subtree, soft-deleted
// descendants included, in one transaction. It returns the rows removed.
func (r *curriculumNodeRepo) ForceDelete(dbc dbctx.Context, nodeID uuid.UUID) (int64, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var removed int64
	err := t.WithContext(dbc.Ctx).Transaction(func(tx *gorm.DB) error {
		var node types.CurriculumNode
		if err := tx.Unscoped().Where("id = ?", nodeID).Limit(1).Find(&node).Error; err != nil {
			return err
		}
		if node.ID == uuid.Nil {
			return domainerr.NotFound("CurriculumNodeRepo.ForceDelete", "Curriculum node %s not found", nodeID)
		}
		arena, err := loadArena(lockRows(tx), node.CourseID, true)
		if err != nil {
			return err
		}
		ids := nodeIDs(arena.subtree(nodeID))
		for start := 0; start < len(ids); start += deleteChunkSize {
			end := start + deleteChunkSize
			if end > len(ids) {
				end = len(ids)
			}
			res := tx.Unscoped().Where("id IN ?", ids[start:end]).Delete(&types.CurriculumNode{})
			if res.Error != nil {
				return res.Error
			}
			removed += res.RowsAffected
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	r.log.Debug("Force deleted curriculum subtree", "node_id", nodeID, "rows", removed)
	return removed, nil
}

// FullDeleteAll purges every node, soft-deleted ones included.
func (r *curriculumNodeRepo) FullDeleteAll(dbc dbctx.Context) (int64, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	res := t.WithContext(dbc.Ctx).
		Session(&gorm.Session{AllowGlobalUpdate: true}).
		Unscoped().
		Delete(&types.CurriculumNode{})
	return res.RowsAffected, res.Error
}

func liveNode(tx *gorm.DB, id uuid.UUID) (*types.CurriculumNode, error) {
	if id == uuid.Nil {
		return nil, nil
	}
	var row types.CurriculumNode
	if err := tx.Where("id = ?", id).Limit(1).Find(&row).Error; err != nil {
		return nil, err
	}
	if row.ID == uuid.Nil {
		return nil, nil
	}
	return &row, nil
}

func loadArena(tx *gorm.DB, courseID uuid.UUID, withDeleted bool) (*nodeArena, error) {
	q := tx
	if withDeleted {
		q = q.Unscoped()
	}
	var rows []*types.CurriculumNode
	if err := q.Where("course_id = ?", courseID).Find(&rows).Error; err != nil {
		return nil, err
	}
	return newNodeArena(rows), nil
}

// chainDepth walks parent_id upward one row at a time. A revisited id means
// the stored tree has a cycle.
func chainDepth(tx *gorm.DB, id uuid.UUID) (int, error) {
	type link struct {
		ID       uuid.UUID
		ParentID *uuid.UUID
	}
	depth := 0
	seen := map[uuid.UUID]bool{}
	cur := id
	for {
		if seen[cur] {
			return 0, fmt.Errorf("curriculum node %s: parent cycle detected", id)
		}
		seen[cur] = true
		var l link
		if err := tx.Unscoped().Model(&types.CurriculumNode{}).
			Select("id, parent_id").
			Where("id = ?", cur).
			Limit(1).
			Scan(&l).Error; err != nil {
			return 0, err
		}
		if l.ID == uuid.Nil || l.ParentID == nil {
			return depth, nil
		}
		depth++
		cur = *l.ParentID
	}
}

// blueprintForCourse returns nil when the course is not governed by a blueprint.
func blueprintForCourse(tx *gorm.DB, courseID uuid.UUID) (*types.AcademicBlueprint, error) {
	var course types.Course
	if err := tx.Where("id = ?", courseID).Limit(1).Find(&course).Error; err != nil {
		return nil, err
	}
	if course.ID == uuid.Nil {
		return nil, domainerr.NotFound("CurriculumNodeRepo", "Course %s not found", courseID)
	}
	if course.BlueprintID == nil {
		return nil, nil
	}
	var bp types.AcademicBlueprint
	if err := tx.Unscoped().Where("id = ?", *course.BlueprintID).Limit(1).Find(&bp).Error; err != nil {
		return nil, err
	}
	if bp.ID == uuid.Nil {
		return nil, nil
	}
	return &bp, nil
}

func checkNodeType(bp *types.AcademicBlueprint, nodeType string) error {
	if bp == nil || bp.HasLevel(nodeType) {
		return nil
	}
	return domainerr.New(domainerr.CodeInvalidNodeType, "CurriculumNodeRepo",
		"Node type %q is not allowed by blueprint %q; expected one of %s", nodeType, bp.Name, strings.Join(bp.Levels(), ", "))
}

func lockRows(tx *gorm.DB) *gorm.DB {
	if tx.Dialector.Name() == "postgres" {
		return tx.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return tx
}

func sameParent(a, b *uuid.UUID) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
