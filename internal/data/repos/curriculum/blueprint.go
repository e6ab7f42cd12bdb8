package curriculum

import (
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/yungbote/neurobridge-curriculum/internal/domain"
	domainerr "github.com/yungbote/neurobridge-curriculum/internal/pkg/errors"
	"github.com/yungbote/neurobridge-curriculum/internal/platform/dbctx"
	"github.com/yungbote/neurobridge-curriculum/internal/platform/logger"
)

type AcademicBlueprintRepo interface {
	Create(dbc dbctx.Context, rows []*types.AcademicBlueprint) ([]*types.AcademicBlueprint, error)
	FirstOrCreateByName(dbc dbctx.Context, defaults *types.AcademicBlueprint) (*types.AcademicBlueprint, bool, error)

	GetByIDs(dbc dbctx.Context, ids []uuid.UUID) ([]*types.AcademicBlueprint, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.AcademicBlueprint, error)
	GetByName(dbc dbctx.Context, name string) (*types.AcademicBlueprint, error)
	List(dbc dbctx.Context) ([]*types.AcademicBlueprint, error)
	CountCourses(dbc dbctx.Context, id uuid.UUID) (int64, error)

	Update(dbc dbctx.Context, row *types.AcademicBlueprint) error

	SoftDelete(dbc dbctx.Context, id uuid.UUID) error
	ForceDelete(dbc dbctx.Context, id uuid.UUID) error
	FullDeleteByName(dbc dbctx.Context, name string) (int64, error)
}

type academicBlueprintRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewAcademicBlueprintRepo(db *gorm.DB, baseLog *logger.Logger) AcademicBlueprintRepo {
	return &academicBlueprintRepo{db: db, log: baseLog.With("repo", "AcademicBlueprintRepo")}
}

func (r *academicBlueprintRepo) Create(dbc dbctx.Context, rows []*types.AcademicBlueprint) ([]*types.AcademicBlueprint, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if len(rows) == 0 {
		return []*types.AcademicBlueprint{}, nil
	}
	if err := t.WithContext(dbc.Ctx).Create(&rows).Error; err != nil {
		if isUniqueViolation(err) {
			return nil, domainerr.Wrap(domainerr.CodeInvalidArgument, "AcademicBlueprintRepo.Create", err, "A blueprint with this name already exists")
		}
		return nil, err
	}
	return rows, nil
}

// FirstOrCreateByName returns the live blueprint named defaults.Name, inserting
// defaults when none exists. The bool reports whether a row was created.
func (r *academicBlueprintRepo) FirstOrCreateByName(dbc dbctx.Context, defaults *types.AcademicBlueprint) (*types.AcademicBlueprint, bool, error) {
	if defaults == nil || strings.TrimSpace(defaults.Name) == "" {
		return nil, false, domainerr.InvalidArgument("AcademicBlueprintRepo.FirstOrCreateByName", "Blueprint name is required")
	}
	existing, err := r.GetByName(dbc, defaults.Name)
	if err != nil {
		return nil, false, err
	}
	if existing != nil {
		return existing, false, nil
	}
	if _, err := r.Create(dbc, []*types.AcademicBlueprint{defaults}); err != nil {
		return nil, false, err
	}
	return defaults, true, nil
}

func (r *academicBlueprintRepo) GetByIDs(dbc dbctx.Context, ids []uuid.UUID) ([]*types.AcademicBlueprint, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var out []*types.AcademicBlueprint
	if len(ids) == 0 {
		return out, nil
	}
	if err := t.WithContext(dbc.Ctx).Where("id IN ?", ids).Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *academicBlueprintRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.AcademicBlueprint, error) {
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

func (r *academicBlueprintRepo) GetByName(dbc dbctx.Context, name string) (*types.AcademicBlueprint, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, nil
	}
	var row types.AcademicBlueprint
	if err := t.WithContext(dbc.Ctx).Where("name = ?", name).Limit(1).Find(&row).Error; err != nil {
		return nil, err
	}
	if row.ID == uuid.Nil {
		return nil, nil
	}
	return &row, nil
}

func (r *academicBlueprintRepo) List(dbc dbctx.Context) ([]*types.AcademicBlueprint, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var out []*types.AcademicBlueprint
	if err := t.WithContext(dbc.Ctx).Order("name ASC").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *academicBlueprintRepo) CountCourses(dbc dbctx.Context, id uuid.UUID) (int64, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var n int64
	if id == uuid.Nil {
		return 0, nil
	}
	if err := t.WithContext(dbc.Ctx).Model(&types.Course{}).Where("blueprint_id = ?", id).Count(&n).Error; err != nil {
		return 0, err
	}
	return n, nil
}

// Update writes the full row so the BeforeSave validation sees every field.
func (r *academicBlueprintRepo) Update(dbc dbctx.Context, row *types.AcademicBlueprint) error {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if row == nil || row.ID == uuid.Nil {
		return nil
	}
	if err := t.WithContext(dbc.Ctx).Save(row).Error; err != nil {
		if isUniqueViolation(err) {
			return domainerr.Wrap(domainerr.CodeInvalidArgument, "AcademicBlueprintRepo.Update", err, "A blueprint with this name already exists")
		}
		return err
	}
	return nil
}

func (r *academicBlueprintRepo) SoftDelete(dbc dbctx.Context, id uuid.UUID) error {
	return r.guardedDelete(dbc, id, false)
}

func (r *academicBlueprintRepo) ForceDelete(dbc dbctx.Context, id uuid.UUID) error {
	return r.guardedDelete(dbc, id, true)
}

// guardedDelete refuses to remove a blueprint that any course still points at.
// The count and the delete share one transaction; on postgres the blueprint
// row is locked first so a concurrent assignment cannot slip in between.
func (r *academicBlueprintRepo) guardedDelete(dbc dbctx.Context, id uuid.UUID, hard bool) error {
	const op = "AcademicBlueprintRepo.Delete"
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	return t.WithContext(dbc.Ctx).Transaction(func(tx *gorm.DB) error {
		q := tx
		if hard {
			q = q.Unscoped()
		}
		if tx.Dialector.Name() == "postgres" {
			q = q.Clauses(clause.Locking{Strength: "UPDATE"})
		}
		var row types.AcademicBlueprint
		if err := q.Where("id = ?", id).Limit(1).Find(&row).Error; err != nil {
			return err
		}
		if row.ID == uuid.Nil {
			return domainerr.NotFound(op, "Blueprint %s not found", id)
		}

		courses, err := r.CountCourses(dbc.WithTx(tx), id)
		if err != nil {
			return err
		}
		if courses > 0 {
			r.log.Warn("Refusing to delete blueprint in use", "blueprint_id", id, "name", row.Name, "courses", courses)
			return domainerr.New(domainerr.CodeBlueprintInUse, op,
				"Cannot delete blueprint %q: it is assigned to %d course(s)", row.Name, courses)
		}

		del := tx
		if hard {
			del = del.Unscoped()
		}
		return del.Where("id = ?", id).Delete(&types.AcademicBlueprint{}).Error
	})
}

// FullDeleteByName purges the named blueprint, soft-deleted or not, without
// the in-use guard. Only administrative tooling (the legacy rollback) calls it.
func (r *academicBlueprintRepo) FullDeleteByName(dbc dbctx.Context, name string) (int64, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return 0, nil
	}
	res := t.WithContext(dbc.Ctx).Unscoped().Where("name = ?", name).Delete(&types.AcademicBlueprint{})
	return res.RowsAffected, res.Error
}

func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return strings.TrimSpace(pgErr.Code) == "23505"
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") || strings.Contains(msg, "duplicate key")
}
