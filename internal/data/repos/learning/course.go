package learning

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/neurobridge-curriculum/internal/domain"
	"github.com/yungbote/neurobridge-curriculum/internal/platform/dbctx"
	"github.com/yungbote/neurobridge-curriculum/internal/platform/logger"
)

type CourseRepo interface {
	GetByIDs(dbc dbctx.Context, courseIDs []uuid.UUID) ([]*types.Course, error)
	GetByID(dbc dbctx.Context, courseID uuid.UUID) (*types.Course, error)
	GetByBlueprintIDs(dbc dbctx.Context, blueprintIDs []uuid.UUID) ([]*types.Course, error)
	ListAll(dbc dbctx.Context) ([]*types.Course, error)

	AssignBlueprint(dbc dbctx.Context, courseIDs []uuid.UUID, blueprintID *uuid.UUID) error
	ClearAllBlueprints(dbc dbctx.Context) (int64, error)
}

type courseRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewCourseRepo(db *gorm.DB, baseLog *logger.Logger) CourseRepo {
	repoLog := baseLog.With("repo", "CourseRepo")
	return &courseRepo{db: db, log: repoLog}
}

func (r *courseRepo) GetByIDs(dbc dbctx.Context, courseIDs []uuid.UUID) ([]*types.Course, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}

	var results []*types.Course
	if len(courseIDs) == 0 {
		return results, nil
	}

	if err := transaction.WithContext(dbc.Ctx).
		Where("id IN ?", courseIDs).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *courseRepo) GetByID(dbc dbctx.Context, courseID uuid.UUID) (*types.Course, error) {
	if courseID == uuid.Nil {
		return nil, nil
	}
	rows, err := r.GetByIDs(dbc, []uuid.UUID{courseID})
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0], nil
}

func (r *courseRepo) GetByBlueprintIDs(dbc dbctx.Context, blueprintIDs []uuid.UUID) ([]*types.Course, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}

	var results []*types.Course
	if len(blueprintIDs) == 0 {
		return results, nil
	}

	if err := transaction.WithContext(dbc.Ctx).
		Where("blueprint_id IN ?", blueprintIDs).
		Order("position ASC, created_at ASC, id ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *courseRepo) ListAll(dbc dbctx.Context) ([]*types.Course, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}

	var results []*types.Course
	if err := transaction.WithContext(dbc.Ctx).
		Order("position ASC, created_at ASC, id ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

// AssignBlueprint points the courses at blueprintID; nil detaches them.
func (r *courseRepo) AssignBlueprint(dbc dbctx.Context, courseIDs []uuid.UUID, blueprintID *uuid.UUID) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}

	if len(courseIDs) == 0 {
		return nil
	}

	var value interface{}
	if blueprintID != nil {
		value = *blueprintID
	}
	return transaction.WithContext(dbc.Ctx).
		Model(&types.Course{}).
		Where("id IN ?", courseIDs).
		Updates(map[string]interface{}{
			"blueprint_id": value,
			"updated_at":   time.Now().UTC(),
		}).Error
}

// ClearAllBlueprints detaches every course, soft-deleted ones included.
func (r *courseRepo) ClearAllBlueprints(dbc dbctx.Context) (int64, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}

	res := transaction.WithContext(dbc.Ctx).
		Unscoped().
		Model(&types.Course{}).
		Where("blueprint_id IS NOT NULL").
		Update("blueprint_id", nil)
	return res.RowsAffected, res.Error
}
