package learning

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/yungbote/neurobridge-curriculum/internal/domain"
	"github.com/yungbote/neurobridge-curriculum/internal/platform/dbctx"
	"github.com/yungbote/neurobridge-curriculum/internal/platform/logger"
)

type CourseSectionRepo interface {
	GetByCourseIDs(dbc dbctx.Context, courseIDs []uuid.UUID) ([]*types.CourseSection, error)
}

type courseSectionRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewCourseSectionRepo(db *gorm.DB, baseLog *logger.Logger) CourseSectionRepo {
	repoLog := baseLog.With("repo", "CourseSectionRepo")
	return &courseSectionRepo{db: db, log: repoLog}
}

// GetByCourseIDs returns sections grouped by course, each course's sections in
// their legacy order.
func (r *courseSectionRepo) GetByCourseIDs(dbc dbctx.Context, courseIDs []uuid.UUID) ([]*types.CourseSection, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}

	var results []*types.CourseSection
	if len(courseIDs) == 0 {
		return results, nil
	}

	if err := transaction.WithContext(dbc.Ctx).
		Where("course_id IN ?", courseIDs).
		Order(legacyOrder()).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

// legacyOrder sorts by course then the reserved-word "order" column, quoted by
// the dialect.
func legacyOrder() clause.OrderBy {
	return clause.OrderBy{Columns: []clause.OrderByColumn{
		{Column: clause.Column{Name: "course_id"}},
		{Column: clause.Column{Name: "order"}},
		{Column: clause.Column{Name: "created_at"}},
		{Column: clause.Column{Name: "id"}},
	}}
}
