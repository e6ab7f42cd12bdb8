package learning

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/neurobridge-curriculum/internal/domain"
	"github.com/yungbote/neurobridge-curriculum/internal/platform/dbctx"
	"github.com/yungbote/neurobridge-curriculum/internal/platform/logger"
)

type LessonRepo interface {
	GetByCourseIDs(dbc dbctx.Context, courseIDs []uuid.UUID) ([]*types.Lesson, error)
}

type lessonRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewLessonRepo(db *gorm.DB, baseLog *logger.Logger) LessonRepo {
	repoLog := baseLog.With("repo", "LessonRepo")
	return &lessonRepo{db: db, log: repoLog}
}

// GetByCourseIDs preloads attachments and orders lessons by course then
// legacy order.
func (r *lessonRepo) GetByCourseIDs(dbc dbctx.Context, courseIDs []uuid.UUID) ([]*types.Lesson, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}

	var results []*types.Lesson
	if len(courseIDs) == 0 {
		return results, nil
	}

	if err := transaction.WithContext(dbc.Ctx).
		Preload("Attachments", attachmentOrder).
		Where("course_id IN ?", courseIDs).
		Order(legacyOrder()).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func attachmentOrder(db *gorm.DB) *gorm.DB {
	return db.Order("created_at ASC, id ASC")
}
