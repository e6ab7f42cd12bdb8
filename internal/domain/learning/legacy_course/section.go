package legacy_course

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type CourseSection struct {
	ID              uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	CourseID        uuid.UUID  `gorm:"type:uuid;not null;index" json:"course_id"`
	Title           string     `gorm:"column:title;not null" json:"title"`
	Description     string     `gorm:"column:description;type:text" json:"description"`
	Order           int        `gorm:"column:order;not null;default:0" json:"order"`
	UnlockDate      *time.Time `gorm:"column:unlock_date" json:"unlock_date,omitempty"`
	UnlockAfterDays *int       `gorm:"column:unlock_after_days" json:"unlock_after_days,omitempty"`
	IsPublished     bool       `gorm:"column:is_published;not null;default:false" json:"is_published"`

	CreatedAt time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (CourseSection) TableName() string { return "course_section" }

func (s *CourseSection) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}
