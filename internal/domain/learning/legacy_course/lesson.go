package legacy_course

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Lesson struct {
	ID              uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	CourseID        uuid.UUID      `gorm:"type:uuid;not null;index" json:"course_id"`
	CourseSectionID *uuid.UUID     `gorm:"type:uuid;column:course_section_id;index" json:"course_section_id,omitempty"`
	Section         *CourseSection `gorm:"foreignKey:CourseSectionID;references:ID" json:"section,omitempty"`

	Title            string `gorm:"column:title;not null" json:"title"`
	Slug             string `gorm:"column:slug" json:"slug"`
	ShortDescription string `gorm:"column:short_description;type:text" json:"short_description"`
	Content          string `gorm:"column:content;type:text" json:"content"`
	LessonType       string `gorm:"column:lesson_type;not null;default:'text'" json:"lesson_type"`
	LessonDuration   string `gorm:"column:lesson_duration" json:"lesson_duration"`
	IsPreviewAllowed bool   `gorm:"column:is_preview_allowed;not null;default:false" json:"is_preview_allowed"`

	VideoURL        string `gorm:"column:video_url" json:"video_url"`
	VideoSource     string `gorm:"column:video_source" json:"video_source"`
	VideoUploadPath string `gorm:"column:video_upload_path" json:"video_upload_path"`
	VideoEmbedCode  string `gorm:"column:video_embed_code;type:text" json:"video_embed_code"`
	EnablePInP      bool   `gorm:"column:enable_p_in_p;not null;default:false" json:"enable_p_in_p"`
	AutoPlay        bool   `gorm:"column:auto_play;not null;default:false" json:"auto_play"`
	ShowControls    bool   `gorm:"column:show_controls;not null;default:false" json:"show_controls"`

	StreamURL       string     `gorm:"column:stream_url" json:"stream_url"`
	StreamPassword  string     `gorm:"column:stream_password" json:"stream_password"`
	StreamStartTime *time.Time `gorm:"column:stream_start_time" json:"stream_start_time,omitempty"`
	StreamDetails   string     `gorm:"column:stream_details;type:text" json:"stream_details"`
	IsRecorded      bool       `gorm:"column:is_recorded;not null;default:false" json:"is_recorded"`
	RecordingURL    string     `gorm:"column:recording_url" json:"recording_url"`

	Order             int  `gorm:"column:order;not null;default:0" json:"order"`
	IsPublished       bool `gorm:"column:is_published;not null;default:false" json:"is_published"`
	RequireCompletion bool `gorm:"column:require_completion;not null;default:false" json:"require_completion"`
	EnableDownload    bool `gorm:"column:enable_download;not null;default:false" json:"enable_download"`
	AllowDownload     bool `gorm:"column:allow_download;not null;default:false" json:"allow_download"`

	Attachments []LessonAttachment `gorm:"foreignKey:LessonID;references:ID" json:"attachments,omitempty"`

	CreatedAt time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (Lesson) TableName() string { return "lesson" }

func (l *Lesson) BeforeCreate(tx *gorm.DB) error {
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	return nil
}

type LessonAttachment struct {
	ID       uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	LessonID uuid.UUID `gorm:"type:uuid;not null;index" json:"lesson_id"`
	Name     string    `gorm:"column:name;not null" json:"name"`
	URL      string    `gorm:"column:url;not null" json:"url"`
	Type     string    `gorm:"column:type" json:"type"`

	CreatedAt time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (LessonAttachment) TableName() string { return "lesson_attachment" }

func (a *LessonAttachment) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}
