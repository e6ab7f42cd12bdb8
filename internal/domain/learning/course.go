package learning

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Course is the program that owns a curriculum tree. BlueprintID is nil until
// the course is governed by an academic blueprint.
type Course struct {
	ID          uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	Title       string     `gorm:"column:title;not null" json:"title"`
	Slug        string     `gorm:"column:slug;index" json:"slug"`
	Description string     `gorm:"column:description;type:text" json:"description"`
	BlueprintID *uuid.UUID `gorm:"type:uuid;column:blueprint_id;index" json:"blueprint_id,omitempty"`

	ThumbnailPath    string         `gorm:"column:thumbnail_path" json:"thumbnail_path"`
	Price            float64        `gorm:"column:price;not null;default:0" json:"price"`
	PricingType      string         `gorm:"column:pricing_type" json:"pricing_type"`
	Level            string         `gorm:"column:level" json:"level"`
	Language         string         `gorm:"column:language" json:"language"`
	Requirements     datatypes.JSON `gorm:"column:requirements" json:"requirements,omitempty"`
	WhatYouWillLearn datatypes.JSON `gorm:"column:what_you_will_learn" json:"what_you_will_learn,omitempty"`
	Tags             datatypes.JSON `gorm:"column:tags" json:"tags,omitempty"`

	DurationInMinutes int        `gorm:"column:duration_in_minutes;not null;default:0" json:"duration_in_minutes"`
	IsFeatured        bool       `gorm:"column:is_featured;not null;default:false" json:"is_featured"`
	CategoryID        *uuid.UUID `gorm:"type:uuid;column:category_id;index" json:"category_id,omitempty"`
	SubjectID         *uuid.UUID `gorm:"type:uuid;column:subject_id;index" json:"subject_id,omitempty"`
	GradeLevelID      *uuid.UUID `gorm:"type:uuid;column:grade_level_id;index" json:"grade_level_id,omitempty"`

	Position    int  `gorm:"column:position;not null;default:0" json:"position"`
	IsPublished bool `gorm:"column:is_published;not null;default:false" json:"is_published"`

	CreatedAt time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (Course) TableName() string { return "course" }

func (c *Course) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}
