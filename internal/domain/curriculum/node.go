package curriculum

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type CurriculumNode struct {
	ID       uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	CourseID uuid.UUID  `gorm:"type:uuid;not null;index:idx_curriculum_node_siblings,priority:1" json:"course_id"`
	ParentID *uuid.UUID `gorm:"type:uuid;column:parent_id;index:idx_curriculum_node_siblings,priority:2" json:"parent_id,omitempty"`

	NodeType    string `gorm:"column:node_type;not null;index" json:"node_type"`
	Title       string `gorm:"column:title;not null" json:"title"`
	Code        string `gorm:"column:code" json:"code,omitempty"`
	Description string `gorm:"column:description;type:text" json:"description,omitempty"`

	Properties      datatypes.JSON `gorm:"column:properties" json:"properties,omitempty"`
	CompletionRules datatypes.JSON `gorm:"column:completion_rules" json:"completion_rules,omitempty"`

	Position    int  `gorm:"column:position;not null;default:0;index:idx_curriculum_node_siblings,priority:3" json:"position"`
	IsPublished bool `gorm:"column:is_published;not null;default:false" json:"is_published"`

	CreatedAt time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (CurriculumNode) TableName() string { return "curriculum_nodes" }

func (n *CurriculumNode) BeforeCreate(tx *gorm.DB) error {
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	return nil
}

func (n *CurriculumNode) IsRoot() bool { return n.ParentID == nil }

// PropertyMap decodes properties; null, empty or non-object JSON yields an
// empty map.
func (n *CurriculumNode) PropertyMap() map[string]any {
	return jsonObject(n.Properties)
}

func (n *CurriculumNode) CompletionRuleMap() map[string]any {
	return jsonObject(n.CompletionRules)
}

func jsonObject(raw datatypes.JSON) map[string]any {
	out := map[string]any{}
	if len(raw) == 0 {
		return out
	}
	if err := json.Unmarshal(raw, &out); err != nil || out == nil {
		return map[string]any{}
	}
	return out
}
