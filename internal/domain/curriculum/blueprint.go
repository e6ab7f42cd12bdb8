package curriculum

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/yungbote/neurobridge-curriculum/internal/modules/curriculum/validation"
	domainerr "github.com/yungbote/neurobridge-curriculum/internal/pkg/errors"
)

// UnknownLevelLabel is returned by LabelForDepth for out-of-range depths.
const UnknownLevelLabel = "Unknown"

type AcademicBlueprint struct {
	ID                  uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	Name                string         `gorm:"column:name;not null;uniqueIndex" json:"name"`
	Description         string         `gorm:"column:description;type:text" json:"description"`
	HierarchyStructure  datatypes.JSON `gorm:"column:hierarchy_structure;not null" json:"hierarchy_structure"`
	GradingLogic        datatypes.JSON `gorm:"column:grading_logic;not null" json:"grading_logic"`
	ProgressionRules    datatypes.JSON `gorm:"column:progression_rules" json:"progression_rules,omitempty"`
	GamificationEnabled bool           `gorm:"column:gamification_enabled;not null;default:false" json:"gamification_enabled"`
	CertificateEnabled  bool           `gorm:"column:certificate_enabled;not null;default:false" json:"certificate_enabled"`
	CreatedAt           time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt           time.Time      `gorm:"not null" json:"updated_at"`
	DeletedAt           gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (AcademicBlueprint) TableName() string { return "academic_blueprints" }

// BeforeSave runs for both inserts and full-row updates, so an invalid
// blueprint never reaches the table.
func (b *AcademicBlueprint) BeforeSave(tx *gorm.DB) error {
	b.Name = strings.TrimSpace(b.Name)
	return b.Validate()
}

func (b *AcademicBlueprint) BeforeCreate(tx *gorm.DB) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	return nil
}

// Validate requires a name, then decodes the JSON columns and runs the
// hierarchy and grading rules.
func (b *AcademicBlueprint) Validate() error {
	if strings.TrimSpace(b.Name) == "" {
		return domainerr.InvalidArgument("AcademicBlueprint.Validate", "Blueprint name is required")
	}
	if err := validation.ValidateHierarchyStructure(decodeJSON(b.HierarchyStructure)); err != nil {
		return err
	}
	return validation.ValidateGradingLogic(decodeJSON(b.GradingLogic))
}

// Levels returns the hierarchy labels; malformed JSON yields nil.
func (b *AcademicBlueprint) Levels() []string {
	if b == nil || len(b.HierarchyStructure) == 0 {
		return nil
	}
	var levels []string
	if err := json.Unmarshal(b.HierarchyStructure, &levels); err != nil {
		return nil
	}
	return levels
}

func (b *AcademicBlueprint) HierarchyDepth() int {
	return len(b.Levels())
}

// MaxDepth is the deepest legal node depth (roots are depth 0).
func (b *AcademicBlueprint) MaxDepth() int {
	return b.HierarchyDepth() - 1
}

func (b *AcademicBlueprint) LabelForDepth(depth int) string {
	levels := b.Levels()
	if depth < 0 || depth >= len(levels) {
		return UnknownLevelLabel
	}
	return levels[depth]
}

// HasLevel matches nodeType against the hierarchy labels case-insensitively.
func (b *AcademicBlueprint) HasLevel(nodeType string) bool {
	_, ok := b.levelSet()[strings.ToLower(strings.TrimSpace(nodeType))]
	return ok
}

func (b *AcademicBlueprint) levelSet() map[string]struct{} {
	levels := b.Levels()
	set := make(map[string]struct{}, len(levels))
	for _, l := range levels {
		set[strings.ToLower(strings.TrimSpace(l))] = struct{}{}
	}
	return set
}

// GradingType returns grading_logic.type, or "" when absent.
func (b *AcademicBlueprint) GradingType() string {
	obj, _ := decodeJSON(b.GradingLogic).(map[string]any)
	t, _ := obj["type"].(string)
	return t
}

// NewAcademicBlueprint encodes the structured fields into their JSON columns.
// progressionRules may be nil.
func NewAcademicBlueprint(name, description string, levels []string, grading map[string]any, progressionRules any) (*AcademicBlueprint, error) {
	hierarchy, err := json.Marshal(levels)
	if err != nil {
		return nil, err
	}
	gradingJSON, err := json.Marshal(grading)
	if err != nil {
		return nil, err
	}
	var progression datatypes.JSON
	if progressionRules != nil {
		raw, err := json.Marshal(progressionRules)
		if err != nil {
			return nil, err
		}
		progression = datatypes.JSON(raw)
	}
	return &AcademicBlueprint{
		Name:               name,
		Description:        description,
		HierarchyStructure: datatypes.JSON(hierarchy),
		GradingLogic:       datatypes.JSON(gradingJSON),
		ProgressionRules:   progression,
	}, nil
}

func decodeJSON(raw datatypes.JSON) any {
	if len(raw) == 0 {
		return nil
	}
	var out any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil
	}
	return out
}
