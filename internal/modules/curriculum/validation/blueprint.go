package validation

import (
	"encoding/json"
	"math"
	"strings"

	domainerr "github.com/yungbote/neurobridge-curriculum/internal/pkg/errors"
)

const (
	GradingWeighted   = "weighted"
	GradingCompetency = "competency"
	GradingPassFail   = "pass_fail"
)

// GradingTypes lists the accepted grading_logic.type values.
var GradingTypes = []string{GradingWeighted, GradingCompetency, GradingPassFail}

// ValidateHierarchyStructure accepts []string or a decoded JSON array.
func ValidateHierarchyStructure(structure any) error {
	const op = "ValidateHierarchyStructure"
	switch levels := structure.(type) {
	case []string:
		if len(levels) == 0 {
			return domainerr.New(domainerr.CodeInvalidHierarchyStructure, op, "Hierarchy structure must contain at least one level")
		}
		for i, label := range levels {
			if strings.TrimSpace(label) == "" {
				return domainerr.New(domainerr.CodeInvalidHierarchyStructure, op, "Hierarchy level at index %d must be a non-empty string", i)
			}
		}
		return nil
	case []any:
		if len(levels) == 0 {
			return domainerr.New(domainerr.CodeInvalidHierarchyStructure, op, "Hierarchy structure must contain at least one level")
		}
		for i, raw := range levels {
			label, ok := raw.(string)
			if !ok {
				return domainerr.New(domainerr.CodeInvalidHierarchyStructure, op, "Hierarchy level at index %d must be a non-empty string, got %s", i, describe(raw))
			}
			if strings.TrimSpace(label) == "" {
				return domainerr.New(domainerr.CodeInvalidHierarchyStructure, op, "Hierarchy level at index %d must be a non-empty string", i)
			}
		}
		return nil
	default:
		return domainerr.New(domainerr.CodeInvalidHierarchyStructure, op, "Hierarchy structure must be a non-empty array of strings, got %s", describe(structure))
	}
}

// ValidateGradingLogic checks the tagged grading variant. Only weighted
// grading carries a required field.
func ValidateGradingLogic(logic any) error {
	const op = "ValidateGradingLogic"
	obj, ok := logic.(map[string]any)
	if !ok || obj == nil {
		return domainerr.New(domainerr.CodeInvalidGradingLogic, op, "Grading logic must be an object, got %s", describe(logic))
	}
	rawType, present := obj["type"]
	if !present || rawType == nil {
		return domainerr.New(domainerr.CodeInvalidGradingLogic, op, "Grading logic must declare a type")
	}
	gradingType, ok := rawType.(string)
	if !ok {
		return domainerr.New(domainerr.CodeInvalidGradingLogic, op, "Grading logic type must be a string, got %s", describe(rawType))
	}

	switch gradingType {
	case GradingWeighted:
		return validateWeighted(obj)
	case GradingCompetency, GradingPassFail:
		return nil
	default:
		return domainerr.New(domainerr.CodeInvalidGradingLogic, op, "Unknown grading type %q; expected one of %s", gradingType, strings.Join(GradingTypes, ", "))
	}
}

func validateWeighted(obj map[string]any) error {
	const op = "ValidateGradingLogic"
	raw, present := obj["pass_mark"]
	if !present || raw == nil {
		return domainerr.New(domainerr.CodeInvalidGradingLogic, op, "Weighted grading requires a numeric pass_mark")
	}
	mark, ok := AsNumber(raw)
	if !ok {
		return domainerr.New(domainerr.CodeInvalidGradingLogic, op, "Weighted grading pass_mark must be numeric, got %s", describe(raw))
	}
	if math.IsNaN(mark) || mark < 0 || mark > 100 {
		return domainerr.New(domainerr.CodeInvalidGradingLogic, op, "Weighted grading pass_mark must be between 0 and 100, got %v", mark)
	}
	return nil
}

// AsNumber reports whether v is a JSON-compatible number. Booleans and numeric
// strings are not numbers.
func AsNumber(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}

func describe(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case bool:
		return "boolean"
	case string:
		return "string"
	case []any, []string:
		return "array"
	case map[string]any:
		return "object"
	}
	if _, ok := AsNumber(v); ok {
		return "number"
	}
	return "unsupported value"
}
