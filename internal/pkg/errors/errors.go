package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Code classifies a rejected curriculum operation.
type Code string

const (
	CodeInvalidArgument           Code = "invalid_argument"
	CodeNotFound                  Code = "not_found"
	CodeInvalidHierarchyStructure Code = "invalid_hierarchy_structure"
	CodeInvalidGradingLogic       Code = "invalid_grading_logic"
	CodeBlueprintInUse            Code = "blueprint_in_use"
	CodeInvalidNodeType           Code = "invalid_node_type"
	CodeMaxDepthExceeded          Code = "max_depth_exceeded"
)

var (
	// ErrNotFound is a generic sentinel for missing resources.
	ErrNotFound = errors.New("not found")
	// ErrInvalidArgument is a generic sentinel for invalid input.
	ErrInvalidArgument = errors.New("invalid argument")

	ErrInvalidHierarchyStructure = errors.New("invalid hierarchy structure")
	ErrInvalidGradingLogic       = errors.New("invalid grading logic")
	ErrBlueprintInUse            = errors.New("blueprint in use")
	ErrInvalidNodeType           = errors.New("invalid node type")
	ErrMaxDepthExceeded          = errors.New("max depth exceeded")
)

var sentinels = map[Code]error{
	CodeInvalidArgument:           ErrInvalidArgument,
	CodeNotFound:                  ErrNotFound,
	CodeInvalidHierarchyStructure: ErrInvalidHierarchyStructure,
	CodeInvalidGradingLogic:       ErrInvalidGradingLogic,
	CodeBlueprintInUse:            ErrBlueprintInUse,
	CodeInvalidNodeType:           ErrInvalidNodeType,
	CodeMaxDepthExceeded:          ErrMaxDepthExceeded,
}

// Error is a rejection that names the violated rule. Error() returns Message
// unchanged so callers can surface it to operators verbatim.
type Error struct {
	Code    Code
	Op      string
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if msg := strings.TrimSpace(e.Message); msg != "" {
		return msg
	}
	if e.Cause != nil {
		return e.Cause.Error()
	}
	return string(e.Code)
}

func (e *Error) Unwrap() error { return e.Cause }

// Is lets errors.Is(err, ErrMaxDepthExceeded) match by code.
func (e *Error) Is(target error) bool {
	if e == nil {
		return false
	}
	s, ok := sentinels[e.Code]
	return ok && s == target
}

func New(code Code, op, format string, args ...any) error {
	return &Error{Code: code, Op: strings.TrimSpace(op), Message: fmt.Sprintf(format, args...)}
}

// Wrap keeps cause reachable through errors.Unwrap.
func Wrap(code Code, op string, cause error, format string, args ...any) error {
	return &Error{Code: code, Op: strings.TrimSpace(op), Message: fmt.Sprintf(format, args...), Cause: cause}
}

func InvalidArgument(op, format string, args ...any) error {
	return New(CodeInvalidArgument, op, format, args...)
}

func NotFound(op, format string, args ...any) error {
	return New(CodeNotFound, op, format, args...)
}

// CodeOf extracts the code when err carries one.
func CodeOf(err error) Code {
	var e *Error
	if !errors.As(err, &e) {
		return ""
	}
	return e.Code
}

func IsCode(err error, code Code) bool {
	return CodeOf(err) == code
}
