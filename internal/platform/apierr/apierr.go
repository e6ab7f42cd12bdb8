package apierr

import (
	"errors"
	"fmt"
	"net/http"

	domainerr "github.com/yungbote/neurobridge-curriculum/internal/pkg/errors"
)

type Error struct {
	Status int
	Code   string
	Err    error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	if e.Code != "" {
		return e.Code
	}
	if e.Status != 0 {
		return fmt.Sprintf("api error (%d)", e.Status)
	}
	return "api error"
}

func (e *Error) Unwrap() error { return e.Err }

func New(status int, code string, err error) *Error {
	return &Error{Status: status, Code: code, Err: err}
}

var statusByCode = map[domainerr.Code]int{
	domainerr.CodeInvalidArgument:           http.StatusBadRequest,
	domainerr.CodeNotFound:                  http.StatusNotFound,
	domainerr.CodeInvalidHierarchyStructure: http.StatusUnprocessableEntity,
	domainerr.CodeInvalidGradingLogic:       http.StatusUnprocessableEntity,
	domainerr.CodeInvalidNodeType:           http.StatusUnprocessableEntity,
	domainerr.CodeMaxDepthExceeded:          http.StatusUnprocessableEntity,
	domainerr.CodeBlueprintInUse:            http.StatusConflict,
}

// FromError maps curriculum rejections onto 4xx statuses. Anything without a
// domain code is an internal failure.
func FromError(err error) *Error {
	if err == nil {
		return nil
	}
	var ae *Error
	if errors.As(err, &ae) {
		return ae
	}
	code := domainerr.CodeOf(err)
	if status, ok := statusByCode[code]; ok {
		return New(status, string(code), err)
	}
	return New(http.StatusInternalServerError, "internal", err)
}
