package errors

import (
	"errors"
	"fmt"
	"testing"
)

func TestErrorMatchesSentinelByCode(t *testing.T) {
	err := New(CodeMaxDepthExceeded, "op", "depth %d exceeds %d", 4, 2)
	if err.Error() != "depth 4 exceeds 2" {
		t.Fatalf("Error(): got %q", err.Error())
	}
	if !errors.Is(err, ErrMaxDepthExceeded) {
		t.Fatalf("errors.Is: want match on code")
	}
	if errors.Is(err, ErrBlueprintInUse) {
		t.Fatalf("errors.Is: matched a different code")
	}

	wrapped := fmt.Errorf("move node: %w", err)
	if !IsCode(wrapped, CodeMaxDepthExceeded) {
		t.Fatalf("IsCode through fmt wrap: got %q", CodeOf(wrapped))
	}
	if CodeOf(errors.New("plain")) != "" {
		t.Fatalf("CodeOf(plain) should be empty")
	}
}

func TestWrapKeepsCause(t *testing.T) {
	cause := errors.New("disk full")
	err := Wrap(CodeInvalidArgument, "import", cause, "Unable to read file %s", "a.json")
	if !errors.Is(err, cause) {
		t.Fatalf("cause not reachable")
	}
	if !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("code sentinel not matched")
	}
	if err.Error() != "Unable to read file a.json" {
		t.Fatalf("Error(): got %q", err.Error())
	}

	bare := &Error{Code: CodeNotFound, Cause: cause}
	if bare.Error() != "disk full" {
		t.Fatalf("Error() without message: got %q", bare.Error())
	}
	if (&Error{Code: CodeNotFound}).Error() != string(CodeNotFound) {
		t.Fatalf("Error() falls back to code")
	}
}
