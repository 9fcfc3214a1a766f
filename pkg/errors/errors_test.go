package errors

import (
	stderrors "errors"
	"fmt"
	"testing"
)

func TestNew(t *testing.T) {
	err := New(ErrCodeInvalidTree, "unbalanced parentheses in %q", "(a,b")
	if err.Code != ErrCodeInvalidTree {
		t.Errorf("code = %v, want %v", err.Code, ErrCodeInvalidTree)
	}
	want := `INVALID_TREE: unbalanced parentheses in "(a,b"`
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}

func TestWrap(t *testing.T) {
	cause := stderrors.New("no such file")
	err := Wrap(ErrCodeFileNotFound, cause, "read tree %s", "left.nwk")

	if !stderrors.Is(err, cause) {
		t.Error("wrapped error should match its cause via errors.Is")
	}
	if err.Unwrap() != cause {
		t.Error("Unwrap should return the cause")
	}
}

func TestIs(t *testing.T) {
	err := New(ErrCodeInvalidMode, "invalid highlight mode")
	if !Is(err, ErrCodeInvalidMode) {
		t.Error("Is should match the error's own code")
	}
	if Is(err, ErrCodeInvalidTree) {
		t.Error("Is should not match a different code")
	}
	if Is(stderrors.New("plain"), ErrCodeInvalidMode) {
		t.Error("Is should not match a plain error")
	}

	// The code survives fmt.Errorf wrapping.
	wrapped := fmt.Errorf("build left: %w", err)
	if !Is(wrapped, ErrCodeInvalidMode) {
		t.Error("Is should unwrap fmt.Errorf chains")
	}
}

func TestGetCode(t *testing.T) {
	err := New(ErrCodeNotFound, "missing")
	if got := GetCode(err); got != ErrCodeNotFound {
		t.Errorf("GetCode = %v, want %v", got, ErrCodeNotFound)
	}
	if got := GetCode(stderrors.New("plain")); got != "" {
		t.Errorf("GetCode of plain error = %v, want empty", got)
	}
	wrapped := fmt.Errorf("outer: %w", err)
	if got := GetCode(wrapped); got != ErrCodeNotFound {
		t.Errorf("GetCode of wrapped = %v, want %v", got, ErrCodeNotFound)
	}
}

func TestUserMessage(t *testing.T) {
	err := New(ErrCodeInvalidInput, "source tree text is required")
	if got := UserMessage(err); got != "source tree text is required" {
		t.Errorf("UserMessage = %q, want message without code prefix", got)
	}
	plain := stderrors.New("plain failure")
	if got := UserMessage(plain); got != "plain failure" {
		t.Errorf("UserMessage of plain error = %q", got)
	}
}
