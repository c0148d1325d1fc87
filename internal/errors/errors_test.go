package errors

import (
	"errors"
	"fmt"
	"testing"
)

func TestForageError_Error(t *testing.T) {
	tests := []struct {
		name    string
		err     *ForageError
		wantMsg string
	}{
		{
			name:    "without cause",
			err:     New(ExitGeneralError, "something went wrong"),
			wantMsg: "something went wrong",
		},
		{
			name:    "with cause",
			err:     Wrap(ExitGeneralError, "operation failed", fmt.Errorf("underlying error")),
			wantMsg: "operation failed: underlying error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.wantMsg {
				t.Errorf("Error() = %q, want %q", got, tt.wantMsg)
			}
		})
	}
}

func TestForageError_Unwrap(t *testing.T) {
	cause := fmt.Errorf("root cause")
	err := Wrap(ExitGeneralError, "wrapped", cause)

	if unwrapped := err.Unwrap(); unwrapped != cause {
		t.Errorf("Unwrap() = %v, want %v", unwrapped, cause)
	}

	errNoCause := New(ExitGeneralError, "no cause")
	if unwrapped := errNoCause.Unwrap(); unwrapped != nil {
		t.Errorf("Unwrap() = %v, want nil", unwrapped)
	}
}

func TestConstructors(t *testing.T) {
	cause := fmt.Errorf("boom")
	tests := []struct {
		name     string
		err      *ForageError
		wantCode int
		wantMsg  string
	}{
		{"workspace not found", WorkspaceNotFound("ws1"), ExitWorkspaceNotFound, "workspace not found: ws1"},
		{"template not found", TemplateNotFound("react"), ExitTemplateNotFound, "template not found: react"},
		{"path not found", PathNotFound("app/index.js"), ExitPathNotFound, "path not found: app/index.js"},
		{"name collision", NameCollision("b.js"), ExitNameCollision, "name already exists: b.js"},
		{"sandbox failed", SandboxFailed("install", cause), ExitSandboxFailed, "sandbox install failed"},
		{"persistence failed", PersistenceFailed("save", cause), ExitPersistence, "persistence save failed"},
		{"config", ConfigError("bad config", cause), ExitConfigError, "bad config"},
		{"validation", ValidationError("empty name"), ExitGeneralError, "empty name"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err.Code != tt.wantCode {
				t.Errorf("Code = %d, want %d", tt.err.Code, tt.wantCode)
			}
			if tt.err.Message != tt.wantMsg {
				t.Errorf("Message = %q, want %q", tt.err.Message, tt.wantMsg)
			}
		})
	}
}

func TestGetExitCode(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode int
	}{
		{
			name:     "ForageError",
			err:      WorkspaceNotFound("test"),
			wantCode: ExitWorkspaceNotFound,
		},
		{
			name:     "wrapped ForageError",
			err:      fmt.Errorf("outer: %w", TemplateNotFound("test")),
			wantCode: ExitTemplateNotFound,
		},
		{
			name:     "regular error",
			err:      fmt.Errorf("some error"),
			wantCode: ExitGeneralError,
		},
		{
			name:     "nil error",
			err:      nil,
			wantCode: ExitGeneralError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := GetExitCode(tt.err); got != tt.wantCode {
				t.Errorf("GetExitCode() = %d, want %d", got, tt.wantCode)
			}
		})
	}
}

func TestHasCode(t *testing.T) {
	nested := PersistenceFailed("save", fmt.Errorf("wrapped: %w", PathNotFound("a.js")))

	if !HasCode(nested, ExitPersistence) {
		t.Error("HasCode(ExitPersistence) = false, want true")
	}
	if !HasCode(nested, ExitPathNotFound) {
		t.Error("HasCode(ExitPathNotFound) = false, want true for nested cause")
	}
	if HasCode(nested, ExitNameCollision) {
		t.Error("HasCode(ExitNameCollision) = true, want false")
	}
	if HasCode(fmt.Errorf("plain"), ExitGeneralError) {
		t.Error("HasCode on plain error = true, want false")
	}
	if HasCode(nil, ExitGeneralError) {
		t.Error("HasCode(nil) = true, want false")
	}
}

func TestIs(t *testing.T) {
	target := fmt.Errorf("target error")
	wrapped := fmt.Errorf("wrapped: %w", target)

	if !Is(wrapped, target) {
		t.Error("Is() should return true for wrapped error")
	}

	other := fmt.Errorf("other error")
	if Is(wrapped, other) {
		t.Error("Is() should return false for different error")
	}
}

func TestAs(t *testing.T) {
	wrapped := fmt.Errorf("wrapped: %w", NameCollision("x"))

	var target *ForageError
	if !As(wrapped, &target) {
		t.Fatal("As() should return true for wrapped ForageError")
	}
	if target.Code != ExitNameCollision {
		t.Errorf("target.Code = %d, want %d", target.Code, ExitNameCollision)
	}

	if As(fmt.Errorf("regular error"), &target) {
		t.Error("As() should return false for non-ForageError")
	}
}

func TestErrorChaining(t *testing.T) {
	root := fmt.Errorf("root cause")
	middle := Wrap(ExitConfigError, "config error", root)
	outer := fmt.Errorf("operation failed: %w", middle)

	if !errors.Is(outer, root) {
		t.Error("errors.Is should find root cause")
	}

	var forageErr *ForageError
	if !errors.As(outer, &forageErr) {
		t.Fatal("errors.As should find ForageError")
	}
	if forageErr.Code != ExitConfigError {
		t.Errorf("Code = %d, want %d", forageErr.Code, ExitConfigError)
	}
}
