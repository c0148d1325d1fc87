package errors

import (
	"errors"
	"fmt"
)

// Exit codes for forage-play
const (
	ExitSuccess           = 0
	ExitGeneralError      = 1
	ExitWorkspaceNotFound = 2
	ExitTemplateNotFound  = 3
	ExitPathNotFound      = 4
	ExitNameCollision     = 5
	ExitSandboxFailed     = 6
	ExitConfigError       = 7
	ExitPersistence       = 8
)

// ForageError is the base error type for forage-play
type ForageError struct {
	Code    int
	Message string
	Cause   error
}

func (e *ForageError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *ForageError) Unwrap() error {
	return e.Cause
}

// ExitCode returns the exit code for this error
func (e *ForageError) ExitCode() int {
	return e.Code
}

// New creates a new ForageError
func New(code int, message string) *ForageError {
	return &ForageError{
		Code:    code,
		Message: message,
	}
}

// Wrap wraps an existing error with a ForageError
func Wrap(code int, message string, cause error) *ForageError {
	return &ForageError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// Common error constructors

// WorkspaceNotFound returns an error for a workspace with no persisted tree
func WorkspaceNotFound(id string) *ForageError {
	return New(ExitWorkspaceNotFound, fmt.Sprintf("workspace not found: %s", id))
}

// TemplateNotFound returns an error for a missing template
func TemplateNotFound(key string) *ForageError {
	return New(ExitTemplateNotFound, fmt.Sprintf("template not found: %s", key))
}

// PathNotFound returns an error for a tree path that does not resolve
func PathNotFound(path string) *ForageError {
	return New(ExitPathNotFound, fmt.Sprintf("path not found: %s", path))
}

// NameCollision returns an error for a sibling with the same name and kind
func NameCollision(name string) *ForageError {
	return New(ExitNameCollision, fmt.Sprintf("name already exists: %s", name))
}

// SandboxFailed returns an error for a sandbox stage that failed
func SandboxFailed(stage string, cause error) *ForageError {
	return Wrap(ExitSandboxFailed, fmt.Sprintf("sandbox %s failed", stage), cause)
}

// PersistenceFailed returns an error for a store operation that failed
func PersistenceFailed(op string, cause error) *ForageError {
	return Wrap(ExitPersistence, fmt.Sprintf("persistence %s failed", op), cause)
}

// ConfigError returns an error for configuration issues
func ConfigError(message string, cause error) *ForageError {
	return Wrap(ExitConfigError, message, cause)
}

// ValidationError returns an error for input validation failures
func ValidationError(message string) *ForageError {
	return New(ExitGeneralError, message)
}

// GetExitCode extracts the exit code from an error
func GetExitCode(err error) int {
	var forageErr *ForageError
	if errors.As(err, &forageErr) {
		return forageErr.ExitCode()
	}
	return ExitGeneralError
}

// HasCode reports whether any ForageError in err's chain carries code.
func HasCode(err error, code int) bool {
	for err != nil {
		var forageErr *ForageError
		if !errors.As(err, &forageErr) {
			return false
		}
		if forageErr.Code == code {
			return true
		}
		err = forageErr.Cause
	}
	return false
}

// Is checks if an error is of a specific type
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target
func As(err error, target any) bool {
	return errors.As(err, target)
}
