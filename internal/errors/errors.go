package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorCode represents a Unified Ops error code.
type ErrorCode string

const (
	ErrInvalidRequest ErrorCode = "INVALID_REQUEST" // 400
	ErrNotFound       ErrorCode = "NOT_FOUND"       // 404
	ErrFileNotFound   ErrorCode = "FILE_NOT_FOUND"  // 404
	ErrNotActivated   ErrorCode = "NOT_ACTIVATED"   // 409
	ErrServerRunning  ErrorCode = "SERVER_RUNNING"  // 409
	ErrCorruptSlot    ErrorCode = "CORRUPT_SLOT"    // 422
	ErrCancelled      ErrorCode = "CANCELLED"       // 499
	ErrInternal       ErrorCode = "INTERNAL"        // 500
)

// OpsError represents a structured error with code, status, and details.
type OpsError struct {
	Code    ErrorCode
	Status  int
	Message string
	Details map[string]any
}

// Error implements the error interface.
func (e *OpsError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NewInvalidRequest creates a 400 error for invalid request parameters.
func NewInvalidRequest(msg string) *OpsError {
	return &OpsError{
		Code:    ErrInvalidRequest,
		Status:  400,
		Message: msg,
	}
}

// NewNotFound creates a 404 error for a record that cannot be found.
// kind names the collection ("booking", "form", ...).
func NewNotFound(kind, id string) *OpsError {
	return &OpsError{
		Code:    ErrNotFound,
		Status:  404,
		Message: fmt.Sprintf("%s not found: %s", kind, id),
		Details: map[string]any{"kind": kind, "id": id},
	}
}

// NewFileNotFound creates a 404 error for a missing import file.
func NewFileNotFound(path string) *OpsError {
	return &OpsError{
		Code:    ErrFileNotFound,
		Status:  404,
		Message: fmt.Sprintf("file not found: %s", path),
		Details: map[string]any{"path": path},
	}
}

// NewNotActivated creates a 409 error for operations that need a finished onboarding.
func NewNotActivated() *OpsError {
	return &OpsError{
		Code:    ErrNotActivated,
		Status:  409,
		Message: "workspace is not activated; finish onboarding first",
	}
}

// NewServerRunning creates a 409 error when another process serves the data
// directory and owns its writes.
func NewServerRunning(addr string, pid int) *OpsError {
	return &OpsError{
		Code:    ErrServerRunning,
		Status:  409,
		Message: fmt.Sprintf("a server (pid %d) is running at %s; make changes through it", pid, addr),
		Details: map[string]any{"addr": addr, "pid": pid},
	}
}

// NewCorruptSlot creates a 422 error when a persisted slot fails to decode or validate.
func NewCorruptSlot(slot string, cause error) *OpsError {
	msg := fmt.Sprintf("slot %q is malformed", slot)
	if cause != nil {
		msg = fmt.Sprintf("slot %q is malformed: %v", slot, cause)
	}
	return &OpsError{
		Code:    ErrCorruptSlot,
		Status:  422,
		Message: msg,
		Details: map[string]any{"slot": slot},
	}
}

// NewCancelled creates a 499 error when a context is cancelled mid-operation.
func NewCancelled(op string) *OpsError {
	return &OpsError{
		Code:    ErrCancelled,
		Status:  499,
		Message: fmt.Sprintf("%s cancelled", op),
		Details: map[string]any{"operation": op},
	}
}

// NewInternal creates a 500 error for unexpected internal errors.
// The cause is kept in Details for logging; Message stays generic.
func NewInternal(err error) *OpsError {
	details := map[string]any{}
	if err != nil {
		details["internal_error"] = err.Error()
	}
	return &OpsError{
		Code:    ErrInternal,
		Status:  500,
		Message: "an internal error occurred",
		Details: details,
	}
}

// Is checks if err (or anything it wraps) is an OpsError with the given code.
func Is(err error, code ErrorCode) bool {
	var opsErr *OpsError
	if stderrors.As(err, &opsErr) {
		return opsErr.Code == code
	}
	return false
}
