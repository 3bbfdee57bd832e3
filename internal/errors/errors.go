package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Exit codes for lovable-ctl
const (
	ExitSuccess            = 0
	ExitGeneralError       = 1
	ExitSandboxNotFound    = 2
	ExitSandboxUnavailable = 3
	ExitRunInProgress      = 4
	ExitContainerFailed    = 5
	ExitConfigError        = 6
	ExitValidation         = 7
	ExitInstallFailed      = 8
	ExitEditBackend        = 9
)

// AppError is the base error type for lovable-ctl
type AppError struct {
	Code    int
	Message string
	Cause   error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// ExitCode returns the exit code for this error
func (e *AppError) ExitCode() int {
	return e.Code
}

// New creates a new AppError
func New(code int, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// Wrap wraps an existing error with an AppError
func Wrap(code int, message string, cause error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// Common error constructors

// SandboxNotFound returns an error for a missing sandbox
func SandboxNotFound(id string) *AppError {
	return New(ExitSandboxNotFound, fmt.Sprintf("sandbox not found: %s", id))
}

// NoActiveSandbox returns an error when no session is active
func NoActiveSandbox() *AppError {
	return New(ExitSandboxNotFound, "No active sandbox")
}

// SandboxUnavailable returns an error when a sandbox cannot be created or reached
func SandboxUnavailable(message string, cause error) *AppError {
	return Wrap(ExitSandboxUnavailable, message, cause)
}

// RunInProgress returns an error when another reconciliation holds the session
func RunInProgress(id string) *AppError {
	return New(ExitRunInProgress, fmt.Sprintf("a reconciliation run is already active for sandbox %s", id))
}

// ContainerFailed returns an error for container operations
func ContainerFailed(op string, cause error) *AppError {
	return Wrap(ExitContainerFailed, fmt.Sprintf("container %s failed", op), cause)
}

// ConfigError returns an error for configuration issues
func ConfigError(message string, cause error) *AppError {
	return Wrap(ExitConfigError, message, cause)
}

// ValidationError returns an error for input validation failures
func ValidationError(message string) *AppError {
	return New(ExitValidation, message)
}

// InstallFailed returns an error for package installation failures
func InstallFailed(cause error) *AppError {
	return Wrap(ExitInstallFailed, "package installation failed", cause)
}

// EditBackendError returns an error from the precision edit backend
func EditBackendError(message string, cause error) *AppError {
	return Wrap(ExitEditBackend, message, cause)
}

// GetExitCode extracts the exit code from an error
func GetExitCode(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.ExitCode()
	}
	return ExitGeneralError
}

// HTTPStatus maps an error to the HTTP status the API responds with
func HTTPStatus(err error) int {
	switch GetExitCode(err) {
	case ExitValidation:
		return http.StatusBadRequest
	case ExitSandboxNotFound:
		return http.StatusNotFound
	case ExitRunInProgress:
		return http.StatusConflict
	case ExitSandboxUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// Is checks if an error is of a specific type
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target
func As(err error, target any) bool {
	return errors.As(err, target)
}
