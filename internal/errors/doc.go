// Package errors provides typed errors with exit codes for lovable-ctl.
//
// # Error Types
//
// AppError is the base error type that wraps an error with an exit code:
//
//	type AppError struct {
//	    Code    int    // Exit code
//	    Message string // User-facing message
//	    Cause   error  // Wrapped error
//	}
//
// # Exit Codes
//
//	ExitSuccess            = 0  // Success
//	ExitGeneralError       = 1  // General/unknown errors
//	ExitSandboxNotFound    = 2  // No sandbox with that id, or none active
//	ExitSandboxUnavailable = 3  // Sandbox could not be created or reached
//	ExitRunInProgress      = 4  // Another reconciliation holds the sandbox
//	ExitContainerFailed    = 5  // Container operation failed
//	ExitConfigError        = 6  // Configuration error
//	ExitValidation         = 7  // Invalid request input
//	ExitInstallFailed      = 8  // npm install failed
//	ExitEditBackend        = 9  // Precision edit backend failed
//
// # HTTP Mapping
//
// The API server answers with HTTPStatus(err), so a validation error is a
// 400 and a busy sandbox is a 409 without each handler deciding.
//
// Per-item failures during reconciliation (one file, one command) are not
// errors in this sense. They are recorded as messages in the run result.
package errors
