// Package errors provides the application error taxonomy shared by the
// store, backup manager and HTTP layer.
package errors

import "fmt"

// ErrorCode identifies a failure class that maps onto an HTTP status.
type ErrorCode string

const (
	// General errors
	ErrInternal   ErrorCode = "INTERNAL_ERROR"
	ErrInvalid    ErrorCode = "INVALID_INPUT"
	ErrNotFound   ErrorCode = "NOT_FOUND"
	ErrValidation ErrorCode = "VALIDATION_ERROR"

	// Database errors
	ErrDatabase   ErrorCode = "DATABASE_ERROR"
	ErrMigration  ErrorCode = "MIGRATION_FAILED"
	ErrConstraint ErrorCode = "CONSTRAINT_VIOLATION"

	// Demanda errors
	ErrDemandaNotFound ErrorCode = "DEMANDA_NOT_FOUND"
	ErrDuplicateTag    ErrorCode = "DUPLICATE_TAG"

	// Backup errors
	ErrBackupNotFound ErrorCode = "BACKUP_NOT_FOUND"
	ErrBackupFailed   ErrorCode = "BACKUP_FAILED"
	ErrRestoreFailed  ErrorCode = "RESTORE_FAILED"
	ErrCorruptBackup  ErrorCode = "CORRUPT_BACKUP"
)

// AppError represents an application error with code and message.
type AppError struct {
	Code    ErrorCode
	Message string
	Err     error

	// Fields carries per-field validation messages for ErrValidation.
	Fields []string
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error.
func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates a new AppError.
func New(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// Wrap wraps an existing error with an error code.
func Wrap(code ErrorCode, message string, err error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Validation creates an AppError carrying field-level messages.
func Validation(fields []string) *AppError {
	return &AppError{
		Code:    ErrValidation,
		Message: "dados inválidos",
		Fields:  fields,
	}
}

// Is checks if an error carries a specific code, unwrapping as needed.
func Is(err error, code ErrorCode) bool {
	for err != nil {
		if appErr, ok := err.(*AppError); ok && appErr.Code == code {
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}

// CodeOf returns the error code of err, or ErrInternal when err carries none.
func CodeOf(err error) ErrorCode {
	for err != nil {
		if appErr, ok := err.(*AppError); ok {
			return appErr.Code
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			break
		}
		err = u.Unwrap()
	}
	return ErrInternal
}
