package backup

import (
	"errors"
	"fmt"
)

// BackupError represents errors that occur during backup operations
type BackupError struct {
	Type    BackupErrorType        `json:"type"`
	Message string                 `json:"message"`
	Cause   error                  `json:"-"`
	Context map[string]interface{} `json:"context,omitempty"`
}

// Error implements the error interface
func (e *BackupError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the underlying cause error
func (e *BackupError) Unwrap() error {
	return e.Cause
}

// BackupErrorType represents different types of backup errors
type BackupErrorType string

const (
	// Fatal error types: abort the current operation and flip the exit status
	BackupErrorTypeEngineUnavailable BackupErrorType = "ENGINE_UNAVAILABLE"
	BackupErrorTypeAuthentication    BackupErrorType = "AUTHENTICATION_ERROR"
	BackupErrorTypeSourceNotFound    BackupErrorType = "SOURCE_NOT_FOUND"
	BackupErrorTypeCompression       BackupErrorType = "COMPRESSION_ERROR"
	BackupErrorTypeIntegrity         BackupErrorType = "INTEGRITY_ERROR"
	BackupErrorTypeConfiguration     BackupErrorType = "CONFIGURATION_ERROR"

	// Recoverable error types: logged as warnings, pipeline continues
	BackupErrorTypeUpload        BackupErrorType = "UPLOAD_ERROR"
	BackupErrorTypeConfigArchive BackupErrorType = "CONFIG_ARCHIVE_ERROR"
	BackupErrorTypeRetention     BackupErrorType = "RETENTION_ERROR"
)

// NewBackupError creates a new BackupError
func NewBackupError(errorType BackupErrorType, message string, cause error) *BackupError {
	return &BackupError{
		Type:    errorType,
		Message: message,
		Cause:   cause,
		Context: make(map[string]interface{}),
	}
}

// WithContext adds context information to the error
func (e *BackupError) WithContext(key string, value interface{}) *BackupError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// Common error constructors

func NewEngineUnavailableError(message string, cause error) *BackupError {
	return NewBackupError(BackupErrorTypeEngineUnavailable, message, cause)
}

func NewAuthenticationError(message string, cause error) *BackupError {
	return NewBackupError(BackupErrorTypeAuthentication, message, cause)
}

func NewSourceNotFoundError(message string, cause error) *BackupError {
	return NewBackupError(BackupErrorTypeSourceNotFound, message, cause)
}

func NewCompressionError(message string, cause error) *BackupError {
	return NewBackupError(BackupErrorTypeCompression, message, cause)
}

func NewIntegrityError(message string, cause error) *BackupError {
	return NewBackupError(BackupErrorTypeIntegrity, message, cause)
}

func NewConfigurationError(message string, cause error) *BackupError {
	return NewBackupError(BackupErrorTypeConfiguration, message, cause)
}

func NewUploadError(message string, cause error) *BackupError {
	return NewBackupError(BackupErrorTypeUpload, message, cause)
}

func NewConfigArchiveError(message string, cause error) *BackupError {
	return NewBackupError(BackupErrorTypeConfigArchive, message, cause)
}

func NewRetentionError(message string, cause error) *BackupError {
	return NewBackupError(BackupErrorTypeRetention, message, cause)
}

// IsFatal reports whether an error must abort the invoking operation.
// Unknown error values are treated as fatal so that nothing fails silently.
func IsFatal(err error) bool {
	if err == nil {
		return false
	}
	var backupErr *BackupError
	if errors.As(err, &backupErr) {
		switch backupErr.Type {
		case BackupErrorTypeUpload, BackupErrorTypeConfigArchive, BackupErrorTypeRetention:
			return false
		default:
			return true
		}
	}
	return true
}

// ErrorClass returns the taxonomy type for an error, or an empty string
// for nil. Errors outside the taxonomy are classified as configuration
// errors for reporting purposes.
func ErrorClass(err error) BackupErrorType {
	if err == nil {
		return ""
	}
	var backupErr *BackupError
	if errors.As(err, &backupErr) {
		return backupErr.Type
	}
	return BackupErrorTypeConfiguration
}

// ValidationError represents validation-specific errors
type ValidationError struct {
	Field   string      `json:"field"`
	Message string      `json:"message"`
	Value   interface{} `json:"value,omitempty"`
}

// Error implements the error interface
func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error for field '%s': %s", e.Field, e.Message)
}

// ValidationErrors represents a collection of validation errors
type ValidationErrors []ValidationError

// Error implements the error interface
func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	if len(e) == 1 {
		return e[0].Error()
	}
	return fmt.Sprintf("%d validation errors: %s (and %d more)", len(e), e[0].Error(), len(e)-1)
}

// Add adds a validation error to the collection
func (e *ValidationErrors) Add(field, message string, value interface{}) {
	*e = append(*e, ValidationError{
		Field:   field,
		Message: message,
		Value:   value,
	})
}

// HasErrors returns true if there are validation errors
func (e ValidationErrors) HasErrors() bool {
	return len(e) > 0
}
