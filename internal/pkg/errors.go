package pkg

import (
	"errors"
	"fmt"
	"net/http"
)

// Custom error types
var (
	// Authentication errors
	ErrInvalidCredentials = NewAppError("INVALID_CREDENTIALS", "Invalid username or password", http.StatusUnauthorized)
	ErrAccountLocked      = NewAppError("ACCOUNT_LOCKED", "Account is locked", http.StatusForbidden)
	ErrAccountInactive    = NewAppError("ACCOUNT_INACTIVE", "Account has been deactivated", http.StatusForbidden)
	ErrInvalidToken       = NewAppError("INVALID_TOKEN", "Invalid or expired token", http.StatusUnauthorized)
	ErrTokenExpired       = NewAppError("TOKEN_EXPIRED", "Token has expired", http.StatusUnauthorized)

	// Authorization errors
	ErrAccessDenied  = NewAppError("ACCESS_DENIED", "You do not have access to this resource", http.StatusForbidden)
	ErrAdminRequired = NewAppError("ADMIN_REQUIRED", "Administrator privileges required", http.StatusForbidden)

	// Identity errors
	ErrUserNotFound      = NewAppError("USER_NOT_FOUND", "User not found", http.StatusNotFound)
	ErrRoleNotFound      = NewAppError("ROLE_NOT_FOUND", "Role not found", http.StatusNotFound)
	ErrDuplicateUsername = NewAppError("DUPLICATE_USERNAME", "Username already taken", http.StatusConflict)
	ErrDuplicateEmail    = NewAppError("DUPLICATE_EMAIL", "Email address already taken", http.StatusConflict)
	ErrWeakPassword      = NewAppError("WEAK_PASSWORD", "Password does not meet requirements", http.StatusBadRequest)

	// Folder errors
	ErrFolderNotFound      = NewAppError("FOLDER_NOT_FOUND", "Folder not found", http.StatusNotFound)
	ErrDuplicateFolderPath = NewAppError("DUPLICATE_FOLDER_PATH", "A folder with this path already exists", http.StatusConflict)
	ErrSystemFolder        = NewAppError("SYSTEM_FOLDER", "System folders cannot be removed", http.StatusBadRequest)

	// File errors
	ErrFileNotFound     = NewAppError("FILE_NOT_FOUND", "File not found", http.StatusNotFound)
	ErrFileTooLarge     = NewAppError("FILE_TOO_LARGE", "File size exceeds limit", http.StatusRequestEntityTooLarge)
	ErrFileUploadFailed = NewAppError("FILE_UPLOAD_FAILED", "File upload failed", http.StatusInternalServerError)

	// Permission errors
	ErrInvalidPermissionMask = NewAppError("INVALID_PERMISSION_MASK", "Permission mask must be between 0 and 63", http.StatusBadRequest)
	ErrAccessEntryNotFound   = NewAppError("ACCESS_ENTRY_NOT_FOUND", "Access entry not found", http.StatusNotFound)

	// Infrastructure errors
	ErrStorageProvider  = NewAppError("STORAGE_PROVIDER_ERROR", "Storage provider error", http.StatusInternalServerError)
	ErrAuditWriteFailed = NewAppError("AUDIT_WRITE_FAILED", "Failed to write audit entry", http.StatusInternalServerError)
	ErrDatabaseError    = NewAppError("DATABASE_ERROR", "Database error", http.StatusInternalServerError)

	// Validation errors
	ErrValidationFailed = NewAppError("VALIDATION_FAILED", "Validation failed", http.StatusBadRequest)
	ErrInvalidInput     = NewAppError("INVALID_INPUT", "Invalid input data", http.StatusBadRequest)

	// Rate limiting
	ErrRateLimitExceeded = NewAppError("RATE_LIMIT_EXCEEDED", "Too many requests", http.StatusTooManyRequests)

	// System errors
	ErrInternalServer = NewAppError("INTERNAL_SERVER_ERROR", "Internal server error", http.StatusInternalServerError)
)

// AppError represents an application-specific error
type AppError struct {
	Code       string                 `json:"code"`
	Message    string                 `json:"message"`
	StatusCode int                    `json:"status_code"`
	Details    map[string]interface{} `json:"details,omitempty"`
	Cause      error                  `json:"-"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %s)", e.Code, e.Message, e.Cause.Error())
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap exposes the underlying cause to errors.Is/As
func (e *AppError) Unwrap() error {
	return e.Cause
}

// WithDetails returns a copy of the error with details attached
func (e *AppError) WithDetails(details map[string]interface{}) *AppError {
	clone := *e
	clone.Details = details
	return &clone
}

// WithCause returns a copy of the error with a cause attached
func (e *AppError) WithCause(cause error) *AppError {
	clone := *e
	clone.Cause = cause
	return &clone
}

// NewAppError creates a new application error
func NewAppError(code, message string, statusCode int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		StatusCode: statusCode,
	}
}

// ValidationError represents a single validation failure
type ValidationError struct {
	Field   string      `json:"field"`
	Message string      `json:"message"`
	Value   interface{} `json:"value,omitempty"`
}

// ValidationErrors represents multiple validation errors
type ValidationErrors []ValidationError

// Error implements the error interface
func (ve ValidationErrors) Error() string {
	if len(ve) == 0 {
		return "validation failed"
	}
	return fmt.Sprintf("validation failed: %s", ve[0].Message)
}

// IsAppError checks if error is an AppError
func IsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}
