package services

import (
	"fmt"
	"net/http"
)

// AppError is a recoverable, user-safe failure with a fixed HTTP status.
// Anything that is not an AppError is treated as an internal fault.
type AppError struct {
	Status  int
	Code    string
	Message string
	Details map[string]string
}

func (e *AppError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Is matches on Code so copies carrying Details still satisfy errors.Is.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	return ok && t.Code == e.Code
}

func newAppError(status int, code, message string) *AppError {
	return &AppError{Status: status, Code: code, Message: message}
}

var (
	// Unknown user, wrong password and inactive user all surface as this one error.
	ErrInvalidCredentials = newAppError(http.StatusUnauthorized, "INVALID_CREDENTIALS", "Invalid email or password")
	// Malformed, expired and wrong-domain tokens are indistinguishable to the caller.
	ErrInvalidToken = newAppError(http.StatusUnauthorized, "INVALID_TOKEN", "Invalid or expired token")
	// Missing session, rotated-past token and expired session are indistinguishable to the caller.
	ErrSessionExpired     = newAppError(http.StatusUnauthorized, "SESSION_EXPIRED", "Session expired, please log in again")
	ErrAdminAlreadyExists = newAppError(http.StatusForbidden, "ADMIN_ALREADY_EXISTS", "An administrator already exists")
	ErrEmailInUse         = newAppError(http.StatusBadRequest, "EMAIL_IN_USE", "Email is already registered")
	ErrTenantNotResolved  = newAppError(http.StatusBadRequest, "TENANT_NOT_RESOLVED", "Tenant could not be resolved")
	ErrTenantInactive     = newAppError(http.StatusForbidden, "TENANT_INACTIVE", "Tenant is inactive")
	ErrForbidden          = newAppError(http.StatusForbidden, "FORBIDDEN", "Insufficient permissions")
	ErrNotFound           = newAppError(http.StatusNotFound, "NOT_FOUND", "Resource not found")
	ErrTooManyAttempts    = newAppError(http.StatusTooManyRequests, "TOO_MANY_ATTEMPTS", "Too many failed attempts, try again later")
	ErrValidation         = newAppError(http.StatusBadRequest, "VALIDATION_ERROR", "Validation failed")
	ErrLastAdmin          = newAppError(http.StatusConflict, "LAST_ADMIN", "The last active administrator cannot be deactivated")
)

// ValidationError reports a single invalid field.
func ValidationError(field, message string) *AppError {
	return &AppError{
		Status:  ErrValidation.Status,
		Code:    ErrValidation.Code,
		Message: ErrValidation.Message,
		Details: map[string]string{field: message},
	}
}
