package services

import (
	"errors"
	"fmt"
)

// ErrorType classifies a domain error. Handlers map each type to one HTTP status.
type ErrorType string

const (
	ErrorTypeNotFound     ErrorType = "not_found"
	ErrorTypeValidation   ErrorType = "validation"
	ErrorTypeUnauthorized ErrorType = "unauthorized"
	ErrorTypeForbidden    ErrorType = "forbidden"
	ErrorTypeRateLimit    ErrorType = "rate_limit"
	ErrorTypeConflict     ErrorType = "conflict"
	ErrorTypeInternal     ErrorType = "internal"
)

// DomainError is the error returned by every service operation.
// Two domain errors match under errors.Is when their types are equal.
type DomainError struct {
	Type    ErrorType
	Message string
	Err     error
	Details map[string]interface{}
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	return ok && e.Type == t.Type
}

// WithDetail returns a copy of e carrying one more detail. The receiver is
// left untouched, so it is safe to call on the package-level sentinels.
func (e *DomainError) WithDetail(key string, value interface{}) *DomainError {
	details := make(map[string]interface{}, len(e.Details)+1)
	for k, v := range e.Details {
		details[k] = v
	}
	details[key] = value
	return &DomainError{Type: e.Type, Message: e.Message, Err: e.Err, Details: details}
}

// NewDomainError creates a new domain error
func NewDomainError(errType ErrorType, message string, err error) *DomainError {
	return &DomainError{Type: errType, Message: message, Err: err}
}

var (
	ErrUserNotFound         = NewDomainError(ErrorTypeNotFound, "user not found", nil)
	ErrCourseNotFound       = NewDomainError(ErrorTypeNotFound, "course not found", nil)
	ErrEventNotFound        = NewDomainError(ErrorTypeNotFound, "calendar event not found", nil)
	ErrResourceNotFound     = NewDomainError(ErrorTypeNotFound, "resource not found", nil)
	ErrNotificationNotFound = NewDomainError(ErrorTypeNotFound, "notification not found", nil)

	ErrInvalidInput    = NewDomainError(ErrorTypeValidation, "invalid input", nil)
	ErrInvalidEmail    = NewDomainError(ErrorTypeValidation, "invalid email format", nil)
	ErrInvalidProgress = NewDomainError(ErrorTypeValidation, "progress must be between 0 and 100", nil)
	ErrInvalidRange    = NewDomainError(ErrorTypeValidation, "end must not be before start", nil)
	ErrInvalidProfile  = NewDomainError(ErrorTypeValidation, "invalid academic profile", nil)
	ErrNotAProfessor   = NewDomainError(ErrorTypeValidation, "teacher must be a professor", nil)
	ErrNotAStudent     = NewDomainError(ErrorTypeValidation, "enrolled users must be students", nil)
	ErrNoRecipients    = NewDomainError(ErrorTypeValidation, "notification has no recipients", nil)

	ErrUnauthorized       = NewDomainError(ErrorTypeUnauthorized, "unauthorized", nil)
	ErrInvalidCredentials = NewDomainError(ErrorTypeUnauthorized, "invalid email or password", nil)
	ErrInvalidToken       = NewDomainError(ErrorTypeUnauthorized, "invalid authentication token", nil)
	ErrTokenExpired       = NewDomainError(ErrorTypeUnauthorized, "authentication token expired", nil)

	ErrForbidden = NewDomainError(ErrorTypeForbidden, "access forbidden", nil)

	ErrTooManyLoginAttempts = NewDomainError(ErrorTypeRateLimit, "too many failed login attempts", nil)

	ErrDuplicateEmail      = NewDomainError(ErrorTypeConflict, "email already exists", nil)
	ErrProfessorHasCourses = NewDomainError(ErrorTypeConflict, "professor still teaches courses", nil)
	ErrSelfDelete          = NewDomainError(ErrorTypeConflict, "cannot delete your own account", nil)
)

func asDomainError(err error) (*DomainError, bool) {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr, true
	}
	return nil, false
}

// HasType reports whether err wraps a domain error of type t
func HasType(err error, t ErrorType) bool {
	return GetErrorType(err) == t
}

func IsNotFoundError(err error) bool     { return HasType(err, ErrorTypeNotFound) }
func IsValidationError(err error) bool   { return HasType(err, ErrorTypeValidation) }
func IsUnauthorizedError(err error) bool { return HasType(err, ErrorTypeUnauthorized) }
func IsForbiddenError(err error) bool    { return HasType(err, ErrorTypeForbidden) }
func IsRateLimitError(err error) bool    { return HasType(err, ErrorTypeRateLimit) }
func IsConflictError(err error) bool     { return HasType(err, ErrorTypeConflict) }
func IsInternalError(err error) bool     { return HasType(err, ErrorTypeInternal) }

// GetErrorType returns the type of the outermost domain error in err's chain, or ""
func GetErrorType(err error) ErrorType {
	if domainErr, ok := asDomainError(err); ok {
		return domainErr.Type
	}
	return ""
}

// GetErrorDetails returns the details of the outermost domain error, or nil
func GetErrorDetails(err error) map[string]interface{} {
	if domainErr, ok := asDomainError(err); ok {
		return domainErr.Details
	}
	return nil
}

// GetErrorMessage returns the client-facing message of the outermost domain error, or ""
func GetErrorMessage(err error) string {
	if domainErr, ok := asDomainError(err); ok {
		return domainErr.Message
	}
	return ""
}

// WrapInternal wraps a storage or infrastructure failure. The cause is kept
// for logs and never shown to clients.
func WrapInternal(message string, err error) error {
	return NewDomainError(ErrorTypeInternal, message, err)
}

// NewValidationError builds a validation error naming the offending field
func NewValidationError(field, message string) *DomainError {
	return NewDomainError(ErrorTypeValidation, message, nil).WithDetail("field", field)
}

// Forbidden builds a forbidden error for an operation on a resource type
func Forbidden(resource, op string) *DomainError {
	return ErrForbidden.
		WithDetail("resource", resource).
		WithDetail("operation", op)
}
