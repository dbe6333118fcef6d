package apperror

import (
	"errors"
	"fmt"
)

type ErrorCode string

const (
	ErrCodeInvalidCredentials ErrorCode = "INVALID_CREDENTIALS"
	ErrCodeForbidden          ErrorCode = "FORBIDDEN"
	ErrCodeTooManyAttempts    ErrorCode = "TOO_MANY_ATTEMPTS"
	ErrCodeEmptyComment       ErrorCode = "EMPTY_COMMENT"
	ErrCodeMissingField       ErrorCode = "MISSING_FIELD"
	ErrCodeValidation         ErrorCode = "VALIDATION_ERROR"
	ErrCodeNotFound           ErrorCode = "NOT_FOUND"
	ErrCodeConflict           ErrorCode = "CONFLICT"
	ErrCodeReadFailed         ErrorCode = "READ_FAILED"
	ErrCodeWriteFailed        ErrorCode = "WRITE_FAILED"
	ErrCodeCorrupt            ErrorCode = "CORRUPT"
)

// Kind groups codes into the auth, validation and store families.
func (c ErrorCode) Kind() string {
	switch c {
	case ErrCodeInvalidCredentials, ErrCodeForbidden, ErrCodeTooManyAttempts:
		return "auth"
	case ErrCodeEmptyComment, ErrCodeMissingField, ErrCodeValidation:
		return "validation"
	case ErrCodeNotFound, ErrCodeConflict, ErrCodeReadFailed, ErrCodeWriteFailed, ErrCodeCorrupt:
		return "store"
	default:
		return "internal"
	}
}

type AppError struct {
	Code    ErrorCode
	Message string
	Cause   error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// Is matches any AppError carrying the same code, so errors.Is(err, ErrForbidden)
// holds for every forbidden error regardless of its message.
func (e *AppError) Is(target error) bool {
	var t *AppError
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

func New(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

func Wrap(err error, code ErrorCode, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   err,
	}
}

// CodeOf returns the code of the outermost AppError in the chain, or "".
func CodeOf(err error) ErrorCode {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ""
}

func HasCode(err error, code ErrorCode) bool {
	return CodeOf(err) == code
}

func IsNotFound(err error) bool {
	return HasCode(err, ErrCodeNotFound)
}

func IsForbidden(err error) bool {
	return HasCode(err, ErrCodeForbidden)
}

func IsValidation(err error) bool {
	return CodeOf(err).Kind() == "validation"
}

var (
	ErrInvalidCredentials = New(ErrCodeInvalidCredentials, "invalid credentials")
	ErrForbidden          = New(ErrCodeForbidden, "operation not permitted for this role")
	ErrTooManyAttempts    = New(ErrCodeTooManyAttempts, "too many failed login attempts, try again later")
	ErrEmptyComment       = New(ErrCodeEmptyComment, "comment must not be blank")
	ErrMissingField       = New(ErrCodeMissingField, "required field is blank")
	ErrComplaintNotFound  = New(ErrCodeNotFound, "complaint not found")
	ErrConflict           = New(ErrCodeConflict, "complaint was modified concurrently")
	ErrReadFailed         = New(ErrCodeReadFailed, "failed to read from storage")
	ErrWriteFailed        = New(ErrCodeWriteFailed, "failed to write to storage")
	ErrCorrupt            = New(ErrCodeCorrupt, "persisted data is malformed")
)
