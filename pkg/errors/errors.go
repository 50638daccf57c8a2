package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorCode identifies a domain outcome independent of transport.
type ErrorCode string

const (
	ErrNotFound                     ErrorCode = "NOT_FOUND"
	ErrBadRequest                   ErrorCode = "BAD_REQUEST"
	ErrUnauthorized                 ErrorCode = "UNAUTHORIZED"
	ErrInternal                     ErrorCode = "INTERNAL"
	ErrInvalidSubjectOrPractitioner ErrorCode = "INVALID_SUBJECT_OR_PRACTITIONER"
	ErrOutsideWorkingHours          ErrorCode = "OUTSIDE_WORKING_HOURS"
	ErrSchedulingConflict           ErrorCode = "SCHEDULING_CONFLICT"
	ErrCancellationWindowExpired    ErrorCode = "CANCELLATION_WINDOW_EXPIRED"
	ErrInvalidTransition            ErrorCode = "INVALID_TRANSITION"
	ErrMalformedSchedule            ErrorCode = "MALFORMED_SCHEDULE"
)

// AppError is an expected domain outcome, returned as a value to the caller.
// Infrastructure failures are wrapped with ErrInternal and carry no domain meaning.
type AppError struct {
	Code    ErrorCode              `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
	Err     error                  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// StatusCode maps the domain outcome to an HTTP status for the error middleware.
func (e *AppError) StatusCode() int {
	switch e.Code {
	case ErrNotFound:
		return http.StatusNotFound
	case ErrBadRequest, ErrMalformedSchedule:
		return http.StatusBadRequest
	case ErrUnauthorized:
		return http.StatusUnauthorized
	case ErrInvalidSubjectOrPractitioner:
		return http.StatusUnprocessableEntity
	case ErrSchedulingConflict:
		return http.StatusConflict
	case ErrOutsideWorkingHours, ErrCancellationWindowExpired, ErrInvalidTransition:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// WithDetail attaches a key/value to the error, returning the same error for chaining.
func (e *AppError) WithDetail(key string, value interface{}) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// CodeOf extracts the domain code from an error chain, ErrInternal if none.
func CodeOf(err error) ErrorCode {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ErrInternal
}

// Is reports whether err carries the given domain code anywhere in its chain.
func Is(err error, code ErrorCode) bool {
	return CodeOf(err) == code
}

func newError(code ErrorCode, message string, err error) *AppError {
	return &AppError{Code: code, Message: message, Err: err}
}

func NotFound(resource string, err error) *AppError {
	return newError(ErrNotFound, fmt.Sprintf("%s not found", resource), err)
}

func BadRequest(message string, err error) *AppError {
	return newError(ErrBadRequest, message, err)
}

func Unauthorized(err error) *AppError {
	return newError(ErrUnauthorized, "unauthorized", err)
}

func Internal(err error) *AppError {
	return newError(ErrInternal, "internal server error", err)
}

func InvalidSubjectOrPractitioner(message string) *AppError {
	return newError(ErrInvalidSubjectOrPractitioner, message, nil)
}

func OutsideWorkingHours(message string) *AppError {
	return newError(ErrOutsideWorkingHours, message, nil)
}

func SchedulingConflict(message string) *AppError {
	return newError(ErrSchedulingConflict, message, nil)
}

func CancellationWindowExpired(message string) *AppError {
	return newError(ErrCancellationWindowExpired, message, nil)
}

func InvalidTransition(message string) *AppError {
	return newError(ErrInvalidTransition, message, nil)
}

func MalformedSchedule(message string, err error) *AppError {
	return newError(ErrMalformedSchedule, message, err)
}
