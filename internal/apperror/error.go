package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

// AppError implements the error interface and provides structured error handling
type AppError struct {
	Code       Code      `json:"code"`
	Message    string    `json:"message"`
	StatusCode int       `json:"statusCode"`
	Context    string    `json:"context,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
	cause      error
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Context != "" {
		return fmt.Sprintf("%s: %s (context: %s)", e.Code, e.Message, e.Context)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap implements the errors.Unwrap interface
func (e *AppError) Unwrap() error {
	return e.cause
}

// Is implements errors.Is interface for error comparison
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// Category returns the category of the error code.
func (e *AppError) Category() Category {
	return CategoryOf(e.Code)
}

// New creates a new AppError with the given code and options
func New(code Code, opts ...Option) *AppError {
	err := &AppError{
		Code:       code,
		Message:    messages[code],
		StatusCode: getDefaultStatusCode(code),
		Timestamp:  time.Now(),
	}

	for _, opt := range opts {
		opt(err)
	}

	// If message wasn't set by options and isn't in messages map, use code as message
	if err.Message == "" {
		err.Message = string(code)
	}

	return err
}

// Option is a functional option for AppError
type Option func(*AppError)

// WithMessage sets a custom message
func WithMessage(message string) Option {
	return func(e *AppError) {
		e.Message = message
	}
}

// WithContext adds context information
func WithContext(context string) Option {
	return func(e *AppError) {
		e.Context = context
	}
}

// WithStatusCode sets a custom HTTP status code
func WithStatusCode(statusCode int) Option {
	return func(e *AppError) {
		e.StatusCode = statusCode
	}
}

// WithCause wraps an underlying error
func WithCause(cause error) Option {
	return func(e *AppError) {
		e.cause = cause
	}
}

// Factory methods for common error types

// Validation creates a user-facing validation error.
func Validation(code Code, message string) *AppError {
	return New(code, WithMessage(message), WithStatusCode(http.StatusBadRequest))
}

// Provider creates an error for a failed upstream market data call.
func Provider(code Code, message string, cause error) *AppError {
	opts := []Option{WithCause(cause), WithStatusCode(http.StatusUnprocessableEntity)}
	if message != "" {
		opts = append(opts, WithMessage(message))
	}
	return New(code, opts...)
}

// Wrap returns err as an AppError. Plain errors get code and keep their text
// as the message.
func Wrap(err error, code Code, context string) *AppError {
	if err == nil {
		return nil
	}

	// If it's already an AppError, return it
	var appErr *AppError
	if errors.As(err, &appErr) {
		if context != "" && appErr.Context == "" {
			appErr.Context = context
		}
		return appErr
	}

	return New(code, WithMessage(err.Error()), WithContext(context), WithCause(err))
}

// IsAppError checks if an error is an AppError
func IsAppError(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr)
}

// GetCode extracts the error code from an error
func GetCode(err error) Code {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return CodeUnknownError
}

// IsCategory reports whether err is an AppError of the given category.
func IsCategory(err error, category Category) bool {
	var appErr *AppError
	if !errors.As(err, &appErr) {
		return category == CategoryUnexpected
	}
	return appErr.Category() == category
}

// getDefaultStatusCode determines the HTTP status code based on the error code
func getDefaultStatusCode(code Code) int {
	switch CategoryOf(code) {
	case CategoryValidation:
		return http.StatusBadRequest
	case CategoryNoPath, CategoryProvider:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}
