package common

import (
	"errors"
	"fmt"
)

// AppError represents application-specific errors
type AppError struct {
	Code    string
	Message string
	Cause   error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// Failure taxonomy. Only ErrConfiguration, ErrInvalidInput and
// ErrExtractionFailed surface as hard errors to callers; every other mode
// has a degraded output.
var (
	ErrConfiguration     = errors.New("configuration error")
	ErrExtractionFailed  = errors.New("extraction failed")
	ErrExtractionTimeout = errors.New("extraction timed out")
	ErrClustering        = errors.New("clustering failed")
	ErrCacheIO           = errors.New("cache io error")
	ErrMappingStore      = errors.New("mapping store error")
	ErrNotFound          = errors.New("resource not found")
	ErrInvalidInput      = errors.New("invalid input")
)

// Error constructors
func NewAppError(code, message string, cause error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

func WrapError(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}
