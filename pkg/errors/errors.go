// Package errors provides typed errors for alm-linker
package errors

import (
	"errors"
	"fmt"
)

// ErrorType represents the category of error
type ErrorType int

const (
	// ErrConfig indicates a configuration error
	ErrConfig ErrorType = iota
	// ErrEvent indicates a CI event context error
	ErrEvent
	// ErrPlatform indicates an ALM platform API error
	ErrPlatform
	// ErrResolve indicates an entity resolution error
	ErrResolve
	// ErrUpload indicates a file upload or processing error
	ErrUpload
	// ErrLink indicates a reference field linking error
	ErrLink
)

// LinkerError is the base error type for all alm-linker errors
type LinkerError struct {
	Type    ErrorType
	Message string
	Cause   error
}

// Error returns the error message
func (e *LinkerError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", errorTypeString(e.Type), e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", errorTypeString(e.Type), e.Message)
}

// Unwrap returns the underlying cause
func (e *LinkerError) Unwrap() error {
	return e.Cause
}

// New creates a new LinkerError
func New(errType ErrorType, message string, cause error) *LinkerError {
	return &LinkerError{
		Type:    errType,
		Message: message,
		Cause:   cause,
	}
}

// ConfigError creates a configuration error
func ConfigError(message string, cause error) *LinkerError {
	return New(ErrConfig, message, cause)
}

// EventError creates a CI event context error
func EventError(message string, cause error) *LinkerError {
	return New(ErrEvent, message, cause)
}

// ResolveError creates an entity resolution error
func ResolveError(message string, cause error) *LinkerError {
	return New(ErrResolve, message, cause)
}

// UploadError creates an upload/processing error
func UploadError(message string, cause error) *LinkerError {
	return New(ErrUpload, message, cause)
}

// LinkError creates a linking error
func LinkError(message string, cause error) *LinkerError {
	return New(ErrLink, message, cause)
}

// IsType checks if an error is of a specific type
func IsType(err error, errType ErrorType) bool {
	var linkErr *LinkerError
	if err == nil {
		return false
	}
	if errors.As(err, &linkErr) {
		return linkErr.Type == errType
	}
	return false
}

func errorTypeString(et ErrorType) string {
	switch et {
	case ErrConfig:
		return "CONFIG"
	case ErrEvent:
		return "EVENT"
	case ErrPlatform:
		return "PLATFORM"
	case ErrResolve:
		return "RESOLVE"
	case ErrUpload:
		return "UPLOAD"
	case ErrLink:
		return "LINK"
	default:
		return "UNKNOWN"
	}
}
