package errors

import (
	"errors"
	"fmt"
)

// ErrorType represents different types of errors that can occur
type ErrorType string

const (
	ErrorTypeValidation  ErrorType = "validation"
	ErrorTypeNetwork     ErrorType = "network"
	ErrorTypeRateLimit   ErrorType = "rate_limit"
	ErrorTypeAuth        ErrorType = "auth"
	ErrorTypeParsing     ErrorType = "parsing"
	ErrorTypeNotFound    ErrorType = "not_found"
	ErrorTypeServerError ErrorType = "server_error"
	ErrorTypeUnknown     ErrorType = "unknown"
)

// Error represents an API error with type information
type Error struct {
	Type    ErrorType
	Message string
	Code    int
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s error (code %d): %s", e.Type, e.Code, e.Message)
}

// New creates a typed error with no HTTP status code
func New(errorType ErrorType, message string) *Error {
	return &Error{Type: errorType, Message: message}
}

// NewWithCode creates a typed error carrying an HTTP status code
func NewWithCode(errorType ErrorType, code int, message string) *Error {
	return &Error{Type: errorType, Message: message, Code: code}
}

// TypeOf returns the ErrorType of err, or ErrorTypeUnknown if err is not
// a typed error from this package.
func TypeOf(err error) ErrorType {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Type
	}
	return ErrorTypeUnknown
}

// IsNotFound reports whether err is a 404 / not-found error
func IsNotFound(err error) bool {
	return TypeOf(err) == ErrorTypeNotFound
}

// IsAuth reports whether err is an authentication error
func IsAuth(err error) bool {
	return TypeOf(err) == ErrorTypeAuth
}

// IsValidation reports whether err is an input validation error
func IsValidation(err error) bool {
	return TypeOf(err) == ErrorTypeValidation
}
