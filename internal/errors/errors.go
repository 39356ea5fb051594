package errors

import (
	"errors"
	"fmt"
)

// GatewayError is the structured error type for elasticmcp.
// It carries enough context for logging, CLI output and MCP error mapping.
type GatewayError struct {
	// Code is the unique error code (e.g., "ERR_303_ENGINE_ERROR").
	Code string

	// Message is the human-readable error message.
	Message string

	// Category is the error category (Config, Network, etc.).
	Category Category

	// Severity is the error severity level.
	Severity Severity

	// Details contains additional context as key-value pairs.
	Details map[string]string

	// Cause is the underlying error that caused this error.
	Cause error

	// Suggestion is an actionable suggestion for the user.
	Suggestion string
}

// Error implements the error interface.
func (e *GatewayError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for error chain support.
func (e *GatewayError) Unwrap() error {
	return e.Cause
}

// Is matches another GatewayError by code, so errors.Is works against
// sentinel values built with New.
func (e *GatewayError) Is(target error) bool {
	if t, ok := target.(*GatewayError); ok {
		return e.Code == t.Code
	}
	return false
}

// WithDetail adds a key-value detail to the error.
func (e *GatewayError) WithDetail(key, value string) *GatewayError {
	if e.Details == nil {
		e.Details = make(map[string]string)
	}
	e.Details[key] = value
	return e
}

// WithSuggestion adds an actionable suggestion for the user.
func (e *GatewayError) WithSuggestion(suggestion string) *GatewayError {
	e.Suggestion = suggestion
	return e
}

// New creates a GatewayError. Category and severity are derived from the code.
func New(code string, message string, cause error) *GatewayError {
	return &GatewayError{
		Code:     code,
		Message:  message,
		Category: categoryFromCode(code),
		Severity: severityFromCode(code),
		Cause:    cause,
	}
}

// Wrap creates a GatewayError from an existing error, reusing its message.
func Wrap(code string, err error) *GatewayError {
	if err == nil {
		return nil
	}
	return New(code, err.Error(), err)
}

// ConfigError creates a configuration-related error.
func ConfigError(message string, cause error) *GatewayError {
	return New(ErrCodeConfigInvalid, message, cause)
}

// NetworkError creates an error for a failed round-trip to the search engine.
func NetworkError(message string, cause error) *GatewayError {
	return New(ErrCodeNetworkUnavailable, message, cause)
}

// EngineError creates an error for a non-success response from the search engine.
func EngineError(message string, cause error) *GatewayError {
	return New(ErrCodeEngineError, message, cause)
}

// NotFoundError creates a document-not-found error.
func NotFoundError(message string, cause error) *GatewayError {
	return New(ErrCodeDocumentNotFound, message, cause)
}

// ValidationError creates a validation-related error.
func ValidationError(message string, cause error) *GatewayError {
	return New(ErrCodeInvalidInput, message, cause)
}

// InternalError creates an internal error.
func InternalError(message string, cause error) *GatewayError {
	return New(ErrCodeInternal, message, cause)
}

// IsFatal checks if an error has fatal severity.
func IsFatal(err error) bool {
	var ge *GatewayError
	if errors.As(err, &ge) {
		return ge.Severity == SeverityFatal
	}
	return false
}

// As returns the outermost GatewayError in err's chain.
func As(err error) (*GatewayError, bool) {
	var ge *GatewayError
	if errors.As(err, &ge) {
		return ge, true
	}
	return nil, false
}

// GetCode extracts the error code from a GatewayError anywhere in the chain.
// Returns empty string if there is none.
func GetCode(err error) string {
	if ge, ok := As(err); ok {
		return ge.Code
	}
	return ""
}

// GetCategory extracts the category from a GatewayError anywhere in the chain.
// Returns empty string if there is none.
func GetCategory(err error) Category {
	if ge, ok := As(err); ok {
		return ge.Category
	}
	return ""
}
