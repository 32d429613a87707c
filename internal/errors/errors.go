package errors

import (
	"fmt"
)

// DocdexError is the structured error type for docdex.
// It provides rich context for error handling, logging, and user presentation.
type DocdexError struct {
	// Code is the unique error code (e.g., "ERR_403_UNKNOWN_REFERENCE").
	Code string

	// Message is the human-readable error message.
	Message string

	// Category is the error category (Config, IO, Provider, etc.).
	Category Category

	// Severity is the error severity level.
	Severity Severity

	// Details contains additional context as key-value pairs.
	Details map[string]string

	// Cause is the underlying error that caused this error.
	Cause error

	// Retryable indicates if the operation can be retried.
	Retryable bool

	// Suggestion is an actionable suggestion for the user.
	Suggestion string
}

// Error implements the error interface.
func (e *DocdexError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for error chain support.
func (e *DocdexError) Unwrap() error {
	return e.Cause
}

// Is checks if this error matches the target error by code.
// This enables errors.Is() to work with DocdexError.
func (e *DocdexError) Is(target error) bool {
	if t, ok := target.(*DocdexError); ok {
		return e.Code == t.Code
	}
	return false
}

// WithDetail adds a key-value detail to the error.
// Returns the error for method chaining.
func (e *DocdexError) WithDetail(key, value string) *DocdexError {
	if e.Details == nil {
		e.Details = make(map[string]string)
	}
	e.Details[key] = value
	return e
}

// WithSuggestion adds an actionable suggestion for the user.
// Returns the error for method chaining.
func (e *DocdexError) WithSuggestion(suggestion string) *DocdexError {
	e.Suggestion = suggestion
	return e
}

// New creates a new DocdexError with the given code and message.
// Category, severity, and retryable flag are derived from the code.
func New(code string, message string, cause error) *DocdexError {
	return &DocdexError{
		Code:      code,
		Message:   message,
		Category:  categoryFromCode(code),
		Severity:  severityFromCode(code),
		Cause:     cause,
		Retryable: isRetryableCode(code),
	}
}

// Wrap creates a DocdexError from an existing error.
// The error's message becomes the DocdexError message.
func Wrap(code string, err error) *DocdexError {
	if err == nil {
		return nil
	}
	return New(code, err.Error(), err)
}

// UnsupportedFormat reports a document whose extension is outside the
// supported set. The path is attached as a detail.
func UnsupportedFormat(path string) *DocdexError {
	return New(ErrCodeUnsupportedFormat, fmt.Sprintf("unsupported document format: %s", path), nil).
		WithDetail("path", path)
}

// MalformedDocument reports a document that could not be parsed.
func MalformedDocument(path string, cause error) *DocdexError {
	return New(ErrCodeMalformedDocument, fmt.Sprintf("malformed document: %s", path), cause).
		WithDetail("path", path)
}

// PathTraversal reports a path that resolves outside its docset root.
func PathTraversal(path string) *DocdexError {
	return New(ErrCodePathTraversal, fmt.Sprintf("path escapes docset root: %s", path), nil).
		WithDetail("path", path)
}

// UnknownReference reports a doc_ref that does not resolve in the live index.
func UnknownReference(ref string) *DocdexError {
	return New(ErrCodeUnknownReference, fmt.Sprintf("unknown reference: %s", ref), nil).
		WithDetail("doc_ref", ref).
		WithSuggestion("the index may have been rebuilt; run a fresh search to obtain current references")
}

// EmbeddingProvider reports a failed embedding call.
func EmbeddingProvider(model string, cause error) *DocdexError {
	return New(ErrCodeEmbeddingProvider, "embedding provider request failed", cause).
		WithDetail("model", model)
}

// SnapshotMismatch reports a snapshot whose fingerprint does not match the
// current configuration. Callers treat this as a rebuild trigger.
func SnapshotMismatch(want, got string) *DocdexError {
	return New(ErrCodeSnapshotMismatch, "snapshot fingerprint mismatch", nil).
		WithDetail("want", want).
		WithDetail("got", got)
}

// RouterNoMatch reports an explicit docset filter that matched nothing.
func RouterNoMatch(filter string) *DocdexError {
	return New(ErrCodeRouterNoMatch, fmt.Sprintf("no docset matches filter: %s", filter), nil).
		WithDetail("filter", filter)
}

// UnknownDocset reports a docset id absent from the registry.
func UnknownDocset(id string) *DocdexError {
	return New(ErrCodeUnknownDocset, fmt.Sprintf("unknown docset: %s", id), nil).
		WithDetail("docset", id)
}

// ConfigError creates a configuration-related error.
func ConfigError(message string, cause error) *DocdexError {
	return New(ErrCodeConfigInvalid, message, cause)
}

// RegistryError creates a docset registry error.
func RegistryError(message string, cause error) *DocdexError {
	return New(ErrCodeRegistryInvalid, message, cause)
}

// ValidationError creates a query validation error.
func ValidationError(message string, cause error) *DocdexError {
	return New(ErrCodeInvalidQuery, message, cause)
}

// InternalError creates an internal error.
func InternalError(message string, cause error) *DocdexError {
	return New(ErrCodeInternal, message, cause)
}

// IsRetryable checks if an error is retryable.
// Returns true if the error is a DocdexError with Retryable flag set.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if de, ok := err.(*DocdexError); ok {
		return de.Retryable
	}
	return false
}

// IsFatal checks if an error has fatal severity.
// Fatal errors should abort the current operation.
func IsFatal(err error) bool {
	if err == nil {
		return false
	}
	if de, ok := err.(*DocdexError); ok {
		return de.Severity == SeverityFatal
	}
	return false
}

// GetCode extracts the error code from a DocdexError.
// Returns empty string if not a DocdexError.
func GetCode(err error) string {
	if de, ok := err.(*DocdexError); ok {
		return de.Code
	}
	return ""
}

// GetCategory extracts the category from a DocdexError.
// Returns empty string if not a DocdexError.
func GetCategory(err error) Category {
	if de, ok := err.(*DocdexError); ok {
		return de.Category
	}
	return ""
}
