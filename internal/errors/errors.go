package errors

import (
	"fmt"
)

// RetrieverError is the structured error type for the retrieval engine.
// It carries enough context for logging and for callers deciding whether to
// retry or degrade.
type RetrieverError struct {
	// Code is the unique error code (e.g., "ERR_DIMENSION_MISMATCH").
	Code string

	// Message is the human-readable error message.
	Message string

	// Category is the error category (Config, Index, Query, Internal).
	Category Category

	// Severity is the error severity level.
	Severity Severity

	// Details contains additional context as key-value pairs.
	Details map[string]string

	// Cause is the underlying error that caused this error.
	Cause error

	// Retryable indicates if the operation can be retried.
	Retryable bool
}

// Error implements the error interface.
func (e *RetrieverError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for error chain support.
func (e *RetrieverError) Unwrap() error {
	return e.Cause
}

// Is checks if this error matches the target error by code.
// This enables errors.Is() to work with RetrieverError.
func (e *RetrieverError) Is(target error) bool {
	if t, ok := target.(*RetrieverError); ok {
		return e.Code == t.Code
	}
	return false
}

// WithDetail adds a key-value detail to the error.
// Returns the error for method chaining.
func (e *RetrieverError) WithDetail(key, value string) *RetrieverError {
	if e.Details == nil {
		e.Details = make(map[string]string)
	}
	e.Details[key] = value
	return e
}

// New creates a new RetrieverError with the given code and message.
// Category, severity, and retryable flag are derived from the code.
func New(code string, message string, cause error) *RetrieverError {
	return &RetrieverError{
		Code:      code,
		Message:   message,
		Category:  categoryFromCode(code),
		Severity:  severityFromCode(code),
		Cause:     cause,
		Retryable: isRetryableCode(code),
	}
}

// Wrap creates a RetrieverError from an existing error.
// The error's message becomes the RetrieverError message.
func Wrap(code string, err error) *RetrieverError {
	if err == nil {
		return nil
	}
	return New(code, err.Error(), err)
}

// NotReady reports that a search arrived before any index was activated.
func NotReady(message string) *RetrieverError {
	return New(ErrCodeNotReady, message, nil)
}

// IndexCorrupt reports a persisted index that failed validation on load.
func IndexCorrupt(message string, cause error) *RetrieverError {
	return New(ErrCodeIndexCorrupt, message, cause)
}

// DimensionMismatch reports a query embedding whose dimension disagrees
// with the active dense index.
func DimensionMismatch(message string) *RetrieverError {
	return New(ErrCodeDimensionMismatch, message, nil)
}

// DenseSearchError wraps a failure in the dense retrieval leg. Callers
// degrade to bm25_only rather than fail the whole search.
func DenseSearchError(cause error) *RetrieverError {
	return Wrap(ErrCodeDenseSearchError, cause)
}

// BuildEmpty reports an index build attempted over zero chunks.
func BuildEmpty(message string) *RetrieverError {
	return New(ErrCodeBuildEmpty, message, nil)
}

// DocumentNotFound reports a metadata lookup for a document id with no
// matching row.
func DocumentNotFound(docID string) *RetrieverError {
	return New(ErrCodeDocumentNotFound, "document not found", nil).WithDetail("document_id", docID)
}

// ConfigError creates a configuration-related error.
func ConfigError(message string, cause error) *RetrieverError {
	return New(ErrCodeConfigInvalid, message, cause)
}

// IsRetryable checks if an error is retryable.
// Returns true if the error is a RetrieverError with Retryable flag set.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if re, ok := err.(*RetrieverError); ok {
		return re.Retryable
	}
	return false
}

// IsFatal checks if an error has fatal severity.
// Fatal errors should abort the current operation.
func IsFatal(err error) bool {
	if err == nil {
		return false
	}
	if re, ok := err.(*RetrieverError); ok {
		return re.Severity == SeverityFatal
	}
	return false
}

// GetCode extracts the error code from a RetrieverError.
// Returns empty string if not a RetrieverError.
func GetCode(err error) string {
	if re, ok := err.(*RetrieverError); ok {
		return re.Code
	}
	return ""
}

// GetCategory extracts the category from a RetrieverError.
// Returns empty string if not a RetrieverError.
func GetCategory(err error) Category {
	if re, ok := err.(*RetrieverError); ok {
		return re.Category
	}
	return ""
}
