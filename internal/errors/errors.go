package errors

import (
	"errors"
	"fmt"
)

// ErrorCode represents stable error codes for all fatal failure modes
type ErrorCode string

const (
	// ConfigInvalid indicates the project description failed validation
	ConfigInvalid ErrorCode = "CONFIG_INVALID"
	// ConfigNotFound indicates the project description file does not exist
	ConfigNotFound ErrorCode = "CONFIG_NOT_FOUND"
	// CatalogEmpty indicates no internal file was cataloged
	CatalogEmpty ErrorCode = "CATALOG_EMPTY"
	// PackageNotFound indicates a component refers to an unknown package
	PackageNotFound ErrorCode = "PACKAGE_NOT_FOUND"
	// SearchPathInvalid indicates a malformed search path
	SearchPathInvalid ErrorCode = "SEARCH_PATH_INVALID"
	// DuplicateDefinition indicates a group, package or path defined twice
	DuplicateDefinition ErrorCode = "DUPLICATE_DEFINITION"
	// IOFailure indicates a filesystem read or write failed
	IOFailure ErrorCode = "IO_FAILURE"
	// InternalError indicates a broken engine invariant
	InternalError ErrorCode = "INTERNAL_ERROR"
)

// AnalysisError represents a fatal cppdep error with code, message and suggestion
type AnalysisError struct {
	Code         ErrorCode   `json:"code"`
	Message      string      `json:"message"`
	Details      interface{} `json:"details,omitempty"`
	SuggestedFix string      `json:"suggestedFix,omitempty"`
	cause        error       // Underlying error (not exported to JSON)
}

// New creates a new AnalysisError with the default suggestion for its code
func New(code ErrorCode, message string, cause error) *AnalysisError {
	return &AnalysisError{
		Code:         code,
		Message:      message,
		SuggestedFix: GetSuggestedFix(code),
		cause:        cause,
	}
}

// Newf creates a new AnalysisError without a cause from a format string
func Newf(code ErrorCode, format string, args ...interface{}) *AnalysisError {
	return New(code, fmt.Sprintf(format, args...), nil)
}

// Error implements the error interface
func (e *AnalysisError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *AnalysisError) Unwrap() error {
	return e.cause
}

// Is matches any AnalysisError carrying the same code
func (e *AnalysisError) Is(target error) bool {
	t, ok := target.(*AnalysisError)
	if !ok {
		return false
	}
	return t.Code == e.Code && t.Message == ""
}

// WithDetails adds details to the error
func (e *AnalysisError) WithDetails(details interface{}) *AnalysisError {
	e.Details = details
	return e
}

// Sentinel returns a code-only error for errors.Is checks
func Sentinel(code ErrorCode) *AnalysisError {
	return &AnalysisError{Code: code}
}

// CodeOf extracts the code of the first AnalysisError in the chain
func CodeOf(err error) (ErrorCode, bool) {
	var ae *AnalysisError
	if errors.As(err, &ae) {
		return ae.Code, true
	}
	return "", false
}

// IsFatalConfig reports whether err is a configuration or input fault
func IsFatalConfig(err error) bool {
	code, ok := CodeOf(err)
	if !ok {
		return false
	}
	switch code {
	case ConfigInvalid, ConfigNotFound, CatalogEmpty, PackageNotFound, SearchPathInvalid, DuplicateDefinition:
		return true
	}
	return false
}

// suggestedFixes maps error codes to a suggested next step
var suggestedFixes = map[ErrorCode]string{
	ConfigNotFound:      "create .cppdep.yml or pass --config",
	ConfigInvalid:       "check the project description against the documented schema",
	CatalogEmpty:        "check the src paths of internal packages",
	SearchPathInvalid:   "search paths must be absolute directories",
	DuplicateDefinition: "remove the duplicated group, package or path",
	InternalError:       "please report this as a bug with the project description attached",
}

// GetSuggestedFix returns the suggested fix for an error code
func GetSuggestedFix(code ErrorCode) string {
	return suggestedFixes[code]
}
