// Package errors provides the structured error model shared by the HTTP and
// job transports.
package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// ==========================
// 1. Standard Error Types
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	ErrCodeValidationFailed   ErrorCode = "VALIDATION_FAILED"
	ErrCodeUnknownCategory    ErrorCode = "UNKNOWN_CATEGORY"
	ErrCodeArtifactLoadFailed ErrorCode = "ARTIFACT_LOAD_FAILED"
	ErrCodeInvalidFeatureRow  ErrorCode = "INVALID_FEATURE_ROW"
	ErrCodeScoringFailed      ErrorCode = "SCORING_FAILED"
	ErrCodeInternal           ErrorCode = "INTERNAL_ERROR"
)

// FieldError describes one rejected request field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Fields    []FieldError           `json:"fields,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`

	cause error
}

func (e *StandardError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("StandardError[%s]: %s: %s", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

func (e *StandardError) Unwrap() error {
	return e.cause
}

// ==========================
// 2. Error Constructors
// ==========================

// NewValidationError reports a malformed, missing or mistyped request field.
func NewValidationError(fields []FieldError) *StandardError {
	parts := make([]string, len(fields))
	for i, f := range fields {
		parts[i] = fmt.Sprintf("%s: %s", f.Field, f.Message)
	}
	return &StandardError{
		Code:      ErrCodeValidationFailed,
		Message:   "Request validation failed",
		Details:   strings.Join(parts, "; "),
		Fields:    fields,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewUnknownCategoryError reports a categorical value the fitted encoder never saw.
func NewUnknownCategoryError(field, value string, cause error) *StandardError {
	return &StandardError{
		Code:      ErrCodeUnknownCategory,
		Message:   fmt.Sprintf("Unrecognized value for %s", field),
		Details:   fmt.Sprintf("field: %s, value: %q", field, value),
		Fields:    []FieldError{{Field: field, Message: fmt.Sprintf("unknown category %q", value), Code: string(ErrCodeUnknownCategory)}},
		Retryable: false,
		Metadata:  map[string]interface{}{"field": field, "value": value},
		Timestamp: time.Now().UTC(),
		cause:     cause,
	}
}

// NewArtifactLoadError is fatal at startup; it never reaches a client.
func NewArtifactLoadError(artifact string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeArtifactLoadFailed,
		Message:   "Model artifact could not be loaded",
		Details:   fmt.Sprintf("artifact: %s, error: %v", artifact, err),
		Retryable: false,
		Metadata:  map[string]interface{}{"artifact": artifact},
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

// NewArtifactFetchError reports a transient failure reaching the artifact
// source. Startup retries it.
func NewArtifactFetchError(artifact string, err error) *StandardError {
	e := NewArtifactLoadError(artifact, err)
	e.Message = "Model artifact source is unavailable"
	e.Retryable = true
	return e
}

func NewInvalidFeatureRowError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeInvalidFeatureRow,
		Message:   "Feature row does not match the model contract",
		Details:   err.Error(),
		Retryable: false,
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

func NewScoringFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeScoringFailed,
		Message:   "Prediction could not be computed",
		Details:   err.Error(),
		Retryable: false,
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

func NewInternalError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeInternal,
		Message:   "Unexpected error",
		Details:   err.Error(),
		Retryable: false,
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

// ==========================
// 3. Error Mapping
// ==========================

// HTTPStatus maps an error code onto the status returned by the HTTP transport.
func HTTPStatus(code ErrorCode) int {
	switch code {
	case ErrCodeValidationFailed:
		return http.StatusBadRequest
	case ErrCodeUnknownCategory:
		return http.StatusUnprocessableEntity
	case ErrCodeArtifactLoadFailed:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// IsClientError reports whether the caller can fix the error by changing the request.
func IsClientError(code ErrorCode) bool {
	return code == ErrCodeValidationFailed || code == ErrCodeUnknownCategory
}

// GetErrorCategory groups error codes for logging and metrics.
func GetErrorCategory(code ErrorCode) string {
	switch code {
	case ErrCodeValidationFailed, ErrCodeUnknownCategory:
		return "VALIDATION"
	case ErrCodeArtifactLoadFailed:
		return "ARTIFACT"
	case ErrCodeInvalidFeatureRow, ErrCodeScoringFailed:
		return "SCORING"
	default:
		return "OTHER"
	}
}

// AsStandardError extracts a StandardError from an error chain.
func AsStandardError(err error) (*StandardError, bool) {
	var stdErr *StandardError
	if stderrors.As(err, &stdErr) {
		return stdErr, true
	}
	return nil, false
}
