package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		code ErrorCode
		want int
	}{
		{ErrCodeValidationFailed, http.StatusBadRequest},
		{ErrCodeUnknownCategory, http.StatusUnprocessableEntity},
		{ErrCodeArtifactLoadFailed, http.StatusServiceUnavailable},
		{ErrCodeInvalidFeatureRow, http.StatusInternalServerError},
		{ErrCodeScoringFailed, http.StatusInternalServerError},
		{ErrCodeInternal, http.StatusInternalServerError},
		{"SOMETHING_ELSE", http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			assert.Equal(t, tt.want, HTTPStatus(tt.code))
		})
	}
}

func TestNewUnknownCategoryError(t *testing.T) {
	cause := stderrors.New("not in vocabulary")
	err := NewUnknownCategoryError("gender", "Unknown", cause)

	assert.Equal(t, ErrCodeUnknownCategory, err.Code)
	assert.False(t, err.Retryable)
	assert.Contains(t, err.Details, `"Unknown"`)
	require.Len(t, err.Fields, 1)
	assert.Equal(t, "gender", err.Fields[0].Field)
	assert.ErrorIs(t, err, cause)
	assert.True(t, IsClientError(err.Code))
}

func TestNewArtifactErrors_Retryability(t *testing.T) {
	cause := stderrors.New("dial tcp: connection refused")

	fetch := NewArtifactFetchError("scaler", cause)
	assert.Equal(t, ErrCodeArtifactLoadFailed, fetch.Code)
	assert.True(t, fetch.Retryable)
	assert.Equal(t, "scaler", fetch.Metadata["artifact"])
	assert.ErrorIs(t, fetch, cause)

	load := NewArtifactLoadError("scaler", cause)
	assert.False(t, load.Retryable)
}

func TestNewValidationError_JoinsFieldMessages(t *testing.T) {
	err := NewValidationError([]FieldError{
		{Field: "age", Message: "required field missing"},
		{Field: "gender", Message: "expected string"},
	})

	assert.Equal(t, ErrCodeValidationFailed, err.Code)
	assert.Equal(t, "age: required field missing; gender: expected string", err.Details)
	assert.Contains(t, err.Error(), "VALIDATION_FAILED")
}

func TestNormalize(t *testing.T) {
	t.Run("standard error passes through wrapped", func(t *testing.T) {
		orig := NewScoringFailedError(stderrors.New("nan"))
		wrapped := fmt.Errorf("score: %w", orig)

		got := Normalize(wrapped)
		assert.Same(t, orig, got)
	})

	t.Run("plain error becomes internal", func(t *testing.T) {
		got := Normalize(stderrors.New("boom"))
		assert.Equal(t, ErrCodeInternal, got.Code)
		assert.Equal(t, "boom", got.Details)
	})
}

func TestGetErrorCategory(t *testing.T) {
	assert.Equal(t, "VALIDATION", GetErrorCategory(ErrCodeValidationFailed))
	assert.Equal(t, "VALIDATION", GetErrorCategory(ErrCodeUnknownCategory))
	assert.Equal(t, "ARTIFACT", GetErrorCategory(ErrCodeArtifactLoadFailed))
	assert.Equal(t, "SCORING", GetErrorCategory(ErrCodeInvalidFeatureRow))
	assert.Equal(t, "OTHER", GetErrorCategory(ErrCodeInternal))
}

func TestToErrorVariables(t *testing.T) {
	err := NewUnknownCategoryError("sleep_duration", "3 hours", nil)
	vars := err.ToErrorVariables()

	assert.Equal(t, "UNKNOWN_CATEGORY", vars["errorCode"])
	assert.Equal(t, false, vars["retryable"])
	assert.Contains(t, vars, "errorFields")
	assert.Contains(t, vars, "timestamp")
}
