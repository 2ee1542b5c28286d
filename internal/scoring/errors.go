package scoring

import (
	"errors"

	apperrors "depression-risk-service/internal/common/errors"
)

var (
	// ErrInvalidFeatureRow is returned for rows of the wrong width or with
	// non-finite values.
	ErrInvalidFeatureRow = errors.New("invalid feature row")

	// ErrInvalidProbability is returned when a classifier yields a value
	// outside [0, 1].
	ErrInvalidProbability = errors.New("invalid probability")
)

// ToStandardError maps a pipeline error onto the shared error model.
func ToStandardError(err error) *apperrors.StandardError {
	if err == nil {
		return nil
	}
	var unknown *UnknownCategoryError
	switch {
	case errors.As(err, &unknown):
		return apperrors.NewUnknownCategoryError(unknown.Field, unknown.Value, err)
	case errors.Is(err, ErrInvalidFeatureRow):
		return apperrors.NewInvalidFeatureRowError(err)
	case errors.Is(err, ErrInvalidProbability):
		return apperrors.NewScoringFailedError(err)
	}
	if se, ok := apperrors.AsStandardError(err); ok {
		return se
	}
	return apperrors.NewScoringFailedError(err)
}
