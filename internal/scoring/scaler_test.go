package scoring

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStandardScaler_Transform(t *testing.T) {
	s, err := NewStandardScaler([]string{"a", "b"}, []float64{10, -2}, []float64{2, 0.5})
	require.NoError(t, err)

	values := []float64{14, -1}
	require.NoError(t, s.Transform(values))
	assert.Equal(t, []float64{2, 2}, values)

	err = s.Transform([]float64{1})
	assert.ErrorIs(t, err, ErrInvalidFeatureRow)
}

func TestNewStandardScaler_Validation(t *testing.T) {
	tests := []struct {
		name   string
		cols   []string
		mean   []float64
		scale  []float64
		errMsg string
	}{
		{"no columns", nil, nil, nil, "no columns"},
		{"length mismatch", []string{"a"}, []float64{1, 2}, []float64{1}, "length mismatch"},
		{"zero scale", []string{"a"}, []float64{1}, []float64{0}, "non-zero"},
		{"nan scale", []string{"a"}, []float64{1}, []float64{math.NaN()}, "non-zero"},
		{"infinite mean", []string{"a"}, []float64{math.Inf(-1)}, []float64{1}, "not finite"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewStandardScaler(tt.cols, tt.mean, tt.scale)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}
