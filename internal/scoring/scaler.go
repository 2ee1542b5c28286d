package scoring

import (
	"fmt"
	"math"
)

// StandardScaler applies a fitted (x - mean) / scale transform to the
// columns it was fitted on.
type StandardScaler struct {
	columns []string
	mean    []float64
	scale   []float64
}

// NewStandardScaler validates the fitted parameters. Scales must be finite
// and non-zero.
func NewStandardScaler(columns []string, mean, scale []float64) (*StandardScaler, error) {
	if len(columns) == 0 {
		return nil, fmt.Errorf("scaler has no columns")
	}
	if len(mean) != len(columns) || len(scale) != len(columns) {
		return nil, fmt.Errorf("scaler parameter length mismatch: %d columns, %d means, %d scales",
			len(columns), len(mean), len(scale))
	}
	for i := range columns {
		if math.IsNaN(mean[i]) || math.IsInf(mean[i], 0) {
			return nil, fmt.Errorf("scaler mean for %s is not finite", columns[i])
		}
		if scale[i] == 0 || math.IsNaN(scale[i]) || math.IsInf(scale[i], 0) {
			return nil, fmt.Errorf("scaler scale for %s must be finite and non-zero", columns[i])
		}
	}
	return &StandardScaler{
		columns: append([]string(nil), columns...),
		mean:    append([]float64(nil), mean...),
		scale:   append([]float64(nil), scale...),
	}, nil
}

// Columns returns the column names in fitted order.
func (s *StandardScaler) Columns() []string {
	return append([]string(nil), s.columns...)
}

// Transform scales values, given in fitted column order, in place.
func (s *StandardScaler) Transform(values []float64) error {
	if len(values) != len(s.columns) {
		return fmt.Errorf("%w: scaler expects %d values, got %d", ErrInvalidFeatureRow, len(s.columns), len(values))
	}
	for i, v := range values {
		values[i] = (v - s.mean[i]) / s.scale[i]
	}
	return nil
}
