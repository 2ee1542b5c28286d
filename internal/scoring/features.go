package scoring

import "fmt"

// Column names as the classifier was trained on them.
const (
	ColGender             = "Gender"
	ColAge                = "Age"
	ColWorkPressure       = "Work Pressure"
	ColJobSatisfaction    = "Job Satisfaction"
	ColSleepDuration      = "Sleep Duration"
	ColDietaryHabits      = "Dietary Habits"
	ColSuicidalThoughts   = "Suicidal Thoughts"
	ColWorkHours          = "Work Hours"
	ColFinancialStress    = "Financial Stress"
	ColFamilyMentalHealth = "Family Mental Health"
)

// FeatureColumns is the column order of every encoded row. Reordering it
// changes predictions without any error, so it is pinned by tests.
var FeatureColumns = [NumFeatures]string{
	ColGender,
	ColAge,
	ColWorkPressure,
	ColJobSatisfaction,
	ColSleepDuration,
	ColDietaryHabits,
	ColSuicidalThoughts,
	ColWorkHours,
	ColFinancialStress,
	ColFamilyMentalHealth,
}

// ScaledColumns lists the columns passed through the scaler, in the order the
// scaler was fitted on. This is not the row order.
var ScaledColumns = [NumScaled]string{
	ColAge,
	ColWorkHours,
	ColWorkPressure,
	ColJobSatisfaction,
	ColSleepDuration,
	ColDietaryHabits,
	ColFinancialStress,
}

const (
	NumFeatures = 10
	NumScaled   = 7
)

// Row positions of each column in FeatureColumns.
const (
	idxGender = iota
	idxAge
	idxWorkPressure
	idxJobSatisfaction
	idxSleepDuration
	idxDietaryHabits
	idxSuicidalThoughts
	idxWorkHours
	idxFinancialStress
	idxFamilyMentalHealth
)

// FeatureRow is an encoded row in FeatureColumns order.
type FeatureRow []float64

// ColumnIndex returns the row position of a named column.
func ColumnIndex(name string) (int, error) {
	for i, c := range FeatureColumns {
		if c == name {
			return i, nil
		}
	}
	return -1, fmt.Errorf("unknown feature column %q", name)
}

// scaledIndices maps each ScaledColumns entry to its row position.
var scaledIndices = func() [NumScaled]int {
	var out [NumScaled]int
	for i, name := range ScaledColumns {
		idx, err := ColumnIndex(name)
		if err != nil {
			panic(err)
		}
		out[i] = idx
	}
	return out
}()

// IsScaled reports whether the row position is transformed by the scaler.
func IsScaled(idx int) bool {
	for _, s := range scaledIndices {
		if s == idx {
			return true
		}
	}
	return false
}

// Value returns the named column of the row.
func (r FeatureRow) Value(name string) (float64, error) {
	idx, err := ColumnIndex(name)
	if err != nil {
		return 0, err
	}
	if idx >= len(r) {
		return 0, fmt.Errorf("%w: row has %d columns", ErrInvalidFeatureRow, len(r))
	}
	return r[idx], nil
}

// Clone returns a copy of the row.
func (r FeatureRow) Clone() FeatureRow {
	out := make(FeatureRow, len(r))
	copy(out, r)
	return out
}
