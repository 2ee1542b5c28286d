package scoring

import (
	"errors"
	"math"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "depression-risk-service/internal/common/errors"
)

func TestFeatureColumns_Order(t *testing.T) {
	assert.Equal(t, [NumFeatures]string{
		"Gender", "Age", "Work Pressure", "Job Satisfaction", "Sleep Duration",
		"Dietary Habits", "Suicidal Thoughts", "Work Hours", "Financial Stress",
		"Family Mental Health",
	}, FeatureColumns)

	assert.Equal(t, [NumScaled]string{
		"Age", "Work Hours", "Work Pressure", "Job Satisfaction", "Sleep Duration",
		"Dietary Habits", "Financial Stress",
	}, ScaledColumns)

	for _, name := range []string{ColGender, ColSuicidalThoughts, ColFamilyMentalHealth} {
		idx, err := ColumnIndex(name)
		require.NoError(t, err)
		assert.False(t, IsScaled(idx), name)
	}
	for _, name := range ScaledColumns {
		idx, err := ColumnIndex(name)
		require.NoError(t, err)
		assert.True(t, IsScaled(idx), name)
	}
}

func TestPipeline_Encode(t *testing.T) {
	p := testPipeline(t)

	row, err := p.Encode(sampleInput())
	require.NoError(t, err)
	assert.Equal(t, FeatureRow{1, 30, 3, 2, 1, 1, 0, 8, 4, 0}, row)

	age, err := row.Value(ColAge)
	require.NoError(t, err)
	assert.Equal(t, 30.0, age)
}

func TestPipeline_EncodeIsDeterministic(t *testing.T) {
	p := testPipeline(t)

	first, err := p.Encode(sampleInput())
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		again, err := p.Encode(sampleInput())
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestPipeline_UnknownCategory(t *testing.T) {
	p := testPipeline(t)

	tests := []struct {
		field  string
		mutate func(in *modelsInput)
		value  string
	}{
		{"gender", func(in *modelsInput) { in.Gender = "Unknown" }, "Unknown"},
		{"suicidal_thoughts", func(in *modelsInput) { in.SuicidalThoughts = "Maybe" }, "Maybe"},
		{"family_mental_health", func(in *modelsInput) { in.FamilyMentalHealth = "yes" }, "yes"},
		{"dietary_habits", func(in *modelsInput) { in.DietaryHabits = "Keto" }, "Keto"},
		{"sleep_duration", func(in *modelsInput) { in.SleepDuration = "9 hours" }, "9 hours"},
	}
	for _, tt := range tests {
		t.Run(tt.field, func(t *testing.T) {
			in := sampleInput()
			tt.mutate(&in)

			res, err := p.Score(in)
			require.Error(t, err)
			assert.Nil(t, res)

			var unknown *UnknownCategoryError
			require.True(t, errors.As(err, &unknown))
			assert.Equal(t, tt.field, unknown.Field)
			assert.Equal(t, tt.value, unknown.Value)
			assert.True(t, IsClientError(err))

			se := ToStandardError(err)
			assert.Equal(t, apperrors.ErrCodeUnknownCategory, se.Code)
			assert.Equal(t, tt.field, se.Fields[0].Field)
		})
	}
}

func TestPipeline_ScaleRow(t *testing.T) {
	p := testPipeline(t)

	row, err := p.Encode(sampleInput())
	require.NoError(t, err)
	before := row.Clone()

	require.NoError(t, p.ScaleRow(row))

	for i, name := range ScaledColumns {
		idx, _ := ColumnIndex(name)
		want := (before[idx] - testScalerMean[i]) / testScalerScale[i]
		assert.Equal(t, want, row[idx], name)
	}
}

func TestPipeline_ScaleRowLeavesCategoricalColumnsBitIdentical(t *testing.T) {
	p := testPipeline(t)

	inputs := []modelsInput{sampleInput(), sampleInput()}
	inputs[1].Gender = "Female"
	inputs[1].SuicidalThoughts = "Yes"
	inputs[1].FamilyMentalHealth = "Yes"

	for _, in := range inputs {
		row, err := p.Encode(in)
		require.NoError(t, err)
		before := row.Clone()

		require.NoError(t, p.ScaleRow(row))

		for _, name := range []string{ColGender, ColSuicidalThoughts, ColFamilyMentalHealth} {
			idx, _ := ColumnIndex(name)
			assert.Equal(t, math.Float64bits(before[idx]), math.Float64bits(row[idx]), name)
		}
	}
}

func TestPipeline_ColumnOrderMatters(t *testing.T) {
	p := testPipeline(t)

	row, err := p.Encode(sampleInput())
	require.NoError(t, err)
	require.NoError(t, p.ScaleRow(row))

	want, err := p.PredictProbability(row)
	require.NoError(t, err)

	scrambled := row.Clone()
	for i, j := 0, len(scrambled)-1; i < j; i, j = i+1, j-1 {
		scrambled[i], scrambled[j] = scrambled[j], scrambled[i]
	}
	got, err := p.PredictProbability(scrambled)
	require.NoError(t, err)

	assert.NotEqual(t, want, got)
	assert.Greater(t, math.Abs(want-got), 0.1)
}

func TestPipeline_EndToEnd(t *testing.T) {
	p := testPipeline(t)

	res, err := p.Score(sampleInput())
	require.NoError(t, err)

	assert.Contains(t, []string{"Low Risk", "Moderate Risk", "High Risk", "Very High Risk"}, res.RiskLevel)
	assert.GreaterOrEqual(t, res.Percentage, 0.0)
	assert.LessOrEqual(t, res.Percentage, 100.0)

	assert.InDelta(t, 0.8429045311145472, res.Probability, 1e-12)
	assert.Equal(t, string(RiskHigh), res.RiskLevel)
	assert.Equal(t, 84.29, res.Percentage)
}

func TestPipeline_Idempotent(t *testing.T) {
	p := testPipeline(t)

	first, err := p.Score(sampleInput())
	require.NoError(t, err)
	second, err := p.Score(sampleInput())
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestPipeline_ConcurrentScoring(t *testing.T) {
	p := testPipeline(t)
	want, err := p.Score(sampleInput())
	require.NoError(t, err)

	var wg sync.WaitGroup
	results := make([]float64, 32)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res, err := p.Score(sampleInput())
			if err == nil {
				results[i] = res.Probability
			}
		}(i)
	}
	wg.Wait()

	for _, r := range results {
		assert.Equal(t, want.Probability, r)
	}
}

func TestPipeline_TierBoundaries(t *testing.T) {
	tests := []struct {
		p         float64
		wantLevel string
		wantPct   float64
	}{
		{0.75, "High Risk", 75},
		{0.7499999, "Moderate Risk", 75},
		{0.5, "Moderate Risk", 50},
		{0.9, "Very High Risk", 90},
		{0.12, "Low Risk", 12},
	}
	for _, tt := range tests {
		a := testArtifacts(t)
		a.Classifier = fixedClassifier{p: tt.p}
		p, err := NewPipeline(a)
		require.NoError(t, err)

		res, err := p.Score(sampleInput())
		require.NoError(t, err)
		assert.Equal(t, tt.wantLevel, res.RiskLevel, "p=%v", tt.p)
		assert.Equal(t, tt.wantPct, res.Percentage, "p=%v", tt.p)
	}
}

func TestPipeline_RejectsInvalidProbability(t *testing.T) {
	for _, bad := range []float64{math.NaN(), -0.01, 1.01} {
		a := testArtifacts(t)
		a.Classifier = fixedClassifier{p: bad}
		p, err := NewPipeline(a)
		require.NoError(t, err)

		res, err := p.Score(sampleInput())
		assert.Nil(t, res)
		assert.ErrorIs(t, err, ErrInvalidProbability)
		assert.Equal(t, apperrors.ErrCodeScoringFailed, ToStandardError(err).Code)
	}
}

func TestPipeline_RejectsMalformedRows(t *testing.T) {
	p := testPipeline(t)

	_, err := p.PredictProbability(make(FeatureRow, NumFeatures-1))
	assert.ErrorIs(t, err, ErrInvalidFeatureRow)

	err = p.ScaleRow(make(FeatureRow, NumFeatures+1))
	assert.ErrorIs(t, err, ErrInvalidFeatureRow)

	row := make(FeatureRow, NumFeatures)
	row[idxAge] = math.Inf(1)
	_, err = p.PredictProbability(row)
	assert.ErrorIs(t, err, ErrInvalidFeatureRow)
	assert.Equal(t, apperrors.ErrCodeInvalidFeatureRow, ToStandardError(err).Code)
}

func TestNewPipeline_Validation(t *testing.T) {
	a := testArtifacts(t)
	a.SleepDuration = nil
	_, err := NewPipeline(a)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sleep duration encoder is missing")

	a = testArtifacts(t)
	cols := ScaledColumns[:]
	swapped := append([]string(nil), cols...)
	swapped[0], swapped[1] = swapped[1], swapped[0]
	a.Scaler, err = NewStandardScaler(swapped, testScalerMean, testScalerScale)
	require.NoError(t, err)
	_, err = NewPipeline(a)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "scaler column 0")
}
