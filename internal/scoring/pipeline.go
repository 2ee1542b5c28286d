// Package scoring turns a validated assessment into a risk tier using the
// fitted encoders, scaler and classifier.
package scoring

import (
	"errors"
	"fmt"
	"math"

	"depression-risk-service/internal/models"
)

// Artifacts holds the fitted transforms a Pipeline reads from. They are
// never mutated after construction.
type Artifacts struct {
	Classifier Classifier
	Scaler     *StandardScaler

	Gender             CategoryEncoder
	SuicidalThoughts   CategoryEncoder
	FamilyMentalHealth CategoryEncoder
	DietaryHabits      CategoryEncoder
	SleepDuration      CategoryEncoder
}

// Pipeline is stateless and safe for concurrent use.
type Pipeline struct {
	artifacts Artifacts
}

// NewPipeline checks every handle is present and that the scaler and
// classifier agree with the fixed column layout.
func NewPipeline(a Artifacts) (*Pipeline, error) {
	missing := []struct {
		name   string
		absent bool
	}{
		{"classifier", a.Classifier == nil},
		{"scaler", a.Scaler == nil},
		{"gender encoder", a.Gender == nil},
		{"suicidal thoughts encoder", a.SuicidalThoughts == nil},
		{"family mental health encoder", a.FamilyMentalHealth == nil},
		{"dietary habits encoder", a.DietaryHabits == nil},
		{"sleep duration encoder", a.SleepDuration == nil},
	}
	for _, m := range missing {
		if m.absent {
			return nil, fmt.Errorf("pipeline: %s is missing", m.name)
		}
	}

	cols := a.Scaler.Columns()
	if len(cols) != NumScaled {
		return nil, fmt.Errorf("pipeline: scaler has %d columns, want %d", len(cols), NumScaled)
	}
	for i, c := range cols {
		if c != ScaledColumns[i] {
			return nil, fmt.Errorf("pipeline: scaler column %d is %q, want %q", i, c, ScaledColumns[i])
		}
	}
	if n := a.Classifier.NumFeatures(); n != NumFeatures {
		return nil, fmt.Errorf("pipeline: classifier expects %d features, want %d", n, NumFeatures)
	}

	return &Pipeline{artifacts: a}, nil
}

// Artifacts returns the handles the pipeline was built from.
func (p *Pipeline) Artifacts() Artifacts {
	return p.artifacts
}

// Encode builds the unscaled row in FeatureColumns order.
func (p *Pipeline) Encode(in models.DepressionAssessmentInput) (FeatureRow, error) {
	gender, err := p.artifacts.Gender.Encode(in.Gender)
	if err != nil {
		return nil, err
	}
	suicidal, err := p.artifacts.SuicidalThoughts.Encode(in.SuicidalThoughts)
	if err != nil {
		return nil, err
	}
	family, err := p.artifacts.FamilyMentalHealth.Encode(in.FamilyMentalHealth)
	if err != nil {
		return nil, err
	}
	dietary, err := p.artifacts.DietaryHabits.Encode(in.DietaryHabits)
	if err != nil {
		return nil, err
	}
	sleep, err := p.artifacts.SleepDuration.Encode(in.SleepDuration)
	if err != nil {
		return nil, err
	}

	row := make(FeatureRow, NumFeatures)
	row[idxGender] = gender
	row[idxAge] = float64(in.Age)
	row[idxWorkPressure] = float64(in.WorkPressure)
	row[idxJobSatisfaction] = float64(in.JobSatisfaction)
	row[idxSleepDuration] = sleep
	row[idxDietaryHabits] = dietary
	row[idxSuicidalThoughts] = suicidal
	row[idxWorkHours] = float64(in.WorkHours)
	row[idxFinancialStress] = float64(in.FinancialStress)
	row[idxFamilyMentalHealth] = family
	return row, nil
}

// ScaleRow scales the ScaledColumns of row in place. The columns are
// gathered into scaler order, transformed and written back to their row
// positions; every other column is left untouched.
func (p *Pipeline) ScaleRow(row FeatureRow) error {
	if err := checkRow(row); err != nil {
		return err
	}
	var buf [NumScaled]float64
	for i, idx := range scaledIndices {
		buf[i] = row[idx]
	}
	if err := p.artifacts.Scaler.Transform(buf[:]); err != nil {
		return err
	}
	for i, idx := range scaledIndices {
		row[idx] = buf[i]
	}
	return nil
}

// PredictProbability returns the positive-class probability for a scaled row.
func (p *Pipeline) PredictProbability(row FeatureRow) (float64, error) {
	if err := checkRow(row); err != nil {
		return 0, err
	}
	prob, err := p.artifacts.Classifier.PredictProbability(row)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(prob) || prob < 0 || prob > 1 {
		return 0, fmt.Errorf("%w: %v", ErrInvalidProbability, prob)
	}
	return prob, nil
}

// Score runs the full pipeline. It returns either a complete result or an
// error, never both.
func (p *Pipeline) Score(in models.DepressionAssessmentInput) (*models.PredictionResult, error) {
	row, err := p.Encode(in)
	if err != nil {
		return nil, err
	}
	if err := p.ScaleRow(row); err != nil {
		return nil, err
	}
	prob, err := p.PredictProbability(row)
	if err != nil {
		return nil, err
	}
	return &models.PredictionResult{
		RiskLevel:   string(RiskLevelFor(prob)),
		Percentage:  RoundPercentage(prob),
		Probability: prob,
	}, nil
}

func checkRow(row FeatureRow) error {
	if len(row) != NumFeatures {
		return fmt.Errorf("%w: expected %d columns, got %d", ErrInvalidFeatureRow, NumFeatures, len(row))
	}
	for i, v := range row {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: column %s is not finite", ErrInvalidFeatureRow, FeatureColumns[i])
		}
	}
	return nil
}

// IsClientError reports whether err was caused by the request contents.
func IsClientError(err error) bool {
	return errors.Is(err, ErrUnknownCategory)
}
