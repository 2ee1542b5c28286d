package scoring

import (
	"testing"

	"github.com/stretchr/testify/require"

	"depression-risk-service/internal/models"
)

var (
	testGenderClasses   = []string{"Female", "Male"}
	testYesNoClasses    = []string{"No", "Yes"}
	testDietCategories  = []string{"Unhealthy", "Moderate", "Healthy"}
	testSleepCategories = []string{"Less than 5 hours", "5-6 hours", "7-8 hours", "More than 8 hours"}

	testScalerMean  = []float64{42.0, 6.0, 3.0, 3.0, 1.5, 1.0, 3.0}
	testScalerScale = []float64{12.0, 4.0, 1.5, 1.5, 1.25, 0.8, 1.5}

	// Indexed by FeatureColumns.
	testCoef      = []float64{0.15, -1.2, 1.1, -0.9, -0.45, -0.5, 2.3, 0.7, 1.05, 0.25}
	testIntercept = -1.5
)

func testArtifacts(t *testing.T) Artifacts {
	t.Helper()

	gender, err := NewLabelEncoder("gender", testGenderClasses)
	require.NoError(t, err)
	suicidal, err := NewLabelEncoder("suicidal_thoughts", testYesNoClasses)
	require.NoError(t, err)
	family, err := NewLabelEncoder("family_mental_health", testYesNoClasses)
	require.NoError(t, err)
	diet, err := NewOrdinalEncoder("dietary_habits", testDietCategories)
	require.NoError(t, err)
	sleep, err := NewOrdinalEncoder("sleep_duration", testSleepCategories)
	require.NoError(t, err)
	scaler, err := NewStandardScaler(ScaledColumns[:], testScalerMean, testScalerScale)
	require.NoError(t, err)
	clf, err := NewLogisticRegression(testCoef, testIntercept)
	require.NoError(t, err)

	return Artifacts{
		Classifier:         clf,
		Scaler:             scaler,
		Gender:             gender,
		SuicidalThoughts:   suicidal,
		FamilyMentalHealth: family,
		DietaryHabits:      diet,
		SleepDuration:      sleep,
	}
}

func testPipeline(t *testing.T) *Pipeline {
	t.Helper()
	p, err := NewPipeline(testArtifacts(t))
	require.NoError(t, err)
	return p
}

type modelsInput = models.DepressionAssessmentInput

func sampleInput() modelsInput {
	return modelsInput{
		Gender:             "Male",
		Age:                30,
		WorkPressure:       3,
		JobSatisfaction:    2,
		SleepDuration:      "5-6 hours",
		DietaryHabits:      "Moderate",
		SuicidalThoughts:   "No",
		WorkHours:          8,
		FinancialStress:    4,
		FamilyMentalHealth: "No",
	}
}

// fixedClassifier returns a constant probability regardless of the row.
type fixedClassifier struct {
	p float64
}

func (c fixedClassifier) Kind() string     { return "fixed" }
func (c fixedClassifier) NumFeatures() int { return NumFeatures }
func (c fixedClassifier) PredictProbability(FeatureRow) (float64, error) {
	return c.p, nil
}
