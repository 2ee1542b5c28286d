// internal/models/assessment.go
package models

// DepressionAssessmentInput is one validated scoring request.
type DepressionAssessmentInput struct {
	Gender             string `json:"gender" yaml:"gender"`
	Age                int    `json:"age" yaml:"age"`
	WorkPressure       int    `json:"work_pressure" yaml:"work_pressure"`
	JobSatisfaction    int    `json:"job_satisfaction" yaml:"job_satisfaction"`
	SleepDuration      string `json:"sleep_duration" yaml:"sleep_duration"`
	DietaryHabits      string `json:"dietary_habits" yaml:"dietary_habits"`
	SuicidalThoughts   string `json:"suicidal_thoughts" yaml:"suicidal_thoughts"`
	WorkHours          int    `json:"work_hours" yaml:"work_hours"`
	FinancialStress    int    `json:"financial_stress" yaml:"financial_stress"`
	FamilyMentalHealth string `json:"family_mental_health" yaml:"family_mental_health"`
}

// Request field names, shared by the validator schema and error reporting.
const (
	FieldGender             = "gender"
	FieldAge                = "age"
	FieldWorkPressure       = "work_pressure"
	FieldJobSatisfaction    = "job_satisfaction"
	FieldSleepDuration      = "sleep_duration"
	FieldDietaryHabits      = "dietary_habits"
	FieldSuicidalThoughts   = "suicidal_thoughts"
	FieldWorkHours          = "work_hours"
	FieldFinancialStress    = "financial_stress"
	FieldFamilyMentalHealth = "family_mental_health"
)

// PredictionResult is the wire shape returned to clients. The "risk level"
// key keeps its space for compatibility with existing front ends.
type PredictionResult struct {
	RiskLevel   string  `json:"risk level" yaml:"risk level"`
	Percentage  float64 `json:"percentage" yaml:"percentage"`
	Probability float64 `json:"-" yaml:"-"`
}
