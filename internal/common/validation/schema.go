package validation

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	apperrors "depression-risk-service/internal/common/errors"
	"depression-risk-service/internal/models"
)

// AssessmentSchema describes a scoring request. Categorical membership is
// checked later by the encoders so unknown values surface as their own error.
const AssessmentSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": [
    "gender", "age", "work_pressure", "job_satisfaction", "sleep_duration",
    "dietary_habits", "suicidal_thoughts", "work_hours", "financial_stress",
    "family_mental_health"
  ],
  "properties": {
    "gender":               {"type": "string", "minLength": 1},
    "age":                  {"type": "integer", "minimum": 0, "maximum": 2147483647},
    "work_pressure":        {"type": "integer", "minimum": 0, "maximum": 2147483647},
    "job_satisfaction":     {"type": "integer", "minimum": 0, "maximum": 2147483647},
    "sleep_duration":       {"type": "string", "minLength": 1},
    "dietary_habits":       {"type": "string", "minLength": 1},
    "suicidal_thoughts":    {"type": "string", "minLength": 1},
    "work_hours":           {"type": "integer", "minimum": 0, "maximum": 2147483647},
    "financial_stress":     {"type": "integer", "minimum": 0, "maximum": 2147483647},
    "family_mental_health": {"type": "string", "minLength": 1}
  },
  "additionalProperties": true
}`

// CodeOutOfRange marks an integer field outside the 32-bit non-negative range.
const CodeOutOfRange = "OUT_OF_RANGE"

// ValidationResult collects the field errors of one document.
type ValidationResult struct {
	Valid  bool                   `json:"valid"`
	Errors []apperrors.FieldError `json:"errors,omitempty"`
}

// GetErrorMessages returns a simple list of error messages
func (vr *ValidationResult) GetErrorMessages() []string {
	messages := make([]string, len(vr.Errors))
	for i, err := range vr.Errors {
		messages[i] = fmt.Sprintf("%s: %s", err.Field, err.Message)
	}
	return messages
}

// HasErrors checks if validation has errors for specific field
func (vr *ValidationResult) HasErrors(field string) bool {
	for _, err := range vr.Errors {
		if err.Field == field {
			return true
		}
	}
	return false
}

// Validator checks raw documents against a compiled JSON schema.
type Validator struct {
	schema *gojsonschema.Schema
}

// NewAssessmentValidator compiles AssessmentSchema.
func NewAssessmentValidator() (*Validator, error) {
	return NewValidator(AssessmentSchema)
}

func NewValidator(schemaJSON string) (*Validator, error) {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(schemaJSON))
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	return &Validator{schema: schema}, nil
}

// Validate checks a decoded document. Errors are sorted by field.
func (v *Validator) Validate(doc map[string]interface{}) (*ValidationResult, error) {
	if doc == nil {
		return &ValidationResult{
			Valid:  false,
			Errors: []apperrors.FieldError{{Field: "(root)", Message: "request body must be a JSON object", Code: "INVALID_TYPE"}},
		}, nil
	}

	result, err := v.schema.Validate(gojsonschema.NewGoLoader(doc))
	if err != nil {
		return nil, fmt.Errorf("validation error: %w", err)
	}

	errs := make([]apperrors.FieldError, 0, len(result.Errors()))
	for _, desc := range result.Errors() {
		errs = append(errs, toFieldError(desc))
	}
	sort.SliceStable(errs, func(i, j int) bool { return errs[i].Field < errs[j].Field })

	return &ValidationResult{Valid: result.Valid(), Errors: errs}, nil
}

// DecodeAssessment validates doc and converts it into a typed input. A
// failed check returns a VALIDATION_FAILED StandardError.
func (v *Validator) DecodeAssessment(doc map[string]interface{}) (*models.DepressionAssessmentInput, error) {
	res, err := v.Validate(doc)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	if !res.Valid {
		return nil, apperrors.NewValidationError(res.Errors)
	}

	in := &models.DepressionAssessmentInput{
		Gender:             doc[models.FieldGender].(string),
		SleepDuration:      doc[models.FieldSleepDuration].(string),
		DietaryHabits:      doc[models.FieldDietaryHabits].(string),
		SuicidalThoughts:   doc[models.FieldSuicidalThoughts].(string),
		FamilyMentalHealth: doc[models.FieldFamilyMentalHealth].(string),
	}

	ints := []struct {
		field string
		dst   *int
	}{
		{models.FieldAge, &in.Age},
		{models.FieldWorkPressure, &in.WorkPressure},
		{models.FieldJobSatisfaction, &in.JobSatisfaction},
		{models.FieldWorkHours, &in.WorkHours},
		{models.FieldFinancialStress, &in.FinancialStress},
	}
	var fieldErrs []apperrors.FieldError
	for _, f := range ints {
		n, err := toInt(doc[f.field])
		if err != nil {
			fieldErrs = append(fieldErrs, apperrors.FieldError{Field: f.field, Message: err.Error(), Code: "INVALID_TYPE"})
			continue
		}
		*f.dst = n
	}
	if len(fieldErrs) > 0 {
		return nil, apperrors.NewValidationError(fieldErrs)
	}
	return in, nil
}

// DecodeJSON parses a request body into a generic document, keeping numbers
// exact so integer checks see the literal the client sent.
func DecodeJSON(body []byte) (map[string]interface{}, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()

	var doc map[string]interface{}
	if err := dec.Decode(&doc); err != nil {
		return nil, apperrors.NewValidationError([]apperrors.FieldError{{
			Field:   "(root)",
			Message: fmt.Sprintf("malformed JSON: %v", err),
			Code:    "MALFORMED_JSON",
		}})
	}
	if dec.More() {
		return nil, apperrors.NewValidationError([]apperrors.FieldError{{
			Field:   "(root)",
			Message: "unexpected data after JSON object",
			Code:    "MALFORMED_JSON",
		}})
	}
	return doc, nil
}

func toFieldError(desc gojsonschema.ResultError) apperrors.FieldError {
	field := desc.Field()
	if desc.Type() == "required" {
		if prop, ok := desc.Details()["property"].(string); ok {
			field = prop
		}
	}
	switch desc.Type() {
	case "number_gte", "number_lte":
		return apperrors.FieldError{
			Field:   field,
			Message: fmt.Sprintf("must be an integer between 0 and %d", math.MaxInt32),
			Code:    CodeOutOfRange,
		}
	}
	return apperrors.FieldError{
		Field:   field,
		Message: desc.Description(),
		Code:    strings.ToUpper(desc.Type()),
	}
}

func toInt(v interface{}) (int, error) {
	var f float64
	switch n := v.(type) {
	case json.Number:
		if i, err := n.Int64(); err == nil {
			return int(i), nil
		}
		parsed, err := n.Float64()
		if err != nil {
			return 0, fmt.Errorf("invalid number %q", n.String())
		}
		f = parsed
	case float64:
		f = n
	case float32:
		f = float64(n)
	case int:
		return n, nil
	case int32:
		return int(n), nil
	case int64:
		return int(n), nil
	default:
		return 0, fmt.Errorf("expected integer, got %T", v)
	}
	if f != math.Trunc(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("expected integer, got %v", f)
	}
	return int(f), nil
}
