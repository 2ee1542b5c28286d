package predictdepressionrisk

// AssessmentVariable is the optional process variable the ten input fields
// may be nested under.
const AssessmentVariable = "assessment"

// Output is written back to the process instance on completion.
type Output struct {
	RiskLevel   string  `json:"riskLevel"`
	Percentage  float64 `json:"percentage"`
	Probability float64 `json:"probability"`
}

func (o *Output) toVariables() map[string]interface{} {
	return map[string]interface{}{
		"riskLevel":   o.RiskLevel,
		"percentage":  o.Percentage,
		"probability": o.Probability,
	}
}
