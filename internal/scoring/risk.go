package scoring

import "math"

// RiskLevel is the tier label returned to clients.
type RiskLevel string

const (
	RiskLow      RiskLevel = "Low Risk"
	RiskModerate RiskLevel = "Moderate Risk"
	RiskHigh     RiskLevel = "High Risk"
	RiskVeryHigh RiskLevel = "Very High Risk"
)

// Lower bounds of each tier. Intervals are closed below, open above.
const (
	ThresholdVeryHigh = 0.90
	ThresholdHigh     = 0.75
	ThresholdModerate = 0.50
)

// RiskLevels lists every tier from lowest to highest.
var RiskLevels = []RiskLevel{RiskLow, RiskModerate, RiskHigh, RiskVeryHigh}

// RiskLevelFor buckets a probability, checking the highest threshold first.
func RiskLevelFor(p float64) RiskLevel {
	switch {
	case p >= ThresholdVeryHigh:
		return RiskVeryHigh
	case p >= ThresholdHigh:
		return RiskHigh
	case p >= ThresholdModerate:
		return RiskModerate
	default:
		return RiskLow
	}
}

// RoundPercentage converts p to a percentage with two decimals.
//
// The percentage is scaled by 100 again, rounded half-to-even to an integer
// and scaled back, the same steps as numpy's round on a float64. Ties are
// judged after the scaling multiply: 0.49995 scales to 4999.5 and rounds to
// 50, the exact tie 12.125 rounds to 12.12.
func RoundPercentage(p float64) float64 {
	v := p * 100
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return v
	}
	return math.RoundToEven(v*100) / 100
}
