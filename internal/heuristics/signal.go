package heuristics

import "github.com/axlrose023/fraud-checker/pkg/models"

// Severity is derived from weight, never stored independently:
//
//	weight >= 30 → high
//	weight >= 12 → medium
//	else         → low

// NewSignal builds a FraudSignal with the severity derived from weight.
func NewSignal(code string, weight int, message string) models.FraudSignal {
	return models.FraudSignal{
		Code:     code,
		Severity: SeverityForWeight(weight),
		Weight:   weight,
		Message:  message,
	}
}

// SeverityForWeight maps a signal weight onto its severity bucket.
func SeverityForWeight(weight int) models.Severity {
	switch {
	case weight >= 30:
		return models.SeverityHigh
	case weight >= 12:
		return models.SeverityMedium
	default:
		return models.SeverityLow
	}
}

// DecisionForScore maps an aggregated risk score onto the verdict using the
// configured thresholds. Block wins over review when thresholds overlap.
func DecisionForScore(score, blockThreshold, reviewThreshold int) models.Decision {
	if score >= blockThreshold {
		return models.DecisionBlock
	}
	if score >= reviewThreshold {
		return models.DecisionReview
	}
	return models.DecisionAllow
}

// SumWeights aggregates signal weights, clamped to the 0..100 score range.
func SumWeights(signals []models.FraudSignal) int {
	total := 0
	for _, s := range signals {
		total += s.Weight
	}
	if total > 100 {
		return 100
	}
	return total
}
