package ethics

import (
	"github.com/cfornesa/ethics-risk-audit-assistant/internal/errors"
)

// validation is purely structural: the level is checked for enum
// membership only and is never re-derived from the score.

func validationError(format string, args ...any) error {
	return errors.Newf(format, args...).
		Component("ethics").
		Category(errors.CategoryValidation).
		Build()
}

// ValidateResult checks a decoded audit result against the required-field
// and value-range invariants. The five required fields are risk_score,
// risk_level, risk_summary, risk_breakdown and mitigation_suggestions.
func ValidateResult(result *AuditResult) error {
	switch {
	case result.RiskScore == nil:
		return validationError("missing field: risk_score")
	case result.RiskLevel == "":
		return validationError("missing field: risk_level")
	case result.RiskSummary == nil:
		return validationError("missing field: risk_summary")
	case result.RiskBreakdown == nil:
		return validationError("missing field: risk_breakdown")
	case result.MitigationSuggestions == nil:
		return validationError("missing field: mitigation_suggestions")
	}

	switch result.RiskLevel {
	case RiskLevelLow, RiskLevelMedium, RiskLevelHigh, RiskLevelCritical:
	default:
		return validationError("invalid risk level: %s", result.RiskLevel)
	}

	if *result.RiskScore < 0 || *result.RiskScore > 100 {
		return validationError("invalid risk score: %d", *result.RiskScore)
	}

	return nil
}
