// Package ethics holds the audit domain logic: the rubric prompt builder,
// the typed audit result with its structural validator, and the policy
// engine deciding human-review and notification flags.
package ethics

import "encoding/json"

// Risk level values reported by the model. The score-to-level mapping is
// defined by the rubric; the model is the sole source of the level and it
// is not recomputed here.
const (
	RiskLevelLow      = "low"
	RiskLevelMedium   = "medium"
	RiskLevelHigh     = "high"
	RiskLevelCritical = "critical"
)

// CategoryScore is a per-category sub-score with its list of concerns.
type CategoryScore struct {
	Score  int      `json:"score"`
	Issues []string `json:"issues"`
}

// RiskBreakdown maps rubric category names to their sub-scores.
type RiskBreakdown map[string]CategoryScore

// AuditResult is the decoded audit response. Pointer and nil-able fields
// distinguish "absent" from zero values so the validator can detect
// missing fields.
type AuditResult struct {
	RiskScore             *int          `json:"risk_score"`
	RiskLevel             string        `json:"risk_level"`
	RiskSummary           *string       `json:"risk_summary"`
	RiskBreakdown         RiskBreakdown `json:"risk_breakdown"`
	MitigationSuggestions []string      `json:"mitigation_suggestions"`
	RequiresHumanReview   bool          `json:"requires_human_review"`
	Flags                 []string      `json:"flags"`
}

// DecodeResult parses model output into an AuditResult. Malformed JSON
// yields a zero result rather than an error; the validator downstream then
// rejects it as missing all required fields. This keeps malformed model
// output a validation failure instead of a transport failure.
func DecodeResult(content string) AuditResult {
	var result AuditResult
	if err := json.Unmarshal([]byte(content), &result); err != nil {
		return AuditResult{}
	}
	return result
}

// Score returns the reported risk score, or 0 if absent.
func (r *AuditResult) Score() int {
	if r.RiskScore == nil {
		return 0
	}
	return *r.RiskScore
}

// Summary returns the reported risk summary, or "" if absent.
func (r *AuditResult) Summary() string {
	if r.RiskSummary == nil {
		return ""
	}
	return *r.RiskSummary
}
