package ethics

import (
	"github.com/cfornesa/ethics-risk-audit-assistant/internal/conf"
)

// Policy decisions are pure functions of a validated result plus the
// immutable configuration; they never read or write store state.

// RequiresHumanReview reports whether an audited item must be gated behind
// a manual review. True when the overall score is strictly above the
// configured threshold, when the model itself requested review, or when
// any single rubric category scores at or above the category threshold.
func RequiresHumanReview(result *AuditResult, settings *conf.Settings) bool {
	if result.Score() > settings.Ethics.AutoHumanReviewThreshold {
		return true
	}

	if result.RequiresHumanReview {
		return true
	}

	for _, category := range result.RiskBreakdown {
		if category.Score >= settings.Ethics.CategoryHighScoreThreshold {
			return true
		}
	}

	return false
}

// ShouldNotify reports whether a high-risk alert must be dispatched for
// this result. Never true when notifications are globally disabled or the
// item has already been notified; otherwise true when the score is at or
// above the notify threshold. Note the asymmetry with the review
// threshold: notify is inclusive (>=), review is strict (>).
func ShouldNotify(result *AuditResult, alreadyNotified bool, settings *conf.Settings) bool {
	if !settings.Notification.Enabled {
		return false
	}

	if alreadyNotified {
		return false
	}

	return result.Score() >= settings.Ethics.AutoNotifyThreshold
}
