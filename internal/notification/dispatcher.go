package notification

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/cfornesa/ethics-risk-audit-assistant/internal/conf"
	"github.com/cfornesa/ethics-risk-audit-assistant/internal/datastore"
	"github.com/cfornesa/ethics-risk-audit-assistant/internal/errors"
	"github.com/cfornesa/ethics-risk-audit-assistant/internal/ethics"
	"github.com/cfornesa/ethics-risk-audit-assistant/internal/logging"
)

// Dispatcher fans high-risk alerts out to the configured providers.
type Dispatcher struct {
	settings  *conf.Settings
	providers []Provider
	logger    *slog.Logger
}

// NewDispatcher builds a dispatcher from settings. A shoutrrr provider
// is created when recipients are configured; its URLs are validated
// eagerly so misconfiguration surfaces at startup rather than on the
// first high-risk item.
func NewDispatcher(settings *conf.Settings) (*Dispatcher, error) {
	d := &Dispatcher{
		settings: settings,
		logger:   logging.ForService("notification"),
	}
	if d.logger == nil {
		d.logger = slog.Default().With("service", "notification")
	}

	if len(settings.Notification.Recipients) > 0 {
		timeout := time.Duration(settings.Notification.Timeout) * time.Second
		provider := NewShoutrrrProvider("shoutrrr", settings.Notification.Enabled,
			settings.Notification.Recipients, timeout)
		if err := provider.ValidateConfig(); err != nil {
			return nil, errors.New(err).
				Component("notification").
				Category(errors.CategoryConfiguration).
				Build()
		}
		d.providers = append(d.providers, provider)
	}

	return d, nil
}

// AddProvider registers an additional provider. Used by tests and by
// callers that implement their own delivery channels.
func (d *Dispatcher) AddProvider(p Provider) {
	d.providers = append(d.providers, p)
}

// DispatchHighRiskAlert sends the alert for a completed high-risk item.
// Missing recipients is a configuration gap, not a failure: the audit
// result stands regardless of whether anyone could be told about it.
func (d *Dispatcher) DispatchHighRiskAlert(ctx context.Context, item *datastore.Item, projectName string) error {
	if len(d.providers) == 0 {
		d.logger.Warn("high-risk item detected but no notification recipients configured",
			"item_id", item.ID,
			"risk_score", item.RiskScore)
		return nil
	}

	n := buildHighRiskNotification(item, projectName)

	var firstErr error
	for _, p := range d.providers {
		if !p.IsEnabled() {
			continue
		}
		if err := p.Send(ctx, n); err != nil {
			d.logger.Error("failed to send high-risk alert",
				"provider", p.GetName(),
				"item_id", item.ID,
				"error", err)
			if firstErr == nil {
				firstErr = errors.New(err).
					Component("notification").
					Category(errors.CategoryNotification).
					Context("provider", p.GetName()).
					Context("item_id", item.ID).
					Build()
			}
			continue
		}
		d.logger.Info("high-risk alert sent",
			"provider", p.GetName(),
			"item_id", item.ID,
			"risk_level", item.RiskLevel,
			"risk_score", item.RiskScore)
	}
	return firstErr
}

// buildHighRiskNotification renders the alert body for an audited item.
func buildHighRiskNotification(item *datastore.Item, projectName string) *Notification {
	score := 0
	if item.RiskScore != nil {
		score = *item.RiskScore
	}
	level := "unknown"
	if item.RiskLevel != nil {
		level = *item.RiskLevel
	}

	title := fmt.Sprintf("High-risk item detected: %s", item.Title)

	var b strings.Builder
	fmt.Fprintf(&b, "Item %q in project %q was flagged as %s risk (score %d/100).\n",
		item.Title, projectName, level, score)
	if item.RiskSummary != nil && *item.RiskSummary != "" {
		fmt.Fprintf(&b, "\nSummary: %s\n", *item.RiskSummary)
	}
	if len(item.MitigationSuggestions) > 0 {
		b.WriteString("\nSuggested mitigations:\n")
		for _, s := range item.MitigationSuggestions {
			fmt.Fprintf(&b, "- %s\n", s)
		}
	}
	if item.RequiresHumanReview {
		b.WriteString("\nThis item requires human review before publication.\n")
	}

	return NewNotification(priorityForLevel(level), title, b.String())
}

func priorityForLevel(level string) Priority {
	switch level {
	case ethics.RiskLevelCritical:
		return PriorityCritical
	case ethics.RiskLevelHigh:
		return PriorityHigh
	case ethics.RiskLevelMedium:
		return PriorityMedium
	default:
		return PriorityLow
	}
}
