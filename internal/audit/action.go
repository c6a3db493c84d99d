// Package audit orchestrates the asynchronous audit pipeline: it turns a
// pending item into a completed (or failed) one by calling the LLM,
// validating the verdict, persisting the result, and applying the review
// and notification policies.
package audit

import (
	"context"
	"fmt"
	"time"

	"github.com/cfornesa/ethics-risk-audit-assistant/internal/datastore"
	"github.com/cfornesa/ethics-risk-audit-assistant/internal/errors"
	"github.com/cfornesa/ethics-risk-audit-assistant/internal/ethics"
)

// auditJobData identifies the item a queued audit job operates on. The
// job carries only the ID; item state is re-read at execution time so a
// retry always sees current data.
type auditJobData struct {
	ItemID uint
}

// auditAction implements jobqueue.Action for a single audit run. One
// instance is shared by all jobs; per-item state lives in auditJobData.
type auditAction struct {
	service *Service
}

func (a *auditAction) GetDescription() string {
	return "Run ethics audit"
}

// Execute performs one audit attempt. Any returned error marks the item
// failed with the attempt counter incremented; the queue decides whether
// another attempt follows.
func (a *auditAction) Execute(ctx context.Context, data any) error {
	jobData, ok := data.(*auditJobData)
	if !ok {
		return errors.Newf("invalid job data type %T", data).
			Component("audit").
			Category(errors.CategoryJobQueue).
			Build()
	}

	start := time.Now()
	err := a.service.runAudit(ctx, jobData.ItemID)
	a.service.metrics.ObserveAuditDuration(time.Since(start).Seconds())

	if err != nil {
		a.service.metrics.RecordAuditRetry()
		// Persist the failure before handing control back to the queue.
		// A store error here is logged but does not mask the audit error.
		if markErr := a.service.store.MarkItemFailed(jobData.ItemID, err.Error()); markErr != nil {
			a.service.logger.Error("failed to record audit failure",
				"item_id", jobData.ItemID,
				"error", markErr)
		}
		return err
	}
	return nil
}

// OnPermanentFailure runs once all attempts are exhausted. It records the
// terminal failure on the item once more, so the final error text lands in
// last_error even when the job died outside Execute (timeout, panic), then
// releases the lease.
func (a *auditAction) OnPermanentFailure(ctx context.Context, data any, err error) {
	jobData, ok := data.(*auditJobData)
	if !ok {
		return
	}
	if markErr := a.service.store.MarkItemFailed(jobData.ItemID, err.Error()); markErr != nil {
		a.service.logger.Error("failed to record permanent audit failure",
			"item_id", jobData.ItemID,
			"error", markErr)
	}
	a.service.metrics.RecordAuditFailed()
	a.service.releaseLease(jobData.ItemID)
	a.service.logger.Error("audit permanently failed",
		"item_id", jobData.ItemID,
		"error", err)
}

// runAudit performs the full audit sequence for one item.
func (s *Service) runAudit(ctx context.Context, itemID uint) error {
	item, err := s.store.GetItem(itemID)
	if err != nil {
		return err
	}

	if err := s.store.MarkItemProcessing(item.ID); err != nil {
		return err
	}

	result, rawContent, err := s.llm.EthicsAudit(ctx, item.Content, item.ContentType)
	if err != nil {
		return err
	}

	// A syntactically valid response can still be semantically unusable;
	// validation failures are retried like transport failures because the
	// model may produce a well-formed verdict on the next attempt.
	if err := ethics.ValidateResult(&result); err != nil {
		return errors.New(err).
			Component("audit").
			Category(errors.CategoryLLM).
			Context("item_id", item.ID).
			Build()
	}

	update := &datastore.AuditResultUpdate{
		RiskScore:             result.Score(),
		RiskLevel:             result.RiskLevel,
		RiskSummary:           result.Summary(),
		RiskBreakdown:         result.RiskBreakdown,
		MitigationSuggestions: result.MitigationSuggestions,
		RawResponse:           rawContent,
		Model:                 s.settings.LLM.Model,
	}
	if err := s.store.SaveAuditResult(item.ID, update); err != nil {
		return err
	}
	if err := s.store.MarkItemCompleted(item.ID, time.Now()); err != nil {
		return err
	}

	s.metrics.RecordAuditCompleted(result.RiskLevel)
	s.logger.Info("audit completed",
		"item_id", item.ID,
		"risk_score", result.Score(),
		"risk_level", result.RiskLevel)

	s.applyPolicies(ctx, item.ID, &item, &result)
	s.releaseLease(item.ID)
	return nil
}

// applyPolicies flags the item for human review and dispatches the
// high-risk alert where the thresholds say so. Policy errors never fail
// the audit itself; the verdict is already persisted.
func (s *Service) applyPolicies(ctx context.Context, itemID uint, item *datastore.Item, result *ethics.AuditResult) {
	if ethics.RequiresHumanReview(result, s.settings) {
		if err := s.store.SetRequiresHumanReview(itemID, true); err != nil {
			s.logger.Error("failed to flag item for human review",
				"item_id", itemID,
				"error", err)
		}
	}

	if !ethics.ShouldNotify(result, item.NotificationSent, s.settings) {
		return
	}

	// Re-read so the alert reflects persisted state, including the
	// review flag set just above.
	updated, err := s.store.GetItem(itemID)
	if err != nil {
		s.logger.Error("failed to reload item for notification",
			"item_id", itemID,
			"error", err)
		return
	}

	projectName := fmt.Sprintf("project %d", updated.ProjectID)
	if project, err := s.store.GetProject(updated.ProjectID); err == nil {
		projectName = project.Name
	}

	if err := s.dispatcher.DispatchHighRiskAlert(ctx, &updated, projectName); err != nil {
		// Dispatch failure leaves notification_sent unset so a reaudit
		// can try again; the item itself is already completed.
		s.logger.Error("high-risk alert dispatch failed",
			"item_id", itemID,
			"error", err)
		return
	}

	if err := s.store.SetNotificationSent(itemID, true); err != nil {
		s.logger.Error("failed to record notification dispatch",
			"item_id", itemID,
			"error", err)
		return
	}
	s.metrics.RecordNotificationSent()
}
