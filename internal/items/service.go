// Package items implements the project and item lifecycle: creation,
// updates, soft delete and restore, reaudit requests, and the human
// review workflow. State changes that should trigger an audit are
// published on the event bus or handed straight to the audit enqueuer.
package items

import (
	"log/slog"

	"github.com/cfornesa/ethics-risk-audit-assistant/internal/conf"
	"github.com/cfornesa/ethics-risk-audit-assistant/internal/datastore"
	"github.com/cfornesa/ethics-risk-audit-assistant/internal/errors"
	"github.com/cfornesa/ethics-risk-audit-assistant/internal/events"
	"github.com/cfornesa/ethics-risk-audit-assistant/internal/logging"
)

// Auditor schedules audits for items. Satisfied by *audit.Service.
type Auditor interface {
	EnqueueAudit(itemID uint) error
}

// Publisher publishes item lifecycle events. Satisfied by
// *events.EventBus.
type Publisher interface {
	Publish(event events.ItemEvent) bool
}

// Service wraps the datastore with lifecycle rules for projects and
// items.
type Service struct {
	settings *conf.Settings
	store    datastore.Interface
	bus      Publisher
	auditor  Auditor
	logger   *slog.Logger
}

// New creates the items service. bus and auditor may be nil in contexts
// that only read data, such as exports.
func New(settings *conf.Settings, store datastore.Interface, bus Publisher, auditor Auditor) *Service {
	logger := logging.ForService("items")
	if logger == nil {
		logger = slog.Default().With("service", "items")
	}
	return &Service{
		settings: settings,
		store:    store,
		bus:      bus,
		auditor:  auditor,
		logger:   logger,
	}
}

func validationErr(format string, args ...any) error {
	return errors.Newf(format, args...).
		Component("items").
		Category(errors.CategoryValidation).
		Build()
}

// CreateProject persists a new project in active status.
func (s *Service) CreateProject(project *datastore.Project) error {
	if project.Name == "" {
		return validationErr("project name is required")
	}
	if project.Status == "" {
		project.Status = datastore.ProjectStatusActive
	}
	if err := s.store.CreateProject(project); err != nil {
		return err
	}
	s.logger.Info("project created", "project_id", project.ID, "name", project.Name)
	return nil
}

// UpdateProject saves changed project attributes.
func (s *Service) UpdateProject(project *datastore.Project) error {
	if project.Name == "" {
		return validationErr("project name is required")
	}
	return s.store.UpdateProject(project)
}

// GetProject returns a single project.
func (s *Service) GetProject(id uint) (datastore.Project, error) {
	return s.store.GetProject(id)
}

// ListProjects returns projects newest first.
func (s *Service) ListProjects(limit, offset int) ([]datastore.Project, error) {
	return s.store.GetProjects(limit, offset)
}

// DeleteProject soft-deletes a project together with its items.
func (s *Service) DeleteProject(id uint) error {
	if err := s.store.DeleteProject(id); err != nil {
		return err
	}
	s.logger.Info("project deleted", "project_id", id)
	return nil
}

// ProjectStatistics returns the aggregate risk counts for a project.
func (s *Service) ProjectStatistics(projectID uint) (datastore.RiskStatistics, error) {
	return s.store.ProjectRiskStatistics(projectID)
}

// validateItem checks the writable item attributes.
func (s *Service) validateItem(item *datastore.Item) error {
	if item.ProjectID == 0 {
		return validationErr("item project is required")
	}
	if item.Title == "" {
		return validationErr("item title is required")
	}
	if item.Content == "" {
		return validationErr("item content is required")
	}
	if item.ContentType != "" && len(s.settings.Ethics.ContentTypes) > 0 {
		known := false
		for _, t := range s.settings.Ethics.ContentTypes {
			if t == item.ContentType {
				known = true
				break
			}
		}
		if !known {
			return validationErr("unknown content type: %s", item.ContentType)
		}
	}
	return nil
}

// CreateItem persists a new item in pending status and publishes the
// creation event that triggers its first audit.
func (s *Service) CreateItem(item *datastore.Item) error {
	if err := s.validateItem(item); err != nil {
		return err
	}
	// Whatever the caller sent, a new item always starts pending with a
	// clean audit slate.
	item.Status = datastore.ItemStatusPending
	item.RiskScore = nil
	item.RiskLevel = nil
	item.RiskSummary = nil
	item.RiskBreakdown = nil
	item.MitigationSuggestions = nil
	item.RequiresHumanReview = false
	item.NotificationSent = false
	item.AuditAttempts = 0
	item.LastError = nil

	if err := s.store.CreateItem(item); err != nil {
		return err
	}
	s.logger.Info("item created", "item_id", item.ID, "project_id", item.ProjectID)

	if s.bus != nil {
		s.bus.Publish(events.NewItemEvent(events.ItemCreated, item.ID, item.ProjectID, item.Status))
	}
	return nil
}

// GetItem returns a single item.
func (s *Service) GetItem(id uint) (datastore.Item, error) {
	return s.store.GetItem(id)
}

// ListItems returns items matching the filter.
func (s *Service) ListItems(filter *datastore.ItemFilter) ([]datastore.Item, error) {
	return s.store.GetItems(filter)
}

// UpdateItem saves changed item attributes. When reaudit is true the
// previous verdict is cleared, the item returns to pending, and a new
// audit is queued; attempt history is kept so operators can still see
// how troublesome the item has been.
func (s *Service) UpdateItem(item *datastore.Item, reaudit bool) error {
	if err := s.validateItem(item); err != nil {
		return err
	}
	if err := s.store.UpdateItem(item); err != nil {
		return err
	}
	if !reaudit {
		return nil
	}
	return s.requeue(item.ID, false)
}

// Reaudit clears the item's verdict and its attempt history, then queues
// a fresh audit. This is the operator-facing "start over" action.
func (s *Service) Reaudit(id uint) error {
	return s.requeue(id, true)
}

func (s *Service) requeue(id uint, resetAttempts bool) error {
	if err := s.store.ResetForReaudit(id, resetAttempts); err != nil {
		return err
	}
	s.logger.Info("item queued for reaudit", "item_id", id, "reset_attempts", resetAttempts)
	if s.auditor == nil {
		return nil
	}
	return s.auditor.EnqueueAudit(id)
}

// DeleteItem soft-deletes an item.
func (s *Service) DeleteItem(id uint) error {
	if err := s.store.DeleteItem(id); err != nil {
		return err
	}
	s.logger.Info("item deleted", "item_id", id)
	return nil
}

// RestoreItem undoes a soft delete. A restored item that never finished
// its audit is announced on the bus so the audit resumes.
func (s *Service) RestoreItem(id uint) (datastore.Item, error) {
	item, err := s.store.RestoreItem(id)
	if err != nil {
		return datastore.Item{}, err
	}
	s.logger.Info("item restored", "item_id", id, "status", item.Status)

	if s.bus != nil && item.Status == datastore.ItemStatusPending {
		s.bus.Publish(events.NewItemEvent(events.ItemRestored, item.ID, item.ProjectID, item.Status))
	}
	return item, nil
}

// MarkReviewed clears the human review flag. This is the only operation
// that clears it; completing another audit never does.
func (s *Service) MarkReviewed(id uint) error {
	if err := s.store.SetRequiresHumanReview(id, false); err != nil {
		return err
	}
	s.logger.Info("item marked as reviewed", "item_id", id)
	return nil
}
