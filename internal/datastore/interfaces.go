// interfaces.go: this code defines the interface for the database operations
package datastore

import (
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/cfornesa/ethics-risk-audit-assistant/internal/conf"
	"github.com/cfornesa/ethics-risk-audit-assistant/internal/errors"
)

// Interface abstracts the underlying database implementation and defines
// the store operations the rest of the application may use. All mutations
// are simple attribute updates; there is no transaction spanning the full
// create -> audit -> notify sequence.
type Interface interface {
	Open() error
	Close() error

	// Projects
	CreateProject(project *Project) error
	UpdateProject(project *Project) error
	GetProject(id uint) (Project, error)
	GetProjects(limit, offset int) ([]Project, error)
	DeleteProject(id uint) error
	ProjectRiskStatistics(projectID uint) (RiskStatistics, error)

	// Items
	CreateItem(item *Item) error
	UpdateItem(item *Item) error
	GetItem(id uint) (Item, error)
	GetItems(filter *ItemFilter) ([]Item, error)
	GetProjectItemsByRisk(projectID uint) ([]Item, error)
	DeleteItem(id uint) error
	RestoreItem(id uint) (Item, error)

	// Item lifecycle primitives, the only state-mutating operations the
	// audit orchestrator calls directly
	MarkItemProcessing(id uint) error
	MarkItemCompleted(id uint, auditedAt time.Time) error
	MarkItemFailed(id uint, errorMessage string) error

	// Audit-result and flag writes bundled with the transitions above
	SaveAuditResult(id uint, update *AuditResultUpdate) error
	SetRequiresHumanReview(id uint, required bool) error
	SetNotificationSent(id uint, sent bool) error
	ResetForReaudit(id uint, resetAttempts bool) error
}

// DataStore implements Interface using a GORM database.
type DataStore struct {
	DB *gorm.DB // GORM database instance
}

// New creates a new datastore based on the provided configuration.
func New(settings *conf.Settings) Interface {
	switch {
	case settings.Output.SQLite.Enabled:
		return &SQLiteStore{Settings: settings}
	case settings.Output.MySQL.Enabled:
		return &MySQLStore{Settings: settings}
	default:
		return nil
	}
}

func dbError(err error, operation string) error {
	return errors.New(err).
		Component("datastore").
		Category(errors.CategoryDatabase).
		Context("operation", operation).
		Build()
}

// CreateProject inserts a new project.
func (ds *DataStore) CreateProject(project *Project) error {
	if err := ds.DB.Create(project).Error; err != nil {
		return dbError(err, "create-project")
	}
	return nil
}

// UpdateProject saves changed project fields.
func (ds *DataStore) UpdateProject(project *Project) error {
	if err := ds.DB.Save(project).Error; err != nil {
		return dbError(err, "update-project")
	}
	return nil
}

// GetProject retrieves a project by its ID.
func (ds *DataStore) GetProject(id uint) (Project, error) {
	var project Project
	if err := ds.DB.First(&project, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return Project{}, errors.Newf("project %d not found", id).
				Component("datastore").
				Category(errors.CategoryNotFound).
				Build()
		}
		return Project{}, dbError(err, "get-project")
	}
	return project, nil
}

// GetProjects lists projects, newest first.
func (ds *DataStore) GetProjects(limit, offset int) ([]Project, error) {
	var projects []Project
	query := ds.DB.Order("created_at DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}
	if err := query.Find(&projects).Error; err != nil {
		return nil, dbError(err, "get-projects")
	}
	return projects, nil
}

// DeleteProject soft-deletes a project and cascades the soft delete to
// its items.
func (ds *DataStore) DeleteProject(id uint) error {
	err := ds.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("project_id = ?", id).Delete(&Item{}).Error; err != nil {
			return fmt.Errorf("deleting project items: %w", err)
		}
		if err := tx.Delete(&Project{}, id).Error; err != nil {
			return fmt.Errorf("deleting project: %w", err)
		}
		return nil
	})
	if err != nil {
		return dbError(err, "delete-project")
	}
	return nil
}

// ProjectRiskStatistics computes the aggregate counts for a project from
// persisted item fields.
func (ds *DataStore) ProjectRiskStatistics(projectID uint) (RiskStatistics, error) {
	var items []Item
	if err := ds.DB.Where("project_id = ?", projectID).Find(&items).Error; err != nil {
		return RiskStatistics{}, dbError(err, "project-risk-statistics")
	}

	stats := RiskStatistics{Total: len(items)}
	for i := range items {
		item := &items[i]
		if item.RiskLevel != nil {
			switch *item.RiskLevel {
			case "low":
				stats.Low++
			case "medium":
				stats.Medium++
			case "high":
				stats.High++
			case "critical":
				stats.Critical++
			}
		}
		switch item.Status {
		case ItemStatusPending:
			stats.Pending++
		case ItemStatusCompleted:
			stats.Completed++
		case ItemStatusFailed:
			stats.Failed++
		}
		if item.RequiresHumanReview {
			stats.RequiresReview++
		}
	}
	return stats, nil
}

// CreateItem inserts a new item.
func (ds *DataStore) CreateItem(item *Item) error {
	if err := ds.DB.Create(item).Error; err != nil {
		return dbError(err, "create-item")
	}
	return nil
}

// UpdateItem saves changed item fields.
func (ds *DataStore) UpdateItem(item *Item) error {
	if err := ds.DB.Save(item).Error; err != nil {
		return dbError(err, "update-item")
	}
	return nil
}

// GetItem retrieves an item by its ID with its project preloaded.
func (ds *DataStore) GetItem(id uint) (Item, error) {
	var item Item
	if err := ds.DB.Preload("Project").First(&item, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return Item{}, errors.Newf("item %d not found", id).
				Component("datastore").
				Category(errors.CategoryNotFound).
				Build()
		}
		return Item{}, dbError(err, "get-item")
	}
	return item, nil
}

// GetItems lists items matching the filter, newest first.
func (ds *DataStore) GetItems(filter *ItemFilter) ([]Item, error) {
	query := ds.DB.Preload("Project").Order("created_at DESC")
	if filter != nil {
		if filter.ProjectID != 0 {
			query = query.Where("project_id = ?", filter.ProjectID)
		}
		if filter.Status != "" {
			query = query.Where("status = ?", filter.Status)
		}
		if filter.RiskLevel != "" {
			query = query.Where("risk_level = ?", filter.RiskLevel)
		}
		if filter.RequiresReview != nil {
			query = query.Where("requires_human_review = ?", *filter.RequiresReview)
		}
		if filter.Limit > 0 {
			query = query.Limit(filter.Limit)
		}
		if filter.Offset > 0 {
			query = query.Offset(filter.Offset)
		}
	}

	var items []Item
	if err := query.Find(&items).Error; err != nil {
		return nil, dbError(err, "get-items")
	}
	return items, nil
}

// GetProjectItemsByRisk lists a project's items ordered by descending
// risk score, unaudited items last. Used by the report exporters.
func (ds *DataStore) GetProjectItemsByRisk(projectID uint) ([]Item, error) {
	var items []Item
	err := ds.DB.Where("project_id = ?", projectID).
		Order("risk_score DESC").
		Find(&items).Error
	if err != nil {
		return nil, dbError(err, "get-project-items-by-risk")
	}
	return items, nil
}

// DeleteItem soft-deletes an item.
func (ds *DataStore) DeleteItem(id uint) error {
	if err := ds.DB.Delete(&Item{}, id).Error; err != nil {
		return dbError(err, "delete-item")
	}
	return nil
}

// RestoreItem clears an item's soft-delete marker and returns the
// restored item.
func (ds *DataStore) RestoreItem(id uint) (Item, error) {
	result := ds.DB.Unscoped().Model(&Item{}).
		Where("id = ? AND deleted_at IS NOT NULL", id).
		Update("deleted_at", nil)
	if result.Error != nil {
		return Item{}, dbError(result.Error, "restore-item")
	}
	if result.RowsAffected == 0 {
		return Item{}, errors.Newf("item %d not found or not deleted", id).
			Component("datastore").
			Category(errors.CategoryNotFound).
			Build()
	}
	return ds.GetItem(id)
}

// updateItemColumns applies a column update to a single item by ID.
func (ds *DataStore) updateItemColumns(id uint, operation string, values map[string]any) error {
	result := ds.DB.Model(&Item{}).Where("id = ?", id).Updates(values)
	if result.Error != nil {
		return dbError(result.Error, operation)
	}
	if result.RowsAffected == 0 {
		return errors.Newf("item %d not found", id).
			Component("datastore").
			Category(errors.CategoryNotFound).
			Build()
	}
	return nil
}

// MarkItemProcessing transitions an item to the processing state.
func (ds *DataStore) MarkItemProcessing(id uint) error {
	return ds.updateItemColumns(id, "mark-item-processing", map[string]any{
		"status": ItemStatusProcessing,
	})
}

// MarkItemCompleted transitions an item to the completed state and stamps
// the audit time.
func (ds *DataStore) MarkItemCompleted(id uint, auditedAt time.Time) error {
	return ds.updateItemColumns(id, "mark-item-completed", map[string]any{
		"status":     ItemStatusCompleted,
		"audited_at": auditedAt,
	})
}

// MarkItemFailed transitions an item to the failed state, records the
// error message and increments the attempt counter by one.
func (ds *DataStore) MarkItemFailed(id uint, errorMessage string) error {
	return ds.updateItemColumns(id, "mark-item-failed", map[string]any{
		"status":         ItemStatusFailed,
		"last_error":     errorMessage,
		"audit_attempts": gorm.Expr("audit_attempts + ?", 1),
	})
}

// SaveAuditResult writes the audit-result fields of a successful audit,
// including the serialized raw response and the model identifier used.
// The write goes through a struct update: gorm only runs the JSON
// serializer for struct-based writes, a map update would hand the raw
// breakdown map and suggestion slice straight to database/sql.
func (ds *DataStore) SaveAuditResult(id uint, update *AuditResultUpdate) error {
	values := Item{
		RiskScore:             &update.RiskScore,
		RiskLevel:             &update.RiskLevel,
		RiskSummary:           &update.RiskSummary,
		RiskBreakdown:         update.RiskBreakdown,
		MitigationSuggestions: update.MitigationSuggestions,
		LLMRawResponse:        &update.RawResponse,
		LLMModel:              &update.Model,
	}
	result := ds.DB.Model(&Item{}).
		Where("id = ?", id).
		Select("risk_score", "risk_level", "risk_summary", "risk_breakdown",
			"mitigation_suggestions", "llm_raw_response", "llm_model").
		Updates(&values)
	if result.Error != nil {
		return dbError(result.Error, "save-audit-result")
	}
	if result.RowsAffected == 0 {
		return errors.Newf("item %d not found", id).
			Component("datastore").
			Category(errors.CategoryNotFound).
			Build()
	}
	return nil
}

// SetRequiresHumanReview sets or clears the human-review flag. Outside
// of a reaudit reset, clearing is only ever triggered by an explicit
// mark-reviewed action; completing another audit never clears it.
func (ds *DataStore) SetRequiresHumanReview(id uint, required bool) error {
	return ds.updateItemColumns(id, "set-requires-human-review", map[string]any{
		"requires_human_review": required,
	})
}

// SetNotificationSent sets or clears the notification-sent marker. Once
// set it blocks further dispatch until a reaudit clears it.
func (ds *DataStore) SetNotificationSent(id uint, sent bool) error {
	return ds.updateItemColumns(id, "set-notification-sent", map[string]any{
		"notification_sent": sent,
	})
}

// ResetForReaudit clears all audit-result fields and the notification
// marker and puts the item back into pending. The attempt counter and
// last error are additionally reset only by the dedicated reaudit action
// (resetAttempts true); the update+reaudit path leaves them untouched.
func (ds *DataStore) ResetForReaudit(id uint, resetAttempts bool) error {
	values := map[string]any{
		"status":                 ItemStatusPending,
		"risk_score":             nil,
		"risk_level":             nil,
		"risk_summary":           nil,
		"risk_breakdown":         nil,
		"mitigation_suggestions": nil,
		"llm_raw_response":       nil,
		"llm_model":              nil,
		"audited_at":             nil,
		"requires_human_review":  false,
		"notification_sent":      false,
	}
	if resetAttempts {
		values["audit_attempts"] = 0
		values["last_error"] = nil
	}
	return ds.updateItemColumns(id, "reset-for-reaudit", values)
}

// Close closes the database connection.
func (ds *DataStore) Close() error {
	if ds.DB == nil {
		return nil
	}
	sqlDB, err := ds.DB.DB()
	if err != nil {
		return dbError(err, "close")
	}
	return sqlDB.Close()
}
