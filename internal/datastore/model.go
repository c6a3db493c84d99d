// model.go this code defines the data model for the application
package datastore

import (
	"time"

	"gorm.io/gorm"

	"github.com/cfornesa/ethics-risk-audit-assistant/internal/ethics"
)

// Project status values.
const (
	ProjectStatusActive    = "active"
	ProjectStatusArchived  = "archived"
	ProjectStatusCompleted = "completed"
)

// Item lifecycle status values. Items move pending -> processing ->
// completed or failed; completed/failed go back to pending via reaudit.
const (
	ItemStatusPending    = "pending"
	ItemStatusProcessing = "processing"
	ItemStatusCompleted  = "completed"
	ItemStatusFailed     = "failed"
)

// Project represents a named collection of items owned by a user
type Project struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	OwnerID     uint           `gorm:"index" json:"owner_id"`
	Name        string         `gorm:"type:varchar(255);not null" json:"name"`
	Description string         `gorm:"type:text" json:"description"`
	Status      string         `gorm:"type:varchar(20);index;default:active" json:"status"`
	Metadata    map[string]any `gorm:"serializer:json" json:"metadata,omitempty"`
	Items       []Item         `gorm:"foreignKey:ProjectID;constraint:OnDelete:CASCADE" json:"items,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
}

// Item represents a unit of content submitted for an ethics/risk audit.
// Audit-result fields are nullable and stay nil until an audit completes.
type Item struct {
	ID          uint     `gorm:"primaryKey" json:"id"`
	ProjectID   uint     `gorm:"index;not null" json:"project_id"`
	Project     *Project `gorm:"foreignKey:ProjectID" json:"project,omitempty"`
	Title       string   `gorm:"type:varchar(255);not null" json:"title"`
	Content     string   `gorm:"type:text" json:"content"`
	ContentType string   `gorm:"type:varchar(20);default:message" json:"content_type"` // message, ad, script, post, other
	Status      string   `gorm:"type:varchar(20);index;default:pending" json:"status"`

	RiskScore             *int                 `gorm:"index" json:"risk_score"`
	RiskLevel             *string              `gorm:"type:varchar(20);index" json:"risk_level"`
	RiskSummary           *string              `gorm:"type:text" json:"risk_summary"`
	RiskBreakdown         ethics.RiskBreakdown `gorm:"serializer:json" json:"risk_breakdown"`
	MitigationSuggestions []string             `gorm:"serializer:json" json:"mitigation_suggestions"`
	LLMRawResponse        *string              `gorm:"type:text" json:"-"` // serialized model output, kept for reproducibility
	LLMModel              *string              `gorm:"type:varchar(100)" json:"llm_model"`
	AuditedAt             *time.Time           `json:"audited_at"`

	RequiresHumanReview bool    `gorm:"default:false;index" json:"requires_human_review"`
	NotificationSent    bool    `gorm:"default:false" json:"notification_sent"`
	AuditAttempts       int     `gorm:"default:0" json:"audit_attempts"`
	LastError           *string `gorm:"type:text" json:"last_error"`

	Metadata  map[string]any `gorm:"serializer:json" json:"metadata,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// IsHighRisk reports whether the item's audited level is high or critical.
func (i *Item) IsHighRisk() bool {
	if i.RiskLevel == nil {
		return false
	}
	return *i.RiskLevel == ethics.RiskLevelHigh || *i.RiskLevel == ethics.RiskLevelCritical
}

// IsPending reports whether the item is waiting for an audit.
func (i *Item) IsPending() bool {
	return i.Status == ItemStatusPending
}

// IsCompleted reports whether the item has a finished audit.
func (i *Item) IsCompleted() bool {
	return i.Status == ItemStatusCompleted
}

// AuditResultUpdate bundles the persisted outcome of a successful audit.
type AuditResultUpdate struct {
	RiskScore             int
	RiskLevel             string
	RiskSummary           string
	RiskBreakdown         ethics.RiskBreakdown
	MitigationSuggestions []string
	RawResponse           string
	Model                 string
}

// RiskStatistics holds aggregate per-project counts computed from
// persisted item fields.
type RiskStatistics struct {
	Total          int `json:"total"`
	Low            int `json:"low"`
	Medium         int `json:"medium"`
	High           int `json:"high"`
	Critical       int `json:"critical"`
	Pending        int `json:"pending"`
	Completed      int `json:"completed"`
	Failed         int `json:"failed"`
	RequiresReview int `json:"requires_review"`
}

// ItemFilter narrows item listings. Zero values mean "no filter".
type ItemFilter struct {
	ProjectID      uint
	Status         string
	RiskLevel      string
	RequiresReview *bool
	Limit          int
	Offset         int
}
