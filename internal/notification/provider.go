// Package notification dispatches high-risk alerts for audited items.
// Delivery itself is handled by pluggable push providers; retries and
// bounce handling belong to the underlying transport.
package notification

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Priority represents the urgency level of a notification
type Priority string

const (
	// PriorityCritical indicates urgent attention required
	PriorityCritical Priority = "critical"
	// PriorityHigh indicates important but not urgent
	PriorityHigh Priority = "high"
	// PriorityMedium indicates normal priority
	PriorityMedium Priority = "medium"
	// PriorityLow indicates low priority/informational
	PriorityLow Priority = "low"
)

// Notification represents a single alert to be delivered.
type Notification struct {
	ID        string    `json:"id"`
	Priority  Priority  `json:"priority"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// NewNotification creates a new notification with a unique ID and
// timestamp.
func NewNotification(priority Priority, title, message string) *Notification {
	return &Notification{
		ID:        uuid.New().String(),
		Priority:  priority,
		Title:     title,
		Message:   message,
		Timestamp: time.Now(),
	}
}

// Provider defines a push delivery backend. Implementations must be safe
// for concurrent use.
type Provider interface {
	GetName() string
	ValidateConfig() error
	Send(ctx context.Context, n *Notification) error
	IsEnabled() bool
}
