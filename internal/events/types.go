// Package events provides an asynchronous in-process event bus that
// decouples item lifecycle changes from the subscribers acting on them,
// such as the audit enqueuer.
package events

import (
	"time"
)

// ItemEventKind tags the lifecycle event variants.
type ItemEventKind string

const (
	// ItemCreated is published after a new item has been persisted.
	ItemCreated ItemEventKind = "item-created"
	// ItemRestored is published after a soft-deleted item has been
	// restored.
	ItemRestored ItemEventKind = "item-restored"
)

// ItemEvent describes a lifecycle change of a single item.
type ItemEvent struct {
	Kind      ItemEventKind
	ItemID    uint
	ProjectID uint
	Status    string // item status at publish time
	Timestamp time.Time
}

// NewItemEvent creates an event stamped with the current time.
func NewItemEvent(kind ItemEventKind, itemID, projectID uint, status string) ItemEvent {
	return ItemEvent{
		Kind:      kind,
		ItemID:    itemID,
		ProjectID: projectID,
		Status:    status,
		Timestamp: time.Now(),
	}
}

// Consumer represents a subscriber that processes item events.
type Consumer interface {
	// Name returns the consumer name for identification
	Name() string

	// ProcessItemEvent processes a single item event
	ProcessItemEvent(event ItemEvent) error
}
