package order

import (
	"github.com/souqlink/backend/internal/domain/platform"
	"github.com/souqlink/backend/internal/domain/shared"
)

const (
	// EventTypeOrderSynced is published after an order converges through
	// the upsert path, whether it arrived by webhook or by poll
	EventTypeOrderSynced = "order.synced"
)

// SyncedEvent announces that an order was created or updated in the
// normalized store
type SyncedEvent struct {
	shared.BaseDomainEvent
	Platform        platform.Code `json:"platform"`
	PlatformOrderID string        `json:"platform_order_id"`
	Created         bool          `json:"created"`
}

// NewSyncedEvent creates an order-synced event
func NewSyncedEvent(o *Order, created bool) *SyncedEvent {
	return &SyncedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeOrderSynced, "order", o.ID),
		Platform:        o.Platform,
		PlatformOrderID: o.PlatformOrderID,
		Created:         created,
	}
}
