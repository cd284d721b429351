package attribution

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/souqlink/backend/internal/domain/shared"
)

const (
	// EventTypeCommissionCreated is published when an order attributes to
	// a click and a pending commission is written
	EventTypeCommissionCreated = "commission.created"
)

// CommissionCreatedEvent announces a newly attributed commission
type CommissionCreatedEvent struct {
	shared.BaseDomainEvent
	OrderID    uuid.UUID       `json:"order_id"`
	MerchantID uuid.UUID       `json:"merchant_id"`
	Amount     decimal.Decimal `json:"amount"`
}

// NewCommissionCreatedEvent creates a commission-created event
func NewCommissionCreatedEvent(c *Commission) *CommissionCreatedEvent {
	return &CommissionCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeCommissionCreated, "commission", c.ID),
		OrderID:         c.OrderID,
		MerchantID:      c.MerchantID,
		Amount:          c.Amount,
	}
}
