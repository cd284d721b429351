package platform

import (
	"time"

	"github.com/shopspring/decimal"
)

// ---------------------------------------------------------------------------
// Normalized platform payloads
// ---------------------------------------------------------------------------

// Product is a platform-shaped product normalized to a common value object.
// The synchronizer upserts these into the catalog.
type Product struct {
	// ExternalID is the product id on the platform
	ExternalID string
	// PlatformCode identifies the source platform
	PlatformCode Code
	// StoreID is the external store the product belongs to
	StoreID string
	Name    string
	// Slug is the platform's URL fragment for the product, if any
	Slug        string
	Description string
	// CategoryName is the platform category label, used for best-effort
	// category inference
	CategoryName string
	Price        decimal.Decimal
	SalePrice    decimal.Decimal
	Currency     string
	Quantity     int
	ImageURL     string
	// ProductURL is the outbound destination for tracked clicks
	ProductURL string
	Active     bool
}

// OrderStatus is the normalized order state
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "PENDING"
	OrderStatusPaid      OrderStatus = "PAID"
	OrderStatusShipped   OrderStatus = "SHIPPED"
	OrderStatusDelivered OrderStatus = "DELIVERED"
	OrderStatusCancelled OrderStatus = "CANCELLED"
	OrderStatusRefunded  OrderStatus = "REFUNDED"
)

// IsValid returns true if the status is recognized
func (s OrderStatus) IsValid() bool {
	switch s {
	case OrderStatusPending, OrderStatusPaid, OrderStatusShipped,
		OrderStatusDelivered, OrderStatusCancelled, OrderStatusRefunded:
		return true
	default:
		return false
	}
}

// IsConfirmed returns true for states that qualify an order for
// commission attribution.
func (s OrderStatus) IsConfirmed() bool {
	switch s {
	case OrderStatusPaid, OrderStatusShipped, OrderStatusDelivered:
		return true
	default:
		return false
	}
}

// Order is a platform-shaped order normalized to a common value object
type Order struct {
	ExternalID   string
	PlatformCode Code
	StoreID      string
	Status       OrderStatus
	TotalAmount  decimal.Decimal
	Currency     string
	Items        []OrderItem
	CreatedAt    time.Time
	// RawData is the original platform payload (JSON), kept for audit
	RawData string
}

// OrderItem is a line item in a normalized order
type OrderItem struct {
	ExternalProductID string
	Name              string
	Quantity          int
	UnitPrice         decimal.Decimal
	TotalPrice        decimal.Decimal
}

// ---------------------------------------------------------------------------
// Tagged webhook event variant
// ---------------------------------------------------------------------------

// EventKind classifies a webhook payload after platform-specific decoding
type EventKind string

const (
	EventKindOrderCreated   EventKind = "order.created"
	EventKindOrderUpdated   EventKind = "order.updated"
	EventKindProductCreated EventKind = "product.created"
	EventKindProductUpdated EventKind = "product.updated"
	EventKindProductDeleted EventKind = "product.deleted"
	EventKindAppUninstalled EventKind = "app.uninstalled"
	EventKindUnknown        EventKind = "unknown"
)

// Event is the tagged variant produced once at ingestion; exactly one of
// Salla or Zid is non-nil. Business logic switches on Kind and the decoded
// normalized payloads, never on platform-name strings.
type Event struct {
	Kind    EventKind
	StoreID string
	Salla   *SallaEvent
	Zid     *ZidEvent
}

// Code returns the platform the event originated from
func (e *Event) Code() Code {
	if e.Salla != nil {
		return CodeSalla
	}
	return CodeZid
}

// SallaEvent carries the Salla-shaped payload
type SallaEvent struct {
	EventName string
	Payload   []byte
}

// ZidEvent carries the Zid-shaped payload
type ZidEvent struct {
	EventName string
	Payload   []byte
}
