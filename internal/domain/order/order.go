package order

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/souqlink/backend/internal/domain/platform"
	"github.com/souqlink/backend/internal/domain/shared"
)

var (
	ErrOrderNotFound = errors.New("order: not found")
	ErrDuplicate     = errors.New("order: already exists")
)

// Order is a normalized order. (platform, platform_order_id) is unique, so
// repeated webhook deliveries of the same order converge to one row.
type Order struct {
	shared.BaseEntity
	MerchantID      uuid.UUID            `gorm:"type:uuid;not null;index"`
	Platform        platform.Code        `gorm:"type:varchar(20);not null;uniqueIndex:idx_order_platform_external,priority:1"`
	PlatformOrderID string               `gorm:"type:varchar(100);not null;uniqueIndex:idx_order_platform_external,priority:2"`
	Status          platform.OrderStatus `gorm:"type:varchar(20);not null"`
	TotalAmount     decimal.Decimal      `gorm:"type:decimal(18,4);not null;default:0"`
	Currency        string               `gorm:"type:varchar(10);not null;default:'SAR'"`
	Items           []Item               `gorm:"foreignKey:OrderID"`
	// RawData keeps the original platform payload for audit and triage
	RawData string `gorm:"type:jsonb"`
}

// TableName returns the table name for GORM
func (Order) TableName() string {
	return "orders"
}

// Item is a normalized order line item
type Item struct {
	shared.BaseEntity
	OrderID           uuid.UUID       `gorm:"type:uuid;not null;index"`
	ProductID         *uuid.UUID      `gorm:"type:uuid;index"`
	ExternalProductID string          `gorm:"type:varchar(100)"`
	Name              string          `gorm:"type:varchar(255);not null"`
	Quantity          int             `gorm:"not null;default:1"`
	UnitPrice         decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	TotalPrice        decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
}

// TableName returns the table name for GORM
func (Item) TableName() string {
	return "order_items"
}

// Repository is the persistence port for normalized orders
type Repository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Order, error)
	FindByPlatformOrderID(ctx context.Context, code platform.Code, platformOrderID string) (*Order, error)
	Save(ctx context.Context, o *Order) error
}
