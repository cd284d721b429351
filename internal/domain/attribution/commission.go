package attribution

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/souqlink/backend/internal/domain/shared"
)

var (
	ErrCommissionNotFound = errors.New("attribution: commission not found")
	// ErrCommissionExists is the at-most-one-per-order guarantee surfacing
	// from the storage constraint
	ErrCommissionExists        = errors.New("attribution: commission already exists for order")
	ErrCommissionInvalidState  = errors.New("attribution: invalid commission state transition")
	ErrCommissionInvalidRate   = errors.New("attribution: rate must be between 0 and 1")
	ErrCommissionInvalidAmount = errors.New("attribution: amount must not be negative")
)

// CommissionStatus is the review state of a commission
type CommissionStatus string

const (
	CommissionStatusPending  CommissionStatus = "PENDING"
	CommissionStatusApproved CommissionStatus = "APPROVED"
	CommissionStatusRejected CommissionStatus = "REJECTED"
)

// Commission is the payout owed for one attributed order. OrderID is unique
// at the storage layer; that constraint, not application locking, enforces
// at most one commission per order.
type Commission struct {
	shared.BaseEntity
	OrderID    uuid.UUID        `gorm:"type:uuid;not null;uniqueIndex"`
	MerchantID uuid.UUID        `gorm:"type:uuid;not null;index"`
	ClickID    uuid.UUID        `gorm:"type:uuid;not null;index"`
	Amount     decimal.Decimal  `gorm:"type:decimal(18,4);not null"`
	Rate       decimal.Decimal  `gorm:"type:decimal(8,6);not null"`
	Status     CommissionStatus `gorm:"type:varchar(20);not null;default:'PENDING'"`
}

// TableName returns the table name for GORM
func (Commission) TableName() string {
	return "commissions"
}

// NewCommission computes a pending commission from the order total and rate
func NewCommission(orderID, merchantID, clickID uuid.UUID, orderTotal, rate decimal.Decimal) (*Commission, error) {
	if rate.IsNegative() || rate.GreaterThan(decimal.NewFromInt(1)) {
		return nil, ErrCommissionInvalidRate
	}
	if orderTotal.IsNegative() {
		return nil, ErrCommissionInvalidAmount
	}
	return &Commission{
		BaseEntity: shared.NewBaseEntity(),
		OrderID:    orderID,
		MerchantID: merchantID,
		ClickID:    clickID,
		Amount:     orderTotal.Mul(rate).Round(4),
		Rate:       rate,
		Status:     CommissionStatusPending,
	}, nil
}

// Approve moves a pending commission to approved
func (c *Commission) Approve() error {
	if c.Status != CommissionStatusPending {
		return ErrCommissionInvalidState
	}
	c.Status = CommissionStatusApproved
	c.Touch()
	return nil
}

// Reject moves a pending commission to rejected
func (c *Commission) Reject() error {
	if c.Status != CommissionStatusPending {
		return ErrCommissionInvalidState
	}
	c.Status = CommissionStatusRejected
	c.Touch()
	return nil
}

// CommissionRepository is the persistence port for commissions
type CommissionRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Commission, error)
	FindByOrderID(ctx context.Context, orderID uuid.UUID) (*Commission, error)
	// Insert creates the row; a uniqueness violation on order_id is
	// returned as ErrCommissionExists
	Insert(ctx context.Context, c *Commission) error
	Save(ctx context.Context, c *Commission) error
}
