package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/souqlink/backend/internal/domain/attribution"
)

// GormCommissionRepository implements attribution.CommissionRepository using GORM
type GormCommissionRepository struct {
	db *gorm.DB
}

var _ attribution.CommissionRepository = (*GormCommissionRepository)(nil)

// NewGormCommissionRepository creates a new GormCommissionRepository
func NewGormCommissionRepository(db *gorm.DB) *GormCommissionRepository {
	return &GormCommissionRepository{db: db}
}

// FindByID finds a commission by id
func (r *GormCommissionRepository) FindByID(ctx context.Context, id uuid.UUID) (*attribution.Commission, error) {
	var c attribution.Commission
	if err := r.db.WithContext(ctx).First(&c, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, attribution.ErrCommissionNotFound
		}
		return nil, err
	}
	return &c, nil
}

// FindByOrderID finds the commission for an order, if one exists
func (r *GormCommissionRepository) FindByOrderID(ctx context.Context, orderID uuid.UUID) (*attribution.Commission, error) {
	var c attribution.Commission
	if err := r.db.WithContext(ctx).First(&c, "order_id = ?", orderID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, attribution.ErrCommissionNotFound
		}
		return nil, err
	}
	return &c, nil
}

// Insert creates the commission row. The unique index on order_id enforces
// at most one commission per order; a violation comes back as
// ErrCommissionExists.
func (r *GormCommissionRepository) Insert(ctx context.Context, c *attribution.Commission) error {
	if err := r.db.WithContext(ctx).Create(c).Error; err != nil {
		if isUniqueViolation(err) {
			return attribution.ErrCommissionExists
		}
		return err
	}
	return nil
}

// Save persists status transitions on an existing commission
func (r *GormCommissionRepository) Save(ctx context.Context, c *attribution.Commission) error {
	return r.db.WithContext(ctx).Save(c).Error
}
