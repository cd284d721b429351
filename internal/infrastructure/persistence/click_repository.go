package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/souqlink/backend/internal/domain/attribution"
)

// GormClickRepository implements attribution.ClickRepository using GORM
type GormClickRepository struct {
	db *gorm.DB
}

var _ attribution.ClickRepository = (*GormClickRepository)(nil)

// NewGormClickRepository creates a new GormClickRepository
func NewGormClickRepository(db *gorm.DB) *GormClickRepository {
	return &GormClickRepository{db: db}
}

// FindByTrackingID finds a click by its public tracking id
func (r *GormClickRepository) FindByTrackingID(ctx context.Context, trackingID uuid.UUID) (*attribution.ClickTracking, error) {
	var c attribution.ClickTracking
	if err := r.db.WithContext(ctx).First(&c, "tracking_id = ?", trackingID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, attribution.ErrClickNotFound
		}
		return nil, err
	}
	return &c, nil
}

// FindLatestActive returns the newest click for the product whose
// attribution window is still open at the given instant.
func (r *GormClickRepository) FindLatestActive(ctx context.Context, productID uuid.UUID, at time.Time) (*attribution.ClickTracking, error) {
	var c attribution.ClickTracking
	if err := r.db.WithContext(ctx).
		Where("product_id = ? AND expires_at > ?", productID, at).
		Order("clicked_at DESC").
		First(&c).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, attribution.ErrClickNotFound
		}
		return nil, err
	}
	return &c, nil
}

// FindRecentBySession returns the most recent click for the same product and
// session since the given instant, for the duplicate-click cooldown.
func (r *GormClickRepository) FindRecentBySession(ctx context.Context, productID uuid.UUID, sessionID string, since time.Time) (*attribution.ClickTracking, error) {
	var c attribution.ClickTracking
	if err := r.db.WithContext(ctx).
		Where("product_id = ? AND session_id = ? AND clicked_at >= ?", productID, sessionID, since).
		Order("clicked_at DESC").
		First(&c).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, attribution.ErrClickNotFound
		}
		return nil, err
	}
	return &c, nil
}

// Save persists the click tracking row
func (r *GormClickRepository) Save(ctx context.Context, c *attribution.ClickTracking) error {
	return r.db.WithContext(ctx).Save(c).Error
}

// LogEvent appends to the superset outbound click log
func (r *GormClickRepository) LogEvent(ctx context.Context, e *attribution.OutboundClickEvent) error {
	return r.db.WithContext(ctx).Create(e).Error
}
