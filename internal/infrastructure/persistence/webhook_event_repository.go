package persistence

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/souqlink/backend/internal/domain/platform"
	"github.com/souqlink/backend/internal/domain/webhook"
)

// GormWebhookEventRepository implements webhook.Repository using GORM
type GormWebhookEventRepository struct {
	db *gorm.DB
}

var _ webhook.Repository = (*GormWebhookEventRepository)(nil)

// NewGormWebhookEventRepository creates a new GormWebhookEventRepository
func NewGormWebhookEventRepository(db *gorm.DB) *GormWebhookEventRepository {
	return &GormWebhookEventRepository{db: db}
}

// Insert atomically creates the event row. The unique index on
// (platform, store_id, idempotency_key) is the dedup boundary; a violation
// comes back as ErrDuplicateEvent.
func (r *GormWebhookEventRepository) Insert(ctx context.Context, e *webhook.Event) error {
	if err := r.db.WithContext(ctx).Create(e).Error; err != nil {
		if isUniqueViolation(err) {
			return webhook.ErrDuplicateEvent
		}
		return err
	}
	return nil
}

// UpdateStatus records the one-time status transition after dispatch
func (r *GormWebhookEventRepository) UpdateStatus(ctx context.Context, e *webhook.Event, status webhook.Status, errMessage string) error {
	e.Status = status
	e.ErrorMessage = errMessage
	e.UpdatedAt = time.Now()
	return r.db.WithContext(ctx).Model(e).
		Updates(map[string]interface{}{
			"status":        status,
			"error_message": errMessage,
			"updated_at":    e.UpdatedAt,
		}).Error
}

// FindByKey looks up a recorded delivery by its dedup key
func (r *GormWebhookEventRepository) FindByKey(ctx context.Context, code platform.Code, storeID, key string) (*webhook.Event, error) {
	var e webhook.Event
	if err := r.db.WithContext(ctx).
		Where("platform = ? AND store_id = ? AND idempotency_key = ?", code, storeID, key).
		First(&e).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, webhook.ErrEventNotFound
		}
		return nil, err
	}
	return &e, nil
}
