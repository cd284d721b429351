package webhook

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"

	"github.com/souqlink/backend/internal/domain/platform"
	"github.com/souqlink/backend/internal/domain/shared"
)

var (
	// ErrDuplicateEvent is the idempotency short-circuit. It is a normal
	// outcome of at-least-once delivery, not a failure.
	ErrDuplicateEvent = errors.New("webhook: duplicate event")
	ErrEventNotFound  = errors.New("webhook: event not found")
)

// Status is the processing state of an ingested event. It transitions once
// after handler dispatch and the row is never deleted (audit trail).
type Status string

const (
	// StatusProcessed means the handler completed
	StatusProcessed Status = "PROCESSED"
	// StatusFailed means the handler returned an error; the row persists
	// for triage and the sender was asked to redeliver
	StatusFailed Status = "FAILED"
	// StatusSkipped means the payload was accepted but permanently
	// unprocessable (e.g. missing store id)
	StatusSkipped Status = "SKIPPED"
)

// Event is one recorded webhook delivery. (platform, store_id,
// idempotency_key) is unique; that constraint is the exactly-once
// enforcement boundary.
type Event struct {
	shared.BaseEntity
	Platform       platform.Code `gorm:"type:varchar(20);not null;uniqueIndex:idx_webhook_event_dedup,priority:1"`
	StoreID        string        `gorm:"type:varchar(100);not null;uniqueIndex:idx_webhook_event_dedup,priority:2"`
	EventType      string        `gorm:"type:varchar(100);not null;index"`
	IdempotencyKey string        `gorm:"type:varchar(128);not null;uniqueIndex:idx_webhook_event_dedup,priority:3"`
	RawPayload     string        `gorm:"type:jsonb;not null"`
	Status         Status        `gorm:"type:varchar(20);not null"`
	ErrorMessage   string        `gorm:"type:text"`
}

// TableName returns the table name for GORM
func (Event) TableName() string {
	return "webhook_events"
}

// IdempotencyKeyFor computes the dedup key for one delivery: the delivery
// header id when the platform supplies one, else a content hash of the raw,
// unparsed body.
func IdempotencyKeyFor(deliveryID string, rawBody []byte) string {
	if deliveryID != "" {
		return deliveryID
	}
	sum := sha256.Sum256(rawBody)
	return hex.EncodeToString(sum[:])
}

// Repository is the persistence port for webhook events
type Repository interface {
	// Insert atomically creates the event row. A uniqueness violation on
	// (platform, store_id, idempotency_key) is returned as
	// ErrDuplicateEvent; it relies on the storage layer's constraint, not
	// in-process locking, because ingestion runs across instances.
	Insert(ctx context.Context, e *Event) error
	// UpdateStatus records the one-time status transition after dispatch
	UpdateStatus(ctx context.Context, e *Event, status Status, errMessage string) error
	FindByKey(ctx context.Context, code platform.Code, storeID, key string) (*Event, error)
}
