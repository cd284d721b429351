package attribution

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/souqlink/backend/internal/domain/platform"
	"github.com/souqlink/backend/internal/domain/shared"
)

var (
	ErrClickNotFound    = errors.New("attribution: click not found")
	ErrClickExpired     = errors.New("attribution: click expired")
	ErrConversionCapped = errors.New("attribution: conversion cap reached")
)

// ClickTracking is one qualified outbound click. ExpiresAt is always
// ClickedAt plus the fixed attribution window; a click reaches the
// converted state at most once, though ConvertedCount may grow (capped)
// when several orders attribute to it.
type ClickTracking struct {
	shared.BaseEntity
	TrackingID     uuid.UUID     `gorm:"type:uuid;not null;uniqueIndex"`
	ProductID      uuid.UUID     `gorm:"type:uuid;not null;index:idx_click_product_clicked,priority:1"`
	MerchantID     uuid.UUID     `gorm:"type:uuid;not null;index"`
	Platform       platform.Code `gorm:"type:varchar(20);not null"`
	SessionID      string        `gorm:"type:varchar(128);index"`
	DestinationURL string        `gorm:"type:varchar(1000);not null"`
	ClickedAt      time.Time     `gorm:"not null;index:idx_click_product_clicked,priority:2"`
	ExpiresAt      time.Time     `gorm:"not null;index"`
	Converted      bool          `gorm:"not null;default:false"`
	ConvertedCount int           `gorm:"not null;default:0"`
}

// TableName returns the table name for GORM
func (ClickTracking) TableName() string {
	return "click_trackings"
}

// NewClickTracking records a qualified click with the fixed window
func NewClickTracking(productID, merchantID uuid.UUID, code platform.Code, sessionID, destination string, window time.Duration) *ClickTracking {
	now := time.Now()
	return &ClickTracking{
		BaseEntity:     shared.NewBaseEntity(),
		TrackingID:     uuid.New(),
		ProductID:      productID,
		MerchantID:     merchantID,
		Platform:       code,
		SessionID:      sessionID,
		DestinationURL: destination,
		ClickedAt:      now,
		ExpiresAt:      now.Add(window),
	}
}

// IsExpired reports whether the attribution window has closed
func (c *ClickTracking) IsExpired(at time.Time) bool {
	return at.After(c.ExpiresAt)
}

// Convert transitions the click toward the converted state. The first
// conversion flips Converted; later ones only grow the counter, up to cap.
func (c *ClickTracking) Convert(at time.Time, cap int) error {
	if c.IsExpired(at) {
		return ErrClickExpired
	}
	if c.ConvertedCount >= cap {
		return ErrConversionCapped
	}
	c.Converted = true
	c.ConvertedCount++
	c.Touch()
	return nil
}

// DisqualifyReason is a reason code in the superset click event log
type DisqualifyReason string

const (
	// ReasonQualified marks a click that produced a tracking row
	ReasonQualified DisqualifyReason = "QUALIFIED"
	// ReasonDuplicateSession marks a repeat click from the same session
	// inside the cooldown
	ReasonDuplicateSession DisqualifyReason = "DUPLICATE_SESSION"
	// ReasonInactiveProduct marks a click on a deactivated product
	ReasonInactiveProduct DisqualifyReason = "INACTIVE_PRODUCT"
)

// OutboundClickEvent is the append-only superset log of all outbound
// clicks, including disqualified ones. It keeps the attribution table
// free of noise while preserving the full record.
type OutboundClickEvent struct {
	shared.BaseEntity
	ProductID      uuid.UUID        `gorm:"type:uuid;not null;index"`
	Platform       platform.Code    `gorm:"type:varchar(20);not null"`
	SessionID      string           `gorm:"type:varchar(128)"`
	DestinationURL string           `gorm:"type:varchar(1000)"`
	Reason         DisqualifyReason `gorm:"type:varchar(30);not null"`
	// TrackingID links back to the ClickTracking row for qualified clicks
	TrackingID *uuid.UUID `gorm:"type:uuid"`
}

// TableName returns the table name for GORM
func (OutboundClickEvent) TableName() string {
	return "outbound_click_events"
}

// ClickRepository is the persistence port for click tracking
type ClickRepository interface {
	FindByTrackingID(ctx context.Context, trackingID uuid.UUID) (*ClickTracking, error)
	// FindLatestActive returns the newest non-expired click for the product,
	// or ErrClickNotFound
	FindLatestActive(ctx context.Context, productID uuid.UUID, at time.Time) (*ClickTracking, error)
	// FindRecentBySession supports the duplicate-click cooldown check
	FindRecentBySession(ctx context.Context, productID uuid.UUID, sessionID string, since time.Time) (*ClickTracking, error)
	Save(ctx context.Context, c *ClickTracking) error
	LogEvent(ctx context.Context, e *OutboundClickEvent) error
}
