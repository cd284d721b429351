// Package attribution implements outbound click tracking and the
// click-to-commission pipeline.
package attribution

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/souqlink/backend/internal/domain/attribution"
	"github.com/souqlink/backend/internal/domain/catalog"
	"github.com/souqlink/backend/internal/domain/order"
	"github.com/souqlink/backend/internal/domain/platform"
	"github.com/souqlink/backend/internal/domain/shared"
	"github.com/souqlink/backend/internal/infrastructure/config"
)

var (
	ErrProductNotFound = errors.New("attribution: product not found")
	ErrNoDestination   = errors.New("attribution: product has no destination url")
)

// Service owns click recording and order attribution
type Service struct {
	clicks      attribution.ClickRepository
	commissions attribution.CommissionRepository
	products    catalog.ProductRepository
	window      time.Duration
	cooldown    time.Duration
	maxConv     int
	rate        decimal.Decimal
	events      shared.EventPublisher
	logger      *zap.Logger
}

// ServiceConfig contains the dependencies for the attribution Service
type ServiceConfig struct {
	Clicks      attribution.ClickRepository
	Commissions attribution.CommissionRepository
	Products    catalog.ProductRepository
	Config      config.AttributionConfig
	// Events is optional; commission creation is announced when set
	Events shared.EventPublisher
	Logger *zap.Logger
}

// NewService creates the attribution service
func NewService(cfg ServiceConfig) *Service {
	window := cfg.Config.Window
	if window <= 0 {
		window = 24 * time.Hour
	}
	cooldown := cfg.Config.ClickCooldown
	if cooldown <= 0 {
		cooldown = 30 * time.Minute
	}
	maxConv := cfg.Config.MaxConversionsPerClick
	if maxConv <= 0 {
		maxConv = 3
	}
	rate := decimal.NewFromFloat(cfg.Config.DefaultRate)
	if rate.IsZero() {
		rate = decimal.NewFromFloat(0.05)
	}
	return &Service{
		clicks:      cfg.Clicks,
		commissions: cfg.Commissions,
		products:    cfg.Products,
		window:      window,
		cooldown:    cooldown,
		maxConv:     maxConv,
		rate:        rate,
		events:      cfg.Events,
		logger:      cfg.Logger,
	}
}

// ClickResult is the outcome of one outbound click. DestinationURL is
// always set on success; TrackingID is nil for disqualified clicks.
type ClickResult struct {
	DestinationURL string
	TrackingID     *uuid.UUID
	Reason         attribution.DisqualifyReason
}

// RecordClick resolves the product, disqualifies duplicates and inactive
// targets, and records a tracking row for qualified clicks. Every click,
// qualified or not, lands in the outbound click event log; the redirect
// itself always proceeds.
func (s *Service) RecordClick(ctx context.Context, productSlug, sessionID string) (*ClickResult, error) {
	p, err := s.products.FindBySlug(ctx, productSlug)
	if err != nil {
		if errors.Is(err, catalog.ErrProductNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, err
	}
	if p.ProductURL == "" {
		return nil, ErrNoDestination
	}

	code := platform.CodeSalla
	if p.ZidID != "" && p.SallaID == "" {
		code = platform.CodeZid
	}

	if !p.Active {
		s.logClick(ctx, p, code, sessionID, attribution.ReasonInactiveProduct, nil)
		return &ClickResult{DestinationURL: p.ProductURL, Reason: attribution.ReasonInactiveProduct}, nil
	}

	if sessionID != "" {
		_, err := s.clicks.FindRecentBySession(ctx, p.ID, sessionID, time.Now().Add(-s.cooldown))
		if err == nil {
			s.logClick(ctx, p, code, sessionID, attribution.ReasonDuplicateSession, nil)
			return &ClickResult{DestinationURL: p.ProductURL, Reason: attribution.ReasonDuplicateSession}, nil
		}
		if !errors.Is(err, attribution.ErrClickNotFound) {
			return nil, err
		}
	}

	click := attribution.NewClickTracking(p.ID, p.MerchantID, code, sessionID, p.ProductURL, s.window)
	if err := s.clicks.Save(ctx, click); err != nil {
		return nil, fmt.Errorf("attribution: failed to save click: %w", err)
	}
	s.logClick(ctx, p, code, sessionID, attribution.ReasonQualified, &click.TrackingID)

	return &ClickResult{
		DestinationURL: p.ProductURL,
		TrackingID:     &click.TrackingID,
		Reason:         attribution.ReasonQualified,
	}, nil
}

// logClick appends to the superset event log; failures are logged, never
// surfaced, because the log must not block the redirect.
func (s *Service) logClick(ctx context.Context, p *catalog.Product, code platform.Code, sessionID string, reason attribution.DisqualifyReason, trackingID *uuid.UUID) {
	e := &attribution.OutboundClickEvent{
		BaseEntity:     shared.NewBaseEntity(),
		ProductID:      p.ID,
		Platform:       code,
		SessionID:      sessionID,
		DestinationURL: p.ProductURL,
		Reason:         reason,
		TrackingID:     trackingID,
	}
	if err := s.clicks.LogEvent(ctx, e); err != nil {
		s.logger.Warn("failed to log outbound click",
			zap.String("product_id", p.ID.String()),
			zap.Error(err),
		)
	}
}

// AttributionOutcome reports what AttributeOrder decided for one order
type AttributionOutcome struct {
	Attributed   bool
	CommissionID *uuid.UUID
}

// AttributeOrder runs the commission pipeline for a stored order. An order
// with no active click, an unconfirmed status, or an already-attributed id
// resolves without error; only infrastructure failures surface. At most
// one commission per order is enforced by the storage constraint, so
// concurrent deliveries cannot double-pay.
func (s *Service) AttributeOrder(ctx context.Context, o *order.Order) (*AttributionOutcome, error) {
	if !o.Status.IsConfirmed() {
		return &AttributionOutcome{}, nil
	}

	if _, err := s.commissions.FindByOrderID(ctx, o.ID); err == nil {
		return &AttributionOutcome{Attributed: true}, nil
	} else if !errors.Is(err, attribution.ErrCommissionNotFound) {
		return nil, err
	}

	click := s.findAttributableClick(ctx, o)
	if click == nil {
		// attribution miss: the order simply did not come through us
		return &AttributionOutcome{}, nil
	}

	now := time.Now()
	if err := click.Convert(now, s.maxConv); err != nil {
		if errors.Is(err, attribution.ErrClickExpired) || errors.Is(err, attribution.ErrConversionCapped) {
			return &AttributionOutcome{}, nil
		}
		return nil, err
	}
	if err := s.clicks.Save(ctx, click); err != nil {
		return nil, fmt.Errorf("attribution: failed to save conversion: %w", err)
	}

	commission, err := attribution.NewCommission(o.ID, o.MerchantID, click.ID, o.TotalAmount, s.rate)
	if err != nil {
		return nil, err
	}
	if err := s.commissions.Insert(ctx, commission); err != nil {
		if errors.Is(err, attribution.ErrCommissionExists) {
			// lost a race with a concurrent delivery; theirs stands
			return &AttributionOutcome{Attributed: true}, nil
		}
		return nil, err
	}

	s.logger.Info("order attributed",
		zap.String("order_id", o.ID.String()),
		zap.String("click_id", click.ID.String()),
		zap.String("amount", commission.Amount.String()),
	)
	if s.events != nil {
		if err := s.events.Publish(ctx, attribution.NewCommissionCreatedEvent(commission)); err != nil {
			s.logger.Warn("failed to publish commission event", zap.Error(err))
		}
	}
	return &AttributionOutcome{Attributed: true, CommissionID: &commission.ID}, nil
}

// findAttributableClick returns the newest active click across the
// order's resolvable line items.
func (s *Service) findAttributableClick(ctx context.Context, o *order.Order) *attribution.ClickTracking {
	now := time.Now()
	var best *attribution.ClickTracking
	for i := range o.Items {
		if o.Items[i].ProductID == nil {
			continue
		}
		click, err := s.clicks.FindLatestActive(ctx, *o.Items[i].ProductID, now)
		if err != nil {
			if !errors.Is(err, attribution.ErrClickNotFound) {
				s.logger.Warn("click lookup failed",
					zap.String("product_id", o.Items[i].ProductID.String()),
					zap.Error(err),
				)
			}
			continue
		}
		if best == nil || click.ClickedAt.After(best.ClickedAt) {
			best = click
		}
	}
	return best
}

// ApproveCommission moves a pending commission to approved
func (s *Service) ApproveCommission(ctx context.Context, id uuid.UUID) (*attribution.Commission, error) {
	c, err := s.commissions.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := c.Approve(); err != nil {
		return nil, err
	}
	if err := s.commissions.Save(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// RejectCommission moves a pending commission to rejected
func (s *Service) RejectCommission(ctx context.Context, id uuid.UUID) (*attribution.Commission, error) {
	c, err := s.commissions.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := c.Reject(); err != nil {
		return nil, err
	}
	if err := s.commissions.Save(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}
