// Package ingest implements the webhook gateway: signature verification,
// exactly-once recording of deliveries, and dispatch to the synchronizer
// and attribution pipeline.
package ingest

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/souqlink/backend/internal/application/attribution"
	"github.com/souqlink/backend/internal/domain/catalog"
	"github.com/souqlink/backend/internal/domain/merchant"
	"github.com/souqlink/backend/internal/domain/order"
	"github.com/souqlink/backend/internal/domain/platform"
	"github.com/souqlink/backend/internal/domain/shared"
	"github.com/souqlink/backend/internal/domain/webhook"
	"github.com/souqlink/backend/internal/infrastructure/config"
)

var (
	// ErrInvalidSignature rejects a delivery before the body is parsed
	ErrInvalidSignature = errors.New("ingest: invalid webhook signature")
	// ErrHandlerFailed wraps a dispatch failure; the event row persists as
	// FAILED and the sender is expected to redeliver
	ErrHandlerFailed = errors.New("ingest: handler failed")
)

// Synchronizer is the single-entity upsert surface the gateway dispatches to
type Synchronizer interface {
	UpsertProduct(ctx context.Context, merchantID uuid.UUID, p platform.Product) (*catalog.Product, bool, error)
	DeactivateProduct(ctx context.Context, code platform.Code, externalID string) error
	UpsertOrder(ctx context.Context, merchantID uuid.UUID, po platform.Order) (*order.Order, bool, error)
}

// Attributor runs the commission pipeline for stored orders
type Attributor interface {
	AttributeOrder(ctx context.Context, o *order.Order) (*attribution.AttributionOutcome, error)
}

// EventDecoder classifies and decodes platform-shaped webhook payloads
type EventDecoder interface {
	Kind(code platform.Code, eventName string) platform.EventKind
	DecodeProduct(e *platform.Event) (platform.Product, error)
	DecodeOrder(e *platform.Event) (platform.Order, error)
}

// Service is the webhook gateway
type Service struct {
	events      webhook.Repository
	idempotency shared.IdempotencyStore
	idemCfg     shared.IdempotencyConfig
	merchants   merchant.Repository
	sync        Synchronizer
	attribution Attributor
	decoder     EventDecoder
	bus         shared.EventPublisher
	salla       config.PlatformConfig
	zid         config.PlatformConfig
	logger      *zap.Logger
}

// ServiceConfig contains the dependencies for the ingest Service
type ServiceConfig struct {
	Events      webhook.Repository
	Idempotency shared.IdempotencyStore
	IdemConfig  shared.IdempotencyConfig
	Merchants   merchant.Repository
	Sync        Synchronizer
	Attribution Attributor
	Decoder     EventDecoder
	// Bus is optional; order convergence is announced when set
	Bus    shared.EventPublisher
	Config *config.Config
	Logger *zap.Logger
}

// NewService creates the webhook gateway service
func NewService(cfg ServiceConfig) *Service {
	return &Service{
		events:      cfg.Events,
		idempotency: cfg.Idempotency,
		idemCfg:     cfg.IdemConfig,
		merchants:   cfg.Merchants,
		sync:        cfg.Sync,
		attribution: cfg.Attribution,
		decoder:     cfg.Decoder,
		bus:         cfg.Bus,
		salla:       cfg.Config.Salla,
		zid:         cfg.Config.Zid,
		logger:      cfg.Logger,
	}
}

// Receipt reports how one delivery was concluded
type Receipt struct {
	Status    webhook.Status
	Duplicate bool
}

func (s *Service) secretFor(code platform.Code) (string, error) {
	switch code {
	case platform.CodeSalla:
		return s.salla.WebhookSecret, nil
	case platform.CodeZid:
		return s.zid.WebhookSecret, nil
	default:
		return "", platform.ErrUnknownPlatform
	}
}

// Ingest processes one webhook delivery end to end. The signature is
// checked over the raw bytes before anything is parsed; the (platform,
// store id, idempotency key) insert is the exactly-once boundary, so a
// duplicate delivery short-circuits with success. A handler failure leaves
// the event row FAILED and returns ErrHandlerFailed so the transport layer
// answers 500 and the sender redelivers.
func (s *Service) Ingest(ctx context.Context, code platform.Code, signature, deliveryID string, rawBody []byte) (*Receipt, error) {
	secret, err := s.secretFor(code)
	if err != nil {
		return nil, err
	}
	if !verifySignature(secret, rawBody, signature) {
		s.logger.Warn("webhook signature rejected", zap.String("platform", string(code)))
		return nil, ErrInvalidSignature
	}

	payload, parseErr := parsePayload(rawBody)
	if parseErr != nil {
		payload = &inboundPayload{}
	}
	key := webhook.IdempotencyKeyFor(deliveryID, rawBody)

	if s.idempotency != nil && s.idemCfg.Enabled {
		seen, err := s.idempotency.IsProcessed(ctx, s.fastKey(code, payload.StoreID, key))
		if err != nil {
			s.logger.Warn("idempotency fast-path check failed", zap.Error(err))
		} else if seen {
			return &Receipt{Status: webhook.StatusProcessed, Duplicate: true}, nil
		}
	}

	// the row starts FAILED so a crash between insert and dispatch still
	// leaves a triage-able record
	event := &webhook.Event{
		BaseEntity:     shared.NewBaseEntity(),
		Platform:       code,
		StoreID:        payload.StoreID,
		EventType:      payload.EventName,
		IdempotencyKey: key,
		RawPayload:     string(rawBody),
		Status:         webhook.StatusFailed,
	}
	if err := s.events.Insert(ctx, event); err != nil {
		if errors.Is(err, webhook.ErrDuplicateEvent) {
			s.logger.Info("duplicate webhook delivery",
				zap.String("platform", string(code)),
				zap.String("store_id", payload.StoreID),
				zap.String("idempotency_key", key),
			)
			return &Receipt{Status: webhook.StatusProcessed, Duplicate: true}, nil
		}
		return nil, err
	}

	if parseErr != nil {
		return s.skip(ctx, event, "unparseable payload")
	}
	if payload.StoreID == "" {
		return s.skip(ctx, event, "missing store id")
	}

	kind := s.decoder.Kind(code, payload.EventName)
	if kind == platform.EventKindUnknown {
		return s.skip(ctx, event, fmt.Sprintf("unhandled event type %q", payload.EventName))
	}

	m, err := s.merchants.FindByStoreID(ctx, code, payload.StoreID)
	if err != nil {
		if errors.Is(err, merchant.ErrMerchantNotFound) {
			return s.skip(ctx, event, "no merchant for store")
		}
		return s.fail(ctx, event, err)
	}

	if err := s.dispatch(ctx, m, s.taggedEvent(code, kind, payload)); err != nil {
		return s.fail(ctx, event, err)
	}

	if err := s.events.UpdateStatus(ctx, event, webhook.StatusProcessed, ""); err != nil {
		s.logger.Error("failed to mark webhook processed", zap.Error(err))
	}
	s.markSeen(ctx, code, payload.StoreID, key)
	return &Receipt{Status: webhook.StatusProcessed}, nil
}

// taggedEvent resolves the platform variant once; everything downstream
// switches on Kind and the decoded payloads.
func (s *Service) taggedEvent(code platform.Code, kind platform.EventKind, payload *inboundPayload) *platform.Event {
	e := &platform.Event{Kind: kind, StoreID: payload.StoreID}
	switch code {
	case platform.CodeZid:
		e.Zid = &platform.ZidEvent{EventName: payload.EventName, Payload: payload.Data}
	default:
		e.Salla = &platform.SallaEvent{EventName: payload.EventName, Payload: payload.Data}
	}
	return e
}

func (s *Service) dispatch(ctx context.Context, m *merchant.Merchant, e *platform.Event) error {
	switch e.Kind {
	case platform.EventKindOrderCreated, platform.EventKindOrderUpdated:
		return s.handleOrder(ctx, m, e)
	case platform.EventKindProductCreated, platform.EventKindProductUpdated:
		p, err := s.decoder.DecodeProduct(e)
		if err != nil {
			return err
		}
		_, _, err = s.sync.UpsertProduct(ctx, m.ID, p)
		return err
	case platform.EventKindProductDeleted:
		p, err := s.decoder.DecodeProduct(e)
		if err != nil {
			return err
		}
		return s.sync.DeactivateProduct(ctx, e.Code(), p.ExternalID)
	case platform.EventKindAppUninstalled:
		return s.merchants.RevokeCredentials(ctx, m.ID, e.Code())
	default:
		return fmt.Errorf("ingest: no handler for event kind %q", e.Kind)
	}
}

func (s *Service) handleOrder(ctx context.Context, m *merchant.Merchant, e *platform.Event) error {
	po, err := s.decoder.DecodeOrder(e)
	if err != nil {
		return err
	}
	o, created, err := s.sync.UpsertOrder(ctx, m.ID, po)
	if err != nil {
		return err
	}
	if s.bus != nil {
		if err := s.bus.Publish(ctx, order.NewSyncedEvent(o, created)); err != nil {
			s.logger.Warn("failed to publish order event", zap.Error(err))
		}
	}
	// attribution misses and already-attributed orders resolve cleanly
	// inside the pipeline; only infrastructure failures surface here
	_, err = s.attribution.AttributeOrder(ctx, o)
	return err
}

func (s *Service) skip(ctx context.Context, event *webhook.Event, reason string) (*Receipt, error) {
	if err := s.events.UpdateStatus(ctx, event, webhook.StatusSkipped, reason); err != nil {
		s.logger.Error("failed to mark webhook skipped", zap.Error(err))
	}
	s.logger.Info("webhook skipped",
		zap.String("platform", string(event.Platform)),
		zap.String("event_type", event.EventType),
		zap.String("reason", reason),
	)
	s.markSeen(ctx, event.Platform, event.StoreID, event.IdempotencyKey)
	return &Receipt{Status: webhook.StatusSkipped}, nil
}

func (s *Service) fail(ctx context.Context, event *webhook.Event, cause error) (*Receipt, error) {
	if err := s.events.UpdateStatus(ctx, event, webhook.StatusFailed, cause.Error()); err != nil {
		s.logger.Error("failed to mark webhook failed", zap.Error(err))
	}
	s.logger.Error("webhook handler failed",
		zap.String("platform", string(event.Platform)),
		zap.String("store_id", event.StoreID),
		zap.String("event_type", event.EventType),
		zap.Error(cause),
	)
	return nil, fmt.Errorf("%w: %v", ErrHandlerFailed, cause)
}

func (s *Service) fastKey(code platform.Code, storeID, key string) string {
	return fmt.Sprintf("%s:%s:%s", code, storeID, key)
}

// markSeen populates the advisory fast path; failures only cost a future
// database round trip, so they are logged and ignored.
func (s *Service) markSeen(ctx context.Context, code platform.Code, storeID, key string) {
	if s.idempotency == nil || !s.idemCfg.Enabled {
		return
	}
	if _, err := s.idempotency.MarkProcessed(ctx, s.fastKey(code, storeID, key), s.idemCfg.TTL); err != nil {
		s.logger.Warn("idempotency mark failed", zap.Error(err))
	}
}
