package ecommerce

import (
	"encoding/json"
	"fmt"

	"github.com/souqlink/backend/internal/domain/platform"
)

// sallaEventKinds maps Salla webhook event names onto the normalized kinds
var sallaEventKinds = map[string]platform.EventKind{
	"order.created":        platform.EventKindOrderCreated,
	"order.updated":        platform.EventKindOrderUpdated,
	"order.status.updated": platform.EventKindOrderUpdated,
	"product.created":      platform.EventKindProductCreated,
	"product.updated":      platform.EventKindProductUpdated,
	"product.deleted":      platform.EventKindProductDeleted,
	"app.uninstalled":      platform.EventKindAppUninstalled,
}

// zidEventKinds maps Zid webhook event names; Zid uses singular verbs
var zidEventKinds = map[string]platform.EventKind{
	"order.create":        platform.EventKindOrderCreated,
	"order.update":        platform.EventKindOrderUpdated,
	"order.status.update": platform.EventKindOrderUpdated,
	"product.create":      platform.EventKindProductCreated,
	"product.update":      platform.EventKindProductUpdated,
	"product.delete":      platform.EventKindProductDeleted,
	"app.uninstalled":     platform.EventKindAppUninstalled,
}

// EventKindFor classifies a raw platform event name. Unrecognized names
// come back as EventKindUnknown rather than an error so ingestion can
// record and skip them.
func EventKindFor(code platform.Code, eventName string) platform.EventKind {
	var kinds map[string]platform.EventKind
	switch code {
	case platform.CodeSalla:
		kinds = sallaEventKinds
	case platform.CodeZid:
		kinds = zidEventKinds
	default:
		return platform.EventKindUnknown
	}
	if kind, ok := kinds[eventName]; ok {
		return kind
	}
	return platform.EventKindUnknown
}

// WebhookDecoder turns tagged webhook events into normalized payloads.
// The same platform-shaped types back both the pull (API client) and push
// (webhook) paths, so a product arriving by webhook normalizes identically
// to one pulled by sync.
type WebhookDecoder struct{}

// NewWebhookDecoder creates a webhook payload decoder
func NewWebhookDecoder() *WebhookDecoder {
	return &WebhookDecoder{}
}

// Kind classifies a raw platform event name
func (d *WebhookDecoder) Kind(code platform.Code, eventName string) platform.EventKind {
	return EventKindFor(code, eventName)
}

// DecodeProduct decodes the event's data object into a normalized product
func (d *WebhookDecoder) DecodeProduct(e *platform.Event) (platform.Product, error) {
	switch {
	case e.Salla != nil:
		var p sallaProduct
		if err := json.Unmarshal(e.Salla.Payload, &p); err != nil {
			return platform.Product{}, fmt.Errorf("%w: malformed salla product payload: %v", platform.ErrUpstream, err)
		}
		return p.toNormalized(e.StoreID), nil
	case e.Zid != nil:
		var p zidProduct
		if err := json.Unmarshal(e.Zid.Payload, &p); err != nil {
			return platform.Product{}, fmt.Errorf("%w: malformed zid product payload: %v", platform.ErrUpstream, err)
		}
		return p.toNormalized(e.StoreID), nil
	default:
		return platform.Product{}, fmt.Errorf("%w: event carries no payload", platform.ErrUpstream)
	}
}

// DecodeOrder decodes the event's data object into a normalized order
func (d *WebhookDecoder) DecodeOrder(e *platform.Event) (platform.Order, error) {
	switch {
	case e.Salla != nil:
		var o sallaOrder
		if err := json.Unmarshal(e.Salla.Payload, &o); err != nil {
			return platform.Order{}, fmt.Errorf("%w: malformed salla order payload: %v", platform.ErrUpstream, err)
		}
		return o.toNormalized(e.StoreID, e.Salla.Payload), nil
	case e.Zid != nil:
		var o zidOrder
		if err := json.Unmarshal(e.Zid.Payload, &o); err != nil {
			return platform.Order{}, fmt.Errorf("%w: malformed zid order payload: %v", platform.ErrUpstream, err)
		}
		normalized := o.toNormalized(e.Zid.Payload)
		if normalized.StoreID == "" {
			normalized.StoreID = e.StoreID
		}
		return normalized, nil
	default:
		return platform.Order{}, fmt.Errorf("%w: event carries no payload", platform.ErrUpstream)
	}
}
