package handler

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/souqlink/backend/internal/application/ingest"
	"github.com/souqlink/backend/internal/domain/platform"
	"github.com/souqlink/backend/internal/interfaces/http/dto"
)

// Per-platform signature and delivery-id headers. Signatures are computed
// over the raw body; the delivery id, when present, becomes the
// idempotency key.
const (
	sallaSignatureHeader = "X-Salla-Signature"
	sallaDeliveryHeader  = "X-Salla-Delivery-Id"
	zidSignatureHeader   = "X-Zid-Signature"
	zidDeliveryHeader    = "X-Zid-Delivery-Id"
)

// WebhookHandler receives platform webhook deliveries
type WebhookHandler struct {
	BaseHandler
	ingest *ingest.Service
	logger *zap.Logger
}

// NewWebhookHandler creates a webhook handler
func NewWebhookHandler(svc *ingest.Service, logger *zap.Logger) *WebhookHandler {
	return &WebhookHandler{ingest: svc, logger: logger}
}

// RegisterRoutes registers webhook routes
func (h *WebhookHandler) RegisterRoutes(rg *gin.RouterGroup) {
	webhooks := rg.Group("/webhooks")
	webhooks.POST("/salla", h.receive(platform.CodeSalla, sallaSignatureHeader, sallaDeliveryHeader))
	webhooks.POST("/zid", h.receive(platform.CodeZid, zidSignatureHeader, zidDeliveryHeader))
}

// receive answers 200 for accepted, duplicate and skipped deliveries, 401
// for signature failures, and 500 for handler failures so the sender
// redelivers.
func (h *WebhookHandler) receive(code platform.Code, sigHeader, deliveryHeader string) gin.HandlerFunc {
	return func(c *gin.Context) {
		body, err := io.ReadAll(c.Request.Body)
		if err != nil {
			h.BadRequest(c, "unable to read request body")
			return
		}

		receipt, err := h.ingest.Ingest(
			c.Request.Context(),
			code,
			c.GetHeader(sigHeader),
			c.GetHeader(deliveryHeader),
			body,
		)
		if err != nil {
			switch {
			case errors.Is(err, ingest.ErrInvalidSignature):
				h.Unauthorized(c, dto.ErrCodeSignatureInvalid, "webhook signature verification failed")
			case errors.Is(err, ingest.ErrHandlerFailed):
				h.Error(c, http.StatusInternalServerError, dto.ErrCodeInternal, "event recorded but processing failed")
			default:
				h.logger.Error("webhook ingestion failed",
					zap.String("platform", string(code)),
					zap.Error(err),
				)
				h.Error(c, http.StatusInternalServerError, dto.ErrCodeInternal, "internal error")
			}
			return
		}

		h.Success(c, dto.WebhookReceiptResponse{
			Status:    string(receipt.Status),
			Duplicate: receipt.Duplicate,
		})
	}
}
