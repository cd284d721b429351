package handler

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/souqlink/backend/internal/application/sync"
	"github.com/souqlink/backend/internal/interfaces/http/dto"
)

// defaultOrderLookback bounds an incremental order sync when the caller
// does not pass a since parameter
const defaultOrderLookback = 30 * 24 * time.Hour

// defaultRepairBatch caps one category-repair pass
const defaultRepairBatch = 500

// SyncHandler exposes the poll-driven synchronizer and the category
// repair maintenance operation
type SyncHandler struct {
	BaseHandler
	sync    *sync.Service
	jwtAuth gin.HandlerFunc
	logger  *zap.Logger
}

// NewSyncHandler creates a sync handler
func NewSyncHandler(svc *sync.Service, jwtAuth gin.HandlerFunc, logger *zap.Logger) *SyncHandler {
	return &SyncHandler{sync: svc, jwtAuth: jwtAuth, logger: logger}
}

// RegisterRoutes registers sync and maintenance routes
func (h *SyncHandler) RegisterRoutes(rg *gin.RouterGroup) {
	group := rg.Group("/sync/:platform", h.jwtAuth)
	group.POST("/products", h.syncProducts)
	group.POST("/orders", h.syncOrders)

	rg.POST("/maintenance/category-repair", h.jwtAuth, h.repairCategories)
}

func (h *SyncHandler) syncProducts(c *gin.Context) {
	code, ok := parsePlatform(c)
	if !ok {
		h.BadRequest(c, "unknown platform")
		return
	}
	merchantID, err := getMerchantID(c)
	if err != nil {
		h.Unauthorized(c, dto.ErrCodeUnauthorized, "merchant session required")
		return
	}

	result, err := h.sync.SyncProducts(c.Request.Context(), merchantID, code)
	if err != nil {
		h.DomainError(c, err)
		return
	}
	h.Success(c, toSyncResult(result))
}

func (h *SyncHandler) syncOrders(c *gin.Context) {
	code, ok := parsePlatform(c)
	if !ok {
		h.BadRequest(c, "unknown platform")
		return
	}
	merchantID, err := getMerchantID(c)
	if err != nil {
		h.Unauthorized(c, dto.ErrCodeUnauthorized, "merchant session required")
		return
	}

	since := time.Now().Add(-defaultOrderLookback)
	if raw := c.Query("since"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			h.BadRequest(c, "since must be RFC 3339")
			return
		}
		since = parsed
	}

	result, err := h.sync.SyncOrders(c.Request.Context(), merchantID, code, since)
	if err != nil {
		h.DomainError(c, err)
		return
	}
	h.Success(c, toSyncResult(result))
}

func (h *SyncHandler) repairCategories(c *gin.Context) {
	result, err := h.sync.RepairCategories(c.Request.Context(), defaultRepairBatch)
	if err != nil {
		h.DomainError(c, err)
		return
	}
	h.Success(c, toSyncResult(result))
}

func toSyncResult(r *sync.Result) dto.SyncResultResponse {
	return dto.SyncResultResponse{
		Total:   r.Total,
		Created: r.Created,
		Updated: r.Updated,
		Failed:  r.Failed,
	}
}
