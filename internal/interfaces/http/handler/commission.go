package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	appattr "github.com/souqlink/backend/internal/application/attribution"
	"github.com/souqlink/backend/internal/domain/attribution"
	"github.com/souqlink/backend/internal/interfaces/http/dto"
)

// CommissionHandler exposes the commission review operations
type CommissionHandler struct {
	BaseHandler
	attribution *appattr.Service
	jwtAuth     gin.HandlerFunc
}

// NewCommissionHandler creates a commission handler
func NewCommissionHandler(svc *appattr.Service, jwtAuth gin.HandlerFunc) *CommissionHandler {
	return &CommissionHandler{attribution: svc, jwtAuth: jwtAuth}
}

// RegisterRoutes registers commission routes
func (h *CommissionHandler) RegisterRoutes(rg *gin.RouterGroup) {
	group := rg.Group("/commissions", h.jwtAuth)
	group.POST("/:id/approve", h.approve)
	group.POST("/:id/reject", h.reject)
}

func (h *CommissionHandler) approve(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "invalid commission id")
		return
	}
	commission, err := h.attribution.ApproveCommission(c.Request.Context(), id)
	if err != nil {
		h.DomainError(c, err)
		return
	}
	h.Success(c, toCommissionResponse(commission))
}

func (h *CommissionHandler) reject(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "invalid commission id")
		return
	}
	commission, err := h.attribution.RejectCommission(c.Request.Context(), id)
	if err != nil {
		h.DomainError(c, err)
		return
	}
	h.Success(c, toCommissionResponse(commission))
}

func toCommissionResponse(c *attribution.Commission) dto.CommissionResponse {
	return dto.CommissionResponse{
		ID:         c.ID.String(),
		OrderID:    c.OrderID.String(),
		MerchantID: c.MerchantID.String(),
		Amount:     c.Amount.String(),
		Rate:       c.Rate.String(),
		Status:     string(c.Status),
	}
}
