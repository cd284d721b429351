package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/souqlink/backend/internal/application/connect"
	"github.com/souqlink/backend/internal/domain/attribution"
	"github.com/souqlink/backend/internal/domain/catalog"
	"github.com/souqlink/backend/internal/domain/merchant"
	"github.com/souqlink/backend/internal/domain/order"
	"github.com/souqlink/backend/internal/domain/platform"
	"github.com/souqlink/backend/internal/interfaces/http/dto"
	"github.com/souqlink/backend/internal/interfaces/http/middleware"
)

// RequestIDKey is the context key for the request id
const RequestIDKey = "X-Request-ID"

// BaseHandler provides common handler utilities
type BaseHandler struct{}

func getRequestID(c *gin.Context) string {
	if id := c.GetString(RequestIDKey); id != "" {
		return id
	}
	return c.GetHeader(RequestIDKey)
}

// getMerchantID extracts the authenticated merchant id from JWT claims
func getMerchantID(c *gin.Context) (uuid.UUID, error) {
	idStr := middleware.GetJWTMerchantID(c)
	if idStr == "" {
		return uuid.Nil, errors.New("merchant id not found in context")
	}
	return uuid.Parse(idStr)
}

// Success sends a success response
func (h *BaseHandler) Success(c *gin.Context, data any) {
	c.JSON(http.StatusOK, dto.NewSuccessResponse(data))
}

// Error sends an error response with the given status code
func (h *BaseHandler) Error(c *gin.Context, statusCode int, code, message string) {
	c.JSON(statusCode, dto.NewErrorResponseWithRequestID(code, message, getRequestID(c)))
}

// ErrorWithCode sends an error response, deriving the status from the code
func (h *BaseHandler) ErrorWithCode(c *gin.Context, code, message string) {
	h.Error(c, dto.GetHTTPStatus(code), code, message)
}

// BadRequest sends a 400 response
func (h *BaseHandler) BadRequest(c *gin.Context, message string) {
	h.Error(c, http.StatusBadRequest, dto.ErrCodeBadRequest, message)
}

// NotFound sends a 404 response
func (h *BaseHandler) NotFound(c *gin.Context, message string) {
	h.Error(c, http.StatusNotFound, dto.ErrCodeNotFound, message)
}

// Unauthorized sends a 401 response
func (h *BaseHandler) Unauthorized(c *gin.Context, code, message string) {
	h.Error(c, http.StatusUnauthorized, code, message)
}

// DomainError translates domain sentinels into response codes
func (h *BaseHandler) DomainError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, merchant.ErrMerchantNotFound),
		errors.Is(err, catalog.ErrProductNotFound),
		errors.Is(err, order.ErrOrderNotFound),
		errors.Is(err, attribution.ErrCommissionNotFound):
		h.ErrorWithCode(c, dto.ErrCodeNotFound, err.Error())
	case errors.Is(err, platform.ErrUnknownPlatform):
		h.ErrorWithCode(c, dto.ErrCodeBadRequest, err.Error())
	case errors.Is(err, platform.ErrNotConnected):
		h.ErrorWithCode(c, dto.ErrCodeNotConnected, err.Error())
	case errors.Is(err, platform.ErrAuth):
		h.ErrorWithCode(c, dto.ErrCodeUnauthorized, err.Error())
	case errors.Is(err, platform.ErrRateLimited):
		h.ErrorWithCode(c, dto.ErrCodeRateLimited, err.Error())
	case errors.Is(err, platform.ErrUpstream):
		h.ErrorWithCode(c, dto.ErrCodePlatformUpstream, err.Error())
	case errors.Is(err, attribution.ErrCommissionInvalidState):
		h.ErrorWithCode(c, dto.ErrCodeInvalidState, err.Error())
	case errors.Is(err, connect.ErrStateMismatch), errors.Is(err, connect.ErrInvalidState):
		h.ErrorWithCode(c, dto.ErrCodeStateMismatch, err.Error())
	default:
		h.ErrorWithCode(c, dto.ErrCodeInternal, "internal error")
	}
}

// parsePlatform resolves the :platform path parameter
func parsePlatform(c *gin.Context) (platform.Code, bool) {
	code, err := platform.ParseCode(c.Param("platform"))
	if err != nil {
		return "", false
	}
	return code, true
}
