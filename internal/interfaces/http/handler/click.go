package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/souqlink/backend/internal/application/attribution"
)

// sessionCookieName identifies the browser session for the duplicate-click
// cooldown; it carries no identity
const sessionCookieName = "souq_session"

const sessionCookieMaxAge = 60 * 60 * 24 * 30

// ClickHandler serves the outbound redirect that records attribution
type ClickHandler struct {
	BaseHandler
	attribution *attribution.Service
	logger      *zap.Logger
}

// NewClickHandler creates a click handler
func NewClickHandler(svc *attribution.Service, logger *zap.Logger) *ClickHandler {
	return &ClickHandler{attribution: svc, logger: logger}
}

// RegisterRoutes registers the redirect route
func (h *ClickHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/go/:slug", h.redirect)
}

// redirect records the click and sends the visitor to the platform store.
// Disqualified clicks still redirect; only an unknown product is a 404.
func (h *ClickHandler) redirect(c *gin.Context) {
	sessionID, err := c.Cookie(sessionCookieName)
	if err != nil || sessionID == "" {
		sessionID = uuid.NewString()
		c.SetCookie(sessionCookieName, sessionID, sessionCookieMaxAge, "/", "", false, true)
	}

	result, err := h.attribution.RecordClick(c.Request.Context(), c.Param("slug"), sessionID)
	if err != nil {
		if errors.Is(err, attribution.ErrProductNotFound) || errors.Is(err, attribution.ErrNoDestination) {
			h.NotFound(c, "product not found")
			return
		}
		h.logger.Error("click recording failed",
			zap.String("slug", c.Param("slug")),
			zap.Error(err),
		)
		h.DomainError(c, err)
		return
	}

	c.Redirect(http.StatusFound, result.DestinationURL)
}
