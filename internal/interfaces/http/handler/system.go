package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/souqlink/backend/internal/interfaces/http/dto"
)

// Pinger reports backing-store liveness
type Pinger interface {
	Ping() error
}

// SystemHandler serves health and readiness probes
type SystemHandler struct {
	BaseHandler
	db      Pinger
	version string
}

// NewSystemHandler creates a system handler
func NewSystemHandler(db Pinger, version string) *SystemHandler {
	return &SystemHandler{db: db, version: version}
}

// RegisterRoutes registers system routes on the root engine, outside the
// versioned API group
func (h *SystemHandler) RegisterRoutes(engine *gin.Engine) {
	engine.GET("/healthz", h.health)
	engine.GET("/ready", h.ready)
}

func (h *SystemHandler) health(c *gin.Context) {
	h.Success(c, gin.H{"status": "ok", "version": h.version})
}

func (h *SystemHandler) ready(c *gin.Context) {
	if h.db != nil {
		if err := h.db.Ping(); err != nil {
			c.JSON(http.StatusServiceUnavailable,
				dto.NewErrorResponse(dto.ErrCodeInternal, "database unavailable"))
			return
		}
	}
	h.Success(c, gin.H{"status": "ready"})
}
