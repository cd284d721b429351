package handler

import (
	"errors"
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/souqlink/backend/internal/application/connect"
	"github.com/souqlink/backend/internal/infrastructure/config"
	"github.com/souqlink/backend/internal/interfaces/http/dto"
	"github.com/souqlink/backend/internal/interfaces/http/middleware"
)

// stateCookieName is the short-lived http-only echo of the OAuth state
// token that binds the callback to the originating browser
const stateCookieName = "souq_oauth_state"

// stateCookieMaxAge bounds the cookie to the state token's own lifetime
const stateCookieMaxAge = 600

// OAuthHandler drives the merchant-facing OAuth connection flow
type OAuthHandler struct {
	BaseHandler
	connect   *connect.Service
	jwtAuth   gin.HandlerFunc
	cookie    config.CookieConfig
	dashboard string
	logger    *zap.Logger
}

// NewOAuthHandler creates an OAuth handler
func NewOAuthHandler(svc *connect.Service, jwtAuth gin.HandlerFunc, cfg *config.Config, logger *zap.Logger) *OAuthHandler {
	return &OAuthHandler{
		connect:   svc,
		jwtAuth:   jwtAuth,
		cookie:    cfg.Cookie,
		dashboard: cfg.App.DashboardURL,
		logger:    logger,
	}
}

// RegisterRoutes registers OAuth routes. The callback and join legs are
// unauthenticated: the platform redirect cannot carry a session, and a
// joining merchant does not have one yet.
func (h *OAuthHandler) RegisterRoutes(rg *gin.RouterGroup) {
	oauth := rg.Group("/oauth/:platform")
	oauth.GET("/start", h.jwtAuth, h.start)
	oauth.GET("/join", h.join)
	oauth.GET("/callback", h.callback)
	oauth.DELETE("", h.jwtAuth, h.disconnect)

	rg.GET("/connections", h.jwtAuth, h.status)
}

func (h *OAuthHandler) start(c *gin.Context) {
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

	auth, err := h.connect.BeginAuthorization(c.Request.Context(), merchantID, code)
	if err != nil {
		h.DomainError(c, err)
		return
	}
	h.setStateCookie(c, auth.State)
	c.Redirect(http.StatusFound, auth.RedirectURL)
}

func (h *OAuthHandler) join(c *gin.Context) {
	code, ok := parsePlatform(c)
	if !ok {
		h.BadRequest(c, "unknown platform")
		return
	}
	var req dto.JoinRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	auth, err := h.connect.Join(c.Request.Context(), req.Name, req.Email, code)
	if err != nil {
		h.DomainError(c, err)
		return
	}
	h.setStateCookie(c, auth.State)
	c.Redirect(http.StatusFound, auth.RedirectURL)
}

// callback always redirects to the dashboard; the outcome travels in the
// status query parameter rather than a JSON body because the caller is a
// browser coming back from the platform consent screen.
func (h *OAuthHandler) callback(c *gin.Context) {
	code, ok := parsePlatform(c)
	if !ok {
		c.Redirect(http.StatusFound, h.dashboardRedirect("error"))
		return
	}

	cookieState, err := c.Cookie(stateCookieName)
	if err != nil {
		cookieState = ""
	}
	h.clearStateCookie(c)

	err = h.connect.CompleteAuthorization(
		c.Request.Context(),
		code,
		c.Query("code"),
		c.Query("state"),
		cookieState,
	)
	if err != nil {
		if !errors.Is(err, connect.ErrStateMismatch) && !errors.Is(err, connect.ErrInvalidState) {
			h.logger.Warn("oauth callback failed",
				zap.String("platform", string(code)),
				zap.Error(err),
			)
		}
		c.Redirect(http.StatusFound, h.dashboardRedirect("error"))
		return
	}
	c.Redirect(http.StatusFound, h.dashboardRedirect("connected"))
}

func (h *OAuthHandler) disconnect(c *gin.Context) {
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
	if err := h.connect.Disconnect(c.Request.Context(), merchantID, code); err != nil {
		h.DomainError(c, err)
		return
	}
	h.Success(c, gin.H{"disconnected": true})
}

func (h *OAuthHandler) status(c *gin.Context) {
	merchantID, err := getMerchantID(c)
	if err != nil {
		h.Unauthorized(c, dto.ErrCodeUnauthorized, "merchant session required")
		return
	}
	statuses, err := h.connect.Status(c.Request.Context(), merchantID)
	if err != nil {
		h.DomainError(c, err)
		return
	}
	connections := make(map[string]bool, len(statuses))
	for code, connected := range statuses {
		connections[string(code)] = connected
	}
	h.Success(c, connections)
}

func (h *OAuthHandler) setStateCookie(c *gin.Context, state string) {
	c.SetSameSite(parseSameSite(h.cookie.SameSite))
	c.SetCookie(stateCookieName, state, stateCookieMaxAge, h.cookie.Path, h.cookie.Domain, h.cookie.Secure, true)
}

func (h *OAuthHandler) clearStateCookie(c *gin.Context) {
	c.SetCookie(stateCookieName, "", -1, h.cookie.Path, h.cookie.Domain, h.cookie.Secure, true)
}

func (h *OAuthHandler) dashboardRedirect(status string) string {
	u, err := url.Parse(h.dashboard)
	if err != nil {
		return h.dashboard
	}
	q := u.Query()
	q.Set("status", status)
	u.RawQuery = q.Encode()
	return u.String()
}

func parseSameSite(mode string) http.SameSite {
	switch mode {
	case "strict":
		return http.SameSiteStrictMode
	case "none":
		return http.SameSiteNoneMode
	default:
		return http.SameSiteLaxMode
	}
}
