package handler

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/souqlink/backend/internal/application/connect"
	"github.com/souqlink/backend/internal/domain/merchant"
	"github.com/souqlink/backend/internal/domain/platform"
	"github.com/souqlink/backend/internal/infrastructure/config"
	"github.com/souqlink/backend/internal/interfaces/http/middleware"
)

// connMerchantRepo tracks credential writes for the OAuth flow tests
type connMerchantRepo struct {
	memMerchantRepo
	merchants map[uuid.UUID]*merchant.Merchant
	patches   []merchant.CredentialPatch
}

func (r *connMerchantRepo) FindByID(_ context.Context, id uuid.UUID) (*merchant.Merchant, error) {
	if m, ok := r.merchants[id]; ok {
		return m, nil
	}
	return nil, merchant.ErrMerchantNotFound
}

func (r *connMerchantRepo) Save(_ context.Context, m *merchant.Merchant) error {
	r.merchants[m.ID] = m
	return nil
}

func (r *connMerchantRepo) UpdateCredentials(_ context.Context, _ uuid.UUID, _ platform.Code, patch merchant.CredentialPatch) error {
	r.patches = append(r.patches, patch)
	return nil
}

type stubExchanger struct {
	code platform.Code
}

func (e *stubExchanger) PlatformCode() platform.Code { return e.code }

func (e *stubExchanger) AuthorizeURL(state string) string {
	return "https://accounts.example.sa/authorize?state=" + url.QueryEscape(state)
}

func (e *stubExchanger) Exchange(_ context.Context, _ string) (platform.TokenSet, platform.StoreInfo, error) {
	return platform.TokenSet{
			AccessToken:  "acc-token",
			RefreshToken: "ref-token",
			ExpiresAt:    time.Now().Add(time.Hour),
		}, platform.StoreInfo{
			ID:   "store-55",
			Name: "Attar Store",
			URL:  "https://attar.salla.sa",
		}, nil
}

func (e *stubExchanger) Refresh(_ context.Context, _ string) (platform.TokenSet, error) {
	return platform.TokenSet{AccessToken: "acc-token-2", RefreshToken: "ref-token-2"}, nil
}

type stubOAuthRegistry struct {
	exchanger *stubExchanger
}

func (r *stubOAuthRegistry) Exchanger(code platform.Code) (platform.OAuthExchanger, error) {
	if code != r.exchanger.code {
		return nil, platform.ErrUnknownPlatform
	}
	return r.exchanger, nil
}

// fakeAuth injects the merchant id as if a valid session token was presented
func fakeAuth(merchantID uuid.UUID) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(middleware.JWTMerchantIDKey, merchantID.String())
		c.Next()
	}
}

func newOAuthTestRouter(t *testing.T) (*gin.Engine, *connMerchantRepo, uuid.UUID) {
	t.Helper()
	m, err := merchant.NewMerchant("Attar Trading", "owner@attar.sa")
	require.NoError(t, err)

	repo := &connMerchantRepo{merchants: map[uuid.UUID]*merchant.Merchant{m.ID: m}}
	cfg := &config.Config{
		App: config.AppConfig{DashboardURL: "https://app.souqlink.sa/dashboard"},
		JWT: config.JWTConfig{
			Secret:          "0123456789abcdef0123456789abcdef",
			StateExpiration: 10 * time.Minute,
		},
	}
	svc := connect.NewService(connect.ServiceConfig{
		Merchants: repo,
		OAuth:     &stubOAuthRegistry{exchanger: &stubExchanger{code: platform.CodeSalla}},
		Config:    cfg,
		Logger:    zap.NewNop(),
	})

	engine := gin.New()
	api := engine.Group("/api/v1")
	NewOAuthHandler(svc, fakeAuth(m.ID), cfg, zap.NewNop()).RegisterRoutes(api)
	return engine, repo, m.ID
}

func stateCookieFrom(t *testing.T, w *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	res := w.Result()
	for _, c := range res.Cookies() {
		if c.Name == "souq_oauth_state" {
			return c
		}
	}
	t.Fatal("state cookie not set")
	return nil
}

func TestOAuthStart_RedirectsWithStateCookie(t *testing.T) {
	engine, _, _ := newOAuthTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/oauth/SALLA/start", nil)
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusFound, w.Code)
	cookie := stateCookieFrom(t, w)
	assert.True(t, cookie.HttpOnly)

	location := w.Header().Get("Location")
	assert.Contains(t, location, "https://accounts.example.sa/authorize")
	assert.Contains(t, location, url.QueryEscape(cookie.Value), "redirect carries the same state the cookie echoes")
}

func TestOAuthCallback_FullRoundTripConnects(t *testing.T) {
	engine, repo, _ := newOAuthTestRouter(t)

	// start leg mints the state and sets the cookie
	startReq := httptest.NewRequest(http.MethodGet, "/api/v1/oauth/SALLA/start", nil)
	startW := httptest.NewRecorder()
	engine.ServeHTTP(startW, startReq)
	require.Equal(t, http.StatusFound, startW.Code)
	cookie := stateCookieFrom(t, startW)

	// callback leg echoes the cookie and the state parameter
	cbURL := fmt.Sprintf("/api/v1/oauth/SALLA/callback?code=auth-code&state=%s", url.QueryEscape(cookie.Value))
	cbReq := httptest.NewRequest(http.MethodGet, cbURL, nil)
	cbReq.AddCookie(cookie)
	cbW := httptest.NewRecorder()
	engine.ServeHTTP(cbW, cbReq)

	assert.Equal(t, http.StatusFound, cbW.Code)
	assert.Contains(t, cbW.Header().Get("Location"), "status=connected")
	require.Len(t, repo.patches, 1, "credentials written exactly once")
	require.NotNil(t, repo.patches[0].AccessToken)
	assert.Equal(t, "acc-token", *repo.patches[0].AccessToken)
}

func TestOAuthCallback_MissingCookieRedirectsError(t *testing.T) {
	engine, repo, _ := newOAuthTestRouter(t)

	startW := httptest.NewRecorder()
	engine.ServeHTTP(startW, httptest.NewRequest(http.MethodGet, "/api/v1/oauth/SALLA/start", nil))
	cookie := stateCookieFrom(t, startW)

	// state parameter present but no cookie: the browser binding fails
	cbURL := fmt.Sprintf("/api/v1/oauth/SALLA/callback?code=auth-code&state=%s", url.QueryEscape(cookie.Value))
	cbW := httptest.NewRecorder()
	engine.ServeHTTP(cbW, httptest.NewRequest(http.MethodGet, cbURL, nil))

	assert.Equal(t, http.StatusFound, cbW.Code)
	assert.Contains(t, cbW.Header().Get("Location"), "status=error")
	assert.Empty(t, repo.patches, "no credentials written on state failure")
}

func TestOAuthCallback_TamperedStateRedirectsError(t *testing.T) {
	engine, repo, _ := newOAuthTestRouter(t)

	startW := httptest.NewRecorder()
	engine.ServeHTTP(startW, httptest.NewRequest(http.MethodGet, "/api/v1/oauth/SALLA/start", nil))
	cookie := stateCookieFrom(t, startW)

	cbReq := httptest.NewRequest(http.MethodGet, "/api/v1/oauth/SALLA/callback?code=auth-code&state=tampered", nil)
	cbReq.AddCookie(cookie)
	cbW := httptest.NewRecorder()
	engine.ServeHTTP(cbW, cbReq)

	assert.Contains(t, cbW.Header().Get("Location"), "status=error")
	assert.Empty(t, repo.patches)
}

func TestOAuthJoin_CreatesMerchantAndRedirects(t *testing.T) {
	engine, _, _ := newOAuthTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/oauth/SALLA/join?name=New+Store&email=new@store.sa", nil)
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusFound, w.Code)
	assert.Contains(t, w.Header().Get("Location"), "https://accounts.example.sa/authorize")
}

func TestOAuthJoin_RequiresNameAndEmail(t *testing.T) {
	engine, _, _ := newOAuthTestRouter(t)

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/oauth/SALLA/join", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
