package ecommerce

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/souqlink/backend/internal/domain/platform"
	"github.com/souqlink/backend/internal/infrastructure/config"
)

// oauthTokenResponse is the common OAuth token endpoint shape. Zid adds an
// "authorization" field carrying the store manager token.
type oauthTokenResponse struct {
	AccessToken   string `json:"access_token"`
	RefreshToken  string `json:"refresh_token"`
	ExpiresIn     int64  `json:"expires_in"`
	Authorization string `json:"authorization"`
}

func (r *oauthTokenResponse) toTokenSet() platform.TokenSet {
	ts := platform.TokenSet{
		AccessToken:  r.AccessToken,
		RefreshToken: r.RefreshToken,
		ManagerToken: r.Authorization,
	}
	if r.ExpiresIn > 0 {
		ts.ExpiresAt = time.Now().Add(time.Duration(r.ExpiresIn) * time.Second)
	}
	return ts
}

// oauthClient is the shared OAuth transport for both platforms
type oauthClient struct {
	name       string
	cfg        config.PlatformConfig
	httpClient *http.Client
	logger     *zap.Logger
}

func newOAuthClient(name string, cfg config.PlatformConfig, logger *zap.Logger) *oauthClient {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &oauthClient{
		name:       name,
		cfg:        cfg,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// authorizeURL builds the consent URL with the opaque state parameter
func (c *oauthClient) authorizeURL(state string, scope string) string {
	values := url.Values{}
	values.Set("client_id", c.cfg.ClientID)
	values.Set("response_type", "code")
	values.Set("redirect_uri", c.cfg.RedirectURL)
	values.Set("state", state)
	if scope != "" {
		values.Set("scope", scope)
	}
	return c.cfg.AuthorizeURL + "?" + values.Encode()
}

// postToken POSTs a form to the token endpoint and decodes the response
func (c *oauthClient) postToken(ctx context.Context, form url.Values) (platform.TokenSet, error) {
	form.Set("client_id", c.cfg.ClientID)
	form.Set("client_secret", c.cfg.ClientSecret)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.TokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return platform.TokenSet{}, fmt.Errorf("%s: failed to create token request: %w", c.name, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return platform.TokenSet{}, fmt.Errorf("%w: %v", platform.ErrUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return platform.TokenSet{}, fmt.Errorf("%s: failed to read token response: %w", c.name, err)
	}
	if resp.StatusCode >= 400 {
		return platform.TokenSet{}, fmt.Errorf("%w: token endpoint returned HTTP %d", platform.ErrAuth, resp.StatusCode)
	}

	var wire oauthTokenResponse
	if err := json.Unmarshal(body, &wire); err != nil {
		return platform.TokenSet{}, fmt.Errorf("%w: malformed token response: %v", platform.ErrUpstream, err)
	}
	if wire.AccessToken == "" {
		return platform.TokenSet{}, fmt.Errorf("%w: token response missing access_token", platform.ErrUpstream)
	}
	return wire.toTokenSet(), nil
}

func (c *oauthClient) exchange(ctx context.Context, code string) (platform.TokenSet, error) {
	form := url.Values{}
	form.Set("grant_type", "authorization_code")
	form.Set("code", code)
	form.Set("redirect_uri", c.cfg.RedirectURL)
	return c.postToken(ctx, form)
}

func (c *oauthClient) refresh(ctx context.Context, refreshToken string) (platform.TokenSet, error) {
	form := url.Values{}
	form.Set("grant_type", "refresh_token")
	form.Set("refresh_token", refreshToken)
	return c.postToken(ctx, form)
}

// fetchJSON GETs an authenticated platform endpoint outside the envelope
// retry loop, for the store-info lookups during connect.
func (c *oauthClient) fetchJSON(ctx context.Context, rawURL string, header http.Header, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return fmt.Errorf("%s: failed to create request: %w", c.name, err)
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", platform.ErrUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return fmt.Errorf("%s: failed to read response: %w", c.name, err)
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("%w: HTTP %d fetching store info", platform.ErrUpstream, resp.StatusCode)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%w: malformed store info: %v", platform.ErrUpstream, err)
	}
	return nil
}

// ---------------------------------------------------------------------------
// Salla
// ---------------------------------------------------------------------------

// SallaOAuth implements platform.OAuthExchanger for Salla
type SallaOAuth struct {
	client *oauthClient
}

var _ platform.OAuthExchanger = (*SallaOAuth)(nil)

// NewSallaOAuth creates the Salla OAuth exchanger
func NewSallaOAuth(cfg config.PlatformConfig, logger *zap.Logger) *SallaOAuth {
	return &SallaOAuth{client: newOAuthClient("salla", cfg, logger)}
}

// PlatformCode returns the platform this exchanger talks to
func (s *SallaOAuth) PlatformCode() platform.Code { return platform.CodeSalla }

// AuthorizeURL builds the Salla consent URL
func (s *SallaOAuth) AuthorizeURL(state string) string {
	return s.client.authorizeURL(state, "offline_access")
}

// Exchange swaps the authorization code for tokens and resolves the store
func (s *SallaOAuth) Exchange(ctx context.Context, code string) (platform.TokenSet, platform.StoreInfo, error) {
	tokens, err := s.client.exchange(ctx, code)
	if err != nil {
		return platform.TokenSet{}, platform.StoreInfo{}, err
	}

	var wire struct {
		Data struct {
			Merchant struct {
				ID     json.Number `json:"id"`
				Name   string      `json:"name"`
				Domain string      `json:"domain"`
			} `json:"merchant"`
		} `json:"data"`
	}
	header := http.Header{}
	header.Set("Authorization", "Bearer "+tokens.AccessToken)
	if err := s.client.fetchJSON(ctx, s.client.cfg.UserInfoURL, header, &wire); err != nil {
		return platform.TokenSet{}, platform.StoreInfo{}, err
	}
	if wire.Data.Merchant.ID.String() == "" {
		return platform.TokenSet{}, platform.StoreInfo{}, fmt.Errorf("%w: store info missing merchant id", platform.ErrUpstream)
	}

	return tokens, platform.StoreInfo{
		ID:   wire.Data.Merchant.ID.String(),
		Name: wire.Data.Merchant.Name,
		URL:  wire.Data.Merchant.Domain,
	}, nil
}

// Refresh exchanges the refresh token for a new token set
func (s *SallaOAuth) Refresh(ctx context.Context, refreshToken string) (platform.TokenSet, error) {
	return s.client.refresh(ctx, refreshToken)
}

// ---------------------------------------------------------------------------
// Zid
// ---------------------------------------------------------------------------

// ZidOAuth implements platform.OAuthExchanger for Zid. The token response
// carries the manager token in its "authorization" field; an exchange that
// comes back without it leaves the connection incomplete, so it fails here.
type ZidOAuth struct {
	client     *oauthClient
	apiBaseURL string
}

var _ platform.OAuthExchanger = (*ZidOAuth)(nil)

// NewZidOAuth creates the Zid OAuth exchanger
func NewZidOAuth(cfg config.PlatformConfig, logger *zap.Logger) *ZidOAuth {
	return &ZidOAuth{
		client:     newOAuthClient("zid", cfg, logger),
		apiBaseURL: strings.TrimRight(cfg.APIBaseURL, "/"),
	}
}

// PlatformCode returns the platform this exchanger talks to
func (z *ZidOAuth) PlatformCode() platform.Code { return platform.CodeZid }

// AuthorizeURL builds the Zid consent URL
func (z *ZidOAuth) AuthorizeURL(state string) string {
	return z.client.authorizeURL(state, "")
}

// Exchange swaps the authorization code for tokens and resolves the store
func (z *ZidOAuth) Exchange(ctx context.Context, code string) (platform.TokenSet, platform.StoreInfo, error) {
	tokens, err := z.client.exchange(ctx, code)
	if err != nil {
		return platform.TokenSet{}, platform.StoreInfo{}, err
	}
	if tokens.ManagerToken == "" {
		return platform.TokenSet{}, platform.StoreInfo{}, fmt.Errorf("%w: token response missing manager token", platform.ErrUpstream)
	}

	var wire struct {
		Store struct {
			ID    json.Number `json:"id"`
			Title string      `json:"title"`
			URL   string      `json:"url"`
		} `json:"store"`
	}
	header := http.Header{}
	header.Set("Authorization", "Bearer "+tokens.AccessToken)
	header.Set("X-Manager-Token", tokens.ManagerToken)
	if err := z.client.fetchJSON(ctx, z.apiBaseURL+"/managers/store/profile", header, &wire); err != nil {
		return platform.TokenSet{}, platform.StoreInfo{}, err
	}
	if wire.Store.ID.String() == "" {
		return platform.TokenSet{}, platform.StoreInfo{}, fmt.Errorf("%w: store info missing store id", platform.ErrUpstream)
	}

	return tokens, platform.StoreInfo{
		ID:   wire.Store.ID.String(),
		Name: wire.Store.Title,
		URL:  wire.Store.URL,
	}, nil
}

// Refresh exchanges the refresh token for a new token set
func (z *ZidOAuth) Refresh(ctx context.Context, refreshToken string) (platform.TokenSet, error) {
	return z.client.refresh(ctx, refreshToken)
}

// ---------------------------------------------------------------------------
// Registry
// ---------------------------------------------------------------------------

// OAuthRegistry resolves the exchanger for a platform code
type OAuthRegistry struct {
	exchangers map[platform.Code]platform.OAuthExchanger
}

var _ platform.OAuthRegistry = (*OAuthRegistry)(nil)

// NewOAuthRegistry builds the registry with one exchanger per platform
func NewOAuthRegistry(cfg *config.Config, logger *zap.Logger) *OAuthRegistry {
	return &OAuthRegistry{
		exchangers: map[platform.Code]platform.OAuthExchanger{
			platform.CodeSalla: NewSallaOAuth(cfg.Salla, logger),
			platform.CodeZid:   NewZidOAuth(cfg.Zid, logger),
		},
	}
}

// NewOAuthRegistryWith wires explicit exchangers, useful in tests
func NewOAuthRegistryWith(exchangers ...platform.OAuthExchanger) *OAuthRegistry {
	m := make(map[platform.Code]platform.OAuthExchanger, len(exchangers))
	for _, e := range exchangers {
		m[e.PlatformCode()] = e
	}
	return &OAuthRegistry{exchangers: m}
}

// Exchanger returns the OAuth exchanger for the given platform code
func (r *OAuthRegistry) Exchanger(code platform.Code) (platform.OAuthExchanger, error) {
	e, ok := r.exchangers[code]
	if !ok {
		return nil, fmt.Errorf("%w: %s", platform.ErrUnknownPlatform, code)
	}
	return e, nil
}
