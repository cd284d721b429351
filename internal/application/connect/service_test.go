package connect

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/souqlink/backend/internal/domain/merchant"
	"github.com/souqlink/backend/internal/domain/platform"
	"github.com/souqlink/backend/internal/infrastructure/config"
)

// fakeMerchantRepo is an in-memory merchant.Repository for service tests
type fakeMerchantRepo struct {
	merchants   map[uuid.UUID]*merchant.Merchant
	connections map[string]*merchant.Connection
	patchCalls  int
}

func newFakeMerchantRepo() *fakeMerchantRepo {
	return &fakeMerchantRepo{
		merchants:   make(map[uuid.UUID]*merchant.Merchant),
		connections: make(map[string]*merchant.Connection),
	}
}

func connKey(merchantID uuid.UUID, code platform.Code) string {
	return merchantID.String() + "/" + string(code)
}

func (r *fakeMerchantRepo) FindByID(_ context.Context, id uuid.UUID) (*merchant.Merchant, error) {
	m, ok := r.merchants[id]
	if !ok {
		return nil, merchant.ErrMerchantNotFound
	}
	return m, nil
}

func (r *fakeMerchantRepo) FindByEmail(_ context.Context, email string) (*merchant.Merchant, error) {
	for _, m := range r.merchants {
		if m.Email == email {
			return m, nil
		}
	}
	return nil, merchant.ErrMerchantNotFound
}

func (r *fakeMerchantRepo) FindByStoreID(_ context.Context, code platform.Code, storeID string) (*merchant.Merchant, error) {
	for _, conn := range r.connections {
		if conn.Platform == code && conn.ExternalStoreID == storeID {
			return r.merchants[conn.MerchantID], nil
		}
	}
	return nil, merchant.ErrMerchantNotFound
}

func (r *fakeMerchantRepo) Save(_ context.Context, m *merchant.Merchant) error {
	r.merchants[m.ID] = m
	return nil
}

func (r *fakeMerchantRepo) Credentials(_ context.Context, merchantID uuid.UUID, code platform.Code) (*merchant.Connection, error) {
	conn, ok := r.connections[connKey(merchantID, code)]
	if !ok {
		return nil, merchant.ErrConnectionNotFound
	}
	return conn, nil
}

func (r *fakeMerchantRepo) UpdateCredentials(_ context.Context, merchantID uuid.UUID, code platform.Code, patch merchant.CredentialPatch) error {
	if patch.IsEmpty() {
		return merchant.ErrEmptyCredentialPatch
	}
	r.patchCalls++
	key := connKey(merchantID, code)
	conn, ok := r.connections[key]
	if !ok {
		conn = &merchant.Connection{MerchantID: merchantID, Platform: code}
		r.connections[key] = conn
	}
	if patch.ExternalStoreID != nil {
		conn.ExternalStoreID = *patch.ExternalStoreID
	}
	if patch.StoreURL != nil {
		conn.StoreURL = *patch.StoreURL
	}
	if patch.AccessToken != nil {
		conn.AccessToken = *patch.AccessToken
	}
	if patch.RefreshToken != nil {
		conn.RefreshToken = *patch.RefreshToken
	}
	if patch.TokenExpiresAt != nil {
		conn.TokenExpiresAt = patch.TokenExpiresAt
	}
	if patch.ManagerToken != nil {
		conn.ManagerToken = *patch.ManagerToken
	}
	return nil
}

func (r *fakeMerchantRepo) RevokeCredentials(_ context.Context, merchantID uuid.UUID, code platform.Code) error {
	conn, ok := r.connections[connKey(merchantID, code)]
	if !ok {
		return merchant.ErrConnectionNotFound
	}
	conn.Revoke()
	return nil
}

// fakeExchanger is a scripted platform.OAuthExchanger
type fakeExchanger struct {
	code      platform.Code
	tokens    platform.TokenSet
	store     platform.StoreInfo
	err       error
	exchanges int
}

func (f *fakeExchanger) PlatformCode() platform.Code { return f.code }

func (f *fakeExchanger) AuthorizeURL(state string) string {
	return "https://auth.example/authorize?state=" + state
}

func (f *fakeExchanger) Exchange(_ context.Context, _ string) (platform.TokenSet, platform.StoreInfo, error) {
	f.exchanges++
	if f.err != nil {
		return platform.TokenSet{}, platform.StoreInfo{}, f.err
	}
	return f.tokens, f.store, nil
}

func (f *fakeExchanger) Refresh(_ context.Context, _ string) (platform.TokenSet, error) {
	if f.err != nil {
		return platform.TokenSet{}, f.err
	}
	return f.tokens, nil
}

type fakeOAuthRegistry struct {
	exchangers map[platform.Code]*fakeExchanger
}

func (r *fakeOAuthRegistry) Exchanger(code platform.Code) (platform.OAuthExchanger, error) {
	e, ok := r.exchangers[code]
	if !ok {
		return nil, platform.ErrUnknownPlatform
	}
	return e, nil
}

func testConfig() *config.Config {
	return &config.Config{
		JWT: config.JWTConfig{
			Secret:          "test-secret-0123456789-0123456789",
			StateExpiration: 10 * time.Minute,
		},
	}
}

func newTestService(t *testing.T, exchangers ...*fakeExchanger) (*Service, *fakeMerchantRepo, uuid.UUID) {
	t.Helper()
	repo := newFakeMerchantRepo()
	m, err := merchant.NewMerchant("Test Store", "test@example.com")
	require.NoError(t, err)
	require.NoError(t, repo.Save(context.Background(), m))

	registry := &fakeOAuthRegistry{exchangers: make(map[platform.Code]*fakeExchanger)}
	for _, e := range exchangers {
		registry.exchangers[e.code] = e
	}

	svc := NewService(ServiceConfig{
		Merchants: repo,
		OAuth:     registry,
		Config:    testConfig(),
		Logger:    zap.NewNop(),
	})
	return svc, repo, m.ID
}

func TestService_BeginAuthorization(t *testing.T) {
	exchanger := &fakeExchanger{code: platform.CodeSalla}
	svc, _, merchantID := newTestService(t, exchanger)

	auth, err := svc.BeginAuthorization(context.Background(), merchantID, platform.CodeSalla)
	require.NoError(t, err)
	assert.Contains(t, auth.RedirectURL, "state="+auth.State)
	assert.NotEmpty(t, auth.State)

	t.Run("unknown merchant", func(t *testing.T) {
		_, err := svc.BeginAuthorization(context.Background(), uuid.New(), platform.CodeSalla)
		assert.ErrorIs(t, err, merchant.ErrMerchantNotFound)
	})

	t.Run("unknown platform", func(t *testing.T) {
		_, err := svc.BeginAuthorization(context.Background(), merchantID, platform.CodeZid)
		assert.ErrorIs(t, err, platform.ErrUnknownPlatform)
	})
}

func TestService_CompleteAuthorization(t *testing.T) {
	exchanger := &fakeExchanger{
		code: platform.CodeSalla,
		tokens: platform.TokenSet{
			AccessToken:  "at",
			RefreshToken: "rt",
			ExpiresAt:    time.Now().Add(time.Hour),
		},
		store: platform.StoreInfo{ID: "store-9", URL: "https://s.example"},
	}
	svc, repo, merchantID := newTestService(t, exchanger)
	ctx := context.Background()

	auth, err := svc.BeginAuthorization(ctx, merchantID, platform.CodeSalla)
	require.NoError(t, err)

	err = svc.CompleteAuthorization(ctx, platform.CodeSalla, "the-code", auth.State, auth.State)
	require.NoError(t, err)

	conn, err := repo.Credentials(ctx, merchantID, platform.CodeSalla)
	require.NoError(t, err)
	assert.Equal(t, "store-9", conn.ExternalStoreID)
	assert.Equal(t, "at", conn.AccessToken)
	assert.True(t, conn.IsComplete())
}

func TestService_CompleteAuthorization_StateChecks(t *testing.T) {
	exchanger := &fakeExchanger{
		code:   platform.CodeSalla,
		tokens: platform.TokenSet{AccessToken: "at", RefreshToken: "rt"},
		store:  platform.StoreInfo{ID: "store-9"},
	}
	svc, _, merchantID := newTestService(t, exchanger)
	ctx := context.Background()

	auth, err := svc.BeginAuthorization(ctx, merchantID, platform.CodeSalla)
	require.NoError(t, err)

	tests := []struct {
		name        string
		stateParam  string
		cookieState string
		wantErr     error
	}{
		{"cookie mismatch", auth.State, "tampered", ErrStateMismatch},
		{"missing cookie", auth.State, "", ErrStateMismatch},
		{"missing state param", "", auth.State, ErrStateMismatch},
		{"garbage token both sides", "garbage", "garbage", ErrInvalidState},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := svc.CompleteAuthorization(ctx, platform.CodeSalla, "the-code", tt.stateParam, tt.cookieState)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}

	t.Run("no exchange happens on state failure", func(t *testing.T) {
		assert.Zero(t, exchanger.exchanges)
	})

	t.Run("platform mismatch", func(t *testing.T) {
		err := svc.CompleteAuthorization(ctx, platform.CodeZid, "the-code", auth.State, auth.State)
		assert.ErrorIs(t, err, ErrStateMismatch)
	})

	t.Run("missing code", func(t *testing.T) {
		err := svc.CompleteAuthorization(ctx, platform.CodeSalla, "", auth.State, auth.State)
		assert.ErrorIs(t, err, ErrMissingCode)
	})
}

func TestService_CompleteAuthorization_FailedExchangeLeavesNothing(t *testing.T) {
	exchanger := &fakeExchanger{code: platform.CodeSalla, err: errors.New("upstream down")}
	svc, repo, merchantID := newTestService(t, exchanger)
	ctx := context.Background()

	auth, err := svc.BeginAuthorization(ctx, merchantID, platform.CodeSalla)
	require.NoError(t, err)

	err = svc.CompleteAuthorization(ctx, platform.CodeSalla, "the-code", auth.State, auth.State)
	require.Error(t, err)

	_, err = repo.Credentials(ctx, merchantID, platform.CodeSalla)
	assert.ErrorIs(t, err, merchant.ErrConnectionNotFound)
	assert.Zero(t, repo.patchCalls)
}

func TestService_CompleteAuthorization_ZidManagerToken(t *testing.T) {
	exchanger := &fakeExchanger{
		code: platform.CodeZid,
		tokens: platform.TokenSet{
			AccessToken:  "at",
			RefreshToken: "rt",
			ManagerToken: "mgr",
		},
		store: platform.StoreInfo{ID: "zid-42"},
	}
	svc, repo, merchantID := newTestService(t, exchanger)
	ctx := context.Background()

	auth, err := svc.BeginAuthorization(ctx, merchantID, platform.CodeZid)
	require.NoError(t, err)
	require.NoError(t, svc.CompleteAuthorization(ctx, platform.CodeZid, "code", auth.State, auth.State))

	conn, err := repo.Credentials(ctx, merchantID, platform.CodeZid)
	require.NoError(t, err)
	assert.Equal(t, "mgr", conn.ManagerToken)
	assert.True(t, conn.IsComplete())
}

func TestService_Status(t *testing.T) {
	exchanger := &fakeExchanger{
		code:   platform.CodeSalla,
		tokens: platform.TokenSet{AccessToken: "at", RefreshToken: "rt"},
		store:  platform.StoreInfo{ID: "store-9"},
	}
	svc, repo, merchantID := newTestService(t, exchanger)
	ctx := context.Background()

	status, err := svc.Status(ctx, merchantID)
	require.NoError(t, err)
	assert.False(t, status[platform.CodeSalla])
	assert.False(t, status[platform.CodeZid])

	auth, err := svc.BeginAuthorization(ctx, merchantID, platform.CodeSalla)
	require.NoError(t, err)
	require.NoError(t, svc.CompleteAuthorization(ctx, platform.CodeSalla, "code", auth.State, auth.State))

	// connection state is derived from completeness, never a stored flag
	m := repo.merchants[merchantID]
	m.Connections = []merchant.Connection{*repo.connections[connKey(merchantID, platform.CodeSalla)]}
	status, err = svc.Status(ctx, merchantID)
	require.NoError(t, err)
	assert.True(t, status[platform.CodeSalla])
}

func TestVerifyState_Expired(t *testing.T) {
	secret := []byte("test-secret-0123456789-0123456789")
	token, err := signState(secret, uuid.New(), platform.CodeSalla, -time.Minute)
	require.NoError(t, err)

	_, _, err = verifyState(secret, token)
	assert.ErrorIs(t, err, ErrStateExpired)
}

func TestVerifyState_WrongSecret(t *testing.T) {
	token, err := signState([]byte("secret-one-0123456789-0123456789"), uuid.New(), platform.CodeSalla, time.Minute)
	require.NoError(t, err)

	_, _, err = verifyState([]byte("secret-two-0123456789-0123456789"), token)
	assert.ErrorIs(t, err, ErrInvalidState)
}
