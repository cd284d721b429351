// Package connect implements the merchant-facing OAuth connection flow.
package connect

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/souqlink/backend/internal/domain/merchant"
	"github.com/souqlink/backend/internal/domain/platform"
	"github.com/souqlink/backend/internal/infrastructure/config"
)

var (
	// ErrStateMismatch means the callback state did not match the cookie
	// echo bit for bit. The flow aborts before any verification work.
	ErrStateMismatch = errors.New("connect: state mismatch")
	ErrMissingCode   = errors.New("connect: missing authorization code")
)

// Service drives the per-merchant OAuth dance. Credentials are written in
// one atomic patch after a fully successful exchange; a failure anywhere
// leaves the stored connection untouched.
type Service struct {
	merchants merchant.Repository
	oauth     platform.OAuthRegistry
	secret    []byte
	stateTTL  time.Duration
	logger    *zap.Logger
}

// ServiceConfig contains the dependencies for the connect Service
type ServiceConfig struct {
	Merchants merchant.Repository
	OAuth     platform.OAuthRegistry
	Config    *config.Config
	Logger    *zap.Logger
}

// NewService creates the connect service
func NewService(cfg ServiceConfig) *Service {
	stateTTL := cfg.Config.JWT.StateExpiration
	if stateTTL <= 0 {
		stateTTL = 10 * time.Minute
	}
	return &Service{
		merchants: cfg.Merchants,
		oauth:     cfg.OAuth,
		secret:    []byte(cfg.Config.StateSigningSecret()),
		stateTTL:  stateTTL,
		logger:    cfg.Logger,
	}
}

// Authorization is the output of BeginAuthorization. State doubles as the
// cookie value the handler echoes back to the browser.
type Authorization struct {
	RedirectURL string
	State       string
}

// BeginAuthorization mints the signed state and builds the platform
// consent URL for the merchant.
func (s *Service) BeginAuthorization(ctx context.Context, merchantID uuid.UUID, code platform.Code) (*Authorization, error) {
	if _, err := s.merchants.FindByID(ctx, merchantID); err != nil {
		return nil, err
	}
	exchanger, err := s.oauth.Exchanger(code)
	if err != nil {
		return nil, err
	}

	state, err := signState(s.secret, merchantID, code, s.stateTTL)
	if err != nil {
		return nil, fmt.Errorf("connect: failed to sign state: %w", err)
	}

	return &Authorization{
		RedirectURL: exchanger.AuthorizeURL(state),
		State:       state,
	}, nil
}

// Join starts authorization for a merchant who has no account yet. An
// existing merchant with the same email is reused so a re-run of the join
// flow never forks a second identity.
func (s *Service) Join(ctx context.Context, name, email string, code platform.Code) (*Authorization, error) {
	m, err := s.merchants.FindByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, merchant.ErrMerchantNotFound) {
			return nil, err
		}
		m, err = merchant.NewMerchant(name, email)
		if err != nil {
			return nil, err
		}
		if err := s.merchants.Save(ctx, m); err != nil {
			return nil, fmt.Errorf("connect: failed to create merchant: %w", err)
		}
	}
	return s.BeginAuthorization(ctx, m.ID, code)
}

// CompleteAuthorization finishes the callback leg. Order matters: the
// state parameter is compared against the cookie echo first, then the
// signature is verified, and only then does any network call happen.
func (s *Service) CompleteAuthorization(ctx context.Context, code platform.Code, authCode, stateParam, cookieState string) error {
	if authCode == "" {
		return ErrMissingCode
	}
	if stateParam == "" || cookieState == "" ||
		subtle.ConstantTimeCompare([]byte(stateParam), []byte(cookieState)) != 1 {
		return ErrStateMismatch
	}

	merchantID, stateCode, err := verifyState(s.secret, stateParam)
	if err != nil {
		return err
	}
	if stateCode != code {
		return ErrStateMismatch
	}

	exchanger, err := s.oauth.Exchanger(code)
	if err != nil {
		return err
	}

	tokens, store, err := exchanger.Exchange(ctx, authCode)
	if err != nil {
		s.logger.Warn("oauth exchange failed",
			zap.String("platform", code.String()),
			zap.String("merchant_id", merchantID.String()),
			zap.Error(err),
		)
		return err
	}

	patch := merchant.CredentialPatch{
		ExternalStoreID: &store.ID,
		AccessToken:     &tokens.AccessToken,
		RefreshToken:    &tokens.RefreshToken,
	}
	if store.URL != "" {
		patch.StoreURL = &store.URL
	}
	if !tokens.ExpiresAt.IsZero() {
		patch.TokenExpiresAt = &tokens.ExpiresAt
	}
	if tokens.ManagerToken != "" {
		patch.ManagerToken = &tokens.ManagerToken
	}

	if err := s.merchants.UpdateCredentials(ctx, merchantID, code, patch); err != nil {
		return fmt.Errorf("connect: failed to store credentials: %w", err)
	}

	s.logger.Info("platform connected",
		zap.String("platform", code.String()),
		zap.String("merchant_id", merchantID.String()),
		zap.String("store_id", store.ID),
	)
	return nil
}

// RefreshCredentials exchanges the stored refresh token for a new token
// set and patches the connection atomically. Used by the sync services
// when a platform call comes back 401.
func (s *Service) RefreshCredentials(ctx context.Context, merchantID uuid.UUID, code platform.Code) (platform.Credentials, error) {
	conn, err := s.merchants.Credentials(ctx, merchantID, code)
	if err != nil {
		return platform.Credentials{}, err
	}
	if conn.RefreshToken == "" {
		return platform.Credentials{}, fmt.Errorf("%w: no refresh token stored", platform.ErrNotConnected)
	}

	exchanger, err := s.oauth.Exchanger(code)
	if err != nil {
		return platform.Credentials{}, err
	}
	tokens, err := exchanger.Refresh(ctx, conn.RefreshToken)
	if err != nil {
		return platform.Credentials{}, err
	}

	patch := merchant.CredentialPatch{AccessToken: &tokens.AccessToken}
	if tokens.RefreshToken != "" {
		patch.RefreshToken = &tokens.RefreshToken
	}
	if tokens.ManagerToken != "" {
		patch.ManagerToken = &tokens.ManagerToken
	}
	if !tokens.ExpiresAt.IsZero() {
		patch.TokenExpiresAt = &tokens.ExpiresAt
	}
	if err := s.merchants.UpdateCredentials(ctx, merchantID, code, patch); err != nil {
		return platform.Credentials{}, fmt.Errorf("connect: failed to store refreshed credentials: %w", err)
	}

	creds := conn.Credentials()
	creds.AccessToken = tokens.AccessToken
	if tokens.RefreshToken != "" {
		creds.RefreshToken = tokens.RefreshToken
	}
	if tokens.ManagerToken != "" {
		creds.ManagerToken = tokens.ManagerToken
	}
	if !tokens.ExpiresAt.IsZero() {
		creds.ExpiresAt = tokens.ExpiresAt
	}
	return creds, nil
}

// Disconnect soft-revokes the stored credentials for the pair
func (s *Service) Disconnect(ctx context.Context, merchantID uuid.UUID, code platform.Code) error {
	if err := s.merchants.RevokeCredentials(ctx, merchantID, code); err != nil {
		return err
	}
	s.logger.Info("platform disconnected",
		zap.String("platform", code.String()),
		zap.String("merchant_id", merchantID.String()),
	)
	return nil
}

// Status reports the derived connection state for a merchant
func (s *Service) Status(ctx context.Context, merchantID uuid.UUID) (map[platform.Code]bool, error) {
	m, err := s.merchants.FindByID(ctx, merchantID)
	if err != nil {
		return nil, err
	}
	status := make(map[platform.Code]bool, len(platform.AllCodes()))
	for _, code := range platform.AllCodes() {
		status[code] = m.IsConnected(code)
	}
	return status, nil
}
