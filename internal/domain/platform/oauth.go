package platform

import (
	"context"
	"time"
)

// TokenSet is the result of an OAuth code exchange or refresh.
// ManagerToken is only present for platforms that issue one (Zid).
type TokenSet struct {
	AccessToken  string
	RefreshToken string
	ManagerToken string
	ExpiresAt    time.Time
}

// StoreInfo identifies the external store a fresh authorization belongs to
type StoreInfo struct {
	ID   string
	Name string
	URL  string
}

// OAuthExchanger is the port for a platform's OAuth dance. Implementations
// perform no credential persistence; the connect service owns that.
type OAuthExchanger interface {
	// PlatformCode returns the platform this exchanger talks to
	PlatformCode() Code

	// AuthorizeURL builds the platform consent URL carrying the opaque state
	AuthorizeURL(state string) string

	// Exchange swaps an authorization code for tokens and resolves the
	// store the authorization belongs to.
	Exchange(ctx context.Context, code string) (TokenSet, StoreInfo, error)

	// Refresh exchanges the refresh token for a new token set
	Refresh(ctx context.Context, refreshToken string) (TokenSet, error)
}

// OAuthRegistry resolves the exchanger for a platform code
type OAuthRegistry interface {
	Exchanger(code Code) (OAuthExchanger, error)
}
