package merchant

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/souqlink/backend/internal/domain/platform"
	"github.com/souqlink/backend/internal/domain/shared"
)

var (
	ErrMerchantNotFound     = errors.New("merchant: not found")
	ErrConnectionNotFound   = errors.New("merchant: connection not found")
	ErrInvalidEmail         = errors.New("merchant: invalid email")
	ErrInvalidName          = errors.New("merchant: name is required")
	ErrInvalidPlatform      = errors.New("merchant: invalid platform code")
	ErrEmptyCredentialPatch = errors.New("merchant: empty credential patch")
)

// Merchant is the aggregate root for a seller account. Platform credentials
// live in Connection rows, one per (merchant, platform).
type Merchant struct {
	shared.BaseEntity
	Name        string       `gorm:"type:varchar(200);not null"`
	Email       string       `gorm:"type:varchar(255);not null;uniqueIndex"`
	Connections []Connection `gorm:"foreignKey:MerchantID"`
}

// TableName returns the table name for GORM
func (Merchant) TableName() string {
	return "merchants"
}

// NewMerchant creates a new merchant
func NewMerchant(name, email string) (*Merchant, error) {
	name = strings.TrimSpace(name)
	email = strings.TrimSpace(strings.ToLower(email))
	if name == "" {
		return nil, ErrInvalidName
	}
	if !strings.Contains(email, "@") {
		return nil, ErrInvalidEmail
	}
	return &Merchant{
		BaseEntity: shared.NewBaseEntity(),
		Name:       name,
		Email:      email,
	}, nil
}

// Connection returns the connection record for a platform, or nil
func (m *Merchant) Connection(code platform.Code) *Connection {
	for i := range m.Connections {
		if m.Connections[i].Platform == code {
			return &m.Connections[i]
		}
	}
	return nil
}

// IsConnected derives connection state from credential completeness.
// It is never persisted as a flag.
func (m *Merchant) IsConnected(code platform.Code) bool {
	conn := m.Connection(code)
	return conn != nil && conn.IsComplete()
}

// Connection holds per-platform credentials for a merchant. The
// (merchant_id, platform) pair is unique, as is (platform, external store id).
type Connection struct {
	shared.BaseEntity
	MerchantID      uuid.UUID     `gorm:"type:uuid;not null;uniqueIndex:idx_connection_merchant_platform,priority:1"`
	Platform        platform.Code `gorm:"type:varchar(20);not null;uniqueIndex:idx_connection_merchant_platform,priority:2;uniqueIndex:idx_connection_platform_store,priority:1"`
	ExternalStoreID string        `gorm:"type:varchar(100);uniqueIndex:idx_connection_platform_store,priority:2"`
	StoreURL        string        `gorm:"type:varchar(500)"`
	AccessToken     string        `gorm:"type:text"`
	RefreshToken    string        `gorm:"type:text"`
	TokenExpiresAt  *time.Time
	// ManagerToken is the secondary token Zid issues; losing it renders the
	// merchant disconnected just like losing the access token.
	ManagerToken string `gorm:"type:text"`
}

// TableName returns the table name for GORM
func (Connection) TableName() string {
	return "merchant_connections"
}

// IsComplete returns true if every credential field the platform requires
// is populated. Zid requires the manager token in addition to the OAuth pair.
func (c *Connection) IsComplete() bool {
	if c.ExternalStoreID == "" || c.AccessToken == "" || c.RefreshToken == "" {
		return false
	}
	if c.Platform == platform.CodeZid && c.ManagerToken == "" {
		return false
	}
	return true
}

// Credentials converts the connection into the client-facing token set
func (c *Connection) Credentials() platform.Credentials {
	creds := platform.Credentials{
		AccessToken:  c.AccessToken,
		RefreshToken: c.RefreshToken,
		ManagerToken: c.ManagerToken,
	}
	if c.TokenExpiresAt != nil {
		creds.ExpiresAt = *c.TokenExpiresAt
	}
	return creds
}

// Revoke soft-revokes the connection by clearing tokens. The row (and the
// merchant) are never deleted.
func (c *Connection) Revoke() {
	c.AccessToken = ""
	c.RefreshToken = ""
	c.ManagerToken = ""
	c.TokenExpiresAt = nil
	c.Touch()
}

// CredentialPatch is a partial credential update. Nil fields are left
// untouched; the repository applies the patch as one atomic write so a
// refresh can never interleave with a stale read-modify-write.
type CredentialPatch struct {
	ExternalStoreID *string
	StoreURL        *string
	AccessToken     *string
	RefreshToken    *string
	TokenExpiresAt  *time.Time
	ManagerToken    *string
}

// IsEmpty returns true if the patch carries no fields
func (p *CredentialPatch) IsEmpty() bool {
	return p.ExternalStoreID == nil && p.StoreURL == nil && p.AccessToken == nil &&
		p.RefreshToken == nil && p.TokenExpiresAt == nil && p.ManagerToken == nil
}
