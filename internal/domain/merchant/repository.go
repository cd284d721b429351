package merchant

import (
	"context"

	"github.com/google/uuid"

	"github.com/souqlink/backend/internal/domain/platform"
)

// Repository is the persistence port for merchants and their platform
// connections. Credential reads and writes are the credential store
// contract: a thin facade with no business logic.
type Repository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Merchant, error)
	FindByEmail(ctx context.Context, email string) (*Merchant, error)
	// FindByStoreID resolves which merchant owns a webhook event
	FindByStoreID(ctx context.Context, code platform.Code, externalStoreID string) (*Merchant, error)
	Save(ctx context.Context, m *Merchant) error

	// Credentials returns the connection row for a merchant-platform pair
	Credentials(ctx context.Context, merchantID uuid.UUID, code platform.Code) (*Connection, error)
	// UpdateCredentials applies the patch as a single atomic write against
	// the unique (merchant_id, platform) row, creating it if absent.
	UpdateCredentials(ctx context.Context, merchantID uuid.UUID, code platform.Code, patch CredentialPatch) error
	// RevokeCredentials clears tokens for the pair without deleting the row
	RevokeCredentials(ctx context.Context, merchantID uuid.UUID, code platform.Code) error
}
