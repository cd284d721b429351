package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/souqlink/backend/internal/domain/merchant"
	"github.com/souqlink/backend/internal/domain/platform"
)

// GormMerchantRepository implements merchant.Repository using GORM
type GormMerchantRepository struct {
	db *gorm.DB
}

var _ merchant.Repository = (*GormMerchantRepository)(nil)

// NewGormMerchantRepository creates a new GormMerchantRepository
func NewGormMerchantRepository(db *gorm.DB) *GormMerchantRepository {
	return &GormMerchantRepository{db: db}
}

// FindByID finds a merchant by id, preloading platform connections
func (r *GormMerchantRepository) FindByID(ctx context.Context, id uuid.UUID) (*merchant.Merchant, error) {
	var m merchant.Merchant
	if err := r.db.WithContext(ctx).Preload("Connections").First(&m, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, merchant.ErrMerchantNotFound
		}
		return nil, err
	}
	return &m, nil
}

// FindByEmail finds a merchant by email
func (r *GormMerchantRepository) FindByEmail(ctx context.Context, email string) (*merchant.Merchant, error) {
	var m merchant.Merchant
	if err := r.db.WithContext(ctx).Preload("Connections").First(&m, "email = ?", email).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, merchant.ErrMerchantNotFound
		}
		return nil, err
	}
	return &m, nil
}

// FindByStoreID resolves the merchant owning the given external store
func (r *GormMerchantRepository) FindByStoreID(ctx context.Context, code platform.Code, externalStoreID string) (*merchant.Merchant, error) {
	var conn merchant.Connection
	if err := r.db.WithContext(ctx).
		Where("platform = ? AND external_store_id = ?", code, externalStoreID).
		First(&conn).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, merchant.ErrMerchantNotFound
		}
		return nil, err
	}
	return r.FindByID(ctx, conn.MerchantID)
}

// Save persists the merchant aggregate
func (r *GormMerchantRepository) Save(ctx context.Context, m *merchant.Merchant) error {
	return r.db.WithContext(ctx).Save(m).Error
}

// Credentials returns the connection row for a merchant-platform pair
func (r *GormMerchantRepository) Credentials(ctx context.Context, merchantID uuid.UUID, code platform.Code) (*merchant.Connection, error) {
	var conn merchant.Connection
	if err := r.db.WithContext(ctx).
		Where("merchant_id = ? AND platform = ?", merchantID, code).
		First(&conn).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, merchant.ErrConnectionNotFound
		}
		return nil, err
	}
	return &conn, nil
}

// UpdateCredentials applies the patch as one atomic write against the
// unique (merchant_id, platform) row, creating the row if absent. Nil
// patch fields are left untouched so a token refresh cannot clobber
// fields it did not read.
func (r *GormMerchantRepository) UpdateCredentials(ctx context.Context, merchantID uuid.UUID, code platform.Code, patch merchant.CredentialPatch) error {
	if patch.IsEmpty() {
		return merchant.ErrEmptyCredentialPatch
	}

	updates := map[string]interface{}{"updated_at": time.Now()}
	if patch.ExternalStoreID != nil {
		updates["external_store_id"] = *patch.ExternalStoreID
	}
	if patch.StoreURL != nil {
		updates["store_url"] = *patch.StoreURL
	}
	if patch.AccessToken != nil {
		updates["access_token"] = *patch.AccessToken
	}
	if patch.RefreshToken != nil {
		updates["refresh_token"] = *patch.RefreshToken
	}
	if patch.TokenExpiresAt != nil {
		updates["token_expires_at"] = *patch.TokenExpiresAt
	}
	if patch.ManagerToken != nil {
		updates["manager_token"] = *patch.ManagerToken
	}

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&merchant.Connection{}).
			Where("merchant_id = ? AND platform = ?", merchantID, code).
			Updates(updates)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected > 0 {
			return nil
		}

		conn := merchant.Connection{MerchantID: merchantID, Platform: code}
		conn.ID = uuid.New()
		conn.CreatedAt = time.Now()
		conn.UpdatedAt = time.Now()
		applyPatch(&conn, patch)
		return tx.Create(&conn).Error
	})
}

// RevokeCredentials clears tokens for the pair without deleting the row
func (r *GormMerchantRepository) RevokeCredentials(ctx context.Context, merchantID uuid.UUID, code platform.Code) error {
	res := r.db.WithContext(ctx).Model(&merchant.Connection{}).
		Where("merchant_id = ? AND platform = ?", merchantID, code).
		Updates(map[string]interface{}{
			"access_token":     "",
			"refresh_token":    "",
			"manager_token":    "",
			"token_expires_at": nil,
			"updated_at":       time.Now(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return merchant.ErrConnectionNotFound
	}
	return nil
}

func applyPatch(conn *merchant.Connection, patch merchant.CredentialPatch) {
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
}
