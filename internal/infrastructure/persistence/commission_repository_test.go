package persistence

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/souqlink/backend/internal/domain/attribution"
)

func setupCommissionTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	err = db.Exec(`
		CREATE TABLE commissions (
			id TEXT PRIMARY KEY,
			order_id TEXT NOT NULL UNIQUE,
			merchant_id TEXT NOT NULL,
			click_id TEXT NOT NULL,
			amount TEXT NOT NULL,
			rate TEXT NOT NULL,
			status TEXT NOT NULL DEFAULT 'PENDING',
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL
		)
	`).Error
	require.NoError(t, err)

	return db
}

func TestGormCommissionRepository_Insert(t *testing.T) {
	db := setupCommissionTestDB(t)
	repo := NewGormCommissionRepository(db)
	ctx := context.Background()

	orderID := uuid.New()
	merchantID := uuid.New()
	clickID := uuid.New()

	c, err := attribution.NewCommission(orderID, merchantID, clickID,
		decimal.NewFromInt(200), decimal.NewFromFloat(0.05))
	require.NoError(t, err)
	require.NoError(t, repo.Insert(ctx, c))

	t.Run("second commission for the same order is rejected", func(t *testing.T) {
		dup, err := attribution.NewCommission(orderID, merchantID, uuid.New(),
			decimal.NewFromInt(999), decimal.NewFromFloat(0.10))
		require.NoError(t, err)

		err = repo.Insert(ctx, dup)
		assert.ErrorIs(t, err, attribution.ErrCommissionExists)
	})

	t.Run("a different order inserts", func(t *testing.T) {
		other, err := attribution.NewCommission(uuid.New(), merchantID, clickID,
			decimal.NewFromInt(50), decimal.NewFromFloat(0.05))
		require.NoError(t, err)
		assert.NoError(t, repo.Insert(ctx, other))
	})

	t.Run("lookup by order id", func(t *testing.T) {
		found, err := repo.FindByOrderID(ctx, orderID)
		require.NoError(t, err)
		assert.Equal(t, c.ID, found.ID)
		assert.True(t, found.Amount.Equal(decimal.NewFromInt(10)))
	})
}

func TestGormCommissionRepository_Save(t *testing.T) {
	db := setupCommissionTestDB(t)
	repo := NewGormCommissionRepository(db)
	ctx := context.Background()

	c, err := attribution.NewCommission(uuid.New(), uuid.New(), uuid.New(),
		decimal.NewFromInt(100), decimal.NewFromFloat(0.05))
	require.NoError(t, err)
	require.NoError(t, repo.Insert(ctx, c))

	require.NoError(t, c.Approve())
	require.NoError(t, repo.Save(ctx, c))

	found, err := repo.FindByID(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, attribution.CommissionStatusApproved, found.Status)
}
