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

	"github.com/souqlink/backend/internal/domain/catalog"
	"github.com/souqlink/backend/internal/domain/platform"
	"github.com/souqlink/backend/internal/domain/shared"
)

func setupProductTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	err = db.Exec(`
		CREATE TABLE products (
			id TEXT PRIMARY KEY,
			merchant_id TEXT NOT NULL,
			category_id TEXT,
			name TEXT NOT NULL,
			slug TEXT NOT NULL UNIQUE,
			description TEXT,
			salla_id TEXT,
			zid_id TEXT,
			price TEXT NOT NULL DEFAULT '0',
			sale_price TEXT NOT NULL DEFAULT '0',
			currency TEXT NOT NULL DEFAULT 'SAR',
			quantity INTEGER NOT NULL DEFAULT 0,
			image_url TEXT,
			product_url TEXT,
			active INTEGER NOT NULL DEFAULT 1,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL
		)
	`).Error
	require.NoError(t, err)

	return db
}

func newTestProduct(name, slug, sallaID string) *catalog.Product {
	return &catalog.Product{
		BaseEntity: shared.NewBaseEntity(),
		MerchantID: uuid.New(),
		Name:       name,
		Slug:       slug,
		SallaID:    sallaID,
		Price:      decimal.NewFromInt(99),
		Currency:   "SAR",
		Active:     true,
	}
}

func TestGormProductRepository_FindByExternalID(t *testing.T) {
	db := setupProductTestDB(t)
	repo := NewGormProductRepository(db)
	ctx := context.Background()

	p := newTestProduct("Olive Oil", "olive-oil", "salla-p-1")
	require.NoError(t, repo.Save(ctx, p))

	found, err := repo.FindByExternalID(ctx, platform.CodeSalla, "salla-p-1")
	require.NoError(t, err)
	assert.Equal(t, p.ID, found.ID)

	_, err = repo.FindByExternalID(ctx, platform.CodeZid, "salla-p-1")
	assert.ErrorIs(t, err, catalog.ErrProductNotFound)

	_, err = repo.FindByExternalID(ctx, platform.Code("AMAZON"), "salla-p-1")
	assert.ErrorIs(t, err, platform.ErrUnknownPlatform)
}

func TestGormProductRepository_SlugUniqueness(t *testing.T) {
	db := setupProductTestDB(t)
	repo := NewGormProductRepository(db)
	ctx := context.Background()

	p1 := newTestProduct("Dates Box", "dates-box", "s-1")
	require.NoError(t, repo.Save(ctx, p1))

	t.Run("conflicting slug is rejected", func(t *testing.T) {
		p2 := newTestProduct("Dates Box", "dates-box", "s-2")
		err := repo.Save(ctx, p2)
		assert.ErrorIs(t, err, catalog.ErrDuplicateSlug)
	})

	t.Run("SlugExists excludes the owning product", func(t *testing.T) {
		taken, err := repo.SlugExists(ctx, "dates-box", p1.ID)
		require.NoError(t, err)
		assert.False(t, taken)

		taken, err = repo.SlugExists(ctx, "dates-box", uuid.New())
		require.NoError(t, err)
		assert.True(t, taken)
	})
}

func TestGormProductRepository_FindUncategorized(t *testing.T) {
	db := setupProductTestDB(t)
	repo := NewGormProductRepository(db)
	ctx := context.Background()

	uncategorized := newTestProduct("Honey Jar", "honey-jar", "s-10")
	require.NoError(t, repo.Save(ctx, uncategorized))

	categoryID := uuid.New()
	categorized := newTestProduct("Tea Set", "tea-set", "s-11")
	categorized.CategoryID = &categoryID
	require.NoError(t, repo.Save(ctx, categorized))

	inactive := newTestProduct("Old Lamp", "old-lamp", "s-12")
	inactive.Deactivate()
	require.NoError(t, repo.Save(ctx, inactive))

	products, err := repo.FindUncategorized(ctx, 10)
	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.Equal(t, "honey-jar", products[0].Slug)
}
