package persistence

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/souqlink/backend/internal/domain/catalog"
	"github.com/souqlink/backend/internal/domain/platform"
)

// GormProductRepository implements catalog.ProductRepository using GORM
type GormProductRepository struct {
	db *gorm.DB
}

var _ catalog.ProductRepository = (*GormProductRepository)(nil)

// NewGormProductRepository creates a new GormProductRepository
func NewGormProductRepository(db *gorm.DB) *GormProductRepository {
	return &GormProductRepository{db: db}
}

// FindByID finds a product by id
func (r *GormProductRepository) FindByID(ctx context.Context, id uuid.UUID) (*catalog.Product, error) {
	var p catalog.Product
	if err := r.db.WithContext(ctx).First(&p, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, catalog.ErrProductNotFound
		}
		return nil, err
	}
	return &p, nil
}

// FindByExternalID matches a product by its platform-specific external id
func (r *GormProductRepository) FindByExternalID(ctx context.Context, code platform.Code, externalID string) (*catalog.Product, error) {
	var column string
	switch code {
	case platform.CodeSalla:
		column = "salla_id"
	case platform.CodeZid:
		column = "zid_id"
	default:
		return nil, fmt.Errorf("%w: %s", platform.ErrUnknownPlatform, code)
	}

	var p catalog.Product
	if err := r.db.WithContext(ctx).Where(column+" = ?", externalID).First(&p).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, catalog.ErrProductNotFound
		}
		return nil, err
	}
	return &p, nil
}

// FindBySlug finds a product by its slug
func (r *GormProductRepository) FindBySlug(ctx context.Context, slug string) (*catalog.Product, error) {
	var p catalog.Product
	if err := r.db.WithContext(ctx).First(&p, "slug = ?", slug).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, catalog.ErrProductNotFound
		}
		return nil, err
	}
	return &p, nil
}

// FindUncategorized lists active products with no category, oldest first
func (r *GormProductRepository) FindUncategorized(ctx context.Context, limit int) ([]catalog.Product, error) {
	var products []catalog.Product
	q := r.db.WithContext(ctx).
		Where("category_id IS NULL AND active = ?", true).
		Order("created_at ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&products).Error; err != nil {
		return nil, err
	}
	return products, nil
}

// Save persists the product, surfacing slug collisions as ErrDuplicateSlug
func (r *GormProductRepository) Save(ctx context.Context, p *catalog.Product) error {
	if err := r.db.WithContext(ctx).Save(p).Error; err != nil {
		if isUniqueViolation(err) {
			return catalog.ErrDuplicateSlug
		}
		return err
	}
	return nil
}

// SlugExists reports whether a slug is taken by a different product
func (r *GormProductRepository) SlugExists(ctx context.Context, slug string, excludeID uuid.UUID) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&catalog.Product{}).
		Where("slug = ? AND id <> ?", slug, excludeID).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}
