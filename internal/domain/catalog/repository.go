package catalog

import (
	"context"

	"github.com/google/uuid"

	"github.com/souqlink/backend/internal/domain/platform"
)

// ProductRepository is the persistence port for normalized products
type ProductRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Product, error)
	// FindByExternalID matches by the platform-specific external id
	FindByExternalID(ctx context.Context, code platform.Code, externalID string) (*Product, error)
	FindBySlug(ctx context.Context, slug string) (*Product, error)
	// FindUncategorized lists products with a NULL category, for the repair pass
	FindUncategorized(ctx context.Context, limit int) ([]Product, error)
	Save(ctx context.Context, p *Product) error
	// SlugExists reports whether a slug is taken by a different product
	SlugExists(ctx context.Context, slug string, excludeID uuid.UUID) (bool, error)
}

// CategoryRepository is the persistence port for categories
type CategoryRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Category, error)
	FindAll(ctx context.Context) ([]Category, error)
	Save(ctx context.Context, c *Category) error
}
