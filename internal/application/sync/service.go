// Package sync converges the local catalog and order book with the
// connected platforms. Webhook pushes and API polls funnel through the
// same upsert paths, so replays and overlapping sources are harmless.
package sync

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/souqlink/backend/internal/domain/catalog"
	"github.com/souqlink/backend/internal/domain/merchant"
	"github.com/souqlink/backend/internal/domain/order"
	"github.com/souqlink/backend/internal/domain/platform"
	"github.com/souqlink/backend/internal/domain/shared"
)

// maxSlugAttempts bounds the suffix search for a free slug
const maxSlugAttempts = 50

// Refresher refreshes stored credentials after a platform 401
type Refresher interface {
	RefreshCredentials(ctx context.Context, merchantID uuid.UUID, code platform.Code) (platform.Credentials, error)
}

// Service is the catalog and order synchronizer
type Service struct {
	products   catalog.ProductRepository
	categories catalog.CategoryRepository
	orders     order.Repository
	merchants  merchant.Repository
	clients    platform.Registry
	refresher  Refresher
	logger     *zap.Logger
}

// ServiceConfig contains the dependencies for the sync Service
type ServiceConfig struct {
	Products   catalog.ProductRepository
	Categories catalog.CategoryRepository
	Orders     order.Repository
	Merchants  merchant.Repository
	Clients    platform.Registry
	Refresher  Refresher
	Logger     *zap.Logger
}

// NewService creates the sync service
func NewService(cfg ServiceConfig) *Service {
	return &Service{
		products:   cfg.Products,
		categories: cfg.Categories,
		orders:     cfg.Orders,
		merchants:  cfg.Merchants,
		clients:    cfg.Clients,
		refresher:  cfg.Refresher,
		logger:     cfg.Logger,
	}
}

// Result summarizes one synchronization pass
type Result struct {
	Total   int `json:"total"`
	Created int `json:"created"`
	Updated int `json:"updated"`
	Failed  int `json:"failed"`
}

// ---------------------------------------------------------------------------
// Product upsert
// ---------------------------------------------------------------------------

// UpsertProduct converges one platform product into the catalog. Matching
// is by (platform, external id); the slug is minted once at creation and
// never churned on update. Returns whether this call created the row.
func (s *Service) UpsertProduct(ctx context.Context, merchantID uuid.UUID, p platform.Product) (*catalog.Product, bool, error) {
	existing, err := s.products.FindByExternalID(ctx, p.PlatformCode, p.ExternalID)
	switch {
	case err == nil:
		s.applyProductFields(ctx, existing, p)
		if err := s.products.Save(ctx, existing); err != nil {
			return nil, false, err
		}
		return existing, false, nil

	case errors.Is(err, catalog.ErrProductNotFound):
		created := &catalog.Product{
			BaseEntity: shared.NewBaseEntity(),
			MerchantID: merchantID,
			Active:     true,
		}
		created.SetExternalID(p.PlatformCode, p.ExternalID)
		s.applyProductFields(ctx, created, p)

		slug, err := s.uniqueSlug(ctx, p, created.ID)
		if err != nil {
			return nil, false, err
		}
		created.Slug = slug

		if err := s.products.Save(ctx, created); err != nil {
			return nil, false, err
		}
		return created, true, nil

	default:
		return nil, false, err
	}
}

func (s *Service) applyProductFields(ctx context.Context, dst *catalog.Product, src platform.Product) {
	dst.Name = src.Name
	dst.Description = src.Description
	dst.Price = src.Price
	dst.SalePrice = src.SalePrice
	if src.Currency != "" {
		dst.Currency = src.Currency
	}
	dst.Quantity = src.Quantity
	dst.ImageURL = src.ImageURL
	dst.ProductURL = src.ProductURL
	dst.Active = src.Active
	dst.Touch()

	if dst.CategoryID == nil && src.CategoryName != "" {
		if id := s.inferCategory(ctx, src.CategoryName); id != nil {
			dst.CategoryID = id
		}
	}
}

// inferCategory best-effort matches the platform category label against
// local categories. A miss leaves the product uncategorized for the
// repair pass.
func (s *Service) inferCategory(ctx context.Context, label string) *uuid.UUID {
	categories, err := s.categories.FindAll(ctx)
	if err != nil {
		s.logger.Warn("category lookup failed", zap.Error(err))
		return nil
	}
	for i := range categories {
		if categories[i].Matches(label) {
			return &categories[i].ID
		}
	}
	return nil
}

// uniqueSlug derives a slug from the platform slug or name and suffixes a
// counter until it is free.
func (s *Service) uniqueSlug(ctx context.Context, p platform.Product, selfID uuid.UUID) (string, error) {
	base := p.Slug
	if base == "" {
		base = catalog.Slugify(p.Name)
	} else {
		base = catalog.Slugify(base)
	}

	slug := base
	for i := 1; i <= maxSlugAttempts; i++ {
		taken, err := s.products.SlugExists(ctx, slug, selfID)
		if err != nil {
			return "", err
		}
		if !taken {
			return slug, nil
		}
		slug = base + "-" + strconv.Itoa(i)
	}
	// give up on readable slugs, fall back to a unique fragment
	return base + "-" + uuid.NewString()[:8], nil
}

// DeactivateProduct handles product deletion pushes. The row is kept so
// click history stays resolvable; a product we never saw is a no-op.
func (s *Service) DeactivateProduct(ctx context.Context, code platform.Code, externalID string) error {
	p, err := s.products.FindByExternalID(ctx, code, externalID)
	if errors.Is(err, catalog.ErrProductNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	p.Deactivate()
	return s.products.Save(ctx, p)
}

// ---------------------------------------------------------------------------
// Order upsert
// ---------------------------------------------------------------------------

// UpsertOrder converges one platform order. Returns the stored order and
// whether this call created it.
func (s *Service) UpsertOrder(ctx context.Context, merchantID uuid.UUID, po platform.Order) (*order.Order, bool, error) {
	items := make([]order.Item, 0, len(po.Items))
	for _, it := range po.Items {
		item := order.Item{
			BaseEntity:        shared.NewBaseEntity(),
			ExternalProductID: it.ExternalProductID,
			Name:              it.Name,
			Quantity:          it.Quantity,
			UnitPrice:         it.UnitPrice,
			TotalPrice:        it.TotalPrice,
		}
		if p, err := s.products.FindByExternalID(ctx, po.PlatformCode, it.ExternalProductID); err == nil {
			item.ProductID = &p.ID
		}
		items = append(items, item)
	}

	existing, err := s.orders.FindByPlatformOrderID(ctx, po.PlatformCode, po.ExternalID)
	switch {
	case err == nil:
		existing.Status = po.Status
		existing.TotalAmount = po.TotalAmount
		if po.Currency != "" {
			existing.Currency = po.Currency
		}
		existing.Items = items
		if po.RawData != "" {
			existing.RawData = po.RawData
		}
		existing.Touch()
		if err := s.orders.Save(ctx, existing); err != nil {
			return nil, false, err
		}
		return existing, false, nil

	case errors.Is(err, order.ErrOrderNotFound):
		created := &order.Order{
			BaseEntity:      shared.NewBaseEntity(),
			MerchantID:      merchantID,
			Platform:        po.PlatformCode,
			PlatformOrderID: po.ExternalID,
			Status:          po.Status,
			TotalAmount:     po.TotalAmount,
			Currency:        po.Currency,
			Items:           items,
			RawData:         po.RawData,
		}
		if created.Currency == "" {
			created.Currency = "SAR"
		}
		if err := s.orders.Save(ctx, created); err != nil {
			if errors.Is(err, order.ErrDuplicate) {
				// lost a race with a concurrent delivery; converge on theirs
				return s.UpsertOrder(ctx, merchantID, po)
			}
			return nil, false, err
		}
		return created, true, nil

	default:
		return nil, false, err
	}
}

// ---------------------------------------------------------------------------
// Polling sync
// ---------------------------------------------------------------------------

// callOptions builds per-call options wiring the 401 refresh path to the
// stored credentials.
func (s *Service) callOptions(merchantID uuid.UUID, code platform.Code) platform.CallOptions {
	return platform.CallOptions{
		Refresh: func(ctx context.Context) (platform.Credentials, error) {
			return s.refresher.RefreshCredentials(ctx, merchantID, code)
		},
	}
}

// connection resolves a complete connection for the merchant, or
// ErrNotConnected.
func (s *Service) connection(ctx context.Context, merchantID uuid.UUID, code platform.Code) (platform.Credentials, error) {
	conn, err := s.merchants.Credentials(ctx, merchantID, code)
	if err != nil {
		if errors.Is(err, merchant.ErrConnectionNotFound) {
			return platform.Credentials{}, platform.ErrNotConnected
		}
		return platform.Credentials{}, err
	}
	if !conn.IsComplete() {
		return platform.Credentials{}, fmt.Errorf("%w: credentials incomplete", platform.ErrNotConnected)
	}
	return conn.Credentials(), nil
}

// SyncProducts pulls the full catalog from the platform page by page
func (s *Service) SyncProducts(ctx context.Context, merchantID uuid.UUID, code platform.Code) (*Result, error) {
	client, err := s.clients.Client(code)
	if err != nil {
		return nil, err
	}
	creds, err := s.connection(ctx, merchantID, code)
	if err != nil {
		return nil, err
	}
	opts := s.callOptions(merchantID, code)

	result := &Result{}
	for page := 1; ; page++ {
		products, pagination, err := client.ListProducts(ctx, creds, page, opts)
		if err != nil {
			return result, err
		}

		for i := range products {
			result.Total++
			_, created, uerr := s.UpsertProduct(ctx, merchantID, products[i])
			switch {
			case uerr != nil:
				result.Failed++
				s.logger.Warn("product upsert failed",
					zap.String("platform", code.String()),
					zap.String("external_id", products[i].ExternalID),
					zap.Error(uerr),
				)
			case created:
				result.Created++
			default:
				result.Updated++
			}
		}

		if !pagination.HasMore() {
			break
		}
	}

	s.logger.Info("product sync finished",
		zap.String("platform", code.String()),
		zap.String("merchant_id", merchantID.String()),
		zap.Int("total", result.Total),
		zap.Int("failed", result.Failed),
	)
	return result, nil
}

// SyncOrders pulls orders created since the given time page by page
func (s *Service) SyncOrders(ctx context.Context, merchantID uuid.UUID, code platform.Code, since time.Time) (*Result, error) {
	client, err := s.clients.Client(code)
	if err != nil {
		return nil, err
	}
	creds, err := s.connection(ctx, merchantID, code)
	if err != nil {
		return nil, err
	}
	opts := s.callOptions(merchantID, code)

	result := &Result{}
	for page := 1; ; page++ {
		orders, pagination, err := client.ListOrders(ctx, creds, since, page, opts)
		if err != nil {
			return result, err
		}

		for i := range orders {
			result.Total++
			_, created, uerr := s.UpsertOrder(ctx, merchantID, orders[i])
			switch {
			case uerr != nil:
				result.Failed++
				s.logger.Warn("order upsert failed",
					zap.String("platform", code.String()),
					zap.String("external_id", orders[i].ExternalID),
					zap.Error(uerr),
				)
			case created:
				result.Created++
			default:
				result.Updated++
			}
		}

		if !pagination.HasMore() {
			break
		}
	}

	s.logger.Info("order sync finished",
		zap.String("platform", code.String()),
		zap.String("merchant_id", merchantID.String()),
		zap.Int("total", result.Total),
		zap.Int("failed", result.Failed),
	)
	return result, nil
}

// ---------------------------------------------------------------------------
// Category repair
// ---------------------------------------------------------------------------

// RepairCategories re-runs category inference over uncategorized products.
// It is safe to run repeatedly; products that still match nothing stay
// uncategorized.
func (s *Service) RepairCategories(ctx context.Context, limit int) (*Result, error) {
	products, err := s.products.FindUncategorized(ctx, limit)
	if err != nil {
		return nil, err
	}
	categories, err := s.categories.FindAll(ctx)
	if err != nil {
		return nil, err
	}

	result := &Result{Total: len(products)}
	for i := range products {
		p := &products[i]
		var matched *uuid.UUID
		for j := range categories {
			if categories[j].Matches(p.Name) || categories[j].Matches(p.Slug) {
				matched = &categories[j].ID
				break
			}
		}
		if matched == nil {
			continue
		}
		p.CategoryID = matched
		p.Touch()
		if err := s.products.Save(ctx, p); err != nil {
			result.Failed++
			s.logger.Warn("category repair save failed",
				zap.String("product_id", p.ID.String()),
				zap.Error(err),
			)
			continue
		}
		result.Updated++
	}

	s.logger.Info("category repair finished",
		zap.Int("scanned", result.Total),
		zap.Int("repaired", result.Updated),
	)
	return result, nil
}
