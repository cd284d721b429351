package attribution

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	domattr "github.com/souqlink/backend/internal/domain/attribution"
	"github.com/souqlink/backend/internal/domain/catalog"
	"github.com/souqlink/backend/internal/domain/order"
	"github.com/souqlink/backend/internal/domain/platform"
	"github.com/souqlink/backend/internal/domain/shared"
	"github.com/souqlink/backend/internal/infrastructure/config"
)

type fakeClickRepo struct {
	clicks []*domattr.ClickTracking
	events []*domattr.OutboundClickEvent
}

func (r *fakeClickRepo) FindByTrackingID(_ context.Context, trackingID uuid.UUID) (*domattr.ClickTracking, error) {
	for _, c := range r.clicks {
		if c.TrackingID == trackingID {
			return c, nil
		}
	}
	return nil, domattr.ErrClickNotFound
}

func (r *fakeClickRepo) FindLatestActive(_ context.Context, productID uuid.UUID, at time.Time) (*domattr.ClickTracking, error) {
	var best *domattr.ClickTracking
	for _, c := range r.clicks {
		if c.ProductID != productID || !c.ExpiresAt.After(at) {
			continue
		}
		if best == nil || c.ClickedAt.After(best.ClickedAt) {
			best = c
		}
	}
	if best == nil {
		return nil, domattr.ErrClickNotFound
	}
	return best, nil
}

func (r *fakeClickRepo) FindRecentBySession(_ context.Context, productID uuid.UUID, sessionID string, since time.Time) (*domattr.ClickTracking, error) {
	for _, c := range r.clicks {
		if c.ProductID == productID && c.SessionID == sessionID && !c.ClickedAt.Before(since) {
			return c, nil
		}
	}
	return nil, domattr.ErrClickNotFound
}

func (r *fakeClickRepo) Save(_ context.Context, c *domattr.ClickTracking) error {
	for i, existing := range r.clicks {
		if existing.ID == c.ID {
			r.clicks[i] = c
			return nil
		}
	}
	r.clicks = append(r.clicks, c)
	return nil
}

func (r *fakeClickRepo) LogEvent(_ context.Context, e *domattr.OutboundClickEvent) error {
	r.events = append(r.events, e)
	return nil
}

type fakeCommissionRepo struct {
	commissions map[uuid.UUID]*domattr.Commission
}

func newFakeCommissionRepo() *fakeCommissionRepo {
	return &fakeCommissionRepo{commissions: make(map[uuid.UUID]*domattr.Commission)}
}

func (r *fakeCommissionRepo) FindByID(_ context.Context, id uuid.UUID) (*domattr.Commission, error) {
	for _, c := range r.commissions {
		if c.ID == id {
			return c, nil
		}
	}
	return nil, domattr.ErrCommissionNotFound
}

func (r *fakeCommissionRepo) FindByOrderID(_ context.Context, orderID uuid.UUID) (*domattr.Commission, error) {
	if c, ok := r.commissions[orderID]; ok {
		return c, nil
	}
	return nil, domattr.ErrCommissionNotFound
}

func (r *fakeCommissionRepo) Insert(_ context.Context, c *domattr.Commission) error {
	if _, ok := r.commissions[c.OrderID]; ok {
		return domattr.ErrCommissionExists
	}
	r.commissions[c.OrderID] = c
	return nil
}

func (r *fakeCommissionRepo) Save(_ context.Context, c *domattr.Commission) error {
	r.commissions[c.OrderID] = c
	return nil
}

type fakeProductRepo struct {
	products map[string]*catalog.Product
}

func (r *fakeProductRepo) FindByID(_ context.Context, id uuid.UUID) (*catalog.Product, error) {
	for _, p := range r.products {
		if p.ID == id {
			return p, nil
		}
	}
	return nil, catalog.ErrProductNotFound
}

func (r *fakeProductRepo) FindByExternalID(_ context.Context, _ platform.Code, _ string) (*catalog.Product, error) {
	return nil, catalog.ErrProductNotFound
}

func (r *fakeProductRepo) FindBySlug(_ context.Context, slug string) (*catalog.Product, error) {
	if p, ok := r.products[slug]; ok {
		return p, nil
	}
	return nil, catalog.ErrProductNotFound
}

func (r *fakeProductRepo) FindUncategorized(_ context.Context, _ int) ([]catalog.Product, error) {
	return nil, nil
}

func (r *fakeProductRepo) Save(_ context.Context, p *catalog.Product) error {
	r.products[p.Slug] = p
	return nil
}

func (r *fakeProductRepo) SlugExists(_ context.Context, _ string, _ uuid.UUID) (bool, error) {
	return false, nil
}

func testProduct(slug string, active bool) *catalog.Product {
	return &catalog.Product{
		BaseEntity: shared.NewBaseEntity(),
		MerchantID: uuid.New(),
		Name:       "Sidr Honey",
		Slug:       slug,
		SallaID:    "9001",
		ProductURL: "https://store.salla.sa/p/" + slug,
		Active:     active,
	}
}

func newTestService(t *testing.T) (*Service, *fakeClickRepo, *fakeCommissionRepo, *fakeProductRepo) {
	t.Helper()
	clicks := &fakeClickRepo{}
	commissions := newFakeCommissionRepo()
	products := &fakeProductRepo{products: make(map[string]*catalog.Product)}
	svc := NewService(ServiceConfig{
		Clicks:      clicks,
		Commissions: commissions,
		Products:    products,
		Config: config.AttributionConfig{
			Window:                 24 * time.Hour,
			ClickCooldown:          30 * time.Minute,
			MaxConversionsPerClick: 3,
			DefaultRate:            0.05,
		},
		Logger: zap.NewNop(),
	})
	return svc, clicks, commissions, products
}

func confirmedOrder(productID uuid.UUID, total string) *order.Order {
	pid := productID
	amount, _ := decimal.NewFromString(total)
	return &order.Order{
		BaseEntity:  shared.NewBaseEntity(),
		MerchantID:  uuid.New(),
		Platform:    platform.CodeSalla,
		Status:      platform.OrderStatusPaid,
		TotalAmount: amount,
		Currency:    "SAR",
		Items: []order.Item{
			{ProductID: &pid, ExternalProductID: "9001", Quantity: 1},
		},
	}
}

func TestRecordClick_Qualified(t *testing.T) {
	svc, clicks, _, products := newTestService(t)
	p := testProduct("sidr-honey", true)
	products.products[p.Slug] = p

	result, err := svc.RecordClick(context.Background(), "sidr-honey", "sess-1")
	require.NoError(t, err)

	assert.Equal(t, p.ProductURL, result.DestinationURL)
	assert.Equal(t, domattr.ReasonQualified, result.Reason)
	require.NotNil(t, result.TrackingID)

	require.Len(t, clicks.clicks, 1)
	assert.Equal(t, *result.TrackingID, clicks.clicks[0].TrackingID)
	require.Len(t, clicks.events, 1)
	assert.Equal(t, domattr.ReasonQualified, clicks.events[0].Reason)
	require.NotNil(t, clicks.events[0].TrackingID)
}

func TestRecordClick_SessionCooldown(t *testing.T) {
	svc, clicks, _, products := newTestService(t)
	p := testProduct("sidr-honey", true)
	products.products[p.Slug] = p

	first, err := svc.RecordClick(context.Background(), "sidr-honey", "sess-1")
	require.NoError(t, err)
	require.NotNil(t, first.TrackingID)

	second, err := svc.RecordClick(context.Background(), "sidr-honey", "sess-1")
	require.NoError(t, err)

	// the redirect still works, but no second tracking row is created
	assert.Equal(t, p.ProductURL, second.DestinationURL)
	assert.Nil(t, second.TrackingID)
	assert.Equal(t, domattr.ReasonDuplicateSession, second.Reason)
	assert.Len(t, clicks.clicks, 1)

	// a different session is unaffected by the cooldown
	third, err := svc.RecordClick(context.Background(), "sidr-honey", "sess-2")
	require.NoError(t, err)
	require.NotNil(t, third.TrackingID)
	assert.Len(t, clicks.clicks, 2)
}

func TestRecordClick_InactiveProduct(t *testing.T) {
	svc, clicks, _, products := newTestService(t)
	p := testProduct("retired-soap", false)
	products.products[p.Slug] = p

	result, err := svc.RecordClick(context.Background(), "retired-soap", "sess-1")
	require.NoError(t, err)

	assert.Equal(t, p.ProductURL, result.DestinationURL)
	assert.Nil(t, result.TrackingID)
	assert.Equal(t, domattr.ReasonInactiveProduct, result.Reason)
	assert.Empty(t, clicks.clicks)
	require.Len(t, clicks.events, 1)
	assert.Equal(t, domattr.ReasonInactiveProduct, clicks.events[0].Reason)
}

func TestRecordClick_UnknownProduct(t *testing.T) {
	svc, _, _, _ := newTestService(t)

	_, err := svc.RecordClick(context.Background(), "no-such-slug", "sess-1")
	assert.ErrorIs(t, err, ErrProductNotFound)
}

func TestAttributeOrder_CreatesCommission(t *testing.T) {
	svc, clicks, commissions, products := newTestService(t)
	p := testProduct("sidr-honey", true)
	products.products[p.Slug] = p

	clicked, err := svc.RecordClick(context.Background(), "sidr-honey", "sess-1")
	require.NoError(t, err)
	require.NotNil(t, clicked.TrackingID)

	o := confirmedOrder(p.ID, "200.00")
	outcome, err := svc.AttributeOrder(context.Background(), o)
	require.NoError(t, err)

	assert.True(t, outcome.Attributed)
	require.NotNil(t, outcome.CommissionID)

	c, err := commissions.FindByOrderID(context.Background(), o.ID)
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(10).Equal(c.Amount), "5%% of 200 is 10, got %s", c.Amount)
	assert.Equal(t, domattr.CommissionStatusPending, c.Status)

	assert.True(t, clicks.clicks[0].Converted)
	assert.Equal(t, 1, clicks.clicks[0].ConvertedCount)
}

func TestAttributeOrder_AtMostOneCommission(t *testing.T) {
	svc, _, commissions, products := newTestService(t)
	p := testProduct("sidr-honey", true)
	products.products[p.Slug] = p

	_, err := svc.RecordClick(context.Background(), "sidr-honey", "sess-1")
	require.NoError(t, err)

	o := confirmedOrder(p.ID, "200.00")
	first, err := svc.AttributeOrder(context.Background(), o)
	require.NoError(t, err)
	require.NotNil(t, first.CommissionID)

	// redelivered order attributes again without creating a second payout
	second, err := svc.AttributeOrder(context.Background(), o)
	require.NoError(t, err)
	assert.True(t, second.Attributed)
	assert.Nil(t, second.CommissionID)
	assert.Len(t, commissions.commissions, 1)
}

func TestAttributeOrder_UnconfirmedOrderSkipped(t *testing.T) {
	svc, _, commissions, products := newTestService(t)
	p := testProduct("sidr-honey", true)
	products.products[p.Slug] = p

	_, err := svc.RecordClick(context.Background(), "sidr-honey", "sess-1")
	require.NoError(t, err)

	o := confirmedOrder(p.ID, "200.00")
	o.Status = platform.OrderStatusPending

	outcome, err := svc.AttributeOrder(context.Background(), o)
	require.NoError(t, err)
	assert.False(t, outcome.Attributed)
	assert.Empty(t, commissions.commissions)
}

func TestAttributeOrder_NoClickIsNotAnError(t *testing.T) {
	svc, _, commissions, products := newTestService(t)
	p := testProduct("sidr-honey", true)
	products.products[p.Slug] = p

	o := confirmedOrder(p.ID, "200.00")
	outcome, err := svc.AttributeOrder(context.Background(), o)
	require.NoError(t, err)
	assert.False(t, outcome.Attributed)
	assert.Empty(t, commissions.commissions)
}

func TestAttributeOrder_ExpiredClickSkipped(t *testing.T) {
	svc, clicks, commissions, products := newTestService(t)
	p := testProduct("sidr-honey", true)
	products.products[p.Slug] = p

	stale := domattr.NewClickTracking(p.ID, p.MerchantID, platform.CodeSalla, "sess-1", p.ProductURL, 24*time.Hour)
	stale.ClickedAt = time.Now().Add(-48 * time.Hour)
	stale.ExpiresAt = time.Now().Add(-24 * time.Hour)
	require.NoError(t, clicks.Save(context.Background(), stale))

	o := confirmedOrder(p.ID, "200.00")
	outcome, err := svc.AttributeOrder(context.Background(), o)
	require.NoError(t, err)
	assert.False(t, outcome.Attributed)
	assert.Empty(t, commissions.commissions)
}

func TestAttributeOrder_ConversionCap(t *testing.T) {
	svc, clicks, commissions, products := newTestService(t)
	p := testProduct("sidr-honey", true)
	products.products[p.Slug] = p

	_, err := svc.RecordClick(context.Background(), "sidr-honey", "sess-1")
	require.NoError(t, err)

	// three distinct orders convert against the same click, the fourth
	// finds the counter capped
	for i := 0; i < 3; i++ {
		o := confirmedOrder(p.ID, "100.00")
		outcome, err := svc.AttributeOrder(context.Background(), o)
		require.NoError(t, err)
		assert.True(t, outcome.Attributed, "order %d should attribute", i+1)
	}
	assert.Equal(t, 3, clicks.clicks[0].ConvertedCount)

	fourth := confirmedOrder(p.ID, "100.00")
	outcome, err := svc.AttributeOrder(context.Background(), fourth)
	require.NoError(t, err)
	assert.False(t, outcome.Attributed)
	assert.Equal(t, 3, clicks.clicks[0].ConvertedCount)
	assert.Len(t, commissions.commissions, 3)
}

func TestApproveAndRejectCommission(t *testing.T) {
	svc, _, _, products := newTestService(t)
	p := testProduct("sidr-honey", true)
	products.products[p.Slug] = p

	_, err := svc.RecordClick(context.Background(), "sidr-honey", "sess-1")
	require.NoError(t, err)

	o := confirmedOrder(p.ID, "200.00")
	outcome, err := svc.AttributeOrder(context.Background(), o)
	require.NoError(t, err)
	require.NotNil(t, outcome.CommissionID)

	approved, err := svc.ApproveCommission(context.Background(), *outcome.CommissionID)
	require.NoError(t, err)
	assert.Equal(t, domattr.CommissionStatusApproved, approved.Status)

	// a settled commission cannot change state again
	_, err = svc.RejectCommission(context.Background(), *outcome.CommissionID)
	assert.ErrorIs(t, err, domattr.ErrCommissionInvalidState)
}
